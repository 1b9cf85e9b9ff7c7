// Package lifecycle holds process-wide state the health endpoint reports on.
package lifecycle

import (
	"sync/atomic"
	"time"
)

var (
	draining  atomic.Bool
	startedAt atomic.Int64
)

func init() {
	MarkStarted(time.Now())
}

// BeginDrain flags the process as shutting down. /health answers 503
// shutting-down from then on so load balancers stop routing new requests.
func BeginDrain() {
	draining.Store(true)
}

// IsShuttingDown reports whether BeginDrain has been called.
func IsShuttingDown() bool {
	return draining.Load()
}

// MarkStarted records the process start time used by Uptime.
func MarkStarted(t time.Time) {
	startedAt.Store(t.UnixNano())
}

// Uptime returns the time elapsed since MarkStarted, truncated to seconds.
func Uptime(now time.Time) time.Duration {
	d := now.Sub(time.Unix(0, startedAt.Load()))
	if d < 0 {
		return 0
	}
	return d.Truncate(time.Second)
}

// Reset clears the drain flag. For tests only.
func Reset() {
	draining.Store(false)
}
