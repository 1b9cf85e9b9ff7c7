package traffic

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Outcome classifies one request handled by the report endpoints.
type Outcome int

const (
	Success Outcome = iota
	Error
	Denied
)

// retention bounds how long outcomes are kept; windows longer than this undercount.
const retention = 5 * time.Minute

var defaultTracker = NewTracker(nil)

// Record records an outcome on the process-wide tracker.
func Record(o Outcome) {
	defaultTracker.Record(o)
}

// RequestCount returns outcomes of every kind within the window.
func RequestCount(window time.Duration) int {
	return defaultTracker.RequestCount(window)
}

// DenialCount returns rate-limit denials within the window.
func DenialCount(window time.Duration) int {
	return defaultTracker.DenialCount(window)
}

// ErrorRate returns (errors, successes+errors) within the window.
func ErrorRate(window time.Duration) (errors, total int) {
	return defaultTracker.ErrorRate(window)
}

// Reset clears the process-wide tracker. For tests only.
func Reset() {
	defaultTracker.Reset()
}

// Tracker keeps sliding windows of outcome timestamps. It backs both the
// overloaded check (request and denial counts) and the degraded check (error rate).
type Tracker struct {
	mu    sync.Mutex
	clock clockwork.Clock
	times [3][]time.Time
}

// NewTracker creates a Tracker. A nil clock uses wall time.
func NewTracker(clock clockwork.Clock) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tracker{clock: clock}
}

// Record appends an outcome at the current time and prunes expired entries.
func (t *Tracker) Record(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()
	t.times[o] = append(t.times[o], now)
	t.pruneLocked(now)
}

// RequestCount returns outcomes of every kind within the window.
func (t *Tracker) RequestCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.clock.Now().Add(-window)
	n := 0
	for _, times := range t.times {
		n += countSince(times, cutoff)
	}
	return n
}

// DenialCount returns rate-limit denials within the window.
func (t *Tracker) DenialCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return countSince(t.times[Denied], t.clock.Now().Add(-window))
}

// ErrorRate returns (errors, successes+errors) within the window. Denials are
// excluded so a rate-limit storm does not read as upstream degradation.
func (t *Tracker) ErrorRate(window time.Duration) (errors, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.clock.Now().Add(-window)
	errors = countSince(t.times[Error], cutoff)
	return errors, errors + countSince(t.times[Success], cutoff)
}

// Reset clears all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.times {
		t.times[i] = nil
	}
}

// countSince counts timestamps not before cutoff. Slices are in append order.
func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than retention. Must be called with mu held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	for o, times := range t.times {
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			t.times[o] = append(times[:0], times[i:]...)
		}
	}
}
