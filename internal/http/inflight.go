package http

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/kjstillabower/weather-report-service/internal/observability"
)

// InFlightTracker counts requests that are inside the handler chain. The
// shutdown path drains it after the listener stops accepting connections.
type InFlightTracker struct {
	n atomic.Int64
}

// Middleware counts the request for as long as next is serving it and mirrors
// the count into the httpRequestsInFlight gauge.
func (t *InFlightTracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.n.Add(1)
		observability.HTTPRequestsInFlight.Inc()
		defer func() {
			t.n.Add(-1)
			observability.HTTPRequestsInFlight.Dec()
		}()
		next.ServeHTTP(w, r)
	})
}

// Count returns the number of requests currently being served.
func (t *InFlightTracker) Count() int64 {
	return t.n.Load()
}

// Drain blocks until no request is in flight, polling every interval, or
// returns ctx.Err() with requests still outstanding.
func (t *InFlightTracker) Drain(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for t.Count() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
