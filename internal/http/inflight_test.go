package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestInFlightTracker_CountsWhileServing(t *testing.T) {
	tracker := &InFlightTracker{}
	entered := make(chan struct{})
	release := make(chan struct{})
	handler := tracker.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
	}))

	done := make(chan struct{})
	go func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/weather", nil))
		close(done)
	}()

	<-entered
	if got := tracker.Count(); got != 1 {
		t.Errorf("Count() while serving = %d, want 1", got)
	}
	close(release)
	<-done
	if got := tracker.Count(); got != 0 {
		t.Errorf("Count() after serving = %d, want 0", got)
	}
}

func TestInFlightTracker_DrainWaitsForRequests(t *testing.T) {
	tracker := &InFlightTracker{}
	release := make(chan struct{})
	entered := make(chan struct{})
	handler := tracker.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
	}))
	go handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/weather", nil))
	<-entered

	drained := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		drained <- tracker.Drain(ctx, 5*time.Millisecond)
	}()

	select {
	case <-drained:
		t.Fatal("Drain returned with a request still in flight")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)

	select {
	case err := <-drained:
		if err != nil {
			t.Errorf("Drain() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Drain did not return after the request finished")
	}
}

func TestInFlightTracker_DrainContextCanceled(t *testing.T) {
	tracker := &InFlightTracker{}
	tracker.n.Add(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := tracker.Drain(ctx, 5*time.Millisecond); err != context.DeadlineExceeded {
		t.Errorf("Drain() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestInFlightTracker_DrainIdle(t *testing.T) {
	tracker := &InFlightTracker{}
	if err := tracker.Drain(context.Background(), 0); err != nil {
		t.Errorf("Drain() on idle tracker error = %v", err)
	}
}
