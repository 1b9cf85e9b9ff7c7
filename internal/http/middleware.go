package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-report-service/internal/observability"
	"github.com/kjstillabower/weather-report-service/internal/traffic"
)

// CorrelationIDHeader carries the request id in both directions.
const CorrelationIDHeader = "X-Correlation-ID"

// CorrelationIDMiddleware reuses the caller's X-Correlation-ID or mints one,
// echoes it on the response, and stores it with a request-scoped logger in the context.
func CorrelationIDMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			corrID := r.Header.Get(CorrelationIDHeader)
			if corrID == "" {
				corrID = uuid.New().String()
			}
			w.Header().Set(CorrelationIDHeader, corrID)

			ctx := observability.WithCorrelationID(r.Context(), corrID)
			ctx = observability.WithLogger(ctx, logger.With(zap.String("correlation_id", corrID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MetricsMiddleware records request count and latency labelled by route template.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(recorder, r)

		duration := time.Since(start)
		route := routeLabel(r)
		observability.HTTPRequestsTotal.WithLabelValues(r.Method, route, statusCodeString(recorder.statusCode)).Inc()
		observability.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())

		observability.LoggerFromContext(r.Context()).Debug("request served",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", recorder.statusCode),
			zap.Duration("duration", duration))
	})
}

// routeLabel keeps label cardinality bounded: unmatched paths collapse to "other".
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "other"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func statusCodeString(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

// TimeoutMiddleware bounds the request context. Upstream calls made with it
// fail with context.DeadlineExceeded once the budget is spent.
func TimeoutMiddleware(timeout time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware answers 429 when the token bucket is empty. A nil limiter disables it.
func RateLimitMiddleware(limiter *rate.Limiter) mux.MiddlewareFunc {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				observability.LoggerFromContext(r.Context()).Debug("rate limit denied")
				traffic.Record(traffic.Denied)
				observability.RateLimitDeniedTotal.Inc()
				writeError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
