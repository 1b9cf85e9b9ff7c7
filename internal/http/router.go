package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-report-service/internal/observability"
)

// RouterConfig carries the middleware settings for the report routes.
type RouterConfig struct {
	RequestTimeout time.Duration
	Limiter        *rate.Limiter // nil disables rate limiting
	InFlight       *InFlightTracker
}

// NewRouter wires the routes. /health and /metrics bypass the rate limiter
// and request timeout; /weather and /alerts get both.
func NewRouter(h *Handler, logger *zap.Logger, cfg RouterConfig) *mux.Router {
	if cfg.InFlight == nil {
		cfg.InFlight = &InFlightTracker{}
	}

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(cfg.InFlight.Middleware)
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	reports := router.NewRoute().Subrouter()
	reports.Use(RateLimitMiddleware(cfg.Limiter))
	if cfg.RequestTimeout > 0 {
		reports.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}
	reports.HandleFunc("/weather", h.GetWeather).Methods(http.MethodGet)
	reports.HandleFunc("/alerts", h.GetAlerts).Methods(http.MethodGet)
	return router
}
