package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-report-service/internal/cache"
	"github.com/kjstillabower/weather-report-service/internal/client"
	"github.com/kjstillabower/weather-report-service/internal/lifecycle"
	"github.com/kjstillabower/weather-report-service/internal/models"
	"github.com/kjstillabower/weather-report-service/internal/observability"
	"github.com/kjstillabower/weather-report-service/internal/traffic"
	"github.com/kjstillabower/weather-report-service/internal/validation"
)

// ReportService compiles the text served by /weather and /alerts.
type ReportService interface {
	BuildReport(ctx context.Context, lat, lon float64, metric bool) (string, error)
	Bulletins(ctx context.Context, point models.Point) (string, error)
}

// HealthConfig holds the thresholds /health evaluates.
type HealthConfig struct {
	OverloadWindow       time.Duration
	OverloadThresholdPct int
	RateLimitRPS         int // 0 when the inbound limiter is disabled
	DegradedWindow       time.Duration
	DegradedErrorPct     int
	// Cache, when set, is pinged and reported under checks.cache.
	Cache cache.Pinger
	Clock clockwork.Clock
}

// Handler serves the report endpoints and /health.
type Handler struct {
	reports ReportService
	health  *HealthConfig
	logger  *zap.Logger
	clock   clockwork.Clock

	statusMu   sync.Mutex
	prevStatus string
}

// NewHandler returns a Handler. health may be nil, in which case /health only
// reports shutdown.
func NewHandler(reports ReportService, health *HealthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := clockwork.NewRealClock()
	if health != nil && health.Clock != nil {
		clock = health.Clock
	}
	return &Handler{reports: reports, health: health, logger: logger, clock: clock}
}

// GetWeather handles GET /weather?lat=&lon=&units=.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	point, err := validation.ValidateCoordinates(q.Get("lat"), q.Get("lon"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", err.Error())
		return
	}
	metric, err := validation.ParseUnits(q.Get("units"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_UNITS", err.Error())
		return
	}

	text, err := h.reports.BuildReport(r.Context(), point.Lat, point.Lon, metric)
	if err != nil {
		traffic.Record(traffic.Error)
		writeServiceError(w, r, err)
		return
	}
	traffic.Record(traffic.Success)
	writeText(w, http.StatusOK, text)
}

// GetAlerts handles GET /alerts?lat=&lon=. No active alerts is a 204.
func (h *Handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	point, err := validation.ValidateCoordinates(q.Get("lat"), q.Get("lon"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", err.Error())
		return
	}

	text, err := h.reports.Bulletins(r.Context(), point)
	if err != nil {
		traffic.Record(traffic.Error)
		writeServiceError(w, r, err)
		return
	}
	traffic.Record(traffic.Success)
	if text == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeText(w, http.StatusOK, text)
}

type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.statusMu.Lock()
	if h.prevStatus != "" && h.prevStatus != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", h.prevStatus),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.prevStatus = result.status
	h.statusMu.Unlock()

	checks := map[string]string{"upstream": "healthy"}
	if result.reason == "error_rate_breach" {
		checks["upstream"] = "unhealthy"
	}
	if h.health != nil && h.health.Cache != nil {
		checks["cache"] = "healthy"
		if err := h.health.Cache.Ping(); err != nil {
			checks["cache"] = "unhealthy"
			observability.LoggerFromContext(r.Context()).Warn("cache ping failed", zap.Error(err))
		}
	}

	now := h.clock.Now()
	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":        result.status,
		"service":       observability.ServiceName,
		"version":       "dev",
		"checks":        checks,
		"uptimeSeconds": int64(lifecycle.Uptime(now).Seconds()),
		"timestamp":     now.UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates, in order: shutting-down > overloaded > degraded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.health == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}

	if h.health.RateLimitRPS > 0 && h.health.OverloadWindow > 0 {
		threshold := float64(h.health.RateLimitRPS) * h.health.OverloadWindow.Seconds() * float64(h.health.OverloadThresholdPct) / 100
		if float64(traffic.RequestCount(h.health.OverloadWindow)) > threshold {
			return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
		}
	}

	if h.health.DegradedWindow > 0 && h.health.DegradedErrorPct > 0 {
		errs, total := traffic.ErrorRate(h.health.DegradedWindow)
		if total > 0 && float64(errs)*100/float64(total) >= float64(h.health.DegradedErrorPct) {
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": {"code", "message", "requestId"}}.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationIDFromContext(r.Context()),
		},
	})
}

// writeServiceError maps a failed fetch or parse to 503, or 504 when the
// request's own deadline ran out first.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	category := client.CategorizeError(err)
	observability.LoggerFromContext(r.Context()).Warn("report unavailable",
		zap.String("category", string(category)), zap.Error(err))

	if errors.Is(err, context.DeadlineExceeded) && r.Context().Err() != nil {
		writeError(w, r, http.StatusGatewayTimeout, "TIMEOUT", "Report compilation timed out")
		return
	}
	writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Unable to compile weather report")
}
