package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-report-service/internal/observability"
)

// BreakerConfig configures the optional upstream circuit breaker.
type BreakerConfig struct {
	Enabled          bool
	FailureThreshold uint32
	Timeout          time.Duration
}

// Config configures a Client for one upstream service.
type Config struct {
	// Service labels metrics, logs and errors ("forecast", "alerts").
	Service   string
	UserAgent string
	Timeout   time.Duration
	// RateLimitRPS caps outbound calls per second; 0 disables the limiter.
	RateLimitRPS   float64
	CircuitBreaker BreakerConfig
	// HTTPClient overrides the transport; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Response is a completed upstream exchange of any status.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client performs GET requests against one upstream service. It never retries;
// status interpretation is left to the caller.
type Client struct {
	service   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
}

// serverStatus carries a 5xx response through the breaker so it counts as a failure.
type serverStatus struct {
	resp Response
}

func (e *serverStatus) Error() string {
	return fmt.Sprintf("HTTP %d", e.resp.StatusCode)
}

// New builds a Client from cfg.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	c := &Client{
		service:   cfg.Service,
		userAgent: cfg.UserAgent,
		http:      httpClient,
	}
	if cfg.RateLimitRPS > 0 {
		burst := int(cfg.RateLimitRPS)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}
	if cfg.CircuitBreaker.Enabled {
		c.breaker = newBreaker(cfg.Service, cfg.CircuitBreaker)
	}
	return c
}

func newBreaker(service string, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	observability.CircuitBreakerState.WithLabelValues(service).Set(0)
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        service,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Service returns the upstream name this client labels itself with.
func (c *Client) Service() string {
	return c.service
}

// Get sends a GET to rawURL with header and returns the response of any status.
// Errors are transport failures, limiter waits cut short by ctx, or ErrCircuitOpen.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) (Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Response{}, fmt.Errorf("%s rate limit wait: %w", c.service, err)
		}
	}
	if c.breaker == nil {
		return c.do(ctx, rawURL, header)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.do(ctx, rawURL, header)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, &serverStatus{resp: resp}
		}
		return resp, nil
	})
	if err != nil {
		var ss *serverStatus
		if errors.As(err, &ss) {
			return ss.resp, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			observability.LoggerFromContext(ctx).Warn("upstream call rejected by circuit breaker",
				zap.String("service", c.service))
			return Response{}, fmt.Errorf("%s: %w", c.service, ErrCircuitOpen)
		}
		return Response{}, err
	}
	return out.(Response), nil
}

func (c *Client) do(ctx context.Context, rawURL string, header http.Header) (Response, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Response{}, fmt.Errorf("%s build request: %w", c.service, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if corrID := observability.CorrelationIDFromContext(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(c.service, "error").Inc()
		observability.UpstreamDuration.WithLabelValues(c.service, "error").Observe(time.Since(start).Seconds())
		return Response{}, fmt.Errorf("%s request: %w", c.service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	status := statusLabel(resp.StatusCode)
	observability.UpstreamCallsTotal.WithLabelValues(c.service, status).Inc()
	observability.UpstreamDuration.WithLabelValues(c.service, status).Observe(time.Since(start).Seconds())
	if err != nil {
		return Response{}, fmt.Errorf("%s read response body: %w", c.service, err)
	}

	observability.LoggerFromContext(ctx).Debug("upstream call",
		zap.String("service", c.service),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return Response{StatusCode: resp.StatusCode, Body: body}, nil
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
