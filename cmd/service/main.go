package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-report-service/internal/alerts"
	"github.com/kjstillabower/weather-report-service/internal/cache"
	"github.com/kjstillabower/weather-report-service/internal/client"
	"github.com/kjstillabower/weather-report-service/internal/config"
	"github.com/kjstillabower/weather-report-service/internal/forecast"
	httphandler "github.com/kjstillabower/weather-report-service/internal/http"
	"github.com/kjstillabower/weather-report-service/internal/lifecycle"
	"github.com/kjstillabower/weather-report-service/internal/observability"
	"github.com/kjstillabower/weather-report-service/internal/publish"
	"github.com/kjstillabower/weather-report-service/internal/report"
)

func main() {
	lifecycle.MarkStarted(time.Now())

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	store, closeStore, err := newCache(cfg, logger)
	if err != nil {
		logger.Fatal("cache", zap.Error(err))
	}
	loader := cache.NewLoader(store, cfg.CacheCoalesce)

	upstream := func(service string) *client.Client {
		return client.New(client.Config{
			Service:      service,
			UserAgent:    cfg.UserAgent,
			Timeout:      cfg.UpstreamTimeout,
			RateLimitRPS: cfg.UpstreamRateLimitRPS,
			CircuitBreaker: client.BreakerConfig{
				Enabled:          cfg.CircuitBreakerEnabled,
				FailureThreshold: cfg.CircuitBreakerFailureThreshold,
				Timeout:          cfg.CircuitBreakerTimeout,
			},
		})
	}
	if cfg.CircuitBreakerEnabled {
		logger.Info("circuit breaker enabled",
			zap.Uint32("failure_threshold", cfg.CircuitBreakerFailureThreshold),
			zap.Duration("timeout", cfg.CircuitBreakerTimeout))
	}

	forecasts := forecast.NewClient(upstream(forecast.Service), loader, forecast.Config{
		URL: cfg.ForecastURL,
		TTL: cfg.ForecastTTL,
	})
	alertClient := alerts.NewClient(upstream(alerts.Service), loader, alerts.Config{
		URL: cfg.AlertsURL,
		TTL: cfg.AlertsTTL,
	})
	compiler := report.NewCompiler(forecasts, alertClient, report.Options{})

	var publisher report.Publisher
	var kafkaPublisher *publish.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher = publish.NewKafkaPublisher(publish.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.PublishTopic,
		}, logger)
		publisher = kafkaPublisher
		logger.Info("publishing reports", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.PublishTopic))
	}

	points := make([]report.WarmPoint, 0, len(cfg.WarmPoints))
	for _, p := range cfg.WarmPoints {
		points = append(points, report.WarmPoint{Point: p.Point, Metric: p.Metric})
	}
	warmer := report.NewWarmer(compiler, points, publisher, logger)
	if err := warmer.Start(cfg.WarmInterval); err != nil {
		logger.Fatal("warmer", zap.Error(err))
	}

	healthConfig := &httphandler.HealthConfig{
		OverloadWindow:       cfg.OverloadWindow,
		OverloadThresholdPct: cfg.OverloadThresholdPct,
		RateLimitRPS:         cfg.RateLimitRPS,
		DegradedWindow:       cfg.DegradedWindow,
		DegradedErrorPct:     cfg.DegradedErrorPct,
	}
	if p, ok := store.(cache.Pinger); ok {
		healthConfig.Cache = p
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	observability.RegisterRateLimitGauges(cfg.OverloadWindow)

	inFlight := &httphandler.InFlightTracker{}
	handler := httphandler.NewHandler(compiler, healthConfig, logger)
	router := httphandler.NewRouter(handler, logger, httphandler.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		Limiter:        limiter,
		InFlight:       inFlight,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("cache_backend", cfg.CacheBackend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.BeginDrain()
	warmer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight.Count()))
	if err := inFlight.Drain(shutdownCtx, 100*time.Millisecond); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", inFlight.Count()))
	}

	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("publisher close", zap.Error(err))
		}
	}
	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	if err := closeStore(); err != nil {
		logger.Error("cache close", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// newCache builds the configured backend and a func that releases it.
func newCache(cfg *config.Config, logger *zap.Logger) (cache.Cache, func() error, error) {
	noop := func() error { return nil }
	clock := clockwork.NewRealClock()

	switch cfg.CacheBackend {
	case "file":
		fc, err := cache.NewFileCache(cache.FileConfig{Dir: cfg.CacheDir, Clock: clock})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("cache backend: file", zap.String("dir", cfg.CacheDir))
		return fc, noop, nil
	case "sqlite":
		sc, err := cache.NewSQLiteCache(cfg.SQLitePath, clock)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("cache backend: sqlite", zap.String("path", cfg.SQLitePath))
		return sc, sc.Close, nil
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
		return mc, mc.Close, nil
	default:
		logger.Info("cache backend: in_memory")
		return cache.NewInMemoryCache(clock), noop, nil
	}
}
