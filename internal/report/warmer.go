package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-report-service/internal/models"
	"github.com/kjstillabower/weather-report-service/internal/observability"
)

// Builder is implemented by Compiler.
type Builder interface {
	BuildReport(ctx context.Context, lat, lon float64, metric bool) (string, error)
}

// Publisher receives every report the Warmer builds.
type Publisher interface {
	Publish(ctx context.Context, report models.Report) error
}

// WarmPoint is a tracked location and unit system to keep warm.
type WarmPoint struct {
	Point  models.Point
	Metric bool
}

// Warmer pre-compiles reports for tracked points so requests for them hit a warm
// cache, and hands each report to an optional Publisher.
type Warmer struct {
	builder    Builder
	points     []WarmPoint
	publisher  Publisher
	logger     *zap.Logger
	clock      clockwork.Clock
	runTimeout time.Duration
	scheduler  *gocron.Scheduler
}

// NewWarmer creates a Warmer. publisher may be nil.
func NewWarmer(builder Builder, points []WarmPoint, publisher Publisher, logger *zap.Logger) *Warmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Warmer{
		builder:    builder,
		points:     points,
		publisher:  publisher,
		logger:     logger,
		clock:      clockwork.NewRealClock(),
		runTimeout: 30 * time.Second,
	}
}

// Warm builds a report for every point concurrently. Failed points are joined
// into the returned error; successful ones are still published.
func (w *Warmer) Warm(ctx context.Context) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	w.logger.Info("warming reports", zap.Int("points", len(w.points)))

	ctx = observability.WithLogger(ctx, w.logger)
	var wg sync.WaitGroup
	errCh := make(chan error, len(w.points))
	for _, p := range w.points {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.warmPoint(ctx, p); err != nil {
				errCh <- fmt.Errorf("warm %s: %w", p.Point, err)
			}
		}()
	}
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	w.logger.Info("report warming complete",
		zap.Int("points", len(w.points)),
		zap.Int("errors", len(errs)),
		zap.Float64("duration_seconds", duration),
	)
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return errors.Join(errs...)
	}
	return nil
}

func (w *Warmer) warmPoint(ctx context.Context, p WarmPoint) error {
	text, err := w.builder.BuildReport(ctx, p.Point.Lat, p.Point.Lon, p.Metric)
	if err != nil {
		return err
	}
	if w.publisher == nil {
		return nil
	}
	err = w.publisher.Publish(ctx, models.Report{
		Point:       p.Point,
		Metric:      p.Metric,
		Text:        text,
		GeneratedAt: w.clock.Now().UTC(),
	})
	if err != nil {
		observability.ReportsPublishedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("publish: %w", err)
	}
	observability.ReportsPublishedTotal.WithLabelValues("success").Inc()
	return nil
}

// Start runs Warm now and then every interval until Stop. Does nothing when
// there are no points or interval is not positive.
func (w *Warmer) Start(interval time.Duration) error {
	if len(w.points) == 0 || interval <= 0 {
		w.logger.Info("report warming disabled")
		return nil
	}
	w.scheduler = gocron.NewScheduler(time.UTC)
	_, err := w.scheduler.Every(interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), w.runTimeout)
		defer cancel()
		if err := w.Warm(ctx); err != nil {
			w.logger.Warn("report warming failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule warming: %w", err)
	}
	w.scheduler.StartAsync()
	return nil
}

// Stop halts scheduled warming. Safe to call when Start was a no-op.
func (w *Warmer) Stop() {
	if w.scheduler != nil {
		w.scheduler.Stop()
	}
}
