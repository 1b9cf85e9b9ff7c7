package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-report-service/internal/observability"
)

// FetchFunc produces a fresh payload on a cache miss. Only payloads it returns
// without error are written to the store.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Loader puts a TTL store behind an in-flight request registry: concurrent
// misses for one key share a single FetchFunc call, and the store holds the
// persisted result. With coalescing disabled every miss fetches on its own.
type Loader struct {
	store    Cache
	coalesce bool

	mu       sync.Mutex
	inFlight map[string]*call
	misses   *stampedeTracker
}

// call is one outstanding fetch that later callers for the same key wait on.
type call struct {
	done chan struct{}
	val  []byte
	err  error
}

// NewLoader wraps store. coalesce enables single-flight fetches per key.
func NewLoader(store Cache, coalesce bool) *Loader {
	return &Loader{
		store:    store,
		coalesce: coalesce,
		inFlight: make(map[string]*call),
		misses:   newStampedeTracker(),
	}
}

// Load returns the live cached payload for key, or fetches, stores with ttl, and
// returns a fresh one. namespace labels metrics ("forecast", "alerts").
// Store failures are logged and treated as misses; they never fail the call.
func (l *Loader) Load(ctx context.Context, namespace, key string, ttl time.Duration, fetch FetchFunc) ([]byte, error) {
	logger := observability.LoggerFromContext(ctx)

	cached, ok, err := l.store.Get(ctx, key)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get").Inc()
		logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		observability.CacheHitsTotal.WithLabelValues(namespace).Inc()
		logger.Debug("cache hit", zap.String("key", key))
		return cached, nil
	}
	observability.CacheMissesTotal.WithLabelValues(namespace).Inc()

	if n := l.misses.RecordMiss(key); n > 1 {
		observability.CacheStampedeDetectedTotal.WithLabelValues(namespace).Inc()
	}
	defer l.misses.RecordDone(key)

	if !l.coalesce {
		return l.fetchAndStore(ctx, key, ttl, fetch)
	}

	l.mu.Lock()
	if c, exists := l.inFlight[key]; exists {
		l.mu.Unlock()
		observability.CacheCoalescedTotal.WithLabelValues(namespace).Inc()
		logger.Debug("joining in-flight fetch", zap.String("key", key))
		select {
		case <-c.done:
			return c.val, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c := &call{done: make(chan struct{})}
	l.inFlight[key] = c
	l.mu.Unlock()

	c.val, c.err = l.fetchAndStore(ctx, key, ttl, fetch)

	// Unregister before waking waiters; the store already holds the result,
	// so later callers hit the cache instead of a finished call.
	l.mu.Lock()
	delete(l.inFlight, key)
	l.mu.Unlock()
	close(c.done)

	return c.val, c.err
}

func (l *Loader) fetchAndStore(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc) ([]byte, error) {
	val, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if setErr := l.store.Set(ctx, key, val, ttl); setErr != nil {
		observability.CacheErrorsTotal.WithLabelValues("set").Inc()
		observability.LoggerFromContext(ctx).Warn("cache set failed", zap.String("key", key), zap.Error(setErr))
	}
	return val, nil
}
