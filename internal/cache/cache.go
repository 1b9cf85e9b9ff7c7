package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Cache is a TTL key-value store over opaque payloads.
// Get reports a hit only while the entry's expiry is still in the future;
// Set unconditionally replaces any entry for key and restarts its TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Pinger is implemented by backends that can report reachability for health checks.
type Pinger interface {
	Ping() error
}

// Fingerprint builds a deterministic cache key from a namespace and request parameters.
// Floats use their shortest exact decimal form so 47.6 and 47.60 share a key.
func Fingerprint(namespace string, parts ...any) string {
	var b strings.Builder
	b.WriteString(namespace)
	for _, p := range parts {
		b.WriteByte(':')
		switch v := p.(type) {
		case float64:
			b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		case string:
			b.WriteString(v)
		case bool:
			b.WriteString(strconv.FormatBool(v))
		default:
			fmt.Fprint(&b, v)
		}
	}
	return b.String()
}

// InMemoryCache implements Cache using a map with lazy TTL expiration.
// Expired entries are removed on access; there is no background sweep.
type InMemoryCache struct {
	mu    sync.Mutex
	data  map[string]cacheEntry
	clock clockwork.Clock
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewInMemoryCache creates an in-memory cache. A nil clock uses wall time.
func NewInMemoryCache(clock clockwork.Clock) *InMemoryCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &InMemoryCache{
		data:  make(map[string]cacheEntry),
		clock: clock,
	}
}

// Get returns (value, true, nil) on a live hit and (nil, false, nil) on miss or expiry.
func (c *InMemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data[key]
	if !ok {
		return nil, false, nil
	}
	if expired(c.clock.Now(), entry.expiresAt) {
		delete(c.data, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set stores value under key until now+ttl.
func (c *InMemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = cacheEntry{
		value:     value,
		expiresAt: c.clock.Now().Add(ttl),
	}
	return nil
}

// expired reports whether an entry expiring at expiresAt is dead at now.
func expired(now, expiresAt time.Time) bool {
	return !now.Before(expiresAt)
}
