package cache

import (
	"context"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

const keyPrefix = "wxreport:"

// MemcachedCache implements Cache using memcached. Expiry is delegated to the
// server, which never returns an item past its expiration.
type MemcachedCache struct {
	client *memcache.Client
}

// NewMemcachedCache creates a MemcachedCache. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211"). timeout and maxIdleConns
// configure the client; both use package defaults if zero.
func NewMemcachedCache(addrs string, timeout time.Duration, maxIdleConns int) (*MemcachedCache, error) {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedCache{client: client}, nil
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (c *MemcachedCache) key(k string) string {
	return keyPrefix + k
}

// Get implements Cache.Get. Returns false, nil on cache miss; false, err on error.
func (c *MemcachedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}
	item, err := c.client.Get(c.key(key))
	if err != nil {
		if err == memcache.ErrCacheMiss {
			return nil, false, nil
		}
		return nil, false, err
	}
	return item.Value, true, nil
}

// Set implements Cache.Set.
func (c *MemcachedCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return c.client.Set(&memcache.Item{
		Key:        c.key(key),
		Value:      value,
		Expiration: expirationSeconds(ttl),
	})
}

// expirationSeconds converts ttl to memcached's relative expiration.
// Values above 30 days would be read as absolute unix times, so they are clamped.
func expirationSeconds(ttl time.Duration) int32 {
	const maxRelativeExp = 30 * 24 * 60 * 60
	sec := int64(ttl / time.Second)
	if ttl%time.Second != 0 {
		sec++
	}
	switch {
	case sec <= 0:
		return 1
	case sec > maxRelativeExp:
		return maxRelativeExp
	}
	return int32(sec)
}

// Ping checks if memcached is reachable. Used for health checks.
func (c *MemcachedCache) Ping() error {
	return c.client.Ping()
}

// Close closes the memcached client connections. Call during shutdown.
func (c *MemcachedCache) Close() error {
	return c.client.Close()
}
