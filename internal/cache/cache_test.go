package cache

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

// backends returns each locally testable Cache implementation sharing one fake clock.
func backends(t *testing.T, clock clockwork.Clock) map[string]Cache {
	t.Helper()
	fc, err := NewFileCache(FileConfig{Dir: t.TempDir(), Clock: clock})
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	sc, err := NewSQLiteCache(t.TempDir()+"/cache.db", clock)
	if err != nil {
		t.Fatalf("NewSQLiteCache() error = %v", err)
	}
	t.Cleanup(func() { sc.Close() })
	return map[string]Cache{
		"in_memory": NewInMemoryCache(clock),
		"file":      fc,
		"sqlite":    sc,
	}
}

// TestCache_GetSet verifies that Set stores payloads and Get retrieves them
// unchanged on every backend.
func TestCache_GetSet(t *testing.T) {
	ctx := context.Background()
	for name, c := range backends(t, clockwork.NewFakeClock()) {
		t.Run(name, func(t *testing.T) {
			val := []byte(`{"@graph":[]}`)
			if err := c.Set(ctx, "alerts:47.6:-122.3", val, time.Minute); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			got, ok, err := c.Get(ctx, "alerts:47.6:-122.3")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !ok {
				t.Fatal("Get() ok = false, want true")
			}
			if string(got) != string(val) {
				t.Errorf("Get() = %q, want %q", got, val)
			}
		})
	}
}

// TestCache_Get_Miss verifies that Get returns ok=false for keys never written.
func TestCache_Get_Miss(t *testing.T) {
	ctx := context.Background()
	for name, c := range backends(t, clockwork.NewFakeClock()) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := c.Get(ctx, "nonexistent")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if ok {
				t.Error("Get() ok = true, want false for miss")
			}
		})
	}
}

// TestCache_Get_Expired verifies lazy expiry: an entry is live strictly before
// its expiry and absent from the expiry instant onward.
func TestCache_Get_Expired(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	caches := backends(t, clock)
	for name, c := range caches {
		if err := c.Set(ctx, "forecast:"+name, []byte("x"), 5*time.Minute); err != nil {
			t.Fatalf("%s Set() error = %v", name, err)
		}
	}

	clock.Advance(5*time.Minute - time.Second)
	for name, c := range caches {
		if _, ok, _ := c.Get(ctx, "forecast:"+name); !ok {
			t.Errorf("%s: Get() before expiry ok = false, want true", name)
		}
	}

	clock.Advance(time.Second)
	for name, c := range caches {
		_, ok, err := c.Get(ctx, "forecast:"+name)
		if err != nil {
			t.Fatalf("%s Get() error = %v", name, err)
		}
		if ok {
			t.Errorf("%s: Get() at expiry ok = true, want false", name)
		}
	}
}

// TestCache_Set_Overwrites verifies that Set replaces the value and restarts the TTL.
func TestCache_Set_Overwrites(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	for name, c := range backends(t, clock) {
		t.Run(name, func(t *testing.T) {
			key := "k:" + name
			_ = c.Set(ctx, key, []byte("old"), time.Minute)
			clock.Advance(50 * time.Second)
			_ = c.Set(ctx, key, []byte("new"), time.Minute)
			clock.Advance(30 * time.Second)

			got, ok, err := c.Get(ctx, key)
			if err != nil || !ok {
				t.Fatalf("Get() = (_, %v, %v), want live entry", ok, err)
			}
			if string(got) != "new" {
				t.Errorf("Get() = %q, want %q", got, "new")
			}
		})
	}
}

// TestInMemoryCache_ExpiredEntryRemoved verifies that expired entries are
// deleted from the map on access.
func TestInMemoryCache_ExpiredEntryRemoved(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	c := NewInMemoryCache(clock)
	_ = c.Set(ctx, "k", []byte("v"), time.Millisecond)
	clock.Advance(time.Millisecond)

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("Get() ok = true, want false for expired entry")
	}
	if _, present := c.data["k"]; present {
		t.Error("expired entry should be deleted from cache")
	}
}

func TestFingerprint(t *testing.T) {
	tests := []struct {
		name  string
		ns    string
		parts []any
		want  string
	}{
		{"forecast metric", "forecast", []any{47.6, -122.3, true}, "forecast:47.6:-122.3:true"},
		{"forecast imperial", "forecast", []any{47.6, -122.3, false}, "forecast:47.6:-122.3:false"},
		{"alerts", "alerts", []any{40.0, -105.25}, "alerts:40:-105.25"},
		{"string and int", "x", []any{"a", 3}, "x:a:3"},
		{"namespace only", "ns", nil, "ns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fingerprint(tt.ns, tt.parts...); got != tt.want {
				t.Errorf("Fingerprint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpirationSeconds(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want int32
	}{
		{5 * time.Minute, 300},
		{30 * time.Minute, 1800},
		{1500 * time.Millisecond, 2},
		{0, 1},
		{-time.Second, 1},
		{60 * 24 * time.Hour, 30 * 24 * 60 * 60},
	}
	for _, tt := range tests {
		if got := expirationSeconds(tt.ttl); got != tt.want {
			t.Errorf("expirationSeconds(%v) = %d, want %d", tt.ttl, got, tt.want)
		}
	}
}
