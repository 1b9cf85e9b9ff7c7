package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
)

// FileConfig configures FileCache. Dir is created on construction if missing.
type FileConfig struct {
	Dir   string
	Clock clockwork.Clock
}

// FileCache implements Cache with one JSON file per key under a directory.
// File names are the SHA-256 of the key, so any key is a safe file name.
type FileCache struct {
	dir   string
	clock clockwork.Clock
}

type fileEntry struct {
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
	Value     []byte    `json:"value"`
}

// NewFileCache creates a FileCache rooted at cfg.Dir.
func NewFileCache(cfg FileConfig) (*FileCache, error) {
	if cfg.Dir == "" {
		return nil, errors.New("file cache: directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("file cache: create dir: %w", err)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &FileCache{dir: cfg.Dir, clock: clock}, nil
}

func (c *FileCache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}

// Get implements Cache.Get. A missing file is a miss; an unreadable one is an error.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}
	raw, err := os.ReadFile(c.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("file cache: read: %w", err)
	}
	var entry fileEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("file cache: decode: %w", err)
	}
	if entry.Key != key || expired(c.clock.Now(), entry.ExpiresAt) {
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Set implements Cache.Set. The entry is written to a temp file and renamed
// into place so readers never observe a partial write.
func (c *FileCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	raw, err := json.Marshal(fileEntry{
		Key:       key,
		ExpiresAt: c.clock.Now().Add(ttl),
		Value:     value,
	})
	if err != nil {
		return fmt.Errorf("file cache: encode: %w", err)
	}
	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("file cache: temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("file cache: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("file cache: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("file cache: rename: %w", err)
	}
	return nil
}

// Ping checks the cache directory is still present.
func (c *FileCache) Ping() error {
	_, err := os.Stat(c.dir)
	return err
}
