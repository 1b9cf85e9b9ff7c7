package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER NOT NULL
)`

// SQLiteCache implements Cache on a single sqlite table. Expiry is stored as
// unix nanoseconds and checked on read; rows are only ever replaced.
type SQLiteCache struct {
	db    *sql.DB
	clock clockwork.Clock
}

// NewSQLiteCache opens (or creates) the database at path and ensures the schema.
func NewSQLiteCache(path string, clock clockwork.Clock) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite cache: open: %w", err)
	}
	// sqlite allows one writer; a single connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite cache: schema: %w", err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SQLiteCache{db: db, clock: clock}, nil
}

// Get implements Cache.Get.
func (c *SQLiteCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		value     []byte
		expiresAt int64
	)
	err := c.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM cache_entries WHERE key = ?", key,
	).Scan(&value, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("sqlite cache: get: %w", err)
	}
	if expired(c.clock.Now(), time.Unix(0, expiresAt)) {
		return nil, false, nil
	}
	return value, true, nil
}

// Set implements Cache.Set.
func (c *SQLiteCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, c.clock.Now().Add(ttl).UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("sqlite cache: set: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (c *SQLiteCache) Ping() error {
	return c.db.Ping()
}

// Close closes the database. Call during shutdown.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
