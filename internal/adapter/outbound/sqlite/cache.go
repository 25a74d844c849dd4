// Package sqlite provides a disk-backed response cache.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	_ "modernc.org/sqlite"

	"github.com/neuland-ingolstadt/campus-client/internal/domain/campus"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key        TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	checksum   TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Cache implements campus.CacheStore on a local sqlite database, surviving
// process restarts. Each payload carries an xxhash checksum; a mismatch on
// read (torn write, external tampering) is treated as a miss and the row is
// dropped.
type Cache struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens (or creates) the cache database at path.
func New(path string, logger *slog.Logger) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	// The cache is written from a single process; one connection avoids
	// SQLITE_BUSY on concurrent writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}

	return &Cache{db: db, logger: logger}, nil
}

// Get returns the cached payload for key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	var checksum string
	err := c.db.QueryRowContext(ctx,
		`SELECT payload, checksum FROM cache_entries WHERE key = ?`, key,
	).Scan(&payload, &checksum)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	if fingerprint(payload) != checksum {
		c.logger.Warn("cache entry checksum mismatch, dropping", "key", key)
		_ = c.Delete(ctx, key)
		return nil, false, nil
	}
	return payload, true, nil
}

// Set stores payload under key, replacing any previous entry.
func (c *Cache) Set(ctx context.Context, key string, payload []byte) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, payload, checksum) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			checksum = excluded.checksum,
			created_at = CURRENT_TIMESTAMP`,
		key, payload, fingerprint(payload),
	)
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Delete removes the entry for key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Purge removes all entries.
func (c *Cache) Purge(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("cache purge: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// fingerprint computes the stored checksum of a payload.
func fingerprint(payload []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(payload))
}

// Compile-time interface verification.
var _ campus.CacheStore = (*Cache)(nil)
