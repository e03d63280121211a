// Package cache persists small continuity tokens (session cookies, cursor
// ids) across requests and process restarts. Backends treat it as
// advisory: a miss or a broken cache costs one re-acquisition round trip,
// never a failed search.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"omnisearch/internal/domain"
)

// Store implements domain.TokenStore backed by SQLite. One process-wide
// instance is shared by every token-using backend.
type Store struct {
	db     *sql.DB
	clock  domain.Clock
	logger *slog.Logger
}

// New opens (or creates) the token database at dbPath, runs migrations,
// and returns a ready Store. A nil clock uses wall time.
func New(dbPath string, clock domain.Clock, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", domain.ErrCacheStore, err)
	}

	// SQLite write safety: single writer.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: pragma: %v", domain.ErrCacheStore, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", domain.ErrCacheStore, err)
	}

	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Store{db: db, clock: clock, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the stored token for key. An expired entry is a miss; the
// row is removed on the way out so sweeps stay cheap.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM tokens WHERE key = ?`, key,
	).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %q: %v", domain.ErrCacheStore, key, err)
	}

	if expiresAt > 0 && expiresAt <= s.clock.Now().Unix() {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE key = ?`, key); err != nil {
			s.logger.Warn("expired token cleanup failed", "key", key, "error", err)
		}
		return nil, false, nil
	}
	return value, true, nil
}

// Set stores a token under key, replacing any previous value. Writers race
// last-write-wins; tokens are re-acquirable so a lost write is harmless.
// A ttl of zero stores the token without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.clock.Now().Add(ttl).Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tokens (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("%w: set %q: %v", domain.ErrCacheStore, key, err)
	}
	return nil
}

// Delete removes a token. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE key = ?`, key); err != nil {
		return fmt.Errorf("%w: delete %q: %v", domain.ErrCacheStore, key, err)
	}
	return nil
}

// Sweep removes every expired entry. Wired to the cron scheduler; also
// safe to call ad hoc.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tokens WHERE expires_at > 0 AND expires_at <= ?`,
		s.clock.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: sweep: %v", domain.ErrCacheStore, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	if n > 0 {
		s.logger.Debug("swept expired tokens", "removed", n)
	}
	return n, nil
}
