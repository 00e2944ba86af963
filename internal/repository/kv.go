package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"
)

// KVStore is the narrow durable key-value surface backing the L2 cache tier
// and the rate-limit counters. One SQLite database serves both; entries carry
// their own expiry and are dropped lazily on read.
type KVStore struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

func NewKVStore(db *sql.DB, logger zerolog.Logger) *KVStore {
	return &KVStore{db: db, logger: logger, now: time.Now}
}

// Get returns the value for key, treating expired entries as absent and
// deleting them opportunistically.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM kv_entries WHERE key = ?`, key,
	).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if s.now().UnixMilli() >= expiresAt {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
			s.logger.Debug().Err(err).Str("key", key).Msg("failed to drop expired kv entry")
		}
		return nil, false, nil
	}
	return value, true, nil
}

// SetWithTTL upserts the value with an absolute expiry derived from ttl.
func (s *KVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	expiresAt := s.now().Add(ttl).UnixMilli()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_entries (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	return err
}

// IncrWithTTL atomically increments the counter for key, opening a fresh
// window when none is active. Returns the count inside the current window and
// the instant the window resets.
func (s *KVStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, time.Time, error) {
	nowMs := s.now().UnixMilli()
	newEnd := s.now().Add(ttl).UnixMilli()

	var count, endsAt int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO kv_counters (key, count, window_ends_at) VALUES (?, 1, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   count = CASE WHEN kv_counters.window_ends_at <= ? THEN 1 ELSE kv_counters.count + 1 END,
		   window_ends_at = CASE WHEN kv_counters.window_ends_at <= ? THEN ? ELSE kv_counters.window_ends_at END
		 RETURNING count, window_ends_at`,
		key, newEnd, nowMs, nowMs, newEnd,
	).Scan(&count, &endsAt)
	if err != nil {
		return 0, time.Time{}, err
	}
	return count, time.UnixMilli(endsAt), nil
}
