package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cvelab/vulnenrich/cache"
)

// CacheStore implements [cache.Store] over the enrichment_cache table,
// serving as the distributed cache tier.
type CacheStore struct {
	pool *pgxpool.Pool
}

var _ cache.Store = (*CacheStore)(nil)

// NewCacheStore returns a CacheStore using the provided pool.
func NewCacheStore(pool *pgxpool.Pool) *CacheStore {
	return &CacheStore{pool: pool}
}

// Get implements cache.Store.
func (s *CacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT value FROM enrichment_cache WHERE key = $1 AND expires_at > now();`
	var value []byte
	err := s.pool.QueryRow(ctx, query, key).Scan(&value)
	switch {
	case errors.Is(err, nil):
	case errors.Is(err, pgx.ErrNoRows):
		return nil, cache.ErrMiss
	default:
		return nil, fmt.Errorf("cache get: %w", err)
	}
	return value, nil
}

// Set implements cache.Store.
func (s *CacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	const query = `
INSERT INTO enrichment_cache (key, value, expires_at)
VALUES ($1, $2, now() + $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at;`
	if _, err := s.pool.Exec(ctx, query, key, value, ttl); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Delete implements cache.Store.
func (s *CacheStore) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM enrichment_cache WHERE key = $1;`
	if _, err := s.pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Expire removes rows past their TTL. It's meant to be run periodically out
// of band.
func (s *CacheStore) Expire(ctx context.Context) (int64, error) {
	const query = `DELETE FROM enrichment_cache WHERE expires_at <= now();`
	tag, err := s.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("cache expire: %w", err)
	}
	return tag.RowsAffected(), nil
}
