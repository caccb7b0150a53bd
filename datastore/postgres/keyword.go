package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cvelab/vulnenrich/matcher/keyword"
)

// KeywordStore implements [keyword.Source] over the keyword_identifier and
// identifier_popularity tables.
type KeywordStore struct {
	pool *pgxpool.Pool
}

var _ keyword.Source = (*KeywordStore)(nil)

// NewKeywordStore returns a KeywordStore using the provided pool.
func NewKeywordStore(pool *pgxpool.Pool) *KeywordStore {
	return &KeywordStore{pool: pool}
}

// Identifiers implements keyword.Source.
func (s *KeywordStore) Identifiers(ctx context.Context, kw string) ([]string, error) {
	const label = `identifiers`
	const query = `SELECT identifier FROM keyword_identifier WHERE keyword = $1;`
	start := time.Now()
	rows, err := s.pool.Query(ctx, query, kw)
	vulnQueryCounter.WithLabelValues(label).Inc()
	vulnQueryDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("keyword query: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("keyword scan: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("keyword query: %w", err)
	}
	return out, nil
}

// Popularity implements keyword.Source.
func (s *KeywordStore) Popularity(ctx context.Context, ids []string) (map[string]int, error) {
	const label = `popularity`
	const query = `SELECT identifier, rank FROM identifier_popularity WHERE identifier = ANY($1);`
	if len(ids) == 0 {
		return nil, nil
	}
	start := time.Now()
	rows, err := s.pool.Query(ctx, query, ids)
	vulnQueryCounter.WithLabelValues(label).Inc()
	vulnQueryDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("popularity query: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int, len(ids))
	for rows.Next() {
		var (
			id   string
			rank int
		)
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, fmt.Errorf("popularity scan: %w", err)
		}
		out[id] = rank
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("popularity query: %w", err)
	}
	return out, nil
}
