package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cvelab/vulnenrich/matcher/semantic"
)

// VectorStore implements [semantic.Searcher] over the identifier_embedding
// table using the pgvector extension.
type VectorStore struct {
	pool *pgxpool.Pool
}

var _ semantic.Searcher = (*VectorStore)(nil)

// NewVectorStore returns a VectorStore using the provided pool.
func NewVectorStore(pool *pgxpool.Pool) *VectorStore {
	return &VectorStore{pool: pool}
}

// Search implements semantic.Searcher.
//
// The <=> operator is cosine distance, so similarity is 1 - distance.
func (s *VectorStore) Search(ctx context.Context, vec []float32, k int) ([]semantic.Hit, error) {
	const label = `vectorsearch`
	const query = `
SELECT identifier, 1 - (embedding <=> $1::vector) AS similarity
FROM identifier_embedding
ORDER BY embedding <=> $1::vector
LIMIT $2;`
	if len(vec) == 0 {
		return nil, nil
	}
	start := time.Now()
	rows, err := s.pool.Query(ctx, query, vectorLiteral(vec), k)
	vulnQueryCounter.WithLabelValues(label).Inc()
	vulnQueryDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	defer rows.Close()
	var out []semantic.Hit
	for rows.Next() {
		var h semantic.Hit
		if err := rows.Scan(&h.Identifier, &h.Similarity); err != nil {
			return nil, fmt.Errorf("vector scan: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	return out, nil
}

// VectorLiteral renders a vector in pgvector's input format, e.g.
// "[0.1,0.2]".
func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range vec {
		if i != 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
