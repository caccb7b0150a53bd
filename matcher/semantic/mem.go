package semantic

import (
	"context"
	"sort"
	"sync"
)

// MemSearcher is a brute-force in-memory Searcher.
//
// It's suitable for tests and for small curated indices; production
// deployments use the database-backed searcher.
type MemSearcher struct {
	mu  sync.RWMutex
	ids []string
	vec [][]float32
}

var _ Searcher = (*MemSearcher)(nil)

// Add stores an identifier embedding.
func (m *MemSearcher) Add(identifier string, vec []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append(m.ids, identifier)
	m.vec = append(m.vec, vec)
}

// Search implements Searcher.
func (m *MemSearcher) Search(_ context.Context, vec []float32, k int) ([]Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hits := make([]Hit, 0, len(m.ids))
	for i, id := range m.ids {
		hits = append(hits, Hit{Identifier: id, Similarity: Cosine(vec, m.vec[i])})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}
