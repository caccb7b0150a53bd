// Package semantic implements the embedding-similarity identifier index.
//
// Both the embedding capability and the vector search are injected; if
// either is absent or failing, semantic matching degrades to "no candidates"
// rather than erroring, because it's always a fallback source.
package semantic

import (
	"context"
	"math"

	"github.com/quay/zlog"

	"github.com/cvelab/vulnenrich"
	"github.com/cvelab/vulnenrich/pkg/cpe"
)

// Embedder turns text into a fixed-length vector.
//
// It must be deterministic for a given model version.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Hit is one nearest-neighbor result.
type Hit struct {
	Identifier string
	Similarity float64
}

// Searcher performs nearest-neighbor search over stored identifier
// embeddings by cosine similarity.
type Searcher interface {
	Search(ctx context.Context, vec []float32, k int) ([]Hit, error)
}

// Matcher resolves free-text queries to ranked identifier candidates.
type Matcher struct {
	embed  Embedder
	search Searcher
}

// New returns a Matcher using the provided capabilities. Either may be nil,
// disabling semantic matching.
func New(e Embedder, s Searcher) *Matcher {
	return &Matcher{embed: e, search: s}
}

// Enabled reports whether semantic matching can run at all.
func (m *Matcher) Enabled() bool {
	return m != nil && m.embed != nil && m.search != nil
}

// Search embeds the query and returns up to k candidates by cosine
// similarity. Failures degrade to an empty result.
func (m *Matcher) Search(ctx context.Context, query string, k int) []vulnenrich.MatchCandidate {
	ctx = zlog.ContextWithValues(ctx, "component", "matcher/semantic/Matcher.Search")
	if !m.Enabled() {
		return nil
	}
	vec, err := m.embed.Embed(ctx, query)
	if err != nil || len(vec) == 0 {
		zlog.Debug(ctx).
			Err(err).
			Msg("embedding unavailable, skipping semantic match")
		return nil
	}
	hits, err := m.search.Search(ctx, vec, k)
	if err != nil {
		zlog.Debug(ctx).
			Err(err).
			Msg("vector search failed, skipping semantic match")
		return nil
	}
	out := make([]vulnenrich.MatchCandidate, 0, len(hits))
	for _, h := range hits {
		c, err := cpe.Parse(h.Identifier)
		if err != nil || c == nil {
			continue
		}
		out = append(out, vulnenrich.MatchCandidate{
			Identifier: c,
			Method:     vulnenrich.MethodSemantic,
			RawScore:   h.Similarity,
		})
	}
	zlog.Debug(ctx).
		Str("query", query).
		Int("candidates", len(out)).
		Msg("semantic match")
	return out
}

// Cosine returns the cosine similarity of two vectors, or 0 for mismatched
// or zero-magnitude input.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
