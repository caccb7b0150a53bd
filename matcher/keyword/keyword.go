// Package keyword implements the exact-match identifier index.
//
// The index itself lives in an external data source exposing per-keyword
// identifier sets and a global popularity ranking; this package implements
// the query side: tokenization, set intersection and rank-ordered confidence.
package keyword

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/quay/zlog"

	"github.com/cvelab/vulnenrich"
	"github.com/cvelab/vulnenrich/pkg/cpe"
)

// Source is the identifier/keyword data source. It's read-only at query
// time; population and maintenance happen elsewhere.
type Source interface {
	// Identifiers returns the set of identifier strings containing the
	// lowercase keyword.
	Identifiers(ctx context.Context, keyword string) ([]string, error)
	// Popularity returns a popularity score per identifier; higher is more
	// popular. Unknown identifiers may be omitted.
	Popularity(ctx context.Context, identifiers []string) (map[string]int, error)
}

// Confidence ladder for rank positions: 0.95, 0.90, 0.85, ...
const (
	topConfidence  = 0.95
	confidenceStep = 0.05
)

// Index resolves token sets to ranked identifier candidates.
type Index struct {
	src Source
}

// NewIndex returns an Index backed by the provided Source.
func NewIndex(src Source) *Index {
	return &Index{src: src}
}

// Tokens derives lookup tokens from vendor and product names: lowercase
// words longer than two characters, deduplicated preserving order.
func Tokens(vendor, product string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range []string{vendor, product} {
		for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
			return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
		}) {
			if len(w) <= 2 {
				continue
			}
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}

// Lookup resolves a token set to ranked identifier candidates.
//
// A single token returns that token's set; multiple tokens return the exact
// set intersection across all per-token sets. An empty intersection means no
// candidates: there is deliberately no partial-intersection fallback.
func (x *Index) Lookup(ctx context.Context, tokens []string) ([]vulnenrich.MatchCandidate, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "matcher/keyword/Index.Lookup")
	if len(tokens) == 0 {
		return nil, nil
	}
	ids, err := x.src.Identifiers(ctx, tokens[0])
	if err != nil {
		return nil, fmt.Errorf("keyword lookup: %w", err)
	}
	for _, tok := range tokens[1:] {
		if len(ids) == 0 {
			break
		}
		next, err := x.src.Identifiers(ctx, tok)
		if err != nil {
			return nil, fmt.Errorf("keyword lookup: %w", err)
		}
		ids = intersect(ids, next)
	}
	if len(ids) == 0 {
		zlog.Debug(ctx).
			Strs("tokens", tokens).
			Msg("empty intersection")
		return nil, nil
	}
	pop, err := x.src.Popularity(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("keyword rank: %w", err)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return pop[ids[i]] > pop[ids[j]]
	})

	out := make([]vulnenrich.MatchCandidate, 0, len(ids))
	for i, id := range ids {
		c, err := cpe.Parse(id)
		if err != nil || c == nil {
			continue
		}
		score := topConfidence - confidenceStep*float64(i)
		if score < confidenceStep {
			score = confidenceStep
		}
		out = append(out, vulnenrich.MatchCandidate{
			Identifier:         c,
			Method:             vulnenrich.MethodExact,
			RawScore:           score,
			CombinedConfidence: score,
			Label:              vulnenrich.LabelForScore(score),
		})
	}
	zlog.Debug(ctx).
		Strs("tokens", tokens).
		Int("candidates", len(out)).
		Msg("exact match")
	return out, nil
}

// Intersect returns the members of a that are also in b, preserving a's
// order.
func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	out := a[:0:0]
	for _, s := range a {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
