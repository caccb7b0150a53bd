// Package matcher orchestrates identifier resolution across the exact and
// semantic indices.
//
// The exact index is authoritative when it has an answer: it represents
// curated, high-precision data. The semantic index is only consulted when
// the exact index comes up empty.
package matcher

import (
	"context"
	"sort"
	"strings"

	"github.com/quay/zlog"

	"github.com/cvelab/vulnenrich"
	"github.com/cvelab/vulnenrich/matcher/keyword"
	"github.com/cvelab/vulnenrich/matcher/semantic"
	"github.com/cvelab/vulnenrich/pkg/cpe"
	versionpkg "github.com/cvelab/vulnenrich/pkg/version"
)

func defaultVersionMatch(software, candidate string) (bool, float64) {
	return versionpkg.MatchCPEVersion(software, candidate)
}

// Tuning constants. Variables so deployments can adjust them; the defaults
// are carried over from production tuning, not derived.
var (
	// SimilarityFloor is the minimum semantic similarity considered at all.
	SimilarityFloor = 0.1
	// RawWeight and VersionWeight blend similarity and version confidence
	// into the combined confidence.
	RawWeight     = 0.6
	VersionWeight = 0.4
)

const (
	// Prefilter is how many semantic hits are pulled for version filtering.
	prefilter = 20
	// MaxCandidates is the length the ranked candidate list is truncated to.
	maxCandidates = 10
)

// VersionMatcher reports whether a software version is compatible with a
// candidate identifier's version attribute, with a confidence.
type VersionMatcher func(software, candidate string) (bool, float64)

// Hybrid is the two-level identifier matcher.
type Hybrid struct {
	exact    *keyword.Index
	semantic *semantic.Matcher
	version  VersionMatcher
}

// New returns a Hybrid over the provided indices.
//
// The semantic matcher may be nil or disabled; version may be nil to use the
// default version comparison.
func New(exact *keyword.Index, sem *semantic.Matcher, version VersionMatcher) *Hybrid {
	return &Hybrid{exact: exact, semantic: sem, version: version}
}

// Match resolves a software description to a ranked, truncated candidate
// list. An empty return means neither index had an answer.
func (h *Hybrid) Match(ctx context.Context, vendor, product, version string) ([]vulnenrich.MatchCandidate, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "matcher/Hybrid.Match")

	if h.exact != nil {
		tokens := keyword.Tokens(vendor, product)
		cands, err := h.exact.Lookup(ctx, tokens)
		if err != nil {
			// A broken keyword source shouldn't take semantic matching
			// down with it.
			zlog.Info(ctx).
				Err(err).
				Msg("exact index unavailable")
		}
		if len(cands) > 0 {
			return cands, nil
		}
	}

	if !h.semantic.Enabled() {
		return nil, nil
	}
	query := strings.TrimSpace(strings.Join([]string{vendor, product, version}, " "))
	cands := h.semantic.Search(ctx, query, prefilter)
	out := cands[:0]
	for _, c := range cands {
		if c.RawScore <= SimilarityFloor {
			continue
		}
		c.VersionMatches, c.VersionConfidence = h.matchVersion(version, c.Identifier.Version)
		c.CombinedConfidence = c.RawScore*RawWeight + c.VersionConfidence*VersionWeight
		c.Label = vulnenrich.LabelForScore(c.CombinedConfidence)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CombinedConfidence > out[j].CombinedConfidence
	})
	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	return out, nil
}

func (h *Hybrid) matchVersion(software, candidate string) (bool, float64) {
	if h.version != nil {
		return h.version(software, candidate)
	}
	return defaultVersionMatch(software, candidate)
}

// BestIdentifier returns the single best identifier for a software
// description, or nil when no candidate is trustworthy enough.
//
// Preference order: the first candidate that is HIGH or MEDIUM confidence
// with a version match above 0.5; failing that, the top-ranked candidate if
// it's HIGH or MEDIUM; failing that, nothing.
func (h *Hybrid) BestIdentifier(ctx context.Context, vendor, product, version string) (*cpe.CPE, vulnenrich.ConfidenceLabel, error) {
	cands, err := h.Match(ctx, vendor, product, version)
	if err != nil {
		return nil, "", err
	}
	if len(cands) == 0 {
		return nil, "", nil
	}
	for _, c := range cands {
		if (c.Label == vulnenrich.ConfidenceHigh || c.Label == vulnenrich.ConfidenceMedium) &&
			c.VersionMatches && c.VersionConfidence > 0.5 {
			return c.Identifier, c.Label, nil
		}
	}
	if top := cands[0]; top.Label == vulnenrich.ConfidenceHigh || top.Label == vulnenrich.ConfidenceMedium {
		return top.Identifier, top.Label, nil
	}
	return nil, "", nil
}
