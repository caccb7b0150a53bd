package vulnenrich

import (
	"github.com/cvelab/vulnenrich/pkg/cpe"
)

// MatchMethod reports which index produced a candidate.
type MatchMethod string

const (
	MethodExact    = MatchMethod("exact")
	MethodSemantic = MatchMethod("semantic")
)

// ConfidenceLabel is a coarse bucketing of a candidate's combined confidence.
type ConfidenceLabel string

const (
	ConfidenceHigh    = ConfidenceLabel("HIGH")
	ConfidenceMedium  = ConfidenceLabel("MEDIUM")
	ConfidenceLow     = ConfidenceLabel("LOW")
	ConfidenceVeryLow = ConfidenceLabel("VERY_LOW")
)

// Label thresholds. These are tuning constants, not semantics; they're
// variables so deployments can adjust them.
var (
	HighCutoff   = 0.8
	MediumCutoff = 0.6
	LowCutoff    = 0.4
)

// LabelForScore buckets a combined confidence score.
func LabelForScore(score float64) ConfidenceLabel {
	switch {
	case score > HighCutoff:
		return ConfidenceHigh
	case score > MediumCutoff:
		return ConfidenceMedium
	case score > LowCutoff:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// MatchCandidate is one ranked identifier candidate produced by the matching
// engine for a query.
type MatchCandidate struct {
	// Identifier is the candidate platform identifier.
	Identifier *cpe.CPE `json:"identifier"`
	// Method reports the index that produced the candidate.
	Method MatchMethod `json:"method"`
	// RawScore is the index's own similarity score, in [0,1].
	RawScore float64 `json:"raw_score"`
	// VersionMatches reports whether the queried version is compatible with
	// the candidate's version attribute.
	VersionMatches bool `json:"version_matches"`
	// VersionConfidence is the confidence of the version comparison, in [0,1].
	VersionConfidence float64 `json:"version_confidence"`
	// CombinedConfidence blends RawScore and VersionConfidence.
	CombinedConfidence float64 `json:"combined_confidence"`
	// Label buckets CombinedConfidence.
	Label ConfidenceLabel `json:"confidence_label"`
}
