package vulnenrich

import (
	"github.com/cvelab/vulnenrich/pkg/cpe"
)

// Source reports which stage of the enrichment pipeline produced a result's
// vulnerability list.
type Source string

const (
	// SourceCache means the result was served from the cache.
	SourceCache = Source("cache")
	// SourceStore means a local repository path (identifier join or
	// full-text) produced the result.
	SourceStore = Source("store")
	// SourceExternal means the external feed produced the result.
	SourceExternal = Source("external")
	// SourceNone means every stage came up empty, or the item's pipeline
	// failed; see Err.
	SourceNone = Source("none")
)

// EnrichmentResult is the per-item output of a batch enrichment.
//
// A batch always yields exactly one result per input item, index-aligned with
// the input.
type EnrichmentResult struct {
	// Item is the input this result describes.
	Item SoftwareItem `json:"item"`
	// Identifier is the resolved platform identifier, if any.
	Identifier *cpe.CPE `json:"identifier,omitempty"`
	// Label is the confidence label of the identifier resolution, if one
	// happened.
	Label ConfidenceLabel `json:"confidence_label,omitempty"`
	// Vulnerabilities holds the records found for the item. An empty list
	// with a nil Err is a confirmed "no known vulnerabilities".
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
	// Source reports the stage that produced Vulnerabilities.
	Source Source `json:"source"`
	// Err records a per-item pipeline failure. Sibling items are unaffected.
	Err error `json:"-"`
}
