package vulnenrich

import (
	"time"
)

// Vulnerability is a single known-vulnerability record, keyed by its CVE
// identifier.
type Vulnerability struct {
	// ID is the CVE identifier, e.g. "CVE-2021-23017".
	ID string `json:"id"`
	// Description is the human-readable summary from the data source.
	Description string `json:"description"`
	// Severity is the normalized severity.
	Severity Severity `json:"severity"`
	// CVSSScore is the CVSS base score, if known.
	CVSSScore float64 `json:"cvss_score"`
	// Published and Modified are timestamps reported by the data source.
	Published time.Time `json:"published,omitzero"`
	Modified  time.Time `json:"modified,omitzero"`
	// References holds advisory and patch URLs.
	References []string `json:"references,omitempty"`
}

// Deduplicate returns the provided records with duplicate CVE identifiers
// removed, preserving first-seen order.
func Deduplicate(vs []Vulnerability) []Vulnerability {
	seen := make(map[string]struct{}, len(vs))
	out := vs[:0:0]
	for _, v := range vs {
		if _, ok := seen[v.ID]; ok {
			continue
		}
		seen[v.ID] = struct{}{}
		out = append(out, v)
	}
	return out
}
