package vulnenrich

import (
	"fmt"
	"strings"

	"github.com/package-url/packageurl-go"
)

// SoftwareItem is the input unit for enrichment: a "name + version + vendor"
// tuple as reported by some inventory source.
//
// Items are value types; they're constructed per request and discarded.
type SoftwareItem struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	Vendor       string `json:"vendor,omitempty"`
	Architecture string `json:"architecture,omitempty"`
}

// ParsePURL constructs a SoftwareItem from a package URL.
//
// The purl namespace is used as the vendor when present. Qualifiers beyond
// "arch" are discarded.
func ParsePURL(s string) (SoftwareItem, error) {
	purl, err := packageurl.FromString(s)
	if err != nil {
		return SoftwareItem{}, fmt.Errorf("vulnenrich: unable to parse purl: %w", err)
	}
	item := SoftwareItem{
		Name:    purl.Name,
		Version: purl.Version,
		Vendor:  purl.Namespace,
	}
	for _, q := range purl.Qualifiers {
		if q.Key == "arch" {
			item.Architecture = q.Value
		}
	}
	return item, nil
}

// String implements fmt.Stringer.
func (i SoftwareItem) String() string {
	var b strings.Builder
	if i.Vendor != "" {
		b.WriteString(i.Vendor)
		b.WriteByte('/')
	}
	b.WriteString(i.Name)
	if i.Version != "" {
		b.WriteByte('@')
		b.WriteString(i.Version)
	}
	return b.String()
}
