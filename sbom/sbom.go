// Package sbom converts SPDX software bills of materials into enrichment
// inputs.
package sbom

import (
	"context"
	"fmt"
	"io"

	"github.com/quay/zlog"
	spdxjson "github.com/spdx/tools-golang/json"
	"github.com/spdx/tools-golang/spdx"
	"github.com/spdx/tools-golang/spdx/v2/v2_3"
	"github.com/spdx/tools-golang/tagvalue"

	"github.com/cvelab/vulnenrich"
)

// Format selects an SPDX serialization.
type Format string

const (
	FormatJSON     = Format("json")
	FormatTagValue = Format("tag-value")
)

const noAssertion = `NOASSERTION`

// Read parses an SPDX document in the given format and returns the software
// items described by its packages.
func Read(ctx context.Context, r io.Reader, f Format) ([]vulnenrich.SoftwareItem, error) {
	var (
		doc *spdx.Document
		err error
	)
	switch f {
	case FormatJSON:
		doc, err = spdxjson.Read(r)
	case FormatTagValue:
		doc, err = tagvalue.Read(r)
	default:
		return nil, fmt.Errorf("sbom: unrecognized format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("sbom: parse error: %w", err)
	}
	return Items(ctx, doc), nil
}

// Items returns the software items described by the document's packages.
//
// A package's purl reference is preferred over its name and version fields
// when present, because purls carry the namespace and architecture.
func Items(ctx context.Context, doc *spdx.Document) []vulnenrich.SoftwareItem {
	ctx = zlog.ContextWithValues(ctx, "component", "sbom/Items")
	var out []vulnenrich.SoftwareItem
	for _, p := range doc.Packages {
		if item, ok := fromPURL(ctx, p.PackageExternalReferences); ok {
			out = append(out, item)
			continue
		}
		if p.PackageName == "" {
			continue
		}
		item := vulnenrich.SoftwareItem{
			Name:    p.PackageName,
			Version: p.PackageVersion,
		}
		if s := p.PackageSupplier; s != nil && s.Supplier != noAssertion {
			item.Vendor = s.Supplier
		}
		out = append(out, item)
	}
	zlog.Debug(ctx).
		Int("packages", len(doc.Packages)).
		Int("items", len(out)).
		Msg("converted document")
	return out
}

func fromPURL(ctx context.Context, refs []*v2_3.PackageExternalReference) (vulnenrich.SoftwareItem, bool) {
	for _, ref := range refs {
		if ref.RefType != "purl" {
			continue
		}
		item, err := vulnenrich.ParsePURL(ref.Locator)
		if err != nil {
			zlog.Debug(ctx).
				Err(err).
				Str("locator", ref.Locator).
				Msg("skipping bad purl reference")
			continue
		}
		return item, true
	}
	return vulnenrich.SoftwareItem{}, false
}
