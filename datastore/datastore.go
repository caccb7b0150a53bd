// Package datastore holds the interfaces implemented by the persistence
// layer.
//
// Implementations live in the sub-packages; consumers should depend on these
// interfaces only.
package datastore

import (
	"context"

	"github.com/cvelab/vulnenrich"
	"github.com/cvelab/vulnenrich/pkg/cpe"
)

// Vulnerability is the read side of the vulnerability repository.
type Vulnerability interface {
	// ByIdentifier returns the vulnerabilities affecting the product named
	// by the identifier, considering its version attribute.
	//
	// Implementations should prefer precomputed identifier links and fall
	// back to scanning raw advisory configurations.
	ByIdentifier(ctx context.Context, id *cpe.CPE) ([]vulnenrich.Vulnerability, error)
	// ByText returns vulnerabilities whose descriptions mention the product
	// name and version. It's a low-confidence last resort before external
	// lookup and should return a small, bounded set.
	ByText(ctx context.Context, name, version string) ([]vulnenrich.Vulnerability, error)
}
