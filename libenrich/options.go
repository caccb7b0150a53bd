package libenrich

import (
	"context"
	"time"

	"github.com/cvelab/vulnenrich"
	"github.com/cvelab/vulnenrich/cache"
	"github.com/cvelab/vulnenrich/datastore"
	"github.com/cvelab/vulnenrich/matcher"
)

const (
	// DefaultMaxConcurrent bounds how many items of a batch are in flight
	// at once.
	DefaultMaxConcurrent = 10
	// DefaultFeedConcurrent is the tighter bound on concurrent external
	// feed lookups.
	DefaultFeedConcurrent = 3
	// DefaultCacheTTL is how long enrichment results live in the
	// distributed cache tier.
	DefaultCacheTTL = time.Hour
)

// Feed is an external vulnerability lookup of last resort.
type Feed interface {
	Search(ctx context.Context, item vulnenrich.SoftwareItem) ([]vulnenrich.Vulnerability, error)
}

// Options configures a Libenrich instance.
type Options struct {
	// Store is the local vulnerability repository. Required.
	Store datastore.Vulnerability
	// Matcher resolves software descriptions to platform identifiers.
	// Required.
	Matcher *matcher.Hybrid
	// Cache is the two-tier result cache. Optional; nil disables caching.
	Cache *cache.Cache
	// Feed is the external lookup used when the local repository has
	// nothing. Optional; nil disables external lookups.
	Feed Feed
	// MaxConcurrent bounds in-flight items per batch. Defaulted if
	// non-positive.
	MaxConcurrent int64
	// FeedConcurrent bounds in-flight external lookups across the whole
	// instance. Defaulted if non-positive.
	FeedConcurrent int64
	// CacheTTL is the distributed-tier TTL for results. Defaulted if
	// non-positive.
	CacheTTL time.Duration
}

func (o *Options) parse(_ context.Context) error {
	const op = `libenrich/Options.parse`
	if o.Store == nil {
		return &vulnenrich.Error{Op: op, Kind: vulnenrich.ErrInvalid, Message: "Store is required"}
	}
	if o.Matcher == nil {
		return &vulnenrich.Error{Op: op, Kind: vulnenrich.ErrInvalid, Message: "Matcher is required"}
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = DefaultMaxConcurrent
	}
	if o.FeedConcurrent <= 0 {
		o.FeedConcurrent = DefaultFeedConcurrent
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	return nil
}
