// Package libenrich exposes the batch enrichment pipeline behind a small
// facade.
package libenrich

import (
	"context"
	"time"

	"github.com/quay/zlog"
	"golang.org/x/sync/semaphore"

	"github.com/cvelab/vulnenrich/cache"
	"github.com/cvelab/vulnenrich/datastore"
	"github.com/cvelab/vulnenrich/matcher"
)

// Libenrich exports methods for enriching batches of software items with
// vulnerability data.
type Libenrich struct {
	store   datastore.Vulnerability
	cache   *cache.Cache
	matcher *matcher.Hybrid
	feed    Feed
	sem     *semaphore.Weighted
	feedSem *semaphore.Weighted
	ttl     time.Duration
}

// New creates a new instance of the Libenrich library.
func New(ctx context.Context, opts *Options) (*Libenrich, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "libenrich/New")
	if err := opts.parse(ctx); err != nil {
		return nil, err
	}
	l := &Libenrich{
		store:   opts.Store,
		cache:   opts.Cache,
		matcher: opts.Matcher,
		feed:    opts.Feed,
		sem:     semaphore.NewWeighted(opts.MaxConcurrent),
		feedSem: semaphore.NewWeighted(opts.FeedConcurrent),
		ttl:     opts.CacheTTL,
	}
	zlog.Info(ctx).
		Int64("max_concurrent", opts.MaxConcurrent).
		Bool("cache", l.cache != nil).
		Bool("feed", l.feed != nil).
		Msg("libenrich initialized")
	return l, nil
}

// Close releases resources held by the instance.
//
// The instance doesn't own its collaborators, so this currently only exists
// for lifecycle symmetry.
func (l *Libenrich) Close(ctx context.Context) error {
	zlog.Debug(ctx).
		Str("component", "libenrich/Libenrich.Close").
		Msg("closed")
	return nil
}
