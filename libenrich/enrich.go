package libenrich

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/quay/zlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cvelab/vulnenrich"
	"github.com/cvelab/vulnenrich/pkg/cpe"
)

var tracer = otel.Tracer("github.com/cvelab/vulnenrich/libenrich")

// EnrichBatch enriches every item of the batch concurrently.
//
// The returned slice is index-aligned with the input: result i describes
// item i. Per-item failures are recorded on the result and never fail the
// batch; the only batch-level error is context cancellation.
func (l *Libenrich) EnrichBatch(ctx context.Context, items []vulnenrich.SoftwareItem) ([]vulnenrich.EnrichmentResult, error) {
	ctx = zlog.ContextWithValues(ctx,
		"component", "libenrich/Libenrich.EnrichBatch",
		"batch", uuid.New().String())
	ctx, span := tracer.Start(ctx, "EnrichBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("items", len(items)))

	out := make([]vulnenrich.EnrichmentResult, len(items))
	if len(items) == 0 {
		return out, nil
	}
	var (
		wg     sync.WaitGroup
		acqErr error
	)
	for i := range items {
		if err := l.sem.Acquire(ctx, 1); err != nil {
			acqErr = err
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer l.sem.Release(1)
			out[i] = l.enrichOne(ctx, items[i])
		}(i)
	}
	wg.Wait()
	if acqErr != nil {
		return nil, acqErr
	}
	return out, nil
}

// CachedResult is the serialized form of a result in the cache.
type cachedResult struct {
	Identifier      *cpe.CPE                   `json:"identifier,omitempty"`
	Label           vulnenrich.ConfidenceLabel `json:"confidence_label,omitempty"`
	Vulnerabilities []vulnenrich.Vulnerability `json:"vulnerabilities"`
}

func cacheKey(item vulnenrich.SoftwareItem) string {
	return strings.Join([]string{"enrich", item.Name, item.Version, item.Vendor}, ":")
}

func (l *Libenrich) enrichOne(ctx context.Context, item vulnenrich.SoftwareItem) (res vulnenrich.EnrichmentResult) {
	ctx = zlog.ContextWithValues(ctx, "item", item.String())
	defer func() {
		if r := recover(); r != nil {
			zlog.Error(ctx).
				Str("panic", fmt.Sprint(r)).
				Msg("panic during enrichment")
			res = vulnenrich.EnrichmentResult{
				Item:   item,
				Source: vulnenrich.SourceNone,
				Err:    fmt.Errorf("enrichment panic: %v", r),
			}
		}
	}()
	res.Item = item
	res.Source = vulnenrich.SourceNone

	key := cacheKey(item)
	if l.cache != nil {
		var doc cachedResult
		if l.cache.Get(ctx, key, &doc) {
			res.Identifier = doc.Identifier
			res.Label = doc.Label
			res.Vulnerabilities = doc.Vulnerabilities
			res.Source = vulnenrich.SourceCache
			return res
		}
	}

	var lastErr error
	id, label, err := l.matcher.BestIdentifier(ctx, item.Vendor, item.Name, item.Version)
	if err != nil {
		zlog.Warn(ctx).
			Err(err).
			Msg("identifier resolution failed")
		lastErr = err
	}
	res.Identifier = id
	res.Label = label

	if id != nil {
		vulns, err := l.store.ByIdentifier(ctx, id)
		switch {
		case err != nil:
			zlog.Warn(ctx).
				Err(err).
				Msg("identifier lookup failed")
			lastErr = err
		case len(vulns) != 0:
			res.Vulnerabilities = vulns
			res.Source = vulnenrich.SourceStore
		}
	}
	if res.Source == vulnenrich.SourceNone {
		vulns, err := l.store.ByText(ctx, item.Name, item.Version)
		switch {
		case err != nil:
			zlog.Warn(ctx).
				Err(err).
				Msg("text lookup failed")
			lastErr = err
		case len(vulns) != 0:
			res.Vulnerabilities = vulns
			res.Source = vulnenrich.SourceStore
		}
	}
	if res.Source == vulnenrich.SourceNone && l.feed != nil {
		if err := l.feedSem.Acquire(ctx, 1); err != nil {
			res.Err = err
			return res
		}
		vulns, err := func() ([]vulnenrich.Vulnerability, error) {
			defer l.feedSem.Release(1)
			return l.feed.Search(ctx, item)
		}()
		switch {
		case err != nil:
			zlog.Warn(ctx).
				Err(err).
				Msg("external lookup failed")
			lastErr = err
		case len(vulns) != 0:
			res.Vulnerabilities = vulns
			res.Source = vulnenrich.SourceExternal
		}
	}

	if res.Source == vulnenrich.SourceNone && lastErr != nil {
		// Nothing found, and at least one stage broke: the empty result
		// can't be trusted or cached.
		res.Err = lastErr
		return res
	}
	if l.cache != nil {
		// An empty list is a confirmed negative and worth caching too.
		l.cache.Set(ctx, key, cachedResult{
			Identifier:      res.Identifier,
			Label:           res.Label,
			Vulnerabilities: res.Vulnerabilities,
		}, l.ttl)
	}
	return res
}
