// Package cache implements the two-tier result cache.
//
// The local tier is an in-process bounded map; the optional remote tier is
// anything implementing Store, shared between processes. The remote tier is
// strictly best-effort: every failure there is treated as a miss and never
// surfaces to callers.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/quay/zlog"
)

// ErrMiss is returned by Store implementations for absent keys.
var ErrMiss = errors.New("cache: miss")

// Store is the remote cache tier. Values are opaque; this package writes
// gzipped JSON.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Defaults for the local tier.
var (
	DefaultTTL      = 300 * time.Second
	DefaultCapacity = 1000
)

var (
	lookupCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vulnenrich",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups by tier and result.",
	}, []string{"tier", "result"})
)

type entry struct {
	data    []byte
	expires time.Time
}

// Cache is the two-tier cache. The zero value is not usable; use New.
type Cache struct {
	remote Store
	ttl    time.Duration
	max    int

	mu      sync.Mutex
	entries map[string]entry
	order   []string
}

// New returns a Cache over the optional remote Store. A nil store means
// local-only operation.
func New(remote Store) *Cache {
	return &Cache{
		remote:  remote,
		ttl:     DefaultTTL,
		max:     DefaultCapacity,
		entries: make(map[string]entry),
	}
}

// Get looks up key and decodes the cached value into "into", which must be a
// non-nil pointer. The boolean reports whether a value was found; lookups
// never fail.
func (c *Cache) Get(ctx context.Context, key string, into any) bool {
	ctx = zlog.ContextWithValues(ctx, "component", "cache/Cache.Get")
	if b, ok := c.getLocal(key); ok {
		if err := json.Unmarshal(b, into); err == nil {
			lookupCounter.WithLabelValues("local", "hit").Inc()
			return true
		}
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
	}
	lookupCounter.WithLabelValues("local", "miss").Inc()
	if c.remote == nil {
		return false
	}
	b, err := c.remote.Get(ctx, key)
	switch {
	case errors.Is(err, nil):
	case errors.Is(err, ErrMiss):
		lookupCounter.WithLabelValues("remote", "miss").Inc()
		return false
	default:
		lookupCounter.WithLabelValues("remote", "miss").Inc()
		zlog.Debug(ctx).
			Err(err).
			Str("key", key).
			Msg("remote cache unavailable")
		return false
	}
	doc, err := gunzip(b)
	if err != nil {
		lookupCounter.WithLabelValues("remote", "miss").Inc()
		zlog.Debug(ctx).
			Err(err).
			Str("key", key).
			Msg("undecodable remote cache value")
		return false
	}
	if err := json.Unmarshal(doc, into); err != nil {
		lookupCounter.WithLabelValues("remote", "miss").Inc()
		zlog.Debug(ctx).
			Err(err).
			Str("key", key).
			Msg("undecodable remote cache value")
		return false
	}
	lookupCounter.WithLabelValues("remote", "hit").Inc()
	c.setLocal(key, doc)
	return true
}

// Set stores val under key in both tiers. The ttl applies to the remote
// tier; the local tier always uses its own shorter TTL. Remote failures are
// logged and dropped.
func (c *Cache) Set(ctx context.Context, key string, val any, ttl time.Duration) {
	ctx = zlog.ContextWithValues(ctx, "component", "cache/Cache.Set")
	doc, err := json.Marshal(val)
	if err != nil {
		zlog.Warn(ctx).
			Err(err).
			Str("key", key).
			Msg("unencodable cache value")
		return
	}
	c.setLocal(key, doc)
	if c.remote == nil {
		return
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write(doc)
	if err := gz.Close(); err != nil {
		zlog.Debug(ctx).Err(err).Msg("compress failed")
		return
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	if err := c.remote.Set(ctx, key, buf.Bytes(), ttl); err != nil {
		zlog.Debug(ctx).
			Err(err).
			Str("key", key).
			Msg("remote cache write failed")
	}
}

// Delete removes key from both tiers, best-effort.
func (c *Cache) Delete(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	if c.remote == nil {
		return
	}
	if err := c.remote.Delete(ctx, key); err != nil && !errors.Is(err, ErrMiss) {
		zlog.Debug(ctx).
			Err(err).
			Str("key", key).
			Msg("remote cache delete failed")
	}
}

func (c *Cache) getLocal(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.data, true
}

func (c *Cache) setLocal(key string, doc []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	}
	c.entries[key] = entry{data: doc, expires: time.Now().Add(c.ttl)}
	// Evict oldest-inserted past capacity. Keys removed out-of-band leave
	// stale order slots; those are skipped here.
	for len(c.entries) > c.max && len(c.order) > 0 {
		k := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, k)
	}
}

func gunzip(b []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	return io.ReadAll(gz)
}
