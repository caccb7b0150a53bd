package libenrich

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cvelab/vulnenrich"
	"github.com/cvelab/vulnenrich/cache"
	"github.com/cvelab/vulnenrich/matcher"
	"github.com/cvelab/vulnenrich/matcher/keyword"
	"github.com/cvelab/vulnenrich/pkg/cpe"
)

type memSource struct {
	sets map[string][]string
}

func (m *memSource) Identifiers(_ context.Context, kw string) ([]string, error) {
	return m.sets[kw], nil
}

func (m *memSource) Popularity(_ context.Context, ids []string) (map[string]int, error) {
	out := make(map[string]int, len(ids))
	for i, id := range ids {
		out[id] = len(ids) - i
	}
	return out, nil
}

type fakeStore struct {
	byID   map[string][]vulnenrich.Vulnerability
	byText map[string][]vulnenrich.Vulnerability
	fail   map[string]bool
}

func (s *fakeStore) ByIdentifier(_ context.Context, id *cpe.CPE) ([]vulnenrich.Vulnerability, error) {
	if s.fail[id.Product] {
		return nil, errors.New("store down")
	}
	return s.byID[id.Vendor+":"+id.Product], nil
}

func (s *fakeStore) ByText(_ context.Context, name, _ string) ([]vulnenrich.Vulnerability, error) {
	if s.fail[name] {
		return nil, errors.New("store down")
	}
	return s.byText[name], nil
}

type fakeFeed struct {
	mu     sync.Mutex
	m      map[string][]vulnenrich.Vulnerability
	panics map[string]bool
	calls  int
}

func (f *fakeFeed) Search(_ context.Context, item vulnenrich.SoftwareItem) ([]vulnenrich.Vulnerability, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.panics[item.Name] {
		panic("feed exploded")
	}
	return f.m[item.Name], nil
}

const nginxCPE = "cpe:2.3:a:nginx:nginx:1.18.0:*:*:*:*:*:*:*"

var nginxVulns = []vulnenrich.Vulnerability{{
	ID:        "CVE-2021-23017",
	Severity:  vulnenrich.High,
	CVSSScore: 7.7,
}}

func testMatcher() *matcher.Hybrid {
	return matcher.New(keyword.NewIndex(&memSource{sets: map[string][]string{
		"nginx":  {nginxCPE},
		"badco":  {"cpe:2.3:a:badco:badpkg:1.0:*:*:*:*:*:*:*"},
		"badpkg": {"cpe:2.3:a:badco:badpkg:1.0:*:*:*:*:*:*:*"},
	}}), nil, nil)
}

func TestStoreThenCache(t *testing.T) {
	ctx := context.Background()
	l, err := New(ctx, &Options{
		Store:   &fakeStore{byID: map[string][]vulnenrich.Vulnerability{"nginx:nginx": nginxVulns}},
		Matcher: testMatcher(),
		Cache:   cache.New(nil),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close(ctx)
	items := []vulnenrich.SoftwareItem{{Name: "nginx", Version: "1.18.0", Vendor: "nginx"}}

	res, err := l.EnrichBatch(ctx, items)
	if err != nil {
		t.Fatal(err)
	}
	if got := res[0].Source; got != vulnenrich.SourceStore {
		t.Fatalf("first pass source: got: %v, want: store", got)
	}
	if !cmp.Equal(nginxVulns, res[0].Vulnerabilities) {
		t.Error(cmp.Diff(nginxVulns, res[0].Vulnerabilities))
	}
	if res[0].Identifier == nil || res[0].Identifier.String() != nginxCPE {
		t.Errorf("identifier: got: %v", res[0].Identifier)
	}

	res, err = l.EnrichBatch(ctx, items)
	if err != nil {
		t.Fatal(err)
	}
	if got := res[0].Source; got != vulnenrich.SourceCache {
		t.Fatalf("second pass source: got: %v, want: cache", got)
	}
	if !cmp.Equal(nginxVulns, res[0].Vulnerabilities) {
		t.Error(cmp.Diff(nginxVulns, res[0].Vulnerabilities))
	}
	if res[0].Identifier == nil || res[0].Identifier.String() != nginxCPE {
		t.Errorf("cached identifier: got: %v", res[0].Identifier)
	}
}

func TestOrderPreservedWithFailure(t *testing.T) {
	ctx := context.Background()
	l, err := New(ctx, &Options{
		Store: &fakeStore{
			byID: map[string][]vulnenrich.Vulnerability{"nginx:nginx": nginxVulns},
			fail: map[string]bool{"badpkg": true},
		},
		Matcher:       testMatcher(),
		MaxConcurrent: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	items := []vulnenrich.SoftwareItem{
		{Name: "nginx", Version: "1.18.0", Vendor: "nginx"},
		{Name: "badpkg", Version: "1.0", Vendor: "badco"},
		{Name: "nginx", Version: "1.18.0", Vendor: "nginx"},
	}
	res, err := l.EnrichBatch(ctx, items)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != len(items) {
		t.Fatalf("got %d results, want %d", len(res), len(items))
	}
	for i := range items {
		if !cmp.Equal(items[i], res[i].Item) {
			t.Errorf("result %d misaligned:\n%s", i, cmp.Diff(items[i], res[i].Item))
		}
	}
	if res[1].Err == nil || res[1].Source != vulnenrich.SourceNone {
		t.Errorf("failed item: got: (%v, %v), want an error and source none", res[1].Err, res[1].Source)
	}
	for _, i := range []int{0, 2} {
		if res[i].Err != nil {
			t.Errorf("result %d: unexpected error: %v", i, res[i].Err)
		}
		if res[i].Source != vulnenrich.SourceStore {
			t.Errorf("result %d: got: %v, want: store", i, res[i].Source)
		}
	}
}

func TestExternalFallback(t *testing.T) {
	ctx := context.Background()
	feed := &fakeFeed{m: map[string][]vulnenrich.Vulnerability{"nginx": nginxVulns}}
	l, err := New(ctx, &Options{
		Store:   &fakeStore{},
		Matcher: testMatcher(),
		Feed:    feed,
	})
	if err != nil {
		t.Fatal(err)
	}
	res, err := l.EnrichBatch(ctx, []vulnenrich.SoftwareItem{{Name: "nginx", Version: "1.18.0", Vendor: "nginx"}})
	if err != nil {
		t.Fatal(err)
	}
	if res[0].Source != vulnenrich.SourceExternal || res[0].Err != nil {
		t.Errorf("got: (%v, %v), want: (external, nil)", res[0].Source, res[0].Err)
	}
	if feed.calls != 1 {
		t.Errorf("got %d feed calls, want 1", feed.calls)
	}
}

func TestNoMatch(t *testing.T) {
	ctx := context.Background()
	l, err := New(ctx, &Options{
		Store:   &fakeStore{},
		Matcher: testMatcher(),
	})
	if err != nil {
		t.Fatal(err)
	}
	res, err := l.EnrichBatch(ctx, []vulnenrich.SoftwareItem{{Name: "unheardof", Version: "0.0.1"}})
	if err != nil {
		t.Fatal(err)
	}
	r := res[0]
	if r.Err != nil || r.Source != vulnenrich.SourceNone || len(r.Vulnerabilities) != 0 {
		t.Errorf("got: %+v, want a clean empty result", r)
	}
}

func TestEmptyBatch(t *testing.T) {
	ctx := context.Background()
	l, err := New(ctx, &Options{Store: &fakeStore{}, Matcher: testMatcher()})
	if err != nil {
		t.Fatal(err)
	}
	res, err := l.EnrichBatch(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res == nil || len(res) != 0 {
		t.Errorf("got: %v, want an empty non-nil slice", res)
	}
}

func TestPanicIsolation(t *testing.T) {
	ctx := context.Background()
	feed := &fakeFeed{
		m:      map[string][]vulnenrich.Vulnerability{"nginx": nginxVulns},
		panics: map[string]bool{"unheardof": true},
	}
	l, err := New(ctx, &Options{
		Store:   &fakeStore{},
		Matcher: testMatcher(),
		Feed:    feed,
	})
	if err != nil {
		t.Fatal(err)
	}
	res, err := l.EnrichBatch(ctx, []vulnenrich.SoftwareItem{
		{Name: "unheardof", Version: "0.0.1"},
		{Name: "nginx", Version: "1.18.0", Vendor: "nginx"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res[0].Err == nil || res[0].Source != vulnenrich.SourceNone {
		t.Errorf("panicking item: got: (%v, %v), want an error and source none", res[0].Err, res[0].Source)
	}
	if res[1].Err != nil || res[1].Source != vulnenrich.SourceExternal {
		t.Errorf("sibling item: got: (%v, %v), want: (nil, external)", res[1].Err, res[1].Source)
	}
}

func TestOptionsValidation(t *testing.T) {
	ctx := context.Background()
	if _, err := New(ctx, &Options{Matcher: testMatcher()}); !errors.Is(err, vulnenrich.ErrInvalid) {
		t.Errorf("missing store: got: %v", err)
	}
	if _, err := New(ctx, &Options{Store: &fakeStore{}}); !errors.Is(err, vulnenrich.ErrInvalid) {
		t.Errorf("missing matcher: got: %v", err)
	}
}
