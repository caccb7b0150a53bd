package vulnenrich

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSeverityFromScore(t *testing.T) {
	tt := []struct {
		Score float64
		Want  Severity
	}{
		{10.0, Critical},
		{9.0, Critical},
		{8.9, High},
		{7.0, High},
		{6.9, Medium},
		{4.0, Medium},
		{3.9, Low},
		{0.1, Low},
		{0.0, Unknown},
	}
	for _, tc := range tt {
		if got := SeverityFromScore(tc.Score); got != tc.Want {
			t.Errorf("SeverityFromScore(%v): got: %v, want: %v", tc.Score, got, tc.Want)
		}
	}
}

func TestParsePURL(t *testing.T) {
	tt := []struct {
		Name string
		In   string
		Want SoftwareItem
		Err  bool
	}{
		{
			Name: "Deb",
			In:   "pkg:deb/debian/nginx@1.18.0-6.1?arch=amd64",
			Want: SoftwareItem{Name: "nginx", Version: "1.18.0-6.1", Vendor: "debian", Architecture: "amd64"},
		},
		{
			Name: "NoNamespace",
			In:   "pkg:pypi/requests@2.31.0",
			Want: SoftwareItem{Name: "requests", Version: "2.31.0"},
		},
		{
			Name: "Garbage",
			In:   "not-a-purl",
			Err:  true,
		},
	}
	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			got, err := ParsePURL(tc.In)
			if tc.Err {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !cmp.Equal(tc.Want, got) {
				t.Error(cmp.Diff(tc.Want, got))
			}
		})
	}
}

func TestDeduplicate(t *testing.T) {
	in := []Vulnerability{
		{ID: "CVE-2021-23017", CVSSScore: 7.7},
		{ID: "CVE-2020-11984"},
		{ID: "CVE-2021-23017", CVSSScore: 9.8},
	}
	got := Deduplicate(in)
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	// First-seen wins.
	if got[0].ID != "CVE-2021-23017" || got[0].CVSSScore != 7.7 {
		t.Errorf("got: %+v", got[0])
	}
	if got[1].ID != "CVE-2020-11984" {
		t.Errorf("got: %+v", got[1])
	}
}

func TestErrorKinds(t *testing.T) {
	err := &Error{
		Op:      "test/op",
		Kind:    ErrRateLimited,
		Message: "slow down",
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Error("kind comparison failed")
	}
	if !errors.Is(err, ErrTransient) {
		t.Error("ratelimited should be transient")
	}
	if errors.Is(err, ErrInvalid) {
		t.Error("kinds shouldn't cross-match")
	}

	perm := &Error{Kind: ErrInvalid}
	if errors.Is(perm, ErrTransient) {
		t.Error("invalid shouldn't be transient")
	}

	inner := errors.New("inner")
	if !errors.Is(&Error{Kind: ErrInternal, Inner: inner}, inner) {
		t.Error("unwrap failed")
	}
}
