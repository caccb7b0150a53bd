package version

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDetect(t *testing.T) {
	tt := []struct {
		In   string
		Want Scheme
	}{
		{"1.18.0", Semver},
		{"1.2.3-alpha.1+build5", Semver},
		{"2023.12.01.1", Calver},
		{"1.2", PEP440},
		{"1.2.3rc1", PEP440},
		{"1:2.3.4-5", Debian},
		{"5.6-14-3.el8", RPM},
		{"v8u292", Custom},
		{"", Custom},
	}
	for _, tc := range tt {
		if got := Detect(tc.In); got != tc.Want {
			t.Errorf("Detect(%q): got: %q, want: %q", tc.In, got, tc.Want)
		}
	}
}

func TestParsePermissive(t *testing.T) {
	got := Parse("not-really.a@version", Semver)
	want := Spec{Scheme: Semver, Components: []int{0, 0, 0}, Raw: "not-really.a@version"}
	if !cmp.Equal(want, got) {
		t.Error(cmp.Diff(want, got))
	}
}

func TestParse(t *testing.T) {
	tt := []struct {
		In     string
		Scheme Scheme
		Want   Spec
	}{
		{
			In: "1.18.0", Scheme: Semver,
			Want: Spec{Scheme: Semver, Components: []int{1, 18, 0}, Raw: "1.18.0"},
		},
		{
			In: "1.2.3-alpha+001", Scheme: Semver,
			Want: Spec{Scheme: Semver, Components: []int{1, 2, 3}, Qualifier: "alpha", Build: "001", Raw: "1.2.3-alpha+001"},
		},
		{
			In: "2023.12.01.2-beta", Scheme: Calver,
			Want: Spec{Scheme: Calver, Components: []int{2023, 12, 1, 2}, Qualifier: "beta", Raw: "2023.12.01.2-beta"},
		},
		{
			In: "1.2.3rc1", Scheme: PEP440,
			Want: Spec{Scheme: PEP440, Components: []int{1, 2, 3}, Qualifier: "rc1", Raw: "1.2.3rc1"},
		},
		{
			In: "1:2.3.4-5", Scheme: Debian,
			Want: Spec{Scheme: Debian, Components: []int{1, 2, 3, 4, 5}, Raw: "1:2.3.4-5"},
		},
	}
	for _, tc := range tt {
		got := Parse(tc.In, tc.Scheme)
		if !cmp.Equal(tc.Want, got) {
			t.Errorf("Parse(%q, %q):\n%s", tc.In, tc.Scheme, cmp.Diff(tc.Want, got))
		}
	}
}

type compareTestcase struct {
	A, B string
	Want int
}

func (tc compareTestcase) Run(t *testing.T) {
	if got := CompareStrings(tc.A, tc.B); got != tc.Want {
		t.Errorf("CompareStrings(%q, %q): got: %d, want: %d", tc.A, tc.B, got, tc.Want)
	}
	// Antisymmetry.
	if got := CompareStrings(tc.B, tc.A); got != -tc.Want {
		t.Errorf("CompareStrings(%q, %q): got: %d, want: %d", tc.B, tc.A, got, -tc.Want)
	}
}

func TestCompare(t *testing.T) {
	tt := []compareTestcase{
		{"1.2.3", "1.2.3", 0},
		{"1.2.3", "1.2.4", -1},
		{"1.2.3", "1.10.0", -1},
		{"1.2.3-alpha", "1.2.3", -1},
		{"1.2.3-alpha", "1.2.3-beta", -1},
		// Prerelease tails order as plain strings: "alpha.10" < "alpha.2".
		{"1.2.3-alpha.2", "1.2.3-alpha.10", 1},
		{"1.2.3-alpha.10", "1.2.3", -1},
		{"2023.12.01.1", "2023.12.02.1", -1},
		{"1.2rc1", "1.2", -1},
		{"1:2.3.4-5", "1:2.3.4-6", -1},
		{"2:1.0-1", "1:9.9-9", 1},
		{"5.6-14-3.el8", "5.6-15-3.el8", -1},
	}
	for _, tc := range tt {
		tc.Run(t)
	}
}

func TestCompareReflexiveTransitive(t *testing.T) {
	vs := []string{"1.0.0", "1.2.0", "1.2.3", "2.0.0"}
	for _, v := range vs {
		if got := CompareStrings(v, v); got != 0 {
			t.Errorf("CompareStrings(%q, %q): got: %d, want: 0", v, v, got)
		}
	}
	// Ascending order implies every pair compares ascending.
	for i := 0; i < len(vs); i++ {
		for j := i + 1; j < len(vs); j++ {
			if got := CompareStrings(vs[i], vs[j]); got != -1 {
				t.Errorf("CompareStrings(%q, %q): got: %d, want: -1", vs[i], vs[j], got)
			}
		}
	}
}

func TestCrossSchemeFallback(t *testing.T) {
	// Different schemes compare lexicographically on the raw strings.
	if got, want := CompareStrings("1.2.3", "1:2.3-4"), -1; got != want {
		t.Errorf("got: %d, want: %d", got, want)
	}
}
