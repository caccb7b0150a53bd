// Package version implements a multi-scheme version model for comparing and
// range-matching the uncontrolled version strings that ride along with
// software inventories.
//
// Scheme detection is heuristic and parsing is permissive: a string that
// can't be parsed yields a zero Spec instead of an error, because a bad
// version from an upstream inventory must never abort enrichment.
package version

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver"
	debver "github.com/knqyf263/go-deb-version"
	rpmver "github.com/knqyf263/go-rpm-version"
)

// Scheme identifies the versioning convention a string appears to follow.
type Scheme string

const (
	Semver = Scheme("semver") // 1.2.3[-pre][+build]
	Calver = Scheme("calver") // 2023.12.01[.micro][-pre]
	PEP440 = Scheme("pep440") // 1.2.3rc1, 1.2.post1, ...
	Debian = Scheme("debian") // 1:2.3.4-5
	RPM    = Scheme("rpm")    // 1.2.3-4.el8
	Custom = Scheme("custom") // anything else
)

var (
	semverPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:-([0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?(?:\+([0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?$`)
	calverPattern = regexp.MustCompile(`^(\d{4})\.(\d{1,2})\.(\d{1,2})(?:\.(\d+))?(?:-([0-9A-Za-z-]+))?$`)
	pep440Pattern = regexp.MustCompile(`^(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:([ab]|rc)(\d+))?(?:\.(post|dev)(\d+))?$`)
	digitRuns     = regexp.MustCompile(`\d+`)
)

// Detect reports the Scheme a version string appears to use.
//
// Patterns are tried strictest-first; the Debian and RPM heuristics only
// apply to strings none of the anchored patterns claim.
func Detect(s string) Scheme {
	switch {
	case semverPattern.MatchString(s):
		return Semver
	case calverPattern.MatchString(s):
		return Calver
	case pep440Pattern.MatchString(s):
		return PEP440
	case strings.Contains(s, ":") && strings.Contains(s, "-"):
		return Debian
	case strings.Count(s, "-") >= 2:
		return RPM
	default:
		return Custom
	}
}

// Spec is a version string parsed under a Scheme.
//
// Two Specs are only directly comparable when of the same Scheme;
// cross-scheme comparison falls back to comparing the raw strings.
type Spec struct {
	Scheme     Scheme
	Components []int
	// Qualifier is a trailing prerelease-like marker. A present qualifier
	// sorts before its absence.
	Qualifier string
	// Build is ignored for ordering, per semver.
	Build string
	// Raw is the string the Spec was parsed from.
	Raw string
}

// Parse parses s under the given Scheme.
//
// Malformed input yields an all-zero Spec rather than an error.
func Parse(s string, scheme Scheme) Spec {
	spec := Spec{Scheme: scheme, Raw: s}
	switch scheme {
	case Semver:
		m := semverPattern.FindStringSubmatch(s)
		if m == nil {
			spec.Components = []int{0, 0, 0}
			return spec
		}
		spec.Components = atoiAll(m[1:4])
		spec.Qualifier = m[4]
		spec.Build = m[5]
	case Calver:
		m := calverPattern.FindStringSubmatch(s)
		if m == nil {
			spec.Components = []int{0, 0, 0, 0}
			return spec
		}
		spec.Components = atoiAll(m[1:5])
		spec.Qualifier = m[5]
	case PEP440:
		m := pep440Pattern.FindStringSubmatch(s)
		if m == nil {
			spec.Components = []int{0, 0, 0}
			return spec
		}
		spec.Components = atoiAll(m[1:4])
		if m[4] != "" {
			spec.Qualifier = m[4] + m[5]
		}
		if m[6] == "dev" {
			// A dev release sorts with the prereleases.
			spec.Qualifier += ".dev" + m[7]
		}
	default:
		// Debian, RPM and custom schemes keep their digit runs for the
		// component-wise fallback; ordering delegates to the scheme
		// libraries where possible.
		for _, run := range digitRuns.FindAllString(s, -1) {
			n, err := strconv.Atoi(run)
			if err != nil {
				n = 0
			}
			spec.Components = append(spec.Components, n)
		}
	}
	return spec
}

func atoiAll(ss []string) []int {
	out := make([]int, len(ss))
	for i, s := range ss {
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			continue
		}
		out[i] = n
	}
	return out
}

// Compare returns an integer comparing two Specs. The result will be 0 if
// a == b, -1 if a < b and +1 if a > b.
//
// Specs of differing schemes are compared by their raw strings.
func Compare(a, b Spec) int {
	if a.Scheme != b.Scheme {
		return strings.Compare(a.Raw, b.Raw)
	}
	switch a.Scheme {
	case Semver:
		// Prerelease tails are opaque qualifiers here and order as plain
		// strings; the library's numeric identifier ordering doesn't apply.
		av, aerr := semver.NewVersion(a.Raw)
		bv, berr := semver.NewVersion(b.Raw)
		if aerr == nil && berr == nil {
			for _, c := range [][2]int64{
				{av.Major(), bv.Major()},
				{av.Minor(), bv.Minor()},
				{av.Patch(), bv.Patch()},
			} {
				switch {
				case c[0] < c[1]:
					return -1
				case c[0] > c[1]:
					return 1
				}
			}
			switch ap, bp := av.Prerelease(), bv.Prerelease(); {
			case ap != "" && bp == "":
				return -1
			case ap == "" && bp != "":
				return 1
			default:
				return strings.Compare(ap, bp)
			}
		}
	case Debian:
		av, aerr := debver.NewVersion(a.Raw)
		bv, berr := debver.NewVersion(b.Raw)
		if aerr == nil && berr == nil {
			return av.Compare(bv)
		}
	case RPM:
		av, bv := rpmver.NewVersion(a.Raw), rpmver.NewVersion(b.Raw)
		return av.Compare(bv)
	case Custom:
		if len(a.Components) == 0 && len(b.Components) == 0 {
			// No digits anywhere; nothing left but the raw strings.
			return strings.Compare(a.Raw, b.Raw)
		}
	}
	return compareComponents(a, b)
}

// CompareComponents is the scheme-agnostic ordering: numeric components left
// to right, then the prerelease rule.
func compareComponents(a, b Spec) int {
	n := len(a.Components)
	if len(b.Components) > n {
		n = len(b.Components)
	}
	for i := 0; i < n; i++ {
		var ac, bc int
		if i < len(a.Components) {
			ac = a.Components[i]
		}
		if i < len(b.Components) {
			bc = b.Components[i]
		}
		switch {
		case ac < bc:
			return -1
		case ac > bc:
			return 1
		}
	}
	// All numeric components equal: a present qualifier sorts before its
	// absence (prerelease < final release).
	switch {
	case a.Qualifier != "" && b.Qualifier == "":
		return -1
	case a.Qualifier == "" && b.Qualifier != "":
		return 1
	}
	return strings.Compare(a.Qualifier, b.Qualifier)
}

// CompareStrings detects and compares two raw version strings.
//
// If the strings appear to use different schemes the comparison is
// lexicographic.
func CompareStrings(a, b string) int {
	as, bs := Detect(a), Detect(b)
	if as != bs {
		return strings.Compare(a, b)
	}
	return Compare(Parse(a, as), Parse(b, bs))
}
