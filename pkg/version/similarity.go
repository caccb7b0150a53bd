package version

// PartialMatchCutoff is the similarity above which a version pair counts as a
// partial match. It's a tuning constant with no principled derivation; it's a
// variable so deployments can adjust it.
var PartialMatchCutoff = 0.7

// Similarity estimates how alike two version strings are, in [0,1].
//
// The heuristic compares digit runs pairwise: an equal run scores 1, a run
// differing by at most 1 scores 0.5, and the total is normalized by the
// longer run count. It's a best-effort tiebreaker, not a correctness
// guarantee.
func Similarity(a, b string) float64 {
	if CompareStrings(a, b) == 0 {
		return 1.0
	}
	ar := digitRuns.FindAllString(a, -1)
	br := digitRuns.FindAllString(b, -1)
	if len(ar) == 0 || len(br) == 0 {
		return 0.0
	}
	n := len(ar)
	if len(br) > n {
		n = len(br)
	}
	var score float64
	for i := 0; i < n; i++ {
		var an, bn int
		if i < len(ar) {
			an = atoi(ar[i])
		}
		if i < len(br) {
			bn = atoi(br[i])
		}
		switch d := an - bn; {
		case d == 0:
			score += 1.0
		case d == 1 || d == -1:
			score += 0.5
		}
	}
	return score / float64(n)
}

func atoi(s string) int {
	var n int
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// MatchCPEVersion compares a software version against the version attribute
// of a candidate identifier and reports (matches, confidence).
//
// The ladder, most to least confident: exact string equality (1.0), an
// explicit range expression that matches (0.9), no version information on
// either side (0.5, counts as a match), then the Similarity heuristic with
// PartialMatchCutoff deciding the boolean.
func MatchCPEVersion(software, candidate string) (bool, float64) {
	if software == "" || candidate == "" || candidate == "*" || candidate == "-" {
		return true, 0.5
	}
	if software == candidate {
		return true, 1.0
	}
	if r := ParseRange(candidate); len(r) > 0 && r.Match(software) {
		return true, 0.9
	}
	sim := Similarity(software, candidate)
	return sim > PartialMatchCutoff, sim
}
