package version

import (
	"regexp"
	"strings"
)

// Op is a range-constraint comparison operator.
type Op string

const (
	OpLT = Op("<")
	OpLE = Op("<=")
	OpGT = Op(">")
	OpGE = Op(">=")
	OpEQ = Op("=")
	OpNE = Op("!=")
)

// Constraint is a single (operator, version) pair.
type Constraint struct {
	Op      Op
	Version string
}

// Range is a conjunction of Constraints. The empty Range matches every
// version.
type Range []Constraint

var constraintPattern = regexp.MustCompile(`^([<>=!]+)\s*([^\s,]+)`)

// ParseRange parses a range expression into a Range.
//
// Comma-separated constraints are conjunctive, not alternatives. In addition
// to operator tokens the verbose forms "up to X" (inclusive) and
// "up to excluding X" are supported. An empty expression or "*" yields the
// empty Range. Unrecognizable parts are skipped.
func ParseRange(expr string) Range {
	expr = strings.TrimSpace(expr)
	if expr == "" || expr == "*" {
		return nil
	}
	var r Range
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if v, ok := strings.CutPrefix(part, "up to "); ok {
			v = strings.TrimSpace(v)
			if ex, ok := strings.CutPrefix(v, "excluding "); ok {
				r = append(r, Constraint{Op: OpLT, Version: strings.TrimSpace(ex)})
			} else {
				r = append(r, Constraint{Op: OpLE, Version: v})
			}
			continue
		}
		m := constraintPattern.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		op := m[1]
		if op == "==" {
			op = "="
		}
		switch Op(op) {
		case OpLT, OpLE, OpGT, OpGE, OpEQ, OpNE:
			r = append(r, Constraint{Op: Op(op), Version: m[2]})
		}
	}
	return r
}

// Match reports whether the version satisfies every constraint in the Range.
func (r Range) Match(version string) bool {
	for _, c := range r {
		if !c.match(version) {
			return false
		}
	}
	return true
}

func (c Constraint) match(version string) bool {
	cmp := CompareStrings(version, c.Version)
	switch c.Op {
	case OpLT:
		return cmp < 0
	case OpLE:
		return cmp <= 0
	case OpGT:
		return cmp > 0
	case OpGE:
		return cmp >= 0
	case OpEQ:
		return cmp == 0
	case OpNE:
		return cmp != 0
	}
	return false
}

// Matches is a convenience for parsing and matching in one call.
func Matches(version, expr string) bool {
	return ParseRange(expr).Match(version)
}
