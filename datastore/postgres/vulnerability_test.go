package postgres

import (
	"testing"
)

func TestVersionApplies(t *testing.T) {
	ptr := func(s string) *string { return &s }
	tt := []struct {
		Name     string
		Software string
		Expr     *string
		Want     bool
	}{
		{"NilExpr", "1.18.0", nil, true},
		{"EmptyExpr", "1.18.0", ptr(""), true},
		{"InRange", "1.18.0", ptr("<1.21.0"), true},
		{"OutOfRange", "1.21.0", ptr("<1.21.0"), false},
		{"Conjunction", "1.18.0", ptr(">=1.0.0,<1.21.0"), true},
		{"ConjunctionMiss", "0.9.0", ptr(">=1.0.0,<1.21.0"), false},
		{"Exact", "1.18.0", ptr("1.18.0"), true},
		{"Mismatch", "1.18.0", ptr("9.0.0"), false},
	}
	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			if got := versionApplies(tc.Software, tc.Expr); got != tc.Want {
				t.Errorf("got: %v, want: %v", got, tc.Want)
			}
		})
	}
}

func TestVectorLiteral(t *testing.T) {
	tt := []struct {
		In   []float32
		Want string
	}{
		{nil, "[]"},
		{[]float32{1}, "[1]"},
		{[]float32{0.5, -0.25, 2}, "[0.5,-0.25,2]"},
	}
	for _, tc := range tt {
		if got := vectorLiteral(tc.In); got != tc.Want {
			t.Errorf("vectorLiteral(%v): got: %q, want: %q", tc.In, got, tc.Want)
		}
	}
}
