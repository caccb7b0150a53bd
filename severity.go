package vulnenrich

import (
	"database/sql/driver"
	"fmt"
)

// Severity is a normalized severity ranking.
type Severity uint

const (
	Unknown Severity = iota
	Negligible
	Low
	Medium
	High
	Critical
)

var severityNames = [...]string{
	Unknown:    "Unknown",
	Negligible: "Negligible",
	Low:        "Low",
	Medium:     "Medium",
	High:       "High",
	Critical:   "Critical",
}

// SeverityFromScore maps a CVSS base score onto a Severity using the v3
// qualitative rating scale.
func SeverityFromScore(score float64) Severity {
	switch {
	case score >= 9.0:
		return Critical
	case score >= 7.0:
		return High
	case score >= 4.0:
		return Medium
	case score >= 0.1:
		return Low
	default:
		return Unknown
	}
}

func (s Severity) String() string {
	if int(s) >= len(severityNames) {
		return "Unknown"
	}
	return severityNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	for i, n := range severityNames {
		if n == string(b) {
			*s = Severity(i)
			return nil
		}
	}
	return fmt.Errorf("unknown severity %q", string(b))
}

// Value implements driver.Valuer.
func (s Severity) Value() (driver.Value, error) {
	return s.String(), nil
}

// Scan implements sql.Scanner.
func (s *Severity) Scan(i interface{}) error {
	switch v := i.(type) {
	case []byte:
		return s.UnmarshalText(v)
	case string:
		return s.UnmarshalText([]byte(v))
	case int64:
		if v < 0 || v >= int64(len(severityNames)) {
			return fmt.Errorf("unable to scan Severity from enum %d", v)
		}
		*s = Severity(v)
	default:
		return fmt.Errorf("unable to scan Severity from type %T", i)
	}
	return nil
}
