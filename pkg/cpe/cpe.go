// Package cpe provides for handling Common Platform Enumeration (CPE) names
// in their 2.3 formatted-string binding.
//
// Only the colon-delimited formatted string is handled; URI binding and
// special-character quoting are not. Upstream identifier data is uncontrolled,
// so parsing is deliberately permissive.
package cpe

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Prefix is the formatted-string lead-in for a 2.3 name.
const Prefix = `cpe:2.3`

// Any is the wildcard value for an attribute.
const Any = `*`

// CPE is a 2.3 name split into its eleven attributes.
//
// Unset trailing attributes are normalized to the wildcard, so that a parsed
// name always serializes back to the full thirteen-segment form.
type CPE struct {
	Part      string `json:"part"`
	Vendor    string `json:"vendor"`
	Product   string `json:"product"`
	Version   string `json:"version"`
	Update    string `json:"update"`
	Edition   string `json:"edition"`
	Language  string `json:"language"`
	SwEdition string `json:"sw_edition"`
	TargetSW  string `json:"target_sw"`
	TargetHW  string `json:"target_hw"`
	Other     string `json:"other"`
}

// Parse splits a formatted string into a CPE.
//
// Strings with fewer than four colon-delimited segments are unusable and
// return (nil, nil): callers treat that as "no identifier" rather than an
// error. Attributes beyond the available segments default to the wildcard.
func Parse(s string) (*CPE, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 4 {
		return nil, nil
	}
	if parts[0] != "cpe" {
		return nil, fmt.Errorf("cpe: %q does not appear to be a bound name", s)
	}
	c := CPE{
		Part:      Any,
		Vendor:    Any,
		Product:   Any,
		Version:   Any,
		Update:    Any,
		Edition:   Any,
		Language:  Any,
		SwEdition: Any,
		TargetSW:  Any,
		TargetHW:  Any,
		Other:     Any,
	}
	attrs := []*string{
		&c.Part, &c.Vendor, &c.Product, &c.Version, &c.Update, &c.Edition,
		&c.Language, &c.SwEdition, &c.TargetSW, &c.TargetHW, &c.Other,
	}
	for i, seg := range parts[2:] {
		if i >= len(attrs) {
			break
		}
		if seg != "" {
			*attrs[i] = seg
		}
	}
	return &c, nil
}

// MustParse is Parse, but panics on malformed or unusable input.
//
// This is primarily useful for static data where any error is a programmer
// error.
func MustParse(s string) *CPE {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	if c == nil {
		panic(fmt.Sprintf("cpe: unusable name %q", s))
	}
	return c
}

// String binds the CPE back into its formatted string.
func (c *CPE) String() string {
	return strings.Join([]string{
		Prefix, c.Part, c.Vendor, c.Product, c.Version, c.Update, c.Edition,
		c.Language, c.SwEdition, c.TargetSW, c.TargetHW, c.Other,
	}, ":")
}

// QueryText renders a human-readable "vendor product version" phrase for use
// as embedding input. Wildcard attributes are omitted and underscores become
// spaces.
func (c *CPE) QueryText() string {
	words := make([]string, 0, 3)
	for _, a := range []string{c.Vendor, c.Product, c.Version} {
		if a == "" || a == Any || a == "-" {
			continue
		}
		words = append(words, strings.ReplaceAll(a, "_", " "))
	}
	return strings.Join(words, " ")
}

// MarshalText implements encoding.TextMarshaler.
func (c *CPE) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CPE) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	p, err := Parse(string(b))
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("cpe: unusable name %q", string(b))
	}
	*c = *p
	return nil
}

// Scan implements sql.Scanner.
func (c *CPE) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return c.UnmarshalText(v)
	case string:
		return c.UnmarshalText([]byte(v))
	default:
		return fmt.Errorf("cpe: unable to Scan from type %T", src)
	}
}

// Value implements driver.Valuer.
func (c CPE) Value() (driver.Value, error) {
	return c.String(), nil
}
