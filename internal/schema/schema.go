// Package schema defines the canonical field set that input files are
// reconciled against, the subset of fields that must be non-empty, and the
// mapping from raw input column names to canonical field names.
package schema

import "strings"

// Fields is the canonical schema in its defined order. Order only matters for
// deterministic iteration; membership decides which columns participate in
// correction and validation.
var Fields = []string{
	"NAME",
	"COMPANY",
	"DOCUMENT",
	"POSTAL_CODE",
	"ADDRESS",
	"NUMBER",
	"COMPLEMENT",
	"DISTRICT",
	"CITY",
	"STATE",
	"CARE_OF",
	"INVOICE",
	"SERVICE",
	"ADDITIONAL_SERVICES",
	"DECLARED_VALUE",
	"NOTES",
	"CONTENTS",
	"AREA_CODE",
	"PHONE",
	"EMAIL",
	"KEY",
	"WEIGHT",
	"HEIGHT",
	"WIDTH",
	"LENGTH",
	"NEIGHBOR_DELIVERY",
	"RFID",
}

// required lists the canonical fields whose value must be non-empty after all
// corrections have been applied.
var required = map[string]bool{
	"NAME":        true,
	"POSTAL_CODE": true,
	"ADDRESS":     true,
	"NUMBER":      true,
	"DISTRICT":    true,
	"CITY":        true,
	"STATE":       true,
}

// byUpper indexes canonical field names by their uppercased form for
// case-insensitive auto-matching.
var byUpper = func() map[string]string {
	m := make(map[string]string, len(Fields))
	for _, f := range Fields {
		m[strings.ToUpper(f)] = f
	}
	return m
}()

// HeaderMap is a consumer-supplied mapping from raw input column name to
// canonical field name. Columns not listed fall back to case-insensitive
// auto-matching.
type HeaderMap map[string]string

// IsCanonical reports whether name is a member of the canonical schema.
func IsCanonical(name string) bool {
	_, ok := byUpper[strings.ToUpper(name)]
	return ok
}

// Normalize resolves name to its canonical spelling, matching
// case-insensitively.
func Normalize(name string) (string, bool) {
	field, ok := byUpper[strings.ToUpper(strings.TrimSpace(name))]
	return field, ok
}

// IsRequired reports whether the canonical field must be non-empty after
// correction.
func IsRequired(field string) bool {
	return required[field]
}

// Canonical resolves a raw input column name to its canonical field.
// An explicit override in the header map takes precedence; otherwise the raw
// name is matched case-insensitively against the canonical schema. The second
// return value is false when the column maps to nothing and should be passed
// through untouched.
func Canonical(raw string, override HeaderMap) (string, bool) {
	raw = strings.TrimSpace(raw)
	if override != nil {
		if field, ok := override[raw]; ok && field != "" {
			return field, true
		}
	}
	field, ok := byUpper[strings.ToUpper(raw)]
	return field, ok
}

// PostalColumn returns the raw header column that supplies POSTAL_CODE, or
// false when no column maps to it.
func PostalColumn(header []string, override HeaderMap) (string, bool) {
	for _, raw := range header {
		if field, ok := Canonical(raw, override); ok && field == "POSTAL_CODE" {
			return raw, true
		}
	}
	return "", false
}
