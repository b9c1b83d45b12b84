// Package rules holds the per-field correction and validation rules.
//
// Corrections are pure functions that normalize a raw value into its
// canonical representation (postal code mask, CPF/CNPJ mask, bare phone
// digits). Validators are predicates over the fully-corrected value with a
// message to emit on failure. Fields without a normalizable format (name,
// email) only carry a validator.
package rules

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	nonDigitRegex   = regexp.MustCompile(`\D`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	postalCodeRegex = regexp.MustCompile(`^\d{5}-\d{3}$`)
	phoneRegex      = regexp.MustCompile(`^\d{10,11}$`)
	cpfRegex        = regexp.MustCompile(`^\d{3}\.\d{3}\.\d{3}-\d{2}$|^\d{11}$`)
	cnpjRegex       = regexp.MustCompile(`^\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}$|^\d{14}$`)
	emailRegex      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// maxNameLength bounds the NAME field, matching carrier label constraints.
const maxNameLength = 100

// Rule bundles the optional correction and validation behavior for one
// canonical field.
type Rule struct {
	// Correct normalizes a sanitized value, or is nil when the field has no
	// normalizable format.
	Correct func(string) string
	// Validate reports whether a non-empty fully-corrected value is
	// acceptable, or is nil when the field has no format check.
	Validate func(string) bool
	// Message is emitted as the row error when Validate fails.
	Message string
}

// table maps canonical field names to their rules.
var table = map[string]Rule{
	"NAME": {
		Validate: func(v string) bool { return utf8.RuneCountInString(v) <= maxNameLength },
		Message:  "exceeds 100 characters",
	},
	"POSTAL_CODE": {
		Correct:  CorrectPostalCode,
		Validate: postalCodeRegex.MatchString,
		Message:  "invalid format, use NNNNN-NNN",
	},
	"PHONE": {
		Correct:  CorrectPhone,
		Validate: phoneRegex.MatchString,
		Message:  "must have 10 or 11 digits",
	},
	"DOCUMENT": {
		Correct: CorrectDocument,
		Validate: func(v string) bool {
			return cpfRegex.MatchString(v) || cnpjRegex.MatchString(v)
		},
		Message: "invalid CPF/CNPJ format",
	},
	"EMAIL": {
		Validate: emailRegex.MatchString,
		Message:  "invalid e-mail format",
	},
}

// ForField returns the rule for a canonical field, if one exists.
func ForField(field string) (Rule, bool) {
	r, ok := table[field]
	return r, ok
}

// Digits strips every non-digit character from s.
func Digits(s string) string {
	return nonDigitRegex.ReplaceAllString(s, "")
}

// Sanitize trims the value, strips embedded quote and delimiter characters,
// and collapses internal whitespace runs to single spaces.
func Sanitize(v string, delimiter rune) string {
	v = strings.ReplaceAll(v, `"`, "")
	v = strings.ReplaceAll(v, string(delimiter), "")
	v = whitespaceRegex.ReplaceAllString(v, " ")
	return strings.TrimSpace(v)
}

// CorrectPostalCode normalizes a postal code to the NNNNN-NNN mask.
// Values with 1-7 digits are zero-padded on the left to 8; anything that does
// not end up with exactly 8 digits is returned unchanged.
func CorrectPostalCode(v string) string {
	d := Digits(v)
	if len(d) >= 1 && len(d) < 8 {
		d = strings.Repeat("0", 8-len(d)) + d
	}
	if len(d) != 8 {
		return v
	}
	return d[:5] + "-" + d[5:]
}

// CorrectDocument normalizes a CPF (11 digits) or CNPJ (14 digits) to its
// standard mask; other digit counts are returned unchanged.
func CorrectDocument(v string) string {
	d := Digits(v)
	switch len(d) {
	case 11:
		return d[:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:]
	case 14:
		return d[:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:]
	}
	return v
}

// CorrectPhone strips everything but digits.
func CorrectPhone(v string) string {
	return Digits(v)
}
