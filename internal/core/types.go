// Package core orchestrates the per-record pipeline: sanitize,
// format-correct, apply postal-lookup overrides, diff for provenance,
// validate, and project into the two output row variants. It has no UI
// dependencies and can be driven by any frontend.
package core

// Source tags which pipeline stage produced a correction.
type Source string

const (
	// SourceCleanup marks changes made by sanitization (trimming, quote and
	// delimiter stripping, whitespace collapsing).
	SourceCleanup Source = "Cleanup"
	// SourceFormat marks changes made by the deterministic correction rules.
	SourceFormat Source = "Format"
	// SourceAPI marks overrides derived from a postal-code lookup.
	SourceAPI Source = "API"
)

// Correction records one field value change with its provenance.
// Rows are numbered as in the input file: the header is row 1, the first
// data row is row 2.
type Correction struct {
	Row       int    `json:"row"`
	Field     string `json:"field"`
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
	Source    Source `json:"source"`
}

// RowError is a validation failure for one (row, field) pair.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Report collects everything the pipeline found. Warnings are deduplicated
// and sorted; row errors and corrections keep row-then-field order.
type Report struct {
	CriticalErrors []string     `json:"critical_errors"`
	Warnings       []string     `json:"warnings"`
	RowErrors      []RowError   `json:"row_errors"`
	Corrections    []Correction `json:"corrections"`
}

// Rows is an ordered collection of output rows, the first of which is the
// original header.
type Rows [][]string

// Result is the pipeline's terminal output: the report plus the two
// corrected variants of the file. FormatRows carries only deterministic
// format corrections; FullRows additionally carries postal-lookup overrides.
// The two can differ only in fields touched by a successful lookup.
type Result struct {
	Report     Report
	FormatRows Rows
	FullRows   Rows
}

// HasCritical reports whether the run aborted before row processing.
func (r *Result) HasCritical() bool {
	return len(r.Report.CriticalErrors) > 0
}
