package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Guilhermefoliveira/csv-validador/internal/cep"
	"github.com/Guilhermefoliveira/csv-validador/internal/detect"
	"github.com/Guilhermefoliveira/csv-validador/internal/rules"
	"github.com/Guilhermefoliveira/csv-validador/internal/schema"
)

// Resolver is the postal-lookup dependency of the pipeline.
// Satisfied by *cep.Client; tests substitute a stub.
type Resolver interface {
	// Normalize reduces a raw postal value to its 8-digit lookup key,
	// reporting false for values not eligible for lookup.
	Normalize(raw string) (string, bool)
	// Prewarm resolves the distinct codes and returns the completed cache.
	Prewarm(ctx context.Context, codes []string) map[string]cep.Result
}

// Options controls a single validation run.
type Options struct {
	// HeaderMap is an optional explicit mapping from raw column names to
	// canonical fields. Unlisted columns fall back to case-insensitive
	// auto-matching.
	HeaderMap schema.HeaderMap
	// Lookup enables the postal-code cross-check against external providers.
	Lookup bool
}

// Pipeline validates and corrects delimited address files.
type Pipeline struct {
	resolver Resolver
}

// New creates a pipeline backed by the given postal resolver.
func New(resolver Resolver) *Pipeline {
	return &Pipeline{resolver: resolver}
}

// apiOverlay maps lookup result fields onto canonical fields, in the order
// corrections are recorded.
var apiOverlay = []struct {
	field string
	value func(*cep.Address) string
}{
	{"ADDRESS", func(a *cep.Address) string { return a.Street }},
	{"DISTRICT", func(a *cep.Address) string { return a.District }},
	{"CITY", func(a *cep.Address) string { return a.City }},
	{"STATE", func(a *cep.Address) string { return a.State }},
}

// ValidateFile runs the whole pipeline over the file at path.
//
// Detection failures (undecodable file, empty file) come back as the report's
// sole critical error with no rows processed. The returned error is reserved
// for unexpected failures outside the report taxonomy, such as the file
// becoming unreadable mid-run.
func (p *Pipeline) ValidateFile(ctx context.Context, path string, opts Options) (*Result, error) {
	res := &Result{Report: Report{
		CriticalErrors: []string{},
		Warnings:       []string{},
		RowErrors:      []RowError{},
		Corrections:    []Correction{},
	}}

	det, err := detect.File(path)
	if err != nil {
		if errors.Is(err, detect.ErrEmptyFile) || errors.Is(err, detect.ErrUndecodable) {
			res.Report.CriticalErrors = append(res.Report.CriticalErrors, err.Error())
			return res, nil
		}
		return nil, err
	}

	records, err := readRecords(path, det)
	if err != nil {
		return nil, err
	}

	r := &run{
		header:   det.Header,
		delim:    det.Delimiter,
		override: opts.HeaderMap,
		report:   &res.Report,
		warnings: map[string]struct{}{det.Message: {}},
	}

	if opts.Lookup {
		if col, ok := schema.PostalColumn(det.Header, opts.HeaderMap); ok {
			r.cache = p.resolver.Prewarm(ctx, distinctCodes(p.resolver, records, col))
		} else {
			r.warn("no column maps to POSTAL_CODE, address lookup skipped")
		}
	}

	res.FormatRows = Rows{det.Header}
	res.FullRows = Rows{det.Header}
	for i, rec := range records {
		rowNum := i + 2 // header is row 1
		formatRow, fullRow, ok := r.processRow(rowNum, rec)
		if !ok {
			continue
		}
		res.FormatRows = append(res.FormatRows, formatRow)
		res.FullRows = append(res.FullRows, fullRow)
	}

	for w := range r.warnings {
		res.Report.Warnings = append(res.Report.Warnings, w)
	}
	sort.Strings(res.Report.Warnings)

	return res, nil
}

// distinctCodes collects the deduplicated set of lookup-eligible codes from
// the postal column across all records.
func distinctCodes(resolver Resolver, records []record, postalCol string) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		if code, ok := resolver.Normalize(rec[postalCol]); ok {
			seen[code] = struct{}{}
		}
	}
	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	return codes
}

// run carries the per-file state shared by every row.
type run struct {
	header   []string
	delim    rune
	override schema.HeaderMap
	// cache is the read-only postal lookup map, nil when lookup is inactive.
	cache    map[string]cep.Result
	report   *Report
	warnings map[string]struct{}
}

func (r *run) warn(msg string) {
	r.warnings[msg] = struct{}{}
}

func (r *run) rowError(row int, field, msg string) {
	r.report.RowErrors = append(r.report.RowErrors, RowError{Row: row, Field: field, Message: msg})
}

func (r *run) correct(row int, field, original, corrected string, source Source) {
	r.report.Corrections = append(r.report.Corrections, Correction{
		Row:       row,
		Field:     field,
		Original:  original,
		Corrected: corrected,
		Source:    source,
	})
}

// processRow runs one record through the full value chain and projects it
// into the two output variants. The third return value is false when the row
// is empty and excluded from all outputs.
func (r *run) processRow(rowNum int, rec record) ([]string, []string, bool) {
	if rec.empty() {
		return nil, nil, false
	}

	// Map raw columns onto canonical fields. When two raw columns resolve to
	// the same field, the later column wins, matching header order.
	mapped := make(map[string]string)
	for _, col := range r.header {
		if field, ok := schema.Canonical(col, r.override); ok {
			mapped[field] = rec[col]
		}
	}

	// Stage 1: sanitize. Changes are Cleanup corrections against the raw value.
	sanitized := make(map[string]string, len(mapped))
	for _, field := range schema.Fields {
		raw, ok := mapped[field]
		if !ok {
			continue
		}
		clean := rules.Sanitize(raw, r.delim)
		sanitized[field] = clean
		if clean != raw {
			r.correct(rowNum, field, raw, clean, SourceCleanup)
		}
	}

	// Stage 2: deterministic format corrections.
	format := copyValues(sanitized)
	for _, field := range schema.Fields {
		v, ok := format[field]
		if !ok {
			continue
		}
		rule, hasRule := rules.ForField(field)
		if !hasRule || rule.Correct == nil {
			continue
		}
		if corrected := rule.Correct(v); corrected != v {
			format[field] = corrected
			r.correct(rowNum, field, v, corrected, SourceFormat)
		}
	}

	// Stage 3: postal-lookup overlay, layered strictly on top of the
	// format-corrected snapshot so the two variants differ only here.
	full := copyValues(format)
	if r.cache != nil {
		r.applyLookup(rowNum, full)
	}

	// Stage 4: validate the fully-corrected snapshot. All applicable checks
	// run; nothing short-circuits past the first failure.
	for _, field := range schema.Fields {
		v, ok := full[field]
		if !ok {
			continue
		}
		if schema.IsRequired(field) && v == "" {
			r.rowError(rowNum, field, "required field is empty")
			continue
		}
		if v == "" {
			continue
		}
		if rule, hasRule := rules.ForField(field); hasRule && rule.Validate != nil && !rule.Validate(v) {
			r.rowError(rowNum, field, rule.Message)
		}
	}

	return r.project(rec, format), r.project(rec, full), true
}

// applyLookup overlays the cached lookup result for the row's postal code
// onto the four address fields. Provider values replace the current value
// only when non-empty and different under case-insensitive comparison.
func (r *run) applyLookup(rowNum int, full map[string]string) {
	key := rules.Digits(full["POSTAL_CODE"])
	res, ok := r.cache[key]
	if !ok {
		return
	}
	if res.Failed() {
		r.warn(fmt.Sprintf("row %d, postal code %s: %s", rowNum, full["POSTAL_CODE"], res.Err))
		return
	}
	for _, o := range apiOverlay {
		v := strings.TrimSpace(o.value(res.Address))
		if v == "" || strings.EqualFold(v, full[o.field]) {
			continue
		}
		r.correct(rowNum, o.field, full[o.field], v, SourceAPI)
		full[o.field] = v
	}
}

// project builds a full output row in original header order, substituting
// corrected values for canonical columns and passing everything else through
// untouched.
func (r *run) project(rec record, values map[string]string) []string {
	row := make([]string, 0, len(r.header))
	for _, col := range r.header {
		if field, ok := schema.Canonical(col, r.override); ok {
			row = append(row, values[field])
		} else {
			row = append(row, rec[col])
		}
	}
	return row
}

func copyValues(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
