package core

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/Guilhermefoliveira/csv-validador/internal/detect"
)

// record is one input data row keyed by raw column name. Records are read
// once and never mutated; every pipeline stage works on derived copies.
type record map[string]string

// empty reports whether every raw value is the empty string.
func (r record) empty() bool {
	for _, v := range r {
		if v != "" {
			return false
		}
	}
	return true
}

// readRecords reads all data rows using the detected encoding and delimiter.
// Rows shorter than the header get empty strings for the missing columns;
// extra trailing fields are dropped.
func readRecords(path string, det *detect.Result) ([]record, error) {
	r, closer, err := detect.NewReader(path, det.Encoding)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	cr := csv.NewReader(r)
	cr.Comma = det.Delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var records []record
	first := true
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading rows: %w", err)
		}
		if first {
			first = false
			continue
		}
		rec := make(record, len(det.Header))
		for i, col := range det.Header {
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
