package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// OutputDelimiter is the delimiter corrected files are written with,
// regardless of what the input used.
const OutputDelimiter = ';'

var cellWhitespace = regexp.MustCompile(`\s+`)

// WriteCSV serializes a row collection as UTF-8 delimited text with minimal
// quoting. Every cell has internal whitespace runs collapsed and surrounding
// whitespace trimmed.
func WriteCSV(w io.Writer, rows Rows) error {
	cw := csv.NewWriter(w)
	cw.Comma = OutputDelimiter
	for _, row := range rows {
		clean := make([]string, len(row))
		for i, cell := range row {
			clean[i] = strings.TrimSpace(cellWhitespace.ReplaceAllString(cell, " "))
		}
		if err := cw.Write(clean); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes a row collection to the file at path.
func SaveCSV(path string, rows Rows) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
