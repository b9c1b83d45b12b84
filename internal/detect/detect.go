// Package detect determines the character encoding and field delimiter of an
// input file before any row processing happens.
//
// Detection tries a fixed ordered list of candidate encodings. For each
// candidate it decodes a fixed-size sample, sniffs the delimiter from a
// restricted candidate set, and parses the first row as the header. The first
// encoding for which all three steps succeed wins; there is no partial
// success. Exhausting every candidate yields ErrUndecodable.
package detect

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ErrEmptyFile is returned when the sample contains no data at all.
var ErrEmptyFile = errors.New("file is empty")

// ErrUndecodable is returned when no candidate encoding could decode the file
// and produce a header.
var ErrUndecodable = errors.New("could not decode the file or determine its format")

// sampleSize is how many raw bytes are inspected during detection.
const sampleSize = 4096

// utf8BOM is the byte order mark Windows tools prepend to UTF-8 files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// delimiters is the restricted candidate set the sniffer chooses from.
var delimiters = []rune{';', ','}

// Result describes how the input file should be read.
type Result struct {
	Header    []string
	Delimiter rune
	Encoding  string
	// Message is a human-readable diagnostic describing what was detected.
	Message string
}

// encodingSpec pairs a candidate encoding name with its decoding behavior.
type encodingSpec struct {
	name string
	// decode converts raw file bytes to UTF-8, or fails if the bytes are not
	// valid in this encoding.
	decode func([]byte) ([]byte, error)
	// reader wraps a raw file reader with the matching streaming decoder.
	reader func(io.Reader) io.Reader
}

// encodings is the fixed candidate list, tried in order. UTF-8 is strict
// (invalid sequences reject the candidate); Latin-1 accepts any byte stream,
// making it the effective catch-all, with Windows-1252 kept for parity with
// the candidate set the tool has always advertised.
var encodings = []encodingSpec{
	{
		name: "utf-8-sig",
		decode: func(b []byte) ([]byte, error) {
			b = bytes.TrimPrefix(b, utf8BOM)
			if !utf8.Valid(b) {
				return nil, errors.New("invalid UTF-8")
			}
			return b, nil
		},
		reader: func(r io.Reader) io.Reader { return newBOMSkippingReader(r) },
	},
	{
		name: "latin-1",
		decode: func(b []byte) ([]byte, error) {
			return charmap.ISO8859_1.NewDecoder().Bytes(b)
		},
		reader: func(r io.Reader) io.Reader {
			return transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
		},
	},
	{
		name: "windows-1252",
		decode: func(b []byte) ([]byte, error) {
			return charmap.Windows1252.NewDecoder().Bytes(b)
		},
		reader: func(r io.Reader) io.Reader {
			return transform.NewReader(r, charmap.Windows1252.NewDecoder())
		},
	},
}

// File detects the encoding, delimiter, and header of the file at path.
func File(path string) (*Result, error) {
	sample, err := readSample(path)
	if err != nil {
		return nil, err
	}
	if len(sample) == 0 {
		return nil, ErrEmptyFile
	}

	for _, enc := range encodings {
		decoded, err := enc.decode(sample)
		if err != nil {
			continue
		}
		delim, err := sniffDelimiter(decoded)
		if err != nil {
			continue
		}
		header, err := readHeader(path, enc, delim)
		if err != nil || len(header) == 0 {
			continue
		}
		return &Result{
			Header:    header,
			Delimiter: delim,
			Encoding:  enc.name,
			Message:   fmt.Sprintf("file read with encoding %q and delimiter %q", enc.name, string(delim)),
		}, nil
	}
	return nil, ErrUndecodable
}

// NewReader opens the file at path and wraps it in the decoder for the given
// encoding name. The caller owns the returned closer.
func NewReader(path, encoding string) (io.Reader, io.Closer, error) {
	for _, enc := range encodings {
		if enc.name != encoding {
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening %s: %w", path, err)
		}
		return enc.reader(f), f, nil
	}
	return nil, nil, fmt.Errorf("unknown encoding %q", encoding)
}

func readSample(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, sampleSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if n == sampleSize {
		// The sample window may have cut a multi-byte rune in half, which
		// would wrongly disqualify the UTF-8 candidate for a valid file.
		return trimPartialRune(buf[:n]), nil
	}
	return buf[:n], nil
}

// trimPartialRune drops an incomplete trailing UTF-8 sequence. Invalid bytes
// that are not a truncated sequence are kept, so genuinely non-UTF-8 samples
// still reject the candidate.
func trimPartialRune(b []byte) []byte {
	end := len(b)
	for i := 1; i <= utf8.UTFMax && i <= end; i++ {
		c := b[end-i]
		if c < utf8.RuneSelf {
			break
		}
		if c&0xC0 == 0xC0 { // leading byte of a multi-byte sequence
			if !utf8.FullRune(b[end-i:]) {
				return b[:end-i]
			}
			break
		}
	}
	return b
}

// sniffDelimiter picks the delimiter whose per-line count is most consistent
// across the sampled lines. A candidate that never appears is rejected; a tie
// is broken by candidate order.
func sniffDelimiter(sample []byte) (rune, error) {
	lines := completeLines(sample)
	if len(lines) == 0 {
		return 0, errors.New("no complete line in sample")
	}

	best := rune(0)
	bestScore := -1
	for _, cand := range delimiters {
		score := delimiterScore(lines, cand)
		if score > bestScore {
			best, bestScore = cand, score
		}
	}
	if bestScore <= 0 {
		return 0, errors.New("could not determine delimiter")
	}
	return best, nil
}

// completeLines splits the sample into lines, dropping a trailing fragment
// that may have been cut mid-line by the sample window.
func completeLines(sample []byte) []string {
	raw := bytes.Split(sample, []byte("\n"))
	if len(raw) > 1 && len(raw[len(raw)-1]) > 0 {
		raw = raw[:len(raw)-1]
	}
	var lines []string
	for _, l := range raw {
		l = bytes.TrimRight(l, "\r")
		if len(l) > 0 {
			lines = append(lines, string(l))
		}
	}
	return lines
}

// delimiterScore rewards candidates that appear on the first line and show a
// consistent count on every sampled line.
func delimiterScore(lines []string, delim rune) int {
	first := countRune(lines[0], delim)
	if first == 0 {
		return 0
	}
	consistent := true
	for _, l := range lines[1:] {
		if countRune(l, delim) != first {
			consistent = false
			break
		}
	}
	score := first
	if consistent {
		score += 1000
	}
	return score
}

func countRune(s string, r rune) int {
	n := 0
	for _, c := range s {
		if c == r {
			n++
		}
	}
	return n
}

// readHeader parses the first record of the file under the candidate
// encoding and delimiter.
func readHeader(path string, enc encodingSpec, delim rune) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(enc.reader(f))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr.Read()
}
