package detect

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestFileUTF8Semicolon(t *testing.T) {
	path := writeFile(t, []byte("NAME;CITY;STATE\nMaria;Recife;PE\n"))

	res, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"NAME", "CITY", "STATE"}, res.Header)
	assert.Equal(t, ';', res.Delimiter)
	assert.Equal(t, "utf-8-sig", res.Encoding)
	assert.Contains(t, res.Message, "utf-8-sig")
}

func TestFileUTF8BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("NAME,CITY\nJoana,Natal\n")...)
	path := writeFile(t, data)

	res, err := File(path)
	require.NoError(t, err)
	// The BOM must not leak into the first column name.
	assert.Equal(t, []string{"NAME", "CITY"}, res.Header)
	assert.Equal(t, ',', res.Delimiter)
	assert.Equal(t, "utf-8-sig", res.Encoding)
}

func TestFileLatin1(t *testing.T) {
	// "São Paulo" encoded in Latin-1: a bare 0xE3 is invalid UTF-8.
	data := []byte("NAME;CITY\nJo\xe3o;S\xe3o Paulo\n")
	path := writeFile(t, data)

	res, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, "latin-1", res.Encoding)
	assert.Equal(t, ';', res.Delimiter)

	// Reading through NewReader must produce decoded UTF-8.
	r, closer, err := NewReader(path, res.Encoding)
	require.NoError(t, err)
	defer closer.Close()
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Contains(t, string(content), "São Paulo")
}

func TestFileUTF8RuneSplitAtSampleBoundary(t *testing.T) {
	// Place "ã" (0xC3 0xA3) so the sample window ends on its first byte. The
	// truncated sequence must not disqualify a valid UTF-8 file.
	prefix := "NAME;CITY\nAna;"
	data := prefix + strings.Repeat("x", sampleSize-1-len(prefix)) + "ão Paulo\nBia;Recife\n"
	require.Equal(t, byte(0xC3), data[sampleSize-1])
	path := writeFile(t, []byte(data))

	res, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, "utf-8-sig", res.Encoding)
	assert.Equal(t, ';', res.Delimiter)
	assert.Equal(t, []string{"NAME", "CITY"}, res.Header)
}

func TestTrimPartialRune(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{name: "complete rune kept", in: []byte("abcã"), want: []byte("abcã")},
		{name: "two-byte rune cut", in: []byte{'a', 0xC3}, want: []byte{'a'}},
		{name: "four-byte rune cut after two", in: []byte{'a', 0xF0, 0x9F}, want: []byte{'a'}},
		{name: "stray continuation byte kept", in: []byte{'a', 0xA3}, want: []byte{'a', 0xA3}},
		{name: "ascii untouched", in: []byte("abc"), want: []byte("abc")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, trimPartialRune(tt.in))
		})
	}
}

func TestFileEmpty(t *testing.T) {
	path := writeFile(t, nil)

	_, err := File(path)
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestFileNoDelimiter(t *testing.T) {
	path := writeFile(t, []byte("JUSTONECOLUMN\nvalue\n"))

	_, err := File(path)
	assert.ErrorIs(t, err, ErrUndecodable)
}

func TestFileMissing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		name    string
		sample  string
		want    rune
		wantErr bool
	}{
		{name: "semicolon", sample: "a;b;c\n1;2;3\n", want: ';'},
		{name: "comma", sample: "a,b,c\n1,2,3\n", want: ','},
		{
			name: "consistency wins over raw count",
			// Commas appear inside a field but only the semicolon count is
			// stable across lines.
			sample: "name;address\nAna;Rua A, 10\nBia;Rua B, 20, fundos\n",
			want:   ';',
		},
		{name: "no candidate", sample: "plain text only\nmore text\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sniffDelimiter([]byte(tt.sample))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewReaderUnknownEncoding(t *testing.T) {
	path := writeFile(t, []byte("a;b\n"))
	_, _, err := NewReader(path, "utf-16")
	assert.Error(t, err)
}

func TestBOMSkippingReaderShortFile(t *testing.T) {
	// Files shorter than the BOM must pass through untouched.
	r := newBOMSkippingReader(strings.NewReader("ab"))
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(content))
}
