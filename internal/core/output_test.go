package core

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	rows := Rows{
		{"NAME", "CITY", "NOTES"},
		{"  Ana   Lima ", "Recife", "left; right"},
		{"Bia\tSouza", "São\n Paulo", ""},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	// Whitespace runs collapse, cells trim, and only the cell containing the
	// delimiter gets quoted.
	assert.Equal(t,
		"NAME;CITY;NOTES\n"+
			"Ana Lima;Recife;\"left; right\"\n"+
			"Bia Souza;São Paulo;\n",
		buf.String())
}

func TestSaveCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "result.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	require.NoError(t, SaveCSV(path, Rows{{"A", "B"}, {"1", "2"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "A;B\n1;2\n", string(data))
}
