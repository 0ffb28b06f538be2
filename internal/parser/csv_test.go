package parser_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/citycluster-cli/internal/parser"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestParseFileCSV_HeaderAndRows(t *testing.T) {
	p := writeFile(t, "wards.csv", "\ufeffWard, Population ,population_density\n"+
		"Adyar,100,12.5\n"+
		"Mylapore,200,\n")

	rec, err := parser.ParseFile(p, parser.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ward", "Population", "population_density"}, rec.Header)
	require.Len(t, rec.Rows, 2)
	assert.Equal(t, []string{"Mylapore", "200", ""}, rec.Rows[1])
	assert.False(t, rec.Truncated)
}

func TestParseFileCSV_SniffsSemicolon(t *testing.T) {
	p := writeFile(t, "wards.csv", "Ward;Population\nAdyar;100\n")

	rec, err := parser.ParseFile(p, parser.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ward", "Population"}, rec.Header)
	assert.Equal(t, [][]string{{"Adyar", "100"}}, rec.Rows)
}

func TestParseFileTSV(t *testing.T) {
	p := writeFile(t, "wards.tsv", "Ward\tPopulation\nAdyar\t100\n")

	rec, err := parser.ParseFile(p, parser.Options{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Adyar", "100"}}, rec.Rows)
}

func TestParseFileCSV_MaxRows(t *testing.T) {
	p := writeFile(t, "wards.csv", "a,b\n1,2\n3,4\n5,6\n")

	rec, err := parser.ParseFile(p, parser.Options{MaxRows: 2})
	require.NoError(t, err)
	assert.Len(t, rec.Rows, 2)
	assert.True(t, rec.Truncated)
}

func TestParseFileCSV_EmptyFile(t *testing.T) {
	p := writeFile(t, "empty.csv", "")

	_, err := parser.ParseFile(p, parser.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header row required")
}

func TestParseFileCSV_MalformedQuote(t *testing.T) {
	p := writeFile(t, "bad.csv", "a,b\n\"unterminated,2\n")

	_, err := parser.ParseFile(p, parser.Options{})
	require.Error(t, err)
}
