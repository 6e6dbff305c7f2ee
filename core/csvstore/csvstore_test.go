package csvstore

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/wealthkg/core/analysis"
	"github.com/adalundhe/wealthkg/core/degree"
)

func sampleTable() *degree.Table {
	return degree.Merge(
		[]degree.Count{{Entity: "http://ex.org/a", N: 4}, {Entity: "http://ex.org/b, inc", N: 1}},
		[]degree.Count{{Entity: "http://ex.org/a", N: 2}, {Entity: "http://ex.org/c", N: 9}},
	)
}

func TestWriteReadTable_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleTable()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "entity,pCount,iCount,totalCount", lines[0])
	assert.Len(t, lines, 4)

	got, err := ReadTable(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleTable().Rows(), got.Rows())
}

func TestReadTable_PandasLayout(t *testing.T) {
	in := `,s,pCount,iCount,totalCount
0,http://ex.org/a,3.0,,3.0
1,http://ex.org/b,NaN,2,
2,http://ex.org/c,1,1,2
`
	got, err := ReadTable(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 3, got.Len())

	assert.Equal(t, degree.NewRow("http://ex.org/a", 3, 0), got.Row(0))
	assert.Equal(t, degree.NewRow("http://ex.org/b", 0, 2), got.Row(1))
	assert.Equal(t, 2, got.Row(1).Total)
	assert.Equal(t, "http://ex.org/c", got.Row(2).Entity)
}

func TestReadTable_Errors(t *testing.T) {
	_, err := ReadTable(strings.NewReader("name,pCount,iCount\nx,1,1\n"))
	assert.Error(t, err)

	_, err = ReadTable(strings.NewReader("entity,pCount\nx,1\n"))
	assert.Error(t, err)

	_, err = ReadTable(strings.NewReader("entity,pCount,iCount\nx,lots,1\n"))
	assert.ErrorContains(t, err, "line 2")

	empty, err := ReadTable(strings.NewReader(""))
	require.NoError(t, err)
	assert.True(t, empty.Empty())
}

func TestClassKey(t *testing.T) {
	assert.Equal(t, "Q5", ClassKey("http://www.wikidata.org/entity/Q5"))
	assert.Equal(t, "Person", ClassKey("http://dbpedia.org/ontology/Person"))
	assert.Equal(t, "wd:Q5", ClassKey("wd:Q5"))
	assert.Equal(t, "class", ClassKey("http://ex.org/"))
}

func TestWriteReadFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	rs := analysis.NewResultSet()
	rs.Add("http://ex.org/Zeta", sampleTable())
	rs.Add("http://ex.org/Alpha", degree.NewTable([]degree.Row{degree.NewRow("x", 1, 1)}))
	rs.Add("http://ex.org/Empty", degree.EmptyTable())
	require.NoError(t, WriteFolder(dir, rs))

	for _, name := range []string{"Zeta.csv", "Alpha.csv", "Empty.csv"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0644))

	loaded, err := ReadFolder(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Zeta"}, loaded.Classes())

	zeta, ok := loaded.Table("Zeta")
	require.True(t, ok)
	assert.Equal(t, sampleTable().Rows(), zeta.Rows())

	onlyZ, err := ReadFolder(dir, "Z*.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"Zeta"}, onlyZ.Classes())
}

func TestReadFolder_Errors(t *testing.T) {
	_, err := ReadFolder(filepath.Join(t.TempDir(), "missing"), "")
	assert.Error(t, err)

	_, err = ReadFolder(t.TempDir(), "[")
	assert.Error(t, err)
}
