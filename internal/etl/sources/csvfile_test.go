package sources

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/text/encoding"

	"csvjson/internal/etl"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readAll(t *testing.T, typ, path string) ([]etl.Record, error) {
	t.Helper()
	return readWith(t, typ, etl.SourceConfig{"filePath": path})
}

func readWith(t *testing.T, typ string, cfg etl.SourceConfig) ([]etl.Record, error) {
	t.Helper()
	src, err := etl.GetSource(typ)
	require.NoError(t, err)
	recCh, errCh := src.Read(context.Background(), cfg)
	var out []etl.Record
	for rec := range recCh {
		out = append(out, rec)
	}
	return out, <-errCh
}

func TestCSVSource_HeaderKeysAndOrder(t *testing.T) {
	path := writeTemp(t, "a.csv", "b,a,c\n1,2,3\n4,5,6\n")

	rows, err := readAll(t, "csv_file", path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"b", "a", "c"}, rows[0].Keys())
	v, _ := rows[1].Get("c")
	assert.Equal(t, "6", v)
}

func TestCSVSource_RaggedRows(t *testing.T) {
	path := writeTemp(t, "r.csv", "name,city,state\nJo\nAl,Lyon,ARA,extra\n")

	rows, err := readAll(t, "csv_file", path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	city, ok := rows[0].Get("city")
	assert.True(t, ok, "short row keeps the column")
	assert.Equal(t, "", city)
	assert.Equal(t, 3, rows[1].Len(), "values past the header are dropped")
}

func TestCSVSource_DuplicateHeaderLaterWins(t *testing.T) {
	path := writeTemp(t, "d.csv", "name,city,name\nfirst,Lyon,second\n")

	rows, err := readAll(t, "csv_file", path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"name", "city"}, rows[0].Keys())
	name, _ := rows[0].Get("name")
	assert.Equal(t, "second", name)
}

func TestCSVSource_StripsBOM(t *testing.T) {
	path := writeTemp(t, "bom.csv", "\ufeffname,ssn\nJo,1\n")

	rows, err := readAll(t, "csv_file", path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	name, ok := rows[0].Get("name")
	assert.True(t, ok)
	assert.Equal(t, "Jo", name)
}

func TestCSVSource_SkipsBlankLines(t *testing.T) {
	path := writeTemp(t, "blank.csv", "name\n\nJo\n\n\nAl\n")

	rows, err := readAll(t, "csv_file", path)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestCSVSource_MissingFile(t *testing.T) {
	_, err := readAll(t, "csv_file", filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCSVSource_RequiresPath(t *testing.T) {
	_, err := readAll(t, "csv_file", "")
	assert.EqualError(t, err, "filePath is required")
}

func TestTSVSource_Tabs(t *testing.T) {
	path := writeTemp(t, "a.tsv", "name\tcity\nJo\tA, B\n")

	rows, err := readAll(t, "tsv_file", path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	city, _ := rows[0].Get("city")
	assert.Equal(t, "A, B", city)
}

func TestDiscover(t *testing.T) {
	src, err := etl.GetSource("csv_file")
	require.NoError(t, err)

	schema, err := src.Discover(context.Background(), etl.SourceConfig{"filePath": writeTemp(t, "h.csv", "x,y\n1,2\n")})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, schema.FieldNames())

	empty, err := src.Discover(context.Background(), etl.SourceConfig{"filePath": writeTemp(t, "e.csv", "")})
	require.NoError(t, err)
	assert.Empty(t, empty.Fields)
}

func TestSourceForPath(t *testing.T) {
	cases := map[string]string{
		"/data/a.csv": "csv_file",
		"/data/a.CSV": "csv_file",
		"/data/a.tsv": "tsv_file",
		"/data/a.dat": "csv_file",
		"/data/noext": "csv_file",
		"/data/x.tab": "tsv_file",
	}
	for path, want := range cases {
		src, err := etl.SourceForPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, src.Spec().Type, path)
	}
}

func TestListSources(t *testing.T) {
	specs := etl.ListSources()
	require.Len(t, specs, 2)
	assert.Equal(t, "csv_file", specs[0].Type)
	assert.Equal(t, "tsv_file", specs[1].Type)
}

func TestCSVSource_InvalidUTF8FailsRead(t *testing.T) {
	path := writeTemp(t, "latin1.csv", "name,city\nJo,Lyon\nJos\xe9,M\xfcnchen\n")

	_, err := readAll(t, "csv_file", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, encoding.ErrInvalidUTF8)
	assert.Contains(t, err.Error(), "invalid UTF-8 on line 3")
}

func TestCSVSource_InvalidUTF8AfterBOM(t *testing.T) {
	path := writeTemp(t, "bom.csv", "\ufeffname\nJos\xe9\n")

	_, err := readAll(t, "csv_file", path)
	assert.ErrorIs(t, err, encoding.ErrInvalidUTF8)
}

func TestCSVSource_InvalidUTF8InHeader(t *testing.T) {
	path := writeTemp(t, "h.csv", "na\xffme\nJo\n")

	_, err := readAll(t, "csv_file", path)
	assert.ErrorIs(t, err, encoding.ErrInvalidUTF8)

	src, err := etl.GetSource("csv_file")
	require.NoError(t, err)
	_, err = src.Discover(context.Background(), etl.SourceConfig{"filePath": path})
	assert.ErrorIs(t, err, encoding.ErrInvalidUTF8)
}

func TestCSVSource_DelimiterOverride(t *testing.T) {
	path := writeTemp(t, "semi.csv", "name;city\nJo;Lyon\n")

	rows, err := readWith(t, "csv_file", etl.SourceConfig{"filePath": path, "delimiter": ";"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	city, _ := rows[0].Get("city")
	assert.Equal(t, "Lyon", city)

	tabbed := writeTemp(t, "t.csv", "name\tcity\nJo\tLyon\n")
	rows, err = readWith(t, "csv_file", etl.SourceConfig{"filePath": tabbed, "delimiter": `\t`})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Len())
}

func TestCSVSource_RejectsMultiCharDelimiter(t *testing.T) {
	path := writeTemp(t, "p.csv", "name||city\nJo||Lyon\n")

	for _, delim := range []string{"||", "ab", "\xff"} {
		_, err := readWith(t, "csv_file", etl.SourceConfig{"filePath": path, "delimiter": delim})
		assert.ErrorContains(t, err, "must be a single character", delim)
	}
}
