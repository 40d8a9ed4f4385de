package loader

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const harvestCSV = "plot,yield,moisture,grade\n" +
	"A1,12.5,74,gold\n" +
	"A2,11.8,,silver\n" +
	"B3,NA,68,gold\n" +
	"B4,10.2,70\n"

func TestLoadCSVTypesAndNulls(t *testing.T) {
	ds, err := Load([]byte(harvestCSV), "csv", Options{})
	require.NoError(t, err)
	require.Equal(t, 4, ds.Len())
	assert.Equal(t, []dataset.Column{
		{Name: "plot", Type: dataset.Categorical},
		{Name: "yield", Type: dataset.Numeric},
		{Name: "moisture", Type: dataset.Numeric},
		{Name: "grade", Type: dataset.Categorical},
	}, ds.Columns)
	assert.True(t, ds.Rows[1][2].IsNull(), "empty cell is null")
	assert.True(t, ds.Rows[2][1].IsNull(), "NA is null")
	assert.True(t, ds.Rows[3][3].IsNull(), "short row is padded")
	assert.Equal(t, []float64{12.5, 11.8, 10.2}, ds.Floats(1))
}

func TestLoadCSVHeaderOnly(t *testing.T) {
	ds, err := Load([]byte("a,b\n"), "csv", Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Len())
	assert.Equal(t, 2, ds.Width())
}

func TestLoadCSVRejectsWideRows(t *testing.T) {
	_, err := Load([]byte("a,b\n1,2,3\n"), "csv", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 fields")
}

func TestLoadCSVMalformedQuote(t *testing.T) {
	_, err := Load([]byte("a,b\n\"1,2\n3,\"x\"y\n"), "csv", Options{})
	assert.Error(t, err)
}

func TestLoadCSVDuplicateAndBlankHeaders(t *testing.T) {
	ds, err := Load([]byte("\ufeffid,id,,id\n1,2,3,4\n"), "csv", Options{})
	require.NoError(t, err)
	names := make([]string, 0, ds.Width())
	for _, c := range ds.Columns {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"id", "id.1", "Unnamed: 2", "id.2"}, names)
}

func TestLoadCSVInfinityAndNaNSpelling(t *testing.T) {
	ds, err := Load([]byte("x,y\ninf,Nan\n1,2\n"), "csv", Options{})
	require.NoError(t, err)
	assert.Equal(t, dataset.Numeric, ds.Columns[0].Type)
	assert.Equal(t, dataset.Categorical, ds.Columns[1].Type, "NaN payloads never enter numeric columns")
	f, _ := ds.Rows[0][0].Float()
	assert.True(t, math.IsInf(f, 1))
}

func TestLoadTSV(t *testing.T) {
	ds, err := Load([]byte("a\tb\n1\tx\n"), "tsv", Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Width())
}

func TestLoadJSONRecordsPreservesKeyOrder(t *testing.T) {
	in := `[
		{"zeta": 1, "alpha": "a", "flag": true},
		{"alpha": "b", "zeta": 2.5, "extra": null},
		{"zeta": null, "alpha": "c", "extra": {"nested": 1}}
	]`
	ds, err := Load([]byte(in), "json", Options{})
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())
	assert.Equal(t, []dataset.Column{
		{Name: "zeta", Type: dataset.Numeric},
		{Name: "alpha", Type: dataset.Categorical},
		{Name: "flag", Type: dataset.Categorical},
		{Name: "extra", Type: dataset.Categorical},
	}, ds.Columns)
	s, _ := ds.Rows[0][2].Text()
	assert.Equal(t, "true", s)
	assert.True(t, ds.Rows[1][2].IsNull(), "absent key is null")
	assert.True(t, ds.Rows[2][0].IsNull())
	raw, _ := ds.Rows[2][3].Text()
	assert.JSONEq(t, `{"nested": 1}`, raw)
}

func TestLoadJSONColumnsOrientation(t *testing.T) {
	ds, err := Load([]byte(`{"x": {"1": 20, "0": 10}, "y": ["a", "b"]}`), "json", Options{})
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20}, ds.Floats(0))
	assert.Equal(t, []string{"a", "b"}, ds.Texts(1))
}

func TestLoadJSONErrors(t *testing.T) {
	_, err := Load([]byte(`[{"a": 1}, 3]`), "json", Options{})
	assert.ErrorContains(t, err, "record 1 is not an object")

	_, err = Load([]byte(`{"a": 1`), "json", Options{})
	assert.ErrorContains(t, err, "invalid JSON")

	_, err = Load([]byte(`"text"`), "json", Options{})
	assert.Error(t, err)
}

func TestLoadJSONEmptyArray(t *testing.T) {
	ds, err := Load([]byte(`[]`), "json", Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Len())
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := Load([]byte("a,b\n1,2\n"), "parquet", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
	assert.Contains(t, err.Error(), "csv")
}

func TestLoadEmptyInput(t *testing.T) {
	_, err := Load([]byte("  \n"), "csv", Options{})
	assert.True(t, errors.Is(err, ErrEmptyInput))
}

func TestLoadGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(harvestCSV))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	ds, err := Load(buf.Bytes(), "csv", Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, ds.Len())
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_, err := f.NewSheet("Data")
	require.NoError(t, err)
	rows := [][]interface{}{
		{"species", "length"},
		{"setosa", 5.1},
		{"virginica", 6.3},
		{"setosa"},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Data", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	ds, err := Load(buf.Bytes(), "xlsx", Options{Sheet: "data"})
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())
	assert.Equal(t, dataset.Numeric, ds.Columns[1].Type)
	assert.True(t, ds.Rows[2][1].IsNull())

	_, err = Load(buf.Bytes(), "xlsx", Options{Sheet: "missing"})
	assert.ErrorContains(t, err, "not found")
}

func TestDetectFormatAndLoadFile(t *testing.T) {
	for name, want := range map[string]string{
		"a.csv": "csv", "B.JSON": "json", "c.tsv.gz": "tsv", "d.xlsx": "xlsx",
	} {
		got, err := DetectFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := DetectFormat("notes.txt")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	dir := t.TempDir()
	p := filepath.Join(dir, "harvest.csv")
	require.NoError(t, os.WriteFile(p, []byte(harvestCSV), 0o644))
	ds, err := LoadFile(p, "", Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, ds.Len())

	ds, err = Read(strings.NewReader(`[{"a": 1}]`), "JSON", Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
}
