package xlsxwriter

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/types"
)

func open(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func row(col1 any, name string) types.Row {
	r := types.Row{"Col1": col1}
	r.Tag(types.Provenance{FileName: name, FileSize: 42, LastModified: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)})
	return r
}

func TestGenerateSingleSheet(t *testing.T) {
	rows := []types.Row{row("x", "a.xml"), row(1.5, "b.xml")}

	data, err := Generate(rows, []string{"Col1"}, DefaultGenerateOptions())
	require.NoError(t, err)

	f := open(t, data)
	assert.Equal(t, []string{"NFes"}, f.GetSheetList())

	got, err := f.GetRows("NFes")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Col1", "_fileName", "_fileSize", "_lastModified"},
		{"x", "a.xml", "42", "02/01/2024 03:04:05"},
		{"1.5", "b.xml", "42", "02/01/2024 03:04:05"},
	}, got)
}

func TestGenerateErrorColumnOnlyWhenNeeded(t *testing.T) {
	failed := types.ErrorRow(types.Provenance{FileName: "bad.xml"}, fmt.Errorf("boom"))
	rows := []types.Row{row("x", "a.xml"), failed}

	data, err := Generate(rows, []string{"Col1"}, DefaultGenerateOptions())
	require.NoError(t, err)

	got, err := open(t, data).GetRows("NFes")
	require.NoError(t, err)
	assert.Equal(t, []string{"Col1", "_fileName", "_fileSize", "_lastModified", "_error"}, got[0])
	assert.Equal(t, []string{"", "bad.xml", "0", "", "boom"}, got[2])
}

func TestGenerateEmptyResult(t *testing.T) {
	data, err := Generate(nil, []string{"A", "B"}, DefaultGenerateOptions())
	require.NoError(t, err)

	got, err := open(t, data).GetRows("NFes")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "B", "_fileName", "_fileSize", "_lastModified"}}, got)
}

func TestGenerateSplitsSheets(t *testing.T) {
	rows := make([]types.Row, 5)
	for i := range rows {
		rows[i] = row(fmt.Sprintf("v%d", i), "a.xml")
	}
	opts := DefaultGenerateOptions()
	opts.MultipleSheets = true
	opts.MaxRowsPerSheet = 2

	data, err := Generate(rows, []string{"Col1"}, opts)
	require.NoError(t, err)

	f := open(t, data)
	assert.Equal(t, []string{"NFes_1", "NFes_2", "NFes_3"}, f.GetSheetList())

	last, err := f.GetRows("NFes_3")
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "Col1", last[0][0])
	assert.Equal(t, "v4", last[1][0])
}

func TestGenerateNoSplitBelowLimit(t *testing.T) {
	opts := DefaultGenerateOptions()
	opts.MultipleSheets = true

	data, err := Generate([]types.Row{row("x", "a.xml")}, []string{"Col1"}, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"NFes"}, open(t, data).GetSheetList())
}

func TestGenerateColumnWidths(t *testing.T) {
	rows := []types.Row{row(strings.Repeat("x", 80), "a.xml"), row("short", "b.xml")}

	data, err := Generate(rows, []string{"Col1"}, DefaultGenerateOptions())
	require.NoError(t, err)

	f := open(t, data)
	w, err := f.GetColWidth("NFes", "A")
	require.NoError(t, err)
	assert.Equal(t, 50.0, w)

	w, err = f.GetColWidth("NFes", "B")
	require.NoError(t, err)
	assert.Equal(t, float64(len("_fileName")+2), w)
}

func TestCellValue(t *testing.T) {
	opts := DefaultGenerateOptions()
	assert.Nil(t, cellValue(map[string]any{"a": 1}, opts))
	assert.Nil(t, cellValue([]any{1}, opts))
	assert.Nil(t, cellValue(time.Time{}, opts))
	assert.Equal(t, "x", cellValue("x", opts))
	assert.Equal(t, int64(3), cellValue(int64(3), opts))
}
