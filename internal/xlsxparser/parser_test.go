package xlsxparser

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/mapping"
)

func TestTemplateRoundTrip(t *testing.T) {
	m, err := mapping.New(
		mapping.Entry{Path: "nfeProc.NFe.infNFe.ide.nNF", Column: "Número NF"},
		mapping.Entry{Path: "nfeProc.NFe.infNFe.det.prod.vProd", Column: "Valor Item", Currency: true},
	)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "mapping.xlsx")
	require.NoError(t, WriteTemplate(path, m))

	back, err := ParseMapping(path)
	require.NoError(t, err)
	assert.Equal(t, m.Columns(), back.Columns())

	e, ok := back.Lookup("nfeProc.NFe.infNFe.det.prod.vProd")
	require.True(t, ok)
	assert.True(t, e.Currency)
}

func TestParseMappingSkipsBlankRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handmade.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"path", "name", "money"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"a.b", "Col1", "SIM"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"  a.c  ", "Col2"}))
	require.NoError(t, f.SetSheetRow(sheet, "A5", &[]any{"", "orphan"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	m, err := ParseMapping(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Col1", "Col2"}, m.Columns())

	e, _ := m.Lookup("a.b")
	assert.True(t, e.Currency)
}

func TestParseMappingRejectsBadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow(f.GetSheetName(0), "A2", &[]any{"a..b", "Col1"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err := ParseMapping(path)
	assert.ErrorContains(t, err, "row 2")
}

func TestParseMappingMissingFile(t *testing.T) {
	_, err := ParseMapping(filepath.Join(t.TempDir(), "none.xlsx"))
	assert.Error(t, err)
}

func TestNormalizeFlag(t *testing.T) {
	for _, v := range []string{"yes", "Y", "TRUE", "1", "x", "Sim"} {
		assert.True(t, normalizeFlag(v), v)
	}
	for _, v := range []string{"", "no", "0", "nope"} {
		assert.False(t, normalizeFlag(v), v)
	}
}
