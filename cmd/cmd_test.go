package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/fieldpath"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/types"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	content := "output_dir: " + filepath.Join(dir, "out") + "\n" +
		"profile_db: " + filepath.Join(dir, "nfeconv.db") + "\n" +
		"output_name_format: planilha\n" +
		"log_level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)

	sample, err := os.ReadFile("../internal/nfe/testdata/nfe_sample.xml")
	require.NoError(t, err)
	in := filepath.Join(dir, "in")
	require.NoError(t, os.MkdirAll(in, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(in, "nota.xml"), sample, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "quebrada.XML"), []byte("<a x=1></a>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "leia-me.txt"), []byte("x"), 0o644))

	out := execute(t, "--config", cfg, "profile", "init")
	assert.Contains(t, out, "Padrão")

	out = execute(t, "--config", cfg, "profile", "list")
	assert.Contains(t, out, "Completo")

	out = execute(t, "--config", cfg, "convert", in, "--yes")
	assert.Contains(t, out, "Total files:     2")
	assert.Contains(t, out, "Errors:          1")

	workbook := filepath.Join(dir, "out", "planilha.xlsx")
	f, err := excelize.OpenFile(workbook)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("NFes")
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	assert.Equal(t, types.ColError, rows[0][len(rows[0])-1])

	logData, err := os.ReadFile(filepath.Join(dir, "out", "planilha_errors.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "quebrada.XML")
}

func TestMappingFromLeaves(t *testing.T) {
	leaves := []fieldpath.Leaf{
		{Path: "a.det[0].x", Value: "1"},
		{Path: "a.det[1].x", Value: "2"},
		{Path: "a.b._text", Value: "t"},
		{Path: "a.b.@id", Value: "7"},
	}

	m := mappingFromLeaves(leaves, false)
	assert.Equal(t, []string{"a.det.x", "a.b", "a.b.@id"}, m.Columns())

	m = mappingFromLeaves(leaves, true)
	assert.Equal(t, []string{"a.det[0].x", "a.det[1].x", "a.b", "a.b.@id"}, m.Columns())
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer
	for answer, want := range map[string]bool{
		"y\n":   true,
		"Sim\n": true,
		"n\n":   false,
		"":      false,
	} {
		ok, err := confirm(strings.NewReader(answer), &out, "Continue?")
		require.NoError(t, err)
		assert.Equal(t, want, ok, answer)
	}
	assert.Contains(t, out.String(), "[y/N]")
}
