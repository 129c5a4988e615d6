package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/mapping"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/xlsxparser"
)

func TestLoadMainConfigDefaults(t *testing.T) {
	cfg, err := LoadMainConfig("")
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 1000, cfg.MaxRowsPerSheet)
	assert.Equal(t, 2000, cfg.MaxFiles)
	assert.Equal(t, 1000, cfg.ConfirmThreshold)
	assert.True(t, cfg.FormatCurrency)
	assert.False(t, cfg.MultipleSheets)
	assert.Equal(t, "pt-BR", cfg.Locale)
	assert.Equal(t, ",", cfg.MappingCSV.Delimiter)
	assert.True(t, cfg.MappingCSV.HasHeader)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
}

func TestLoadMainConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
batch_size: 10
multiple_sheets: true
format_currency: false
s3:
  bucket: from-file
  region: sa-east-1
`), 0o644))

	t.Setenv("NFECONV_BATCH_SIZE", "7")
	t.Setenv("NFECONV_S3_BUCKET", "from-env")

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.BatchSize)
	assert.True(t, cfg.MultipleSheets)
	assert.False(t, cfg.FormatCurrency)
	assert.Equal(t, "from-env", cfg.S3.Bucket)
	assert.Equal(t, "sa-east-1", cfg.S3.Region)
}

func TestLoadMainConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch_size: 0\nconfirm_threshold: 5000\ntimezone: Mars/Olympus\n"), 0o644))

	_, err := LoadMainConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch_size")
	assert.Contains(t, err.Error(), "confirm_threshold")
	assert.Contains(t, err.Error(), "timezone")

	_, err = LoadMainConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFormatConfig(t *testing.T) {
	cfg, err := LoadMainConfig("")
	require.NoError(t, err)
	cfg.Timezone = "America/Sao_Paulo"

	fc, err := cfg.FormatConfig()
	require.NoError(t, err)
	assert.Equal(t, "pt-BR", fc.Locale.String())
	require.NotNil(t, fc.Location)
	assert.Equal(t, "America/Sao_Paulo", fc.Location.String())
	assert.True(t, fc.IsCurrency("nfeProc.NFe.infNFe.total.ICMSTot.vNF"))
}

func TestEnsureDirectories(t *testing.T) {
	cfg, err := LoadMainConfig("")
	require.NoError(t, err)
	cfg.OutputDir = filepath.Join(t.TempDir(), "a", "b")

	require.NoError(t, cfg.EnsureDirectories())
	assert.DirExists(t, cfg.OutputDir)
}

func TestLoadMappingDispatch(t *testing.T) {
	cfg, err := LoadMainConfig("")
	require.NoError(t, err)
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "m.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("fields:\n  a.b: FromYAML\n"), 0o644))

	csvPath := filepath.Join(dir, "m.CSV")
	require.NoError(t, os.WriteFile(csvPath, []byte("path,column\na.b,FromCSV\n"), 0o644))

	xlsxPath := filepath.Join(dir, "m.xlsx")
	m, err := mapping.New(mapping.Entry{Path: "a.b", Column: "FromXLSX"})
	require.NoError(t, err)
	require.NoError(t, xlsxparser.WriteTemplate(xlsxPath, m))

	for path, want := range map[string]string{yamlPath: "FromYAML", csvPath: "FromCSV", xlsxPath: "FromXLSX"} {
		got, err := cfg.LoadMapping(path)
		require.NoError(t, err, path)
		assert.Equal(t, []string{want}, got.Columns())
	}

	_, err = cfg.LoadMapping(filepath.Join(dir, "m.json"))
	assert.Error(t, err)
}
