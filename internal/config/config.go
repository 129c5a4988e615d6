// =============================================================================
// NFe to XLSX Converter - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing configuration. It
// handles the main application configuration and loading field mappings
// from the formats users keep them in.
//
// CONFIGURATION SOURCES (later wins):
//   1. Built-in defaults
//   2. Main config file (config.yaml), optional
//   3. Environment variables prefixed with NFECONV_
//      (nested keys use "_": NFECONV_S3_BUCKET sets s3.bucket)
//
// MAPPING FILES:
//   .yaml / .yml  ordered "fields" document
//   .xlsx         spreadsheet template (path, column, currency)
//   .csv          delimited file (path, column, currency)
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/csvparser"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/mapping"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/nfe"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/xlsxparser"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NFECONV"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for *.xml files when no inputs are given.
	// Default: "./input"
	InputDir string `mapstructure:"input_dir"`

	// OutputDir receives generated workbooks and error logs.
	// Default: "./output"
	OutputDir string `mapstructure:"output_dir"`

	// OutputNameFormat names generated workbooks. Placeholders:
	// {timestamp}, {date}, {uuid}.
	// Default: "NFes_{timestamp}.xlsx"
	OutputNameFormat string `mapstructure:"output_name_format"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `mapstructure:"log_level"`

	// LogFormat is "console" or "json".
	// Default: "console"
	LogFormat string `mapstructure:"log_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// BatchSize is the number of files parsed concurrently.
	// Default: 50
	BatchSize int `mapstructure:"batch_size"`

	// MaxRowsPerSheet is the sheet size when splitting into several sheets.
	// Default: 1000
	MaxRowsPerSheet int `mapstructure:"max_rows_per_sheet"`

	// MaxFiles rejects runs with more input files.
	// Default: 2000
	MaxFiles int `mapstructure:"max_files"`

	// ConfirmThreshold asks for confirmation above this many files.
	// Default: 1000
	ConfirmThreshold int `mapstructure:"confirm_threshold"`

	// MultipleSheets splits large results into several sheets.
	// Default: false
	MultipleSheets bool `mapstructure:"multiple_sheets"`

	// FormatCurrency formats monetary columns as locale strings.
	// Default: true
	FormatCurrency bool `mapstructure:"format_currency"`

	// Locale drives number formatting (BCP 47).
	// Default: "pt-BR"
	Locale string `mapstructure:"locale"`

	// Timezone, when set, converts date-times before rendering (IANA name).
	// Default: "" (keep the offset written in the document)
	Timezone string `mapstructure:"timezone"`

	// =========================================================================
	// MAPPING & PROFILE SETTINGS
	// =========================================================================

	// MappingFile is used when no profile or --mapping is given.
	// Default: "" (built-in default mapping)
	MappingFile string `mapstructure:"mapping_file"`

	// MappingCSV controls how .csv mapping files are read.
	MappingCSV CSVSettings `mapstructure:"mapping_csv"`

	// ProfileDB is the SQLite file holding profiles and user settings.
	// Default: "./nfeconv.db"
	ProfileDB string `mapstructure:"profile_db"`

	// =========================================================================
	// OUTPUT DESTINATIONS
	// =========================================================================

	S3     S3Config     `mapstructure:"s3"`
	Server ServerConfig `mapstructure:"server"`
}

// CSVSettings mirrors csvparser.Settings for configuration files.
type CSVSettings struct {
	Delimiter string `mapstructure:"delimiter"`
	Encoding  string `mapstructure:"encoding"`
	HasHeader bool   `mapstructure:"has_header"`
}

// S3Config holds object storage settings for s3:// destinations.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// ServerConfig holds HTTP service settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	MaxUploadMB  int64         `mapstructure:"max_upload_mb"`
	Environment  string        `mapstructure:"environment"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// =============================================================================
// LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration.
//
// PARAMETERS:
//   - configPath: optional path to a YAML config file; "" uses defaults and
//     the environment only.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read or the result is invalid.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	applyMainConfigDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config MainConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults registers a default for every key. Keys without
// a default are invisible to Unmarshal when set only in the environment.
func applyMainConfigDefaults(v *viper.Viper) {
	v.SetDefault("input_dir", "./input")
	v.SetDefault("output_dir", "./output")
	v.SetDefault("output_name_format", "NFes_{timestamp}.xlsx")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	v.SetDefault("batch_size", 50)
	v.SetDefault("max_rows_per_sheet", 1000)
	v.SetDefault("max_files", 2000)
	v.SetDefault("confirm_threshold", 1000)
	v.SetDefault("multiple_sheets", false)
	v.SetDefault("format_currency", true)
	v.SetDefault("locale", "pt-BR")
	v.SetDefault("timezone", "")

	v.SetDefault("mapping_file", "")
	v.SetDefault("mapping_csv.delimiter", ",")
	v.SetDefault("mapping_csv.encoding", "UTF-8")
	v.SetDefault("mapping_csv.has_header", true)
	v.SetDefault("profile_db", "./nfeconv.db")

	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.prefix", "")

	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.max_upload_mb", 64)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.read_timeout", "60s")
	v.SetDefault("server.write_timeout", "120s")
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	var errs []error

	if config.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch_size must be positive, got %d", config.BatchSize))
	}
	if config.MaxRowsPerSheet <= 0 {
		errs = append(errs, fmt.Errorf("max_rows_per_sheet must be positive, got %d", config.MaxRowsPerSheet))
	}
	if config.MaxFiles > 0 && config.ConfirmThreshold > config.MaxFiles {
		errs = append(errs, fmt.Errorf("confirm_threshold (%d) exceeds max_files (%d)", config.ConfirmThreshold, config.MaxFiles))
	}
	if _, err := language.Parse(config.Locale); err != nil {
		errs = append(errs, fmt.Errorf("locale %q: %w", config.Locale, err))
	}
	if config.Timezone != "" {
		if _, err := time.LoadLocation(config.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("timezone %q: %w", config.Timezone, err))
		}
	}

	return errors.Join(errs...)
}

// EnsureDirectories creates the output directory if it does not exist.
func (c *MainConfig) EnsureDirectories() error {
	if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.OutputDir, err)
	}
	return nil
}

// FormatConfig returns the formatter registry for this configuration.
func (c *MainConfig) FormatConfig() (nfe.FormatConfig, error) {
	cfg := nfe.DefaultFormatConfig()

	tag, err := language.Parse(c.Locale)
	if err != nil {
		return cfg, fmt.Errorf("locale %q: %w", c.Locale, err)
	}
	cfg.Locale = tag

	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return cfg, fmt.Errorf("timezone %q: %w", c.Timezone, err)
		}
		cfg.Location = loc
	}
	return cfg, nil
}

// =============================================================================
// MAPPING FILES
// =============================================================================

// LoadMapping reads a mapping file, choosing the reader by extension.
func (c *MainConfig) LoadMapping(path string) (*mapping.FieldMapping, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return mapping.LoadYAML(path)
	case ".xlsx":
		return xlsxparser.ParseMapping(path)
	case ".csv":
		return csvparser.ParseMapping(path, csvparser.Settings{
			Delimiter: c.MappingCSV.Delimiter,
			Encoding:  c.MappingCSV.Encoding,
			HasHeader: c.MappingCSV.HasHeader,
		})
	default:
		return nil, fmt.Errorf("unsupported mapping file type: %s", path)
	}
}
