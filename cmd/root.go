// =============================================================================
// NFe to XLSX Converter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (nfeconv)
//   ├── convertCmd (nfeconv convert)
//   ├── inspectCmd (nfeconv inspect)
//   ├── profileCmd (nfeconv profile ...)
//   ├── serveCmd   (nfeconv serve)
//   └── versionCmd (nfeconv version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the main configuration (viper)
//   3. Building the logger (zap)
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/config"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/logging"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/profile"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// defaultConfigFile is read when present and --config is not given.
const defaultConfigFile = "config.yaml"

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// appConfig and logger are set by loadRuntime before any command runs.
var (
	appConfig *config.MainConfig
	logger    = zap.NewNop()
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "nfeconv",
	Short: "NFe to XLSX Converter - Flatten NFe invoice XML into spreadsheets",
	Long: `nfeconv reads Brazilian electronic invoice (NFe) XML files and produces an
XLSX workbook with one row per line item, payment and installment
combination.

Key Features:
  - Configurable field mappings (YAML, XLSX or CSV) and stored profiles
  - Currency and date formatting for pt-BR spreadsheets
  - Per-file error rows; one broken invoice never stops the batch
  - Local or S3 destinations
  - HTTP upload service

Example Usage:
  nfeconv convert ./notas                  # Convert every XML in ./notas
  nfeconv convert a.xml b.xml -o out.xlsx  # Convert two files
  nfeconv inspect nota.xml                 # List every field path in a file
  nfeconv serve                            # Start the HTTP service`,

	SilenceUsage:      true,
	PersistentPreRunE: loadRuntime,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"Path to the main configuration file (default is ./config.yaml when present)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// loadRuntime loads the configuration and builds the logger.
func loadRuntime(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}

	cfg, err := config.LoadMainConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	log, err := logging.New(level, cfg.LogFormat)
	if err != nil {
		return err
	}

	appConfig = cfg
	logger = log
	if path != "" {
		logger.Debug("configuration loaded", zap.String("file", path))
	}
	return nil
}

// openProfiles opens the profile store. With mustExist set, a missing
// database file yields (nil, nil) instead of creating one.
func openProfiles(mustExist bool) (*profile.Store, *profile.Manager, error) {
	if mustExist {
		if _, err := os.Stat(appConfig.ProfileDB); errors.Is(err, os.ErrNotExist) {
			return nil, nil, nil
		}
	}
	store, err := profile.Open(appConfig.ProfileDB)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open profile database: %w", err)
	}
	return store, profile.NewManager(store), nil
}
