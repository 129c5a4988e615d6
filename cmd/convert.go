// =============================================================================
// NFe to XLSX Converter - Convert Command
// =============================================================================
//
// This file defines the 'convert' command, the main command of the tool.
//
// COMMAND USAGE:
//   nfeconv convert [files or directories...] [flags]
//
// PROCESSING PIPELINE:
//   1. Collect input files (*.xml from directories, explicit files as given)
//   2. Apply the file-count guardrails
//   3. Choose and validate the field mapping
//   4. Convert every file in batches, reporting progress
//   5. Format currency and date columns
//   6. Generate the workbook
//   7. Store it locally or on S3, plus an error log when files failed
//
// =============================================================================

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/converter"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/mapping"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/profile"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/storage"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/validation"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/xlsxwriter"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var convertFlags struct {
	output         string
	mappingFile    string
	profileRef     string
	recursive      bool
	multipleSheets bool
	formatCurrency bool
	yes            bool
	batchSize      int
}

// =============================================================================
// CONVERT COMMAND DEFINITION
// =============================================================================

var convertCmd = &cobra.Command{
	Use:   "convert [files or directories...]",
	Short: "Convert NFe XML files into an XLSX workbook",
	Long: `The convert command reads NFe XML files and writes one workbook.

Without arguments the configured input directory is scanned. Directories
contribute their *.xml files (use --recursive to descend); files named
explicitly are always read.

The field mapping is chosen in this order:
  --mapping FILE, --profile NAME, mapping_file from the configuration,
  the active profile, the mapping of the previous run, the built-in default.

A file that cannot be parsed contributes a single row carrying its name
and the error message; the other files are unaffected. The failures are
also written to an error log next to the workbook.

The destination (--output) may be a directory, an .xlsx path or an
s3://bucket/key URL.`,

	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	f := convertCmd.Flags()
	f.StringVarP(&convertFlags.output, "output", "o", "", "Output directory, .xlsx file or s3://bucket/key (default: output_dir)")
	f.StringVarP(&convertFlags.mappingFile, "mapping", "m", "", "Mapping file (.yaml, .xlsx or .csv)")
	f.StringVarP(&convertFlags.profileRef, "profile", "p", "", "Stored profile id or name")
	f.BoolVarP(&convertFlags.recursive, "recursive", "r", false, "Descend into subdirectories")
	f.BoolVar(&convertFlags.multipleSheets, "multiple-sheets", false, "Split rows into several sheets of max_rows_per_sheet rows")
	f.BoolVar(&convertFlags.formatCurrency, "format-currency", true, "Format monetary columns as locale strings")
	f.BoolVarP(&convertFlags.yes, "yes", "y", false, "Do not ask for confirmation on large batches")
	f.IntVar(&convertFlags.batchSize, "batch-size", 0, "Files processed concurrently (default: batch_size)")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runConvert(cmd *cobra.Command, args []string) error {
	startTime := time.Now()
	out := cmd.OutOrStdout()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	multipleSheets := appConfig.MultipleSheets
	if cmd.Flags().Changed("multiple-sheets") {
		multipleSheets = convertFlags.multipleSheets
	}
	formatCurrency := appConfig.FormatCurrency
	if cmd.Flags().Changed("format-currency") {
		formatCurrency = convertFlags.formatCurrency
	}
	batchSize := appConfig.BatchSize
	if convertFlags.batchSize > 0 {
		batchSize = convertFlags.batchSize
	}

	fmt.Fprintln(out, "=== NFe to XLSX Converter ===")

	// =========================================================================
	// STEP 1: DISCOVER INPUT FILES
	// =========================================================================

	fm := utils.NewFileManager(appConfig.InputDir, appConfig.OutputDir)
	fm.Recursive = convertFlags.recursive

	paths, err := fm.ExpandInputs(args)
	if err != nil {
		return fmt.Errorf("failed to discover input files: %w", err)
	}
	if len(paths) == 0 {
		fmt.Fprintln(out, "No XML files found.")
		return nil
	}
	fmt.Fprintf(out, "Found %d file(s) to process\n", len(paths))

	// =========================================================================
	// STEP 2: GUARDRAILS
	// =========================================================================

	switch validation.CheckFileCount(len(paths), appConfig.MaxFiles, appConfig.ConfirmThreshold) {
	case validation.Reject:
		return fmt.Errorf("%d files exceed the limit of %d (max_files)", len(paths), appConfig.MaxFiles)
	case validation.NeedsConfirmation:
		if !convertFlags.yes {
			ok, err := confirm(cmd.InOrStdin(), out,
				fmt.Sprintf("%d files is a large batch and may take a while. Continue?", len(paths)))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "Aborted.")
				return nil
			}
		}
	}

	// =========================================================================
	// STEP 3: CHOOSE THE MAPPING
	// =========================================================================

	store, profiles, err := openProfiles(convertFlags.profileRef == "")
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	m, source, err := resolveMapping(ctx, profiles)
	if err != nil {
		return err
	}

	result := validation.ValidateMapping(m)
	if result.WarningCount > 0 || !result.IsValid {
		fmt.Fprintln(cmd.ErrOrStderr(), validation.FormatErrors(result.Errors))
	}
	if !result.IsValid {
		return fmt.Errorf("mapping from %s is invalid", source)
	}
	fmt.Fprintf(out, "Using %d field(s) from %s\n", m.Len(), source)

	// =========================================================================
	// STEP 4-6: CONVERT, FORMAT, GENERATE
	// =========================================================================

	formats, err := appConfig.FormatConfig()
	if err != nil {
		return err
	}

	inputs := make([]converter.InputFile, 0, len(paths))
	for _, p := range paths {
		f, err := converter.FileFromPath(p)
		if err != nil {
			return err
		}
		inputs = append(inputs, f)
	}

	errOut := cmd.ErrOrStderr()
	conv := converter.New(converter.Options{BatchSize: batchSize}, logger.Named("converter"))
	wb, err := conv.Run(ctx, inputs, m, converter.RunOptions{
		FormatCurrency: formatCurrency,
		Formats:        formats,
		Workbook: xlsxwriter.GenerateOptions{
			MultipleSheets:  multipleSheets,
			MaxRowsPerSheet: appConfig.MaxRowsPerSheet,
		},
		OnProgress: func(processed, total int) {
			fmt.Fprintf(errOut, "\rProcessing %d/%d files...", processed, total)
			if processed == total {
				fmt.Fprintln(errOut)
			}
		},
	})
	if errors.Is(err, converter.ErrSerialization) {
		return fmt.Errorf("could not generate the spreadsheet, please try again: %w", err)
	}
	if err != nil {
		return fmt.Errorf("conversion stopped: %w", err)
	}

	// =========================================================================
	// STEP 7: STORE THE RESULT
	// =========================================================================

	name := utils.GenerateOutputFileName(appConfig.OutputNameFormat, nil)
	sink, name, err := storage.Resolve(ctx, convertFlags.output, appConfig.S3, appConfig.OutputDir, name)
	if err != nil {
		return err
	}

	location, err := sink.Put(ctx, name, wb.Data)
	if err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	var logLocation string
	if failures := wb.Result.Failures; len(failures) > 0 {
		entries := make([]utils.ErrorLogEntry, len(failures))
		for i, f := range failures {
			entries[i] = utils.ErrorLogEntry{Timestamp: time.Now(), FileName: f.FileName, ErrorMessage: f.Err.Error()}
		}
		logLocation, err = sink.Put(ctx, utils.ErrorLogName(name), utils.FormatErrorLog(entries, time.Now()))
		if err != nil {
			logger.Warn("failed to save error log", zap.Error(err))
		}
	}

	if profiles != nil {
		rememberRun(ctx, profiles, m, multipleSheets, formatCurrency)
	}

	// =========================================================================
	// STEP 8: PRINT SUMMARY
	// =========================================================================

	stats := wb.Result.Stats
	fmt.Fprintln(out, "\n=== Processing Complete ===")
	fmt.Fprintf(out, "Total files:     %d\n", stats.FilesProcessed)
	fmt.Fprintf(out, "Successful:      %d\n", stats.FilesProcessed-stats.FilesFailed)
	fmt.Fprintf(out, "Errors:          %d\n", stats.FilesFailed)
	fmt.Fprintf(out, "Rows:            %d\n", stats.RowsGenerated)
	fmt.Fprintf(out, "Workbook:        %s\n", location)
	if logLocation != "" {
		fmt.Fprintf(out, "Error log:       %s\n", logLocation)
	}
	fmt.Fprintf(out, "Time elapsed:    %s\n", time.Since(startTime).Round(time.Millisecond))

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// resolveMapping picks the mapping for this run and describes where it
// came from.
func resolveMapping(ctx context.Context, profiles *profile.Manager) (*mapping.FieldMapping, string, error) {
	switch {
	case convertFlags.mappingFile != "":
		m, err := appConfig.LoadMapping(convertFlags.mappingFile)
		return m, convertFlags.mappingFile, err

	case convertFlags.profileRef != "":
		p, err := profiles.Find(ctx, convertFlags.profileRef)
		if err != nil {
			return nil, "", err
		}
		m, err := p.FieldMapping()
		return m, "profile " + p.Name, err

	case appConfig.MappingFile != "":
		m, err := appConfig.LoadMapping(appConfig.MappingFile)
		return m, appConfig.MappingFile, err
	}

	if profiles != nil {
		p, err := profiles.Active(ctx)
		if err == nil {
			m, err := p.FieldMapping()
			return m, "profile " + p.Name, err
		}
		if !errors.Is(err, profile.ErrNotFound) {
			return nil, "", err
		}

		last, err := profiles.LoadUserConfig(ctx)
		if err != nil {
			return nil, "", err
		}
		if len(last.Mappings) > 0 {
			m, err := (&profile.Profile{Name: "previous run", Mappings: last.Mappings}).FieldMapping()
			return m, "the previous run", err
		}
	}

	return mapping.Default(), "the default mapping", nil
}

// rememberRun stores the options of a successful run. Failures are only
// logged.
func rememberRun(ctx context.Context, profiles *profile.Manager, m *mapping.FieldMapping, multipleSheets, formatCurrency bool) {
	cfg, err := profiles.LoadUserConfig(ctx)
	if err != nil {
		logger.Warn("failed to load user settings", zap.Error(err))
		return
	}
	cfg.Mappings = profile.FromMapping("", "", m).Mappings
	cfg.MultipleSheets = multipleSheets
	cfg.FormatCurrency = formatCurrency
	if err := profiles.SaveUserConfig(ctx, cfg); err != nil {
		logger.Warn("failed to save user settings", zap.Error(err))
	}
}

// confirm asks a yes/no question; anything but y/yes is no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "s", "sim":
		return true, nil
	default:
		return false, nil
	}
}
