// =============================================================================
// NFe to XLSX Converter - Converter Module
// =============================================================================
//
// This module contains the batch orchestration logic. It drives a whole
// conversion run, from raw XML files to a flat list of tagged rows.
//
// CONVERSION PIPELINE (per file):
//   1. Read the full file contents
//   2. Parse the XML into a document tree
//   3. Expand the document into rows
//   4. Tag every row with the file's provenance
//
// CONCURRENCY:
//   Files are processed in fixed-size batches. Files inside a batch run
//   concurrently; the next batch starts only after the previous one has
//   fully settled. At most one batch of parsed documents is held at once.
//
// FAILURES:
//   A file that cannot be read, parsed or expanded contributes exactly one
//   error row and never aborts the run.
//
// =============================================================================

package converter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/mapping"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/nfe"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/types"
)

// DefaultBatchSize is the number of files processed concurrently.
const DefaultBatchSize = 50

// =============================================================================
// INPUT FILES
// =============================================================================

// InputFile is one XML document to convert together with its provenance.
type InputFile struct {
	// Name is the file name reported in the _fileName column.
	Name string

	// Size is the file size in bytes.
	Size int64

	// LastModified is the file's modification time.
	LastModified time.Time

	// Open returns the file contents. It is called once per run.
	Open func() (io.ReadCloser, error)
}

// Provenance returns the provenance columns for rows of this file.
func (f InputFile) Provenance() types.Provenance {
	return types.Provenance{FileName: f.Name, FileSize: f.Size, LastModified: f.LastModified}
}

// FileFromPath describes a file on disk. The file is not opened until the
// converter reads it.
func FileFromPath(path string) (InputFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return InputFile{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return InputFile{
		Name:         filepath.Base(path),
		Size:         info.Size(),
		LastModified: info.ModTime(),
		Open:         func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// FileFromBytes describes an in-memory document, such as an HTTP upload.
func FileFromBytes(name string, data []byte, modified time.Time) InputFile {
	return InputFile{
		Name:         name,
		Size:         int64(len(data)),
		LastModified: modified,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of a conversion run.
type Result struct {
	// Rows holds every file's rows, grouped by file in submission order.
	Rows []types.Row

	// Failures lists the files that produced an error row.
	Failures []FileError

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// FileError records why one file fell back to an error row.
type FileError struct {
	FileName string
	Err      error
}

// ProcessingStats contains statistics about the run.
type ProcessingStats struct {
	// FilesProcessed is the number of input files handled.
	FilesProcessed int

	// FilesFailed is the number of files that produced an error row.
	FilesFailed int

	// RowsGenerated is the number of rows, error rows included.
	RowsGenerated int

	// ProcessingTime is the wall-clock time of the run.
	ProcessingTime time.Duration
}

// ProgressFunc receives (processed, total) once per completed file.
// processed strictly increases and ends at total.
type ProgressFunc func(processed, total int)

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Options configures a Converter.
type Options struct {
	// BatchSize is the number of files processed concurrently.
	// Default: 50
	BatchSize int

	// Schema binds the repeating groups.
	// Default: nfe.DefaultSchema()
	Schema *nfe.Schema
}

// Converter runs batch conversions. It is safe for concurrent use.
type Converter struct {
	batchSize int
	expander  *Expander
	log       *zap.Logger
}

// New creates a new Converter.
//
// PARAMETERS:
//   - opts: batch size and schema; zero values select the defaults.
//   - log: the logger; nil disables logging.
func New(opts Options, log *zap.Logger) *Converter {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	schema := nfe.DefaultSchema()
	if opts.Schema != nil {
		schema = *opts.Schema
	}
	return &Converter{
		batchSize: opts.BatchSize,
		expander:  NewExpander(schema, log.Named("expander")),
		log:       log,
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// ProcessFiles converts every file with the mapping.
//
// PARAMETERS:
//   - ctx: checked between batches; a batch that has started always finishes.
//   - files: the input documents, in submission order.
//   - m: the field mapping.
//   - onProgress: optional, called once per file.
//
// RETURNS:
//   - The rows of all files, per-file groups kept contiguous and in
//     submission order regardless of completion order.
//   - ctx.Err() if the run was cancelled before the last batch.
func (c *Converter) ProcessFiles(ctx context.Context, files []InputFile, m *mapping.FieldMapping, onProgress ProgressFunc) (*Result, error) {
	start := time.Now()
	total := len(files)
	result := &Result{}

	c.log.Info("starting conversion",
		zap.Int("files", total),
		zap.Int("batch_size", c.batchSize),
		zap.Int("fields", m.Len()))

	var (
		mu        sync.Mutex
		processed int
	)
	report := func() {
		mu.Lock()
		defer mu.Unlock()
		processed++
		if onProgress != nil {
			onProgress(processed, total)
		}
	}

	for lo := 0; lo < total; lo += c.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		hi := min(lo+c.batchSize, total)
		batch := files[lo:hi]
		outcomes := make([]fileOutcome, len(batch))

		var g errgroup.Group
		for i, f := range batch {
			i, f := i, f
			g.Go(func() error {
				outcomes[i] = c.processFile(f, m)
				report()
				return nil
			})
		}
		// per-file failures are captured in outcomes
		_ = g.Wait()

		for _, o := range outcomes {
			result.Rows = append(result.Rows, o.rows...)
			if o.err != nil {
				result.Failures = append(result.Failures, FileError{FileName: o.name, Err: o.err})
			}
		}

		c.log.Debug("batch complete", zap.Int("processed", hi), zap.Int("total", total))
	}

	if result.Rows == nil {
		result.Rows = []types.Row{}
	}
	result.Stats = ProcessingStats{
		FilesProcessed: total,
		FilesFailed:    len(result.Failures),
		RowsGenerated:  len(result.Rows),
		ProcessingTime: time.Since(start),
	}

	c.log.Info("conversion complete",
		zap.Int("files", total),
		zap.Int("failed", result.Stats.FilesFailed),
		zap.Int("rows", result.Stats.RowsGenerated),
		zap.Duration("elapsed", result.Stats.ProcessingTime))

	return result, nil
}

type fileOutcome struct {
	name string
	rows []types.Row
	err  error
}

// processFile runs the per-file pipeline. It never returns partial rows:
// either every row of the file or a single error row.
func (c *Converter) processFile(f InputFile, m *mapping.FieldMapping) fileOutcome {
	prov := f.Provenance()
	log := c.log.With(zap.String("file", f.Name))

	fail := func(err error) fileOutcome {
		log.Warn("file failed", zap.Error(err))
		return fileOutcome{name: f.Name, rows: []types.Row{types.ErrorRow(prov, err)}, err: err}
	}

	data, err := readAll(f)
	if err != nil {
		return fail(err)
	}

	doc, err := nfe.Parse(data)
	if err != nil {
		return fail(err)
	}

	rows, err := c.expander.ExpandRows(doc, m)
	if err != nil {
		return fail(err)
	}

	for _, row := range rows {
		row.Tag(prov)
	}
	log.Debug("file expanded", zap.Int("rows", len(rows)))

	return fileOutcome{name: f.Name, rows: rows}
}

func readAll(f InputFile) ([]byte, error) {
	if f.Open == nil {
		return nil, fmt.Errorf("no content source for %s", f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	return data, nil
}
