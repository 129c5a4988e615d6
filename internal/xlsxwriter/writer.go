// =============================================================================
// NFe to XLSX Converter - XLSX Writer Module
// =============================================================================
//
// This module is responsible for generating the output workbook from the
// formatted rows. It owns sheet naming, sheet splitting and column widths.
//
// WORKBOOK STRUCTURE:
//
//   NFes                         <- single sheet (default)
//   +---------+---------+-----+-----------+-----------+---------------+--------+
//   | Col A   | Col B   | ... | _fileName | _fileSize | _lastModified | _error |
//   +---------+---------+-----+-----------+-----------+---------------+--------+
//
//   NFes_1, NFes_2, ...          <- when splitting, MaxRowsPerSheet rows each
//
//   Mapped columns come first in mapping order, then the provenance
//   columns. The _error column is only written when some row failed.
//
// =============================================================================

package xlsxwriter

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/types"
)

// =============================================================================
// GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for workbook generation.
type GenerateOptions struct {
	// SheetName is the name of the single sheet, and the prefix of split
	// sheets.
	// Default: "NFes"
	SheetName string

	// MultipleSheets splits the rows into chunks of MaxRowsPerSheet.
	// Default: false
	MultipleSheets bool

	// MaxRowsPerSheet is the chunk size used when MultipleSheets is set.
	// Default: 1000
	MaxRowsPerSheet int

	// MaxColumnWidth caps the computed column width.
	// Default: 50
	MaxColumnWidth float64

	// TimeLayout renders time.Time values such as _lastModified.
	// Default: "02/01/2006 15:04:05"
	TimeLayout string
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		SheetName:       "NFes",
		MultipleSheets:  false,
		MaxRowsPerSheet: 1000,
		MaxColumnWidth:  50,
		TimeLayout:      "02/01/2006 15:04:05",
	}
}

func (o GenerateOptions) withDefaults() GenerateOptions {
	def := DefaultGenerateOptions()
	if o.SheetName == "" {
		o.SheetName = def.SheetName
	}
	if o.MaxRowsPerSheet <= 0 {
		o.MaxRowsPerSheet = def.MaxRowsPerSheet
	}
	if o.MaxColumnWidth <= 0 {
		o.MaxColumnWidth = def.MaxColumnWidth
	}
	if o.TimeLayout == "" {
		o.TimeLayout = def.TimeLayout
	}
	return o
}

// =============================================================================
// WORKBOOK GENERATION
// =============================================================================

// Generate builds an XLSX workbook.
//
// PARAMETERS:
//   - rows: formatted output rows.
//   - columns: mapped column names in mapping order.
//   - opts: sheet layout options.
//
// RETURNS:
//   - The workbook bytes.
//   - An error if the workbook cannot be built.
func Generate(rows []types.Row, columns []string, opts GenerateOptions) ([]byte, error) {
	opts = opts.withDefaults()
	header := Header(rows, columns)

	f := excelize.NewFile()
	defer f.Close()

	chunks := splitRows(rows, opts)
	for i, chunk := range chunks {
		name := opts.SheetName
		if len(chunks) > 1 {
			name = opts.SheetName + "_" + strconv.Itoa(i+1)
		}

		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return nil, fmt.Errorf("failed to name sheet %s: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}

		if err := writeSheet(f, name, header, chunk, opts); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Header returns the header row for rows built with columns.
func Header(rows []types.Row, columns []string) []string {
	header := make([]string, 0, len(columns)+len(types.ProvenanceColumns)+1)
	header = append(header, columns...)
	header = append(header, types.ProvenanceColumns...)
	for _, r := range rows {
		if r.HasError() {
			header = append(header, types.ColError)
			break
		}
	}
	return header
}

func splitRows(rows []types.Row, opts GenerateOptions) [][]types.Row {
	if !opts.MultipleSheets || len(rows) <= opts.MaxRowsPerSheet {
		return [][]types.Row{rows}
	}
	var chunks [][]types.Row
	for lo := 0; lo < len(rows); lo += opts.MaxRowsPerSheet {
		chunks = append(chunks, rows[lo:min(lo+opts.MaxRowsPerSheet, len(rows))])
	}
	return chunks
}

func writeSheet(f *excelize.File, sheet string, header []string, rows []types.Row, opts GenerateOptions) error {
	cells := make([][]any, len(rows))
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = utf8.RuneCountInString(h)
	}

	for r, row := range rows {
		line := make([]any, len(header))
		for c, col := range header {
			v := cellValue(row[col], opts)
			line[c] = v
			if n := renderedLen(v); n > widths[c] {
				widths[c] = n
			}
		}
		cells[r] = line
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet %s: %w", sheet, err)
	}

	// widths must be set before the first row
	for c, w := range widths {
		width := min(float64(w+2), opts.MaxColumnWidth)
		if err := sw.SetColWidth(c+1, c+1, width); err != nil {
			return fmt.Errorf("failed to size column %d: %w", c+1, err)
		}
	}

	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := sw.SetRow("A1", headerRow); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for r, line := range cells {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, line); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	return sw.Flush()
}

// cellValue narrows a row value to something excelize writes as a plain
// cell. Compound values (unmapped sub-trees) become empty cells.
func cellValue(v any, opts GenerateOptions) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string, bool, float64, int, int64:
		return x
	case time.Time:
		if x.IsZero() {
			return nil
		}
		return x.Format(opts.TimeLayout)
	case map[string]any, []any:
		return nil
	default:
		return fmt.Sprint(x)
	}
}

func renderedLen(v any) int {
	switch x := v.(type) {
	case nil:
		return 0
	case string:
		return utf8.RuneCountInString(x)
	case float64:
		return len(strconv.FormatFloat(x, 'f', -1, 64))
	default:
		return utf8.RuneCountInString(fmt.Sprint(x))
	}
}
