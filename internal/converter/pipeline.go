package converter

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/mapping"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/nfe"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/xlsxwriter"
)

// ErrSerialization marks a failure to build the workbook. It is terminal
// for the run and is not retried.
var ErrSerialization = errors.New("workbook serialization failed")

// RunOptions configures Run.
type RunOptions struct {
	// FormatCurrency renders monetary columns as locale strings.
	FormatCurrency bool

	// Formats holds the currency and date registries.
	Formats nfe.FormatConfig

	// Workbook controls sheet layout.
	Workbook xlsxwriter.GenerateOptions

	// OnProgress is forwarded to ProcessFiles.
	OnProgress ProgressFunc
}

// Workbook is the outcome of a complete run.
type Workbook struct {
	Data   []byte
	Result *Result
}

// Run converts files, formats the rows and serializes the workbook.
func (c *Converter) Run(ctx context.Context, files []InputFile, m *mapping.FieldMapping, opts RunOptions) (*Workbook, error) {
	result, err := c.ProcessFiles(ctx, files, m, opts.OnProgress)
	if err != nil {
		return nil, err
	}

	NewFormatter(opts.Formats).FormatRows(result.Rows, m, opts.FormatCurrency)

	data, err := xlsxwriter.Generate(result.Rows, m.Columns(), opts.Workbook)
	if err != nil {
		c.log.Error("workbook generation failed", zap.Error(err), zap.Int("rows", len(result.Rows)))
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	return &Workbook{Data: data, Result: result}, nil
}
