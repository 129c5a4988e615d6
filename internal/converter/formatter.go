// =============================================================================
// NFe to XLSX Converter - Column Formatter
// =============================================================================
//
// This module applies type-specific formatting to output rows before they
// are handed to the spreadsheet writer.
//
// FORMATTING TYPES:
//   - Currency: fixed two decimals with locale separators ("1.234,50")
//   - Dates: locale date / date-time strings ("15/01/2024 10:30:00")
//   - Everything else passes through unchanged
//
// Each cell is formatted on its own; no cell depends on another cell.
//
// =============================================================================

package converter

import (
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/mapping"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/nfe"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/types"
)

// Rendered date layouts.
const (
	DateTimeLayout = "02/01/2006 15:04:05"
	DateLayout     = "02/01/2006"
)

// dateTimeInputs are the ISO forms NFe uses for date-times.
var dateTimeInputs = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// =============================================================================
// FORMATTER
// =============================================================================

// Formatter formats output cells according to a FormatConfig.
type Formatter struct {
	cfg     nfe.FormatConfig
	printer *message.Printer
}

// NewFormatter creates a Formatter for the config's locale.
func NewFormatter(cfg nfe.FormatConfig) *Formatter {
	return &Formatter{
		cfg:     cfg,
		printer: message.NewPrinter(cfg.Locale),
	}
}

// FormatRows formats the mapped columns of every row in place and returns
// rows for convenience.
//
// PARAMETERS:
//   - rows: the rows produced by the converter; error rows are skipped.
//   - m: the mapping the rows were built with.
//   - currencyEnabled: when false, monetary columns are left as numbers.
//
// A column is monetary when its path is in the currency registry or its
// mapping entry requests currency formatting. A column is a date when the
// last segment of its path matches a registered date suffix.
func (f *Formatter) FormatRows(rows []types.Row, m *mapping.FieldMapping, currencyEnabled bool) []types.Row {
	type columnFormat struct {
		column   string
		currency bool
		date     bool
	}

	var formats []columnFormat
	for _, e := range m.Entries() {
		cf := columnFormat{
			column:   e.Column,
			currency: currencyEnabled && (e.Currency || f.cfg.IsCurrency(e.Path)),
			date:     f.cfg.IsDate(e.Compiled().Last().Name),
		}
		if cf.currency || cf.date {
			formats = append(formats, cf)
		}
	}
	if len(formats) == 0 {
		return rows
	}

	for _, row := range rows {
		if row.HasError() {
			continue
		}
		for _, cf := range formats {
			v, ok := row[cf.column]
			if !ok {
				continue
			}
			switch {
			case cf.currency:
				row[cf.column] = f.FormatCurrency(v)
			case cf.date:
				row[cf.column] = f.FormatDate(v)
			}
		}
	}

	return rows
}

// FormatCurrency renders a monetary value with two decimals and the
// locale's separators. Values that are not numeric render as "".
func (f *Formatter) FormatCurrency(v any) string {
	n, ok := toFloat(v)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return ""
	}
	return f.printer.Sprint(number.Decimal(n,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2)))
}

// FormatDate renders an ISO date or date-time string. nil renders as "";
// anything that does not parse is returned unchanged.
func (f *Formatter) FormatDate(v any) any {
	if v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)

	loc := time.UTC
	if f.cfg.Location != nil {
		loc = f.cfg.Location
	}
	for _, layout := range dateTimeInputs {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			continue
		}
		if f.cfg.Location != nil {
			t = t.In(loc)
		}
		return t.Format(DateTimeLayout)
	}

	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.Format(DateLayout)
	}

	return v
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
