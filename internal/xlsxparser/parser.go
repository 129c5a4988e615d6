// =============================================================================
// NFe to XLSX Converter - XLSX Mapping Template Parser
// =============================================================================
//
// This module reads field mappings kept as spreadsheets, so mappings can be
// edited by the same people who consume the output workbooks.
//
// TEMPLATE STRUCTURE (Expected Columns):
//
//   | Column A (Field Path)              | Column B (Column Name) | Column C (Currency) |
//   |------------------------------------|------------------------|---------------------|
//   | nfeProc.NFe.infNFe.ide.nNF         | Número NF              |                     |
//   | nfeProc.NFe.infNFe.det.prod.vProd  | Valor Item             | yes                 |
//   | nfeProc.NFe.infNFe.det.@nItem      | Item                   |                     |
//
//   Row 1 is a header and is skipped. Row order is column order.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/mapping"
)

// =============================================================================
// TEMPLATE COLUMN CONFIGURATION
// =============================================================================

// TemplateColumns locates the mapping data inside the template sheet.
// All indexes are 0-based.
type TemplateColumns struct {
	// PathColumn holds the field path.
	// Default: 0 (Column A)
	PathColumn int

	// NameColumn holds the output column name.
	// Default: 1 (Column B)
	NameColumn int

	// CurrencyColumn holds the currency flag.
	// Default: 2 (Column C)
	CurrencyColumn int

	// DataStartRow is the first data row.
	// Default: 1 (Row 2)
	DataStartRow int
}

// DefaultTemplateColumns returns the default column configuration.
func DefaultTemplateColumns() TemplateColumns {
	return TemplateColumns{
		PathColumn:     0, // Column A
		NameColumn:     1, // Column B
		CurrencyColumn: 2, // Column C
		DataStartRow:   1, // Row 2
	}
}

// templateHeader is written by WriteTemplate.
var templateHeader = []any{"Field Path", "Column Name", "Currency"}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseMapping reads a mapping template from the first sheet of an XLSX file.
func ParseMapping(templatePath string) (*mapping.FieldMapping, error) {
	return ParseMappingWithConfig(templatePath, DefaultTemplateColumns())
}

// ParseMappingWithConfig reads a mapping template using a custom column
// configuration.
//
// PARAMETERS:
//   - templatePath: The path to the XLSX template file.
//   - columns: The column configuration for parsing.
//
// RETURNS:
//   - The field mapping, in row order.
//   - An error if the file cannot be read or a row is invalid.
func ParseMappingWithConfig(templatePath string, columns TemplateColumns) (*mapping.FieldMapping, error) {
	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open template file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("template file has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	m := &mapping.FieldMapping{}
	for i := columns.DataStartRow; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}

		entry := parseRow(row, columns)
		if entry.Path == "" {
			continue
		}
		if err := m.Add(entry); err != nil {
			return nil, fmt.Errorf("error parsing row %d: %w", i+1, err)
		}
	}

	return m, nil
}

// WriteTemplate saves m as a mapping template that ParseMapping can read.
func WriteTemplate(templatePath string, m *mapping.FieldMapping) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &templateHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, e := range m.Entries() {
		flag := ""
		if e.Currency {
			flag = "yes"
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &[]any{e.Path, e.Column, flag}); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(templatePath); err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	return nil
}

func parseRow(row []string, columns TemplateColumns) mapping.Entry {
	getCell := func(index int) string {
		if index < len(row) {
			return strings.TrimSpace(row[index])
		}
		return ""
	}

	return mapping.Entry{
		Path:     getCell(columns.PathColumn),
		Column:   getCell(columns.NameColumn),
		Currency: normalizeFlag(getCell(columns.CurrencyColumn)),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// normalizeFlag reads the spellings people use for a yes/no cell.
func normalizeFlag(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "y", "true", "1", "x", "sim", "s":
		return true
	default:
		return false
	}
}
