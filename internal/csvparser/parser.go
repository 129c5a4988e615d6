// =============================================================================
// NFe to XLSX Converter - CSV Mapping Parser
// =============================================================================
//
// This module reads field mappings exported as CSV, the plainest format
// spreadsheet users can produce. It handles:
//   - Different delimiters (comma, semicolon, pipe, tab)
//   - Latin-1 / Windows-1252 exports from older spreadsheet tools
//   - An optional header row
//
// FILE STRUCTURE:
//
//   path;column;currency
//   nfeProc.NFe.infNFe.ide.nNF;Número NF;
//   nfeProc.NFe.infNFe.det.prod.vProd;Valor Item;yes
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/mapping"
)

// =============================================================================
// SETTINGS
// =============================================================================

// Settings controls how a mapping CSV is read.
type Settings struct {
	// Delimiter separates fields. Accepts a single character or one of
	// "tab", "pipe", "semicolon".
	// Default: ","
	Delimiter string

	// Encoding of the file: "UTF-8", "ISO-8859-1" or "Windows-1252".
	// Default: "UTF-8"
	Encoding string

	// HasHeader skips the first record.
	// Default: true
	HasHeader bool
}

// DefaultSettings returns the default CSV settings.
func DefaultSettings() Settings {
	return Settings{
		Delimiter: ",",
		Encoding:  "UTF-8",
		HasHeader: true,
	}
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseMapping reads a mapping CSV file.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV parsing settings.
//
// RETURNS:
//   - The field mapping, in record order.
//   - An error if the file cannot be read or a record is invalid.
func ParseMapping(filePath string, settings Settings) (*mapping.FieldMapping, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ReadMapping(file, settings)
}

// ReadMapping reads a mapping CSV from r.
func ReadMapping(r io.Reader, settings Settings) (*mapping.FieldMapping, error) {
	dec, err := decoderFor(settings.Encoding)
	if err != nil {
		return nil, err
	}

	reader := bufio.NewReader(transform.NewReader(r, dec.NewDecoder()))
	skipBOM(reader)

	csvReader := csv.NewReader(reader)
	configureReader(csvReader, settings)

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	start := 0
	if settings.HasHeader {
		start = 1
	}

	m := &mapping.FieldMapping{}
	for i := start; i < len(records); i++ {
		record := records[i]
		if isRowEmpty(record) {
			continue
		}

		entry := mapping.Entry{
			Path:     field(record, 0),
			Column:   field(record, 1),
			Currency: isTruthy(field(record, 2)),
		}
		if entry.Path == "" {
			continue
		}
		if err := m.Add(entry); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
	}

	return m, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings Settings) {
	switch settings.Delimiter {
	case "\\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

func decoderFor(name string) (encoding.Encoding, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "UTF-8", "UTF8":
		return encoding.Nop, nil
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		return charmap.ISO8859_1, nil
	case "WINDOWS-1252", "CP1252":
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func skipBOM(r *bufio.Reader) {
	if b, err := r.Peek(3); err == nil && string(b) == "\xef\xbb\xbf" {
		_, _ = r.Discard(3)
	}
}

func field(record []string, i int) string {
	if i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}

// isRowEmpty checks if a record contains only empty fields.
func isRowEmpty(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func isTruthy(value string) bool {
	switch strings.ToLower(value) {
	case "yes", "y", "true", "1", "x", "sim", "s":
		return true
	}
	return false
}
