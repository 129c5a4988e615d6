// =============================================================================
// NFe to XLSX Converter - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - converter
//   - xlsxwriter
//   - validation
//   - server
//
// =============================================================================

package types

import "time"

// =============================================================================
// PROVENANCE COLUMNS
// =============================================================================
// Reserved columns attached to every output row. They never appear in a
// FieldMapping and are always written after the mapped columns.

const (
	// ColFileName holds the source file name.
	ColFileName = "_fileName"

	// ColFileSize holds the source file size in bytes.
	ColFileSize = "_fileSize"

	// ColLastModified holds the source file's last-modified timestamp.
	ColLastModified = "_lastModified"

	// ColError holds the error message for files that failed processing.
	ColError = "_error"
)

// ProvenanceColumns lists the provenance columns present on every row.
var ProvenanceColumns = []string{ColFileName, ColFileSize, ColLastModified}

// IsReservedColumn reports whether name is one of the provenance columns.
func IsReservedColumn(name string) bool {
	switch name {
	case ColFileName, ColFileSize, ColLastModified, ColError:
		return true
	}
	return false
}

// =============================================================================
// OUTPUT ROW
// =============================================================================

// Row is one flat output row: output column name -> scalar value.
// A nil value means the field did not resolve.
type Row map[string]any

// Provenance describes the file a row was extracted from.
type Provenance struct {
	FileName     string
	FileSize     int64
	LastModified time.Time
}

// Tag writes the provenance columns into the row.
func (r Row) Tag(p Provenance) {
	r[ColFileName] = p.FileName
	r[ColFileSize] = p.FileSize
	r[ColLastModified] = p.LastModified
}

// ErrorRow builds the single row emitted for a file that failed processing.
func ErrorRow(p Provenance, err error) Row {
	row := make(Row, 4)
	row.Tag(p)
	row[ColError] = err.Error()
	return row
}

// HasError reports whether the row is a file-level error row.
func (r Row) HasError() bool {
	_, ok := r[ColError]
	return ok
}
