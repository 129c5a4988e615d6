// =============================================================================
// NFe to XLSX Converter - Validation Engine
// =============================================================================
//
// This module validates a conversion run before it starts:
//   - Field mappings (column names, reserved names, group roots)
//   - Input size guardrails (hard cap and confirmation threshold)
//
// Path syntax and duplicate paths are already rejected when a mapping is
// built, so they never reach this module.
//
// ERROR HANDLING:
//   - Errors are collected, not returned one at a time
//   - Each error names the column and path it concerns
//   - Warnings never block a run unless TreatWarningsAsErrors is set
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/mapping"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/nfe"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation finding.
type ValidationError struct {
	// Severity is "error" (blocks the run) or "warning".
	Severity string

	// Column is the output column concerned, if any.
	Column string

	// Path is the field path concerned, if any.
	Path string

	// Rule is the check that was violated.
	Rule string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var where []string
	if e.Column != "" {
		where = append(where, fmt.Sprintf("Column '%s'", e.Column))
	}
	if e.Path != "" {
		where = append(where, fmt.Sprintf("Path '%s'", e.Path))
	}
	if len(where) == 0 {
		return fmt.Sprintf("[%s] %s", strings.ToUpper(e.Severity), e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", strings.ToUpper(e.Severity), strings.Join(where, ", "), e.Message)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no blocking errors.
	IsValid bool

	// Errors contains all findings, warnings included.
	Errors []*ValidationError

	// ErrorCount is the number of blocking errors.
	ErrorCount int

	// WarningCount is the number of warnings.
	WarningCount int
}

func (r *ValidationResult) add(e *ValidationError) {
	r.Errors = append(r.Errors, e)
	if e.Severity == SeverityError {
		r.ErrorCount++
	} else {
		r.WarningCount++
	}
}

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// TreatWarningsAsErrors makes warnings block the run.
	// Default: false
	TreatWarningsAsErrors bool

	// Schema is used to spot paths that select a whole repeating group.
	// Default: nfe.DefaultSchema()
	Schema nfe.Schema
}

// DefaultValidationOptions returns the default validation options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{Schema: nfe.DefaultSchema()}
}

// =============================================================================
// MAPPING VALIDATION
// =============================================================================

// ValidateMapping checks a mapping with the default options.
func ValidateMapping(m *mapping.FieldMapping) *ValidationResult {
	return ValidateMappingWithOptions(m, DefaultValidationOptions())
}

// ValidateMappingWithOptions checks a mapping.
//
// RULES:
//   - empty_mapping: the mapping has no entries (error)
//   - empty_column: an entry has no column name (error)
//   - duplicate_column: two entries share a column name (error)
//   - reserved_column: a column collides with a provenance column (error)
//   - group_root: a path selects a whole repeating group, whose cells would
//     hold no scalar (warning)
func ValidateMappingWithOptions(m *mapping.FieldMapping, opts ValidationOptions) *ValidationResult {
	result := &ValidationResult{}

	if m == nil || m.Len() == 0 {
		result.add(&ValidationError{
			Severity: SeverityError,
			Rule:     "empty_mapping",
			Message:  "mapping has no fields",
		})
		result.IsValid = false
		return result
	}

	groupRoots := []string{
		opts.Schema.LineItems.String(),
		opts.Schema.Payments.String(),
		opts.Schema.Duplicates.String(),
	}

	seen := make(map[string]string, m.Len())
	for _, e := range m.Entries() {
		column := strings.TrimSpace(e.Column)

		switch {
		case column == "":
			result.add(&ValidationError{
				Severity: SeverityError,
				Path:     e.Path,
				Rule:     "empty_column",
				Message:  "column name is empty",
			})
		case types.IsReservedColumn(column):
			result.add(&ValidationError{
				Severity: SeverityError,
				Column:   column,
				Path:     e.Path,
				Rule:     "reserved_column",
				Message:  "column name is reserved for file provenance",
			})
		default:
			if prev, dup := seen[column]; dup {
				result.add(&ValidationError{
					Severity: SeverityError,
					Column:   column,
					Path:     e.Path,
					Rule:     "duplicate_column",
					Message:  fmt.Sprintf("column name already used by '%s'", prev),
				})
			} else {
				seen[column] = e.Path
			}
		}

		for _, root := range groupRoots {
			if root != "" && e.Path == root {
				result.add(&ValidationError{
					Severity: SeverityWarning,
					Column:   column,
					Path:     e.Path,
					Rule:     "group_root",
					Message:  "path selects a whole repeating group; map a field below it",
				})
			}
		}
	}

	result.IsValid = result.ErrorCount == 0
	if opts.TreatWarningsAsErrors && result.WarningCount > 0 {
		result.IsValid = false
	}
	return result
}

// =============================================================================
// INPUT GUARDRAILS
// =============================================================================

// Decision is the outcome of CheckFileCount.
type Decision int

const (
	// Proceed means the run may start.
	Proceed Decision = iota
	// NeedsConfirmation means the caller should ask before starting.
	NeedsConfirmation
	// Reject means the run must not start.
	Reject
)

// CheckFileCount applies the file-count guardrails. A limit of zero or less
// disables that limit.
func CheckFileCount(count, maxFiles, confirmThreshold int) Decision {
	switch {
	case maxFiles > 0 && count > maxFiles:
		return Reject
	case confirmThreshold > 0 && count > confirmThreshold:
		return NeedsConfirmation
	default:
		return Proceed
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

// FormatErrors formats validation errors for display or logging.
//
// PARAMETERS:
//   - errors: The validation errors to format.
//
// RETURNS:
//   - A formatted string containing all errors.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d finding(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}
