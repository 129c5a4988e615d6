// =============================================================================
// NFe to XLSX Converter - Main Entry Point
// =============================================================================
//
// USAGE:
//   nfeconv convert   - Convert NFe XML files into an XLSX workbook
//   nfeconv inspect   - List the field paths of an XML file
//   nfeconv profile   - Manage stored mapping profiles
//   nfeconv serve     - Start the HTTP conversion service
//   nfeconv version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : core conversion logic (not for external import)
//   - pkg/           : shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/cmd"
)

func main() {
	cmd.Execute()
}
