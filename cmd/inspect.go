// =============================================================================
// NFe to XLSX Converter - Inspect Command
// =============================================================================
//
// COMMAND USAGE:
//   nfeconv inspect FILE [--mapping-out mapping.yaml]
//
// Lists every leaf of a parsed XML file with its field path and value, so
// users can find the paths to put in a mapping. With --mapping-out the leaves
// are written as a ready-to-edit YAML mapping.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/fieldpath"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/mapping"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/nfe"
)

var inspectFlags struct {
	mappingOut string
	keepIndex  bool
}

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "List the field paths found in an XML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectFlags.mappingOut, "mapping-out", "", "Write the paths as a YAML mapping to this file")
	inspectCmd.Flags().BoolVar(&inspectFlags.keepIndex, "keep-index", false, "Keep [i] indexes in the written mapping instead of expanding repeating groups")
}

var indexSegment = regexp.MustCompile(`\[\d+\]`)

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	doc, err := nfe.Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", args[0], err)
	}

	leaves := fieldpath.Analyze(doc)

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tVALUE")
	for _, leaf := range leaves {
		fmt.Fprintf(tw, "%s\t%v\n", leaf.Path, leaf.Value)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if inspectFlags.mappingOut == "" {
		return nil
	}

	m := mappingFromLeaves(leaves, inspectFlags.keepIndex)
	out, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode mapping: %w", err)
	}
	if err := os.WriteFile(inspectFlags.mappingOut, out, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d field(s) to %s\n", m.Len(), inspectFlags.mappingOut)
	return nil
}

// mappingFromLeaves maps every leaf to a column named after its path. Text
// wrappers are folded into their element and, unless keepIndex is set,
// array indexes are dropped so repeating groups expand into rows.
func mappingFromLeaves(leaves []fieldpath.Leaf, keepIndex bool) *mapping.FieldMapping {
	m := &mapping.FieldMapping{}
	for _, leaf := range leaves {
		path := strings.TrimSuffix(leaf.Path, "."+fieldpath.TextKey)
		if !keepIndex {
			path = indexSegment.ReplaceAllString(path, "")
		}
		if _, dup := m.Lookup(path); dup {
			continue
		}
		if err := m.Add(mapping.Entry{Path: path, Column: path}); err != nil {
			logger.Debug("skipping path", zap.String("path", path), zap.Error(err))
		}
	}
	return m
}
