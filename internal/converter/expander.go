// =============================================================================
// NFe to XLSX Converter - Row Expansion Engine
// =============================================================================
//
// Flattens one parsed NFe document into output rows.
//
// EXPANSION:
//   The three repeating groups (line items, payments, duplicates) are
//   extracted and combined as a cross-product. Each mapped field is resolved
//   either against the group element of the current combination or, for
//   general fields, against the document root.
//
//   items x payments x duplicates, outer to inner:
//     det[0] detPag[0] dup[0]
//     det[0] detPag[0] dup[1]
//     det[0] detPag[1] dup[0]
//     ...
//
// =============================================================================

package converter

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/fieldpath"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/mapping"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/nfe"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/types"
)

// ErrExpansion wraps unexpected failures while expanding a document.
var ErrExpansion = errors.New("row expansion failed")

// Expander produces output rows from parsed documents.
// It holds no per-document state and is safe for concurrent use.
type Expander struct {
	schema nfe.Schema
	log    *zap.Logger
}

// NewExpander creates an Expander for the given repeating-group schema.
// A nil logger disables logging.
func NewExpander(schema nfe.Schema, log *zap.Logger) *Expander {
	if log == nil {
		log = zap.NewNop()
	}
	return &Expander{schema: schema, log: log}
}

// fieldPlan is one mapping entry with its group classification resolved
// up front, so the cross-product loop does no path work.
type fieldPlan struct {
	column string
	source string
	kind   nfe.GroupKind
	path   fieldpath.Path
}

func (e *Expander) plan(m *mapping.FieldMapping) []fieldPlan {
	entries := m.Entries()
	plans := make([]fieldPlan, len(entries))
	for i, entry := range entries {
		kind, rest := e.schema.Classify(entry.Compiled())
		plans[i] = fieldPlan{column: entry.Column, source: entry.Path, kind: kind, path: rest}
	}
	return plans
}

// ExpandRows returns the rows for one document. Rows carry only mapped
// columns; provenance is added by the caller.
//
// RULES:
//   - no group elements at all: one row from the document root, or none if
//     every field is empty
//   - otherwise: an absent group counts as one empty slot, and every
//     combination whose fields are all empty is dropped
//
// A panic during expansion is reported as ErrExpansion.
func (e *Expander) ExpandRows(doc any, m *mapping.FieldMapping) (rows []types.Row, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows = nil
			err = fmt.Errorf("%w: %v", ErrExpansion, r)
		}
	}()

	plans := e.plan(m)

	items := fieldpath.ExtractGroup(doc, e.schema.LineItems)
	payments := fieldpath.ExtractGroup(doc, e.schema.Payments)
	dups := fieldpath.ExtractGroup(doc, e.schema.Duplicates)

	if len(items) == 0 && len(payments) == 0 && len(dups) == 0 {
		row, ok := e.buildRow(doc, plans, nil, nil, nil)
		if !ok {
			return []types.Row{}, nil
		}
		return []types.Row{row}, nil
	}

	items = withPlaceholder(items)
	payments = withPlaceholder(payments)
	dups = withPlaceholder(dups)

	rows = make([]types.Row, 0, len(items)*len(payments)*len(dups))
	for _, item := range items {
		for _, payment := range payments {
			for _, dup := range dups {
				if row, ok := e.buildRow(doc, plans, item, payment, dup); ok {
					rows = append(rows, row)
				}
			}
		}
	}

	return rows, nil
}

// buildRow resolves every planned field for one combination and reports
// whether at least one of them is non-empty.
func (e *Expander) buildRow(doc any, plans []fieldPlan, item, payment, dup any) (types.Row, bool) {
	row := make(types.Row, len(plans)+len(types.ProvenanceColumns))
	populated := false

	for _, p := range plans {
		var scope any
		switch p.kind {
		case nfe.GroupLineItem:
			scope = item
		case nfe.GroupPayment:
			scope = payment
		case nfe.GroupDuplicate:
			scope = dup
		default:
			scope = doc
		}

		value := fieldpath.Resolve(scope, p.path)
		if value == nil {
			if ce := e.log.Check(zap.DebugLevel, "field not resolved"); ce != nil {
				ce.Write(zap.String("path", p.source), zap.Stringer("group", p.kind))
			}
		}
		row[p.column] = value

		if !isEmpty(value) {
			populated = true
		}
	}

	return row, populated
}

func withPlaceholder(group []any) []any {
	if len(group) == 0 {
		return []any{nil}
	}
	return group
}

// isEmpty treats only nil and "" as empty. Zero and false are real values.
func isEmpty(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return s == ""
	}
	return false
}
