// Package mapping holds the ordered field mapping (field path -> output
// column) that drives a conversion run.
package mapping

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/fieldpath"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/nfe"
)

// ErrDuplicatePath is returned when a field path is mapped twice.
var ErrDuplicatePath = errors.New("field path mapped more than once")

// Entry maps one field path to one output column.
type Entry struct {
	Path   string
	Column string
	// Currency forces currency formatting even when Path is not in the
	// formatter's registry.
	Currency bool

	compiled fieldpath.Path
}

// Compiled returns the parsed form of Path.
func (e Entry) Compiled() fieldpath.Path { return e.compiled }

// FieldMapping is an insertion-ordered set of entries keyed by path.
// The zero value is an empty mapping ready for Add.
type FieldMapping struct {
	entries []Entry
	index   map[string]int
}

// New builds a mapping from entries, keeping their order.
func New(entries ...Entry) (*FieldMapping, error) {
	m := &FieldMapping{}
	for _, e := range entries {
		if err := m.Add(e); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Add appends an entry after compiling its path.
func (m *FieldMapping) Add(e Entry) error {
	p, err := fieldpath.Parse(e.Path)
	if err != nil {
		return err
	}
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if _, dup := m.index[e.Path]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, e.Path)
	}

	e.compiled = p
	m.index[e.Path] = len(m.entries)
	m.entries = append(m.entries, e)
	return nil
}

// Entries returns a copy of the entries in insertion order.
func (m *FieldMapping) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Columns returns the output column names in insertion order.
func (m *FieldMapping) Columns() []string {
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Column
	}
	return out
}

// Lookup returns the entry for path.
func (m *FieldMapping) Lookup(path string) (Entry, bool) {
	i, ok := m.index[path]
	if !ok {
		return Entry{}, false
	}
	return m.entries[i], true
}

func (m *FieldMapping) Len() int { return len(m.entries) }

// FromDictionary builds a mapping from dictionary fields. With defaultsOnly
// set only fields flagged Default are included.
func FromDictionary(fields []nfe.Field, defaultsOnly bool) (*FieldMapping, error) {
	m := &FieldMapping{}
	for _, f := range fields {
		if defaultsOnly && !f.Default {
			continue
		}
		if err := m.Add(Entry{Path: f.Path, Column: f.Column, Currency: f.Currency}); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Default returns the out-of-the-box NFe mapping.
func Default() *FieldMapping {
	m, err := FromDictionary(nfe.DefaultDictionary(), true)
	if err != nil {
		panic(err)
	}
	return m
}

// Full returns a mapping of every known NFe field.
func Full() *FieldMapping {
	m, err := FromDictionary(nfe.DefaultDictionary(), false)
	if err != nil {
		panic(err)
	}
	return m
}

// =============================================================================
// YAML DOCUMENTS
// =============================================================================
//
//   fields:
//     nfeProc.NFe.infNFe.ide.nNF: Número NF
//     nfeProc.NFe.infNFe.det.prod.vProd: Valor Item
//   currency:
//     - nfeProc.NFe.infNFe.det.prod.vProd
//
// "fields" is read as an ordered mapping node so column order survives.

// LoadYAML reads a mapping document from disk.
func LoadYAML(path string) (*FieldMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file %s: %w", path, err)
	}
	m, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mapping file %s: %w", path, err)
	}
	return m, nil
}

// ParseYAML decodes a mapping document.
func ParseYAML(data []byte) (*FieldMapping, error) {
	m := &FieldMapping{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}

type yamlDocument struct {
	Fields   yaml.Node `yaml:"fields"`
	Currency []string  `yaml:"currency,omitempty"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *FieldMapping) UnmarshalYAML(value *yaml.Node) error {
	var doc yamlDocument
	if err := value.Decode(&doc); err != nil {
		return err
	}
	if doc.Fields.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: \"fields\" must be a mapping of path to column", value.Line)
	}

	currency := make(map[string]bool, len(doc.Currency))
	for _, p := range doc.Currency {
		currency[p] = true
	}

	*m = FieldMapping{}
	content := doc.Fields.Content
	for i := 0; i+1 < len(content); i += 2 {
		key, val := content[i], content[i+1]
		if val.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: column for %q must be a string", val.Line, key.Value)
		}
		if err := m.Add(Entry{Path: key.Value, Column: val.Value, Currency: currency[key.Value]}); err != nil {
			return fmt.Errorf("line %d: %w", key.Line, err)
		}
	}
	for p := range currency {
		if _, ok := m.index[p]; !ok {
			return fmt.Errorf("currency path %q is not mapped", p)
		}
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler, writing the same document shape
// UnmarshalYAML reads.
func (m *FieldMapping) MarshalYAML() (any, error) {
	fields := &yaml.Node{Kind: yaml.MappingNode}
	var currency []string
	for _, e := range m.entries {
		fields.Content = append(fields.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Path},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Column},
		)
		if e.Currency {
			currency = append(currency, e.Path)
		}
	}
	return yamlDocument{Fields: *fields, Currency: currency}, nil
}
