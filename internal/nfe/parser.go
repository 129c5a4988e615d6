// Package nfe turns NFe invoice XML into the generic document tree walked by
// the fieldpath package, and carries the schema knowledge (repeating groups,
// default fields, formatting registries) for that invoice layout.
package nfe

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/charmap"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/fieldpath"
)

// ErrNoRoot is returned when the input holds no root element.
var ErrNoRoot = errors.New("xml document has no root element")

// maxIntegerDigits bounds which decimal literals become numbers. Longer
// runs of digits are identifiers (CNPJ, access keys, EAN) and stay strings.
const maxIntegerDigits = 11

var decimalLiteral = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?$`)

// Parse reads one XML document into a tree of map[string]any, []any and
// scalars. The result maps the root tag to its converted content.
func Parse(data []byte) (any, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader

	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse xml: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, ErrNoRoot
	}

	return map[string]any{root.FullTag(): convertElement(root)}, nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "utf-8", "utf8", "":
		return input, nil
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
}

func convertElement(el *etree.Element) any {
	children := el.ChildElements()
	text := directText(el)

	if len(el.Attr) == 0 && len(children) == 0 {
		return parseValue(text)
	}

	node := make(map[string]any, len(el.Attr)+len(children)+1)
	for _, attr := range el.Attr {
		node[fieldpath.AttrPrefix+attr.FullKey()] = parseValue(attr.Value)
	}

	for _, child := range children {
		name := child.FullTag()
		value := convertElement(child)

		existing, seen := node[name]
		if !seen {
			node[name] = value
			continue
		}
		if list, ok := existing.([]any); ok {
			node[name] = append(list, value)
		} else {
			node[name] = []any{existing, value}
		}
	}

	if text != "" {
		node[fieldpath.TextKey] = parseValue(text)
	}

	return node
}

func directText(el *etree.Element) string {
	var sb strings.Builder
	for _, tok := range el.Child {
		if cd, ok := tok.(*etree.CharData); ok {
			sb.WriteString(cd.Data)
		}
	}
	return strings.TrimSpace(sb.String())
}

func parseValue(raw string) any {
	s := strings.TrimSpace(raw)
	switch s {
	case "":
		return ""
	case "true":
		return true
	case "false":
		return false
	}

	if !decimalLiteral.MatchString(s) {
		return s
	}
	intPart := strings.TrimPrefix(s, "-")
	if dot := strings.IndexByte(intPart, '.'); dot >= 0 {
		intPart = intPart[:dot]
	}
	if len(intPart) > maxIntegerDigits {
		return s
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return f
}
