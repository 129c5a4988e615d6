// Package fieldpath implements the field-path language used by mappings
// ("a.b[2].@Id") and its evaluation against a parsed document tree.
//
// A document tree is made of map[string]any (elements), []any (repeated
// siblings) and scalars. Attribute keys carry AttrPrefix and the text of
// an element that also has attributes or children lives under TextKey.
package fieldpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// AttrPrefix marks attribute keys, both in paths and in document trees.
	AttrPrefix = "@"

	// TextKey holds element text when the element is not a bare scalar.
	TextKey = "_text"
)

// ErrInvalidPath is returned by Parse for malformed path expressions.
var ErrInvalidPath = errors.New("invalid field path")

// SegmentKind distinguishes the three kinds of path segment.
type SegmentKind int

const (
	// Field selects a child element by tag name.
	Field SegmentKind = iota
	// Indexed selects one element of a repeated child: name[N].
	Indexed
	// Attribute selects an attribute of the current element: @name.
	Attribute
)

// Segment is one step of a parsed path.
type Segment struct {
	Kind  SegmentKind
	Name  string
	Index int
}

func (s Segment) String() string {
	switch s.Kind {
	case Indexed:
		return s.Name + "[" + strconv.Itoa(s.Index) + "]"
	case Attribute:
		return AttrPrefix + s.Name
	default:
		return s.Name
	}
}

// Path is a parsed, immutable field path.
type Path struct {
	raw  string
	segs []Segment
}

// Parse compiles a dot/bracket path expression.
//
// Attribute segments must be last, since attributes are always leaves.
func Parse(expr string) (Path, error) {
	if strings.TrimSpace(expr) == "" {
		return Path{}, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	parts := strings.Split(expr, ".")
	segs := make([]Segment, 0, len(parts))
	for i, part := range parts {
		seg, err := parseSegment(part)
		if err != nil {
			return Path{}, fmt.Errorf("%w: %q: %v", ErrInvalidPath, expr, err)
		}
		if seg.Kind == Attribute && i != len(parts)-1 {
			return Path{}, fmt.Errorf("%w: %q: attribute %q must be the last segment", ErrInvalidPath, expr, part)
		}
		segs = append(segs, seg)
	}

	return Path{raw: expr, segs: segs}, nil
}

// MustParse is like Parse but panics on error. Intended for package-level
// defaults and tests.
func MustParse(expr string) Path {
	p, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func parseSegment(part string) (Segment, error) {
	if part == "" {
		return Segment{}, errors.New("empty segment")
	}

	if strings.HasPrefix(part, AttrPrefix) {
		name := part[len(AttrPrefix):]
		if name == "" || strings.ContainsAny(name, "[]") {
			return Segment{}, fmt.Errorf("bad attribute segment %q", part)
		}
		return Segment{Kind: Attribute, Name: name}, nil
	}

	open := strings.IndexByte(part, '[')
	if open < 0 {
		if strings.ContainsRune(part, ']') {
			return Segment{}, fmt.Errorf("unbalanced bracket in %q", part)
		}
		return Segment{Kind: Field, Name: part}, nil
	}

	if open == 0 || !strings.HasSuffix(part, "]") {
		return Segment{}, fmt.Errorf("bad indexed segment %q", part)
	}
	idx, err := strconv.Atoi(part[open+1 : len(part)-1])
	if err != nil || idx < 0 {
		return Segment{}, fmt.Errorf("bad index in %q", part)
	}
	return Segment{Kind: Indexed, Name: part[:open], Index: idx}, nil
}

// String returns the expression the path was parsed from.
func (p Path) String() string { return p.raw }

// Len returns the number of segments.
func (p Path) Len() int { return len(p.segs) }

// IsZero reports whether p is the zero Path.
func (p Path) IsZero() bool { return len(p.segs) == 0 }

// Segments returns a copy of the path's segments.
func (p Path) Segments() []Segment {
	out := make([]Segment, len(p.segs))
	copy(out, p.segs)
	return out
}

// Last returns the final segment. It panics on the zero Path.
func (p Path) Last() Segment { return p.segs[len(p.segs)-1] }

// TrimPrefix strips a group root from p and reports whether p lies strictly
// below it.
//
// Segment names must match. An explicit index on the final root segment is
// ignored (the caller selects the element); earlier segments may only carry
// index 0, which is what resolution would pick anyway.
func (p Path) TrimPrefix(root Path) (Path, bool) {
	n := len(root.segs)
	if n == 0 || len(p.segs) <= n {
		return Path{}, false
	}

	for i, rs := range root.segs {
		ps := p.segs[i]
		if ps.Kind == Attribute || ps.Name != rs.Name {
			return Path{}, false
		}
		if ps.Kind == Indexed && ps.Index != 0 && i != n-1 {
			return Path{}, false
		}
	}

	rest := p.segs[n:]
	parts := make([]string, len(rest))
	for i, s := range rest {
		parts[i] = s.String()
	}
	return Path{raw: strings.Join(parts, "."), segs: rest}, true
}
