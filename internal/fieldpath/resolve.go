package fieldpath

// Resolve returns the single value at p, or nil when any step is missing.
//
// An array met on the way is collapsed to its first element unless the
// segment carries an explicit index. If the final node is an element that
// wraps text, the text is returned instead of the element. Resolve never
// mutates doc.
func Resolve(doc any, p Path) any {
	cur, ok := walk(doc, p)
	if !ok {
		return nil
	}
	return unwrapText(cur)
}

// ExtractGroup returns every repetition found at p.
//
// Unlike Resolve, a final array is returned as-is: an array yields its
// elements, a single element yields a one-element list and an absent path
// yields an empty list.
func ExtractGroup(doc any, p Path) []any {
	cur, ok := walk(doc, p)
	if !ok {
		return []any{}
	}
	return normalizeGroup(cur)
}

// normalizeGroup is the single place where the ambiguous "one element or
// many" XML shape is turned into a list.
func normalizeGroup(node any) []any {
	switch v := node.(type) {
	case nil:
		return []any{}
	case []any:
		return v
	default:
		return []any{v}
	}
}

func walk(doc any, p Path) (any, bool) {
	cur := doc
	for _, seg := range p.segs {
		if cur == nil {
			return nil, false
		}
		if list, ok := cur.([]any); ok {
			if len(list) == 0 {
				return nil, false
			}
			cur = list[0]
		}

		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}

		switch seg.Kind {
		case Attribute:
			v, ok := obj[AttrPrefix+seg.Name]
			return v, ok && v != nil

		case Indexed:
			v, ok := obj[seg.Name]
			if !ok {
				return nil, false
			}
			switch list := v.(type) {
			case []any:
				if seg.Index >= len(list) {
					return nil, false
				}
				cur = list[seg.Index]
			default:
				// a lone element is the one-element list
				if seg.Index != 0 {
					return nil, false
				}
				cur = v
			}

		default:
			v, ok := obj[seg.Name]
			if !ok {
				return nil, false
			}
			cur = v
		}
	}
	return cur, cur != nil
}

func unwrapText(node any) any {
	if obj, ok := node.(map[string]any); ok {
		if text, ok := obj[TextKey]; ok {
			return text
		}
	}
	return node
}
