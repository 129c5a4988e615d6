package fieldpath

import (
	"sort"
	"strconv"
)

// Leaf is one scalar location found by Analyze.
type Leaf struct {
	Path  string
	Value any
}

// Analyze lists every scalar leaf of doc with its concrete path, using
// name[i] for array elements. Keys are visited in sorted order so the
// output is stable.
func Analyze(doc any) []Leaf {
	var out []Leaf
	explore(doc, "", &out)
	return out
}

func explore(node any, path string, out *[]Leaf) {
	switch v := node.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			next := k
			if path != "" {
				next = path + "." + k
			}
			explore(v[k], next, out)
		}
	case []any:
		for i, item := range v {
			explore(item, path+"["+strconv.Itoa(i)+"]", out)
		}
	default:
		*out = append(*out, Leaf{Path: path, Value: v})
	}
}
