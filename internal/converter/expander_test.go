package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/mapping"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/nfe"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/types"
)

const (
	detPath = "nfeProc.NFe.infNFe.det"
	pagPath = "nfeProc.NFe.infNFe.pag.detPag"
	dupPath = "nfeProc.NFe.infNFe.cobr.dup"
)

func mustMapping(t *testing.T, pairs ...string) *mapping.FieldMapping {
	t.Helper()
	m := &mapping.FieldMapping{}
	for i := 0; i+1 < len(pairs); i += 2 {
		require.NoError(t, m.Add(mapping.Entry{Path: pairs[i], Column: pairs[i+1]}))
	}
	return m
}

// invoice builds an nfeProc tree with the given repeating groups. A nil
// group is left out of the document.
func invoice(items, payments, dups []any) map[string]any {
	inf := map[string]any{
		"ide": map[string]any{"nNF": 1234.0},
	}
	if items != nil {
		inf["det"] = items
	}
	if payments != nil {
		inf["pag"] = map[string]any{"detPag": payments}
	}
	if dups != nil {
		inf["cobr"] = map[string]any{"dup": dups}
	}
	return map[string]any{"nfeProc": map[string]any{"NFe": map[string]any{"infNFe": inf}}}
}

func elements(key string, values ...any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = map[string]any{key: v}
	}
	return out
}

func newTestExpander() *Expander {
	return NewExpander(nfe.DefaultSchema(), zap.NewNop())
}

func TestExpandSimpleScenario(t *testing.T) {
	m := mustMapping(t, "a.b", "Col1")
	doc := map[string]any{"a": map[string]any{"b": "x"}}

	rows, err := newTestExpander().ExpandRows(doc, m)
	require.NoError(t, err)
	assert.Equal(t, []types.Row{{"Col1": "x"}}, rows)
}

func TestExpandNoGroupsAllEmpty(t *testing.T) {
	m := mustMapping(t, "a.b", "Col1", "a.c", "Col2")
	doc := map[string]any{"a": map[string]any{"b": ""}}

	rows, err := newTestExpander().ExpandRows(doc, m)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExpandLineItemsShareGeneralFields(t *testing.T) {
	m := mustMapping(t,
		"nfeProc.NFe.infNFe.ide.nNF", "Número",
		detPath+".prod.xProd", "Produto",
	)
	doc := invoice(elements("prod",
		map[string]any{"xProd": "A"},
		map[string]any{"xProd": "B"},
		map[string]any{"xProd": "C"},
	), nil, nil)

	rows, err := newTestExpander().ExpandRows(doc, m)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, want := range []string{"A", "B", "C"} {
		assert.Equal(t, 1234.0, rows[i]["Número"])
		assert.Equal(t, want, rows[i]["Produto"])
	}
}

func TestExpandCrossProductOrder(t *testing.T) {
	m := mustMapping(t,
		detPath+".n", "Item",
		pagPath+".n", "Pag",
		dupPath+".n", "Dup",
	)
	doc := invoice(
		elements("n", "i1", "i2"),
		elements("n", "p1", "p2"),
		elements("n", "d1", "d2", "d3"),
	)

	rows, err := newTestExpander().ExpandRows(doc, m)
	require.NoError(t, err)
	require.Len(t, rows, 2*2*3)

	var got []string
	for _, r := range rows {
		got = append(got, r["Item"].(string)+r["Pag"].(string)+r["Dup"].(string))
	}
	assert.Equal(t, []string{
		"i1p1d1", "i1p1d2", "i1p1d3", "i1p2d1", "i1p2d2", "i1p2d3",
		"i2p1d1", "i2p1d2", "i2p1d3", "i2p2d1", "i2p2d2", "i2p2d3",
	}, got)
}

func TestExpandMissingGroupsUsePlaceholder(t *testing.T) {
	m := mustMapping(t,
		detPath+".n", "Item",
		pagPath+".n", "Pag",
	)
	doc := invoice(elements("n", "i1", "i2"), nil, nil)

	rows, err := newTestExpander().ExpandRows(doc, m)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[0]["Pag"])
	assert.Contains(t, rows[0], "Pag")
}

func TestExpandSingleObjectGroup(t *testing.T) {
	m := mustMapping(t, pagPath+".vPag", "Valor")
	doc := invoice(nil, nil, nil)
	doc["nfeProc"].(map[string]any)["NFe"].(map[string]any)["infNFe"].(map[string]any)["pag"] =
		map[string]any{"detPag": map[string]any{"vPag": 10.0}}

	rows, err := newTestExpander().ExpandRows(doc, m)
	require.NoError(t, err)
	assert.Equal(t, []types.Row{{"Valor": 10.0}}, rows)
}

func TestExpandDropsAllEmptyCombinations(t *testing.T) {
	m := mustMapping(t, detPath+".n", "Item")
	doc := invoice(elements("n", "i1", "", nil, "i4"), nil, nil)

	rows, err := newTestExpander().ExpandRows(doc, m)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "i1", rows[0]["Item"])
	assert.Equal(t, "i4", rows[1]["Item"])
}

func TestExpandKeepsZeroValuedLineItem(t *testing.T) {
	m := mustMapping(t,
		detPath+".prod.vDesc", "Desconto",
		detPath+".prod.indTot", "Compõe Total",
	)
	doc := invoice([]any{
		map[string]any{"prod": map[string]any{"vDesc": 0.0}},
		map[string]any{"prod": map[string]any{"indTot": false}},
	}, nil, nil)

	rows, err := newTestExpander().ExpandRows(doc, m)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 0.0, rows[0]["Desconto"])
	assert.Equal(t, false, rows[1]["Compõe Total"])
}

func TestExpandRowCountBound(t *testing.T) {
	m := mustMapping(t,
		detPath+".n", "Item",
		pagPath+".n", "Pag",
		dupPath+".n", "Dup",
	)
	for l := 1; l <= 3; l++ {
		for p := 1; p <= 3; p++ {
			for d := 1; d <= 3; d++ {
				items := make([]any, l)
				for i := range items {
					items[i] = map[string]any{"n": "x"}
				}
				doc := invoice(items, elements("n", make([]any, p)...), elements("n", make([]any, d)...))

				rows, err := newTestExpander().ExpandRows(doc, m)
				require.NoError(t, err)
				assert.Len(t, rows, l*p*d)
			}
		}
	}
}

func TestExpandDoesNotMutateDocument(t *testing.T) {
	m := mustMapping(t, detPath+".n", "Item", "nfeProc.NFe.infNFe.ide.nNF", "Número")
	doc := invoice(elements("n", "i1", "i2"), nil, nil)
	before := invoice(elements("n", "i1", "i2"), nil, nil)

	_, err := newTestExpander().ExpandRows(doc, m)
	require.NoError(t, err)
	assert.Equal(t, before, doc)
}

func TestExpandLogsUnresolvedFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	e := NewExpander(nfe.DefaultSchema(), zap.New(core))
	m := mustMapping(t, "a.b", "Col1", "a.missing", "Col2")

	rows, err := e.ExpandRows(map[string]any{"a": map[string]any{"b": "x"}}, m)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0]["Col2"])

	entries := logs.FilterMessage("field not resolved").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "a.missing", entries[0].ContextMap()["path"])
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, isEmpty(nil))
	assert.True(t, isEmpty(""))
	assert.False(t, isEmpty(0.0))
	assert.False(t, isEmpty(false))
	assert.False(t, isEmpty(" "))
	assert.False(t, isEmpty(map[string]any{}))
}
