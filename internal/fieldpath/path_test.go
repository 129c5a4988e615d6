package fieldpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p, err := Parse("nfeProc.NFe.infNFe.det[2].@nItem")
	require.NoError(t, err)

	assert.Equal(t, "nfeProc.NFe.infNFe.det[2].@nItem", p.String())
	assert.Equal(t, 5, p.Len())
	assert.Equal(t, Segment{Kind: Indexed, Name: "det", Index: 2}, p.Segments()[3])
	assert.Equal(t, Segment{Kind: Attribute, Name: "nItem"}, p.Last())
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, expr := range []string{
		"",
		"   ",
		"a..b",
		"a.",
		".a",
		"a[x]",
		"a[-1]",
		"a[1",
		"a]",
		"[0]",
		"@",
		"@id.b",
		"a.@id[0]",
	} {
		_, err := Parse(expr)
		assert.ErrorIs(t, err, ErrInvalidPath, "expr %q", expr)
	}
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("a..b") })
}

func TestTrimPrefix(t *testing.T) {
	root := MustParse("nfeProc.NFe.infNFe.det")

	rest, ok := MustParse("nfeProc.NFe.infNFe.det.prod.xProd").TrimPrefix(root)
	require.True(t, ok)
	assert.Equal(t, "prod.xProd", rest.String())

	rest, ok = MustParse("nfeProc.NFe.infNFe.det[3].@nItem").TrimPrefix(root)
	require.True(t, ok)
	assert.Equal(t, "@nItem", rest.String())

	_, ok = MustParse("nfeProc.NFe.infNFe.detPag.vPag").TrimPrefix(root)
	assert.False(t, ok, "segment names must match exactly, not by string prefix")

	_, ok = MustParse("nfeProc.NFe.infNFe.det").TrimPrefix(root)
	assert.False(t, ok, "the group root itself is not below the root")

	_, ok = MustParse("nfeProc.NFe[1].infNFe.det.prod").TrimPrefix(root)
	assert.False(t, ok)

	_, ok = MustParse("nfeProc.NFe.infNFe.det.x").TrimPrefix(Path{})
	assert.False(t, ok)
}
