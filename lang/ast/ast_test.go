package ast_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/dust/lang/ast"
	"github.com/mna/dust/lang/token"
)

func TestBuilderCompositeChildOrder(t *testing.T) {
	b := ast.NewBuilder([]byte("a+b"))
	left := b.Leaf(ast.Ident, token.Span{Start: 0, End: 1})
	right := b.Leaf(ast.Ident, token.Span{Start: 2, End: 3})
	add := b.Composite(ast.BinaryAdd, token.Span{Start: 0, End: 3}, left, right)
	tree := b.Build()

	require.Equal(t, add, tree.Root)
	require.Equal(t, 2, tree.ChildCount(add))
	assert.Equal(t, left, tree.Child(add, 0))
	assert.Equal(t, right, tree.Child(add, 1))
	assert.Equal(t, "a", tree.Text(left))
	assert.Equal(t, "b", tree.Text(right))
}

func TestIntRoundTripsNegativeValues(t *testing.T) {
	b := ast.NewBuilder(nil)
	n := b.LeafInt(token.Span{}, -12345)
	tree := b.Build()
	assert.EqualValues(t, -12345, tree.Int(n))
}

func TestFloatRoundTripsNaNBitPattern(t *testing.T) {
	bits := uint64(0x7ff8000000000001) // a specific NaN payload
	v := math.Float64frombits(bits)
	b := ast.NewBuilder(nil)
	n := b.LeafFloat(token.Span{}, v)
	tree := b.Build()
	assert.Equal(t, bits, math.Float64bits(tree.Float(n)))
}

func TestChildIndicesMatchesChild(t *testing.T) {
	b := ast.NewBuilder([]byte("xyz"))
	c0 := b.Leaf(ast.Ident, token.Span{Start: 0, End: 1})
	c1 := b.Leaf(ast.Ident, token.Span{Start: 1, End: 2})
	c2 := b.Leaf(ast.Ident, token.Span{Start: 2, End: 3})
	parent := b.Composite(ast.ListLit, token.Span{Start: 0, End: 3}, c0, c1, c2)
	tree := b.Build()

	idx := tree.ChildIndices(parent)
	require.Len(t, idx, 3)
	for i, want := range []int{c0, c1, c2} {
		assert.EqualValues(t, want, idx[i])
		assert.Equal(t, want, tree.Child(parent, i))
	}
}

func TestIsComparisonCoversExactlyComparisonKinds(t *testing.T) {
	for k := ast.Kind(0); k < ast.Kind(255); k++ {
		want := k >= ast.CmpEq && k <= ast.CmpGe
		assert.Equal(t, want, k.IsComparison(), "Kind %v", k)
		if k == ast.CmpGe {
			break
		}
	}
	assert.False(t, ast.BinaryAdd.IsComparison())
}

func TestBoolLeafRoundTrips(t *testing.T) {
	b := ast.NewBuilder(nil)
	tNode := b.LeafBool(token.Span{}, true)
	fNode := b.LeafBool(token.Span{}, false)
	tree := b.Build()
	assert.True(t, tree.Bool(tNode))
	assert.False(t, tree.Bool(fNode))
}
