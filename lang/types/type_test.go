package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mna/dust/lang/types"
)

func TestEqualScalarKinds(t *testing.T) {
	assert.True(t, types.Equal(types.Simple(types.Integer), types.Simple(types.Integer)))
	assert.False(t, types.Equal(types.Simple(types.Integer), types.Simple(types.Float)))
}

func TestEqualListUnifiesEmptyWithConcrete(t *testing.T) {
	empty := types.Simple(types.ListEmpty)
	ofInt := types.ListOf(types.Simple(types.Integer))
	assert.True(t, types.Equal(empty, ofInt))
	assert.True(t, types.Equal(ofInt, empty))
	assert.True(t, types.Equal(empty, empty))
}

func TestEqualListComparesElementType(t *testing.T) {
	ofInt := types.ListOf(types.Simple(types.Integer))
	ofFloat := types.ListOf(types.Simple(types.Float))
	assert.False(t, types.Equal(ofInt, ofFloat))
}

func TestEqualFunctionComparesParamsAndReturn(t *testing.T) {
	f1 := types.FuncType([]types.Type{types.Simple(types.Integer)}, types.Simple(types.Boolean))
	f2 := types.FuncType([]types.Type{types.Simple(types.Integer)}, types.Simple(types.Boolean))
	f3 := types.FuncType([]types.Type{types.Simple(types.Float)}, types.Simple(types.Boolean))
	assert.True(t, types.Equal(f1, f2))
	assert.False(t, types.Equal(f1, f3))
}

func TestEqualStructComparesFieldsByNameAndType(t *testing.T) {
	s1 := types.Type{Kind: types.StructT, Fields: []types.Field{{Name: "x", Type: types.Simple(types.Integer)}}}
	s2 := types.Type{Kind: types.StructT, Fields: []types.Field{{Name: "x", Type: types.Simple(types.Integer)}}}
	s3 := types.Type{Kind: types.StructT, Fields: []types.Field{{Name: "y", Type: types.Simple(types.Integer)}}}
	assert.True(t, types.Equal(s1, s2))
	assert.False(t, types.Equal(s1, s3))
}

func TestUnifyResolvesEmptyList(t *testing.T) {
	empty := types.Simple(types.ListEmpty)
	ofInt := types.ListOf(types.Simple(types.Integer))
	got, ok := types.Unify(empty, ofInt)
	assert.True(t, ok)
	assert.True(t, types.Equal(got, ofInt))
}

func TestUnifyIncompatibleFails(t *testing.T) {
	_, ok := types.Unify(types.Simple(types.Integer), types.Simple(types.String))
	assert.False(t, ok)
}

func TestIsScalarAndIsObject(t *testing.T) {
	assert.True(t, types.Simple(types.Integer).IsScalar())
	assert.False(t, types.Simple(types.Integer).IsObject())
	assert.True(t, types.ListOf(types.Simple(types.Byte)).IsObject())
	assert.False(t, types.ListOf(types.Simple(types.Byte)).IsScalar())
}

func TestTypeStringFormatting(t *testing.T) {
	assert.Equal(t, "list[int]", types.ListOf(types.Simple(types.Integer)).String())
	assert.Equal(t, "fn(int, float) -> bool",
		types.FuncType([]types.Type{types.Simple(types.Integer), types.Simple(types.Float)}, types.Simple(types.Boolean)).String())
}
