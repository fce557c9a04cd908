package compiler

import (
	"math"
	"strings"

	"github.com/mna/dust/lang/ast"
	"github.com/mna/dust/lang/types"
)

// traceFold appends a FoldEntry for the expression at i when TraceFolding is
// set; a no-op otherwise so the common path pays nothing for it.
func (c *compiler) traceFold(i int, val Constant) {
	if !TraceFolding {
		return
	}
	c.fs.proto.FoldTrace = append(c.fs.proto.FoldTrace, FoldEntry{Span: c.tree.Nodes[i].Span, Folded: val})
}

// foldConst attempts to evaluate i entirely at compile time, using exactly
// the same saturating/IEEE semantics as the interpreter so that folding
// never changes a program's observable behavior. It recognises literals,
// const-item references, unary -/! and the binary arithmetic/comparison
// operators, recursing into both operands so `2 + 40` and `"Hello, " +
// "world!"` fold in one pass. It never folds an integer/byte DIV or MOD
// whose divisor is a literal zero: that must still surface as a runtime
// error at the DIVIDE/MODULO instruction itself, not vanish at compile
// time.
//
// This duplicates lang/machine's saturating-arithmetic helpers rather than
// importing them, since lang/machine already imports lang/compiler for the
// bytecode it executes; a compiler->machine import would cycle. Keeping
// both copies faithful to the same semantics is the property end-to-end
// tests exercise.
func (c *compiler) foldConst(i int) (Constant, types.Type, bool) {
	t := c.tree
	n := t.Nodes[i]
	switch n.Kind {
	case ast.LitInt:
		return Constant{Kind: ConstInt, Int: t.Int(i)}, types.Simple(types.Integer), true
	case ast.LitFloat:
		return Constant{Kind: ConstFloat, Float: t.Float(i)}, types.Simple(types.Float), true
	case ast.LitByte:
		return Constant{Kind: ConstByte, Byte: t.Byte(i)}, types.Simple(types.Byte), true
	case ast.LitChar:
		return Constant{Kind: ConstChar, Char: t.Char(i)}, types.Simple(types.Character), true
	case ast.LitBool:
		return Constant{Kind: ConstBool, Bool: t.Bool(i)}, types.Simple(types.Boolean), true
	case ast.LitString:
		text := t.Text(i)
		s := text
		if len(text) >= 2 {
			s = text[1 : len(text)-1]
		}
		return Constant{Kind: ConstString, String: s}, types.Simple(types.String), true
	case ast.Paren:
		return c.foldConst(t.Child(i, 0))
	case ast.Ident:
		if v, ok := c.consts[c.text(i)]; ok {
			return v, typeForConst(v), true
		}
		return Constant{}, types.Type{}, false
	case ast.UnaryNeg:
		v, typ, ok := c.foldConst(t.Child(i, 0))
		if !ok {
			return Constant{}, types.Type{}, false
		}
		switch v.Kind {
		case ConstInt:
			v.Int = foldSatSubInt(0, v.Int)
			return v, typ, true
		case ConstFloat:
			v.Float = -v.Float
			return v, typ, true
		default:
			return Constant{}, types.Type{}, false
		}
	case ast.UnaryNot:
		v, typ, ok := c.foldConst(t.Child(i, 0))
		if !ok || v.Kind != ConstBool {
			return Constant{}, types.Type{}, false
		}
		v.Bool = !v.Bool
		return v, typ, true
	case ast.BinaryAdd, ast.BinarySub, ast.BinaryMul, ast.BinaryDiv, ast.BinaryMod:
		return c.foldArith(n.Kind, t.Child(i, 0), t.Child(i, 1))
	case ast.CmpEq, ast.CmpNeq, ast.CmpLt, ast.CmpLe, ast.CmpGt, ast.CmpGe:
		return c.foldCompare(n.Kind, t.Child(i, 0), t.Child(i, 1))
	default:
		return Constant{}, types.Type{}, false
	}
}

func (c *compiler) foldArith(k ast.Kind, lhs, rhs int) (Constant, types.Type, bool) {
	l, lTyp, ok := c.foldConst(lhs)
	if !ok {
		return Constant{}, types.Type{}, false
	}
	r, rTyp, ok := c.foldConst(rhs)
	if !ok {
		return Constant{}, types.Type{}, false
	}

	if k == ast.BinaryAdd && isTextual(lTyp) && isTextual(rTyp) {
		return Constant{Kind: ConstString, String: foldText(l) + foldText(r)}, types.Simple(types.String), true
	}
	if lTyp.Kind != rTyp.Kind {
		return Constant{}, types.Type{}, false
	}

	switch lTyp.Kind {
	case types.Integer:
		a, b := l.Int, r.Int
		switch k {
		case ast.BinaryAdd:
			return Constant{Kind: ConstInt, Int: foldSatAddInt(a, b)}, lTyp, true
		case ast.BinarySub:
			return Constant{Kind: ConstInt, Int: foldSatSubInt(a, b)}, lTyp, true
		case ast.BinaryMul:
			return Constant{Kind: ConstInt, Int: foldSatMulInt(a, b)}, lTyp, true
		case ast.BinaryDiv, ast.BinaryMod:
			if b == 0 {
				// Must surface as a runtime IntegerDivideByZero error at the
				// right instruction, not vanish here.
				return Constant{}, types.Type{}, false
			}
			if k == ast.BinaryDiv {
				return Constant{Kind: ConstInt, Int: foldDivInt(a, b)}, lTyp, true
			}
			return Constant{Kind: ConstInt, Int: foldModInt(a, b)}, lTyp, true
		}
	case types.Byte:
		a, b := l.Byte, r.Byte
		switch k {
		case ast.BinaryAdd:
			return Constant{Kind: ConstByte, Byte: foldSatAddByte(a, b)}, lTyp, true
		case ast.BinarySub:
			return Constant{Kind: ConstByte, Byte: foldSatSubByte(a, b)}, lTyp, true
		case ast.BinaryMul:
			return Constant{Kind: ConstByte, Byte: foldSatMulByte(a, b)}, lTyp, true
		case ast.BinaryDiv, ast.BinaryMod:
			if b == 0 {
				return Constant{}, types.Type{}, false
			}
			if k == ast.BinaryDiv {
				return Constant{Kind: ConstByte, Byte: a / b}, lTyp, true
			}
			return Constant{Kind: ConstByte, Byte: a % b}, lTyp, true
		}
	case types.Float:
		a, b := l.Float, r.Float
		switch k {
		case ast.BinaryAdd:
			return Constant{Kind: ConstFloat, Float: a + b}, lTyp, true
		case ast.BinarySub:
			return Constant{Kind: ConstFloat, Float: a - b}, lTyp, true
		case ast.BinaryMul:
			return Constant{Kind: ConstFloat, Float: a * b}, lTyp, true
		case ast.BinaryDiv:
			return Constant{Kind: ConstFloat, Float: a / b}, lTyp, true
		case ast.BinaryMod:
			return Constant{Kind: ConstFloat, Float: math.Mod(a, b)}, lTyp, true
		}
	}
	return Constant{}, types.Type{}, false
}

func foldText(c Constant) string {
	if c.Kind == ConstString {
		return c.String
	}
	return string(c.Char)
}

func (c *compiler) foldCompare(k ast.Kind, lhs, rhs int) (Constant, types.Type, bool) {
	l, lTyp, ok := c.foldConst(lhs)
	if !ok {
		return Constant{}, types.Type{}, false
	}
	r, rTyp, ok := c.foldConst(rhs)
	if !ok || lTyp.Kind != rTyp.Kind {
		return Constant{}, types.Type{}, false
	}

	boolT := types.Simple(types.Boolean)
	if k == ast.CmpEq || k == ast.CmpNeq {
		var eq bool
		switch lTyp.Kind {
		case types.Boolean:
			eq = l.Bool == r.Bool
		case types.Byte:
			eq = l.Byte == r.Byte
		case types.Character:
			eq = l.Char == r.Char
		case types.Integer:
			eq = l.Int == r.Int
		case types.Float:
			eq = l.Float == r.Float
		case types.String:
			eq = l.String == r.String
		default:
			return Constant{}, types.Type{}, false
		}
		if k == ast.CmpNeq {
			eq = !eq
		}
		return Constant{Kind: ConstBool, Bool: eq}, boolT, true
	}

	var cmp int
	switch lTyp.Kind {
	case types.Byte:
		cmp = compareOrdered(l.Byte, r.Byte)
	case types.Character:
		cmp = compareOrdered(l.Char, r.Char)
	case types.Integer:
		cmp = compareOrdered(l.Int, r.Int)
	case types.Float:
		cmp = compareOrdered(l.Float, r.Float)
	case types.String:
		cmp = strings.Compare(l.String, r.String)
	default:
		return Constant{}, types.Type{}, false
	}
	var result bool
	switch k {
	case ast.CmpLt:
		result = cmp < 0
	case ast.CmpLe:
		result = cmp <= 0
	case ast.CmpGt:
		result = cmp > 0
	case ast.CmpGe:
		result = cmp >= 0
	}
	return Constant{Kind: ConstBool, Bool: result}, boolT, true
}

func compareOrdered[T int64 | float64 | uint8 | int32](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// The following mirror lang/machine/arith.go exactly; see foldConst's
// doc comment for why duplication beats an import cycle here.

func foldSatAddInt(a, b int64) int64 {
	c := a + b
	if (b > 0 && c < a) || (b < 0 && c > a) {
		if b > 0 {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return c
}

func foldSatSubInt(a, b int64) int64 {
	c := a - b
	if (b < 0 && c < a) || (b > 0 && c > a) {
		if b < 0 {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return c
}

func foldSatMulInt(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	c := a * b
	if c/b != a {
		if (a > 0) == (b > 0) {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return c
}

func foldDivInt(a, b int64) int64 {
	if a == math.MinInt64 && b == -1 {
		return math.MaxInt64
	}
	return a / b
}

func foldModInt(a, b int64) int64 {
	if a == math.MinInt64 && b == -1 {
		return 0
	}
	return a % b
}

func foldSatAddByte(a, b uint8) uint8 {
	s := int(a) + int(b)
	if s > math.MaxUint8 {
		return math.MaxUint8
	}
	return uint8(s)
}

func foldSatSubByte(a, b uint8) uint8 {
	s := int(a) - int(b)
	if s < 0 {
		return 0
	}
	return uint8(s)
}

func foldSatMulByte(a, b uint8) uint8 {
	s := int(a) * int(b)
	if s > math.MaxUint8 {
		return math.MaxUint8
	}
	return uint8(s)
}
