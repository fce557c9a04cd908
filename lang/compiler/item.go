package compiler

import (
	"github.com/mna/dust/lang/ast"
	"github.com/mna/dust/lang/diag"
	"github.com/mna/dust/lang/types"
)

// compileItem compiles the body of a top-level item whose signature
// predeclare already registered. StructItem and UseItem carry no runtime
// code of their own: a struct declaration only shapes field-index
// resolution (lang/compiler/compiler.go's structs table), and a use
// declaration only brings a path into scope for name resolution, which
// this single-module compiler resolves entirely at the Ident lookup site.
func (c *compiler) compileItem(i int) {
	t := c.tree
	switch t.Nodes[i].Kind {
	case ast.FnItem:
		c.compileFn(i)
	case ast.StructItem, ast.UseItem:
		// signature-only; nothing to lower.
	}
}

func (c *compiler) compileFn(i int) {
	t := c.tree
	name := c.text(t.Child(i, 0))
	gf := c.globals[name]
	proto := c.prog.Functions[gf.protoIndex]

	outer := c.fs
	fs := newFuncState(proto)
	c.fs = fs
	fs.pushScope()

	n := t.ChildCount(i)
	bodyIdx := n - 1
	paramIdx := 0
	for k := 1; k < bodyIdx; k++ {
		child := t.Child(i, k)
		if t.Nodes[child].Kind != ast.ParamDecl {
			continue // trailing return TypeAnnot, handled by predeclare already
		}
		pname := c.text(t.Child(child, 0))
		fs.declare(pname, gf.params[paramIdx], true)
		paramIdx++
	}

	// The body Block is lowered here rather than through compileStmt so the
	// fall-through check sees its last statement's instruction, not the DROP
	// safepoint that closing the block's scope appends after it.
	fs.pushScope()
	for _, ci := range t.ChildIndices(t.Child(i, bodyIdx)) {
		c.compileStmt(int(ci))
	}
	returns := len(proto.Code) > 0 && proto.Code[len(proto.Code)-1].Op() == RETURN
	fs.emitDrop(fs.popScope())

	fs.popScope()
	if !returns {
		if gf.ret.Kind == types.None {
			proto.Code = append(proto.Code, Encode(RETURN, TNone, NoAddr, NoAddr, NoAddr))
		} else {
			c.errAt(diag.ReturnTypeConflict, t.Nodes[i].Span, "function "+name+" may fall through without returning a value")
			proto.Code = append(proto.Code, Encode(RETURN, TNone, NoAddr, NoAddr, NoAddr))
		}
	}
	proto.NumRegs = fs.maxReg + 1

	c.fs = outer
}

// compileConstItem requires a compile-time-constant initializer and records the folded value in c.consts;
// const declarations never emit instructions of their own, they are
// re-embedded as literals at each use site (lang/compiler/expr.go's
// compileIdent).
func (c *compiler) compileConstItem(i int) {
	t := c.tree
	name := c.text(t.Child(i, 0))
	valueIdx := t.Child(i, t.ChildCount(i)-1)
	val, ok := c.evalConst(valueIdx)
	if !ok {
		c.errAt(diag.NonConstantInitializer, t.Nodes[i].Span, "const "+name+" must be initialized with a compile-time constant")
		return
	}
	c.consts[name] = val
}

// evalConst folds a constant expression at compile time. It only covers
// literals, unary negation, parentheses and references to earlier consts;
// any other shape (a call, a variable reference, a list literal) is reported as
// non-constant rather than guessed at.
func (c *compiler) evalConst(i int) (Constant, bool) {
	t := c.tree
	n := t.Nodes[i]
	switch n.Kind {
	case ast.LitInt:
		return Constant{Kind: ConstInt, Int: t.Int(i)}, true
	case ast.LitFloat:
		return Constant{Kind: ConstFloat, Float: t.Float(i)}, true
	case ast.LitByte:
		return Constant{Kind: ConstByte, Byte: t.Byte(i)}, true
	case ast.LitChar:
		return Constant{Kind: ConstChar, Char: t.Char(i)}, true
	case ast.LitBool:
		return Constant{Kind: ConstBool, Bool: t.Bool(i)}, true
	case ast.LitString:
		text := t.Text(i)
		s := text
		if len(text) >= 2 {
			s = text[1 : len(text)-1]
		}
		return Constant{Kind: ConstString, String: s}, true
	case ast.Paren:
		return c.evalConst(t.Child(i, 0))
	case ast.UnaryNeg:
		v, ok := c.evalConst(t.Child(i, 0))
		if !ok {
			return Constant{}, false
		}
		switch v.Kind {
		case ConstInt:
			v.Int = -v.Int
		case ConstFloat:
			v.Float = -v.Float
		default:
			return Constant{}, false
		}
		return v, true
	case ast.Ident:
		if v, ok := c.consts[c.text(i)]; ok {
			return v, true
		}
		return Constant{}, false
	default:
		return Constant{}, false
	}
}
