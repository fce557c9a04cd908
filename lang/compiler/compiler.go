package compiler

import (
	"github.com/google/uuid"

	"github.com/mna/dust/lang/ast"
	"github.com/mna/dust/lang/diag"
	"github.com/mna/dust/lang/token"
	"github.com/mna/dust/lang/types"
)

// Compile lowers tree into a Program. It never panics on a malformed
// program: every diagnostic is appended to the returned slice and lowering
// continues on a best-effort basis, mirroring the parser's recovery
// philosophy so a single source file can report more than one mistake in
// one run.
func Compile(tree *ast.Tree, natives ...NativeSig) (*Program, []diag.Error) {
	c := &compiler{tree: tree}
	c.prog = &Program{BuildID: newBuildID()}
	c.globals = map[string]globalFn{}
	c.consts = map[string]Constant{}
	c.structs = map[string]types.Type{}
	c.natives = map[string]int{}
	c.predeclareNatives(natives)

	root := tree.Root
	// Pass 1: register every top-level fn/struct signature so calls and
	// type annotations can forward-reference declarations that appear
	// later in the chunk (const values are recorded in pass 2, in order), the way github.com/mna/nenuphar/lang/compiler/pcomp.go
	// pre-registers function prototypes before compiling any body.
	for _, ci := range tree.ChildIndices(root) {
		c.predeclare(int(ci))
	}

	entry := &FunctionProto{Name: "<entry>", DropPoints: map[int][]int{}}
	c.prog.Functions = append(c.prog.Functions, entry)
	fs := newFuncState(entry)
	c.fs = fs
	fs.pushScope()
	// lastReg/lastTyp track the value of the most recent top-level
	// expression statement or let binding, so a trailing expression at chunk
	// scope can report its value the way a REPL-style "last statement's
	// value" is expected to. A statement with no value (an if, a loop, a
	// fn/struct/const item) resets it to "none".
	lastReg := -1
	var lastTyp types.Type
	for _, ci := range tree.ChildIndices(root) {
		i := int(ci)
		switch tree.Nodes[i].Kind {
		case ast.FnItem, ast.StructItem, ast.UseItem:
			c.compileItem(i) // already predeclared; this compiles the body
			lastReg = -1
		case ast.ConstItem:
			c.compileConstItem(i)
			lastReg = -1
		case ast.ExprStmt:
			lastReg, lastTyp = c.compileExpr(tree.Child(i, 0))
		case ast.LetStmt, ast.LetMutStmt:
			c.compileStmt(i)
			name := c.text(tree.Child(i, 0))
			if l, ok := fs.lookup(name); ok {
				lastReg, lastTyp = l.reg, l.typ
			} else {
				lastReg = -1
			}
		default:
			c.compileStmt(i)
			lastReg = -1
		}
	}
	// A declared parameterless `fn main` is the program's entry point: the
	// entry chunk calls it and HALTs with its result, in preference to the
	// REPL-style "value of the last top-level statement" fallback used by
	// scripts that never declare one.
	if gf, ok := c.globals["main"]; ok && len(gf.params) == 0 {
		dst := fs.temp()
		fs.emit(Encode(CALL, tagFor(gf.ret), RegAddr(dst), Address{Index: uint16(gf.protoIndex), Kind: MemEncoded}, RegAddr(fs.nextReg)))
		lastReg, lastTyp = dst, gf.ret
	}
	fs.popScope()
	if lastReg >= 0 {
		entry.Code = append(entry.Code, Encode(HALT, tagFor(lastTyp), RegAddr(lastReg), NoAddr, NoAddr))
		entry.ReturnType = lastTyp
	} else {
		entry.Code = append(entry.Code, Encode(HALT, TNone, NoAddr, NoAddr, NoAddr))
		entry.ReturnType = types.Simple(types.None)
	}
	entry.NumRegs = fs.maxReg + 1

	return c.prog, c.errs
}

// newBuildID is split out so tests can call Compile without depending on
// wall-clock/random state beyond what uuid.New already encapsulates.
func newBuildID() uuid.UUID { return uuid.New() }

type globalFn struct {
	protoIndex int
	params     []types.Type
	ret        types.Type
}

type compiler struct {
	tree *ast.Tree
	prog *Program
	errs []diag.Error

	globals map[string]globalFn
	consts  map[string]Constant
	structs map[string]types.Type
	natives map[string]int

	fs *funcState
}

func (c *compiler) errAt(kind diag.Kind, span token.Span, msg string) {
	c.errs = append(c.errs, diag.Error{Kind: kind, Message: msg, Span: span})
}

func (c *compiler) text(i int) string { return c.tree.Text(i) }

// predeclare registers the signature of a top-level fn/struct so forward
// references resolve; it does not compile bodies.
func (c *compiler) predeclare(i int) {
	t := c.tree
	switch t.Nodes[i].Kind {
	case ast.FnItem:
		name := c.text(t.Child(i, 0))
		if _, dup := c.globals[name]; dup {
			c.errAt(diag.DuplicateDefinition, t.Nodes[i].Span, "function "+name+" is already defined")
			return
		}
		n := t.ChildCount(i)
		var params []types.Type
		ret := types.Simple(types.None)
		bodyIdx := n - 1
		for k := 1; k < bodyIdx; k++ {
			child := t.Child(i, k)
			if t.Nodes[child].Kind == ast.ParamDecl {
				params = append(params, c.resolveTypeAnnot(t.Child(child, 1)))
			} else if t.Nodes[child].Kind == ast.TypeAnnot {
				ret = c.resolveTypeAnnot(child)
			}
		}
		proto := &FunctionProto{Name: name, ParamTypes: params, ReturnType: ret, DropPoints: map[int][]int{}}
		idx := len(c.prog.Functions)
		c.prog.Functions = append(c.prog.Functions, proto)
		c.globals[name] = globalFn{protoIndex: idx, params: params, ret: ret}
	case ast.StructItem:
		name := c.text(t.Child(i, 0))
		var fields []types.Field
		for k := 1; k < t.ChildCount(i); k++ {
			fd := t.Child(i, k)
			fields = append(fields, types.Field{Name: c.text(t.Child(fd, 0)), Type: c.resolveTypeAnnot(t.Child(fd, 1))})
		}
		c.structs[name] = types.Type{Kind: types.StructT, Fields: fields}
	}
}

// resolveTypeAnnot re-derives a types.Type from a TypeAnnot node's source
// span by re-scanning its text; the parser deliberately leaves type syntax
// unstructured (lang/parser's parseTypeAnnot doc explains why), so the
// compiler — the single place type resolution happens — is
// exactly where that span gets turned into a real types.Type.
func (c *compiler) resolveTypeAnnot(i int) types.Type {
	text := c.text(i)
	return c.parseTypeText(text)
}
