package compiler

import (
	"github.com/mna/dust/lang/ast"
	"github.com/mna/dust/lang/diag"
	"github.com/mna/dust/lang/types"
)

// compileStmt lowers one statement node. Unlike compileExpr it returns
// nothing: statements are compiled purely for effect and control flow.
func (c *compiler) compileStmt(i int) {
	t := c.tree
	switch t.Nodes[i].Kind {
	case ast.ExprStmt:
		c.compileExpr(t.Child(i, 0))
	case ast.LetStmt, ast.LetMutStmt:
		c.compileLet(i)
	case ast.Block:
		c.fs.pushScope()
		for _, ci := range t.ChildIndices(i) {
			c.compileStmt(int(ci))
		}
		c.fs.emitDrop(c.fs.popScope())
	case ast.IfStmt:
		c.compileIf(i)
	case ast.IfStmtNoElse:
		c.compileIfNoElse(i)
	case ast.WhileStmt:
		c.compileWhile(i)
	case ast.LoopStmt:
		c.compileLoop(i)
	case ast.ForInStmt:
		c.compileForIn(i)
	case ast.ReturnStmt:
		c.compileReturn(i)
	case ast.BreakStmt:
		c.compileBreak(i)
	default:
		// A bare expression reached as a top-level chunk statement (the
		// parser allows any expression where a statement is expected).
		c.compileExpr(i)
	}
}

func (c *compiler) compileLet(i int) {
	t := c.tree
	name := c.text(t.Child(i, 0))
	valueIdx := t.Child(i, t.ChildCount(i)-1)
	valReg, valTyp := c.compileExpr(valueIdx)

	if t.ChildCount(i) == 3 {
		annotIdx := t.Child(i, 1)
		declared := c.resolveTypeAnnot(annotIdx)
		if unified, ok := types.Unify(declared, valTyp); ok {
			valTyp = unified
		} else if declared.Kind != types.Any {
			c.errAt(diag.CannotResolveVariableType, t.Nodes[i].Span, "initializer type does not match the declared type of "+name)
		}
	}

	mutable := t.Nodes[i].Kind == ast.LetMutStmt
	reg := c.fs.declare(name, valTyp, mutable)
	c.fs.emit(Encode(MOVE, tagFor(valTyp), RegAddr(reg), RegAddr(valReg), NoAddr))
}

func (c *compiler) compileIfNoElse(i int) {
	t := c.tree
	condReg, _ := c.compileExpr(t.Child(i, 0))
	jmp := c.fs.emit(Encode(JUMP_IF_FALSE, TBool, RegAddr(condReg), EncodedAddr(0), NoAddr))
	c.compileStmt(t.Child(i, 1))
	c.fs.patchJumpToHere(jmp)
}

func (c *compiler) compileIf(i int) {
	t := c.tree
	condReg, _ := c.compileExpr(t.Child(i, 0))
	jmpFalse := c.fs.emit(Encode(JUMP_IF_FALSE, TBool, RegAddr(condReg), EncodedAddr(0), NoAddr))
	c.compileStmt(t.Child(i, 1))
	jmpEnd := c.fs.emit(Encode(JUMP, TNone, NoAddr, EncodedAddr(0), NoAddr))
	c.fs.patchJumpToHere(jmpFalse)
	c.compileStmt(t.Child(i, 2))
	c.fs.patchJumpToHere(jmpEnd)
}

func (c *compiler) compileWhile(i int) {
	t := c.tree
	start := c.fs.here()
	c.fs.pushLoop()
	condReg, _ := c.compileExpr(t.Child(i, 0))
	jmpFalse := c.fs.emit(Encode(JUMP_IF_FALSE, TBool, RegAddr(condReg), EncodedAddr(0), NoAddr))
	c.compileStmt(t.Child(i, 1))
	c.fs.emit(Encode(JUMP, TNone, NoAddr, EncodedAddr(int32(start)), NoAddr))
	c.fs.patchJumpToHere(jmpFalse)
	c.fs.popLoop()
}

func (c *compiler) compileLoop(i int) {
	t := c.tree
	start := c.fs.here()
	c.fs.pushLoop()
	c.compileStmt(t.Child(i, 0))
	c.fs.emit(Encode(JUMP, TNone, NoAddr, EncodedAddr(int32(start)), NoAddr))
	c.fs.popLoop()
}

// compileForIn special-cases a literal range header (`loop i in lo..hi`)
// into a counting loop that never materializes the range as a list value;
// any other iterable is treated as a list and walked by index via LEN/GET_LIST.
func (c *compiler) compileForIn(i int) {
	t := c.tree
	nameIdx := t.Child(i, 0)
	iterIdx := t.Child(i, 1)
	bodyIdx := t.Child(i, 2)
	name := c.text(nameIdx)

	switch t.Nodes[iterIdx].Kind {
	case ast.RangeExclusive, ast.RangeInclusive:
		c.compileForInRange(name, iterIdx, bodyIdx)
	default:
		c.compileForInList(name, iterIdx, bodyIdx)
	}
}

func (c *compiler) compileForInRange(name string, iterIdx, bodyIdx int) {
	t := c.tree
	inclusive := t.Nodes[iterIdx].Kind == ast.RangeInclusive
	loReg, elemTyp := c.compileExpr(t.Child(iterIdx, 0))
	hiReg, _ := c.compileExpr(t.Child(iterIdx, 1))

	c.fs.pushScope()
	loopReg := c.fs.declare(name, elemTyp, true)
	c.fs.emit(Encode(MOVE, tagFor(elemTyp), RegAddr(loopReg), RegAddr(loReg), NoAddr))

	start := c.fs.here()
	c.fs.pushLoop()
	// Exit the loop once loopReg no longer precedes hi (exclusive) / once it
	// no longer precedes-or-equals hi (inclusive).
	cmpOp := CMP_LT
	if inclusive {
		cmpOp = CMP_LE
	}
	condReg := c.emitComparisonBool(cmpOp, tagFor(elemTyp), RegAddr(loopReg), RegAddr(hiReg))
	jmpExit := c.fs.emit(Encode(JUMP_IF_FALSE, TBool, RegAddr(condReg), EncodedAddr(0), NoAddr))

	c.compileStmt(bodyIdx)

	oneReg := c.loadEncoded(1, TInt)
	c.fs.emit(Encode(ADD, tagFor(elemTyp), RegAddr(loopReg), RegAddr(loopReg), RegAddr(oneReg)))
	c.fs.emit(Encode(JUMP, TNone, NoAddr, EncodedAddr(int32(start)), NoAddr))
	c.fs.patchJumpToHere(jmpExit)
	c.fs.popLoop()
	c.fs.emitDrop(c.fs.popScope())
}

func (c *compiler) compileForInList(name string, iterIdx, bodyIdx int) {
	listReg, listTyp := c.compileExpr(iterIdx)
	elemTyp := elemTypeOf(listTyp)

	c.fs.pushScope()
	lenReg := c.fs.temp()
	c.fs.emit(Encode(LEN, TInt, RegAddr(lenReg), RegAddr(listReg), NoAddr))
	idxReg := c.fs.temp()
	c.fs.emit(Encode(MOVE, TInt, RegAddr(idxReg), EncodedAddr(0), NoAddr))
	loopReg := c.fs.declare(name, elemTyp, true)

	start := c.fs.here()
	c.fs.pushLoop()
	condReg := c.emitComparisonBool(CMP_LT, TInt, RegAddr(idxReg), RegAddr(lenReg))
	jmpExit := c.fs.emit(Encode(JUMP_IF_FALSE, TBool, RegAddr(condReg), EncodedAddr(0), NoAddr))

	c.fs.emit(Encode(GET_LIST, tagFor(elemTyp), RegAddr(loopReg), RegAddr(listReg), RegAddr(idxReg)))
	c.compileStmt(bodyIdx)

	oneReg := c.loadEncoded(1, TInt)
	c.fs.emit(Encode(ADD, TInt, RegAddr(idxReg), RegAddr(idxReg), RegAddr(oneReg)))
	c.fs.emit(Encode(JUMP, TNone, NoAddr, EncodedAddr(int32(start)), NoAddr))
	c.fs.patchJumpToHere(jmpExit)
	c.fs.popLoop()
	c.fs.emitDrop(c.fs.popScope())
}

func (c *compiler) compileReturn(i int) {
	t := c.tree
	if t.ChildCount(i) == 0 {
		c.fs.emit(Encode(RETURN, TNone, NoAddr, NoAddr, NoAddr))
		return
	}
	reg, typ := c.compileExpr(t.Child(i, 0))
	c.fs.emit(Encode(RETURN, tagFor(typ), RegAddr(reg), NoAddr, NoAddr))
}

func (c *compiler) compileBreak(i int) {
	t := c.tree
	if !c.fs.inLoop() {
		c.errAt(diag.BreakOutsideLoop, t.Nodes[i].Span, "break used outside of a loop")
		return
	}
	idx := c.fs.emit(Encode(JUMP, TNone, NoAddr, EncodedAddr(0), NoAddr))
	c.fs.addBreak(idx)
}
