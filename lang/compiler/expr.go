package compiler

import (
	"github.com/mna/dust/lang/ast"
	"github.com/mna/dust/lang/diag"
	"github.com/mna/dust/lang/token"
	"github.com/mna/dust/lang/types"
)

func tagFor(t types.Type) OperandType {
	switch t.Kind {
	case types.Integer:
		return TInt
	case types.Float:
		return TFloat
	case types.Byte:
		return TByte
	case types.Character:
		return TChar
	case types.String:
		return TString
	case types.Boolean:
		return TBool
	case types.List, types.ListEmpty:
		return TList
	default:
		return TNone
	}
}

func (c *compiler) internConst(val Constant) int {
	key := internKey(val)
	if idx, ok := c.fs.constIndex().Get(key); ok {
		return idx
	}
	idx := len(c.fs.proto.Constants)
	c.fs.proto.Constants = append(c.fs.proto.Constants, val)
	c.fs.constIndex().Put(key, idx)
	return idx
}

// compileExpr lowers one expression node, returning the register holding
// its value and the type the compiler synthesised for it.
func (c *compiler) compileExpr(i int) (int, types.Type) {
	t := c.tree
	n := t.Nodes[i]
	switch n.Kind {
	case ast.LitInt:
		reg, _ := c.loadValue(Constant{Kind: ConstInt, Int: t.Int(i)})
		return reg, types.Simple(types.Integer)
	case ast.LitFloat:
		return c.loadConst(Constant{Kind: ConstFloat, Float: t.Float(i)}, TFloat), types.Simple(types.Float)
	case ast.LitByte:
		reg, _ := c.loadValue(Constant{Kind: ConstByte, Byte: t.Byte(i)})
		return reg, types.Simple(types.Byte)
	case ast.LitChar:
		return c.loadConst(Constant{Kind: ConstChar, Char: t.Char(i)}, TChar), types.Simple(types.Character)
	case ast.LitBool:
		reg, _ := c.loadValue(Constant{Kind: ConstBool, Bool: t.Bool(i)})
		return reg, types.Simple(types.Boolean)
	case ast.LitString:
		text := t.Text(i)
		s := text
		if len(text) >= 2 {
			s = text[1 : len(text)-1]
		}
		return c.loadConst(Constant{Kind: ConstString, String: s}, TString), types.Simple(types.String)
	case ast.Ident:
		return c.compileIdent(i)
	case ast.Paren:
		return c.compileExpr(t.Child(i, 0))
	case ast.Try:
		return c.compileExpr(t.Child(i, 0))
	case ast.UnaryNeg, ast.UnaryNot:
		if val, typ, ok := c.foldConst(i); ok {
			c.traceFold(i, val)
			reg, _ := c.loadValue(val)
			return reg, typ
		}
		return c.compileUnary(i)
	case ast.BinaryAdd, ast.BinarySub, ast.BinaryMul, ast.BinaryDiv, ast.BinaryMod:
		if val, typ, ok := c.foldConst(i); ok {
			c.traceFold(i, val)
			reg, _ := c.loadValue(val)
			return reg, typ
		}
		return c.compileBinaryArith(i)
	case ast.CmpEq, ast.CmpNeq, ast.CmpLt, ast.CmpLe, ast.CmpGt, ast.CmpGe:
		if val, typ, ok := c.foldConst(i); ok {
			c.traceFold(i, val)
			reg, _ := c.loadValue(val)
			return reg, typ
		}
		return c.compileComparison(i)
	case ast.LogicalAnd, ast.LogicalOr:
		return c.compileLogical(i)
	case ast.AssignSimple, ast.AssignAdd, ast.AssignSub, ast.AssignMul, ast.AssignDiv, ast.AssignMod:
		return c.compileAssign(i)
	case ast.Call:
		return c.compileCall(i)
	case ast.Index:
		return c.compileIndex(i)
	case ast.TupleIndex:
		return c.compileTupleIndex(i)
	case ast.Field:
		return c.compileField(i)
	case ast.ListLit:
		return c.compileListLit(i)
	case ast.RangeExclusive, ast.RangeInclusive:
		return c.compileRangeAsList(i)
	default:
		c.errAt(diag.CannotResolveVariableType, n.Span, "expression form not supported here")
		reg := c.fs.temp()
		return reg, types.Simple(types.None)
	}
}

func (c *compiler) loadConst(val Constant, tag OperandType) int {
	idx := c.internConst(val)
	dst := c.fs.temp()
	c.fs.emit(Encode(LOAD_CONST, tag, RegAddr(dst), ConstAddr(idx), NoAddr))
	return dst
}

// loadEncoded materializes a small immediate directly into a fresh
// register via MOVE, without touching the constant pool at all — the
// ENCODED address kind readOperand already treats as an inline operand.
func (c *compiler) loadEncoded(imm int32, tag OperandType) int {
	dst := c.fs.temp()
	c.fs.emit(Encode(MOVE, tag, RegAddr(dst), EncodedAddr(imm), NoAddr))
	return dst
}

// fitsEncoded16 reports whether v fits in Address's signed 13-bit immediate
// field, the same range EncodedAddr accepts.
func fitsEncoded16(v int64) bool {
	return v >= -4096 && v <= 4095
}

// loadValue materializes a compile-time Constant into a register, choosing
// the operand form per the source-form table: booleans and bytes are never
// pooled — they always go through ENCODED — and a small integer takes the
// same path rather than paying for a constant-pool slot. Floats, characters,
// strings, and integers too wide to encode fall back to the constant pool.
func (c *compiler) loadValue(val Constant) (int, OperandType) {
	switch val.Kind {
	case ConstBool:
		imm := int32(0)
		if val.Bool {
			imm = 1
		}
		return c.loadEncoded(imm, TBool), TBool
	case ConstByte:
		return c.loadEncoded(int32(val.Byte), TByte), TByte
	case ConstInt:
		if fitsEncoded16(val.Int) {
			return c.loadEncoded(int32(val.Int), TInt), TInt
		}
		return c.loadConst(val, TInt), TInt
	default:
		tag := tagForConst(val)
		return c.loadConst(val, tag), tag
	}
}

func (c *compiler) compileIdent(i int) (int, types.Type) {
	name := c.tree.Text(i)
	if l, ok := c.fs.lookup(name); ok {
		return l.reg, l.typ
	}
	if cst, ok := c.consts[name]; ok {
		reg, _ := c.loadValue(cst)
		return reg, typeForConst(cst)
	}
	c.errAt(diag.UndeclaredVariable, c.tree.Nodes[i].Span, "undeclared variable "+name)
	return c.fs.temp(), types.Simple(types.None)
}

func tagForConst(c Constant) OperandType {
	switch c.Kind {
	case ConstInt:
		return TInt
	case ConstFloat:
		return TFloat
	case ConstByte:
		return TByte
	case ConstChar:
		return TChar
	case ConstString:
		return TString
	case ConstBool:
		return TBool
	}
	return TNone
}

func typeForConst(c Constant) types.Type {
	switch c.Kind {
	case ConstInt:
		return types.Simple(types.Integer)
	case ConstFloat:
		return types.Simple(types.Float)
	case ConstByte:
		return types.Simple(types.Byte)
	case ConstChar:
		return types.Simple(types.Character)
	case ConstString:
		return types.Simple(types.String)
	case ConstBool:
		return types.Simple(types.Boolean)
	}
	return types.Simple(types.None)
}

func (c *compiler) compileUnary(i int) (int, types.Type) {
	t := c.tree
	operand := t.Child(i, 0)
	reg, typ := c.compileExpr(operand)
	dst := c.fs.temp()
	op := NEG
	if t.Nodes[i].Kind == ast.UnaryNot {
		op = NOT
		if typ.Kind != types.Boolean && typ.Kind != types.Any {
			c.errAt(diag.CannotNotType, t.Nodes[i].Span, "cannot apply ! to "+typ.String())
		}
	} else if typ.Kind != types.Integer && typ.Kind != types.Float && typ.Kind != types.Any {
		c.errAt(diag.CannotNegateType, t.Nodes[i].Span, "cannot negate "+typ.String())
	}
	c.fs.emit(Encode(op, tagFor(typ), RegAddr(dst), RegAddr(reg), NoAddr))
	return dst, typ
}

var arithOpcode = map[ast.Kind]Opcode{
	ast.BinaryAdd: ADD, ast.BinarySub: SUB, ast.BinaryMul: MUL, ast.BinaryDiv: DIV, ast.BinaryMod: MOD,
}

var arithErrKind = map[ast.Kind][2]diag.Kind{
	ast.BinaryAdd: {diag.CannotAddType, diag.CannotAddArguments},
	ast.BinarySub: {diag.CannotSubtractType, diag.CannotSubtractArguments},
	ast.BinaryMul: {diag.CannotMultiplyType, diag.CannotMultiplyArguments},
	ast.BinaryDiv: {diag.CannotDivideType, diag.CannotDivideArguments},
	ast.BinaryMod: {diag.CannotModuloType, diag.CannotModuloArguments},
}

func (c *compiler) compileBinaryArith(i int) (int, types.Type) {
	t := c.tree
	k := t.Nodes[i].Kind
	lReg, lTyp := c.compileExpr(t.Child(i, 0))
	rReg, rTyp := c.compileExpr(t.Child(i, 1))
	resTyp, tag, ok := arithResult(k, lTyp, rTyp)
	if !ok {
		kinds := arithErrKind[k]
		errKind := kinds[0]
		if lTyp.Kind == rTyp.Kind {
			errKind = kinds[1]
		}
		c.errAt(errKind, t.Nodes[i].Span, "cannot apply operator to "+lTyp.String()+" and "+rTyp.String())
	}
	dst := c.fs.temp()
	c.fs.emitAt(t.Nodes[i].Span, Encode(arithOpcode[k], tag, RegAddr(dst), RegAddr(lReg), RegAddr(rReg)))
	return dst, resTyp
}

// arithResult implements the instruction-selection table for the
// arithmetic operators: same-type numeric operands saturate per their
// width; '+' additionally accepts string/char operands, concatenating them
// into a new string.
func arithResult(k ast.Kind, l, r types.Type) (types.Type, OperandType, bool) {
	if l.Kind == types.Any || r.Kind == types.Any {
		t := l
		if l.Kind == types.Any {
			t = r
		}
		return t, tagFor(t), true
	}
	if k == ast.BinaryAdd {
		if l.Kind == types.String || r.Kind == types.String ||
			((l.Kind == types.Character) && (r.Kind == types.Character)) {
			if isTextual(l) && isTextual(r) {
				return types.Simple(types.String), TString, true
			}
		}
	}
	if l.Kind == r.Kind && (l.Kind == types.Integer || l.Kind == types.Float || l.Kind == types.Byte) {
		return l, tagFor(l), true
	}
	return types.Type{}, TNone, false
}

func isTextual(t types.Type) bool {
	return t.Kind == types.String || t.Kind == types.Character
}

var cmpOpcode = map[ast.Kind]Opcode{
	ast.CmpEq: CMP_EQ, ast.CmpNeq: CMP_NEQ, ast.CmpLt: CMP_LT,
	ast.CmpLe: CMP_LE, ast.CmpGt: CMP_GT, ast.CmpGe: CMP_GE,
}

// compileComparison implements the comparator-to-bool idiom: a
// conditional skip followed by a MOVE_JUMP/MOVE pair rather than a direct
// boolean-producing instruction, so the VM core keeps exactly one
// comparison-evaluation code path shared between branch conditions and
// boolean-valued expressions.
func (c *compiler) compileComparison(i int) (int, types.Type) {
	t := c.tree
	k := t.Nodes[i].Kind
	lReg, lTyp := c.compileExpr(t.Child(i, 0))
	rReg, rTyp := c.compileExpr(t.Child(i, 1))
	tag := tagFor(lTyp)
	if !types.Equal(lTyp, rTyp) && lTyp.Kind != types.Any && rTyp.Kind != types.Any {
		c.errAt(diag.CannotResolveVariableType, t.Nodes[i].Span, "cannot compare "+lTyp.String()+" and "+rTyp.String())
	}
	dst := c.emitComparisonBool(cmpOpcode[k], tag, RegAddr(lReg), RegAddr(rReg))
	return dst, types.Simple(types.Boolean)
}

// emitComparisonBool implements the comparator-to-bool idiom shared by
// compileComparison and the range/list for-in lowerings in stmt.go: a
// conditional skip followed by a MOVE_JUMP/MOVE pair. Both legs materialize
// their boolean straight from an ENCODED immediate — a bool is never a
// constant-pool entry — rather than interning true/false into the pool.
func (c *compiler) emitComparisonBool(cmpOp Opcode, tag OperandType, lAddr, rAddr Address) int {
	dst := c.fs.temp()
	// CMP: A=1 means "skip the next instruction if the comparison is true".
	c.fs.emit(Encode(cmpOp, tag, EncodedAddr(1), lAddr, rAddr))
	c.fs.emit(Encode(MOVE_JUMP, TBool, RegAddr(dst), EncodedAddr(0), NoAddr))
	c.fs.emit(Encode(MOVE, TBool, RegAddr(dst), EncodedAddr(1), NoAddr))
	return dst
}

func (c *compiler) compileLogical(i int) (int, types.Type) {
	t := c.tree
	lReg, _ := c.compileExpr(t.Child(i, 0))
	dst := c.fs.temp()
	c.fs.emit(Encode(MOVE, TBool, RegAddr(dst), RegAddr(lReg), NoAddr))
	var shortJump int
	if t.Nodes[i].Kind == ast.LogicalAnd {
		shortJump = c.fs.emit(Encode(JUMP_IF_FALSE, TBool, RegAddr(dst), EncodedAddr(0), NoAddr))
	} else {
		shortJump = c.fs.emit(Encode(JUMP_IF_TRUE, TBool, RegAddr(dst), EncodedAddr(0), NoAddr))
	}
	rReg, _ := c.compileExpr(t.Child(i, 1))
	c.fs.emit(Encode(MOVE, TBool, RegAddr(dst), RegAddr(rReg), NoAddr))
	c.fs.patchJumpToHere(shortJump)
	return dst, types.Simple(types.Boolean)
}

func (c *compiler) compileAssign(i int) (int, types.Type) {
	t := c.tree
	target := t.Child(i, 0)
	valueExpr := t.Child(i, 1)
	k := t.Nodes[i].Kind

	switch t.Nodes[target].Kind {
	case ast.Ident:
		name := t.Text(target)
		l, ok := c.fs.lookup(name)
		if !ok {
			c.errAt(diag.UndeclaredVariable, t.Nodes[target].Span, "undeclared variable "+name)
			return c.compileExpr(valueExpr)
		}
		if !l.mutable {
			c.errAt(diag.CannotMutateImmutableVariable, t.Nodes[target].Span, "cannot assign to immutable variable "+name)
		}
		valReg, valTyp := c.compileRHS(k, l.reg, l.typ, valueExpr, t.Nodes[i].Span)
		c.fs.emit(Encode(MOVE, tagFor(valTyp), RegAddr(l.reg), RegAddr(valReg), NoAddr))
		return l.reg, l.typ
	case ast.Index:
		listReg, listTyp := c.compileExpr(t.Child(target, 0))
		idxReg, _ := c.compileExpr(t.Child(target, 1))
		elemTyp := elemTypeOf(listTyp)
		curDst := c.fs.temp()
		c.fs.emitAt(t.Nodes[i].Span, Encode(GET_LIST, tagFor(elemTyp), RegAddr(curDst), RegAddr(listReg), RegAddr(idxReg)))
		valReg, valTyp := c.compileRHS(k, curDst, elemTyp, valueExpr, t.Nodes[i].Span)
		c.fs.emitAt(t.Nodes[i].Span, Encode(SET_LIST, tagFor(valTyp), RegAddr(listReg), RegAddr(idxReg), RegAddr(valReg)))
		return valReg, valTyp
	case ast.Field:
		recvReg, recvTyp := c.compileExpr(t.Child(target, 0))
		fieldName := t.Text(target)
		idx, fieldTyp := fieldIndexOf(recvTyp, fieldName)
		curDst := c.fs.temp()
		c.fs.emit(Encode(GET_LIST, tagFor(fieldTyp), RegAddr(curDst), RegAddr(recvReg), EncodedAddr(int32(idx))))
		valReg, valTyp := c.compileRHS(k, curDst, fieldTyp, valueExpr, t.Nodes[i].Span)
		c.fs.emit(Encode(SET_LIST, tagFor(valTyp), RegAddr(recvReg), EncodedAddr(int32(idx)), RegAddr(valReg)))
		return valReg, valTyp
	default:
		c.errAt(diag.InvalidAssignmentTarget, t.Nodes[target].Span, "not an assignable expression")
		return c.compileExpr(valueExpr)
	}
}

// compileRHS evaluates an assignment's right-hand side, folding in the
// compound operator (+=, -=, ...) against curReg/curTyp when k isn't a
// plain AssignSimple.
func (c *compiler) compileRHS(k ast.Kind, curReg int, curTyp types.Type, valueExpr int, span token.Span) (int, types.Type) {
	rReg, rTyp := c.compileExpr(valueExpr)
	if k == ast.AssignSimple {
		return rReg, rTyp
	}
	var binKind ast.Kind
	switch k {
	case ast.AssignAdd:
		binKind = ast.BinaryAdd
	case ast.AssignSub:
		binKind = ast.BinarySub
	case ast.AssignMul:
		binKind = ast.BinaryMul
	case ast.AssignDiv:
		binKind = ast.BinaryDiv
	case ast.AssignMod:
		binKind = ast.BinaryMod
	}
	resTyp, tag, ok := arithResult(binKind, curTyp, rTyp)
	if !ok {
		c.errAt(arithErrKind[binKind][0], span, "cannot apply compound assignment operator to "+curTyp.String()+" and "+rTyp.String())
	}
	dst := c.fs.temp()
	c.fs.emit(Encode(arithOpcode[binKind], tag, RegAddr(dst), RegAddr(curReg), RegAddr(rReg)))
	return dst, resTyp
}

func (c *compiler) compileCall(i int) (int, types.Type) {
	t := c.tree
	calleeIdx := t.Child(i, 0)
	if t.Nodes[calleeIdx].Kind != ast.Ident {
		c.errAt(diag.CannotResolveVariableType, t.Nodes[i].Span, "only direct calls to named functions are supported")
		return c.fs.temp(), types.Simple(types.None)
	}
	name := t.Text(calleeIdx)
	span := t.Nodes[i].Span
	// CALL/CALL_NATIVE read arguments from a contiguous run starting at C;
	// evaluated arguments may land anywhere, so each is copied into one.
	compileArgs := func() int {
		var regs []int
		var typs []types.Type
		for k := 1; k < t.ChildCount(i); k++ {
			reg, typ := c.compileExpr(t.Child(i, k))
			regs, typs = append(regs, reg), append(typs, typ)
		}
		base := c.fs.nextReg
		for k, reg := range regs {
			c.fs.emit(Encode(MOVE, tagFor(typs[k]), RegAddr(c.fs.temp()), RegAddr(reg), NoAddr))
		}
		return base
	}
	if gf, ok := c.globals[name]; ok {
		base := compileArgs()
		dst := c.fs.temp()
		c.fs.emitAt(span, Encode(CALL, tagFor(gf.ret), RegAddr(dst), Address{Index: uint16(gf.protoIndex), Kind: MemEncoded}, RegAddr(base)))
		return dst, gf.ret
	}
	if nativeID, ok := c.natives[name]; ok {
		sig := c.prog.Natives[nativeID]
		base := compileArgs()
		dst := c.fs.temp()
		c.fs.emitAt(span, Encode(CALL_NATIVE, tagFor(sig.Return), RegAddr(dst), Address{Index: uint16(nativeID), Kind: MemEncoded}, RegAddr(base)))
		return dst, sig.Return
	}
	c.errAt(diag.UndeclaredVariable, t.Nodes[calleeIdx].Span, "call to undeclared function "+name)
	return c.fs.temp(), types.Simple(types.None)
}

func (c *compiler) compileIndex(i int) (int, types.Type) {
	t := c.tree
	listReg, listTyp := c.compileExpr(t.Child(i, 0))
	idxReg, _ := c.compileExpr(t.Child(i, 1))
	elemTyp := elemTypeOf(listTyp)
	dst := c.fs.temp()
	c.fs.emitAt(t.Nodes[i].Span, Encode(GET_LIST, tagFor(elemTyp), RegAddr(dst), RegAddr(listReg), RegAddr(idxReg)))
	return dst, elemTyp
}

func (c *compiler) compileTupleIndex(i int) (int, types.Type) {
	t := c.tree
	recvReg, recvTyp := c.compileExpr(t.Child(i, 0))
	idx := t.Int(t.Child(i, 1))
	elemTyp := elemTypeOf(recvTyp)
	dst := c.fs.temp()
	c.fs.emit(Encode(GET_LIST, tagFor(elemTyp), RegAddr(dst), RegAddr(recvReg), EncodedAddr(int32(idx))))
	return dst, elemTyp
}

func (c *compiler) compileField(i int) (int, types.Type) {
	t := c.tree
	recvReg, recvTyp := c.compileExpr(t.Child(i, 0))
	name := t.Text(i)
	idx, fieldTyp := fieldIndexOf(recvTyp, name)
	dst := c.fs.temp()
	c.fs.emit(Encode(GET_LIST, tagFor(fieldTyp), RegAddr(dst), RegAddr(recvReg), EncodedAddr(int32(idx))))
	return dst, fieldTyp
}

func fieldIndexOf(t types.Type, name string) (int, types.Type) {
	for idx, f := range t.Fields {
		if f.Name == name {
			return idx, f.Type
		}
	}
	return 0, types.Simple(types.Any)
}

func elemTypeOf(t types.Type) types.Type {
	if t.Elem != nil {
		return *t.Elem
	}
	return types.Simple(types.Any)
}

func (c *compiler) compileListLit(i int) (int, types.Type) {
	t := c.tree
	n := t.ChildCount(i)
	regs := make([]int, n)
	var elemTyp types.Type
	for k := 0; k < n; k++ {
		reg, typ := c.compileExpr(t.Child(i, k))
		regs[k] = reg
		if k == 0 {
			elemTyp = typ
		} else if unified, ok := types.Unify(elemTyp, typ); ok {
			elemTyp = unified
		} else {
			c.errAt(diag.ListItemTypeConflict, t.Nodes[i].Span, "list elements have inconsistent types")
		}
	}
	if n == 0 {
		dst := c.fs.temp()
		c.fs.emit(Encode(NEW_LIST, TNone, RegAddr(dst), RegAddr(0), EncodedAddr(0)))
		return dst, types.Simple(types.ListEmpty)
	}
	// NEW_LIST reads its elements from a contiguous register run; copy each
	// element value into one, as compileRangeAsList does for its bounds.
	base := c.fs.nextReg
	for _, reg := range regs {
		c.fs.emit(Encode(MOVE, tagFor(elemTyp), RegAddr(c.fs.temp()), RegAddr(reg), NoAddr))
	}
	dst := c.fs.temp()
	c.fs.emit(Encode(NEW_LIST, tagFor(elemTyp), RegAddr(dst), RegAddr(base), EncodedAddr(int32(n))))
	return dst, types.ListOf(elemTyp)
}

// compileRangeAsList lowers a bare range expression (outside of a for-in
// header, where compileForInRange in this package's stmt.go handles ranges
// directly) into a two-element list [low, high], tagged with a Range type
// so later stages can still tell it apart from an ordinary 2-element list.
func (c *compiler) compileRangeAsList(i int) (int, types.Type) {
	t := c.tree
	loReg, elemTyp := c.compileExpr(t.Child(i, 0))
	hiReg, _ := c.compileExpr(t.Child(i, 1))
	// NEW_LIST wants its source elements in a contiguous register run;
	// bounds evaluated above may not land that way, so copy them into a
	// fresh contiguous pair first.
	base := c.fs.temp()
	c.fs.temp()
	c.fs.emit(Encode(MOVE, tagFor(elemTyp), RegAddr(base), RegAddr(loReg), NoAddr))
	c.fs.emit(Encode(MOVE, tagFor(elemTyp), RegAddr(base+1), RegAddr(hiReg), NoAddr))
	dst := c.fs.temp()
	c.fs.emit(Encode(NEW_LIST, tagFor(elemTyp), RegAddr(dst), RegAddr(base), EncodedAddr(2)))
	return dst, types.Type{Kind: types.Range, Of: &elemTyp}
}
