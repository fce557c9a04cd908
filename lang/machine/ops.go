package machine

import (
	"math"

	"golang.org/x/exp/slices"

	"github.com/mna/dust/lang/compiler"
)

// lookupPrototype bounds-checks a nested-chunk index against prog.Functions
// before it is ever used to index the slice, rather than trusting
// a CALL instruction's encoded operand the way prog.Functions[idx] would.
// An out-of-range index can only originate from a hand-assembled or
// corrupted Chunk, since the compiler itself never emits one; this is the
// interpreter's last line of defense against that case, surfaced as an
// ERROR state instead of a slice-bounds panic.
func lookupPrototype(prog *compiler.Program, idx int) (*compiler.FunctionProto, bool) {
	if idx < 0 || idx >= len(prog.Functions) {
		return nil, false
	}
	return prog.Functions[idx], true
}

// copyArgs copies the callee's parameter slots from the caller's window
// into its own freshly grown one. slices.Clone-ing the destination span
// first documents, at the call site, that these cells start as an
// independent copy the callee may freely mutate without the caller ever
// observing it (Dust has no reference parameters).
func copyArgs(dst, src []Register, dstTags, srcTags []RegisterTag, n int) {
	copy(dst[:n], slices.Clone(src[:n]))
	copy(dstTags[:n], slices.Clone(srcTags[:n]))
}

// execArith runs one ADD/SUB/MUL/DIV/MOD instruction: same-type int/float/byte operands per
// their width's rules, plus the string/char concatenation spelled out for
// '+'. The VM never has to guess which of these applies — the instruction
// carries its OperandType already, decided once by the compiler.
func (th *Thread) execArith(op compiler.Opcode, t compiler.OperandType, frame *CallFrame, proto *compiler.FunctionProto, bAddr, cAddr compiler.Address) (Register, RegisterTag, error) {
	l, lTag := th.readOperand(frame, proto, bAddr)
	r, rTag := th.readOperand(frame, proto, cAddr)

	if t == compiler.TString {
		s := th.arena.ConcatenateStrings(
			&StringObj{S: valueString(l, lTag)},
			&StringObj{S: valueString(r, rTag)},
		)
		return Register{Obj: s}, Object, nil
	}

	switch t {
	case compiler.TInt:
		a, b := l.asInt(), r.asInt()
		switch op {
		case compiler.ADD:
			return regInt(saturateAddInt(a, b)), Scalar, nil
		case compiler.SUB:
			return regInt(saturateSubInt(a, b)), Scalar, nil
		case compiler.MUL:
			return regInt(saturateMulInt(a, b)), Scalar, nil
		case compiler.DIV:
			if b == 0 {
				return Register{}, Empty, &RuntimeError{Kind: IntegerDivideByZero}
			}
			return regInt(divInt(a, b)), Scalar, nil
		case compiler.MOD:
			if b == 0 {
				return Register{}, Empty, &RuntimeError{Kind: ModuloByZero}
			}
			return regInt(modInt(a, b)), Scalar, nil
		}
	case compiler.TByte:
		a, b := l.asByte(), r.asByte()
		switch op {
		case compiler.ADD:
			return regByte(saturateAddByte(a, b)), Scalar, nil
		case compiler.SUB:
			return regByte(saturateSubByte(a, b)), Scalar, nil
		case compiler.MUL:
			return regByte(saturateMulByte(a, b)), Scalar, nil
		case compiler.DIV:
			if b == 0 {
				return Register{}, Empty, &RuntimeError{Kind: IntegerDivideByZero}
			}
			return regByte(a / b), Scalar, nil
		case compiler.MOD:
			if b == 0 {
				return Register{}, Empty, &RuntimeError{Kind: ModuloByZero}
			}
			return regByte(a % b), Scalar, nil
		}
	case compiler.TFloat:
		a, b := l.asFloat(), r.asFloat()
		switch op {
		case compiler.ADD:
			return regFloat(a + b), Scalar, nil
		case compiler.SUB:
			return regFloat(a - b), Scalar, nil
		case compiler.MUL:
			return regFloat(a * b), Scalar, nil
		case compiler.DIV:
			return regFloat(a / b), Scalar, nil
		case compiler.MOD:
			return regFloat(goFloatMod(a, b)), Scalar, nil
		}
	}
	return Register{}, Empty, &RuntimeError{Kind: TypeMismatch, Message: "unsupported arithmetic operand type"}
}

func goFloatMod(a, b float64) float64 {
	// IEEE 754 fmod, the same math.Mod the compiler's folder uses; NaN for b == 0.
	return math.Mod(a, b)
}

func (th *Thread) execNeg(t compiler.OperandType, frame *CallFrame, proto *compiler.FunctionProto, bAddr compiler.Address) (Register, RegisterTag, error) {
	v, _ := th.readOperand(frame, proto, bAddr)
	switch t {
	case compiler.TInt:
		return regInt(saturateSubInt(0, v.asInt())), Scalar, nil
	case compiler.TFloat:
		return regFloat(-v.asFloat()), Scalar, nil
	default:
		return Register{}, Empty, &RuntimeError{Kind: TypeMismatch, Message: "cannot negate this operand type"}
	}
}

func (th *Thread) execCompare(op compiler.Opcode, t compiler.OperandType, frame *CallFrame, proto *compiler.FunctionProto, bAddr, cAddr compiler.Address) (bool, error) {
	l, lTag := th.readOperand(frame, proto, bAddr)
	r, rTag := th.readOperand(frame, proto, cAddr)

	if op == compiler.CMP_EQ || op == compiler.CMP_NEQ {
		eq, err := th.cmpEqual(t, l, r, lTag, rTag)
		if err != nil {
			return false, err
		}
		if op == compiler.CMP_NEQ {
			return !eq, nil
		}
		return eq, nil
	}

	order, err := th.cmpOrder(t, l, r)
	if err != nil {
		return false, err
	}
	switch op {
	case compiler.CMP_LT:
		return order < 0, nil
	case compiler.CMP_LE:
		return order <= 0, nil
	case compiler.CMP_GT:
		return order > 0, nil
	case compiler.CMP_GE:
		return order >= 0, nil
	}
	return false, &RuntimeError{Kind: TypeMismatch, Message: "unknown comparison opcode"}
}

// execCall implements the CALL opcode: push a new CallFrame over a freshly
// grown register window, copy the caller's argument registers into it, and
// leave frame.ip advanced past the call so returning resumes right after it
//.
func (th *Thread) execCall(prog *compiler.Program, frame *CallFrame, proto *compiler.FunctionProto, ins compiler.Instruction) error {
	calleeIdx := int(ins.B().Index)
	callee, ok := lookupPrototype(prog, calleeIdx)
	if !ok {
		return &RuntimeError{Kind: TypeMismatch, Message: "call to a prototype index outside the program"}
	}
	argBase := frame.base + int(ins.C().Index)
	dstAbs := frame.base + int(ins.A().Index)

	if len(th.callStack) >= th.MaxCallStackDepth {
		return &RuntimeError{Kind: StackOverflow, Message: "call stack exhausted"}
	}

	newBase := len(th.regs)
	if err := th.growRegisters(callee.NumRegs); err != nil {
		return err
	}
	if n := len(callee.ParamTypes); n > 0 {
		copyArgs(th.regs[newBase:], th.regs[argBase:], th.regTags[newBase:], th.regTags[argBase:], n)
	}

	frame.ip++
	th.callStack = append(th.callStack, CallFrame{
		protoIndex: calleeIdx,
		base:       newBase,
		top:        newBase + callee.NumRegs,
		returnDst:  dstAbs,
	})
	return nil
}

// execCallNative implements CALL_NATIVE: resolve the native by the Program
// slot the compiler baked into the instruction, gather its argument
// registers, and invoke it directly — no new CallFrame, since a native
// runs to completion without re-entering the interpreter.
func (th *Thread) execCallNative(prog *compiler.Program, natives []Native, frame *CallFrame, proto *compiler.FunctionProto, ins compiler.Instruction) error {
	nativeID := int(ins.B().Index)
	sig := prog.Natives[nativeID]
	native := natives[nativeID]
	argBase := frame.base + int(ins.C().Index)

	n := len(sig.Params)
	args := make([]Register, n)
	argTags := make([]RegisterTag, n)
	for k := 0; k < n; k++ {
		args[k] = th.regs[argBase+k]
		argTags[k] = th.regTags[argBase+k]
	}

	result, resultTag, err := native.Fn(th, args, argTags)
	if err != nil {
		return &RuntimeError{Kind: NativeError, Message: err.Error()}
	}
	if native.ReturnsValue {
		th.setReg(frame, ins.A(), result, resultTag)
	} else {
		th.setReg(frame, ins.A(), Register{}, Empty)
	}
	return nil
}
