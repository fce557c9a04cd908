package machine

import (
	"context"

	"github.com/mna/dust/lang/compiler"
)

// Run executes prog's entry chunk to completion: a plain
// fetch-decode-dispatch loop over the thread's own call stack and register
// stack, mirroring the Thread.CallInternal loop structure from
// github.com/mna/nenuphar/lang/machine/machine.go but switching on
// opcode instead of on a stack machine's operand stack, and resolving
// types from each instruction's own OperandType tag instead of from a
// runtime Value's dynamic type.
//
// The returned Register/RegisterTag pair is the top-level program's last
// expression value if the REPL-style "trailing expression" form is
// in play; ordinary top-level code that only runs statements returns an
// EMPTY register.
func (th *Thread) Run(ctx context.Context, prog *compiler.Program) (Register, RegisterTag, error) {
	th.init(ctx)
	defer th.ctxCancel()

	natives, err := th.resolveNatives(prog)
	if err != nil {
		return Register{}, Empty, err
	}

	entry := prog.Functions[compiler.EntryPoint]
	if err := th.growRegisters(entry.NumRegs); err != nil {
		return Register{}, Empty, err
	}
	th.callStack = append(th.callStack, CallFrame{protoIndex: compiler.EntryPoint, base: 0, top: entry.NumRegs, returnDst: -1})

	return th.run(prog, natives)
}

func (th *Thread) run(prog *compiler.Program, natives []Native) (Register, RegisterTag, error) {
	for {
		if th.cancelled.Load() || th.ctx.Err() != nil {
			return Register{}, Empty, &RuntimeError{Kind: Cancelled, Message: "execution cancelled"}
		}

		fi := len(th.callStack) - 1
		frame := &th.callStack[fi]
		proto := prog.Functions[frame.protoIndex]
		ins := proto.Code[frame.ip]
		op := ins.Op()

		switch op {
		case compiler.NOP:
			frame.ip++

		case compiler.LOAD_CONST:
			v, tag := th.loadConstant(proto.Constants[ins.B().Index])
			th.setReg(frame, ins.A(), v, tag)
			frame.ip++

		case compiler.MOVE:
			v, tag := th.readOperand(frame, proto, ins.B())
			th.setReg(frame, ins.A(), v, tag)
			frame.ip++

		case compiler.MOVE_JUMP:
			v, tag := th.readOperand(frame, proto, ins.B())
			th.setReg(frame, ins.A(), v, tag)
			frame.ip += 2

		case compiler.ADD, compiler.SUB, compiler.MUL, compiler.DIV, compiler.MOD:
			v, tag, rerr := th.execArith(op, ins.Type(), frame, proto, ins.B(), ins.C())
			if rerr != nil {
				return Register{}, Empty, th.annotate(rerr, proto, frame.ip)
			}
			th.setReg(frame, ins.A(), v, tag)
			frame.ip++

		case compiler.NEG:
			v, tag, rerr := th.execNeg(ins.Type(), frame, proto, ins.B())
			if rerr != nil {
				return Register{}, Empty, th.annotate(rerr, proto, frame.ip)
			}
			th.setReg(frame, ins.A(), v, tag)
			frame.ip++

		case compiler.NOT:
			src, _ := th.readOperand(frame, proto, ins.B())
			th.setReg(frame, ins.A(), regBool(!src.asBool()), Scalar)
			frame.ip++

		case compiler.CMP_EQ, compiler.CMP_NEQ, compiler.CMP_LT, compiler.CMP_LE, compiler.CMP_GT, compiler.CMP_GE:
			result, rerr := th.execCompare(op, ins.Type(), frame, proto, ins.B(), ins.C())
			if rerr != nil {
				return Register{}, Empty, th.annotate(rerr, proto, frame.ip)
			}
			skipIfTrue := ins.A().Imm() != 0
			if result == skipIfTrue {
				frame.ip += 2
			} else {
				frame.ip++
			}

		case compiler.JUMP:
			frame.ip = int(ins.B().Imm())

		case compiler.JUMP_IF_FALSE:
			cond, _ := th.readOperand(frame, proto, ins.A())
			if !cond.asBool() {
				frame.ip = int(ins.B().Imm())
			} else {
				frame.ip++
			}

		case compiler.JUMP_IF_TRUE:
			cond, _ := th.readOperand(frame, proto, ins.A())
			if cond.asBool() {
				frame.ip = int(ins.B().Imm())
			} else {
				frame.ip++
			}

		case compiler.NEW_LIST:
			n := int(ins.C().Imm())
			base := frame.base + int(ins.B().Index)
			list := th.arena.AllocateList(n)
			for k := 0; k < n; k++ {
				th.arena.InsertIntoList(list, k, th.regs[base+k], th.regTags[base+k])
			}
			th.setReg(frame, ins.A(), Register{Obj: list}, Object)
			frame.ip++

		case compiler.GET_LIST:
			listVal, listTag := th.readOperand(frame, proto, ins.B())
			if listTag != Object {
				return Register{}, Empty, th.annotate(&RuntimeError{Kind: TypeMismatch, Message: "GET_LIST on a non-list register"}, proto, frame.ip)
			}
			l := listVal.asList()
			idxVal, _ := th.readOperand(frame, proto, ins.C())
			idx := int(idxVal.asInt())
			if idx < 0 || idx >= len(l.Elems) {
				return Register{}, Empty, th.annotate(&RuntimeError{Kind: IndexOutOfBounds, Message: "list index out of bounds"}, proto, frame.ip)
			}
			th.setReg(frame, ins.A(), l.Elems[idx], l.Tags[idx])
			frame.ip++

		case compiler.SET_LIST:
			listVal, listTag := th.readOperand(frame, proto, ins.A())
			if listTag != Object {
				return Register{}, Empty, th.annotate(&RuntimeError{Kind: TypeMismatch, Message: "SET_LIST on a non-list register"}, proto, frame.ip)
			}
			l := listVal.asList()
			idxVal, _ := th.readOperand(frame, proto, ins.B())
			idx := int(idxVal.asInt())
			if idx < 0 || idx >= len(l.Elems) {
				return Register{}, Empty, th.annotate(&RuntimeError{Kind: IndexOutOfBounds, Message: "list index out of bounds"}, proto, frame.ip)
			}
			v, tag := th.readOperand(frame, proto, ins.C())
			th.arena.InsertIntoList(l, idx, v, tag)
			frame.ip++

		case compiler.LEN:
			listVal, listTag := th.readOperand(frame, proto, ins.B())
			if listTag != Object {
				return Register{}, Empty, th.annotate(&RuntimeError{Kind: TypeMismatch, Message: "LEN on a non-list register"}, proto, frame.ip)
			}
			th.setReg(frame, ins.A(), regInt(int64(len(listVal.asList().Elems))), Scalar)
			frame.ip++

		case compiler.CALL:
			if rerr := th.execCall(prog, frame, proto, ins); rerr != nil {
				return Register{}, Empty, th.annotate(rerr, proto, frame.ip)
			}

		case compiler.CALL_NATIVE:
			if rerr := th.execCallNative(prog, natives, frame, proto, ins); rerr != nil {
				return Register{}, Empty, th.annotate(rerr, proto, frame.ip)
			}
			frame.ip++

		case compiler.DROP:
			for _, r := range proto.DropPoints[frame.ip] {
				abs := frame.base + r
				th.regs[abs] = Register{}
				th.regTags[abs] = Empty
			}
			frame.ip++

		case compiler.RETURN:
			val, tag := th.readOperand(frame, proto, ins.A())
			if fi == 0 {
				return val, tag, nil
			}
			ret := frame.returnDst
			regBase := frame.base
			th.callStack = th.callStack[:fi]
			th.regs = th.regs[:regBase]
			th.regTags = th.regTags[:regBase]
			if ret >= 0 {
				th.regs[ret] = val
				th.regTags[ret] = tag
			}

		case compiler.HALT:
			val, tag := th.readOperand(frame, proto, ins.A())
			return val, tag, nil

		default:
			return Register{}, Empty, th.annotate(&RuntimeError{Kind: TypeMismatch, Message: "unknown opcode"}, proto, frame.ip)
		}
	}
}

// annotate attaches the faulting instruction's recorded span (when the
// compiler recorded one) and the function's name to a fresh RuntimeError.
func (th *Thread) annotate(err error, proto *compiler.FunctionProto, ip int) error {
	re, ok := err.(*RuntimeError)
	if !ok {
		return err
	}
	re.Proto = proto.Name
	if sp, ok := proto.Spans[ip]; ok {
		re.Span = sp
	}
	return re
}

func (th *Thread) loadConstant(c compiler.Constant) (Register, RegisterTag) {
	switch c.Kind {
	case compiler.ConstInt:
		return regInt(c.Int), Scalar
	case compiler.ConstFloat:
		return regFloat(c.Float), Scalar
	case compiler.ConstByte:
		return regByte(c.Byte), Scalar
	case compiler.ConstChar:
		return regChar(c.Char), Scalar
	case compiler.ConstBool:
		return regBool(c.Bool), Scalar
	case compiler.ConstString:
		return Register{Obj: th.arena.AllocateString(c.String)}, Object
	default:
		return Register{}, Empty
	}
}

func (th *Thread) readOperand(frame *CallFrame, proto *compiler.FunctionProto, addr compiler.Address) (Register, RegisterTag) {
	switch addr.Kind {
	case compiler.MemRegister:
		idx := frame.base + int(addr.Index)
		return th.regs[idx], th.regTags[idx]
	case compiler.MemConstant:
		return th.loadConstant(proto.Constants[addr.Index])
	case compiler.MemEncoded:
		return regInt(int64(addr.Imm())), Scalar
	default:
		return Register{}, Empty
	}
}

func (th *Thread) setReg(frame *CallFrame, addr compiler.Address, v Register, tag RegisterTag) {
	idx := frame.base + int(addr.Index)
	th.regs[idx] = v
	th.regTags[idx] = tag
}
