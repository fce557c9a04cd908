package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// Disassemble renders prog as human-readable pseudo-assembly, one function
// per section, grounded in the textual form of
// github.com/mna/nenuphar/lang/compiler/asm.go
// but read-only: Dust's bytecode format, like that one, is explicitly
// not promised stable across builds, so this package exposes
// no matching assembler back into a Program, only this debugging view used
// by the CLI's compile subcommand and by compiler tests that want to
// assert on shape without comparing raw Instruction words.
func Disassemble(prog *Program) string {
	var b strings.Builder
	fmt.Fprintf(&b, "program: %s\n", prog.BuildID)
	if len(prog.Natives) > 0 {
		b.WriteString("natives:\n")
		for _, n := range prog.Natives {
			var params []string
			for _, p := range n.Params {
				params = append(params, p.String())
			}
			fmt.Fprintf(&b, "\t%s(%s) -> %s\n", n.Name, strings.Join(params, ", "), n.Return)
		}
	}
	for i, fn := range prog.Functions {
		disassembleFunc(&b, i, fn)
	}
	return b.String()
}

func disassembleFunc(b *strings.Builder, idx int, fn *FunctionProto) {
	name := fn.Name
	if name == "" {
		name = fmt.Sprintf("fn%d", idx)
	}
	fmt.Fprintf(b, "function: %s #%d <regs=%d> -> %s\n", name, idx, fn.NumRegs, fn.ReturnType)
	if len(fn.Constants) > 0 {
		b.WriteString("\tconstants:\n")
		for i, c := range fn.Constants {
			fmt.Fprintf(b, "\t\t%d: %s\n", i, formatConstant(c))
		}
	}
	b.WriteString("\tcode:\n")
	for i, ins := range fn.Code {
		fmt.Fprintf(b, "\t\t%4d: %s", i, formatInstruction(ins))
		if sp, ok := fn.Spans[i]; ok {
			fmt.Fprintf(b, "  ; [%d:%d]", sp.Start, sp.End)
		}
		b.WriteByte('\n')
		if drops, ok := fn.DropPoints[i]; ok {
			fmt.Fprintf(b, "\t\t      drop %v\n", drops)
		}
	}
	if len(fn.FoldTrace) > 0 {
		b.WriteString("\tfolded:\n")
		for _, e := range fn.FoldTrace {
			fmt.Fprintf(b, "\t\t[%d:%d] -> %s\n", e.Span.Start, e.Span.End, formatConstant(e.Folded))
		}
	}
}

func formatConstant(c Constant) string {
	switch c.Kind {
	case ConstInt:
		return fmt.Sprintf("int    %d", c.Int)
	case ConstFloat:
		return fmt.Sprintf("float  %s", strconv.FormatFloat(c.Float, 'g', -1, 64))
	case ConstByte:
		return fmt.Sprintf("byte   0x%02x", c.Byte)
	case ConstChar:
		return fmt.Sprintf("char   %q", c.Char)
	case ConstString:
		return fmt.Sprintf("string %q", c.String)
	case ConstBool:
		return fmt.Sprintf("bool   %t", c.Bool)
	default:
		return "?"
	}
}

func formatInstruction(ins Instruction) string {
	op := ins.Op()
	t := ins.Type()
	a, bAddr, c := ins.A(), ins.B(), ins.C()
	var parts []string
	for _, addr := range []Address{a, bAddr, c} {
		if addr.Kind == MemNone {
			continue
		}
		parts = append(parts, formatAddress(addr))
	}
	s := strings.ToUpper(op.String())
	if t != TNone {
		s += "/" + strings.ToUpper(t.String())
	}
	if len(parts) > 0 {
		s += " " + strings.Join(parts, ", ")
	}
	return s
}

func formatAddress(a Address) string {
	switch a.Kind {
	case MemRegister:
		return fmt.Sprintf("r%d", a.Index)
	case MemConstant:
		return fmt.Sprintf("k%d", a.Index)
	case MemEncoded:
		return fmt.Sprintf("#%d", a.Imm())
	default:
		return "-"
	}
}
