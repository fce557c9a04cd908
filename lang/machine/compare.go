package machine

import (
	"strings"

	"github.com/mna/dust/lang/compiler"
)

// valueString reads l as a textual operand for string concatenation: an
// OBJECT register holds a StringObj directly, a SCALAR register holds a
// single char.
// This is the one place the VM consults a register's structural Tag
// (Empty/Scalar/Object) rather than the instruction's OperandType to pick
// an arithmetic path — the two char/string representations are
// indistinguishable from the TString instruction tag alone, so the tag
// that exists to keep DROP and the GC sound doubles as the discriminator
// here.
func valueString(r Register, tag RegisterTag) string {
	if tag == Object {
		return r.asString()
	}
	return string(r.asChar())
}

// cmpEqual implements the equality semantics for CMP_EQ/CMP_NEQ
// across every operand type the comparator-to-bool idiom can be lowered
// for, including structural (depth-bounded) equality of lists.
func (th *Thread) cmpEqual(t compiler.OperandType, l, r Register, lTag, rTag RegisterTag) (bool, error) {
	switch t {
	case compiler.TBool:
		return l.asBool() == r.asBool(), nil
	case compiler.TByte:
		return l.asByte() == r.asByte(), nil
	case compiler.TChar:
		return l.asChar() == r.asChar(), nil
	case compiler.TInt:
		return l.asInt() == r.asInt(), nil
	case compiler.TFloat:
		return l.asFloat() == r.asFloat(), nil
	case compiler.TString:
		return l.asString() == r.asString(), nil
	case compiler.TList:
		if lTag == Empty || rTag == Empty {
			return lTag == rTag, nil
		}
		return th.listEqual(l.asList(), r.asList(), 0)
	default:
		return false, nil
	}
}

// cmpOrder returns -1/0/1 for CMP_LT/CMP_LE/CMP_GT/CMP_GE's ordered operand
// types; lists and booleans have no total order in Dust, so that case is a
// TypeMismatch RuntimeError rather than an arbitrary guess.
func (th *Thread) cmpOrder(t compiler.OperandType, l, r Register) (int, error) {
	switch t {
	case compiler.TByte:
		a, b := l.asByte(), r.asByte()
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		default:
			return 0, nil
		}
	case compiler.TChar:
		a, b := l.asChar(), r.asChar()
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		default:
			return 0, nil
		}
	case compiler.TInt:
		a, b := l.asInt(), r.asInt()
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		default:
			return 0, nil
		}
	case compiler.TFloat:
		a, b := l.asFloat(), r.asFloat()
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		default:
			return 0, nil
		}
	case compiler.TString:
		return strings.Compare(l.asString(), r.asString()), nil
	default:
		return 0, &RuntimeError{Kind: TypeMismatch, Message: "operand type has no total order"}
	}
}

// listEqual compares two lists structurally, recursing into nested lists
// up to MaxListCompareDepth.
func (th *Thread) listEqual(a, b *ListObj, depth int) (bool, error) {
	if depth > th.MaxListCompareDepth {
		return false, &RuntimeError{Kind: StackOverflow, Message: "list comparison nested too deeply"}
	}
	if len(a.Elems) != len(b.Elems) {
		return false, nil
	}
	for i := range a.Elems {
		if a.Tags[i] != b.Tags[i] {
			return false, nil
		}
		switch a.Tags[i] {
		case Empty:
			continue
		case Scalar:
			if a.Elems[i].Bits != b.Elems[i].Bits {
				return false, nil
			}
		case Object:
			switch av := a.Elems[i].Obj.(type) {
			case *StringObj:
				bv, ok := b.Elems[i].Obj.(*StringObj)
				if !ok || av.S != bv.S {
					return false, nil
				}
			case *ListObj:
				bv, ok := b.Elems[i].Obj.(*ListObj)
				if !ok {
					return false, nil
				}
				eq, err := th.listEqual(av, bv, depth+1)
				if err != nil {
					return false, err
				}
				if !eq {
					return false, nil
				}
			}
		}
	}
	return true, nil
}
