// Package types defines Dust's static type system: the tagged union of
// types the compiler synthesises while it lowers the syntax tree, compared
// structurally rather than nominally. There is no separate type-checking
// pass — Equal/Unify below are called inline from lang/compiler as
// each expression is lowered.
//
// This package plays the role a runtime value package (Value, Int, Float,
// String, ...) plays in a dynamically-typed sibling language, but one level
// up: Dust bakes operand types into each instruction at compile time, so
// the VM never needs a runtime value representation with type tags — only
// the compiler needs Type.
package types

import "fmt"

// Kind is the tag of a Type's union.
type Kind uint8

//nolint:revive
const (
	Invalid Kind = iota
	Boolean
	Byte
	Character
	Float
	Integer
	String
	ListEmpty // the empty list literal's type: unifies with any List(T)
	List
	Function
	StructT
	Range
	Tuple
	Map
	Any
	None
)

var kindNames = [...]string{
	Invalid: "invalid", Boolean: "bool", Byte: "byte", Character: "char",
	Float: "float", Integer: "int", String: "str", ListEmpty: "list[]",
	List: "list", Function: "fn", StructT: "struct", Range: "range",
	Tuple: "tuple", Map: "map", Any: "any", None: "none",
}

// Type is a structural, tagged-union type value. Only the fields relevant
// to Kind are meaningful; comparisons are by Equal, never by identity.
type Type struct {
	Kind Kind

	// List: Elem is the element type; Length is the fixed length if known,
	// or -1 if unknown/variable.
	Elem   *Type
	Length int

	// Function: Params and Return.
	Params []Type
	Return *Type

	// Struct: Fields, ordered; name equality plus field-type equality decide
	// structural equality between two struct types.
	Fields []Field

	// Range: Of is the primitive element type being ranged over (Integer,
	// Byte, Character or Float).
	Of *Type

	// Tuple: Elems, in order.
	Elems []Type

	// Map: Key and Value.
	Key   *Type
	Value *Type
}

// Field is one named member of a Struct type.
type Field struct {
	Name string
	Type Type
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (t Type) String() string {
	switch t.Kind {
	case List, ListEmpty:
		if t.Elem == nil {
			return "list[]"
		}
		return fmt.Sprintf("list[%s]", t.Elem)
	case Function:
		return fmt.Sprintf("fn(%s) -> %s", joinTypes(t.Params), typeOrNone(t.Return))
	case StructT:
		return "struct"
	case Range:
		return fmt.Sprintf("range<%s>", typeOrNone(t.Of))
	case Tuple:
		return fmt.Sprintf("(%s)", joinTypes(t.Elems))
	case Map:
		return fmt.Sprintf("map[%s]%s", typeOrNone(t.Key), typeOrNone(t.Value))
	default:
		return t.Kind.String()
	}
}

func joinTypes(ts []Type) string {
	s := ""
	for i, e := range ts {
		if i > 0 {
			s += ", "
		}
		s += e.String()
	}
	return s
}

func typeOrNone(t *Type) string {
	if t == nil {
		return "none"
	}
	return t.String()
}

// IsScalar reports whether t is one of the scalar types that have their
// own instruction operand-type tag. String is among them, although string
// values themselves are allocated as arena objects.
func (t Type) IsScalar() bool {
	switch t.Kind {
	case Boolean, Byte, Character, Float, Integer, String:
		return true
	}
	return false
}

// IsObject reports whether values of t live in the thread's arena (list or
// function values).
func (t Type) IsObject() bool {
	return t.Kind == List || t.Kind == ListEmpty || t.Kind == Function
}

// Equal reports whether t and other are the same type, structurally.
// ListEmpty unifies with any List(*), in either argument position, which
// lets an empty list literal flow into any concretely-typed list context.
func Equal(t, other Type) bool {
	if t.Kind == ListEmpty && other.Kind == List || t.Kind == List && other.Kind == ListEmpty {
		return true
	}
	if t.Kind == ListEmpty && other.Kind == ListEmpty {
		return true
	}
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case List:
		return equalTypePtr(t.Elem, other.Elem)
	case Function:
		if len(t.Params) != len(other.Params) {
			return false
		}
		for i := range t.Params {
			if !Equal(t.Params[i], other.Params[i]) {
				return false
			}
		}
		return equalTypePtr(t.Return, other.Return)
	case StructT:
		if len(t.Fields) != len(other.Fields) {
			return false
		}
		for i := range t.Fields {
			if t.Fields[i].Name != other.Fields[i].Name || !Equal(t.Fields[i].Type, other.Fields[i].Type) {
				return false
			}
		}
		return true
	case Range:
		return equalTypePtr(t.Of, other.Of)
	case Tuple:
		if len(t.Elems) != len(other.Elems) {
			return false
		}
		for i := range t.Elems {
			if !Equal(t.Elems[i], other.Elems[i]) {
				return false
			}
		}
		return true
	case Map:
		return equalTypePtr(t.Key, other.Key) && equalTypePtr(t.Value, other.Value)
	default:
		return true
	}
}

func equalTypePtr(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return Equal(*a, *b)
}

// Unify merges two types that must agree, resolving the ListEmpty special
// case to the other side's concrete list type. It returns ok=false if the
// types are genuinely incompatible.
func Unify(a, b Type) (Type, bool) {
	if a.Kind == ListEmpty && (b.Kind == List || b.Kind == ListEmpty) {
		return b, true
	}
	if b.Kind == ListEmpty && a.Kind == List {
		return a, true
	}
	if Equal(a, b) {
		return a, true
	}
	return Type{}, false
}

// Convenience constructors, used throughout the compiler.
func Simple(k Kind) Type { return Type{Kind: k} }
func ListOf(elem Type) Type {
	e := elem
	return Type{Kind: List, Elem: &e, Length: -1}
}
func FuncType(params []Type, ret Type) Type {
	r := ret
	return Type{Kind: Function, Params: params, Return: &r}
}
