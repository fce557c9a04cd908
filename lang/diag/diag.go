// Package diag defines the unified compile-error taxonomy shared by the
// parser and the compiler.
// Keeping one Kind enum and one Error type in a leaf package lets both
// lang/parser and lang/compiler produce the same kind of diagnostic without
// the compiler needing to import the parser (or vice versa).
package diag

import "fmt"

import "github.com/mna/dust/lang/token"

// Kind enumerates every compile-error variant.
type Kind uint8

//nolint:revive
const (
	_ Kind = iota

	// token-level
	ExpectedToken
	ExpectedTokenMultiple

	// parse-level
	ExpectedExpression
	ComparisonChain
	InvalidAssignmentTarget
	UnexpectedReturn
	UnknownModule
	UnknownItem
	InvalidPath

	// variable-level
	UndeclaredVariable
	VariableOutOfScope
	CannotMutateImmutableVariable
	ExpectedMutableVariable

	// type-level
	CannotAddType
	CannotAddArguments
	CannotSubtractType
	CannotSubtractArguments
	CannotMultiplyType
	CannotMultiplyArguments
	CannotDivideType
	CannotDivideArguments
	CannotModuloType
	CannotModuloArguments
	CannotNegateType
	CannotNegateArguments
	CannotNotType
	CannotNotArguments
	IfElseBranchMismatch
	IfMissingElse
	ListItemTypeConflict
	ReturnTypeConflict
	CannotResolveVariableType

	// structural
	ConstantIndexOutOfBounds
	InstructionIndexOutOfBounds
	LocalIndexOutOfBounds
	NonConstantInitializer
	TooManyRegisters
	DuplicateDefinition
	BreakOutsideLoop

	maxKind
)

var names = [...]string{
	ExpectedToken: "ExpectedToken", ExpectedTokenMultiple: "ExpectedTokenMultiple",
	ExpectedExpression: "ExpectedExpression", ComparisonChain: "ComparisonChain",
	InvalidAssignmentTarget: "InvalidAssignmentTarget", UnexpectedReturn: "UnexpectedReturn",
	UnknownModule: "UnknownModule", UnknownItem: "UnknownItem", InvalidPath: "InvalidPath",
	UndeclaredVariable: "UndeclaredVariable", VariableOutOfScope: "VariableOutOfScope",
	CannotMutateImmutableVariable: "CannotMutateImmutableVariable",
	ExpectedMutableVariable:       "ExpectedMutableVariable",
	CannotAddType:                 "CannotAddType", CannotAddArguments: "CannotAddArguments",
	CannotSubtractType: "CannotSubtractType", CannotSubtractArguments: "CannotSubtractArguments",
	CannotMultiplyType: "CannotMultiplyType", CannotMultiplyArguments: "CannotMultiplyArguments",
	CannotDivideType: "CannotDivideType", CannotDivideArguments: "CannotDivideArguments",
	CannotModuloType: "CannotModuloType", CannotModuloArguments: "CannotModuloArguments",
	CannotNegateType: "CannotNegateType", CannotNegateArguments: "CannotNegateArguments",
	CannotNotType: "CannotNotType", CannotNotArguments: "CannotNotArguments",
	IfElseBranchMismatch: "IfElseBranchMismatch", IfMissingElse: "IfMissingElse",
	ListItemTypeConflict: "ListItemTypeConflict", ReturnTypeConflict: "ReturnTypeConflict",
	CannotResolveVariableType: "CannotResolveVariableType",
	ConstantIndexOutOfBounds:  "ConstantIndexOutOfBounds",
	InstructionIndexOutOfBounds: "InstructionIndexOutOfBounds",
	LocalIndexOutOfBounds:       "LocalIndexOutOfBounds",
	NonConstantInitializer:      "NonConstantInitializer",
	TooManyRegisters:            "TooManyRegisters",
	DuplicateDefinition:         "DuplicateDefinition",
	BreakOutsideLoop:            "BreakOutsideLoop",
}

func (k Kind) String() string {
	if k > 0 && k < maxKind {
		return names[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Error is a single compile diagnostic: a Kind, a human-readable message,
// and the span(s) of the offending construct. The parser and compiler set
// only Span; Span2 stays zero for every diagnostic they produce.
type Error struct {
	Kind    Kind
	Message string
	Span    token.Span
	Span2   token.Span // zero value when unused
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Errors is a batch of diagnostics. The compiler and parser collect errors
// rather than stopping at the first one, except where
// continuing would only cascade.
type Errors []Error

func (es Errors) Error() string {
	if len(es) == 0 {
		return "no errors"
	}
	if len(es) == 1 {
		return es[0].Error()
	}
	s := fmt.Sprintf("%d errors:", len(es))
	for _, e := range es {
		s += "\n  " + e.Error()
	}
	return s
}

// Unwrap lets errors.Is/errors.As range over the individual diagnostics.
func (es Errors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}
