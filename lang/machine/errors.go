package machine

import (
	"fmt"

	"github.com/mna/dust/lang/token"
)

// RuntimeKind enumerates the runtime-error taxonomy: the only
// faults the VM itself can raise while executing an otherwise well-formed
// Chunk.
type RuntimeKind uint8

//nolint:revive
const (
	_ RuntimeKind = iota
	IntegerDivideByZero
	ModuloByZero
	IndexOutOfBounds
	StackOverflow
	TypeMismatch
	NativeError
	Cancelled

	maxRuntimeKind
)

var runtimeKindNames = [...]string{
	IntegerDivideByZero: "IntegerDivideByZero",
	ModuloByZero:        "ModuloByZero",
	IndexOutOfBounds:    "IndexOutOfBounds",
	StackOverflow:       "StackOverflow",
	TypeMismatch:        "TypeMismatch",
	NativeError:         "NativeError",
	Cancelled:           "Cancelled",
}

func (k RuntimeKind) String() string {
	if k > 0 && k < maxRuntimeKind {
		return runtimeKindNames[k]
	}
	return fmt.Sprintf("RuntimeKind(%d)", uint8(k))
}

// RuntimeError is the single error type every faulting instruction
// produces: a Kind, a free-form message (which may be empty), and
// the span of the instruction that faulted, recovered from the chunk's
// span table when available.
type RuntimeError struct {
	Kind    RuntimeKind
	Message string
	Span    token.Span
	// Proto is the name of the function prototype executing when the fault
	// occurred, for diagnostics.
	Proto string
}

func (e *RuntimeError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Kind.String()
}
