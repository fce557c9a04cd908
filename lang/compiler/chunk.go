package compiler

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/mna/dust/lang/token"
	"github.com/mna/dust/lang/types"
)

// ConstKind tags a pooled Constant's payload.
type ConstKind uint8

//nolint:revive
const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstByte
	ConstChar
	ConstString
	ConstBool
)

// Constant is one interned literal in a Chunk's constant pool. Chunks dedup
// identical literals: two occurrences of 1.5 or "ok" in the
// same function share one pool slot. Floats are deduplicated by their exact
// IEEE-754 bit pattern, so a literal NaN is never folded together with a
// different NaN payload, and -0.0 is kept distinct from 0.0.
type Constant struct {
	Kind   ConstKind
	Int    int64
	Float  float64
	Byte   uint8
	Char   rune
	String string
	Bool   bool
}

// internKey produces the hot per-chunk interning key for a Constant, fed
// to funcState's swiss.Map-backed constant pool (see regstate.go). Floats
// key off their exact IEEE-754 bit pattern, so two NaN constants with
// identical bits share one pool slot while -0.0 stays distinct from 0.0
//.
func internKey(c Constant) string {
	switch c.Kind {
	case ConstFloat:
		return fmt.Sprintf("f:%x", math.Float64bits(c.Float))
	case ConstInt:
		return fmt.Sprintf("i:%d", c.Int)
	case ConstByte:
		return fmt.Sprintf("b:%d", c.Byte)
	case ConstChar:
		return fmt.Sprintf("c:%d", c.Char)
	case ConstString:
		return fmt.Sprintf("s:%s", c.String)
	case ConstBool:
		return fmt.Sprintf("B:%t", c.Bool)
	default:
		return fmt.Sprintf("?:%v", c)
	}
}

// FunctionProto is one compiled function: its parameter/return types, the
// instruction sequence, and the peak register count a call frame for it
// must reserve (the "watermark" the register allocator tracks).
type FunctionProto struct {
	Name       string
	ParamTypes []types.Type
	ReturnType types.Type
	Code       []Instruction
	Constants  []Constant
	NumRegs    int
	// DropPoints maps an instruction index to the register indices that
	// must be marked EMPTY at that safepoint,
	// so a reused register slot never carries a stale arena-object tag
	// forward into unrelated code.
	DropPoints map[int][]int
	// Spans maps an instruction index to the source span it was lowered
	// from, recovered by the interpreter to attach a location to a runtime
	// error. Coverage is best-effort: only
	// instructions that can themselves fault at runtime (arithmetic, list
	// indexing, calls) are recorded.
	Spans map[int]token.Span
	// FoldTrace records every constant-folding decision made while
	// compiling this function, present only when TraceFolding is set.
	FoldTrace []FoldEntry
}

// Program is a whole compiled unit: an ordered list of chunks, the first of
// which (index 0) is the implicit top-level entry point, and the named
// functions compiled alongside it.
type Program struct {
	// BuildID is a diagnostic-only identifier correlating one compilation
	// with its disassembly/trace output; Dust's bytecode format itself is
	// explicitly unstable across versions, so BuildID is never
	// part of any persisted or compared artifact.
	BuildID   uuid.UUID
	Functions []*FunctionProto
	// Natives is the ordered table of natively-implemented functions this
	// Program's CALL_NATIVE instructions were resolved against at compile
	// time; the embedder supplies the matching Go functions to
	// the machine by the same names before running the Program.
	Natives []NativeSig
}

// EntryPoint is the always-present chunk index for top-level code.
const EntryPoint = 0

// TraceFolding toggles recording of FoldTrace entries during Compile. Off by
// default since most callers never inspect it; a disassembler or test that
// wants to see which expressions the compiler folded away sets this before
// calling Compile.
var TraceFolding bool

// FoldEntry records one constant-folding decision: the span of the source
// expression that was replaced, and the pooled constant it became.
type FoldEntry struct {
	Span   token.Span
	Folded Constant
}
