package compiler

import (
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slices"

	"github.com/mna/dust/lang/token"
	"github.com/mna/dust/lang/types"
)

// local is one name bound to a register within the current function.
type local struct {
	reg     int
	typ     types.Type
	mutable bool
}

// funcState holds everything specific to compiling one function body: its
// output prototype, the register bump allocator and its watermark stack
//, lexical scopes of locals, and the jump-patch lists for
// any loops currently being compiled (used by break statements).
type funcState struct {
	proto *FunctionProto

	nextReg int
	maxReg  int
	// watermarks is a stack of nextReg values saved on block entry and
	// restored on block exit — the bump allocator's "high-water mark"
	// scheme: register slots are never individually
	// freed, only the whole block's worth at once.
	watermarks []int

	// scopes is a stack of block-scope identifier tables, one swiss.Map per
	// open block. A swiss-table map is the
	// teacher's own choice for this kind of small, short-lived,
	// lookup-heavy name table (github.com/mna/nenuphar/lang/machine/map.go);
	// Dust reuses it here for the identical reason: names are looked up far
	// more often than they are inserted, on the hottest path of the
	// compiler (every Ident node).
	scopes []*swiss.Map[string, local]

	// breakPatches is a stack, one frame per enclosing loop, of
	// instruction indices holding a placeholder JUMP that must be patched
	// to the loop's exit once the loop's body is fully compiled.
	breakPatches [][]int

	// constants dedups this function's pooled literals by internKey, so the
	// same literal used twice in one body shares one Constants slot
	//. Also backed by a swiss.Map: this is the hottest
	// single table in the compiler, since every literal in a function body
	// probes it.
	constants *swiss.Map[string, int]
}

func newFuncState(proto *FunctionProto) *funcState {
	return &funcState{proto: proto, constants: swiss.NewMap[string, int](uint32(8))}
}

// constIndex exposes the per-function constant-interning table to
// lang/compiler's expression lowering.
func (fs *funcState) constIndex() *swiss.Map[string, int] { return fs.constants }

func (fs *funcState) pushScope() {
	fs.scopes = append(fs.scopes, swiss.NewMap[string, local](uint32(4)))
	fs.watermarks = append(fs.watermarks, fs.nextReg)
}

// popScope closes the innermost block scope and returns the registers it
// allocated (locals and temporaries alike), in ascending order, so the
// caller can mark them as a drop point — registers are never individually
// freed, only reclaimed in bulk when
// their whole block exits.
func (fs *funcState) popScope() []int {
	fs.scopes = fs.scopes[:len(fs.scopes)-1]
	n := len(fs.watermarks)
	start := fs.watermarks[n-1]
	end := fs.nextReg
	fs.nextReg = start
	fs.watermarks = fs.watermarks[:n-1]
	if end <= start {
		return nil
	}
	regs := make([]int, end-start)
	for r := start; r < end; r++ {
		regs[r-start] = r
	}
	// Contiguous by construction, but DropPoints is read by the
	// disassembler and by tests asserting on shape; sorting here is the
	// single choke point that keeps that order an invariant rather than an
	// accident of the watermark allocator's current implementation.
	slices.Sort(regs)
	return regs
}

func (fs *funcState) declare(name string, typ types.Type, mutable bool) int {
	reg := fs.alloc()
	fs.scopes[len(fs.scopes)-1].Put(name, local{reg: reg, typ: typ, mutable: mutable})
	return reg
}

func (fs *funcState) lookup(name string) (local, bool) {
	for i := len(fs.scopes) - 1; i >= 0; i-- {
		if l, ok := fs.scopes[i].Get(name); ok {
			return l, true
		}
	}
	return local{}, false
}

// alloc bumps the register watermark by one and returns the freshly
// allocated register index. Registers are never reused within a scope;
// they are only reclaimed in bulk when popScope restores a prior
// watermark.
func (fs *funcState) alloc() int {
	r := fs.nextReg
	fs.nextReg++
	if fs.nextReg-1 > fs.maxReg {
		fs.maxReg = fs.nextReg - 1
	}
	return r
}

// temp allocates a scratch register that lives only for the rest of the
// current scope (e.g. for holding an intermediate expression result); it
// is a plain alloc with no name binding.
func (fs *funcState) temp() int { return fs.alloc() }

func (fs *funcState) emit(ins Instruction) int {
	fs.proto.Code = append(fs.proto.Code, ins)
	return len(fs.proto.Code) - 1
}

// emitAt is emit plus a source-position record, for instructions that can
// themselves fault at runtime.
func (fs *funcState) emitAt(span token.Span, ins Instruction) int {
	idx := fs.emit(ins)
	if fs.proto.Spans == nil {
		fs.proto.Spans = map[int]token.Span{}
	}
	fs.proto.Spans[idx] = span
	return idx
}

// emitDrop records a DROP safepoint for regs (as returned by popScope) at
// the current instruction position, when there is anything to drop.
func (fs *funcState) emitDrop(regs []int) {
	if len(regs) == 0 {
		return
	}
	idx := fs.emit(Encode(DROP, TNone, NoAddr, NoAddr, NoAddr))
	fs.proto.DropPoints[idx] = regs
}

func (fs *funcState) here() int { return len(fs.proto.Code) }

// patchJumpToHere rewrites the target Address of the JUMP/JUMP_IF_* instruction
// at idx to point at the current instruction position.
func (fs *funcState) patchJumpToHere(idx int) {
	fs.patchJumpTo(idx, fs.here())
}

func (fs *funcState) patchJumpTo(idx, target int) {
	ins := fs.proto.Code[idx]
	switch ins.Op() {
	case JUMP:
		fs.proto.Code[idx] = Encode(JUMP, TNone, NoAddr, EncodedAddr(int32(target)), NoAddr)
	case JUMP_IF_FALSE:
		fs.proto.Code[idx] = Encode(JUMP_IF_FALSE, TBool, ins.A(), EncodedAddr(int32(target)), NoAddr)
	case JUMP_IF_TRUE:
		fs.proto.Code[idx] = Encode(JUMP_IF_TRUE, TBool, ins.A(), EncodedAddr(int32(target)), NoAddr)
	}
}

func (fs *funcState) pushLoop() {
	fs.breakPatches = append(fs.breakPatches, nil)
}

func (fs *funcState) addBreak(idx int) {
	n := len(fs.breakPatches)
	fs.breakPatches[n-1] = append(fs.breakPatches[n-1], idx)
}

// popLoop patches every break recorded for the innermost loop to jump to
// the current instruction position (the loop's exit) and pops its frame.
func (fs *funcState) popLoop() {
	n := len(fs.breakPatches)
	for _, idx := range fs.breakPatches[n-1] {
		fs.patchJumpToHere(idx)
	}
	fs.breakPatches = fs.breakPatches[:n-1]
}

func (fs *funcState) inLoop() bool { return len(fs.breakPatches) > 0 }
