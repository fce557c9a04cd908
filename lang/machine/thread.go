package machine

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/mna/dust/lang/compiler"
)

// Thread is one execution context: its own call stack,
// register stack and Arena, exclusively owned, never shared implicitly
// with any other Thread. Its shape — injected Stdout/Stderr/Stdin, a
// call-depth limit, cooperative cancellation via a context — is
// grounded directly in machine.Thread at
// github.com/mna/nenuphar/lang/machine/thread.go.
type Thread struct {
	// Name is an optional name, for diagnostics only.
	Name string

	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	// MaxCallStackDepth bounds call-stack depth; exceeding it
	// is a StackOverflow RuntimeError, never a process abort. A value <= 0
	// means the package default (DefaultMaxCallStackDepth).
	MaxCallStackDepth int

	// MaxRegisterStack bounds the register stack's total length. A value <= 0 means the package default
	// (DefaultMaxRegisterStack).
	MaxRegisterStack int

	// MaxListCompareDepth bounds list-of-list comparison recursion, reported as a StackOverflow
	// RuntimeError rather than allowed to recurse unboundedly.
	MaxListCompareDepth int

	natives map[string]Native

	arena Arena

	callStack []CallFrame
	regs      []Register
	regTags   []RegisterTag

	cancelled atomic.Bool
	ctx       context.Context
	ctxCancel context.CancelFunc

	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
}

// Package defaults, used when a Thread leaves the corresponding field at
// its zero value.
const (
	DefaultMaxCallStackDepth = 1024
	DefaultMaxRegisterStack  = 1 << 20
	DefaultMaxListCompareDepth = 64
)

func (th *Thread) init(ctx context.Context) {
	if th.MaxCallStackDepth <= 0 {
		th.MaxCallStackDepth = DefaultMaxCallStackDepth
	}
	if th.MaxRegisterStack <= 0 {
		th.MaxRegisterStack = DefaultMaxRegisterStack
	}
	if th.MaxListCompareDepth <= 0 {
		th.MaxListCompareDepth = DefaultMaxListCompareDepth
	}
	if th.Stdout != nil {
		th.stdout = th.Stdout
	} else {
		th.stdout = os.Stdout
	}
	if th.Stderr != nil {
		th.stderr = th.Stderr
	} else {
		th.stderr = os.Stderr
	}
	if th.Stdin != nil {
		th.stdin = th.Stdin
	} else {
		th.stdin = os.Stdin
	}
	th.ctx, th.ctxCancel = context.WithCancel(ctx)
}

// Cancel cooperatively requests that the running (or next) Run call
// terminate with a Cancelled RuntimeError. Safe to call from
// another goroutine.
func (th *Thread) Cancel() {
	th.cancelled.Store(true)
	if th.ctxCancel != nil {
		th.ctxCancel()
	}
}

// resolveNatives builds the ordered native table a compiled Program's
// CALL_NATIVE instructions index into, matching each compiler.NativeSig by
// name against the NativeFuncs this Thread has registered. A Program that
// names a native the Thread never registered is a configuration error,
// caught here rather than surfacing as a nil-pointer panic mid-run.
func (th *Thread) resolveNatives(p *compiler.Program) ([]Native, error) {
	out := make([]Native, len(p.Natives))
	for i, sig := range p.Natives {
		n, ok := th.natives[sig.Name]
		if !ok {
			return nil, fmt.Errorf("machine: program calls unregistered native %q", sig.Name)
		}
		out[i] = n
	}
	return out, nil
}

// growRegisters ensures the register stack has room for at least n more
// cells, respecting MaxRegisterStack.
func (th *Thread) growRegisters(n int) error {
	old := len(th.regs)
	want := old + n
	if want > th.MaxRegisterStack {
		return &RuntimeError{Kind: StackOverflow, Message: "register stack exhausted"}
	}
	if want <= cap(th.regs) {
		th.regs = th.regs[:want]
		th.regTags = th.regTags[:want]
	} else {
		nregs := make([]Register, want, want*2)
		copy(nregs, th.regs)
		th.regs = nregs
		ntags := make([]RegisterTag, want, want*2)
		copy(ntags, th.regTags)
		th.regTags = ntags
	}
	// A register window re-grown after an earlier RETURN shrank the stack
	// may still carry a prior call's stale Bits/Obj/Tag in its backing
	// array; a fresh frame's un-parameter-copied registers must start
	// EMPTY, never inheriting a dangling OBJECT tag from a call that has
	// already returned.
	for i := old; i < want; i++ {
		th.regs[i] = Register{}
		th.regTags[i] = Empty
	}
	return nil
}
