package machine

// NativeFunc is the run-time half of the native registration
// interface: a Go function taking the thread and its raw argument
// registers, returning a result Register (ignored if the native's
// ReturnsValue is false) tagged with its own RegisterTag, or an error.
// CALL_NATIVE invokes it directly; a native "must run to completion
// without re-entering the interpreter", which a plain Go
// function call already guarantees.
type NativeFunc func(th *Thread, args []Register, argTags []RegisterTag) (Register, RegisterTag, error)

// Native pairs a NativeFunc with whether it produces a value, the same
// "returns a value" flag a registration carries.
type Native struct {
	Name         string
	Fn           NativeFunc
	ReturnsValue bool
}

// RegisterNative binds name's NativeFunc for this Thread's run. Every name
// in the compiler.NativeSig list the Program was compiled with
// (lang/compiler.Compile's natives parameter) must be registered; the
// order of registration does not matter. Thread.Run resolves them by name
// once, before execution starts, so a missing name is reported as a
// configuration error rather than a wrong call at run time.
func (th *Thread) RegisterNative(n Native) {
	if th.natives == nil {
		th.natives = map[string]Native{}
	}
	th.natives[n.Name] = n
}

// Arena exposes this Thread's heap to native implementations that need to
// allocate a string or list result (e.g. a native returning a formatted
// string must go through AllocateString rather than build a *StringObj
// itself, the same rule an AOT backend must follow.
func (th *Thread) Arena() *Arena { return &th.arena }
