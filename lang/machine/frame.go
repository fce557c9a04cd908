package machine

// CallFrame is one activation record on the thread's call stack: every field is an index, never a pointer, into one of the thread's
// owned slices, mirroring Frame from
// github.com/mna/nenuphar/lang/machine/frame.go but carrying the
// register-window bounds a register machine needs instead of an
// operand-stack pointer.
type CallFrame struct {
	ip int // index of the next instruction to execute

	protoIndex int // index into Program.Functions

	base int // register-window start (inclusive), into the thread's register stack
	top  int // register-window end (exclusive)

	// returnDst is the destination register, in the caller's window, that
	// RETURN must write the callee's result into. -1 for the outermost
	// frame (its RETURN instead terminates the thread with that value).
	returnDst int
}
