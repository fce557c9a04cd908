package compiler

import "github.com/mna/dust/lang/types"

// NativeSig is the compile-time half of the native registration
// interface: a name, its parameter/return types, and nothing else. The
// function pointer itself is supplied to the machine at run time, keyed by
// the same index this compiler assigns here, so lang/compiler never needs
// to import lang/machine (or any native implementation) to resolve a call
// to one.
type NativeSig struct {
	Name   string
	Params []types.Type
	Return types.Type
}

// predeclareNatives registers every native signature the embedder supplied
// to Compile, the same way predeclare registers a source-level fn item, so
// a call to either resolves through the identical compileCall path.
func (c *compiler) predeclareNatives(natives []NativeSig) {
	c.prog.Natives = natives
	for idx, n := range natives {
		c.natives[n.Name] = idx
	}
}
