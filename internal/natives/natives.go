// Package natives declares the demo native-function manifest the CLI's run
// subcommand registers into a machine.Thread before executing a program. It
// exists so that the set of natives a quick `dust run` session has access
// to (print, println, clock, ...) lives as data in one YAML file instead of
// as a hand-written list of compiler.NativeSig literals scattered across
// internal/maincmd, the same role funxy.yaml plays for Go-binding
// declarations in the retrieved funvibe-funxy/internal/ext package: a
// declarative manifest, parsed once with gopkg.in/yaml.v3, that both the
// compile-time and run-time halves of a registration are built from.
//
// Nothing here is part of the Dust language itself; this package is only the
// CLI's own choice of embedder.
package natives

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mna/dust/lang/compiler"
	"github.com/mna/dust/lang/machine"
	"github.com/mna/dust/lang/types"
)

//go:embed default.yaml
var defaultManifestYAML []byte

// Default parses the manifest bundled with this package (print, println,
// clock, int_to_str), the one the CLI's run and compile subcommands always
// use; they take no option for another manifest.
func Default() (*Manifest, error) {
	return ParseManifest(defaultManifestYAML, "default.yaml")
}

// Manifest is the parsed form of a natives YAML file: an ordered list of
// function declarations. Order matters, since it becomes the Program's
// Natives table index that CALL_NATIVE instructions are encoded against.
type Manifest struct {
	Natives []FuncDecl `yaml:"natives"`
}

// FuncDecl declares one native function's compile-time signature. The Go
// implementation behind it is looked up from a fixed table in this package
// (builtins below) by Name; a manifest cannot invent a new implementation,
// only pick which subset of the known builtins a given run exposes and in
// what order.
type FuncDecl struct {
	Name   string   `yaml:"name"`
	Params []string `yaml:"params,omitempty"`
	Return string   `yaml:"return,omitempty"`
}

// ParseManifest parses a natives manifest from bytes. The path argument is
// used only for error messages.
func ParseManifest(data []byte, path string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for i, n := range m.Natives {
		if _, ok := builtins[n.Name]; !ok {
			return nil, fmt.Errorf("%s: natives[%d]: unknown native %q", path, i, n.Name)
		}
	}
	return &m, nil
}

// LoadManifest reads and parses the manifest file at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading natives manifest %s: %w", path, err)
	}
	return ParseManifest(data, path)
}

// typeByName resolves a manifest's scalar type spelling to a types.Type.
// Only scalar and none types are accepted: a native's own parameter and
// return shape is the one place Dust's type system is declared outside the
// compiler, so it deliberately stays small rather than re-implementing
// lang/compiler's full type-annotation grammar.
func typeByName(name string) (types.Type, error) {
	switch name {
	case "int":
		return types.Simple(types.Integer), nil
	case "float":
		return types.Simple(types.Float), nil
	case "byte":
		return types.Simple(types.Byte), nil
	case "char":
		return types.Simple(types.Character), nil
	case "bool":
		return types.Simple(types.Boolean), nil
	case "str", "":
		return types.Simple(types.String), nil
	case "none":
		return types.Simple(types.None), nil
	default:
		return types.Type{}, fmt.Errorf("unsupported native scalar type %q", name)
	}
}

// Sigs converts the manifest's declarations to the compiler.NativeSig list
// that compiler.Compile expects, in manifest order.
func (m *Manifest) Sigs() ([]compiler.NativeSig, error) {
	sigs := make([]compiler.NativeSig, len(m.Natives))
	for i, n := range m.Natives {
		params := make([]types.Type, len(n.Params))
		for j, p := range n.Params {
			t, err := typeByName(p)
			if err != nil {
				return nil, fmt.Errorf("native %q: param %d: %w", n.Name, j, err)
			}
			params[j] = t
		}
		ret, err := typeByName(n.Return)
		if err != nil {
			return nil, fmt.Errorf("native %q: return: %w", n.Name, err)
		}
		sigs[i] = compiler.NativeSig{Name: n.Name, Params: params, Return: ret}
	}
	return sigs, nil
}

// Register binds every native this manifest declares onto th, so a Program
// compiled against m.Sigs() can be run immediately afterwards.
func (m *Manifest) Register(th *machine.Thread) {
	for _, n := range m.Natives {
		b := builtins[n.Name]
		th.RegisterNative(machine.Native{Name: n.Name, Fn: b.fn, ReturnsValue: b.returnsValue})
	}
}

type builtin struct {
	fn           machine.NativeFunc
	returnsValue bool
}

// builtins is the fixed table of Go implementations a manifest's
// declarations may reference by name. Adding a new callable native to the
// CLI means adding an entry here and to a manifest file, never editing
// internal/maincmd itself.
var builtins = map[string]builtin{
	"print": {
		returnsValue: false,
		fn: func(th *machine.Thread, args []machine.Register, argTags []machine.RegisterTag) (machine.Register, machine.RegisterTag, error) {
			fmt.Fprint(stdoutOf(th), args[0].Str())
			return machine.Register{}, machine.Empty, nil
		},
	},
	"println": {
		returnsValue: false,
		fn: func(th *machine.Thread, args []machine.Register, argTags []machine.RegisterTag) (machine.Register, machine.RegisterTag, error) {
			fmt.Fprintln(stdoutOf(th), args[0].Str())
			return machine.Register{}, machine.Empty, nil
		},
	},
	"clock": {
		returnsValue: true,
		fn: func(th *machine.Thread, args []machine.Register, argTags []machine.RegisterTag) (machine.Register, machine.RegisterTag, error) {
			return machine.RegisterFromFloat(float64(time.Now().UnixNano()) / 1e9), machine.Scalar, nil
		},
	},
	"int_to_str": {
		returnsValue: true,
		fn: func(th *machine.Thread, args []machine.Register, argTags []machine.RegisterTag) (machine.Register, machine.RegisterTag, error) {
			s := th.Arena().AllocateString(fmt.Sprintf("%d", args[0].Int()))
			return machine.Register{Obj: s}, machine.Object, nil
		},
	},
}

// stdoutOf writes to whatever the embedder injected as this Thread's
// Stdout, falling back to the process's own os.Stdout only when the
// Thread was never given one.
func stdoutOf(th *machine.Thread) io.Writer {
	if th.Stdout != nil {
		return th.Stdout
	}
	return os.Stdout
}
