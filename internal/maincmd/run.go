package maincmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mna/mainer"

	"github.com/mna/dust/internal/natives"
	"github.com/mna/dust/lang/compiler"
	"github.com/mna/dust/lang/diag"
	"github.com/mna/dust/lang/lexer"
	"github.com/mna/dust/lang/machine"
	"github.com/mna/dust/lang/parser"
	"github.com/mna/dust/lang/types"
)

func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return RunFile(ctx, stdio, args[0])
}

// RunFile lexes, parses, compiles and executes the file at path, printing
// the value its entry point (a declared `fn main`, or the last top-level
// expression otherwise) produced. The natives it makes available to the
// program are the fixed demo set in internal/natives's default manifest;
// a host embedding lang/machine directly is free to register a different
// set, this command's choice is not part of Dust itself.
func RunFile(ctx context.Context, stdio mainer.Stdio, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return printError(stdio, err)
	}

	res := lexer.Lex(src)
	tree, perrs := parser.Parse(res.Tokens, src)
	if len(perrs) > 0 {
		return printError(stdio, diag.Errors(perrs))
	}
	if !res.Valid {
		return printError(stdio, fmt.Errorf("%s: invalid UTF-8 encountered while lexing", path))
	}

	manifest, err := natives.Default()
	if err != nil {
		return printError(stdio, err)
	}
	sigs, err := manifest.Sigs()
	if err != nil {
		return printError(stdio, err)
	}

	prog, cerrs := compiler.Compile(tree, sigs...)
	if len(cerrs) > 0 {
		return printError(stdio, diag.Errors(cerrs))
	}

	th := &machine.Thread{Stdout: stdio.Stdout, Stderr: stdio.Stderr, Stdin: stdio.Stdin}
	manifest.Register(th)

	result, tag, err := th.Run(ctx, prog)
	if err != nil {
		return printError(stdio, err)
	}
	if tag == machine.Empty {
		return nil
	}
	entry := prog.Functions[compiler.EntryPoint]
	fmt.Fprintln(stdio.Stdout, formatValue(entry.ReturnType, result))
	return nil
}

// formatValue renders one Run result (or list element) for the CLI. A
// Register carries no type tag of its own, so this
// walks the static types.Type the compiler already worked out for the
// value being printed, rather than inspecting the Register at run time.
func formatValue(t types.Type, r machine.Register) string {
	switch t.Kind {
	case types.Boolean:
		return fmt.Sprintf("%t", r.Bool())
	case types.Byte:
		return fmt.Sprintf("%d", r.Byte())
	case types.Character:
		return fmt.Sprintf("%c", r.Char())
	case types.Integer:
		return fmt.Sprintf("%d", r.Int())
	case types.Float:
		return fmt.Sprintf("%g", r.Float())
	case types.String:
		return r.Str()
	case types.List, types.ListEmpty:
		l := r.List()
		parts := make([]string, len(l.Elems))
		for i, e := range l.Elems {
			parts[i] = formatValue(*t.Elem, e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "none"
	}
}
