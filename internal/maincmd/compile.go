package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/mna/dust/internal/natives"
	"github.com/mna/dust/lang/compiler"
	"github.com/mna/dust/lang/diag"
	"github.com/mna/dust/lang/lexer"
	"github.com/mna/dust/lang/parser"
)

func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return CompileFile(ctx, stdio, args[0])
}

// CompileFile lexes, parses and compiles the file at path, printing the
// resulting Program as pseudo-assembly (compiler.Disassemble). It registers
// the same default native manifest the run subcommand executes against, so
// the printed listing's natives: section matches what `run` would actually
// call.
func CompileFile(_ context.Context, stdio mainer.Stdio, path string) error {
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
	fmt.Fprint(stdio.Stdout, compiler.Disassemble(prog))
	return nil
}
