package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/mna/dust/lang/ast"
	"github.com/mna/dust/lang/diag"
	"github.com/mna/dust/lang/lexer"
	"github.com/mna/dust/lang/parser"
)

func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return ParseFile(ctx, stdio, args[0])
}

// ParseFile lexes and parses the file at path and prints the resulting
// syntax tree. A source the parser could only partially recover from still
// prints whatever tree was produced, followed by the collected diagnostics.
func ParseFile(_ context.Context, stdio mainer.Stdio, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return printError(stdio, err)
	}

	res := lexer.Lex(src)
	tree, perrs := parser.Parse(res.Tokens, src)
	if err := ast.Print(stdio.Stdout, tree); err != nil {
		return printError(stdio, err)
	}
	if len(perrs) > 0 {
		return printError(stdio, diag.Errors(perrs))
	}
	if !res.Valid {
		return printError(stdio, fmt.Errorf("%s: invalid UTF-8 encountered while lexing", path))
	}
	return nil
}
