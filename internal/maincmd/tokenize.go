package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/mna/dust/lang/lexer"
	"github.com/mna/dust/lang/token"
)

func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return TokenizeFile(ctx, stdio, args[0])
}

// TokenizeFile lexes the file at path and prints one line per token: its
// kind, byte span, and (for non-EOF tokens) the source text that produced
// it.
func TokenizeFile(_ context.Context, stdio mainer.Stdio, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return printError(stdio, err)
	}

	res := lexer.Lex(src)
	for _, tok := range res.Tokens {
		fmt.Fprintf(stdio.Stdout, "%s [%d:%d]", tok.Kind, tok.Span.Start, tok.Span.End)
		if tok.Kind != token.EOF {
			fmt.Fprintf(stdio.Stdout, " %q", src[tok.Span.Start:tok.Span.End])
		}
		fmt.Fprintln(stdio.Stdout)
	}
	if !res.Valid {
		return printError(stdio, fmt.Errorf("%s: invalid UTF-8 encountered while lexing", path))
	}
	return nil
}
