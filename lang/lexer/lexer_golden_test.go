package lexer_test

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"testing"

	"github.com/mna/mainer"

	"github.com/mna/dust/internal/golden"
	"github.com/mna/dust/internal/maincmd"
)

var testUpdateLexerTests = flag.Bool("test.update-lexer-tests", false, "If set, replace expected lexer golden results with actual results.")

// TestTokenizeGolden runs the tokenize subcommand over every fixture under
// testdata/in and compares its stdout/stderr against the matching file
// under testdata/out, the same file-pair convention
// github.com/mna/nenuphar/lang/scanner uses for its own scanner_test.go.
func TestTokenizeGolden(t *testing.T) {
	ctx := context.Background()
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range golden.SourceFiles(t, srcDir, ".dust") {
		t.Run(fi.Name(), func(t *testing.T) {
			var buf, ebuf bytes.Buffer
			stdio := mainer.Stdio{Stdout: &buf, Stderr: &ebuf}

			// error is ignored, we just want it printed to ebuf
			_ = maincmd.TokenizeFile(ctx, stdio, filepath.Join(srcDir, fi.Name()))
			golden.DiffOutput(t, fi, buf.String(), resultDir, testUpdateLexerTests)
			golden.DiffErrors(t, fi, ebuf.String(), resultDir, testUpdateLexerTests)
		})
	}
}
