package parser_test

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

var testUpdateParserGoldenTests = flag.Bool("test.update-parser-golden-tests", false, "If set, replace expected parser golden results with actual results.")

// TestParseGolden runs the parse subcommand over every fixture under
// testdata/in and compares its stdout/stderr against the matching file
// under testdata/out. Unlike TestParseLetAndArithmeticPrecedence and its
// neighbours in parser_test.go, which assert on individual tree nodes,
// this exercises ast.Print's full textual dump the way the CLI's parse
// subcommand renders it.
func TestParseGolden(t *testing.T) {
	ctx := context.Background()
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range golden.SourceFiles(t, srcDir, ".dust") {
		t.Run(fi.Name(), func(t *testing.T) {
			var buf, ebuf bytes.Buffer
			stdio := mainer.Stdio{Stdout: &buf, Stderr: &ebuf}

			// error is ignored, we just want it printed to ebuf
			_ = maincmd.ParseFile(ctx, stdio, filepath.Join(srcDir, fi.Name()))
			golden.DiffOutput(t, fi, buf.String(), resultDir, testUpdateParserGoldenTests)
			golden.DiffErrors(t, fi, ebuf.String(), resultDir, testUpdateParserGoldenTests)
		})
	}
}
