package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/dust/lang/compiler"
	"github.com/mna/dust/lang/diag"
	"github.com/mna/dust/lang/lexer"
	"github.com/mna/dust/lang/parser"
	"github.com/mna/dust/lang/types"
)

func compile(t *testing.T, src string, natives ...compiler.NativeSig) (*compiler.Program, []diag.Error) {
	t.Helper()
	lres := lexer.Lex([]byte(src))
	require.True(t, lres.Valid, "source must lex cleanly for this test")
	tree, perrs := parser.Parse(lres.Tokens, []byte(src))
	require.Empty(t, perrs)
	return compiler.Compile(tree, natives...)
}

func compileOK(t *testing.T, src string, natives ...compiler.NativeSig) *compiler.Program {
	t.Helper()
	prog, errs := compile(t, src, natives...)
	require.Empty(t, errs)
	return prog
}

func TestCompileConstantFoldsArithmetic(t *testing.T) {
	// 40000 falls outside the signed 13-bit ENCODED immediate range, so the
	// folded result still has to land in the constant pool rather than
	// disappearing into a MOVE's inline operand — exercising both constant
	// folding and pool interning in one assertion.
	prog := compileOK(t, "let x = 2 + 40000 * 1;")
	entry := prog.Functions[compiler.EntryPoint]
	out := compiler.Disassemble(prog)
	assert.NotContains(t, out, "ADD", "a constant expression must fold away, not emit an ADD instruction")
	assert.NotContains(t, out, "MUL")
	require.Len(t, entry.Constants, 1)
	assert.EqualValues(t, 40002, entry.Constants[0].Int)
}

func TestCompileSmallIntegerLiteralNeverEntersConstantPool(t *testing.T) {
	prog := compileOK(t, "let x = 42;")
	entry := prog.Functions[compiler.EntryPoint]
	out := compiler.Disassemble(prog)
	assert.Empty(t, entry.Constants, "a small int literal must be ENCODED, never pooled")
	assert.Contains(t, out, "#42")
}

func TestCompileBoolAndByteLiteralsNeverEnterConstantPool(t *testing.T) {
	prog := compileOK(t, "let ok = true; let b = 0x1f;")
	entry := prog.Functions[compiler.EntryPoint]
	assert.Empty(t, entry.Constants, "booleans and bytes are never constant-pool entries")
}

func TestCompileDoesNotFoldDivisionByLiteralZero(t *testing.T) {
	prog := compileOK(t, "let x = 1 / 0;")
	out := compiler.Disassemble(prog)
	assert.Contains(t, out, "DIV", "a literal divide by zero must still fault at run time, not fold away")
}

func TestCompileFoldsStringConcatenation(t *testing.T) {
	prog := compileOK(t, `let greeting = "Hello, " + "world!";`)
	entry := prog.Functions[compiler.EntryPoint]
	require.Len(t, entry.Constants, 1)
	assert.Equal(t, "Hello, world!", entry.Constants[0].String)
}

func TestCompileFoldTraceRecordsFoldedExpressions(t *testing.T) {
	compiler.TraceFolding = true
	defer func() { compiler.TraceFolding = false }()

	prog := compileOK(t, "let x = 2 + 40;")
	entry := prog.Functions[compiler.EntryPoint]
	require.Len(t, entry.FoldTrace, 1)
	assert.EqualValues(t, 42, entry.FoldTrace[0].Folded.Int)
}

func TestCompileFoldTraceEmptyWhenDisabled(t *testing.T) {
	require.False(t, compiler.TraceFolding, "must default to off")
	prog := compileOK(t, "let x = 2 + 40;")
	entry := prog.Functions[compiler.EntryPoint]
	assert.Empty(t, entry.FoldTrace)
}

func TestCompileDuplicateFunctionIsAnError(t *testing.T) {
	_, errs := compile(t, `
		fn f() -> int { return 1; }
		fn f() -> int { return 2; }
	`)
	require.Len(t, errs, 1)
	assert.Equal(t, diag.DuplicateDefinition, errs[0].Kind)
}

func TestCompileFnMainBecomesEntryPoint(t *testing.T) {
	prog := compileOK(t, `
		fn main() -> int {
			return 7;
		}
	`)
	entry := prog.Functions[compiler.EntryPoint]
	out := compiler.Disassemble(prog)
	assert.Contains(t, out, "CALL")
	assert.Equal(t, types.Integer, entry.ReturnType.Kind)
}

func TestCompileWithoutMainUsesLastTopLevelExpression(t *testing.T) {
	prog := compileOK(t, `
		let x = 1;
		let y = 2;
		x + y;
	`)
	entry := prog.Functions[compiler.EntryPoint]
	assert.Equal(t, types.Integer, entry.ReturnType.Kind)
}

func TestCompileForwardReferenceBetweenFunctions(t *testing.T) {
	// f calls g before g's declaration appears in source: predeclare must
	// register every top-level signature before any body is compiled.
	prog := compileOK(t, `
		fn f() -> int { return g(); }
		fn g() -> int { return 1; }
	`)
	assert.Len(t, prog.Functions, 3) // entry + f + g
}

func TestCompileNativeCallResolvesBySignature(t *testing.T) {
	sig := compiler.NativeSig{Name: "double", Params: []types.Type{types.Simple(types.Integer)}, Return: types.Simple(types.Integer)}
	prog := compileOK(t, `double(21);`, sig)
	out := compiler.Disassemble(prog)
	assert.Contains(t, out, "CALL_NATIVE")
}

func TestCompileUndeclaredCalleeIsAnError(t *testing.T) {
	_, errs := compile(t, `missing_fn(1);`)
	assert.NotEmpty(t, errs)
}

func TestCompileBuildIDIsUniquePerCompilation(t *testing.T) {
	p1 := compileOK(t, "let x = 1;")
	p2 := compileOK(t, "let x = 1;")
	assert.NotEqual(t, p1.BuildID, p2.BuildID)
}
