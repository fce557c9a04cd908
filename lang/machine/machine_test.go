package machine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/dust/lang/compiler"
	"github.com/mna/dust/lang/diag"
	"github.com/mna/dust/lang/lexer"
	"github.com/mna/dust/lang/machine"
	"github.com/mna/dust/lang/parser"
	"github.com/mna/dust/lang/types"
)

// compile lexes, parses and compiles src, requiring every stage to succeed
// cleanly; a test that wants to exercise a compile-time failure uses
// compileErrs instead.
func compile(t *testing.T, src string) *compiler.Program {
	t.Helper()
	prog, errs := compileErrs(t, src)
	require.Empty(t, errs)
	return prog
}

func compileErrs(t *testing.T, src string) (*compiler.Program, []diag.Error) {
	t.Helper()
	lres := lexer.Lex([]byte(src))
	require.True(t, lres.Valid, "source must lex cleanly for this test")
	tree, perrs := parser.Parse(lres.Tokens, []byte(src))
	if len(perrs) > 0 {
		return nil, perrs
	}
	prog, cerrs := compiler.Compile(tree)
	return prog, cerrs
}

func run(t *testing.T, src string) (machine.Register, machine.RegisterTag) {
	t.Helper()
	prog := compile(t, src)
	th := &machine.Thread{}
	reg, tag, err := th.Run(context.Background(), prog)
	require.NoError(t, err)
	return reg, tag
}

func TestRunArithmeticExpression(t *testing.T) {
	reg, tag := run(t, "let x = 2 + 40;")
	assert.Equal(t, machine.Scalar, tag)
	assert.EqualValues(t, 42, reg.Int())
}

func TestRunComparatorIdiom(t *testing.T) {
	reg, tag := run(t, `
		let cond = 1 < 2;
		let mut x = 0;
		if cond {
			x = 42;
		} else {
			x = 0;
		}
		x;
	`)
	assert.Equal(t, machine.Scalar, tag)
	// The trailing `x;` makes x's value the program's result.
	assert.EqualValues(t, 42, reg.Int())
}

func TestRunListEquality(t *testing.T) {
	reg, tag := run(t, `
		let a = [1, 2, 3];
		let b = [1, 2, 3];
		let eq = a == b;
	`)
	assert.Equal(t, machine.Scalar, tag)
	assert.Equal(t, true, reg.Bool())
}

func TestRunRecursiveFactorial(t *testing.T) {
	prog := compile(t, `
		fn factorial(n: int) -> int {
			if n < 2 {
				return 1;
			}
			return n * factorial(n - 1);
		}
		let result = factorial(5);
	`)
	th := &machine.Thread{}
	reg, tag, err := th.Run(context.Background(), prog)
	require.NoError(t, err)
	assert.Equal(t, machine.Scalar, tag)
	assert.EqualValues(t, 120, reg.Int())
}

func TestRunStringConcatenation(t *testing.T) {
	reg, tag := run(t, `let greeting = "hello, " + "world";`)
	assert.Equal(t, machine.Object, tag)
	assert.Equal(t, "hello, world", reg.Str())
}

func TestRunWhileLoopCountsToThree(t *testing.T) {
	reg, tag := run(t, `
		let mut i = 0;
		while i < 3 {
			i = i + 1;
		}
		i;
	`)
	assert.Equal(t, machine.Scalar, tag)
	assert.EqualValues(t, 3, reg.Int())
}

func TestCompileRejectsMismatchedArithmeticTypes(t *testing.T) {
	_, errs := compileErrs(t, `let x = 1 + "two";`)
	require.NotEmpty(t, errs)
	var found bool
	for _, e := range errs {
		if e.Kind == diag.CannotAddArguments || e.Kind == diag.CannotAddType {
			found = true
		}
	}
	assert.True(t, found, "expected a CannotAdd* diagnostic, got %v", errs)
}

func TestParseRejectsComparisonChain(t *testing.T) {
	_, errs := compileErrs(t, `let x = a < b < c;`)
	require.NotEmpty(t, errs)
	assert.Equal(t, diag.ComparisonChain, errs[0].Kind)
}

func TestRunIntegerDivideByZero(t *testing.T) {
	prog := compile(t, `let x = 1 / 0;`)
	th := &machine.Thread{}
	_, _, err := th.Run(context.Background(), prog)
	require.Error(t, err)
	var rerr *machine.RuntimeError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, machine.IntegerDivideByZero, rerr.Kind)
}

func TestRunModuloByZero(t *testing.T) {
	prog := compile(t, `let x = 1 % 0;`)
	th := &machine.Thread{}
	_, _, err := th.Run(context.Background(), prog)
	require.Error(t, err)
	var rerr *machine.RuntimeError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, machine.ModuloByZero, rerr.Kind)
}

func TestRunIndexOutOfBounds(t *testing.T) {
	prog := compile(t, `
		let xs = [1, 2, 3];
		let y = xs[5];
	`)
	th := &machine.Thread{}
	_, _, err := th.Run(context.Background(), prog)
	require.Error(t, err)
	var rerr *machine.RuntimeError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, machine.IndexOutOfBounds, rerr.Kind)
}

func TestLexerRejectsInvalidUTF8(t *testing.T) {
	res := lexer.Lex([]byte{0xC3, 0x28})
	assert.False(t, res.Valid)
}

func TestRunNativeCall(t *testing.T) {
	lres := lexer.Lex([]byte(`let x = double(21);`))
	require.True(t, lres.Valid)
	tree, perrs := parser.Parse(lres.Tokens, []byte(`let x = double(21);`))
	require.Empty(t, perrs)

	sig := compiler.NativeSig{Name: "double", Params: []types.Type{types.Simple(types.Integer)}, Return: types.Simple(types.Integer)}
	prog, cerrs := compiler.Compile(tree, sig)
	require.Empty(t, cerrs)

	th := &machine.Thread{}
	th.RegisterNative(machine.Native{
		Name:         "double",
		ReturnsValue: true,
		Fn: func(_ *machine.Thread, args []machine.Register, _ []machine.RegisterTag) (machine.Register, machine.RegisterTag, error) {
			return machine.RegisterFromInt(args[0].Int() * 2), machine.Scalar, nil
		},
	})
	reg, tag, err := th.Run(context.Background(), prog)
	require.NoError(t, err)
	assert.Equal(t, machine.Scalar, tag)
	assert.EqualValues(t, 42, reg.Int())
}
