package parser_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/dust/lang/ast"
	"github.com/mna/dust/lang/diag"
	"github.com/mna/dust/lang/lexer"
	"github.com/mna/dust/lang/parser"
)

func parse(t *testing.T, src string) (*ast.Tree, []diag.Error) {
	t.Helper()
	lres := lexer.Lex([]byte(src))
	require.True(t, lres.Valid, "source must lex cleanly for this test")
	return parser.Parse(lres.Tokens, []byte(src))
}

func dump(t *testing.T, tree *ast.Tree) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, ast.Print(&buf, tree))
	return buf.String()
}

func TestParseLetAndArithmeticPrecedence(t *testing.T) {
	tree, errs := parse(t, "let x = 1 + 2 * 3;")
	require.Empty(t, errs)
	root := tree.Nodes[tree.Root]
	require.Equal(t, ast.Chunk, root.Kind)
	require.Equal(t, 1, tree.ChildCount(tree.Root))
	letNode := tree.Child(tree.Root, 0)
	assert.Equal(t, ast.LetStmt, tree.Nodes[letNode].Kind)
	// children: name, value
	require.Equal(t, 2, tree.ChildCount(letNode))
	value := tree.Child(letNode, 1)
	assert.Equal(t, ast.BinaryAdd, tree.Nodes[value].Kind)
	rhs := tree.Child(value, 1)
	assert.Equal(t, ast.BinaryMul, tree.Nodes[rhs].Kind)
}

func TestParseLetMut(t *testing.T) {
	tree, errs := parse(t, "let mut y = 5;")
	require.Empty(t, errs)
	letNode := tree.Child(tree.Root, 0)
	assert.Equal(t, ast.LetMutStmt, tree.Nodes[letNode].Kind)
}

func TestParseComparisonChainIsRejected(t *testing.T) {
	tree, errs := parse(t, "let x = a < b < c;")
	require.Len(t, errs, 1)
	assert.Equal(t, diag.ComparisonChain, errs[0].Kind)
	// The first comparison still parses into a valid node despite the chain.
	letNode := tree.Child(tree.Root, 0)
	value := tree.Child(letNode, 1)
	assert.Equal(t, ast.CmpLt, tree.Nodes[value].Kind)
}

func TestParseNonChainedComparisonIsFine(t *testing.T) {
	_, errs := parse(t, "let x = a < b;")
	assert.Empty(t, errs)
}

func TestParseInvalidAssignmentTarget(t *testing.T) {
	_, errs := parse(t, "1 = 2;")
	require.Len(t, errs, 1)
	assert.Equal(t, diag.InvalidAssignmentTarget, errs[0].Kind)
}

func TestParseAssignmentToFieldAndIndexIsValid(t *testing.T) {
	_, errs := parse(t, "a.b = 1; a[0] = 2;")
	assert.Empty(t, errs)
}

func TestParseIfElseChain(t *testing.T) {
	tree, errs := parse(t, "if a { 1; } else if b { 2; } else { 3; }")
	require.Empty(t, errs)
	ifNode := tree.Child(tree.Root, 0)
	assert.Equal(t, ast.IfStmt, tree.Nodes[ifNode].Kind)
	elseBranch := tree.Child(ifNode, 2)
	assert.Equal(t, ast.IfStmt, tree.Nodes[elseBranch].Kind)
}

func TestParseIfWithoutElse(t *testing.T) {
	tree, errs := parse(t, "if a { 1; }")
	require.Empty(t, errs)
	ifNode := tree.Child(tree.Root, 0)
	assert.Equal(t, ast.IfStmtNoElse, tree.Nodes[ifNode].Kind)
}

func TestParseWhileLoop(t *testing.T) {
	tree, errs := parse(t, "while a < 3 { a = a + 1; }")
	require.Empty(t, errs)
	wh := tree.Child(tree.Root, 0)
	assert.Equal(t, ast.WhileStmt, tree.Nodes[wh].Kind)
}

func TestParseBareLoop(t *testing.T) {
	tree, errs := parse(t, "loop { break; }")
	require.Empty(t, errs)
	n := tree.Child(tree.Root, 0)
	assert.Equal(t, ast.LoopStmt, tree.Nodes[n].Kind)
}

func TestParseForInContextualKeyword(t *testing.T) {
	tree, errs := parse(t, "loop i in 0..3 { }")
	require.Empty(t, errs)
	n := tree.Child(tree.Root, 0)
	require.Equal(t, ast.ForInStmt, tree.Nodes[n].Kind)
	name := tree.Child(n, 0)
	assert.Equal(t, ast.Ident, tree.Nodes[name].Kind)
	assert.Equal(t, "i", tree.Text(name))
	iterable := tree.Child(n, 1)
	assert.Equal(t, ast.RangeExclusive, tree.Nodes[iterable].Kind)
}

func TestParseFnItemWithParamsAndReturn(t *testing.T) {
	tree, errs := parse(t, "fn add(a: int, b: int) -> int { return a + b; }")
	require.Empty(t, errs)
	fn := tree.Child(tree.Root, 0)
	require.Equal(t, ast.FnItem, tree.Nodes[fn].Kind)
	// children: name, param a, param b, return type, body
	require.Equal(t, 5, tree.ChildCount(fn))
	assert.Equal(t, ast.Ident, tree.Nodes[tree.Child(fn, 0)].Kind)
	assert.Equal(t, ast.ParamDecl, tree.Nodes[tree.Child(fn, 1)].Kind)
	assert.Equal(t, ast.TypeAnnot, tree.Nodes[tree.Child(fn, 3)].Kind)
	assert.Equal(t, ast.Block, tree.Nodes[tree.Child(fn, 4)].Kind)
}

func TestParseStructItem(t *testing.T) {
	tree, errs := parse(t, "struct Point { x: int, y: int }")
	require.Empty(t, errs)
	st := tree.Child(tree.Root, 0)
	require.Equal(t, ast.StructItem, tree.Nodes[st].Kind)
	require.Equal(t, 3, tree.ChildCount(st)) // name + 2 fields
}

func TestParseUseItem(t *testing.T) {
	tree, errs := parse(t, "use std::io;")
	require.Empty(t, errs)
	u := tree.Child(tree.Root, 0)
	require.Equal(t, ast.UseItem, tree.Nodes[u].Kind)
	path := tree.Child(u, 0)
	assert.Equal(t, "std::io", tree.Text(path))
}

func TestParseConstItem(t *testing.T) {
	tree, errs := parse(t, "const MAX: int = 100;")
	require.Empty(t, errs)
	c := tree.Child(tree.Root, 0)
	require.Equal(t, ast.ConstItem, tree.Nodes[c].Kind)
	require.Equal(t, 3, tree.ChildCount(c))
}

func TestParseListLiteralAndIndexing(t *testing.T) {
	tree, errs := parse(t, "let xs = [1, 2, 3]; let y = xs[0];")
	require.Empty(t, errs)
	let1 := tree.Child(tree.Root, 0)
	lst := tree.Child(let1, 1)
	assert.Equal(t, ast.ListLit, tree.Nodes[lst].Kind)
	assert.Equal(t, 3, tree.ChildCount(lst))
	let2 := tree.Child(tree.Root, 1)
	idx := tree.Child(let2, 1)
	assert.Equal(t, ast.Index, tree.Nodes[idx].Kind)
}

func TestParseCallChainedWithFieldAndTupleIndex(t *testing.T) {
	tree, errs := parse(t, "let z = f(1, 2).0.name;")
	require.Empty(t, errs)
	let1 := tree.Child(tree.Root, 0)
	field := tree.Child(let1, 1)
	assert.Equal(t, ast.Field, tree.Nodes[field].Kind)
	tupIdx := tree.Child(field, 0)
	assert.Equal(t, ast.TupleIndex, tree.Nodes[tupIdx].Kind)
	call := tree.Child(tupIdx, 0)
	assert.Equal(t, ast.Call, tree.Nodes[call].Kind)
	require.Equal(t, 3, tree.ChildCount(call)) // callee + 2 args
}

func TestParseTryOperator(t *testing.T) {
	tree, errs := parse(t, "let r = f()?;")
	require.Empty(t, errs)
	let1 := tree.Child(tree.Root, 0)
	tryNode := tree.Child(let1, 1)
	assert.Equal(t, ast.Try, tree.Nodes[tryNode].Kind)
}

func TestParseUnaryAndLogical(t *testing.T) {
	tree, errs := parse(t, "let ok = !a && b || c;")
	require.Empty(t, errs)
	let1 := tree.Child(tree.Root, 0)
	or := tree.Child(let1, 1)
	assert.Equal(t, ast.LogicalOr, tree.Nodes[or].Kind)
	and := tree.Child(or, 0)
	assert.Equal(t, ast.LogicalAnd, tree.Nodes[and].Kind)
	not := tree.Child(and, 0)
	assert.Equal(t, ast.UnaryNot, tree.Nodes[not].Kind)
}

func TestParseRecoversFromMissingSemicolon(t *testing.T) {
	// Missing semicolon after the first statement: the parser should still
	// make it to the second let without crashing, reporting at least one
	// diagnostic along the way.
	tree, errs := parse(t, "let x = 1 let y = 2;")
	assert.NotEmpty(t, errs)
	assert.GreaterOrEqual(t, tree.ChildCount(tree.Root), 1)
}

func TestPrintDoesNotPanicOnComplexTree(t *testing.T) {
	tree, errs := parse(t, `
		fn fib(n: int) -> int {
			if n < 2 {
				return n;
			}
			return fib(n - 1) + fib(n - 2);
		}
	`)
	require.Empty(t, errs)
	out := dump(t, tree)
	assert.Contains(t, out, "fn")
	assert.Contains(t, out, "\"fib\"")
}
