// Package ast defines Dust's syntax tree: a flat, sibling-ordered vector of
// nodes plus a parallel child-index vector. The tree is built bottom-up
// (post-order), so within it every child index is strictly less than its
// parent's index and a single linear scan can evaluate any subtree — there
// is no pointer chasing and no separate allocation per node, unlike a
// pointer-based Node-interface tree.
//
// Every node's (A, B) pair means exactly one of two things, chosen by Kind:
// for a composite node it is (first_child_index, child_count) into the
// tree's Children vector; for a literal node it is the decoded value itself
// (an int64 or float64 split across the two 32-bit halves, or a single
// code point / 0-1 flag in A alone). Operator and variant information that
// a pointer-based tree would store as a side field instead lives directly
// in Kind (BinaryAdd vs BinarySub, RangeExclusive vs RangeInclusive, ...):
// with a flat tree there is no room for a third field, and folding the
// variant into the tag keeps every node exactly one shape.
package ast

import (
	"fmt"
	"math"

	"github.com/mna/dust/lang/token"
)

// Kind tags every node in the tree.
type Kind uint8

//nolint:revive
const (
	Invalid Kind = iota

	// Literals (leaf nodes; value lives in A/B, see Tree's literal accessors)
	LitBool
	LitInt
	LitByte
	LitChar
	LitFloat
	LitString // no decoded value; span covers the quoted source text incl. quotes

	// Leaves whose payload is their span only
	Ident // span is the identifier text
	Field // span covers the receiver through ".name"; child 0 = receiver
	UsePath

	// Unary (1 child: operand)
	UnaryNeg
	UnaryNot

	// Postfix try/propagate operator (1 child: operand)
	Try

	// Binary arithmetic/concatenation (2 children: left, right)
	BinaryAdd
	BinarySub
	BinaryMul
	BinaryDiv
	BinaryMod

	// Comparisons (2 children: left, right) — not chainable, rejected by the
	// parser if composed directly.
	CmpEq
	CmpNeq
	CmpLt
	CmpLe
	CmpGt
	CmpGe

	// Short-circuit logical (2 children: left, right)
	LogicalAnd
	LogicalOr

	// Assignment (2 children: target, value)
	AssignSimple
	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
	AssignMod

	Call       // children = callee, then one per argument
	Index      // children = receiver, index expression
	TupleIndex // children = receiver, index literal (always LitInt)
	ListLit    // children = one per element
	RangeExclusive
	RangeInclusive // children = low, high
	Paren          // child 0 = inner expression

	// Statements
	ExprStmt    // child 0 = expression
	LetStmt     // children = name(Ident), [type annot]?, value
	LetMutStmt  // same shape as LetStmt, but the binding is mutable
	Block       // children = statements in order
	IfStmt      // children = condition, then-block, else-block (may itself be an IfStmt for "else if")
	IfStmtNoElse // children = condition, then-block only
	WhileStmt   // children = condition, body block
	LoopStmt    // child 0 = body block
	ForInStmt   // children = name(Ident), iterable, body block
	ReturnStmt  // children = [value]?; ChildCount 0 or 1
	BreakStmt   // no children

	// Items
	TypeAnnot  // span covers the type text (resolved structurally by the compiler)
	FnItem     // children = name(Ident), 0+ ParamDecl, [return TypeAnnot]?, body Block
	ParamDecl  // children = name(Ident), TypeAnnot
	StructItem // children = name(Ident), then field decls
	FieldDecl  // children = name(Ident), TypeAnnot
	UseItem    // child 0 = UsePath
	ConstItem  // children = name(Ident), [TypeAnnot]?, value

	Chunk // top-level: children = item/statement sequence

	maxKind
)

var kindNames = [...]string{
	Invalid: "invalid", LitBool: "bool", LitInt: "int", LitByte: "byte",
	LitChar: "char", LitFloat: "float", LitString: "string", Ident: "ident",
	Field: "field", UsePath: "use_path",
	UnaryNeg: "neg", UnaryNot: "not", Try: "try",
	BinaryAdd: "add", BinarySub: "sub", BinaryMul: "mul", BinaryDiv: "div", BinaryMod: "mod",
	CmpEq: "eq", CmpNeq: "neq", CmpLt: "lt", CmpLe: "le", CmpGt: "gt", CmpGe: "ge",
	LogicalAnd: "and", LogicalOr: "or",
	AssignSimple: "assign", AssignAdd: "assign_add", AssignSub: "assign_sub",
	AssignMul: "assign_mul", AssignDiv: "assign_div", AssignMod: "assign_mod",
	Call: "call", Index: "index", TupleIndex: "tuple_index", ListLit: "list",
	RangeExclusive: "range_excl", RangeInclusive: "range_incl", Paren: "paren",
	ExprStmt: "expr_stmt", LetStmt: "let", LetMutStmt: "let_mut", Block: "block",
	IfStmt: "if", IfStmtNoElse: "if_no_else", WhileStmt: "while", LoopStmt: "loop",
	ForInStmt: "for_in", ReturnStmt: "return", BreakStmt: "break",
	TypeAnnot: "type", FnItem: "fn", ParamDecl: "param",
	StructItem: "struct", FieldDecl: "field_decl", UseItem: "use",
	ConstItem: "const", Chunk: "chunk",
}

func (k Kind) String() string {
	if k < maxKind {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsComparison reports whether k is one of the six non-chainable comparison
// kinds.
func (k Kind) IsComparison() bool { return k >= CmpEq && k <= CmpGe }

// Node is one entry of the flat tree.
type Node struct {
	Kind Kind
	A, B int32
	Span token.Span
}

// Tree is a complete syntax tree: the flat node vector plus the
// sibling-ordered child-index vector composite nodes point into.
type Tree struct {
	Nodes    []Node
	Children []int32
	// Root is the index of the Chunk node, always the last node appended.
	Root int
	// Source is the original byte slice the tree's spans index into.
	Source []byte
}

// ChildCount reports how many children node i has.
func (t *Tree) ChildCount(i int) int { return int(t.Nodes[i].B) }

// Child returns the index of node i's j'th child (0-based).
func (t *Tree) Child(i, j int) int {
	n := t.Nodes[i]
	return int(t.Children[int(n.A)+j])
}

// ChildIndices returns all child indices of node i, in sibling order.
func (t *Tree) ChildIndices(i int) []int32 {
	n := t.Nodes[i]
	return t.Children[n.A : n.A+n.B]
}

// Text returns the raw source slice covered by node i's span.
func (t *Tree) Text(i int) string {
	sp := t.Nodes[i].Span
	return string(t.Source[sp.Start:sp.End])
}

// Int returns the decoded value of a LitInt node.
func (t *Tree) Int(i int) int64 {
	n := t.Nodes[i]
	return int64(uint64(uint32(n.A)) | uint64(uint32(n.B))<<32)
}

// Float returns the decoded value of a LitFloat node, split across A (low
// 32 bits) and B (high 32 bits) of the IEEE-754 bit pattern — this
// preserves NaN payloads bit for bit, which constant folding and interning
// both rely on.
func (t *Tree) Float(i int) float64 {
	n := t.Nodes[i]
	bits := uint64(uint32(n.A)) | uint64(uint32(n.B))<<32
	return math.Float64frombits(bits)
}

// Char returns the decoded code point of a LitChar node.
func (t *Tree) Char(i int) rune { return rune(t.Nodes[i].A) }

// Byte returns the decoded value of a LitByte node.
func (t *Tree) Byte(i int) uint8 { return uint8(t.Nodes[i].A) }

// Bool returns the decoded value of a LitBool node.
func (t *Tree) Bool(i int) bool { return t.Nodes[i].A != 0 }

// Builder incrementally constructs a Tree in post-order: children must be
// appended (directly or transitively) before the parent that references
// them, which is exactly the order a recursive-descent/Pratt parser
// naturally produces.
type Builder struct {
	tree Tree
}

// NewBuilder creates a Builder over source, the byte slice every node's
// span will index into.
func NewBuilder(source []byte) *Builder {
	return &Builder{tree: Tree{Source: source}}
}

// Leaf appends a childless node whose payload is only its span (Ident,
// LitString, UsePath, TypeAnnot) and returns its index.
func (b *Builder) Leaf(kind Kind, span token.Span) int {
	b.tree.Nodes = append(b.tree.Nodes, Node{Kind: kind, Span: span})
	return len(b.tree.Nodes) - 1
}

// LeafInt appends a LitInt node.
func (b *Builder) LeafInt(span token.Span, v int64) int {
	lo := int32(uint32(uint64(v)))
	hi := int32(uint32(uint64(v) >> 32))
	b.tree.Nodes = append(b.tree.Nodes, Node{Kind: LitInt, A: lo, B: hi, Span: span})
	return len(b.tree.Nodes) - 1
}

// LeafFloat appends a LitFloat node.
func (b *Builder) LeafFloat(span token.Span, v float64) int {
	bits := math.Float64bits(v)
	lo := int32(uint32(bits))
	hi := int32(uint32(bits >> 32))
	b.tree.Nodes = append(b.tree.Nodes, Node{Kind: LitFloat, A: lo, B: hi, Span: span})
	return len(b.tree.Nodes) - 1
}

// LeafChar appends a LitChar node.
func (b *Builder) LeafChar(span token.Span, v rune) int {
	b.tree.Nodes = append(b.tree.Nodes, Node{Kind: LitChar, A: int32(v), Span: span})
	return len(b.tree.Nodes) - 1
}

// LeafByte appends a LitByte node.
func (b *Builder) LeafByte(span token.Span, v uint8) int {
	b.tree.Nodes = append(b.tree.Nodes, Node{Kind: LitByte, A: int32(v), Span: span})
	return len(b.tree.Nodes) - 1
}

// LeafBool appends a LitBool node.
func (b *Builder) LeafBool(span token.Span, v bool) int {
	a := int32(0)
	if v {
		a = 1
	}
	b.tree.Nodes = append(b.tree.Nodes, Node{Kind: LitBool, A: a, Span: span})
	return len(b.tree.Nodes) - 1
}

// Composite appends a node whose children are the given (already-appended)
// node indices, in sibling order, and returns the new node's index.
func (b *Builder) Composite(kind Kind, span token.Span, children ...int) int {
	first := int32(len(b.tree.Children))
	for _, c := range children {
		b.tree.Children = append(b.tree.Children, int32(c))
	}
	node := Node{Kind: kind, Span: span, A: first, B: int32(len(children))}
	b.tree.Nodes = append(b.tree.Nodes, node)
	return len(b.tree.Nodes) - 1
}

// Span returns the span of the node already appended at index i. Parsers
// use this to union child spans into a composite node's span before they
// have a finished Tree to query.
func (b *Builder) Span(i int) token.Span { return b.tree.Nodes[i].Span }

// Kind returns the kind of the node already appended at index i.
func (b *Builder) Kind(i int) Kind { return b.tree.Nodes[i].Kind }

// Build finalizes the tree: the last appended node becomes Root.
func (b *Builder) Build() *Tree {
	b.tree.Root = len(b.tree.Nodes) - 1
	return &b.tree
}
