package parser

import (
	"unicode/utf8"

	"github.com/mna/dust/lang/ast"
	"github.com/mna/dust/lang/diag"
	"github.com/mna/dust/lang/token"
)

func (p *parser) span(i int) token.Span { return p.b.Span(i) }

// parseAssignOrExpr is the entry point used wherever an expression
// statement is expected: it parses a full expression and, if an assignment
// operator follows, rewrites it into an assignment node. Assignment is
// right-associative and only valid when the left side is an assignable
// place (Ident, Field, Index or TupleIndex) — an InvalidAssignmentTarget
// diagnostic fires otherwise, and parsing continues treating it as a plain
// expression so one bad assignment doesn't cascade.
func (p *parser) parseAssignOrExpr() int {
	left := p.parseOr()
	var kind ast.Kind
	switch p.kind() {
	case token.EQ:
		kind = ast.AssignSimple
	case token.PLUSEQ:
		kind = ast.AssignAdd
	case token.MINUSEQ:
		kind = ast.AssignSub
	case token.STAREQ:
		kind = ast.AssignMul
	case token.SLASHEQ:
		kind = ast.AssignDiv
	case token.PERCENTEQ:
		kind = ast.AssignMod
	default:
		return left
	}
	p.advance()
	if !p.assignableNode(left) {
		p.errAt(diag.InvalidAssignmentTarget, p.span(left), "left-hand side of assignment is not a place expression")
	}
	right := p.parseAssignOrExpr()
	span := p.span(left).Union(p.span(right))
	return p.b.Composite(kind, span, left, right)
}

func (p *parser) assignableNode(i int) bool {
	switch p.b.Kind(i) {
	case ast.Ident, ast.Field, ast.Index, ast.TupleIndex:
		return true
	}
	return false
}

func (p *parser) parseOr() int {
	left := p.parseAnd()
	for p.at(token.PIPEPIPE) {
		p.advance()
		right := p.parseAnd()
		left = p.b.Composite(ast.LogicalOr, p.span(left).Union(p.span(right)), left, right)
	}
	return left
}

func (p *parser) parseAnd() int {
	left := p.parseRange()
	for p.at(token.AMPAMP) {
		p.advance()
		right := p.parseRange()
		left = p.b.Composite(ast.LogicalAnd, p.span(left).Union(p.span(right)), left, right)
	}
	return left
}

// parseRange handles `a..b` and `a..=b`, binding looser than comparisons
// (so `0..n < limit` parses as `0..(n < limit)`; ranges do not sit at the
// additive level) but tighter than && / ||, since a range is
// almost always the direct operand of a for-in loop or list literal rather
// than something combined with boolean logic.
func (p *parser) parseRange() int {
	left := p.parseComparison()
	if !p.at(token.DOTDOT) && !p.at(token.DOTDOTEQ) {
		return left
	}
	incl := p.at(token.DOTDOTEQ)
	p.advance()
	right := p.parseComparison()
	k := ast.RangeExclusive
	if incl {
		k = ast.RangeInclusive
	}
	return p.b.Composite(k, p.span(left).Union(p.span(right)), left, right)
}

var cmpKinds = map[token.Kind]ast.Kind{
	token.EQEQ:   ast.CmpEq,
	token.BANGEQ: ast.CmpNeq,
	token.LT:     ast.CmpLt,
	token.LTEQ:   ast.CmpLe,
	token.GT:     ast.CmpGt,
	token.GTEQ:   ast.CmpGe,
}

// parseComparison implements the rule that comparisons do not chain
// rule: a < b < c is a single ComparisonChain diagnostic, not two nested
// comparisons. The parser still consumes the whole chain (greedily folding
// extra comparisons past the first) so parsing can continue instead of
// leaving a dangling comparator for the next production to choke on.
func (p *parser) parseComparison() int {
	left := p.parseAdd()
	ck, ok := cmpKinds[p.kind()]
	if !ok {
		return left
	}
	p.advance()
	right := p.parseAdd()
	node := p.b.Composite(ck, p.span(left).Union(p.span(right)), left, right)
	for {
		if _, ok := cmpKinds[p.kind()]; !ok {
			break
		}
		opTok := p.advance()
		p.parseAdd()
		p.errAt(diag.ComparisonChain, opTok.Span, "comparison operators cannot be chained")
	}
	return node
}

func (p *parser) parseAdd() int {
	left := p.parseMul()
	for p.at(token.PLUS) || p.at(token.MINUS) {
		k := ast.BinaryAdd
		if p.at(token.MINUS) {
			k = ast.BinarySub
		}
		p.advance()
		right := p.parseMul()
		left = p.b.Composite(k, p.span(left).Union(p.span(right)), left, right)
	}
	return left
}

func (p *parser) parseMul() int {
	left := p.parseUnary()
	for p.at(token.STAR) || p.at(token.SLASH) || p.at(token.PERCENT) {
		var k ast.Kind
		switch p.kind() {
		case token.STAR:
			k = ast.BinaryMul
		case token.SLASH:
			k = ast.BinaryDiv
		default:
			k = ast.BinaryMod
		}
		p.advance()
		right := p.parseUnary()
		left = p.b.Composite(k, p.span(left).Union(p.span(right)), left, right)
	}
	return left
}

func (p *parser) parseUnary() int {
	if p.at(token.MINUS) || p.at(token.BANG) {
		opTok := p.advance()
		k := ast.UnaryNeg
		if opTok.Kind == token.BANG {
			k = ast.UnaryNot
		}
		operand := p.parseUnary()
		return p.b.Composite(k, opTok.Span.Union(p.span(operand)), operand)
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() int {
	n := p.parsePrimary()
	for {
		switch p.kind() {
		case token.LPAREN:
			n = p.parseCallArgs(n)
		case token.LBRACK:
			p.advance()
			idx := p.parseAssignOrExpr()
			end := p.expect(token.RBRACK)
			n = p.b.Composite(ast.Index, p.span(n).Union(end.Span), n, idx)
		case token.DOT:
			p.advance()
			if p.at(token.INT) {
				it := p.advance()
				idxNode := p.b.LeafInt(it.Span, it.Value.Int)
				n = p.b.Composite(ast.TupleIndex, p.span(n).Union(it.Span), n, idxNode)
			} else {
				name := p.expect(token.IDENT)
				n = p.b.Composite(ast.Field, p.span(n).Union(name.Span), n)
			}
		case token.QUESTION:
			q := p.advance()
			n = p.b.Composite(ast.Try, p.span(n).Union(q.Span), n)
		default:
			return n
		}
	}
}

func (p *parser) parseCallArgs(callee int) int {
	open := p.expect(token.LPAREN)
	children := []int{callee}
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		children = append(children, p.parseAssignOrExpr())
		if p.at(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	closeTok := p.expect(token.RPAREN)
	span := p.span(callee).Union(open.Span).Union(closeTok.Span)
	return p.b.Composite(ast.Call, span, children...)
}

func (p *parser) parsePrimary() int {
	t := p.cur()
	switch t.Kind {
	case token.INT:
		p.advance()
		return p.b.LeafInt(t.Span, t.Value.Int)
	case token.BYTE:
		p.advance()
		return p.b.LeafByte(t.Span, uint8(t.Value.Int))
	case token.FLOAT:
		p.advance()
		return p.b.LeafFloat(t.Span, t.Value.Float)
	case token.STRING:
		p.advance()
		return p.b.Leaf(ast.LitString, t.Span)
	case token.CHAR:
		p.advance()
		return p.b.LeafChar(t.Span, decodeCharLiteral(p.src, t.Span))
	case token.TRUE:
		p.advance()
		return p.b.LeafBool(t.Span, true)
	case token.FALSE:
		p.advance()
		return p.b.LeafBool(t.Span, false)
	case token.IDENT:
		p.advance()
		return p.b.Leaf(ast.Ident, t.Span)
	case token.LPAREN:
		p.advance()
		inner := p.parseAssignOrExpr()
		closeTok := p.expect(token.RPAREN)
		return p.b.Composite(ast.Paren, t.Span.Union(closeTok.Span), inner)
	case token.LBRACK:
		return p.parseListLit()
	default:
		p.errAt(diag.ExpectedExpression, t.Span, "expected expression, found "+t.Kind.GoString())
		p.advance()
		return p.b.Leaf(ast.Invalid, t.Span)
	}
}

func (p *parser) parseListLit() int {
	open := p.expect(token.LBRACK)
	var children []int
	for !p.at(token.RBRACK) && !p.at(token.EOF) {
		children = append(children, p.parseAssignOrExpr())
		if p.at(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	closeTok := p.expect(token.RBRACK)
	return p.b.Composite(ast.ListLit, open.Span.Union(closeTok.Span), children...)
}

// decodeCharLiteral re-slices a CHAR token's quoted body and decodes its
// single code point. Dust character literals carry no escape sequences
//, so decoding is just a UTF-8 decode of the
// bytes between the quotes — the same rule lang/lexer already applies when
// scanning them.
func decodeCharLiteral(src []byte, span token.Span) rune {
	body := src[span.Start+1 : span.End-1]
	r, _ := utf8.DecodeRune(body)
	return r
}
