package parser

import (
	"github.com/mna/dust/lang/ast"
	"github.com/mna/dust/lang/diag"
	"github.com/mna/dust/lang/token"
)

func (p *parser) text(t token.Token) string { return string(p.src[t.Span.Start:t.Span.End]) }

// parseItemOrStmtModifiers skips optional `pub`/`async` modifiers (they are
// not recorded, and the produced node's span does not include them; Dust
// has no separate visibility or async-call mechanism for the
// register-machine core to resolve) before parseItemOrStmt dispatches to
// an item or statement production.
func (p *parser) parseItemOrStmtModifiers() {
	for p.at(token.PUB) || p.at(token.ASYNC) {
		p.advance()
	}
}

func (p *parser) parseStmt() int {
	switch p.kind() {
	case token.LET:
		return p.parseLetStmt()
	case token.LBRACE:
		return p.parseBlock()
	case token.IF:
		return p.parseIfStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.LOOP:
		return p.parseLoopStmt()
	case token.RETURN:
		return p.parseReturnStmt()
	case token.BREAK:
		t := p.advance()
		semi := p.expect(token.SEMI)
		return p.b.Composite(ast.BreakStmt, t.Span.Union(semi.Span))
	default:
		n := p.parseAssignOrExpr()
		semi := p.expect(token.SEMI)
		return p.b.Composite(ast.ExprStmt, p.span(n).Union(semi.Span), n)
	}
}

func (p *parser) parseBlock() int {
	open := p.expect(token.LBRACE)
	p.pushScope()
	var children []int
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		before := p.pos
		children = append(children, p.parseItemOrStmt())
		if p.pos == before {
			p.advance()
		}
	}
	p.popScope()
	closeTok := p.expect(token.RBRACE)
	return p.b.Composite(ast.Block, open.Span.Union(closeTok.Span), children...)
}

func (p *parser) parseLetStmt() int {
	letTok := p.advance()
	mut := false
	if p.at(token.MUT) {
		p.advance()
		mut = true
	}
	nameTok := p.expect(token.IDENT)
	p.declare(p.text(nameTok))
	children := []int{p.b.Leaf(ast.Ident, nameTok.Span)}
	if p.at(token.COLON) {
		p.advance()
		children = append(children, p.parseTypeAnnot())
	}
	p.expect(token.EQ)
	children = append(children, p.parseAssignOrExpr())
	semi := p.expect(token.SEMI)
	kind := ast.LetStmt
	if mut {
		kind = ast.LetMutStmt
	}
	return p.b.Composite(kind, letTok.Span.Union(semi.Span), children...)
}

func (p *parser) parseIfStmt() int {
	ifTok := p.advance()
	cond := p.parseAssignOrExpr()
	thenBlock := p.parseBlock()
	if p.at(token.ELSE) {
		p.advance()
		var elseNode int
		if p.at(token.IF) {
			elseNode = p.parseIfStmt()
		} else {
			elseNode = p.parseBlock()
		}
		return p.b.Composite(ast.IfStmt, ifTok.Span.Union(p.span(elseNode)), cond, thenBlock, elseNode)
	}
	return p.b.Composite(ast.IfStmtNoElse, ifTok.Span.Union(p.span(thenBlock)), cond, thenBlock)
}

func (p *parser) parseWhileStmt() int {
	whileTok := p.advance()
	cond := p.parseAssignOrExpr()
	body := p.parseBlock()
	return p.b.Composite(ast.WhileStmt, whileTok.Span.Union(p.span(body)), cond, body)
}

// parseLoopStmt handles both the bare infinite form, `loop { ... }`, and the
// iterating form, `loop x in expr { ... }`. Dust reserves no IN keyword, so
// "in" is recognised contextually as an identifier with that exact text
// immediately following the loop variable — the same trick
// grammar uses to keep the keyword set small.
func (p *parser) parseLoopStmt() int {
	loopTok := p.advance()
	if p.at(token.IDENT) {
		save := p.pos
		nameTok := p.advance()
		if p.at(token.IDENT) && p.text(p.cur()) == "in" {
			p.advance()
			nameNode := p.b.Leaf(ast.Ident, nameTok.Span)
			iterable := p.parseAssignOrExpr()
			body := p.parseBlock()
			return p.b.Composite(ast.ForInStmt, loopTok.Span.Union(p.span(body)), nameNode, iterable, body)
		}
		p.pos = save
	}
	body := p.parseBlock()
	return p.b.Composite(ast.LoopStmt, loopTok.Span.Union(p.span(body)), body)
}

func (p *parser) parseReturnStmt() int {
	retTok := p.advance()
	var children []int
	if !p.at(token.SEMI) {
		children = append(children, p.parseAssignOrExpr())
	}
	semi := p.expect(token.SEMI)
	return p.b.Composite(ast.ReturnStmt, retTok.Span.Union(semi.Span), children...)
}

func (p *parser) parseUseItem() int {
	useTok := p.advance()
	start := p.cur().Span
	for {
		p.expect(token.IDENT)
		if p.at(token.COLONCOLON) {
			p.advance()
			continue
		}
		break
	}
	end := p.toks[p.pos-1].Span
	pathNode := p.b.Leaf(ast.UsePath, start.Union(end))
	semi := p.expect(token.SEMI)
	return p.b.Composite(ast.UseItem, useTok.Span.Union(semi.Span), pathNode)
}

func (p *parser) parseConstItem() int {
	constTok := p.advance()
	nameTok := p.expect(token.IDENT)
	children := []int{p.b.Leaf(ast.Ident, nameTok.Span)}
	if p.at(token.COLON) {
		p.advance()
		children = append(children, p.parseTypeAnnot())
	}
	p.expect(token.EQ)
	children = append(children, p.parseAssignOrExpr())
	semi := p.expect(token.SEMI)
	return p.b.Composite(ast.ConstItem, constTok.Span.Union(semi.Span), children...)
}

func (p *parser) parseStructItem() int {
	structTok := p.advance()
	nameTok := p.expect(token.IDENT)
	children := []int{p.b.Leaf(ast.Ident, nameTok.Span)}
	p.expect(token.LBRACE)
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		fieldNameTok := p.expect(token.IDENT)
		fieldNameNode := p.b.Leaf(ast.Ident, fieldNameTok.Span)
		p.expect(token.COLON)
		typ := p.parseTypeAnnot()
		children = append(children, p.b.Composite(ast.FieldDecl, fieldNameTok.Span.Union(p.span(typ)), fieldNameNode, typ))
		if p.at(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	closeTok := p.expect(token.RBRACE)
	return p.b.Composite(ast.StructItem, structTok.Span.Union(closeTok.Span), children...)
}

func (p *parser) parseFnItem() int {
	fnTok := p.advance()
	nameTok := p.expect(token.IDENT)
	children := []int{p.b.Leaf(ast.Ident, nameTok.Span)}
	p.expect(token.LPAREN)
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		pNameTok := p.expect(token.IDENT)
		pNameNode := p.b.Leaf(ast.Ident, pNameTok.Span)
		p.expect(token.COLON)
		pTyp := p.parseTypeAnnot()
		children = append(children, p.b.Composite(ast.ParamDecl, pNameTok.Span.Union(p.span(pTyp)), pNameNode, pTyp))
		if p.at(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.RPAREN)
	if p.at(token.ARROW) {
		p.advance()
		children = append(children, p.parseTypeAnnot())
	}
	body := p.parseBlock()
	children = append(children, body)
	return p.b.Composite(ast.FnItem, fnTok.Span.Union(p.span(body)), children...)
}

// parseTypeAnnot captures the span of a type expression without building a
// child tree for it: the compiler re-derives a types.Type by walking the
// same span's tokens when it lowers the annotation.
func (p *parser) parseTypeAnnot() int {
	start := p.cur().Span
	p.parseTypeExpr()
	end := start
	if p.pos > 0 {
		end = p.toks[p.pos-1].Span
	}
	return p.b.Leaf(ast.TypeAnnot, start.Union(end))
}

func (p *parser) parseTypeExpr() {
	switch p.kind() {
	case token.INT_KW, token.FLOAT_KW, token.BOOL, token.STR, token.CHAR_KW, token.BYTE_KW, token.ANY:
		p.advance()
	case token.IDENT:
		p.advance()
	case token.CELL:
		p.advance()
		p.parseTypeExpr()
	case token.LIST:
		p.advance()
		p.expect(token.LBRACK)
		p.parseTypeExpr()
		p.expect(token.RBRACK)
	case token.MAP:
		p.advance()
		p.expect(token.LBRACK)
		p.parseTypeExpr()
		p.expect(token.COMMA)
		p.parseTypeExpr()
		p.expect(token.RBRACK)
	case token.FN:
		p.advance()
		p.expect(token.LPAREN)
		for !p.at(token.RPAREN) && !p.at(token.EOF) {
			p.parseTypeExpr()
			if p.at(token.COMMA) {
				p.advance()
			} else {
				break
			}
		}
		p.expect(token.RPAREN)
		if p.at(token.ARROW) {
			p.advance()
			p.parseTypeExpr()
		}
	case token.LPAREN:
		p.advance()
		for !p.at(token.RPAREN) && !p.at(token.EOF) {
			p.parseTypeExpr()
			if p.at(token.COMMA) {
				p.advance()
			} else {
				break
			}
		}
		p.expect(token.RPAREN)
	default:
		p.errAt(diag.ExpectedToken, p.cur().Span, "expected type, found "+p.kind().GoString())
		p.advance()
	}
}
