// Package parser implements a Pratt/precedence-climbing parser that turns a
// token stream (lang/token, lang/lexer) into a lang/ast.Tree. Its overall
// shape — a single parser struct holding the current token, an error list,
// and init/advance/expect helpers — is the classic recursive-descent
// layout, adapted here to produce a flat ast.Tree via ast.Builder instead
// of pointer-based ast.Node values.
//
// Dust's parser does not resolve names or types: that job belongs to the
// compiler, inline with code generation, so the parser here is purely
// syntactic. It does carry a lightweight block-scope name stack recording
// declared names, but no diagnostic reads it and it is never
// authoritative — the compiler's own resolution is what actually accepts
// or rejects a program.
package parser

import (
	"github.com/mna/dust/lang/ast"
	"github.com/mna/dust/lang/diag"
	"github.com/mna/dust/lang/token"
)

// Parse consumes toks (as produced by lang/lexer.Lex, terminated by an EOF
// token) and the source bytes they index into, and produces a syntax tree
// plus any diagnostics collected along the way. Parse never panics on
// malformed input: on error it records a diagnostic and keeps going,
// skipping one token wherever a statement consumed none, so a single
// source file can report more than one mistake. It does not skip ahead to
// a statement boundary (synchronize is not called).
func Parse(toks []token.Token, source []byte) (*ast.Tree, []diag.Error) {
	p := &parser{toks: toks, src: source, b: ast.NewBuilder(source)}
	if len(p.toks) == 0 || p.toks[len(p.toks)-1].Kind != token.EOF {
		p.toks = append(append([]token.Token{}, toks...), token.Token{Kind: token.EOF})
	}
	root := p.parseChunk()
	_ = root
	return p.b.Build(), p.errs
}

type parser struct {
	toks []token.Token
	pos  int
	src  []byte
	b    *ast.Builder
	errs []diag.Error

	// scopes is a purely diagnostic stack of declared-name sets per open
	// block; the compiler's own resolver is authoritative, run inline with
	// code generation.
	scopes []map[string]bool
}

func (p *parser) cur() token.Token  { return p.toks[p.pos] }
func (p *parser) kind() token.Kind  { return p.toks[p.pos].Kind }
func (p *parser) at(k token.Kind) bool { return p.kind() == k }

func (p *parser) advance() token.Token {
	t := p.toks[p.pos]
	if t.Kind != token.EOF {
		p.pos++
	}
	return t
}

// expect consumes the current token if it matches k, else records an
// ExpectedToken diagnostic and returns the unconsumed token (so callers can
// still inspect its span for error recovery).
func (p *parser) expect(k token.Kind) token.Token {
	if p.at(k) {
		return p.advance()
	}
	t := p.cur()
	p.errs = append(p.errs, diag.Error{
		Kind:    diag.ExpectedToken,
		Message: "expected " + k.GoString() + ", found " + t.Kind.GoString(),
		Span:    t.Span,
	})
	return t
}

func (p *parser) errAt(kind diag.Kind, span token.Span, msg string) {
	p.errs = append(p.errs, diag.Error{Kind: kind, Message: msg, Span: span})
}

func (p *parser) pushScope() { p.scopes = append(p.scopes, map[string]bool{}) }
func (p *parser) popScope()  { p.scopes = p.scopes[:len(p.scopes)-1] }
func (p *parser) declare(name string) {
	if len(p.scopes) > 0 {
		p.scopes[len(p.scopes)-1][name] = true
	}
}

// synchronize skips tokens until a plausible statement boundary: past a
// SEMI, up to a closing RBRACE, or up to a token that starts a new
// statement/item. This keeps one malformed statement from poisoning the
// rest of the parse.
func (p *parser) synchronize() {
	for !p.at(token.EOF) {
		if p.at(token.SEMI) {
			p.advance()
			return
		}
		switch p.kind() {
		case token.RBRACE, token.FN, token.STRUCT, token.LET, token.USE,
			token.CONST, token.IF, token.WHILE, token.LOOP, token.RETURN, token.BREAK:
			return
		}
		p.advance()
	}
}

// parseChunk parses the whole token stream as a top-level sequence of items
// and statements: Dust scripts mix both at top level, fn/struct/use/const
// declarations alongside ordinary executable statements forming an
// implicit main body.
func (p *parser) parseChunk() int {
	start := p.cur().Span
	p.pushScope()
	var children []int
	for !p.at(token.EOF) {
		before := p.pos
		n := p.parseItemOrStmt()
		children = append(children, n)
		if p.pos == before {
			// Guard against an infinite loop if a production consumed nothing.
			p.advance()
		}
	}
	p.popScope()
	end := start
	if len(p.toks) > 0 {
		end = p.toks[len(p.toks)-1].Span
	}
	return p.b.Composite(ast.Chunk, start.Union(end), children...)
}

// parseItemOrStmt dispatches to an item or statement production based on the
// current token, after skipping any leading `pub`/`async` modifiers (the
// resulting node's span does not include them; Dust has no separate
// export mechanism to resolve here).
func (p *parser) parseItemOrStmt() int {
	p.parseItemOrStmtModifiers()
	switch p.kind() {
	case token.FN:
		return p.parseFnItem()
	case token.STRUCT:
		return p.parseStructItem()
	case token.USE:
		return p.parseUseItem()
	case token.CONST:
		return p.parseConstItem()
	default:
		return p.parseStmt()
	}
}
