package compiler

import (
	"github.com/mna/dust/lang/lexer"
	"github.com/mna/dust/lang/token"
	"github.com/mna/dust/lang/types"
)

// parseTypeText turns the raw text of a TypeAnnot span back into a
// types.Type by re-lexing it and walking the same grammar
// lang/parser.parseTypeExpr accepted when it originally validated the
// span. Re-lexing a few bytes of already-validated source is cheap and
// keeps the compiler from needing to share token offsets with the parser.
func (c *compiler) parseTypeText(text string) types.Type {
	res := lexer.Lex([]byte(text))
	tp := &typeTextParser{toks: res.Tokens, src: []byte(text), c: c}
	return tp.parseType()
}

type typeTextParser struct {
	toks []token.Token
	pos  int
	src  []byte
	c    *compiler
}

func (p *typeTextParser) cur() token.Token { return p.toks[p.pos] }
func (p *typeTextParser) at(k token.Kind) bool {
	return p.pos < len(p.toks) && p.toks[p.pos].Kind == k
}
func (p *typeTextParser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}
func (p *typeTextParser) text(t token.Token) string { return string(p.src[t.Span.Start:t.Span.End]) }

func (p *typeTextParser) parseType() types.Type {
	switch p.cur().Kind {
	case token.INT_KW:
		p.advance()
		return types.Simple(types.Integer)
	case token.FLOAT_KW:
		p.advance()
		return types.Simple(types.Float)
	case token.BOOL:
		p.advance()
		return types.Simple(types.Boolean)
	case token.STR:
		p.advance()
		return types.Simple(types.String)
	case token.CHAR_KW:
		p.advance()
		return types.Simple(types.Character)
	case token.BYTE_KW:
		p.advance()
		return types.Simple(types.Byte)
	case token.ANY:
		p.advance()
		return types.Simple(types.Any)
	case token.CELL:
		p.advance()
		return p.parseType()
	case token.LIST:
		p.advance()
		if p.at(token.LBRACK) {
			p.advance()
			elem := p.parseType()
			if p.at(token.RBRACK) {
				p.advance()
			}
			return types.ListOf(elem)
		}
		return types.Simple(types.ListEmpty)
	case token.MAP:
		p.advance()
		if p.at(token.LBRACK) {
			p.advance()
		}
		key := p.parseType()
		if p.at(token.COMMA) {
			p.advance()
		}
		val := p.parseType()
		if p.at(token.RBRACK) {
			p.advance()
		}
		return types.Type{Kind: types.Map, Key: &key, Value: &val}
	case token.FN:
		p.advance()
		var params []types.Type
		if p.at(token.LPAREN) {
			p.advance()
			for !p.at(token.RPAREN) && !p.at(token.EOF) {
				params = append(params, p.parseType())
				if p.at(token.COMMA) {
					p.advance()
				} else {
					break
				}
			}
			if p.at(token.RPAREN) {
				p.advance()
			}
		}
		ret := types.Simple(types.None)
		if p.at(token.ARROW) {
			p.advance()
			ret = p.parseType()
		}
		return types.FuncType(params, ret)
	case token.LPAREN:
		p.advance()
		var elems []types.Type
		for !p.at(token.RPAREN) && !p.at(token.EOF) {
			elems = append(elems, p.parseType())
			if p.at(token.COMMA) {
				p.advance()
			} else {
				break
			}
		}
		if p.at(token.RPAREN) {
			p.advance()
		}
		return types.Type{Kind: types.Tuple, Elems: elems}
	case token.IDENT:
		name := p.text(p.cur())
		p.advance()
		if st, ok := p.c.structs[name]; ok {
			return st
		}
		// Forward reference to a struct not yet predeclared in this pass,
		// or a genuinely unknown name: treat structurally as Any so the
		// rest of compilation can proceed; actual member access still goes
		// through field-name resolution against lang/compiler's struct
		// table at the use site.
		return types.Simple(types.Any)
	default:
		return types.Simple(types.None)
	}
}
