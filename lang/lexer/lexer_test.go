package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/dust/lang/lexer"
	"github.com/mna/dust/lang/token"
)

func kinds(toks []token.Token) []token.Kind {
	ks := make([]token.Kind, len(toks))
	for i, t := range toks {
		ks[i] = t.Kind
	}
	return ks
}

func TestLexKeywordsAndIdents(t *testing.T) {
	res := lexer.Lex([]byte("let mut x = foo_bar"))
	require.True(t, res.Valid)
	assert.Equal(t, []token.Kind{token.LET, token.MUT, token.IDENT, token.EQ, token.IDENT, token.EOF}, kinds(res.Tokens))
}

func TestLexTwoCharOperatorsGreedy(t *testing.T) {
	res := lexer.Lex([]byte("a == b != c <= d >= e && f || g += h -= i *= j /= k %= l -> m"))
	require.True(t, res.Valid)
	ks := kinds(res.Tokens)
	assert.Contains(t, ks, token.EQEQ)
	assert.Contains(t, ks, token.BANGEQ)
	assert.Contains(t, ks, token.LTEQ)
	assert.Contains(t, ks, token.GTEQ)
	assert.Contains(t, ks, token.AMPAMP)
	assert.Contains(t, ks, token.PIPEPIPE)
	assert.Contains(t, ks, token.PLUSEQ)
	assert.Contains(t, ks, token.MINUSEQ)
	assert.Contains(t, ks, token.STAREQ)
	assert.Contains(t, ks, token.SLASHEQ)
	assert.Contains(t, ks, token.PERCENTEQ)
	assert.Contains(t, ks, token.ARROW)
}

func TestLexMinusVsNegativeNumber(t *testing.T) {
	res := lexer.Lex([]byte("a-1 a - 1"))
	require.True(t, res.Valid)
	// a, -1 (single INT token with the minus fused in), a, -, 1, EOF
	toks := res.Tokens
	require.Len(t, toks, 6)
	assert.Equal(t, token.IDENT, toks[0].Kind)
	assert.Equal(t, token.INT, toks[1].Kind)
	assert.EqualValues(t, -1, toks[1].Value.Int)
	assert.Equal(t, token.IDENT, toks[2].Kind)
	assert.Equal(t, token.MINUS, toks[3].Kind)
	assert.Equal(t, token.INT, toks[4].Kind)
	assert.EqualValues(t, 1, toks[4].Value.Int)
}

func TestLexInfinityAndNaN(t *testing.T) {
	res := lexer.Lex([]byte("Infinity -Infinity NaN"))
	require.True(t, res.Valid)
	toks := res.Tokens
	require.Len(t, toks, 4)
	for _, tk := range toks[:3] {
		assert.Equal(t, token.FLOAT, tk.Kind)
	}
	assert.Equal(t, token.Span{Start: 0, End: 8}, toks[0].Span)
	assert.Equal(t, token.Span{Start: 9, End: 18}, toks[1].Span)
	assert.Equal(t, token.Span{Start: 19, End: 22}, toks[2].Span)
}

func TestLexHexByte(t *testing.T) {
	res := lexer.Lex([]byte("0x1f 0xFF"))
	require.True(t, res.Valid)
	toks := res.Tokens
	require.GreaterOrEqual(t, len(toks), 2)
	assert.Equal(t, token.BYTE, toks[0].Kind)
	assert.EqualValues(t, 0x1f, toks[0].Value.Int)
	assert.Equal(t, token.BYTE, toks[1].Kind)
	assert.EqualValues(t, 0xff, toks[1].Value.Int)
}

func TestLexFloatExponent(t *testing.T) {
	res := lexer.Lex([]byte("1.5e10 2.0E-3"))
	require.True(t, res.Valid)
	toks := res.Tokens
	assert.Equal(t, token.FLOAT, toks[0].Kind)
	assert.InDelta(t, 1.5e10, toks[0].Value.Float, 1)
	assert.Equal(t, token.FLOAT, toks[1].Kind)
	assert.InDelta(t, 2.0e-3, toks[1].Value.Float, 1e-9)
}

func TestLexStringAndChar(t *testing.T) {
	res := lexer.Lex([]byte(`"hello, world" 'x'`))
	require.True(t, res.Valid)
	toks := res.Tokens
	assert.Equal(t, token.STRING, toks[0].Kind)
	assert.Equal(t, token.Span{Start: 0, End: 14}, toks[0].Span)
	assert.Equal(t, token.CHAR, toks[1].Kind)
}

func TestLexCharMultibyteUTF8(t *testing.T) {
	res := lexer.Lex([]byte("'é'"))
	require.True(t, res.Valid)
	assert.Equal(t, token.CHAR, res.Tokens[0].Kind)
}

func TestLexUnknownCharacterRecovers(t *testing.T) {
	res := lexer.Lex([]byte("a @ b"))
	require.True(t, res.Valid)
	ks := kinds(res.Tokens)
	assert.Equal(t, []token.Kind{token.IDENT, token.ILLEGAL, token.IDENT, token.EOF}, ks)
}

func TestLexInvalidUTF8(t *testing.T) {
	// 0xC3 0x28 is an invalid two-byte sequence (continuation byte wrong).
	res := lexer.Lex([]byte{'a', ' ', 0xC3, 0x28})
	assert.False(t, res.Valid)
	// tokens recognised strictly before the failure: just the identifier "a".
	require.Len(t, res.Tokens, 1)
	assert.Equal(t, token.IDENT, res.Tokens[0].Kind)
}

func TestLexSurrogateRejected(t *testing.T) {
	// U+D800 encoded as raw WTF-8-style bytes ED A0 80 is invalid UTF-8.
	res := lexer.Lex([]byte{0xED, 0xA0, 0x80})
	assert.False(t, res.Valid)
}

func TestLexEOFSpanIsZeroWidth(t *testing.T) {
	res := lexer.Lex([]byte("x"))
	require.True(t, res.Valid)
	eof := res.Tokens[len(res.Tokens)-1]
	assert.Equal(t, token.EOF, eof.Kind)
	assert.Equal(t, uint32(1), eof.Span.Start)
	assert.Equal(t, uint32(1), eof.Span.End)
}

func TestLexSpansCoverSourceWithoutGapsOtherThanWhitespace(t *testing.T) {
	src := []byte("let x = 1 + 2;")
	res := lexer.Lex(src)
	require.True(t, res.Valid)
	prevEnd := uint32(0)
	for _, tk := range res.Tokens {
		if tk.Kind == token.EOF {
			break
		}
		for i := prevEnd; i < tk.Span.Start; i++ {
			b := src[i]
			assert.True(t, b == ' ' || b == '\t' || b == '\n' || b == '\r', "gap byte %q is not whitespace", b)
		}
		prevEnd = tk.Span.End
	}
}
