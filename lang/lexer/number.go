package lexer

import (
	"math"
	"strconv"
	"strings"

	"github.com/mna/dust/lang/token"
)

func negInfinity() float64 { return math.Inf(-1) }

// number scans a numeric literal starting at start, which is always l.off;
// a leading '-' at that position is consumed here. It recognises:
//   - decimal integers: 123, 1_000
//   - hex bytes: 0x1f (exactly two hex digits)
//   - floats: a digit run containing a '.' whose right-hand neighbour is a
//     digit, optionally followed by [eE][+-]?[0-9_]+
//   - the word literals Infinity and NaN (identOrKeyword hands those words
//     back here, as minusOrNumber does for "-Infinity")
func (l *lexer) number(start int) token.Token {
	if hasPrefix(l.src[l.off:], "Infinity") {
		l.off += len("Infinity")
		return token.Token{Kind: token.FLOAT, Span: token.Span{Start: uint32(start), End: uint32(l.off)}, Value: token.Value{Float: math.Inf(1)}}
	}
	if hasPrefix(l.src[l.off:], "NaN") {
		l.off += len("NaN")
		return token.Token{Kind: token.FLOAT, Span: token.Span{Start: uint32(start), End: uint32(l.off)}, Value: token.Value{Float: math.NaN()}}
	}

	neg := false
	if l.off < len(l.src) && l.src[l.off] == '-' {
		neg = true
		l.off++
	}

	if l.peekByte() == '0' && l.off+1 < len(l.src) && lowerByte(l.src[l.off+1]) == 'x' && !neg {
		return l.hexByte(start)
	}

	l.digitRun()
	isFloat := false
	if l.peekByte() == '.' && l.off+1 < len(l.src) && isDigitByte(l.src[l.off+1]) {
		isFloat = true
		l.off++ // consume '.'
		l.digitRun()
	}
	if isFloat {
		if e := lowerByte(l.peekByte()); e == 'e' {
			save := l.off
			l.off++
			if l.peekByte() == '+' || l.peekByte() == '-' {
				l.off++
			}
			if isDigitByte(l.peekByte()) || l.peekByte() == '_' {
				l.digitRun()
			} else {
				l.off = save // not a valid exponent, leave it for the next token
			}
		}
	}

	lit := string(l.src[start:l.off])
	clean := strings.ReplaceAll(lit, "_", "")

	if isFloat {
		f, _ := strconv.ParseFloat(clean, 64)
		return token.Token{Kind: token.FLOAT, Span: token.Span{Start: uint32(start), End: uint32(l.off)}, Value: token.Value{Float: f}}
	}
	i, _ := strconv.ParseInt(clean, 10, 64)
	return token.Token{Kind: token.INT, Span: token.Span{Start: uint32(start), End: uint32(l.off)}, Value: token.Value{Int: i, Base: 10}}
}

func (l *lexer) digitRun() {
	for l.off < len(l.src) && (isDigitByte(l.src[l.off]) || l.src[l.off] == '_') {
		l.off++
	}
}

// hexByte scans "0x" followed by exactly two hex digits into a BYTE token.
// Anything else after "0x" is an Unknown token covering what was consumed.
func (l *lexer) hexByte(start int) token.Token {
	l.off += 2 // "0x"
	digits := 0
	for digits < 2 && l.off < len(l.src) && isHexDigitByte(l.src[l.off]) {
		l.off++
		digits++
	}
	if digits != 2 {
		return tok(token.ILLEGAL, start, l.off)
	}
	lit := string(l.src[l.off-2 : l.off])
	v, _ := strconv.ParseInt(lit, 16, 16)
	return token.Token{Kind: token.BYTE, Span: token.Span{Start: uint32(start), End: uint32(l.off)}, Value: token.Value{Int: v, Base: 16}}
}

func lowerByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
