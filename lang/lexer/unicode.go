package lexer

import "unicode"

func isUnicodeLetter(r rune) bool { return unicode.IsLetter(r) }
func isUnicodeDigit(r rune) bool  { return unicode.IsDigit(r) }
