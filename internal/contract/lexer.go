package contract

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokNumber
	tokString
	tokIdent
	tokKeyword // and or not True False None
	tokOp      // operators and punctuation
)

type token struct {
	typ tokenType
	lit string
	pos int
}

var keywords = map[string]bool{
	"and": true, "or": true, "not": true,
	"True": true, "False": true, "None": true,
}

// twoCharOps are matched before single-char operators. "//" must win over "/".
var twoCharOps = []string{"==", "!=", "<=", ">=", "//"}

const singleCharOps = "+-*/%<>()."

type lexer struct {
	src string
	pos int
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t') {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{typ: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	c := l.src[l.pos]

	// Numbers: digits with at most one dot.
	if isDigit(c) || (c == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1])) {
		sawDot := false
		for l.pos < len(l.src) {
			ch := l.src[l.pos]
			if ch == '.' {
				if sawDot {
					break
				}
				// A dot not followed by a digit is attribute access, not a float.
				if l.pos+1 >= len(l.src) || !isDigit(l.src[l.pos+1]) {
					break
				}
				sawDot = true
			} else if !isDigit(ch) {
				break
			}
			l.pos++
		}
		return token{typ: tokNumber, lit: l.src[start:l.pos], pos: start}, nil
	}

	// Strings: single or double quoted, no escapes in the sublanguage.
	if c == '\'' || c == '"' {
		quote := c
		l.pos++
		for l.pos < len(l.src) && l.src[l.pos] != quote {
			l.pos++
		}
		if l.pos >= len(l.src) {
			return token{}, &ParseError{Raw: l.src, Pos: start, Msg: "unterminated string"}
		}
		l.pos++
		return token{typ: tokString, lit: l.src[start+1 : l.pos-1], pos: start}, nil
	}

	// Identifiers and keywords.
	if isIdentStart(c) {
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		lit := l.src[start:l.pos]
		if keywords[lit] {
			return token{typ: tokKeyword, lit: lit, pos: start}, nil
		}
		return token{typ: tokIdent, lit: lit, pos: start}, nil
	}

	for _, op := range twoCharOps {
		if strings.HasPrefix(l.src[l.pos:], op) {
			l.pos += 2
			return token{typ: tokOp, lit: op, pos: start}, nil
		}
	}
	if strings.IndexByte(singleCharOps, c) >= 0 {
		l.pos++
		return token{typ: tokOp, lit: string(c), pos: start}, nil
	}

	return token{}, &ParseError{Raw: l.src, Pos: start, Msg: fmt.Sprintf("unexpected character %q", c)}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// isIdentStart accepts ASCII only; a multi-byte rune would otherwise be
// consumed one mangled byte at a time instead of rejected cleanly.
func isIdentStart(c byte) bool {
	return c < utf8.RuneSelf && (c == '_' || unicode.IsLetter(rune(c)))
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
