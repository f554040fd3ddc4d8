// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import (
	"strconv"
	"unicode"
)

// lexer turns Wire HDL source text into a token stream. It keeps track of
// line/column positions so the parser can produce located SyntaxErrors.
type lexer struct {
	src  []rune
	pos  int
	line int
	col  int
	err  error
}

func newLexer(src string) *lexer {
	return &lexer{src: []rune(src), line: 1, col: 1}
}

const eofRune = rune(-1)

func (l *lexer) peek() rune {
	if l.pos >= len(l.src) {
		return eofRune
	}
	return l.src[l.pos]
}

func (l *lexer) next() rune {
	r := l.peek()
	if r == eofRune {
		return r
	}
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) acceptWhile(f func(rune) bool) string {
	start := l.pos
	for f(l.peek()) {
		l.next()
	}
	return string(l.src[start:l.pos])
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdent(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isDigit(r rune) bool { return '0' <= r && r <= '9' }

func isHexDigit(r rune) bool {
	return isDigit(r) || 'a' <= r && r <= 'f' || 'A' <= r && r <= 'F'
}

// lex scans the next token. Horizontal whitespace and // comments are
// skipped; newlines are significant and returned as Newline tokens (runs of
// blank lines collapse to one).
func (l *lexer) lex() (Token, error) {
	for {
		r := l.peek()
		if r == ' ' || r == '\t' || r == '\r' {
			l.next()
			continue
		}
		if r == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/' {
			l.acceptWhile(func(r rune) bool { return r != '\n' && r != eofRune })
			continue
		}
		break
	}

	line, col := l.line, l.col
	tok := func(k Kind) (Token, error) {
		return Token{Kind: k, Line: line, Col: col}, nil
	}

	r := l.next()
	switch {
	case r == eofRune:
		return tok(EOF)
	case r == '\n':
		for {
			// collapse blank lines and comment-only lines
			for l.peek() == ' ' || l.peek() == '\t' || l.peek() == '\r' || l.peek() == '\n' {
				l.next()
			}
			if l.peek() == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/' {
				l.acceptWhile(func(r rune) bool { return r != '\n' && r != eofRune })
				continue
			}
			break
		}
		return tok(Newline)
	case isIdentStart(r):
		name := string(r) + l.acceptWhile(isIdent)
		if k, ok := keywords[name]; ok {
			t, _ := tok(k)
			t.Text = name
			return t, nil
		}
		t, _ := tok(Ident)
		t.Text = name
		return t, nil
	case isDigit(r):
		return l.lexNumber(r, line, col)
	}

	switch r {
	case '(':
		return tok(LParen)
	case ')':
		return tok(RParen)
	case '{':
		return tok(LBrace)
	case '}':
		return tok(RBrace)
	case '[':
		return tok(LBracket)
	case ']':
		return tok(RBracket)
	case ',':
		return tok(Comma)
	case ':':
		return tok(Colon)
	case '@':
		return tok(At)
	case '+':
		return tok(Plus)
	case '-':
		if l.peek() == '>' {
			l.next()
			return tok(Arrow)
		}
		return tok(Minus)
	case '*':
		return tok(Star)
	case '/':
		return tok(Slash)
	case '%':
		return tok(Percent)
	case '~':
		return tok(Tilde)
	case '?':
		return tok(Question)
	case '^':
		return tok(Caret)
	case '&':
		if l.peek() == '&' {
			l.next()
			return tok(LAnd)
		}
		return tok(Amp)
	case '|':
		if l.peek() == '|' {
			l.next()
			return tok(LOr)
		}
		return tok(Pipe)
	case '=':
		if l.peek() == '=' {
			l.next()
			return tok(Eq)
		}
		return tok(AssignOp)
	case '!':
		if l.peek() == '=' {
			l.next()
			return tok(Ne)
		}
		return tok(Bang)
	case '<':
		switch l.peek() {
		case '<':
			l.next()
			return tok(Shl)
		case '=':
			l.next()
			return tok(Le)
		}
		return tok(Lt)
	case '>':
		switch l.peek() {
		case '>':
			l.next()
			return tok(Shr)
		case '=':
			l.next()
			return tok(Ge)
		}
		return tok(Gt)
	case '.':
		if l.peek() == '.' {
			l.next()
			return tok(DotDot)
		}
	}
	return Token{}, syntaxErrf(line, col, "unexpected character %q", r)
}

func (l *lexer) lexNumber(first rune, line, col int) (Token, error) {
	var text string
	base := 10
	if first == '0' {
		switch l.peek() {
		case 'x', 'X':
			l.next()
			base = 16
			text = l.acceptWhile(isHexDigit)
		case 'b', 'B':
			l.next()
			base = 2
			text = l.acceptWhile(func(r rune) bool { return r == '0' || r == '1' })
		}
	}
	if base == 10 {
		text = string(first) + l.acceptWhile(isDigit)
	} else if text == "" {
		return Token{}, syntaxErrf(line, col, "malformed integer literal")
	}
	// forbid trailing junk like 0b12 or 123abc
	if isIdent(l.peek()) {
		return Token{}, syntaxErrf(line, col, "malformed integer literal %q", text+string(l.peek()))
	}
	v, err := strconv.ParseUint(text, base, 64)
	if err != nil {
		return Token{}, syntaxErrf(line, col, "integer literal out of range: %s", text)
	}
	return Token{Kind: Int, Text: text, Val: v, Line: line, Col: col}, nil
}
