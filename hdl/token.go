// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import "strconv"

// A Kind identifies the type of a lexical token.
type Kind int

// Token kinds.
const (
	EOF Kind = iota
	Newline
	Ident
	Int

	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Colon
	Arrow    // ->
	At       // @
	AssignOp // =

	Plus
	Minus
	Star
	Slash
	Percent
	Amp
	Pipe
	Caret
	Tilde
	Bang
	Question
	Shl // <<
	Shr // >>
	LAnd
	LOr
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	DotDot // ..

	// keywords
	KwModule
	KwLet
	KwIf
	KwElse
	KwMatch
)

var kindNames = map[Kind]string{
	EOF:      "end of input",
	Newline:  "newline",
	Ident:    "identifier",
	Int:      "integer",
	LParen:   "(",
	RParen:   ")",
	LBrace:   "{",
	RBrace:   "}",
	LBracket: "[",
	RBracket: "]",
	Comma:    ",",
	Colon:    ":",
	Arrow:    "->",
	At:       "@",
	AssignOp: "=",
	Plus:     "+",
	Minus:    "-",
	Star:     "*",
	Slash:    "/",
	Percent:  "%",
	Amp:      "&",
	Pipe:     "|",
	Caret:    "^",
	Tilde:    "~",
	Bang:     "!",
	Question: "?",
	Shl:      "<<",
	Shr:      ">>",
	LAnd:     "&&",
	LOr:      "||",
	Eq:       "==",
	Ne:       "!=",
	Lt:       "<",
	Le:       "<=",
	Gt:       ">",
	Ge:       ">=",
	DotDot:   "..",
	KwModule: "module",
	KwLet:    "let",
	KwIf:     "if",
	KwElse:   "else",
	KwMatch:  "match",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "token(" + strconv.Itoa(int(k)) + ")"
}

var keywords = map[string]Kind{
	"module": KwModule,
	"let":    KwLet,
	"if":     KwIf,
	"else":   KwElse,
	"match":  KwMatch,
}

// A Token is a lexical token with its source position.
type Token struct {
	Kind Kind
	Text string // raw text for Ident and Int tokens
	Val  uint64 // decoded value for Int tokens
	Line int    // 1-based
	Col  int    // 1-based, in runes
}

func (t Token) String() string {
	switch t.Kind {
	case Ident, Int:
		return strconv.Quote(t.Text)
	}
	return t.Kind.String()
}
