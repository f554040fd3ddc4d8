// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hdl implements the Wire HDL lexer, parser and AST.
package hdl

// Parse parses Wire HDL source text into a Program. The returned error, if
// any, is a *SyntaxError carrying the line and column of the offending
// token.
func Parse(src string) (*Program, error) {
	p := &parser{l: newLexer(src)}
	if err := p.next(); err != nil {
		return nil, err
	}
	prog := &Program{index: make(map[string]*Module)}
	p.skipNewlines()
	for p.tok.Kind != EOF {
		if p.tok.Kind != KwModule {
			return nil, p.errf("expected module declaration, got %s", p.tok)
		}
		m, err := p.parseModule()
		if err != nil {
			return nil, err
		}
		if prog.index[m.Name] != nil {
			return nil, syntaxErrf(m.Line, m.Col, "duplicate module %q", m.Name)
		}
		prog.Modules = append(prog.Modules, m)
		prog.index[m.Name] = m
		p.skipNewlines()
	}
	return prog, nil
}

type parser struct {
	l   *lexer
	tok Token
}

func (p *parser) next() error {
	t, err := p.l.lex()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) errf(format string, args ...interface{}) error {
	return syntaxErrf(p.tok.Line, p.tok.Col, format, args...)
}

// expect consumes a token of the given kind or fails.
func (p *parser) expect(k Kind) (Token, error) {
	if p.tok.Kind != k {
		return Token{}, p.errf("expected %s, got %s", k, p.tok)
	}
	t := p.tok
	return t, p.next()
}

// accept consumes the current token if it has the given kind.
func (p *parser) accept(k Kind) (bool, error) {
	if p.tok.Kind != k {
		return false, nil
	}
	return true, p.next()
}

func (p *parser) skipNewlines() {
	for p.tok.Kind == Newline {
		if err := p.next(); err != nil {
			// the lexer re-reports the error on the next lex call
			return
		}
	}
}

// endStmt consumes a statement terminator: a newline, or lookahead } / EOF.
func (p *parser) endStmt() error {
	switch p.tok.Kind {
	case Newline:
		return p.next()
	case RBrace, EOF:
		return nil
	}
	return p.errf("expected end of statement, got %s", p.tok)
}

// parseModule parses
//
//	module name(param[:W], ...) -> out[:W], ...:
//	    <statements>
func (p *parser) parseModule() (*Module, error) {
	m := &Module{Line: p.tok.Line, Col: p.tok.Col}
	if err := p.next(); err != nil { // module
		return nil, err
	}
	name, err := p.expect(Ident)
	if err != nil {
		return nil, err
	}
	m.Name = name.Text
	if _, err = p.expect(LParen); err != nil {
		return nil, err
	}
	if m.Params, err = p.parseParams(); err != nil {
		return nil, err
	}
	if _, err = p.expect(RParen); err != nil {
		return nil, err
	}
	if _, err = p.expect(Arrow); err != nil {
		return nil, err
	}
	if m.Outputs, err = p.parseOutputs(); err != nil {
		return nil, err
	}
	if err = p.endStmt(); err != nil {
		return nil, err
	}

	// body: structural statements and @behavior / @structure blocks, up to
	// the next module declaration or EOF.
	for {
		p.skipNewlines()
		switch p.tok.Kind {
		case KwModule, EOF:
			if m.Structure == nil && m.Behavior == nil {
				return nil, syntaxErrf(m.Line, m.Col, "module %q has an empty body", m.Name)
			}
			return m, nil
		case At:
			if err = p.parseAtBlock(m); err != nil {
				return nil, err
			}
		default:
			w, err := p.parseWire()
			if err != nil {
				return nil, err
			}
			m.Structure = append(m.Structure, w)
		}
	}
}

// parseParams parses a comma separated parameter list terminated by (but
// not consuming) the closing parenthesis.
func (p *parser) parseParams() ([]Port, error) {
	var ports []Port
	if p.tok.Kind == RParen {
		return ports, nil
	}
	for {
		t, err := p.expect(Ident)
		if err != nil {
			return nil, err
		}
		port := Port{Name: t.Text, Width: 1, Line: t.Line, Col: t.Col}
		if ok, err := p.accept(Colon); err != nil {
			return nil, err
		} else if ok {
			w, err := p.expect(Int)
			if err != nil {
				return nil, err
			}
			if w.Val < 1 || w.Val > 64 {
				return nil, syntaxErrf(w.Line, w.Col, "port width must be 1..64, got %d", w.Val)
			}
			port.Width = int(w.Val)
		}
		ports = append(ports, port)
		if ok, err := p.accept(Comma); err != nil {
			return nil, err
		} else if !ok {
			return ports, nil
		}
	}
}

// parseOutputs parses the output list "out[:W], ...:" including its
// terminating colon. A colon not followed by a width ends the list, which
// is what distinguishes "-> out:" from "-> out:8:".
func (p *parser) parseOutputs() ([]Port, error) {
	var ports []Port
	for {
		t, err := p.expect(Ident)
		if err != nil {
			return nil, err
		}
		port := Port{Name: t.Text, Width: 1, Line: t.Line, Col: t.Col}
		if ok, err := p.accept(Comma); err != nil {
			return nil, err
		} else if ok {
			ports = append(ports, port)
			continue
		}
		if _, err = p.expect(Colon); err != nil {
			return nil, err
		}
		if p.tok.Kind != Int {
			return append(ports, port), nil
		}
		w := p.tok
		if w.Val < 1 || w.Val > 64 {
			return nil, syntaxErrf(w.Line, w.Col, "port width must be 1..64, got %d", w.Val)
		}
		port.Width = int(w.Val)
		if err = p.next(); err != nil {
			return nil, err
		}
		ports = append(ports, port)
		if ok, err := p.accept(Comma); err != nil {
			return nil, err
		} else if ok {
			continue
		}
		if _, err = p.expect(Colon); err != nil {
			return nil, err
		}
		return ports, nil
	}
}

func (p *parser) parseAtBlock(m *Module) error {
	if err := p.next(); err != nil { // @
		return err
	}
	kind, err := p.expect(Ident)
	if err != nil {
		return err
	}
	switch kind.Text {
	case "behavior":
		if m.Behavior != nil {
			return syntaxErrf(kind.Line, kind.Col, "duplicate @behavior block in module %q", m.Name)
		}
		body, err := p.parseBlock()
		if err != nil {
			return err
		}
		m.Behavior = body
	case "structure":
		if _, err = p.expect(LBrace); err != nil {
			return err
		}
		p.skipNewlines()
		for p.tok.Kind != RBrace {
			w, err := p.parseWire()
			if err != nil {
				return err
			}
			m.Structure = append(m.Structure, w)
			p.skipNewlines()
		}
		if err = p.next(); err != nil { // }
			return err
		}
	default:
		return syntaxErrf(kind.Line, kind.Col, "unknown block @%s (want @behavior or @structure)", kind.Text)
	}
	return p.endStmt()
}

// parseWire parses one structural statement.
func (p *parser) parseWire() (*Wire, error) {
	w := &Wire{Line: p.tok.Line, Col: p.tok.Col}
	for {
		t, err := p.expect(Ident)
		if err != nil {
			return nil, err
		}
		w.Targets = append(w.Targets, t.Text)
		if ok, err := p.accept(Comma); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}
	if _, err := p.expect(AssignOp); err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if c, ok := e.(*Call); ok {
		w.Call = c
	} else {
		if len(w.Targets) > 1 {
			return nil, syntaxErrf(w.Line, w.Col, "multiple targets require a module call")
		}
		w.Alias = e
	}
	return w, p.endStmt()
}

// parseBlock parses "{ stmt* }" of behavioral statements.
func (p *parser) parseBlock() ([]Stmt, error) {
	if _, err := p.expect(LBrace); err != nil {
		return nil, err
	}
	var stmts []Stmt
	p.skipNewlines()
	for p.tok.Kind != RBrace {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
		p.skipNewlines()
	}
	return stmts, p.next() // }
}

func (p *parser) parseStmt() (Stmt, error) {
	switch p.tok.Kind {
	case KwLet:
		return p.parseLet()
	case KwIf:
		return p.parseIf()
	case KwMatch:
		return p.parseMatch()
	case Ident:
		return p.parseAssign()
	}
	return nil, p.errf("expected statement, got %s", p.tok)
}

func (p *parser) parseLet() (Stmt, error) {
	s := &Let{pos: pos{p.tok.Line, p.tok.Col}}
	if err := p.next(); err != nil { // let
		return nil, err
	}
	name, err := p.expect(Ident)
	if err != nil {
		return nil, err
	}
	s.Name = name.Text
	if _, err = p.expect(Colon); err != nil {
		return nil, err
	}
	w, err := p.expect(Int)
	if err != nil {
		return nil, err
	}
	if w.Val < 1 || w.Val > 64 {
		return nil, syntaxErrf(w.Line, w.Col, "width must be 1..64, got %d", w.Val)
	}
	s.Width = int(w.Val)
	if _, err = p.expect(AssignOp); err != nil {
		return nil, err
	}
	if s.Value, err = p.parseExpr(); err != nil {
		return nil, err
	}
	return s, p.endStmt()
}

func (p *parser) parseAssign() (Stmt, error) {
	s := &Assign{pos: pos{p.tok.Line, p.tok.Col}}
	for {
		t, err := p.expect(Ident)
		if err != nil {
			return nil, err
		}
		s.Targets = append(s.Targets, t.Text)
		if ok, err := p.accept(Comma); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}
	if _, err := p.expect(AssignOp); err != nil {
		return nil, err
	}
	v, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if len(s.Targets) > 1 {
		if _, ok := v.(*Call); !ok {
			return nil, syntaxErrf(s.Line, s.Col, "multiple targets require a module call")
		}
	}
	s.Value = v
	return s, p.endStmt()
}

func (p *parser) parseIf() (Stmt, error) {
	s := &If{pos: pos{p.tok.Line, p.tok.Col}}
	if err := p.next(); err != nil { // if
		return nil, err
	}
	var err error
	if s.Cond, err = p.parseExpr(); err != nil {
		return nil, err
	}
	if s.Then, err = p.parseBlock(); err != nil {
		return nil, err
	}
	if ok, err := p.accept(KwElse); err != nil {
		return nil, err
	} else if !ok {
		return s, p.endStmt()
	}
	if p.tok.Kind == KwIf {
		elif, err := p.parseIf()
		if err != nil {
			return nil, err
		}
		s.Else = []Stmt{elif}
		return s, nil // terminator consumed by the nested if
	}
	if s.Else, err = p.parseBlock(); err != nil {
		return nil, err
	}
	return s, p.endStmt()
}

func (p *parser) parseMatch() (Stmt, error) {
	s := &Match{pos: pos{p.tok.Line, p.tok.Col}}
	if err := p.next(); err != nil { // match
		return nil, err
	}
	var err error
	if s.Subject, err = p.parseExpr(); err != nil {
		return nil, err
	}
	if _, err = p.expect(LBrace); err != nil {
		return nil, err
	}
	p.skipNewlines()
	for p.tok.Kind != RBrace {
		c := MatchCase{Line: p.tok.Line, Col: p.tok.Col}
		for {
			pat, err := p.parsePattern()
			if err != nil {
				return nil, err
			}
			c.Patterns = append(c.Patterns, pat)
			if ok, err := p.accept(Comma); err != nil {
				return nil, err
			} else if !ok {
				break
			}
		}
		if _, err = p.expect(Colon); err != nil {
			return nil, err
		}
		if c.Body, err = p.parseBlock(); err != nil {
			return nil, err
		}
		s.Cases = append(s.Cases, c)
		p.skipNewlines()
	}
	if err = p.next(); err != nil { // }
		return nil, err
	}
	if len(s.Cases) == 0 {
		return nil, syntaxErrf(s.Line, s.Col, "match has no cases")
	}
	return s, p.endStmt()
}

func (p *parser) parsePattern() (Pattern, error) {
	switch p.tok.Kind {
	case Ident:
		if p.tok.Text != "_" {
			return Pattern{}, p.errf("invalid pattern %s (want integer, range or _)", p.tok)
		}
		return Pattern{Wild: true}, p.next()
	case Int:
		lo := p.tok.Val
		if err := p.next(); err != nil {
			return Pattern{}, err
		}
		if ok, err := p.accept(DotDot); err != nil {
			return Pattern{}, err
		} else if !ok {
			return Pattern{Lo: lo, Hi: lo}, nil
		}
		hi, err := p.expect(Int)
		if err != nil {
			return Pattern{}, err
		}
		if hi.Val < lo {
			return Pattern{}, syntaxErrf(hi.Line, hi.Col, "range %d..%d is empty", lo, hi.Val)
		}
		return Pattern{Lo: lo, Hi: hi.Val}, nil
	}
	return Pattern{}, p.errf("invalid pattern %s (want integer, range or _)", p.tok)
}
