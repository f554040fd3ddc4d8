// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

// binary operator precedence, higher binds tighter. Zero means "not a
// binary operator".
var binPrec = map[Kind]int{
	LOr:     1,
	LAnd:    2,
	Pipe:    3,
	Caret:   4,
	Amp:     5,
	Eq:      6,
	Ne:      6,
	Lt:      7,
	Le:      7,
	Gt:      7,
	Ge:      7,
	Shl:     8,
	Shr:     8,
	Plus:    9,
	Minus:   9,
	Star:    10,
	Slash:   10,
	Percent: 10,
}

func (p *parser) parseExpr() (Expr, error) {
	e, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if ok, err := p.accept(Question); err != nil {
		return nil, err
	} else if !ok {
		return e, nil
	}
	line, col := e.Pos()
	t, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err = p.expect(Colon); err != nil {
		return nil, err
	}
	f, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &Cond{pos: pos{line, col}, C: e, T: t, F: f}, nil
}

func (p *parser) parseBinary(minPrec int) (Expr, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		prec := binPrec[p.tok.Kind]
		if prec < minPrec || prec == 0 {
			return x, nil
		}
		op := p.tok.Kind
		if err = p.next(); err != nil {
			return nil, err
		}
		y, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		line, col := x.Pos()
		x = &Binary{pos: pos{line, col}, Op: op, X: x, Y: y}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	switch p.tok.Kind {
	case Tilde, Bang, Minus:
		op := p.tok.Kind
		line, col := p.tok.Line, p.tok.Col
		if err := p.next(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{pos: pos{line, col}, Op: op, X: x}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.tok.Kind {
		case LBracket:
			line, col := p.tok.Line, p.tok.Col
			if err = p.next(); err != nil {
				return nil, err
			}
			i, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if ok, err := p.accept(Colon); err != nil {
				return nil, err
			} else if ok {
				lo, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				x = &Slice{pos: pos{line, col}, X: x, Hi: i, Lo: lo}
			} else {
				x = &Index{pos: pos{line, col}, X: x, I: i}
			}
			if _, err = p.expect(RBracket); err != nil {
				return nil, err
			}
		case LParen:
			r, ok := x.(*Ref)
			if !ok {
				return nil, p.errf("call requires a module name")
			}
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			x = &Call{pos: pos{r.Line, r.Col}, Name: r.Name, Args: args}
		default:
			return x, nil
		}
	}
}

func (p *parser) parseArgs() ([]Expr, error) {
	if err := p.next(); err != nil { // (
		return nil, err
	}
	var args []Expr
	if p.tok.Kind == RParen {
		return args, p.next()
	}
	for {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if ok, err := p.accept(Comma); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}
	_, err := p.expect(RParen)
	return args, err
}

func (p *parser) parsePrimary() (Expr, error) {
	line, col := p.tok.Line, p.tok.Col
	switch p.tok.Kind {
	case Ident:
		r := &Ref{pos: pos{line, col}, Name: p.tok.Text}
		return r, p.next()
	case Int:
		i := &IntLit{pos: pos{line, col}, Val: p.tok.Val}
		return i, p.next()
	case LParen:
		if err := p.next(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		_, err = p.expect(RParen)
		return e, err
	case LBrace:
		if err := p.next(); err != nil {
			return nil, err
		}
		c := &Concat{pos: pos{line, col}}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			c.Parts = append(c.Parts, e)
			if ok, err := p.accept(Comma); err != nil {
				return nil, err
			} else if !ok {
				break
			}
		}
		if _, err := p.expect(RBrace); err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, p.errf("expected expression, got %s", p.tok)
}
