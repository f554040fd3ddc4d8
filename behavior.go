// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package wirehdl

import (
	"github.com/db47h/wirehdl/hdl"
	"github.com/pkg/errors"
)

// A BehaviorFunc is a compiled behavioral module: a pure function from
// named input values to named output values. Values are unsigned and
// truncated to their declared widths.
type BehaviorFunc func(inputs map[string]uint64) (map[string]uint64, error)

// A BehavioralCompiler compiles @behavior blocks into BehaviorFuncs and
// caches one compiled function per module name. Modules without a behavior
// block fall back to a single combinational settle of their elaborated
// structure, so behavioral code can call structural modules transparently.
type BehavioralCompiler struct {
	prog *hdl.Program
	fns  map[string]BehaviorFunc
}

// NewBehavioralCompiler returns a compiler resolving module calls against
// prog.
func NewBehavioralCompiler(prog *hdl.Program) *BehavioralCompiler {
	return &BehavioralCompiler{prog: prog, fns: make(map[string]BehaviorFunc)}
}

// Has reports whether the named module exists and can be compiled.
func (c *BehavioralCompiler) Has(name string) bool {
	m := c.prog.Module(name)
	return m != nil && (m.Behavior != nil || m.Structure != nil)
}

// Compile returns the compiled function for the named module, compiling and
// caching it on first use. Compile is idempotent: repeated calls return the
// same function.
func (c *BehavioralCompiler) Compile(name string) (BehaviorFunc, error) {
	if fn, ok := c.fns[name]; ok {
		return fn, nil
	}
	m := c.prog.Module(name)
	if m == nil {
		return nil, errors.Errorf("behavior: unknown module %q", name)
	}
	var fn BehaviorFunc
	var err error
	if m.Behavior != nil {
		fn = c.compileBehavior(m)
	} else if m.Structure != nil {
		fn, err = c.compileStructural(m)
		if err != nil {
			return nil, err
		}
	} else {
		return nil, errors.Errorf("behavior: module %q has no behavior or structure", name)
	}
	c.fns[name] = fn
	return fn, nil
}

// compileBehavior builds a closure interpreting the module's statement tree
// over a fresh variable environment per call.
func (c *BehavioralCompiler) compileBehavior(m *hdl.Module) BehaviorFunc {
	return func(inputs map[string]uint64) (map[string]uint64, error) {
		env := &benv{
			c:      c,
			m:      m,
			vals:   make(map[string]uint64, len(m.Params)+len(m.Outputs)),
			widths: make(map[string]int, len(m.Params)+len(m.Outputs)),
		}
		for _, p := range m.Params {
			env.widths[p.Name] = p.Width
			env.vals[p.Name] = inputs[p.Name] & widthMask(p.Width)
		}
		for _, o := range m.Outputs {
			env.widths[o.Name] = o.Width
			env.vals[o.Name] = 0
		}
		if err := env.exec(m.Behavior); err != nil {
			return nil, err
		}
		out := make(map[string]uint64, len(m.Outputs))
		for _, o := range m.Outputs {
			out[o.Name] = env.vals[o.Name]
		}
		return out, nil
	}
}

// compileStructural elaborates the module standalone and wraps one
// combinational settle per call. Sequential modules are rejected: a pure
// function cannot carry register state across calls.
func (c *BehavioralCompiler) compileStructural(m *hdl.Module) (BehaviorFunc, error) {
	nl, err := Elaborate(c.prog, m.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "behavior: structural module %q", m.Name)
	}
	if len(nl.DFFs) > 0 {
		return nil, errors.Errorf("behavior: cannot call sequential module %q (contains %d dffs)", m.Name, len(nl.DFFs))
	}
	ln, err := Levelize(nl)
	if err != nil {
		return nil, errors.Wrapf(err, "behavior: structural module %q", m.Name)
	}
	circ, err := Compile(ln, c)
	if err != nil {
		return nil, errors.Wrapf(err, "behavior: structural module %q", m.Name)
	}
	return func(inputs map[string]uint64) (map[string]uint64, error) {
		for _, p := range nl.Inputs {
			v := inputs[p.Name]
			for i, id := range p.Bits {
				if err := circ.Set(id, byte(v>>uint(i)&1)); err != nil {
					return nil, err
				}
			}
		}
		if err := circ.EvaluateBehavioral(); err != nil {
			return nil, err
		}
		out := make(map[string]uint64, len(nl.Outputs))
		for _, o := range nl.Outputs {
			var v uint64
			for i, id := range o.Bits {
				b, err := circ.Get(id)
				if err != nil {
					return nil, err
				}
				v |= uint64(b) << uint(i)
			}
			out[o.Name] = v
		}
		return out, nil
	}, nil
}

func widthMask(w int) uint64 {
	if w >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(w) - 1
}

// benv is the mutable variable environment of one behavioral invocation.
type benv struct {
	c      *BehavioralCompiler
	m      *hdl.Module
	vals   map[string]uint64
	widths map[string]int
}

func (e *benv) errf(s interface{ Pos() (int, int) }, format string, args ...interface{}) error {
	line, col := s.Pos()
	return errors.Errorf("behavior %s (%d:%d): "+format, append([]interface{}{e.m.Name, line, col}, args...)...)
}

func (e *benv) exec(stmts []hdl.Stmt) error {
	for _, s := range stmts {
		var err error
		switch s := s.(type) {
		case *hdl.Let:
			err = e.let(s)
		case *hdl.Assign:
			err = e.assign(s)
		case *hdl.If:
			err = e.ifStmt(s)
		case *hdl.Match:
			err = e.match(s)
		default:
			err = errors.Errorf("behavior %s: unknown statement %T", e.m.Name, s)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *benv) let(s *hdl.Let) error {
	if _, ok := e.widths[s.Name]; ok {
		return e.errf(s, "%s redeclared", s.Name)
	}
	v, err := e.eval(s.Value)
	if err != nil {
		return err
	}
	e.widths[s.Name] = s.Width
	e.vals[s.Name] = v & widthMask(s.Width)
	return nil
}

func (e *benv) assign(s *hdl.Assign) error {
	if len(s.Targets) > 1 {
		call := s.Value.(*hdl.Call)
		outs, names, err := e.call(call)
		if err != nil {
			return err
		}
		if len(s.Targets) != len(names) {
			return e.errf(s, "module %q has %d outputs, got %d targets", call.Name, len(names), len(s.Targets))
		}
		for i, t := range s.Targets {
			if err := e.store(s, t, outs[names[i]]); err != nil {
				return err
			}
		}
		return nil
	}
	v, err := e.eval(s.Value)
	if err != nil {
		return err
	}
	return e.store(s, s.Targets[0], v)
}

func (e *benv) store(s hdl.Stmt, name string, v uint64) error {
	w, ok := e.widths[name]
	if !ok {
		return e.errf(s, "assignment to undeclared %s", name)
	}
	e.vals[name] = v & widthMask(w)
	return nil
}

func (e *benv) ifStmt(s *hdl.If) error {
	c, err := e.eval(s.Cond)
	if err != nil {
		return err
	}
	if c != 0 {
		return e.exec(s.Then)
	}
	return e.exec(s.Else)
}

func (e *benv) match(s *hdl.Match) error {
	v, err := e.eval(s.Subject)
	if err != nil {
		return err
	}
	// first matching case wins, top to bottom
	for _, c := range s.Cases {
		for _, p := range c.Patterns {
			if p.Matches(v) {
				return e.exec(c.Body)
			}
		}
	}
	return nil
}

// call evaluates a module call: arguments bind to the callee's parameters
// in order, and the callee's outputs come back by name (names lists them in
// declaration order).
func (e *benv) call(x *hdl.Call) (map[string]uint64, []string, error) {
	sub := e.c.prog.Module(x.Name)
	if sub == nil {
		return nil, nil, e.errf(x, "unknown module %q", x.Name)
	}
	if len(x.Args) != len(sub.Params) {
		return nil, nil, e.errf(x, "module %q takes %d arguments, got %d", x.Name, len(sub.Params), len(x.Args))
	}
	fn, err := e.c.Compile(x.Name)
	if err != nil {
		return nil, nil, err
	}
	in := make(map[string]uint64, len(x.Args))
	for i, a := range x.Args {
		v, err := e.eval(a)
		if err != nil {
			return nil, nil, err
		}
		in[sub.Params[i].Name] = v
	}
	out, err := fn(in)
	if err != nil {
		return nil, nil, err
	}
	names := make([]string, len(sub.Outputs))
	for i := range sub.Outputs {
		names[i] = sub.Outputs[i].Name
	}
	return out, names, nil
}

func (e *benv) eval(x hdl.Expr) (uint64, error) {
	switch x := x.(type) {
	case *hdl.IntLit:
		return x.Val, nil
	case *hdl.Ref:
		v, ok := e.vals[x.Name]
		if !ok {
			return 0, e.errf(x, "undefined %s", x.Name)
		}
		return v, nil
	case *hdl.Index:
		v, err := e.eval(x.X)
		if err != nil {
			return 0, err
		}
		i, err := e.eval(x.I)
		if err != nil {
			return 0, err
		}
		if i > 63 {
			return 0, nil
		}
		return v >> uint(i) & 1, nil
	case *hdl.Slice:
		v, err := e.eval(x.X)
		if err != nil {
			return 0, err
		}
		hi, lo, err := e.sliceBounds(x)
		if err != nil {
			return 0, err
		}
		return v >> uint(lo) & widthMask(hi-lo+1), nil
	case *hdl.Concat:
		var v uint64
		for _, p := range x.Parts {
			w, err := e.widthOf(p)
			if err != nil {
				return 0, err
			}
			pv, err := e.eval(p)
			if err != nil {
				return 0, err
			}
			v = v<<uint(w) | pv&widthMask(w)
		}
		return v, nil
	case *hdl.Call:
		out, names, err := e.call(x)
		if err != nil {
			return 0, err
		}
		return out[names[0]], nil
	case *hdl.Unary:
		v, err := e.eval(x.X)
		if err != nil {
			return 0, err
		}
		switch x.Op {
		case hdl.Tilde:
			return ^v, nil
		case hdl.Bang:
			return b2i(v == 0), nil
		case hdl.Minus:
			return -v, nil
		}
	case *hdl.Binary:
		return e.binary(x)
	case *hdl.Cond:
		c, err := e.eval(x.C)
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return e.eval(x.T)
		}
		return e.eval(x.F)
	}
	return 0, e.errf(x, "invalid expression %T", x)
}

func (e *benv) binary(x *hdl.Binary) (uint64, error) {
	a, err := e.eval(x.X)
	if err != nil {
		return 0, err
	}
	// short circuit logical operators
	switch x.Op {
	case hdl.LAnd:
		if a == 0 {
			return 0, nil
		}
		b, err := e.eval(x.Y)
		return b2i(b != 0), err
	case hdl.LOr:
		if a != 0 {
			return 1, nil
		}
		b, err := e.eval(x.Y)
		return b2i(b != 0), err
	}
	b, err := e.eval(x.Y)
	if err != nil {
		return 0, err
	}
	switch x.Op {
	case hdl.Plus:
		return a + b, nil
	case hdl.Minus:
		return a - b, nil
	case hdl.Star:
		return a * b, nil
	case hdl.Slash:
		if b == 0 {
			return 0, nil
		}
		return a / b, nil
	case hdl.Percent:
		if b == 0 {
			return 0, nil
		}
		return a % b, nil
	case hdl.Amp:
		return a & b, nil
	case hdl.Pipe:
		return a | b, nil
	case hdl.Caret:
		return a ^ b, nil
	case hdl.Shl:
		if b > 63 {
			return 0, nil
		}
		return a << uint(b), nil
	case hdl.Shr:
		if b > 63 {
			return 0, nil
		}
		return a >> uint(b), nil
	case hdl.Eq:
		return b2i(a == b), nil
	case hdl.Ne:
		return b2i(a != b), nil
	case hdl.Lt:
		return b2i(a < b), nil
	case hdl.Le:
		return b2i(a <= b), nil
	case hdl.Gt:
		return b2i(a > b), nil
	case hdl.Ge:
		return b2i(a >= b), nil
	}
	return 0, e.errf(x, "invalid operator %s", x.Op)
}

func (e *benv) sliceBounds(x *hdl.Slice) (hi, lo int, err error) {
	h, err := e.eval(x.Hi)
	if err != nil {
		return 0, 0, err
	}
	l, err := e.eval(x.Lo)
	if err != nil {
		return 0, 0, err
	}
	if h > 63 || l > h {
		return 0, 0, e.errf(x, "invalid slice [%d:%d]", h, l)
	}
	return int(h), int(l), nil
}

// widthOf infers the bit width of a concatenation operand.
func (e *benv) widthOf(x hdl.Expr) (int, error) {
	switch x := x.(type) {
	case *hdl.Ref:
		w, ok := e.widths[x.Name]
		if !ok {
			return 0, e.errf(x, "undefined %s", x.Name)
		}
		return w, nil
	case *hdl.Index:
		return 1, nil
	case *hdl.Slice:
		hi, lo, err := e.sliceBounds(x)
		if err != nil {
			return 0, err
		}
		return hi - lo + 1, nil
	case *hdl.Concat:
		var w int
		for _, p := range x.Parts {
			pw, err := e.widthOf(p)
			if err != nil {
				return 0, err
			}
			w += pw
		}
		return w, nil
	}
	return 0, e.errf(x, "operand of concatenation must have a known width")
}

func b2i(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
