// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package wirehdl

import (
	"strconv"

	"github.com/db47h/wirehdl/hdl"
	"github.com/pkg/errors"
)

// Elaborate flattens the module hierarchy rooted at the module named top
// into a fresh Netlist. Submodule instantiations are inlined with unique
// hierarchical signal names; multi-bit ports expand to one signal per bit,
// LSB first. Modules that declare only an @behavior block are not expanded:
// they are recorded as BehavioralInstances to be compiled and invoked by the
// circuit backend.
//
// Each call builds an independent netlist; the program itself is never
// modified.
func Elaborate(prog *hdl.Program, top string) (*Netlist, error) {
	m := prog.Module(top)
	if m == nil {
		return nil, elabErrf(top, "", "unknown module")
	}
	e := &elaborator{prog: prog, n: newNetlist(), stack: make(map[string]bool)}

	env := make(scope)
	for _, p := range m.Params {
		port := Port{Name: p.Name, Width: p.Width}
		for i := 0; i < p.Width; i++ {
			id := e.n.addSignal(bitName(p.Name, i, p.Width), func(s *Signal) { s.IsInput = true })
			port.Bits = append(port.Bits, id)
		}
		if err := env.bind(p.Name, port.Bits); err != nil {
			return nil, elabErrf(top, p.Name, "duplicate parameter")
		}
		e.n.Inputs = append(e.n.Inputs, port)
	}

	switch {
	case m.Structure != nil:
		if err := e.inline(m, env, ""); err != nil {
			return nil, err
		}
	case m.Behavior != nil:
		// pure behavioral top: one instance spanning the whole netlist
		inst := BehavioralInstance{Name: m.Name, Module: m.Name, Level: -1}
		inst.Inputs = append(inst.Inputs, clonePorts(e.n.Inputs)...)
		for _, o := range m.Outputs {
			port := Port{Name: o.Name, Width: o.Width}
			for i := 0; i < o.Width; i++ {
				id := e.n.addSignal(bitName(o.Name, i, o.Width))
				port.Bits = append(port.Bits, id)
			}
			if err := env.bind(o.Name, port.Bits); err != nil {
				return nil, elabErrf(top, o.Name, "duplicate output")
			}
			inst.Outputs = append(inst.Outputs, port)
		}
		e.n.Behavioral = append(e.n.Behavioral, inst)
	default:
		return nil, elabErrf(top, "", "module has no structure or behavior")
	}

	// resolve primary outputs
	for _, o := range m.Outputs {
		bits, ok := env[o.Name]
		if !ok {
			return nil, elabErrf(top, o.Name, "output is never driven")
		}
		if len(bits) != o.Width {
			return nil, elabErrf(top, o.Name, "output width mismatch: declared %d, driven %d", o.Width, len(bits))
		}
		for i, id := range bits {
			e.n.Signals[id].IsOutput = true
			e.n.SignalMap[bitName(o.Name, i, o.Width)] = id
		}
		e.n.Outputs = append(e.n.Outputs, Port{Name: o.Name, Width: o.Width, Bits: bits})
	}
	return e.n, nil
}

// a scope maps local signal names to their id groups (LSB first).
type scope map[string][]int

var errRebound = errors.New("rebound")

func (s scope) bind(name string, bits []int) error {
	if _, ok := s[name]; ok {
		return errRebound
	}
	s[name] = bits
	return nil
}

// an unresolvedRef marks a reference to a name with no binding yet. The
// statement worklist catches it and retries the statement later; anywhere
// else it means the signal is genuinely undefined and elab() turns it into
// the user-facing error.
type unresolvedRef struct {
	module, name string
	line, col    int
}

func (u *unresolvedRef) Error() string {
	return "unresolved signal " + u.name + " in " + u.module
}

func (u *unresolvedRef) elab() error {
	return elabErrf(u.module, u.name, "undefined signal (at %d:%d)", u.line, u.col)
}

func elabGroupErr(err error) error {
	if u, ok := err.(*unresolvedRef); ok {
		return u.elab()
	}
	return err
}

type elaborator struct {
	prog  *hdl.Program
	n     *Netlist
	insts int             // per-elaboration instance counter
	stack map[string]bool // modules on the inline path, for recursion checks
}

// inline elaborates the structural statements of m into the netlist. Names
// created by the body are prefixed with the hierarchical instance prefix.
//
// DFF outputs may be referenced before (or after) the dff statement that
// drives them: they are pre-bound in a first pass and their d/clk inputs
// resolved last, which is what makes feedback loops like
// "q = dff(mux(q, d, en), clk)" expressible. The remaining statements are
// order independent: they are elaborated by a worklist that retries a
// statement once its inputs become resolvable.
func (e *elaborator) inline(m *hdl.Module, env scope, prefix string) error {
	if e.stack[m.Name] {
		return elabErrf(m.Name, "", "recursive instantiation")
	}
	e.stack[m.Name] = true
	defer delete(e.stack, m.Name)

	// pass 1: pre-bind dff outputs
	type pendingDff struct {
		w *hdl.Wire
		q int
	}
	var dffs []pendingDff
	var rest []*hdl.Wire
	for _, w := range m.Structure {
		if w.Call == nil || w.Call.Name != "dff" {
			rest = append(rest, w)
			continue
		}
		if len(w.Targets) != 1 {
			return elabErrf(m.Name, prefix+w.Targets[0], "dff has a single output")
		}
		name := prefix + w.Targets[0]
		q := e.n.addSignal(name, func(s *Signal) { s.IsDffOutput = true })
		if err := env.bind(w.Targets[0], []int{q}); err != nil {
			return elabErrf(m.Name, name, "signal driven more than once")
		}
		dffs = append(dffs, pendingDff{w: w, q: q})
	}

	// pass 2: elaborate combinational statements to a fixpoint
	for len(rest) > 0 {
		var deferred []*hdl.Wire
		var firstErr *unresolvedRef
		for _, w := range rest {
			err := e.wire(m, w, env, prefix)
			if u, ok := err.(*unresolvedRef); ok {
				if firstErr == nil {
					firstErr = u
				}
				deferred = append(deferred, w)
				continue
			}
			if err != nil {
				return err
			}
		}
		if len(deferred) == len(rest) {
			// no progress: a genuinely undefined signal or a
			// combinational cycle between statements
			return firstErr.elab()
		}
		rest = deferred
	}

	// pass 3: resolve dff inputs
	for _, p := range dffs {
		c := p.w.Call
		if len(c.Args) != 2 {
			return elabErrf(m.Name, e.n.Signals[p.q].Name, "dff takes 2 arguments (d, clk), got %d", len(c.Args))
		}
		var in [2]int
		for i, a := range c.Args {
			bits, err := e.group(m, a, env, 1)
			if err != nil {
				return elabGroupErr(err)
			}
			if len(bits) != 1 {
				return elabErrf(m.Name, e.n.Signals[p.q].Name, "dff argument %d must be 1 bit wide, got %d", i+1, len(bits))
			}
			in[i] = bits[0]
		}
		e.n.DFFs = append(e.n.DFFs, DFF{ID: len(e.n.DFFs), D: in[0], Q: p.q, Clk: in[1]})
	}
	return nil
}

func (e *elaborator) wire(m *hdl.Module, w *hdl.Wire, env scope, prefix string) error {
	if w.Alias != nil {
		bits, err := e.group(m, w.Alias, env, -1)
		if err != nil {
			return err
		}
		if err := env.bind(w.Targets[0], bits); err != nil {
			return elabErrf(m.Name, prefix+w.Targets[0], "signal driven more than once")
		}
		return nil
	}
	if w.Call.Name == "nand" {
		return e.nand(m, w, env, prefix)
	}
	return e.instantiate(m, w, env, prefix)
}

// nand elaborates out = nand(a, b).
func (e *elaborator) nand(m *hdl.Module, w *hdl.Wire, env scope, prefix string) error {
	c := w.Call
	if len(w.Targets) != 1 {
		return elabErrf(m.Name, prefix+w.Targets[0], "nand has a single output")
	}
	if len(c.Args) != 2 {
		return elabErrf(m.Name, prefix+w.Targets[0], "nand takes 2 arguments, got %d", len(c.Args))
	}
	var in [2]int
	for i, a := range c.Args {
		bits, err := e.group(m, a, env, 1)
		if err != nil {
			return err
		}
		if len(bits) != 1 {
			return elabErrf(m.Name, prefix+w.Targets[0], "nand argument %d must be 1 bit wide, got %d", i+1, len(bits))
		}
		in[i] = bits[0]
	}
	name := prefix + w.Targets[0]
	out := e.n.addSignal(name)
	e.n.Gates = append(e.n.Gates, NandGate{ID: len(e.n.Gates), In1: in[0], In2: in[1], Out: out, Level: -1})
	if err := env.bind(w.Targets[0], []int{out}); err != nil {
		return elabErrf(m.Name, name, "signal driven more than once")
	}
	return nil
}

// instantiate elaborates targets = sub(args...), either by inlining the
// callee's structure or by recording a behavioral instance.
func (e *elaborator) instantiate(m *hdl.Module, w *hdl.Wire, env scope, prefix string) error {
	c := w.Call
	sub := e.prog.Module(c.Name)
	if sub == nil {
		return elabErrf(m.Name, "", "unknown module %q", c.Name)
	}
	if len(c.Args) != len(sub.Params) {
		return elabErrf(m.Name, "", "module %q takes %d arguments, got %d", c.Name, len(sub.Params), len(c.Args))
	}
	if len(w.Targets) != len(sub.Outputs) {
		return elabErrf(m.Name, "", "module %q has %d outputs, got %d targets", c.Name, len(sub.Outputs), len(w.Targets))
	}

	e.insts++
	inst := c.Name + "#" + strconv.Itoa(e.insts)
	subPrefix := prefix + inst + "."

	args := make([][]int, len(c.Args))
	for i, a := range c.Args {
		bits, err := e.group(m, a, env, sub.Params[i].Width)
		if err != nil {
			return err
		}
		if len(bits) != sub.Params[i].Width {
			return elabErrf(m.Name, subPrefix+sub.Params[i].Name,
				"width mismatch: parameter is %d bits, argument is %d", sub.Params[i].Width, len(bits))
		}
		args[i] = bits
	}

	if sub.Structure != nil {
		senv := make(scope, len(sub.Params))
		for i, p := range sub.Params {
			senv[p.Name] = args[i]
		}
		if err := e.inline(sub, senv, subPrefix); err != nil {
			return err
		}
		for i, o := range sub.Outputs {
			bits, ok := senv[o.Name]
			if !ok {
				return elabErrf(sub.Name, subPrefix+o.Name, "output is never driven")
			}
			if len(bits) != o.Width {
				return elabErrf(sub.Name, subPrefix+o.Name,
					"output width mismatch: declared %d, driven %d", o.Width, len(bits))
			}
			if err := env.bind(w.Targets[i], bits); err != nil {
				return elabErrf(m.Name, prefix+w.Targets[i], "signal driven more than once")
			}
		}
		return nil
	}

	if sub.Behavior == nil {
		return elabErrf(sub.Name, "", "module has no structure or behavior")
	}
	bi := BehavioralInstance{Name: prefix + inst, Module: sub.Name, Level: -1}
	for i, p := range sub.Params {
		bi.Inputs = append(bi.Inputs, Port{Name: p.Name, Width: p.Width, Bits: args[i]})
	}
	for i, o := range sub.Outputs {
		port := Port{Name: o.Name, Width: o.Width}
		for b := 0; b < o.Width; b++ {
			port.Bits = append(port.Bits, e.n.addSignal(bitName(subPrefix+o.Name, b, o.Width)))
		}
		bi.Outputs = append(bi.Outputs, port)
		if err := env.bind(w.Targets[i], port.Bits); err != nil {
			return elabErrf(m.Name, prefix+w.Targets[i], "signal driven more than once")
		}
	}
	e.n.Behavioral = append(e.n.Behavioral, bi)
	return nil
}

// group resolves a structural signal expression to its id group, LSB first.
// Only pure signal expressions are legal here: references, constant bit
// indexing and slicing, concatenation, and integer literals (which expand to
// the reserved constant signals). want is the expected width for literals,
// or -1 when no width is imposed by context.
func (e *elaborator) group(m *hdl.Module, x hdl.Expr, env scope, want int) ([]int, error) {
	line, col := x.Pos()
	switch x := x.(type) {
	case *hdl.Ref:
		bits, ok := env[x.Name]
		if !ok {
			return nil, &unresolvedRef{module: m.Name, name: x.Name, line: line, col: col}
		}
		return bits, nil
	case *hdl.IntLit:
		return constBits(m, x, want)
	case *hdl.Index:
		bits, err := e.group(m, x.X, env, -1)
		if err != nil {
			return nil, err
		}
		i, err := constIndex(m, x.I)
		if err != nil {
			return nil, err
		}
		if i >= len(bits) {
			return nil, elabErrf(m.Name, "", "bit index %d out of range [0..%d] (at %d:%d)", i, len(bits)-1, line, col)
		}
		return bits[i : i+1], nil
	case *hdl.Slice:
		bits, err := e.group(m, x.X, env, -1)
		if err != nil {
			return nil, err
		}
		hi, err := constIndex(m, x.Hi)
		if err != nil {
			return nil, err
		}
		lo, err := constIndex(m, x.Lo)
		if err != nil {
			return nil, err
		}
		if hi < lo || hi >= len(bits) {
			return nil, elabErrf(m.Name, "", "slice [%d:%d] out of range for %d bit signal (at %d:%d)", hi, lo, len(bits), line, col)
		}
		return bits[lo : hi+1], nil
	case *hdl.Concat:
		var bits []int
		// parts are written MSB first; the group is LSB first
		for i := len(x.Parts) - 1; i >= 0; i-- {
			b, err := e.group(m, x.Parts[i], env, -1)
			if err != nil {
				return nil, err
			}
			bits = append(bits, b...)
		}
		return bits, nil
	}
	return nil, elabErrf(m.Name, "", "not a signal expression (at %d:%d)", line, col)
}

// constBits expands an integer literal to constant signal ids.
func constBits(m *hdl.Module, x *hdl.IntLit, want int) ([]int, error) {
	w := want
	if w < 0 {
		for w = 1; w < 64 && x.Val>>uint(w) != 0; w++ {
		}
	}
	if w < 64 && x.Val>>uint(w) != 0 {
		line, col := x.Pos()
		return nil, elabErrf(m.Name, "", "literal %d does not fit in %d bits (at %d:%d)", x.Val, w, line, col)
	}
	bits := make([]int, w)
	for i := range bits {
		if x.Val>>uint(i)&1 != 0 {
			bits[i] = Const1
		} else {
			bits[i] = Const0
		}
	}
	return bits, nil
}

func constIndex(m *hdl.Module, x hdl.Expr) (int, error) {
	lit, ok := x.(*hdl.IntLit)
	if !ok {
		line, col := x.Pos()
		return 0, elabErrf(m.Name, "", "bit index must be an integer literal (at %d:%d)", line, col)
	}
	return int(lit.Val), nil
}

// bitName returns the canonical per-bit signal name: "name" for 1-bit
// signals, "name[i]" otherwise.
func bitName(name string, i, width int) string {
	if width == 1 {
		return name
	}
	return name + "[" + strconv.Itoa(i) + "]"
}
