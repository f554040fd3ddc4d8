// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package wirehdl

import (
	"github.com/db47h/wirehdl/hdl"
	"github.com/pkg/errors"
)

// A Simulator drives a compiled circuit by symbolic port names. Multi-bit
// ports are split and joined to their per-bit signal ids LSB first.
type Simulator struct {
	c *Circuit
	n *Netlist
}

// NewSimulator wraps a compiled circuit.
func NewSimulator(c *Circuit) *Simulator {
	return &Simulator{c: c, n: c.ln.Netlist}
}

// Circuit returns the underlying compiled circuit, for id-level access.
func (s *Simulator) Circuit() *Circuit { return s.c }

// SetInput sets the named primary input port to value, LSB first.
func (s *Simulator) SetInput(name string, value uint64) error {
	p := s.n.Input(name)
	if p == nil {
		return runtimeErrf("unknown input %q", name)
	}
	for i, id := range p.Bits {
		if err := s.c.Set(id, byte(value>>uint(i)&1)); err != nil {
			return err
		}
	}
	return nil
}

// GetOutput returns the value of the named primary output port.
func (s *Simulator) GetOutput(name string) (uint64, error) {
	p := s.n.Output(name)
	if p == nil {
		return 0, runtimeErrf("unknown output %q", name)
	}
	var v uint64
	for i, id := range p.Bits {
		b, err := s.c.Get(id)
		if err != nil {
			return 0, err
		}
		v |= uint64(b) << uint(i)
	}
	return v, nil
}

// Step runs one evaluation cycle.
func (s *Simulator) Step() error {
	return s.c.RunCycles(1)
}

// Run runs n evaluation cycles without changing inputs in between.
func (s *Simulator) Run(n int) error {
	return s.c.RunCycles(n)
}

// InputNames returns the primary input port names in declaration order.
func (s *Simulator) InputNames() []string {
	names := make([]string, len(s.n.Inputs))
	for i := range s.n.Inputs {
		names[i] = s.n.Inputs[i].Name
	}
	return names
}

// OutputNames returns the primary output port names in declaration order.
func (s *Simulator) OutputNames() []string {
	names := make([]string, len(s.n.Outputs))
	for i := range s.n.Outputs {
		names[i] = s.n.Outputs[i].Name
	}
	return names
}

// Dispose releases the underlying circuit's resources.
func (s *Simulator) Dispose() { s.c.Dispose() }

type buildCfg struct {
	optimize bool
	optOpts  OptOptions
	circOpts Options
}

// A BuildOption configures Build.
type BuildOption func(*buildCfg)

// WithOptimization runs the optimizer between elaboration and compilation.
func WithOptimization(o OptOptions) BuildOption {
	return func(c *buildCfg) {
		c.optimize = true
		c.optOpts = o
	}
}

// WithWorkers compiles a parallel circuit with n worker goroutines.
func WithWorkers(n int) BuildOption {
	return func(c *buildCfg) { c.circOpts.Workers = n }
}

// Build runs the whole pipeline on src: parse, elaborate top, levelize,
// optionally optimize, compile, and returns a ready Simulator.
func Build(src, top string, opts ...BuildOption) (*Simulator, error) {
	prog, err := hdl.Parse(src)
	if err != nil {
		return nil, err
	}
	return BuildProgram(prog, top, opts...)
}

// BuildProgram is Build for an already parsed program.
func BuildProgram(prog *hdl.Program, top string, opts ...BuildOption) (*Simulator, error) {
	var cfg buildCfg
	for _, o := range opts {
		o(&cfg)
	}
	nl, err := Elaborate(prog, top)
	if err != nil {
		return nil, err
	}
	if cfg.optimize {
		nl, _, err = Optimize(nl, cfg.optOpts)
		if err != nil {
			return nil, err
		}
	}
	ln, err := Levelize(nl)
	if err != nil {
		return nil, err
	}
	bc := NewBehavioralCompiler(prog)
	c, err := CompileWith(ln, bc, cfg.circOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "build %s", top)
	}
	return NewSimulator(c), nil
}
