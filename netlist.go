// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package wirehdl

// Reserved constant signal ids. Every netlist starts with these two
// signals; they are always level 0 and never driven.
const (
	Const0 = iota
	Const1
	cstCount
)

// A Signal is a single-bit wire in a flattened netlist. Ids are dense and
// 0-based; names are hierarchical (e.g. "xor#2.w0" or "sum[3]").
type Signal struct {
	ID          int
	Name        string
	IsInput     bool // primary input
	IsOutput    bool // primary output
	IsDffOutput bool
	IsConst     bool
}

// A NandGate computes Out = 1 ^ (In1 & In2). Level is -1 until assigned by
// Levelize.
type NandGate struct {
	ID    int
	In1   int
	In2   int
	Out   int
	Level int
}

// A DFF latches D into Q at the end of every evaluation cycle. Q is always
// a level-0 signal. Clk records the clock signal the source connected; it
// does not participate in evaluation, which is level ordered.
type DFF struct {
	ID  int
	D   int
	Q   int
	Clk int
}

// A Port groups the per-bit signal ids of a named multi-bit port, LSB
// first: Bits[0] is bit 0.
type Port struct {
	Name  string
	Width int
	Bits  []int
}

// A BehavioralInstance records an instantiated module that elaboration kept
// behavioral instead of flattening to gates. Inputs and Outputs bind the
// callee's declared ports to signal id groups in the netlist. Level is -1
// until assigned by Levelize.
type BehavioralInstance struct {
	Name    string // hierarchical instance name
	Module  string // module name, resolved by the behavioral compiler
	Inputs  []Port
	Outputs []Port
	Level   int
}

// A Netlist is a fully elaborated, flat circuit: signals, NAND gates, DFFs
// and behavioral instances over a dense signal id space.
type Netlist struct {
	Signals    []Signal
	SignalMap  map[string]int // name -> id; includes top-level port aliases
	Gates      []NandGate
	DFFs       []DFF
	Inputs     []Port
	Outputs    []Port
	Behavioral []BehavioralInstance
}

func newNetlist() *Netlist {
	n := &Netlist{SignalMap: make(map[string]int)}
	n.addSignal("false", func(s *Signal) { s.IsConst = true })
	n.addSignal("true", func(s *Signal) { s.IsConst = true })
	return n
}

func (n *Netlist) addSignal(name string, opts ...func(*Signal)) int {
	id := len(n.Signals)
	s := Signal{ID: id, Name: name}
	for _, o := range opts {
		o(&s)
	}
	n.Signals = append(n.Signals, s)
	if name != "" {
		n.SignalMap[name] = id
	}
	return id
}

// Input returns the primary input port with the given name, or nil.
func (n *Netlist) Input(name string) *Port {
	for i := range n.Inputs {
		if n.Inputs[i].Name == name {
			return &n.Inputs[i]
		}
	}
	return nil
}

// Output returns the primary output port with the given name, or nil.
func (n *Netlist) Output(name string) *Port {
	for i := range n.Outputs {
		if n.Outputs[i].Name == name {
			return &n.Outputs[i]
		}
	}
	return nil
}

// drivers returns a map from signal id to the index of the gate driving it,
// or -1 for signals driven by a DFF or behavioral output. Level-0 sources
// (constants, primary inputs) are absent.
func (n *Netlist) drivers() map[int]int {
	d := make(map[int]int, len(n.Gates))
	for i := range n.Gates {
		d[n.Gates[i].Out] = i
	}
	for i := range n.DFFs {
		d[n.DFFs[i].Q] = -1
	}
	for i := range n.Behavioral {
		for _, p := range n.Behavioral[i].Outputs {
			for _, b := range p.Bits {
				d[b] = -1
			}
		}
	}
	return d
}

// isSource reports whether id is a legal level-0 source: a constant, a
// primary input or a DFF output.
func (n *Netlist) isSource(id int) bool {
	s := &n.Signals[id]
	return s.IsConst || s.IsInput || s.IsDffOutput
}

// Clone returns a deep copy of the netlist. The optimizer works on a clone
// so that its input is never mutated.
func (n *Netlist) Clone() *Netlist {
	c := &Netlist{
		Signals:    append([]Signal(nil), n.Signals...),
		SignalMap:  make(map[string]int, len(n.SignalMap)),
		Gates:      append([]NandGate(nil), n.Gates...),
		DFFs:       append([]DFF(nil), n.DFFs...),
		Inputs:     clonePorts(n.Inputs),
		Outputs:    clonePorts(n.Outputs),
		Behavioral: append([]BehavioralInstance(nil), n.Behavioral...),
	}
	for k, v := range n.SignalMap {
		c.SignalMap[k] = v
	}
	for i := range c.Behavioral {
		c.Behavioral[i].Inputs = clonePorts(c.Behavioral[i].Inputs)
		c.Behavioral[i].Outputs = clonePorts(c.Behavioral[i].Outputs)
	}
	return c
}

func clonePorts(ps []Port) []Port {
	c := append([]Port(nil), ps...)
	for i := range c {
		c[i].Bits = append([]int(nil), c[i].Bits...)
	}
	return c
}
