// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package wirehdl

import (
	"sync"

	"github.com/pkg/errors"
)

// Options configures circuit compilation.
type Options struct {
	// Workers is the number of goroutines evaluating gates within a level.
	// Levels are hard synchronization barriers: no gate of level L runs
	// before every gate of level < L has committed its output. Values <= 1
	// select the serial evaluator, which is the fastest choice for small
	// circuits.
	Workers int
}

// minimum gates in a level before it is split across workers.
const parallelThreshold = 512

type gateOp struct {
	in1, in2, out int32
}

type behavOp struct {
	fn   BehaviorFunc
	inst *BehavioralInstance
	in   map[string]uint64 // reused per call
}

// A Circuit is an executable compiled circuit. Each instance owns its
// signal value array and DFF shadow registers exclusively; nothing is
// shared between instances.
type Circuit struct {
	ln     *LevelizedNetlist
	vals   []byte
	shadow []byte // DFF d values captured before latching
	levels [][]gateOp
	behav  [][]*behavOp // behavioral instances, by level
	nBehav int
	cycles uint64

	workers int
	wc      []chan []gateOp
	wg      sync.WaitGroup
}

// Compile builds a serial executable circuit from a levelized netlist. The
// behavioral compiler bc resolves the netlist's behavioral instances and
// may be nil if there are none.
func Compile(ln *LevelizedNetlist, bc *BehavioralCompiler) (*Circuit, error) {
	return CompileWith(ln, bc, Options{})
}

// CompileWith is Compile with explicit options. When opts.Workers > 1 the
// circuit keeps that many persistent worker goroutines; callers must call
// Dispose once the circuit is no longer needed.
func CompileWith(ln *LevelizedNetlist, bc *BehavioralCompiler, opts Options) (*Circuit, error) {
	c := &Circuit{
		ln:      ln,
		vals:    make([]byte, len(ln.Signals)),
		shadow:  make([]byte, len(ln.DFFs)),
		levels:  make([][]gateOp, len(ln.Levels)),
		workers: opts.Workers,
	}
	c.vals[Const1] = 1
	for lvl, gates := range ln.Levels {
		ops := make([]gateOp, len(gates))
		for i, gi := range gates {
			g := &ln.Gates[gi]
			ops[i] = gateOp{in1: int32(g.In1), in2: int32(g.In2), out: int32(g.Out)}
		}
		c.levels[lvl] = ops
	}

	if n := len(ln.Behavioral); n > 0 {
		if bc == nil {
			return nil, errors.New("compile: netlist has behavioral instances but no behavioral compiler")
		}
		c.nBehav = n
		c.behav = make([][]*behavOp, len(ln.BehavioralLevels))
		for lvl, insts := range ln.BehavioralLevels {
			for _, bi := range insts {
				inst := &ln.Behavioral[bi]
				fn, err := bc.Compile(inst.Module)
				if err != nil {
					return nil, errors.Wrapf(err, "compile: instance %s", inst.Name)
				}
				c.behav[lvl] = append(c.behav[lvl], &behavOp{
					fn:   fn,
					inst: inst,
					in:   make(map[string]uint64, len(inst.Inputs)),
				})
			}
		}
	}

	if c.workers > 1 {
		for i := 0; i < c.workers; i++ {
			wc := make(chan []gateOp, 1)
			c.wc = append(c.wc, wc)
			go c.worker(wc)
		}
	}
	return c, nil
}

func (c *Circuit) worker(wc <-chan []gateOp) {
	for ops := range wc {
		v := c.vals
		for _, g := range ops {
			v[g.out] = 1 ^ v[g.in1]&v[g.in2]
		}
		c.wg.Done()
	}
}

// Netlist returns the levelized netlist the circuit was compiled from.
func (c *Circuit) Netlist() *LevelizedNetlist { return c.ln }

// Cycles returns the number of evaluation cycles run so far.
func (c *Circuit) Cycles() uint64 { return c.cycles }

// Set sets signal id to the given bit (0 or 1).
func (c *Circuit) Set(id int, bit byte) error {
	if id < 0 || id >= len(c.vals) {
		return runtimeErrf("signal id %d out of range [0..%d]", id, len(c.vals)-1)
	}
	if id < cstCount {
		return runtimeErrf("signal %d is a constant", id)
	}
	c.vals[id] = bit & 1
	return nil
}

// Get returns the current value of signal id.
func (c *Circuit) Get(id int) (byte, error) {
	if id < 0 || id >= len(c.vals) {
		return 0, runtimeErrf("signal id %d out of range [0..%d]", id, len(c.vals)-1)
	}
	return c.vals[id], nil
}

// Evaluate runs one full combinational settle over the gate levels in
// ascending order and then latches every DFF. Behavioral instances are
// ignored; use EvaluateBehavioral when the netlist has any.
func (c *Circuit) Evaluate() {
	for _, ops := range c.levels {
		c.runLevel(ops)
	}
	c.latch()
	c.cycles++
}

// EvaluateBehavioral is Evaluate with behavioral instances invoked in
// dependency order, interleaved with the gate levels.
func (c *Circuit) EvaluateBehavioral() error {
	maxLevel := len(c.levels)
	if len(c.behav) > maxLevel {
		maxLevel = len(c.behav)
	}
	for lvl := 0; lvl < maxLevel; lvl++ {
		if lvl < len(c.levels) {
			c.runLevel(c.levels[lvl])
		}
		if lvl < len(c.behav) {
			for _, op := range c.behav[lvl] {
				if err := c.invoke(op); err != nil {
					return err
				}
			}
		}
	}
	c.latch()
	c.cycles++
	return nil
}

func (c *Circuit) invoke(op *behavOp) error {
	v := c.vals
	for _, p := range op.inst.Inputs {
		var x uint64
		for i, id := range p.Bits {
			x |= uint64(v[id]) << uint(i)
		}
		op.in[p.Name] = x
	}
	out, err := op.fn(op.in)
	if err != nil {
		return errors.Wrapf(err, "instance %s", op.inst.Name)
	}
	for _, p := range op.inst.Outputs {
		x := out[p.Name]
		for i, id := range p.Bits {
			v[id] = byte(x >> uint(i) & 1)
		}
	}
	return nil
}

// latch updates all DFFs atomically: every d value is captured before any q
// is written, so no consumer can observe a half-updated register file.
func (c *Circuit) latch() {
	dffs := c.ln.DFFs
	v := c.vals
	for i := range dffs {
		c.shadow[i] = v[dffs[i].D]
	}
	for i := range dffs {
		v[dffs[i].Q] = c.shadow[i]
	}
}

func (c *Circuit) runLevel(ops []gateOp) {
	if c.workers <= 1 || len(ops) < parallelThreshold {
		v := c.vals
		for _, g := range ops {
			v[g.out] = 1 ^ v[g.in1]&v[g.in2]
		}
		return
	}
	// at most one chunk per worker, so the buffered sends cannot block
	size := (len(ops) + c.workers - 1) / c.workers
	for i := 0; len(ops) > 0; i++ {
		n := size
		if n > len(ops) {
			n = len(ops)
		}
		c.wg.Add(1)
		c.wc[i] <- ops[:n]
		ops = ops[n:]
	}
	c.wg.Wait()
}

// RunCycles runs n evaluation cycles with inputs held at their current
// values.
func (c *Circuit) RunCycles(n int) error {
	if c.nBehav > 0 {
		for i := 0; i < n; i++ {
			if err := c.EvaluateBehavioral(); err != nil {
				return err
			}
		}
		return nil
	}
	for i := 0; i < n; i++ {
		c.Evaluate()
	}
	return nil
}

// Dispose stops the circuit's worker goroutines, if any. The circuit must
// not be used afterwards.
func (c *Circuit) Dispose() {
	for _, wc := range c.wc {
		close(wc)
	}
	c.wc = nil
	c.workers = 0
}
