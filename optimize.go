// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package wirehdl

import (
	"sort"
	"strconv"
	"time"

	"github.com/bits-and-blooms/bitset"
	log "github.com/sirupsen/logrus"
)

// OptOptions configures Optimize.
type OptOptions struct {
	// MaxConeInputs bounds the number of distinct boundary inputs of an
	// extracted cone (and hence the truth table size, 2^n rows). 0 selects
	// the default of 10; values are clamped to [2, 12].
	MaxConeInputs int
	// MinSavingsPercent is the minimum relative gate saving for a cone
	// replacement to be applied. 0 selects the default of 5.
	MinSavingsPercent float64
	// Verbose logs per cone decisions at Info level instead of Debug.
	Verbose bool
}

// OptStats reports what an optimization pass did.
type OptStats struct {
	ConesExtracted int
	ConesOptimized int
	ConesSkipped   int
	GatesSaved     int
	OriginalGates  int
	OptimizedGates int
	Duration       time.Duration
}

// never absorb more gates than this into one cone; keeps per cone
// truth table evaluation cheap.
const coneGateCap = 64

// a cone below this many gates is not worth re-synthesizing.
const minConeGates = 3

// Optimize attempts to shrink the netlist by extracting bounded logic cones
// rooted at externally observable signals (primary outputs, DFF inputs and
// behavioral instance inputs) and re-synthesizing them from their truth
// tables. A cone is replaced only when the synthesized network is proven
// equivalent and saves at least opts.MinSavingsPercent of the cone's gates;
// anything else is skipped, so the pass always returns a valid netlist with
// bit-identical external behavior. The input netlist is never mutated.
func Optimize(n *Netlist, opts OptOptions) (*Netlist, *OptStats, error) {
	start := time.Now()
	maxIn := opts.MaxConeInputs
	if maxIn == 0 {
		maxIn = 10
	}
	if maxIn < 2 {
		maxIn = 2
	} else if maxIn > 12 {
		maxIn = 12
	}
	minSave := opts.MinSavingsPercent
	if minSave == 0 {
		minSave = 5
	}
	logf := log.Debugf
	if opts.Verbose {
		logf = log.Infof
	}

	w := n.Clone()
	if _, err := Levelize(w); err != nil {
		return nil, nil, err
	}
	stats := &OptStats{OriginalGates: len(w.Gates)}

	o := &optimizer{w: w, maxIn: maxIn}
	o.index()

	for _, root := range o.roots() {
		gi, ok := o.drv[root]
		if !ok {
			continue // root is a source or behavioral output
		}
		cone, inputs := o.extract(root, gi)
		if int(cone.Count()) < minConeGates {
			continue
		}
		stats.ConesExtracted++
		coneSize := int(cone.Count())

		tt := o.truthTable(cone, inputs, root)
		repl := o.resynthesize(tt, inputs, coneSize)
		if repl == nil {
			stats.ConesSkipped++
			logf("optimize: cone at %s (%d gates, %d inputs): no smaller network", w.Signals[root].Name, coneSize, len(inputs))
			continue
		}
		saved := coneSize - len(repl)
		if saved <= 0 || float64(saved)*100/float64(coneSize) < minSave {
			stats.ConesSkipped++
			logf("optimize: cone at %s (%d gates): saving %d gates below threshold", w.Signals[root].Name, coneSize, saved)
			continue
		}
		if err := o.splice(cone, inputs, root, repl); err != nil {
			// a failed splice must never surface: leave the cone alone
			stats.ConesSkipped++
			logf("optimize: cone at %s: splice failed: %v", w.Signals[root].Name, err)
			continue
		}
		stats.ConesOptimized++
		logf("optimize: cone at %s: %d gates -> %d", w.Signals[root].Name, coneSize, len(repl))
	}

	stats.OptimizedGates = len(w.Gates)
	stats.GatesSaved = stats.OriginalGates - stats.OptimizedGates
	stats.Duration = time.Since(start)
	logf("optimize: %d cones extracted, %d optimized, %d skipped, %d gates saved (%d -> %d) in %v",
		stats.ConesExtracted, stats.ConesOptimized, stats.ConesSkipped,
		stats.GatesSaved, stats.OriginalGates, stats.OptimizedGates, stats.Duration)
	return w, stats, nil
}

type optimizer struct {
	w     *Netlist
	maxIn int

	drv      map[int]int   // signal -> driving gate index
	reads    map[int][]int // signal -> gate indices reading it
	extReads map[int]int   // signal -> reads from outside the gate graph
	optSigs  int           // counter for synthesized signal names
}

// index rebuilds the driver and fanout tables. Called once up front and
// after every splice.
func (o *optimizer) index() {
	w := o.w
	o.drv = make(map[int]int, len(w.Gates))
	o.reads = make(map[int][]int)
	o.extReads = make(map[int]int)
	for i := range w.Gates {
		g := &w.Gates[i]
		o.drv[g.Out] = i
		o.reads[g.In1] = append(o.reads[g.In1], i)
		o.reads[g.In2] = append(o.reads[g.In2], i)
	}
	for i := range w.Signals {
		if w.Signals[i].IsOutput {
			o.extReads[i]++
		}
	}
	for i := range w.DFFs {
		o.extReads[w.DFFs[i].D]++
	}
	for i := range w.Behavioral {
		for _, p := range w.Behavioral[i].Inputs {
			for _, s := range p.Bits {
				o.extReads[s]++
			}
		}
	}
}

// roots lists candidate cone roots: signals whose value is externally
// observable and must therefore stay bit-identical.
func (o *optimizer) roots() []int {
	w := o.w
	seen := make(map[int]bool)
	var roots []int
	add := func(s int) {
		if !seen[s] {
			seen[s] = true
			roots = append(roots, s)
		}
	}
	for _, p := range w.Outputs {
		for _, s := range p.Bits {
			add(s)
		}
	}
	for i := range w.DFFs {
		add(w.DFFs[i].D)
	}
	for i := range w.Behavioral {
		for _, p := range w.Behavioral[i].Inputs {
			for _, s := range p.Bits {
				add(s)
			}
		}
	}
	return roots
}

// extract grows a fanout closed cone backward from the root gate: a gate is
// absorbed only if every consumer of its output lies inside the cone, so
// replacing the cone only has to re-drive the root signal. Growth stops
// when the distinct non-constant boundary inputs would exceed maxIn.
func (o *optimizer) extract(root, rootGate int) (*bitset.BitSet, []int) {
	w := o.w
	cone := bitset.New(uint(len(w.Gates)))
	inCone := make(map[int]bool) // signals produced inside the cone
	cone.Set(uint(rootGate))
	inCone[root] = true

	for {
		inputs := o.boundary(cone, inCone)
		grown := false
		for _, s := range inputs {
			gi, ok := o.drv[s]
			if !ok || o.extReads[s] > 0 {
				continue
			}
			closed := true
			for _, r := range o.reads[s] {
				if !cone.Test(uint(r)) {
					closed = false
					break
				}
			}
			if !closed || cone.Count() >= coneGateCap {
				continue
			}
			cone.Set(uint(gi))
			inCone[w.Gates[gi].Out] = true
			if len(o.boundary(cone, inCone)) > o.maxIn {
				cone.Clear(uint(gi))
				delete(inCone, w.Gates[gi].Out)
				continue
			}
			grown = true
			break
		}
		if !grown {
			return cone, o.boundary(cone, inCone)
		}
	}
}

// boundary returns the sorted distinct signals read by cone gates but not
// produced inside the cone. Constants are fixed, not inputs.
func (o *optimizer) boundary(cone *bitset.BitSet, inCone map[int]bool) []int {
	w := o.w
	seen := make(map[int]bool)
	var inputs []int
	add := func(s int) {
		if s < cstCount || inCone[s] || seen[s] {
			return
		}
		seen[s] = true
		inputs = append(inputs, s)
	}
	for gi, ok := cone.NextSet(0); ok; gi, ok = cone.NextSet(gi + 1) {
		add(w.Gates[gi].In1)
		add(w.Gates[gi].In2)
	}
	sort.Ints(inputs)
	return inputs
}

// truthTable evaluates the cone for every combination of its boundary
// inputs, in level order, and returns the root's truth vector.
func (o *optimizer) truthTable(cone *bitset.BitSet, inputs []int, root int) tvec {
	w := o.w
	rows := 1 << uint(len(inputs))

	vecs := make(map[int]tvec, len(inputs)+int(cone.Count()))
	zero := newTvec(rows)
	ones := newTvec(rows)
	nandInto(ones, zero, zero, rows)
	vecs[Const0] = zero
	vecs[Const1] = ones
	for i, s := range inputs {
		vecs[s] = inputVec(i, rows)
	}

	var gates []int
	for gi, ok := cone.NextSet(0); ok; gi, ok = cone.NextSet(gi + 1) {
		gates = append(gates, int(gi))
	}
	sort.Slice(gates, func(i, j int) bool { return w.Gates[gates[i]].Level < w.Gates[gates[j]].Level })
	for _, gi := range gates {
		g := &w.Gates[gi]
		v := newTvec(rows)
		nandInto(v, vecs[g.In1], vecs[g.In2], rows)
		vecs[g.Out] = v
	}
	return vecs[root]
}

// resynthesize searches for a smaller gate network computing tt. The
// returned gates use the sgate operand convention (see synth.go), or nil
// when nothing smaller was found.
func (o *optimizer) resynthesize(tt tvec, inputs []int, coneSize int) []sgate {
	n := len(inputs)
	rows := 1 << uint(n)
	allZero, allOne := true, true
	for r := 0; r < rows; r++ {
		if tt.test(r) {
			allZero = false
		} else {
			allOne = false
		}
	}
	if allZero || allOne {
		// encoded by splice: a single gate over the constant signals
		return []sgate{{a: -1, b: boolToInt(allOne)}}
	}
	r := synthesize(n, tt, coneSize)
	if r == nil {
		return nil
	}
	return r.gates
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// splice removes the cone's gates and wires the synthesized network in
// their place, keeping the root signal id stable. The working netlist is
// re-levelized afterwards, which also re-validates the invariants.
func (o *optimizer) splice(cone *bitset.BitSet, inputs []int, root int, repl []sgate) error {
	w := o.w
	n := len(inputs)
	// snapshot for rollback; a failed splice must leave w untouched
	oldGates := w.Gates
	oldSignals := len(w.Signals)

	newGates := make([]NandGate, 0, len(repl))
	sigFor := make([]int, len(repl))
	operand := func(idx int) int {
		if idx < n {
			return inputs[idx]
		}
		return sigFor[idx-n]
	}
	for i, g := range repl {
		var rec NandGate
		if g.a == -1 {
			// constant function: NAND(c, c) with c the complement constant
			c := Const1 - g.b
			rec = NandGate{In1: c, In2: c}
		} else {
			rec = NandGate{In1: operand(g.a), In2: operand(g.b)}
		}
		if i == len(repl)-1 {
			rec.Out = root
		} else {
			o.optSigs++
			rec.Out = w.addSignal("opt#" + strconv.Itoa(o.optSigs))
		}
		sigFor[i] = rec.Out
		rec.Level = -1
		newGates = append(newGates, rec)
	}

	gates := w.Gates[:0:0]
	for i := range w.Gates {
		if !cone.Test(uint(i)) {
			gates = append(gates, w.Gates[i])
		}
	}
	gates = append(gates, newGates...)
	for i := range gates {
		gates[i].ID = i
	}
	w.Gates = gates

	if _, err := Levelize(w); err != nil {
		for _, s := range w.Signals[oldSignals:] {
			delete(w.SignalMap, s.Name)
		}
		w.Signals = w.Signals[:oldSignals]
		w.Gates = oldGates
		if _, lerr := Levelize(w); lerr != nil {
			return lerr
		}
		return err
	}
	o.index()
	return nil
}
