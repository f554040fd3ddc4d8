// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package wirehdl

// A LevelizedNetlist groups the gates of a netlist into topologically
// ordered evaluation levels. Level 0 holds only sources (constants, primary
// inputs, DFF outputs); a gate's level is 1 + the highest level among its
// inputs, so all gates within one level are mutually independent.
type LevelizedNetlist struct {
	*Netlist
	Levels           [][]int // gate indices, by level (Levels[0] is empty)
	BehavioralLevels [][]int // behavioral instance indices, by level
	MaxLevel         int
	TotalNands       int
	TotalDFFs        int
}

// Levelize assigns evaluation levels to every gate and behavioral instance
// of n using a worklist over the signal dependency graph. Feedback is legal
// only through DFFs, whose outputs seed level 0. Any gate left without a
// level is reported as a LevelizationError naming the offending signal: an
// undriven input or an illegal combinational cycle. The input netlist's
// gate Level fields are updated in place.
func Levelize(n *Netlist) (*LevelizedNetlist, error) {
	nGates := len(n.Gates)
	nNodes := nGates + len(n.Behavioral)

	sigLevel := make([]int, len(n.Signals))
	for i := range sigLevel {
		if n.isSource(i) {
			sigLevel[i] = 0
		} else {
			sigLevel[i] = -1
		}
	}

	// consumers[s] lists the nodes reading signal s, one entry per read.
	// Nodes 0..nGates-1 are gates, the rest behavioral instances.
	consumers := make(map[int][]int)
	waiting := make([]int, nNodes) // unresolved input reads per node
	queue := make([]int, 0, nNodes)

	addRead := func(node, sig int) {
		if sigLevel[sig] < 0 {
			consumers[sig] = append(consumers[sig], node)
			waiting[node]++
		}
	}
	for i := range n.Gates {
		g := &n.Gates[i]
		g.Level = -1
		addRead(i, g.In1)
		addRead(i, g.In2)
	}
	for i := range n.Behavioral {
		b := &n.Behavioral[i]
		b.Level = -1
		for _, p := range b.Inputs {
			for _, s := range p.Bits {
				addRead(nGates+i, s)
			}
		}
	}
	for i := 0; i < nNodes; i++ {
		if waiting[i] == 0 {
			queue = append(queue, i)
		}
	}

	ln := &LevelizedNetlist{Netlist: n, TotalNands: nGates, TotalDFFs: len(n.DFFs)}
	settle := func(sig, level int) {
		sigLevel[sig] = level
		for _, node := range consumers[sig] {
			if waiting[node]--; waiting[node] == 0 {
				queue = append(queue, node)
			}
		}
		delete(consumers, sig)
	}

	leveled := 0
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		leveled++
		if node < nGates {
			g := &n.Gates[node]
			g.Level = 1 + max(sigLevel[g.In1], sigLevel[g.In2])
			for len(ln.Levels) <= g.Level {
				ln.Levels = append(ln.Levels, nil)
			}
			ln.Levels[g.Level] = append(ln.Levels[g.Level], node)
			settle(g.Out, g.Level)
			continue
		}
		b := &n.Behavioral[node-nGates]
		lvl := 0
		for _, p := range b.Inputs {
			for _, s := range p.Bits {
				lvl = max(lvl, sigLevel[s])
			}
		}
		b.Level = lvl + 1
		for len(ln.BehavioralLevels) <= b.Level {
			ln.BehavioralLevels = append(ln.BehavioralLevels, nil)
		}
		ln.BehavioralLevels[b.Level] = append(ln.BehavioralLevels[b.Level], node-nGates)
		for _, p := range b.Outputs {
			for _, s := range p.Bits {
				settle(s, b.Level)
			}
		}
	}

	if leveled < nNodes {
		return nil, levelizeError(n, sigLevel)
	}
	ln.MaxLevel = max(len(ln.Levels), len(ln.BehavioralLevels)) - 1
	if ln.MaxLevel < 0 {
		ln.MaxLevel = 0
	}
	return ln, nil
}

// levelizeError pins down why levelization did not reach a fixpoint: some
// gate reads a signal that nothing drives, or the netlist contains a
// combinational cycle.
func levelizeError(n *Netlist, sigLevel []int) error {
	drv := n.drivers()
	check := func(sig int) error {
		if sigLevel[sig] >= 0 {
			return nil
		}
		if _, ok := drv[sig]; !ok {
			return &LevelizationError{Signal: n.Signals[sig].Name, Msg: "signal is not driven"}
		}
		return nil
	}
	for i := range n.Gates {
		g := &n.Gates[i]
		if g.Level >= 0 {
			continue
		}
		if err := check(g.In1); err != nil {
			return err
		}
		if err := check(g.In2); err != nil {
			return err
		}
	}
	for i := range n.Behavioral {
		b := &n.Behavioral[i]
		if b.Level >= 0 {
			continue
		}
		for _, p := range b.Inputs {
			for _, s := range p.Bits {
				if err := check(s); err != nil {
					return err
				}
			}
		}
	}
	// all unleveled inputs are driven: combinational cycle
	for i := range n.Gates {
		if g := &n.Gates[i]; g.Level < 0 {
			return &LevelizationError{Signal: n.Signals[g.Out].Name,
				Msg: "combinational cycle (feedback must pass through a dff)"}
		}
	}
	for i := range n.Behavioral {
		if b := &n.Behavioral[i]; b.Level < 0 {
			return &LevelizationError{Signal: b.Name, Msg: "combinational cycle (feedback must pass through a dff)"}
		}
	}
	return &LevelizationError{Signal: "?", Msg: "levelization did not converge"}
}
