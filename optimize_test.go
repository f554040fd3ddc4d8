// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package wirehdl_test

import (
	"testing"

	"github.com/db47h/wirehdl"
	"github.com/db47h/wirehdl/wiretest"
	"github.com/db47h/wirehdl/wlib"
)

// a deliberately wasteful xor: double inverters on both inputs and on the
// output add six removable gates around the four useful ones.
const redundantXor = `
module m(a, b) -> out:
    na = nand(a, a)
    aa = nand(na, na)
    nb = nand(b, b)
    bb = nand(nb, nb)
    n = nand(aa, bb)
    x = nand(aa, n)
    y = nand(bb, n)
    o = nand(x, y)
    no = nand(o, o)
    out = nand(no, no)
`

func optimized(t *testing.T, prog string, top string) (*wirehdl.Netlist, *wirehdl.Netlist, *wirehdl.OptStats) {
	t.Helper()
	nl, err := wirehdl.Elaborate(parse(t, prog), top)
	if err != nil {
		t.Fatal(err)
	}
	opt, stats, err := wirehdl.Optimize(nl, wirehdl.OptOptions{})
	if err != nil {
		t.Fatal(err)
	}
	return nl, opt, stats
}

func simFor(t *testing.T, nl *wirehdl.Netlist, prog string) *wirehdl.Simulator {
	t.Helper()
	ln, err := wirehdl.Levelize(nl)
	if err != nil {
		t.Fatal(err)
	}
	c, err := wirehdl.Compile(ln, wirehdl.NewBehavioralCompiler(parse(t, prog)))
	if err != nil {
		t.Fatal(err)
	}
	return wirehdl.NewSimulator(c)
}

func TestOptimize_shrinks(t *testing.T) {
	nl, opt, stats := optimized(t, redundantXor, "m")
	if len(opt.Gates) >= len(nl.Gates) {
		t.Errorf("optimizer did not shrink: %d -> %d gates", len(nl.Gates), len(opt.Gates))
	}
	if stats.GatesSaved != len(nl.Gates)-len(opt.Gates) {
		t.Errorf("GatesSaved = %d, want %d", stats.GatesSaved, len(nl.Gates)-len(opt.Gates))
	}
	if stats.OriginalGates != len(nl.Gates) || stats.OptimizedGates != len(opt.Gates) {
		t.Errorf("stats gate counts %d/%d do not match netlists %d/%d",
			stats.OriginalGates, stats.OptimizedGates, len(nl.Gates), len(opt.Gates))
	}
	// xor needs 4 nand gates
	if len(opt.Gates) > 4 {
		t.Errorf("got %d gates, want at most 4", len(opt.Gates))
	}
}

func TestOptimize_equivalent(t *testing.T) {
	nl, opt, _ := optimized(t, redundantXor, "m")
	a := simFor(t, nl, redundantXor)
	defer a.Dispose()
	b := simFor(t, opt, redundantXor)
	defer b.Dispose()
	wiretest.Compare(t, a, b, 64)
}

func TestOptimize_inputUntouched(t *testing.T) {
	nl, err := wirehdl.Elaborate(parse(t, redundantXor), "m")
	if err != nil {
		t.Fatal(err)
	}
	before := len(nl.Gates)
	if _, _, err = wirehdl.Optimize(nl, wirehdl.OptOptions{}); err != nil {
		t.Fatal(err)
	}
	if len(nl.Gates) != before {
		t.Errorf("input netlist mutated: %d -> %d gates", before, len(nl.Gates))
	}
}

func TestOptimize_idempotent(t *testing.T) {
	_, opt, _ := optimized(t, redundantXor, "m")
	again, stats, err := wirehdl.Optimize(opt, wirehdl.OptOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if stats.GatesSaved != 0 {
		t.Errorf("second pass saved %d gates, want 0", stats.GatesSaved)
	}
	if len(again.Gates) != len(opt.Gates) {
		t.Errorf("second pass changed gate count: %d -> %d", len(opt.Gates), len(again.Gates))
	}
}

// A cone computing a constant collapses to a single gate over the constant
// signals.
func TestOptimize_constantCone(t *testing.T) {
	const src = `
module m(a) -> out:
    na = nand(a, a)
    one = nand(a, na)
    n1 = nand(one, one)
    out = nand(n1, n1)
`
	nl, opt, _ := optimized(t, src, "m")
	if len(opt.Gates) >= len(nl.Gates) {
		t.Fatalf("constant cone not optimized: %d -> %d gates", len(nl.Gates), len(opt.Gates))
	}
	sim := simFor(t, opt, src)
	defer sim.Dispose()
	for _, a := range []uint64{0, 1} {
		set(t, sim, "a", a)
		step(t, sim)
		if got := get(t, sim, "out"); got != 1 {
			t.Errorf("a=%d: out = %d, want 1", a, got)
		}
	}
}

// External interfaces stay bit identical: primary input, output and DFF
// signal ids survive optimization.
func TestOptimize_stableIds(t *testing.T) {
	const src = `
module m(a, b, clk) -> out:
    na = nand(a, a)
    aa = nand(na, na)
    d = nand(aa, b)
    q = dff(d, clk)
    out = nand(q, q)
`
	nl, opt, _ := optimized(t, src, "m")
	for i, p := range nl.Inputs {
		if got := opt.Inputs[i].Bits[0]; got != p.Bits[0] {
			t.Errorf("input %s moved: signal %d -> %d", p.Name, p.Bits[0], got)
		}
	}
	for i, p := range nl.Outputs {
		if got := opt.Outputs[i].Bits[0]; got != p.Bits[0] {
			t.Errorf("output %s moved: signal %d -> %d", p.Name, p.Bits[0], got)
		}
	}
	for i := range nl.DFFs {
		if nl.DFFs[i].Q != opt.DFFs[i].Q {
			t.Errorf("dff %d q moved: %d -> %d", i, nl.DFFs[i].Q, opt.DFFs[i].Q)
		}
	}
}

// Sequential equivalence: an optimized register file behaves identically
// over many cycles.
func TestOptimize_sequential(t *testing.T) {
	lib, err := wlib.Parse()
	if err != nil {
		t.Fatal(err)
	}
	plain, err := wirehdl.BuildProgram(lib, "register8")
	if err != nil {
		t.Fatal(err)
	}
	defer plain.Dispose()
	opt, err := wirehdl.BuildProgram(lib, "register8", wirehdl.WithOptimization(wirehdl.OptOptions{}))
	if err != nil {
		t.Fatal(err)
	}
	defer opt.Dispose()
	wiretest.Compare(t, plain, opt, 128)
}

func TestOptimize_coneInputBound(t *testing.T) {
	_, _, stats := optimized(t, redundantXor, "m")
	if stats.ConesExtracted == 0 {
		t.Error("no cones extracted")
	}
	// a tighter bound must still produce a valid, equivalent netlist
	nl, err := wirehdl.Elaborate(parse(t, redundantXor), "m")
	if err != nil {
		t.Fatal(err)
	}
	opt, _, err := wirehdl.Optimize(nl, wirehdl.OptOptions{MaxConeInputs: 2})
	if err != nil {
		t.Fatal(err)
	}
	a := simFor(t, nl, redundantXor)
	defer a.Dispose()
	b := simFor(t, opt, redundantXor)
	defer b.Dispose()
	wiretest.Compare(t, a, b, 32)
}
