// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package wirehdl_test

import (
	"errors"
	"testing"

	"github.com/db47h/wirehdl"
)

func TestLevelize_order(t *testing.T) {
	prog := parse(t, `
module xor(a, b) -> out:
    n = nand(a, b)
    x = nand(a, n)
    y = nand(b, n)
    out = nand(x, y)
`)
	nl, err := wirehdl.Elaborate(prog, "xor")
	if err != nil {
		t.Fatal(err)
	}
	ln, err := wirehdl.Levelize(nl)
	if err != nil {
		t.Fatal(err)
	}
	if ln.TotalNands != 4 {
		t.Errorf("TotalNands = %d, want 4", ln.TotalNands)
	}
	if ln.MaxLevel != 3 {
		t.Errorf("MaxLevel = %d, want 3", ln.MaxLevel)
	}
	// every gate's level is one above its deepest input
	level := make(map[int]int) // signal -> producing level
	for _, p := range nl.Inputs {
		for _, s := range p.Bits {
			level[s] = 0
		}
	}
	level[wirehdl.Const0] = 0
	level[wirehdl.Const1] = 0
	for lvl, gates := range ln.Levels {
		for _, gi := range gates {
			g := nl.Gates[gi]
			if g.Level != lvl {
				t.Errorf("gate %d in level %d has Level %d", gi, lvl, g.Level)
			}
			l1, ok1 := level[g.In1]
			l2, ok2 := level[g.In2]
			if !ok1 || !ok2 {
				t.Fatalf("gate %d evaluated before its inputs", gi)
			}
			if want := 1 + maxInt(l1, l2); g.Level != want {
				t.Errorf("gate %d: level %d, want %d", gi, g.Level, want)
			}
			level[g.Out] = g.Level
		}
	}
}

func TestLevelize_dffBreaksCycle(t *testing.T) {
	prog := parse(t, `
module toggle(clk) -> q:
    nq = nand(q, q)
    q = dff(nq, clk)
`)
	nl, err := wirehdl.Elaborate(prog, "toggle")
	if err != nil {
		t.Fatal(err)
	}
	ln, err := wirehdl.Levelize(nl)
	if err != nil {
		t.Fatal(err)
	}
	if ln.TotalDFFs != 1 {
		t.Errorf("TotalDFFs = %d, want 1", ln.TotalDFFs)
	}
	// the inverter reads the dff output, a level-0 source
	if got := nl.Gates[0].Level; got != 1 {
		t.Errorf("inverter level = %d, want 1", got)
	}
}

func TestLevelize_undriven(t *testing.T) {
	prog := parse(t, `
module m(a) -> out:
    out = nand(a, a)
`)
	nl, err := wirehdl.Elaborate(prog, "m")
	if err != nil {
		t.Fatal(err)
	}
	// detach one gate input onto a signal nothing drives
	orphan := len(nl.Signals)
	nl.Signals = append(nl.Signals, wirehdl.Signal{ID: orphan, Name: "orphan"})
	nl.Gates[0].In2 = orphan

	_, err = wirehdl.Levelize(nl)
	var lerr *wirehdl.LevelizationError
	if !errors.As(err, &lerr) {
		t.Fatalf("got %T (%v), want *LevelizationError", err, err)
	}
	if lerr.Signal != "orphan" {
		t.Errorf("error names signal %q, want orphan", lerr.Signal)
	}
}

func TestLevelize_cycle(t *testing.T) {
	prog := parse(t, `
module m(a) -> out:
    x = nand(a, a)
    out = nand(x, x)
`)
	nl, err := wirehdl.Elaborate(prog, "m")
	if err != nil {
		t.Fatal(err)
	}
	// rewire gate 0 to read gate 1's output: x and out now feed each other
	nl.Gates[0].In1 = nl.Gates[1].Out
	nl.Gates[0].In2 = nl.Gates[1].Out

	_, err = wirehdl.Levelize(nl)
	var lerr *wirehdl.LevelizationError
	if !errors.As(err, &lerr) {
		t.Fatalf("got %T (%v), want *LevelizationError", err, err)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
