// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package wirehdl_test

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/db47h/wirehdl"
	"github.com/db47h/wirehdl/wiretest"
	"github.com/db47h/wirehdl/wlib"
)

func buildLib(t *testing.T, top string, opts ...wirehdl.BuildOption) *wirehdl.Simulator {
	t.Helper()
	lib, err := wlib.Parse()
	if err != nil {
		t.Fatal(err)
	}
	sim, err := wirehdl.BuildProgram(lib, top, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return sim
}

func set(t *testing.T, s *wirehdl.Simulator, name string, v uint64) {
	t.Helper()
	if err := s.SetInput(name, v); err != nil {
		t.Fatal(err)
	}
}

func get(t *testing.T, s *wirehdl.Simulator, name string) uint64 {
	t.Helper()
	v, err := s.GetOutput(name)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func step(t *testing.T, s *wirehdl.Simulator) {
	t.Helper()
	if err := s.Step(); err != nil {
		t.Fatal(err)
	}
}

func TestSim_gates(t *testing.T) {
	td := []struct {
		name   string
		ins    []string
		outs   []string
		result [][]uint64 // indexed by output, then by input combination
	}{
		{"not", []string{"in"}, []string{"out"}, [][]uint64{{1, 0}}},
		{"and", []string{"a", "b"}, []string{"out"}, [][]uint64{{0, 0, 0, 1}}},
		{"or", []string{"a", "b"}, []string{"out"}, [][]uint64{{0, 1, 1, 1}}},
		{"xor", []string{"a", "b"}, []string{"out"}, [][]uint64{{0, 1, 1, 0}}},
		{"mux", []string{"a", "b", "sel"}, []string{"out"}, [][]uint64{{0, 0, 0, 1, 1, 0, 1, 1}}},
		{"dmux", []string{"in", "sel"}, []string{"a", "b"}, [][]uint64{{0, 0, 1, 0}, {0, 0, 0, 1}}},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			sim := buildLib(t, d.name)
			defer sim.Dispose()
			for combo := 0; combo < 1<<len(d.ins); combo++ {
				// input order matches the combination's bits, MSB first
				for i, in := range d.ins {
					set(t, sim, in, uint64(combo>>(len(d.ins)-1-i))&1)
				}
				step(t, sim)
				for o, out := range d.outs {
					if got := get(t, sim, out); got != d.result[o][combo] {
						t.Errorf("combo %0*b: %s = %d, want %d", len(d.ins), combo, out, got, d.result[o][combo])
					}
				}
			}
		})
	}
}

func TestSim_fullAdder(t *testing.T) {
	sim := buildLib(t, "full_adder")
	defer sim.Dispose()
	for combo := 0; combo < 8; combo++ {
		a, b, cin := uint64(combo>>2)&1, uint64(combo>>1)&1, uint64(combo)&1
		set(t, sim, "a", a)
		set(t, sim, "b", b)
		set(t, sim, "cin", cin)
		step(t, sim)
		sum := a + b + cin
		if got := get(t, sim, "s"); got != sum&1 {
			t.Errorf("%d+%d+%d: s = %d, want %d", a, b, cin, got, sum&1)
		}
		if got := get(t, sim, "cout"); got != sum>>1 {
			t.Errorf("%d+%d+%d: cout = %d, want %d", a, b, cin, got, sum>>1)
		}
	}
}

// A DFF output changes only at the end of a cycle: the value read after a
// step is the d input sampled during that step.
func TestSim_dff(t *testing.T) {
	sim, err := wirehdl.Build(`
module m(d, clk) -> q:
    q = dff(d, clk)
`, "m")
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Dispose()

	set(t, sim, "d", 1)
	if got := get(t, sim, "q"); got != 0 {
		t.Errorf("q = %d before first step, want 0", got)
	}
	step(t, sim)
	if got := get(t, sim, "q"); got != 1 {
		t.Errorf("q = %d, want 1", got)
	}
	set(t, sim, "d", 0)
	step(t, sim)
	if got := get(t, sim, "q"); got != 0 {
		t.Errorf("q = %d, want 0", got)
	}
}

func TestSim_register(t *testing.T) {
	sim := buildLib(t, "register")
	defer sim.Dispose()
	set(t, sim, "clk", 0)

	// disabled: the register holds 0 regardless of d
	set(t, sim, "d", 1)
	set(t, sim, "en", 0)
	step(t, sim)
	if got := get(t, sim, "q"); got != 0 {
		t.Errorf("hold: q = %d, want 0", got)
	}

	// enabled: load 1
	set(t, sim, "en", 1)
	step(t, sim)
	if got := get(t, sim, "q"); got != 1 {
		t.Errorf("load: q = %d, want 1", got)
	}

	// disabled again: q keeps 1 while d drops to 0
	set(t, sim, "d", 0)
	set(t, sim, "en", 0)
	step(t, sim)
	step(t, sim)
	if got := get(t, sim, "q"); got != 1 {
		t.Errorf("hold: q = %d, want 1", got)
	}

	// enabled: load 0
	set(t, sim, "en", 1)
	step(t, sim)
	if got := get(t, sim, "q"); got != 0 {
		t.Errorf("load: q = %d, want 0", got)
	}
}

func TestSim_register8(t *testing.T) {
	sim := buildLib(t, "register8")
	defer sim.Dispose()
	set(t, sim, "d", 0xA5)
	set(t, sim, "en", 1)
	step(t, sim)
	if got := get(t, sim, "q"); got != 0xA5 {
		t.Errorf("q = %#x, want 0xa5", got)
	}
	set(t, sim, "d", 0xFF)
	set(t, sim, "en", 0)
	step(t, sim)
	if got := get(t, sim, "q"); got != 0xA5 {
		t.Errorf("q = %#x after disabled step, want 0xa5", got)
	}
}

func TestSim_counter8(t *testing.T) {
	sim := buildLib(t, "counter8")
	defer sim.Dispose()

	set(t, sim, "en", 1)
	for i := 1; i <= 5; i++ {
		step(t, sim)
		if got := get(t, sim, "count"); got != uint64(i) {
			t.Fatalf("count = %d after %d cycles, want %d", got, i, i)
		}
	}
	set(t, sim, "en", 0)
	if err := sim.Run(3); err != nil {
		t.Fatal(err)
	}
	if got := get(t, sim, "count"); got != 5 {
		t.Errorf("count = %d while disabled, want 5", got)
	}

	// wraparound
	set(t, sim, "en", 1)
	if err := sim.Run(251); err != nil {
		t.Fatal(err)
	}
	if got := get(t, sim, "count"); got != 0 {
		t.Errorf("count = %d, want 0 after wraparound", got)
	}
}

func TestSim_adder8(t *testing.T) {
	sim := buildLib(t, "adder8")
	defer sim.Dispose()
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		a, b := rng.Uint64()&0xFF, rng.Uint64()&0xFF
		set(t, sim, "a", a)
		set(t, sim, "b", b)
		step(t, sim)
		sum := a + b
		if got := get(t, sim, "sum"); got != sum&0xFF {
			t.Errorf("%d+%d: sum = %d, want %d", a, b, got, sum&0xFF)
		}
		if got := get(t, sim, "cout"); got != sum>>8 {
			t.Errorf("%d+%d: cout = %d, want %d", a, b, got, sum>>8)
		}
	}
}

func TestSim_behavioralTop(t *testing.T) {
	sim, err := wirehdl.Build(`
module alu(a:8, b:8, op:2) -> out:8:
    @behavior {
        match op {
            0: { out = a + b }
            1: { out = a - b }
            2: { out = a & b }
            _: { out = a | b }
        }
    }
`, "alu")
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Dispose()

	td := []struct{ a, b, op, want uint64 }{
		{200, 100, 0, 44},
		{10, 3, 1, 7},
		{0xF0, 0x3C, 2, 0x30},
		{0xF0, 0x3C, 3, 0xFC},
	}
	for _, d := range td {
		set(t, sim, "a", d.a)
		set(t, sim, "b", d.b)
		set(t, sim, "op", d.op)
		step(t, sim)
		if got := get(t, sim, "out"); got != d.want {
			t.Errorf("op %d: out = %d, want %d", d.op, got, d.want)
		}
	}
}

// Mixed design: gate level top instantiating a behavioral module.
func TestSim_mixed(t *testing.T) {
	sim, err := wirehdl.Build(`
module inc(in:8) -> out:8:
    @behavior {
        out = in + 1
    }

module m(a:8) -> out:8:
    plus1 = inc(a)
    out = plus1
`, "m")
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Dispose()
	set(t, sim, "a", 41)
	step(t, sim)
	if got := get(t, sim, "out"); got != 42 {
		t.Errorf("out = %d, want 42", got)
	}
}

func TestSim_workers(t *testing.T) {
	serial := buildLib(t, "adder8")
	defer serial.Dispose()
	parallel := buildLib(t, "adder8", wirehdl.WithWorkers(4))
	defer parallel.Dispose()

	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 100; i++ {
		a, b := rng.Uint64()&0xFF, rng.Uint64()&0xFF
		for _, sim := range []*wirehdl.Simulator{serial, parallel} {
			set(t, sim, "a", a)
			set(t, sim, "b", b)
			step(t, sim)
		}
		if s, p := get(t, serial, "sum"), get(t, parallel, "sum"); s != p {
			t.Fatalf("%d+%d: serial sum %d != parallel sum %d", a, b, s, p)
		}
	}
}

// wideSrc generates a module with 576 independent gates in the first
// evaluation level, followed by per-bit reduction chains down to a 64 bit
// output that depends on every first-level gate.
func wideSrc() string {
	const fan = 9
	var b strings.Builder
	b.WriteString("module wide(a:64, b:64) -> out:64:\n")
	for i := 0; i < 64*fan; i++ {
		fmt.Fprintf(&b, "    g%d = nand(a[%d], b[%d])\n", i, i%64, (i*31+7)%64)
	}
	for j := 0; j < 64; j++ {
		fmt.Fprintf(&b, "    r%d_0 = nand(g%d, g%d)\n", j, j, j+64)
		for k := 1; k < fan-1; k++ {
			fmt.Fprintf(&b, "    r%d_%d = nand(r%d_%d, g%d)\n", j, k, j, k-1, j+64*(k+1))
		}
	}
	b.WriteString("    out = {")
	for j := 63; j >= 0; j-- {
		if j < 63 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "r%d_%d", j, fan-2)
	}
	b.WriteString("}\n")
	return b.String()
}

// A level wide enough to be split across the worker pool must evaluate
// exactly like the serial path.
func TestSim_workersWideLevel(t *testing.T) {
	src := wideSrc()
	serial, err := wirehdl.Build(src, "wide")
	if err != nil {
		t.Fatal(err)
	}
	defer serial.Dispose()
	parallel, err := wirehdl.Build(src, "wide", wirehdl.WithWorkers(4))
	if err != nil {
		t.Fatal(err)
	}
	defer parallel.Dispose()
	wiretest.Compare(t, serial, parallel, 100)
}

func TestSim_portNames(t *testing.T) {
	sim := buildLib(t, "full_adder")
	defer sim.Dispose()
	wantIn := []string{"a", "b", "cin"}
	wantOut := []string{"s", "cout"}
	if got := sim.InputNames(); !equalStrings(got, wantIn) {
		t.Errorf("InputNames = %v, want %v", got, wantIn)
	}
	if got := sim.OutputNames(); !equalStrings(got, wantOut) {
		t.Errorf("OutputNames = %v, want %v", got, wantOut)
	}
}

func TestSim_circuitAccessors(t *testing.T) {
	sim := buildLib(t, "xor")
	defer sim.Dispose()
	c := sim.Circuit()
	if got := c.Cycles(); got != 0 {
		t.Errorf("Cycles = %d before first step, want 0", got)
	}
	step(t, sim)
	step(t, sim)
	if got := c.Cycles(); got != 2 {
		t.Errorf("Cycles = %d, want 2", got)
	}
	ln := c.Netlist()
	if ln.TotalNands != 4 {
		t.Errorf("TotalNands = %d, want 4", ln.TotalNands)
	}
	if got := ln.Output("out"); got == nil {
		t.Error("netlist lost output port out")
	}
}

func TestSim_errors(t *testing.T) {
	sim := buildLib(t, "and")
	defer sim.Dispose()
	if err := sim.SetInput("nonesuch", 1); err == nil {
		t.Error("SetInput on unknown port: expected error")
	}
	if _, err := sim.GetOutput("nonesuch"); err == nil {
		t.Error("GetOutput on unknown port: expected error")
	}
	c := sim.Circuit()
	if err := c.Set(wirehdl.Const0, 1); err == nil {
		t.Error("Set on constant signal: expected error")
	}
	if err := c.Set(1 << 20, 1); err == nil {
		t.Error("Set out of range: expected error")
	}
	if _, err := c.Get(-1); err == nil {
		t.Error("Get out of range: expected error")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
