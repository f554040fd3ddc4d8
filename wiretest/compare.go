// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package wiretest provides utility functions for testing compiled circuits.
package wiretest

import (
	"math/rand"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/db47h/wirehdl"
)

// Compare drives both simulators with identical input vectors for the given
// number of cycles and fails the test on the first output divergence. Both
// simulators must expose the same input and output ports. The first two
// cycles use all-zeros and all-ones vectors, the remaining ones random
// vectors.
func Compare(t *testing.T, a, b *wirehdl.Simulator, cycles int) {
	t.Helper()

	ins, outs := a.InputNames(), a.OutputNames()
	if got := b.InputNames(); !sameNames(ins, got) {
		t.Fatalf("input ports differ: %v vs %v", ins, got)
	}
	if got := b.OutputNames(); !sameNames(outs, got) {
		t.Fatalf("output ports differ: %v vs %v", outs, got)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	vec := make([]uint64, len(ins))

	for cycle := 0; cycle < cycles; cycle++ {
		switch cycle {
		case 0:
			for i := range vec {
				vec[i] = 0
			}
		case 1:
			for i := range vec {
				vec[i] = ^uint64(0)
			}
		default:
			for i := range vec {
				vec[i] = rng.Uint64()
			}
		}
		for i, n := range ins {
			if err := a.SetInput(n, vec[i]); err != nil {
				t.Fatal(err)
			}
			if err := b.SetInput(n, vec[i]); err != nil {
				t.Fatal(err)
			}
		}
		if err := a.Step(); err != nil {
			t.Fatal(err)
		}
		if err := b.Step(); err != nil {
			t.Fatal(err)
		}
		for _, n := range outs {
			va, err := a.GetOutput(n)
			if err != nil {
				t.Fatal(err)
			}
			vb, err := b.GetOutput(n)
			if err != nil {
				t.Fatal(err)
			}
			if va != vb {
				t.Fatalf("cycle %d: output %s differs: %d vs %d\ninputs: %s",
					cycle, n, va, vb, vecString(ins, vec))
			}
		}
	}
}

func sameNames(a, b []string) bool {
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

func vecString(names []string, vec []uint64) string {
	var b strings.Builder
	for i, n := range names {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(n)
		b.WriteRune('=')
		b.WriteString(strconv.FormatUint(vec[i], 10))
	}
	return b.String()
}
