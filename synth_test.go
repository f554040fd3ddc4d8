// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package wirehdl

import (
	"math/rand"
	"testing"
)

func tvecOf(n int, fn func(r int) bool) tvec {
	rows := 1 << uint(n)
	v := newTvec(rows)
	for r := 0; r < rows; r++ {
		if fn(r) {
			v.set(r)
		}
	}
	return v
}

// replay evaluates a synthesized network for one input row.
func replay(n int, gates []sgate, row int) bool {
	vals := make([]bool, n+len(gates))
	for i := 0; i < n; i++ {
		vals[i] = row>>uint(i)&1 != 0
	}
	for i, g := range gates {
		vals[n+i] = !(vals[g.a] && vals[g.b])
	}
	return vals[n+len(gates)-1]
}

func checkNet(t *testing.T, n int, tt tvec, r *synthResult) {
	t.Helper()
	for row := 0; row < 1<<uint(n); row++ {
		if got := replay(n, r.gates, row); got != tt.test(row) {
			t.Fatalf("row %0*b: got %v, want %v", n, row, got, tt.test(row))
		}
	}
}

func Test_synthesize_known(t *testing.T) {
	td := []struct {
		name  string
		n     int
		fn    func(r int) bool
		gates int // known minimal NAND gate count
	}{
		{"nand", 2, func(r int) bool { return !(r&1 != 0 && r&2 != 0) }, 1},
		{"and", 2, func(r int) bool { return r&1 != 0 && r&2 != 0 }, 2},
		{"or", 2, func(r int) bool { return r != 0 }, 3},
		{"xor", 2, func(r int) bool { return r == 1 || r == 2 }, 4},
		{"not", 1, func(r int) bool { return r == 0 }, 1},
		{"passthrough", 1, func(r int) bool { return r == 1 }, 2},
		{"mux", 3, func(r int) bool {
			a, b, sel := r&1 != 0, r&2 != 0, r&4 != 0
			if sel {
				return b
			}
			return a
		}, 4},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			tt := tvecOf(d.n, d.fn)
			r := synthesize(d.n, tt, 100)
			if r == nil {
				t.Fatal("no network found")
			}
			checkNet(t, d.n, tt, r)
			if len(r.gates) != d.gates {
				t.Errorf("got %d gates, want %d", len(r.gates), d.gates)
			}
		})
	}
}

// Beyond the exact search range only the cover search runs; results must
// still be correct for arbitrary functions.
func Test_synthesize_random(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for n := 2; n <= 6; n++ {
		for i := 0; i < 20; i++ {
			tt := tvecOf(n, func(int) bool { return rng.Int63()&1 != 0 })
			r := synthesize(n, tt, 1000)
			if r == nil {
				// constant tables have no network; anything else must
				allZero, allOne := true, true
				for row := 0; row < 1<<uint(n); row++ {
					if tt.test(row) {
						allZero = false
					} else {
						allOne = false
					}
				}
				if !allZero && !allOne {
					t.Fatalf("n=%d: no network for non-constant function", n)
				}
				continue
			}
			checkNet(t, n, tt, r)
		}
	}
}

func Test_synthesize_limit(t *testing.T) {
	// xor needs 4 gates; a limit of 3 must find nothing
	tt := tvecOf(2, func(r int) bool { return r == 1 || r == 2 })
	if r := synthesize(2, tt, 3); r != nil {
		t.Errorf("got a %d gate network under a 3 gate limit", len(r.gates))
	}
}

func Test_primeImplicants(t *testing.T) {
	// f = a&b | a&~b = a (minterms 2, 3 over 2 inputs, a = bit 1)
	primes := primeImplicants([]uint16{2, 3}, 2)
	if len(primes) != 1 {
		t.Fatalf("got %d primes (%v), want 1", len(primes), primes)
	}
	p := primes[0]
	if p.care != 2 || p.value&p.care != 2 {
		t.Errorf("prime = %+v, want value 2, care 2", p)
	}
}

func Test_greedyCover(t *testing.T) {
	minterms := []uint16{0, 1, 3, 7}
	cover := greedyCover(minterms, primeImplicants(minterms, 3))
	for _, m := range minterms {
		ok := false
		for _, im := range cover {
			if im.covers(m) {
				ok = true
				break
			}
		}
		if !ok {
			t.Errorf("minterm %d not covered by %v", m, cover)
		}
	}
}
