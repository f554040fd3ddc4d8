// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package wirehdl

// NAND network re-synthesis from truth tables. Two strategies are used:
// an exact iterative-deepening search over 2-input NAND networks for small
// input counts, and a prime-implicant cover mapped to a NAND-NAND network
// with structural hashing for wider functions. Both verify their result
// against the truth table; the caller picks the smaller network.

// A tvec is a truth vector: bit r holds the function value for input row r.
type tvec []uint64

func newTvec(rows int) tvec { return make(tvec, (rows+63)/64) }

func (v tvec) test(r int) bool { return v[r>>6]>>(uint(r)&63)&1 != 0 }

func (v tvec) set(r int) { v[r>>6] |= 1 << (uint(r) & 63) }

func (v tvec) eq(o tvec) bool {
	for i := range v {
		if v[i] != o[i] {
			return false
		}
	}
	return true
}

// nandInto computes dst = ^(a & b) masked to rows valid bits.
func nandInto(dst, a, b tvec, rows int) {
	for i := range dst {
		dst[i] = ^(a[i] & b[i])
	}
	if r := uint(rows) & 63; r != 0 {
		dst[len(dst)-1] &= 1<<r - 1
	}
}

// inputVec returns the truth vector of boundary input i: for row r, bit i
// of r.
func inputVec(i, rows int) tvec {
	v := newTvec(rows)
	for r := 0; r < rows; r++ {
		if r>>uint(i)&1 != 0 {
			v.set(r)
		}
	}
	return v
}

// An sgate is one gate of a synthesized network. Operands < n refer to
// boundary inputs; operand n+i refers to gate i of the network. The last
// gate drives the cone root.
type sgate struct {
	a, b int
}

type synthResult struct {
	gates []sgate
	depth int
}

// synthesize searches for a NAND-only implementation of the truth table tt
// over n inputs with fewer than limit gates. It returns nil if no such
// network was found within the search budget.
func synthesize(n int, tt tvec, limit int) *synthResult {
	var best *synthResult
	if n <= exactMaxInputs {
		best = exactSearch(n, tt, limit)
	}
	if r := coverSearch(n, tt, limit); r != nil && (best == nil || len(r.gates) < len(best.gates)) {
		best = r
	}
	if best != nil && !verify(n, tt, best) {
		// never splice an unproven network
		return nil
	}
	return best
}

// verify replays the synthesized network over every input row and compares
// against the truth table.
func verify(n int, tt tvec, r *synthResult) bool {
	rows := 1 << uint(n)
	vecs := make([]tvec, n+len(r.gates))
	for i := 0; i < n; i++ {
		vecs[i] = inputVec(i, rows)
	}
	for i, g := range r.gates {
		v := newTvec(rows)
		nandInto(v, vecs[g.a], vecs[g.b], rows)
		vecs[n+i] = v
	}
	if len(r.gates) == 0 {
		return false
	}
	return vecs[n+len(r.gates)-1].eq(tt)
}

// --- exact search -----------------------------------------------------------

const (
	exactMaxInputs = 4
	exactMaxGates  = 6
	exactBudget    = 400000
)

// exactSearch runs an iterative-deepening DFS over NAND networks of
// increasing size. Truth vectors fit a single word for n <= 4 (16 rows).
// A gate whose output column duplicates an existing column is pruned: a
// minimal network never recomputes an available function.
func exactSearch(n int, tt tvec, limit int) *synthResult {
	rows := 1 << uint(n)
	mask := uint64(1)<<uint(rows) - 1
	target := tt[0] & mask

	maxGates := limit - 1
	if maxGates > exactMaxGates {
		maxGates = exactMaxGates
	}
	cols := make([]uint64, n, n+maxGates)
	for i := 0; i < n; i++ {
		cols[i] = inputVec(i, rows)[0]
	}
	for _, c := range cols {
		if c == target {
			// the root must be driven by a gate: synthesize the double
			// inverter explicitly
			i := indexOf(cols, target)
			return &synthResult{gates: []sgate{{i, i}, {n, n}}, depth: 2}
		}
	}

	s := &exact{n: n, mask: mask, target: target}
	for k := 1; k <= maxGates; k++ {
		s.budget = exactBudget
		s.gates = s.gates[:0]
		if s.dfs(cols, k) {
			gates := make([]sgate, len(s.gates))
			copy(gates, s.gates)
			return &synthResult{gates: gates, depth: netDepth(n, gates)}
		}
		if s.budget <= 0 {
			return nil
		}
	}
	return nil
}

type exact struct {
	n      int
	mask   uint64
	target uint64
	budget int
	gates  []sgate
}

func (s *exact) dfs(cols []uint64, left int) bool {
	if s.budget <= 0 {
		return false
	}
	for a := 0; a < len(cols); a++ {
		for b := a; b < len(cols); b++ {
			s.budget--
			v := ^(cols[a] & cols[b]) & s.mask
			if left == 1 {
				if v != s.target {
					continue
				}
				s.gates = append(s.gates, sgate{a, b})
				return true
			}
			if indexOf(cols, v) >= 0 {
				continue
			}
			s.gates = append(s.gates, sgate{a, b})
			if s.dfs(append(cols, v), left-1) {
				return true
			}
			s.gates = s.gates[:len(s.gates)-1]
		}
	}
	return false
}

func indexOf(cols []uint64, v uint64) int {
	for i, c := range cols {
		if c == v {
			return i
		}
	}
	return -1
}

// --- prime implicant cover + NAND-NAND mapping ------------------------------

// an implicant covers the minterms matching value on the care bits.
type implicant struct {
	value uint16
	care  uint16
}

func (im implicant) covers(m uint16) bool {
	return m&im.care == im.value&im.care
}

// coverSearch computes a greedy prime-implicant cover of tt and maps it to
// a structurally hashed NAND-NAND network.
func coverSearch(n int, tt tvec, limit int) *synthResult {
	rows := 1 << uint(n)
	b := newBuilder(n, rows)

	var minterms []uint16
	for r := 0; r < rows; r++ {
		if tt.test(r) {
			minterms = append(minterms, uint16(r))
		}
	}
	if len(minterms) == 0 || len(minterms) == rows {
		return nil // constant functions are spliced directly by the optimizer
	}
	cover := greedyCover(minterms, primeImplicants(minterms, n))
	// each term is built in complement form; a NAND tree then ORs the terms
	terms := make([]int, len(cover))
	for i, im := range cover {
		terms[i] = b.termC(im)
	}
	acc := terms[0]
	for i := 1; i < len(terms); i++ {
		if i == len(terms)-1 {
			acc = b.nand(acc, terms[i])
		} else {
			acc = b.inv(b.nand(acc, terms[i]))
		}
	}
	if len(terms) == 1 {
		acc = b.inv(acc)
	}
	root := acc
	if root < n {
		// plain input passthrough: drive the root with a double inverter
		root = b.inv(b.inv(root))
	}
	gates := b.emit(root)
	if len(gates) >= limit {
		return nil
	}
	return &synthResult{gates: gates, depth: netDepth(n, gates)}
}

// primeImplicants runs Quine-McCluskey combination over the minterms.
func primeImplicants(minterms []uint16, n int) []implicant {
	full := uint16(1)<<uint(n) - 1
	cur := make([]implicant, 0, len(minterms))
	seen := make(map[implicant]bool)
	for _, m := range minterms {
		im := implicant{value: m, care: full}
		cur = append(cur, im)
		seen[im] = true
	}
	var primes []implicant
	for len(cur) > 0 {
		combined := make([]bool, len(cur))
		var next []implicant
		nextSeen := make(map[implicant]bool)
		for i := 0; i < len(cur); i++ {
			for j := i + 1; j < len(cur); j++ {
				a, c := cur[i], cur[j]
				if a.care != c.care {
					continue
				}
				d := (a.value ^ c.value) & a.care
				if d == 0 || d&(d-1) != 0 {
					continue // not exactly one differing care bit
				}
				combined[i], combined[j] = true, true
				im := implicant{value: a.value &^ d, care: a.care &^ d}
				if !nextSeen[im] {
					nextSeen[im] = true
					next = append(next, im)
				}
			}
		}
		for i, im := range cur {
			if !combined[i] {
				primes = append(primes, im)
			}
		}
		cur = next
	}
	return primes
}

// greedyCover picks essential primes first, then the prime covering the
// most uncovered minterms.
func greedyCover(minterms []uint16, primes []implicant) []implicant {
	covered := make(map[uint16]bool, len(minterms))
	var cover []implicant

	// essential primes: sole cover of some minterm
	for _, m := range minterms {
		sole, cnt := -1, 0
		for i, im := range primes {
			if im.covers(m) {
				sole = i
				if cnt++; cnt > 1 {
					break
				}
			}
		}
		if cnt == 1 && !covered[m] {
			cover = append(cover, primes[sole])
			for _, mm := range minterms {
				if primes[sole].covers(mm) {
					covered[mm] = true
				}
			}
		}
	}
	for len(covered) < len(minterms) {
		best, bestCnt := -1, 0
		for i, im := range primes {
			cnt := 0
			for _, m := range minterms {
				if !covered[m] && im.covers(m) {
					cnt++
				}
			}
			if cnt > bestCnt {
				best, bestCnt = i, cnt
			}
		}
		if best < 0 {
			break // cannot happen: primes cover all minterms
		}
		cover = append(cover, primes[best])
		for _, m := range minterms {
			if primes[best].covers(m) {
				covered[m] = true
			}
		}
	}
	return cover
}

// builder hash-conses NAND nodes over truth vectors. Node ids < n are the
// boundary inputs; the rest are gates in creation (hence topological)
// order.
type builder struct {
	n    int
	rows int
	vecs []tvec
	ops  []sgate        // ops[i] is node n+i
	hash map[[2]int]int // (a, b) -> node id
}

func newBuilder(n, rows int) *builder {
	b := &builder{
		n:    n,
		rows: rows,
		vecs: make([]tvec, n, n+16),
		hash: make(map[[2]int]int),
	}
	for i := 0; i < n; i++ {
		b.vecs[i] = inputVec(i, rows)
	}
	return b
}

func (b *builder) nand(x, y int) int {
	if x > y {
		x, y = y, x
	}
	if id, ok := b.hash[[2]int{x, y}]; ok {
		return id
	}
	v := newTvec(b.rows)
	nandInto(v, b.vecs[x], b.vecs[y], b.rows)
	id := len(b.vecs)
	b.vecs = append(b.vecs, v)
	b.ops = append(b.ops, sgate{x, y})
	b.hash[[2]int{x, y}] = id
	return id
}

func (b *builder) inv(x int) int { return b.nand(x, x) }

func (b *builder) and(x, y int) int { return b.inv(b.nand(x, y)) }

// termC builds the complement of the product term described by im:
// NAND(l1, ..., lk) over its literals.
func (b *builder) termC(im implicant) int {
	var lits []int
	for i := 0; i < b.n; i++ {
		bit := uint16(1) << uint(i)
		if im.care&bit == 0 {
			continue
		}
		if im.value&bit != 0 {
			lits = append(lits, i)
		} else {
			lits = append(lits, b.inv(i))
		}
	}
	if len(lits) == 1 {
		return b.inv(lits[0])
	}
	acc := lits[0]
	for i := 1; i < len(lits); i++ {
		if i == len(lits)-1 {
			return b.nand(acc, lits[i])
		}
		acc = b.and(acc, lits[i])
	}
	return acc
}

// emit returns the gates reachable from root, topologically ordered and
// renumbered, with root last.
func (b *builder) emit(root int) []sgate {
	reach := make([]bool, len(b.vecs))
	var mark func(int)
	mark = func(id int) {
		if id < b.n || reach[id] {
			return
		}
		reach[id] = true
		op := b.ops[id-b.n]
		mark(op.a)
		mark(op.b)
	}
	mark(root)

	renum := make([]int, len(b.vecs))
	var gates []sgate
	for id := b.n; id < len(b.vecs); id++ {
		if !reach[id] || id == root {
			continue
		}
		op := b.ops[id-b.n]
		renum[id] = b.n + len(gates)
		gates = append(gates, sgate{renum2(op.a, renum, b.n), renum2(op.b, renum, b.n)})
	}
	// root last
	op := b.ops[root-b.n]
	gates = append(gates, sgate{renum2(op.a, renum, b.n), renum2(op.b, renum, b.n)})
	return gates
}

func renum2(id int, renum []int, n int) int {
	if id < n {
		return id
	}
	return renum[id]
}

// netDepth computes the level depth of a synthesized network.
func netDepth(n int, gates []sgate) int {
	depth := make([]int, n+len(gates))
	d := 0
	for i, g := range gates {
		depth[n+i] = 1 + max(depth[g.a], depth[g.b])
		d = max(d, depth[n+i])
	}
	return d
}
