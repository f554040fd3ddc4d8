// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package wiretest_test

import (
	"testing"

	"github.com/db47h/wirehdl"
	"github.com/db47h/wirehdl/wiretest"
)

// two structurally different xor implementations
const xorSrc = `
module xor_classic(a, b) -> out:
    n = nand(a, b)
    x = nand(a, n)
    y = nand(b, n)
    out = nand(x, y)

module xor_ormux(a, b) -> out:
    na = nand(a, a)
    nb = nand(b, b)
    x = nand(na, b)
    y = nand(a, nb)
    out = nand(x, y)
`

func TestCompare_combinational(t *testing.T) {
	a, err := wirehdl.Build(xorSrc, "xor_classic")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Dispose()
	b, err := wirehdl.Build(xorSrc, "xor_ormux")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Dispose()
	wiretest.Compare(t, a, b, 32)
}

func TestCompare_sequential(t *testing.T) {
	const src = `
module d2(d, clk) -> q:
    q1 = dff(d, clk)
    q = dff(q1, clk)
`
	a, err := wirehdl.Build(src, "d2")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Dispose()
	b, err := wirehdl.Build(src, "d2")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Dispose()
	wiretest.Compare(t, a, b, 64)
}
