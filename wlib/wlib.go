// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package wlib provides a library of reusable Wire HDL modules built on the
// nand and dff primitives: the usual gates, muxes, adders, registers and a
// counter. Merge the parsed library into a program to make these modules
// available to user designs:
//
//	lib, _ := wlib.Parse()
//	prog, _ := hdl.Parse(src)
//	prog = lib.Merge(prog) // user modules shadow library ones
package wlib

import (
	"github.com/db47h/wirehdl/hdl"
)

// Source is the Wire HDL source text of the library.
const Source = `
// basic gates

module not(in) -> out:
    out = nand(in, in)

module and(a, b) -> out:
    n = nand(a, b)
    out = nand(n, n)

module or(a, b) -> out:
    na = nand(a, a)
    nb = nand(b, b)
    out = nand(na, nb)

module xor(a, b) -> out:
    n = nand(a, b)
    x = nand(a, n)
    y = nand(b, n)
    out = nand(x, y)

// mux selects a when sel = 0, b when sel = 1.
module mux(a, b, sel) -> out:
    ns = nand(sel, sel)
    x = nand(a, ns)
    y = nand(b, sel)
    out = nand(x, y)

// dmux routes in to a when sel = 0, to b when sel = 1.
module dmux(in, sel) -> a, b:
    ns = nand(sel, sel)
    na = nand(in, ns)
    a = nand(na, na)
    nb = nand(in, sel)
    b = nand(nb, nb)

// adders

module half_adder(a, b) -> s, c:
    s = xor(a, b)
    c = and(a, b)

module full_adder(a, b, cin) -> s, cout:
    s1, c1 = half_adder(a, b)
    s, c2 = half_adder(s1, cin)
    cout = or(c1, c2)

// adder8 is a hybrid module: the structural ripple carry chain is used when
// it is instantiated in a gate level design, the behavioral block when it is
// called from behavioral code.
module adder8(a:8, b:8) -> sum:8, cout:
    @structure {
        s0, c0 = full_adder(a[0], b[0], 0)
        s1, c1 = full_adder(a[1], b[1], c0)
        s2, c2 = full_adder(a[2], b[2], c1)
        s3, c3 = full_adder(a[3], b[3], c2)
        s4, c4 = full_adder(a[4], b[4], c3)
        s5, c5 = full_adder(a[5], b[5], c4)
        s6, c6 = full_adder(a[6], b[6], c5)
        s7, c7 = full_adder(a[7], b[7], c6)
        sum = {s7, s6, s5, s4, s3, s2, s1, s0}
        cout = c7
    }
    @behavior {
        let t: 9 = a + b
        sum = t[7:0]
        cout = t[8]
    }

module inc8(in:8) -> out:8:
    @behavior {
        out = in + 1
    }

// sequential parts

// register holds q while en = 0 and loads d on the clock edge while en = 1.
module register(d, en, clk) -> q:
    nd = mux(q, d, en)
    q = dff(nd, clk)

module register8(d:8, en, clk) -> q:8:
    q0 = register(d[0], en, clk)
    q1 = register(d[1], en, clk)
    q2 = register(d[2], en, clk)
    q3 = register(d[3], en, clk)
    q4 = register(d[4], en, clk)
    q5 = register(d[5], en, clk)
    q6 = register(d[6], en, clk)
    q7 = register(d[7], en, clk)
    q = {q7, q6, q5, q4, q3, q2, q1, q0}

// counter8 increments on every clock cycle while en = 1. The flip-flops sit
// directly in the counter body so that the increment path can feed back on
// their outputs.
module counter8(en, clk) -> count:8:
    c0 = dff(n0, clk)
    c1 = dff(n1, clk)
    c2 = dff(n2, clk)
    c3 = dff(n3, clk)
    c4 = dff(n4, clk)
    c5 = dff(n5, clk)
    c6 = dff(n6, clk)
    c7 = dff(n7, clk)
    count = {c7, c6, c5, c4, c3, c2, c1, c0}
    inc = inc8(count)
    n0 = mux(c0, inc[0], en)
    n1 = mux(c1, inc[1], en)
    n2 = mux(c2, inc[2], en)
    n3 = mux(c3, inc[3], en)
    n4 = mux(c4, inc[4], en)
    n5 = mux(c5, inc[5], en)
    n6 = mux(c6, inc[6], en)
    n7 = mux(c7, inc[7], en)
`

// Parse returns a freshly parsed copy of the library program.
func Parse() (*hdl.Program, error) {
	return hdl.Parse(Source)
}
