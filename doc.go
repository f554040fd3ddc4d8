// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

/*
Package wirehdl compiles and simulates digital logic written in Wire HDL, a
small hardware description language whose only primitives are the 2-input
NAND gate and the clocked D flip-flop.

The pipeline is parse, elaborate, optimize, levelize, compile:

	prog, _ := hdl.Parse(src)
	nl, _ := wirehdl.Elaborate(prog, "cpu")
	nl, stats, _ := wirehdl.Optimize(nl, wirehdl.OptOptions{})
	ln, _ := wirehdl.Levelize(nl)
	c, _ := wirehdl.Compile(ln, wirehdl.NewBehavioralCompiler(prog))
	sim := wirehdl.NewSimulator(c)

or, in one go:

	sim, err := wirehdl.Build(src, "cpu", wirehdl.WithOptimization(wirehdl.OptOptions{}))

Elaboration flattens the module hierarchy into a netlist of individually
addressed single-bit signals. Levelization groups gates into topologically
ordered evaluation levels with DFF outputs and primary inputs as the only
level-0 sources, so legal feedback (through DFFs) never produces a cycle in
the evaluation order. The compiled circuit evaluates one full clock cycle
per call.

Modules may also declare an @behavior block: a small typed statement
language compiled to a function instead of gates, with hardware-accurate
width truncation on every assignment. Behavioral and gate-level modules
compose freely in one netlist.
*/
package wirehdl
