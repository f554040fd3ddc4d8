// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/db47h/wirehdl"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] design_file",
	Short: "Simulate a design for a number of clock cycles and print its outputs.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		top, _ := cmd.Flags().GetString("top")
		cycles, _ := cmd.Flags().GetInt("cycles")
		sets, _ := cmd.Flags().GetStringArray("set")
		optimize, _ := cmd.Flags().GetBool("optimize")
		workers, _ := cmd.Flags().GetInt("workers")

		prog, err := loadProgram(cmd, args[0])
		if err != nil {
			return err
		}
		opts := []wirehdl.BuildOption{wirehdl.WithWorkers(workers)}
		if optimize {
			opts = append(opts, wirehdl.WithOptimization(wirehdl.OptOptions{}))
		}
		sim, err := wirehdl.BuildProgram(prog, top, opts...)
		if err != nil {
			return err
		}
		defer sim.Dispose()

		for _, s := range sets {
			name, value, err := parseSet(s)
			if err != nil {
				return err
			}
			if err := sim.SetInput(name, value); err != nil {
				return err
			}
		}
		if err := sim.Run(cycles); err != nil {
			return err
		}
		c := sim.Circuit()
		ln := c.Netlist()
		log.Debugf("%s: %d nand gates, %d flip-flops, depth %d, %d cycles run",
			top, ln.TotalNands, ln.TotalDFFs, ln.MaxLevel, c.Cycles())
		for _, n := range sim.OutputNames() {
			v, err := sim.GetOutput(n)
			if err != nil {
				return err
			}
			fmt.Printf("%s = %d\n", n, v)
		}
		return nil
	},
}

// parseSet splits a --set argument of the form name=value. Values accept the
// 0x and 0b prefixes.
func parseSet(s string) (string, uint64, error) {
	i := strings.IndexRune(s, '=')
	if i <= 0 {
		return "", 0, errors.Errorf("malformed --set %q, want name=value", s)
	}
	v, err := strconv.ParseUint(s[i+1:], 0, 64)
	if err != nil {
		return "", 0, errors.Wrapf(err, "malformed --set %q", s)
	}
	return s[:i], v, nil
}

func init() {
	runCmd.Flags().IntP("cycles", "n", 1, "number of clock cycles to run")
	runCmd.Flags().StringArray("set", nil, "set a primary input, name=value (repeatable)")
	runCmd.Flags().BoolP("optimize", "O", false, "optimize the netlist before compiling")
	runCmd.Flags().Int("workers", 0, "worker goroutines for parallel evaluation (0 = serial)")
	rootCmd.AddCommand(runCmd)
}
