// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/db47h/wirehdl"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] design_file",
	Short: "Parse, elaborate and levelize a design, then report its size.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		top, _ := cmd.Flags().GetString("top")
		prog, err := loadProgram(cmd, args[0])
		if err != nil {
			return err
		}
		nl, err := wirehdl.Elaborate(prog, top)
		if err != nil {
			return err
		}
		ln, err := wirehdl.Levelize(nl)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d signals, %d nand gates, %d flip-flops, %d behavioral instances, depth %d\n",
			top, len(nl.Signals), ln.TotalNands, ln.TotalDFFs, len(nl.Behavioral), ln.MaxLevel)
		for _, p := range nl.Inputs {
			fmt.Printf("  input  %s:%d\n", p.Name, p.Width)
		}
		for _, p := range nl.Outputs {
			fmt.Printf("  output %s:%d\n", p.Name, p.Width)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
