// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/db47h/wirehdl"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize [flags] design_file",
	Short: "Run the cone re-synthesis optimizer and report gate savings.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		top, _ := cmd.Flags().GetString("top")
		verbose, _ := cmd.Flags().GetBool("verbose")
		maxIn, _ := cmd.Flags().GetInt("max-cone-inputs")
		minSave, _ := cmd.Flags().GetFloat64("min-savings")

		prog, err := loadProgram(cmd, args[0])
		if err != nil {
			return err
		}
		nl, err := wirehdl.Elaborate(prog, top)
		if err != nil {
			return err
		}
		_, stats, err := wirehdl.Optimize(nl, wirehdl.OptOptions{
			MaxConeInputs:     maxIn,
			MinSavingsPercent: minSave,
			Verbose:           verbose,
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d -> %d gates (%d saved), %d/%d cones optimized in %v\n",
			top, stats.OriginalGates, stats.OptimizedGates, stats.GatesSaved,
			stats.ConesOptimized, stats.ConesExtracted, stats.Duration)
		return nil
	},
}

func init() {
	optimizeCmd.Flags().Int("max-cone-inputs", 0, "maximum boundary inputs per extracted cone (0 = default)")
	optimizeCmd.Flags().Float64("min-savings", 0, "minimum gate saving percentage to apply a replacement (0 = default)")
	rootCmd.AddCommand(optimizeCmd)
}
