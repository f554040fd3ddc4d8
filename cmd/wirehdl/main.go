// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Command wirehdl is a command line front end to the Wire HDL compiler and
// simulator. It checks, optimizes and runs designs.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/db47h/wirehdl/hdl"
	"github.com/db47h/wirehdl/wlib"
)

var rootCmd = &cobra.Command{
	Use:           "wirehdl",
	Short:         "A compiler and simulator for Wire HDL designs.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("top", "t", "main", "name of the top level module")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "increase logging verbosity")
	rootCmd.PersistentFlags().Bool("no-stdlib", false, "do not merge the wlib standard modules")
}

// loadProgram parses the named file and merges the wlib standard modules
// unless --no-stdlib is set. User modules shadow library ones.
func loadProgram(cmd *cobra.Command, path string) (*hdl.Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	prog, err := hdl.Parse(string(src))
	if err != nil {
		return nil, err
	}
	if noLib, _ := cmd.Flags().GetBool("no-stdlib"); !noLib {
		lib, err := wlib.Parse()
		if err != nil {
			return nil, err
		}
		prog = lib.Merge(prog)
	}
	return prog, nil
}
