/*
Copyright © 2024 vinja <vinja@fastmail.com>
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// slicerOptionsCmd dumps the engine's supported command line options, handy
// for figuring out what to put in --extra-arg.
var slicerOptionsCmd = &cobra.Command{
	Use:   "slicer-options",
	Short: "Show the slicing engine's supported options",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := bareEngine()
		if err != nil {
			return err
		}

		help, err := engine.HelpOptions(cmd.Context())
		if err != nil {
			return fmt.Errorf("cmd: couldn't query engine options: %w", err)
		}

		fmt.Print(help)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(slicerOptionsCmd)
}
