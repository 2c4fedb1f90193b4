/*
Copyright © 2024 vinja <vinja@fastmail.com>
*/

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/vinjam/autoslicer/slicer"
)

// viewCmd opens a G-code file in the engine's built-in viewer.
var viewCmd = &cobra.Command{
	Use:   "view GCODE",
	Short: "Open G-code in the engine's viewer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := bareEngine()
		if err != nil {
			return err
		}

		if _, err := os.Stat(args[0]); err != nil {
			return fmt.Errorf("cmd: couldn't stat %s: %w", args[0], err)
		}

		return engine.ViewGCode(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(viewCmd)
}

// bareEngine builds an Engine with no printer profile, for subcommands like
// view and slicer-options that only need the executable.
func bareEngine() (*slicer.Engine, error) {
	if SlicerBin == "" {
		return nil, fmt.Errorf("autoslicer: configure the slicing engine with --slicer")
	}

	slicerBin, err := homedir.Expand(SlicerBin)
	if err != nil {
		return nil, fmt.Errorf("autoslicer: unable to expand homedir: %w", err)
	}
	if _, err := os.Stat(slicerBin); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("autoslicer: slicing engine not found at %s: %w", slicerBin, err)
	}

	return &slicer.Engine{
		Bin:    slicerBin,
		Logger: slog.Default(),
	}, nil
}
