/*
Copyright © 2024 vinja <vinja@fastmail.com>
*/

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vinjam/autoslicer/autoslice"
)

const sliceUsage = `Slice one or more mesh files into G-code.

Each file is oriented by the optimizer, dropped onto the print bed, and sliced with
supports and brim decided from its unprintability score.  With several inputs each
file becomes its own G-code; pass --merge to slice them as a single plate instead.

Use --print to upload the result to OctoPrint and start the job right away (single
output only).`

var sliceCmd = &cobra.Command{
	Use:   "slice FILE...",
	Short: "Slice mesh files into G-code",
	Long:  sliceUsage,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSlice(cmd, args)
	},
}

var (
	MergeInputs bool
	PrintAfter  bool
)

func init() {
	rootCmd.AddCommand(sliceCmd)

	sliceCmd.Flags().BoolVar(&MergeInputs, "merge", false, "slice all inputs as a single plate")
	sliceCmd.Flags().BoolVar(&PrintAfter, "print", false, "upload the G-code to OctoPrint and start printing")
}

func runSlice(cmd *cobra.Command, args []string) error {
	pipeline, err := buildPipeline()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(OutputDir, 0755); err != nil {
		return fmt.Errorf("cmd: couldn't create output directory %s: %w", OutputDir, err)
	}

	if PrintAfter && len(args) > 1 && !MergeInputs {
		return fmt.Errorf("cmd: --print wants a single G-code result, use --merge or pass one file")
	}

	var outputs []string

	if MergeInputs || len(args) == 1 {
		volumes := make([]autoslice.Volume, 0, len(args))
		for _, arg := range args {
			volumes = append(volumes, autoslice.Volume{Path: arg})
		}

		gcode, err := pipeline.Slice(cmd.Context(), volumes, OutputDir)
		if err != nil {
			return fmt.Errorf("cmd: slicing failed: %w", err)
		}
		outputs = append(outputs, gcode)
	} else {
		results, err := pipeline.SliceAll(cmd.Context(), args, OutputDir, Workers)
		if err != nil {
			return fmt.Errorf("cmd: batch slicing failed: %w", err)
		}

		for _, res := range results {
			if res.Err != nil {
				continue
			}
			outputs = append(outputs, res.Output)
		}

		if failed := autoslice.Failed(results); failed > 0 {
			return fmt.Errorf("cmd: %d of %d inputs failed to slice", failed, len(args))
		}
	}

	for _, gcode := range outputs {
		fmt.Printf("%s\n", gcode)
	}

	if PrintAfter {
		if err := uploadAndPrint(outputs[0]); err != nil {
			return fmt.Errorf("cmd: couldn't start print of %s: %w", filepath.Base(outputs[0]), err)
		}
	}

	return nil
}
