/*
Copyright © 2024 vinja <vinja@fastmail.com>
*/

package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/vinjam/autoslicer/octoprint"
)

const printUsage = `Upload a G-code file to OctoPrint and start printing it.

Refuses to start unless the printer reports the "Operational" state, so you won't
accidentally interrupt a running job.`

var printCmd = &cobra.Command{
	Use:   "print GCODE",
	Short: "Send G-code to OctoPrint and start the job",
	Long:  printUsage,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return uploadAndPrint(args[0])
	},
}

func init() {
	rootCmd.AddCommand(printCmd)
}

func uploadAndPrint(gcodePath string) error {
	api, err := newOctoPrintAPI()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	version, err := api.ServerVersion(ctx)
	if err != nil {
		return fmt.Errorf("cmd: couldn't reach OctoPrint: %w", err)
	}
	slog.Debug("connected to OctoPrint", "version", version.Server)

	state, err := api.ConnectionState(ctx)
	if err != nil {
		return fmt.Errorf("cmd: couldn't query printer state: %w", err)
	}
	if state != octoprint.StateOperational {
		return fmt.Errorf("cmd: printer is %q, not %q, refusing to start a print", state, octoprint.StateOperational)
	}

	stored, err := api.Upload(ctx, gcodePath)
	if err != nil {
		return fmt.Errorf("cmd: upload failed: %w", err)
	}
	slog.Info("uploaded G-code", "file", stored)

	if err := api.StartPrint(ctx, stored); err != nil {
		return fmt.Errorf("cmd: couldn't start print: %w", err)
	}

	fmt.Printf("Printing %s\n", filepath.Base(stored))
	return nil
}
