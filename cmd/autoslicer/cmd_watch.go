/*
Copyright © 2024 vinja <vinja@fastmail.com>
*/

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vinjam/autoslicer/autoslice"
	"github.com/vinjam/autoslicer/watch"
)

const watchUsage = `Watch a folder and slice every model file that lands in it.

The folder is rescanned every couple of seconds, and a file is only picked up once
its size has stopped changing, so half-copied STLs don't get sliced.  Files that
fail to slice are left in place and not retried.

Runs until interrupted (Ctrl-C).`

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Watch a folder and slice incoming models",
	Long:  watchUsage,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			WatchDir = args[0]
		}
		return runWatch()
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&WatchDir, "watch-dir", "", "folder to watch for incoming models")
	watchCmd.Flags().StringVar(&RescanInterval, "rescan-interval", "", "how often to rescan the folder, e.g. 2s")
	watchCmd.Flags().BoolVar(&DeleteInput, "delete-input", false, "delete the model file after a successful slice")
}

func runWatch() error {
	if WatchDir == "" {
		return fmt.Errorf("cmd: no folder to watch, pass one as an argument or set watch-dir")
	}

	pipeline, err := buildPipeline()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(OutputDir, 0755); err != nil {
		return fmt.Errorf("cmd: couldn't create output directory %s: %w", OutputDir, err)
	}

	var rescan time.Duration
	if RescanInterval != "" {
		rescan, err = time.ParseDuration(RescanInterval)
		if err != nil {
			return fmt.Errorf("cmd: couldn't parse rescan-interval: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher := &watch.Watcher{
		InputDir:    WatchDir,
		Rescan:      rescan,
		DeleteInput: DeleteInput,
		Slice: func(ctx context.Context, path string) (string, error) {
			return pipeline.Slice(ctx, []autoslice.Volume{{Path: path}}, OutputDir)
		},
		Logger: slog.Default(),
	}

	slog.Info("watching for models", "dir", WatchDir, "output", OutputDir)

	if err := watcher.Run(ctx); err != nil {
		return fmt.Errorf("cmd: watch loop failed: %w", err)
	}

	return nil
}
