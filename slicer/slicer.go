// Package slicer mediates access to the external slicing engine
// (PrusaSlicer) that turns prepared meshes into G-code.
//
// The engine does all the real work; this package builds its command line,
// picks extra flags from the unprintability score, assembles the output
// filename, and finds the file the engine actually wrote (the engine expands
// placeholders like {print_time} in the name itself).
package slicer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/vinjam/autoslicer/profile"
)

// Score thresholds above which the print needs help sticking to the bed:
// anything past 1.0 gets supports, anything past 2.0 also gets a brim.
const (
	SupportThreshold = 1.0
	BrimThreshold    = 2.0
)

// Engine is a handle on the slicing engine binary plus the printer profile
// it should load.
type Engine struct {
	// Bin is the path of the engine executable.
	Bin string

	Profile *profile.Profile

	Logger *slog.Logger
}

// Volume is one mesh of a print: a prepared (oriented, bed-dropped) file,
// optional per-volume engine flags, and its unprintability score.
type Volume struct {
	Path           string
	ExtraArgs      []string
	Unprintability float64
}

// MaxUnprintability returns the worst score across volumes; that one decides
// the support/brim flags for the whole merged print.
func MaxUnprintability(volumes []Volume) float64 {
	worst := 0.0
	for _, v := range volumes {
		if v.Unprintability > worst {
			worst = v.Unprintability
		}
	}
	return worst
}

// BuildArgs assembles the full engine argument vector:
//
//	--load PROFILE -g --merge VOL [vol flags...] ... [score flags] [extra] --output OUT
func (e *Engine) BuildArgs(volumes []Volume, outputFile string, extraArgs []string) []string {
	args := []string{"--load", e.Profile.Path, "-g", "--merge"}

	for _, v := range volumes {
		args = append(args, v.Path)
		args = append(args, v.ExtraArgs...)
	}

	score := MaxUnprintability(volumes)
	if score > BrimThreshold {
		args = append(args, "--brim-width", "5", "--skirt-distance", "6")
	}
	if score > SupportThreshold {
		args = append(args, "--support-material")
	}

	args = append(args, extraArgs...)
	args = append(args, "--output", outputFile)
	return args
}

// Slice runs the engine over the prepared volumes.  inputFile is the
// original model the user gave us; its stem seeds the output name.  Returns
// the G-code file the engine wrote.
func (e *Engine) Slice(ctx context.Context, volumes []Volume, inputFile, outputDir string, extraArgs []string) (string, error) {
	if len(volumes) == 0 {
		return "", fmt.Errorf("slicer: nothing to slice")
	}

	outputDir, err := filepath.Abs(outputDir)
	if err != nil {
		return "", fmt.Errorf("slicer: couldn't resolve output dir: %w", err)
	}

	outputFile := filepath.Join(outputDir, e.OutputName(inputFile, MaxUnprintability(volumes)))
	args := e.BuildArgs(volumes, outputFile, extraArgs)

	e.Logger.Debug("running slicing engine", "bin", e.Bin, "args", args)

	cmd := exec.CommandContext(ctx, e.Bin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("slicer: engine failed: %w\n%s", err, tail(string(out), 15))
	}

	// The engine substitutes name placeholders, so the file on disk isn't
	// called what we asked for.  Newest .gcode in the output dir wins.
	written, err := newestGCode(outputDir)
	if err != nil {
		return "", fmt.Errorf("slicer: engine ran but output is missing: %w", err)
	}

	return written, nil
}

// ViewGCode opens the engine's built-in G-code viewer.
func (e *Engine) ViewGCode(ctx context.Context, gcodePath string) error {
	cmd := exec.CommandContext(ctx, e.Bin, "--gcodeviewer", gcodePath)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("slicer: viewer failed on %s: %w", gcodePath, err)
	}
	return nil
}

// HelpOptions returns the engine's own --help-options text, for users hunting
// for extra-args to pass through.
func (e *Engine) HelpOptions(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, e.Bin, "--help-options").Output()
	if err != nil {
		return "", fmt.Errorf("slicer: couldn't query engine options: %w", err)
	}
	return string(out), nil
}

// newestGCode returns the most recently modified *.gcode under dir.
func newestGCode(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.gcode"))
	if err != nil {
		return "", fmt.Errorf("slicer: bad glob: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("slicer: no .gcode files in %s", dir)
	}

	newest := ""
	var newestMod int64
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			return "", fmt.Errorf("slicer: couldn't stat %s: %w", m, err)
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest, newestMod = m, mod
		}
	}
	return newest, nil
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
