// Package tweaker mediates access to the external orientation optimizer
// (Tweaker-3), which figures out the least-bad way to lay a model on the
// print bed.
//
// The optimizer is a Python script driven entirely through its command line;
// its only machine-readable output is a diagnostic dump on stdout from which
// we fish out the "unprintability" score.  Lower scores are better.
package tweaker

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

// Tweaker runs the orientation optimizer.
type Tweaker struct {
	// Cmd is the argv prefix used to invoke the optimizer, typically
	// ["python3", "/path/to/Tweaker.py"].
	Cmd []string

	Logger *slog.Logger
}

// Result of one optimizer run.
type Result struct {
	// OutputFile is the re-oriented mesh written by the optimizer.
	OutputFile string

	// Unprintability score parsed from the optimizer's diagnostics,
	// rounded to two decimals.
	Unprintability float64
}

// Orient rotates inputFile into its best print orientation, writing the
// result into tmpDir.  The optimizer is invoked with extended mode (-x) and
// verbose output (-vb); the verbose dump is where the score lives.
func (tw *Tweaker) Orient(ctx context.Context, inputFile, tmpDir string) (Result, error) {
	if len(tw.Cmd) == 0 {
		return Result{}, fmt.Errorf("tweaker: no optimizer command configured")
	}

	outputFile := filepath.Join(tmpDir, "tweaked.stl")

	args := append([]string{}, tw.Cmd[1:]...)
	args = append(args, "-i", inputFile, "-o", outputFile, "-x", "-vb")

	tw.Logger.Debug("running orientation optimizer", "cmd", tw.Cmd[0], "args", args)

	cmd := exec.CommandContext(ctx, tw.Cmd[0], args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return Result{}, fmt.Errorf("tweaker: optimizer failed on %s: %w\n%s",
			inputFile, err, lastLines(string(out), 10))
	}

	score, err := ParseUnprintability(string(out))
	if err != nil {
		return Result{}, fmt.Errorf("tweaker: couldn't read score for %s: %w", inputFile, err)
	}

	tw.Logger.Debug("optimizer finished", "input", inputFile, "unprintability", score)

	return Result{OutputFile: outputFile, Unprintability: score}, nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
