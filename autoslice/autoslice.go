// Package autoslice wires the print-preparation pipeline together: orient a
// model with the external optimizer, drop it onto the bed, then hand it to
// the slicing engine with flags derived from the unprintability score.
package autoslice

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vinjam/autoslicer/meshfix"
	"github.com/vinjam/autoslicer/slicer"
	"github.com/vinjam/autoslicer/tweaker"
)

// Pipeline runs models through orient → bed-drop → slice.
type Pipeline struct {
	Tweaker *tweaker.Tweaker
	Engine  *slicer.Engine

	// ExtraArgs are engine flags appended to every slice.
	ExtraArgs []string

	// KeepTemp leaves the per-run temp directory behind for debugging.
	KeepTemp bool

	Logger *slog.Logger
}

// Volume is one input mesh plus engine flags that apply to it alone.
type Volume struct {
	Path      string
	ExtraArgs []string
}

// ValidateModelPath checks that path points at a mesh file we can feed to the
// optimizer: it must exist and carry a .stl or .3mf extension.
func ValidateModelPath(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("autoslice: input not found: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".stl", ".3mf":
		return nil
	default:
		return fmt.Errorf("autoslice: %s is not a .stl or .3mf file", path)
	}
}

// Slice prepares all volumes and slices them as one merged print, returning
// the path of the G-code file the engine wrote.  All intermediate meshes live
// in a per-run temp directory that is removed afterwards.
func (p *Pipeline) Slice(ctx context.Context, volumes []Volume, outputDir string) (string, error) {
	if len(volumes) == 0 {
		return "", fmt.Errorf("autoslice: no volumes given")
	}
	for _, v := range volumes {
		if err := ValidateModelPath(v.Path); err != nil {
			return "", err
		}
	}

	tmpDir, err := os.MkdirTemp("", "autoslicer-*")
	if err != nil {
		return "", fmt.Errorf("autoslice: couldn't create temp dir: %w", err)
	}
	if p.KeepTemp {
		p.Logger.Info("keeping temp dir", "dir", tmpDir)
	} else {
		defer os.RemoveAll(tmpDir)
	}
	p.Logger.Debug("created temp dir", "dir", tmpDir)

	prepared := make([]slicer.Volume, 0, len(volumes))
	for _, v := range volumes {
		sv, err := p.prepareVolume(ctx, v, tmpDir)
		if err != nil {
			return "", err
		}
		prepared = append(prepared, sv)
	}

	score := slicer.MaxUnprintability(prepared)
	p.Logger.Info("slicing",
		"volumes", len(prepared),
		"unprintability", slicer.FormatScore(score),
		"supports", score > slicer.SupportThreshold,
		"brim", score > slicer.BrimThreshold)

	written, err := p.Engine.Slice(ctx, prepared, volumes[0].Path, outputDir, p.ExtraArgs)
	if err != nil {
		return "", fmt.Errorf("autoslice: %s: %w", volumes[0].Path, err)
	}

	p.Logger.Info("sliced", "output", written)
	return written, nil
}

// prepareVolume runs one mesh through the optimizer and the bed-drop fix.
func (p *Pipeline) prepareVolume(ctx context.Context, v Volume, tmpDir string) (slicer.Volume, error) {
	oriented, err := p.Tweaker.Orient(ctx, v.Path, tmpDir)
	if err != nil {
		return slicer.Volume{}, fmt.Errorf("autoslice: %s: %w", v.Path, err)
	}

	dropped, offset, err := meshfix.DropToBed(oriented.OutputFile, tmpDir)
	if err != nil {
		return slicer.Volume{}, fmt.Errorf("autoslice: %s: %w", v.Path, err)
	}
	p.Logger.Debug("dropped to bed", "input", v.Path, "z-offset", offset)

	return slicer.Volume{
		Path:           dropped,
		ExtraArgs:      v.ExtraArgs,
		Unprintability: oriented.Unprintability,
	}, nil
}
