/*
Copyright © 2024 vinja <vinja@fastmail.com>
*/

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/vinjam/autoslicer/autoslice"
	"github.com/vinjam/autoslicer/octoprint"
	"github.com/vinjam/autoslicer/profile"
	"github.com/vinjam/autoslicer/slicer"
	"github.com/vinjam/autoslicer/tweaker"
)

// buildPipeline assembles the orient/drop/slice pipeline from the global flag
// state.  Every command that actually slices something goes through here.
func buildPipeline() (*autoslice.Pipeline, error) {
	if SlicerBin == "" {
		return nil, fmt.Errorf("autoslicer: configure the slicing engine with --slicer")
	}
	if len(TweakerCmd) == 0 {
		return nil, fmt.Errorf("autoslicer: configure the orientation optimizer with --tweaker-cmd")
	}
	if ProfilePath == "" {
		return nil, fmt.Errorf("autoslicer: configure a printer profile with --profile")
	}

	slicerBin, err := homedir.Expand(SlicerBin)
	if err != nil {
		return nil, fmt.Errorf("autoslicer: unable to expand homedir: %w", err)
	}
	if _, err := os.Stat(slicerBin); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("autoslicer: slicing engine not found at %s: %w", slicerBin, err)
	}

	profilePath, err := homedir.Expand(ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("autoslicer: unable to expand homedir: %w", err)
	}

	prof, err := profile.Load(profilePath)
	if err != nil {
		return nil, fmt.Errorf("autoslicer: couldn't load printer profile: %w", err)
	}

	slog.Debug("loaded printer profile",
		"printer", prof.PrinterModel,
		"filament", prof.FilamentType,
		"layer_height", prof.LayerHeight)

	pipeline := &autoslice.Pipeline{
		Tweaker: &tweaker.Tweaker{
			Cmd:    TweakerCmd,
			Logger: slog.Default(),
		},
		Engine: &slicer.Engine{
			Bin:     slicerBin,
			Profile: prof,
			Logger:  slog.Default(),
		},
		ExtraArgs: ExtraArgs,
		KeepTemp:  KeepTemp,
		Logger:    slog.Default(),
	}

	return pipeline, nil
}

// newOctoPrintAPI retrieves the API key via octoprint-key-cmd and builds a
// client for the configured instance.
func newOctoPrintAPI() (*octoprint.API, error) {
	if OctoPrintURL == "" {
		return nil, fmt.Errorf("autoslicer: configure your OctoPrint instance with --octoprint-url")
	}
	if len(OctoPrintKeyCmd) == 0 {
		return nil, fmt.Errorf("autoslicer: configure --octoprint-key-cmd so we can fetch your API key")
	}

	keyCmdOutput, err := exec.Command(OctoPrintKeyCmd[0], OctoPrintKeyCmd[1:]...).Output()
	if err != nil {
		return nil, fmt.Errorf("autoslicer: couldn't execute octoprint-key-cmd '%v': %w", OctoPrintKeyCmd, err)
	}

	apiKey := strings.Split(string(keyCmdOutput), "\n")[0]

	api, err := octoprint.NewAPI(OctoPrintURL, apiKey)
	if err != nil {
		return nil, fmt.Errorf("autoslicer: couldn't construct an OctoPrint API client: %w", err)
	}

	return api, nil
}
