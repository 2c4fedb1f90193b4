package slicer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/vinjam/autoslicer/profile"
)

func testEngine() *Engine {
	return &Engine{
		Bin: "/opt/slicer/slicer-console",
		Profile: &profile.Profile{
			Path:         "/home/printer/MK3S.ini",
			FilamentType: "PETG",
			PrinterModel: "MK3S",
			LayerHeight:  "0.2",
		},
		Logger: slog.Default(),
	}
}

func TestBuildArgsEasyPrint(t *testing.T) {
	e := testEngine()
	volumes := []Volume{{Path: "/tmp/translated_1.stl", Unprintability: 0.8}}

	got := e.BuildArgs(volumes, "/out/part.gcode", nil)
	want := []string{
		"--load", "/home/printer/MK3S.ini", "-g", "--merge",
		"/tmp/translated_1.stl",
		"--output", "/out/part.gcode",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("args mismatch:\n got %v\nwant %v", got, want)
	}
}

func TestBuildArgsAddsSupportsAboveThreshold(t *testing.T) {
	e := testEngine()
	volumes := []Volume{{Path: "a.stl", Unprintability: 1.5}}

	got := e.BuildArgs(volumes, "out.gcode", nil)
	if !contains(got, "--support-material") {
		t.Errorf("expected --support-material for score 1.5, got %v", got)
	}
	if contains(got, "--brim-width") {
		t.Errorf("didn't expect brim flags for score 1.5, got %v", got)
	}
}

func TestBuildArgsAddsBrimAndSupportsForAwkwardPrint(t *testing.T) {
	e := testEngine()
	volumes := []Volume{
		{Path: "a.stl", Unprintability: 0.4},
		{Path: "b.stl", ExtraArgs: []string{"--scale", "2"}, Unprintability: 2.3},
	}

	got := e.BuildArgs(volumes, "out.gcode", []string{"--fill-density", "20%"})
	want := []string{
		"--load", "/home/printer/MK3S.ini", "-g", "--merge",
		"a.stl",
		"b.stl", "--scale", "2",
		"--brim-width", "5", "--skirt-distance", "6",
		"--support-material",
		"--fill-density", "20%",
		"--output", "out.gcode",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("args mismatch:\n got %v\nwant %v", got, want)
	}
}

func TestBuildArgsThresholdIsExclusive(t *testing.T) {
	e := testEngine()
	// exactly 1.0 is still considered printable without supports
	got := e.BuildArgs([]Volume{{Path: "a.stl", Unprintability: 1.0}}, "out.gcode", nil)
	if contains(got, "--support-material") {
		t.Errorf("score of exactly 1.0 should not add supports, got %v", got)
	}
}

func TestOutputName(t *testing.T) {
	e := testEngine()

	got := e.OutputName("/downloads/BagClip_65.stl", 2.58)
	want := "BagClip_65_0.2mm_U2.58_{print_time}_PETG_MK3S.gcode"
	if got != want {
		t.Errorf("output name:\n got %s\nwant %s", got, want)
	}
}

func TestOutputNameSanitizesStem(t *testing.T) {
	e := testEngine()

	got := e.OutputName("/downloads/weird name (v2)!.stl", 0)
	if strings.ContainsAny(got, " ()!") {
		t.Errorf("expected sanitized stem, got %s", got)
	}
	if !strings.HasPrefix(got, "weird-name-v2") {
		t.Errorf("unexpected stem in %s", got)
	}
}

func TestSanitizeStem(t *testing.T) {
	if got := SanitizeStem("!!!"); got != "model" {
		t.Errorf("all-garbage stem should fall back to 'model', got %q", got)
	}
	if got := SanitizeStem(strings.Repeat("a", 150)); len(got) != 100 {
		t.Errorf("expected stem capped at 100 chars, got %d", len(got))
	}
}

func TestFormatScore(t *testing.T) {
	cases := map[float64]string{
		2.58: "2.58",
		2.5:  "2.5",
		2:    "2",
		0:    "0",
	}
	for score, want := range cases {
		if got := FormatScore(score); got != want {
			t.Errorf("FormatScore(%v) = %q, want %q", score, got, want)
		}
	}
}

func TestExtraArgs(t *testing.T) {
	got := ExtraArgs(map[string]string{
		"fill_density": "20%",
		"brim_width":   "3",
		"layer_height": "0.15",
	})
	want := []string{
		"--brim-width", "3",
		"--fill-density", "20%",
		"--layer-height", "0.15",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("extra args:\n got %v\nwant %v", got, want)
	}
}

func TestSliceRunsEngineAndFindsOutput(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "gcode")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	// Stand-in engine: writes the requested --output file with the
	// {print_time} placeholder substituted, as the real engine does.
	script := filepath.Join(dir, "fake-slicer.sh")
	if err := os.WriteFile(script, []byte(`#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--output" ]; then out="$2"; shift 2; else shift 1; fi
done
real=$(printf '%s' "$out" | sed 's/{print_time}/1h42m/')
echo "G1 X0" > "$real"
`), 0755); err != nil {
		t.Fatalf("write fake engine: %v", err)
	}

	e := testEngine()
	e.Bin = script

	volumes := []Volume{{Path: filepath.Join(dir, "translated_1.stl"), Unprintability: 1.7}}
	written, err := e.Slice(context.Background(), volumes, "clip.stl", outDir, nil)
	if err != nil {
		t.Fatalf("slice: %v", err)
	}

	want := filepath.Join(outDir, "clip_0.2mm_U1.7_1h42m_PETG_MK3S.gcode")
	if written != want {
		t.Errorf("written file:\n got %s\nwant %s", written, want)
	}
	if _, err := os.Stat(written); err != nil {
		t.Errorf("expected G-code on disk: %v", err)
	}
}

func TestSliceReportsEngineFailure(t *testing.T) {
	e := testEngine()
	e.Bin = "/bin/false"

	_, err := e.Slice(context.Background(), []Volume{{Path: "a.stl"}}, "a.stl", t.TempDir(), nil)
	if err == nil {
		t.Fatal("expected error from failing engine")
	}
}

func TestSliceRejectsEmptyVolumeList(t *testing.T) {
	e := testEngine()
	if _, err := e.Slice(context.Background(), nil, "a.stl", t.TempDir(), nil); err == nil {
		t.Fatal("expected error for empty volume list")
	}
}

func contains(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}
