package autoslice

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/unixpickle/model3d/model3d"

	"github.com/vinjam/autoslicer/profile"
	"github.com/vinjam/autoslicer/slicer"
	"github.com/vinjam/autoslicer/tweaker"
)

func writeMesh(t *testing.T, path string) {
	t.Helper()
	tri := &model3d.Triangle{
		model3d.Coord3D{X: 0, Y: 0, Z: 2},
		model3d.Coord3D{X: 10, Y: 0, Z: 2},
		model3d.Coord3D{X: 0, Y: 10, Z: 8},
	}
	mesh := model3d.NewMeshTriangles([]*model3d.Triangle{tri})
	if err := mesh.SaveGroupedSTL(path); err != nil {
		t.Fatalf("save mesh: %v", err)
	}
}

// fakeOptimizer copies -i to -o and reports the given unprintability.
func fakeOptimizer(t *testing.T, dir, score string) []string {
	t.Helper()
	script := filepath.Join(dir, "fake-tweaker.sh")
	if err := os.WriteFile(script, []byte(`#!/bin/sh
in=""; out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -i) in="$2"; shift 2 ;;
    -o) out="$2"; shift 2 ;;
    *) shift ;;
  esac
done
cp "$in" "$out"
echo "Unprintability: `+score+`"
`), 0755); err != nil {
		t.Fatalf("write fake optimizer: %v", err)
	}
	return []string{"/bin/sh", script}
}

// fakeEngine writes the --output file with {print_time} filled in, and logs
// its full argv for inspection.
func fakeEngine(t *testing.T, dir string) (bin, argvLog string) {
	t.Helper()
	script := filepath.Join(dir, "fake-slicer.sh")
	argvLog = filepath.Join(dir, "argv.log")
	if err := os.WriteFile(script, []byte(`#!/bin/sh
echo "$@" > `+argvLog+`
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--output" ]; then out="$2"; shift 2; else shift 1; fi
done
real=$(printf '%s' "$out" | sed 's/{print_time}/2h05m/')
echo "G1 X0" > "$real"
`), 0755); err != nil {
		t.Fatalf("write fake engine: %v", err)
	}
	return script, argvLog
}

func testPipeline(t *testing.T, dir, score string) (*Pipeline, string) {
	t.Helper()
	bin, argvLog := fakeEngine(t, dir)
	return &Pipeline{
		Tweaker: &tweaker.Tweaker{Cmd: fakeOptimizer(t, dir, score), Logger: slog.Default()},
		Engine: &slicer.Engine{
			Bin: bin,
			Profile: &profile.Profile{
				Path:         filepath.Join(dir, "printer.ini"),
				FilamentType: "PLA",
				PrinterModel: "MK3S",
				LayerHeight:  "0.2",
			},
			Logger: slog.Default(),
		},
		Logger: slog.Default(),
	}, argvLog
}

func TestSliceRunsWholePipeline(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "bracket.stl")
	writeMesh(t, input)

	outDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	p, argvLog := testPipeline(t, dir, "1.4")

	written, err := p.Slice(context.Background(), []Volume{{Path: input}}, outDir)
	if err != nil {
		t.Fatalf("slice: %v", err)
	}

	want := filepath.Join(outDir, "bracket_0.2mm_U1.4_2h05m_PLA_MK3S.gcode")
	if written != want {
		t.Errorf("output:\n got %s\nwant %s", written, want)
	}

	argv, err := os.ReadFile(argvLog)
	if err != nil {
		t.Fatalf("read argv log: %v", err)
	}
	if !strings.Contains(string(argv), "--support-material") {
		t.Errorf("score 1.4 should add supports, engine got: %s", argv)
	}
	if !strings.Contains(string(argv), "translated_1.stl") {
		t.Errorf("engine should receive the bed-dropped mesh, got: %s", argv)
	}
}

func TestSliceRejectsMissingInput(t *testing.T) {
	dir := t.TempDir()
	p, _ := testPipeline(t, dir, "0.5")

	_, err := p.Slice(context.Background(), []Volume{{Path: filepath.Join(dir, "ghost.stl")}}, dir)
	if err == nil {
		t.Fatal("expected error for missing input")
	}
}

func TestValidateModelPath(t *testing.T) {
	dir := t.TempDir()

	stl := filepath.Join(dir, "ok.STL")
	if err := os.WriteFile(stl, []byte("solid"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateModelPath(stl); err != nil {
		t.Errorf("uppercase .STL should validate: %v", err)
	}

	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("hi"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateModelPath(txt); err == nil {
		t.Error("expected error for .txt input")
	}

	if err := ValidateModelPath(filepath.Join(dir, "missing.stl")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSliceAllRecordsPerFileFailures(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	good := filepath.Join(dir, "good.stl")
	writeMesh(t, good)
	missing := filepath.Join(dir, "missing.stl")

	p, _ := testPipeline(t, dir, "0.3")

	results, err := p.SliceAll(context.Background(), []string{good, missing}, outDir, 2)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Err != nil {
		t.Errorf("good file should slice: %v", results[0].Err)
	}
	if results[0].Output == "" {
		t.Error("good file should report its output path")
	}
	if results[1].Err == nil {
		t.Error("missing file should fail")
	}
	if got := Failed(results); got != 1 {
		t.Errorf("Failed() = %d, want 1", got)
	}
}
