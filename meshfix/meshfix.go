// Package meshfix nudges meshes into a position the slicing engine accepts.
//
// The engine refuses (or silently mis-arranges) models that sit above or
// below the build plate, and the orientation optimizer makes no promise about
// where the rotated mesh ends up.  The fix is a single translation so the
// mesh's lowest point lands on Z = 0.
package meshfix

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/unixpickle/model3d/model3d"
)

// DropToBed rewrites the STL at inputFile so its minimum Z is zero, placing
// the result in tmpDir under a unique name.  It returns the new path and the
// Z offset that was applied.  Non-STL files are passed through untouched,
// with a zero offset: the engine's own --merge arranging handles those.
func DropToBed(inputFile, tmpDir string) (string, float64, error) {
	if strings.ToLower(filepath.Ext(inputFile)) != ".stl" {
		return inputFile, 0, nil
	}

	f, err := os.Open(inputFile)
	if err != nil {
		return "", 0, fmt.Errorf("meshfix: couldn't open %s: %w", inputFile, err)
	}
	triangles, err := model3d.ReadSTL(f)
	f.Close()
	if err != nil {
		return "", 0, fmt.Errorf("meshfix: couldn't read STL %s: %w", inputFile, err)
	}

	mesh := model3d.NewMeshTriangles(triangles)
	offset := -mesh.Min().Z
	mesh = mesh.Translate(model3d.Coord3D{Z: offset})

	outputFile, err := uniqueTranslatedPath(tmpDir)
	if err != nil {
		return "", 0, err
	}

	if err := mesh.SaveGroupedSTL(outputFile); err != nil {
		return "", 0, fmt.Errorf("meshfix: couldn't write %s: %w", outputFile, err)
	}

	return outputFile, offset, nil
}

// uniqueTranslatedPath picks the first free translated_N.stl in tmpDir, so
// multiple volumes of one print don't clobber each other.
func uniqueTranslatedPath(tmpDir string) (string, error) {
	for i := 1; ; i++ {
		candidate := filepath.Join(tmpDir, fmt.Sprintf("translated_%d.stl", i))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		} else if err != nil {
			return "", fmt.Errorf("meshfix: couldn't probe %s: %w", candidate, err)
		}
	}
}
