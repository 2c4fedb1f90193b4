// Package profile reads printer profiles exported by the slicing engine.
//
// A profile is an INI-style file of key = value lines with no section
// headers.  The engine consumes the whole file itself (via --load); we only
// pull out the handful of keys that drive output naming and sanity checks.
package profile

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// Profile holds the printer settings we care about.  Everything else in the
// file is the engine's business.
type Profile struct {
	// Absolute path of the profile file, handed to the engine verbatim.
	Path string

	// Bed extents in mm, derived from bed_shape.
	BedMinX, BedMaxX float64
	BedMinY, BedMaxY float64

	FilamentType string
	PrinterModel string

	// Kept as the literal string from the file, it ends up in filenames.
	LayerHeight string
}

// BedCenter returns the midpoint of the bed, in mm.
func (p *Profile) BedCenter() (x, y float64) {
	return (p.BedMinX + p.BedMaxX) / 2, (p.BedMinY + p.BedMaxY) / 2
}

// Load parses the profile at path.
func Load(path string) (*Profile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("profile: couldn't resolve %s: %w", path, err)
	}

	file, err := ini.Load(abs)
	if err != nil {
		return nil, fmt.Errorf("profile: couldn't parse %s: %w", abs, err)
	}
	section := file.Section(ini.DefaultSection)

	p := Profile{Path: abs}

	for _, key := range []string{"bed_shape", "filament_type", "printer_model", "layer_height"} {
		if !section.HasKey(key) {
			return nil, fmt.Errorf("profile: %s is missing required key %s", abs, key)
		}
	}

	p.BedMinX, p.BedMaxX, p.BedMinY, p.BedMaxY, err = parseBedShape(section.Key("bed_shape").String())
	if err != nil {
		return nil, fmt.Errorf("profile: bad bed_shape in %s: %w", abs, err)
	}

	p.FilamentType = section.Key("filament_type").String()
	p.PrinterModel = section.Key("printer_model").String()
	p.LayerHeight = section.Key("layer_height").String()

	if _, err := strconv.ParseFloat(p.LayerHeight, 64); err != nil {
		return nil, fmt.Errorf("profile: layer_height %q is not a number: %w", p.LayerHeight, err)
	}

	return &p, nil
}

// parseBedShape decodes the engine's corner list, e.g. "0x0,250x0,250x210,0x210".
// Only rectangular beds are supported: we expect exactly two distinct X values
// and two distinct Y values across the corners.
func parseBedShape(shape string) (minX, maxX, minY, maxY float64, err error) {
	xs := map[float64]bool{}
	ys := map[float64]bool{}

	for _, corner := range strings.Split(shape, ",") {
		parts := strings.Split(strings.TrimSpace(corner), "x")
		if len(parts) != 2 {
			return 0, 0, 0, 0, fmt.Errorf("corner %q is not of the form XxY", corner)
		}
		x, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return 0, 0, 0, 0, fmt.Errorf("corner %q: %w", corner, err)
		}
		y, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return 0, 0, 0, 0, fmt.Errorf("corner %q: %w", corner, err)
		}
		xs[x] = true
		ys[y] = true
	}

	if len(xs) != 2 || len(ys) != 2 {
		return 0, 0, 0, 0, fmt.Errorf("bed %q doesn't look rectangular", shape)
	}

	minX, maxX = minMaxKeys(xs)
	minY, maxY = minMaxKeys(ys)
	return minX, maxX, minY, maxY, nil
}

func minMaxKeys(set map[float64]bool) (lo, hi float64) {
	first := true
	for v := range set {
		if first {
			lo, hi = v, v
			first = false
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
