package slicer

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// OutputName derives the G-code filename for a sliced model.  The pattern
// packs the print's vital statistics into the name, and leaves {print_time}
// for the engine to fill in:
//
//	<stem>_<layer>mm_U<score>_{print_time}_<filament>_<printer>.gcode
func (e *Engine) OutputName(inputFile string, score float64) string {
	stem := strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile))

	return fmt.Sprintf("%s_%smm_U%s_{print_time}_%s_%s.gcode",
		SanitizeStem(stem),
		e.Profile.LayerHeight,
		FormatScore(score),
		e.Profile.FilamentType,
		e.Profile.PrinterModel,
	)
}

var unsafeStemRE = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeStem makes a filename stem safe to embed in the output name.
// Anything outside [a-zA-Z0-9._-] collapses to a single dash.
func SanitizeStem(stem string) string {
	str := unsafeStemRE.ReplaceAllString(stem, "-")
	str = strings.Trim(str, "-")

	if len(str) > 100 {
		str = str[:100]
	}
	if str == "" {
		return "model"
	}
	return str
}

// FormatScore renders an unprintability score the way it appears in
// filenames and logs: at most two decimals, no trailing zeros.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// ExtraArgs renders a key/value map as engine flags, e.g.
// {"fill_density": "20%"} becomes ["--fill-density", "20%"].  Keys are
// emitted in sorted order.
func ExtraArgs(kv map[string]string) []string {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, 2*len(kv))
	for _, k := range keys {
		flag := "--" + strings.ReplaceAll(k, "_", "-")
		args = append(args, flag, kv[k])
	}
	return args
}
