package tweaker

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var unprintabilityRE = regexp.MustCompile(`(?i)unprintability[^:]*:\s*([0-9]+(?:\.[0-9]+)?)`)

// ParseUnprintability extracts the unprintability score from the optimizer's
// verbose stdout.  The score normally sits on the fifth line from the end,
// after a colon; we scan backwards for a labelled value first and only fall
// back to the positional rule for older optimizer versions that label it
// differently.
func ParseUnprintability(output string) (float64, error) {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")

	for i := len(lines) - 1; i >= 0; i-- {
		if m := unprintabilityRE.FindStringSubmatch(lines[i]); m != nil {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return 0, fmt.Errorf("tweaker: bad score %q: %w", m[1], err)
			}
			return round2(v), nil
		}
	}

	// Positional fallback: fifth line from the end, value after the colon.
	if len(lines) >= 5 {
		line := lines[len(lines)-5]
		if _, after, found := strings.Cut(line, ":"); found {
			v, err := strconv.ParseFloat(strings.TrimSpace(after), 64)
			if err == nil {
				return round2(v), nil
			}
		}
	}

	return 0, fmt.Errorf("tweaker: no unprintability score in optimizer output (%d lines)", len(lines))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
