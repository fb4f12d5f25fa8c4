package game

import (
	"math"
	"strconv"
	"strings"
)

// FormatValue converts a value into its display label: near-integers print as
// integers, near-reciprocals of integers as "1/n", everything else to three
// decimals with trailing zeros stripped.
func FormatValue(v float64) string {
	if r := math.Round(v); math.Abs(v-r) < Epsilon {
		return formatInt(r)
	}
	inv := 1 / v
	if r := math.Round(inv); r != 0 && math.Abs(inv-r) < Epsilon {
		return "1/" + formatInt(r)
	}
	// The rounded value may itself be a near-integer or near-reciprocal.
	if r := math.Round(v*1000) / 1000; r != v && isFinite(r) {
		return FormatValue(r)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatInt(r float64) string {
	if r == 0 {
		// math.Round(-0.00001) is -0
		return "0"
	}
	if math.Abs(r) >= 1e21 {
		return strconv.FormatFloat(r, 'g', -1, 64)
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// ParseLabel reads a label produced by FormatValue back into a number.
func ParseLabel(label string) (float64, bool) {
	label = strings.TrimSpace(label)
	if rest, ok := strings.CutPrefix(label, "1/"); ok {
		d, err := strconv.ParseFloat(rest, 64)
		if err != nil || d == 0 {
			return 0, false
		}
		return 1 / d, true
	}
	v, err := strconv.ParseFloat(label, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// IsTargetReached reports whether value equals target within Epsilon.
func IsTargetReached(value, target float64) bool {
	return math.Abs(value-target) < Epsilon
}

// isFinite reports whether v is neither NaN nor ±Inf.
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
