package scoring

import (
	"fmt"
	"strconv"
	"strings"
)

// Thresholds are the five cut points of the stepped Normalizer.
type Thresholds [5]float64

// normalizedSteps are the scores assigned to each bucket; the last entry is
// used for values above every threshold.
var normalizedSteps = [6]float64{0, 25, 50, 75, 90, 100}

// Normalize maps a raw magnitude to one of 0, 25, 50, 75, 90 or 100.
// A value at or below t[i] lands in bucket i. Thresholds are expected to be
// non-decreasing; Normalize does not check, see Thresholds.Validate.
func Normalize(value float64, t Thresholds) float64 {
	for i, limit := range t {
		if value <= limit {
			return normalizedSteps[i]
		}
	}
	return normalizedSteps[len(normalizedSteps)-1]
}

// Validate reports whether the thresholds are non-decreasing.
func (t Thresholds) Validate() error {
	for i := 1; i < len(t); i++ {
		if t[i] < t[i-1] {
			return fmt.Errorf("thresholds must be non-decreasing: %v > %v at position %d", t[i-1], t[i], i)
		}
	}
	return nil
}

// String renders the thresholds in the comma-separated storage format.
func (t Thresholds) String() string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

// ParseThresholds parses the comma-separated form stored in scoring configs,
// e.g. "0,40,160,400,1000".
func ParseThresholds(s string) (Thresholds, error) {
	var t Thresholds

	parts := strings.Split(s, ",")
	if len(parts) != len(t) {
		return t, fmt.Errorf("expected %d thresholds, got %d in %q", len(t), len(parts), s)
	}
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return t, fmt.Errorf("invalid threshold %q: %w", part, err)
		}
		t[i] = v
	}

	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

// Ladder maps a magnitude onto an ordinal level 1..N.
//
// With FloorAtZero, values <= 0 are level 1 and the bounds start at level 2.
// Each bound is a strict upper limit: the first bound the value is below
// decides the level, and values past every bound get the top level.
type Ladder struct {
	FloorAtZero bool
	Bounds      []float64
}

// Level returns the ordinal level for v.
func (l Ladder) Level(v float64) float64 {
	level := 1.0
	if l.FloorAtZero {
		if v <= 0 {
			return level
		}
		level++
	}
	for _, bound := range l.Bounds {
		if v < bound {
			return level
		}
		level++
	}
	return level
}
