// Package scoring reduces raw change-request attributes to weighted 0-100 scores
// and categorical levels. Every calculator is a pure function of its inputs and
// the weight table it was built with; nothing here performs I/O or logs.
package scoring

import (
	"math"

	"github.com/shopspring/decimal"
)

// Kind names a calculator.
type Kind string

// All calculators.
const (
	KindRisk     Kind = "risk"
	KindEffort   Kind = "effort"
	KindBenefit  Kind = "benefit"
	KindPriority Kind = "priority"
)

// AllKinds lists every calculator in display order.
var AllKinds = []Kind{KindRisk, KindEffort, KindBenefit, KindPriority}

// ParseKind maps a name to a Kind.
func ParseKind(s string) (Kind, bool) {
	for _, k := range AllKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Level is a banded label derived from a score.
type Level string

// Classification labels.
const (
	LevelLow      Level = "Low"
	LevelMedium   Level = "Medium"
	LevelHigh     Level = "High"
	LevelCritical Level = "Critical"
	LevelVeryHigh Level = "Very High"
)

// Factor is the name of a single scoring dimension.
type Factor string

// FactorSet maps factor names to values.
type FactorSet map[Factor]float64

// Result is the output of one scoring call.
type Result struct {
	Kind  Kind    `json:"kind"`
	Score float64 `json:"score"`
	Level Level   `json:"level,omitempty"`
	// Factors are the inputs the score was computed from.
	Factors FactorSet `json:"factors"`
	// Components are per-factor 0-100 sub-scores after inverse transforms.
	Components FactorSet        `json:"components,omitempty"`
	Categories []CategoryDetail `json:"categories,omitempty"`
}

// weightedAverage returns Σ(value×weight)/Σ(weight) over the given factors.
// A factor without a weight contributes nothing; an all-zero denominator yields 0.
func weightedAverage(values FactorSet, weights WeightTable, order []Factor) float64 {
	var total, totalWeight float64
	for _, name := range order {
		w, ok := weights[name]
		if !ok || w <= 0 {
			continue
		}
		total += values[name] * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	return total / totalWeight
}

// Round rounds half away from zero to the given number of decimal places.
// Every score published with decimals goes through it.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// ordinal reads a factor on a bounded ordinal scale, substituting def when
// the factor is missing or not a finite number.
func ordinal(f FactorSet, name Factor, def, lo, hi float64) float64 {
	v, ok := f[name]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return clamp(v, lo, hi)
}

// classify bands a 0-100 score at 25/50/75.
func classify(score float64, top Level) Level {
	switch {
	case score < 25:
		return LevelLow
	case score < 50:
		return LevelMedium
	case score < 75:
		return LevelHigh
	default:
		return top
	}
}
