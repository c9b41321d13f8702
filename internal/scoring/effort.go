package scoring

import (
	"maps"
	"math"

	"github.com/jonathan/change-scorer/internal/types"
)

// effortComplexityLadder infers complexity from estimated hours when no
// explicit rating was given.
var effortComplexityLadder = Ladder{Bounds: []float64{8, 40, 160, 400}}

// DefaultEffortThresholds returns the built-in Normalizer thresholds for the
// quantity-based effort factors.
func DefaultEffortThresholds() map[Factor]Thresholds {
	return map[Factor]Thresholds{
		FactorHoursEstimated:  {0, 40, 160, 400, 1000},
		FactorCostEstimated:   {0, 1000, 5000, 20000, 50000},
		FactorTeamSize:        {1, 2, 4, 6, 9},
		FactorSystemsAffected: {0, 1, 2, 4, 5},
	}
}

const (
	defaultTeamSize      = 1
	defaultEffortOrdinal = 3
)

// Effort scores how much work a change will take.
type Effort struct {
	weights    WeightTable
	thresholds map[Factor]Thresholds
}

// NewEffort builds an effort calculator. weights overrides individual
// entries of the built-in table; nil means defaults only.
func NewEffort(weights WeightTable) *Effort {
	return &Effort{
		weights:    withDefaults(KindEffort, weights),
		thresholds: DefaultEffortThresholds(),
	}
}

// WithThresholds returns a copy of the calculator whose Normalizer
// thresholds are overridden for the given factors. Only the four
// quantity-based factors use thresholds; other keys are ignored.
func (c *Effort) WithThresholds(overrides map[Factor]Thresholds) *Effort {
	out := &Effort{weights: c.weights, thresholds: maps.Clone(c.thresholds)}
	for name, t := range overrides {
		if _, ok := out.thresholds[name]; ok {
			out.thresholds[name] = t
		}
	}
	return out
}

// Weights returns a copy of the table in use.
func (c *Effort) Weights() WeightTable {
	return c.weights.Clone()
}

// DeriveFactors extracts the seven effort factors. Hours and cost are kept
// as raw quantities; the ordinal factors are on 1-5.
func (c *Effort) DeriveFactors(a *types.Attributes) FactorSet {
	if a == nil {
		a = &types.Attributes{}
	}

	hours := math.Max(0, a.EstimatedEffortHours.Or(0))
	cost := math.Max(0, a.EstimatedCost.Or(0))

	teamSize := a.TeamSize.Or(defaultTeamSize)
	if teamSize < defaultTeamSize {
		teamSize = defaultTeamSize
	}

	complexity := effortComplexityLadder.Level(hours)
	if a.Complexity.Valid {
		complexity = clamp(math.Round(a.Complexity.Value), 1, 5)
	}

	return FactorSet{
		FactorHoursEstimated:        hours,
		FactorCostEstimated:         cost,
		FactorTeamSize:              teamSize,
		FactorComplexity:            complexity,
		FactorSystemsAffected:       float64(a.SystemsAffected.Len()),
		FactorTestingRequired:       clamp(a.TestingRequired.Or(defaultEffortOrdinal), 1, 5),
		FactorDocumentationRequired: clamp(a.DocumentationRequired.Or(defaultEffortOrdinal), 1, 5),
	}
}

// Score computes the effort score with the calculator's weights.
func (c *Effort) Score(f FactorSet) Result {
	return c.score(f, c.weights)
}

// ScoreWith computes the effort score with a per-call weight override.
func (c *Effort) ScoreWith(f FactorSet, override WeightTable) Result {
	return c.score(f, c.weights.Merge(override))
}

// AutoCalculate derives factors and scores them in one step.
func (c *Effort) AutoCalculate(a *types.Attributes) Result {
	return c.Score(c.DeriveFactors(a))
}

func (c *Effort) score(f FactorSet, weights WeightTable) Result {
	factors := FactorSet{
		FactorHoursEstimated:        ordinal(f, FactorHoursEstimated, 0, 0, math.MaxFloat64),
		FactorCostEstimated:         ordinal(f, FactorCostEstimated, 0, 0, math.MaxFloat64),
		FactorTeamSize:              ordinal(f, FactorTeamSize, defaultTeamSize, defaultTeamSize, math.MaxFloat64),
		FactorComplexity:            ordinal(f, FactorComplexity, 1, 1, 5),
		FactorSystemsAffected:       ordinal(f, FactorSystemsAffected, 0, 0, math.MaxFloat64),
		FactorTestingRequired:       ordinal(f, FactorTestingRequired, defaultEffortOrdinal, 1, 5),
		FactorDocumentationRequired: ordinal(f, FactorDocumentationRequired, defaultEffortOrdinal, 1, 5),
	}

	components := make(FactorSet, len(effortFactors))
	for _, name := range effortFactors {
		if t, ok := c.thresholds[name]; ok {
			components[name] = Normalize(factors[name], t)
		} else {
			components[name] = (factors[name] - 1) * 25
		}
	}

	score := clamp(math.Round(weightedAverage(components, weights, effortFactors)), 0, 100)

	return Result{
		Kind:       KindEffort,
		Score:      score,
		Level:      ClassifyEffort(score),
		Factors:    factors,
		Components: components,
	}
}

// ClassifyEffort bands an effort score: <25 Low, <50 Medium, <75 High, else Very High.
func ClassifyEffort(score float64) Level {
	return classify(score, LevelVeryHigh)
}
