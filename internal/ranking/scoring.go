// Package ranking scores change requests for prioritization and orders a
// batch of them by descending priority.
package ranking

import (
	"math"

	"github.com/jonathan/change-scorer/internal/scoring"
	"github.com/jonathan/change-scorer/internal/types"
)

// Prioritization factors are on a 1-10 scale.
const (
	minFactor     = 1.0
	maxFactor     = 10.0
	defaultFactor = 5.0
	scoreScale    = 10.0
	scoreDecimals = 1
)

// Priority scores a request from its eight prioritization factors.
type Priority struct {
	weights scoring.WeightTable
}

// NewPriority builds a prioritization calculator. weights overrides
// individual entries of the built-in table; nil means defaults only.
func NewPriority(weights scoring.WeightTable) *Priority {
	return &Priority{weights: scoring.DefaultPriorityWeights().Merge(weights)}
}

// Weights returns a copy of the table in use.
func (c *Priority) Weights() scoring.WeightTable {
	return c.weights.Clone()
}

// DeriveFactors reads the assessed priority factors from the attribute bag.
// Missing entries default to the midpoint of the scale.
func (c *Priority) DeriveFactors(a *types.Attributes) scoring.FactorSet {
	if a == nil {
		a = &types.Attributes{}
	}
	p := a.Priority
	raw := map[scoring.Factor]types.Number{
		scoring.FactorBusinessValue:       p.BusinessValue,
		scoring.FactorUrgency:             p.Urgency,
		scoring.FactorImpactScope:         p.ImpactScope,
		scoring.FactorRiskLevel:           p.RiskLevel,
		scoring.FactorResourceRequirement: p.ResourceRequirement,
		scoring.FactorDependency:          p.Dependency,
		scoring.FactorStrategicAlignment:  p.StrategicAlignment,
		scoring.FactorCustomerImpact:      p.CustomerImpact,
	}

	out := make(scoring.FactorSet, len(raw))
	for name, n := range raw {
		out[name] = clampFactor(n.Or(defaultFactor))
	}
	return out
}

// Score computes the priority score with the calculator's weights.
func (c *Priority) Score(f scoring.FactorSet) scoring.Result {
	return c.score(f, c.weights)
}

// ScoreWith computes the priority score with a per-call weight override.
func (c *Priority) ScoreWith(f scoring.FactorSet, override scoring.WeightTable) scoring.Result {
	return c.score(f, c.weights.Merge(override))
}

// AutoCalculate derives factors and scores them in one step.
func (c *Priority) AutoCalculate(a *types.Attributes) scoring.Result {
	return c.Score(c.DeriveFactors(a))
}

func (c *Priority) score(f scoring.FactorSet, weights scoring.WeightTable) scoring.Result {
	order := scoring.FactorsFor(scoring.KindPriority)
	factors := make(scoring.FactorSet, len(order))
	components := make(scoring.FactorSet, len(order))

	var total, totalWeight float64
	for _, name := range order {
		v, ok := f[name]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			v = defaultFactor
		}
		v = clampFactor(v)
		factors[name] = v

		// Lower resource need means higher priority.
		if name == scoring.FactorResourceRequirement {
			v = maxFactor + 1 - v
		}
		components[name] = v * scoreScale

		w := weights[name]
		if w <= 0 {
			continue
		}
		total += v * w
		totalWeight += w
	}

	var score float64
	if totalWeight > 0 {
		score = total / totalWeight * scoreScale
	}

	return scoring.Result{
		Kind:       scoring.KindPriority,
		Score:      scoring.Round(score, scoreDecimals),
		Factors:    factors,
		Components: components,
	}
}

func clampFactor(v float64) float64 {
	return math.Min(math.Max(v, minFactor), maxFactor)
}
