package scoring

import (
	"math"

	"github.com/jonathan/change-scorer/internal/types"
)

// Risk factor derivation ladders. Each maps a raw quantity onto 1-5.
var (
	impactScopeLadder     = Ladder{FloorAtZero: true, Bounds: []float64{10, 50, 200}}
	financialImpactLadder = Ladder{FloorAtZero: true, Bounds: []float64{1000, 5000, 20000}}
	riskComplexityLadder  = Ladder{FloorAtZero: true, Bounds: []float64{8, 40, 160}}
	countLadder           = Ladder{FloorAtZero: true, Bounds: []float64{2, 3, 5}}
)

const (
	riskScaleMin = 1
	riskScaleMax = 5

	defaultRiskOrdinal        = 3
	businessCriticalFlagged   = 4
	defaultHistoricalFailures = 1
)

// riskDefaults are substituted for factors missing from a FactorSet.
var riskDefaults = FactorSet{
	FactorImpactScope:        1,
	FactorBusinessCritical:   defaultRiskOrdinal,
	FactorComplexity:         1,
	FactorTestingCoverage:    defaultRiskOrdinal,
	FactorRollbackCapability: defaultRiskOrdinal,
	FactorChangeSize:         1,
	FactorTimeWindow:         defaultRiskOrdinal,
	FactorDependencyCount:    1,
	FactorHistoricalFailures: defaultHistoricalFailures,
	FactorFinancialImpact:    1,
}

// riskInverse marks protective factors: a higher raw value lowers risk.
var riskInverse = map[Factor]bool{
	FactorTestingCoverage:    true,
	FactorRollbackCapability: true,
}

// Risk scores the likelihood and blast radius of a change.
type Risk struct {
	weights WeightTable
}

// NewRisk builds a risk calculator. weights overrides individual entries of
// the built-in table; nil means defaults only.
func NewRisk(weights WeightTable) *Risk {
	return &Risk{weights: withDefaults(KindRisk, weights)}
}

// Weights returns a copy of the table in use.
func (c *Risk) Weights() WeightTable {
	return c.weights.Clone()
}

// DeriveFactors extracts the ten risk factors from a request's attributes.
// testingCoverage, rollbackCapability and timeWindow cannot be derived and
// start at the midpoint; callers may override them before scoring.
func (c *Risk) DeriveFactors(a *types.Attributes) FactorSet {
	if a == nil {
		a = &types.Attributes{}
	}

	businessCritical := float64(defaultRiskOrdinal)
	if a.ChangeReasons.RevenueImprovement || a.ChangeReasons.CustomerImpact {
		businessCritical = businessCriticalFlagged
	}

	return FactorSet{
		FactorImpactScope:        impactScopeLadder.Level(a.ImpactedUsers.Or(0)),
		FactorFinancialImpact:    financialImpactLadder.Level(a.EstimatedCost.Or(0)),
		FactorComplexity:         riskComplexityLadder.Level(a.EstimatedEffortHours.Or(0)),
		FactorChangeSize:         countLadder.Level(float64(a.SystemsAffected.Len())),
		FactorDependencyCount:    countLadder.Level(float64(a.Dependencies.Len())),
		FactorBusinessCritical:   businessCritical,
		FactorTestingCoverage:    defaultRiskOrdinal,
		FactorRollbackCapability: defaultRiskOrdinal,
		FactorTimeWindow:         defaultRiskOrdinal,
		FactorHistoricalFailures: defaultHistoricalFailures,
	}
}

// Score computes the risk score with the calculator's weights.
func (c *Risk) Score(f FactorSet) Result {
	return c.score(f, c.weights)
}

// ScoreWith computes the risk score with a per-call weight override.
func (c *Risk) ScoreWith(f FactorSet, override WeightTable) Result {
	return c.score(f, c.weights.Merge(override))
}

// AutoCalculate derives factors and scores them in one step.
func (c *Risk) AutoCalculate(a *types.Attributes) Result {
	return c.Score(c.DeriveFactors(a))
}

func (c *Risk) score(f FactorSet, weights WeightTable) Result {
	factors := make(FactorSet, len(riskFactors))
	adjusted := make(FactorSet, len(riskFactors))
	components := make(FactorSet, len(riskFactors))

	for _, name := range riskFactors {
		v := ordinal(f, name, riskDefaults[name], riskScaleMin, riskScaleMax)
		factors[name] = v
		if riskInverse[name] {
			v = riskScaleMax + 1 - v
		}
		adjusted[name] = v
		components[name] = v * 20
	}

	score := math.Round(weightedAverage(adjusted, weights, riskFactors) * 20)
	score = clamp(score, 0, 100)

	return Result{
		Kind:       KindRisk,
		Score:      score,
		Level:      ClassifyRisk(score),
		Factors:    factors,
		Components: components,
	}
}

// ClassifyRisk bands a risk score: <25 Low, <50 Medium, <75 High, else Critical.
func ClassifyRisk(score float64) Level {
	return classify(score, LevelCritical)
}
