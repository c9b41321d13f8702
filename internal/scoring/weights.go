package scoring

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// WeightTable maps factor names to positive multipliers.
type WeightTable map[Factor]float64

// Clone returns an independent copy.
func (w WeightTable) Clone() WeightTable {
	if w == nil {
		return nil
	}
	return maps.Clone(w)
}

// Merge returns a new table holding w overlaid with override.
// Neither input is modified.
func (w WeightTable) Merge(override WeightTable) WeightTable {
	out := make(WeightTable, len(w)+len(override))
	maps.Copy(out, w)
	maps.Copy(out, override)
	return out
}

// Validate checks that every required factor has a weight and that all
// weights are strictly positive.
func (w WeightTable) Validate(required []Factor) error {
	if len(w) == 0 {
		return fmt.Errorf("weight table is empty")
	}
	var missing []string
	for _, name := range required {
		if _, ok := w[name]; !ok {
			missing = append(missing, string(name))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("weight table is missing factors: %s", strings.Join(missing, ", "))
	}
	for _, name := range slices.Sorted(maps.Keys(w)) {
		if w[name] <= 0 {
			return fmt.Errorf("weight for %s must be positive, got %v", name, w[name])
		}
	}
	return nil
}

// Risk factors.
const (
	FactorImpactScope        Factor = "impactScope"
	FactorBusinessCritical   Factor = "businessCritical"
	FactorComplexity         Factor = "complexity"
	FactorTestingCoverage    Factor = "testingCoverage"
	FactorRollbackCapability Factor = "rollbackCapability"
	FactorChangeSize         Factor = "changeSize"
	FactorTimeWindow         Factor = "timeWindow"
	FactorDependencyCount    Factor = "dependencyCount"
	FactorHistoricalFailures Factor = "historicalFailures"
	FactorFinancialImpact    Factor = "financialImpact"
)

// Effort factors. FactorComplexity is shared with risk.
const (
	FactorHoursEstimated        Factor = "hoursEstimated"
	FactorCostEstimated         Factor = "costEstimated"
	FactorTeamSize              Factor = "teamSize"
	FactorSystemsAffected       Factor = "systemsAffected"
	FactorTestingRequired       Factor = "testingRequired"
	FactorDocumentationRequired Factor = "documentationRequired"
)

// Benefit categories.
const (
	FactorRevenueImprovement Factor = "revenueImprovement"
	FactorCostSavings        Factor = "costSavings"
	FactorCustomerImpact     Factor = "customerImpact"
	FactorProcessImprovement Factor = "processImprovement"
	FactorInternalQoL        Factor = "internalQoL"
	FactorStrategicAlignment Factor = "strategicAlignment"
)

// Prioritization factors. FactorImpactScope, FactorStrategicAlignment and
// FactorCustomerImpact are shared with the other calculators.
const (
	FactorBusinessValue       Factor = "businessValue"
	FactorUrgency             Factor = "urgency"
	FactorRiskLevel           Factor = "riskLevel"
	FactorResourceRequirement Factor = "resourceRequirement"
	FactorDependency          Factor = "dependency"
)

var (
	riskFactors = []Factor{
		FactorImpactScope, FactorBusinessCritical, FactorComplexity, FactorTestingCoverage,
		FactorRollbackCapability, FactorChangeSize, FactorTimeWindow, FactorDependencyCount,
		FactorHistoricalFailures, FactorFinancialImpact,
	}
	effortFactors = []Factor{
		FactorHoursEstimated, FactorCostEstimated, FactorTeamSize, FactorComplexity,
		FactorSystemsAffected, FactorTestingRequired, FactorDocumentationRequired,
	}
	benefitFactors = []Factor{
		FactorRevenueImprovement, FactorCostSavings, FactorCustomerImpact,
		FactorProcessImprovement, FactorInternalQoL, FactorStrategicAlignment,
	}
	priorityFactors = []Factor{
		FactorBusinessValue, FactorUrgency, FactorImpactScope, FactorRiskLevel,
		FactorResourceRequirement, FactorDependency, FactorStrategicAlignment, FactorCustomerImpact,
	}
)

// FactorsFor returns the factor names a calculator defines, in display order.
func FactorsFor(kind Kind) []Factor {
	switch kind {
	case KindRisk:
		return slices.Clone(riskFactors)
	case KindEffort:
		return slices.Clone(effortFactors)
	case KindBenefit:
		return slices.Clone(benefitFactors)
	case KindPriority:
		return slices.Clone(priorityFactors)
	default:
		return nil
	}
}

// DefaultRiskWeights returns a fresh copy of the built-in risk weights.
func DefaultRiskWeights() WeightTable {
	return WeightTable{
		FactorImpactScope:        1.5,
		FactorBusinessCritical:   1.8,
		FactorComplexity:         1.3,
		FactorTestingCoverage:    1.2,
		FactorRollbackCapability: 1.4,
		FactorChangeSize:         1.1,
		FactorTimeWindow:         1.0,
		FactorDependencyCount:    1.2,
		FactorHistoricalFailures: 1.6,
		FactorFinancialImpact:    1.7,
	}
}

// DefaultEffortWeights returns a fresh copy of the built-in effort weights.
func DefaultEffortWeights() WeightTable {
	return WeightTable{
		FactorHoursEstimated:        2.0,
		FactorCostEstimated:         1.8,
		FactorTeamSize:              1.5,
		FactorComplexity:            1.6,
		FactorSystemsAffected:       1.3,
		FactorTestingRequired:       1.2,
		FactorDocumentationRequired: 1.0,
	}
}

// DefaultBenefitWeights returns a fresh copy of the built-in benefit weights.
func DefaultBenefitWeights() WeightTable {
	return WeightTable{
		FactorRevenueImprovement: 2.0,
		FactorCostSavings:        1.8,
		FactorCustomerImpact:     1.6,
		FactorProcessImprovement: 1.3,
		FactorInternalQoL:        1.0,
		FactorStrategicAlignment: 1.5,
	}
}

// DefaultPriorityWeights returns a fresh copy of the built-in prioritization weights.
func DefaultPriorityWeights() WeightTable {
	return WeightTable{
		FactorBusinessValue:       2.0,
		FactorUrgency:             1.8,
		FactorImpactScope:         1.5,
		FactorRiskLevel:           1.3,
		FactorResourceRequirement: 1.0,
		FactorDependency:          1.2,
		FactorStrategicAlignment:  1.7,
		FactorCustomerImpact:      1.6,
	}
}

// DefaultWeights returns the built-in table for a calculator.
func DefaultWeights(kind Kind) WeightTable {
	switch kind {
	case KindRisk:
		return DefaultRiskWeights()
	case KindEffort:
		return DefaultEffortWeights()
	case KindBenefit:
		return DefaultBenefitWeights()
	case KindPriority:
		return DefaultPriorityWeights()
	default:
		return nil
	}
}

// withDefaults overlays override on a fresh default table.
func withDefaults(kind Kind, override WeightTable) WeightTable {
	return DefaultWeights(kind).Merge(override)
}
