package scoring

import (
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/jonathan/change-scorer/internal/types"
)

// Inline divisors used when no scoring config is active for a category.
const (
	revenuePerPoint      = 10000.0
	savingsPerPoint      = 8000.0
	processPercentPerPt  = 10.0
	internalUsersPerPt   = 10.0
	monthsPerTimePoint   = 6.0
	costSavingsTimeScore = 5.0
	maxCategoryScore     = 10.0
	minRevenueTimeScore  = 1.0

	defaultSatisfaction    = 5.0
	strategicFlagged       = 8.0
	strategicUnflagged     = 5.0
	benefitScale           = 10.0
	maxBenefitScore        = 100.0
	benefitDecimals        = 1
	configDecayScaleFactor = 10.0
)

// CategoryScore is the sub-scoring of one benefit category.
type CategoryScore struct {
	Category      Factor   `json:"category"`
	RawValue      float64  `json:"raw_value"`
	RawTimeline   *float64 `json:"raw_timeline,omitempty"`
	ValueScore    float64  `json:"value_score"`
	TimeScore     *float64 `json:"time_score,omitempty"`
	CombinedScore float64  `json:"combined_score"`
}

// CategoryDetail is a CategoryScore with its weighted contribution.
type CategoryDetail struct {
	CategoryScore
	Weight        float64 `json:"weight"`
	WeightedScore float64 `json:"weighted_score"`
}

// Benefit scores the expected payoff of a change across up to six categories.
// Only categories whose flag is set and whose detail block is present take
// part; strategicAlignment always does.
type Benefit struct {
	weights WeightTable
	configs map[Factor]types.ScoringConfig
}

// NewBenefit builds a benefit calculator. weights overrides individual
// entries of the built-in table; nil means defaults only.
func NewBenefit(weights WeightTable) *Benefit {
	return &Benefit{weights: withDefaults(KindBenefit, weights)}
}

// WithConfigs returns a copy of the calculator that scales category values
// with the given scoring configs instead of the inline divisors. Only active
// benefit_type rows are used; names match categories ignoring case, spaces
// and underscores, so "revenue_improvement" binds to revenueImprovement.
func (c *Benefit) WithConfigs(configs []types.ScoringConfig) *Benefit {
	out := &Benefit{weights: c.weights, configs: maps.Clone(c.configs)}
	for _, cfg := range configs {
		if !cfg.IsActive || cfg.ConfigType != types.ConfigTypeBenefit || cfg.ValueFor100Points <= 0 {
			continue
		}
		name, ok := MatchFactor(KindBenefit, cfg.Name)
		if !ok {
			continue
		}
		if out.configs == nil {
			out.configs = make(map[Factor]types.ScoringConfig)
		}
		out.configs[name] = cfg
	}
	return out
}

// Weights returns a copy of the table in use.
func (c *Benefit) Weights() WeightTable {
	return c.weights.Clone()
}

// Categories evaluates every applicable category with its value/time split.
func (c *Benefit) Categories(a *types.Attributes) []CategoryScore {
	if a == nil {
		a = &types.Attributes{}
	}
	reasons := a.ChangeReasons
	var out []CategoryScore

	if reasons.RevenueImprovement && a.RevenueDetails != nil {
		out = append(out, c.revenue(a.RevenueDetails))
	}
	if reasons.CostReduction && a.CostDetails != nil {
		out = append(out, c.costSavings(a.CostDetails))
	}
	if reasons.CustomerImpact && a.CustomerDetails != nil {
		rating := clamp(a.CustomerDetails.SatisfactionRating.Or(defaultSatisfaction), 1, maxCategoryScore)
		out = append(out, plain(FactorCustomerImpact, rating, rating))
	}
	if reasons.ProcessImprovement && a.ProcessDetails != nil {
		raw := math.Max(0, a.ProcessDetails.EfficiencyGainPercent.Or(0))
		out = append(out, plain(FactorProcessImprovement, raw, c.valueScore(FactorProcessImprovement, raw, processPercentPerPt)))
	}
	if reasons.InternalQoL && a.InternalDetails != nil {
		raw := math.Max(0, a.InternalDetails.UsersAffected.Or(0))
		out = append(out, plain(FactorInternalQoL, raw, c.valueScore(FactorInternalQoL, raw, internalUsersPerPt)))
	}

	strategic := strategicUnflagged
	if reasons.RevenueImprovement || reasons.CostReduction {
		strategic = strategicFlagged
	}
	out = append(out, plain(FactorStrategicAlignment, strategic, strategic))

	return out
}

// DeriveFactors returns the combined score of each applicable category.
// Categories that do not apply are absent, not zero.
func (c *Benefit) DeriveFactors(a *types.Attributes) FactorSet {
	categories := c.Categories(a)
	out := make(FactorSet, len(categories))
	for _, cat := range categories {
		out[cat.Category] = cat.CombinedScore
	}
	return out
}

// Score averages the present categories by weight and scales to 0-100.
func (c *Benefit) Score(f FactorSet) Result {
	return c.score(f, c.weights, nil)
}

// ScoreWith scores with a per-call weight override.
func (c *Benefit) ScoreWith(f FactorSet, override WeightTable) Result {
	return c.score(f, c.weights.Merge(override), nil)
}

// AutoCalculate derives factors and scores them in one step.
func (c *Benefit) AutoCalculate(a *types.Attributes) Result {
	return c.Score(c.DeriveFactors(a))
}

// Assess is AutoCalculate with the full per-category value/time breakdown
// attached to the result.
func (c *Benefit) Assess(a *types.Attributes) Result {
	categories := c.Categories(a)
	f := make(FactorSet, len(categories))
	byName := make(map[Factor]CategoryScore, len(categories))
	for _, cat := range categories {
		f[cat.Category] = cat.CombinedScore
		byName[cat.Category] = cat
	}
	return c.score(f, c.weights, byName)
}

func (c *Benefit) score(f FactorSet, weights WeightTable, detail map[Factor]CategoryScore) Result {
	factors := make(FactorSet, len(f))
	var categories []CategoryDetail
	var total, totalWeight float64

	for _, name := range benefitFactors {
		v, ok := f[name]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		v = math.Max(0, v)
		factors[name] = v

		w := weights[name]
		if w <= 0 {
			continue
		}
		total += v * w
		totalWeight += w

		cat, ok := detail[name]
		if !ok {
			cat = CategoryScore{Category: name, ValueScore: v, CombinedScore: v}
		}
		categories = append(categories, CategoryDetail{
			CategoryScore: cat,
			Weight:        w,
			WeightedScore: Round(v*w, 2),
		})
	}

	var score float64
	if totalWeight > 0 {
		score = clamp(total/totalWeight*benefitScale, 0, maxBenefitScore)
	}

	return Result{
		Kind:       KindBenefit,
		Score:      Round(score, benefitDecimals),
		Factors:    factors,
		Categories: categories,
	}
}

func (c *Benefit) revenue(d *types.RevenueDetails) CategoryScore {
	raw := math.Max(0, d.Revenue.Or(0))
	months := math.Max(0, d.TimelineMonths.Or(0))

	value := c.valueScore(FactorRevenueImprovement, raw, revenuePerPoint)

	decay := 1 / monthsPerTimePoint
	if cfg, ok := c.configs[FactorRevenueImprovement]; ok {
		decay = cfg.TimeDecayPerMonth / configDecayScaleFactor
	}
	timeScore := math.Max(minRevenueTimeScore, maxCategoryScore-months*decay)

	out := CategoryScore{
		Category:      FactorRevenueImprovement,
		RawValue:      raw,
		ValueScore:    value,
		TimeScore:     &timeScore,
		CombinedScore: value + timeScore,
	}
	if d.TimelineMonths.Valid {
		out.RawTimeline = &months
	}
	return out
}

func (c *Benefit) costSavings(d *types.CostDetails) CategoryScore {
	raw := math.Max(0, d.Savings.Or(0))
	value := c.valueScore(FactorCostSavings, raw, savingsPerPoint)
	timeScore := costSavingsTimeScore
	return CategoryScore{
		Category:      FactorCostSavings,
		RawValue:      raw,
		ValueScore:    value,
		TimeScore:     &timeScore,
		CombinedScore: value + timeScore,
	}
}

// valueScore scales raw onto 0-10, using an active config's
// valueFor100Points when one is bound to the category.
func (c *Benefit) valueScore(name Factor, raw, perPoint float64) float64 {
	if cfg, ok := c.configs[name]; ok {
		return math.Min(maxCategoryScore, raw/cfg.ValueFor100Points*maxCategoryScore)
	}
	return math.Min(maxCategoryScore, raw/perPoint)
}

func plain(name Factor, raw, score float64) CategoryScore {
	return CategoryScore{Category: name, RawValue: raw, ValueScore: score, CombinedScore: score}
}

// MatchFactor resolves a loosely written factor name ("Revenue_Improvement",
// "revenue improvement") to one of the calculator's factors.
func MatchFactor(kind Kind, name string) (Factor, bool) {
	key := foldName(name)
	if alias, ok := factorAliases[key]; ok && slices.Contains(FactorsFor(kind), alias) {
		return alias, true
	}
	for _, f := range FactorsFor(kind) {
		if foldName(string(f)) == key {
			return f, true
		}
	}
	return "", false
}

// factorAliases maps the change-reason spelling of a category to its factor.
var factorAliases = map[string]Factor{
	"costreduction": FactorCostSavings,
	"revenue":       FactorRevenueImprovement,
	"internal":      FactorInternalQoL,
	"process":       FactorProcessImprovement,
	"customer":      FactorCustomerImpact,
	"hours":         FactorHoursEstimated,
	"cost":          FactorCostEstimated,
	"team":          FactorTeamSize,
	"systems":       FactorSystemsAffected,
}

func foldName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}
		return r
	}, strings.ToLower(s))
}
