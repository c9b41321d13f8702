package server

import (
	"fmt"

	"github.com/jonathan/change-scorer/internal/config"
	"github.com/jonathan/change-scorer/internal/db"
	"github.com/jonathan/change-scorer/internal/ranking"
	"github.com/jonathan/change-scorer/internal/scoring"
	"github.com/jonathan/change-scorer/internal/types"
)

// calculator is the shape shared by the four scorers.
type calculator interface {
	DeriveFactors(a *types.Attributes) scoring.FactorSet
	Score(f scoring.FactorSet) scoring.Result
	ScoreWith(f scoring.FactorSet, override scoring.WeightTable) scoring.Result
	AutoCalculate(a *types.Attributes) scoring.Result
}

// Engine bundles one calculator per kind. It is immutable; WithConfigs
// returns a new Engine.
type Engine struct {
	risk     *scoring.Risk
	effort   *scoring.Effort
	benefit  *scoring.Benefit
	priority *ranking.Priority
}

// NewEngine builds calculators from per-kind weight overrides. Missing kinds
// use the built-in tables.
func NewEngine(weights map[scoring.Kind]scoring.WeightTable) *Engine {
	return &Engine{
		risk:     scoring.NewRisk(weights[scoring.KindRisk]),
		effort:   scoring.NewEffort(weights[scoring.KindEffort]),
		benefit:  scoring.NewBenefit(weights[scoring.KindBenefit]),
		priority: ranking.NewPriority(weights[scoring.KindPriority]),
	}
}

// EngineFromConfig builds an Engine from the weight overrides in cfg.
func EngineFromConfig(cfg *config.Config) (*Engine, error) {
	weights := make(map[scoring.Kind]scoring.WeightTable, len(scoring.AllKinds))
	for _, kind := range scoring.AllKinds {
		w, err := cfg.WeightTable(kind)
		if err != nil {
			return nil, err
		}
		weights[kind] = w
	}
	return NewEngine(weights), nil
}

// WithConfigs applies stored scoring configs: benefit_type rows rescale the
// benefit categories and effort_type rows replace normalizer thresholds.
// Rows whose thresholds cannot be parsed are skipped and reported by name.
func (e *Engine) WithConfigs(configs []types.ScoringConfig) (*Engine, map[string]error) {
	thresholds, bad := scoring.EffortThresholds(configs)
	return &Engine{
		risk:     e.risk,
		effort:   e.effort.WithThresholds(thresholds),
		benefit:  e.benefit.WithConfigs(configs),
		priority: e.priority,
	}, bad
}

// Priority returns the priority calculator, which also ranks.
func (e *Engine) Priority() *ranking.Priority {
	return e.priority
}

func (e *Engine) calculator(kind scoring.Kind) (calculator, error) {
	switch kind {
	case scoring.KindRisk:
		return e.risk, nil
	case scoring.KindEffort:
		return e.effort, nil
	case scoring.KindBenefit:
		return e.benefit, nil
	case scoring.KindPriority:
		return e.priority, nil
	default:
		return nil, fmt.Errorf("unknown calculator %q", kind)
	}
}

// Score auto-calculates one kind from an attribute bag. Benefit results carry
// the per-category breakdown.
func (e *Engine) Score(kind scoring.Kind, a *types.Attributes) (scoring.Result, error) {
	if kind == scoring.KindBenefit {
		return e.benefit.Assess(a), nil
	}
	calc, err := e.calculator(kind)
	if err != nil {
		return scoring.Result{}, err
	}
	return calc.AutoCalculate(a), nil
}

// ScoreFactors scores an explicit factor set, merging override over the
// calculator's weights when given.
func (e *Engine) ScoreFactors(kind scoring.Kind, f scoring.FactorSet, override scoring.WeightTable) (scoring.Result, error) {
	calc, err := e.calculator(kind)
	if err != nil {
		return scoring.Result{}, err
	}
	if len(override) > 0 {
		return calc.ScoreWith(f, override), nil
	}
	return calc.Score(f), nil
}

// ScoreAll runs every calculator over the same bag. CalculatedAt is left for
// the caller to stamp.
func (e *Engine) ScoreAll(a *types.Attributes) db.ScoreSet {
	risk := e.risk.AutoCalculate(a)
	effort := e.effort.AutoCalculate(a)
	benefit := e.benefit.Assess(a)
	priority := e.priority.AutoCalculate(a)
	return db.ScoreSet{
		Risk:     &risk,
		Effort:   &effort,
		Benefit:  &benefit,
		Priority: &priority,
	}
}

// Rank builds candidates from the request items and ranks them by priority,
// merging the request's weight override when given. Each item supplies either
// explicit priority factors or an attribute bag.
func (e *Engine) Rank(req types.RankRequest) ([]ranking.RankedRequest, error) {
	calc := e.priority
	override, err := WeightTableFor(scoring.KindPriority, req.Weights)
	if err != nil {
		return nil, &ErrValidation{Field: "weights", Message: err.Error()}
	}
	if len(override) > 0 {
		calc = ranking.NewPriority(calc.Weights().Merge(override))
	}

	candidates := make([]ranking.Candidate, 0, len(req.Items))
	for _, item := range req.Items {
		var factors scoring.FactorSet
		if len(item.Factors) > 0 {
			factors, err = FactorSetFor(scoring.KindPriority, item.Factors)
			if err != nil {
				return nil, &ErrValidation{Field: "items." + item.ID, Message: err.Error()}
			}
		} else {
			attrs, err := types.ParseAttributes(item.Attributes)
			if err != nil {
				return nil, &ErrValidation{Field: "items." + item.ID, Message: "attributes must be a JSON object"}
			}
			factors = calc.DeriveFactors(attrs)
		}
		candidates = append(candidates, ranking.Candidate{ID: item.ID, Factors: factors})
	}
	return calc.Rank(candidates), nil
}

// FactorSetFor converts loosely-named factors into a FactorSet for kind.
// Names match case-insensitively and ignore separators.
func FactorSetFor(kind scoring.Kind, raw map[string]float64) (scoring.FactorSet, error) {
	out := make(scoring.FactorSet, len(raw))
	for name, v := range raw {
		factor, ok := scoring.MatchFactor(kind, name)
		if !ok {
			return nil, fmt.Errorf("unknown %s factor %q", kind, name)
		}
		out[factor] = v
	}
	return out, nil
}

// WeightTableFor converts loosely-named weights into a WeightTable for kind.
// Every weight must be positive.
func WeightTableFor(kind scoring.Kind, raw map[string]float64) (scoring.WeightTable, error) {
	f, err := FactorSetFor(kind, raw)
	if err != nil {
		return nil, err
	}
	out := make(scoring.WeightTable, len(f))
	for name, w := range f {
		if w <= 0 {
			return nil, fmt.Errorf("weight for %s must be positive, got %v", name, w)
		}
		out[name] = w
	}
	return out, nil
}
