package scoring

import (
	"math"

	"github.com/jonathan/change-scorer/internal/types"
)

const maxConfigSubScore = 100.0

// ConfigScore evaluates a raw value against a persisted benefit_type config.
// The value score is min(100, raw/valueFor100Points×100). The time score is
// max(0, 100 − timeline×timeDecayPerMonth) and is only computed when a
// timeline is given. The combined score is their sum, so it ranges 0-200.
func ConfigScore(cfg types.ScoringConfig, raw float64, timeline *float64) CategoryScore {
	raw = math.Max(0, raw)

	var value float64
	if cfg.ValueFor100Points > 0 {
		value = math.Min(maxConfigSubScore, raw/cfg.ValueFor100Points*maxConfigSubScore)
	}

	out := CategoryScore{
		Category:      Factor(cfg.Name),
		RawValue:      raw,
		ValueScore:    Round(value, 2),
		CombinedScore: Round(value, 2),
	}

	if timeline != nil {
		t := math.Max(0, *timeline)
		ts := Round(math.Max(0, maxConfigSubScore-t*cfg.TimeDecayPerMonth), 2)
		out.RawTimeline = &t
		out.TimeScore = &ts
		out.CombinedScore = Round(value+ts, 2)
	}

	return out
}

// EffortThresholds collects threshold overrides from active effort_type
// configs, keyed by the effort factor each config name resolves to.
// Rows with unparseable thresholds are reported in the returned error map
// and skipped.
func EffortThresholds(configs []types.ScoringConfig) (map[Factor]Thresholds, map[string]error) {
	out := make(map[Factor]Thresholds)
	var bad map[string]error
	for _, cfg := range configs {
		if !cfg.IsActive || cfg.ConfigType != types.ConfigTypeEffort || cfg.Thresholds == "" {
			continue
		}
		name, ok := MatchFactor(KindEffort, cfg.Name)
		if !ok {
			continue
		}
		t, err := ParseThresholds(cfg.Thresholds)
		if err != nil {
			if bad == nil {
				bad = make(map[string]error)
			}
			bad[cfg.Name] = err
			continue
		}
		out[name] = t
	}
	return out, bad
}
