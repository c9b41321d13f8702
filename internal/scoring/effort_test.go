package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffort_HandComputedMinimum(t *testing.T) {
	c := NewEffort(nil)
	f := c.DeriveFactors(nil)

	assert.Equal(t, FactorSet{
		FactorHoursEstimated:        0,
		FactorCostEstimated:         0,
		FactorTeamSize:              1,
		FactorComplexity:            1,
		FactorSystemsAffected:       0,
		FactorTestingRequired:       3,
		FactorDocumentationRequired: 3,
	}, f)

	result := c.Score(f)
	for _, name := range []Factor{FactorHoursEstimated, FactorCostEstimated, FactorTeamSize, FactorSystemsAffected, FactorComplexity} {
		assert.Equal(t, 0.0, result.Components[name], name)
	}
	assert.Equal(t, 50.0, result.Components[FactorTestingRequired])
	assert.Equal(t, 50.0, result.Components[FactorDocumentationRequired])

	// (50×1.2 + 50×1.0) / 10.4 = 10.58
	assert.Equal(t, 11.0, result.Score)
	assert.Equal(t, LevelLow, result.Level)
}

func TestEffort_DeriveFactors_CurrencyCost(t *testing.T) {
	a := mustAttributes(t, `{"estimated_cost": "£12,345.67"}`)
	c := NewEffort(nil)

	f := c.DeriveFactors(a)
	assert.InDelta(t, 12345.67, f[FactorCostEstimated], 1e-9)
	assert.Equal(t, 75.0, c.Score(f).Components[FactorCostEstimated])
}

func TestEffort_DeriveFactors_ComplexityInference(t *testing.T) {
	c := NewEffort(nil)

	tests := []struct {
		doc  string
		want float64
	}{
		{`{"estimated_effort_hours": 7}`, 1},
		{`{"estimated_effort_hours": 8}`, 2},
		{`{"estimated_effort_hours": 100}`, 3},
		{`{"estimated_effort_hours": 399}`, 4},
		{`{"estimated_effort_hours": 400}`, 5},
		{`{"estimated_effort_hours": 400, "complexity": 2}`, 2},
		{`{"complexity": 9}`, 5},
		{`{"complexity": "high"}`, 1},
	}

	for _, tt := range tests {
		f := c.DeriveFactors(mustAttributes(t, tt.doc))
		assert.Equal(t, tt.want, f[FactorComplexity], tt.doc)
	}
}

func TestEffort_DeriveFactors_LenientInputs(t *testing.T) {
	a := mustAttributes(t, `{"team_size": 0, "estimated_effort_hours": -5, "testing_required": "lots", "documentation_required": 7}`)

	f := NewEffort(nil).DeriveFactors(a)
	assert.Equal(t, 1.0, f[FactorTeamSize])
	assert.Equal(t, 0.0, f[FactorHoursEstimated])
	assert.Equal(t, 3.0, f[FactorTestingRequired])
	assert.Equal(t, 5.0, f[FactorDocumentationRequired])
}

func TestEffort_Score_Maximum(t *testing.T) {
	a := mustAttributes(t, `{
		"estimated_effort_hours": 2000,
		"estimated_cost": 100000,
		"team_size": 10,
		"complexity": 5,
		"systems_affected": ["a","b","c","d","e","f"],
		"testing_required": 5,
		"documentation_required": 5
	}`)

	result := NewEffort(nil).AutoCalculate(a)
	assert.Equal(t, 100.0, result.Score)
	assert.Equal(t, LevelVeryHigh, result.Level)
}

func TestEffort_Score_AlwaysIntegerInRange(t *testing.T) {
	c := NewEffort(nil)
	for hours := 0.0; hours < 1500; hours += 37 {
		f := FactorSet{
			FactorHoursEstimated: hours,
			FactorCostEstimated:  hours * 40,
			FactorTeamSize:       math.Mod(hours, 11),
			FactorComplexity:     math.Mod(hours, 6),
		}
		s := c.Score(f).Score
		assert.Equal(t, math.Trunc(s), s)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 100.0)
	}
}

func TestEffort_WithThresholds(t *testing.T) {
	base := NewEffort(nil)
	tuned := base.WithThresholds(map[Factor]Thresholds{
		FactorHoursEstimated: {0, 1, 2, 3, 4},
		FactorUrgency:        {0, 0, 0, 0, 0},
	})

	f := FactorSet{FactorHoursEstimated: 10}
	assert.Equal(t, 100.0, tuned.Score(f).Components[FactorHoursEstimated])
	assert.Equal(t, 25.0, base.Score(f).Components[FactorHoursEstimated])
	assert.Greater(t, tuned.Score(f).Score, base.Score(f).Score)
}

func TestEffort_RoundTrip(t *testing.T) {
	c := NewEffort(nil)
	a := mustAttributes(t, `{"estimated_effort_hours": 120, "team_size": 3, "systems_affected": "api, web"}`)

	assert.Equal(t, c.Score(c.DeriveFactors(a)), c.AutoCalculate(a))
}

func TestClassifyEffort(t *testing.T) {
	tests := []struct {
		score float64
		want  Level
	}{
		{24, LevelLow},
		{25, LevelMedium},
		{49, LevelMedium},
		{50, LevelHigh},
		{74, LevelHigh},
		{75, LevelVeryHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyEffort(tt.score), "score %v", tt.score)
	}
}
