package scoring

import (
	"testing"

	"github.com/jonathan/change-scorer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestConfigScore(t *testing.T) {
	cfg := types.ScoringConfig{
		ConfigType:        types.ConfigTypeBenefit,
		Name:              "revenue_improvement",
		ValueFor100Points: 50000,
		TimeDecayPerMonth: 2,
		IsActive:          true,
	}

	tests := []struct {
		name      string
		raw       float64
		timeline  *float64
		wantValue float64
		wantTime  *float64
		wantTotal float64
	}{
		{"half value with timeline", 25000, ptr(10), 50, ptr(80), 130},
		{"value capped at 100", 100000, ptr(0), 100, ptr(100), 200},
		{"time floored at 0", 50000, ptr(60), 100, ptr(0), 100},
		{"no timeline", 12500, nil, 25, nil, 25},
		{"negative raw", -10, nil, 0, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConfigScore(cfg, tt.raw, tt.timeline)
			assert.Equal(t, Factor("revenue_improvement"), got.Category)
			assert.Equal(t, tt.wantValue, got.ValueScore)
			assert.Equal(t, tt.wantTotal, got.CombinedScore)
			if tt.wantTime == nil {
				assert.Nil(t, got.TimeScore)
				assert.Nil(t, got.RawTimeline)
				return
			}
			require.NotNil(t, got.TimeScore)
			assert.Equal(t, *tt.wantTime, *got.TimeScore)
		})
	}
}

func TestConfigScore_ZeroValueFor100Points(t *testing.T) {
	got := ConfigScore(types.ScoringConfig{Name: "broken"}, 5000, nil)
	assert.Equal(t, 0.0, got.ValueScore)
}

func TestEffortThresholds(t *testing.T) {
	configs := []types.ScoringConfig{
		{ConfigType: types.ConfigTypeEffort, Name: "hours_estimated", Thresholds: "0,10,20,30,40", IsActive: true},
		{ConfigType: types.ConfigTypeEffort, Name: "team_size", Thresholds: "1,2", IsActive: true},
		{ConfigType: types.ConfigTypeEffort, Name: "cost_estimated", Thresholds: "0,1,2,3,4", IsActive: false},
		{ConfigType: types.ConfigTypeBenefit, Name: "systems_affected", Thresholds: "0,1,2,3,4", IsActive: true},
		{ConfigType: types.ConfigTypeEffort, Name: "unknown", Thresholds: "0,1,2,3,4", IsActive: true},
	}

	got, bad := EffortThresholds(configs)

	assert.Equal(t, map[Factor]Thresholds{FactorHoursEstimated: {0, 10, 20, 30, 40}}, got)
	require.Len(t, bad, 1)
	assert.Error(t, bad["team_size"])
}
