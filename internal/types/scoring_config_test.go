package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoringConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		config ScoringConfig
		errMsg string
	}{
		{
			name:   "benefit",
			config: ScoringConfig{ConfigType: ConfigTypeBenefit, Name: "revenue_improvement", ValueFor100Points: 100000, TimeDecayPerMonth: 5},
		},
		{
			name:   "effort without scale",
			config: ScoringConfig{ConfigType: ConfigTypeEffort, Name: "hours_estimated", Thresholds: "8,40,80,160,320"},
		},
		{
			name:   "benefit without scale",
			config: ScoringConfig{ConfigType: ConfigTypeBenefit, Name: "revenue_improvement"},
			errMsg: "ValueFor100Points",
		},
		{
			name:   "unknown type",
			config: ScoringConfig{ConfigType: "speed_type", Name: "x"},
			errMsg: "oneof",
		},
		{
			name:   "negative decay",
			config: ScoringConfig{ConfigType: ConfigTypeBenefit, Name: "x", ValueFor100Points: 1, TimeDecayPerMonth: -1},
			errMsg: "TimeDecayPerMonth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestEvaluateConfigRequest_Validate(t *testing.T) {
	require.NoError(t, (&EvaluateConfigRequest{RawValue: 10}).Validate())
	assert.Error(t, (&EvaluateConfigRequest{RawValue: -1}).Validate())

	timeline := -2.0
	assert.Error(t, (&EvaluateConfigRequest{RawValue: 1, RawTimeline: &timeline}).Validate())
}
