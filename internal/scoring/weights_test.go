package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWeights_CoverEveryFactor(t *testing.T) {
	for _, kind := range AllKinds {
		t.Run(string(kind), func(t *testing.T) {
			require.NoError(t, DefaultWeights(kind).Validate(FactorsFor(kind)))
		})
	}
}

func TestDefaultWeights_FreshCopy(t *testing.T) {
	w := DefaultRiskWeights()
	w[FactorImpactScope] = 99

	assert.Equal(t, 1.5, DefaultRiskWeights()[FactorImpactScope])
}

func TestWeightTable_MergeDoesNotMutate(t *testing.T) {
	base := DefaultEffortWeights()
	override := WeightTable{FactorTeamSize: 3}

	merged := base.Merge(override)

	assert.Equal(t, 3.0, merged[FactorTeamSize])
	assert.Equal(t, 1.5, base[FactorTeamSize])
	assert.Len(t, override, 1)
	assert.Len(t, merged, len(base))
}

func TestWeightTable_Validate(t *testing.T) {
	required := []Factor{FactorUrgency, FactorBusinessValue}

	tests := []struct {
		name    string
		table   WeightTable
		wantErr string
	}{
		{"empty", WeightTable{}, "empty"},
		{"missing", WeightTable{FactorUrgency: 1}, "businessValue"},
		{"zero", WeightTable{FactorUrgency: 1, FactorBusinessValue: 0}, "positive"},
		{"negative", WeightTable{FactorUrgency: -1, FactorBusinessValue: 1}, "positive"},
		{"ok", WeightTable{FactorUrgency: 1, FactorBusinessValue: 2}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate(required)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFactorsFor_UnknownKind(t *testing.T) {
	assert.Nil(t, FactorsFor("unknown"))
	assert.Nil(t, DefaultWeights("unknown"))
}

func TestMatchFactor(t *testing.T) {
	tests := []struct {
		kind Kind
		name string
		want Factor
		ok   bool
	}{
		{KindBenefit, "revenue_improvement", FactorRevenueImprovement, true},
		{KindBenefit, "Revenue Improvement", FactorRevenueImprovement, true},
		{KindBenefit, "cost_reduction", FactorCostSavings, true},
		{KindBenefit, "internal_qol", FactorInternalQoL, true},
		{KindEffort, "hours_estimated", FactorHoursEstimated, true},
		{KindEffort, "team", FactorTeamSize, true},
		{KindEffort, "revenue", "", false},
		{KindRisk, "nonsense", "", false},
	}

	for _, tt := range tests {
		got, ok := MatchFactor(tt.kind, tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("effort")
	assert.True(t, ok)
	assert.Equal(t, KindEffort, k)

	_, ok = ParseKind("Effort")
	assert.False(t, ok)
}
