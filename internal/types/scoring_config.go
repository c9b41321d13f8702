package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Scoring config types.
const (
	ConfigTypeBenefit = "benefit_type"
	ConfigTypeEffort  = "effort_type"
)

// ScoringConfig is an admin-editable scoring row keyed by (ConfigType, Name).
// Benefit rows scale raw values into value/time scores; effort rows carry
// Normalizer thresholds as a comma-separated string.
type ScoringConfig struct {
	ID                uuid.UUID `json:"id"`
	ConfigType        string    `json:"config_type" validate:"required,oneof=benefit_type effort_type"`
	Name              string    `json:"name" validate:"required,min=1,max=100"`
	ValueFor100Points float64   `json:"value_for_100_points" validate:"gte=0"`
	ValueUnit         string    `json:"value_unit,omitempty" validate:"max=50"`
	TimeDecayPerMonth float64   `json:"time_decay_per_month" validate:"gte=0"`
	Thresholds        string    `json:"thresholds,omitempty"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Validate validates the ScoringConfig using the validator. A benefit row
// must carry a positive value_for_100_points.
func (c *ScoringConfig) Validate() error {
	validate := validator.New()
	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		cfg := sl.Current().Interface().(ScoringConfig)
		if cfg.ConfigType == ConfigTypeBenefit && cfg.ValueFor100Points <= 0 {
			sl.ReportError(cfg.ValueFor100Points, "ValueFor100Points", "value_for_100_points", "gt", "0")
		}
	}, ScoringConfig{})
	return validate.Struct(c)
}

// EvaluateConfigRequest is the body of POST /scoring-configs/{type}/{name}/evaluate.
type EvaluateConfigRequest struct {
	RawValue    float64  `json:"raw_value" validate:"gte=0"`
	RawTimeline *float64 `json:"raw_timeline,omitempty" validate:"omitempty,gte=0"`
}

// Validate validates the EvaluateConfigRequest using the validator.
func (r *EvaluateConfigRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
