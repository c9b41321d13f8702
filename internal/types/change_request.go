package types

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

// Change request workflow states.
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCompleted = "completed"
)

// CreateChangeRequest is the body of POST /requests.
type CreateChangeRequest struct {
	Title       string          `json:"title" validate:"required,min=1,max=200"`
	Description string          `json:"description,omitempty" validate:"max=5000"`
	Status      string          `json:"status,omitempty" validate:"omitempty,oneof=draft submitted approved rejected completed"`
	Attributes  json.RawMessage `json:"attributes" validate:"required"`
}

// UpdateChangeRequest is the body of PUT /requests/{id}.
// Nil fields are left unchanged.
type UpdateChangeRequest struct {
	Title       *string         `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=5000"`
	Status      *string         `json:"status,omitempty" validate:"omitempty,oneof=draft submitted approved rejected completed"`
	Attributes  json.RawMessage `json:"attributes,omitempty"`
}

// RankRequestItem is one entry in a ranking batch: an identifier plus either
// a raw attribute bag or an explicit set of priority factors.
type RankRequestItem struct {
	ID         string             `json:"id" validate:"required"`
	Attributes json.RawMessage    `json:"attributes,omitempty"`
	Factors    map[string]float64 `json:"factors,omitempty"`
}

// RankRequest is the body of POST /rank.
type RankRequest struct {
	Items   []RankRequestItem  `json:"items" validate:"required,min=1,dive"`
	Weights map[string]float64 `json:"weights,omitempty"`
}

// ScoreFactorsRequest is the body of POST /score/{kind}/factors: an explicit
// factor set with optional per-call weight overrides.
type ScoreFactorsRequest struct {
	Factors map[string]float64 `json:"factors" validate:"required,min=1"`
	Weights map[string]float64 `json:"weights,omitempty"`
}

// Validate validates the CreateChangeRequest using the validator.
func (r *CreateChangeRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the UpdateChangeRequest using the validator.
func (r *UpdateChangeRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the RankRequest using the validator.
func (r *RankRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the ScoreFactorsRequest using the validator.
func (r *ScoreFactorsRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
