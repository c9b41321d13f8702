package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/change-scorer/internal/scoring"
)

// User represents an account that can create and edit change requests
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // Never serialize to JSON
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ChangeRequest is a stored request with its raw attribute bag and the most
// recently calculated scores.
type ChangeRequest struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	Attributes  json.RawMessage `json:"attributes"`
	CreatedBy   *uuid.UUID      `json:"created_by,omitempty"`
	Scores      ScoreSet        `json:"scores"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ScoreSet holds the persisted output of each calculator. A nil entry has
// not been calculated yet.
type ScoreSet struct {
	Risk         *scoring.Result `json:"risk,omitempty"`
	Effort       *scoring.Result `json:"effort,omitempty"`
	Benefit      *scoring.Result `json:"benefit,omitempty"`
	Priority     *scoring.Result `json:"priority,omitempty"`
	CalculatedAt *time.Time      `json:"calculated_at,omitempty"`
}

// NewChangeRequest is the input to CreateChangeRequest.
type NewChangeRequest struct {
	Title       string
	Description string
	Status      string
	Attributes  json.RawMessage
	CreatedBy   *uuid.UUID
}

// ChangeRequestUpdate carries the fields to change; nil leaves a field as is.
type ChangeRequestUpdate struct {
	Title       *string
	Description *string
	Status      *string
	Attributes  json.RawMessage
}

// ListFilter narrows ListChangeRequests. A zero Limit means no limit.
type ListFilter struct {
	Status string
	Limit  int
	Offset int
}

// Results returns the calculated entries in calculator order, skipping nil ones.
func (s ScoreSet) Results() []scoring.Result {
	var out []scoring.Result
	for _, r := range []*scoring.Result{s.Risk, s.Effort, s.Benefit, s.Priority} {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
