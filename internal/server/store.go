package server

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonathan/change-scorer/internal/db"
	"github.com/jonathan/change-scorer/internal/types"
)

// Store is the persistence surface the server needs. *db.DB implements it;
// tests substitute an in-memory fake.
type Store interface {
	Ping(ctx context.Context) error
	Close()

	CreateUser(ctx context.Context, name, email, passwordHash string) (uuid.UUID, error)
	GetUser(ctx context.Context, id uuid.UUID) (*db.User, error)
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)

	CreateChangeRequest(ctx context.Context, in db.NewChangeRequest) (*db.ChangeRequest, error)
	GetChangeRequest(ctx context.Context, id uuid.UUID) (*db.ChangeRequest, error)
	ListChangeRequests(ctx context.Context, filter db.ListFilter) ([]db.ChangeRequest, error)
	ListByPriority(ctx context.Context, filter db.ListFilter) ([]db.ChangeRequest, error)
	UpdateChangeRequest(ctx context.Context, id uuid.UUID, upd db.ChangeRequestUpdate) (*db.ChangeRequest, error)
	DeleteChangeRequest(ctx context.Context, id uuid.UUID) (bool, error)
	SaveScores(ctx context.Context, id uuid.UUID, scores db.ScoreSet) (bool, error)

	CreateScoringConfig(ctx context.Context, cfg *types.ScoringConfig) (*types.ScoringConfig, error)
	GetScoringConfig(ctx context.Context, configType, name string) (*types.ScoringConfig, error)
	ListScoringConfigs(ctx context.Context, configType string, activeOnly bool) ([]types.ScoringConfig, error)
	UpdateScoringConfig(ctx context.Context, cfg *types.ScoringConfig) (*types.ScoringConfig, error)
	DeleteScoringConfig(ctx context.Context, configType, name string) (bool, error)
}

var _ Store = (*db.DB)(nil)
