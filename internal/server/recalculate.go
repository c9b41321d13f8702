package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/change-scorer/internal/config"
	"github.com/jonathan/change-scorer/internal/db"
	"golang.org/x/sync/errgroup"
)

// EngineSource returns the engine to score with, reflecting current configs.
type EngineSource func(ctx context.Context) (*Engine, error)

// Recalculator re-scores stored change requests and persists the results.
type Recalculator struct {
	store   Store
	engine  EngineSource
	workers int
	logger  *slog.Logger
	now     func() time.Time
}

// RecalculateSummary reports the outcome of a batch recalculation.
type RecalculateSummary struct {
	Total     int                  `json:"total"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	Failures  []RecalculateFailure `json:"failures,omitempty"`
}

// RecalculateFailure names a request that could not be re-scored.
type RecalculateFailure struct {
	ID    uuid.UUID `json:"id"`
	Error string    `json:"error"`
}

// NewRecalculator creates a Recalculator running at most workers requests
// concurrently.
func NewRecalculator(store Store, engine EngineSource, workers int, logger *slog.Logger) *Recalculator {
	if workers < 1 {
		workers = config.DefaultBatchWorkers
	}
	return &Recalculator{
		store:   store,
		engine:  engine,
		workers: workers,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// One re-scores a single request and returns it with its new scores.
func (rc *Recalculator) One(ctx context.Context, id uuid.UUID) (*db.ChangeRequest, error) {
	cr, err := rc.store.GetChangeRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if cr == nil {
		return nil, &ErrNotFound{Resource: "change request", ID: id.String()}
	}

	engine, err := rc.engine(ctx)
	if err != nil {
		return nil, err
	}
	if err := rc.recalculate(ctx, engine, cr); err != nil {
		return nil, err
	}
	return cr, nil
}

// All re-scores every request matching filter. Failures of individual
// requests are collected in the summary; only cancellation or a failure to
// list aborts the batch.
func (rc *Recalculator) All(ctx context.Context, filter db.ListFilter) (*RecalculateSummary, error) {
	requests, err := rc.store.ListChangeRequests(ctx, filter)
	if err != nil {
		return nil, err
	}
	engine, err := rc.engine(ctx)
	if err != nil {
		return nil, err
	}

	errs := make([]error, len(requests))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(rc.workers)
	for i := range requests {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			errs[i] = rc.recalculate(gCtx, engine, &requests[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("recalculation interrupted: %w", err)
	}

	summary := &RecalculateSummary{Total: len(requests)}
	for i, err := range errs {
		if err == nil {
			summary.Succeeded++
			continue
		}
		summary.Failed++
		summary.Failures = append(summary.Failures, RecalculateFailure{ID: requests[i].ID, Error: err.Error()})
		rc.logger.Warn("recalculation failed", "id", requests[i].ID, "error", err)
	}
	rc.logger.Info("recalculation finished", "total", summary.Total, "failed", summary.Failed)
	return summary, nil
}

// recalculate scores cr's stored attributes, saves the scores and updates cr.
func (rc *Recalculator) recalculate(ctx context.Context, engine *Engine, cr *db.ChangeRequest) error {
	attrs, err := decodeAttributes(cr.Attributes)
	if err != nil {
		return fmt.Errorf("stored attributes: %w", err)
	}

	scores := engine.ScoreAll(attrs)
	now := rc.now()
	scores.CalculatedAt = &now

	ok, err := rc.store.SaveScores(ctx, cr.ID, scores)
	if err != nil {
		return err
	}
	if !ok {
		return &ErrNotFound{Resource: "change request", ID: cr.ID.String()}
	}
	cr.Scores = scores
	return nil
}
