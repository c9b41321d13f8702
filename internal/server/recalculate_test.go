package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/change-scorer/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticEngine(e *Engine) EngineSource {
	return func(context.Context) (*Engine, error) { return e, nil }
}

func setupRecalculator(t *testing.T, workers int) (*Recalculator, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	rc := NewRecalculator(store, staticEngine(NewEngine(nil)), workers, slog.New(slog.DiscardHandler))
	rc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return rc, store
}

func TestRecalculator_One(t *testing.T) {
	rc, store := setupRecalculator(t, 2)
	ctx := context.Background()

	cr, err := store.CreateChangeRequest(ctx, db.NewChangeRequest{Title: "t", Attributes: json.RawMessage(`{}`)})
	require.NoError(t, err)

	scored, err := rc.One(ctx, cr.ID)
	require.NoError(t, err)
	require.NotNil(t, scored.Scores.Risk)
	assert.Equal(t, 36.0, scored.Scores.Risk.Score)
	require.NotNil(t, scored.Scores.CalculatedAt)
	assert.Equal(t, rc.now(), *scored.Scores.CalculatedAt)

	stored, err := store.GetChangeRequest(ctx, cr.ID)
	require.NoError(t, err)
	assert.Equal(t, scored.Scores, stored.Scores)
}

func TestRecalculator_OneMissing(t *testing.T) {
	rc, _ := setupRecalculator(t, 1)

	_, err := rc.One(context.Background(), uuid.New())
	var notFound *ErrNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestRecalculator_OneEngineFailure(t *testing.T) {
	store := newFakeStore()
	boom := errors.New("configs unavailable")
	rc := NewRecalculator(store, func(context.Context) (*Engine, error) { return nil, boom }, 1, slog.New(slog.DiscardHandler))

	cr, err := store.CreateChangeRequest(context.Background(), db.NewChangeRequest{Title: "t"})
	require.NoError(t, err)

	_, err = rc.One(context.Background(), cr.ID)
	assert.ErrorIs(t, err, boom)
}

func TestRecalculator_All(t *testing.T) {
	rc, store := setupRecalculator(t, 3)
	ctx := context.Background()

	var failing uuid.UUID
	for i := range 10 {
		attrs := fmt.Sprintf(`{"team_size": %d}`, i+1)
		if i == 4 {
			attrs = `{"complexity": "x", "testing_required": 12}`
		}
		cr, err := store.CreateChangeRequest(ctx, db.NewChangeRequest{Title: "t", Attributes: json.RawMessage(attrs)})
		require.NoError(t, err)
		if i == 4 {
			failing = cr.ID
		}
	}

	summary, err := rc.All(ctx, db.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 10, summary.Total)
	assert.Equal(t, 9, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, failing, summary.Failures[0].ID)
	assert.Contains(t, summary.Failures[0].Error, "stored attributes")
	assert.Equal(t, 9, store.saveCalls)
}

func TestRecalculator_AllFiltersByStatus(t *testing.T) {
	rc, store := setupRecalculator(t, 2)
	ctx := context.Background()

	for _, status := range []string{"draft", "approved", "approved"} {
		_, err := store.CreateChangeRequest(ctx, db.NewChangeRequest{Title: "t", Status: status})
		require.NoError(t, err)
	}

	summary, err := rc.All(ctx, db.ListFilter{Status: "approved"})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
}

func TestRecalculator_AllCancelled(t *testing.T) {
	rc, store := setupRecalculator(t, 1)
	_, err := store.CreateChangeRequest(context.Background(), db.NewChangeRequest{Title: "t"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = rc.All(ctx, db.ListFilter{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecalculator_AllListFailure(t *testing.T) {
	rc, store := setupRecalculator(t, 1)
	store.listErr = errStoreDown

	_, err := rc.All(context.Background(), db.ListFilter{})
	assert.ErrorIs(t, err, errStoreDown)
}

func TestNewRecalculator_DefaultWorkers(t *testing.T) {
	rc := NewRecalculator(newFakeStore(), staticEngine(NewEngine(nil)), 0, slog.New(slog.DiscardHandler))
	assert.Positive(t, rc.workers)
}
