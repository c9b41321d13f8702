package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/change-scorer/internal/scoring"
	"github.com/jonathan/change-scorer/internal/types"
)

const changeRequestColumns = `id, title, description, status, attributes, created_by,
	risk_result, effort_result, benefit_result, priority_result, calculated_at,
	created_at, updated_at`

// CreateChangeRequest inserts a new change request. An empty status defaults to draft.
func (db *DB) CreateChangeRequest(ctx context.Context, in NewChangeRequest) (*ChangeRequest, error) {
	status := in.Status
	if status == "" {
		status = types.StatusDraft
	}
	attrs := in.Attributes
	if len(attrs) == 0 {
		attrs = json.RawMessage(`{}`)
	}

	row := db.pool.QueryRow(ctx,
		`INSERT INTO change_requests (title, description, status, attributes, created_by)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+changeRequestColumns,
		in.Title, in.Description, status, []byte(attrs), in.CreatedBy,
	)
	cr, err := scanChangeRequest(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create change request: %w", err)
	}
	return cr, nil
}

// GetChangeRequest returns a change request by ID, or nil if it does not exist.
func (db *DB) GetChangeRequest(ctx context.Context, id uuid.UUID) (*ChangeRequest, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+changeRequestColumns+` FROM change_requests WHERE id = $1`, id)
	cr, err := scanChangeRequest(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get change request: %w", err)
	}
	return cr, nil
}

// ListChangeRequests returns change requests newest first.
func (db *DB) ListChangeRequests(ctx context.Context, filter ListFilter) ([]ChangeRequest, error) {
	query := `SELECT ` + changeRequestColumns + ` FROM change_requests`
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" WHERE status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id"
	query += pagination(filter, &args)

	return db.queryChangeRequests(ctx, query, args...)
}

// ListByPriority returns change requests ordered by stored priority score,
// highest first. Unscored requests come last, oldest first.
func (db *DB) ListByPriority(ctx context.Context, filter ListFilter) ([]ChangeRequest, error) {
	query := `SELECT ` + changeRequestColumns + ` FROM change_requests`
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" WHERE status = $%d", len(args))
	}
	query += " ORDER BY priority_score DESC NULLS LAST, created_at, id"
	query += pagination(filter, &args)

	return db.queryChangeRequests(ctx, query, args...)
}

// UpdateChangeRequest applies the non-nil fields of upd. Returns nil if the
// request does not exist.
func (db *DB) UpdateChangeRequest(ctx context.Context, id uuid.UUID, upd ChangeRequestUpdate) (*ChangeRequest, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{id}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if len(upd.Attributes) > 0 {
		add("attributes", []byte(upd.Attributes))
	}

	row := db.pool.QueryRow(ctx,
		`UPDATE change_requests SET `+strings.Join(sets, ", ")+`
		 WHERE id = $1
		 RETURNING `+changeRequestColumns,
		args...,
	)
	cr, err := scanChangeRequest(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update change request: %w", err)
	}
	return cr, nil
}

// DeleteChangeRequest removes a change request. Reports whether a row was deleted.
func (db *DB) DeleteChangeRequest(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM change_requests WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete change request: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SaveScores stores the calculated scores and stamps calculated_at. Returns
// false if the request does not exist.
func (db *DB) SaveScores(ctx context.Context, id uuid.UUID, scores ScoreSet) (bool, error) {
	riskJSON, err := marshalResult(scores.Risk)
	if err != nil {
		return false, err
	}
	effortJSON, err := marshalResult(scores.Effort)
	if err != nil {
		return false, err
	}
	benefitJSON, err := marshalResult(scores.Benefit)
	if err != nil {
		return false, err
	}
	priorityJSON, err := marshalResult(scores.Priority)
	if err != nil {
		return false, err
	}

	calculatedAt := time.Now().UTC()
	if scores.CalculatedAt != nil {
		calculatedAt = *scores.CalculatedAt
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE change_requests SET
			risk_score = $2, risk_level = $3, risk_result = $4,
			effort_score = $5, effort_level = $6, effort_result = $7,
			benefit_score = $8, benefit_result = $9,
			priority_score = $10, priority_result = $11,
			calculated_at = $12, updated_at = NOW()
		 WHERE id = $1`,
		id,
		resultScore(scores.Risk), resultLevel(scores.Risk), riskJSON,
		resultScore(scores.Effort), resultLevel(scores.Effort), effortJSON,
		resultScore(scores.Benefit), benefitJSON,
		resultScore(scores.Priority), priorityJSON,
		calculatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to save scores: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (db *DB) queryChangeRequests(ctx context.Context, query string, args ...any) ([]ChangeRequest, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list change requests: %w", err)
	}
	defer rows.Close()

	var out []ChangeRequest
	for rows.Next() {
		cr, err := scanChangeRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan change request: %w", err)
		}
		out = append(out, *cr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list change requests: %w", err)
	}
	return out, nil
}

func pagination(filter ListFilter, args *[]any) string {
	var clause string
	if filter.Limit > 0 {
		*args = append(*args, filter.Limit)
		clause += fmt.Sprintf(" LIMIT $%d", len(*args))
	}
	if filter.Offset > 0 {
		*args = append(*args, filter.Offset)
		clause += fmt.Sprintf(" OFFSET $%d", len(*args))
	}
	return clause
}

func scanChangeRequest(row pgx.Row) (*ChangeRequest, error) {
	var (
		cr                              ChangeRequest
		attrs                           []byte
		risk, effort, benefit, priority []byte
	)
	err := row.Scan(
		&cr.ID, &cr.Title, &cr.Description, &cr.Status, &attrs, &cr.CreatedBy,
		&risk, &effort, &benefit, &priority, &cr.Scores.CalculatedAt,
		&cr.CreatedAt, &cr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	cr.Attributes = json.RawMessage(attrs)

	for _, r := range []struct {
		raw []byte
		dst **scoring.Result
	}{
		{risk, &cr.Scores.Risk},
		{effort, &cr.Scores.Effort},
		{benefit, &cr.Scores.Benefit},
		{priority, &cr.Scores.Priority},
	} {
		if len(r.raw) == 0 {
			continue
		}
		var res scoring.Result
		if err := json.Unmarshal(r.raw, &res); err != nil {
			return nil, fmt.Errorf("failed to decode stored score: %w", err)
		}
		*r.dst = &res
	}
	return &cr, nil
}

func marshalResult(r *scoring.Result) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s score: %w", r.Kind, err)
	}
	return b, nil
}

func resultScore(r *scoring.Result) *float64 {
	if r == nil {
		return nil
	}
	return &r.Score
}

func resultLevel(r *scoring.Result) *string {
	if r == nil || r.Level == "" {
		return nil
	}
	level := string(r.Level)
	return &level
}
