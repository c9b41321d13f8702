package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jonathan/change-scorer/internal/types"
)

const scoringConfigColumns = `id, config_type, name, value_for_100_points, value_unit,
	time_decay_per_month, thresholds, is_active, created_at, updated_at`

// CreateScoringConfig inserts a config row. Returns ErrDuplicate when a row
// with the same type and name exists.
func (db *DB) CreateScoringConfig(ctx context.Context, cfg *types.ScoringConfig) (*types.ScoringConfig, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO scoring_configs
			(config_type, name, value_for_100_points, value_unit, time_decay_per_month, thresholds, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+scoringConfigColumns,
		cfg.ConfigType, cfg.Name, cfg.ValueFor100Points, cfg.ValueUnit,
		cfg.TimeDecayPerMonth, cfg.Thresholds, cfg.IsActive,
	)
	out, err := scanScoringConfig(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("scoring config %s/%s: %w", cfg.ConfigType, cfg.Name, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to create scoring config: %w", err)
	}
	return out, nil
}

// GetScoringConfig returns the config row for a type and name, or nil if absent.
func (db *DB) GetScoringConfig(ctx context.Context, configType, name string) (*types.ScoringConfig, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+scoringConfigColumns+` FROM scoring_configs WHERE config_type = $1 AND name = $2`,
		configType, name,
	)
	out, err := scanScoringConfig(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get scoring config: %w", err)
	}
	return out, nil
}

// ListScoringConfigs returns config rows ordered by type and name. An empty
// configType lists every type.
func (db *DB) ListScoringConfigs(ctx context.Context, configType string, activeOnly bool) ([]types.ScoringConfig, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+scoringConfigColumns+` FROM scoring_configs
		 WHERE ($1 = '' OR config_type = $1) AND (NOT $2 OR is_active)
		 ORDER BY config_type, name`,
		configType, activeOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list scoring configs: %w", err)
	}
	defer rows.Close()

	var out []types.ScoringConfig
	for rows.Next() {
		cfg, err := scanScoringConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scoring config: %w", err)
		}
		out = append(out, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list scoring configs: %w", err)
	}
	return out, nil
}

// UpdateScoringConfig overwrites the mutable columns of the row identified by
// cfg.ConfigType and cfg.Name. Returns nil if the row does not exist.
func (db *DB) UpdateScoringConfig(ctx context.Context, cfg *types.ScoringConfig) (*types.ScoringConfig, error) {
	row := db.pool.QueryRow(ctx,
		`UPDATE scoring_configs SET
			value_for_100_points = $3, value_unit = $4, time_decay_per_month = $5,
			thresholds = $6, is_active = $7, updated_at = NOW()
		 WHERE config_type = $1 AND name = $2
		 RETURNING `+scoringConfigColumns,
		cfg.ConfigType, cfg.Name, cfg.ValueFor100Points, cfg.ValueUnit,
		cfg.TimeDecayPerMonth, cfg.Thresholds, cfg.IsActive,
	)
	out, err := scanScoringConfig(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update scoring config: %w", err)
	}
	return out, nil
}

// DeleteScoringConfig removes a config row. Reports whether a row was deleted.
func (db *DB) DeleteScoringConfig(ctx context.Context, configType, name string) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM scoring_configs WHERE config_type = $1 AND name = $2`, configType, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete scoring config: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanScoringConfig(row pgx.Row) (*types.ScoringConfig, error) {
	var cfg types.ScoringConfig
	err := row.Scan(
		&cfg.ID, &cfg.ConfigType, &cfg.Name, &cfg.ValueFor100Points, &cfg.ValueUnit,
		&cfg.TimeDecayPerMonth, &cfg.Thresholds, &cfg.IsActive, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
