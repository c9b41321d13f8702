package db

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// Migrate applies every pending schema migration.
func (db *DB) Migrate(ctx context.Context) error {
	return db.withGoose(func() error {
		sqlDB := stdlib.OpenDBFromPool(db.pool)
		defer sqlDB.Close()
		return goose.UpContext(ctx, sqlDB, migrationsDir)
	})
}

// MigrateDown rolls back the most recent migration.
func (db *DB) MigrateDown(ctx context.Context) error {
	return db.withGoose(func() error {
		sqlDB := stdlib.OpenDBFromPool(db.pool)
		defer sqlDB.Close()
		return goose.DownContext(ctx, sqlDB, migrationsDir)
	})
}

// SchemaVersion returns the current migration version.
func (db *DB) SchemaVersion(ctx context.Context) (int64, error) {
	var version int64
	err := db.withGoose(func() error {
		sqlDB := stdlib.OpenDBFromPool(db.pool)
		defer sqlDB.Close()
		v, err := goose.GetDBVersionContext(ctx, sqlDB)
		version = v
		return err
	})
	return version, err
}

func (db *DB) withGoose(fn func() error) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := fn(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
