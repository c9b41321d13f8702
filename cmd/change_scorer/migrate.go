package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/change-scorer/internal/db"
	"github.com/spf13/cobra"
)

// connectTimeout bounds the initial database connection.
const connectTimeout = 10 * time.Second

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long:  "Applies every pending schema migration to the database named by database-url (or DATABASE_URL).",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

var migrateDown bool

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "Roll back the most recent migration instead")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	database, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := cmd.Context()
	if migrateDown {
		err = database.MigrateDown(ctx)
	} else {
		err = database.Migrate(ctx)
	}
	if err != nil {
		return err
	}

	version, err := database.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	logger.Info("migrations complete", "version", version, "down", migrateDown)
	fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", version)
	return nil
}

func connect(ctx context.Context) (*db.DB, error) {
	if appConfig.DatabaseURL == "" {
		return nil, fmt.Errorf("database-url (or DATABASE_URL) is required")
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	return db.Connect(ctx, appConfig.DatabaseURL)
}
