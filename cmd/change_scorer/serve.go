package main

import (
	"context"
	"fmt"

	"github.com/jonathan/change-scorer/internal/config"
	"github.com/jonathan/change-scorer/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the scoring engine, stored change requests and scoring configs over REST.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", config.DefaultPort, "Port to listen on")
	serveCmd.Flags().Int("batch-workers", config.DefaultBatchWorkers, "Requests re-scored concurrently by batch recalculation")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if appConfig.DatabaseURL == "" {
		return fmt.Errorf("database-url (or DATABASE_URL) is required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), connectTimeout)
	defer cancel()

	srv, err := server.New(ctx, appConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start()
}
