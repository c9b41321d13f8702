// Package main provides the change_scorer CLI: stateless scoring of change
// requests from JSON files, database migrations and the REST API server.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/jonathan/change-scorer/internal/config"
	"github.com/jonathan/change-scorer/internal/observability"
	"github.com/spf13/cobra"
)

// Output formats for the scoring commands.
const (
	formatTable = "table"
	formatJSON  = "json"
)

var (
	configFile string

	// Resolved by loadConfig before any command runs.
	appConfig *config.Config
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "change_scorer",
	Short: "Change request scoring and prioritization",
	Long: "change_scorer scores change requests for risk, effort, benefit and priority, ranks batches " +
		"of requests, and serves the same engine over a REST API backed by PostgreSQL.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default .change-scorer.yaml in . or $HOME)")
	rootCmd.PersistentFlags().String("log-format", config.DefaultLogFormat, "Log format: text or json")
	rootCmd.PersistentFlags().String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn or error")
}

// loadConfig resolves flags, environment and the config file, then builds the
// logger. Flags of the running command are bound by name, so --port on serve
// overrides the port key.
func loadConfig(cmd *cobra.Command, _ []string) error {
	v := config.NewViper()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	cfg, err := config.Load(v, configFile)
	if err != nil {
		return err
	}

	l, err := observability.NewLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return err
	}
	appConfig, logger = cfg, l
	return nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
