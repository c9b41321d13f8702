package main

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/change-scorer/internal/observability"
	"github.com/jonathan/change-scorer/internal/schemas"
	"github.com/jonathan/change-scorer/internal/server"
	"github.com/jonathan/change-scorer/internal/types"
	"github.com/spf13/cobra"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank a batch of change requests by priority",
	Long: "Reads a ranking batch ({\"items\": [...], \"weights\": {...}}), scores every item for priority " +
		"and prints them highest first. Equal scores keep their input order.",
	Args: cobra.NoArgs,
	RunE: runRank,
}

var (
	rankInput  string
	rankFormat string
)

func init() {
	rankCmd.Flags().StringVarP(&rankInput, "input", "i", "", "Path to ranking batch JSON file (required)")
	rankCmd.Flags().StringVarP(&rankFormat, "format", "f", formatTable, "Output format: table or json")

	if err := rankCmd.MarkFlagRequired("input"); err != nil {
		panic(fmt.Sprintf("failed to mark input flag as required: %v", err))
	}

	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, _ []string) error {
	if err := checkFormat(rankFormat); err != nil {
		return err
	}

	data, err := readInput(rankInput, schemas.RankInput)
	if err != nil {
		return err
	}
	var req types.RankRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("failed to unmarshal ranking batch: %w", err)
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid ranking batch: %w", err)
	}

	engine, err := server.EngineFromConfig(appConfig)
	if err != nil {
		return err
	}
	ranked, err := engine.Rank(req)
	if err != nil {
		return err
	}
	logger.Debug("ranked batch", "items", len(ranked))

	if rankFormat == formatJSON {
		return writeJSON(cmd.OutOrStdout(), map[string]any{"ranking": ranked})
	}
	return observability.NewPrinter(cmd.OutOrStdout()).PrintRanking(ranked)
}
