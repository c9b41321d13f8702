package main

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/change-scorer/internal/observability"
	"github.com/jonathan/change-scorer/internal/schemas"
	"github.com/jonathan/change-scorer/internal/scoring"
	"github.com/jonathan/change-scorer/internal/types"
	"github.com/spf13/cobra"
)

var evaluateConfigCmd = &cobra.Command{
	Use:   "evaluate-config",
	Short: "Apply a benefit scoring config to a raw value",
	Long: "Loads a benefit_type scoring config from JSON and scores a raw value against it: " +
		"value = min(100, value/value_for_100_points*100), time = max(0, 100 - timeline*time_decay_per_month).",
	Args: cobra.NoArgs,
	RunE: runEvaluateConfig,
}

var (
	evaluateConfigFile     string
	evaluateConfigValue    float64
	evaluateConfigTimeline float64
	evaluateConfigFormat   string
)

func init() {
	evaluateConfigCmd.Flags().StringVarP(&evaluateConfigFile, "config-file", "c", "", "Path to scoring config JSON file (required)")
	evaluateConfigCmd.Flags().Float64Var(&evaluateConfigValue, "value", 0, "Raw value to score (required)")
	evaluateConfigCmd.Flags().Float64Var(&evaluateConfigTimeline, "timeline", 0, "Months until the value is realised")
	evaluateConfigCmd.Flags().StringVarP(&evaluateConfigFormat, "format", "f", formatTable, "Output format: table or json")

	if err := evaluateConfigCmd.MarkFlagRequired("config-file"); err != nil {
		panic(fmt.Sprintf("failed to mark config-file flag as required: %v", err))
	}
	if err := evaluateConfigCmd.MarkFlagRequired("value"); err != nil {
		panic(fmt.Sprintf("failed to mark value flag as required: %v", err))
	}

	rootCmd.AddCommand(evaluateConfigCmd)
}

func runEvaluateConfig(cmd *cobra.Command, _ []string) error {
	if err := checkFormat(evaluateConfigFormat); err != nil {
		return err
	}

	cfg, err := readScoringConfig(evaluateConfigFile)
	if err != nil {
		return err
	}

	var timeline *float64
	if cmd.Flags().Changed("timeline") {
		timeline = &evaluateConfigTimeline
	}
	score, err := evaluateConfig(cfg, evaluateConfigValue, timeline)
	if err != nil {
		return err
	}

	if evaluateConfigFormat == formatJSON {
		return writeJSON(cmd.OutOrStdout(), score)
	}
	return observability.NewPrinter(cmd.OutOrStdout()).PrintConfigScore(score)
}

// readScoringConfig loads a config file. An omitted is_active counts as active.
func readScoringConfig(path string) (*types.ScoringConfig, error) {
	data, err := readInput(path, schemas.ScoringConfig)
	if err != nil {
		return nil, err
	}
	cfg := types.ScoringConfig{IsActive: true}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scoring config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring config: %w", err)
	}
	return &cfg, nil
}

// evaluateConfig checks that cfg can be evaluated and applies it.
func evaluateConfig(cfg *types.ScoringConfig, value float64, timeline *float64) (scoring.CategoryScore, error) {
	if cfg.ConfigType != types.ConfigTypeBenefit {
		return scoring.CategoryScore{}, fmt.Errorf("only %s configs can be evaluated, got %s", types.ConfigTypeBenefit, cfg.ConfigType)
	}
	if !cfg.IsActive {
		return scoring.CategoryScore{}, fmt.Errorf("config inactive: %s/%s", cfg.ConfigType, cfg.Name)
	}
	if value < 0 || (timeline != nil && *timeline < 0) {
		return scoring.CategoryScore{}, fmt.Errorf("value and timeline must not be negative")
	}
	return scoring.ConfigScore(*cfg, value, timeline), nil
}
