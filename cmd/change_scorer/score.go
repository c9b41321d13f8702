package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jonathan/change-scorer/internal/observability"
	"github.com/jonathan/change-scorer/internal/schemas"
	"github.com/jonathan/change-scorer/internal/scoring"
	"github.com/jonathan/change-scorer/internal/server"
	"github.com/jonathan/change-scorer/internal/types"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// kindAll scores every calculator.
const kindAll = "all"

var scoreCmd = &cobra.Command{
	Use:   "score <risk|effort|benefit|priority|all>",
	Short: "Score change request attribute files",
	Long: "Scores one or more attribute JSON files with the named calculator, or with every calculator. " +
		"Files are validated against the attribute schema first; unknown fields are reported and ignored.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"risk", "effort", "benefit", "priority", kindAll},
	RunE:      runScore,
}

var (
	scoreInputs []string
	scoreFormat string
)

func init() {
	scoreCmd.Flags().StringSliceVarP(&scoreInputs, "input", "i", nil, "Path to attribute JSON file; repeat or comma-separate for several (required)")
	scoreCmd.Flags().StringVarP(&scoreFormat, "format", "f", formatTable, "Output format: table or json")

	if err := scoreCmd.MarkFlagRequired("input"); err != nil {
		panic(fmt.Sprintf("failed to mark input flag as required: %v", err))
	}

	rootCmd.AddCommand(scoreCmd)
}

// fileScore is the outcome of scoring one input file.
type fileScore struct {
	Input   string           `json:"input"`
	Results []scoring.Result `json:"results"`
}

func runScore(cmd *cobra.Command, args []string) error {
	if err := checkFormat(scoreFormat); err != nil {
		return err
	}
	kinds, err := kindsFor(args[0])
	if err != nil {
		return err
	}

	engine, err := server.EngineFromConfig(appConfig)
	if err != nil {
		return err
	}

	scores, err := scoreFiles(cmd.Context(), engine, kinds, scoreInputs, appConfig.BatchWorkers)
	if err != nil {
		return err
	}
	return writeScores(cmd.OutOrStdout(), scoreFormat, scores)
}

// kindsFor expands a calculator argument.
func kindsFor(arg string) ([]scoring.Kind, error) {
	if arg == kindAll {
		return scoring.AllKinds, nil
	}
	kind, ok := scoring.ParseKind(arg)
	if !ok {
		return nil, fmt.Errorf("unknown calculator %q (want risk, effort, benefit, priority or all)", arg)
	}
	return []scoring.Kind{kind}, nil
}

// scoreFiles scores each input concurrently, at most workers at a time.
// Results keep the order of paths.
func scoreFiles(ctx context.Context, engine *server.Engine, kinds []scoring.Kind, paths []string, workers int) ([]fileScore, error) {
	out := make([]fileScore, len(paths))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))
	for i, path := range paths {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			attrs, err := readAttributes(path)
			if err != nil {
				return err
			}

			results := make([]scoring.Result, 0, len(kinds))
			for _, kind := range kinds {
				r, err := engine.Score(kind, attrs)
				if err != nil {
					return err
				}
				results = append(results, r)
			}
			out[i] = fileScore{Input: path, Results: results}
			logger.Debug("scored input", "input", path, "calculators", len(results))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// readAttributes loads an attribute file, rejecting documents that fail the
// schema and warning about fields the scorer does not read.
func readAttributes(path string) (*types.Attributes, error) {
	data, err := readInput(path, schemas.Attributes)
	if err != nil {
		return nil, err
	}
	attrs, err := types.ParseAttributes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return attrs, nil
}

// readInput reads a JSON file and validates it against the named schema.
func readInput(path, schema string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file %s: %w", path, err)
	}
	if err := schemas.Validate(schema, data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	unknown, err := schemas.UnknownProperties(schema, data)
	if err != nil {
		return nil, err
	}
	if len(unknown) > 0 {
		logger.Warn("ignoring unknown fields", "input", path, "fields", strings.Join(unknown, ","))
	}
	return data, nil
}

func writeScores(w io.Writer, format string, scores []fileScore) error {
	if format == formatJSON {
		var v any = scores
		if len(scores) == 1 {
			v = scores[0]
		}
		return writeJSON(w, v)
	}

	p := observability.NewPrinter(w)
	for i, s := range scores {
		if len(scores) > 1 {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "== %s ==\n", s.Input)
		}
		if len(s.Results) > 1 {
			if err := p.PrintSummary(s.Results); err != nil {
				return err
			}
			continue
		}
		for _, r := range s.Results {
			if err := p.PrintResult(r); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	return nil
}

func checkFormat(format string) error {
	if format != formatTable && format != formatJSON {
		return fmt.Errorf("unknown format %q (want table or json)", format)
	}
	return nil
}
