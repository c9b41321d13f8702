// Package observability provides structured logging setup and formatted
// output of scores and rankings for the CLI.
package observability

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jonathan/change-scorer/internal/ranking"
	"github.com/jonathan/change-scorer/internal/scoring"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// boxWidth is the width of the summary box printed above each table.
const boxWidth = 60

// Label colours, from most to least severe.
var (
	criticalColor = color.New(color.FgRed, color.Bold)
	highColor     = color.New(color.FgMagenta, color.Bold)
	mediumColor   = color.New(color.FgYellow)
	lowColor      = color.New(color.FgCyan)
)

// Printer renders scoring output as boxes and tables.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// ColorLevel returns the level label coloured by severity.
func ColorLevel(level scoring.Level) string {
	text := string(level)
	switch level {
	case scoring.LevelCritical, scoring.LevelVeryHigh:
		return criticalColor.Sprint(text)
	case scoring.LevelHigh:
		return highColor.Sprint(text)
	case scoring.LevelMedium:
		return mediumColor.Sprint(text)
	case scoring.LevelLow:
		return lowColor.Sprint(text)
	default:
		return text
	}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintResult outputs one calculator's score followed by its factor table and,
// for benefit results, the per-category breakdown.
func (p *Printer) PrintResult(result scoring.Result) error {
	summary := "Score: " + formatScore(result.Score)
	if result.Level != "" {
		summary += "    Level: " + string(result.Level)
	}
	p.printBox(strings.ToUpper(string(result.Kind))+" SCORE", summary)

	if err := p.writeFactors(result); err != nil {
		return err
	}
	if len(result.Categories) > 0 {
		return p.writeCategories(result.Categories)
	}
	return nil
}

// PrintSummary outputs one row per result.
func (p *Printer) PrintSummary(results []scoring.Result) error {
	table := newTable(p.out)
	table.Header([]string{"Calculator", "Score", "Level"})

	data := make([][]string, 0, len(results))
	for _, r := range results {
		data = append(data, []string{string(r.Kind), formatScore(r.Score), ColorLevel(r.Level)})
	}
	return render(table, data)
}

// PrintRanking outputs a ranked batch, highest priority first.
func (p *Printer) PrintRanking(ranked []ranking.RankedRequest) error {
	table := newTable(p.out)
	table.Header([]string{"Rank", "ID", "Score", "Notes"})

	data := make([][]string, 0, len(ranked))
	for _, r := range ranked {
		data = append(data, []string{strconv.Itoa(r.Rank), r.ID, formatScore(r.Score), r.Notes})
	}
	return render(table, data)
}

// PrintConfigScore outputs the result of evaluating a scoring config.
func (p *Printer) PrintConfigScore(score scoring.CategoryScore) error {
	p.printBox("CONFIG "+strings.ToUpper(string(score.Category)), "Combined score: "+formatScore(score.CombinedScore))
	return p.writeCategoryRows([]string{"Category", "Raw Value", "Value Score", "Timeline", "Time Score"},
		[][]string{categoryRow(score)})
}

func (p *Printer) writeFactors(result scoring.Result) error {
	names := scoring.FactorsFor(result.Kind)
	table := newTable(p.out)
	table.Header([]string{"Factor", "Value", "Component"})

	data := make([][]string, 0, len(names))
	for _, name := range names {
		v, ok := result.Factors[name]
		if !ok {
			continue
		}
		component := "-"
		if c, ok := result.Components[name]; ok {
			component = formatScore(c)
		}
		data = append(data, []string{string(name), formatScore(v), component})
	}
	return render(table, data)
}

func (p *Printer) writeCategories(categories []scoring.CategoryDetail) error {
	data := make([][]string, 0, len(categories))
	for _, c := range categories {
		row := categoryRow(c.CategoryScore)
		row = append(row, formatScore(c.Weight), formatScore(c.WeightedScore))
		data = append(data, row)
	}
	return p.writeCategoryRows(
		[]string{"Category", "Raw Value", "Value Score", "Timeline", "Time Score", "Weight", "Weighted"}, data)
}

func (p *Printer) writeCategoryRows(headers []string, data [][]string) error {
	table := newTable(p.out)
	table.Header(headers)
	return render(table, data)
}

func categoryRow(c scoring.CategoryScore) []string {
	timeline, timeScore := "-", "-"
	if c.RawTimeline != nil {
		timeline = formatScore(*c.RawTimeline)
	}
	if c.TimeScore != nil {
		timeScore = formatScore(*c.TimeScore)
	}
	return []string{string(c.Category), formatScore(c.RawValue), formatScore(c.ValueScore), timeline, timeScore}
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	return table
}

func render(table *tablewriter.Table, data [][]string) error {
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// formatScore drops trailing zeros: 36, 50.8, 12.35.
func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
