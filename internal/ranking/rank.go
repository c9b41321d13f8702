package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/change-scorer/internal/scoring"
)

// Candidate is one request entering a ranking batch.
type Candidate struct {
	ID      string
	Factors scoring.FactorSet
}

// RankedRequest is a scored candidate with its 1-based position.
type RankedRequest struct {
	ID         string            `json:"id"`
	Rank       int               `json:"rank"`
	Score      float64           `json:"score"`
	Factors    scoring.FactorSet `json:"factors"`
	Components scoring.FactorSet `json:"components"`
	Notes      string            `json:"notes,omitempty"`
}

// Rank scores every candidate and orders them by descending score. Equal
// scores keep their input order.
func (c *Priority) Rank(candidates []Candidate) []RankedRequest {
	ranked := make([]RankedRequest, 0, len(candidates))
	for _, cand := range candidates {
		result := c.Score(cand.Factors)
		ranked = append(ranked, RankedRequest{
			ID:         cand.ID,
			Score:      result.Score,
			Factors:    result.Factors,
			Components: result.Components,
			Notes:      generateNotes(result.Components),
		})
	}

	// Sort by score (descending)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// generateNotes creates a brief explanation of what drove a ranking.
func generateNotes(components scoring.FactorSet) string {
	var strong, weak []string
	for _, name := range scoring.FactorsFor(scoring.KindPriority) {
		switch v := components[name]; {
		case v >= 80:
			strong = append(strong, string(name))
		case v <= 30:
			weak = append(weak, string(name))
		}
	}

	var parts []string
	if len(strong) > 0 {
		parts = append(parts, fmt.Sprintf("Driven by %s", strings.Join(strong, ", ")))
	}
	if len(weak) > 0 {
		parts = append(parts, fmt.Sprintf("Held back by %s", strings.Join(weak, ", ")))
	}
	if len(parts) == 0 {
		return "No dominant factors"
	}
	return strings.Join(parts, ". ")
}
