// Package types provides type definitions for structured data used throughout the change-scorer system.
package types

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Attributes is the raw attribute bag stored on a change request.
// Every field is optional. Scalars and lists decode leniently so that a
// malformed value reads as absent instead of failing the whole document.
type Attributes struct {
	ImpactedUsers         Number `json:"impacted_users"`
	EstimatedCost         Number `json:"estimated_cost"`
	EstimatedEffortHours  Number `json:"estimated_effort_hours"`
	TeamSize              Number `json:"team_size"`
	Complexity            Number `json:"complexity"`
	TestingRequired       Number `json:"testing_required"`
	DocumentationRequired Number `json:"documentation_required"`

	SystemsAffected List `json:"systems_affected,omitempty"`
	Dependencies    List `json:"dependencies,omitempty"`

	ChangeReasons ChangeReasons `json:"change_reasons"`

	RevenueDetails  *RevenueDetails  `json:"revenue_details,omitempty"`
	CostDetails     *CostDetails     `json:"cost_details,omitempty"`
	CustomerDetails *CustomerDetails `json:"customer_details,omitempty"`
	ProcessDetails  *ProcessDetails  `json:"process_details,omitempty"`
	InternalDetails *InternalDetails `json:"internal_details,omitempty"`

	Priority PriorityInput `json:"priority"`
}

// ChangeReasons are the "why" flags selected when a request is raised.
type ChangeReasons struct {
	RevenueImprovement Flag `json:"revenue_improvement"`
	CostReduction      Flag `json:"cost_reduction"`
	CustomerImpact     Flag `json:"customer_impact"`
	ProcessImprovement Flag `json:"process_improvement"`
	InternalQoL        Flag `json:"internal_qol"`
}

// RevenueDetails backs the revenue improvement benefit category.
type RevenueDetails struct {
	Revenue        Number `json:"revenue"`
	TimelineMonths Number `json:"timeline_months"`
}

// CostDetails backs the cost savings benefit category.
type CostDetails struct {
	Savings Number `json:"savings"`
}

// CustomerDetails backs the customer impact benefit category.
type CustomerDetails struct {
	SatisfactionRating Number `json:"satisfaction_rating"` // 1-10
}

// ProcessDetails backs the process improvement benefit category.
type ProcessDetails struct {
	EfficiencyGainPercent Number `json:"efficiency_gain_percent"`
}

// InternalDetails backs the internal quality-of-life benefit category.
type InternalDetails struct {
	UsersAffected Number `json:"users_affected"`
}

// PriorityInput holds the manually assessed prioritization factors (1-10).
type PriorityInput struct {
	BusinessValue       Number `json:"business_value"`
	Urgency             Number `json:"urgency"`
	ImpactScope         Number `json:"impact_scope"`
	RiskLevel           Number `json:"risk_level"`
	ResourceRequirement Number `json:"resource_requirement"`
	Dependency          Number `json:"dependency"`
	StrategicAlignment  Number `json:"strategic_alignment"`
	CustomerImpact      Number `json:"customer_impact"`
}

// objectBlocks are the nested attribute blocks. A block of any other JSON
// type reads as absent.
var objectBlocks = []string{
	"change_reasons", "revenue_details", "cost_details", "customer_details",
	"process_details", "internal_details", "priority",
}

// UnmarshalJSON decodes the bag, dropping nested blocks that are not JSON
// objects so that a single mistyped block cannot fail the document.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	type plain Attributes

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for key, value := range fields {
		if isObjectBlock(key) && !isObjectOrNull(value) {
			delete(fields, key)
		}
	}

	cleaned, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	*a = Attributes{}
	return json.Unmarshal(cleaned, (*plain)(a))
}

// isObjectBlock matches keys case-insensitively, as encoding/json does.
func isObjectBlock(key string) bool {
	for _, block := range objectBlocks {
		if strings.EqualFold(key, block) {
			return true
		}
	}
	return false
}

func isObjectOrNull(value json.RawMessage) bool {
	v := bytes.TrimSpace(value)
	return len(v) > 0 && (v[0] == '{' || bytes.Equal(v, []byte("null")))
}

// ParseAttributes decodes a stored attribute blob. Only a document that is not
// a JSON object at all is rejected; individual fields and blocks never fail.
func ParseAttributes(data []byte) (*Attributes, error) {
	attrs := &Attributes{}
	if len(bytes.TrimSpace(data)) == 0 {
		return attrs, nil
	}
	if err := json.Unmarshal(data, attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

// Number is an optional numeric field.
type Number struct {
	Value float64
	Valid bool
}

// NewNumber returns a present Number.
func NewNumber(v float64) Number {
	return Number{Value: v, Valid: true}
}

// Or returns the value, or def when the field is absent.
func (n Number) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Value
}

// UnmarshalJSON accepts numbers, numeric strings and currency strings.
// Anything else leaves the Number absent.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	switch v := raw.(type) {
	case float64:
		*n = NewNumber(v)
	case string:
		if f, ok := ParseAmount(v); ok {
			*n = NewNumber(f)
		}
	}
	return nil
}

// MarshalJSON writes absent values as null.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// amountPattern is a plain decimal after currency symbols and spaces are
// removed: an optional sign, digits with optional comma grouping, and an
// optional fraction.
var amountPattern = regexp.MustCompile(`^[+-]?(?:\d{1,3}(?:,\d{3})+|\d+)?(?:\.\d+)?$`)

// ParseAmount parses a human-entered quantity such as "£12,345.67",
// "$1,000", "$-500" or "1 200 €". Currency symbols and whitespace are
// dropped and commas are read as thousands separators. Anything else, such as
// letters, ranges or exponents, makes the amount unreadable.
func ParseAmount(s string) (float64, bool) {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsSpace(r), unicode.Is(unicode.Sc, r):
			continue
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-', r == '+':
			sb.WriteRune(r)
		default:
			return 0, false
		}
	}

	cleaned := sb.String()
	if !amountPattern.MatchString(cleaned) || strings.IndexFunc(cleaned, unicode.IsDigit) < 0 {
		return 0, false
	}

	d, err := decimal.NewFromString(strings.TrimPrefix(strings.ReplaceAll(cleaned, ",", ""), "+"))
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// List is an optional list field. Only its length matters to scoring, but
// the original elements are kept so the bag round-trips.
type List []json.RawMessage

// UnmarshalJSON accepts a JSON array or a comma-separated string.
// Anything else decodes to an empty list.
func (l *List) UnmarshalJSON(data []byte) error {
	*l = nil

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err == nil {
		*l = items
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		encoded, err := json.Marshal(part)
		if err != nil {
			continue
		}
		*l = append(*l, encoded)
	}
	return nil
}

// Len returns the number of elements.
func (l List) Len() int {
	return len(l)
}

// Flag is a lenient boolean.
type Flag bool

// UnmarshalJSON accepts booleans, "true"/"yes"/"1" style strings and numbers.
func (f *Flag) UnmarshalJSON(data []byte) error {
	*f = false

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	switch v := raw.(type) {
	case bool:
		*f = Flag(v)
	case float64:
		*f = v != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		if b, err := strconv.ParseBool(s); err == nil {
			*f = Flag(b)
		} else {
			*f = s == "yes" || s == "y" || s == "on"
		}
	}
	return nil
}
