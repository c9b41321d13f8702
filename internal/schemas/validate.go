// Package schemas provides JSON Schema validation for the documents the
// change-scorer accepts: attribute bags, ranking batches and scoring configs.
package schemas

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Embedded schema names.
const (
	Attributes    = "attributes.schema.json"
	RankInput     = "rank_input.schema.json"
	ScoringConfig = "scoring_config.schema.json"
)

//go:embed json/*.schema.json
var files embed.FS

var (
	compiledMu sync.Mutex
	compiled   = map[string]*gojsonschema.Schema{}
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// Names lists the embedded schemas.
func Names() []string {
	return []string{Attributes, RankInput, ScoringConfig}
}

// Raw returns the embedded schema document.
func Raw(name string) ([]byte, error) {
	data, err := files.ReadFile("json/" + name)
	if err != nil {
		return nil, &SchemaLoadError{Path: name, Message: "unknown schema", Cause: err}
	}
	return data, nil
}

// load compiles an embedded schema once and caches it.
func load(name string) (*gojsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if s, ok := compiled[name]; ok {
		return s, nil
	}

	data, err := Raw(name)
	if err != nil {
		return nil, err
	}

	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, &SchemaLoadError{Path: name, Message: "schema failed to compile", Cause: err}
	}
	compiled[name] = s
	return s, nil
}

// Validate validates a JSON document against an embedded schema.
func Validate(name string, document []byte) error {
	schema, err := load(name)
	if err != nil {
		return err
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("document is not valid JSON: %w", err)
	}
	return toValidationError(result)
}

// ValidateAttributes validates a raw attribute bag.
func ValidateAttributes(document []byte) error {
	return Validate(Attributes, document)
}

// ValidateRankInput validates a ranking batch.
func ValidateRankInput(document []byte) error {
	return Validate(RankInput, document)
}

// ValidateScoringConfig validates a scoring configuration row.
func ValidateScoringConfig(document []byte) error {
	return Validate(ScoringConfig, document)
}

// UnknownProperties lists the top-level keys of document that the named
// schema does not declare, sorted. A document that is not a JSON object has
// none.
func UnknownProperties(name string, document []byte) ([]string, error) {
	raw, err := Raw(name)
	if err != nil {
		return nil, err
	}
	var schema struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, &SchemaLoadError{Path: name, Message: "schema is not valid JSON", Cause: err}
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(document, &doc); err != nil {
		return nil, nil
	}
	var unknown []string
	for key := range doc {
		if _, ok := schema.Properties[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown, nil
}

func toValidationError(result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}

	// Build structured error
	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}

	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}

	return validationErr
}
