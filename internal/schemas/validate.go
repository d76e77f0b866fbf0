// Package schemas provides JSON Schema validation for strategy payloads exchanged
// with the generation backend and for saved strategy documents.
package schemas

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed definitions/*.schema.json
var definitions embed.FS

const (
	// GenerateResponseSchema validates the body of POST /strategies/generate/
	GenerateResponseSchema = "generate_response"
	// StrategyDocumentSchema validates a serialized StrategyDocument
	StrategyDocumentSchema = "strategy_document"
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Schema string
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
	if ve.Schema != "" {
		sb.WriteString(fmt.Sprintf("%s validation failed:\n", ve.Schema))
	} else {
		sb.WriteString("validation failed:\n")
	}
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// Load returns the raw content of a bundled schema.
func Load(name string) (string, error) {
	data, err := definitions.ReadFile("definitions/" + name + ".schema.json")
	if err != nil {
		return "", &SchemaLoadError{Path: name, Message: "unknown schema", Cause: err}
	}
	return string(data), nil
}

// Validate validates JSON content against a bundled schema.
func Validate(name string, jsonContent []byte) error {
	schemaContent, err := Load(name)
	if err != nil {
		return err
	}
	if err := ValidateJSONString(schemaContent, string(jsonContent)); err != nil {
		if ve, ok := err.(*ValidationError); ok {
			ve.Schema = name
		}
		return err
	}
	return nil
}

// ValidateJSONString validates JSON string content against schema string content
func ValidateJSONString(schemaContent, jsonContent string) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaContent)
	documentLoader := gojsonschema.NewStringLoader(jsonContent)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Path:    "(string schema)",
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}

	if result.Valid() {
		return nil
	}

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
