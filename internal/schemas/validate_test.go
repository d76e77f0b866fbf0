package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_GenerateResponse(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{
			name: "success payload",
			body: `{"success": true, "strategy": {"summary": {"title": "Summary", "content": "Text", "key_points": ["a"], "recommendations": []}}}`,
		},
		{
			name: "null lists are accepted",
			body: `{"success": true, "strategy": {"summary": {"title": "Summary", "content": "Text", "key_points": null}}}`,
		},
		{
			name: "failure payload",
			body: `{"success": false, "error": "quota exceeded"}`,
		},
		{
			name: "null strategy",
			body: `{"success": true, "strategy": null, "error": null}`,
		},
		{
			name: "section without title or content",
			body: `{"success": true, "strategy": {"summary": {"key_points": ["a"]}}}`,
		},
		{
			name:    "content of wrong type",
			body:    `{"success": true, "strategy": {"summary": {"title": "T", "content": 3}}}`,
			wantErr: true,
		},
		{
			name:    "section is not an object",
			body:    `{"success": true, "strategy": {"summary": "Text"}}`,
			wantErr: true,
		},
		{
			name:    "key point of wrong type",
			body:    `{"success": true, "strategy": {"summary": {"title": "T", "content": "C", "key_points": [1, 2]}}}`,
			wantErr: true,
		},
		{
			name:    "strategy is a string",
			body:    `{"success": true, "strategy": "all good"}`,
			wantErr: true,
		},
		{
			name:    "success is a string",
			body:    `{"success": "yes"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(GenerateResponseSchema, []byte(tt.body))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			validationErr, ok := err.(*ValidationError)
			require.True(t, ok, "error should be ValidationError type")
			assert.Equal(t, GenerateResponseSchema, validationErr.Schema)
			assert.NotEmpty(t, validationErr.Errors)
		})
	}
}

func TestValidate_StrategyDocument(t *testing.T) {
	valid := `{
		"id": "6f1c8f7e-8d0a-4b55-9d61-0a6f3c1f2a11",
		"sections": [{"key": "summary", "title": "Summary", "content": "Text", "key_points": [], "recommendations": []}],
		"metadata": {
			"brand": "Nike",
			"strategy_type": "Brand Positioning",
			"generated_at": "2026-03-01T12:00:00Z",
			"source": "fallback",
			"context": {"company_name": "Acme", "brand_inspiration": "Nike"}
		}
	}`
	assert.NoError(t, Validate(StrategyDocumentSchema, []byte(valid)))

	unknownSource := `{
		"sections": [{"key": "summary", "title": "Summary", "content": "Text"}],
		"metadata": {"source": "magic", "context": {"company_name": "Acme", "brand_inspiration": "Nike"}}
	}`
	err := Validate(StrategyDocumentSchema, []byte(unknownSource))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source")

	noSections := `{"sections": [], "metadata": {"source": "remote", "context": {"company_name": "Acme", "brand_inspiration": "Nike"}}}`
	assert.Error(t, Validate(StrategyDocumentSchema, []byte(noSections)))
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("does_not_exist", []byte(`{}`))
	require.Error(t, err)

	loadErr, ok := err.(*SchemaLoadError)
	require.True(t, ok, "error should be SchemaLoadError type")
	assert.Contains(t, loadErr.Error(), "unknown schema")
}

func TestValidateJSONString_InvalidSchema(t *testing.T) {
	err := ValidateJSONString(`{"type": 12}`, `{}`)
	require.Error(t, err)
	_, ok := err.(*SchemaLoadError)
	assert.True(t, ok, "error should be SchemaLoadError type")
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{
		Schema: "generate_response",
		Errors: []FieldError{{Field: "strategy.summary", Message: "title is required"}},
	}
	assert.Contains(t, err.Error(), "generate_response validation failed")
	assert.Contains(t, err.Error(), "1. strategy.summary: title is required")
}
