package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildExtractResponseSchema describes both bodies /extract can return.
func BuildExtractResponseSchema() map[string]any {
	return map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type":    "object",
		"oneOf": []any{
			map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"success", "raw_text", "confidence", "processing_time_ms"},
				"properties": map[string]any{
					"success":            map[string]any{"const": true},
					"raw_text":           map[string]any{"type": "string"},
					"confidence":         map[string]any{"type": "number", "minimum": 0, "maximum": 1},
					"processing_time_ms": map[string]any{"type": "integer", "minimum": 0},
				},
			},
			map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"success", "message"},
				"properties": map[string]any{
					"success": map[string]any{"const": false},
					"message": map[string]any{"type": "string", "minLength": 1},
				},
			},
		},
	}
}

var (
	extractSchemaOnce sync.Once
	extractSchema     *jsonschema.Schema
	extractSchemaErr  error
)

func compiledExtractSchema() (*jsonschema.Schema, error) {
	extractSchemaOnce.Do(func() {
		b, err := json.Marshal(BuildExtractResponseSchema())
		if err != nil {
			extractSchemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("extract_response.json", bytes.NewReader(b)); err != nil {
			extractSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		extractSchema, extractSchemaErr = compiler.Compile("extract_response.json")
		if extractSchemaErr != nil {
			extractSchemaErr = fmt.Errorf("compile schema: %w", extractSchemaErr)
		}
	})
	return extractSchema, extractSchemaErr
}

// ValidateExtractResponse checks a raw /extract response body.
func ValidateExtractResponse(data []byte) error {
	schema, err := compiledExtractSchema()
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
