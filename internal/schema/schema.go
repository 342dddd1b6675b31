// Package schema holds the JSON Schema model and validator the pipeline uses
// to check every attempt payload and the final result against the
// caller-supplied contract.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Schema represents a JSON Schema
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []any              `json:"enum,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
	MinLength   *int               `json:"minLength,omitempty"`
	MaxLength   *int               `json:"maxLength,omitempty"`
	Pattern     string             `json:"pattern,omitempty"`
	Description string             `json:"description,omitempty"`
	Default     any                `json:"default,omitempty"`
	OneOf       []*Schema          `json:"oneOf,omitempty"`
	AnyOf       []*Schema          `json:"anyOf,omitempty"`
	AllOf       []*Schema          `json:"allOf,omitempty"`
}

// Parse parses a JSON Schema from raw JSON
func Parse(raw json.RawMessage) (*Schema, error) {
	var schema Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return &schema, nil
}

// Marshal serializes a Schema back to raw JSON
func (s *Schema) Marshal() (json.RawMessage, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return raw, nil
}

// ValidationError reports a schema mismatch. Non-retryable.
type ValidationError struct {
	Errors []string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return "schema validation failed: " + strings.Join(e.Errors, "; ")
}

// Validator validates JSON data against a Schema
type Validator struct {
	strictMode bool
}

// NewValidator creates a new schema validator. In strict mode unknown
// object properties are rejected.
func NewValidator(strict bool) *Validator {
	return &Validator{strictMode: strict}
}

// ValidationResult contains the result of schema validation
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Err converts the result to a *ValidationError, nil when valid
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Errors: r.Errors}
}

// Validate validates data against the schema
func (v *Validator) Validate(schema *Schema, data any) *ValidationResult {
	result := &ValidationResult{Valid: true}
	v.validateValue(schema, data, "", result)
	return result
}

// ValidateJSON decodes raw JSON and validates it against a raw schema.
// Returns a *ValidationError on mismatch or undecodable input.
func ValidateJSON(schemaRaw, data json.RawMessage, strict bool) error {
	schema, err := Parse(schemaRaw)
	if err != nil {
		return &ValidationError{Errors: []string{err.Error()}}
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return &ValidationError{Errors: []string{fmt.Sprintf("invalid JSON payload: %v", err)}}
	}

	return NewValidator(strict).Validate(schema, value).Err()
}

// validateValue recursively validates a value against a schema
func (v *Validator) validateValue(schema *Schema, value any, path string, result *ValidationResult) {
	if schema == nil {
		return
	}

	if schema.Type != "" {
		if !v.checkType(schema.Type, value) {
			result.Valid = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s: expected type %s, got %T", pathOrRoot(path), schema.Type, value))
			return
		}
	}

	switch schema.Type {
	case "object":
		v.validateObject(schema, value, path, result)
	case "array":
		v.validateArray(schema, value, path, result)
	case "string":
		v.validateString(schema, value, path, result)
	case "number", "integer":
		v.validateNumber(schema, value, path, result)
	}

	if len(schema.Enum) > 0 {
		v.validateEnum(schema.Enum, value, path, result)
	}
}

// checkType checks if a value matches the expected JSON Schema type
func (v *Validator) checkType(schemaType string, value any) bool {
	if value == nil {
		return schemaType == "null"
	}

	switch schemaType {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		switch value.(type) {
		case float64, float32, int, int64, int32:
			return true
		}
		return false
	case "integer":
		switch val := value.(type) {
		case int, int64, int32:
			return true
		case float64:
			return val == float64(int64(val))
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		rv := reflect.ValueOf(value)
		return rv.Kind() == reflect.Slice
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "null":
		return value == nil
	}
	return false
}

// validateObject validates an object against schema
func (v *Validator) validateObject(schema *Schema, value any, path string, result *ValidationResult) {
	obj, ok := value.(map[string]any)
	if !ok {
		return
	}

	for _, reqField := range schema.Required {
		if _, exists := obj[reqField]; !exists {
			result.Valid = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s: missing required field '%s'", pathOrRoot(path), reqField))
		}
	}

	for propName, propSchema := range schema.Properties {
		propPath := joinPath(path, propName)
		if propValue, exists := obj[propName]; exists {
			v.validateValue(propSchema, propValue, propPath, result)
		}
	}

	// In strict mode, reject unknown properties
	if v.strictMode {
		for propName := range obj {
			if _, defined := schema.Properties[propName]; !defined {
				result.Valid = false
				result.Errors = append(result.Errors,
					fmt.Sprintf("%s: unknown property '%s'", pathOrRoot(path), propName))
			}
		}
	}
}

// validateArray validates an array against schema
func (v *Validator) validateArray(schema *Schema, value any, path string, result *ValidationResult) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice {
		return
	}

	if schema.Items != nil {
		for i := 0; i < rv.Len(); i++ {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			v.validateValue(schema.Items, rv.Index(i).Interface(), itemPath, result)
		}
	}
}

// validateString validates a string against schema constraints
func (v *Validator) validateString(schema *Schema, value any, path string, result *ValidationResult) {
	str, ok := value.(string)
	if !ok {
		return
	}

	if schema.MinLength != nil && len(str) < *schema.MinLength {
		result.Valid = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("%s: string length %d is less than minimum %d", pathOrRoot(path), len(str), *schema.MinLength))
	}

	if schema.MaxLength != nil && len(str) > *schema.MaxLength {
		result.Valid = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("%s: string length %d is greater than maximum %d", pathOrRoot(path), len(str), *schema.MaxLength))
	}
}

// validateNumber validates a number against schema constraints
func (v *Validator) validateNumber(schema *Schema, value any, path string, result *ValidationResult) {
	var num float64
	switch val := value.(type) {
	case float64:
		num = val
	case int:
		num = float64(val)
	case int64:
		num = float64(val)
	default:
		return
	}

	if schema.Minimum != nil && num < *schema.Minimum {
		result.Valid = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("%s: value %v is less than minimum %v", pathOrRoot(path), num, *schema.Minimum))
	}

	if schema.Maximum != nil && num > *schema.Maximum {
		result.Valid = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("%s: value %v is greater than maximum %v", pathOrRoot(path), num, *schema.Maximum))
	}
}

// validateEnum validates a value against enum options
func (v *Validator) validateEnum(enum []any, value any, path string, result *ValidationResult) {
	for _, option := range enum {
		if reflect.DeepEqual(option, value) {
			return
		}
	}
	result.Valid = false
	result.Errors = append(result.Errors,
		fmt.Sprintf("%s: value %v is not one of allowed values %v", pathOrRoot(path), value, enum))
}

func pathOrRoot(path string) string {
	if path == "" {
		return "root"
	}
	return path
}

func joinPath(base, field string) string {
	if base == "" {
		return field
	}
	return base + "." + field
}
