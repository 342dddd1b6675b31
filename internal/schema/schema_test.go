package schema

import (
	"encoding/json"
	"strings"
	"testing"
)

const personSchema = `{
	"type": "object",
	"properties": {
		"name": {"type": "string"},
		"age": {"type": "integer", "minimum": 0},
		"email": {"type": "string"}
	},
	"required": ["name", "age"]
}`

func TestValidateJSONValid(t *testing.T) {
	data := `{"name": "Ada", "age": 36, "email": "ada@example.com"}`
	if err := ValidateJSON([]byte(personSchema), []byte(data), true); err != nil {
		t.Errorf("expected valid, got %v", err)
	}
}

func TestValidateJSONMissingRequired(t *testing.T) {
	data := `{"name": "Ada"}`
	err := ValidateJSON([]byte(personSchema), []byte(data), true)
	if err == nil {
		t.Fatal("expected error for missing required field")
	}
	if !strings.Contains(err.Error(), "age") {
		t.Errorf("error should name the missing field, got %v", err)
	}
}

func TestValidateJSONWrongType(t *testing.T) {
	data := `{"name": "Ada", "age": "thirty-six"}`
	if err := ValidateJSON([]byte(personSchema), []byte(data), true); err == nil {
		t.Error("expected error for wrong type")
	}
}

func TestValidateJSONStrictRejectsUnknown(t *testing.T) {
	data := `{"name": "Ada", "age": 36, "nickname": "countess"}`
	if err := ValidateJSON([]byte(personSchema), []byte(data), true); err == nil {
		t.Error("strict mode should reject unknown properties")
	}
	if err := ValidateJSON([]byte(personSchema), []byte(data), false); err != nil {
		t.Errorf("non-strict mode should allow unknown properties, got %v", err)
	}
}

func TestValidateJSONEnum(t *testing.T) {
	s := `{"type": "object", "properties": {"color": {"type": "string", "enum": ["red", "green"]}}, "required": ["color"]}`

	if err := ValidateJSON([]byte(s), []byte(`{"color": "red"}`), true); err != nil {
		t.Errorf("expected valid enum value, got %v", err)
	}
	if err := ValidateJSON([]byte(s), []byte(`{"color": "blue"}`), true); err == nil {
		t.Error("expected error for value outside enum")
	}
}

func TestValidateJSONNestedArray(t *testing.T) {
	s := `{
		"type": "object",
		"properties": {
			"tags": {"type": "array", "items": {"type": "string"}}
		},
		"required": ["tags"]
	}`

	if err := ValidateJSON([]byte(s), []byte(`{"tags": ["a", "b"]}`), true); err != nil {
		t.Errorf("expected valid array, got %v", err)
	}
	if err := ValidateJSON([]byte(s), []byte(`{"tags": ["a", 1]}`), true); err == nil {
		t.Error("expected error for mixed array item types")
	}
}

func TestValidationErrorType(t *testing.T) {
	err := ValidateJSON([]byte(personSchema), []byte(`{}`), true)
	var verr *ValidationError
	if !asValidationError(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(verr.Errors) == 0 {
		t.Error("validation error should carry details")
	}
}

func asValidationError(err error, target **ValidationError) bool {
	v, ok := err.(*ValidationError)
	if ok {
		*target = v
	}
	return ok
}

func TestFromStructOf(t *testing.T) {
	type Result struct {
		Answer     string  `json:"answer" description:"The answer text"`
		Confidence float64 `json:"confidence"`
		Notes      string  `json:"notes,omitempty"`
		Hidden     string  `json:"-"`
	}

	s := FromStructOf[Result]()
	raw, err := s.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		Type       string                     `json:"type"`
		Properties map[string]json.RawMessage `json:"properties"`
		Required   []string                   `json:"required"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Type != "object" {
		t.Errorf("expected object schema, got %q", decoded.Type)
	}
	if _, ok := decoded.Properties["answer"]; !ok {
		t.Error("expected answer property")
	}
	if _, ok := decoded.Properties["Hidden"]; ok {
		t.Error("json:\"-\" field should be skipped")
	}
	required := map[string]bool{}
	for _, r := range decoded.Required {
		required[r] = true
	}
	if !required["answer"] || !required["confidence"] {
		t.Errorf("non-omitempty fields should be required, got %v", decoded.Required)
	}
	if required["notes"] {
		t.Error("omitempty field should not be required")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "Here you go:\n```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounded", `The result is {"a": {"b": 2}} as requested.`, `{"a": {"b": 2}}`},
		{"brace in string", `{"a": "}"}`, `{"a": "}"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractJSON(tt.input)
			if got != tt.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
