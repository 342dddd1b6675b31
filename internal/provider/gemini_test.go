package provider

import (
	"context"
	"errors"
	"testing"
)

func TestGeminiInvalidResponseSchema(t *testing.T) {
	p := &GeminiProvider{}

	req := testStructuredRequest()
	req.ResponseSchema = []byte(`["not", "a", "schema"]`)

	_, err := p.CreateStructured(context.Background(), req)
	if err == nil {
		t.Fatal("expected error for a schema Gemini cannot represent")
	}

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ProviderError, got %T", err)
	}
	if perr.Code != ErrorCodeInvalidRequest {
		t.Errorf("code = %s", perr.Code)
	}
	if perr.IsRetryable {
		t.Error("a bad schema must not be retried")
	}
}

func TestGeminiBuildContents(t *testing.T) {
	p := &GeminiProvider{}

	contents, system := p.buildContents([]Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
	})

	if system == nil || system.Parts[0].Text != "be terse" {
		t.Errorf("system instruction = %+v", system)
	}
	if len(contents) != 2 {
		t.Fatalf("expected 2 contents, got %d", len(contents))
	}
	if contents[0].Role != "user" {
		t.Errorf("role = %q", contents[0].Role)
	}
	if contents[1].Role != "model" {
		t.Errorf("assistant role should map to model, got %q", contents[1].Role)
	}
}

func TestGeminiWrapError(t *testing.T) {
	p := &GeminiProvider{}

	cases := []struct {
		msg       string
		code      string
		retryable bool
	}{
		{"429 rate limit exceeded", ErrorCodeRateLimit, true},
		{"401 invalid credentials", ErrorCodeAuthentication, false},
		{"model not found", ErrorCodeModelNotFound, false},
		{"503 service unavailable", ErrorCodeServerError, true},
	}
	for _, tc := range cases {
		err := p.wrapError(errors.New(tc.msg))
		var perr *ProviderError
		if !errors.As(err, &perr) {
			t.Fatalf("%q: expected *ProviderError, got %T", tc.msg, err)
		}
		if perr.Code != tc.code {
			t.Errorf("%q: code = %s, want %s", tc.msg, perr.Code, tc.code)
		}
		if perr.IsRetryable != tc.retryable {
			t.Errorf("%q: retryable = %v", tc.msg, perr.IsRetryable)
		}
	}
}
