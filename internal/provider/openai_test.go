package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const testSchema = `{"type": "object", "properties": {"answer": {"type": "string"}}, "required": ["answer"]}`

func testStructuredRequest() StructuredRequest {
	return StructuredRequest{
		Messages:       []Message{{Role: "user", Content: "hello"}},
		Model:          "gpt-4o",
		Temperature:    0.7,
		ResponseSchema: []byte(testSchema),
		StrictSchema:   true,
	}
}

func completionBody(content string) string {
	return `{
		"id": "chatcmpl-test",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": ` + marshalString(content) + `}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
	}`
}

func marshalString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestOpenAICreateStructured(t *testing.T) {
	var captured openaiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody(`{"answer": "hi"}`)))
	}))
	defer server.Close()

	p := NewOpenAIProvider("test-key", server.URL)
	resp, err := p.CreateStructured(context.Background(), testStructuredRequest())
	if err != nil {
		t.Fatalf("CreateStructured: %v", err)
	}

	if string(resp.Data) != `{"answer": "hi"}` {
		t.Errorf("data = %s", resp.Data)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("finish reason = %q", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("total tokens = %d", resp.Usage.TotalTokens)
	}

	if captured.Model != "gpt-4o" {
		t.Errorf("model = %q", captured.Model)
	}
	if captured.ResponseFormat == nil || captured.ResponseFormat.Type != "json_schema" {
		t.Fatalf("response format = %+v", captured.ResponseFormat)
	}
	if captured.ResponseFormat.JSONSchema == nil || !captured.ResponseFormat.JSONSchema.Strict {
		t.Error("schema should be sent in strict mode")
	}
}

func TestOpenAIErrorMapping(t *testing.T) {
	tests := []struct {
		status    int
		code      string
		retryable bool
	}{
		{401, ErrorCodeAuthentication, false},
		{429, ErrorCodeRateLimit, true},
		{400, ErrorCodeInvalidRequest, false},
		{404, ErrorCodeModelNotFound, false},
		{500, ErrorCodeServerError, true},
		{503, ErrorCodeServerError, true},
	}

	for _, tt := range tests {
		status := tt.status
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.Write([]byte(`{"error": {"message": "scripted", "type": "test_error"}}`))
		}))

		p := NewOpenAIProvider("test-key", server.URL)
		_, err := p.CreateStructured(context.Background(), testStructuredRequest())
		server.Close()

		var perr *ProviderError
		if !errors.As(err, &perr) {
			t.Fatalf("status %d: expected *ProviderError, got %v", tt.status, err)
		}
		if perr.Code != tt.code {
			t.Errorf("status %d: code = %q, want %q", tt.status, perr.Code, tt.code)
		}
		if perr.IsRetryable != tt.retryable {
			t.Errorf("status %d: retryable = %t, want %t", tt.status, perr.IsRetryable, tt.retryable)
		}
		if perr.StatusCode != tt.status {
			t.Errorf("status code = %d", perr.StatusCode)
		}
	}
}

func TestOpenAIContextCancellation(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewOpenAIProvider("test-key", server.URL)
	_, err := p.CreateStructured(ctx, testStructuredRequest())
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ProviderError, got %v", err)
	}
	if perr.Code != ErrorCodeTimeout {
		t.Errorf("code = %q, want %q", perr.Code, ErrorCodeTimeout)
	}
}

func TestOpenAINoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "chatcmpl-test", "choices": []}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider("test-key", server.URL)
	if _, err := p.CreateStructured(context.Background(), testStructuredRequest()); err == nil {
		t.Error("expected error for empty choices")
	}
}

func TestOpenAIDefaultsModel(t *testing.T) {
	var captured openaiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(completionBody(`{"answer": "x"}`)))
	}))
	defer server.Close()

	p := NewOpenAIProvider("test-key", server.URL)
	req := testStructuredRequest()
	req.Model = ""
	if _, err := p.CreateStructured(context.Background(), req); err != nil {
		t.Fatalf("CreateStructured: %v", err)
	}
	if captured.Model != "gpt-4o" {
		t.Errorf("default model = %q", captured.Model)
	}
}
