package provider

import (
	"context"
	"sync"
)

// MockHandler decides the outcome of one mock completion call
type MockHandler func(ctx context.Context, req StructuredRequest) (*StructuredResponse, error)

// MockProvider is a scriptable provider for tests and examples. The handler
// receives every request; calls are recorded thread-safely.
type MockProvider struct {
	handler  MockHandler
	mu       sync.Mutex
	requests []StructuredRequest
}

// NewMockProvider creates a mock provider driven by the given handler
func NewMockProvider(handler MockHandler) *MockProvider {
	return &MockProvider{handler: handler}
}

// Name returns the provider name
func (m *MockProvider) Name() string {
	return "mock"
}

// CreateStructured records the request and delegates to the handler
func (m *MockProvider) CreateStructured(ctx context.Context, req StructuredRequest) (*StructuredResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	return m.handler(ctx, req)
}

// Calls returns the number of calls made so far
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// CallsForModel returns the number of calls made for a specific model
func (m *MockProvider) CallsForModel(model string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.requests {
		if r.Model == model {
			n++
		}
	}
	return n
}

// Requests returns a copy of all recorded requests
func (m *MockProvider) Requests() []StructuredRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StructuredRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
