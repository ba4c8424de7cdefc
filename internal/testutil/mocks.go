package testutil

import (
	"context"
	"sync"

	"github.com/kyleking/askdb/internal/llm"
)

// MockGateway implements llm.Gateway with a scripted result
type MockGateway struct {
	mu sync.Mutex

	name     string
	result   llm.Result
	requests []llm.Request
}

// MockOption is a functional option for configuring MockGateway
type MockOption func(*MockGateway)

// WithSQL makes the gateway succeed with sql
func WithSQL(sql string) MockOption {
	return func(m *MockGateway) {
		m.result = llm.Success(m.name, sql)
	}
}

// WithResult sets the exact result returned
func WithResult(result llm.Result) MockOption {
	return func(m *MockGateway) {
		m.result = result
	}
}

// NewMockGateway creates a gateway that reports Unavailable unless configured
func NewMockGateway(name string, opts ...MockOption) *MockGateway {
	m := &MockGateway{name: name}
	m.result = llm.Unavailable(name, nil)

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *MockGateway) Name() string {
	return m.name
}

// GenerateSQL records the request and returns the scripted result
func (m *MockGateway) GenerateSQL(_ context.Context, req llm.Request) llm.Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	return m.result
}

// Calls returns how many times GenerateSQL ran
func (m *MockGateway) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.requests)
}

// LastRequest returns the most recent request, if any
func (m *MockGateway) LastRequest() (llm.Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.requests) == 0 {
		return llm.Request{}, false
	}

	return m.requests[len(m.requests)-1], true
}
