package llm

import (
	"context"
	"sync"
)

// MockClient is a test double for the LLM Client interface.
// It can also be used for dry-run mode.
//
// Responses are consumed in order; once exhausted, Response/Err are returned
// for every further call. Fn, when set, takes precedence over both.
type MockClient struct {
	Response  *Response
	Err       error
	Responses []*Response
	Fn        func(req Request) (*Response, error)

	mu    sync.Mutex
	Calls []Request // records requests sent
}

// Complete records the call and returns the mock response.
func (m *MockClient) Complete(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	var next *Response
	if len(m.Responses) > 0 {
		next = m.Responses[0]
		m.Responses = m.Responses[1:]
	}
	fn := m.Fn
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fn != nil {
		return fn(req)
	}
	if next != nil {
		return next, nil
	}
	return m.Response, m.Err
}

// CallCount returns the number of Complete calls so far.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Text is a shorthand for a mock response carrying content.
func Text(content string) *Response {
	return &Response{Content: content, Provider: "mock"}
}
