package mock

import (
	"context"
	"sync"
)

// Call records one Complete invocation.
type Call struct {
	System string
	Prompt string
}

// MockReasoner is a test double for ai.Reasoner.
// It replays scripted responses in order; once exhausted, the last response
// repeats. An empty script returns an empty JSON object.
type MockReasoner struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     []Call

	// completeFunc overrides scripted behavior when set.
	completeFunc func(ctx context.Context, system, prompt string) (string, error)
}

// NewMockReasoner creates a reasoner that replies with the given responses in order.
// Note: Returns concrete type to allow test assertions via GetMockReasoner().
func NewMockReasoner(responses ...string) *MockReasoner {
	return &MockReasoner{responses: responses}
}

// WithResponses replaces the scripted responses.
func (m *MockReasoner) WithResponses(responses ...string) *MockReasoner {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	return m
}

// WithErrors scripts errors by call index; a nil entry means no error.
func (m *MockReasoner) WithErrors(errs ...error) *MockReasoner {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = errs
	return m
}

// WithCompleteFunc replaces scripted behavior entirely.
func (m *MockReasoner) WithCompleteFunc(fn func(ctx context.Context, system, prompt string) (string, error)) *MockReasoner {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeFunc = fn
	return m
}

// Complete records the call and returns the next scripted reply.
func (m *MockReasoner) Complete(ctx context.Context, system, prompt string) (string, error) {
	m.mu.Lock()
	idx := len(m.calls)
	m.calls = append(m.calls, Call{System: system, Prompt: prompt})
	fn := m.completeFunc
	var err error
	if idx < len(m.errs) {
		err = m.errs[idx]
	}
	reply := "{}"
	switch {
	case idx < len(m.responses):
		reply = m.responses[idx]
	case len(m.responses) > 0:
		reply = m.responses[len(m.responses)-1]
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, system, prompt)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err != nil {
		return "", err
	}
	return reply, nil
}

// CallCount returns the number of Complete calls.
func (m *MockReasoner) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of every recorded call.
func (m *MockReasoner) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// LastCall returns the most recent call, or a zero Call.
func (m *MockReasoner) LastCall() Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return Call{}
	}
	return m.calls[len(m.calls)-1]
}

// Reset clears recorded calls and scripted behavior.
func (m *MockReasoner) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.responses = nil
	m.errs = nil
	m.completeFunc = nil
}
