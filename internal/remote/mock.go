package remote

import (
	"context"
	"encoding/json"
	"sync"
)

// Call records one Mock invocation.
type Call struct {
	Function string
	Payload  json.RawMessage
}

// Mock is an in-process Invoker returning canned replies.
type Mock struct {
	mu      sync.Mutex
	replies map[string]json.RawMessage
	errs    map[string]error
	calls   []Call
}

// NewMock returns a Mock with no replies configured.
func NewMock() *Mock {
	return &Mock{replies: map[string]json.RawMessage{}, errs: map[string]error{}}
}

// Reply makes function return v encoded as JSON.
func (m *Mock) Reply(function string, v any) *Mock {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[function] = data
	return m
}

// Fail makes function return err.
func (m *Mock) Fail(function string, err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[function] = err
	return m
}

// Invoke implements Invoker. Unconfigured functions reply with null.
func (m *Mock) Invoke(_ context.Context, function string, payload any) (json.RawMessage, error) {
	data, _ := json.Marshal(payload)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Function: function, Payload: data})
	if err, ok := m.errs[function]; ok {
		return nil, err
	}
	if reply, ok := m.replies[function]; ok {
		return reply, nil
	}
	return json.RawMessage("null"), nil
}

// Calls returns the invocations made so far.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}
