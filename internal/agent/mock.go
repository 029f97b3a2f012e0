package agent

import (
	"context"
	"sync"
)

// MockModel replays scripted responses; used in tests and for running the
// service without provider credentials.
type MockModel struct {
	mu        sync.Mutex
	responses []ModelResponse
	err       error
	calls     int
	seen      [][]Message
}

func NewMockModel(responses ...ModelResponse) *MockModel {
	return &MockModel{responses: responses}
}

func (m *MockModel) FailWith(err error) { m.err = err }

func (m *MockModel) Invoke(_ context.Context, messages []Message, _ []Schema) (ModelResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, append([]Message(nil), messages...))
	m.calls++
	if m.err != nil {
		return ModelResponse{}, m.err
	}
	if len(m.responses) == 0 {
		return ModelResponse{Text: FinalAnswerMarker + " I'm a mock assistant."}, nil
	}
	if m.calls > len(m.responses) {
		return m.responses[len(m.responses)-1], nil
	}
	return m.responses[m.calls-1], nil
}

func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockModel) LastMessages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.seen) == 0 {
		return nil
	}
	return m.seen[len(m.seen)-1]
}
