package classifier

import (
	"context"
	"sync"
)

// MockModel implements Model for testing purposes.
type MockModel struct {
	probabilities []float64
	err           error
	calls         int
	closed        bool
	mu            sync.Mutex
}

// NewMockModel creates a MockModel that always returns probabilities.
func NewMockModel(probabilities ...float64) *MockModel {
	return &MockModel{probabilities: probabilities}
}

// SetProbabilities changes the probabilities returned by subsequent calls.
func (m *MockModel) SetProbabilities(probabilities ...float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probabilities = probabilities
}

// SetError makes subsequent calls fail with err. Pass nil to clear it.
func (m *MockModel) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Predict records the call and returns the configured output.
func (m *MockModel) Predict(ctx context.Context, keypoints, angles [][]float64) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}

	out := make([]float64, len(m.probabilities))
	copy(out, m.probabilities)
	return out, nil
}

// Calls returns how many times Predict was invoked.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *MockModel) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close marks the mock as closed.
func (m *MockModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
