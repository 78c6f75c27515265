package testutil

import "sync"

// ProgressUpdate represents a single progress update event.
type ProgressUpdate struct {
	Transferred int64
	Total       int64
}

// MockProgressTracker records progress callbacks. It is safe for concurrent use.
type MockProgressTracker struct {
	mu        sync.Mutex
	updates   []ProgressUpdate
	completed bool
	lastErr   error
}

// Update records a progress update.
func (m *MockProgressTracker) Update(bytesTransferred, totalBytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, ProgressUpdate{
		Transferred: bytesTransferred,
		Total:       totalBytes,
	})
}

// Complete marks the transfer as complete.
func (m *MockProgressTracker) Complete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = true
}

// Error records a failure.
func (m *MockProgressTracker) Error(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = err
}

// Updates returns a copy of the recorded updates.
func (m *MockProgressTracker) Updates() []ProgressUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ProgressUpdate(nil), m.updates...)
}

// Completed reports whether Complete was called.
func (m *MockProgressTracker) Completed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completed
}

// Err returns the error passed to Error, if any.
func (m *MockProgressTracker) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// LastTransferred returns the byte count of the latest update.
func (m *MockProgressTracker) LastTransferred() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.updates) == 0 {
		return 0
	}
	return m.updates[len(m.updates)-1].Transferred
}
