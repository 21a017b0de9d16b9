package ingest

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// Records emitted fields in order
type mockEmitter struct {
	mu      sync.Mutex
	labels  []string
	records []map[string]any
	fail    bool
}

func (m *mockEmitter) Emit(label string, fields map[string]any) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		err = errors.New("rejected")
		return
	}
	m.labels = append(m.labels, label)
	m.records = append(m.records, fields)
	return
}

func (m *mockEmitter) snapshot() (records []map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records = append(records, m.records...)
	return
}

// Polls until the emitter holds at least n records
func (m *mockEmitter) waitFor(t *testing.T, n int) (records []map[string]any) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		records = m.snapshot()
		if len(records) >= n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d records, have %d", n, len(m.snapshot()))
	return
}
