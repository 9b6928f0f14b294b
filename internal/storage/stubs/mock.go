package stubs

import (
	"context"
	"sort"
	"sync"

	"adminbot/internal/models"
)

// MockAuditLog is an in-memory implementation of the AuditLog interface.
// It is used in tests and when AUDIT_STORAGE=memory.
type MockAuditLog struct {
	mu     sync.RWMutex
	events []models.AuditEvent
	max    int
}

// NewMockAuditLog creates an empty journal keeping at most max events (0 means unbounded)
func NewMockAuditLog(max int) *MockAuditLog {
	return &MockAuditLog{
		events: make([]models.AuditEvent, 0),
		max:    max,
	}
}

// Initialize is a no-op for the in-memory journal
func (m *MockAuditLog) Initialize(ctx context.Context) error {
	return nil
}

// RecordEvent appends an event, dropping the oldest one when the journal is full
func (m *MockAuditLog) RecordEvent(ctx context.Context, event models.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, event)
	if m.max > 0 && len(m.events) > m.max {
		m.events = m.events[len(m.events)-m.max:]
	}
	return nil
}

// LastEvents returns the last N events, newest first
func (m *MockAuditLog) LastEvents(ctx context.Context, limit int) ([]models.AuditEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]models.AuditEvent, len(m.events))
	copy(events, m.events)

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time.After(events[j].Time)
	})

	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// Close is a no-op for the in-memory journal
func (m *MockAuditLog) Close() error {
	return nil
}
