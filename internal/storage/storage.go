package storage

import (
	"context"

	"adminbot/internal/models"
)

// AuditLog defines the storage operations for the admin action journal
type AuditLog interface {
	// RecordEvent appends a successful admin write
	RecordEvent(ctx context.Context, event models.AuditEvent) error

	// LastEvents returns the most recent events, newest first
	LastEvents(ctx context.Context, limit int) ([]models.AuditEvent, error)

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}
