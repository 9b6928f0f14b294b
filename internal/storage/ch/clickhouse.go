package ch

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"

	"adminbot/internal/models"
)

// Options holds the ClickHouse connection settings
type Options struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	UseTLS   bool
}

type ClickHouseAuditLog struct {
	conn clickhouse.Conn
	opts Options
}

func (opts Options) native() *clickhouse.Options {
	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)

	options := &clickhouse.Options{
		Addr:     []string{addr},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.User,
			Password: opts.Password,
		},
	}

	if opts.UseTLS {
		options.TLS = &tls.Config{
			InsecureSkipVerify: false,
		}
	}

	return options
}

// NewClickHouseAuditLog connects to ClickHouse over the native protocol
func NewClickHouseAuditLog(opts Options) (*ClickHouseAuditLog, error) {
	conn, err := clickhouse.Open(opts.native())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseAuditLog{conn: conn, opts: opts}, nil
}

// Initialize is a no-op - tables are managed via migrations
func (db *ClickHouseAuditLog) Initialize(ctx context.Context) error {
	return nil
}

// RecordEvent stores one admin action
func (db *ClickHouseAuditLog) RecordEvent(ctx context.Context, event models.AuditEvent) error {
	err := db.conn.Exec(ctx, `INSERT INTO audit_events (id, time, chat_id, action, entity_id, details) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New(), event.Time, event.ChatID, event.Action, event.EntityID, event.Details)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

// LastEvents returns the last N events, newest first
func (db *ClickHouseAuditLog) LastEvents(ctx context.Context, limit int) ([]models.AuditEvent, error) {
	rows, err := db.conn.Query(ctx, `SELECT time, chat_id, action, entity_id, details FROM audit_events ORDER BY time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get last audit events: %w", err)
	}
	defer rows.Close()

	var events []models.AuditEvent
	for rows.Next() {
		var event models.AuditEvent
		if err := rows.Scan(&event.Time, &event.ChatID, &event.Action, &event.EntityID, &event.Details); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit events: %w", err)
	}
	return events, nil
}

// Close closes the database connection
func (db *ClickHouseAuditLog) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
