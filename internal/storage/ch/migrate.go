package ch

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/pressly/goose/v3"
)

// OpenDB opens a database/sql handle over the native protocol, as goose needs one
func OpenDB(opts Options) *sql.DB {
	return clickhouse.OpenDB(opts.native())
}

// Migrate runs a goose command (up, down, reset, status, version, create ...)
// against the migrations in dir
func Migrate(ctx context.Context, db *sql.DB, dir, command string, args ...string) error {
	if err := goose.SetDialect("clickhouse"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
