package main

import (
	"context"
	"fmt"
	"log"
	"os"

	clickhouseTC "github.com/testcontainers/testcontainers-go/modules/clickhouse"

	"adminbot/internal/app"
	"adminbot/internal/storage/ch"
)

const devPassword = "devpassword"

func main() {
	ctx := context.Background()

	log.Println("Starting ClickHouse testcontainer...")

	container, err := clickhouseTC.Run(ctx,
		"clickhouse/clickhouse-server:latest",
		clickhouseTC.WithUsername("default"),
		clickhouseTC.WithPassword(devPassword),
		clickhouseTC.WithDatabase("default"),
	)
	if err != nil {
		log.Fatalf("Failed to start ClickHouse container: %v", err)
	}

	// Ensure container cleanup on exit
	defer func() {
		log.Println("Stopping ClickHouse container...")
		if err := container.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate container: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "9000/tcp")
	if err != nil {
		log.Fatalf("Failed to get container port: %v", err)
	}
	log.Printf("ClickHouse started at %s:%s", host, port.Port())

	if err := migrate(ctx, host, port.Int()); err != nil {
		log.Printf("Failed to apply migrations: %v", err)
		return
	}

	os.Setenv("AUDIT_STORAGE", "clickhouse")
	os.Setenv("CLICKHOUSE_HOST", host)
	os.Setenv("CLICKHOUSE_PORT", port.Port())
	os.Setenv("CLICKHOUSE_DATABASE", "default")
	os.Setenv("CLICKHOUSE_USER", "default")
	os.Setenv("CLICKHOUSE_PASSWORD", devPassword)
	os.Setenv("CLICKHOUSE_USE_TLS", "false")
	os.Setenv("WEBHOOK_MODE", "false")
	if os.Getenv("LOG_LEVEL") == "" {
		os.Setenv("LOG_LEVEL", "debug")
	}

	for _, name := range []string{"TELEGRAM_BOT_TOKEN", "API_BASE_URL", "ADMIN_API_KEY"} {
		if os.Getenv(name) == "" {
			log.Printf("⚠️  %s not set. Please set it in your .env file or environment.", name)
		}
	}
	if os.Getenv("ADMIN_USERS") == "" {
		log.Println("⚠️  ADMIN_USERS not set. Every chat will get admin access.")
	}

	log.Println("Starting application with ClickHouse audit log...")
	fmt.Println()

	application, err := app.New(ctx)
	if err != nil {
		log.Printf("Failed to create application: %v", err)
		return
	}

	// Run blocks until SIGINT or SIGTERM, then the deferred cleanup stops the container
	if err := application.Run(ctx); err != nil {
		log.Printf("Application error: %v", err)
	}
}

// migrate applies the migrations to the container database
func migrate(ctx context.Context, host string, port int) error {
	db := ch.OpenDB(ch.Options{Host: host, Port: port, Database: "default", User: "default", Password: devPassword})
	defer db.Close()
	return ch.Migrate(ctx, db, migrationsDir(), "up")
}

func migrationsDir() string {
	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		return dir
	}
	return "./migrations"
}
