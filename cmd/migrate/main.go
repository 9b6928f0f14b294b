package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"adminbot/internal/config"
	"adminbot/internal/storage/ch"
)

const usage = "Usage: migrate [up|down|reset|status|version|create <name>]"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using existing environment variables")
	}

	settings, err := config.ClickHouseFromEnv()
	if err != nil {
		log.Fatal(err)
	}
	if settings.Host == "" {
		settings.Host = "localhost"
	}

	command := "up"
	var args []string
	if len(os.Args) > 1 {
		command = os.Args[1]
		args = os.Args[2:]
	}
	switch command {
	case "up", "down", "reset", "status", "version":
	case "create":
		if len(args) != 1 {
			log.Fatal(usage)
		}
		args = append(args, "sql")
	default:
		log.Fatalf("Unknown command: %s. %s", command, usage)
	}

	dir := os.Getenv("MIGRATIONS_DIR")
	if dir == "" {
		dir = "./migrations"
	}

	db := ch.OpenDB(ch.Options{
		Host:     settings.Host,
		Port:     settings.Port,
		Database: settings.Database,
		User:     settings.User,
		Password: settings.Password,
		UseTLS:   settings.UseTLS,
	})
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping ClickHouse at %s:%d: %v", settings.Host, settings.Port, err)
	}
	log.Printf("Connected to ClickHouse at %s:%d (database: %s)", settings.Host, settings.Port, settings.Database)

	if err := ch.Migrate(ctx, db, dir, command, args...); err != nil {
		log.Fatal(err)
	}
	log.Printf("Migration command %q completed", command)
}
