package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	TelegramToken string

	// Admin API
	APIBaseURL string
	APIKey     string
	APITimeout time.Duration

	// Access control. An empty AdminUsers list opens the bot to everyone.
	AdminUsers        []int64
	DishManagerUsers  []int64
	OrderManagerUsers []int64
	AdminChatID       int64 // extra recipient of order notifications, 0 if unset

	// Bot mode configuration
	WebhookMode bool   // If true, use webhook mode; if false, use polling mode
	WebhookURL  string // URL for webhook (required if WebhookMode is true)
	Port        int    // health and webhook HTTP server

	// Order notifications
	NotificationPort   int
	NotificationSecret string

	MarkdownRendering bool
	LogLevel          string

	// Audit storage: "memory" or "clickhouse"
	AuditStorage string

	// ClickHouse configuration
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	ClickHouseUseTLS   bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{}
	var err error

	// Telegram Bot Token (required)
	config.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if config.TelegramToken == "" {
		config.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	}
	if config.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	// Admin API (required)
	config.APIBaseURL = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	if config.APIBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required")
	}
	config.APIKey = os.Getenv("ADMIN_API_KEY")
	if config.APIKey == "" {
		return nil, fmt.Errorf("ADMIN_API_KEY is required")
	}
	config.APITimeout = 10 * time.Second
	if v := os.Getenv("API_TIMEOUT"); v != "" {
		config.APITimeout, err = time.ParseDuration(v)
		if err != nil || config.APITimeout <= 0 {
			return nil, fmt.Errorf("invalid API_TIMEOUT: %q", v)
		}
	}

	// Access lists (optional)
	if config.AdminUsers, err = parseIDList("ADMIN_USERS"); err != nil {
		return nil, err
	}
	if config.DishManagerUsers, err = parseIDList("DISH_MANAGER_USERS"); err != nil {
		return nil, err
	}
	if config.OrderManagerUsers, err = parseIDList("ORDER_MANAGER_USERS"); err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(os.Getenv("ADMIN_CHAT_ID")); v != "" {
		config.AdminChatID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_CHAT_ID: %s", v)
		}
	}

	// Bot mode configuration
	config.WebhookMode = os.Getenv("WEBHOOK_MODE") == "true"
	if config.WebhookMode {
		config.WebhookURL = strings.TrimRight(os.Getenv("WEBHOOK_URL"), "/")
		if config.WebhookURL == "" {
			return nil, fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_MODE is true")
		}
	}

	if config.Port, err = parsePort("PORT", 8080); err != nil {
		return nil, err
	}
	if config.NotificationPort, err = parsePort("NOTIFICATION_PORT", 8081); err != nil {
		return nil, err
	}
	if config.NotificationPort == config.Port {
		return nil, fmt.Errorf("NOTIFICATION_PORT must differ from PORT (%d)", config.Port)
	}
	config.NotificationSecret = os.Getenv("NOTIFICATION_SECRET")

	switch mode := os.Getenv("RENDER_MODE"); mode {
	case "", "markdown":
		config.MarkdownRendering = true
	case "plain":
		config.MarkdownRendering = false
	default:
		return nil, fmt.Errorf("invalid RENDER_MODE: %q (expected markdown or plain)", mode)
	}

	config.LogLevel = os.Getenv("LOG_LEVEL")
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	config.AuditStorage = os.Getenv("AUDIT_STORAGE")
	if config.AuditStorage == "" {
		config.AuditStorage = "memory"
	}
	if config.AuditStorage != "memory" && config.AuditStorage != "clickhouse" {
		return nil, fmt.Errorf("invalid AUDIT_STORAGE: %q (expected memory or clickhouse)", config.AuditStorage)
	}

	// ClickHouse configuration (required for clickhouse audit storage)
	if config.AuditStorage == "clickhouse" {
		ch, err := ClickHouseFromEnv()
		if err != nil {
			return nil, err
		}
		if ch.Host == "" {
			return nil, fmt.Errorf("CLICKHOUSE_HOST is required when AUDIT_STORAGE is clickhouse")
		}
		config.ClickHouseHost = ch.Host
		config.ClickHousePort = ch.Port
		config.ClickHouseDatabase = ch.Database
		config.ClickHouseUser = ch.User
		config.ClickHousePassword = ch.Password
		config.ClickHouseUseTLS = ch.UseTLS
	}

	return config, nil
}

// ClickHouse holds the CLICKHOUSE_* connection settings
type ClickHouse struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	UseTLS   bool
}

// ClickHouseFromEnv reads the ClickHouse settings on their own, without the bot
// settings LoadFromEnv requires. Host has no default.
func ClickHouseFromEnv() (ClickHouse, error) {
	ch := ClickHouse{
		Host:     os.Getenv("CLICKHOUSE_HOST"),
		Database: os.Getenv("CLICKHOUSE_DATABASE"),
		User:     os.Getenv("CLICKHOUSE_USER"),
		Password: os.Getenv("CLICKHOUSE_PASSWORD"), // Password is optional, can be empty
		UseTLS:   os.Getenv("CLICKHOUSE_USE_TLS") == "true",
	}
	var err error
	if ch.Port, err = parsePort("CLICKHOUSE_PORT", 9000); err != nil {
		return ClickHouse{}, err
	}
	if ch.Database == "" {
		ch.Database = "default"
	}
	if ch.User == "" {
		ch.User = "default"
	}
	return ch, nil
}

// NotificationRecipients returns the chats that receive new-order notifications
func (c *Config) NotificationRecipients() []int64 {
	recipients := make([]int64, 0, len(c.AdminUsers)+1)
	recipients = append(recipients, c.AdminUsers...)
	if c.AdminChatID != 0 {
		recipients = append(recipients, c.AdminChatID)
	}
	return recipients
}

// parseIDList parses a comma-separated list of Telegram chat IDs
func parseIDList(name string) ([]int64, error) {
	raw := os.Getenv(name)
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var ids []int64
	for _, idStr := range strings.Split(raw, ",") {
		idStr = strings.TrimSpace(idStr)
		if idStr == "" {
			continue
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID in %s: %s", name, idStr)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parsePort(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	port, err := strconv.Atoi(v)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid %s: %q", name, v)
	}
	return port, nil
}
