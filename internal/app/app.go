package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"adminbot/internal/adminapi"
	"adminbot/internal/bot"
	"adminbot/internal/config"
	"adminbot/internal/conversation"
	"adminbot/internal/notify"
	"adminbot/internal/storage"
	"adminbot/internal/storage/ch"
	"adminbot/internal/storage/stubs"
)

const auditCapacity = 1000

// updateHandler receives decoded webhook updates
type updateHandler interface {
	HandleUpdate(update tgbotapi.Update)
}

// App represents the application
type App struct {
	config    *config.Config
	logger    *zap.Logger
	audit     storage.AuditLog
	bot       *bot.Bot
	updates   updateHandler
	engine    *conversation.Engine
	server    *http.Server
	notify    *notify.Server
	startedAt time.Time
}

// New creates and initializes a new application instance
func New(ctx context.Context) (*App, error) {
	// Load .env file if it exists
	envErr := godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if envErr != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	a := &App{config: cfg, logger: logger, startedAt: time.Now()}

	logger.Info("Starting Admin Telegram Bot...")

	if err := a.initAudit(ctx); err != nil {
		return nil, err
	}
	if err := a.initBot(ctx); err != nil {
		return nil, err
	}

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      a.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	a.notify = notify.NewServer(cfg.NotificationPort, cfg.NotificationSecret, cfg.NotificationRecipients(), a.engine, logger)

	return a, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}

// initAudit opens the admin action journal
func (a *App) initAudit(ctx context.Context) error {
	var audit storage.AuditLog
	if a.config.AuditStorage == "clickhouse" {
		a.logger.Info("Connecting to ClickHouse",
			zap.String("host", a.config.ClickHouseHost),
			zap.Int("port", a.config.ClickHousePort),
			zap.String("database", a.config.ClickHouseDatabase),
			zap.String("user", a.config.ClickHouseUser),
			zap.Bool("tls", a.config.ClickHouseUseTLS),
		)
		db, err := ch.NewClickHouseAuditLog(ch.Options{
			Host:     a.config.ClickHouseHost,
			Port:     a.config.ClickHousePort,
			Database: a.config.ClickHouseDatabase,
			User:     a.config.ClickHouseUser,
			Password: a.config.ClickHousePassword,
			UseTLS:   a.config.ClickHouseUseTLS,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		audit = db
	} else {
		a.logger.Info("Using in-memory audit log", zap.Int("capacity", auditCapacity))
		audit = stubs.NewMockAuditLog(auditCapacity)
	}

	if err := audit.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize audit log: %w", err)
	}

	a.audit = audit
	return nil
}

// initBot wires the Telegram bot, the admin API client and the conversation engine
func (a *App) initBot(ctx context.Context) error {
	telegramBot, err := bot.NewBot(ctx, a.config.TelegramToken, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	client := adminapi.NewClient(a.config.APIBaseURL, a.config.APIKey, a.config.APITimeout, a.logger)

	a.engine = conversation.NewEngine(client, telegramBot, conversation.Options{
		Access:      conversation.NewAccess(a.config.AdminUsers, a.config.DishManagerUsers, a.config.OrderManagerUsers),
		Renderer:    conversation.NewRenderer(a.config.MarkdownRendering),
		Audit:       a.audit,
		BotUsername: telegramBot.Username(),
		APIURL:      client.BaseURL(),
		StartedAt:   a.startedAt,
		Logger:      a.logger,
	})
	telegramBot.SetHandler(a.engine)

	if len(a.config.AdminUsers) == 0 {
		a.logger.Warn("ADMIN_USERS is empty, the bot is open to every chat")
	}
	a.logger.Info("Bot created", zap.Int64s("admins", a.config.AdminUsers))

	a.bot = telegramBot
	a.updates = telegramBot
	return nil
}

func (a *App) mode() string {
	if a.config.WebhookMode {
		return "webhook"
	}
	return "polling"
}

// routes builds the health and webhook endpoints
func (a *App) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"service":   "admin-telegram-bot",
			"mode":      a.mode(),
			"admins":    len(a.config.AdminUsers),
			"uptime":    time.Since(a.startedAt).Round(time.Second).String(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "🤖 Admin Telegram Bot is running (mode: %s)", a.mode())
	})

	// Only used in webhook mode
	mux.HandleFunc(bot.WebhookPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			a.logger.Warn("Error decoding webhook update", zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		// Queued per chat, so Telegram gets its answer right away
		a.updates.HandleUpdate(update)

		w.WriteHeader(http.StatusOK)
	})

	return mux
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		a.logger.Info("Starting HTTP server", zap.Int("port", a.config.Port))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	a.notify.Start()

	errCh := make(chan error, 1)
	if a.config.WebhookMode {
		a.logger.Info("Starting bot in WEBHOOK mode", zap.String("url", a.config.WebhookURL))
		if err := a.bot.StartWebhook(a.config.WebhookURL); err != nil {
			_ = a.Shutdown()
			return fmt.Errorf("failed to setup webhook: %w", err)
		}
		a.logger.Info("Webhook configured", zap.String("endpoint", bot.WebhookPath))
	} else {
		go func() {
			a.logger.Info("Starting bot in POLLING mode...")
			errCh <- a.bot.Start(ctx)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			runErr = fmt.Errorf("bot stopped: %w", err)
		}
	}

	a.logger.Info("Shutting down...")
	if err := a.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("HTTP server shutdown error", zap.Error(err))
	}
	if err := a.notify.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("Notification server shutdown error", zap.Error(err))
	}

	// Let in-flight chat events finish
	a.bot.Drain()

	if err := a.audit.Close(); err != nil {
		a.logger.Error("Error closing audit log", zap.Error(err))
		return err
	}

	a.logger.Info("Shutdown complete")
	_ = a.logger.Sync()
	return nil
}
