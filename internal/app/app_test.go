package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"adminbot/internal/config"
)

type fakeUpdates struct {
	updates []tgbotapi.Update
}

func (f *fakeUpdates) HandleUpdate(update tgbotapi.Update) {
	f.updates = append(f.updates, update)
}

func newTestApp(cfg *config.Config) (*App, *fakeUpdates) {
	updates := &fakeUpdates{}
	return &App{
		config:    cfg,
		logger:    zap.NewNop(),
		updates:   updates,
		startedAt: time.Now(),
	}, updates
}

func TestRoutes_Health(t *testing.T) {
	a, _ := newTestApp(&config.Config{AdminUsers: []int64{1, 2}, WebhookMode: true})
	rec := httptest.NewRecorder()

	a.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "admin-telegram-bot", body["service"])
	assert.Equal(t, "webhook", body["mode"])
	assert.EqualValues(t, 2, body["admins"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestRoutes_Root(t *testing.T) {
	a, _ := newTestApp(&config.Config{})
	rec := httptest.NewRecorder()

	a.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "🤖 Admin Telegram Bot is running (mode: polling)", rec.Body.String())

	rec = httptest.NewRecorder()
	a.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutes_TelegramWebhook(t *testing.T) {
	a, updates := newTestApp(&config.Config{WebhookMode: true})
	handler := a.routes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/telegram-webhook",
		strings.NewReader(`{"update_id":7,"message":{"message_id":1,"chat":{"id":42},"text":"/start"}}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, updates.updates, 1)
	assert.Equal(t, 7, updates.updates[0].UpdateID)
	assert.Equal(t, "/start", updates.updates[0].Message.Text)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/telegram-webhook", strings.NewReader("not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/telegram-webhook", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Len(t, updates.updates, 1)
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("debug")
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = newLogger("loud")
	assert.Error(t, err)
}
