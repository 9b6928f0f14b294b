package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"adminbot/internal/models"
)

// TextMessage is an inbound text from a chat
type TextMessage struct {
	ChatID int64
	Text   string
}

// CallbackAction is an inbound button press
type CallbackAction struct {
	ChatID     int64
	MessageID  int
	CallbackID string
	ActionID   string
}

// AdminAPI is the backend the engine drives
type AdminAPI interface {
	ListRestaurants(ctx context.Context) ([]models.Restaurant, error)
	RestaurantMenu(ctx context.Context, restaurantID int64) ([]models.Dish, error)
	GetDish(ctx context.Context, dishID int64) (*models.Dish, error)
	ToggleDish(ctx context.Context, dishID int64) (*models.Dish, error)
	CreateDish(ctx context.Context, req models.CreateDishRequest, idempotencyKey string) (*models.Dish, error)
	UpdateDish(ctx context.Context, dishID int64, patch models.DishPatch) (*models.Dish, error)
	DeleteDish(ctx context.Context, dishID int64) (*models.DeleteDishResult, error)
	ListOrders(ctx context.Context, status models.OrderStatus, limit int) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus, idempotencyKey string) (*models.Order, error)
	Health(ctx context.Context) (*models.Health, error)
}

// Transport delivers screens to a chat
type Transport interface {
	// SendScreen sends a new message and returns its id
	SendScreen(ctx context.Context, chatID int64, screen Screen) (int, error)
	// EditScreen replaces the content of an existing message
	EditScreen(ctx context.Context, chatID int64, messageID int, screen Screen) error
	// Acknowledge answers a button press, optionally with a short notice
	Acknowledge(ctx context.Context, callbackID, text string) error
}

// AuditLog records successful admin writes
type AuditLog interface {
	RecordEvent(ctx context.Context, event models.AuditEvent) error
	LastEvents(ctx context.Context, limit int) ([]models.AuditEvent, error)
}

const (
	orderListLimit = 10
	historyLimit   = 15
)

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	Access      Access
	Renderer    Renderer
	Store       SessionStore
	Audit       AuditLog // optional
	BotUsername string
	APIURL      string
	StartedAt   time.Time
	Logger      *zap.Logger
	NewKey      func() string
	Now         func() time.Time
}

// Engine maps inbound chat events to state transitions, backend calls and screens.
// Events of one chat are processed one at a time; different chats run concurrently.
type Engine struct {
	api       AdminAPI
	transport Transport
	store     SessionStore
	access    Access
	render    Renderer
	audit     AuditLog
	logger    *zap.Logger

	botUsername string
	apiURL      string
	startedAt   time.Time
	newKey      func() string
	now         func() time.Time

	locksMu sync.Mutex
	locks   map[int64]*chatLock
}

// chatLock serialises the events of one chat. It is dropped from the map
// once no event holds or waits for it.
type chatLock struct {
	mu   sync.Mutex
	refs int
}

// NewEngine creates an engine over the given backend and transport
func NewEngine(api AdminAPI, transport Transport, opts Options) *Engine {
	e := &Engine{
		api:         api,
		transport:   transport,
		store:       opts.Store,
		access:      opts.Access,
		render:      opts.Renderer,
		audit:       opts.Audit,
		logger:      opts.Logger,
		botUsername: opts.BotUsername,
		apiURL:      opts.APIURL,
		startedAt:   opts.StartedAt,
		newKey:      opts.NewKey,
		now:         opts.Now,
		locks:       make(map[int64]*chatLock),
	}
	if e.store == nil {
		e.store = NewMemoryStore()
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.newKey == nil {
		e.newKey = func() string { return uuid.NewString() }
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.startedAt.IsZero() {
		e.startedAt = e.now()
	}
	return e
}

// Session returns the current session of a chat
func (e *Engine) Session(chatID int64) ChatSession {
	return e.store.Get(chatID)
}

// turn is the state of one event being processed
type turn struct {
	session   ChatSession
	messageID int // message the event originated from, 0 for text input
}

func (t *turn) chatID() int64 {
	return t.session.ChatID
}

func (t *turn) setMode(m Mode) {
	t.session.Mode = m
}

func (e *Engine) lock(chatID int64) func() {
	e.locksMu.Lock()
	l, ok := e.locks[chatID]
	if !ok {
		l = &chatLock{}
		e.locks[chatID] = l
	}
	l.refs++
	e.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, chatID)
		}
		e.locksMu.Unlock()
	}
}

// HandleText processes a text message or command
func (e *Engine) HandleText(ctx context.Context, msg TextMessage) {
	unlock := e.lock(msg.ChatID)
	defer unlock()

	if !e.access.IsAuthorized(msg.ChatID) {
		e.logger.Warn("Unauthorized message", zap.Int64("chat_id", msg.ChatID))
		if _, err := e.transport.SendScreen(ctx, msg.ChatID, e.render.AccessDenied()); err != nil {
			e.logger.Error("Failed to send access denied", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
		}
		return
	}

	t := &turn{session: e.store.Get(msg.ChatID)}
	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "/") {
		e.handleCommand(ctx, t, text)
	} else {
		switch t.session.Mode.Kind {
		case ModeCreatingDish:
			e.handleCreateInput(ctx, t, text)
		case ModeEditingDish:
			e.handleBlockInput(ctx, t, text)
		case ModeEditingDishField:
			e.handleFieldInput(ctx, t, text)
		case ModeSearchingDish:
			e.handleSearchInput(ctx, t, text)
		default:
			e.show(ctx, t, e.render.UseMenu(e.caps(t)))
		}
	}

	e.store.Set(t.session)
}

// HandleCallback processes a button press
func (e *Engine) HandleCallback(ctx context.Context, cb CallbackAction) {
	unlock := e.lock(cb.ChatID)
	defer unlock()

	if !e.access.IsAuthorized(cb.ChatID) {
		e.logger.Warn("Unauthorized callback", zap.Int64("chat_id", cb.ChatID), zap.String("action", cb.ActionID))
		e.acknowledge(ctx, cb.CallbackID, "⛔ Нет доступа")
		return
	}
	e.acknowledge(ctx, cb.CallbackID, "")

	t := &turn{session: e.store.Get(cb.ChatID), messageID: cb.MessageID}
	if cb.ActionID == actCancel {
		e.cancel(ctx, t)
	} else {
		// Any other button leaves the current flow; handlers set a new mode as needed
		t.setMode(Idle())
		e.route(ctx, t, cb.ActionID)
	}

	e.store.Set(t.session)
}

func (e *Engine) handleCommand(ctx context.Context, t *turn, text string) {
	command, _, _ := strings.Cut(strings.Fields(text)[0], "@")

	if command == "/cancel" {
		e.cancel(ctx, t)
		return
	}

	// Any command interrupts a flow
	t.setMode(Idle())

	switch command {
	case "/start", "/menu":
		e.show(ctx, t, e.render.MainMenu(e.caps(t)))
	case "/dishes":
		if e.requireDishes(ctx, t) {
			e.show(ctx, t, e.render.DishesMenu())
		}
	case "/orders":
		if e.requireOrders(ctx, t) {
			e.show(ctx, t, e.render.OrdersMenu())
		}
	case "/stats":
		if e.requireOrders(ctx, t) {
			e.showStats(ctx, t)
		}
	case "/history":
		e.showHistory(ctx, t)
	case "/help":
		e.show(ctx, t, e.render.Help())
	default:
		screen := e.render.MainMenu(e.caps(t))
		screen.Text = "Неизвестная команда. Используйте /start для открытия меню."
		e.show(ctx, t, screen)
	}
}

// cancel abandons the current flow and shows its cancellation destination
func (e *Engine) cancel(ctx context.Context, t *turn) {
	mode := t.session.Mode
	t.setMode(Idle())

	switch mode.Kind {
	case ModeCreatingDish, ModeSearchingDish:
		e.show(ctx, t, e.render.Cancelled(e.render.DishesMenu()))
	case ModeEditingDish, ModeEditingDishField:
		dish, err := e.api.GetDish(ctx, mode.DishID)
		if err != nil {
			e.logger.Warn("Failed to load dish after cancel", zap.Int64("dish_id", mode.DishID), zap.Error(err))
			e.show(ctx, t, e.render.Cancelled(e.render.DishesMenu()))
			return
		}
		e.show(ctx, t, e.render.Cancelled(e.render.DishCard(*dish, "", false)))
	default:
		e.show(ctx, t, e.render.MainMenu(e.caps(t)))
	}
}

func (e *Engine) caps(t *turn) Capabilities {
	return Capabilities{
		ManageDishes: e.access.CanManageDishes(t.chatID()),
		ViewOrders:   e.access.CanViewOrders(t.chatID()),
	}
}

func (e *Engine) requireDishes(ctx context.Context, t *turn) bool {
	if e.access.CanManageDishes(t.chatID()) {
		return true
	}
	e.logger.Warn("Dish management denied", zap.Int64("chat_id", t.chatID()))
	e.show(ctx, t, e.render.CapabilityDenied())
	return false
}

func (e *Engine) requireOrders(ctx context.Context, t *turn) bool {
	if e.access.CanViewOrders(t.chatID()) {
		return true
	}
	e.logger.Warn("Order management denied", zap.Int64("chat_id", t.chatID()))
	e.show(ctx, t, e.render.CapabilityDenied())
	return false
}

// show renders a screen: button presses edit their message in place,
// falling back to a new message when the edit is rejected. Text input gets a new message.
func (e *Engine) show(ctx context.Context, t *turn, screen Screen) {
	if t.messageID != 0 {
		err := e.transport.EditScreen(ctx, t.chatID(), t.messageID, screen)
		if err == nil {
			t.session.LastMenuMessageID = t.messageID
			return
		}
		e.logger.Debug("Edit failed, sending new message",
			zap.Int64("chat_id", t.chatID()), zap.Int("message_id", t.messageID), zap.Error(err))
	}
	e.send(ctx, t, screen)
}

// send always posts a new message
func (e *Engine) send(ctx context.Context, t *turn, screen Screen) {
	id, err := e.transport.SendScreen(ctx, t.chatID(), screen)
	if err != nil {
		e.logger.Error("Failed to send screen", zap.Int64("chat_id", t.chatID()), zap.Error(err))
		return
	}
	t.session.LastMenuMessageID = id
}

func (e *Engine) acknowledge(ctx context.Context, callbackID, text string) {
	if callbackID == "" {
		return
	}
	if err := e.transport.Acknowledge(ctx, callbackID, text); err != nil {
		e.logger.Debug("Failed to answer callback", zap.String("callback_id", callbackID), zap.Error(err))
	}
}

func (e *Engine) record(ctx context.Context, t *turn, action, entityID, details string) {
	if e.audit == nil {
		return
	}
	event := models.AuditEvent{
		Time:     e.now(),
		ChatID:   t.chatID(),
		Action:   action,
		EntityID: entityID,
		Details:  details,
	}
	if err := e.audit.RecordEvent(ctx, event); err != nil {
		e.logger.Warn("Failed to record audit event", zap.String("action", action), zap.Error(err))
	}
}

// userMessage extracts a message safe to show to the admin
func userMessage(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	return "внутренняя ошибка"
}
