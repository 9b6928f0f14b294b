package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"adminbot/internal/adminapi"
	"adminbot/internal/models"
)

// spyAPI records every backend call and returns canned data
type spyAPI struct {
	mu    sync.Mutex
	calls []string

	restaurants []models.Restaurant
	menus       map[int64][]models.Dish
	dishes      map[int64]models.Dish
	orders      []models.Order

	created     []models.CreateDishRequest
	createdKeys []string
	patches     []models.DishPatch
	statusKeys  []string

	err           error // returned by every call when set
	listOrdersErr error
	silentStatus  bool // status updates succeed without echoing the order
}

func newSpyAPI() *spyAPI {
	return &spyAPI{
		restaurants: []models.Restaurant{{ID: 7, Name: "Pizzeria"}},
		menus:       map[int64][]models.Dish{7: {{ID: 5, Name: "Margherita", Price: models.NewPrice(450), IsAvailable: true}}},
		dishes: map[int64]models.Dish{
			5: {ID: 5, RestaurantID: 7, Name: "Margherita", Price: models.NewPrice(450), PreparationTime: 15, IsAvailable: true},
		},
		orders: []models.Order{{ID: 3, Status: models.OrderPending, TotalAmount: models.NewPrice(900)}},
	}
}

func (s *spyAPI) call(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
	return s.err
}

func (s *spyAPI) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (s *spyAPI) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *spyAPI) ListRestaurants(ctx context.Context) ([]models.Restaurant, error) {
	if err := s.call("ListRestaurants"); err != nil {
		return nil, err
	}
	return s.restaurants, nil
}

func (s *spyAPI) RestaurantMenu(ctx context.Context, restaurantID int64) ([]models.Dish, error) {
	if err := s.call("RestaurantMenu"); err != nil {
		return nil, err
	}
	return s.menus[restaurantID], nil
}

func (s *spyAPI) GetDish(ctx context.Context, dishID int64) (*models.Dish, error) {
	if err := s.call("GetDish"); err != nil {
		return nil, err
	}
	d, ok := s.dishes[dishID]
	if !ok {
		return nil, &adminapi.BackendError{Op: "GET", Status: 404, Message: "Блюдо не найдено"}
	}
	return &d, nil
}

func (s *spyAPI) ToggleDish(ctx context.Context, dishID int64) (*models.Dish, error) {
	if err := s.call("ToggleDish"); err != nil {
		return nil, err
	}
	d := s.dishes[dishID]
	d.IsAvailable = !d.IsAvailable
	s.dishes[dishID] = d
	return &d, nil
}

func (s *spyAPI) CreateDish(ctx context.Context, req models.CreateDishRequest, idempotencyKey string) (*models.Dish, error) {
	if err := s.call("CreateDish"); err != nil {
		return nil, err
	}
	s.created = append(s.created, req)
	s.createdKeys = append(s.createdKeys, idempotencyKey)
	return &models.Dish{ID: 77, RestaurantID: req.RestaurantID, Name: req.Name, Price: req.Price, PreparationTime: req.PreparationTime}, nil
}

func (s *spyAPI) UpdateDish(ctx context.Context, dishID int64, patch models.DishPatch) (*models.Dish, error) {
	if err := s.call("UpdateDish"); err != nil {
		return nil, err
	}
	s.patches = append(s.patches, patch)
	d := s.dishes[dishID]
	if patch.Price != nil {
		d.Price = *patch.Price
	}
	return &d, nil
}

func (s *spyAPI) DeleteDish(ctx context.Context, dishID int64) (*models.DeleteDishResult, error) {
	if err := s.call("DeleteDish"); err != nil {
		return nil, err
	}
	d := s.dishes[dishID]
	return &models.DeleteDishResult{SoftDelete: true, Dish: &d}, nil
}

func (s *spyAPI) ListOrders(ctx context.Context, status models.OrderStatus, limit int) ([]models.Order, error) {
	if err := s.call("ListOrders"); err != nil {
		return nil, err
	}
	if s.listOrdersErr != nil {
		return nil, s.listOrdersErr
	}
	return s.orders, nil
}

func (s *spyAPI) UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus, idempotencyKey string) (*models.Order, error) {
	if err := s.call("UpdateOrderStatus"); err != nil {
		return nil, err
	}
	s.statusKeys = append(s.statusKeys, idempotencyKey)
	for i := range s.orders {
		if s.orders[i].ID == orderID {
			s.orders[i].Status = status
		}
	}
	if s.silentStatus {
		return nil, nil
	}
	return &models.Order{ID: orderID, Status: status}, nil
}

func (s *spyAPI) Health(ctx context.Context) (*models.Health, error) {
	if err := s.call("Health"); err != nil {
		return nil, err
	}
	return &models.Health{Status: "ok", Database: "connected", Environment: "test"}, nil
}

type sentScreen struct {
	chatID    int64
	messageID int // 0 for new messages
	screen    Screen
}

// fakeTransport records screens; edits fail when editErr is set
type fakeTransport struct {
	mu      sync.Mutex
	nextID  int
	sent    []sentScreen
	edits   []sentScreen
	acks    []string
	editErr error
}

func (f *fakeTransport) SendScreen(ctx context.Context, chatID int64, screen Screen) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, sentScreen{chatID: chatID, screen: screen})
	return 100 + f.nextID, nil
}

func (f *fakeTransport) EditScreen(ctx context.Context, chatID int64, messageID int, screen Screen) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, sentScreen{chatID: chatID, messageID: messageID, screen: screen})
	return nil
}

func (f *fakeTransport) Acknowledge(ctx context.Context, callbackID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, text)
	return nil
}

type memoryAudit struct {
	mu     sync.Mutex
	events []models.AuditEvent
	err    error
}

func (m *memoryAudit) RecordEvent(ctx context.Context, event models.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *memoryAudit) LastEvents(ctx context.Context, limit int) ([]models.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events, m.err
}

const chat = int64(42)

func newTestEngine(t *testing.T, api *spyAPI, access Access) (*Engine, *fakeTransport) {
	t.Helper()
	tr := &fakeTransport{}
	keys := 0
	e := NewEngine(api, tr, Options{
		Access:   access,
		Renderer: NewRenderer(true),
		Store:    NewMemoryStore(),
		Logger:   zap.NewNop(),
		NewKey: func() string {
			keys++
			return fmt.Sprintf("key-%d", keys)
		},
		Now: func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	})
	return e, tr
}

func text(e *Engine, s string) {
	e.HandleText(context.Background(), TextMessage{ChatID: chat, Text: s})
}

func press(e *Engine, action string) {
	e.HandleCallback(context.Background(), CallbackAction{ChatID: chat, MessageID: 10, CallbackID: "cb", ActionID: action})
}

func TestEngine_UnauthorizedChatNeverCallsBackend(t *testing.T) {
	api := newSpyAPI()
	e, tr := newTestEngine(t, api, NewAccess([]int64{1}, nil, nil))

	for _, input := range []string{"/start", "/orders", "/dishes", "/history", "Pizza", "Цена: 500"} {
		text(e, input)
	}
	for _, action := range []string{
		actDishesList, actDishCreate, "create_dish_in_7", "dish_edit_5", "dish_toggle_5",
		"confirm_delete_5", "dish_field_5_price", "orders_new", "order_view_3", "order_confirm_3",
		actStats, actAdminPanel, actRestaurantsList, "restaurant_menu_7", actCancel,
	} {
		press(e, action)
	}

	assert.Equal(t, 0, api.total())
	assert.Empty(t, tr.edits)
	require.Len(t, tr.sent, 6)
	for _, s := range tr.sent {
		assert.Contains(t, s.screen.Text, "нет доступа")
	}
	for _, ack := range tr.acks {
		assert.Equal(t, "⛔ Нет доступа", ack)
	}
	assert.Equal(t, ModeIdle, e.Session(chat).Mode.Kind)
}

func TestEngine_CreateDishFlow(t *testing.T) {
	api := newSpyAPI()
	e, tr := newTestEngine(t, api, NewAccess(nil, nil, nil))

	press(e, actDishCreate)
	require.Equal(t, 1, api.count("ListRestaurants"))
	assert.Equal(t, "create_dish_in_7", tr.edits[len(tr.edits)-1].screen.Rows[0][0].ID)

	press(e, "create_dish_in_7")
	session := e.Session(chat)
	require.Equal(t, ModeCreatingDish, session.Mode.Kind)
	assert.Equal(t, StepName, session.Mode.Step)

	steps := []CreateStep{StepDescription, StepPrice, StepPrepTime}
	for i, input := range []string{"Pizza", "Tasty", "500"} {
		text(e, input)
		assert.Equal(t, steps[i], e.Session(chat).Mode.Step)
	}
	assert.Equal(t, 0, api.count("CreateDish"))

	text(e, "20")

	require.Equal(t, 1, api.count("CreateDish"))
	req := api.created[0]
	assert.Equal(t, int64(7), req.RestaurantID)
	assert.Equal(t, "Pizza", req.Name)
	assert.Equal(t, "Tasty", req.Description)
	assert.Equal(t, "500", req.Price.String())
	assert.Equal(t, 20, req.PreparationTime)
	assert.Equal(t, []string{"key-1"}, api.createdKeys)
	assert.Equal(t, ModeIdle, e.Session(chat).Mode.Kind)
	assert.Contains(t, tr.sent[len(tr.sent)-1].screen.Text, "успешно создано")

	body, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"restaurant_id":7,"name":"Pizza","description":"Tasty","price":500,
		"preparation_time":20,"ingredients":null,"is_vegetarian":false,"is_spicy":false}`, string(body))

	// A repeated delivery of the last message no longer belongs to a flow
	text(e, "20")
	assert.Equal(t, 1, api.count("CreateDish"))
}

func TestEngine_PriceStepRejectsInvalidInput(t *testing.T) {
	for _, input := range []string{"-5", "abc", "0", ""} {
		t.Run(input, func(t *testing.T) {
			api := newSpyAPI()
			e, tr := newTestEngine(t, api, NewAccess(nil, nil, nil))
			draft := &DishDraft{RestaurantID: 7, Name: "Pizza", Description: "Tasty", IdempotencyKey: "k"}
			e.store.Set(ChatSession{ChatID: chat, Mode: CreatingDish(draft, StepPrice)})

			text(e, input)

			session := e.Session(chat)
			assert.Equal(t, ModeCreatingDish, session.Mode.Kind)
			assert.Equal(t, StepPrice, session.Mode.Step)
			assert.Equal(t, "Pizza", session.Mode.Draft.Name)
			assert.Equal(t, "Tasty", session.Mode.Draft.Description)
			assert.Equal(t, 0, api.total())
			assert.Contains(t, tr.sent[len(tr.sent)-1].screen.Text, "Неверная цена")
		})
	}
}

func TestEngine_CreateStepsDoNotMutateStoredDraft(t *testing.T) {
	api := newSpyAPI()
	e, _ := newTestEngine(t, api, NewAccess(nil, nil, nil))
	draft := &DishDraft{RestaurantID: 7}
	e.store.Set(ChatSession{ChatID: chat, Mode: CreatingDish(draft, StepName)})

	text(e, "Pizza")

	assert.Empty(t, draft.Name)
	assert.Equal(t, "Pizza", e.Session(chat).Mode.Draft.Name)
}

func TestEngine_QuickCreateFromBlock(t *testing.T) {
	api := newSpyAPI()
	e, _ := newTestEngine(t, api, NewAccess(nil, nil, nil))
	press(e, "create_dish_in_7")

	text(e, "Название: Пицца\nЦена: 500\nВремя: 20\nОстрое: да")

	require.Equal(t, 1, api.count("CreateDish"))
	req := api.created[0]
	assert.Equal(t, "Пицца", req.Name)
	assert.Equal(t, "500", req.Price.String())
	assert.Equal(t, 20, req.PreparationTime)
	assert.True(t, req.IsSpicy)
	assert.Equal(t, ModeIdle, e.Session(chat).Mode.Kind)
}

func TestEngine_QuickCreateRequiresNameAndPrice(t *testing.T) {
	api := newSpyAPI()
	e, tr := newTestEngine(t, api, NewAccess(nil, nil, nil))
	press(e, "create_dish_in_7")

	text(e, "Название: Пицца\nВремя: 20")

	assert.Equal(t, 0, api.count("CreateDish"))
	assert.Equal(t, StepName, e.Session(chat).Mode.Step)
	assert.Contains(t, tr.sent[len(tr.sent)-1].screen.Text, "название и цену")
}

func TestEngine_CreateBackendErrorEndsFlow(t *testing.T) {
	api := newSpyAPI()
	e, tr := newTestEngine(t, api, NewAccess(nil, nil, nil))
	draft := &DishDraft{RestaurantID: 7, Name: "Pizza", Description: "Tasty", Price: models.NewPrice(500)}
	e.store.Set(ChatSession{ChatID: chat, Mode: CreatingDish(draft, StepPrepTime)})
	api.err = &adminapi.BackendError{Op: "POST /admin/dishes", Status: 500, Message: "database is down"}

	text(e, "20")

	assert.Equal(t, ModeIdle, e.Session(chat).Mode.Kind)
	last := tr.sent[len(tr.sent)-1].screen.Text
	assert.Contains(t, last, "Ошибка создания блюда")
	assert.Contains(t, last, "database is down")
}

func TestEngine_CancelFromEveryMode(t *testing.T) {
	modes := map[string]Mode{
		"creating":      CreatingDish(&DishDraft{RestaurantID: 7, Name: "Pizza"}, StepPrice),
		"editing":       EditingDish(5),
		"editing_field": EditingDishField(5, FieldPrice),
		"searching":     SearchingDish(),
		"idle":          Idle(),
	}

	for name, mode := range modes {
		for _, via := range []string{"button", "command"} {
			t.Run(name+"_"+via, func(t *testing.T) {
				api := newSpyAPI()
				e, tr := newTestEngine(t, api, NewAccess(nil, nil, nil))
				e.store.Set(ChatSession{ChatID: chat, Mode: mode})

				if via == "button" {
					press(e, actCancel)
				} else {
					text(e, "/cancel")
				}

				session := e.Session(chat)
				assert.Equal(t, ModeIdle, session.Mode.Kind)
				assert.Nil(t, session.Mode.Draft)

				text(e, "650")
				assert.Equal(t, 0, api.count("CreateDish"))
				assert.Equal(t, 0, api.count("UpdateDish"))
				assert.Equal(t, "Используйте меню для навигации", tr.sent[len(tr.sent)-1].screen.Text)
			})
		}
	}
}

func TestEngine_CancelDestinations(t *testing.T) {
	tests := []struct {
		name     string
		mode     Mode
		contains string
	}{
		{"creating goes to dishes menu", CreatingDish(&DishDraft{}, StepName), "Управление блюдами"},
		{"searching goes to dishes menu", SearchingDish(), "Управление блюдами"},
		{"field edit goes to dish card", EditingDishField(5, FieldName), "Margherita"},
		{"dish edit goes to dish card", EditingDish(5), "Margherita"},
		{"idle goes to main menu", Idle(), "Административная панель"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, tr := newTestEngine(t, newSpyAPI(), NewAccess(nil, nil, nil))
			e.store.Set(ChatSession{ChatID: chat, Mode: tt.mode})

			press(e, actCancel)

			require.NotEmpty(t, tr.edits)
			assert.Contains(t, tr.edits[len(tr.edits)-1].screen.Text, tt.contains)
		})
	}
}

func TestEngine_NavigationAbandonsFlow(t *testing.T) {
	e, _ := newTestEngine(t, newSpyAPI(), NewAccess(nil, nil, nil))
	e.store.Set(ChatSession{ChatID: chat, Mode: CreatingDish(&DishDraft{Name: "Pizza"}, StepPrice)})

	press(e, actMainMenu)

	assert.Equal(t, ModeIdle, e.Session(chat).Mode.Kind)
}

func TestEngine_StartResetsFlow(t *testing.T) {
	api := newSpyAPI()
	e, tr := newTestEngine(t, api, NewAccess(nil, nil, nil))
	e.store.Set(ChatSession{ChatID: chat, Mode: EditingDishField(5, FieldPrice)})

	text(e, "/start@AdminBot")

	assert.Equal(t, ModeIdle, e.Session(chat).Mode.Kind)
	assert.Equal(t, 0, api.total())
	assert.Contains(t, tr.sent[0].screen.Text, "Административная панель")
}

func TestEngine_FieldEditSendsSparsePatch(t *testing.T) {
	api := newSpyAPI()
	e, tr := newTestEngine(t, api, NewAccess(nil, nil, nil))

	press(e, "dish_field_5_price")
	require.Equal(t, EditingDishField(5, FieldPrice), e.Session(chat).Mode)

	text(e, "650")

	require.Len(t, api.patches, 1)
	body, err := json.Marshal(api.patches[0])
	require.NoError(t, err)
	assert.Equal(t, `{"price":650}`, string(body))
	assert.Equal(t, ModeIdle, e.Session(chat).Mode.Kind)
	assert.Contains(t, tr.sent[len(tr.sent)-1].screen.Text, "Цена успешно обновлено")
}

func TestEngine_FieldEditRejectsInvalidValue(t *testing.T) {
	api := newSpyAPI()
	e, tr := newTestEngine(t, api, NewAccess(nil, nil, nil))
	e.store.Set(ChatSession{ChatID: chat, Mode: EditingDishField(5, FieldSpicy)})

	text(e, "может быть")

	assert.Equal(t, EditingDishField(5, FieldSpicy), e.Session(chat).Mode)
	assert.Equal(t, 0, api.total())
	assert.Contains(t, tr.sent[0].screen.Text, "«да» или «нет»")
}

func TestEngine_PrepTimeFieldFromCallback(t *testing.T) {
	e, _ := newTestEngine(t, newSpyAPI(), NewAccess(nil, nil, nil))

	press(e, "dish_field_5_prep_time")

	assert.Equal(t, EditingDishField(5, FieldPrepTime), e.Session(chat).Mode)
}

func TestEngine_BlockEditOnDishCard(t *testing.T) {
	api := newSpyAPI()
	e, _ := newTestEngine(t, api, NewAccess(nil, nil, nil))

	press(e, "dish_edit_5")
	require.Equal(t, EditingDish(5), e.Session(chat).Mode)

	text(e, "Цена: 450\nОстрое: да")

	require.Len(t, api.patches, 1)
	body, err := json.Marshal(api.patches[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":450,"is_spicy":true}`, string(body))
	assert.Equal(t, ModeIdle, e.Session(chat).Mode.Kind)
}

func TestEngine_SearchFlow(t *testing.T) {
	api := newSpyAPI()
	e, tr := newTestEngine(t, api, NewAccess(nil, nil, nil))
	press(e, actDishSearch)
	require.Equal(t, ModeSearchingDish, e.Session(chat).Mode.Kind)

	text(e, "пицца")
	assert.Equal(t, ModeSearchingDish, e.Session(chat).Mode.Kind)
	assert.Equal(t, 0, api.total())

	text(e, "#5")
	assert.Equal(t, ModeIdle, e.Session(chat).Mode.Kind)
	assert.Equal(t, 1, api.count("GetDish"))
	assert.Contains(t, tr.sent[len(tr.sent)-1].screen.Text, "Margherita")
}

func TestEngine_EditFailureFallsBackToSend(t *testing.T) {
	e, tr := newTestEngine(t, newSpyAPI(), NewAccess(nil, nil, nil))
	tr.editErr = errors.New("message is not modified")

	press(e, actMainMenu)

	assert.Empty(t, tr.edits)
	require.Len(t, tr.sent, 1)
	assert.Equal(t, 101, e.Session(chat).LastMenuMessageID)
}

func TestEngine_EditInPlaceRecordsMessage(t *testing.T) {
	e, tr := newTestEngine(t, newSpyAPI(), NewAccess(nil, nil, nil))

	press(e, actHelp)

	require.Len(t, tr.edits, 1)
	assert.Equal(t, 10, tr.edits[0].messageID)
	assert.Empty(t, tr.sent)
	assert.Equal(t, 10, e.Session(chat).LastMenuMessageID)
}

func TestEngine_StatusChange(t *testing.T) {
	api := newSpyAPI()
	audit := &memoryAudit{}
	e, tr := newTestEngine(t, api, NewAccess(nil, nil, nil))
	e.audit = audit

	press(e, "order_confirm_3")

	require.Equal(t, 1, api.count("UpdateOrderStatus"))
	assert.Equal(t, []string{StatusChangeKey(3, models.OrderConfirmed)}, api.statusKeys)
	screen := tr.edits[len(tr.edits)-1].screen
	assert.Contains(t, screen.Text, "Статус изменен")
	assert.Equal(t, "order_prepare_3", screen.Rows[0][0].ID)
	require.Len(t, audit.events, 1)
	assert.Equal(t, "order_status", audit.events[0].Action)
	assert.Equal(t, "3", audit.events[0].EntityID)
}

func TestEngine_StatusChangeWithoutOrderInReply(t *testing.T) {
	api := newSpyAPI()
	api.silentStatus = true
	api.orders[0].TotalAmount = models.NewPrice(1250)
	e, tr := newTestEngine(t, api, NewAccess(nil, nil, nil))

	press(e, "order_confirm_3")

	assert.Equal(t, 1, api.count("ListOrders"))
	assert.Empty(t, tr.sent)
	screen := tr.edits[len(tr.edits)-1].screen
	assert.Contains(t, screen.Text, "Статус изменен на: ✅")
	assert.Contains(t, screen.Text, "Заказ #3")
	assert.Contains(t, screen.Text, "1250")
	assert.Equal(t, "order_prepare_3", screen.Rows[0][0].ID)
}

func TestEngine_StatusChangeShowsAppliedStatusWhenReloadFails(t *testing.T) {
	api := newSpyAPI()
	api.silentStatus = true
	api.listOrdersErr = errors.New("connection reset")
	e, tr := newTestEngine(t, api, NewAccess(nil, nil, nil))

	press(e, "order_prepare_3")

	assert.Empty(t, tr.sent)
	screen := tr.edits[len(tr.edits)-1].screen
	assert.Contains(t, screen.Text, "Заказ #3")
	assert.NotContains(t, screen.Text, "Заказ #0")
	assert.Equal(t, "order_deliver_3", screen.Rows[0][0].ID)
}

func TestEngine_StatusChangeFailureSendsNewMessage(t *testing.T) {
	api := newSpyAPI()
	e, tr := newTestEngine(t, api, NewAccess(nil, nil, nil))
	api.err = &adminapi.BackendError{Op: "PUT", Status: 409, Message: "Недопустимый переход"}

	press(e, "order_deliver_3")

	assert.Empty(t, tr.edits)
	require.Len(t, tr.sent, 1)
	assert.Contains(t, tr.sent[0].screen.Text, "#3")
	assert.Contains(t, tr.sent[0].screen.Text, "Недопустимый переход")
}

func TestEngine_OrderView(t *testing.T) {
	api := newSpyAPI()
	e, tr := newTestEngine(t, api, NewAccess(nil, nil, nil))

	press(e, "order_view_3")
	screen := tr.edits[len(tr.edits)-1].screen
	assert.Contains(t, screen.Text, "Заказ #3")
	assert.Equal(t, "order_confirm_3", screen.Rows[0][0].ID)
	assert.Equal(t, "order_cancel_3", screen.Rows[0][1].ID)

	press(e, "order_view_99")
	assert.Contains(t, tr.edits[len(tr.edits)-1].screen.Text, "#99 не найден")
}

func TestEngine_OpenMissingDish(t *testing.T) {
	api := newSpyAPI()
	e, tr := newTestEngine(t, api, NewAccess(nil, nil, nil))

	press(e, "dish_edit_404")

	screen := tr.edits[len(tr.edits)-1].screen
	assert.Contains(t, screen.Text, "Блюдо #404 не найдено")
	assert.Equal(t, actDishesList, screen.Rows[0][0].ID)
	assert.Equal(t, ModeIdle, e.Session(chat).Mode.Kind)
}

func TestEngine_CapabilityGate(t *testing.T) {
	api := newSpyAPI()
	e, tr := newTestEngine(t, api, NewAccess(nil, []int64{1}, []int64{chat}))

	press(e, "dish_edit_5")
	text(e, "/dishes")

	assert.Equal(t, 0, api.total())
	assert.Contains(t, tr.edits[0].screen.Text, "недоступно")
	assert.Contains(t, tr.sent[0].screen.Text, "недоступно")

	press(e, "orders_new")
	assert.Equal(t, 1, api.count("ListOrders"))
}

func TestEngine_MainMenuHidesDeniedBranches(t *testing.T) {
	e, tr := newTestEngine(t, newSpyAPI(), NewAccess(nil, []int64{1}, []int64{1}))

	text(e, "/start")

	for _, r := range tr.sent[0].screen.Rows {
		for _, a := range r {
			assert.NotEqual(t, actDishesMenu, a.ID)
			assert.NotEqual(t, actOrdersMenu, a.ID)
		}
	}
}

func TestEngine_ToggleAndDeleteAreAudited(t *testing.T) {
	api := newSpyAPI()
	audit := &memoryAudit{}
	e, tr := newTestEngine(t, api, NewAccess(nil, nil, nil))
	e.audit = audit

	press(e, "dish_toggle_5")
	assert.Contains(t, tr.edits[len(tr.edits)-1].screen.Text, "недоступно")
	assert.Equal(t, EditingDish(5), e.Session(chat).Mode)

	press(e, "dish_delete_5")
	assert.Equal(t, 0, api.count("DeleteDish"))
	press(e, "confirm_delete_5")
	assert.Equal(t, 1, api.count("DeleteDish"))
	assert.Contains(t, tr.edits[len(tr.edits)-1].screen.Text, "сделано недоступным")

	require.Len(t, audit.events, 2)
	assert.Equal(t, "dish_toggle", audit.events[0].Action)
	assert.Equal(t, "dish_soft_delete", audit.events[1].Action)
	assert.Equal(t, chat, audit.events[1].ChatID)

	press(e, actHistory)
	assert.Contains(t, tr.edits[len(tr.edits)-1].screen.Text, "dish\\_toggle")
}

func TestEngine_AuditFailureIsNotShown(t *testing.T) {
	api := newSpyAPI()
	e, tr := newTestEngine(t, api, NewAccess(nil, nil, nil))
	e.audit = &memoryAudit{err: errors.New("clickhouse is down")}

	press(e, "dish_toggle_5")

	assert.NotContains(t, tr.edits[len(tr.edits)-1].screen.Text, "clickhouse")
}

func TestEngine_StatsAndPanel(t *testing.T) {
	api := newSpyAPI()
	e, tr := newTestEngine(t, api, NewAccess([]int64{chat, 7}, nil, nil))

	press(e, actStats)
	stats := tr.edits[len(tr.edits)-1].screen.Text
	assert.Contains(t, stats, "Всего заказов: 1")
	assert.Contains(t, stats, "Общая выручка: 900.00 ₽")
	assert.Contains(t, stats, "Блюд в системе: 1")

	press(e, actAdminPanel)
	panel := tr.edits[len(tr.edits)-1].screen.Text
	assert.Contains(t, panel, "7, 42")
	assert.Contains(t, panel, "Backend: ok")
}

func TestEngine_MenuAndStatsCommands(t *testing.T) {
	api := newSpyAPI()
	e, tr := newTestEngine(t, api, NewAccess(nil, nil, []int64{7}))

	text(e, "/menu")
	assert.Contains(t, tr.sent[0].screen.Text, "Административная панель")

	text(e, "/stats")
	assert.Contains(t, tr.sent[1].screen.Text, "недоступно")
	assert.Equal(t, 0, api.total())

	e2, tr2 := newTestEngine(t, api, NewAccess(nil, nil, nil))
	text(e2, "/stats@AdminBot")
	assert.Contains(t, tr2.sent[0].screen.Text, "Всего заказов: 1")
}

func TestEngine_NotifyNewOrder(t *testing.T) {
	e, tr := newTestEngine(t, newSpyAPI(), NewAccess(nil, nil, nil))

	sent := e.NotifyNewOrder(context.Background(), models.Order{ID: 12, TotalAmount: models.NewPrice(1200)}, []int64{1, 2, 1, 0})

	assert.Equal(t, 2, sent)
	require.Len(t, tr.sent, 2)
	assert.Contains(t, tr.sent[0].screen.Text, "Новый заказ")
	assert.Equal(t, "order_view_12", tr.sent[0].screen.Rows[0][0].ID)
}

func TestEngine_ConcurrentChats(t *testing.T) {
	store := NewMemoryStore()
	tr := &fakeTransport{}
	e := NewEngine(newSpyAPI(), tr, Options{Renderer: NewRenderer(false), Store: store, Logger: zap.NewNop()})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(chatID int64) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				e.HandleCallback(context.Background(), CallbackAction{ChatID: chatID, MessageID: 1, ActionID: actDishSearch})
				e.HandleText(context.Background(), TextMessage{ChatID: chatID, Text: "/cancel"})
			}
		}(int64(i + 1))
	}
	wg.Wait()

	assert.Equal(t, 50, store.size())
	assert.Empty(t, e.locks)
	for i := 1; i <= 50; i++ {
		assert.Equal(t, ModeIdle, store.Get(int64(i)).Mode.Kind)
	}
	assert.Len(t, tr.edits, 250)
	assert.Len(t, tr.sent, 250)
}

func TestStatusChangeKey(t *testing.T) {
	assert.Equal(t, StatusChangeKey(3, models.OrderConfirmed), StatusChangeKey(3, models.OrderConfirmed))
	assert.NotEqual(t, StatusChangeKey(3, models.OrderConfirmed), StatusChangeKey(3, models.OrderCancelled))
	assert.NotEqual(t, StatusChangeKey(3, models.OrderConfirmed), StatusChangeKey(4, models.OrderConfirmed))
}
