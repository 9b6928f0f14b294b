package conversation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"adminbot/internal/models"
)

// statusKeySpace namespaces deterministic idempotency keys for status changes
var statusKeySpace = uuid.MustParse("6d1c7a44-52a4-4c1e-9a57-2f4f0b8d3e10")

// StatusChangeKey is the idempotency key of moving an order to a status.
// Repeating the same change yields the same key.
func StatusChangeKey(orderID int64, status models.OrderStatus) string {
	return uuid.NewSHA1(statusKeySpace, []byte(models.FormatID(orderID)+":"+string(status))).String()
}

func (e *Engine) route(ctx context.Context, t *turn, action string) {
	switch action {
	case actMainMenu:
		e.show(ctx, t, e.render.MainMenu(e.caps(t)))
		return
	case actHelp:
		e.show(ctx, t, e.render.Help())
		return
	case actHistory:
		e.showHistory(ctx, t)
		return
	case actAdminPanel:
		e.showAdminPanel(ctx, t)
		return
	case actRestaurantsMenu:
		e.show(ctx, t, e.render.RestaurantsMenu())
		return
	case actRestaurantsList:
		e.showRestaurants(ctx, t)
		return
	}
	if id, ok := idSuffix(action, prefixRestaurantMenu); ok {
		e.showRestaurantMenu(ctx, t, id)
		return
	}

	if e.routeDishes(ctx, t, action) || e.routeOrders(ctx, t, action) {
		return
	}

	e.logger.Warn("Unknown callback action", zap.Int64("chat_id", t.chatID()), zap.String("action", action))
	e.show(ctx, t, e.render.MainMenu(e.caps(t)))
}

func (e *Engine) routeDishes(ctx context.Context, t *turn, action string) bool {
	isDishAction := action == actDishesMenu || action == actDishesList || action == actDishCreate ||
		action == actDishSearch || strings.HasPrefix(action, "dish_") ||
		strings.HasPrefix(action, prefixConfirmDelete) || strings.HasPrefix(action, prefixCreateIn)
	if !isDishAction {
		return false
	}
	if !e.requireDishes(ctx, t) {
		return true
	}

	switch action {
	case actDishesMenu:
		e.show(ctx, t, e.render.DishesMenu())
		return true
	case actDishesList:
		e.showDishList(ctx, t)
		return true
	case actDishCreate:
		e.startCreate(ctx, t)
		return true
	case actDishSearch:
		e.startSearch(ctx, t)
		return true
	}

	if id, ok := idSuffix(action, prefixCreateIn); ok {
		e.chooseRestaurant(ctx, t, id)
	} else if id, ok := idSuffix(action, prefixDishToggle); ok {
		e.toggleDish(ctx, t, id)
	} else if id, ok := idSuffix(action, prefixDishEdit); ok {
		e.openDish(ctx, t, id)
	} else if id, ok := idSuffix(action, prefixDishDelete); ok {
		e.confirmDelete(ctx, t, id)
	} else if id, ok := idSuffix(action, prefixConfirmDelete); ok {
		e.deleteDish(ctx, t, id)
	} else if rest, ok := strings.CutPrefix(action, prefixDishField); ok {
		id, field, ok := parseDishField(rest)
		if !ok {
			e.show(ctx, t, e.render.DishesMenu())
			return true
		}
		e.askField(ctx, t, id, field)
	} else {
		e.logger.Warn("Unknown dish action", zap.String("action", action))
		e.show(ctx, t, e.render.DishesMenu())
	}
	return true
}

func (e *Engine) routeOrders(ctx context.Context, t *turn, action string) bool {
	status, isFilter := orderFilters[action]
	isOrderAction := action == actOrdersMenu || action == actStats || isFilter || strings.HasPrefix(action, prefixOrder)
	if !isOrderAction {
		return false
	}
	if !e.requireOrders(ctx, t) {
		return true
	}

	switch {
	case action == actOrdersMenu:
		e.show(ctx, t, e.render.OrdersMenu())
	case action == actStats:
		e.showStats(ctx, t)
	case isFilter:
		e.showOrders(ctx, t, status)
	default:
		if id, ok := idSuffix(action, prefixOrderView); ok {
			e.showOrder(ctx, t, id)
			return true
		}
		verb, idPart, _ := strings.Cut(strings.TrimPrefix(action, prefixOrder), "_")
		target, known := targetForVerb(verb)
		id, err := strconv.ParseInt(idPart, 10, 64)
		if !known || err != nil {
			e.logger.Warn("Unknown order action", zap.String("action", action))
			e.show(ctx, t, e.render.OrdersMenu())
			return true
		}
		e.changeOrderStatus(ctx, t, id, target)
	}
	return true
}

func idSuffix(action, prefix string) (int64, bool) {
	rest, ok := strings.CutPrefix(action, prefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (e *Engine) showRestaurants(ctx context.Context, t *turn) {
	restaurants, err := e.api.ListRestaurants(ctx)
	if err != nil {
		e.backendFailure(ctx, t, "Ошибка загрузки ресторанов", err, e.render.RestaurantsMenu())
		return
	}
	e.show(ctx, t, e.render.RestaurantList(restaurants))
}

func (e *Engine) showRestaurantMenu(ctx context.Context, t *turn, restaurantID int64) {
	dishes, err := e.api.RestaurantMenu(ctx, restaurantID)
	if err != nil {
		e.backendFailure(ctx, t, fmt.Sprintf("Ошибка загрузки меню ресторана #%d", restaurantID), err, e.render.RestaurantsMenu())
		return
	}
	e.show(ctx, t, e.render.RestaurantDishes(restaurantID, dishes))
}

func (e *Engine) showOrders(ctx context.Context, t *turn, status models.OrderStatus) {
	orders, err := e.api.ListOrders(ctx, status, orderListLimit)
	if err != nil {
		e.backendFailure(ctx, t, "Ошибка загрузки заказов", err, e.render.OrdersMenu())
		return
	}
	e.show(ctx, t, e.render.OrderList(status, orders))
}

func (e *Engine) showOrder(ctx context.Context, t *turn, orderID int64) {
	order, err := e.findOrder(ctx, orderID)
	if err != nil {
		e.backendFailure(ctx, t, fmt.Sprintf("Ошибка загрузки заказа #%d", orderID), err, e.render.OrdersMenu())
		return
	}
	if order == nil {
		e.show(ctx, t, e.render.OrderNotFound(orderID))
		return
	}
	e.show(ctx, t, e.render.OrderDetail(*order, ""))
}

// findOrder looks an order up in the full order list; nil means it does not exist
func (e *Engine) findOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	orders, err := e.api.ListOrders(ctx, "", 0)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].ID == orderID {
			return &orders[i], nil
		}
	}
	return nil, nil
}

// changeOrderStatus moves an order to target. On failure the displayed order is left as is
// and the error goes out as a separate message.
func (e *Engine) changeOrderStatus(ctx context.Context, t *turn, orderID int64, target models.OrderStatus) {
	order, err := e.api.UpdateOrderStatus(ctx, orderID, target, StatusChangeKey(orderID, target))
	if err != nil {
		e.logger.Warn("Failed to update order status",
			zap.Int64("order_id", orderID), zap.String("status", string(target)), zap.Error(err))
		e.send(ctx, t, e.render.StatusChangeFailed(orderID, userMessage(err)))
		return
	}
	e.record(ctx, t, "order_status", models.FormatID(orderID), string(target))

	if order == nil || order.ID != orderID || order.Status == "" {
		order = e.reloadOrder(ctx, orderID, target)
	}

	e.logger.Info("Order status updated", zap.Int64("order_id", orderID), zap.String("status", string(order.Status)))
	header := fmt.Sprintf("✅ Статус изменен на: %s %s", emojiFor(order.Status), textFor(order.Status))
	e.show(ctx, t, e.render.OrderDetail(*order, header))
}

// reloadOrder fetches an order whose update succeeded without echoing it back.
// If the fetch fails the order is shown with the status that was just applied.
func (e *Engine) reloadOrder(ctx context.Context, orderID int64, applied models.OrderStatus) *models.Order {
	order, err := e.findOrder(ctx, orderID)
	if err != nil || order == nil {
		e.logger.Warn("Failed to reload order after status change", zap.Int64("order_id", orderID), zap.Error(err))
		return &models.Order{ID: orderID, Status: applied}
	}
	return order
}

func (e *Engine) showStats(ctx context.Context, t *turn) {
	orders, err := e.api.ListOrders(ctx, "", 0)
	if err != nil {
		e.backendFailure(ctx, t, "Ошибка загрузки статистики", err, e.render.MainMenu(e.caps(t)))
		return
	}
	restaurants, err := e.api.ListRestaurants(ctx)
	if err != nil {
		e.backendFailure(ctx, t, "Ошибка загрузки статистики", err, e.render.MainMenu(e.caps(t)))
		return
	}

	stats := Stats{
		TotalOrders: len(orders),
		Restaurants: len(restaurants),
		Revenue:     decimal.Zero,
		UpdatedAt:   e.now(),
	}
	for _, o := range orders {
		if o.Status == models.OrderPending {
			stats.PendingOrders++
		}
		stats.Revenue = stats.Revenue.Add(o.TotalAmount.Decimal)
	}
	for _, r := range restaurants {
		dishes, err := e.api.RestaurantMenu(ctx, r.ID)
		if err != nil {
			e.logger.Warn("Failed to count restaurant dishes", zap.Int64("restaurant_id", r.ID), zap.Error(err))
			continue
		}
		stats.Dishes += len(dishes)
	}
	e.show(ctx, t, e.render.Statistics(stats))
}

func (e *Engine) showAdminPanel(ctx context.Context, t *turn) {
	info := PanelInfo{
		APIURL:      e.apiURL,
		Admins:      e.access.Admins(),
		BotUsername: e.botUsername,
		StartedAt:   e.startedAt,
	}
	health, err := e.api.Health(ctx)
	if err != nil {
		info.HealthError = userMessage(err)
	} else {
		info.Health = health
	}
	e.show(ctx, t, e.render.AdminPanel(info))
}

func (e *Engine) showHistory(ctx context.Context, t *turn) {
	if e.audit == nil {
		e.show(ctx, t, e.render.History(nil))
		return
	}
	events, err := e.audit.LastEvents(ctx, historyLimit)
	if err != nil {
		e.logger.Warn("Failed to read audit log", zap.Error(err))
		screen := e.render.History(nil)
		screen.Text = "❌ Не удалось загрузить журнал действий"
		e.show(ctx, t, screen)
		return
	}
	e.show(ctx, t, e.render.History(events))
}

// NotifyNewOrder sends a new-order screen to each distinct recipient and returns
// how many deliveries succeeded
func (e *Engine) NotifyNewOrder(ctx context.Context, order models.Order, recipients []int64) int {
	screen := e.render.NewOrderNotification(order)
	seen := make(map[int64]bool, len(recipients))
	sent := 0
	for _, chatID := range recipients {
		if chatID == 0 || seen[chatID] {
			continue
		}
		seen[chatID] = true
		if _, err := e.transport.SendScreen(ctx, chatID, screen); err != nil {
			e.logger.Error("Failed to deliver order notification",
				zap.Int64("chat_id", chatID), zap.Int64("order_id", order.ID), zap.Error(err))
			continue
		}
		sent++
	}
	e.logger.Info("Order notification delivered", zap.Int64("order_id", order.ID), zap.Int("recipients", sent))
	return sent
}
