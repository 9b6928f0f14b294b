package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"adminbot/internal/models"
)

// Action is one inline button
type Action struct {
	Label string
	ID    string
}

// Screen is a rendered message: text plus rows of buttons
type Screen struct {
	Text     string
	Rows     [][]Action
	Markdown bool
}

// Callback action ids
const (
	actMainMenu        = "main_menu"
	actDishesMenu      = "dishes_menu"
	actDishesList      = "dishes_list"
	actDishCreate      = "dish_create"
	actDishSearch      = "dish_search"
	actRestaurantsMenu = "restaurants_menu"
	actRestaurantsList = "restaurants_list"
	actOrdersMenu      = "orders_menu"
	actStats           = "stats"
	actAdminPanel      = "admin_panel"
	actHelp            = "help"
	actHistory         = "history"
	actCancel          = "cancel_action"

	prefixRestaurantMenu = "restaurant_menu_"
	prefixCreateIn       = "create_dish_in_"
	prefixDishToggle     = "dish_toggle_"
	prefixDishEdit       = "dish_edit_"
	prefixDishDelete     = "dish_delete_"
	prefixConfirmDelete  = "confirm_delete_"
	prefixDishField      = "dish_field_"
	prefixOrderView      = "order_view_"
	prefixOrder          = "order_"
)

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// Renderer turns data into screens. It holds no state beyond the output format,
// so rendering the same input twice yields identical screens.
type Renderer struct {
	markdown bool
}

// NewRenderer creates a renderer; markdown=false produces plain text
func NewRenderer(markdown bool) Renderer {
	return Renderer{markdown: markdown}
}

func (r Renderer) bold(s string) string {
	if !r.markdown {
		return s
	}
	return "*" + s + "*"
}

// boldText wraps user supplied content in bold. Escapes are not honoured inside
// a legacy Markdown entity, so a '*' that would close it early is swapped for '∗'.
func (r Renderer) boldText(s string) string {
	if !r.markdown {
		return s
	}
	return "*" + strings.ReplaceAll(s, "*", "∗") + "*"
}

// esc escapes user supplied content
func (r Renderer) esc(s string) string {
	if !r.markdown {
		return s
	}
	return markdownEscaper.Replace(s)
}

func (r Renderer) screen(text string, rows ...[]Action) Screen {
	return Screen{Text: text, Rows: rows, Markdown: r.markdown}
}

func row(actions ...Action) []Action {
	return actions
}

func btn(label, id string) Action {
	return Action{Label: label, ID: id}
}

var (
	mainMenuRow  = row(btn("🏠 Главное меню", actMainMenu))
	cancelRow    = row(btn("❌ Отмена", actCancel))
	dishesNavRow = row(btn("📋 Список блюд", actDishesList), btn("🏠 Главное меню", actMainMenu))
)

// Capabilities selects which main menu branches are shown
type Capabilities struct {
	ManageDishes bool
	ViewOrders   bool
}

// MainMenu renders the admin home screen
func (r Renderer) MainMenu(caps Capabilities) Screen {
	var rows [][]Action
	var first []Action
	if caps.ManageDishes {
		first = append(first, btn("🍽️ Управление блюдами", actDishesMenu))
	}
	first = append(first, btn("🏪 Рестораны", actRestaurantsMenu))
	rows = append(rows, first)
	if caps.ViewOrders {
		rows = append(rows, row(btn("📦 Управление заказами", actOrdersMenu), btn("📊 Статистика", actStats)))
	}
	rows = append(rows,
		row(btn("⚙️ Админ-панель", actAdminPanel), btn("🧾 Журнал", actHistory)),
		row(btn("🆘 Помощь", actHelp)),
	)
	return r.screen(r.bold("👑 Административная панель")+"\n\nВыберите раздел для управления:", rows...)
}

// AccessDenied is sent to chats outside the allow-list
func (r Renderer) AccessDenied() Screen {
	return r.screen("⛔ У вас нет доступа к админ-панели.\nОбратитесь к администратору.")
}

// CapabilityDenied is shown when an authorized chat lacks a capability
func (r Renderer) CapabilityDenied() Screen {
	return r.screen("⛔ Это действие вам недоступно.", mainMenuRow)
}

// DishesMenu renders the dish management section
func (r Renderer) DishesMenu() Screen {
	return r.screen(r.bold("🍽️ Управление блюдами")+"\n\nВыберите действие:",
		row(btn("📋 Список блюд", actDishesList), btn("➕ Новое блюдо", actDishCreate)),
		row(btn("🔍 Найти блюдо", actDishSearch)),
		mainMenuRow,
	)
}

// RestaurantMenu pairs a restaurant with its dishes
type RestaurantMenu struct {
	Restaurant models.Restaurant
	Dishes     []models.Dish
}

func availabilityMark(d models.Dish) string {
	if d.IsAvailable {
		return "✅"
	}
	return "❌"
}

// DishList renders every dish grouped by restaurant, one button per dish
func (r Renderer) DishList(menus []RestaurantMenu) Screen {
	var text strings.Builder
	var rows [][]Action
	text.WriteString(r.bold("📋 Все блюда") + "\n\n")

	for _, m := range menus {
		if len(m.Dishes) == 0 {
			continue
		}
		text.WriteString(r.boldText(m.Restaurant.Name) + "\n")
		for _, d := range m.Dishes {
			mark := availabilityMark(d)
			text.WriteString(fmt.Sprintf("%s %s - %s ₽ (ID: %d)\n", mark, r.esc(d.Name), d.Price.String(), d.ID))
			rows = append(rows, row(btn(fmt.Sprintf("%s %s", mark, d.Name), prefixDishEdit+models.FormatID(d.ID))))
		}
		text.WriteString("\n")
	}

	if len(rows) == 0 {
		return r.screen("😔 Блюда не найдены. Создайте первое блюдо.",
			row(btn("➕ Новое блюдо", actDishCreate)),
			row(btn("🔙 Назад", actDishesMenu)),
		)
	}
	rows = append(rows, row(btn("🔙 Назад", actDishesMenu)))
	return r.screen(strings.TrimRight(text.String(), "\n"), rows...)
}

// RestaurantPicker asks which restaurant a new dish belongs to
func (r Renderer) RestaurantPicker(restaurants []models.Restaurant) Screen {
	rows := make([][]Action, 0, len(restaurants)+1)
	for _, rest := range restaurants {
		rows = append(rows, row(btn(rest.Name, prefixCreateIn+models.FormatID(rest.ID))))
	}
	rows = append(rows, cancelRow)
	return r.screen(r.bold("🏪 Выберите ресторан для нового блюда:"), rows...)
}

// NoRestaurants is shown when dish creation cannot start
func (r Renderer) NoRestaurants() Screen {
	dishes := r.DishesMenu()
	dishes.Text = "❌ Нет ресторанов. Сначала создайте ресторан."
	return dishes
}

var createPrompts = map[CreateStep]string{
	StepName:        "🍽️ Введите название блюда:",
	StepDescription: "📝 Введите описание блюда:",
	StepPrice:       "💰 Введите цену блюда (только число, например: 350):",
	StepPrepTime:    "⏱️ Введите время приготовления в минутах (например: 25):",
}

// CreatePrompt asks for the value of the current creation step.
// A non-empty problem is shown above the prompt after invalid input.
func (r Renderer) CreatePrompt(step CreateStep, problem string) Screen {
	var text strings.Builder
	if problem != "" {
		text.WriteString("❌ " + r.esc(problem) + "\n\n")
	}
	if step == StepName && problem == "" {
		text.WriteString(r.bold("🍽️ Создание нового блюда") + "\n\n")
		text.WriteString("Введите название блюда.\n")
		text.WriteString("Или отправьте сразу всё блоком, например:\nНазвание: Пицца\nЦена: 500\nВремя: 20")
	} else {
		text.WriteString(createPrompts[step])
	}
	return r.screen(text.String(), cancelRow)
}

// DishCreated confirms a successful creation
func (r Renderer) DishCreated(d models.Dish) Screen {
	text := fmt.Sprintf("✅ Блюдо \"%s\" успешно создано!\n\n💰 Цена: %s ₽\n⏱️ Время приготовления: %d мин\n\nID: %d",
		r.esc(d.Name), d.Price.String(), d.PreparationTime, d.ID)
	menu := r.DishesMenu()
	return r.screen(text, append([][]Action{row(btn("✏️ Открыть блюдо", prefixDishEdit+models.FormatID(d.ID)))}, menu.Rows...)...)
}

func yesNo(v bool) string {
	if v {
		return "Да"
	}
	return "Нет"
}

// DishCard renders a dish with its management buttons.
// header is an optional status line; blockHint adds the "Field: value" instructions.
func (r Renderer) DishCard(d models.Dish, header string, blockHint bool) Screen {
	var text strings.Builder
	if header != "" {
		text.WriteString(header + "\n\n")
	}
	text.WriteString(r.boldText("🍽️ "+d.Name) + "\n\n")
	if d.Description != "" {
		text.WriteString("📝 " + r.esc(d.Description) + "\n\n")
	}
	if d.RestaurantName != "" {
		text.WriteString("🏪 " + r.esc(d.RestaurantName) + "\n")
	}
	status := "❌ Недоступно"
	toggle := "✅ Сделать доступным"
	if d.IsAvailable {
		status = "✅ Доступно"
		toggle = "❌ Сделать недоступным"
	}
	text.WriteString(fmt.Sprintf("💰 Цена: %s ₽\n", d.Price.String()))
	text.WriteString(fmt.Sprintf("⏱️ Время приготовления: %d мин\n", d.PreparationTime))
	text.WriteString(fmt.Sprintf("📊 Статус: %s\n", status))
	text.WriteString(fmt.Sprintf("🌶️ Острое: %s\n", yesNo(d.IsSpicy)))
	text.WriteString(fmt.Sprintf("🥦 Вегетарианское: %s\n\n", yesNo(d.IsVegetarian)))
	text.WriteString(fmt.Sprintf("🆔 ID: %d", d.ID))
	if blockHint {
		text.WriteString("\n\nЧтобы изменить несколько полей сразу, отправьте блок:\nЦена: 450\nОстрое: да")
	}

	id := models.FormatID(d.ID)
	field := func(f Field) Action {
		def, _ := lookupField(f)
		return btn(def.button, prefixDishField+id+"_"+string(f))
	}
	return r.screen(text.String(),
		row(btn(toggle, prefixDishToggle+id)),
		row(field(FieldName), field(FieldDescription)),
		row(field(FieldPrice), field(FieldPrepTime)),
		row(field(FieldSpicy), field(FieldVegetarian)),
		row(btn("🗑️ Удалить", prefixDishDelete+id)),
		dishesNavRow,
	)
}

// FieldPrompt asks for a new value of one field
func (r Renderer) FieldPrompt(f Field, problem string) Screen {
	def, _ := lookupField(f)
	var text strings.Builder
	if problem != "" {
		text.WriteString("❌ " + r.esc(problem) + "\n\n")
	}
	text.WriteString(fmt.Sprintf("✏️ Введите новое значение для %s:", def.title))
	return r.screen(text.String(), cancelRow)
}

// FieldUpdated renders the updated dish after a single field edit
func (r Renderer) FieldUpdated(f Field, d models.Dish) Screen {
	def, _ := lookupField(f)
	return r.DishCard(d, fmt.Sprintf("✅ %s успешно обновлено!", def.done), false)
}

// BlockUpdated renders the updated dish after a "Field: value" block edit
func (r Renderer) BlockUpdated(fields []Field, d models.Dish) Screen {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		def, _ := lookupField(f)
		names = append(names, def.done)
	}
	return r.DishCard(d, "✅ Обновлено: "+strings.Join(names, ", "), false)
}

// BlockRejected re-prompts on an invalid "Field: value" block
func (r Renderer) BlockRejected(problem string) Screen {
	return r.screen("❌ "+r.esc(problem)+"\n\nИсправьте блок и отправьте снова, или нажмите «Отмена».", cancelRow)
}

// DeleteConfirm asks before deleting a dish
func (r Renderer) DeleteConfirm(d models.Dish) Screen {
	id := models.FormatID(d.ID)
	var text strings.Builder
	text.WriteString(r.bold("🗑️ Подтверждение удаления") + "\n\n")
	text.WriteString("Вы уверены, что хотите удалить блюдо?\n\n")
	text.WriteString(fmt.Sprintf("🍽️ %s\n💰 %s ₽\n", r.esc(d.Name), d.Price.String()))
	if d.RestaurantName != "" {
		text.WriteString(fmt.Sprintf("🏪 %s\n", r.esc(d.RestaurantName)))
	}
	text.WriteString("\n⚠️ Если блюдо есть в заказах, оно будет сделано недоступным.")
	return r.screen(text.String(),
		row(btn("✅ Да, удалить", prefixConfirmDelete+id), btn("❌ Нет, отмена", prefixDishEdit+id)),
	)
}

// DishDeleted reports the outcome of a delete
func (r Renderer) DishDeleted(result models.DeleteDishResult) Screen {
	text := "✅ Блюдо успешно удалено"
	if result.SoftDelete {
		text = "✅ Блюдо успешно сделано недоступным"
	}
	if result.Dish != nil {
		text += fmt.Sprintf("\n\n🍽️ \"%s\"", r.esc(result.Dish.Name))
	}
	menu := r.DishesMenu()
	return r.screen(text, menu.Rows...)
}

// SearchPrompt asks for a dish id
func (r Renderer) SearchPrompt(problem string) Screen {
	var text strings.Builder
	if problem != "" {
		text.WriteString("❌ " + r.esc(problem) + "\n\n")
	}
	text.WriteString("🔍 Введите ID блюда:")
	return r.screen(text.String(), cancelRow)
}

// RestaurantsMenu renders the restaurant section
func (r Renderer) RestaurantsMenu() Screen {
	return r.screen(r.bold("🏪 Рестораны")+"\n\nВыберите действие:",
		row(btn("📋 Список ресторанов", actRestaurantsList)),
		mainMenuRow,
	)
}

// RestaurantList renders restaurants with a menu button each
func (r Renderer) RestaurantList(restaurants []models.Restaurant) Screen {
	if len(restaurants) == 0 {
		return r.screen("😔 Рестораны не найдены.", row(btn("🔙 Назад", actRestaurantsMenu)))
	}
	var text strings.Builder
	rows := make([][]Action, 0, len(restaurants)+1)
	text.WriteString(r.bold("🏪 Рестораны") + "\n\n")
	for _, rest := range restaurants {
		text.WriteString(r.boldText(rest.Name) + fmt.Sprintf(" (ID: %d)\n", rest.ID))
		if rest.Rating != nil {
			text.WriteString(fmt.Sprintf("⭐ %.1f\n", *rest.Rating))
		}
		if rest.DeliveryTime != "" {
			text.WriteString(fmt.Sprintf("🕐 %s\n", r.esc(string(rest.DeliveryTime))))
		}
		text.WriteString(fmt.Sprintf("🚚 Доставка: %s ₽\n", rest.DeliveryPrice.String()))
		if len(rest.Categories) > 0 {
			text.WriteString("🏷️ " + r.esc(strings.Join(rest.Categories, ", ")) + "\n")
		}
		text.WriteString("\n")
		rows = append(rows, row(btn("🍽️ Меню: "+rest.Name, prefixRestaurantMenu+models.FormatID(rest.ID))))
	}
	rows = append(rows, row(btn("🔙 Назад", actRestaurantsMenu)))
	return r.screen(strings.TrimRight(text.String(), "\n"), rows...)
}

// RestaurantDishes renders one restaurant's menu
func (r Renderer) RestaurantDishes(restaurantID int64, dishes []models.Dish) Screen {
	back := row(btn("🔙 К ресторанам", actRestaurantsList))
	if len(dishes) == 0 {
		return r.screen(fmt.Sprintf("😔 В меню ресторана %d нет блюд.", restaurantID), back)
	}
	var text strings.Builder
	rows := make([][]Action, 0, len(dishes)+1)
	text.WriteString(r.bold(fmt.Sprintf("🍽️ Меню ресторана %d", restaurantID)) + "\n\n")
	for _, d := range dishes {
		mark := availabilityMark(d)
		text.WriteString(fmt.Sprintf("%s %s - %s ₽ (ID: %d)\n", mark, r.esc(d.Name), d.Price.String(), d.ID))
		rows = append(rows, row(btn(fmt.Sprintf("%s %s", mark, d.Name), prefixDishEdit+models.FormatID(d.ID))))
	}
	rows = append(rows, back)
	return r.screen(strings.TrimRight(text.String(), "\n"), rows...)
}

// OrdersMenu renders the order filters
func (r Renderer) OrdersMenu() Screen {
	return r.screen(r.bold("📦 Управление заказами")+"\n\nВыберите статус заказов для просмотра:",
		row(btn("🆕 Новые заказы", "orders_new"), btn("⏳ Подтвержденные", "orders_processing")),
		row(btn("👨‍🍳 Готовятся", "orders_preparing"), btn("🚚 Доставляются", "orders_delivering")),
		row(btn("✅ Завершенные", "orders_completed"), btn("❌ Отмененные", "orders_cancelled")),
		row(btn("📊 Все заказы", "orders_all")),
		mainMenuRow,
	)
}

const orderTimeLayout = "02.01.2006 15:04"

// OrderList renders orders of one status filter
func (r Renderer) OrderList(status models.OrderStatus, orders []models.Order) Screen {
	if len(orders) == 0 {
		menu := r.OrdersMenu()
		return r.screen(fmt.Sprintf("😔 %s заказов нет.", textFor(status)), menu.Rows...)
	}

	var text strings.Builder
	rows := make([][]Action, 0, len(orders)+1)
	text.WriteString(r.bold(fmt.Sprintf("%s %s заказы", emojiFor(status), textFor(status))) + "\n\n")
	for _, o := range orders {
		text.WriteString(r.bold(fmt.Sprintf("Заказ #%d", o.ID)) + "\n")
		text.WriteString(fmt.Sprintf("👤 %s | 📞 %s\n", r.esc(orDefault(o.UserName, "Клиент")), r.esc(orDefault(o.UserPhone, "Нет телефона"))))
		if o.RestaurantName != "" {
			text.WriteString("🏪 " + r.esc(o.RestaurantName) + "\n")
		}
		text.WriteString(fmt.Sprintf("💰 %s ₽\n", o.TotalAmount.String()))
		if o.DeliveryAddress != "" {
			text.WriteString("📍 " + r.esc(o.DeliveryAddress) + "\n")
		}
		if !o.OrderDate.IsZero() {
			text.WriteString("🕐 " + o.OrderDate.Format(orderTimeLayout) + "\n")
		}
		if len(o.Items) > 0 {
			text.WriteString("🍽️ " + r.esc(itemsSummary(o.Items)) + "\n")
		}
		text.WriteString("\n")
		rows = append(rows, row(btn(fmt.Sprintf("📦 Заказ #%d - %s ₽", o.ID, o.TotalAmount.String()), prefixOrderView+models.FormatID(o.ID))))
	}
	rows = append(rows, row(btn("🔙 Назад к заказам", actOrdersMenu)))
	return r.screen(strings.TrimRight(text.String(), "\n"), rows...)
}

func itemsSummary(items []models.OrderItem) string {
	shown := items
	if len(shown) > 2 {
		shown = shown[:2]
	}
	parts := make([]string, 0, len(shown))
	for _, it := range shown {
		parts = append(parts, fmt.Sprintf("%s x%d", it.DishName, it.Quantity))
	}
	s := strings.Join(parts, ", ")
	if len(items) > 2 {
		s += fmt.Sprintf(" и ещё %d", len(items)-2)
	}
	return s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// OrderDetail renders one order with the actions allowed for its status
func (r Renderer) OrderDetail(o models.Order, header string) Screen {
	var text strings.Builder
	if header != "" {
		text.WriteString(header + "\n\n")
	}
	text.WriteString(r.bold(fmt.Sprintf("📦 Заказ #%d", o.ID)) + "\n\n")
	text.WriteString(r.bold("👤 Клиент:") + " " + r.esc(orDefault(o.UserName, "Не указано")) + "\n")
	text.WriteString(r.bold("📞 Телефон:") + " " + r.esc(orDefault(o.UserPhone, "Не указано")) + "\n")
	if o.RestaurantName != "" {
		text.WriteString(r.bold("🏪 Ресторан:") + " " + r.esc(o.RestaurantName) + "\n")
	}
	if o.DeliveryAddress != "" {
		text.WriteString(r.bold("📍 Адрес:") + " " + r.esc(o.DeliveryAddress) + "\n")
	}
	if o.PaymentMethod != "" {
		text.WriteString(r.bold("💳 Оплата:") + " " + r.esc(o.PaymentMethod) + "\n")
	}
	text.WriteString(r.bold("📊 Статус:") + fmt.Sprintf(" %s %s\n", emojiFor(o.Status), textFor(o.Status)))
	if !o.OrderDate.IsZero() {
		text.WriteString(r.bold("🕐 Создан:") + " " + o.OrderDate.Format(orderTimeLayout) + "\n")
	}
	if len(o.Items) > 0 {
		text.WriteString("\n" + r.bold("🍽️ Состав заказа:") + "\n")
		for _, it := range o.Items {
			line := it.DishPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
			text.WriteString(fmt.Sprintf("• %s x%d - %s ₽\n", r.esc(it.DishName), it.Quantity, line.String()))
		}
	}
	text.WriteString("\n" + r.bold("💰 Итого:") + fmt.Sprintf(" %s ₽", o.TotalAmount.String()))

	id := models.FormatID(o.ID)
	var rows [][]Action
	if actions := ActionsFor(o.Status); len(actions) > 0 {
		statusRow := make([]Action, 0, len(actions))
		for _, a := range actions {
			statusRow = append(statusRow, btn(a.Label, prefixOrder+a.Verb+"_"+id))
		}
		rows = append(rows, statusRow)
	}
	rows = append(rows, row(btn("📋 Все заказы", "orders_all"), btn("🏠 Главное меню", actMainMenu)))
	return r.screen(text.String(), rows...)
}

// DishNotFound is shown when the backend has no dish with this id
func (r Renderer) DishNotFound(dishID int64) Screen {
	return r.screen(fmt.Sprintf("❌ Блюдо #%d не найдено", dishID), dishesNavRow)
}

// OrderNotFound is shown when an order id is not in the backend listing
func (r Renderer) OrderNotFound(orderID int64) Screen {
	menu := r.OrdersMenu()
	return r.screen(fmt.Sprintf("❌ Заказ #%d не найден", orderID), menu.Rows...)
}

// StatusChangeFailed is sent as a separate message so the order screen stays intact
func (r Renderer) StatusChangeFailed(orderID int64, problem string) Screen {
	return r.screen(fmt.Sprintf("❌ Ошибка обновления статуса заказа #%d: %s", orderID, r.esc(problem)))
}

// NewOrderNotification announces an order received via the notification webhook
func (r Renderer) NewOrderNotification(o models.Order) Screen {
	var text strings.Builder
	text.WriteString(r.bold(fmt.Sprintf("🆕 Новый заказ! #%d", o.ID)) + "\n\n")
	if o.RestaurantName != "" {
		text.WriteString("🏪 " + r.esc(o.RestaurantName) + "\n")
	}
	text.WriteString(fmt.Sprintf("💰 %s ₽\n", o.TotalAmount.String()))
	if o.DeliveryAddress != "" {
		text.WriteString("📍 " + r.esc(o.DeliveryAddress) + "\n")
	}
	if !o.OrderDate.IsZero() {
		text.WriteString("🕐 " + o.OrderDate.Format(orderTimeLayout) + "\n")
	}
	text.WriteString("\nДля управления: /orders")
	return r.screen(text.String(),
		row(btn("📦 Открыть заказ", prefixOrderView+models.FormatID(o.ID))),
		row(btn("🆕 Новые заказы", "orders_new")),
	)
}

// Stats is the aggregate shown on the statistics screen
type Stats struct {
	TotalOrders   int
	PendingOrders int
	Revenue       decimal.Decimal
	Restaurants   int
	Dishes        int
	UpdatedAt     time.Time
}

// Statistics renders system statistics
func (r Renderer) Statistics(s Stats) Screen {
	text := r.bold("📊 Статистика системы") + "\n\n" +
		fmt.Sprintf("📦 Всего заказов: %d\n", s.TotalOrders) +
		fmt.Sprintf("🆕 Новых заказов: %d\n", s.PendingOrders) +
		fmt.Sprintf("💰 Общая выручка: %s ₽\n", s.Revenue.StringFixed(2)) +
		fmt.Sprintf("🏪 Ресторанов: %d\n", s.Restaurants) +
		fmt.Sprintf("🍽️ Блюд в системе: %d\n\n", s.Dishes) +
		"🔄 Обновлено: " + s.UpdatedAt.Format("15:04:05")
	return r.screen(text, row(btn("🔄 Обновить", actStats)), mainMenuRow)
}

// PanelInfo is the data behind the admin panel screen
type PanelInfo struct {
	APIURL      string
	Admins      []int64
	BotUsername string
	StartedAt   time.Time
	Health      *models.Health
	HealthError string
}

// AdminPanel renders configuration and backend health
func (r Renderer) AdminPanel(p PanelInfo) Screen {
	admins := "Все пользователи"
	if len(p.Admins) > 0 {
		ids := make([]string, 0, len(p.Admins))
		for _, id := range p.Admins {
			ids = append(ids, models.FormatID(id))
		}
		admins = strings.Join(ids, ", ")
	}

	var text strings.Builder
	text.WriteString(r.bold("⚙️ Административная панель") + "\n\n")
	text.WriteString("🔗 API: " + r.esc(p.APIURL) + "\n")
	text.WriteString("👑 Админы: " + admins + "\n")
	if p.BotUsername != "" {
		text.WriteString("🤖 Бот: @" + r.esc(p.BotUsername) + "\n")
	}
	switch {
	case p.Health != nil:
		text.WriteString(fmt.Sprintf("💚 Backend: %s (БД: %s, окружение: %s)\n",
			r.esc(p.Health.Status), r.esc(p.Health.Database), r.esc(p.Health.Environment)))
	case p.HealthError != "":
		text.WriteString("🔴 Backend: " + r.esc(p.HealthError) + "\n")
	}
	text.WriteString("\n🔄 Последний запуск: " + p.StartedAt.Format(orderTimeLayout))
	return r.screen(text.String(), mainMenuRow)
}

// History renders recent audit events
func (r Renderer) History(events []models.AuditEvent) Screen {
	if len(events) == 0 {
		return r.screen("🧾 Журнал действий пуст.", mainMenuRow)
	}
	var text strings.Builder
	text.WriteString(r.bold("🧾 Последние действия") + "\n\n")
	for i, e := range events {
		text.WriteString(fmt.Sprintf("%d. %s - %s #%s (%d)", i+1, e.Time.Format(orderTimeLayout), r.esc(e.Action), r.esc(e.EntityID), e.ChatID))
		if e.Details != "" {
			text.WriteString(": " + r.esc(e.Details))
		}
		text.WriteString("\n")
	}
	return r.screen(strings.TrimRight(text.String(), "\n"), mainMenuRow)
}

// Help renders usage instructions
func (r Renderer) Help() Screen {
	text := r.bold("🆘 Помощь администратору") + "\n\n" +
		r.bold("Основные функции:") + "\n" +
		"• 🍽️ Управление блюдами (создание, редактирование, удаление)\n" +
		"• 📦 Управление заказами (подтверждение, отслеживание)\n" +
		"• 📊 Просмотр статистики\n\n" +
		r.bold("Быстрые команды:") + "\n" +
		"/start - Главное меню\n" +
		"/dishes - Управление блюдами\n" +
		"/orders - Управление заказами\n" +
		"/stats - Статистика\n" +
		"/history - Журнал действий\n" +
		"/cancel - Отменить текущее действие\n\n" +
		r.bold("Как работать:") + "\n" +
		"1. Используйте кнопки меню\n" +
		"2. Следуйте инструкциям бота\n" +
		"3. Для отмены действия нажмите \"Отмена\""
	return r.screen(text, mainMenuRow)
}

// UseMenu answers free text outside any flow
func (r Renderer) UseMenu(caps Capabilities) Screen {
	s := r.MainMenu(caps)
	s.Text = "Используйте меню для навигации"
	return s
}

// Cancelled prefixes the cancel destination with a notice
func (r Renderer) Cancelled(dest Screen) Screen {
	dest.Text = "❌ Действие отменено.\n\n" + dest.Text
	return dest
}

// BackendFailure renders a backend error with a way back
func (r Renderer) BackendFailure(what, problem string, back Screen) Screen {
	back.Text = fmt.Sprintf("❌ %s: %s", what, r.esc(problem))
	return back
}
