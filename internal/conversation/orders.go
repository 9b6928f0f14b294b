package conversation

import "adminbot/internal/models"

// StatusAction is a button offered on an order in a given status
type StatusAction struct {
	Verb   string // callback verb, e.g. "confirm" in order_confirm_42
	Target models.OrderStatus
	Label  string
}

// statusActions is the fixed transition table. Statuses missing here are terminal.
var statusActions = map[models.OrderStatus][]StatusAction{
	models.OrderPending: {
		{Verb: "confirm", Target: models.OrderConfirmed, Label: "✅ Подтвердить"},
		{Verb: "cancel", Target: models.OrderCancelled, Label: "❌ Отменить"},
	},
	models.OrderConfirmed: {
		{Verb: "prepare", Target: models.OrderPreparing, Label: "👨‍🍳 В приготовлении"},
	},
	models.OrderPreparing: {
		{Verb: "deliver", Target: models.OrderDelivering, Label: "🚚 В доставке"},
	},
	models.OrderDelivering: {
		{Verb: "delivered", Target: models.OrderDelivered, Label: "✅ Доставлен"},
	},
}

// ActionsFor returns the next-status actions offered for status
func ActionsFor(status models.OrderStatus) []StatusAction {
	return statusActions[status]
}

// targetForVerb maps a callback verb to its target status
func targetForVerb(verb string) (models.OrderStatus, bool) {
	for _, actions := range statusActions {
		for _, a := range actions {
			if a.Verb == verb {
				return a.Target, true
			}
		}
	}
	return "", false
}

var statusEmoji = map[models.OrderStatus]string{
	models.OrderPending:    "🆕",
	models.OrderConfirmed:  "✅",
	models.OrderPreparing:  "👨‍🍳",
	models.OrderDelivering: "🚚",
	models.OrderDelivered:  "🎉",
	models.OrderCancelled:  "❌",
}

var statusText = map[models.OrderStatus]string{
	models.OrderPending:    "Новые",
	models.OrderConfirmed:  "Подтвержденные",
	models.OrderPreparing:  "В приготовлении",
	models.OrderDelivering: "В доставке",
	models.OrderDelivered:  "Доставленные",
	models.OrderCancelled:  "Отмененные",
}

func emojiFor(status models.OrderStatus) string {
	if e, ok := statusEmoji[status]; ok {
		return e
	}
	return "📦"
}

func textFor(status models.OrderStatus) string {
	if t, ok := statusText[status]; ok {
		return t
	}
	if status == "" {
		return "Все"
	}
	return string(status)
}

// orderFilters maps orders-menu callback ids to status filters; "" means all
var orderFilters = map[string]models.OrderStatus{
	"orders_new":        models.OrderPending,
	"orders_processing": models.OrderConfirmed,
	"orders_preparing":  models.OrderPreparing,
	"orders_delivering": models.OrderDelivering,
	"orders_completed":  models.OrderDelivered,
	"orders_cancelled":  models.OrderCancelled,
	"orders_all":        "",
}
