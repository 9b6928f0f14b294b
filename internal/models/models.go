package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Price is an amount in rubles. It is encoded as a bare JSON number and decoded
// from either a number or a quoted string, since the backend returns both.
type Price struct {
	decimal.Decimal
}

// NewPrice creates a Price from an integer amount
func NewPrice(v int64) Price {
	return Price{decimal.NewFromInt(v)}
}

// ParsePrice parses a decimal string such as "350" or "350.50"
func ParsePrice(s string) (Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price{}, err
	}
	return Price{d}, nil
}

func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.Decimal.String()), nil
}

func (p *Price) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		p.Decimal = decimal.Zero
		return nil
	}
	return p.Decimal.UnmarshalJSON(data)
}

// FlexString accepts a JSON string or number and keeps its textual form
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	*s = FlexString(data)
	return nil
}

// Restaurant represents a restaurant as returned by GET /restaurants
type Restaurant struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Rating        *float64   `json:"rating,omitempty"`
	DeliveryTime  FlexString `json:"delivery_time"`
	DeliveryPrice Price      `json:"delivery_price"`
	Categories    []string   `json:"categories"`
}

// Dish represents a menu item
type Dish struct {
	ID              int64    `json:"id"`
	RestaurantID    int64    `json:"restaurant_id"`
	RestaurantName  string   `json:"restaurant_name,omitempty"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Price           Price    `json:"price"`
	PreparationTime int      `json:"preparation_time"`
	Ingredients     []string `json:"ingredients,omitempty"`
	IsAvailable     bool     `json:"is_available"`
	IsSpicy         bool     `json:"is_spicy"`
	IsVegetarian    bool     `json:"is_vegetarian"`
}

// CreateDishRequest is the body of POST /admin/dishes
type CreateDishRequest struct {
	RestaurantID    int64    `json:"restaurant_id"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Price           Price    `json:"price"`
	PreparationTime int      `json:"preparation_time,omitempty"`
	Ingredients     []string `json:"ingredients"`
	IsVegetarian    bool     `json:"is_vegetarian"`
	IsSpicy         bool     `json:"is_spicy"`
}

// DishPatch is a sparse update for PUT /admin/dishes/{id}.
// Nil fields are omitted from the request body.
type DishPatch struct {
	Name            *string `json:"name,omitempty"`
	Description     *string `json:"description,omitempty"`
	Price           *Price  `json:"price,omitempty"`
	PreparationTime *int    `json:"preparation_time,omitempty"`
	IsSpicy         *bool   `json:"is_spicy,omitempty"`
	IsVegetarian    *bool   `json:"is_vegetarian,omitempty"`
	IsAvailable     *bool   `json:"is_available,omitempty"`
}

// IsEmpty reports whether the patch carries no fields
func (p DishPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil && p.PreparationTime == nil &&
		p.IsSpicy == nil && p.IsVegetarian == nil && p.IsAvailable == nil
}

// DeleteDishResult is the response of DELETE /admin/dishes/{id}
type DeleteDishResult struct {
	SoftDelete bool  `json:"soft_delete"`
	Dish       *Dish `json:"dish,omitempty"`
}

// OrderStatus is the lifecycle status of an order
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderPreparing  OrderStatus = "preparing"
	OrderDelivering OrderStatus = "delivering"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// OrderItem is a single line of an order
type OrderItem struct {
	DishName  string `json:"dish_name"`
	Quantity  int    `json:"quantity"`
	DishPrice Price  `json:"dish_price"`
}

// Order represents an order summary as returned by the admin endpoints
type Order struct {
	ID              int64       `json:"id"`
	UserName        string      `json:"user_name"`
	UserPhone       string      `json:"user_phone"`
	RestaurantName  string      `json:"restaurant_name"`
	TotalAmount     Price       `json:"total_amount"`
	DeliveryAddress string      `json:"delivery_address"`
	PaymentMethod   string      `json:"payment_method"`
	Status          OrderStatus `json:"status"`
	OrderDate       time.Time   `json:"order_date"`
	Items           []OrderItem `json:"items"`
}

// Health is the response of GET /health
type Health struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Environment string `json:"environment"`
	Timestamp   string `json:"timestamp"`
}

// AuditEvent is a record of a successful admin write
type AuditEvent struct {
	Time     time.Time
	ChatID   int64
	Action   string
	EntityID string
	Details  string
}

// FormatID renders a numeric identifier for callback data and audit records
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
