// Package adminapi is a client for the food-delivery admin REST API.
package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"adminbot/internal/models"
)

const (
	apiKeyHeader      = "X-Admin-API-Key"
	idempotencyHeader = "Idempotency-Key"

	DefaultTimeout = 10 * time.Second
	defaultRetries = 2
)

// Client calls the admin API. All methods are safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retries    uint64
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetries sets how many times a failed GET is retried
func WithRetries(n uint64) Option {
	return func(c *Client) { c.retries = n }
}

// NewClient creates a new admin API client
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		retries:    defaultRetries,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListRestaurants calls GET /restaurants
func (c *Client) ListRestaurants(ctx context.Context) ([]models.Restaurant, error) {
	var restaurants []models.Restaurant
	if err := c.get(ctx, "/restaurants", &restaurants); err != nil {
		return nil, err
	}
	return restaurants, nil
}

// RestaurantMenu calls GET /restaurants/{id}/menu
func (c *Client) RestaurantMenu(ctx context.Context, restaurantID int64) ([]models.Dish, error) {
	var dishes []models.Dish
	if err := c.get(ctx, fmt.Sprintf("/restaurants/%d/menu", restaurantID), &dishes); err != nil {
		return nil, err
	}
	return dishes, nil
}

type dishEnvelope struct {
	Dish *models.Dish `json:"dish"`
}

// GetDish calls GET /bot/dish/{id}
func (c *Client) GetDish(ctx context.Context, dishID int64) (*models.Dish, error) {
	path := fmt.Sprintf("/bot/dish/%d", dishID)
	var env dishEnvelope
	if err := c.get(ctx, path, &env); err != nil {
		return nil, err
	}
	return env.dish("GET " + path)
}

// ToggleDish calls POST /bot/dish/{id}/toggle, flipping availability
func (c *Client) ToggleDish(ctx context.Context, dishID int64) (*models.Dish, error) {
	path := fmt.Sprintf("/bot/dish/%d/toggle", dishID)
	var env dishEnvelope
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &env); err != nil {
		return nil, err
	}
	return env.dish("POST " + path)
}

// CreateDish calls POST /admin/dishes. A non-empty idempotencyKey is sent so the
// backend can drop a repeated submission of the same draft.
func (c *Client) CreateDish(ctx context.Context, req models.CreateDishRequest, idempotencyKey string) (*models.Dish, error) {
	if req.Ingredients == nil {
		req.Ingredients = []string{}
	}
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{idempotencyHeader: idempotencyKey}
	}
	var env dishEnvelope
	if err := c.do(ctx, http.MethodPost, "/admin/dishes", req, headers, &env); err != nil {
		return nil, err
	}
	return env.dish("POST /admin/dishes")
}

// UpdateDish calls PUT /admin/dishes/{id} with a sparse patch
func (c *Client) UpdateDish(ctx context.Context, dishID int64, patch models.DishPatch) (*models.Dish, error) {
	path := fmt.Sprintf("/admin/dishes/%d", dishID)
	if patch.IsEmpty() {
		return nil, &BackendError{Op: "PUT " + path, Message: "нет полей для обновления"}
	}
	var env dishEnvelope
	if err := c.do(ctx, http.MethodPut, path, patch, nil, &env); err != nil {
		return nil, err
	}
	return env.dish("PUT " + path)
}

// DeleteDish calls DELETE /admin/dishes/{id}
func (c *Client) DeleteDish(ctx context.Context, dishID int64) (*models.DeleteDishResult, error) {
	var result models.DeleteDishResult
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/admin/dishes/%d", dishID), nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListOrders calls GET /admin/orders. Empty status and zero limit are omitted.
func (c *Client) ListOrders(ctx context.Context, status models.OrderStatus, limit int) ([]models.Order, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/admin/orders"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var orders []models.Order
	if err := c.get(ctx, path, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrderStatus calls PUT /admin/orders/{id}/status. The returned order is nil
// when the backend confirms the change without echoing the order back.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus, idempotencyKey string) (*models.Order, error) {
	path := fmt.Sprintf("/admin/orders/%d/status", orderID)
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{idempotencyHeader: idempotencyKey}
	}
	var raw json.RawMessage
	body := map[string]models.OrderStatus{"status": status}
	if err := c.do(ctx, http.MethodPut, path, body, headers, &raw); err != nil {
		return nil, err
	}
	order := decodeOrder(raw, orderID)
	if order == nil {
		c.logger.Debug("Status reply carries no order", zap.Int64("order_id", orderID))
	}
	return order, nil
}

// Health calls GET /health
func (c *Client) Health(ctx context.Context) (*models.Health, error) {
	var h models.Health
	if err := c.get(ctx, "/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (e dishEnvelope) dish(op string) (*models.Dish, error) {
	if e.Dish == nil {
		return nil, &BackendError{Op: op, Message: "в ответе нет блюда"}
	}
	return e.Dish, nil
}

// decodeOrder accepts both {"order": {...}} and a bare order object. It returns nil
// unless the body describes order orderID with a status.
func decodeOrder(raw json.RawMessage, orderID int64) *models.Order {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	valid := func(o *models.Order) bool {
		return o != nil && o.ID == orderID && o.Status != ""
	}

	var env struct {
		Order *models.Order `json:"order"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && valid(env.Order) {
		return env.Order
	}
	var order models.Order
	if err := json.Unmarshal(raw, &order); err == nil && valid(&order) {
		return &order
	}
	return nil
}

// get performs a GET request, retrying network failures and 5xx responses
func (c *Client) get(ctx context.Context, path string, out any) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retries),
		ctx,
	)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := c.do(ctx, http.MethodGet, path, nil, nil, out)
		if err == nil {
			return nil
		}
		var be *BackendError
		if errors.As(err, &be) && be.Status != 0 && be.Status < 500 {
			return backoff.Permanent(err)
		}
		c.logger.Warn("Admin API request failed",
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return err
	}, policy)
}

func (c *Client) do(ctx context.Context, method, path string, body any, headers map[string]string, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s body: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &BackendError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &BackendError{Op: op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &BackendError{Op: op, Status: resp.StatusCode, Message: errorMessage(data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &BackendError{Op: op, Status: resp.StatusCode, Message: "некорректный ответ сервера", Err: err}
	}
	return nil
}
