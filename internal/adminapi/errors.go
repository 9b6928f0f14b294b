package adminapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// BackendError is returned for any failed call to the admin API: a non-2xx
// response, a network failure or a timeout.
type BackendError struct {
	Op      string // e.g. "GET /bot/dish/42"
	Status  int    // 0 when no response was received
	Message string
	Err     error
}

func (e *BackendError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s: %d: %s", e.Op, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": request failed"
	}
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// UserMessage is the text shown to the admin. It never contains transport details.
func (e *BackendError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status != 0 {
		return fmt.Sprintf("сервер вернул статус %d", e.Status)
	}
	return "сервер недоступен, попробуйте позже"
}

// IsNotFound reports whether err is a 404 from the backend
func IsNotFound(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Status == 404
}

// errorMessage extracts a human readable message from an error response body
func errorMessage(body []byte) string {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if len(payload.Error) > 0 {
		var s string
		if err := json.Unmarshal(payload.Error, &s); err == nil && s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
	}
	return strings.TrimSpace(payload.Message)
}
