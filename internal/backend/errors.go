package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrConnectivity marks transport-level failures (DNS, refused connection,
// timeout) as opposed to HTTP error responses from the backend.
var ErrConnectivity = errors.New("backend unreachable")

// Category buckets an HTTP error for user-facing messaging.
type Category string

const (
	CategoryValidation   Category = "validation"
	CategoryAuth         Category = "auth"
	CategoryNotFound     Category = "not_found"
	CategoryConflict     Category = "conflict"
	CategoryServer       Category = "server"
	CategoryConnectivity Category = "connectivity"
	CategoryUnknown      Category = "unknown"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status     int
	StatusText string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s - %s", e.StatusText, e.Message)
}

func (e *APIError) Category() Category {
	switch {
	case e.Status == 400:
		return CategoryValidation
	case e.Status == 401 || e.Status == 403:
		return CategoryAuth
	case e.Status == 404:
		return CategoryNotFound
	case e.Status == 409:
		return CategoryConflict
	case e.Status >= 500:
		return CategoryServer
	default:
		return CategoryUnknown
	}
}

// Categorize maps any client error onto the taxonomy.
func Categorize(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	if errors.Is(err, ErrConnectivity) {
		return CategoryConnectivity
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Category()
	}
	return CategoryUnknown
}

// extractMessage pulls a human-readable message out of an error body.
// Backends disagree on the field name: message, error, detail or details.
// A plain-text body is used as-is; an empty one falls back to the status
// line.
func extractMessage(body []byte, status int, statusText string) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("HTTP %d: %s", status, statusText)
	}

	var fields struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, candidate := range []string{fields.Message, fields.Error, fields.Detail, fields.Details} {
			if candidate != "" {
				return candidate
			}
		}
	}

	return trimmed
}
