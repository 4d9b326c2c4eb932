package posterapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/resilience"
)

// ErrUnavailable is returned without contacting the service while the
// circuit breaker is open.
var ErrUnavailable = errors.New("poster service unavailable")

// APIError is a non-2xx response from the poster service.
type APIError struct {
	Endpoint string
	Status   int
	// Detail is the server supplied message, empty when the body had none.
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %d %s", e.Endpoint, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: %d %s", e.Endpoint, e.Status, http.StatusText(e.Status))
}

// NotFound reports whether the poster or section does not exist.
func (e *APIError) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// Detail extracts the server message from err, or "" if there is none.
func Detail(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}

// errorBody is the FastAPI error shape. Detail is either a string or a list
// of validation errors.
type errorBody struct {
	Detail any `json:"detail"`
}

func parseDetail(body []byte) string {
	var eb errorBody
	if len(body) == 0 || sonic.ConfigStd.Unmarshal(body, &eb) != nil {
		return ""
	}
	switch d := eb.Detail.(type) {
	case string:
		return d
	case []any:
		msgs := make([]string, 0, len(d))
		for _, item := range d {
			if m, ok := item.(map[string]any); ok {
				if msg, ok := m["msg"].(string); ok {
					msgs = append(msgs, msg)
				}
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

// isServiceFailure decides which errors count against the circuit breaker.
// Client errors mean the service answered.
func isServiceFailure(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	return !errors.Is(err, resilience.ErrCircuitOpen)
}
