package alphavantage

import (
	"errors"
	"fmt"
)

// ErrNoQuote is returned when the response carries no "Global Quote" payload,
// which is what the API does for unknown symbols.
var ErrNoQuote = errors.New("no quote in response")

// ErrUnauthorized is returned when the API rejects the key with 401 or 403.
var ErrUnauthorized = errors.New("unauthorized")

// RateLimitError reports that the API refused the call because the key is
// over its request quota.
type RateLimitError struct {
	Notice string
}

func (e *RateLimitError) Error() string {
	if e.Notice == "" {
		return "rate limited"
	}
	return fmt.Sprintf("rate limited: %s", e.Notice)
}

// APIError is an explicit "Error Message" returned by the API, typically for
// an invalid function call or API key.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s", e.Message)
}
