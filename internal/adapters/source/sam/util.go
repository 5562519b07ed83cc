package sam

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// StatusError wraps non-2xx HTTP responses from SAM.gov
type StatusError struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

// Error interface
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sam status %d", e.Status)
	}
	return fmt.Sprintf("sam status %d: %s", e.Status, e.Body)
}

// HTTPStatus interface
func (e *StatusError) HTTPStatus() int { return e.Status }

// IsRateLimited reports whether err carries a 429 from the API
func IsRateLimited(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status == http.StatusTooManyRequests
	}
	return false
}

// IsTransient reports whether err carries a retryable 5xx from the API
func IsTransient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status == http.StatusBadGateway ||
			se.Status == http.StatusServiceUnavailable ||
			se.Status == http.StatusGatewayTimeout
	}
	return false
}
