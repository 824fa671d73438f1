package backend

import (
	"fmt"
	"net/http"
)

// APIError represents a non-2xx response from either backend service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx). Client errors (4xx) are
// considered permanent.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// IsNotFound reports whether the backend did not recognize the identifier.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}
