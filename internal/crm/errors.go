package crm

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound marks lookups whose target does not exist. HTTPError values
// for 404 responses match it through errors.Is.
var ErrNotFound = errors.New("not found")

// HTTPError is a non-2xx response from the CRM API.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("crm: http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("crm: http %d: %s", e.StatusCode, e.Message)
}

func (e *HTTPError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}
