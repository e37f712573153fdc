package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// NetworkError is a failed call to the governance API: either a non-2xx
// response (Status set) or a transport failure (Status 0, Err set).
type NetworkError struct {
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
	URL        string `json:"url"`
	Err        error  `json:"-"`
}

func (e *NetworkError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("%d %s (%s)", e.Status, e.StatusText, e.URL)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPStatus returns the status the gateway answers with for this error.
func (e *NetworkError) HTTPStatus() int {
	if e.Status >= 400 {
		return e.Status
	}
	return http.StatusBadGateway
}

// AsNetworkError checks if an error is a NetworkError and returns it.
func AsNetworkError(err error) (*NetworkError, bool) {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne, true
	}
	return nil, false
}
