package openweather

import (
	"errors"
	"fmt"
)

// ErrEmptyEndpoint is returned when a request is issued without an endpoint.
var ErrEmptyEndpoint = errors.New("openweather endpoint is empty")

// APIError represents a non-200 reply from the OpenWeather API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openweather API returned status %d: %s", e.StatusCode, e.Message)
}
