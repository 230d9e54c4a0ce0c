package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrExternalAPIFailure = errors.New("external API failure")
	ErrNoWeatherData      = errors.New("no weather data available for this event")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// UpstreamError reports a non-2xx provider response.
type UpstreamError struct {
	Connector  string
	Operation  string
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s failed: status %d", e.Connector, e.Operation, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error {
	return ErrExternalAPIFailure
}
