package domain

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyMessage    = errors.New("message text is required")
)

// ConfigurationError reports a required setting that is missing or invalid.
// It is fatal: the process must stop before serving any chat.
type ConfigurationError struct {
	Key     string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Key, e.Message)
}

// ProviderError wraps any failure of a generation call. Code uses the
// canonical Google API status vocabulary.
type ProviderError struct {
	Code    codes.Code
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (%s): %s", e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// AsProviderError reports whether err carries a ProviderError and returns it.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
