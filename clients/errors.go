package clients

import (
	"errors"
)

var (
	// ErrClientNotFound is returned when the referenced client doesn't exist.
	ErrClientNotFound = errors.New("client not found")

	// ErrInvalidClient is returned when a record fails validation.
	ErrInvalidClient = errors.New("invalid client")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid client: " + e.Field + " " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidClient
}

// IsNotFound reports whether err means the client is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrClientNotFound)
}
