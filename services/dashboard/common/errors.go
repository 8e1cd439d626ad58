package common

import (
	"errors"
	"fmt"
)

var (
	// Query errors.

	ErrInvalidRange = errors.New("invalid range: from is after to")

	// Threshold configuration errors.

	ErrSensorAlreadyExists = errors.New("sensor already exists")
	ErrSensorNotFound      = errors.New("sensor not found")
	ErrInvalidThreshold    = errors.New("invalid threshold")

	// Document store errors.

	ErrDocumentNotFound  = errors.New("document not found")
	ErrStoreUnavailable  = errors.New("document store unavailable")
	ErrInvalidCollection = errors.New("invalid collection name")
	ErrInvalidDocumentID = errors.New("invalid document id")

	// User directory errors.

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidUser        = errors.New("invalid user")
)

// ParseError records one document field that could not be turned into a reading
type ParseError struct {
	DocumentID string
	Field      string
	Raw        string
}

// Error returns the string representation of the parse error
func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable field %q in document %q: %s", e.Field, e.DocumentID, e.Raw)
}
