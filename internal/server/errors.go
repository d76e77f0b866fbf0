// Package server provides the HTTP dashboard API for strategy generation and history.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/markitup/internal/rendering"
	"github.com/jonathan/markitup/internal/types"
)

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid username or password"
}

// ErrAuthNotConfigured indicates the dashboard has no token signing secret or password
type ErrAuthNotConfigured struct{}

func (e *ErrAuthNotConfigured) Error() string {
	return "authentication is not configured"
}

// ErrDocumentNotFound indicates a strategy document was not found
type ErrDocumentNotFound struct {
	ID uuid.UUID
}

func (e *ErrDocumentNotFound) Error() string {
	return fmt.Sprintf("strategy document not found: %s", e.ID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, types.ErrCustomized):
		return http.StatusConflict
	case errors.Is(err, types.ErrEmptySections), errors.Is(err, types.ErrInvalidSectionKey):
		return http.StatusBadRequest
	}

	var formatErr *rendering.FormatError
	var parseErr *rendering.ParseError
	switch {
	case errors.As(err, &formatErr), errors.As(err, &parseErr):
		return http.StatusBadRequest
	}

	switch err.(type) {
	case *ErrInvalidCredentials:
		return http.StatusUnauthorized
	case *ErrAuthNotConfigured:
		return http.StatusServiceUnavailable
	case *ErrDocumentNotFound:
		return http.StatusNotFound
	case *ErrValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
