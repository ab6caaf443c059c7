// Package apierrors defines the typed errors services hand to the API
// layer. Each error carries the HTTP status it maps to so handlers can
// translate failures in one place.
package apierrors

import (
	"fmt"
	"net/http"
)

// Kind classifies an API error.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
)

// APIError is an error with a caller-facing message and HTTP status.
type APIError struct {
	Kind       Kind
	HTTPStatus int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewValidation reports bad or missing input.
func NewValidation(msg string) *APIError {
	return &APIError{Kind: KindValidation, HTTPStatus: http.StatusBadRequest, Message: msg}
}

// NewValidationf reports bad or missing input with a formatted message.
func NewValidationf(format string, args ...any) *APIError {
	return NewValidation(fmt.Sprintf(format, args...))
}

// NewErrInvalidCredentials reports a failed password comparison.
func NewErrInvalidCredentials() *APIError {
	return &APIError{Kind: KindInvalidCredentials, HTTPStatus: http.StatusUnauthorized, Message: "invalid credentials"}
}

// NewErrUserNotFound reports that no user matches the given reference.
func NewErrUserNotFound(ref string) *APIError {
	return &APIError{Kind: KindNotFound, HTTPStatus: http.StatusNotFound, Message: fmt.Sprintf("user %s not found", ref)}
}

// NewErrConversationNotFound reports that no conversation matches the id.
func NewErrConversationNotFound(id string) *APIError {
	return &APIError{Kind: KindNotFound, HTTPStatus: http.StatusNotFound, Message: fmt.Sprintf("conversation %s not found", id)}
}

// NewErrEmailTaken reports a uniqueness conflict on user creation.
func NewErrEmailTaken(email string) *APIError {
	return &APIError{Kind: KindConflict, HTTPStatus: http.StatusConflict, Message: fmt.Sprintf("email %s is already taken", email)}
}
