package domain

import (
	"errors"
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindPermission
	KindUnauthorized
)

// ValidationError is a field-scoped rejection of the caller's input. Conflict
// errors (duplicate membership, subscription, ...) share the type and differ
// only by Kind.
type ValidationError struct {
	Field   string
	Code    string
	Message string
	Kind    ErrorKind
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(field, code, message string) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: message, Kind: KindValidation}
}

func NewConflictError(field, code, message string) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: message, Kind: KindConflict}
}

var notFoundErrors = []error{
	ErrRecipeNotFound,
	ErrUserNotFound,
	ErrTagNotFound,
	ErrIngredientNotFound,
	ErrSubscriptionNotFound,
}

var unauthorizedErrors = []error{
	ErrUnauthenticated,
	ErrTokenExpired,
	ErrTokenInvalid,
	ErrInvalidCredentials,
}

// KindOf classifies err for the transport layer.
func KindOf(err error) ErrorKind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return KindNotFound
		}
	}
	for _, target := range unauthorizedErrors {
		if errors.Is(err, target) {
			return KindUnauthorized
		}
	}
	if errors.Is(err, ErrNotRecipeAuthor) {
		return KindPermission
	}
	return KindInternal
}
