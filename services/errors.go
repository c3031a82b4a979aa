package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies service failures for transport mapping.
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindNotFound
	KindConflict
	KindStorage
	KindUnauthorized
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindStorage:
		return "STORAGE"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	default:
		return "UNKNOWN"
	}
}

// Sentinels for errors.Is checks against a *CatalogError of the same kind.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrStorage      = errors.New("storage error")
	ErrUnauthorized = errors.New("unauthorized")
)

var sentinels = map[ErrorKind]error{
	KindValidation:   ErrValidation,
	KindNotFound:     ErrNotFound,
	KindConflict:     ErrConflict,
	KindStorage:      ErrStorage,
	KindUnauthorized: ErrUnauthorized,
}

// CatalogError is the single error type returned by the services.
// Message is safe to show to clients; Err carries the cause.
type CatalogError struct {
	Kind    ErrorKind
	Message string
	Field   string
	Err     error
}

func (e *CatalogError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CatalogError) Unwrap() error { return e.Err }

func (e *CatalogError) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func NewValidationError(field, message string) *CatalogError {
	return &CatalogError{Kind: KindValidation, Field: field, Message: message}
}

func NewNotFound(message string) *CatalogError {
	return &CatalogError{Kind: KindNotFound, Message: message}
}

func NewConflict(message string) *CatalogError {
	return &CatalogError{Kind: KindConflict, Message: message}
}

func NewStorageError(message string, err error) *CatalogError {
	return &CatalogError{Kind: KindStorage, Message: message, Err: err}
}

func NewUnauthorized(message string) *CatalogError {
	return &CatalogError{Kind: KindUnauthorized, Message: message}
}

// KindOf returns the kind of err, treating foreign errors as storage failures.
func KindOf(err error) ErrorKind {
	var ce *CatalogError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindStorage
}
