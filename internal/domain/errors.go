package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrEmptySelection      = errors.New("no contacts selected")
	ErrTemplateTooLarge    = errors.New("template is too large")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrNoMatchingBatch     = errors.New("no dispatched batch matches the report")
	ErrInvalidTransition   = errors.New("invalid batch state transition")
	// ErrDispatchUnconfirmed means the dispatcher may hold the batch, so its spend stands.
	ErrDispatchUnconfirmed = errors.New("dispatch outcome unknown")
)

// InsufficientCreditsError is returned when a reservation exceeds the balance.
// It is recoverable: the caller may earn credits and reserve again.
type InsufficientCreditsError struct {
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", e.Required, e.Available)
}

type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %v not found", e.Entity, e.ID)
}

func NewNotFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// BatchError attaches the batch id to an error raised while sending it.
type BatchError struct {
	BatchID string
	Err     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %s: %v", e.BatchID, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
