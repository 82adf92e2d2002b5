package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nimasrn/lead-crm/internal/model"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrConflict          = errors.New("lead already exists")
	ErrNotFound          = errors.New("lead not found")
	ErrIllegalTransition = errors.New("illegal state transition")
	ErrStorage           = errors.New("storage error")
	// ErrConcurrentUpdate is wrapped in a StorageError when a transition
	// keeps losing the race against other writers.
	ErrConcurrentUpdate = errors.New("lead kept changing concurrently")
)

var (
	ErrInvalidState   = &ValidationError{Field: "state", Message: "unknown state"}
	ErrInvalidChannel = &ValidationError{Field: "channel", Message: "unknown channel"}
	ErrInvalidID      = &ValidationError{Field: "id", Message: "malformed id"}
)

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeConflict          = "CONFLICT"
	CodeNotFound          = "NOT_FOUND"
	CodeIllegalTransition = "ILLEGAL_TRANSITION"
	CodeStorage           = "STORAGE_ERROR"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is matches ErrValidation and, for the Err* refinements, any
// ValidationError on the same field.
func (e *ValidationError) Is(target error) bool {
	if target == ErrValidation {
		return true
	}
	var t *ValidationError
	if errors.As(target, &t) {
		return t.Field == e.Field
	}
	return false
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func fromFieldError(fe *model.FieldError) error {
	if fe == nil {
		return nil
	}
	return &ValidationError{Field: fe.Field, Message: fe.Message}
}

type ConflictError struct {
	Existing *model.Lead
}

func (e *ConflictError) Error() string {
	if e.Existing == nil {
		return ErrConflict.Error()
	}
	return fmt.Sprintf("lead already exists for handle %q on %s", e.Existing.Handle, e.Existing.Channel)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

type TransitionError struct {
	From    model.LeadState
	To      model.LeadState
	Allowed []model.LeadState
}

func (e *TransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	if len(allowed) == 0 {
		return fmt.Sprintf("cannot move lead from %s to %s: %s is terminal", e.From, e.To, e.From)
	}
	return fmt.Sprintf("cannot move lead from %s to %s, allowed: %s", e.From, e.To, strings.Join(allowed, ", "))
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// Code maps err to its stable API error code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrIllegalTransition):
		return CodeIllegalTransition
	default:
		return CodeStorage
	}
}
