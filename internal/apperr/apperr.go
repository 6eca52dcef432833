// Package apperr defines the error kinds the service layer reports.
// Handlers map them to HTTP statuses; services never import net/http.
package apperr

import "fmt"

// NotFoundError: a referenced entity id does not exist.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string { return "Không tìm thấy " + e.Entity }

func NotFound(entity string) error { return &NotFoundError{Entity: entity} }

// ValidationError: structurally invalid input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validation(msg string) error { return &ValidationError{Msg: msg} }

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError: valid input that violates a state invariant
// (wrong status for a transition, percentage overflow, duplicate debt, ...).
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func Conflict(msg string) error { return &ConflictError{Msg: msg} }

func Conflictf(format string, args ...any) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// DependencyError: an external collaborator (notification sink, file storage)
// failed. It must never abort the primary mutation; callers log it and carry on.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *DependencyError) Unwrap() error { return e.Err }

func Dependency(op string, err error) error { return &DependencyError{Op: op, Err: err} }
