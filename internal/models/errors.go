package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrInvalidRubric        = errors.New("invalid rubric")
	ErrCriterionMismatch    = errors.New("criterion does not belong to rubric")
	ErrIncompleteEvaluation = errors.New("evaluation is incomplete")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrCapacityExceeded     = errors.New("session capacity exceeded")
	ErrRoleMismatch         = errors.New("profile role mismatch")

	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrRubricInUse  = errors.New("rubric is referenced by an active session")
)

// FieldError is used to indicate an error with a specific field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type ValidationError struct {
	Message string
	Fields  []FieldError
}

func NewValidationError(msg string, fields ...FieldError) error {
	return &ValidationError{Message: msg, Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Error)
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// IncompleteEvaluationError lists the criteria that still have no selected level.
type IncompleteEvaluationError struct {
	Missing []string
}

func (e *IncompleteEvaluationError) Error() string {
	return fmt.Sprintf("%s: %d criteria without a selected level", ErrIncompleteEvaluation, len(e.Missing))
}

func (e *IncompleteEvaluationError) Is(target error) bool { return target == ErrIncompleteEvaluation }

type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s cannot go from %q to %q", ErrInvalidTransition, e.Entity, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// CollaboratorError wraps a failure reported by the database, object storage,
// message broker or identity backend.
type CollaboratorError struct {
	Op  string
	Err error
}

func NewCollaboratorError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CollaboratorError{Op: op, Err: err}
}

func (e *CollaboratorError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

func IsCollaboratorError(err error) bool {
	var ce *CollaboratorError
	return errors.As(err, &ce)
}
