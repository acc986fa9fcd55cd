package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ErrorKind classifies workflow failures
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindConflict        ErrorKind = "conflict"
	KindPrecondition    ErrorKind = "precondition"
	KindInvalidDocument ErrorKind = "invalid_document"
	KindProofRequired   ErrorKind = "proof_required"
	KindNotFound        ErrorKind = "not_found"
	KindForbidden       ErrorKind = "forbidden"
)

// WorkflowError is returned by every workflow operation that fails for a reason the caller can act on.
// Details carries per-field information for validation failures.
type WorkflowError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Details map[string]string
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on Kind, and on Code as well when the target sets one
func (e *WorkflowError) Is(target error) bool {
	t, ok := target.(*WorkflowError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// Sentinels for errors.Is
var (
	ErrValidation      = &WorkflowError{Kind: KindValidation}
	ErrConflict        = &WorkflowError{Kind: KindConflict}
	ErrPrecondition    = &WorkflowError{Kind: KindPrecondition}
	ErrInvalidDocument = &WorkflowError{Kind: KindInvalidDocument}
	ErrProofRequired   = &WorkflowError{Kind: KindProofRequired}
	ErrNotFound        = &WorkflowError{Kind: KindNotFound}
	ErrForbidden       = &WorkflowError{Kind: KindForbidden}
)

func newValidationError(code, message string, details map[string]string) *WorkflowError {
	return &WorkflowError{Kind: KindValidation, Code: code, Message: message, Details: details}
}

func newConflictError(code, message string) *WorkflowError {
	return &WorkflowError{Kind: KindConflict, Code: code, Message: message}
}

func newPreconditionError(code, message string) *WorkflowError {
	return &WorkflowError{Kind: KindPrecondition, Code: code, Message: message}
}

func newNotFoundError(code, message string) *WorkflowError {
	return &WorkflowError{Kind: KindNotFound, Code: code, Message: message}
}

func newForbiddenError(message string) *WorkflowError {
	return &WorkflowError{Kind: KindForbidden, Code: "FORBIDDEN", Message: message}
}

// isUniqueViolation recognizes unique-constraint failures from both PostgreSQL and SQLite
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
