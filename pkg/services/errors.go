// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/moogar0880/problems"
	"github.com/science-periodicals/librarian-sub000/pkg/lock"
	"github.com/science-periodicals/librarian-sub000/pkg/persistence"
	"github.com/science-periodicals/librarian-sub000/pkg/workflow"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest   = errors.New("invalid request")
	ErrNotAssessAction  = errors.New("action is not an AssessAction")
	ErrInvalidResult    = errors.New("result is not a potential result of the assessment")
	ErrUnexpectedResult = errors.New("potential result is neither a stage nor a rejection")
	ErrNotReleaseAction = errors.New("action is not a CreateReleaseAction")

	// Business Logic Conflicts (409 Conflict).
	ErrAlreadyAssessed = errors.New("assessment already completed with another result")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrNotAssessAction) ||
		errors.Is(err, ErrInvalidResult) ||
		errors.Is(err, ErrUnexpectedResult) ||
		errors.Is(err, ErrNotReleaseAction) ||
		errors.Is(err, workflow.ErrInvalidSpecification) ||
		errors.Is(err, workflow.ErrTemplateNotFound)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrAlreadyAssessed) || persistence.IsConflict(err)
}

// IsContentionError checks if an error is lock contention that should return HTTP 423.
// The caller may retry after a backoff.
func IsContentionError(err error) bool {
	return lock.IsLocked(err)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return persistence.IsNotFound(err)
}

// Problem maps err to an RFC 7807 problem document about instance.
func Problem(err error, instance string) *problems.Problem {
	var (
		status int
		kind   string
	)

	switch {
	case IsValidationError(err):
		status, kind = http.StatusBadRequest, "validation_error"
	case IsNotFoundError(err):
		status, kind = http.StatusNotFound, "not_found"
	case IsContentionError(err):
		status, kind = http.StatusLocked, "locked"
	case IsConflictError(err):
		status, kind = http.StatusConflict, "conflict"
	default:
		return problems.NewStatusProblem(http.StatusInternalServerError).
			WithInstance(instance).
			WithType("internal_error").
			WithError(err)
	}

	return problems.NewStatusProblem(status).
		WithInstance(instance).
		WithType(kind).
		WithDetail(err.Error())
}
