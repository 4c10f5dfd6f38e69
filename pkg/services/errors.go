// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest        = errors.New("invalid request")
	ErrNameRequired          = errors.New("name is required")
	ErrNameTooLong           = errors.New("name is too long")
	ErrDescriptionTooLong    = errors.New("description is too long")
	ErrInvalidPosition       = errors.New("position must be a positive integer")
	ErrPositionOutOfBounds   = errors.New("position is out of bounds")
	ErrUnsupportedTrigger    = errors.New("unsupported trigger type")
	ErrInvalidTriggerConfig  = errors.New("invalid trigger configuration")
	ErrInvalidAccessLevel    = errors.New("invalid access level")
	ErrStageWorkflowMismatch = errors.New("stage does not belong to the workflow")
	ErrDocumentNotStaged     = errors.New("document is not in a stage")

	// Authorization Errors (401/403).
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("insufficient permissions")

	// Business Logic Conflicts (409 Conflict).
	ErrWorkflowNameTaken = errors.New("workflow name already taken")
	ErrDuplicate         = errors.New("already exists")
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

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrNameTooLong) ||
		errors.Is(err, ErrDescriptionTooLong) ||
		errors.Is(err, ErrInvalidPosition) ||
		errors.Is(err, ErrPositionOutOfBounds) ||
		errors.Is(err, ErrUnsupportedTrigger) ||
		errors.Is(err, ErrInvalidTriggerConfig) ||
		errors.Is(err, ErrInvalidAccessLevel) ||
		errors.Is(err, ErrStageWorkflowMismatch) ||
		errors.Is(err, ErrDocumentNotStaged)
}

// IsOutOfBounds reports a position past the end of the stage list.
func IsOutOfBounds(err error) bool {
	return errors.Is(err, ErrPositionOutOfBounds)
}

// IsUnauthenticatedError checks if an error should return HTTP 401.
func IsUnauthenticatedError(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

// IsForbiddenError checks if an error should return HTTP 403.
func IsForbiddenError(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrWorkflowNameTaken) ||
		errors.Is(err, ErrDuplicate)
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

// NewForbiddenError reports that the acting user lacks WRITE on the target.
func NewForbiddenError(op, target string) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    "forbidden",
		Message: "write access required on " + target,
		Err:     ErrForbidden,
	}
}
