// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrStageNotFound indicates a stage was not found by the given identifier.
	ErrStageNotFound = errors.New("stage not found")

	// ErrDocumentNotFound indicates a document was not found by the given identifier.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrUserNotFound indicates a user was not found by id, user name or access token.
	ErrUserNotFound = errors.New("user not found")

	// ErrRoleNotFound indicates a role was not found by the given identifier.
	ErrRoleNotFound = errors.New("role not found")

	// ErrGrantNotFound indicates no grant exists for the requested grantee and target.
	ErrGrantNotFound = errors.New("grant not found")

	// ErrWorkflowNameExists indicates another workflow already uses the name.
	ErrWorkflowNameExists = errors.New("workflow name already exists")

	// ErrDuplicate indicates a user name or role name is already taken.
	ErrDuplicate = errors.New("duplicate entity")

	// ErrConflict indicates a concurrent write violated a uniqueness constraint
	// (stage sequence or grant key). The transaction may be retried.
	ErrConflict = errors.New("concurrent modification conflict")
)

// EntityError wraps entity-related errors with additional context.
type EntityError struct {
	Op     string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	Entity string // Entity kind (workflow, stage, document, user, role, grant)
	ID     string // Entity ID if applicable
	Err    error  // Underlying error
}

func (e *EntityError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s operation failed for %s: %v", e.Op, e.Entity, e.Err)
	}

	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for entity errors.
func (e *EntityError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewEntityError creates a new entity error with context.
func NewEntityError(op, entity, id string, err error) *EntityError {
	return &EntityError{
		Op:     op,
		Entity: entity,
		ID:     id,
		Err:    err,
	}
}

// IsNotFound checks if an error indicates any referenced entity was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrStageNotFound) ||
		errors.Is(err, ErrDocumentNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrRoleNotFound) ||
		errors.Is(err, ErrGrantNotFound)
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsStageNotFound checks if an error indicates a stage was not found.
func IsStageNotFound(err error) bool {
	return errors.Is(err, ErrStageNotFound)
}

// IsDocumentNotFound checks if an error indicates a document was not found.
func IsDocumentNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound)
}

// IsUserNotFound checks if an error indicates a user was not found.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsRoleNotFound checks if an error indicates a role was not found.
func IsRoleNotFound(err error) bool {
	return errors.Is(err, ErrRoleNotFound)
}

// IsGrantNotFound checks if an error indicates a grant was not found.
func IsGrantNotFound(err error) bool {
	return errors.Is(err, ErrGrantNotFound)
}

// IsConflict checks if an error is a retryable uniqueness race.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
