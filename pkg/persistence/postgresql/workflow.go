package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/persistence"
	"github.com/google/uuid"
)

const workflowColumns = `
			id
		  , name
		  , description
		  , creator_id
		  , created_at
		  , updated_at
`

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     querier
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db querier, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// List returns all workflows ordered by name.
func (r *WorkflowRepository) List(ctx context.Context) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

// GetByID returns a workflow or persistence.ErrWorkflowNotFound.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`

	return r.getOne(ctx, "GetByID", id, query, id)
}

// GetByName returns the workflow with the given name or persistence.ErrWorkflowNotFound.
func (r *WorkflowRepository) GetByName(ctx context.Context, name string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE name = $1`

	return r.getOne(ctx, "GetByName", name, query, name)
}

func (r *WorkflowRepository) getOne(ctx context.Context, op, key, query string, args ...any) (*models.Workflow, error) {
	workflow, err := r.scanWorkflow(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError(op, "workflow", key, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

// Create inserts a new workflow, generating its ID and timestamps when missing.
func (r *WorkflowRepository) Create(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	query := `
		INSERT INTO workflows (id, name, description, creator_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.Description,
		nullString(workflow.CreatorID),
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return translateError(fmt.Errorf("failed to insert workflow: %w", err))
	}

	return nil
}

// Save updates the mutable fields of an existing workflow.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	workflow.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE workflows
		SET name = $2, description = $3, updated_at = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.Description,
		workflow.UpdatedAt,
	)
	if err != nil {
		return translateError(fmt.Errorf("failed to update workflow: %w", err))
	}

	return expectOne(result, persistence.NewEntityError("Save", "workflow", workflow.ID, persistence.ErrWorkflowNotFound))
}

// Delete removes a workflow row. Its stages must already be gone.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return expectOne(result, persistence.NewEntityError("Delete", "workflow", id, persistence.ErrWorkflowNotFound))
}

func (r *WorkflowRepository) scanWorkflow(scanner interface {
	Scan(dest ...any) error
}) (*models.Workflow, error) {
	var (
		workflow  models.Workflow
		creatorID sql.NullString
	)

	err := scanner.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&creatorID,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.CreatorID = creatorID.String

	return &workflow, nil
}

// nullString stores empty identifiers as NULL so optional foreign keys stay valid.
func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullStringPtr(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}

	return nullString(*value)
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}

	return &value.String
}
