package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/persistence"
	"github.com/google/uuid"
)

const documentColumns = `
			id
		  , name
		  , description
		  , content
		  , comments
		  , creator_id
		  , workflow_id
		  , stage_id
		  , google_doc_id
		  , created_at
		  , updated_at
`

// DocumentRepository handles document-related database operations.
type DocumentRepository struct {
	db     querier
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(db querier, logger *slog.Logger) *DocumentRepository {
	return &DocumentRepository{db: db, logger: logger}
}

// GetByID returns a document or persistence.ErrDocumentNotFound.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	document, err := r.scanDocument(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("GetByID", "document", id, persistence.ErrDocumentNotFound)
		}

		return nil, fmt.Errorf("failed to scan document: %w", err)
	}

	return document, nil
}

// List returns documents matching the filter, oldest first.
func (r *DocumentRepository) List(ctx context.Context, filter persistence.DocumentFilter) ([]*models.Document, error) {
	var (
		conditions []string
		args       []any
	)

	if filter.WorkflowID != "" {
		args = append(args, filter.WorkflowID)
		conditions = append(conditions, "workflow_id = $"+strconv.Itoa(len(args)))
	}

	if filter.StageID != "" {
		args = append(args, filter.StageID)
		conditions = append(conditions, "stage_id = $"+strconv.Itoa(len(args)))
	}

	if filter.Orphaned {
		conditions = append(conditions, "stage_id IS NULL")
	}

	query := `SELECT ` + documentColumns + ` FROM documents`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	documents := make([]*models.Document, 0)

	for rows.Next() {
		document, err := r.scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		documents = append(documents, document)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return documents, nil
}

// Create inserts a new document.
func (r *DocumentRepository) Create(ctx context.Context, document *models.Document) error {
	now := time.Now().UTC()

	if document.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate document ID: %w", err)
		}

		document.ID = id.String()
	}

	if document.CreatedAt.IsZero() {
		document.CreatedAt = now
	}

	document.UpdatedAt = now

	query := `
		INSERT INTO documents (id, name, description, content, comments, creator_id, workflow_id, stage_id,
			google_doc_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		document.ID,
		document.Name,
		document.Description,
		document.Content,
		document.Comments,
		nullString(document.CreatorID),
		nullStringPtr(document.WorkflowID),
		nullStringPtr(document.StageID),
		document.GoogleDocID,
		document.CreatedAt,
		document.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	return nil
}

// Save updates every mutable column of a document, including its placement.
func (r *DocumentRepository) Save(ctx context.Context, document *models.Document) error {
	document.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE documents
		SET name = $2, description = $3, content = $4, comments = $5, workflow_id = $6, stage_id = $7,
			google_doc_id = $8, updated_at = $9
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		document.ID,
		document.Name,
		document.Description,
		document.Content,
		document.Comments,
		nullStringPtr(document.WorkflowID),
		nullStringPtr(document.StageID),
		document.GoogleDocID,
		document.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	return expectOne(result, persistence.NewEntityError("Save", "document", document.ID, persistence.ErrDocumentNotFound))
}

// Delete removes a document.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	return expectOne(result, persistence.NewEntityError("Delete", "document", id, persistence.ErrDocumentNotFound))
}

// SetGoogleDocID stores the id of the exported Google Doc without touching placement or content.
func (r *DocumentRepository) SetGoogleDocID(ctx context.Context, id, googleDocID string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE documents SET google_doc_id = $2 WHERE id = $1`, id, googleDocID)
	if err != nil {
		return fmt.Errorf("failed to update google doc id: %w", err)
	}

	return expectOne(result, persistence.NewEntityError("SetGoogleDocID", "document", id, persistence.ErrDocumentNotFound))
}

// ClearStage orphans the documents held by a stage.
func (r *DocumentRepository) ClearStage(ctx context.Context, stageID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE documents SET stage_id = NULL, workflow_id = NULL, updated_at = NOW() WHERE stage_id = $1`,
		stageID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear document stage: %w", err)
	}

	return nil
}

// ClearWorkflow orphans every document of a workflow, staged or not.
func (r *DocumentRepository) ClearWorkflow(ctx context.Context, workflowID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE documents
		 SET stage_id = NULL, workflow_id = NULL, updated_at = NOW()
		 WHERE workflow_id = $1 OR stage_id IN (SELECT id FROM stages WHERE workflow_id = $1)`,
		workflowID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear document workflow: %w", err)
	}

	return nil
}

func (r *DocumentRepository) scanDocument(scanner interface {
	Scan(dest ...any) error
}) (*models.Document, error) {
	var (
		document                        models.Document
		creatorID, workflowID, stageID sql.NullString
	)

	err := scanner.Scan(
		&document.ID,
		&document.Name,
		&document.Description,
		&document.Content,
		&document.Comments,
		&creatorID,
		&workflowID,
		&stageID,
		&document.GoogleDocID,
		&document.CreatedAt,
		&document.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	document.CreatorID = creatorID.String
	document.WorkflowID = stringPtr(workflowID)
	document.StageID = stringPtr(stageID)

	return &document, nil
}
