package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/persistence"
	"github.com/google/uuid"
)

const stageColumns = `
			id
		  , workflow_id
		  , sequence_id
		  , name
		  , description
		  , creator_id
		  , trigger
		  , created_at
		  , updated_at
`

// StageRepository handles stage-related database operations.
type StageRepository struct {
	db     querier
	logger *slog.Logger
}

// NewStageRepository creates a new stage repository.
func NewStageRepository(db querier, logger *slog.Logger) *StageRepository {
	return &StageRepository{db: db, logger: logger}
}

// GetByID returns a stage or persistence.ErrStageNotFound.
func (r *StageRepository) GetByID(ctx context.Context, id string) (*models.Stage, error) {
	query := `SELECT ` + stageColumns + ` FROM stages WHERE id = $1`

	stage, err := r.scanStage(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("GetByID", "stage", id, persistence.ErrStageNotFound)
		}

		return nil, fmt.Errorf("failed to scan stage: %w", err)
	}

	return stage, nil
}

// FindByWorkflow returns the stages of a workflow ordered by sequence id.
func (r *StageRepository) FindByWorkflow(ctx context.Context, workflowID string) ([]*models.Stage, error) {
	query := `SELECT ` + stageColumns + ` FROM stages WHERE workflow_id = $1 ORDER BY sequence_id`

	return r.queryStages(ctx, query, workflowID)
}

// LockByWorkflow locks the workflow row, which serializes every sequence mutation on the
// workflow, and then the stage rows themselves.
func (r *StageRepository) LockByWorkflow(ctx context.Context, workflowID string) ([]*models.Stage, error) {
	var id string

	err := r.db.QueryRowContext(ctx, `SELECT id FROM workflows WHERE id = $1 FOR UPDATE`, workflowID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("LockByWorkflow", "workflow", workflowID, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to lock workflow: %w", err)
	}

	query := `SELECT ` + stageColumns + ` FROM stages WHERE workflow_id = $1 ORDER BY sequence_id FOR UPDATE`

	return r.queryStages(ctx, query, workflowID)
}

func (r *StageRepository) queryStages(ctx context.Context, query string, args ...any) ([]*models.Stage, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stages: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	stages := make([]*models.Stage, 0)

	for rows.Next() {
		stage, err := r.scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}

		stages = append(stages, stage)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating stages: %w", err)
	}

	return stages, nil
}

// Create inserts a stage with the sequence id already assigned by the allocator.
func (r *StageRepository) Create(ctx context.Context, stage *models.Stage) error {
	now := time.Now().UTC()

	if stage.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate stage ID: %w", err)
		}

		stage.ID = id.String()
	}

	if stage.CreatedAt.IsZero() {
		stage.CreatedAt = now
	}

	stage.UpdatedAt = now

	triggerJSON, err := marshalTrigger(stage.Trigger)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO stages (id, workflow_id, sequence_id, name, description, creator_id, trigger, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		stage.ID,
		stage.WorkflowID,
		stage.SequenceID,
		stage.Name,
		stage.Description,
		nullString(stage.CreatorID),
		triggerJSON,
		stage.CreatedAt,
		stage.UpdatedAt,
	)
	if err != nil {
		return translateError(fmt.Errorf("failed to insert stage: %w", err))
	}

	return nil
}

// Save updates name, description and trigger. Sequence ids only change through
// UpdateSequenceID.
func (r *StageRepository) Save(ctx context.Context, stage *models.Stage) error {
	stage.UpdatedAt = time.Now().UTC()

	triggerJSON, err := marshalTrigger(stage.Trigger)
	if err != nil {
		return err
	}

	query := `
		UPDATE stages
		SET name = $2, description = $3, trigger = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		stage.ID,
		stage.Name,
		stage.Description,
		triggerJSON,
		stage.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update stage: %w", err)
	}

	return expectOne(result, persistence.NewEntityError("Save", "stage", stage.ID, persistence.ErrStageNotFound))
}

// UpdateSequenceID moves one stage to a new position.
func (r *StageRepository) UpdateSequenceID(ctx context.Context, id string, sequenceID int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE stages SET sequence_id = $2, updated_at = NOW() WHERE id = $1`,
		id, sequenceID,
	)
	if err != nil {
		return translateError(fmt.Errorf("failed to update stage sequence: %w", err))
	}

	return expectOne(result, persistence.NewEntityError("UpdateSequenceID", "stage", id, persistence.ErrStageNotFound))
}

// Delete removes a single stage row.
func (r *StageRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM stages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete stage: %w", err)
	}

	return expectOne(result, persistence.NewEntityError("Delete", "stage", id, persistence.ErrStageNotFound))
}

// DeleteByWorkflow removes every stage of a workflow without renumbering.
func (r *StageRepository) DeleteByWorkflow(ctx context.Context, workflowID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM stages WHERE workflow_id = $1`, workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow stages: %w", err)
	}

	return nil
}

func (r *StageRepository) scanStage(scanner interface {
	Scan(dest ...any) error
}) (*models.Stage, error) {
	var (
		stage       models.Stage
		creatorID   sql.NullString
		triggerJSON []byte
	)

	err := scanner.Scan(
		&stage.ID,
		&stage.WorkflowID,
		&stage.SequenceID,
		&stage.Name,
		&stage.Description,
		&creatorID,
		&triggerJSON,
		&stage.CreatedAt,
		&stage.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	stage.CreatorID = creatorID.String

	if triggerJSON != nil {
		err := json.Unmarshal(triggerJSON, &stage.Trigger)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger: %w", err)
		}
	}

	return &stage, nil
}

func marshalTrigger(trigger *models.Trigger) ([]byte, error) {
	if trigger == nil {
		return nil, nil
	}

	data, err := json.Marshal(trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal trigger: %w", err)
	}

	return data, nil
}
