package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/otelhelper"
	"github.com/dukex/newsroom/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StagePatch carries a partial update. Empty fields and a nil trigger are left unchanged.
type StagePatch struct {
	Name        string
	Description string
	Trigger     *models.Trigger
}

type Stage struct {
	persistence persistence.Persistence
	permissions *PermissionResolver
	allocator   *SequenceAllocator
	triggers    TriggerValidator
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewStage creates a new stage service. triggers may be nil, in which case stages cannot
// carry triggers.
func NewStage(
	store persistence.Persistence,
	permissions *PermissionResolver,
	allocator *SequenceAllocator,
	triggers TriggerValidator,
	logger *slog.Logger,
) *Stage {
	return &Stage{
		persistence: store,
		permissions: permissions,
		allocator:   allocator,
		triggers:    triggers,
		tracer:      otelhelper.Tracer(tracerName),
		logger:      logger.With("module", "stage_service"),
	}
}

// ListByWorkflow returns the stages of an existing workflow in sequence order.
func (s *Stage) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Stage, error) {
	_, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return s.persistence.StageRepository().FindByWorkflow(ctx, workflowID)
}

func (s *Stage) FetchByID(ctx context.Context, id string) (*models.Stage, error) {
	return s.persistence.StageRepository().GetByID(ctx, id)
}

// Create adds a stage to a workflow, at the end when position is nil or at *position
// otherwise. Requires WRITE on the workflow. The creator gets WRITE on the new stage.
func (s *Stage) Create(
	ctx context.Context,
	user *models.User,
	workflowID string,
	stage *models.Stage,
	position *int,
) (_ *models.Stage, err error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "stage.create", attribute.String(otelhelper.WorkflowIDKey, workflowID))
	defer func() { endSpan(span, err) }()

	err = requireUser("Create", user)
	if err != nil {
		return nil, err
	}

	if position != nil {
		span.SetAttributes(attribute.Int(otelhelper.PositionKey, *position))

		err = ValidatePosition("Create", *position)
		if err != nil {
			return nil, err
		}
	}

	err = s.validateTrigger("Create", stage.Trigger)
	if err != nil {
		return nil, err
	}

	created := &models.Stage{
		WorkflowID:  workflowID,
		Name:        stage.Name,
		Description: stage.Description,
		CreatorID:   user.ID,
		Trigger:     stage.Trigger,
	}

	// The sequence id is allocated inside the transaction.
	err = validateModel("Create", created, "SequenceID")
	if err != nil {
		return nil, err
	}

	err = transact(ctx, s.persistence, s.logger, "stage.create", func(ctx context.Context, repos persistence.Repositories) error {
		stages, err := repos.StageRepository().LockByWorkflow(ctx, workflowID)
		if err != nil {
			return err
		}

		err = s.permissions.CheckWrite(ctx, repos, user, models.WorkflowTarget(workflowID), "Create")
		if err != nil {
			return err
		}

		if position == nil {
			created.SequenceID = s.allocator.Append(stages)
		} else {
			created.SequenceID, err = s.allocator.InsertAt(ctx, repos, stages, *position)
			if err != nil {
				return err
			}
		}

		created.ID = ""

		err = repos.StageRepository().Create(ctx, created)
		if err != nil {
			return err
		}

		return grantCreator(ctx, repos, user, models.StageTarget(created.ID))
	})
	if err != nil {
		return nil, err
	}

	s.permissions.Invalidate(ctx)
	span.SetAttributes(attribute.String(otelhelper.StageIDKey, created.ID))

	return created, nil
}

// Update applies the non-empty fields of patch. Requires WRITE on the stage.
func (s *Stage) Update(ctx context.Context, user *models.User, id string, patch StagePatch) (_ *models.Stage, err error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "stage.update", attribute.String(otelhelper.StageIDKey, id))
	defer func() { endSpan(span, err) }()

	err = requireUser("Update", user)
	if err != nil {
		return nil, err
	}

	err = validatePatch("Update", patch.Name, patch.Description)
	if err != nil {
		return nil, err
	}

	err = s.validateTrigger("Update", patch.Trigger)
	if err != nil {
		return nil, err
	}

	var updated *models.Stage

	err = transact(ctx, s.persistence, s.logger, "stage.update", func(ctx context.Context, repos persistence.Repositories) error {
		stage, err := repos.StageRepository().GetByID(ctx, id)
		if err != nil {
			return err
		}

		err = s.permissions.CheckWrite(ctx, repos, user, models.StageTarget(id), "Update")
		if err != nil {
			return err
		}

		if patch.Name != "" {
			stage.Name = patch.Name
		}

		if patch.Description != "" {
			stage.Description = patch.Description
		}

		if patch.Trigger != nil {
			stage.Trigger = patch.Trigger
		}

		err = repos.StageRepository().Save(ctx, stage)
		if err != nil {
			return err
		}

		updated = stage

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete removes a stage, orphans its documents and closes the gap in the workflow's
// sequence. Requires WRITE on the stage.
func (s *Stage) Delete(ctx context.Context, user *models.User, id string) (err error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "stage.delete", attribute.String(otelhelper.StageIDKey, id))
	defer func() { endSpan(span, err) }()

	err = requireUser("Delete", user)
	if err != nil {
		return err
	}

	err = transact(ctx, s.persistence, s.logger, "stage.delete", func(ctx context.Context, repos persistence.Repositories) error {
		stage, err := repos.StageRepository().GetByID(ctx, id)
		if err != nil {
			return err
		}

		err = s.permissions.CheckWrite(ctx, repos, user, models.StageTarget(id), "Delete")
		if err != nil {
			return err
		}

		stages, err := repos.StageRepository().LockByWorkflow(ctx, stage.WorkflowID)
		if err != nil {
			return err
		}

		locked := findStage(stages, id)
		if locked == nil {
			return persistence.NewEntityError("Delete", "stage", id, persistence.ErrStageNotFound)
		}

		err = onStageDeleted(ctx, repos, id)
		if err != nil {
			return err
		}

		return s.allocator.DeleteAndReflow(ctx, repos, stages, locked)
	})
	if err != nil {
		return err
	}

	s.permissions.Invalidate(ctx)

	return nil
}

// Move changes the position of a stage inside its workflow. Requires WRITE on the
// workflow, since the order is part of the workflow's structure.
func (s *Stage) Move(ctx context.Context, user *models.User, id string, position int) (_ *models.Stage, err error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "stage.move",
		attribute.String(otelhelper.StageIDKey, id),
		attribute.Int(otelhelper.PositionKey, position),
	)
	defer func() { endSpan(span, err) }()

	err = requireUser("Move", user)
	if err != nil {
		return nil, err
	}

	err = ValidatePosition("Move", position)
	if err != nil {
		return nil, err
	}

	var moved *models.Stage

	err = transact(ctx, s.persistence, s.logger, "stage.move", func(ctx context.Context, repos persistence.Repositories) error {
		stage, err := repos.StageRepository().GetByID(ctx, id)
		if err != nil {
			return err
		}

		stages, err := repos.StageRepository().LockByWorkflow(ctx, stage.WorkflowID)
		if err != nil {
			return err
		}

		err = s.permissions.CheckWrite(ctx, repos, user, models.WorkflowTarget(stage.WorkflowID), "Move")
		if err != nil {
			return err
		}

		locked := findStage(stages, id)
		if locked == nil {
			return persistence.NewEntityError("Move", "stage", id, persistence.ErrStageNotFound)
		}

		err = s.allocator.Move(ctx, repos, stages, locked, position)
		if err != nil {
			return err
		}

		moved, err = repos.StageRepository().GetByID(ctx, id)

		return err
	})
	if err != nil {
		return nil, err
	}

	return moved, nil
}

func (s *Stage) validateTrigger(op string, trigger *models.Trigger) error {
	if trigger == nil {
		return nil
	}

	if s.triggers == nil {
		return NewValidationError(op, "unsupported_trigger", "stage triggers are not enabled", ErrUnsupportedTrigger)
	}

	err := s.triggers.Validate(trigger)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// onStageDeleted detaches everything that points at a stage before the stage row goes:
// its documents become orphans and its grants are dropped.
func onStageDeleted(ctx context.Context, repos persistence.Repositories, stageID string) error {
	err := repos.DocumentRepository().ClearStage(ctx, stageID)
	if err != nil {
		return err
	}

	return repos.PermissionRepository().DeleteByTarget(ctx, models.StageTarget(stageID))
}

func findStage(stages []*models.Stage, id string) *models.Stage {
	for _, stage := range stages {
		if stage.ID == id {
			return stage
		}
	}

	return nil
}
