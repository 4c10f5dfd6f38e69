package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/otelhelper"
	"github.com/dukex/newsroom/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// WorkflowPatch carries a partial update. Empty fields are left unchanged.
type WorkflowPatch struct {
	Name        string
	Description string
}

type Workflow struct {
	persistence persistence.Persistence
	permissions *PermissionResolver
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(store persistence.Persistence, permissions *PermissionResolver, logger *slog.Logger) *Workflow {
	return &Workflow{
		persistence: store,
		permissions: permissions,
		tracer:      otelhelper.Tracer(tracerName),
		logger:      logger.With("module", "workflow_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns every workflow without its stages.
func (w *Workflow) List(ctx context.Context) ([]*models.Workflow, error) {
	return w.persistence.WorkflowRepository().List(ctx)
}

// FetchByID returns a workflow with its stages in sequence order.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	workflow.Stages, err = w.persistence.StageRepository().FindByWorkflow(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load stages: %w", err)
	}

	return workflow, nil
}

// Create stores a workflow with no stages and gives its creator WRITE on it.
func (w *Workflow) Create(ctx context.Context, user *models.User, workflow *models.Workflow) (_ *models.Workflow, err error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflow.create")
	defer func() { endSpan(span, err) }()

	err = requireUser("Create", user)
	if err != nil {
		return nil, err
	}

	created := &models.Workflow{
		Name:        workflow.Name,
		Description: workflow.Description,
		CreatorID:   user.ID,
	}

	err = validateModel("Create", created)
	if err != nil {
		return nil, err
	}

	err = transact(ctx, w.persistence, w.logger, "workflow.create", func(ctx context.Context, repos persistence.Repositories) error {
		created.ID = ""

		err := repos.WorkflowRepository().Create(ctx, created)
		if err != nil {
			return err
		}

		return grantCreator(ctx, repos, user, models.WorkflowTarget(created.ID))
	})
	if err != nil {
		return nil, translateNameError("Create", err)
	}

	w.permissions.Invalidate(ctx)
	span.SetAttributes(attribute.String(otelhelper.WorkflowIDKey, created.ID))

	created.Stages = []*models.Stage{}

	return created, nil
}

// Update applies the non-empty fields of patch. Requires WRITE on the workflow.
func (w *Workflow) Update(
	ctx context.Context,
	user *models.User,
	id string,
	patch WorkflowPatch,
) (_ *models.Workflow, err error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflow.update", attribute.String(otelhelper.WorkflowIDKey, id))
	defer func() { endSpan(span, err) }()

	err = requireUser("Update", user)
	if err != nil {
		return nil, err
	}

	err = validatePatch("Update", patch.Name, patch.Description)
	if err != nil {
		return nil, err
	}

	var updated *models.Workflow

	err = transact(ctx, w.persistence, w.logger, "workflow.update", func(ctx context.Context, repos persistence.Repositories) error {
		workflow, err := repos.WorkflowRepository().GetByID(ctx, id)
		if err != nil {
			return err
		}

		err = w.permissions.CheckWrite(ctx, repos, user, models.WorkflowTarget(id), "Update")
		if err != nil {
			return err
		}

		if patch.Name != "" {
			workflow.Name = patch.Name
		}

		if patch.Description != "" {
			workflow.Description = patch.Description
		}

		err = repos.WorkflowRepository().Save(ctx, workflow)
		if err != nil {
			return err
		}

		workflow.Stages, err = repos.StageRepository().FindByWorkflow(ctx, id)
		if err != nil {
			return err
		}

		updated = workflow

		return nil
	})
	if err != nil {
		return nil, translateNameError("Update", err)
	}

	return updated, nil
}

// Delete removes the workflow and its stages and orphans its documents. Requires WRITE
// on the workflow.
func (w *Workflow) Delete(ctx context.Context, user *models.User, id string) (err error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflow.delete", attribute.String(otelhelper.WorkflowIDKey, id))
	defer func() { endSpan(span, err) }()

	err = requireUser("Delete", user)
	if err != nil {
		return err
	}

	err = transact(ctx, w.persistence, w.logger, "workflow.delete", func(ctx context.Context, repos persistence.Repositories) error {
		stages, err := repos.StageRepository().LockByWorkflow(ctx, id)
		if err != nil {
			return err
		}

		err = w.permissions.CheckWrite(ctx, repos, user, models.WorkflowTarget(id), "Delete")
		if err != nil {
			return err
		}

		err = onWorkflowDeleted(ctx, repos, id, stages)
		if err != nil {
			return err
		}

		return repos.WorkflowRepository().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	w.permissions.Invalidate(ctx)
	w.logger.InfoContext(ctx, "workflow deleted", "workflow_id", id)

	return nil
}

// onWorkflowDeleted cascades a workflow delete: documents of the workflow are orphaned,
// grants on the workflow and its stages are dropped, and its stages are removed without
// renumbering.
func onWorkflowDeleted(
	ctx context.Context,
	repos persistence.Repositories,
	workflowID string,
	stages []*models.Stage,
) error {
	err := repos.DocumentRepository().ClearWorkflow(ctx, workflowID)
	if err != nil {
		return err
	}

	for _, stage := range stages {
		err := repos.PermissionRepository().DeleteByTarget(ctx, models.StageTarget(stage.ID))
		if err != nil {
			return err
		}
	}

	err = repos.PermissionRepository().DeleteByTarget(ctx, models.WorkflowTarget(workflowID))
	if err != nil {
		return err
	}

	return repos.StageRepository().DeleteByWorkflow(ctx, workflowID)
}

func translateNameError(op string, err error) error {
	if errors.Is(err, persistence.ErrWorkflowNameExists) {
		return &ServiceError{
			Op:      op,
			Code:    "workflow_name_taken",
			Message: "a workflow with this name already exists",
			Err:     ErrWorkflowNameTaken,
		}
	}

	return err
}
