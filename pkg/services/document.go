package services

import (
	"context"
	"log/slog"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/otelhelper"
	"github.com/dukex/newsroom/pkg/persistence"
	"github.com/dukex/newsroom/pkg/template"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultNotificationTemplate is used when a trigger configures no "message".
const DefaultNotificationTemplate = `"{{ .document.name }}" moved to {{ .stage.name }} in {{ .workflow.name }}`

// DocumentPatch carries a partial update. Empty fields are left unchanged.
type DocumentPatch struct {
	Name        string
	Description string
	Content     string
	Comments    string
}

type Document struct {
	persistence persistence.Persistence
	permissions *PermissionResolver
	sink        NotificationSink
	exporter    DocumentExporter
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewDocument creates a new document service. sink and exporter may be nil.
func NewDocument(
	store persistence.Persistence,
	permissions *PermissionResolver,
	sink NotificationSink,
	exporter DocumentExporter,
	logger *slog.Logger,
) *Document {
	return &Document{
		persistence: store,
		permissions: permissions,
		sink:        sink,
		exporter:    exporter,
		tracer:      otelhelper.Tracer(tracerName),
		logger:      logger.With("module", "document_service"),
	}
}

func (d *Document) List(ctx context.Context, filter persistence.DocumentFilter) ([]*models.Document, error) {
	return d.persistence.DocumentRepository().List(ctx, filter)
}

func (d *Document) FetchByID(ctx context.Context, id string) (*models.Document, error) {
	return d.persistence.DocumentRepository().GetByID(ctx, id)
}

// arrival is a document that just entered a stage with a trigger.
type arrival struct {
	document *models.Document
	stage    *models.Stage
	workflow *models.Workflow
}

// Create stores a document. A document placed in a stage needs WRITE on that stage; a
// document given only a workflow enters the workflow's first stage.
func (d *Document) Create(ctx context.Context, user *models.User, document *models.Document) (_ *models.Document, err error) {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "document.create")
	defer func() { endSpan(span, err) }()

	err = requireUser("Create", user)
	if err != nil {
		return nil, err
	}

	created := &models.Document{
		Name:        document.Name,
		Description: document.Description,
		Content:     document.Content,
		Comments:    document.Comments,
		CreatorID:   user.ID,
	}

	err = validateModel("Create", created)
	if err != nil {
		return nil, err
	}

	var arrived *arrival

	err = transact(ctx, d.persistence, d.logger, "document.create", func(ctx context.Context, repos persistence.Repositories) error {
		arrived = nil
		created.ID = ""
		created.StageID = nil
		created.WorkflowID = nil

		stage, err := d.placement(ctx, repos, document.WorkflowID, document.StageID)
		if err != nil {
			return err
		}

		if stage != nil {
			err = d.permissions.CheckWrite(ctx, repos, user, models.StageTarget(stage.ID), "Create")
			if err != nil {
				return err
			}

			created.StageID = &stage.ID
			created.WorkflowID = &stage.WorkflowID
		}

		err = repos.DocumentRepository().Create(ctx, created)
		if err != nil {
			return err
		}

		if stage != nil && stage.Trigger != nil {
			arrived, err = newArrival(ctx, repos, created, stage)
		}

		return err
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.DocumentIDKey, created.ID))

	d.export(ctx, created)
	d.notify(ctx, arrived)

	return created, nil
}

// placement resolves where a new document goes. It returns nil for an unstaged document.
func (d *Document) placement(
	ctx context.Context,
	repos persistence.Repositories,
	workflowID, stageID *string,
) (*models.Stage, error) {
	if stageID != nil && *stageID != "" {
		stage, err := repos.StageRepository().GetByID(ctx, *stageID)
		if err != nil {
			return nil, err
		}

		if workflowID != nil && *workflowID != "" && *workflowID != stage.WorkflowID {
			return nil, NewValidationError("Create", "stage_workflow_mismatch",
				"stage "+stage.ID+" does not belong to workflow "+*workflowID, ErrStageWorkflowMismatch)
		}

		return stage, nil
	}

	if workflowID == nil || *workflowID == "" {
		return nil, nil
	}

	_, err := repos.WorkflowRepository().GetByID(ctx, *workflowID)
	if err != nil {
		return nil, err
	}

	stages, err := repos.StageRepository().FindByWorkflow(ctx, *workflowID)
	if err != nil {
		return nil, err
	}

	if len(stages) == 0 {
		return nil, NewValidationError("Create", "workflow_without_stages",
			"workflow "+*workflowID+" has no stages", ErrInvalidRequest)
	}

	return stages[0], nil
}

// Update applies the non-empty fields of patch. A staged document needs WRITE on its stage.
func (d *Document) Update(
	ctx context.Context,
	user *models.User,
	id string,
	patch DocumentPatch,
) (_ *models.Document, err error) {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "document.update", attribute.String(otelhelper.DocumentIDKey, id))
	defer func() { endSpan(span, err) }()

	err = requireUser("Update", user)
	if err != nil {
		return nil, err
	}

	err = validatePatch("Update", patch.Name, patch.Description)
	if err != nil {
		return nil, err
	}

	var updated *models.Document

	err = transact(ctx, d.persistence, d.logger, "document.update", func(ctx context.Context, repos persistence.Repositories) error {
		document, err := d.loadForWrite(ctx, repos, user, id, "Update")
		if err != nil {
			return err
		}

		if patch.Name != "" {
			document.Name = patch.Name
		}

		if patch.Description != "" {
			document.Description = patch.Description
		}

		if patch.Content != "" {
			document.Content = patch.Content
		}

		if patch.Comments != "" {
			document.Comments = patch.Comments
		}

		err = repos.DocumentRepository().Save(ctx, document)
		if err != nil {
			return err
		}

		updated = document

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete removes a document. A staged document needs WRITE on its stage.
func (d *Document) Delete(ctx context.Context, user *models.User, id string) (err error) {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "document.delete", attribute.String(otelhelper.DocumentIDKey, id))
	defer func() { endSpan(span, err) }()

	err = requireUser("Delete", user)
	if err != nil {
		return err
	}

	return transact(ctx, d.persistence, d.logger, "document.delete", func(ctx context.Context, repos persistence.Repositories) error {
		_, err := d.loadForWrite(ctx, repos, user, id, "Delete")
		if err != nil {
			return err
		}

		return repos.DocumentRepository().Delete(ctx, id)
	})
}

func (d *Document) loadForWrite(
	ctx context.Context,
	repos persistence.Repositories,
	user *models.User,
	id, op string,
) (*models.Document, error) {
	document, err := repos.DocumentRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if document.StageID != nil {
		err = d.permissions.CheckWrite(ctx, repos, user, models.StageTarget(*document.StageID), op)
		if err != nil {
			return nil, err
		}
	}

	return document, nil
}

// MoveNext advances a document to the following stage of its workflow. At the last stage
// the document is returned unchanged.
func (d *Document) MoveNext(ctx context.Context, user *models.User, id string) (*models.Document, error) {
	return d.move(ctx, user, id, 1, "MoveNext")
}

// MovePrev sends a document back to the preceding stage. At the first stage the document
// is returned unchanged.
func (d *Document) MovePrev(ctx context.Context, user *models.User, id string) (*models.Document, error) {
	return d.move(ctx, user, id, -1, "MovePrev")
}

func (d *Document) move(
	ctx context.Context,
	user *models.User,
	id string,
	step int,
	op string,
) (_ *models.Document, err error) {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "document.move",
		attribute.String(otelhelper.DocumentIDKey, id),
		attribute.Int("newsroom.document.step", step),
	)
	defer func() { endSpan(span, err) }()

	err = requireUser(op, user)
	if err != nil {
		return nil, err
	}

	var (
		result  *models.Document
		arrived *arrival
	)

	err = transact(ctx, d.persistence, d.logger, "document.move", func(ctx context.Context, repos persistence.Repositories) error {
		arrived = nil

		document, err := repos.DocumentRepository().GetByID(ctx, id)
		if err != nil {
			return err
		}

		if document.StageID == nil {
			return NewValidationError(op, "document_not_staged",
				"document "+id+" is not in a stage", ErrDocumentNotStaged)
		}

		current, err := repos.StageRepository().GetByID(ctx, *document.StageID)
		if err != nil {
			return err
		}

		err = d.permissions.CheckWrite(ctx, repos, user, models.StageTarget(current.ID), op)
		if err != nil {
			return err
		}

		stages, err := repos.StageRepository().FindByWorkflow(ctx, current.WorkflowID)
		if err != nil {
			return err
		}

		destination := stageAt(stages, current.SequenceID+step)
		if destination == nil {
			result = document

			return nil
		}

		document.StageID = &destination.ID
		document.WorkflowID = &destination.WorkflowID

		err = repos.DocumentRepository().Save(ctx, document)
		if err != nil {
			return err
		}

		result = document

		if destination.Trigger != nil {
			arrived, err = newArrival(ctx, repos, document, destination)
		}

		return err
	})
	if err != nil {
		return nil, err
	}

	d.notify(ctx, arrived)

	return result, nil
}

func stageAt(stages []*models.Stage, sequenceID int) *models.Stage {
	for _, stage := range stages {
		if stage.SequenceID == sequenceID {
			return stage
		}
	}

	return nil
}

func newArrival(
	ctx context.Context,
	repos persistence.Repositories,
	document *models.Document,
	stage *models.Stage,
) (*arrival, error) {
	workflow, err := repos.WorkflowRepository().GetByID(ctx, stage.WorkflowID)
	if err != nil {
		return nil, err
	}

	return &arrival{document: document, stage: stage, workflow: workflow}, nil
}

// notify renders and sends the stage trigger message. Failures are only logged.
func (d *Document) notify(ctx context.Context, arrived *arrival) {
	if arrived == nil || d.sink == nil {
		return
	}

	message, err := RenderNotification(arrived.stage.Trigger, arrived.document, arrived.stage, arrived.workflow)
	if err != nil {
		d.logger.WarnContext(ctx, "failed to render notification", "stage_id", arrived.stage.ID, "error", err)

		return
	}

	err = d.sink.Notify(ctx, arrived.stage.Trigger, message)
	if err != nil {
		d.logger.WarnContext(ctx, "failed to send notification",
			"stage_id", arrived.stage.ID,
			"document_id", arrived.document.ID,
			"trigger", arrived.stage.Trigger.Type,
			"error", err,
		)
	}
}

// export copies a new document to the external editor. Failures are only logged.
func (d *Document) export(ctx context.Context, document *models.Document) {
	if d.exporter == nil {
		return
	}

	externalID, err := d.exporter.Export(ctx, document)
	if err != nil {
		d.logger.WarnContext(ctx, "failed to export document", "document_id", document.ID, "error", err)

		return
	}

	// The document may have changed while the export ran, so only the export id is written.
	err = d.persistence.DocumentRepository().SetGoogleDocID(ctx, document.ID, externalID)
	if err != nil {
		d.logger.WarnContext(ctx, "failed to store export id", "document_id", document.ID, "error", err)

		return
	}

	document.GoogleDocID = externalID
}

// RenderNotification builds the message for a document arriving in a stage from the
// trigger's "message" template, or DefaultNotificationTemplate.
func RenderNotification(
	trigger *models.Trigger,
	document *models.Document,
	stage *models.Stage,
	workflow *models.Workflow,
) (string, error) {
	tmpl := DefaultNotificationTemplate

	if trigger != nil {
		if configured, ok := trigger.Config["message"].(string); ok && configured != "" {
			tmpl = configured
		}
	}

	return template.Render(tmpl, map[string]any{
		"document": map[string]any{
			"id":          document.ID,
			"name":        document.Name,
			"description": document.Description,
		},
		"stage": map[string]any{
			"id":          stage.ID,
			"name":        stage.Name,
			"sequence_id": stage.SequenceID,
		},
		"workflow": map[string]any{
			"id":   workflow.ID,
			"name": workflow.Name,
		},
	})
}
