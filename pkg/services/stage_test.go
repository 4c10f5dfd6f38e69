package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/dukex/newsroom/pkg/mocks"
	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStage_CreateAppendsAndGrantsCreator(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	workflow, _ := f.workflowWithStages(t, "Daily", "Draft")

	_, err := f.grants.Upsert(ctx, f.admin, models.WorkflowTarget(workflow.ID), models.UserGrantee(f.editor.ID), models.AccessWrite)
	require.NoError(t, err)

	stage, err := f.stages.Create(ctx, f.editor, workflow.ID, &models.Stage{Name: "Review"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stage.SequenceID)
	assert.Equal(t, f.editor.ID, stage.CreatorID)

	level, err := f.permissions.AccessFor(ctx, f.store, f.editor, models.StageTarget(stage.ID))
	require.NoError(t, err)
	assert.Equal(t, models.AccessWrite, level)
}

func TestStage_CreateErrorOrder(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	workflow, _ := f.workflowWithStages(t, "Daily", "Draft")

	_, err := f.stages.Create(ctx, f.reporter, "missing", &models.Stage{Name: ""}, nil)
	require.ErrorIs(t, err, ErrNameRequired)

	_, err = f.stages.Create(ctx, f.reporter, "missing", &models.Stage{Name: "Review"}, intPtr(0))
	require.ErrorIs(t, err, ErrInvalidPosition)

	_, err = f.stages.Create(ctx, f.reporter, "missing", &models.Stage{Name: "Review"}, nil)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	_, err = f.stages.Create(ctx, f.reporter, workflow.ID, &models.Stage{Name: "Review"}, nil)
	assert.True(t, IsForbiddenError(err))

	_, err = f.stages.Create(ctx, f.reporter, workflow.ID, &models.Stage{Name: "Review"}, intPtr(9))
	assert.True(t, IsForbiddenError(err), "bounds are not disclosed to readers")

	_, err = f.stages.Create(ctx, f.admin, workflow.ID, &models.Stage{Name: "Review"}, intPtr(9))
	assert.True(t, IsOutOfBounds(err))

	assert.Equal(t, []string{"Draft"}, f.stageOrder(t, workflow.ID))
}

func TestStage_UpdateNeedsStageWrite(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	workflow, stages := f.workflowWithStages(t, "Daily", "Draft")

	_, err := f.grants.Upsert(ctx, f.admin, models.WorkflowTarget(workflow.ID), models.UserGrantee(f.editor.ID), models.AccessWrite)
	require.NoError(t, err)

	_, err = f.stages.Update(ctx, f.editor, stages[0].ID, StagePatch{Name: "Drafting"})
	assert.True(t, IsForbiddenError(err), "workflow write does not reach stages")

	_, err = f.grants.Upsert(ctx, f.admin, models.StageTarget(stages[0].ID), models.UserGrantee(f.editor.ID), models.AccessWrite)
	require.NoError(t, err)

	updated, err := f.stages.Update(ctx, f.editor, stages[0].ID, StagePatch{Description: "First pass"})
	require.NoError(t, err)
	assert.Equal(t, "Draft", updated.Name)
	assert.Equal(t, "First pass", updated.Description)
	assert.Equal(t, 1, updated.SequenceID)

	_, err = f.stages.Update(ctx, f.editor, "missing", StagePatch{Name: strings.Repeat("x", models.MaxNameLength+1)})
	require.ErrorIs(t, err, ErrNameTooLong)

	_, err = f.stages.Update(ctx, f.editor, "missing", StagePatch{Name: "x"})
	assert.True(t, persistence.IsStageNotFound(err))
}

func TestStage_DeleteOrphansDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	workflow, stages := f.workflowWithStages(t, "Daily", "Draft", "Review", "Publish")

	document, err := f.documents.Create(ctx, f.admin, &models.Document{Name: "Story", StageID: &stages[1].ID})
	require.NoError(t, err)

	err = f.stages.Delete(ctx, f.reporter, stages[1].ID)
	assert.True(t, IsForbiddenError(err))

	require.NoError(t, f.stages.Delete(ctx, f.admin, stages[1].ID))

	assert.Equal(t, []string{"Draft", "Publish"}, f.stageOrder(t, workflow.ID))

	orphan, err := f.documents.FetchByID(ctx, document.ID)
	require.NoError(t, err)
	assert.True(t, orphan.Orphaned())

	err = f.stages.Delete(ctx, f.admin, stages[1].ID)
	assert.True(t, persistence.IsStageNotFound(err))
}

func TestStage_MoveNeedsWorkflowWrite(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	workflow, stages := f.workflowWithStages(t, "Daily", "A", "B", "C")

	_, err := f.stages.Move(ctx, f.reporter, stages[2].ID, 1)
	assert.True(t, IsForbiddenError(err))

	_, err = f.stages.Move(ctx, f.admin, stages[2].ID, 0)
	require.ErrorIs(t, err, ErrInvalidPosition)

	_, err = f.stages.Move(ctx, f.admin, stages[2].ID, 4)
	assert.True(t, IsOutOfBounds(err), "move cannot target past the last stage")

	moved, err := f.stages.Move(ctx, f.admin, stages[2].ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, moved.SequenceID)

	assert.Equal(t, []string{"C", "A", "B"}, f.stageOrder(t, workflow.ID))
}

func TestStage_ListByMissingWorkflow(t *testing.T) {
	f := newFixture(t)

	_, err := f.stages.ListByWorkflow(t.Context(), "missing")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestStage_Triggers(t *testing.T) {
	validator := &mocks.MockTriggerValidator{}

	f := newFixture(t, func(f *fixture) {
		f.stages = NewStage(f.store, f.permissions, f.allocator, validator, discardLogger())
	})
	ctx := t.Context()

	workflow, _ := f.workflowWithStages(t, "Daily")

	good := &models.Trigger{Type: "slack", Config: map[string]any{"webhook_url": "https://hooks.example.com/x"}}
	bad := &models.Trigger{Type: "pager"}

	validator.On("Validate", good).Return(nil)
	validator.On("Validate", bad).Return(NewValidationError("Validate", "unsupported_trigger", "unknown trigger", ErrUnsupportedTrigger))

	stage, err := f.stages.Create(ctx, f.admin, workflow.ID, &models.Stage{Name: "Publish", Trigger: good}, nil)
	require.NoError(t, err)
	require.NotNil(t, stage.Trigger)
	assert.Equal(t, "slack", stage.Trigger.Type)

	_, err = f.stages.Create(ctx, f.admin, workflow.ID, &models.Stage{Name: "Archive", Trigger: bad}, nil)
	require.ErrorIs(t, err, ErrUnsupportedTrigger)
	assert.True(t, IsValidationError(err))

	validator.AssertExpectations(t)
}

func TestStage_TriggersDisabled(t *testing.T) {
	f := newFixture(t)

	workflow, _ := f.workflowWithStages(t, "Daily")

	_, err := f.stages.Create(t.Context(), f.admin, workflow.ID,
		&models.Stage{Name: "Publish", Trigger: &models.Trigger{Type: "slack"}}, nil)
	assert.True(t, errors.Is(err, ErrUnsupportedTrigger))
}

func TestStage_CreateRetriesConflict(t *testing.T) {
	store := &mocks.MockPersistence{}
	store.On("Transaction", mock.Anything, mock.Anything).Return(persistence.ErrConflict).Once()
	store.On("Transaction", mock.Anything, mock.Anything).Return(persistence.ErrConflict).Once()

	permissions := NewPermissionResolver(discardLogger(), nil)
	stages := NewStage(store, permissions, NewSequenceAllocator(discardLogger()), nil, discardLogger())

	_, err := stages.Create(t.Context(), &models.User{ID: "u1", Admin: true}, "w1", &models.Stage{Name: "Draft"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, persistence.ErrConflict)
	assert.False(t, IsValidationError(err))

	store.AssertNumberOfCalls(t, "Transaction", 2)
}
