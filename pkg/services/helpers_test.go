package services

import (
	"io"
	"log/slog"
	"testing"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/persistence/file"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store       *file.Persistence
	permissions *PermissionResolver
	allocator   *SequenceAllocator
	workflows   *Workflow
	stages      *Stage
	documents   *Document
	grants      *Grants
	directory   *Directory
	admin       *models.User
	editor      *models.User
	reporter    *models.User
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, opts ...func(f *fixture)) *fixture {
	t.Helper()

	store, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	logger := discardLogger()
	permissions := NewPermissionResolver(logger, nil)
	allocator := NewSequenceAllocator(logger)

	f := &fixture{
		store:       store,
		permissions: permissions,
		allocator:   allocator,
		workflows:   NewWorkflow(store, permissions, logger),
		stages:      NewStage(store, permissions, allocator, nil, logger),
		documents:   NewDocument(store, permissions, nil, nil, logger),
		grants:      NewGrants(store, permissions, logger),
		directory:   NewDirectory(store, permissions, logger),
	}

	for _, opt := range opts {
		opt(f)
	}

	ctx := t.Context()

	f.admin = &models.User{UserName: "admin", AccessToken: "admin-token", Admin: true}
	require.NoError(t, store.UserRepository().Create(ctx, f.admin))

	f.editor = &models.User{UserName: "editor", AccessToken: "editor-token"}
	require.NoError(t, store.UserRepository().Create(ctx, f.editor))

	f.reporter = &models.User{UserName: "reporter", AccessToken: "reporter-token"}
	require.NoError(t, store.UserRepository().Create(ctx, f.reporter))

	return f
}

// workflowWithStages creates a workflow owned by the admin with stages named in order.
func (f *fixture) workflowWithStages(t *testing.T, name string, stageNames ...string) (*models.Workflow, []*models.Stage) {
	t.Helper()

	workflow, err := f.workflows.Create(t.Context(), f.admin, &models.Workflow{Name: name})
	require.NoError(t, err)

	stages := make([]*models.Stage, 0, len(stageNames))

	for _, stageName := range stageNames {
		stage, err := f.stages.Create(t.Context(), f.admin, workflow.ID, &models.Stage{Name: stageName}, nil)
		require.NoError(t, err)

		stages = append(stages, stage)
	}

	return workflow, stages
}

// stageOrder returns the stage names of a workflow in sequence order and checks that the
// sequence ids are exactly 1..N.
func (f *fixture) stageOrder(t *testing.T, workflowID string) []string {
	t.Helper()

	stages, err := f.stages.ListByWorkflow(t.Context(), workflowID)
	require.NoError(t, err)

	names := make([]string, 0, len(stages))

	for i, stage := range stages {
		require.Equal(t, i+1, stage.SequenceID, "sequence ids must be contiguous")

		names = append(names, stage.Name)
	}

	return names
}

func intPtr(v int) *int {
	return &v
}
