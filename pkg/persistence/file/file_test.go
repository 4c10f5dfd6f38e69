package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	p, err := NewPersistence(t.TempDir())
	require.NoError(t, err)

	return p
}

func TestNewPersistence(t *testing.T) {
	p, err := NewPersistence("/tmp/test")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/test", p.root)

	p, err = NewPersistence("file:///tmp/test")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/test", p.root)
}

func TestPersistence_Close(t *testing.T) {
	p := newTestPersistence(t)

	err := p.Close(t.Context())
	assert.NoError(t, err)
}

func TestPersistence_HealthCheck(t *testing.T) {
	p := newTestPersistence(t)
	assert.NoError(t, p.HealthCheck(t.Context()))

	missing, err := NewPersistence(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Error(t, missing.HealthCheck(t.Context()))
}

func TestPersistence_SnapshotSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := t.Context()

	p, err := NewPersistence(dir)
	require.NoError(t, err)

	workflow := &models.Workflow{Name: "Daily", Description: "front page"}
	require.NoError(t, p.WorkflowRepository().Create(ctx, workflow))

	stage := &models.Stage{WorkflowID: workflow.ID, SequenceID: 1, Name: "Draft"}
	require.NoError(t, p.StageRepository().Create(ctx, stage))

	_, err = os.Stat(filepath.Join(dir, snapshotName))
	require.NoError(t, err)

	reopened, err := NewPersistence(dir)
	require.NoError(t, err)

	retrieved, err := reopened.WorkflowRepository().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "Daily", retrieved.Name)

	stages, err := reopened.StageRepository().FindByWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.Equal(t, stage.ID, stages[0].ID)
}

func TestWorkflowRepository(t *testing.T) {
	p := newTestPersistence(t)
	ctx := t.Context()
	repo := p.WorkflowRepository()

	workflow := &models.Workflow{Name: "Daily"}
	require.NoError(t, repo.Create(ctx, workflow))
	assert.NotEmpty(t, workflow.ID)
	assert.False(t, workflow.CreatedAt.IsZero())

	err := repo.Create(ctx, &models.Workflow{Name: "Daily"})
	assert.ErrorIs(t, err, persistence.ErrWorkflowNameExists)

	other := &models.Workflow{Name: "Weekly"}
	require.NoError(t, repo.Create(ctx, other))

	other.Name = "Daily"
	assert.ErrorIs(t, repo.Save(ctx, other), persistence.ErrWorkflowNameExists)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Daily", list[0].Name)
	assert.Equal(t, "Weekly", list[1].Name)

	byName, err := repo.GetByName(ctx, "Weekly")
	require.NoError(t, err)
	assert.Equal(t, other.ID, byName.ID)

	require.NoError(t, repo.Delete(ctx, workflow.ID))

	_, err = repo.GetByID(ctx, workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
	assert.True(t, persistence.IsWorkflowNotFound(repo.Delete(ctx, workflow.ID)))
}

func TestWorkflowRepository_ReturnsCopies(t *testing.T) {
	p := newTestPersistence(t)
	ctx := t.Context()

	workflow := &models.Workflow{Name: "Daily"}
	require.NoError(t, p.WorkflowRepository().Create(ctx, workflow))

	retrieved, err := p.WorkflowRepository().GetByID(ctx, workflow.ID)
	require.NoError(t, err)

	retrieved.Name = "mutated"

	again, err := p.WorkflowRepository().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "Daily", again.Name)
}

func TestStageRepository_SequenceUniqueness(t *testing.T) {
	p := newTestPersistence(t)
	ctx := t.Context()

	workflow := &models.Workflow{Name: "Daily"}
	require.NoError(t, p.WorkflowRepository().Create(ctx, workflow))

	first := &models.Stage{WorkflowID: workflow.ID, SequenceID: 1, Name: "Draft"}
	require.NoError(t, p.StageRepository().Create(ctx, first))

	err := p.StageRepository().Create(ctx, &models.Stage{WorkflowID: workflow.ID, SequenceID: 1, Name: "Edit"})
	assert.ErrorIs(t, err, persistence.ErrConflict)

	err = p.StageRepository().Create(ctx, &models.Stage{WorkflowID: "missing", SequenceID: 1, Name: "Edit"})
	assert.True(t, persistence.IsWorkflowNotFound(err))

	second := &models.Stage{WorkflowID: workflow.ID, SequenceID: 2, Name: "Edit"}
	require.NoError(t, p.StageRepository().Create(ctx, second))

	assert.ErrorIs(t, p.StageRepository().UpdateSequenceID(ctx, second.ID, 1), persistence.ErrConflict)
	require.NoError(t, p.StageRepository().UpdateSequenceID(ctx, second.ID, 3))

	stages, err := p.StageRepository().FindByWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, first.ID, stages[0].ID)
	assert.Equal(t, 3, stages[1].SequenceID)
}

func TestTransaction_RollsBack(t *testing.T) {
	p := newTestPersistence(t)
	ctx := t.Context()

	workflow := &models.Workflow{Name: "Daily"}
	require.NoError(t, p.WorkflowRepository().Create(ctx, workflow))

	boom := errors.New("boom")

	err := p.Transaction(ctx, func(ctx context.Context, repos persistence.Repositories) error {
		stages, err := repos.StageRepository().LockByWorkflow(ctx, workflow.ID)
		require.NoError(t, err)
		assert.Empty(t, stages)

		err = repos.StageRepository().Create(ctx, &models.Stage{WorkflowID: workflow.ID, SequenceID: 1, Name: "Draft"})
		require.NoError(t, err)

		visible, err := repos.StageRepository().FindByWorkflow(ctx, workflow.ID)
		require.NoError(t, err)
		assert.Len(t, visible, 1)

		return boom
	})
	assert.ErrorIs(t, err, boom)

	stages, err := p.StageRepository().FindByWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Empty(t, stages)
}

func TestTransaction_Commits(t *testing.T) {
	p := newTestPersistence(t)
	ctx := t.Context()

	err := p.Transaction(ctx, func(ctx context.Context, repos persistence.Repositories) error {
		workflow := &models.Workflow{Name: "Daily"}

		err := repos.WorkflowRepository().Create(ctx, workflow)
		if err != nil {
			return err
		}

		return repos.StageRepository().Create(ctx, &models.Stage{WorkflowID: workflow.ID, SequenceID: 1, Name: "Draft"})
	})
	require.NoError(t, err)

	workflows, err := p.WorkflowRepository().List(ctx)
	require.NoError(t, err)
	require.Len(t, workflows, 1)

	stages, err := p.StageRepository().FindByWorkflow(ctx, workflows[0].ID)
	require.NoError(t, err)
	assert.Len(t, stages, 1)
}

func TestDocumentRepository_FiltersAndClear(t *testing.T) {
	p := newTestPersistence(t)
	ctx := t.Context()

	workflow := &models.Workflow{Name: "Daily"}
	require.NoError(t, p.WorkflowRepository().Create(ctx, workflow))

	stage := &models.Stage{WorkflowID: workflow.ID, SequenceID: 1, Name: "Draft"}
	require.NoError(t, p.StageRepository().Create(ctx, stage))

	staged := &models.Document{Name: "staged", WorkflowID: &workflow.ID, StageID: &stage.ID}
	orphan := &models.Document{Name: "orphan"}

	require.NoError(t, p.DocumentRepository().Create(ctx, staged))
	require.NoError(t, p.DocumentRepository().Create(ctx, orphan))

	byStage, err := p.DocumentRepository().List(ctx, persistence.DocumentFilter{StageID: stage.ID})
	require.NoError(t, err)
	require.Len(t, byStage, 1)
	assert.Equal(t, staged.ID, byStage[0].ID)

	byWorkflow, err := p.DocumentRepository().List(ctx, persistence.DocumentFilter{WorkflowID: workflow.ID})
	require.NoError(t, err)
	assert.Len(t, byWorkflow, 1)

	orphans, err := p.DocumentRepository().List(ctx, persistence.DocumentFilter{Orphaned: true})
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, orphan.ID, orphans[0].ID)

	require.NoError(t, p.DocumentRepository().ClearStage(ctx, stage.ID))

	retrieved, err := p.DocumentRepository().GetByID(ctx, staged.ID)
	require.NoError(t, err)
	assert.True(t, retrieved.Orphaned())
	assert.Nil(t, retrieved.WorkflowID)

	assert.True(t, persistence.IsDocumentNotFound(p.DocumentRepository().Delete(ctx, "missing")))
}

func TestDocumentRepository_SetGoogleDocID(t *testing.T) {
	p := newTestPersistence(t)
	ctx := t.Context()
	repo := p.DocumentRepository()

	document := &models.Document{Name: "story", Content: "first"}
	require.NoError(t, repo.Create(ctx, document))

	require.NoError(t, repo.SetGoogleDocID(ctx, document.ID, "gdoc-1"))

	retrieved, err := repo.GetByID(ctx, document.ID)
	require.NoError(t, err)
	assert.Equal(t, "gdoc-1", retrieved.GoogleDocID)
	assert.Equal(t, "first", retrieved.Content)

	assert.True(t, persistence.IsDocumentNotFound(repo.SetGoogleDocID(ctx, "missing", "gdoc-2")))
}

func TestPermissionRepository_Upsert(t *testing.T) {
	p := newTestPersistence(t)
	ctx := t.Context()
	repo := p.PermissionRepository()

	target := models.WorkflowTarget("wf-1")
	grantee := models.RoleGrantee("role-1")

	grant := &models.Grant{Grantee: grantee, Target: target, Access: models.AccessRead}
	require.NoError(t, repo.Upsert(ctx, grant))

	again := &models.Grant{Grantee: grantee, Target: target, Access: models.AccessWrite}
	require.NoError(t, repo.Upsert(ctx, again))
	assert.Equal(t, grant.ID, again.ID)

	grants, err := repo.ListByTarget(ctx, target)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, models.AccessWrite, grants[0].Access)

	require.NoError(t, repo.DeleteByGrantee(ctx, grantee))

	_, err = repo.FindGrant(ctx, grantee, target)
	assert.True(t, persistence.IsGrantNotFound(err))
}

func TestUserAndRoleRepositories(t *testing.T) {
	p := newTestPersistence(t)
	ctx := t.Context()

	role := &models.Role{Name: "Editors"}
	require.NoError(t, p.RoleRepository().Create(ctx, role))
	assert.ErrorIs(t, p.RoleRepository().Create(ctx, &models.Role{Name: "Editors"}), persistence.ErrDuplicate)

	user := &models.User{UserName: "ada", AccessToken: "token-ada", RoleIDs: []string{role.ID}}
	require.NoError(t, p.UserRepository().Create(ctx, user))
	assert.ErrorIs(t, p.UserRepository().Create(ctx, &models.User{UserName: "ada"}), persistence.ErrDuplicate)

	byToken, err := p.UserRepository().GetByAccessToken(ctx, "token-ada")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byToken.ID)
	assert.Equal(t, []string{role.ID}, byToken.RoleIDs)

	_, err = p.UserRepository().GetByAccessToken(ctx, "")
	assert.True(t, persistence.IsUserNotFound(err))

	require.NoError(t, p.RoleRepository().RemoveMember(ctx, role.ID, user.ID))

	byID, err := p.UserRepository().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, byID.RoleIDs)

	assert.True(t, persistence.IsUserNotFound(p.RoleRepository().AddMember(ctx, role.ID, "ghost")))
	require.NoError(t, p.RoleRepository().AddMember(ctx, role.ID, user.ID))

	loaded, err := p.RoleRepository().GetByID(ctx, role.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{user.ID}, loaded.MemberIDs)
}
