package services

import (
	"testing"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrants_UpsertReplaces(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	workflow, _ := f.workflowWithStages(t, "Daily")
	target := models.WorkflowTarget(workflow.ID)

	first, err := f.grants.Upsert(ctx, f.admin, target, models.UserGrantee(f.editor.ID), models.AccessWrite)
	require.NoError(t, err)

	second, err := f.grants.Upsert(ctx, f.admin, target, models.UserGrantee(f.editor.ID), models.AccessRead)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	grants, err := f.grants.List(ctx, target)
	require.NoError(t, err)

	var editorGrants []*models.Grant

	for _, grant := range grants {
		if grant.Grantee == models.UserGrantee(f.editor.ID) {
			editorGrants = append(editorGrants, grant)
		}
	}

	require.Len(t, editorGrants, 1, "one grant per grantee and target")
	assert.Equal(t, models.AccessRead, editorGrants[0].Access)

	level, err := f.grants.Access(ctx, f.editor, target)
	require.NoError(t, err)
	assert.Equal(t, models.AccessRead, level, "the last write wins")
}

func TestGrants_UpsertValidation(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	workflow, _ := f.workflowWithStages(t, "Daily")

	_, err := f.grants.Upsert(ctx, f.admin, models.WorkflowTarget(workflow.ID), models.UserGrantee(f.editor.ID), models.AccessLevel(7))
	require.ErrorIs(t, err, ErrInvalidAccessLevel)

	_, err = f.grants.Upsert(ctx, f.admin, models.WorkflowTarget(workflow.ID),
		models.Grantee{Type: "team", ID: f.editor.ID}, models.AccessRead)
	assert.True(t, IsValidationError(err))

	_, err = f.grants.Upsert(ctx, f.admin, models.Target{Type: "document", ID: "d1"}, models.UserGrantee(f.editor.ID), models.AccessRead)
	assert.True(t, IsValidationError(err))

	_, err = f.grants.Upsert(ctx, f.admin, models.WorkflowTarget("missing"), models.UserGrantee(f.editor.ID), models.AccessRead)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	_, err = f.grants.Upsert(ctx, f.admin, models.WorkflowTarget(workflow.ID), models.RoleGrantee("missing"), models.AccessRead)
	assert.True(t, persistence.IsRoleNotFound(err))

	_, err = f.grants.Upsert(ctx, nil, models.WorkflowTarget(workflow.ID), models.UserGrantee(f.editor.ID), models.AccessRead)
	assert.True(t, IsUnauthenticatedError(err))
}

func TestGrants_NeedWriteOnTarget(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	workflow, stages := f.workflowWithStages(t, "Daily", "Draft")

	_, err := f.grants.Upsert(ctx, f.reporter, models.WorkflowTarget(workflow.ID), models.UserGrantee(f.reporter.ID), models.AccessWrite)
	assert.True(t, IsForbiddenError(err), "readers cannot escalate themselves")

	_, err = f.grants.Upsert(ctx, f.admin, models.StageTarget(stages[0].ID), models.UserGrantee(f.editor.ID), models.AccessWrite)
	require.NoError(t, err)

	grant, err := f.grants.Upsert(ctx, f.editor, models.StageTarget(stages[0].ID), models.UserGrantee(f.reporter.ID), models.AccessWrite)
	require.NoError(t, err, "stage writers can delegate")

	err = f.grants.Delete(ctx, f.reporter, "missing")
	assert.True(t, persistence.IsGrantNotFound(err))

	require.NoError(t, f.grants.Delete(ctx, f.editor, grant.ID))

	level, err := f.grants.Access(ctx, f.reporter, models.StageTarget(stages[0].ID))
	require.NoError(t, err)
	assert.Equal(t, models.AccessRead, level)
}

func TestGrants_AccessOnMissingTarget(t *testing.T) {
	f := newFixture(t)

	_, err := f.grants.Access(t.Context(), f.editor, models.StageTarget("missing"))
	assert.True(t, persistence.IsStageNotFound(err))

	_, err = f.grants.List(t.Context(), models.WorkflowTarget("missing"))
	assert.True(t, persistence.IsWorkflowNotFound(err))
}
