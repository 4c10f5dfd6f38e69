package services

import (
	"testing"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectory_Authenticate(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	user, err := f.directory.Authenticate(ctx, "editor-token")
	require.NoError(t, err)
	assert.Equal(t, f.editor.ID, user.ID)

	_, err = f.directory.Authenticate(ctx, "")
	assert.True(t, IsUnauthenticatedError(err))

	_, err = f.directory.Authenticate(ctx, "nope")
	assert.True(t, IsUnauthenticatedError(err))
}

func TestDirectory_CreateUser(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	role, err := f.directory.CreateRole(ctx, f.admin, &models.Role{Name: "Desk"})
	require.NoError(t, err)

	user, err := f.directory.CreateUser(ctx, f.admin, &models.User{UserName: "columnist", RoleIDs: []string{role.ID}})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.NotEmpty(t, user.AccessToken, "a token is generated")

	authenticated, err := f.directory.Authenticate(ctx, user.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, []string{role.ID}, authenticated.RoleIDs)

	_, err = f.directory.CreateUser(ctx, f.admin, &models.User{UserName: "columnist"})
	require.ErrorIs(t, err, ErrDuplicate)
	assert.True(t, IsConflictError(err))

	_, err = f.directory.CreateUser(ctx, f.admin, &models.User{UserName: "ghost", RoleIDs: []string{"missing"}})
	assert.True(t, persistence.IsRoleNotFound(err))

	_, err = f.directory.CreateUser(ctx, f.editor, &models.User{UserName: "intern"})
	assert.True(t, IsForbiddenError(err))

	_, err = f.directory.CreateUser(ctx, f.admin, &models.User{})
	require.ErrorIs(t, err, ErrNameRequired)

	_, err = f.directory.CreateUser(ctx, f.admin, &models.User{UserName: "stringer", Email: "not-an-email"})
	assert.True(t, IsValidationError(err))
}

func TestDirectory_Roles(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	_, err := f.directory.CreateRole(ctx, f.editor, &models.Role{Name: "Desk"})
	assert.True(t, IsForbiddenError(err))

	role, err := f.directory.CreateRole(ctx, f.admin, &models.Role{Name: "Desk", Description: "Copy desk"})
	require.NoError(t, err)
	assert.Empty(t, role.MemberIDs)

	_, err = f.directory.CreateRole(ctx, f.admin, &models.Role{Name: "Desk"})
	require.ErrorIs(t, err, ErrDuplicate)

	role, err = f.directory.AddMember(ctx, f.admin, role.ID, f.editor.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{f.editor.ID}, role.MemberIDs)

	role, err = f.directory.AddMember(ctx, f.admin, role.ID, f.editor.ID)
	require.NoError(t, err)
	assert.Len(t, role.MemberIDs, 1, "adding twice is a no-op")

	_, err = f.directory.AddMember(ctx, f.editor, role.ID, f.reporter.ID)
	assert.True(t, IsForbiddenError(err))

	_, err = f.directory.AddMember(ctx, f.admin, "missing", f.reporter.ID)
	assert.True(t, persistence.IsRoleNotFound(err))

	_, err = f.directory.AddMember(ctx, f.admin, role.ID, "missing")
	assert.True(t, persistence.IsUserNotFound(err))

	role, err = f.directory.RemoveMember(ctx, f.admin, role.ID, f.editor.ID)
	require.NoError(t, err)
	assert.Empty(t, role.MemberIDs)

	roles, err := f.directory.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 1)

	users, err := f.directory.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 3)
}

func TestDirectory_MembershipChangesAccess(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	workflow, _ := f.workflowWithStages(t, "Daily")

	role, err := f.directory.CreateRole(ctx, f.admin, &models.Role{Name: "Desk"})
	require.NoError(t, err)

	_, err = f.grants.Upsert(ctx, f.admin, models.WorkflowTarget(workflow.ID), models.RoleGrantee(role.ID), models.AccessWrite)
	require.NoError(t, err)

	_, err = f.directory.AddMember(ctx, f.admin, role.ID, f.reporter.ID)
	require.NoError(t, err)

	reporter, err := f.directory.Authenticate(ctx, "reporter-token")
	require.NoError(t, err)

	_, err = f.workflows.Update(ctx, reporter, workflow.ID, WorkflowPatch{Description: "now writable"})
	require.NoError(t, err)

	_, err = f.directory.RemoveMember(ctx, f.admin, role.ID, f.reporter.ID)
	require.NoError(t, err)

	reporter, err = f.directory.Authenticate(ctx, "reporter-token")
	require.NoError(t, err)

	_, err = f.workflows.Update(ctx, reporter, workflow.ID, WorkflowPatch{Description: "again"})
	assert.True(t, IsForbiddenError(err))
}
