package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dukex/newsroom/pkg/mocks"
	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	read := &models.Grant{Access: models.AccessRead}
	write := &models.Grant{Access: models.AccessWrite}

	assert.Equal(t, models.AccessRead, Resolve(nil, false))
	assert.Equal(t, models.AccessWrite, Resolve(nil, true))
	assert.Equal(t, models.AccessRead, Resolve([]*models.Grant{read}, false))
	assert.Equal(t, models.AccessWrite, Resolve([]*models.Grant{read, write}, false))
	assert.Equal(t, models.AccessWrite, Resolve([]*models.Grant{write, read}, false))
	assert.Equal(t, models.AccessWrite, Resolve([]*models.Grant{read}, true))
}

func TestPermissionResolver_RoleGrantScopedToTarget(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	w1, stages := f.workflowWithStages(t, "Daily", "Draft")
	w2, _ := f.workflowWithStages(t, "Weekly")

	level, err := f.permissions.AccessFor(ctx, f.store, f.reporter, models.WorkflowTarget(w1.ID))
	require.NoError(t, err)
	assert.Equal(t, models.AccessRead, level)

	role, err := f.directory.CreateRole(ctx, f.admin, &models.Role{Name: "Desk"})
	require.NoError(t, err)

	_, err = f.directory.AddMember(ctx, f.admin, role.ID, f.reporter.ID)
	require.NoError(t, err)

	_, err = f.grants.Upsert(ctx, f.admin, models.WorkflowTarget(w1.ID), models.RoleGrantee(role.ID), models.AccessWrite)
	require.NoError(t, err)

	reporter, err := f.directory.Authenticate(ctx, "reporter-token")
	require.NoError(t, err)

	level, err = f.permissions.AccessFor(ctx, f.store, reporter, models.WorkflowTarget(w1.ID))
	require.NoError(t, err)
	assert.Equal(t, models.AccessWrite, level)

	level, err = f.permissions.AccessFor(ctx, f.store, reporter, models.WorkflowTarget(w2.ID))
	require.NoError(t, err)
	assert.Equal(t, models.AccessRead, level)

	level, err = f.permissions.AccessFor(ctx, f.store, reporter, models.StageTarget(stages[0].ID))
	require.NoError(t, err)
	assert.Equal(t, models.AccessRead, level, "workflow grants do not flow down to stages")

	level, err = f.permissions.AccessFor(ctx, f.store, f.admin, models.WorkflowTarget(w2.ID))
	require.NoError(t, err)
	assert.Equal(t, models.AccessWrite, level)
}

func TestPermissionResolver_UserGrantCounts(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	workflow, _ := f.workflowWithStages(t, "Daily")

	_, err := f.grants.Upsert(ctx, f.admin, models.WorkflowTarget(workflow.ID), models.UserGrantee(f.editor.ID), models.AccessWrite)
	require.NoError(t, err)

	level, err := f.permissions.AccessFor(ctx, f.store, f.editor, models.WorkflowTarget(workflow.ID))
	require.NoError(t, err)
	assert.Equal(t, models.AccessWrite, level)
}

func TestPermissionResolver_CheckWrite(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	workflow, _ := f.workflowWithStages(t, "Daily")

	err := f.permissions.CheckWrite(ctx, f.store, f.reporter, models.WorkflowTarget(workflow.ID), "Test")
	require.Error(t, err)
	assert.True(t, IsForbiddenError(err))

	err = f.permissions.CheckWrite(ctx, f.store, nil, models.WorkflowTarget(workflow.ID), "Test")
	assert.True(t, IsUnauthenticatedError(err))

	assert.NoError(t, f.permissions.CheckWrite(ctx, f.store, f.admin, models.WorkflowTarget(workflow.ID), "Test"))
}

func TestPermissionResolver_StopsAtFirstWrite(t *testing.T) {
	permissions := &mocks.MockPermissionRepository{}
	repos := &mocks.MockRepositories{}
	repos.On("PermissionRepository").Return(permissions)

	user := &models.User{ID: "u1", RoleIDs: []string{"r1", "r2"}}
	target := models.WorkflowTarget("w1")

	permissions.On("FindGrant", mock.Anything, models.UserGrantee("u1"), target).
		Return(nil, persistence.ErrGrantNotFound)
	permissions.On("FindGrant", mock.Anything, models.RoleGrantee("r1"), target).
		Return(&models.Grant{Access: models.AccessWrite}, nil)

	resolver := NewPermissionResolver(discardLogger(), nil)

	level, err := resolver.AccessFor(t.Context(), repos, user, target)
	require.NoError(t, err)
	assert.Equal(t, models.AccessWrite, level)

	permissions.AssertNotCalled(t, "FindGrant", mock.Anything, models.RoleGrantee("r2"), target)
}

func TestPermissionResolver_RepositoryError(t *testing.T) {
	permissions := &mocks.MockPermissionRepository{}
	repos := &mocks.MockRepositories{}
	repos.On("PermissionRepository").Return(permissions)

	permissions.On("FindGrant", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	resolver := NewPermissionResolver(discardLogger(), nil)

	_, err := resolver.AccessFor(t.Context(), repos, &models.User{ID: "u1"}, models.StageTarget("s1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestPermissionResolver_UsesCache(t *testing.T) {
	cache := &mocks.MockAccessCache{}
	repos := &mocks.MockRepositories{}
	target := models.StageTarget("s1")

	cache.On("Get", mock.Anything, "u1", target).Return(models.AccessWrite, int64(3), true)

	resolver := NewPermissionResolver(discardLogger(), cache)

	level, err := resolver.AccessFor(t.Context(), repos, &models.User{ID: "u1"}, target)
	require.NoError(t, err)
	assert.Equal(t, models.AccessWrite, level)

	repos.AssertNotCalled(t, "PermissionRepository")
}

func TestPermissionResolver_FillsCacheOnMiss(t *testing.T) {
	cache := &mocks.MockAccessCache{}
	permissions := &mocks.MockPermissionRepository{}
	repos := &mocks.MockRepositories{}
	repos.On("PermissionRepository").Return(permissions)

	target := models.WorkflowTarget("w1")

	cache.On("Get", mock.Anything, "u1", target).Return(models.AccessRead, int64(7), false)
	cache.On("Set", mock.Anything, int64(7), "u1", target, models.AccessRead).Return()
	cache.On("Invalidate", mock.Anything).Return()
	permissions.On("FindGrant", mock.Anything, mock.Anything, target).Return(nil, persistence.ErrGrantNotFound)

	resolver := NewPermissionResolver(discardLogger(), cache)

	level, err := resolver.AccessFor(t.Context(), repos, &models.User{ID: "u1"}, target)
	require.NoError(t, err)
	assert.Equal(t, models.AccessRead, level)

	resolver.Invalidate(t.Context())

	cache.AssertExpectations(t)
}

func TestPermissionResolver_UnusableCacheIsNotFilled(t *testing.T) {
	cache := &mocks.MockAccessCache{}
	permissions := &mocks.MockPermissionRepository{}
	repos := &mocks.MockRepositories{}
	repos.On("PermissionRepository").Return(permissions)

	target := models.StageTarget("s1")

	cache.On("Get", mock.Anything, "u1", target).Return(models.AccessRead, int64(-1), false)
	permissions.On("FindGrant", mock.Anything, mock.Anything, target).Return(nil, persistence.ErrGrantNotFound)

	resolver := NewPermissionResolver(discardLogger(), cache)

	level, err := resolver.AccessFor(t.Context(), repos, &models.User{ID: "u1"}, target)
	require.NoError(t, err)
	assert.Equal(t, models.AccessRead, level)

	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPermissionResolver_RevokeDuringResolveIsNotCached(t *testing.T) {
	cache := newMemoryCache()
	f := newFixture(t, func(f *fixture) { f.permissions.cache = cache })
	ctx := t.Context()

	workflow, _ := f.workflowWithStages(t, "Daily")
	target := models.WorkflowTarget(workflow.ID)

	grant, err := f.grants.Upsert(ctx, f.admin, target, models.UserGrantee(f.editor.ID), models.AccessWrite)
	require.NoError(t, err)

	repos := &hookedRepositories{
		Repositories: f.store,
		afterFindGrant: func() {
			require.NoError(t, f.grants.Delete(ctx, f.admin, grant.ID))
		},
	}

	level, err := f.permissions.AccessFor(ctx, repos, f.editor, target)
	require.NoError(t, err)
	assert.Equal(t, models.AccessWrite, level, "the lookup saw the grant before it was revoked")

	level, err = f.permissions.AccessFor(ctx, f.store, f.editor, target)
	require.NoError(t, err)
	assert.Equal(t, models.AccessRead, level, "the revoked grant must not be served from the cache")
}

// memoryCache follows the generation rules of the Redis access cache.
type memoryCache struct {
	mu         sync.Mutex
	generation int64
	levels     map[string]models.AccessLevel
}

func newMemoryCache() *memoryCache {
	return &memoryCache{levels: map[string]models.AccessLevel{}}
}

func (c *memoryCache) key(generation int64, userID string, target models.Target) string {
	return fmt.Sprintf("%d:%s:%s:%s", generation, userID, target.Type, target.ID)
}

func (c *memoryCache) Get(_ context.Context, userID string, target models.Target) (models.AccessLevel, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	level, ok := c.levels[c.key(c.generation, userID, target)]

	return level, c.generation, ok
}

func (c *memoryCache) Set(_ context.Context, generation int64, userID string, target models.Target, level models.AccessLevel) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.levels[c.key(generation, userID, target)] = level
}

func (c *memoryCache) Invalidate(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
}

// hookedRepositories runs afterFindGrant once, right after the first grant lookup.
type hookedRepositories struct {
	persistence.Repositories
	afterFindGrant func()
}

func (r *hookedRepositories) PermissionRepository() persistence.PermissionRepository {
	return &hookedPermissions{PermissionRepository: r.Repositories.PermissionRepository(), repos: r}
}

type hookedPermissions struct {
	persistence.PermissionRepository
	repos *hookedRepositories
}

func (p *hookedPermissions) FindGrant(
	ctx context.Context,
	grantee models.Grantee,
	target models.Target,
) (*models.Grant, error) {
	grant, err := p.PermissionRepository.FindGrant(ctx, grantee, target)

	if hook := p.repos.afterFindGrant; hook != nil {
		p.repos.afterFindGrant = nil
		hook()
	}

	return grant, err
}
