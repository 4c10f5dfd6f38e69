package mocks

import (
	"context"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) WorkflowRepository() persistence.WorkflowRepository {
	args := m.Called()

	return args.Get(0).(persistence.WorkflowRepository)
}

func (m *MockPersistence) StageRepository() persistence.StageRepository {
	args := m.Called()

	return args.Get(0).(persistence.StageRepository)
}

func (m *MockPersistence) DocumentRepository() persistence.DocumentRepository {
	args := m.Called()

	return args.Get(0).(persistence.DocumentRepository)
}

func (m *MockPersistence) PermissionRepository() persistence.PermissionRepository {
	args := m.Called()

	return args.Get(0).(persistence.PermissionRepository)
}

func (m *MockPersistence) UserRepository() persistence.UserRepository {
	args := m.Called()

	return args.Get(0).(persistence.UserRepository)
}

func (m *MockPersistence) RoleRepository() persistence.RoleRepository {
	args := m.Called()

	return args.Get(0).(persistence.RoleRepository)
}

func (m *MockPersistence) Transaction(
	ctx context.Context,
	fn func(ctx context.Context, repos persistence.Repositories) error,
) error {
	args := m.Called(ctx, fn)

	return args.Error(0)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) GetByName(ctx context.Context, name string) (*models.Workflow, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) List(ctx context.Context) ([]*models.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Create(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockPermissionRepository is a mock implementation of persistence.PermissionRepository interface.
type MockPermissionRepository struct {
	mock.Mock
}

func (m *MockPermissionRepository) FindGrant(
	ctx context.Context,
	grantee models.Grantee,
	target models.Target,
) (*models.Grant, error) {
	args := m.Called(ctx, grantee, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Grant), args.Error(1)
}

func (m *MockPermissionRepository) Upsert(ctx context.Context, grant *models.Grant) error {
	args := m.Called(ctx, grant)

	return args.Error(0)
}

func (m *MockPermissionRepository) GetByID(ctx context.Context, id string) (*models.Grant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Grant), args.Error(1)
}

func (m *MockPermissionRepository) ListByTarget(ctx context.Context, target models.Target) ([]*models.Grant, error) {
	args := m.Called(ctx, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Grant), args.Error(1)
}

func (m *MockPermissionRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockPermissionRepository) DeleteByTarget(ctx context.Context, target models.Target) error {
	args := m.Called(ctx, target)

	return args.Error(0)
}

func (m *MockPermissionRepository) DeleteByGrantee(ctx context.Context, grantee models.Grantee) error {
	args := m.Called(ctx, grantee)

	return args.Error(0)
}

// MockRepositories hands out mocked repositories inside a transaction callback.
type MockRepositories struct {
	mock.Mock
}

func (m *MockRepositories) WorkflowRepository() persistence.WorkflowRepository {
	return m.Called().Get(0).(persistence.WorkflowRepository)
}

func (m *MockRepositories) StageRepository() persistence.StageRepository {
	return m.Called().Get(0).(persistence.StageRepository)
}

func (m *MockRepositories) DocumentRepository() persistence.DocumentRepository {
	return m.Called().Get(0).(persistence.DocumentRepository)
}

func (m *MockRepositories) PermissionRepository() persistence.PermissionRepository {
	return m.Called().Get(0).(persistence.PermissionRepository)
}

func (m *MockRepositories) UserRepository() persistence.UserRepository {
	return m.Called().Get(0).(persistence.UserRepository)
}

func (m *MockRepositories) RoleRepository() persistence.RoleRepository {
	return m.Called().Get(0).(persistence.RoleRepository)
}
