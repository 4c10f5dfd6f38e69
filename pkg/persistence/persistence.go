// Package persistence provides the storage abstraction for workflows, stages, documents,
// users, roles and permission grants.
package persistence

import (
	"context"

	"github.com/dukex/newsroom/pkg/models"
)

// Repositories groups the repositories of one store. Inside Transaction the repositories
// passed to the callback share the transaction and see its writes.
type Repositories interface {
	WorkflowRepository() WorkflowRepository
	StageRepository() StageRepository
	DocumentRepository() DocumentRepository
	PermissionRepository() PermissionRepository
	UserRepository() UserRepository
	RoleRepository() RoleRepository
}

// Persistence is a transactional store.
type Persistence interface {
	Repositories

	// Transaction runs fn atomically. When fn returns an error every write made through
	// the repositories it received is rolled back. A unique-constraint race is reported
	// as ErrConflict.
	Transaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflows. Stages are not loaded by these methods.
type WorkflowRepository interface {
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	GetByName(ctx context.Context, name string) (*models.Workflow, error)
	List(ctx context.Context) ([]*models.Workflow, error)
	Create(ctx context.Context, workflow *models.Workflow) error
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

// StageRepository stores stages. Lists are ordered by sequence id.
type StageRepository interface {
	GetByID(ctx context.Context, id string) (*models.Stage, error)
	FindByWorkflow(ctx context.Context, workflowID string) ([]*models.Stage, error)

	// LockByWorkflow returns the stages of a workflow and holds an exclusive lock on the
	// workflow's stage set until the surrounding transaction ends.
	LockByWorkflow(ctx context.Context, workflowID string) ([]*models.Stage, error)

	Create(ctx context.Context, stage *models.Stage) error
	Save(ctx context.Context, stage *models.Stage) error
	UpdateSequenceID(ctx context.Context, id string, sequenceID int) error
	Delete(ctx context.Context, id string) error
	DeleteByWorkflow(ctx context.Context, workflowID string) error
}

// DocumentFilter narrows document listings. Zero values do not filter.
type DocumentFilter struct {
	WorkflowID string
	StageID    string
	Orphaned   bool
}

type DocumentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, filter DocumentFilter) ([]*models.Document, error)
	Create(ctx context.Context, document *models.Document) error
	Save(ctx context.Context, document *models.Document) error
	Delete(ctx context.Context, id string) error

	// SetGoogleDocID records the external copy of a document and touches no other field.
	SetGoogleDocID(ctx context.Context, id, googleDocID string) error

	// ClearStage detaches every document from the stage, clearing both stage and workflow.
	ClearStage(ctx context.Context, stageID string) error

	// ClearWorkflow detaches every document from the workflow and its stages.
	ClearWorkflow(ctx context.Context, workflowID string) error
}

type PermissionRepository interface {
	// FindGrant returns the grant of a grantee on a target or ErrGrantNotFound.
	FindGrant(ctx context.Context, grantee models.Grantee, target models.Target) (*models.Grant, error)

	// Upsert creates the grant or replaces the access of the existing grant for the same
	// (grantee, target) pair. The stored grant's ID and CreatedAt are written back.
	Upsert(ctx context.Context, grant *models.Grant) error

	GetByID(ctx context.Context, id string) (*models.Grant, error)
	ListByTarget(ctx context.Context, target models.Target) ([]*models.Grant, error)
	Delete(ctx context.Context, id string) error
	DeleteByTarget(ctx context.Context, target models.Target) error
	DeleteByGrantee(ctx context.Context, grantee models.Grantee) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByAccessToken(ctx context.Context, token string) (*models.User, error)
	GetByUserName(ctx context.Context, userName string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Save(ctx context.Context, user *models.User) error
}

type RoleRepository interface {
	GetByID(ctx context.Context, id string) (*models.Role, error)
	GetByName(ctx context.Context, name string) (*models.Role, error)
	List(ctx context.Context) ([]*models.Role, error)
	Create(ctx context.Context, role *models.Role) error
	AddMember(ctx context.Context, roleID, userID string) error
	RemoveMember(ctx context.Context, roleID, userID string) error
	Members(ctx context.Context, roleID string) ([]string, error)
}
