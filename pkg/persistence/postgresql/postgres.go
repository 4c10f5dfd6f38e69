// Package postgresql provides PostgreSQL persistence implementation for the newsroom.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/newsroom/pkg/persistence"
	"github.com/dukex/newsroom/pkg/persistence/sqlbase"
	"github.com/lib/pq"
)

const (
	uniqueViolation      = "23505"
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
)

// querier is satisfied by both *sql.DB and *sql.Tx so repositories run inside or outside
// a transaction unchanged.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// repositories binds every repository to one querier.
type repositories struct {
	workflowRepo   *WorkflowRepository
	stageRepo      *StageRepository
	documentRepo   *DocumentRepository
	permissionRepo *PermissionRepository
	userRepo       *UserRepository
	roleRepo       *RoleRepository
}

func newRepositories(db querier, logger *slog.Logger) *repositories {
	return &repositories{
		workflowRepo:   NewWorkflowRepository(db, logger),
		stageRepo:      NewStageRepository(db, logger),
		documentRepo:   NewDocumentRepository(db, logger),
		permissionRepo: NewPermissionRepository(db, logger),
		userRepo:       NewUserRepository(db, logger),
		roleRepo:       NewRoleRepository(db, logger),
	}
}

func (r *repositories) WorkflowRepository() persistence.WorkflowRepository     { return r.workflowRepo }
func (r *repositories) StageRepository() persistence.StageRepository           { return r.stageRepo }
func (r *repositories) DocumentRepository() persistence.DocumentRepository     { return r.documentRepo }
func (r *repositories) PermissionRepository() persistence.PermissionRepository { return r.permissionRepo }
func (r *repositories) UserRepository() persistence.UserRepository             { return r.userRepo }
func (r *repositories) RoleRepository() persistence.RoleRepository             { return r.roleRepo }

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	*repositories

	db     *sql.DB
	logger *slog.Logger
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	postgres := &Persistence{
		repositories: newRepositories(database, logger),
		db:           database,
		logger:       logger,
	}

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// Transaction runs fn inside a database transaction. Unique-constraint races and
// serialization failures are reported as persistence.ErrConflict.
func (p *Persistence) Transaction(
	ctx context.Context,
	fn func(ctx context.Context, repos persistence.Repositories) error,
) (err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			rollbackErr := tx.Rollback()
			if rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				p.logger.ErrorContext(ctx, "failed to rollback transaction", "error", rollbackErr)
			}

			err = translateError(err)
		}
	}()

	err = fn(ctx, newRepositories(tx, p.logger))
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// translateError maps PostgreSQL constraint errors onto persistence sentinels.
func translateError(err error) error {
	if errors.Is(err, persistence.ErrConflict) ||
		errors.Is(err, persistence.ErrWorkflowNameExists) ||
		errors.Is(err, persistence.ErrDuplicate) {
		return err
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case uniqueViolation:
		switch pqErr.Constraint {
		case "workflows_name_key":
			return fmt.Errorf("%w: %w", persistence.ErrWorkflowNameExists, err)
		case "users_user_name_key", "users_access_token_key", "roles_name_key":
			return fmt.Errorf("%w: %w", persistence.ErrDuplicate, err)
		default:
			return fmt.Errorf("%w: %w", persistence.ErrConflict, err)
		}
	case serializationFailure, deadlockDetected:
		return fmt.Errorf("%w: %w", persistence.ErrConflict, err)
	default:
		return err
	}
}

// closeRows closes a result set and logs the failure instead of masking the caller's error.
func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

// expectOne turns a zero-row write into the given not-found error.
func expectOne(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return notFound
	}

	return nil
}
