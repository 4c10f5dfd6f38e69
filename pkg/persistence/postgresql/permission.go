package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/persistence"
	"github.com/google/uuid"
)

const grantColumns = `
			id
		  , grantee_type
		  , grantee_id
		  , target_type
		  , target_id
		  , access
		  , created_at
		  , updated_at
`

// PermissionRepository handles role and user grants on workflows and stages.
type PermissionRepository struct {
	db     querier
	logger *slog.Logger
}

// NewPermissionRepository creates a new permission repository.
func NewPermissionRepository(db querier, logger *slog.Logger) *PermissionRepository {
	return &PermissionRepository{db: db, logger: logger}
}

// FindGrant returns the grant of a grantee on a target or persistence.ErrGrantNotFound.
func (r *PermissionRepository) FindGrant(
	ctx context.Context,
	grantee models.Grantee,
	target models.Target,
) (*models.Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM permission_grants
		WHERE grantee_type = $1 AND grantee_id = $2 AND target_type = $3 AND target_id = $4`

	grant, err := r.scanGrant(r.db.QueryRowContext(ctx, query, grantee.Type, grantee.ID, target.Type, target.ID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("FindGrant", "grant", "", persistence.ErrGrantNotFound)
		}

		return nil, fmt.Errorf("failed to scan grant: %w", err)
	}

	return grant, nil
}

// GetByID returns a grant or persistence.ErrGrantNotFound.
func (r *PermissionRepository) GetByID(ctx context.Context, id string) (*models.Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM permission_grants WHERE id = $1`

	grant, err := r.scanGrant(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("GetByID", "grant", id, persistence.ErrGrantNotFound)
		}

		return nil, fmt.Errorf("failed to scan grant: %w", err)
	}

	return grant, nil
}

// Upsert relies on the (grantee, target) unique key so two concurrent upserts leave
// exactly one row carrying the last written access.
func (r *PermissionRepository) Upsert(ctx context.Context, grant *models.Grant) error {
	now := time.Now().UTC()

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate grant ID: %w", err)
	}

	query := `
		INSERT INTO permission_grants (id, grantee_type, grantee_id, target_type, target_id, access, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (grantee_type, grantee_id, target_type, target_id) DO UPDATE SET
			access = EXCLUDED.access,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`

	err = r.db.QueryRowContext(ctx, query,
		id.String(),
		grant.Grantee.Type,
		grant.Grantee.ID,
		grant.Target.Type,
		grant.Target.ID,
		int(grant.Access),
		now,
	).Scan(&grant.ID, &grant.CreatedAt, &grant.UpdatedAt)
	if err != nil {
		return translateError(fmt.Errorf("failed to upsert grant: %w", err))
	}

	return nil
}

// ListByTarget returns every grant on a target.
func (r *PermissionRepository) ListByTarget(ctx context.Context, target models.Target) ([]*models.Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM permission_grants
		WHERE target_type = $1 AND target_id = $2
		ORDER BY grantee_type, grantee_id`

	rows, err := r.db.QueryContext(ctx, query, target.Type, target.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query grants: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	grants := make([]*models.Grant, 0)

	for rows.Next() {
		grant, err := r.scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}

		grants = append(grants, grant)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating grants: %w", err)
	}

	return grants, nil
}

// Delete removes a grant by ID.
func (r *PermissionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM permission_grants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete grant: %w", err)
	}

	return expectOne(result, persistence.NewEntityError("Delete", "grant", id, persistence.ErrGrantNotFound))
}

// DeleteByTarget removes every grant on a target.
func (r *PermissionRepository) DeleteByTarget(ctx context.Context, target models.Target) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM permission_grants WHERE target_type = $1 AND target_id = $2`,
		target.Type, target.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete target grants: %w", err)
	}

	return nil
}

// DeleteByGrantee removes every grant held by a grantee.
func (r *PermissionRepository) DeleteByGrantee(ctx context.Context, grantee models.Grantee) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM permission_grants WHERE grantee_type = $1 AND grantee_id = $2`,
		grantee.Type, grantee.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete grantee grants: %w", err)
	}

	return nil
}

func (r *PermissionRepository) scanGrant(scanner interface {
	Scan(dest ...any) error
}) (*models.Grant, error) {
	var (
		grant  models.Grant
		access int
	)

	err := scanner.Scan(
		&grant.ID,
		&grant.Grantee.Type,
		&grant.Grantee.ID,
		&grant.Target.Type,
		&grant.Target.ID,
		&access,
		&grant.CreatedAt,
		&grant.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	grant.Access = models.AccessLevel(access)

	return &grant, nil
}
