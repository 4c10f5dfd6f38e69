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

// RoleRepository handles roles and their memberships.
type RoleRepository struct {
	db     querier
	logger *slog.Logger
}

// NewRoleRepository creates a new role repository.
func NewRoleRepository(db querier, logger *slog.Logger) *RoleRepository {
	return &RoleRepository{db: db, logger: logger}
}

// GetByID returns a role with its members.
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*models.Role, error) {
	return r.getOne(ctx, "GetByID", id, `SELECT id, name, description, created_at, updated_at FROM roles WHERE id = $1`, id)
}

// GetByName returns the role with the given name.
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	return r.getOne(ctx, "GetByName", name,
		`SELECT id, name, description, created_at, updated_at FROM roles WHERE name = $1`, name)
}

func (r *RoleRepository) getOne(ctx context.Context, op, key, query string, args ...any) (*models.Role, error) {
	var role models.Role

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&role.ID,
		&role.Name,
		&role.Description,
		&role.CreatedAt,
		&role.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError(op, "role", key, persistence.ErrRoleNotFound)
		}

		return nil, fmt.Errorf("failed to scan role: %w", err)
	}

	role.MemberIDs, err = r.Members(ctx, role.ID)
	if err != nil {
		return nil, err
	}

	return &role, nil
}

// List returns all roles ordered by name, without members.
func (r *RoleRepository) List(ctx context.Context) ([]*models.Role, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, description, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	roles := make([]*models.Role, 0)

	for rows.Next() {
		var role models.Role

		err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}

		roles = append(roles, &role)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating roles: %w", err)
	}

	return roles, nil
}

// Create inserts a role.
func (r *RoleRepository) Create(ctx context.Context, role *models.Role) error {
	now := time.Now().UTC()

	if role.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate role ID: %w", err)
		}

		role.ID = id.String()
	}

	if role.CreatedAt.IsZero() {
		role.CreatedAt = now
	}

	role.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO roles (id, name, description, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		role.ID, role.Name, role.Description, role.CreatedAt, role.UpdatedAt,
	)
	if err != nil {
		return translateError(fmt.Errorf("failed to insert role: %w", err))
	}

	return nil
}

// AddMember is idempotent.
func (r *RoleRepository) AddMember(ctx context.Context, roleID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO role_members (role_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		roleID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to add role member: %w", err)
	}

	return nil
}

// RemoveMember is idempotent.
func (r *RoleRepository) RemoveMember(ctx context.Context, roleID, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM role_members WHERE role_id = $1 AND user_id = $2`, roleID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove role member: %w", err)
	}

	return nil
}

// Members returns the user IDs of a role.
func (r *RoleRepository) Members(ctx context.Context, roleID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM role_members WHERE role_id = $1 ORDER BY user_id`, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query role members: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	return scanIDs(rows)
}
