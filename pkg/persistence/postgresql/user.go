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

const userColumns = `
			id
		  , user_name
		  , email
		  , first_name
		  , last_name
		  , access_token
		  , admin
		  , created_at
		  , updated_at
`

// UserRepository handles user-related database operations.
type UserRepository struct {
	db     querier
	logger *slog.Logger
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db querier, logger *slog.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

// GetByID returns a user with its role memberships.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, "GetByID", id, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByAccessToken resolves a bearer token to its user.
func (r *UserRepository) GetByAccessToken(ctx context.Context, token string) (*models.User, error) {
	return r.getOne(ctx, "GetByAccessToken", "", `SELECT `+userColumns+` FROM users WHERE access_token = $1`, token)
}

// GetByUserName returns the user with the given login name.
func (r *UserRepository) GetByUserName(ctx context.Context, userName string) (*models.User, error) {
	return r.getOne(ctx, "GetByUserName", userName, `SELECT `+userColumns+` FROM users WHERE user_name = $1`, userName)
}

func (r *UserRepository) getOne(ctx context.Context, op, key, query string, args ...any) (*models.User, error) {
	user, err := r.scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError(op, "user", key, persistence.ErrUserNotFound)
		}

		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	user.RoleIDs, err = r.roleIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// List returns all users ordered by user name. Role memberships are not loaded.
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY user_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		users = append(users, user)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// Create inserts a user and the role memberships listed in RoleIDs.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()

	if user.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate user ID: %w", err)
		}

		user.ID = id.String()
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}

	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, user_name, email, first_name, last_name, access_token, admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.UserName,
		user.Email,
		user.FirstName,
		user.LastName,
		nullString(user.AccessToken),
		user.Admin,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return translateError(fmt.Errorf("failed to insert user: %w", err))
	}

	for _, roleID := range user.RoleIDs {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO role_members (role_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			roleID, user.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert role membership: %w", err)
		}
	}

	return nil
}

// Save updates profile fields, the admin flag and the access token.
func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET email = $2, first_name = $3, last_name = $4, access_token = $5, admin = $6, updated_at = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		nullString(user.AccessToken),
		user.Admin,
		user.UpdatedAt,
	)
	if err != nil {
		return translateError(fmt.Errorf("failed to update user: %w", err))
	}

	return expectOne(result, persistence.NewEntityError("Save", "user", user.ID, persistence.ErrUserNotFound))
}

func (r *UserRepository) roleIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT role_id FROM role_members WHERE user_id = $1 ORDER BY role_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user roles: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	return scanIDs(rows)
}

func (r *UserRepository) scanUser(scanner interface {
	Scan(dest ...any) error
}) (*models.User, error) {
	var (
		user        models.User
		accessToken sql.NullString
	)

	err := scanner.Scan(
		&user.ID,
		&user.UserName,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&accessToken,
		&user.Admin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.AccessToken = accessToken.String
	user.RoleIDs = []string{}

	return &user, nil
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	ids := make([]string, 0)

	for rows.Next() {
		var id string

		err := rows.Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}

		ids = append(ids, id)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating ids: %w", err)
	}

	return ids, nil
}
