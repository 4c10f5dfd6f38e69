package services

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/otelhelper"
	"github.com/dukex/newsroom/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Directory manages users, roles and role membership. Every mutation is reserved to
// administrators.
type Directory struct {
	persistence persistence.Persistence
	permissions *PermissionResolver
	tracer      trace.Tracer
	logger      *slog.Logger
}

func NewDirectory(store persistence.Persistence, permissions *PermissionResolver, logger *slog.Logger) *Directory {
	return &Directory{
		persistence: store,
		permissions: permissions,
		tracer:      otelhelper.Tracer(tracerName),
		logger:      logger.With("module", "directory_service"),
	}
}

// Authenticate resolves a bearer token to its user.
func (d *Directory) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, &ServiceError{Op: "Authenticate", Code: "unauthorized", Message: "missing access token", Err: ErrUnauthenticated}
	}

	user, err := d.persistence.UserRepository().GetByAccessToken(ctx, token)
	if err != nil {
		if persistence.IsUserNotFound(err) {
			return nil, &ServiceError{Op: "Authenticate", Code: "unauthorized", Message: "unknown access token", Err: ErrUnauthenticated}
		}

		return nil, err
	}

	return user, nil
}

func (d *Directory) FetchUser(ctx context.Context, id string) (*models.User, error) {
	return d.persistence.UserRepository().GetByID(ctx, id)
}

func (d *Directory) ListUsers(ctx context.Context) ([]*models.User, error) {
	return d.persistence.UserRepository().List(ctx)
}

// CreateUser registers a user. An empty access token is replaced by a random one, which
// is returned once on the created user.
func (d *Directory) CreateUser(ctx context.Context, actor *models.User, user *models.User) (_ *models.User, err error) {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "user.create")
	defer func() { endSpan(span, err) }()

	err = requireAdmin("CreateUser", actor)
	if err != nil {
		return nil, err
	}

	created := &models.User{
		UserName:    user.UserName,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		AccessToken: user.AccessToken,
		Admin:       user.Admin,
		RoleIDs:     user.RoleIDs,
	}

	err = validateModel("CreateUser", created)
	if err != nil {
		return nil, err
	}

	if created.AccessToken == "" {
		created.AccessToken = NewAccessToken()
	}

	err = transact(ctx, d.persistence, d.logger, "user.create", func(ctx context.Context, repos persistence.Repositories) error {
		created.ID = ""

		for _, roleID := range created.RoleIDs {
			_, err := repos.RoleRepository().GetByID(ctx, roleID)
			if err != nil {
				return err
			}
		}

		return repos.UserRepository().Create(ctx, created)
	})
	if err != nil {
		return nil, translateDuplicate("CreateUser", "user", err)
	}

	if created.RoleIDs == nil {
		created.RoleIDs = []string{}
	}

	d.permissions.Invalidate(ctx)
	span.SetAttributes(attribute.String(otelhelper.UserIDKey, created.ID))

	return created, nil
}

func (d *Directory) ListRoles(ctx context.Context) ([]*models.Role, error) {
	return d.persistence.RoleRepository().List(ctx)
}

func (d *Directory) FetchRole(ctx context.Context, id string) (*models.Role, error) {
	return d.persistence.RoleRepository().GetByID(ctx, id)
}

// CreateRole registers a role.
func (d *Directory) CreateRole(ctx context.Context, actor *models.User, role *models.Role) (_ *models.Role, err error) {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "role.create")
	defer func() { endSpan(span, err) }()

	err = requireAdmin("CreateRole", actor)
	if err != nil {
		return nil, err
	}

	created := &models.Role{Name: role.Name, Description: role.Description}

	err = validateModel("CreateRole", created)
	if err != nil {
		return nil, err
	}

	err = transact(ctx, d.persistence, d.logger, "role.create", func(ctx context.Context, repos persistence.Repositories) error {
		created.ID = ""

		return repos.RoleRepository().Create(ctx, created)
	})
	if err != nil {
		return nil, translateDuplicate("CreateRole", "role", err)
	}

	created.MemberIDs = []string{}
	span.SetAttributes(attribute.String(otelhelper.RoleIDKey, created.ID))

	return created, nil
}

// AddMember puts a user in a role. Adding an existing member is a no-op.
func (d *Directory) AddMember(ctx context.Context, actor *models.User, roleID, userID string) (*models.Role, error) {
	return d.changeMembership(ctx, actor, roleID, userID, "AddMember", func(ctx context.Context, roles persistence.RoleRepository) error {
		return roles.AddMember(ctx, roleID, userID)
	})
}

// RemoveMember takes a user out of a role. Removing a non-member is a no-op.
func (d *Directory) RemoveMember(ctx context.Context, actor *models.User, roleID, userID string) (*models.Role, error) {
	return d.changeMembership(ctx, actor, roleID, userID, "RemoveMember", func(ctx context.Context, roles persistence.RoleRepository) error {
		return roles.RemoveMember(ctx, roleID, userID)
	})
}

func (d *Directory) changeMembership(
	ctx context.Context,
	actor *models.User,
	roleID, userID, op string,
	change func(ctx context.Context, roles persistence.RoleRepository) error,
) (_ *models.Role, err error) {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "role.membership",
		attribute.String(otelhelper.RoleIDKey, roleID),
		attribute.String(otelhelper.UserIDKey, userID),
	)
	defer func() { endSpan(span, err) }()

	if actor == nil {
		return nil, requireUser(op, actor)
	}

	var role *models.Role

	err = transact(ctx, d.persistence, d.logger, "role.membership", func(ctx context.Context, repos persistence.Repositories) error {
		_, err := repos.RoleRepository().GetByID(ctx, roleID)
		if err != nil {
			return err
		}

		_, err = repos.UserRepository().GetByID(ctx, userID)
		if err != nil {
			return err
		}

		err = requireAdmin(op, actor)
		if err != nil {
			return err
		}

		err = change(ctx, repos.RoleRepository())
		if err != nil {
			return err
		}

		role, err = repos.RoleRepository().GetByID(ctx, roleID)

		return err
	})
	if err != nil {
		return nil, err
	}

	d.permissions.Invalidate(ctx)

	return role, nil
}

func requireAdmin(op string, actor *models.User) error {
	err := requireUser(op, actor)
	if err != nil {
		return err
	}

	if !actor.Admin {
		return &ServiceError{Op: op, Code: "forbidden", Message: "administrator access required", Err: ErrForbidden}
	}

	return nil
}

func translateDuplicate(op, entity string, err error) error {
	if errors.Is(err, persistence.ErrDuplicate) {
		return &ServiceError{Op: op, Code: "duplicate", Message: "a " + entity + " with this name already exists", Err: ErrDuplicate}
	}

	return err
}

// NewAccessToken returns a random bearer token.
func NewAccessToken() string {
	return rand.Text()
}
