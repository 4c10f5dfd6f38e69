package services

import (
	"context"
	"log/slog"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/otelhelper"
	"github.com/dukex/newsroom/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Grants manages role and user grants on workflows and stages.
type Grants struct {
	persistence persistence.Persistence
	permissions *PermissionResolver
	tracer      trace.Tracer
	logger      *slog.Logger
}

func NewGrants(store persistence.Persistence, permissions *PermissionResolver, logger *slog.Logger) *Grants {
	return &Grants{
		persistence: store,
		permissions: permissions,
		tracer:      otelhelper.Tracer(tracerName),
		logger:      logger.With("module", "grant_service"),
	}
}

// List returns the grants on an existing target.
func (g *Grants) List(ctx context.Context, target models.Target) ([]*models.Grant, error) {
	err := targetExists(ctx, g.persistence, target)
	if err != nil {
		return nil, err
	}

	return g.persistence.PermissionRepository().ListByTarget(ctx, target)
}

// Access returns the effective access of user on an existing target. An anonymous
// caller gets READ.
func (g *Grants) Access(ctx context.Context, user *models.User, target models.Target) (models.AccessLevel, error) {
	err := targetExists(ctx, g.persistence, target)
	if err != nil {
		return models.AccessRead, err
	}

	return g.permissions.AccessFor(ctx, g.persistence, user, target)
}

// Upsert creates or replaces the grant of grantee on target. Requires WRITE on target.
func (g *Grants) Upsert(
	ctx context.Context,
	user *models.User,
	target models.Target,
	grantee models.Grantee,
	access models.AccessLevel,
) (_ *models.Grant, err error) {
	ctx, span := otelhelper.StartSpan(ctx, g.tracer, "grant.upsert",
		attribute.String(otelhelper.TargetTypeKey, string(target.Type)),
		attribute.String(otelhelper.TargetIDKey, target.ID),
	)
	defer func() { endSpan(span, err) }()

	err = requireUser("Upsert", user)
	if err != nil {
		return nil, err
	}

	grant := &models.Grant{Grantee: grantee, Target: target, Access: access}

	err = validateModel("Upsert", grant)
	if err != nil {
		return nil, err
	}

	err = transact(ctx, g.persistence, g.logger, "grant.upsert", func(ctx context.Context, repos persistence.Repositories) error {
		err := targetExists(ctx, repos, target)
		if err != nil {
			return err
		}

		err = granteeExists(ctx, repos, grantee)
		if err != nil {
			return err
		}

		err = g.permissions.CheckWrite(ctx, repos, user, target, "Upsert")
		if err != nil {
			return err
		}

		return repos.PermissionRepository().Upsert(ctx, grant)
	})
	if err != nil {
		return nil, err
	}

	g.permissions.Invalidate(ctx)

	return grant, nil
}

// Delete removes a grant. Requires WRITE on the grant's target.
func (g *Grants) Delete(ctx context.Context, user *models.User, id string) (err error) {
	ctx, span := otelhelper.StartSpan(ctx, g.tracer, "grant.delete")
	defer func() { endSpan(span, err) }()

	err = requireUser("Delete", user)
	if err != nil {
		return err
	}

	err = transact(ctx, g.persistence, g.logger, "grant.delete", func(ctx context.Context, repos persistence.Repositories) error {
		grant, err := repos.PermissionRepository().GetByID(ctx, id)
		if err != nil {
			return err
		}

		err = g.permissions.CheckWrite(ctx, repos, user, grant.Target, "Delete")
		if err != nil {
			return err
		}

		return repos.PermissionRepository().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	g.permissions.Invalidate(ctx)

	return nil
}

func targetExists(ctx context.Context, repos persistence.Repositories, target models.Target) error {
	var err error

	switch target.Type {
	case models.TargetWorkflow:
		_, err = repos.WorkflowRepository().GetByID(ctx, target.ID)
	case models.TargetStage:
		_, err = repos.StageRepository().GetByID(ctx, target.ID)
	default:
		err = NewValidationError("targetExists", "invalid_target", "target type must be workflow or stage", ErrInvalidRequest)
	}

	return err
}

func granteeExists(ctx context.Context, repos persistence.Repositories, grantee models.Grantee) error {
	var err error

	switch grantee.Type {
	case models.GranteeRole:
		_, err = repos.RoleRepository().GetByID(ctx, grantee.ID)
	case models.GranteeUser:
		_, err = repos.UserRepository().GetByID(ctx, grantee.ID)
	}

	return err
}
