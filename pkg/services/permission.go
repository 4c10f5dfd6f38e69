package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/persistence"
)

// AccessCache stores resolved access levels. Implementations swallow and log their own
// failures: a miss is always safe.
type AccessCache interface {
	// Get returns the cached level and the generation the lookup was made in. A negative
	// generation means the cache is unusable and the result must not be stored.
	Get(ctx context.Context, userID string, target models.Target) (level models.AccessLevel, generation int64, ok bool)
	// Set stores level under the generation returned by the Get that missed. A fill
	// that races an Invalidate lands in a generation nobody reads anymore.
	Set(ctx context.Context, generation int64, userID string, target models.Target, level models.AccessLevel)
	// Invalidate drops every cached level. Called after any grant or membership change.
	Invalidate(ctx context.Context)
}

// Resolve is the access rule: admins write everywhere, everyone else gets the highest
// level among their grants, and no grant means READ.
func Resolve(grants []*models.Grant, isAdmin bool) models.AccessLevel {
	if isAdmin {
		return models.AccessWrite
	}

	level := models.AccessRead

	for _, grant := range grants {
		if grant.Access > level {
			level = grant.Access
		}
	}

	return level
}

// PermissionResolver computes a user's effective access on a workflow or stage. Workflow
// and stage targets are independent: a workflow grant says nothing about its stages.
type PermissionResolver struct {
	cache  AccessCache
	logger *slog.Logger
}

// NewPermissionResolver creates a resolver. cache may be nil.
func NewPermissionResolver(logger *slog.Logger, cache AccessCache) *PermissionResolver {
	return &PermissionResolver{
		cache:  cache,
		logger: logger.With("module", "permission_resolver"),
	}
}

// AccessFor returns the effective access of user on target.
func (r *PermissionResolver) AccessFor(
	ctx context.Context,
	repos persistence.Repositories,
	user *models.User,
	target models.Target,
) (models.AccessLevel, error) {
	if user == nil {
		return models.AccessRead, nil
	}

	if user.Admin {
		return models.AccessWrite, nil
	}

	generation := int64(-1)

	if r.cache != nil {
		var (
			level models.AccessLevel
			ok    bool
		)

		level, generation, ok = r.cache.Get(ctx, user.ID, target)
		if ok {
			return level, nil
		}
	}

	grants, err := r.collectGrants(ctx, repos.PermissionRepository(), user, target)
	if err != nil {
		return models.AccessRead, err
	}

	level := Resolve(grants, user.Admin)

	if r.cache != nil && generation >= 0 {
		r.cache.Set(ctx, generation, user.ID, target, level)
	}

	return level, nil
}

// collectGrants looks up the user's own grant and then each role grant, stopping at the
// first one that already allows writing.
func (r *PermissionResolver) collectGrants(
	ctx context.Context,
	permissions persistence.PermissionRepository,
	user *models.User,
	target models.Target,
) ([]*models.Grant, error) {
	grantees := make([]models.Grantee, 0, len(user.RoleIDs)+1)
	grantees = append(grantees, models.UserGrantee(user.ID))

	for _, roleID := range user.RoleIDs {
		grantees = append(grantees, models.RoleGrantee(roleID))
	}

	grants := make([]*models.Grant, 0, len(grantees))

	for _, grantee := range grantees {
		grant, err := permissions.FindGrant(ctx, grantee, target)
		if err != nil {
			if persistence.IsGrantNotFound(err) {
				continue
			}

			return nil, fmt.Errorf("failed to load grant: %w", err)
		}

		grants = append(grants, grant)

		if grant.Access.CanWrite() {
			break
		}
	}

	return grants, nil
}

// CheckWrite returns a forbidden error unless user may mutate target.
func (r *PermissionResolver) CheckWrite(
	ctx context.Context,
	repos persistence.Repositories,
	user *models.User,
	target models.Target,
	op string,
) error {
	if user == nil {
		return &ServiceError{Op: op, Code: "unauthorized", Message: "authentication required", Err: ErrUnauthenticated}
	}

	level, err := r.AccessFor(ctx, repos, user, target)
	if err != nil {
		return err
	}

	if !level.CanWrite() && !user.Admin {
		r.logger.InfoContext(ctx, "write denied",
			"op", op,
			"user_id", user.ID,
			"target_type", target.Type,
			"target_id", target.ID,
		)

		return NewForbiddenError(op, string(target.Type)+" "+target.ID)
	}

	return nil
}

// Invalidate drops cached levels after grants or memberships change.
func (r *PermissionResolver) Invalidate(ctx context.Context) {
	if r.cache != nil {
		r.cache.Invalidate(ctx)
	}
}
