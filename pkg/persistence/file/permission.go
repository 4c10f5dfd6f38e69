package file

import (
	"context"
	"sort"
	"time"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/persistence"
)

type permissionRepository struct {
	s session
}

func (r *permissionRepository) FindGrant(
	_ context.Context,
	grantee models.Grantee,
	target models.Target,
) (*models.Grant, error) {
	var grant *models.Grant

	err := r.s.read(func(s *state) error {
		stored := findGrant(s, grantee, target)
		if stored == nil {
			return persistence.NewEntityError("FindGrant", "grant", "", persistence.ErrGrantNotFound)
		}

		grant = copyGrant(stored)

		return nil
	})

	return grant, err
}

func (r *permissionRepository) Upsert(_ context.Context, grant *models.Grant) error {
	return r.s.write(func(s *state) error {
		if stored := findGrant(s, grant.Grantee, grant.Target); stored != nil {
			stored.Access = grant.Access
			stored.UpdatedAt = time.Now().UTC()

			grant.ID = stored.ID
			grant.CreatedAt = stored.CreatedAt
			grant.UpdatedAt = stored.UpdatedAt

			return nil
		}

		grant.ID = ""
		grant.CreatedAt = time.Time{}

		err := stamp(&grant.ID, &grant.CreatedAt, &grant.UpdatedAt)
		if err != nil {
			return err
		}

		s.Grants[grant.ID] = copyGrant(grant)

		return nil
	})
}

func (r *permissionRepository) GetByID(_ context.Context, id string) (*models.Grant, error) {
	var grant *models.Grant

	err := r.s.read(func(s *state) error {
		stored, ok := s.Grants[id]
		if !ok {
			return persistence.NewEntityError("GetByID", "grant", id, persistence.ErrGrantNotFound)
		}

		grant = copyGrant(stored)

		return nil
	})

	return grant, err
}

func (r *permissionRepository) ListByTarget(_ context.Context, target models.Target) ([]*models.Grant, error) {
	grants := make([]*models.Grant, 0)

	err := r.s.read(func(s *state) error {
		for _, stored := range s.Grants {
			if stored.Target == target {
				grants = append(grants, copyGrant(stored))
			}
		}

		return nil
	})

	sort.Slice(grants, func(i, j int) bool {
		if grants[i].Grantee.Type != grants[j].Grantee.Type {
			return grants[i].Grantee.Type < grants[j].Grantee.Type
		}

		return grants[i].Grantee.ID < grants[j].Grantee.ID
	})

	return grants, err
}

func (r *permissionRepository) Delete(_ context.Context, id string) error {
	return r.s.write(func(s *state) error {
		if _, ok := s.Grants[id]; !ok {
			return persistence.NewEntityError("Delete", "grant", id, persistence.ErrGrantNotFound)
		}

		delete(s.Grants, id)

		return nil
	})
}

func (r *permissionRepository) DeleteByTarget(_ context.Context, target models.Target) error {
	return r.s.write(func(s *state) error {
		for id, stored := range s.Grants {
			if stored.Target == target {
				delete(s.Grants, id)
			}
		}

		return nil
	})
}

func (r *permissionRepository) DeleteByGrantee(_ context.Context, grantee models.Grantee) error {
	return r.s.write(func(s *state) error {
		for id, stored := range s.Grants {
			if stored.Grantee == grantee {
				delete(s.Grants, id)
			}
		}

		return nil
	})
}

func findGrant(s *state, grantee models.Grantee, target models.Target) *models.Grant {
	for _, stored := range s.Grants {
		if stored.Grantee == grantee && stored.Target == target {
			return stored
		}
	}

	return nil
}
