package file

import (
	"context"
	"slices"
	"sort"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/persistence"
)

type roleRepository struct {
	s session
}

func (r *roleRepository) GetByID(_ context.Context, id string) (*models.Role, error) {
	return r.find("GetByID", id, func(role *models.Role) bool { return role.ID == id })
}

func (r *roleRepository) GetByName(_ context.Context, name string) (*models.Role, error) {
	return r.find("GetByName", name, func(role *models.Role) bool { return role.Name == name })
}

func (r *roleRepository) find(op, key string, match func(role *models.Role) bool) (*models.Role, error) {
	var role *models.Role

	err := r.s.read(func(s *state) error {
		for _, stored := range s.Roles {
			if match(stored) {
				role = copyRole(stored)
				role.MemberIDs = slices.Clone(s.Members[role.ID])

				if role.MemberIDs == nil {
					role.MemberIDs = []string{}
				}

				return nil
			}
		}

		return persistence.NewEntityError(op, "role", key, persistence.ErrRoleNotFound)
	})

	return role, err
}

func (r *roleRepository) List(_ context.Context) ([]*models.Role, error) {
	roles := make([]*models.Role, 0)

	err := r.s.read(func(s *state) error {
		for _, stored := range s.Roles {
			roles = append(roles, copyRole(stored))
		}

		return nil
	})

	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })

	return roles, err
}

func (r *roleRepository) Create(_ context.Context, role *models.Role) error {
	return r.s.write(func(s *state) error {
		for _, stored := range s.Roles {
			if stored.Name == role.Name {
				return persistence.ErrDuplicate
			}
		}

		err := stamp(&role.ID, &role.CreatedAt, &role.UpdatedAt)
		if err != nil {
			return err
		}

		stored := copyRole(role)
		stored.MemberIDs = nil
		s.Roles[role.ID] = stored

		return nil
	})
}

func (r *roleRepository) AddMember(_ context.Context, roleID, userID string) error {
	return r.s.write(func(s *state) error {
		if _, ok := s.Roles[roleID]; !ok {
			return persistence.NewEntityError("AddMember", "role", roleID, persistence.ErrRoleNotFound)
		}

		if _, ok := s.Users[userID]; !ok {
			return persistence.NewEntityError("AddMember", "user", userID, persistence.ErrUserNotFound)
		}

		addMember(s, roleID, userID)

		return nil
	})
}

func (r *roleRepository) RemoveMember(_ context.Context, roleID, userID string) error {
	return r.s.write(func(s *state) error {
		s.Members[roleID] = slices.DeleteFunc(s.Members[roleID], func(id string) bool { return id == userID })

		return nil
	})
}

func (r *roleRepository) Members(_ context.Context, roleID string) ([]string, error) {
	members := make([]string, 0)

	err := r.s.read(func(s *state) error {
		members = append(members, s.Members[roleID]...)

		return nil
	})

	return members, err
}
