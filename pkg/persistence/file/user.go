package file

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/persistence"
)

type userRepository struct {
	s session
}

func (r *userRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	return r.find("GetByID", id, func(u *models.User) bool { return u.ID == id })
}

func (r *userRepository) GetByAccessToken(_ context.Context, token string) (*models.User, error) {
	return r.find("GetByAccessToken", "", func(u *models.User) bool {
		return token != "" && u.AccessToken == token
	})
}

func (r *userRepository) GetByUserName(_ context.Context, userName string) (*models.User, error) {
	return r.find("GetByUserName", userName, func(u *models.User) bool { return u.UserName == userName })
}

func (r *userRepository) find(op, key string, match func(u *models.User) bool) (*models.User, error) {
	var user *models.User

	err := r.s.read(func(s *state) error {
		for _, stored := range s.Users {
			if match(stored) {
				user = copyUser(stored)
				user.RoleIDs = userRoles(s, user.ID)

				return nil
			}
		}

		return persistence.NewEntityError(op, "user", key, persistence.ErrUserNotFound)
	})

	return user, err
}

func (r *userRepository) List(_ context.Context) ([]*models.User, error) {
	users := make([]*models.User, 0)

	err := r.s.read(func(s *state) error {
		for _, stored := range s.Users {
			user := copyUser(stored)
			user.RoleIDs = []string{}
			users = append(users, user)
		}

		return nil
	})

	sort.Slice(users, func(i, j int) bool { return users[i].UserName < users[j].UserName })

	return users, err
}

func (r *userRepository) Create(_ context.Context, user *models.User) error {
	return r.s.write(func(s *state) error {
		for _, stored := range s.Users {
			if stored.UserName == user.UserName || (user.AccessToken != "" && stored.AccessToken == user.AccessToken) {
				return persistence.ErrDuplicate
			}
		}

		err := stamp(&user.ID, &user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			return err
		}

		stored := copyUser(user)
		stored.RoleIDs = nil
		s.Users[user.ID] = stored

		for _, roleID := range user.RoleIDs {
			addMember(s, roleID, user.ID)
		}

		return nil
	})
}

func (r *userRepository) Save(_ context.Context, user *models.User) error {
	return r.s.write(func(s *state) error {
		stored, ok := s.Users[user.ID]
		if !ok {
			return persistence.NewEntityError("Save", "user", user.ID, persistence.ErrUserNotFound)
		}

		for id, other := range s.Users {
			if id != user.ID && user.AccessToken != "" && other.AccessToken == user.AccessToken {
				return persistence.ErrDuplicate
			}
		}

		user.UpdatedAt = time.Now().UTC()
		stored.Email = user.Email
		stored.FirstName = user.FirstName
		stored.LastName = user.LastName
		stored.AccessToken = user.AccessToken
		stored.Admin = user.Admin
		stored.UpdatedAt = user.UpdatedAt

		return nil
	})
}

func userRoles(s *state, userID string) []string {
	roles := make([]string, 0)

	for roleID, members := range s.Members {
		if slices.Contains(members, userID) {
			roles = append(roles, roleID)
		}
	}

	sort.Strings(roles)

	return roles
}

func addMember(s *state, roleID, userID string) {
	if slices.Contains(s.Members[roleID], userID) {
		return
	}

	s.Members[roleID] = append(s.Members[roleID], userID)
	sort.Strings(s.Members[roleID])
}
