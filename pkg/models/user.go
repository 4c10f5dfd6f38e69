package models

import "time"

// User is an authenticated member of the newsroom.
type User struct {
	ID          string    `json:"id"`
	UserName    string    `json:"user_name"   validate:"required,max=256"`
	Email       string    `json:"email"       validate:"omitempty,email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	AccessToken string    `json:"-"`
	Admin       bool      `json:"admin"`
	RoleIDs     []string  `json:"role_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Role groups users that share grants.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"                 validate:"required,max=256"`
	Description string    `json:"description"          validate:"max=1000"`
	MemberIDs   []string  `json:"member_ids,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
