package models

import "time"

type GranteeType string

const (
	GranteeRole GranteeType = "role"
	GranteeUser GranteeType = "user"
)

type TargetType string

const (
	TargetWorkflow TargetType = "workflow"
	TargetStage    TargetType = "stage"
)

// Grantee is the role or user a grant is given to.
type Grantee struct {
	Type GranteeType `json:"type" validate:"required,oneof=role user"`
	ID   string      `json:"id"   validate:"required"`
}

// Target is the workflow or stage a grant governs.
type Target struct {
	Type TargetType `json:"type" validate:"required,oneof=workflow stage"`
	ID   string     `json:"id"   validate:"required"`
}

func WorkflowTarget(id string) Target { return Target{Type: TargetWorkflow, ID: id} }

func StageTarget(id string) Target { return Target{Type: TargetStage, ID: id} }

func RoleGrantee(id string) Grantee { return Grantee{Type: GranteeRole, ID: id} }

func UserGrantee(id string) Grantee { return Grantee{Type: GranteeUser, ID: id} }

// Grant gives a grantee an access level on a target. There is at most one grant
// per (grantee, target) pair.
type Grant struct {
	ID        string      `json:"id"`
	Grantee   Grantee     `json:"grantee"`
	Target    Target      `json:"target"`
	Access    AccessLevel `json:"access"     validate:"min=0,max=1"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
