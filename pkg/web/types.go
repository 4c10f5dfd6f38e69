// Package web provides the HTTP API of the newsroom.
package web

import (
	"github.com/dukex/newsroom/pkg/models"
)

// CreateWorkflowRequest represents the request body for creating a new workflow.
type CreateWorkflowRequest struct {
	Name        string `json:"name"        validate:"required,max=256"`
	Description string `json:"description" validate:"max=1000"`
}

// UpdateWorkflowRequest represents the request body for updating a workflow.
// All fields are optional to support partial updates.
type UpdateWorkflowRequest struct {
	Name        *string `json:"name,omitempty"        validate:"omitempty,max=256"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
}

// CreateStageRequest represents the request body for adding a stage to a workflow.
// Without a position the stage is appended.
type CreateStageRequest struct {
	Name        string          `json:"name"              validate:"required,max=256"`
	Description string          `json:"description"       validate:"max=1000"`
	Position    *int            `json:"position,omitempty"`
	Trigger     *models.Trigger `json:"trigger,omitempty"`
}

type UpdateStageRequest struct {
	Name        *string         `json:"name,omitempty"        validate:"omitempty,max=256"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=1000"`
	Trigger     *models.Trigger `json:"trigger,omitempty"`
}

type MoveStageRequest struct {
	Position *int `json:"position" validate:"required"`
}

// CreateDocumentRequest places the document in stage_id, or in the first stage of
// workflow_id, or nowhere when both are empty.
type CreateDocumentRequest struct {
	Name        string  `json:"name"                  validate:"required,max=256"`
	Description string  `json:"description"           validate:"max=1000"`
	Content     string  `json:"content"`
	Comments    string  `json:"comments"`
	WorkflowID  *string `json:"workflow_id,omitempty"`
	StageID     *string `json:"stage_id,omitempty"`
}

type UpdateDocumentRequest struct {
	Name        *string `json:"name,omitempty"        validate:"omitempty,max=256"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Content     *string `json:"content,omitempty"`
	Comments    *string `json:"comments,omitempty"`
}

// UpsertGrantRequest sets the access of a role or user on the target of the URL.
type UpsertGrantRequest struct {
	GranteeType string `json:"grantee_type" validate:"required,oneof=role user"`
	GranteeID   string `json:"grantee_id"   validate:"required"`
	Access      *int   `json:"access"       validate:"required,oneof=0 1"`
}

type CreateUserRequest struct {
	UserName    string   `json:"user_name"              validate:"required,max=256"`
	Email       string   `json:"email,omitempty"        validate:"omitempty,email"`
	FirstName   string   `json:"first_name,omitempty"`
	LastName    string   `json:"last_name,omitempty"`
	AccessToken string   `json:"access_token,omitempty" validate:"omitempty,min=16"`
	Admin       bool     `json:"admin"`
	RoleIDs     []string `json:"role_ids,omitempty"`
}

type CreateRoleRequest struct {
	Name        string `json:"name"        validate:"required,max=256"`
	Description string `json:"description" validate:"max=1000"`
}

// CreatedUserResponse is the only response that carries a user's access token.
type CreatedUserResponse struct {
	*models.User

	AccessToken string `json:"access_token"`
}

// AccessResponse is the effective access of the caller on a workflow or stage.
type AccessResponse struct {
	TargetType models.TargetType  `json:"target_type"`
	TargetID   string             `json:"target_id"`
	Access     models.AccessLevel `json:"access"`
	Level      string             `json:"level"`
}

func valueOrEmpty(value *string) string {
	if value == nil {
		return ""
	}

	return *value
}
