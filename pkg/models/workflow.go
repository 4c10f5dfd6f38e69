// Package models defines the domain entities of the newsroom: workflows, their ordered
// stages, documents moving through them and the grants that control who may change them.
package models

import "time"

const (
	MaxNameLength        = 256
	MaxDescriptionLength = 1000
)

// Workflow is a named, ordered sequence of stages.
type Workflow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"             validate:"required,max=256"`
	Description string    `json:"description"      validate:"max=1000"`
	CreatorID   string    `json:"creator_id"`
	Stages      []*Stage  `json:"stages,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
