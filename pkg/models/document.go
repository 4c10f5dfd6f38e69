package models

import "time"

// Document is a piece of content moving through the stages of a workflow.
// WorkflowID and StageID are cleared when the stage or workflow holding it is deleted.
type Document struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"                    validate:"required,max=256"`
	Description string    `json:"description"             validate:"max=1000"`
	Content     string    `json:"content"`
	Comments    string    `json:"comments"`
	CreatorID   string    `json:"creator_id"`
	WorkflowID  *string   `json:"workflow_id,omitempty"`
	StageID     *string   `json:"stage_id,omitempty"`
	GoogleDocID string    `json:"google_doc_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Orphaned reports whether the document lost its stage.
func (d *Document) Orphaned() bool {
	return d.StageID == nil
}
