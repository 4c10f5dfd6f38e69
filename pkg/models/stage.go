package models

import "time"

// Stage is one step of a workflow. SequenceID is the 1-based position of the stage
// inside its workflow; the positions of a workflow are always exactly 1..N.
type Stage struct {
	ID          string    `json:"id"`
	WorkflowID  string    `json:"workflow_id"      validate:"required"`
	SequenceID  int       `json:"sequence_id"      validate:"min=1"`
	Name        string    `json:"name"             validate:"required,max=256"`
	Description string    `json:"description"      validate:"max=1000"`
	CreatorID   string    `json:"creator_id"`
	Trigger     *Trigger  `json:"trigger,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Trigger describes an external notification fired when a document arrives in a stage.
type Trigger struct {
	Type   string         `json:"type"   validate:"required"`
	Config map[string]any `json:"config"`
}

// StagesBySequence orders stages by their position.
type StagesBySequence []*Stage

func (s StagesBySequence) Len() int           { return len(s) }
func (s StagesBySequence) Less(i, j int) bool { return s[i].SequenceID < s[j].SequenceID }
func (s StagesBySequence) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
