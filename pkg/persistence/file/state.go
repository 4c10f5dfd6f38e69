package file

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/dukex/newsroom/pkg/models"
)

// state is the whole store. Role memberships are kept by role ID.
type state struct {
	Workflows map[string]*models.Workflow `json:"workflows"`
	Stages    map[string]*models.Stage    `json:"stages"`
	Documents map[string]*models.Document `json:"documents"`
	Grants    map[string]*models.Grant    `json:"grants"`
	Users     map[string]*models.User     `json:"users"`
	Roles     map[string]*models.Role     `json:"roles"`
	Members   map[string][]string         `json:"members"`
}

func newState() *state {
	s := &state{}
	s.ensure()

	return s
}

func (s *state) ensure() {
	if s.Workflows == nil {
		s.Workflows = map[string]*models.Workflow{}
	}

	if s.Stages == nil {
		s.Stages = map[string]*models.Stage{}
	}

	if s.Documents == nil {
		s.Documents = map[string]*models.Document{}
	}

	if s.Grants == nil {
		s.Grants = map[string]*models.Grant{}
	}

	if s.Users == nil {
		s.Users = map[string]*models.User{}
	}

	if s.Roles == nil {
		s.Roles = map[string]*models.Role{}
	}

	if s.Members == nil {
		s.Members = map[string][]string{}
	}
}

func (s *state) clone() (*state, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to copy state: %w", err)
	}

	out := &state{}

	err = json.Unmarshal(data, out)
	if err != nil {
		return nil, fmt.Errorf("failed to copy state: %w", err)
	}

	out.ensure()

	return out, nil
}

// The copy helpers keep callers from mutating stored records through returned pointers.

func copyWorkflow(w *models.Workflow) *models.Workflow {
	c := *w
	c.Stages = nil

	return &c
}

func copyStage(st *models.Stage) *models.Stage {
	c := *st

	if st.Trigger != nil {
		trigger := *st.Trigger
		trigger.Config = maps.Clone(st.Trigger.Config)
		c.Trigger = &trigger
	}

	return &c
}

func copyDocument(d *models.Document) *models.Document {
	c := *d
	c.WorkflowID = copyStringPtr(d.WorkflowID)
	c.StageID = copyStringPtr(d.StageID)

	return &c
}

func copyGrant(g *models.Grant) *models.Grant {
	c := *g

	return &c
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.RoleIDs = slices.Clone(u.RoleIDs)

	return &c
}

func copyRole(r *models.Role) *models.Role {
	c := *r
	c.MemberIDs = slices.Clone(r.MemberIDs)

	return &c
}

func copyStringPtr(v *string) *string {
	if v == nil {
		return nil
	}

	c := *v

	return &c
}
