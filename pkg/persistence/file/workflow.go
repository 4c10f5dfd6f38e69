package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/persistence"
	"github.com/google/uuid"
)

type workflowRepository struct {
	s session
}

func (r *workflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	var workflow *models.Workflow

	err := r.s.read(func(s *state) error {
		stored, ok := s.Workflows[id]
		if !ok {
			return persistence.NewEntityError("GetByID", "workflow", id, persistence.ErrWorkflowNotFound)
		}

		workflow = copyWorkflow(stored)

		return nil
	})

	return workflow, err
}

func (r *workflowRepository) GetByName(_ context.Context, name string) (*models.Workflow, error) {
	var workflow *models.Workflow

	err := r.s.read(func(s *state) error {
		for _, stored := range s.Workflows {
			if stored.Name == name {
				workflow = copyWorkflow(stored)

				return nil
			}
		}

		return persistence.NewEntityError("GetByName", "workflow", name, persistence.ErrWorkflowNotFound)
	})

	return workflow, err
}

func (r *workflowRepository) List(_ context.Context) ([]*models.Workflow, error) {
	workflows := make([]*models.Workflow, 0)

	err := r.s.read(func(s *state) error {
		for _, stored := range s.Workflows {
			workflows = append(workflows, copyWorkflow(stored))
		}

		return nil
	})

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].Name < workflows[j].Name
	})

	return workflows, err
}

func (r *workflowRepository) Create(_ context.Context, workflow *models.Workflow) error {
	return r.s.write(func(s *state) error {
		if nameTaken(s, workflow.Name, "") {
			return persistence.ErrWorkflowNameExists
		}

		err := stamp(&workflow.ID, &workflow.CreatedAt, &workflow.UpdatedAt)
		if err != nil {
			return err
		}

		s.Workflows[workflow.ID] = copyWorkflow(workflow)

		return nil
	})
}

func (r *workflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	return r.s.write(func(s *state) error {
		stored, ok := s.Workflows[workflow.ID]
		if !ok {
			return persistence.NewEntityError("Save", "workflow", workflow.ID, persistence.ErrWorkflowNotFound)
		}

		if nameTaken(s, workflow.Name, workflow.ID) {
			return persistence.ErrWorkflowNameExists
		}

		workflow.UpdatedAt = time.Now().UTC()
		stored.Name = workflow.Name
		stored.Description = workflow.Description
		stored.UpdatedAt = workflow.UpdatedAt

		return nil
	})
}

func (r *workflowRepository) Delete(_ context.Context, id string) error {
	return r.s.write(func(s *state) error {
		if _, ok := s.Workflows[id]; !ok {
			return persistence.NewEntityError("Delete", "workflow", id, persistence.ErrWorkflowNotFound)
		}

		delete(s.Workflows, id)

		return nil
	})
}

func nameTaken(s *state, name, exceptID string) bool {
	for id, stored := range s.Workflows {
		if id != exceptID && stored.Name == name {
			return true
		}
	}

	return false
}

// stamp assigns a v7 ID when missing and sets timestamps.
func stamp(id *string, createdAt, updatedAt *time.Time) error {
	now := time.Now().UTC()

	if *id == "" {
		generated, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate ID: %w", err)
		}

		*id = generated.String()
	}

	if createdAt.IsZero() {
		*createdAt = now
	}

	*updatedAt = now

	return nil
}
