package file

import (
	"context"
	"sort"
	"time"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/persistence"
)

type stageRepository struct {
	s session
}

func (r *stageRepository) GetByID(_ context.Context, id string) (*models.Stage, error) {
	var stage *models.Stage

	err := r.s.read(func(s *state) error {
		stored, ok := s.Stages[id]
		if !ok {
			return persistence.NewEntityError("GetByID", "stage", id, persistence.ErrStageNotFound)
		}

		stage = copyStage(stored)

		return nil
	})

	return stage, err
}

func (r *stageRepository) FindByWorkflow(_ context.Context, workflowID string) ([]*models.Stage, error) {
	var stages []*models.Stage

	err := r.s.read(func(s *state) error {
		stages = workflowStages(s, workflowID)

		return nil
	})

	return stages, err
}

// LockByWorkflow needs no extra locking here: transactions already hold the store lock.
func (r *stageRepository) LockByWorkflow(_ context.Context, workflowID string) ([]*models.Stage, error) {
	var stages []*models.Stage

	err := r.s.read(func(s *state) error {
		if _, ok := s.Workflows[workflowID]; !ok {
			return persistence.NewEntityError("LockByWorkflow", "workflow", workflowID, persistence.ErrWorkflowNotFound)
		}

		stages = workflowStages(s, workflowID)

		return nil
	})

	return stages, err
}

func (r *stageRepository) Create(_ context.Context, stage *models.Stage) error {
	return r.s.write(func(s *state) error {
		if _, ok := s.Workflows[stage.WorkflowID]; !ok {
			return persistence.NewEntityError("Create", "workflow", stage.WorkflowID, persistence.ErrWorkflowNotFound)
		}

		if sequenceTaken(s, stage.WorkflowID, stage.SequenceID, "") {
			return persistence.ErrConflict
		}

		err := stamp(&stage.ID, &stage.CreatedAt, &stage.UpdatedAt)
		if err != nil {
			return err
		}

		s.Stages[stage.ID] = copyStage(stage)

		return nil
	})
}

func (r *stageRepository) Save(_ context.Context, stage *models.Stage) error {
	return r.s.write(func(s *state) error {
		stored, ok := s.Stages[stage.ID]
		if !ok {
			return persistence.NewEntityError("Save", "stage", stage.ID, persistence.ErrStageNotFound)
		}

		stage.UpdatedAt = time.Now().UTC()
		updated := copyStage(stage)
		stored.Name = updated.Name
		stored.Description = updated.Description
		stored.Trigger = updated.Trigger
		stored.UpdatedAt = updated.UpdatedAt

		return nil
	})
}

func (r *stageRepository) UpdateSequenceID(_ context.Context, id string, sequenceID int) error {
	return r.s.write(func(s *state) error {
		stored, ok := s.Stages[id]
		if !ok {
			return persistence.NewEntityError("UpdateSequenceID", "stage", id, persistence.ErrStageNotFound)
		}

		if sequenceTaken(s, stored.WorkflowID, sequenceID, id) {
			return persistence.ErrConflict
		}

		stored.SequenceID = sequenceID
		stored.UpdatedAt = time.Now().UTC()

		return nil
	})
}

func (r *stageRepository) Delete(_ context.Context, id string) error {
	return r.s.write(func(s *state) error {
		if _, ok := s.Stages[id]; !ok {
			return persistence.NewEntityError("Delete", "stage", id, persistence.ErrStageNotFound)
		}

		delete(s.Stages, id)

		return nil
	})
}

func (r *stageRepository) DeleteByWorkflow(_ context.Context, workflowID string) error {
	return r.s.write(func(s *state) error {
		for id, stored := range s.Stages {
			if stored.WorkflowID == workflowID {
				delete(s.Stages, id)
			}
		}

		return nil
	})
}

func workflowStages(s *state, workflowID string) []*models.Stage {
	stages := make([]*models.Stage, 0)

	for _, stored := range s.Stages {
		if stored.WorkflowID == workflowID {
			stages = append(stages, copyStage(stored))
		}
	}

	sort.Sort(models.StagesBySequence(stages))

	return stages
}

func sequenceTaken(s *state, workflowID string, sequenceID int, exceptID string) bool {
	for id, stored := range s.Stages {
		if id != exceptID && stored.WorkflowID == workflowID && stored.SequenceID == sequenceID {
			return true
		}
	}

	return false
}
