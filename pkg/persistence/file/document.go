package file

import (
	"context"
	"sort"
	"time"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/persistence"
)

type documentRepository struct {
	s session
}

func (r *documentRepository) GetByID(_ context.Context, id string) (*models.Document, error) {
	var document *models.Document

	err := r.s.read(func(s *state) error {
		stored, ok := s.Documents[id]
		if !ok {
			return persistence.NewEntityError("GetByID", "document", id, persistence.ErrDocumentNotFound)
		}

		document = copyDocument(stored)

		return nil
	})

	return document, err
}

func (r *documentRepository) List(_ context.Context, filter persistence.DocumentFilter) ([]*models.Document, error) {
	documents := make([]*models.Document, 0)

	err := r.s.read(func(s *state) error {
		for _, stored := range s.Documents {
			if filter.WorkflowID != "" && (stored.WorkflowID == nil || *stored.WorkflowID != filter.WorkflowID) {
				continue
			}

			if filter.StageID != "" && (stored.StageID == nil || *stored.StageID != filter.StageID) {
				continue
			}

			if filter.Orphaned && !stored.Orphaned() {
				continue
			}

			documents = append(documents, copyDocument(stored))
		}

		return nil
	})

	sort.Slice(documents, func(i, j int) bool {
		if documents[i].CreatedAt.Equal(documents[j].CreatedAt) {
			return documents[i].ID < documents[j].ID
		}

		return documents[i].CreatedAt.Before(documents[j].CreatedAt)
	})

	return documents, err
}

func (r *documentRepository) Create(_ context.Context, document *models.Document) error {
	return r.s.write(func(s *state) error {
		err := stamp(&document.ID, &document.CreatedAt, &document.UpdatedAt)
		if err != nil {
			return err
		}

		s.Documents[document.ID] = copyDocument(document)

		return nil
	})
}

func (r *documentRepository) Save(_ context.Context, document *models.Document) error {
	return r.s.write(func(s *state) error {
		stored, ok := s.Documents[document.ID]
		if !ok {
			return persistence.NewEntityError("Save", "document", document.ID, persistence.ErrDocumentNotFound)
		}

		document.UpdatedAt = time.Now().UTC()
		document.CreatedAt = stored.CreatedAt
		document.CreatorID = stored.CreatorID
		s.Documents[document.ID] = copyDocument(document)

		return nil
	})
}

func (r *documentRepository) Delete(_ context.Context, id string) error {
	return r.s.write(func(s *state) error {
		if _, ok := s.Documents[id]; !ok {
			return persistence.NewEntityError("Delete", "document", id, persistence.ErrDocumentNotFound)
		}

		delete(s.Documents, id)

		return nil
	})
}

func (r *documentRepository) SetGoogleDocID(_ context.Context, id, googleDocID string) error {
	return r.s.write(func(s *state) error {
		stored, ok := s.Documents[id]
		if !ok {
			return persistence.NewEntityError("SetGoogleDocID", "document", id, persistence.ErrDocumentNotFound)
		}

		stored.GoogleDocID = googleDocID

		return nil
	})
}

func (r *documentRepository) ClearStage(_ context.Context, stageID string) error {
	return r.s.write(func(s *state) error {
		now := time.Now().UTC()

		for _, stored := range s.Documents {
			if stored.StageID != nil && *stored.StageID == stageID {
				stored.StageID = nil
				stored.WorkflowID = nil
				stored.UpdatedAt = now
			}
		}

		return nil
	})
}

func (r *documentRepository) ClearWorkflow(_ context.Context, workflowID string) error {
	return r.s.write(func(s *state) error {
		now := time.Now().UTC()

		for _, stored := range s.Documents {
			inWorkflow := stored.WorkflowID != nil && *stored.WorkflowID == workflowID

			if stored.StageID != nil {
				if stage, ok := s.Stages[*stored.StageID]; ok && stage.WorkflowID == workflowID {
					inWorkflow = true
				}
			}

			if inWorkflow {
				stored.StageID = nil
				stored.WorkflowID = nil
				stored.UpdatedAt = now
			}
		}

		return nil
	})
}
