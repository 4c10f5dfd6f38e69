package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/persistence"
)

// SequenceUpdate is one renumbering step. Steps must be applied in order so that no two
// stages of the workflow share a sequence id at any point.
type SequenceUpdate struct {
	StageID string
	From    int
	To      int
}

// SequenceAllocator keeps the stage sequence ids of a workflow dense (1..N). Every method
// works on the stage set returned by StageRepository.LockByWorkflow in the same
// transaction.
type SequenceAllocator struct {
	logger *slog.Logger
}

func NewSequenceAllocator(logger *slog.Logger) *SequenceAllocator {
	return &SequenceAllocator{logger: logger.With("module", "sequence_allocator")}
}

// ValidatePosition rejects positions that can never be valid, before any lookup.
func ValidatePosition(op string, position int) error {
	if position < 1 {
		return NewValidationError(op, "invalid_position",
			fmt.Sprintf("position must be at least 1, got %d", position), ErrInvalidPosition)
	}

	return nil
}

// Append returns the sequence id for a stage added at the end.
func (a *SequenceAllocator) Append(stages []*models.Stage) int {
	return maxSequence(stages) + 1
}

// InsertAt opens a gap at position by shifting every later stage up by one and returns
// the sequence id the new stage must take.
func (a *SequenceAllocator) InsertAt(
	ctx context.Context,
	repos persistence.Repositories,
	stages []*models.Stage,
	position int,
) (int, error) {
	updates, err := planInsert(stages, position)
	if err != nil {
		return 0, err
	}

	err = a.apply(ctx, repos, updates)
	if err != nil {
		return 0, err
	}

	return position, nil
}

// DeleteAndReflow removes the stage row and closes the gap it leaves.
func (a *SequenceAllocator) DeleteAndReflow(
	ctx context.Context,
	repos persistence.Repositories,
	stages []*models.Stage,
	stage *models.Stage,
) error {
	err := repos.StageRepository().Delete(ctx, stage.ID)
	if err != nil {
		return err
	}

	return a.apply(ctx, repos, planDelete(stages, stage))
}

// Move changes the position of an existing stage. Valid positions are 1..N.
func (a *SequenceAllocator) Move(
	ctx context.Context,
	repos persistence.Repositories,
	stages []*models.Stage,
	stage *models.Stage,
	position int,
) error {
	updates, err := planMove(stages, stage, position)
	if err != nil {
		return err
	}

	return a.apply(ctx, repos, updates)
}

func (a *SequenceAllocator) apply(ctx context.Context, repos persistence.Repositories, updates []SequenceUpdate) error {
	for _, update := range updates {
		err := repos.StageRepository().UpdateSequenceID(ctx, update.StageID, update.To)
		if err != nil {
			return fmt.Errorf("failed to move stage %s from %d to %d: %w", update.StageID, update.From, update.To, err)
		}
	}

	if len(updates) > 0 {
		a.logger.DebugContext(ctx, "renumbered stages", "updates", len(updates))
	}

	return nil
}

func planInsert(stages []*models.Stage, position int) ([]SequenceUpdate, error) {
	err := ValidatePosition("InsertAt", position)
	if err != nil {
		return nil, err
	}

	upper := maxSequence(stages) + 1
	if position > upper {
		return nil, NewValidationError("InsertAt", "position_out_of_bounds",
			fmt.Sprintf("position %d is out of bounds, valid positions are 1 to %d", position, upper),
			ErrPositionOutOfBounds)
	}

	ordered := sortedDescending(stages)
	updates := make([]SequenceUpdate, 0, len(ordered))

	for _, stage := range ordered {
		if stage.SequenceID < position {
			break
		}

		updates = append(updates, SequenceUpdate{StageID: stage.ID, From: stage.SequenceID, To: stage.SequenceID + 1})
	}

	return updates, nil
}

func planDelete(stages []*models.Stage, removed *models.Stage) []SequenceUpdate {
	ordered := sortedAscending(stages)
	updates := make([]SequenceUpdate, 0, len(ordered))

	for _, stage := range ordered {
		if stage.ID == removed.ID || stage.SequenceID <= removed.SequenceID {
			continue
		}

		updates = append(updates, SequenceUpdate{StageID: stage.ID, From: stage.SequenceID, To: stage.SequenceID - 1})
	}

	return updates
}

// planMove parks the stage past the end, shifts the stages between its old and new
// position, then drops it into place.
func planMove(stages []*models.Stage, moving *models.Stage, position int) ([]SequenceUpdate, error) {
	err := ValidatePosition("Move", position)
	if err != nil {
		return nil, err
	}

	upper := maxSequence(stages)
	if position > upper {
		return nil, NewValidationError("Move", "position_out_of_bounds",
			fmt.Sprintf("position %d is out of bounds, valid positions are 1 to %d", position, upper),
			ErrPositionOutOfBounds)
	}

	from := moving.SequenceID
	if from == position {
		return nil, nil
	}

	parked := upper + 1
	updates := []SequenceUpdate{{StageID: moving.ID, From: from, To: parked}}

	if position < from {
		for _, stage := range sortedDescending(stages) {
			if stage.SequenceID >= position && stage.SequenceID < from {
				updates = append(updates, SequenceUpdate{StageID: stage.ID, From: stage.SequenceID, To: stage.SequenceID + 1})
			}
		}
	} else {
		for _, stage := range sortedAscending(stages) {
			if stage.SequenceID > from && stage.SequenceID <= position {
				updates = append(updates, SequenceUpdate{StageID: stage.ID, From: stage.SequenceID, To: stage.SequenceID - 1})
			}
		}
	}

	updates = append(updates, SequenceUpdate{StageID: moving.ID, From: parked, To: position})

	return updates, nil
}

func maxSequence(stages []*models.Stage) int {
	highest := 0

	for _, stage := range stages {
		if stage.SequenceID > highest {
			highest = stage.SequenceID
		}
	}

	return highest
}

func sortedAscending(stages []*models.Stage) []*models.Stage {
	ordered := append([]*models.Stage(nil), stages...)
	sort.Sort(models.StagesBySequence(ordered))

	return ordered
}

func sortedDescending(stages []*models.Stage) []*models.Stage {
	ordered := append([]*models.Stage(nil), stages...)
	sort.Sort(sort.Reverse(models.StagesBySequence(ordered)))

	return ordered
}
