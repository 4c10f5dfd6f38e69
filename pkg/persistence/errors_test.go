package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dukex/newsroom/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("entity error unwraps to the sentinel", func(t *testing.T) {
		err := persistence.NewEntityError("GetByID", "stage", "stage-123", persistence.ErrStageNotFound)

		assert.True(t, persistence.IsStageNotFound(err))
		assert.True(t, persistence.IsNotFound(err))
		assert.False(t, persistence.IsWorkflowNotFound(err))
		assert.True(t, errors.Is(err, persistence.ErrStageNotFound))
	})

	t.Run("entity error contains context", func(t *testing.T) {
		err := persistence.NewEntityError("Delete", "workflow", "workflow-123", persistence.ErrWorkflowNotFound)

		assert.Contains(t, err.Error(), "Delete")
		assert.Contains(t, err.Error(), "workflow-123")
		assert.Contains(t, err.Error(), "workflow not found")
	})

	t.Run("entity error without id", func(t *testing.T) {
		err := persistence.NewEntityError("FindGrant", "grant", "", persistence.ErrGrantNotFound)

		assert.Equal(t, "FindGrant operation failed for grant: grant not found", err.Error())
	})

	t.Run("conflict survives wrapping", func(t *testing.T) {
		err := fmt.Errorf("insert stage: %w", persistence.ErrConflict)

		assert.True(t, persistence.IsConflict(err))
		assert.False(t, persistence.IsNotFound(err))
	})

	t.Run("every not found sentinel is classified", func(t *testing.T) {
		for _, sentinel := range []error{
			persistence.ErrWorkflowNotFound,
			persistence.ErrStageNotFound,
			persistence.ErrDocumentNotFound,
			persistence.ErrUserNotFound,
			persistence.ErrRoleNotFound,
			persistence.ErrGrantNotFound,
		} {
			assert.True(t, persistence.IsNotFound(sentinel), sentinel.Error())
		}
	})
}
