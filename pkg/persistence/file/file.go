// Package file provides file-based persistence for the newsroom. The whole store is kept
// in memory and flushed as a single JSON snapshot after every committed write.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/newsroom/pkg/persistence"
)

const snapshotName = "newsroom.json"

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root  string
	mu    sync.RWMutex
	state *state
}

// NewPersistence creates a file store rooted at root, loading an existing snapshot if present.
func NewPersistence(root string) (*Persistence, error) {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	fp := &Persistence{
		root:  cleanRoot,
		state: newState(),
	}

	data, err := os.ReadFile(fp.snapshotPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fp, nil
		}

		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	err = json.Unmarshal(data, fp.state)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	fp.state.ensure()

	return fp, nil
}

func (fp *Persistence) snapshotPath() string {
	return filepath.Join(fp.root, snapshotName)
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return &workflowRepository{s: fp}
}

func (fp *Persistence) StageRepository() persistence.StageRepository {
	return &stageRepository{s: fp}
}

func (fp *Persistence) DocumentRepository() persistence.DocumentRepository {
	return &documentRepository{s: fp}
}

func (fp *Persistence) PermissionRepository() persistence.PermissionRepository {
	return &permissionRepository{s: fp}
}

func (fp *Persistence) UserRepository() persistence.UserRepository {
	return &userRepository{s: fp}
}

func (fp *Persistence) RoleRepository() persistence.RoleRepository {
	return &roleRepository{s: fp}
}

// Transaction runs fn against a private copy of the store and publishes the copy only
// when fn succeeds. Transactions are fully serialized.
func (fp *Persistence) Transaction(
	ctx context.Context,
	fn func(ctx context.Context, repos persistence.Repositories) error,
) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	working, err := fp.state.clone()
	if err != nil {
		return err
	}

	err = fn(ctx, newTxRepositories(working))
	if err != nil {
		return err
	}

	return fp.commit(working)
}

func (fp *Persistence) read(fn func(s *state) error) error {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	return fn(fp.state)
}

func (fp *Persistence) write(fn func(s *state) error) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	working, err := fp.state.clone()
	if err != nil {
		return err
	}

	err = fn(working)
	if err != nil {
		return err
	}

	return fp.commit(working)
}

// commit must be called with the write lock held.
func (fp *Persistence) commit(working *state) error {
	err := os.MkdirAll(fp.root, 0750)
	if err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := json.MarshalIndent(working, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(fp.root, snapshotName+".*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}

	_, err = tmp.Write(data)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	err = tmp.Close()
	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	err = os.Rename(tmp.Name(), fp.snapshotPath())
	if err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	fp.state = working

	return nil
}

// session is how repositories reach the state: either the shared store, where every call
// is its own transaction, or the private copy of an open transaction.
type session interface {
	read(fn func(s *state) error) error
	write(fn func(s *state) error) error
}

type txSession struct {
	state *state
}

func (t *txSession) read(fn func(s *state) error) error  { return fn(t.state) }
func (t *txSession) write(fn func(s *state) error) error { return fn(t.state) }

type txRepositories struct {
	s session
}

func newTxRepositories(working *state) *txRepositories {
	return &txRepositories{s: &txSession{state: working}}
}

func (r *txRepositories) WorkflowRepository() persistence.WorkflowRepository {
	return &workflowRepository{s: r.s}
}

func (r *txRepositories) StageRepository() persistence.StageRepository {
	return &stageRepository{s: r.s}
}

func (r *txRepositories) DocumentRepository() persistence.DocumentRepository {
	return &documentRepository{s: r.s}
}

func (r *txRepositories) PermissionRepository() persistence.PermissionRepository {
	return &permissionRepository{s: r.s}
}

func (r *txRepositories) UserRepository() persistence.UserRepository {
	return &userRepository{s: r.s}
}

func (r *txRepositories) RoleRepository() persistence.RoleRepository {
	return &roleRepository{s: r.s}
}
