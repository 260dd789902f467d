package state

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/user/vibecode/internal/types"
)

// FocusStore persists what the user last interacted with in focus.json.
// Ids are stored as given; the resolver drops ones that no longer exist.
type FocusStore struct {
	root string
	mu   sync.RWMutex
}

// NewFocusStore creates a new file-backed FocusStore rooted at the given directory.
func NewFocusStore(root string) *FocusStore {
	return &FocusStore{root: root}
}

func (s *FocusStore) path() string {
	return filepath.Join(s.root, "focus.json")
}

// Load returns the stored focus, or an empty Focus if none was saved.
func (s *FocusStore) Load(_ context.Context) (types.Focus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var focus types.Focus
	if _, err := readJSON(s.path(), &focus); err != nil {
		return types.Focus{}, err
	}
	return focus, nil
}

// Save replaces the stored focus.
func (s *FocusStore) Save(_ context.Context, focus types.Focus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	focus.UpdatedAt = time.Now()
	return writeJSON(s.path(), focus)
}

// FocusSession focuses an agent session.
func (s *FocusStore) FocusSession(ctx context.Context, id types.SessionID) error {
	return s.modify(ctx, func(f *types.Focus) {
		f.FocusedSessionID = id
	})
}

// FocusProject focuses a project and unfocuses any session, so that
// "current" refers to the project.
func (s *FocusStore) FocusProject(ctx context.Context, id types.ProjectID) error {
	return s.modify(ctx, func(f *types.Focus) {
		f.FocusedSessionID = ""
		f.FocusedProjectID = id
		if id != "" {
			f.LastActiveProjectID = id
		}
	})
}

// TouchProject records id as the last active project.
func (s *FocusStore) TouchProject(ctx context.Context, id types.ProjectID) error {
	return s.modify(ctx, func(f *types.Focus) {
		f.LastActiveProjectID = id
	})
}

// Clear forgets all focus.
func (s *FocusStore) Clear(ctx context.Context) error {
	return s.Save(ctx, types.Focus{})
}

func (s *FocusStore) modify(_ context.Context, fn func(*types.Focus)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var focus types.Focus
	if _, err := readJSON(s.path(), &focus); err != nil {
		return err
	}
	fn(&focus)
	focus.UpdatedAt = time.Now()
	return writeJSON(s.path(), focus)
}
