package state

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/user/vibecode/internal/types"
)

// projectIndex is the on-disk format of projects.json.
type projectIndex struct {
	Projects  []types.Project `json:"projects"`
	FocusedID types.ProjectID `json:"focused_id,omitempty"`
}

// ProjectStore is the JSON-file-backed workspace list. The order of
// projects in the file is the order users number them by.
type ProjectStore struct {
	root string
	mu   sync.RWMutex
}

// NewProjectStore creates a new file-backed ProjectStore rooted at the given directory.
func NewProjectStore(root string) *ProjectStore {
	return &ProjectStore{root: root}
}

func (s *ProjectStore) indexPath() string {
	return filepath.Join(s.root, "projects.json")
}

func (s *ProjectStore) load() (*projectIndex, error) {
	index := &projectIndex{}
	if _, err := readJSON(s.indexPath(), index); err != nil {
		return nil, err
	}
	return index, nil
}

func (s *ProjectStore) save(index *projectIndex) error {
	if index.Projects == nil {
		index.Projects = []types.Project{}
	}
	return writeJSON(s.indexPath(), index)
}

// Add appends a project. Names need not be unique.
func (s *ProjectStore) Add(_ context.Context, name, path string) (*types.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("project name required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.load()
	if err != nil {
		return nil, err
	}

	project := types.Project{
		ID:        types.NewProjectID(),
		Name:      name,
		Path:      path,
		CreatedAt: time.Now(),
	}
	index.Projects = append(index.Projects, project)

	if err := s.save(index); err != nil {
		return nil, err
	}
	return &project, nil
}

// Get returns the project with the given ID.
func (s *ProjectStore) Get(_ context.Context, id types.ProjectID) (*types.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range index.Projects {
		if index.Projects[i].ID == id {
			return &index.Projects[i], nil
		}
	}
	return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
}

// List returns all projects in their stable order.
func (s *ProjectStore) List(_ context.Context) ([]types.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index, err := s.load()
	if err != nil {
		return nil, err
	}
	if index.Projects == nil {
		return []types.Project{}, nil
	}
	return index.Projects, nil
}

// Remove deletes a project, clearing the UI focus if it pointed at it.
func (s *ProjectStore) Remove(_ context.Context, id types.ProjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.load()
	if err != nil {
		return err
	}
	for i, p := range index.Projects {
		if p.ID == id {
			index.Projects = append(index.Projects[:i], index.Projects[i+1:]...)
			if index.FocusedID == id {
				index.FocusedID = ""
			}
			return s.save(index)
		}
	}
	return fmt.Errorf("project %s: %w", id, ErrNotFound)
}

// Rename changes the display name of a project.
func (s *ProjectStore) Rename(_ context.Context, id types.ProjectID, name string) error {
	if name == "" {
		return fmt.Errorf("project name required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.load()
	if err != nil {
		return err
	}
	for i := range index.Projects {
		if index.Projects[i].ID == id {
			index.Projects[i].Name = name
			return s.save(index)
		}
	}
	return fmt.Errorf("project %s: %w", id, ErrNotFound)
}

// SetFocused records the workspace focused in the UI. An empty id clears it.
func (s *ProjectStore) SetFocused(_ context.Context, id types.ProjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.load()
	if err != nil {
		return err
	}
	if id != "" {
		found := false
		for _, p := range index.Projects {
			if p.ID == id {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
	}
	index.FocusedID = id
	return s.save(index)
}

// Focused returns the workspace focused in the UI, or "" when none is.
func (s *ProjectStore) Focused(_ context.Context) (types.ProjectID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index, err := s.load()
	if err != nil {
		return "", err
	}
	return index.FocusedID, nil
}
