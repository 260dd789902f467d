// internal/state/session.go
package state

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/user/vibecode/internal/types"
)

// SessionStore is a JSON-file-backed tracker of agent sessions.
// Sessions are kept in sessions.json in the order they were started.
type SessionStore struct {
	root string
	mu   sync.RWMutex
}

// NewSessionStore creates a new file-backed SessionStore rooted at the given directory.
func NewSessionStore(root string) *SessionStore {
	return &SessionStore{root: root}
}

func (s *SessionStore) indexPath() string {
	return filepath.Join(s.root, "sessions.json")
}

func (s *SessionStore) load() ([]types.AgentSession, error) {
	var sessions []types.AgentSession
	if _, err := readJSON(s.indexPath(), &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *SessionStore) save(sessions []types.AgentSession) error {
	if sessions == nil {
		sessions = []types.AgentSession{}
	}
	return writeJSON(s.indexPath(), sessions)
}

// Start registers a new active session and returns it.
func (s *SessionStore) Start(_ context.Context, projectID types.ProjectID, agent, title string) (*types.AgentSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := types.AgentSession{
		ID:                types.NewSessionID(),
		ProjectID:         projectID,
		Agent:             agent,
		ConversationTitle: title,
		StartTime:         now,
		Status:            types.SessionActive,
		UpdatedAt:         now,
	}
	sessions = append(sessions, session)

	if err := s.save(sessions); err != nil {
		return nil, err
	}
	return &session, nil
}

// Get returns the session with the given ID.
func (s *SessionStore) Get(_ context.Context, id types.SessionID) (*types.AgentSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].ID == id {
			return &sessions[i], nil
		}
	}
	return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
}

// List returns all sessions, whatever their status.
func (s *SessionStore) List(_ context.Context) ([]types.AgentSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions, err := s.load()
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		return []types.AgentSession{}, nil
	}
	return sessions, nil
}

// ListActive returns the sessions currently eligible for targeting.
func (s *SessionStore) ListActive(ctx context.Context) ([]types.AgentSession, error) {
	sessions, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]types.AgentSession, 0, len(sessions))
	for _, sess := range sessions {
		if sess.Status == types.SessionActive {
			active = append(active, sess)
		}
	}
	return active, nil
}

// SetTitle changes the conversation title of a session.
func (s *SessionStore) SetTitle(_ context.Context, id types.SessionID, title string) error {
	return s.update(id, func(sess *types.AgentSession) {
		sess.ConversationTitle = title
	})
}

// SetStatus changes the status of a session.
func (s *SessionStore) SetStatus(_ context.Context, id types.SessionID, status types.SessionStatus) error {
	return s.update(id, func(sess *types.AgentSession) {
		sess.Status = status
	})
}

// Stop marks a session as stopped. Stopped sessions stay in the index.
func (s *SessionStore) Stop(ctx context.Context, id types.SessionID) error {
	return s.SetStatus(ctx, id, types.SessionStopped)
}

func (s *SessionStore) update(id types.SessionID, fn func(*types.AgentSession)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load()
	if err != nil {
		return err
	}
	for i := range sessions {
		if sessions[i].ID == id {
			fn(&sessions[i])
			sessions[i].UpdatedAt = time.Now()
			return s.save(sessions)
		}
	}
	return fmt.Errorf("session %s: %w", id, ErrNotFound)
}
