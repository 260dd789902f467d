// internal/types/interfaces.go
package types

import (
	"context"
)

// ProjectDirectory is the read side of the workspace manager.
type ProjectDirectory interface {
	List(ctx context.Context) ([]Project, error)
	Get(ctx context.Context, id ProjectID) (*Project, error)
	// Focused returns the workspace focused in the UI, or "" when none is.
	Focused(ctx context.Context) (ProjectID, error)
}

// SessionDirectory is the read side of the session tracker.
type SessionDirectory interface {
	List(ctx context.Context) ([]AgentSession, error)
	ListActive(ctx context.Context) ([]AgentSession, error)
	Get(ctx context.Context, id SessionID) (*AgentSession, error)
}

type FocusStore interface {
	Load(ctx context.Context) (Focus, error)
	TouchProject(ctx context.Context, id ProjectID) error
}

type EventStore interface {
	Append(ctx context.Context, event *Event) error
	Tail(ctx context.Context, lane LaneKey, limit int) ([]*Event, error)
	Count(ctx context.Context, lane LaneKey) (int64, error)
}
