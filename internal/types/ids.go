// internal/types/ids.go
package types

import (
	"strings"

	"github.com/google/uuid"
)

type ProjectID string
type SessionID string
type RunID string
type EventID string

// LaneKey names a delivery lane, e.g. "agent:<session id>" or "project:<project id>".
type LaneKey string

func NewProjectID() ProjectID {
	return ProjectID(uuid.New().String())
}

func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

func NewRunID() RunID {
	return RunID(uuid.New().String())
}

func NewEventID() EventID {
	return EventID(uuid.New().String())
}

func NewLaneKey(parts ...string) LaneKey {
	return LaneKey(strings.Join(parts, ":"))
}

// AgentLane is the lane for commands addressed to a single agent session.
func AgentLane(id SessionID) LaneKey {
	return NewLaneKey("agent", string(id))
}

// ProjectLane is the lane for commands addressed to a project.
func ProjectLane(id ProjectID) LaneKey {
	return NewLaneKey("project", string(id))
}

// Split returns the lane kind and the entity id. A key without a kind
// returns an empty kind.
func (k LaneKey) Split() (kind, id string) {
	kind, id, ok := strings.Cut(string(k), ":")
	if !ok {
		return "", string(k)
	}
	return kind, id
}
