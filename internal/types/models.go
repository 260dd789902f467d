// internal/types/models.go
package types

import (
	"encoding/json"
	"time"
)

// SessionStatus is the lifecycle state of an agent session.
type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionIdle    SessionStatus = "idle"
	SessionStopped SessionStatus = "stopped"
)

// UntitledSession is shown for sessions without a conversation title.
const UntitledSession = "Untitled"

type Project struct {
	ID        ProjectID `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type AgentSession struct {
	ID                SessionID     `json:"id"`
	ProjectID         ProjectID     `json:"project_id,omitempty"`
	Agent             string        `json:"agent"`
	ConversationTitle string        `json:"conversation_title"`
	StartTime         time.Time     `json:"start_time"`
	Status            SessionStatus `json:"status"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// DisplayTitle returns the conversation title, or UntitledSession when empty.
func (s AgentSession) DisplayTitle() string {
	if s.ConversationTitle == "" {
		return UntitledSession
	}
	return s.ConversationTitle
}

// Focus is what the user most recently interacted with, in priority order.
type Focus struct {
	FocusedSessionID    SessionID `json:"focused_session_id,omitempty"`
	FocusedProjectID    ProjectID `json:"focused_project_id,omitempty"`
	LastActiveProjectID ProjectID `json:"last_active_project_id,omitempty"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type Event struct {
	ID      EventID         `json:"id"`
	Lane    LaneKey         `json:"lane"`
	RunID   RunID           `json:"run_id,omitempty"`
	Seq     int64           `json:"seq"`
	Type    string          `json:"type"`
	Source  string          `json:"source"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload"`
}
