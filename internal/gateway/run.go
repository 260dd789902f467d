package gateway

import (
	"context"
	"time"

	"github.com/user/vibecode/internal/target"
	"github.com/user/vibecode/internal/types"
)

// Command is an inbound instruction with the target it was addressed to.
// A nil Target means "current".
type Command struct {
	Source string         `json:"source"`
	UserID string         `json:"user_id,omitempty"`
	Target *target.Target `json:"target,omitempty"`
	Text   string         `json:"text"`
}

// RunStatus represents the lifecycle state of a Run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run tracks the delivery of one command to one lane.
type Run struct {
	ID         types.RunID
	Lane       types.LaneKey
	Name       string // display name of the recipient
	Command    *Command
	Status     RunStatus
	Attempts   int
	CreatedAt  time.Time
	StartedAt  *time.Time
	EndedAt    *time.Time
	Error      error
	OnComplete func(response string)
	OnFailure  func(err error)
	Ctx        context.Context
}

// NewRun creates a Run in the Queued state for the given lane and command.
func NewRun(lane types.LaneKey, name string, cmd *Command) *Run {
	return &Run{
		ID:        types.NewRunID(),
		Lane:      lane,
		Name:      name,
		Command:   cmd,
		Status:    RunStatusQueued,
		CreatedAt: time.Now(),
	}
}
