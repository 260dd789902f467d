package target

import (
	"slices"

	"github.com/user/vibecode/internal/types"
)

// Directory is a point-in-time snapshot of the entities a target can name.
// Projects keep the workspace manager's order; that order is the project
// numbering. Sessions may arrive in any order.
type Directory struct {
	Projects []types.Project
	Sessions []types.AgentSession
	// FocusedWorkspace is the workspace focused in the UI, tracked apart
	// from the explicit Context and consulted last.
	FocusedWorkspace types.ProjectID
}

// Project looks up a project by id.
func (d Directory) Project(id types.ProjectID) (types.Project, bool) {
	if id == "" {
		return types.Project{}, false
	}
	for _, p := range d.Projects {
		if p.ID == id {
			return p, true
		}
	}
	return types.Project{}, false
}

// Session looks up a session by id, whatever its status.
func (d Directory) Session(id types.SessionID) (types.AgentSession, bool) {
	if id == "" {
		return types.AgentSession{}, false
	}
	for _, s := range d.Sessions {
		if s.ID == id {
			return s, true
		}
	}
	return types.AgentSession{}, false
}

// Workspace returns the UI-focused workspace if it is still in the directory.
func (d Directory) Workspace() (types.Project, bool) {
	return d.Project(d.FocusedWorkspace)
}

// Agents returns the sessions eligible for targeting in ordinal order:
// active sessions only, oldest first. The result is a fresh slice.
func (d Directory) Agents() []types.AgentSession {
	agents := make([]types.AgentSession, 0, len(d.Sessions))
	for _, s := range d.Sessions {
		if s.Status == types.SessionActive {
			agents = append(agents, s)
		}
	}
	slices.SortStableFunc(agents, func(a, b types.AgentSession) int {
		return a.StartTime.Compare(b.StartTime)
	})
	return agents
}

// Context is what the user most recently interacted with, in priority order.
type Context struct {
	FocusedSessionID    types.SessionID
	FocusedProjectID    types.ProjectID
	LastActiveProjectID types.ProjectID
}

// CaptureContext builds the resolution context for a snapshot. When no
// session is focused and exactly one session is eligible, that session is
// treated as focused.
func CaptureContext(focus types.Focus, dir Directory) Context {
	ctx := Context{
		FocusedSessionID:    focus.FocusedSessionID,
		FocusedProjectID:    focus.FocusedProjectID,
		LastActiveProjectID: focus.LastActiveProjectID,
	}
	if ctx.FocusedSessionID == "" {
		if agents := dir.Agents(); len(agents) == 1 {
			ctx.FocusedSessionID = agents[0].ID
		}
	}
	return ctx
}
