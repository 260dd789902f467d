package target

import (
	"fmt"
	"strings"

	"github.com/user/vibecode/internal/types"
)

// Resolve maps t to a concrete entity of dir. A nil target means "current".
// Every failure is reported in the returned Result; Resolve does not panic
// on malformed targets.
func Resolve(t *Target, ctx Context, dir Directory) Result {
	if t == nil {
		return resolveCurrent(ctx, dir)
	}

	switch t.Kind {
	case KindCurrent:
		return resolveCurrent(ctx, dir)
	case KindAll:
		return broadcastResult()
	case KindProject:
		return resolveProject(t, dir)
	case KindAgent:
		return resolveAgent(t, dir)
	default:
		return failed(ReasonUnknownKind, fmt.Sprintf("Unknown target type: %s", t.Kind))
	}
}

// attempt is one tier of the "current" fallback chain.
type attempt func(ctx Context, dir Directory) (Result, bool)

// currentChain lists the "current" tiers from most to least specific.
var currentChain = []attempt{
	focusedSession,
	focusedProject,
	lastActiveProject,
	soleSession,
	focusedWorkspace,
}

func resolveCurrent(ctx Context, dir Directory) Result {
	for _, try := range currentChain {
		if res, ok := try(ctx, dir); ok {
			return res
		}
	}
	return failed(ReasonNoCurrent,
		"No active project or agent to target. Please specify a project or agent, or start a session.")
}

func focusedSession(ctx Context, dir Directory) (Result, bool) {
	s, ok := dir.Session(ctx.FocusedSessionID)
	if !ok || s.Status != types.SessionActive {
		return Result{}, false
	}
	return agentResult(s), true
}

func focusedProject(ctx Context, dir Directory) (Result, bool) {
	p, ok := dir.Project(ctx.FocusedProjectID)
	if !ok {
		return Result{}, false
	}
	return projectResult(p), true
}

func lastActiveProject(ctx Context, dir Directory) (Result, bool) {
	p, ok := dir.Project(ctx.LastActiveProjectID)
	if !ok {
		return Result{}, false
	}
	return projectResult(p), true
}

func soleSession(_ Context, dir Directory) (Result, bool) {
	agents := dir.Agents()
	if len(agents) != 1 {
		return Result{}, false
	}
	return agentResult(agents[0]), true
}

func focusedWorkspace(_ Context, dir Directory) (Result, bool) {
	p, ok := dir.Workspace()
	if !ok {
		return Result{}, false
	}
	return projectResult(p), true
}

func resolveProject(t *Target, dir Directory) Result {
	projects := dir.Projects

	if t.Number != nil {
		n := *t.Number
		if n < 1 || n > len(projects) {
			return failed(ReasonOutOfRange, fmt.Sprintf(
				"Project number %d not found. There are %d projects available.", n, len(projects)))
		}
		return projectResult(projects[n-1])
	}

	if t.Name != "" {
		m, ok := BestMatch(t.Name, projects, func(p types.Project) string { return p.Name })
		if !ok || m.Score < MatchThreshold {
			names := make([]string, len(projects))
			for i, p := range projects {
				names[i] = p.Name
			}
			return failed(ReasonNoMatch, fmt.Sprintf(
				"No project found matching %q. Available projects: %s", t.Name, joinNames(names)))
		}
		return projectResult(m.Item)
	}

	return failed(ReasonMissingQualifier, "Please specify a project name or number.")
}

func resolveAgent(t *Target, dir Directory) Result {
	agents := dir.Agents()

	if t.Number != nil {
		n := *t.Number
		if n < 1 || n > len(agents) {
			return failed(ReasonOutOfRange, fmt.Sprintf(
				"Agent number %d not found. There are %d active agents.", n, len(agents)))
		}
		return agentResult(agents[n-1])
	}

	if t.Name != "" {
		m, ok := BestMatch(t.Name, agents, func(s types.AgentSession) string { return s.ConversationTitle })
		if !ok || m.Score < MatchThreshold {
			names := make([]string, len(agents))
			for i, s := range agents {
				names[i] = s.DisplayTitle()
			}
			return failed(ReasonNoMatch, fmt.Sprintf(
				"No agent found matching %q. Active agents: %s", t.Name, joinNames(names)))
		}
		return agentResult(m.Item)
	}

	return failed(ReasonMissingQualifier, "Please specify an agent name or number.")
}

func joinNames(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
