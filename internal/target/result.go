package target

import "github.com/user/vibecode/internal/types"

// ResultKind discriminates a Result.
type ResultKind string

const (
	ResultProject   ResultKind = "project"
	ResultAgent     ResultKind = "agent"
	ResultBroadcast ResultKind = "broadcast"
	ResultFailed    ResultKind = "failed"
)

// FailureReason classifies why a target could not be resolved.
type FailureReason string

const (
	ReasonMissingQualifier FailureReason = "missing_qualifier"
	ReasonOutOfRange       FailureReason = "out_of_range"
	ReasonNoMatch          FailureReason = "no_match"
	ReasonNoCurrent        FailureReason = "no_current"
	ReasonUnknownKind      FailureReason = "unknown_kind"
)

type ProjectRef struct {
	ID   types.ProjectID `json:"id"`
	Name string          `json:"name"`
}

type AgentRef struct {
	ID   types.SessionID `json:"id"`
	Name string          `json:"name"`
}

// Failure is a user-facing explanation of a failed resolution. Message is
// meant to be shown or spoken verbatim.
type Failure struct {
	Reason  FailureReason `json:"reason"`
	Message string        `json:"message"`
}

func (f *Failure) Error() string {
	return f.Message
}

// Result is the outcome of Resolve. Exactly one of Project, Agent and
// Failure is set, or none of them for a broadcast.
type Result struct {
	Kind    ResultKind  `json:"kind"`
	Project *ProjectRef `json:"project,omitempty"`
	Agent   *AgentRef   `json:"agent,omitempty"`
	Failure *Failure    `json:"failure,omitempty"`
}

func projectResult(p types.Project) Result {
	return Result{Kind: ResultProject, Project: &ProjectRef{ID: p.ID, Name: p.Name}}
}

func agentResult(s types.AgentSession) Result {
	return Result{Kind: ResultAgent, Agent: &AgentRef{ID: s.ID, Name: s.DisplayTitle()}}
}

func broadcastResult() Result {
	return Result{Kind: ResultBroadcast}
}

func failed(reason FailureReason, message string) Result {
	return Result{Kind: ResultFailed, Failure: &Failure{Reason: reason, Message: message}}
}

// OK reports whether the target resolved.
func (r Result) OK() bool {
	return r.Kind != ResultFailed
}

// Err returns the failure as an error, or nil on success.
func (r Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

// Name is the display name of the resolved entity, "all" for a broadcast
// and "" for a failure.
func (r Result) Name() string {
	switch r.Kind {
	case ResultProject:
		return r.Project.Name
	case ResultAgent:
		return r.Agent.Name
	case ResultBroadcast:
		return "all"
	default:
		return ""
	}
}
