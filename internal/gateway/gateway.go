package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/vibecode/internal/delivery"
	"github.com/user/vibecode/internal/target"
	"github.com/user/vibecode/internal/types"
)

// Gateway turns inbound commands into runs. It snapshots the project and
// session directories, resolves the command's target, and enqueues one run
// per recipient lane.
type Gateway struct {
	projects   types.ProjectDirectory
	sessions   types.SessionDirectory
	focus      types.FocusStore
	events     types.EventStore
	deliveries *delivery.Registry
	Queue      *Queue
	retry      *RetryPolicy

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Gateway wired to the provided stores with the given
// concurrency limit for simultaneous deliveries.
func New(projects types.ProjectDirectory, sessions types.SessionDirectory, focus types.FocusStore, events types.EventStore, deliveries *delivery.Registry, maxConcurrent ...int64) *Gateway {
	var concurrency int64 = 2
	if len(maxConcurrent) > 0 && maxConcurrent[0] > 0 {
		concurrency = maxConcurrent[0]
	}
	g := &Gateway{
		projects:   projects,
		sessions:   sessions,
		focus:      focus,
		events:     events,
		deliveries: deliveries,
		Queue:      NewQueue(concurrency),
		retry:      DefaultRetryPolicy(),
	}
	g.Queue.SetProcessor(g.process)
	return g
}

// SetRetryPolicy replaces the policy used around each delivery.
func (g *Gateway) SetRetryPolicy(p *RetryPolicy) {
	g.retry = p
}

// Start initialises the gateway's context and starts the internal queue.
func (g *Gateway) Start(ctx context.Context) {
	g.ctx, g.cancel = context.WithCancel(ctx)
	g.Queue.Start(g.ctx)
}

// Stop cancels the gateway context and stops the queue, waiting for
// in-flight deliveries to return.
func (g *Gateway) Stop() {
	if g.cancel != nil {
		g.cancel()
	}
	g.Queue.Stop()
}

// RunOption configures optional behavior on a Run.
type RunOption func(*Run)

// WithOnComplete sets a callback invoked once the run has been delivered
// or has failed.
func WithOnComplete(fn func(string)) RunOption {
	return func(r *Run) { r.OnComplete = fn }
}

// WithOnFailure sets a callback invoked only when delivery fails.
func WithOnFailure(fn func(error)) RunOption {
	return func(r *Run) { r.OnFailure = fn }
}

// Receipt reports how a command was resolved and which runs carry it.
type Receipt struct {
	Result target.Result `json:"result"`
	Runs   []types.RunID `json:"runs,omitempty"`
	// Skipped counts recipients whose run could not be queued.
	Skipped int `json:"skipped,omitempty"`
}

// Message is a short acknowledgement suitable for showing to the user.
func (r Receipt) Message() string {
	if !r.Result.OK() {
		return r.Result.Failure.Message
	}
	if r.Skipped > 0 {
		return fmt.Sprintf("Sent to %d of %d recipients; %d could not be queued.", len(r.Runs), len(r.Runs)+r.Skipped, r.Skipped)
	}
	if r.Result.Kind == target.ResultBroadcast {
		switch len(r.Runs) {
		case 0:
			return "No active agents to broadcast to."
		case 1:
			return "Sent to 1 agent."
		default:
			return fmt.Sprintf("Sent to %d agents.", len(r.Runs))
		}
	}
	return fmt.Sprintf("Sent to %s.", r.Result.Name())
}

// Snapshot loads both directories, the UI-focused workspace and the
// persisted focus concurrently, and captures the resolution context.
func (g *Gateway) Snapshot(ctx context.Context) (target.Directory, target.Context, error) {
	var (
		dir   target.Directory
		focus types.Focus
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		projects, err := g.projects.List(ctx)
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}
		dir.Projects = projects
		return nil
	})
	eg.Go(func() error {
		sessions, err := g.sessions.List(ctx)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		dir.Sessions = sessions
		return nil
	})
	eg.Go(func() error {
		id, err := g.projects.Focused(ctx)
		if err != nil {
			return fmt.Errorf("load focused workspace: %w", err)
		}
		dir.FocusedWorkspace = id
		return nil
	})
	eg.Go(func() error {
		f, err := g.focus.Load(ctx)
		if err != nil {
			return fmt.Errorf("load focus: %w", err)
		}
		focus = f
		return nil
	})
	if err := eg.Wait(); err != nil {
		return target.Directory{}, target.Context{}, err
	}
	return dir, target.CaptureContext(focus, dir), nil
}

// Resolve resolves t against a fresh snapshot without dispatching anything.
func (g *Gateway) Resolve(ctx context.Context, t *target.Target) (target.Result, error) {
	dir, rctx, err := g.Snapshot(ctx)
	if err != nil {
		return target.Result{}, err
	}
	return target.Resolve(t, rctx, dir), nil
}

// Targets lists every addressable project and agent with its ordinal.
func (g *Gateway) Targets(ctx context.Context) ([]target.Entry, error) {
	dir, _, err := g.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return target.Enumerate(dir), nil
}

type recipient struct {
	lane types.LaneKey
	name string
}

func recipients(res target.Result, dir target.Directory) []recipient {
	switch res.Kind {
	case target.ResultProject:
		return []recipient{{types.ProjectLane(res.Project.ID), res.Project.Name}}
	case target.ResultAgent:
		return []recipient{{types.AgentLane(res.Agent.ID), res.Agent.Name}}
	case target.ResultBroadcast:
		agents := dir.Agents()
		out := make([]recipient, 0, len(agents))
		for _, s := range agents {
			out = append(out, recipient{types.AgentLane(s.ID), s.DisplayTitle()})
		}
		return out
	default:
		return nil
	}
}

// Dispatch resolves the command's target and enqueues a run for every
// recipient. A failed resolution is reported in the receipt, not as an error.
// When some runs cannot be queued the receipt still lists the queued ones
// alongside a non-nil error.
func (g *Gateway) Dispatch(ctx context.Context, cmd *Command, opts ...RunOption) (Receipt, error) {
	if cmd == nil || strings.TrimSpace(cmd.Text) == "" {
		return Receipt{}, fmt.Errorf("empty command")
	}

	dir, rctx, err := g.Snapshot(ctx)
	if err != nil {
		return Receipt{}, fmt.Errorf("snapshot: %w", err)
	}
	res := target.Resolve(cmd.Target, rctx, dir)
	receipt := Receipt{Result: res}
	if !res.OK() {
		slog.Info("target not resolved", "target", cmd.Target.String(), "reason", string(res.Failure.Reason))
		return receipt, nil
	}

	var errs []error
	for _, rc := range recipients(res, dir) {
		run := NewRun(rc.lane, rc.name, cmd)
		for _, opt := range opts {
			opt(run)
		}
		if err := g.Queue.Enqueue(run); err != nil {
			errs = append(errs, fmt.Errorf("enqueue run for %s: %w", rc.name, err))
			receipt.Skipped++
			continue
		}
		receipt.Runs = append(receipt.Runs, run.ID)
	}
	if len(errs) > 0 {
		return receipt, errors.Join(errs...)
	}

	if res.Kind == target.ResultProject {
		if err := g.focus.TouchProject(ctx, res.Project.ID); err != nil {
			slog.Warn("failed to record last active project", "project", string(res.Project.ID), "error", err)
		}
	}

	slog.Info("command dispatched", "target", cmd.Target.String(), "resolved", res.Name(), "runs", len(receipt.Runs), "source", cmd.Source)
	return receipt, nil
}

type commandPayload struct {
	Text   string `json:"text"`
	UserID string `json:"user_id,omitempty"`
	Target string `json:"target"`
	Error  string `json:"error,omitempty"`
}

func (g *Gateway) record(ctx context.Context, run *Run, eventType string, cause error) error {
	payload := commandPayload{
		Text:   run.Command.Text,
		UserID: run.Command.UserID,
		Target: run.Command.Target.String(),
	}
	if cause != nil {
		payload.Error = cause.Error()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return g.events.Append(ctx, &types.Event{
		ID:      types.NewEventID(),
		Lane:    run.Lane,
		RunID:   run.ID,
		Type:    eventType,
		Source:  run.Command.Source,
		At:      time.Now(),
		Payload: data,
	})
}

// process is the queue processor: log the command to its lane, deliver it
// with retries, and record the outcome.
func (g *Gateway) process(run *Run) error {
	ctx := run.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	if err := g.record(ctx, run, "command", nil); err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	env := delivery.Envelope{
		RunID:  run.ID,
		Lane:   run.Lane,
		Name:   run.Name,
		Text:   run.Command.Text,
		Source: run.Command.Source,
		UserID: run.Command.UserID,
		At:     run.CreatedAt,
	}
	err := g.retry.Execute(ctx, func() error {
		run.Attempts++
		return g.deliveries.Deliver(ctx, env)
	})
	if err != nil {
		if recErr := g.record(ctx, run, "failed", err); recErr != nil {
			slog.Warn("failed to record delivery failure", "run_id", string(run.ID), "error", recErr)
		}
		return fmt.Errorf("deliver: %w", err)
	}

	if err := g.record(ctx, run, "delivered", nil); err != nil {
		slog.Warn("failed to record delivery", "run_id", string(run.ID), "error", err)
	}
	if run.OnComplete != nil {
		run.OnComplete(fmt.Sprintf("Delivered to %s.", run.Name))
	}
	return nil
}
