//go:build integration

package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/user/vibecode/internal/delivery"
	"github.com/user/vibecode/internal/gateway"
	"github.com/user/vibecode/internal/state"
	"github.com/user/vibecode/internal/target"
	"github.com/user/vibecode/internal/types"
	"github.com/user/vibecode/internal/webhook"
)

// agentEndpoint records envelopes posted by the HTTP delivery handler.
type agentEndpoint struct {
	mu   sync.Mutex
	envs []delivery.Envelope
}

func (a *agentEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var env delivery.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, "bad envelope", http.StatusBadRequest)
		return
	}
	a.mu.Lock()
	a.envs = append(a.envs, env)
	a.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (a *agentEndpoint) received() []delivery.Envelope {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]delivery.Envelope(nil), a.envs...)
}

type stack struct {
	projects *state.ProjectStore
	sessions *state.SessionStore
	focus    *state.FocusStore
	events   *state.EventStore
	tasks    *state.TaskStore
	gw       *gateway.Gateway
	agent    *agentEndpoint
	api      *httptest.Server
}

func newStack(t *testing.T) *stack {
	t.Helper()
	dir := t.TempDir()
	s := &stack{
		projects: state.NewProjectStore(dir),
		sessions: state.NewSessionStore(dir),
		focus:    state.NewFocusStore(dir),
		events:   state.NewEventStore(dir),
		tasks:    state.NewTaskStore(filepath.Join(dir, "tasks.json")),
		agent:    &agentEndpoint{},
	}

	agentSrv := httptest.NewServer(s.agent)
	t.Cleanup(agentSrv.Close)

	reg := delivery.NewRegistry()
	reg.Register("", delivery.HTTPHandler(agentSrv.URL, "secret", agentSrv.Client()))

	s.gw = gateway.New(s.projects, s.sessions, s.focus, s.events, reg, 4)
	s.gw.Start(context.Background())
	t.Cleanup(s.gw.Stop)

	s.api = httptest.NewServer(webhook.NewServer(s.gw, s.tasks, s.projects, s.sessions, s.events))
	t.Cleanup(s.api.Close)
	return s
}

func (s *stack) post(t *testing.T, path, body string) map[string]any {
	t.Helper()
	resp, err := http.Post(s.api.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	out["status"] = resp.StatusCode
	return out
}

func TestEndToEndCommandOverHTTP(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	p, err := s.projects.Add(ctx, "Frontend", "/src/frontend")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.sessions.Start(ctx, p.ID, "claude", "login bug"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	api, err := s.sessions.Start(ctx, p.ID, "claude", "api fixes")
	if err != nil {
		t.Fatal(err)
	}

	out := s.post(t, "/api/commands", `{"target":"agent:2","text":"add retries"}`)
	if out["status"] != http.StatusAccepted {
		t.Fatalf("expected 202, got %v: %v", out["status"], out["message"])
	}
	if out["message"] != "Sent to api fixes." {
		t.Errorf("unexpected message %v", out["message"])
	}

	if !s.gw.Queue.WaitIdle(5 * time.Second) {
		t.Fatal("deliveries did not finish")
	}

	got := s.agent.received()
	if len(got) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(got))
	}
	if got[0].Lane != types.AgentLane(api.ID) || got[0].Text != "add retries" || got[0].Source != "http" {
		t.Errorf("unexpected envelope %+v", got[0])
	}
}

func TestEndToEndLaneOrdering(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	p, err := s.projects.Add(ctx, "Backend", "/src/backend")
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		_, err := s.gw.Dispatch(ctx, &gateway.Command{
			Source: "test",
			Target: target.ByName(target.KindProject, "backend"),
			Text:   fmt.Sprintf("step %d", i),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if !s.gw.Queue.WaitIdle(5 * time.Second) {
		t.Fatal("deliveries did not finish")
	}

	got := s.agent.received()
	if len(got) != 5 {
		t.Fatalf("expected 5 deliveries, got %d", len(got))
	}
	for i, env := range got {
		if env.Text != fmt.Sprintf("step %d", i) {
			t.Errorf("delivery %d out of order: %q", i, env.Text)
		}
	}

	evs, err := s.events.Tail(ctx, types.ProjectLane(p.ID), 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 10 {
		t.Fatalf("expected 10 events (command and delivered per run), got %d", len(evs))
	}
	for i, ev := range evs {
		if ev.Seq != int64(i+1) {
			t.Errorf("expected seq %d, got %d", i+1, ev.Seq)
		}
	}
}

func TestEndToEndTaskWebhook(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	p, err := s.projects.Add(ctx, "Frontend", "/src/frontend")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.tasks.Add(&state.Task{Name: "deploy", Target: "project:1", Command: "ship it", Enabled: true}); err != nil {
		t.Fatal(err)
	}

	out := s.post(t, "/webhook/deploy", `{}`)
	if out["status"] != http.StatusAccepted {
		t.Fatalf("expected 202, got %v", out["status"])
	}
	if !s.gw.Queue.WaitIdle(5 * time.Second) {
		t.Fatal("deliveries did not finish")
	}

	got := s.agent.received()
	if len(got) != 1 || got[0].Lane != types.ProjectLane(p.ID) || got[0].Text != "ship it" {
		t.Fatalf("unexpected deliveries %+v", got)
	}

	focus, err := s.focus.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if focus.LastActiveProjectID != p.ID {
		t.Errorf("expected Frontend to become last active project, got %q", focus.LastActiveProjectID)
	}

	// With nothing focused, "current" now falls back to the last active project.
	out = s.post(t, "/api/resolve", `{"target":"current"}`)
	if out["kind"] != "project" {
		t.Errorf("expected current to resolve to a project, got %v", out["kind"])
	}
}
