package main

import (
	"path/filepath"

	"github.com/user/vibecode/internal/config"
	"github.com/user/vibecode/internal/delivery"
	"github.com/user/vibecode/internal/gateway"
	"github.com/user/vibecode/internal/state"
)

// stores bundles the file-backed stores under the data dir.
type stores struct {
	projects *state.ProjectStore
	sessions *state.SessionStore
	focus    *state.FocusStore
	events   *state.EventStore
	tasks    *state.TaskStore
}

func openStores(cfg *config.Config) *stores {
	return &stores{
		projects: state.NewProjectStore(cfg.DataDir),
		sessions: state.NewSessionStore(cfg.DataDir),
		focus:    state.NewFocusStore(cfg.DataDir),
		events:   state.NewEventStore(cfg.DataDir),
		tasks:    state.NewTaskStore(filepath.Join(cfg.DataDir, "tasks.json")),
	}
}

// newDeliveryRegistry posts to the configured endpoint, or logs when none is set.
func newDeliveryRegistry(cfg *config.Config) *delivery.Registry {
	reg := delivery.NewRegistry()
	if cfg.Delivery.URL != "" {
		reg.Register("", delivery.HTTPHandler(cfg.Delivery.URL, cfg.Delivery.Token, nil))
	} else {
		reg.Register("", delivery.LogHandler())
	}
	return reg
}

func newGateway(cfg *config.Config, s *stores) *gateway.Gateway {
	return gateway.New(s.projects, s.sessions, s.focus, s.events, newDeliveryRegistry(cfg), int64(cfg.MaxConcurrent))
}
