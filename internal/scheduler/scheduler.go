// internal/scheduler/scheduler.go
package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/user/vibecode/internal/state"
	"github.com/user/vibecode/internal/target"
)

// Handler is the callback invoked when a scheduled task fires.
type Handler func(task string, t *target.Target, text string)

// Scheduler evaluates cron expressions from the task store and fires tasks
// through a handler callback.
type Scheduler struct {
	store   *state.TaskStore
	handler Handler
	cron    *cron.Cron
	entries int
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateSchedule reports whether expr is a cron expression the scheduler accepts.
func ValidateSchedule(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return nil
}

// New creates a new Scheduler backed by the given task store. The handler is
// called each time a scheduled task fires.
func New(store *state.TaskStore, handler Handler) *Scheduler {
	return &Scheduler{
		store:   store,
		handler: handler,
		cron:    cron.New(cron.WithParser(cronParser)),
	}
}

// Start loads tasks from the store, registers enabled tasks that have a
// schedule and a valid target as cron entries, and starts the cron ticker.
func (s *Scheduler) Start() error {
	tasks, err := s.store.List()
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	s.entries = 0
	for _, task := range tasks {
		if task.Schedule == "" || !task.Enabled {
			continue
		}

		t, err := target.Parse(task.Target)
		if err != nil {
			slog.Error("invalid task target", "name", task.Name, "target", task.Target, "error", err)
			continue
		}

		name := task.Name
		text := task.Command
		_, err = s.cron.AddFunc(task.Schedule, func() {
			slog.Info("cron firing task", "name", name, "target", t.String())
			s.handler(name, t, text)
		})
		if err != nil {
			slog.Error("invalid cron schedule", "name", name, "schedule", task.Schedule, "error", err)
			continue
		}
		s.entries++
		slog.Info("scheduled task", "name", name, "schedule", task.Schedule)
	}

	s.cron.Start()
	return nil
}

// Len returns the number of tasks registered by the last Start.
func (s *Scheduler) Len() int {
	return s.entries
}

// Reload stops the existing cron, creates a new one, and calls Start() again.
func (s *Scheduler) Reload() error {
	s.cron.Stop()
	s.cron = cron.New(cron.WithParser(cronParser))
	return s.Start()
}

// Stop stops the cron ticker.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
