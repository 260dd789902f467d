// internal/delivery/registry.go
package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/user/vibecode/internal/types"
)

// ErrNoHandler is returned when no handler matches a lane.
var ErrNoHandler = errors.New("no delivery handler")

// Envelope is a resolved command on its way to a recipient.
type Envelope struct {
	RunID  types.RunID   `json:"run_id"`
	Lane   types.LaneKey `json:"lane"`
	Name   string        `json:"name"`
	Text   string        `json:"text"`
	Source string        `json:"source,omitempty"`
	UserID string        `json:"user_id,omitempty"`
	At     time.Time     `json:"at"`
}

// Handler delivers an envelope to the recipient named by its lane.
type Handler func(ctx context.Context, env Envelope) error

// Registry routes envelopes to the appropriate delivery handler based on
// lane prefix (e.g. "agent:", "project:"). The longest matching prefix
// wins, so an empty prefix acts as a fallback.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty delivery registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler for lanes starting with prefix.
func (r *Registry) Register(prefix string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[prefix] = handler
}

// Deliver finds the handler matching the envelope's lane and calls it.
func (r *Registry) Deliver(ctx context.Context, env Envelope) error {
	r.mu.RLock()
	var (
		handler Handler
		best    = -1
	)
	for prefix, h := range r.handlers {
		if strings.HasPrefix(string(env.Lane), prefix) && len(prefix) > best {
			handler, best = h, len(prefix)
		}
	}
	r.mu.RUnlock()

	if handler == nil {
		return fmt.Errorf("%w for lane: %s", ErrNoHandler, env.Lane)
	}
	return handler(ctx, env)
}
