// Package state provides filesystem-backed storage implementations.
package state

import (
	"errors"

	"github.com/user/vibecode/internal/types"
)

// ErrNotFound is wrapped by lookups that find no matching record.
var ErrNotFound = errors.New("not found")

// Compile-time interface compliance checks.
var _ types.ProjectDirectory = (*ProjectStore)(nil)
var _ types.SessionDirectory = (*SessionStore)(nil)
var _ types.FocusStore = (*FocusStore)(nil)
var _ types.EventStore = (*EventStore)(nil)
