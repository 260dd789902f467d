// internal/state/event.go
package state

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/user/vibecode/internal/types"
)

// EventStore is a JSONL-backed append-only event store.
// Events are stored per lane in events/<kind>/<id>.jsonl.
type EventStore struct {
	root  string
	mu    sync.Mutex
	locks map[types.LaneKey]*sync.Mutex
}

// NewEventStore creates a new file-backed EventStore rooted at the given directory.
func NewEventStore(root string) *EventStore {
	return &EventStore{
		root:  root,
		locks: make(map[types.LaneKey]*sync.Mutex),
	}
}

// getLock returns the per-lane mutex, creating one if it doesn't exist.
func (e *EventStore) getLock(lane types.LaneKey) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	if lock, ok := e.locks[lane]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	e.locks[lane] = lock
	return lock
}

func (e *EventStore) eventsPath(lane types.LaneKey) (string, error) {
	kind, id := lane.Split()
	if !validLanePart(kind) || !validLanePart(id) {
		return "", fmt.Errorf("invalid lane: %q", lane)
	}
	return filepath.Join(e.root, "events", kind, id+".jsonl"), nil
}

func validLanePart(s string) bool {
	return s != "" && s != "." && s != ".." && filepath.Base(s) == s
}

// count reads the event file and counts lines. Caller must hold the lane lock.
func (e *EventStore) count(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()

	var count int64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		count++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("scan events file: %w", err)
	}
	return count, nil
}

// Append adds an event to the lane's log with an auto-incremented sequence number.
func (e *EventStore) Append(_ context.Context, event *types.Event) error {
	path, err := e.eventsPath(event.Lane)
	if err != nil {
		return err
	}

	lock := e.getLock(event.Lane)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create events dir: %w", err)
	}

	existing, err := e.count(path)
	if err != nil {
		return err
	}
	event.Seq = existing + 1

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()

	data = append(data, '\n')
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	return nil
}

// Tail returns the last N events for the given lane.
func (e *EventStore) Tail(_ context.Context, lane types.LaneKey, limit int) ([]*types.Event, error) {
	path, err := e.eventsPath(lane)
	if err != nil {
		return nil, err
	}

	lock := e.getLock(lane)
	lock.Lock()
	defer lock.Unlock()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()

	var events []*types.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var event types.Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		events = append(events, &event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan events file: %w", err)
	}

	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}

	return events, nil
}

// Count returns the number of events for the given lane.
func (e *EventStore) Count(_ context.Context, lane types.LaneKey) (int64, error) {
	path, err := e.eventsPath(lane)
	if err != nil {
		return 0, err
	}

	lock := e.getLock(lane)
	lock.Lock()
	defer lock.Unlock()

	return e.count(path)
}
