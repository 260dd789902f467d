// Package target resolves partially specified command targets ("the
// backend project", "agent 2", "the current one", "all of them") to a
// concrete project, agent session, or broadcast.
//
// Resolution is a pure function over a Directory snapshot: it performs no
// I/O and keeps no state between calls. A resolved id refers to the
// snapshot it was resolved against; callers that act on it later should
// look the entity up again.
package target
