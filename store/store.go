// Package store persists state machine snapshots.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no snapshot exists under a key.
var ErrNotFound = errors.New("snapshot not found")

// Snapshotter is implemented by *statemech.StateMachine.
type Snapshotter interface {
	Serialize() (string, error)
	Deserialize(snapshot string) error
}

// Store saves and restores snapshots by key.
type Store interface {
	// Save serializes s and stores the snapshot under key, replacing any
	// previous one.
	Save(ctx context.Context, key string, s Snapshotter) error
	// Load restores s from the snapshot stored under key.
	Load(ctx context.Context, key string, s Snapshotter) error
	// Delete removes the snapshot stored under key. Deleting a missing key is
	// not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// MachineName returns the name of s when it has one.
func MachineName(s Snapshotter) string {
	if named, ok := s.(interface{ Name() string }); ok {
		return named.Name()
	}
	return ""
}
