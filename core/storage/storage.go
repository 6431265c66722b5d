// Package storage keeps rendered schema exports so that migrations can be
// reviewed as diffs between snapshots.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNoSnapshot is returned when no snapshot matches a lookup.
var ErrNoSnapshot = errors.New("no snapshot")

// Snapshot is one rendered export of a schema for a target.
type Snapshot struct {
	ID        string    `json:"id"`
	Schema    string    `json:"schema"`
	Target    string    `json:"target"`
	Digest    string    `json:"digest"`
	Body      []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists snapshots.
type Store interface {
	// Save stores body as the newest snapshot of schema/target. When body is
	// identical to the newest snapshot nothing is written, and the existing
	// snapshot is returned with created == false.
	Save(ctx context.Context, schema, target string, body []byte) (snap Snapshot, created bool, err error)

	// Latest returns the newest snapshot of schema/target.
	Latest(ctx context.Context, schema, target string) (Snapshot, error)

	// Get returns a snapshot by id.
	Get(ctx context.Context, id string) (Snapshot, error)

	// History returns up to limit snapshots of schema/target, newest first.
	History(ctx context.Context, schema, target string, limit int) ([]Snapshot, error)

	Close() error
}
