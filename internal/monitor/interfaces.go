package monitor

import (
	"context"
	"errors"
	"time"
)

// ErrEventNotFound reports that a change event ID matched no stored event.
var ErrEventNotFound = errors.New("change event not found")

// SourceStore lists the endpoints under monitoring.
type SourceStore interface {
	ListActive(ctx context.Context) ([]Source, error)
}

// SnapshotStore appends fetch-attempt records and serves the comparison
// baseline. Inserts are append-only; snapshots are never mutated.
type SnapshotStore interface {
	Insert(ctx context.Context, snap Snapshot) error
	// LatestGood returns the most recent success-outcome snapshot for the
	// source, or nil if the source has never been fetched successfully.
	LatestGood(ctx context.Context, sourceID string) (*Snapshot, error)
}

// EventStore persists and serves change events.
type EventStore interface {
	Insert(ctx context.Context, event ChangeEvent) error
	List(ctx context.Context, limit int) ([]ChangeEvent, error)
	MarkReviewed(ctx context.Context, eventID string, needsReview bool, at time.Time) error
}

// Fetcher retrieves a source's current content. One attempt, no retries;
// all failure modes are expressed in the FetchResult, never as an error.
type Fetcher interface {
	Fetch(ctx context.Context, src Source) FetchResult
}

// Analyzer turns a before/after content pair into a normalized result.
// It never returns an error; failures degrade to a flagged result.
type Analyzer interface {
	Analyze(ctx context.Context, src Source, previous, current []byte) AnalysisResult
}

// Hasher computes content fingerprints.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// BlobStore archives raw fetched bytes and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes change-event notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces snapshot and event IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
