package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/regwatchio/regwatch/internal/monitor"
)

// SnapshotStore appends fetch-attempt records. Rows are never updated or
// deleted; each source's timeline is append-only.
type SnapshotStore struct {
	pool dbPool
}

// NewSnapshotStore constructs a SnapshotStore over an existing pool.
func NewSnapshotStore(pool dbPool) (*SnapshotStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &SnapshotStore{pool: pool}, nil
}

// Insert appends one snapshot row. A failure here is fatal to the owning
// source's pipeline run: without a durable record there is nothing to
// compare the next fetch against.
func (s *SnapshotStore) Insert(ctx context.Context, snap monitor.Snapshot) error {
	if snap.ID == "" {
		return fmt.Errorf("snapshot id is required")
	}
	query := `
INSERT INTO snapshots (
	id,
	source_id,
	content,
	fingerprint,
	outcome,
	http_status,
	error_message,
	blob_uri,
	fetched_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9
)`

	args := []any{
		snap.ID,
		snap.SourceID,
		snap.Content,
		snap.Fingerprint,
		string(snap.Outcome),
		snap.HTTPStatus,
		snap.ErrorMessage,
		snap.BlobURI,
		snap.FetchedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// LatestGood returns the most recent success-outcome snapshot for the
// source, or nil when the source has never been fetched successfully.
// Error snapshots are skipped so a failed fetch never becomes the
// comparison baseline.
func (s *SnapshotStore) LatestGood(ctx context.Context, sourceID string) (*monitor.Snapshot, error) {
	query := `
SELECT id, source_id, content, fingerprint, outcome, http_status, error_message, blob_uri, fetched_at
FROM snapshots
WHERE source_id = $1 AND outcome = 'success'
ORDER BY fetched_at DESC
LIMIT 1`

	var (
		snap    monitor.Snapshot
		outcome string
	)
	err := s.pool.QueryRow(ctx, query, sourceID).Scan(
		&snap.ID,
		&snap.SourceID,
		&snap.Content,
		&snap.Fingerprint,
		&outcome,
		&snap.HTTPStatus,
		&snap.ErrorMessage,
		&snap.BlobURI,
		&snap.FetchedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest good snapshot: %w", err)
	}
	snap.Outcome = monitor.FetchOutcome(outcome)
	return &snap, nil
}
