package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/regwatchio/regwatch/internal/monitor"
)

// EventStore persists change events and serves the review surface.
type EventStore struct {
	pool dbPool
}

// NewEventStore constructs an EventStore over an existing pool.
func NewEventStore(pool dbPool) (*EventStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &EventStore{pool: pool}, nil
}

// Insert records one change event. The (source_id, after_snapshot_id)
// unique constraint backs the at-most-one-event-per-comparison invariant.
func (s *EventStore) Insert(ctx context.Context, event monitor.ChangeEvent) error {
	if event.ID == "" {
		return fmt.Errorf("event id is required")
	}
	tagsJSON, err := json.Marshal(normalizeTags(event.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	query := `
INSERT INTO change_events (
	id,
	source_id,
	before_snapshot_id,
	after_snapshot_id,
	summary,
	tags,
	doc_status,
	effective_date,
	needs_review,
	reviewed_at,
	detected_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)`

	args := []any{
		event.ID,
		event.SourceID,
		event.BeforeSnapshotID,
		event.AfterSnapshotID,
		event.Summary,
		tagsJSON,
		string(event.DocStatus),
		event.EffectiveDate,
		event.NeedsReview,
		event.ReviewedAt,
		event.DetectedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert change event: %w", err)
	}
	return nil
}

// List returns the most recent change events, newest first.
func (s *EventStore) List(ctx context.Context, limit int) ([]monitor.ChangeEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
SELECT id, source_id, before_snapshot_id, after_snapshot_id, summary, tags,
	doc_status, effective_date, needs_review, reviewed_at, detected_at
FROM change_events
ORDER BY detected_at DESC
LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list change events: %w", err)
	}
	defer rows.Close()

	var events []monitor.ChangeEvent
	for rows.Next() {
		var (
			event     monitor.ChangeEvent
			tagsJSON  []byte
			docStatus string
		)
		if err := rows.Scan(
			&event.ID,
			&event.SourceID,
			&event.BeforeSnapshotID,
			&event.AfterSnapshotID,
			&event.Summary,
			&tagsJSON,
			&docStatus,
			&event.EffectiveDate,
			&event.NeedsReview,
			&event.ReviewedAt,
			&event.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("scan change event row: %w", err)
		}
		if len(tagsJSON) > 0 {
			if err := json.Unmarshal(tagsJSON, &event.Tags); err != nil {
				return nil, fmt.Errorf("unmarshal tags: %w", err)
			}
		}
		event.DocStatus = monitor.DocStatus(docStatus)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate change event rows: %w", err)
	}
	return events, nil
}

// MarkReviewed records the review collaborator's decision on an event.
// This is the only post-insert mutation change_events ever sees.
func (s *EventStore) MarkReviewed(ctx context.Context, eventID string, needsReview bool, at time.Time) error {
	query := `
UPDATE change_events
SET needs_review = $2, reviewed_at = $3
WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, eventID, needsReview, at)
	if err != nil {
		return fmt.Errorf("mark event reviewed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark event reviewed %s: %w", eventID, monitor.ErrEventNotFound)
	}
	return nil
}

func normalizeTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
