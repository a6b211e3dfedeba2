package postgres

import (
	"context"
	"fmt"

	"github.com/regwatchio/regwatch/internal/monitor"
)

// SourceStore reads monitored sources. The pipeline never writes this
// table; source lifecycle belongs to the admin surface.
type SourceStore struct {
	pool dbPool
}

// NewSourceStore constructs a SourceStore over an existing pool.
func NewSourceStore(pool dbPool) (*SourceStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &SourceStore{pool: pool}, nil
}

// ListActive returns all sources with the active flag set, in name order.
func (s *SourceStore) ListActive(ctx context.Context) ([]monitor.Source, error) {
	query := `
SELECT id, name, url, category, active
FROM sources
WHERE active = TRUE
ORDER BY name`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active sources: %w", err)
	}
	defer rows.Close()

	var sources []monitor.Source
	for rows.Next() {
		var src monitor.Source
		if err := rows.Scan(&src.ID, &src.Name, &src.URL, &src.Category, &src.Active); err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source rows: %w", err)
	}
	return sources, nil
}
