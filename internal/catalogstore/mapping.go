package catalogstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/videocatalog/catalogcore/internal/classify"
	"github.com/videocatalog/catalogcore/internal/health"
)

// The methods in this file implement health.Store and classify.MappingTable
// against the `sources`/`source_health` and `category_mappings`/`sub_categories`
// tables, keeping those two packages free of any import-time dependency on
// catalogstore.
var (
	_ health.Store          = (*Store)(nil)
	_ classify.MappingTable = (*Store)(nil)
)

// GetRecord implements health.Store.
func (s *Store) GetRecord(ctx context.Context, sourceID string) (health.Record, bool, error) {
	row := s.db.Conn.QueryRowContext(ctx, `
		SELECT source_id, status, last_response_ms, avg_response_ms, success_rate,
		       total_checks, success_checks, consecutive_failures, last_error,
		       last_error_at, last_video_count, updated_at
		FROM source_health WHERE source_id = ?`, sourceID)

	var (
		rec        health.Record
		status     string
		lastErr    sql.NullString
		lastErrAt  sql.NullTime
	)
	err := row.Scan(&rec.SourceID, &status, &rec.LastResponseMs, &rec.AvgResponseMs, &rec.SuccessRate,
		&rec.TotalChecks, &rec.SuccessChecks, &rec.ConsecutiveFailures, &lastErr, &lastErrAt,
		&rec.LastVideoCount, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return health.Record{}, false, nil
	}
	if err != nil {
		return health.Record{}, false, fmt.Errorf("catalogstore: get health record: %w", err)
	}
	rec.Status = health.Status(status)
	rec.LastError = lastErr.String
	rec.LastErrorAt = lastErrAt.Time
	return rec, true, nil
}

// SaveRecord implements health.Store with an upsert keyed on source_id.
func (s *Store) SaveRecord(ctx context.Context, rec health.Record) error {
	_, err := s.db.Conn.ExecContext(ctx, `
		INSERT INTO source_health (
			source_id, status, last_response_ms, avg_response_ms, success_rate,
			total_checks, success_checks, consecutive_failures, last_error,
			last_error_at, last_video_count, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_id) DO UPDATE SET
			status = EXCLUDED.status,
			last_response_ms = EXCLUDED.last_response_ms,
			avg_response_ms = EXCLUDED.avg_response_ms,
			success_rate = EXCLUDED.success_rate,
			total_checks = EXCLUDED.total_checks,
			success_checks = EXCLUDED.success_checks,
			consecutive_failures = EXCLUDED.consecutive_failures,
			last_error = EXCLUDED.last_error,
			last_error_at = EXCLUDED.last_error_at,
			last_video_count = EXCLUDED.last_video_count,
			updated_at = EXCLUDED.updated_at`,
		rec.SourceID, string(rec.Status), rec.LastResponseMs, rec.AvgResponseMs, rec.SuccessRate,
		rec.TotalChecks, rec.SuccessChecks, rec.ConsecutiveFailures, nullIfEmpty(rec.LastError),
		nullIfZeroTime(rec.LastErrorAt), rec.LastVideoCount, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("catalogstore: save health record: %w", err)
	}
	return nil
}

// ListActiveSources implements health.Store.
func (s *Store) ListActiveSources(ctx context.Context) ([]health.Source, error) {
	rows, err := s.db.Conn.QueryContext(ctx, `
		SELECT id, name, base_url, weight, active, format, welfare
		FROM sources WHERE active = true`)
	if err != nil {
		return nil, fmt.Errorf("catalogstore: list active sources: %w", err)
	}
	defer rows.Close()

	var out []health.Source
	for rows.Next() {
		var src health.Source
		if err := rows.Scan(&src.ID, &src.Name, &src.BaseURL, &src.Weight, &src.Active, &src.Format, &src.Welfare); err != nil {
			return nil, fmt.Errorf("catalogstore: scan source: %w", err)
		}
		out = append(out, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalogstore: list active sources rows: %w", err)
	}
	return out, nil
}

// GetSource fetches one source row by id, used by the Collection Engine when
// a task's config pins an explicit source_ids list rather than deferring to
// get_healthy_sources.
func (s *Store) GetSource(ctx context.Context, id string) (health.Source, bool, error) {
	var src health.Source
	err := s.db.Conn.QueryRowContext(ctx, `
		SELECT id, name, base_url, weight, active, format, welfare
		FROM sources WHERE id = ?`, id).
		Scan(&src.ID, &src.Name, &src.BaseURL, &src.Weight, &src.Active, &src.Format, &src.Welfare)
	if err == sql.ErrNoRows {
		return health.Source{}, false, nil
	}
	if err != nil {
		return health.Source{}, false, fmt.Errorf("catalogstore: get source: %w", err)
	}
	return src, true, nil
}

// LookupCategoryMapping implements classify.MappingTable against the
// source-specific `category_mappings` table.
func (s *Store) LookupCategoryMapping(ctx context.Context, sourceID, upstreamTypeID string) (classify.TypeID, bool, error) {
	var typeID int
	err := s.db.Conn.QueryRowContext(ctx, `
		SELECT type_id FROM category_mappings WHERE source_id = ? AND upstream_type_id = ?`,
		sourceID, upstreamTypeID).Scan(&typeID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("catalogstore: lookup category mapping: %w", err)
	}
	return classify.TypeID(typeID), true, nil
}

// LookupSubCategory implements classify.MappingTable against the
// parent-scoped `sub_categories` table.
func (s *Store) LookupSubCategory(ctx context.Context, parent classify.TypeID, subTypeName string) (int, bool, error) {
	var subTypeID int
	err := s.db.Conn.QueryRowContext(ctx, `
		SELECT sub_type_id FROM sub_categories WHERE type_id = ? AND name = ?`,
		int(parent), subTypeName).Scan(&subTypeID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("catalogstore: lookup sub-category: %w", err)
	}
	return subTypeID, true, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZeroTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
