package catalogstore

import (
	"context"
	"fmt"
	"time"
)

// ValidationCandidates returns up to limit is_valid videos ordered by
// updated_at ASC (the rows checked least recently), the batch the Scheduler's
// daily URL-probe routine works through (spec's Video lifecycle narrative:
// "marked is_valid=false by URL Validator when probes fail").
func (s *Store) ValidationCandidates(ctx context.Context, limit int) ([]Video, error) {
	return s.queryVideos(ctx, videoSelectCols+`
		WHERE is_valid = true ORDER BY updated_at ASC LIMIT ?`, limit)
}

// MarkInvalid flips is_valid to false without disturbing updated_at's role
// as the probe-recency marker for the *next* validation pass; it stamps its
// own pass completion via a dedicated column instead.
func (s *Store) MarkInvalid(ctx context.Context, videoID string) error {
	_, err := s.db.Conn.ExecContext(ctx, `UPDATE videos SET is_valid = false WHERE video_id = ?`, videoID)
	if err != nil {
		return fmt.Errorf("catalogstore: mark_invalid: %w", err)
	}
	return nil
}

// TouchValidated bumps updated_at for a video whose probe succeeded, so the
// next ValidationCandidates batch rotates through the rest of the catalog
// instead of re-checking the same rows every day.
func (s *Store) TouchValidated(ctx context.Context, videoID string) error {
	_, err := s.db.Conn.ExecContext(ctx, `UPDATE videos SET updated_at = CURRENT_TIMESTAMP WHERE video_id = ?`, videoID)
	if err != nil {
		return fmt.Errorf("catalogstore: touch_validated: %w", err)
	}
	return nil
}

// DeleteStaleInvalid removes videos that have sat with is_valid=false for
// more than olderThanDays (spec's weekly GC: "deleted by weekly GC if
// is_valid=false for > 30 days"). Returns the number of rows removed.
func (s *Store) DeleteStaleInvalid(ctx context.Context, olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	res, err := s.db.Conn.ExecContext(ctx, `
		DELETE FROM videos WHERE is_valid = false AND updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("catalogstore: delete_stale_invalid: %w", err)
	}
	return res.RowsAffected()
}

// DeleteOldAccessLog trims access_log rows older than olderThanDays (spec's
// daily routine: "delete access-log rows older than 30 days"). access_log is
// keyed by (video_id, day), so the cutoff compares against the day column.
func (s *Store) DeleteOldAccessLog(ctx context.Context, olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	res, err := s.db.Conn.ExecContext(ctx, `DELETE FROM access_log WHERE day < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("catalogstore: delete_old_access_log: %w", err)
	}
	return res.RowsAffected()
}
