package catalogstore

import (
	"context"
	"fmt"
)

// UpdateRating mirrors an enriched score onto the video row (spec §4.I:
// "mirror score onto the video row with source = tmdb"), a targeted update
// that leaves every other column untouched.
func (s *Store) UpdateRating(ctx context.Context, videoID string, score float64, source string) error {
	_, err := s.db.Conn.ExecContext(ctx, `
		UPDATE videos SET rating = ?, rating_source = ?, updated_at = CURRENT_TIMESTAMP
		WHERE video_id = ?`, score, source, videoID)
	if err != nil {
		return fmt.Errorf("catalogstore: update rating for %s: %w", videoID, err)
	}
	return nil
}
