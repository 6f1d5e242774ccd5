package catalogstore

import (
	"context"
	"fmt"
)

// These queries back the Recommender's candidate-generation steps (spec
// §4.K content_based: same-actor, then same-type+same-area, then
// same-type fallback) and its trending/shorts strategies. Each returns
// is_valid rows only, ordered by quality_score DESC as a reasonable
// completeness-first tiebreak, excluding the seed video itself.

// ListByActor finds other videos crediting actor.
func (s *Store) ListByActor(ctx context.Context, actor, excludeID string, limit int) ([]Video, error) {
	return s.queryVideos(ctx, videoSelectCols+`
		WHERE is_valid = true AND video_id != ? AND actors LIKE ?
		ORDER BY quality_score DESC LIMIT ?`, excludeID, "%"+actor+"%", limit)
}

// ListByTypeArea finds top-rated videos sharing type and area.
func (s *Store) ListByTypeArea(ctx context.Context, typeID int, area, excludeID string, limit int) ([]Video, error) {
	return s.queryVideos(ctx, videoSelectCols+`
		WHERE is_valid = true AND video_id != ? AND type_id = ? AND area = ?
		ORDER BY quality_score DESC LIMIT ?`, excludeID, typeID, area, limit)
}

// ListByType finds top-rated videos sharing only type (the content-based
// fallback tier).
func (s *Store) ListByType(ctx context.Context, typeID int, excludeID string, limit int) ([]Video, error) {
	return s.queryVideos(ctx, videoSelectCols+`
		WHERE is_valid = true AND video_id != ? AND type_id = ?
		ORDER BY quality_score DESC LIMIT ?`, excludeID, typeID, limit)
}

// ListTrendingCandidates returns a hit-ranked pool for the trending
// strategy's composite scoring (spec §4.K trending), optionally scoped to
// one type_id (typeID <= 0 means no filter).
func (s *Store) ListTrendingCandidates(ctx context.Context, typeID int, limit int) ([]Video, error) {
	if typeID > 0 {
		return s.queryVideos(ctx, videoSelectCols+`
			WHERE is_valid = true AND type_id = ?
			ORDER BY hits_alltime DESC LIMIT ?`, typeID, limit)
	}
	return s.queryVideos(ctx, videoSelectCols+`
		WHERE is_valid = true
		ORDER BY hits_alltime DESC LIMIT ?`, limit)
}

// ListShortsByCategory returns ShortDrama rows sharing shortsCategory.
func (s *Store) ListShortsByCategory(ctx context.Context, typeID int, shortsCategory, excludeID string, limit int) ([]Video, error) {
	return s.queryVideos(ctx, videoSelectCols+`
		WHERE is_valid = true AND video_id != ? AND type_id = ? AND shorts_category = ?
		ORDER BY quality_score DESC LIMIT ?`, excludeID, typeID, shortsCategory, limit)
}

// ListShortsTrending returns the overall ShortDrama trending pool (spec
// §4.K shorts_similar's fallback).
func (s *Store) ListShortsTrending(ctx context.Context, typeID int, excludeID string, limit int) ([]Video, error) {
	return s.queryVideos(ctx, videoSelectCols+`
		WHERE is_valid = true AND video_id != ? AND type_id = ?
		ORDER BY quality_score DESC, hits_alltime DESC LIMIT ?`, excludeID, typeID, limit)
}

// HotVideosOlderThan returns is_valid videos whose recommendations cache for
// algorithm is missing or older than cutoff, used by the batch precompute
// routine (spec §4.K: "hottest videos whose cache is older than 7 days").
func (s *Store) HotVideosOlderThan(ctx context.Context, algorithm string, cutoff interface{}, limit int) ([]Video, error) {
	return s.queryVideos(ctx, videoSelectCols+`
		WHERE is_valid = true AND video_id NOT IN (
			SELECT video_id FROM recommendations WHERE algorithm = ? AND computed_at >= ?
		)
		ORDER BY hits_alltime DESC LIMIT ?`, algorithm, cutoff, limit)
}

func (s *Store) queryVideos(ctx context.Context, query string, args ...interface{}) ([]Video, error) {
	rows, err := s.db.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalogstore: query videos: %w", err)
	}
	defer rows.Close()

	var out []Video
	for rows.Next() {
		v, ok, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, rows.Err()
}
