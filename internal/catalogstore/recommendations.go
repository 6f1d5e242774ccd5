package catalogstore

import (
	"context"
	"fmt"
)

// NeighborScore is one precomputed content_based neighbor (spec §58
// RecommendationCache: "a list of similar video_ids for a given algorithm
// label with an associated confidence").
type NeighborScore struct {
	VideoID    string
	Confidence float64
}

// CachedNeighbors reads the precomputed recommendations cache for
// (videoID, algorithm).
func (s *Store) CachedNeighbors(ctx context.Context, videoID, algorithm string) ([]NeighborScore, error) {
	rows, err := s.db.Conn.QueryContext(ctx, `
		SELECT similar_video_id, confidence FROM recommendations
		WHERE video_id = ? AND algorithm = ?
		ORDER BY confidence DESC`, videoID, algorithm)
	if err != nil {
		return nil, fmt.Errorf("catalogstore: cached neighbors: %w", err)
	}
	defer rows.Close()

	var out []NeighborScore
	for rows.Next() {
		var n NeighborScore
		if err := rows.Scan(&n.VideoID, &n.Confidence); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// UpsertNeighbors replaces the cached neighbor set for (videoID, algorithm),
// backing the batch precompute routine (spec §4.K: "writes content_based
// neighbors (up to 20) with a confidence for the hottest videos").
func (s *Store) UpsertNeighbors(ctx context.Context, videoID, algorithm string, neighbors []NeighborScore) error {
	tx, err := s.db.Conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalogstore: upsert neighbors begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM recommendations WHERE video_id = ? AND algorithm = ?`, videoID, algorithm); err != nil {
		return fmt.Errorf("catalogstore: upsert neighbors delete: %w", err)
	}
	for _, n := range neighbors {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO recommendations (video_id, algorithm, similar_video_id, confidence, computed_at)
			VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (video_id, algorithm, similar_video_id) DO UPDATE SET
				confidence = EXCLUDED.confidence, computed_at = EXCLUDED.computed_at`,
			videoID, algorithm, n.VideoID, n.Confidence); err != nil {
			return fmt.Errorf("catalogstore: upsert neighbors insert: %w", err)
		}
	}
	return tx.Commit()
}
