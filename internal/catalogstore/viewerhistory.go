package catalogstore

import (
	"context"
	"fmt"
	"strings"
)

// RecordWatch appends one viewer_history row (spec §4.K collaborative/
// personalized: "from viewer history of target user").
func (s *Store) RecordWatch(ctx context.Context, userID, videoID string) error {
	_, err := s.db.Conn.ExecContext(ctx,
		`INSERT INTO viewer_history (user_id, video_id) VALUES (?, ?)`, userID, videoID)
	if err != nil {
		return fmt.Errorf("catalogstore: record watch: %w", err)
	}
	return nil
}

// WatchedVideoIDs returns the distinct videos userID has watched.
func (s *Store) WatchedVideoIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.Conn.QueryContext(ctx,
		`SELECT DISTINCT video_id FROM viewer_history WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("catalogstore: watched video ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// CandidateScore is one collaborative-filtering candidate: a video other
// similar users watched, ranked by how many of them watched it.
type CandidateScore struct {
	VideoID   string
	UserCount int
	Score     int
}

// CollaborativeCandidates implements spec §4.K's collaborative ranking:
// find other users sharing at least minShared titles with userID, then rank
// videos those users watched (that userID has not) by overlapping-user count,
// then by quality_score. Returns (nil, nil) when userID has no history or no
// user meets minShared, signalling the caller to degrade to trending.
func (s *Store) CollaborativeCandidates(ctx context.Context, userID string, minShared, limit int) ([]CandidateScore, error) {
	watched, err := s.WatchedVideoIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(watched) == 0 {
		return nil, nil
	}

	simRows, err := s.db.Conn.QueryContext(ctx, `
		SELECT other.user_id
		FROM viewer_history mine
		JOIN viewer_history other ON mine.video_id = other.video_id AND other.user_id != ?
		WHERE mine.user_id = ?
		GROUP BY other.user_id
		HAVING COUNT(DISTINCT other.video_id) >= ?`, userID, userID, minShared)
	if err != nil {
		return nil, fmt.Errorf("catalogstore: similar users: %w", err)
	}
	var similarUsers []string
	for simRows.Next() {
		var u string
		if err := simRows.Scan(&u); err != nil {
			simRows.Close()
			return nil, err
		}
		similarUsers = append(similarUsers, u)
	}
	if err := simRows.Err(); err != nil {
		simRows.Close()
		return nil, err
	}
	simRows.Close()
	if len(similarUsers) == 0 {
		return nil, nil
	}

	userPlaceholders := strings.TrimSuffix(strings.Repeat("?,", len(similarUsers)), ",")
	excludePlaceholders := strings.TrimSuffix(strings.Repeat("?,", len(watched)), ",")
	args := make([]interface{}, 0, len(similarUsers)+len(watched))
	for _, u := range similarUsers {
		args = append(args, u)
	}
	for _, v := range watched {
		args = append(args, v)
	}

	query := fmt.Sprintf(`
		SELECT vh.video_id, COUNT(DISTINCT vh.user_id) AS user_count, MAX(v.quality_score) AS score
		FROM viewer_history vh
		JOIN videos v ON v.video_id = vh.video_id
		WHERE vh.user_id IN (%s) AND vh.video_id NOT IN (%s) AND v.is_valid = true
		GROUP BY vh.video_id
		ORDER BY user_count DESC, score DESC
		LIMIT ?`, userPlaceholders, excludePlaceholders)
	args = append(args, limit)

	rows, err := s.db.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalogstore: collaborative candidates: %w", err)
	}
	defer rows.Close()

	var out []CandidateScore
	for rows.Next() {
		var c CandidateScore
		if err := rows.Scan(&c.VideoID, &c.UserCount, &c.Score); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// PreferenceProfile summarizes a viewer's recent taste, derived from their
// last N watches (spec §4.K personalized: "preferred types/areas/actors from
// last 50 watches").
type PreferenceProfile struct {
	Types   map[int]int
	Areas   map[string]int
	Actors  map[string]int
	Watched []string
}

// BuildPreferenceProfile computes userID's PreferenceProfile from their
// recentLimit most recent watches.
func (s *Store) BuildPreferenceProfile(ctx context.Context, userID string, recentLimit int) (PreferenceProfile, error) {
	profile := PreferenceProfile{Types: map[int]int{}, Areas: map[string]int{}, Actors: map[string]int{}}

	rows, err := s.db.Conn.QueryContext(ctx, `
		SELECT v.video_id, v.type_id, v.area, v.actors
		FROM viewer_history vh
		JOIN videos v ON v.video_id = vh.video_id
		WHERE vh.user_id = ?
		ORDER BY vh.watched_at DESC
		LIMIT ?`, userID, recentLimit)
	if err != nil {
		return profile, fmt.Errorf("catalogstore: preference profile: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var videoID, area, actorsCSV string
		var typeID int
		if err := rows.Scan(&videoID, &typeID, &area, &actorsCSV); err != nil {
			return profile, err
		}
		if !seen[videoID] {
			seen[videoID] = true
			profile.Watched = append(profile.Watched, videoID)
		}
		profile.Types[typeID]++
		if area != "" {
			profile.Areas[area]++
		}
		for _, actor := range splitCSV(actorsCSV) {
			profile.Actors[actor]++
		}
	}
	return profile, rows.Err()
}
