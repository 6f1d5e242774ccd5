package catalogstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/videocatalog/catalogcore/internal/cleaner"
)

// MergeDuplicates implements merge_duplicates(name): load every valid row
// sharing name, ordered by quality_score desc then updated_at desc. The first
// is primary; play-URLs and source_names from the rest are unioned into it,
// empty primary fields are back-filled from the others, and every non-primary
// row is deleted. Returns the surviving video_id, or "" if fewer than two rows
// existed (nothing to merge).
func (s *Store) MergeDuplicates(ctx context.Context, name string) (string, error) {
	rows, err := s.db.Conn.QueryContext(ctx, videoSelectCols+`
		WHERE name = ? AND is_valid = true
		ORDER BY quality_score DESC, updated_at DESC`, name)
	if err != nil {
		return "", fmt.Errorf("catalogstore: merge_duplicates query: %w", err)
	}
	var group []Video
	for rows.Next() {
		v, ok, err := scanVideo(rows)
		if err != nil {
			rows.Close()
			return "", err
		}
		if ok {
			group = append(group, v)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return "", fmt.Errorf("catalogstore: merge_duplicates rows: %w", err)
	}
	rows.Close()

	if len(group) < 2 {
		if len(group) == 1 {
			return group[0].VideoID, nil
		}
		return "", nil
	}

	primary := group[0]
	mergedPlayURLs := primary.PlayURLs
	for _, dup := range group[1:] {
		mergedPlayURLs = cleaner.MergeCleaned(mergedPlayURLs, dup.PlayURLs)
		primary.SourceNames = unionStrings(primary.SourceNames, dup.SourceNames)
		if primary.CoverURL == "" {
			primary.CoverURL = dup.CoverURL
		}
		if primary.ThumbURL == "" {
			primary.ThumbURL = dup.ThumbURL
		}
		if primary.Synopsis == "" {
			primary.Synopsis = dup.Synopsis
		}
		if primary.Remarks == "" {
			primary.Remarks = dup.Remarks
		}
		if len(primary.Actors) == 0 {
			primary.Actors = dup.Actors
		}
		if len(primary.Directors) == 0 {
			primary.Directors = dup.Directors
		}
		if len(primary.Tags) == 0 {
			primary.Tags = dup.Tags
		}
		if primary.Year == 0 {
			primary.Year = dup.Year
		}
		if primary.Area == "" {
			primary.Area = dup.Area
		}
	}
	primary.PlayURLs = mergedPlayURLs
	primary.QualityScore = ComputeQualityScore(primary)

	if err := s.updateVideo(ctx, primary); err != nil {
		return "", err
	}
	for _, dup := range group[1:] {
		if _, err := s.db.Conn.ExecContext(ctx, `DELETE FROM videos WHERE video_id = ?`, dup.VideoID); err != nil {
			return "", fmt.Errorf("catalogstore: merge_duplicates delete %s: %w", dup.VideoID, err)
		}
	}
	return primary.VideoID, nil
}

// CleanupDuplicates implements cleanup_duplicates: finds every name with more
// than one valid row and runs MergeDuplicates on each, returning the count of
// names merged.
func (s *Store) CleanupDuplicates(ctx context.Context) (int, error) {
	rows, err := s.db.Conn.QueryContext(ctx, `
		SELECT name FROM videos WHERE is_valid = true GROUP BY name HAVING COUNT(*) > 1`)
	if err != nil {
		return 0, fmt.Errorf("catalogstore: cleanup_duplicates query: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return 0, fmt.Errorf("catalogstore: cleanup_duplicates scan: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("catalogstore: cleanup_duplicates rows: %w", err)
	}
	rows.Close()

	sort.Strings(names)
	merged := 0
	for _, name := range names {
		if _, err := s.MergeDuplicates(ctx, name); err != nil {
			return merged, err
		}
		merged++
	}
	return merged, nil
}
