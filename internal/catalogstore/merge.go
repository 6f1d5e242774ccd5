package catalogstore

import (
	"context"
	"fmt"
	"time"

	"github.com/videocatalog/catalogcore/internal/cleaner"
)

// Outcome is the per-video result the Collection Engine counts into its
// progress counters (spec §4.F step 4: new/update/skip/error).
type Outcome string

const (
	OutcomeNew    Outcome = "new"
	OutcomeUpdate Outcome = "update"
	OutcomeSkip   Outcome = "skip"
)

// Ingest implements spec §4.G's "on match: merge... on miss: insert" behavior.
// sourceName is added to the merged/new row's source_names set.
func (s *Store) Ingest(ctx context.Context, incoming Video, sourceName string) (Outcome, string, error) {
	if incoming.Name == "" {
		return OutcomeSkip, "", nil
	}
	firstDirector := firstOf(incoming.Directors)

	existing, found, err := s.FindExisting(ctx, incoming.Name, incoming.Year, incoming.Area, firstDirector)
	if err != nil {
		return "", "", err
	}

	if found {
		merged := mergeInto(existing, incoming, sourceName)
		if existing.Year == 0 && incoming.Year != 0 {
			merged.Year = incoming.Year
		}
		merged.QualityScore = ComputeQualityScore(merged)
		merged.UpdatedAt = time.Now()
		if err := s.updateVideo(ctx, merged); err != nil {
			return "", "", err
		}
		return OutcomeUpdate, merged.VideoID, nil
	}

	newVideo := incoming
	newVideo.VideoID = NewVideoID(incoming.Name, incoming.Year, incoming.Area, firstDirector)
	newVideo.SourceNames = unionStrings(nil, append(incoming.SourceNames, sourceName))
	newVideo.QualityScore = ComputeQualityScore(newVideo)
	newVideo.IsValid = longestPlayURL(newVideo.PlayURLs) > 0
	now := time.Now()
	newVideo.CreatedAt = now
	newVideo.UpdatedAt = now

	if newVideo.TypeID == 5 { // TypeShortDrama; avoided importing classify here to dodge a cycle
		applyShortsPreview(&newVideo)
	}

	if err := s.insertVideo(ctx, newVideo); err != nil {
		return "", "", err
	}
	return OutcomeNew, newVideo.VideoID, nil
}

// mergeInto implements the on-match branch: play-URLs merged existing-wins,
// source_names unioned, remarks refreshed if the incoming one is non-empty.
func mergeInto(existing, incoming Video, sourceName string) Video {
	out := existing
	out.PlayURLs = cleaner.MergeCleaned(existing.PlayURLs, incoming.PlayURLs)
	out.SourceNames = unionStrings(existing.SourceNames, append(incoming.SourceNames, sourceName))
	if incoming.Remarks != "" {
		out.Remarks = incoming.Remarks
	}
	if out.CoverURL == "" {
		out.CoverURL = incoming.CoverURL
	}
	if out.Synopsis == "" {
		out.Synopsis = incoming.Synopsis
	}
	if len(out.Actors) == 0 {
		out.Actors = incoming.Actors
	}
	if len(out.Directors) == 0 {
		out.Directors = incoming.Directors
	}
	return out
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, ss := range [][]string{a, b} {
		for _, s := range ss {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func (s *Store) insertVideo(ctx context.Context, v Video) error {
	playURLsJSON, err := marshalJSON(v.PlayURLs)
	if err != nil {
		return fmt.Errorf("catalogstore: marshal play_urls: %w", err)
	}
	sourceNamesJSON, err := marshalJSON(v.SourceNames)
	if err != nil {
		return fmt.Errorf("catalogstore: marshal source_names: %w", err)
	}
	_, err = s.db.Conn.ExecContext(ctx, `
		INSERT INTO videos (
			video_id, name, year, area, language, actors, directors, synopsis, tags,
			cover_url, thumb_url, remarks, rating, type_id, sub_type_id, play_urls,
			source_names, source_priority, quality_score, is_valid, preview_episode,
			preview_url, shorts_category, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.VideoID, v.Name, nullIfZero(v.Year), v.Area, v.Language, joinCSV(v.Actors), joinCSV(v.Directors),
		v.Synopsis, joinCSV(v.Tags), v.CoverURL, v.ThumbURL, v.Remarks, v.Rating, v.TypeID, nullIfZero(v.SubTypeID),
		playURLsJSON, sourceNamesJSON, v.SourcePriority, v.QualityScore, v.IsValid, nullIfZero(v.PreviewEpisode),
		v.PreviewURL, v.ShortsCategory, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("catalogstore: insert video: %w", err)
	}
	return nil
}

func (s *Store) updateVideo(ctx context.Context, v Video) error {
	playURLsJSON, err := marshalJSON(v.PlayURLs)
	if err != nil {
		return fmt.Errorf("catalogstore: marshal play_urls: %w", err)
	}
	sourceNamesJSON, err := marshalJSON(v.SourceNames)
	if err != nil {
		return fmt.Errorf("catalogstore: marshal source_names: %w", err)
	}
	_, err = s.db.Conn.ExecContext(ctx, `
		UPDATE videos SET
			year = ?, area = ?, language = ?, actors = ?, directors = ?, synopsis = ?,
			tags = ?, cover_url = ?, thumb_url = ?, remarks = ?, rating = ?, type_id = ?,
			sub_type_id = ?, play_urls = ?, source_names = ?, source_priority = ?,
			quality_score = ?, is_valid = ?, updated_at = ?
		WHERE video_id = ?`,
		nullIfZero(v.Year), v.Area, v.Language, joinCSV(v.Actors), joinCSV(v.Directors), v.Synopsis,
		joinCSV(v.Tags), v.CoverURL, v.ThumbURL, v.Remarks, v.Rating, v.TypeID, nullIfZero(v.SubTypeID),
		playURLsJSON, sourceNamesJSON, v.SourcePriority, v.QualityScore, v.IsValid, v.UpdatedAt, v.VideoID)
	if err != nil {
		return fmt.Errorf("catalogstore: update video: %w", err)
	}
	return nil
}

func nullIfZero(n int) interface{} {
	if n == 0 {
		return nil
	}
	return n
}
