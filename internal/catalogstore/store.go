package catalogstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/videocatalog/catalogcore/internal/store"
)

// Store is the Catalog Store: the exclusive owner of the `videos` table (spec
// §3 Video ownership) plus read access to `sources`/`source_health` and
// `category_mappings`/`sub_categories`, which it exposes to internal/health and
// internal/classify through their respective interfaces.
type Store struct {
	db *store.DB
}

// New builds a Store backed by db.
func New(db *store.DB) *Store {
	return &Store{db: db}
}

const videoSelectCols = `
SELECT video_id, name, year, area, language, actors, directors, synopsis, tags,
       cover_url, thumb_url, remarks, rating, rating_source, type_id, sub_type_id, play_urls,
       source_names, source_priority, quality_score, is_valid, preview_episode,
       preview_url, shorts_category, hits_day, hits_week, hits_month,
       hits_alltime, created_at, updated_at
FROM videos`

type videoScanner interface {
	Scan(dest ...interface{}) error
}

func scanVideo(row videoScanner) (Video, bool, error) {
	var (
		v                                     Video
		area, language, synopsis              sql.NullString
		actorsCSV, directorsCSV, tagsCSV       sql.NullString
		coverURL, thumbURL, remarks            sql.NullString
		rating                                 sql.NullFloat64
		ratingSource                           sql.NullString
		subTypeID                              sql.NullInt64
		playURLsJSON, sourceNamesJSON          string
		previewEpisode                         sql.NullInt64
		previewURL, shortsCategory             sql.NullString
		year                                   sql.NullInt64
	)
	err := row.Scan(&v.VideoID, &v.Name, &year, &area, &language, &actorsCSV, &directorsCSV,
		&synopsis, &tagsCSV, &coverURL, &thumbURL, &remarks, &rating, &ratingSource, &v.TypeID, &subTypeID,
		&playURLsJSON, &sourceNamesJSON, &v.SourcePriority, &v.QualityScore, &v.IsValid,
		&previewEpisode, &previewURL, &shortsCategory, &v.HitsDay, &v.HitsWeek, &v.HitsMonth,
		&v.HitsAllTime, &v.CreatedAt, &v.UpdatedAt)
	if err == sql.ErrNoRows {
		return Video{}, false, nil
	}
	if err != nil {
		return Video{}, false, fmt.Errorf("catalogstore: scan video: %w", err)
	}
	v.Year = int(year.Int64)
	v.Area = area.String
	v.Language = language.String
	v.Synopsis = synopsis.String
	v.Actors = splitCSV(actorsCSV.String)
	v.Directors = splitCSV(directorsCSV.String)
	v.Tags = splitCSV(tagsCSV.String)
	v.CoverURL = coverURL.String
	v.ThumbURL = thumbURL.String
	v.Remarks = remarks.String
	v.Rating = rating.Float64
	v.RatingSource = ratingSource.String
	v.SubTypeID = int(subTypeID.Int64)
	v.PreviewEpisode = int(previewEpisode.Int64)
	v.PreviewURL = previewURL.String
	v.ShortsCategory = shortsCategory.String
	if err := unmarshalJSON(playURLsJSON, &v.PlayURLs); err != nil {
		return Video{}, false, fmt.Errorf("catalogstore: unmarshal play_urls: %w", err)
	}
	if err := unmarshalJSON(sourceNamesJSON, &v.SourceNames); err != nil {
		return Video{}, false, fmt.Errorf("catalogstore: unmarshal source_names: %w", err)
	}
	return v, true, nil
}

// GetByID fetches one video.
func (s *Store) GetByID(ctx context.Context, videoID string) (Video, bool, error) {
	row := s.db.Conn.QueryRowContext(ctx, videoSelectCols+` WHERE video_id = ?`, videoID)
	return scanVideo(row)
}
