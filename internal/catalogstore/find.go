package catalogstore

import (
	"context"
	"fmt"

	"github.com/videocatalog/catalogcore/internal/logging"
)

// findResult carries a matched row plus whether a year back-fill warning
// should be logged by the caller (spec §4.G step 4: "If the existing row has a
// year and the incoming has none, the merge is still performed but a warning
// is emitted").
type findResult struct {
	video        Video
	yearMismatch bool
}

// FindExisting implements spec §4.G find_existing: try progressively looser
// matches in order and return the first hit.
func (s *Store) FindExisting(ctx context.Context, name string, year int, area, firstDirector string) (Video, bool, error) {
	res, ok, err := s.findExisting(ctx, name, year, area, firstDirector)
	if err != nil || !ok {
		return Video{}, ok, err
	}
	if res.yearMismatch {
		logging.Ctx(ctx).Warn().Str("name", name).Msg("catalogstore: merging into a row with a year against a yearless incoming record")
	}
	return res.video, true, nil
}

func (s *Store) findExisting(ctx context.Context, name string, year int, area, firstDirector string) (findResult, bool, error) {
	// 1. Exact: name + year + area, both non-empty.
	if year != 0 && area != "" {
		row := s.db.Conn.QueryRowContext(ctx, videoSelectCols+`
			WHERE name = ? AND year = ? AND area = ? LIMIT 1`, name, year, area)
		if v, ok, err := scanVideo(row); err != nil {
			return findResult{}, false, err
		} else if ok {
			return findResult{video: v}, true, nil
		}
	}

	// 2. Year-only.
	if year != 0 {
		row := s.db.Conn.QueryRowContext(ctx, videoSelectCols+`
			WHERE name = ? AND year = ? LIMIT 1`, name, year)
		if v, ok, err := scanVideo(row); err != nil {
			return findResult{}, false, err
		} else if ok {
			return findResult{video: v}, true, nil
		}
	}

	// 3. Director-only, best quality first.
	if firstDirector != "" {
		row := s.db.Conn.QueryRowContext(ctx, videoSelectCols+`
			WHERE name = ? AND directors LIKE ?
			ORDER BY quality_score DESC LIMIT 1`, name, "%"+firstDirector+"%")
		if v, ok, err := scanVideo(row); err != nil {
			return findResult{}, false, err
		} else if ok {
			return findResult{video: v}, true, nil
		}
	}

	// 4. Name-only loose match, only when incoming lacks both year and director.
	if year == 0 && firstDirector == "" {
		row := s.db.Conn.QueryRowContext(ctx, videoSelectCols+`
			WHERE name = ?
			ORDER BY quality_score DESC, updated_at DESC LIMIT 1`, name)
		v, ok, err := scanVideo(row)
		if err != nil {
			return findResult{}, false, err
		}
		if ok {
			return findResult{video: v, yearMismatch: v.Year != 0}, true, nil
		}
	}

	// 5. Incoming supplies a year but the only same-name rows on file never
	// captured one: back-fill the best-quality such row's year rather than
	// inserting a duplicate for what is really the same title.
	if year != 0 {
		row := s.db.Conn.QueryRowContext(ctx, videoSelectCols+`
			WHERE name = ? AND year IS NULL
			ORDER BY quality_score DESC, updated_at DESC LIMIT 1`, name)
		v, ok, err := scanVideo(row)
		if err != nil {
			return findResult{}, false, err
		}
		if ok {
			if err := s.BackfillYear(ctx, v.VideoID, year); err != nil {
				return findResult{}, false, err
			}
			v.Year = year
			return findResult{video: v}, true, nil
		}
	}

	return findResult{}, false, nil
}

// BackfillYear implements spec step 5: when the incoming record supplies a
// year but the only matching rows on (name) have no year, the best-quality
// such row has its year back-filled before the merge proceeds.
func (s *Store) BackfillYear(ctx context.Context, videoID string, year int) error {
	_, err := s.db.Conn.ExecContext(ctx, `UPDATE videos SET year = ? WHERE video_id = ?`, year, videoID)
	if err != nil {
		return fmt.Errorf("catalogstore: backfill year: %w", err)
	}
	return nil
}
