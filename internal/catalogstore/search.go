package catalogstore

import (
	"context"
	"fmt"
	"strings"
)

// AllValidVideos returns every is_valid row, the snapshot internal/search
// rebuilds its in-memory inverted index from (spec §4.L).
func (s *Store) AllValidVideos(ctx context.Context) ([]Video, error) {
	return s.queryVideos(ctx, videoSelectCols+` WHERE is_valid = true`)
}

// LikeSearch implements spec §4.L's FTS-miss fallback: `LIKE '%kw%'` across
// name/actor/director, ordered by quality_score DESC, updated_at DESC.
func (s *Store) LikeSearch(ctx context.Context, keyword string, limit int) ([]Video, error) {
	like := "%" + keyword + "%"
	return s.queryVideos(ctx, videoSelectCols+`
		WHERE is_valid = true AND (name LIKE ? OR actors LIKE ? OR directors LIKE ?)
		ORDER BY quality_score DESC, updated_at DESC LIMIT ?`, like, like, like, limit)
}

// Suggestions implements spec §4.L's suggestions(prefix, limit): distinct
// names matching prefix%, ordered by quality_score DESC.
func (s *Store) Suggestions(ctx context.Context, prefix string, limit int) ([]string, error) {
	rows, err := s.db.Conn.QueryContext(ctx, `
		SELECT name FROM (
			SELECT name, MAX(quality_score) AS best_score
			FROM videos
			WHERE is_valid = true AND name LIKE ?
			GROUP BY name
		) ORDER BY best_score DESC LIMIT ?`, prefix+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("catalogstore: suggestions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// AdvancedSearchParams is spec §4.L's advanced_search facet set.
type AdvancedSearchParams struct {
	Keyword  string
	TypeID   int
	Year     int
	Area     string
	Actor    string
	Director string
	OrderBy  string // "score" | "time" | "name"
	Page     int
	PageSize int
}

// AdvancedSearch implements spec §4.L's advanced_search: clause composition
// over every non-zero facet, executed as two queries (a COUNT, then the
// paged SELECT) so the caller gets a total alongside the page.
func (s *Store) AdvancedSearch(ctx context.Context, p AdvancedSearchParams) ([]Video, int, error) {
	var where []string
	var args []interface{}

	where = append(where, "is_valid = true")
	if p.Keyword != "" {
		where = append(where, "(name LIKE ? OR synopsis LIKE ?)")
		like := "%" + p.Keyword + "%"
		args = append(args, like, like)
	}
	if p.TypeID > 0 {
		where = append(where, "type_id = ?")
		args = append(args, p.TypeID)
	}
	if p.Year > 0 {
		where = append(where, "year = ?")
		args = append(args, p.Year)
	}
	if p.Area != "" {
		where = append(where, "area = ?")
		args = append(args, p.Area)
	}
	if p.Actor != "" {
		where = append(where, "actors LIKE ?")
		args = append(args, "%"+p.Actor+"%")
	}
	if p.Director != "" {
		where = append(where, "directors LIKE ?")
		args = append(args, "%"+p.Director+"%")
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	countRow := s.db.Conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos WHERE `+whereClause, args...)
	if err := countRow.Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalogstore: advanced search count: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	page := p.Page
	if page < 1 {
		page = 1
	}
	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := videoSelectCols + ` WHERE ` + whereClause +
		` ORDER BY ` + advancedOrderColumn(p.OrderBy) + ` DESC LIMIT ? OFFSET ?`
	pageArgs := append(append([]interface{}{}, args...), pageSize, offset)

	rows, err := s.db.Conn.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("catalogstore: advanced search: %w", err)
	}
	defer rows.Close()

	var out []Video
	for rows.Next() {
		v, ok, err := scanVideo(rows)
		if err != nil {
			return nil, 0, err
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, total, rows.Err()
}

func advancedOrderColumn(orderBy string) string {
	switch orderBy {
	case "time":
		return "updated_at"
	case "name":
		return "name"
	default:
		return "quality_score"
	}
}
