package catalogstore

import (
	"context"
	"fmt"
	"strings"
)

// ListFilters is the cache-first read path's query shape (spec §4.J
// aggregate: "read from catalog cache honoring filters"). A zero value for
// any numeric/string field means "no filter on that column".
type ListFilters struct {
	TypeID    int
	SubTypeID int
	Tag       string
	AreaLike  string
	Year      int
	Sort      string // "hits" | "score" | "recency"
	Page      int
	PageSize  int
}

// ListByFilters implements the Aggregator's cache-first read against the
// durable catalog, applying every non-zero filter as an AND clause.
func (s *Store) ListByFilters(ctx context.Context, f ListFilters) ([]Video, error) {
	var where []string
	var args []interface{}

	where = append(where, "is_valid = true")
	if f.TypeID > 0 {
		where = append(where, "type_id = ?")
		args = append(args, f.TypeID)
	}
	if f.SubTypeID > 0 {
		where = append(where, "sub_type_id = ?")
		args = append(args, f.SubTypeID)
	}
	if f.Tag != "" {
		where = append(where, "tags LIKE ?")
		args = append(args, "%"+f.Tag+"%")
	}
	if f.AreaLike != "" {
		where = append(where, "area LIKE ?")
		args = append(args, "%"+f.AreaLike+"%")
	}
	if f.Year > 0 {
		where = append(where, "year = ?")
		args = append(args, f.Year)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := videoSelectCols + ` WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY ` + sortColumn(f.Sort) + ` DESC LIMIT ? OFFSET ?`
	args = append(args, pageSize, offset)

	rows, err := s.db.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalogstore: list by filters: %w", err)
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

// sortColumn maps the spec's sort ∈ {hits, score, recency} onto a concrete
// column: hits_alltime for overall popularity, quality_score for
// completeness-ranked browsing, updated_at for most-recently-touched first.
func sortColumn(sort string) string {
	switch sort {
	case "hits":
		return "hits_alltime"
	case "recency":
		return "updated_at"
	default:
		return "quality_score"
	}
}
