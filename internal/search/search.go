package search

import (
	"context"

	"github.com/videocatalog/catalogcore/internal/catalogstore"
)

// Searcher is spec §4.L's Search component: an Index-first lookup falling
// back to a genuine SQL LIKE query.
type Searcher struct {
	index    *Index
	provider Provider
}

// New builds a Searcher over provider. Call Rebuild once before serving
// traffic; the Scheduler keeps it fresh afterward.
func New(provider Provider) *Searcher {
	return &Searcher{index: NewIndex(), provider: provider}
}

// Rebuild refreshes the in-memory index from a fresh catalog snapshot.
func (s *Searcher) Rebuild(ctx context.Context) error {
	return s.index.Rebuild(ctx, s.provider)
}

// Search implements spec §4.L's search(keyword, limit).
func (s *Searcher) Search(ctx context.Context, keyword string, limit int) ([]catalogstore.Video, error) {
	ids := s.index.Rank(keyword, limit)
	if len(ids) > 0 {
		videos := make([]catalogstore.Video, 0, len(ids))
		for _, id := range ids {
			v, ok, err := s.provider.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if ok {
				videos = append(videos, v)
			}
		}
		if len(videos) > 0 {
			return videos, nil
		}
	}
	return s.provider.LikeSearch(ctx, keyword, limit)
}

// AdvancedSearch implements spec §4.L's advanced_search.
func (s *Searcher) AdvancedSearch(ctx context.Context, p catalogstore.AdvancedSearchParams) ([]catalogstore.Video, int, error) {
	return s.provider.AdvancedSearch(ctx, p)
}

// Suggestions implements spec §4.L's suggestions(prefix, limit).
func (s *Searcher) Suggestions(ctx context.Context, prefix string, limit int) ([]string, error) {
	return s.provider.Suggestions(ctx, prefix, limit)
}
