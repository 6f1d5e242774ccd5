package api

import (
	"context"

	"github.com/videocatalog/catalogcore/internal/aggregate"
	"github.com/videocatalog/catalogcore/internal/catalogstore"
	"github.com/videocatalog/catalogcore/internal/hits"
	"github.com/videocatalog/catalogcore/internal/recommend"
	"github.com/videocatalog/catalogcore/internal/search"
)

// Lister backs GET /videos (spec §4.J aggregate()).
type Lister interface {
	Aggregate(ctx context.Context, p aggregate.Params) (aggregate.Result, error)
}

// Detailer backs GET /videos/{id} (spec §4.G get_by_id()), and also records
// the watch event: a view is both a hit and (when a viewer is supplied)
// a collaborative-filtering history row.
type Detailer interface {
	GetByID(ctx context.Context, videoID string) (catalogstore.Video, bool, error)
	RecordWatch(ctx context.Context, userID, videoID string) error
}

// Searcher backs GET /search and GET /search/suggestions (spec §4.L).
type Searcher interface {
	Search(ctx context.Context, keyword string, limit int) ([]catalogstore.Video, error)
	AdvancedSearch(ctx context.Context, p catalogstore.AdvancedSearchParams) ([]catalogstore.Video, int, error)
	Suggestions(ctx context.Context, prefix string, limit int) ([]string, error)
}

// Recommender backs GET /recommend (spec §4.K).
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) recommend.Response
}

// HitTracker records a view for the Hit Tracker (spec §4.H).
type HitTracker interface {
	Track(ctx context.Context, videoID string)
}

var (
	_ Lister      = (*aggregate.Aggregator)(nil)
	_ Detailer    = (*catalogstore.Store)(nil)
	_ Searcher    = (*search.Searcher)(nil)
	_ Recommender = (*recommend.Engine)(nil)
	_ HitTracker  = (*hits.Tracker)(nil)
)
