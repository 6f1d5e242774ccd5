package search

import (
	"context"

	"github.com/videocatalog/catalogcore/internal/catalogstore"
)

// Provider is Search's seam onto the Catalog Store.
type Provider interface {
	AllValidVideos(ctx context.Context) ([]catalogstore.Video, error)
	GetByID(ctx context.Context, videoID string) (catalogstore.Video, bool, error)
	LikeSearch(ctx context.Context, keyword string, limit int) ([]catalogstore.Video, error)
	AdvancedSearch(ctx context.Context, p catalogstore.AdvancedSearchParams) ([]catalogstore.Video, int, error)
	Suggestions(ctx context.Context, prefix string, limit int) ([]string, error)
}

var _ Provider = (*catalogstore.Store)(nil)
