package recommend

import (
	"context"

	"github.com/videocatalog/catalogcore/internal/catalogstore"
)

// Provider is the Recommender's data seam onto the Catalog Store, mirroring
// the teacher's DataProvider interface: the recommend package never imports
// catalogstore's Store directly outside this file, so it can be driven by a
// fake in tests.
type Provider interface {
	GetByID(ctx context.Context, videoID string) (catalogstore.Video, bool, error)

	ListByActor(ctx context.Context, actor, excludeID string, limit int) ([]catalogstore.Video, error)
	ListByTypeArea(ctx context.Context, typeID int, area, excludeID string, limit int) ([]catalogstore.Video, error)
	ListByType(ctx context.Context, typeID int, excludeID string, limit int) ([]catalogstore.Video, error)
	ListTrendingCandidates(ctx context.Context, typeID int, limit int) ([]catalogstore.Video, error)
	ListShortsByCategory(ctx context.Context, typeID int, shortsCategory, excludeID string, limit int) ([]catalogstore.Video, error)
	ListShortsTrending(ctx context.Context, typeID int, excludeID string, limit int) ([]catalogstore.Video, error)
	HotVideosOlderThan(ctx context.Context, algorithm string, cutoff interface{}, limit int) ([]catalogstore.Video, error)

	CachedNeighbors(ctx context.Context, videoID, algorithm string) ([]catalogstore.NeighborScore, error)
	UpsertNeighbors(ctx context.Context, videoID, algorithm string, neighbors []catalogstore.NeighborScore) error

	CollaborativeCandidates(ctx context.Context, userID string, minShared, limit int) ([]catalogstore.CandidateScore, error)
	BuildPreferenceProfile(ctx context.Context, userID string, recentLimit int) (catalogstore.PreferenceProfile, error)
}

var _ Provider = (*catalogstore.Store)(nil)
