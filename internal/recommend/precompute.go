package recommend

import (
	"context"
	"sort"
	"time"

	"github.com/videocatalog/catalogcore/internal/catalogstore"
	"github.com/videocatalog/catalogcore/internal/logging"
)

const (
	neighborCacheMaxAge  = 7 * 24 * time.Hour
	precomputeNeighbors  = 20
	precomputeBatchLimit = 50
)

// Precompute implements spec §4.K's batch precompute routine: write
// content_based neighbors (up to 20, with confidence) for the hottest
// videos whose cache is missing or older than 7 days. Intended to be called
// from the Scheduler's daily routine.
func (e *Engine) Precompute(ctx context.Context) error {
	cutoff := time.Now().Add(-neighborCacheMaxAge)
	hot, err := e.provider.HotVideosOlderThan(ctx, contentBasedAlgorithm, cutoff, precomputeBatchLimit)
	if err != nil {
		return err
	}

	for _, seed := range hot {
		excluded := map[string]bool{seed.VideoID: true}
		candidates, err := contentCandidates(ctx, e.provider, seed, excluded, precomputeNeighbors)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("video_id", seed.VideoID).Msg("recommend: precompute candidate scan failed")
			continue
		}

		neighbors := scoreAndRank(seed, candidates, precomputeNeighbors)
		if err := e.provider.UpsertNeighbors(ctx, seed.VideoID, contentBasedAlgorithm, neighbors); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("video_id", seed.VideoID).Msg("recommend: precompute upsert failed")
		}
	}
	return nil
}

func scoreAndRank(seed catalogstore.Video, candidates []catalogstore.Video, limit int) []catalogstore.NeighborScore {
	out := make([]catalogstore.NeighborScore, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, catalogstore.NeighborScore{VideoID: c.VideoID, Confidence: similarity(seed, c)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
