package recommend

import (
	"context"
	"sort"

	"github.com/videocatalog/catalogcore/internal/catalogstore"
)

// shortsSimilar implements spec §4.K's shorts_similar strategy: restrict to
// ShortDrama, prefer the seed's own shorts_category, fall back to overall
// ShortDrama trending, and top off with unique shorts ordered by
// (score, hits) when short of the requested limit.
func shortsSimilar(ctx context.Context, p Provider, req Request, shortDramaTypeID int) ([]Recommendation, error) {
	seed, ok, err := p.GetByID(ctx, req.VideoID)
	if err != nil {
		return nil, err
	}

	excluded := excludeSet(req.ExcludeIDs)
	excluded[req.VideoID] = true
	limit := clampLimit(req.Limit)

	pool := make([]catalogstore.Video, 0, limit*2)
	seen := map[string]bool{}
	add := func(vs []catalogstore.Video) {
		for _, v := range vs {
			if excluded[v.VideoID] || seen[v.VideoID] {
				continue
			}
			seen[v.VideoID] = true
			pool = append(pool, v)
		}
	}

	if ok && seed.ShortsCategory != "" {
		vs, err := p.ListShortsByCategory(ctx, shortDramaTypeID, seed.ShortsCategory, req.VideoID, limit*2)
		if err != nil {
			return nil, err
		}
		add(vs)
	}
	if len(pool) < limit {
		vs, err := p.ListShortsTrending(ctx, shortDramaTypeID, req.VideoID, limit*2)
		if err != nil {
			return nil, err
		}
		add(vs)
	}

	sort.Slice(pool, func(i, j int) bool {
		if pool[i].QualityScore != pool[j].QualityScore {
			return pool[i].QualityScore > pool[j].QualityScore
		}
		return pool[i].HitsAllTime > pool[j].HitsAllTime
	})
	if len(pool) > limit {
		pool = pool[:limit]
	}

	recs := make([]Recommendation, 0, len(pool))
	for i, v := range pool {
		recs = append(recs, Recommendation{VideoID: v.VideoID, Confidence: rankConfidence(i, len(pool))})
	}
	return recs, nil
}

// rankConfidence turns a rank position into a 0..1 confidence, since shorts
// candidates are ordered rather than independently scored.
func rankConfidence(rank, total int) float64 {
	if total <= 1 {
		return 1
	}
	return 1 - float64(rank)/float64(total)
}
