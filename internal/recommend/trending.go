package recommend

import (
	"context"
	"sort"
	"time"

	"github.com/videocatalog/catalogcore/internal/catalogstore"
)

const trendingPoolMultiplier = 4

// trending implements spec §4.K's trending strategy: a composite score of
// hit volume, quality, and recency over a hit-ranked candidate pool. It is
// also the fallback every other strategy degrades to, so it never itself
// fails on anything short of a provider error.
func trending(ctx context.Context, p Provider, req Request) ([]Recommendation, error) {
	limit := clampLimit(req.Limit)
	excluded := excludeSet(req.ExcludeIDs)

	pool, err := p.ListTrendingCandidates(ctx, req.TypeID, limit*trendingPoolMultiplier+len(excluded))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	type scored struct {
		videoID string
		score   float64
	}
	out := make([]scored, 0, len(pool))
	for _, v := range pool {
		if excluded[v.VideoID] {
			continue
		}
		out = append(out, scored{videoID: v.VideoID, score: compositeScore(v, now)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].score > out[j].score })
	if len(out) > limit {
		out = out[:limit]
	}

	recs := make([]Recommendation, 0, len(out))
	for _, s := range out {
		recs = append(recs, Recommendation{VideoID: s.videoID, Confidence: s.score})
	}
	return recs, nil
}

// compositeScore implements spec §4.K's trending formula:
// 0.4·hits + 0.3·(score·1000) + 0.3·recency_term, recency_term =
// seconds_since_update / -86400 (a staleness penalty: 0 for just-updated,
// increasingly negative the older the row).
func compositeScore(v catalogstore.Video, now time.Time) float64 {
	secondsSinceUpdate := now.Sub(v.UpdatedAt).Seconds()
	recencyTerm := secondsSinceUpdate / -86400
	return 0.4*float64(v.HitsAllTime) + 0.3*(float64(v.QualityScore)*1000) + 0.3*recencyTerm
}
