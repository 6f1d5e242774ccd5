// Package recommend is the Recommender (spec §4.K): five dispatchable
// strategies (content_based, similar, collaborative, trending, personalized,
// shorts_similar) over catalog Videos, all degrading to trending on failure.
// Grounded on the teacher's internal/recommend Engine/Algorithm/DataProvider
// shape, retargeted from Plex watch sessions onto catalog videos and viewer
// hit/watch events, and narrowed to the five strategies named above.
package recommend

import "time"

// Strategy names dispatchable by Recommend (spec §4.K).
const (
	StrategyContentBased  = "content_based"
	StrategySimilar       = "similar" // alias for content_based
	StrategyCollaborative = "collaborative"
	StrategyTrending      = "trending"
	StrategyPersonalized  = "personalized"
	StrategyShortsSimilar = "shorts_similar"
)

// Request is one recommend(request) call.
type Request struct {
	Strategy   string
	VideoID    string // seed video, for content_based/similar/shorts_similar
	UserID     string // viewer, for collaborative/personalized
	TypeID     int    // category scope, for trending
	Limit      int
	ExcludeIDs []string
}

// Recommendation is one scored candidate.
type Recommendation struct {
	VideoID    string
	Confidence float64
}

// Response is recommend(request)'s result. Degraded is set whenever the
// requested strategy failed internally and the engine fell back to trending.
type Response struct {
	Strategy        string
	Recommendations []Recommendation
	Degraded        bool
}

func excludeSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

// trendCacheTTL is T_trend (spec §4.K trending: "cache per (type_id, limit)
// for T_trend, default 10 min, when no exclusions").
const trendCacheTTL = 10 * time.Minute
