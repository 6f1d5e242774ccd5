package recommend

import (
	"context"
	"sort"

	"github.com/videocatalog/catalogcore/internal/catalogstore"
)

const (
	personalizedHistoryWindow = 50
	personalizedPoolSize      = 200
)

// personalized implements spec §4.K's personalized strategy: score a broad
// popular-candidate pool by how well each candidate matches the viewer's
// preferred types/areas/actors (derived from their last 50 watches), plus a
// scaled quality term, excluding anything already watched.
func personalized(ctx context.Context, p Provider, req Request) ([]Recommendation, error) {
	if req.UserID == "" {
		return nil, nil
	}
	limit := clampLimit(req.Limit)

	profile, err := p.BuildPreferenceProfile(ctx, req.UserID, personalizedHistoryWindow)
	if err != nil {
		return nil, err
	}

	excluded := excludeSet(req.ExcludeIDs)
	for _, id := range profile.Watched {
		excluded[id] = true
	}

	pool, err := p.ListTrendingCandidates(ctx, 0, personalizedPoolSize)
	if err != nil {
		return nil, err
	}

	totalTypes, totalAreas, totalActors := sumValues(profile.Types), sumValues(profile.Areas), sumValues(profile.Actors)

	type scored struct {
		videoID string
		score   float64
	}
	out := make([]scored, 0, len(pool))
	for _, v := range pool {
		if excluded[v.VideoID] {
			continue
		}
		out = append(out, scored{videoID: v.VideoID, score: personalizedScore(v, profile, totalTypes, totalAreas, totalActors)})
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

func personalizedScore(v catalogstore.Video, profile catalogstore.PreferenceProfile, totalTypes, totalAreas, totalActors int) float64 {
	var typeScore, areaScore, actorScore float64
	if totalTypes > 0 {
		typeScore = float64(profile.Types[v.TypeID]) / float64(totalTypes)
	}
	if totalAreas > 0 {
		areaScore = float64(profile.Areas[v.Area]) / float64(totalAreas)
	}
	if totalActors > 0 {
		var matched int
		for _, a := range v.Actors {
			matched += profile.Actors[a]
		}
		actorScore = float64(matched) / float64(totalActors)
	}
	qualityScore := float64(v.QualityScore) / 100

	return 0.30*typeScore + 0.20*areaScore + 0.30*actorScore + 0.20*qualityScore
}

func sumValues[K comparable](m map[K]int) int {
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}
