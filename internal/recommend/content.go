package recommend

import (
	"context"
	"math"
	"sort"

	"github.com/videocatalog/catalogcore/internal/catalogstore"
)

const contentBasedAlgorithm = "content_based"

// contentBased implements spec §4.K's content_based/similar strategy: a
// precomputed-cache-first lookup, falling back to a live three-tier
// candidate scan (same-actor, same-type+area, same-type) scored by a
// weighted similarity function.
func contentBased(ctx context.Context, p Provider, req Request) ([]Recommendation, error) {
	seed, ok, err := p.GetByID(ctx, req.VideoID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	excluded := excludeSet(req.ExcludeIDs)
	excluded[req.VideoID] = true
	limit := clampLimit(req.Limit)

	if cached, err := p.CachedNeighbors(ctx, req.VideoID, contentBasedAlgorithm); err == nil {
		var fromCache []Recommendation
		for _, n := range cached {
			if excluded[n.VideoID] {
				continue
			}
			fromCache = append(fromCache, Recommendation{VideoID: n.VideoID, Confidence: n.Confidence})
		}
		if len(fromCache) >= limit {
			return fromCache[:limit], nil
		}
	}

	candidates, err := contentCandidates(ctx, p, seed, excluded, limit)
	if err != nil {
		return nil, err
	}

	scored := make([]Recommendation, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, Recommendation{VideoID: c.VideoID, Confidence: similarity(seed, c)})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Confidence > scored[j].Confidence })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// contentCandidates gathers spec §4.K's three tiers in order, stopping as
// soon as enough candidates have been collected.
func contentCandidates(ctx context.Context, p Provider, seed catalogstore.Video, excluded map[string]bool, limit int) ([]catalogstore.Video, error) {
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

	for _, actor := range topN(seed.Actors, 3) {
		vs, err := p.ListByActor(ctx, actor, seed.VideoID, limit*2)
		if err != nil {
			return nil, err
		}
		add(vs)
	}
	if len(pool) < limit {
		vs, err := p.ListByTypeArea(ctx, seed.TypeID, seed.Area, seed.VideoID, limit*2)
		if err != nil {
			return nil, err
		}
		add(vs)
	}
	if len(pool) < limit {
		vs, err := p.ListByType(ctx, seed.TypeID, seed.VideoID, limit*2)
		if err != nil {
			return nil, err
		}
		add(vs)
	}
	return pool, nil
}

// similarity implements spec §4.K's content_based weighted similarity.
func similarity(a, b catalogstore.Video) float64 {
	var score float64

	if a.TypeID == b.TypeID {
		score += 0.30
	}
	if a.Area != "" && a.Area == b.Area {
		score += 0.15
	}

	if a.Year > 0 && b.Year > 0 {
		diff := math.Abs(float64(a.Year - b.Year))
		if diff <= 3 {
			score += 0.10 * (1 - diff/3)
		}
	}

	if denom := minInt(len(a.Actors), 3); denom > 0 {
		overlap := overlapCount(a.Actors, b.Actors)
		score += 0.25 * math.Min(1, float64(overlap)/float64(denom))
	}

	if denom := minInt(len(a.Tags), 5); denom > 0 {
		overlap := overlapCount(a.Tags, b.Tags)
		score += 0.20 * math.Min(1, float64(overlap)/float64(denom))
	}

	return score
}

func overlapCount(a, b []string) int {
	set := make(map[string]bool, len(b))
	for _, s := range b {
		set[s] = true
	}
	n := 0
	for _, s := range a {
		if set[s] {
			n++
		}
	}
	return n
}

func topN(ss []string, n int) []string {
	if len(ss) <= n {
		return ss
	}
	return ss[:n]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
