package recommend

import "context"

const minSharedTitles = 3

// collaborative implements spec §4.K's collaborative strategy: rank videos
// watched by users who share at least minSharedTitles with req.UserID, by
// overlapping-user count then by quality score. Returns (nil, nil) when the
// caller should degrade to trending (no history, or no similar users).
func collaborative(ctx context.Context, p Provider, req Request) ([]Recommendation, error) {
	if req.UserID == "" {
		return nil, nil
	}
	limit := clampLimit(req.Limit)
	excluded := excludeSet(req.ExcludeIDs)

	candidates, err := p.CollaborativeCandidates(ctx, req.UserID, minSharedTitles, limit+len(excluded))
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	out := make([]Recommendation, 0, limit)
	for _, c := range candidates {
		if excluded[c.VideoID] {
			continue
		}
		out = append(out, Recommendation{VideoID: c.VideoID, Confidence: collaborativeConfidence(c.UserCount, c.Score)})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// collaborativeConfidence blends the overlapping-user signal (the primary
// ranking key) with the candidate's own quality score as a tiebreak-scale
// secondary term.
func collaborativeConfidence(userCount, qualityScore int) float64 {
	userTerm := float64(userCount) / 5
	if userTerm > 1 {
		userTerm = 1
	}
	scoreTerm := float64(qualityScore) / 100
	if scoreTerm > 1 {
		scoreTerm = 1
	}
	return 0.7*userTerm + 0.3*scoreTerm
}
