package recommend

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/videocatalog/catalogcore/internal/classify"
	"github.com/videocatalog/catalogcore/internal/logging"
	"github.com/videocatalog/catalogcore/internal/metrics"
)

// Engine dispatches Recommend requests to the five strategies, with a
// trending result cache and graceful degradation, mirroring the teacher's
// Engine.Recommend dispatch shape.
type Engine struct {
	provider Provider

	trendMu    sync.Mutex
	trendCache map[string]trendCacheEntry
}

type trendCacheEntry struct {
	recs      []Recommendation
	expiresAt time.Time
}

// New builds an Engine over provider.
func New(provider Provider) *Engine {
	return &Engine{provider: provider, trendCache: make(map[string]trendCacheEntry)}
}

// Recommend implements spec §4.K's recommend(request) dispatch.
func (e *Engine) Recommend(ctx context.Context, req Request) Response {
	recs, err := e.dispatch(ctx, req)
	if err == nil && recs != nil {
		metrics.RecommendRequests.WithLabelValues(req.Strategy).Inc()
		return Response{Strategy: req.Strategy, Recommendations: recs}
	}
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("strategy", req.Strategy).Msg("recommend: strategy failed, degrading to trending")
	}

	trendRecs, trendErr := e.trendingCached(ctx, req)
	if trendErr != nil {
		logging.Ctx(ctx).Error().Err(trendErr).Msg("recommend: trending fallback also failed")
		metrics.RecommendRequests.WithLabelValues(StrategyTrending).Inc()
		return Response{Strategy: StrategyTrending, Degraded: true}
	}
	metrics.RecommendRequests.WithLabelValues(StrategyTrending).Inc()
	return Response{Strategy: StrategyTrending, Recommendations: trendRecs, Degraded: req.Strategy != StrategyTrending}
}

func (e *Engine) dispatch(ctx context.Context, req Request) ([]Recommendation, error) {
	switch req.Strategy {
	case StrategyContentBased, StrategySimilar:
		return contentBased(ctx, e.provider, req)
	case StrategyCollaborative:
		return collaborative(ctx, e.provider, req)
	case StrategyTrending:
		return e.trendingCached(ctx, req)
	case StrategyPersonalized:
		return personalized(ctx, e.provider, req)
	case StrategyShortsSimilar:
		return shortsSimilar(ctx, e.provider, req, int(classify.TypeShortDrama))
	default:
		return nil, nil
	}
}

// trendingCached wraps trending with spec §4.K's "(type_id, limit)" TTL
// cache, only applied when the request carries no exclusions.
func (e *Engine) trendingCached(ctx context.Context, req Request) ([]Recommendation, error) {
	if len(req.ExcludeIDs) > 0 {
		return trending(ctx, e.provider, req)
	}

	key := trendCacheKey(req.TypeID, clampLimit(req.Limit))
	e.trendMu.Lock()
	if entry, ok := e.trendCache[key]; ok && time.Now().Before(entry.expiresAt) {
		e.trendMu.Unlock()
		return entry.recs, nil
	}
	e.trendMu.Unlock()

	recs, err := trending(ctx, e.provider, req)
	if err != nil {
		return nil, err
	}

	e.trendMu.Lock()
	e.trendCache[key] = trendCacheEntry{recs: recs, expiresAt: time.Now().Add(trendCacheTTL)}
	e.trendMu.Unlock()
	return recs, nil
}

func trendCacheKey(typeID, limit int) string {
	return strconv.Itoa(typeID) + ":" + strconv.Itoa(limit)
}
