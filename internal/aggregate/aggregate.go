// Package aggregate is the read-path Aggregator (spec §4.J): list queries
// are served cache-first against the Catalog Store, falling back to a
// concurrent fan-out over upstream sources only on a cache miss. Grounded on
// internal/health's per-source gobreaker wiring (same library, same
// majority-failure trip policy) so a source already flagged unhealthy can't
// eat the fan-out's deadline budget, and on internal/collector's
// parser-then-cleaner conversion for turning a fan-out response into a
// comparable Video.
package aggregate

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/videocatalog/catalogcore/internal/catalogstore"
	"github.com/videocatalog/catalogcore/internal/cleaner"
	"github.com/videocatalog/catalogcore/internal/config"
	"github.com/videocatalog/catalogcore/internal/health"
	"github.com/videocatalog/catalogcore/internal/logging"
	"github.com/videocatalog/catalogcore/internal/metrics"
	"github.com/videocatalog/catalogcore/internal/parser"
	"github.com/videocatalog/catalogcore/internal/upstream"
)

// SourceLister supplies the active source list the fan-out draws from.
type SourceLister interface {
	ListActiveSources(ctx context.Context) ([]health.Source, error)
}

// Params is one aggregate() call's filters and options (spec §4.J).
type Params struct {
	TypeID         int
	SubTypeID      int
	Tag            string
	AreaLike       string
	Year           int
	Sort           string // "hits" | "score" | "recency"
	Page           int
	PageSize       int
	IncludeWelfare bool
	CacheOnly      bool
	ClassToken     string
}

// Result is aggregate()'s return value: the merged video list plus which
// sources answered and which didn't, for caller-side health feedback.
type Result struct {
	Videos    []catalogstore.Video
	FromCache bool
	Succeeded []string
	Failed    []string
}

// Aggregator serves list queries cache-first, falling back to a
// circuit-breaker-gated fan-out across active sources.
type Aggregator struct {
	catalog *catalogstore.Store
	sources SourceLister
	client  *upstream.Client
	cfg     config.AggregateConfig

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[[]byte]
}

// New builds an Aggregator.
func New(catalog *catalogstore.Store, sources SourceLister, client *upstream.Client, cfg config.AggregateConfig) *Aggregator {
	return &Aggregator{
		catalog:  catalog,
		sources:  sources,
		client:   client,
		cfg:      cfg,
		breakers: make(map[string]*gobreaker.CircuitBreaker[[]byte]),
	}
}

// Aggregate implements spec §4.J's aggregate(params, options).
func (a *Aggregator) Aggregate(ctx context.Context, p Params) (Result, error) {
	cached, err := a.catalog.ListByFilters(ctx, catalogstore.ListFilters{
		TypeID:    p.TypeID,
		SubTypeID: p.SubTypeID,
		Tag:       p.Tag,
		AreaLike:  p.AreaLike,
		Year:      p.Year,
		Sort:      p.Sort,
		Page:      p.Page,
		PageSize:  p.PageSize,
	})
	if err != nil {
		return Result{}, err
	}
	if len(cached) > 0 {
		metrics.AggregateRequests.WithLabelValues("cache_hit").Inc()
		return Result{Videos: cached, FromCache: true}, nil
	}
	if p.CacheOnly {
		metrics.AggregateRequests.WithLabelValues("cache_hit").Inc()
		return Result{FromCache: true}, nil
	}
	metrics.AggregateRequests.WithLabelValues("fanout").Inc()

	sources, err := a.sources.ListActiveSources(ctx)
	if err != nil {
		return Result{}, err
	}

	timeout := a.cfg.FanoutTimeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	fanoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		videos    []fanoutVideo
		succeeded []string
		failed    []string
	)

	for _, src := range sources {
		if src.Welfare && !(p.IncludeWelfare && a.cfg.WelfareEnabled) {
			continue
		}
		src := src
		wg.Add(1)
		go func() {
			defer wg.Done()
			list, err := a.fetchSource(fanoutCtx, src, p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, src.ID)
				logging.Ctx(ctx).Warn().Err(err).Str("source_id", src.ID).Msg("aggregate: fan-out source failed")
				return
			}
			succeeded = append(succeeded, src.ID)
			videos = append(videos, list...)
		}()
	}
	wg.Wait()

	merged := dedupeByNameYearArea(videos)
	result := applyClassFilter(merged, p.ClassToken)

	return Result{
		Videos:    toVideos(result),
		Succeeded: succeeded,
		Failed:    failed,
	}, nil
}

type fanoutVideo struct {
	video    catalogstore.Video
	rawTag   string
	rawClass string
	typeName string
}

func toVideos(fv []fanoutVideo) []catalogstore.Video {
	out := make([]catalogstore.Video, 0, len(fv))
	for _, v := range fv {
		out = append(out, v.video)
	}
	return out
}

// fetchSource requests one source's list, bounded by the per-source circuit
// breaker and a single quick retry on 5xx (spec §4.J: "1 quick retry on 5xx").
func (a *Aggregator) fetchSource(ctx context.Context, src health.Source, p Params) ([]fanoutVideo, error) {
	breaker := a.breakerFor(src.ID)
	page := p.Page
	if page < 1 {
		page = 1
	}

	body, err := breaker.Execute(func() ([]byte, error) {
		listURL := upstream.BuildListURL(src.BaseURL, page, "", "")
		body, _, err := a.client.Get(ctx, listURL)
		if err != nil {
			if statusErr, ok := err.(*upstream.StatusError); ok && statusErr.Status >= 500 {
				body, _, err = a.client.Get(ctx, listURL)
			}
		}
		return body, err
	})
	if err != nil {
		return nil, err
	}

	list, err := parser.Parse(body, parser.Format(src.Format))
	if err != nil {
		return nil, err
	}

	out := make([]fanoutVideo, 0, len(list.List))
	for _, pv := range list.List {
		out = append(out, convert(pv, src))
	}
	return out, nil
}

func (a *Aggregator) breakerFor(sourceID string) *gobreaker.CircuitBreaker[[]byte] {
	a.mu.Lock()
	defer a.mu.Unlock()
	if b, ok := a.breakers[sourceID]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        sourceID,
		MaxRequests: 1,
		Timeout:     5 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
	})
	a.breakers[sourceID] = b
	return b
}

// convert mirrors internal/collector's buildVideo conversion, producing a
// Video comparable for dedup/completeness purposes from one fan-out record.
func convert(v parser.ParsedVideo, src health.Source) fanoutVideo {
	route := v.PlayFlag
	if route == "" {
		route = "default"
	}
	playURLs := cleaner.CleanPlayURLs(map[string]string{route: v.PlayRaw})
	year, _ := strconv.Atoi(strings.TrimSpace(v.Year))

	video := catalogstore.Video{
		Name:        strings.TrimSpace(v.Name),
		Year:        year,
		Area:        cleaner.NormalizeArea(v.Area),
		Synopsis:    cleaner.StripHTML(v.Content),
		CoverURL:    cleaner.CleanImageURL(v.Pic),
		PlayURLs:    playURLs,
		SourceNames: []string{src.Name},
	}
	video.QualityScore = catalogstore.ComputeQualityScore(video)
	return fanoutVideo{video: video, rawTag: v.Tag, rawClass: v.Tag, typeName: v.TypeName}
}

func dedupeByNameYearArea(vs []fanoutVideo) []fanoutVideo {
	best := make(map[string]fanoutVideo, len(vs))
	order := make([]string, 0, len(vs))
	for _, v := range vs {
		key := dedupKey(v.video.Name, v.video.Year, v.video.Area)
		existing, ok := best[key]
		if !ok {
			best[key] = v
			order = append(order, key)
			continue
		}
		if v.video.QualityScore > existing.video.QualityScore {
			best[key] = v
		}
	}
	out := make([]fanoutVideo, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	return out
}

func dedupKey(name string, year int, area string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "|" + strconv.Itoa(year) + "|" + area
}

// applyClassFilter implements spec §4.J's post-filter: keep rows whose
// {tag, content, vod_class, type_name, name} contain classToken, unless that
// would leave fewer than 3 rows, in which case the filter is skipped
// entirely and the unfiltered set is returned.
func applyClassFilter(vs []fanoutVideo, classToken string) []fanoutVideo {
	if classToken == "" {
		return vs
	}
	var filtered []fanoutVideo
	for _, v := range vs {
		if matchesClassToken(v, classToken) {
			filtered = append(filtered, v)
		}
	}
	if len(filtered) < 3 {
		return vs
	}
	return filtered
}

func matchesClassToken(v fanoutVideo, token string) bool {
	fields := []string{v.rawTag, v.video.Synopsis, v.rawClass, v.typeName, v.video.Name}
	for _, f := range fields {
		if strings.Contains(f, token) {
			return true
		}
	}
	return false
}
