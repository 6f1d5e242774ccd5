package collector

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/videocatalog/catalogcore/internal/catalogstore"
	"github.com/videocatalog/catalogcore/internal/classify"
	"github.com/videocatalog/catalogcore/internal/cleaner"
	"github.com/videocatalog/catalogcore/internal/health"
	"github.com/videocatalog/catalogcore/internal/logging"
	"github.com/videocatalog/catalogcore/internal/metrics"
	"github.com/videocatalog/catalogcore/internal/parser"
	"github.com/videocatalog/catalogcore/internal/task"
	"github.com/videocatalog/catalogcore/internal/upstream"
)

// runSource walks one source's category x page grid (spec §4.F step 4),
// returning halted=true if a pause/cancel was observed at a page boundary.
func (e *Engine) runSource(ctx context.Context, st *runState, sourceIndex int, src health.Source, startPage int) (bool, error) {
	firstCategoryApplied := false
	for _, catID := range categorySlots(st.cfg) {
		pageStart := 1
		if !firstCategoryApplied {
			pageStart = startPage
			firstCategoryApplied = true
		}

		firstPageURL := upstream.BuildListURL(src.BaseURL, 1, catID, "")
		body, _, err := e.client.Get(ctx, firstPageURL)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("source_id", src.ID).Msg("collector: learn-pagecount request failed")
			continue
		}
		firstList, err := parser.Parse(body, parser.Format(src.Format))
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("source_id", src.ID).Msg("collector: learn-pagecount parse failed")
			continue
		}
		pageCount := firstList.PageCount
		if pageCount <= 0 {
			pageCount = 1
		}

		lo, hi := clampPageRange(st.cfg.PageStart, st.cfg.PageEnd, pageCount)
		effectiveStart := pageStart
		if effectiveStart < lo {
			effectiveStart = lo
		}
		if effectiveStart > hi {
			continue
		}

		for page := effectiveStart; page <= hi; page++ {
			cur, found, err := e.tasks.Get(ctx, st.taskID)
			if err != nil {
				return false, err
			}
			if !found || cur.Status == task.StatusPaused || cur.Status == task.StatusCancelled {
				e.persistCheckpoint(ctx, st.taskID, sourceIndex, page)
				return true, nil
			}

			var pageList *parser.ParsedVideoList
			if page == 1 {
				pageList = firstList
			} else {
				pageURL := upstream.BuildListURL(src.BaseURL, page, catID, "")
				b, _, err := e.client.Get(ctx, pageURL)
				if err != nil {
					metrics.CollectionPagesProcessed.WithLabelValues(src.ID, "error").Inc()
					logging.Ctx(ctx).Warn().Err(err).Str("source_id", src.ID).Int("page", page).Msg("collector: page fetch failed")
					continue
				}
				pageList, err = parser.Parse(b, parser.Format(src.Format))
				if err != nil {
					metrics.CollectionPagesProcessed.WithLabelValues(src.ID, "error").Inc()
					logging.Ctx(ctx).Warn().Err(err).Str("source_id", src.ID).Int("page", page).Msg("collector: page parse failed")
					continue
				}
			}
			metrics.CollectionPagesProcessed.WithLabelValues(src.ID, "ok").Inc()

			counts := e.processPage(ctx, src, pageList.List)
			st.processed += counts.total()

			if err := e.tasks.UpdateProgress(ctx, st.taskID, task.Progress{
				CurrentPage: page,
				TotalPages:  hi,
				Processed:   counts.total(),
				New:         counts.new,
				Updated:     counts.update,
				Skipped:     counts.skip,
				Errors:      counts.errors,
			}); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Msg("collector: update_progress failed")
			}

			if st.processed >= st.progressBatchSize {
				e.persistCheckpoint(ctx, st.taskID, sourceIndex, page)
				st.processed = 0
			}

			if page < hi {
				if !sleepPaced(ctx, e.cfg.BatchDelay) {
					e.persistCheckpoint(ctx, st.taskID, sourceIndex, page)
					return true, nil
				}
			}
		}
	}
	return false, nil
}

func (e *Engine) persistCheckpoint(ctx context.Context, taskID string, sourceIndex, page int) {
	if err := e.tasks.SaveCheckpoint(ctx, taskID, task.Checkpoint{
		SourceIndex: sourceIndex,
		Page:        page,
		Timestamp:   time.Now(),
	}); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("collector: save_checkpoint failed")
	}
}

type pageCounts struct {
	new, update, skip, errors int
}

func (c pageCounts) total() int { return c.new + c.update + c.skip + c.errors }

// processPage fetches each video's detail (best-effort), cleans, classifies
// and ingests it, concurrency-bounded by BatchSize with REQUEST_DELAY pacing
// between dispatches (spec §4.F step 4's pacing clause).
func (e *Engine) processPage(ctx context.Context, src health.Source, videos []parser.ParsedVideo) pageCounts {
	batchSize := e.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	requestDelay := e.cfg.RequestDelay
	if requestDelay <= 0 {
		requestDelay = 100 * time.Millisecond
	}
	limiter := rate.NewLimiter(rate.Every(requestDelay), 1)
	sem := make(chan struct{}, batchSize)

	var mu sync.Mutex
	var wg sync.WaitGroup
	var counts pageCounts

	for _, v := range videos {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(v parser.ParsedVideo) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := e.processVideo(ctx, src, v)
			mu.Lock()
			switch outcome {
			case catalogstore.OutcomeNew:
				counts.new++
			case catalogstore.OutcomeUpdate:
				counts.update++
			case catalogstore.OutcomeSkip:
				counts.skip++
			default:
				counts.errors++
			}
			mu.Unlock()
		}(v)
	}
	wg.Wait()
	return counts
}

// processVideo implements one iteration of spec §4.F step 4's innermost
// bullet: detail fetch, clean, classify, ingest.
func (e *Engine) processVideo(ctx context.Context, src health.Source, v parser.ParsedVideo) catalogstore.Outcome {
	detail := v
	if v.ID != "" {
		detailURL := upstream.BuildDetailURL(src.BaseURL, v.ID)
		detailCtx, cancel := context.WithTimeout(ctx, e.cfg.DetailTimeout)
		body, _, err := e.client.Get(detailCtx, detailURL)
		cancel()
		if err == nil {
			if list, parseErr := parser.Parse(body, parser.Format(src.Format)); parseErr == nil && len(list.List) > 0 {
				detail = list.List[0]
			}
		}
		// best-effort: any failure here falls back to the list row, per spec.
	}

	video := buildVideo(detail, src)

	in := classify.Input{
		TypeID:   detail.TypeID,
		TypeName: detail.TypeName,
		Name:     video.Name,
		Content:  video.Synopsis,
		Remarks:  video.Remarks,
		Actor:    detail.Actor,
		Director: detail.Director,
		SourceID: src.ID,
	}
	if e.classifier != nil {
		if res, err := e.classifier.Classify(ctx, in); err == nil {
			video.TypeID = int(res.TypeID)
			video.SubTypeID = res.SubTypeID
			video.ShortsCategory = res.SubTypeName
		} else {
			logging.Ctx(ctx).Warn().Err(err).Str("name", video.Name).Msg("collector: classify failed")
		}
	}
	video.SourcePriority = src.Weight

	outcome, _, err := e.catalog.Ingest(ctx, video, src.Name)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("name", video.Name).Msg("collector: ingest failed")
		metrics.CollectionVideosProcessed.WithLabelValues("error").Inc()
		return outcomeError
	}
	recordOutcome(outcome)
	return outcome
}

const outcomeError catalogstore.Outcome = "error"

// buildVideo routes a parsed record through the Cleaner and populates a
// catalogstore.Video ready for classification + ingest.
func buildVideo(v parser.ParsedVideo, src health.Source) catalogstore.Video {
	route := v.PlayFlag
	if route == "" {
		route = "default"
	}
	playURLs := cleaner.CleanPlayURLs(map[string]string{route: v.PlayRaw})

	return catalogstore.Video{
		Name:      strings.TrimSpace(v.Name),
		Year:      parseYear(v.Year),
		Area:      cleaner.NormalizeArea(v.Area),
		Actors:    splitPeople(v.Actor),
		Directors: splitPeople(v.Director),
		Synopsis:  cleaner.StripHTML(v.Content),
		Tags:      splitPeople(v.Tag),
		CoverURL:  cleaner.CleanImageURL(v.Pic),
		Remarks:   strings.TrimSpace(v.Remarks),
		Rating:    parseFloat(v.Score),
		PlayURLs:  playURLs,
	}
}

func parseYear(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func splitPeople(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "，", ",")
	s = strings.ReplaceAll(s, "/", ",")
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
