package scheduler

import (
	"context"
	"fmt"

	"github.com/videocatalog/catalogcore/internal/catalogstore"
	"github.com/videocatalog/catalogcore/internal/health"
	"github.com/videocatalog/catalogcore/internal/logging"
	"github.com/videocatalog/catalogcore/internal/task"
)

// runHourly flushes hit counters, warms the search index and trending cache,
// and kicks off a capped incremental collection pass. The hourly routine also
// names a pending-image-upload-queue step in the lifecycle narrative this
// core has no counterpart for: no image-hosting pipeline exists anywhere in
// this component set (cover/thumb URLs pass through verbatim from upstream,
// spec §4.B clean_image_url), so that step is intentionally a no-op here
// (recorded in DESIGN.md).
func (s *Scheduler) runHourly(ctx context.Context) {
	log := logging.Ctx(ctx)

	if err := s.hits.ForceFlush(ctx); err != nil {
		log.Warn().Err(err).Msg("scheduler: hourly force_flush failed")
	}
	if err := s.hits.AggregateHits(ctx); err != nil {
		log.Warn().Err(err).Msg("scheduler: hourly aggregate_hits failed")
	}
	if err := s.search.Rebuild(ctx); err != nil {
		log.Warn().Err(err).Msg("scheduler: hourly search rebuild failed")
	}
	s.warmTrending(ctx)

	if _, err := s.tasks.Create(ctx, task.KindIncremental, task.Config{
		PageStart: 1,
		PageEnd:   s.cfg.HourlyMaxPages,
		MaxVideos: s.cfg.HourlyMaxVideos,
	}, priorityRoutine); err != nil {
		log.Warn().Err(err).Msg("scheduler: hourly incremental task creation failed")
	}
}

// runDaily runs a deeper incremental pass, probes a batch of play URLs for
// dead links, runs a full health sweep, and trims old access-log rows.
func (s *Scheduler) runDaily(ctx context.Context) {
	log := logging.Ctx(ctx)

	if _, err := s.tasks.Create(ctx, task.KindIncremental, task.Config{
		PageStart: 1,
		PageEnd:   s.cfg.DailyMaxPages,
		MaxVideos: s.cfg.DailyMaxVideos,
	}, priorityRoutine); err != nil {
		log.Warn().Err(err).Msg("scheduler: daily incremental task creation failed")
	}

	if err := s.validateURLs(ctx); err != nil {
		log.Warn().Err(err).Msg("scheduler: daily url validation batch failed")
	}

	if n, err := s.rating.BatchFetch(ctx, s.cfg.RatingBatchSize); err != nil {
		log.Warn().Err(err).Msg("scheduler: daily rating batch_fetch failed")
	} else if n > 0 {
		log.Info().Int("fetched", n).Msg("scheduler: daily rating batch_fetch")
	}

	if _, err := s.health.CheckAll(ctx); err != nil {
		log.Warn().Err(err).Msg("scheduler: daily health check_all failed")
	}

	if n, err := s.maint.DeleteOldAccessLog(ctx, s.cfg.AccessLogRetainDays); err != nil {
		log.Warn().Err(err).Msg("scheduler: daily access_log cleanup failed")
	} else if n > 0 {
		log.Info().Int64("rows", n).Msg("scheduler: daily access_log cleanup")
	}
}

// runWeekly runs a full collection pass, merges duplicates, deletes videos
// left invalid for too long, rebuilds the search index wholesale, and trims
// old tasks.
func (s *Scheduler) runWeekly(ctx context.Context) {
	log := logging.Ctx(ctx)

	if _, err := s.tasks.Create(ctx, task.KindFull, task.Config{
		PageStart: 1,
		PageEnd:   -1,
	}, priorityRoutine); err != nil {
		log.Warn().Err(err).Msg("scheduler: weekly full task creation failed")
	}

	if merged, err := s.maint.CleanupDuplicates(ctx); err != nil {
		log.Warn().Err(err).Msg("scheduler: weekly cleanup_duplicates failed")
	} else if merged > 0 {
		log.Info().Int("merged", merged).Msg("scheduler: weekly cleanup_duplicates")
	}

	if n, err := s.maint.DeleteStaleInvalid(ctx, s.cfg.InvalidRetentionDays); err != nil {
		log.Warn().Err(err).Msg("scheduler: weekly stale-invalid cleanup failed")
	} else if n > 0 {
		log.Info().Int64("rows", n).Msg("scheduler: weekly stale-invalid cleanup")
	}

	if err := s.search.Rebuild(ctx); err != nil {
		log.Warn().Err(err).Msg("scheduler: weekly search rebuild failed")
	}

	if err := s.precompute.Precompute(ctx); err != nil {
		log.Warn().Err(err).Msg("scheduler: weekly recommend precompute failed")
	}

	if n, err := s.tasks.CleanupOld(ctx, s.cfg.TaskRetentionDays); err != nil {
		log.Warn().Err(err).Msg("scheduler: weekly task cleanup failed")
	} else if n > 0 {
		log.Info().Int64("rows", n).Msg("scheduler: weekly task cleanup")
	}
}

// runAlert computes a health summary and, if any source is outside
// StatusHealthy, posts it to the configured webhook. A summary is skipped
// entirely when no webhook URL is configured.
func (s *Scheduler) runAlert(ctx context.Context) {
	log := logging.Ctx(ctx)

	records, err := s.health.CheckAll(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("scheduler: alert health check_all failed")
		return
	}
	if s.cfg.AlertWebhookURL == "" {
		return
	}

	allGreen := true
	for _, r := range records {
		if r.Status != health.StatusHealthy {
			allGreen = false
			break
		}
	}
	if allGreen {
		return
	}

	status, err := s.alert.Post(ctx, s.cfg.AlertWebhookURL, healthAlertPayload(records))
	if err != nil {
		log.Warn().Err(err).Msg("scheduler: alert webhook post failed")
		return
	}
	log.Info().Int("status", status).Msg("scheduler: alert webhook posted")
}

// warmTrending populates the Recommender's trending cache for every known
// video type plus the "all types" bucket, so the first request of the hour
// never pays the cold-cache cost.
func (s *Scheduler) warmTrending(ctx context.Context) {
	for _, typeID := range warmTypeIDs {
		resp := s.trending.Recommend(ctx, trendingWarmRequest(typeID))
		if resp.Degraded {
			logging.Ctx(ctx).Debug().Int("type_id", typeID).Msg("scheduler: trending warm degraded")
		}
	}
}

// validateURLs walks a batch of is_valid videos, probing each one's primary
// play URL; a permanent-looking failure flips is_valid, a success just bumps
// updated_at so the next batch rotates forward.
func (s *Scheduler) validateURLs(ctx context.Context) error {
	candidates, err := s.maint.ValidationCandidates(ctx, s.cfg.URLValidationBatch)
	if err != nil {
		return fmt.Errorf("scheduler: validation_candidates: %w", err)
	}

	for _, v := range candidates {
		rawURL, ok := primaryPlayURL(v)
		if !ok {
			continue
		}
		status, err := s.prober.Probe(ctx, rawURL)
		if err != nil || status >= 400 {
			if markErr := s.maint.MarkInvalid(ctx, v.VideoID); markErr != nil {
				logging.Ctx(ctx).Warn().Err(markErr).Str("video_id", v.VideoID).Msg("scheduler: mark_invalid failed")
			}
			continue
		}
		if touchErr := s.maint.TouchValidated(ctx, v.VideoID); touchErr != nil {
			logging.Ctx(ctx).Warn().Err(touchErr).Str("video_id", v.VideoID).Msg("scheduler: touch_validated failed")
		}
	}
	return nil
}

// primaryPlayURL picks the first episode URL of the first non-empty play
// group, the URL the URL Validator probes as a stand-in for "this video is
// still playable".
func primaryPlayURL(v catalogstore.Video) (string, bool) {
	for _, episodes := range v.PlayURLs {
		if len(episodes) > 0 && episodes[0].URL != "" {
			return episodes[0].URL, true
		}
	}
	return "", false
}

func healthAlertPayload(records []health.Record) map[string]interface{} {
	unhealthy := make([]string, 0, len(records))
	for _, r := range records {
		if r.Status != health.StatusHealthy {
			unhealthy = append(unhealthy, r.SourceID)
		}
	}
	return map[string]interface{}{
		"total_sources":     len(records),
		"unhealthy_sources": unhealthy,
	}
}
