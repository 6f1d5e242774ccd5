package scheduler

import (
	"context"

	"github.com/videocatalog/catalogcore/internal/catalogstore"
	"github.com/videocatalog/catalogcore/internal/health"
	"github.com/videocatalog/catalogcore/internal/hits"
	"github.com/videocatalog/catalogcore/internal/rating"
	"github.com/videocatalog/catalogcore/internal/recommend"
	"github.com/videocatalog/catalogcore/internal/search"
	"github.com/videocatalog/catalogcore/internal/task"
	"github.com/videocatalog/catalogcore/internal/upstream"
)

// HitFlusher is the Hit Tracker subset the hourly/daily routines need (spec
// §4.C): push buffered counters to durable storage and roll daily counters
// into the day/week/month/all-time columns.
type HitFlusher interface {
	ForceFlush(ctx context.Context) error
	AggregateHits(ctx context.Context) error
}

// SearchRebuilder is the Search component subset (spec §4.L).
type SearchRebuilder interface {
	Rebuild(ctx context.Context) error
}

// RecommendPrecomputer is the Recommender subset (spec §4.K) driving its
// content_based neighbor cache.
type RecommendPrecomputer interface {
	Precompute(ctx context.Context) error
}

// TaskCreator is the Task Manager subset needed to enqueue collection work
// (spec §4.E); the existing collector.Dispatcher polling loop picks up
// whatever is created here, so the Scheduler never drives collection itself.
type TaskCreator interface {
	Create(ctx context.Context, kind task.Kind, cfg task.Config, priority int) (task.Task, error)
	CleanupOld(ctx context.Context, retentionDays int) (int64, error)
}

// HealthChecker is the Source Health Tracker subset (spec §4.D).
type HealthChecker interface {
	CheckAll(ctx context.Context) ([]health.Record, error)
}

// Maintenance is the catalogstore subset the daily/weekly GC routines need.
type Maintenance interface {
	ValidationCandidates(ctx context.Context, limit int) ([]catalogstore.Video, error)
	MarkInvalid(ctx context.Context, videoID string) error
	TouchValidated(ctx context.Context, videoID string) error
	DeleteStaleInvalid(ctx context.Context, olderThanDays int) (int64, error)
	DeleteOldAccessLog(ctx context.Context, olderThanDays int) (int64, error)
	CleanupDuplicates(ctx context.Context) (int, error)
}

// URLProber probes one play URL for reachability (spec's Video lifecycle
// narrative: URL Validator marks is_valid=false on probe failure).
type URLProber interface {
	Probe(ctx context.Context, rawURL string) (int, error)
}

// AlertNotifier posts the six-hourly health summary to an external webhook.
type AlertNotifier interface {
	Post(ctx context.Context, rawURL string, body interface{}) (int, error)
}

// RatingBatcher is the Rating Enricher subset (spec §4.I) the daily routine
// drives to catch up videos that never got an initial rating lookup, or
// whose failure backoff has elapsed since the last attempt.
type RatingBatcher interface {
	BatchFetch(ctx context.Context, limit int) (int, error)
}

var (
	_ Maintenance          = (*catalogstore.Store)(nil)
	_ TaskCreator          = (*task.Manager)(nil)
	_ HealthChecker        = (*health.Tracker)(nil)
	_ HitFlusher           = (*hits.Tracker)(nil)
	_ SearchRebuilder      = (*search.Searcher)(nil)
	_ RecommendPrecomputer = (*recommend.Engine)(nil)
	_ TrendWarmer          = (*recommend.Engine)(nil)
	_ URLProber            = (*upstream.Client)(nil)
	_ AlertNotifier        = (*upstream.Client)(nil)
	_ RatingBatcher        = (*rating.Fetcher)(nil)
)
