// Package collector is the Collection Engine (spec §4.F): given a task, it
// walks sources x categories x pages as a flat state machine (never
// recursive), checkpointing between pages so a pause/cancel/crash can resume
// exactly where it left off, and routes every fetched video through the
// Cleaner, Classifier and Catalog Store in turn.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/videocatalog/catalogcore/internal/catalogstore"
	"github.com/videocatalog/catalogcore/internal/classify"
	"github.com/videocatalog/catalogcore/internal/config"
	"github.com/videocatalog/catalogcore/internal/events"
	"github.com/videocatalog/catalogcore/internal/health"
	"github.com/videocatalog/catalogcore/internal/logging"
	"github.com/videocatalog/catalogcore/internal/metrics"
	"github.com/videocatalog/catalogcore/internal/task"
	"github.com/videocatalog/catalogcore/internal/upstream"
)

// SourceResolver is the subset of catalogstore.Store the engine needs to turn
// a task's config into a concrete source list, kept as an interface so tests
// can substitute a fake without standing up DuckDB.
type SourceResolver interface {
	GetSource(ctx context.Context, id string) (health.Source, bool, error)
}

// HealthySourceLister backs "no explicit source_ids" resolution (spec §4.F
// step 2: "else get_healthy_sources()").
type HealthySourceLister interface {
	GetHealthySources(ctx context.Context) ([]health.Source, error)
}

// SearchIndexer is rebuilt on task completion (spec §4.F step 5). A nil
// indexer is a valid no-op for callers that haven't wired internal/search yet.
type SearchIndexer interface {
	Rebuild(ctx context.Context) error
}

// EventPublisher notifies the rest of the daemon that a task run has
// finished, decoupling completion side-effects (audit logging today) from
// the engine itself. A nil publisher is a valid no-op for callers that
// haven't wired internal/events.
type EventPublisher interface {
	PublishTaskCompleted(ctx context.Context, ev events.TaskCompleted)
}

// Engine wires the Cleaner/Classifier/Catalog Store/Source Health Tracker
// together to execute one collection task at a time. No recursion, no nested
// goroutine trees beyond the bounded per-page worker pool in page.go.
type Engine struct {
	tasks      *task.Manager
	catalog    *catalogstore.Store
	sources    SourceResolver
	healthy    HealthySourceLister
	classifier *classify.Engine
	client     *upstream.Client
	cfg        config.CollectConfig
	index      SearchIndexer
	events     EventPublisher
}

// NewEngine builds an Engine. index and events may be nil.
func NewEngine(
	tasks *task.Manager,
	catalog *catalogstore.Store,
	sources SourceResolver,
	healthy HealthySourceLister,
	classifier *classify.Engine,
	client *upstream.Client,
	cfg config.CollectConfig,
	index SearchIndexer,
	events EventPublisher,
) *Engine {
	return &Engine{
		tasks:      tasks,
		catalog:    catalog,
		sources:    sources,
		healthy:    healthy,
		classifier: classifier,
		client:     client,
		cfg:        cfg,
		index:      index,
		events:     events,
	}
}

// RunTask executes spec §4.F's numbered procedure end to end for taskID. It
// returns nil once the task reaches a terminal state (completed/failed) or a
// pause/cancel is observed at a page boundary; it returns a non-nil error only
// for conditions the caller (the Dispatcher) should log and move past, since
// the task's own last_error column already records the failure.
func (e *Engine) RunTask(ctx context.Context, taskID string) (err error) {
	t, found, err := e.tasks.Get(ctx, taskID)
	if err != nil {
		return fmt.Errorf("collector: load task: %w", err)
	}
	if !found {
		return fmt.Errorf("collector: task %s not found", taskID)
	}

	defer func() {
		if r := recover(); r != nil {
			failErr := fmt.Sprintf("panic: %v", r)
			if _, setErr := e.tasks.UpdateStatus(ctx, taskID, task.StatusFailed, failErr); setErr != nil {
				logging.Ctx(ctx).Error().Err(setErr).Str("task_id", taskID).Msg("collector: failed to record panic")
			}
			err = fmt.Errorf("collector: %s", failErr)
		}
	}()

	if ok, transErr := e.tasks.UpdateStatus(ctx, taskID, task.StatusRunning, ""); transErr != nil {
		return fmt.Errorf("collector: transition to running: %w", transErr)
	} else if !ok {
		return fmt.Errorf("collector: task %s cannot transition %s -> running", taskID, t.Status)
	}

	sources, err := e.resolveSources(ctx, t.Config)
	if err != nil {
		e.fail(ctx, taskID, err)
		return err
	}
	if len(sources) == 0 {
		if _, setErr := e.tasks.UpdateStatus(ctx, taskID, task.StatusCompleted, ""); setErr != nil {
			logging.Ctx(ctx).Error().Err(setErr).Str("task_id", taskID).Msg("collector: failed to mark empty-source-set task completed")
		}
		return nil
	}

	startSourceIndex, startPage := 0, 1
	if t.Checkpoint != nil {
		startSourceIndex = t.Checkpoint.SourceIndex
		startPage = t.Checkpoint.Page
	}

	st := &runState{
		taskID:            taskID,
		cfg:               t.Config,
		processed:         0,
		progressBatchSize: e.cfg.ProgressUpdateInterval,
	}
	if st.progressBatchSize <= 0 {
		st.progressBatchSize = 20
	}

	for si := startSourceIndex; si < len(sources); si++ {
		src := sources[si]
		if err := e.tasks.UpdateProgress(ctx, taskID, task.Progress{
			CurrentSourceName: src.Name,
			CurrentSourceID:   src.ID,
		}); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("collector: update_progress current_source failed")
		}

		pageForSource := 1
		if si == startSourceIndex {
			pageForSource = startPage
		}

		halted, err := e.runSource(ctx, st, si, src, pageForSource)
		if err != nil {
			e.fail(ctx, taskID, err)
			return err
		}
		if halted {
			return nil
		}
	}

	if e.index != nil {
		if err := e.index.Rebuild(ctx); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("collector: search index rebuild failed")
		}
	}
	if _, err := e.tasks.UpdateStatus(ctx, taskID, task.StatusCompleted, ""); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("task_id", taskID).Msg("collector: failed to mark task completed")
	}
	if e.events != nil {
		e.events.PublishTaskCompleted(ctx, events.TaskCompleted{TaskID: taskID})
	}
	return nil
}

func (e *Engine) fail(ctx context.Context, taskID string, cause error) {
	if _, err := e.tasks.UpdateStatus(ctx, taskID, task.StatusFailed, cause.Error()); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("task_id", taskID).Msg("collector: failed to record task failure")
	}
}

// resolveSources implements spec §4.F step 2.
func (e *Engine) resolveSources(ctx context.Context, cfg task.Config) ([]health.Source, error) {
	if len(cfg.SourceIDs) > 0 {
		out := make([]health.Source, 0, len(cfg.SourceIDs))
		for _, id := range cfg.SourceIDs {
			src, ok, err := e.sources.GetSource(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("collector: resolve source %s: %w", id, err)
			}
			if ok {
				out = append(out, src)
			}
		}
		return out, nil
	}
	return e.healthy.GetHealthySources(ctx)
}

// runState carries the counters and pacing threaded through one task run.
type runState struct {
	taskID            string
	cfg               task.Config
	processed         int
	progressBatchSize int
}

// categorySlots returns config.category_ids, or a single empty-string "no
// filter" slot when none were given (spec §4.F step 4).
func categorySlots(cfg task.Config) []string {
	if len(cfg.CategoryIDs) == 0 {
		return []string{""}
	}
	return cfg.CategoryIDs
}

func clampPageRange(pageStart, pageEnd, pageCount int) (int, int) {
	if pageStart < 1 {
		pageStart = 1
	}
	end := pageEnd
	if end < 0 {
		end = pageCount
	}
	if end > pageCount {
		end = pageCount
	}
	if end < pageStart {
		end = pageStart
	}
	return pageStart, end
}

func sleepPaced(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

// metric helper shared by page.go's per-video outcome recording.
func recordOutcome(outcome catalogstore.Outcome) {
	metrics.CollectionVideosProcessed.WithLabelValues(string(outcome)).Inc()
}
