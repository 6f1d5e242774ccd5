// Package scheduler is the Scheduler (spec §4.M): a minute-resolution ticker
// that matches the current wall-clock minute against a small set of
// field-equality routines (hourly/daily/weekly/six-hourly-alert) and runs
// whichever are due to completion before the next tick, grounded on the
// teacher's internal/newsletter/scheduler ticker-plus-field-matcher shape and
// adapted to this repository's own suture.Service convention
// (internal/collector.Dispatcher) rather than the teacher's bespoke
// Start/Stop/stopCh wrapper.
package scheduler

import (
	"context"
	"time"

	"github.com/videocatalog/catalogcore/internal/config"
	"github.com/videocatalog/catalogcore/internal/logging"
	"github.com/videocatalog/catalogcore/internal/metrics"
	"github.com/videocatalog/catalogcore/internal/recommend"
)

// priorityRoutine is the task priority assigned to every Scheduler-created
// task; below the default (5) so ad hoc/manual tasks preempt routine ones.
const priorityRoutine = 3

// warmTypeIDs are the video types the hourly routine pre-warms a trending
// cache entry for: 0 (all types) plus the three highest-traffic catalog
// types (spec §4.A classify taxonomy: Movie, TVSeries, ShortDrama).
var warmTypeIDs = []int{0, 1, 2, 5}

func trendingWarmRequest(typeID int) recommend.Request {
	return recommend.Request{Strategy: recommend.StrategyTrending, TypeID: typeID, Limit: 10}
}

// TrendWarmer is the Recommender subset the hourly routine uses to prime its
// trending cache ahead of traffic.
type TrendWarmer interface {
	Recommend(ctx context.Context, req recommend.Request) recommend.Response
}

// Scheduler owns the wall-clock dispatch; every dependency is a narrow
// interface so tests can substitute fakes without standing up DuckDB/Badger.
type Scheduler struct {
	hits       HitFlusher
	search     SearchRebuilder
	trending   TrendWarmer
	precompute RecommendPrecomputer
	tasks      TaskCreator
	health     HealthChecker
	maint      Maintenance
	prober     URLProber
	alert      AlertNotifier
	rating     RatingBatcher
	cfg        config.SchedulerConfig
}

// New builds a Scheduler. recommend.Engine and catalogstore.Store already
// satisfy TrendWarmer/RecommendPrecomputer and Maintenance respectively (see
// the compile-time assertions in provider.go), so callers typically pass
// those concrete types straight through.
func New(
	hits HitFlusher,
	search SearchRebuilder,
	trending TrendWarmer,
	precompute RecommendPrecomputer,
	tasks TaskCreator,
	health HealthChecker,
	maint Maintenance,
	prober URLProber,
	alert AlertNotifier,
	rating RatingBatcher,
	cfg config.SchedulerConfig,
) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	return &Scheduler{
		hits: hits, search: search, trending: trending, precompute: precompute, tasks: tasks,
		health: health, maint: maint, prober: prober, alert: alert, rating: rating, cfg: cfg,
	}
}

// run dispatches every routine due at wall-clock now, each to completion
// before the next is started (spec §5 ordering guarantee: tick handlers run
// to completion before the next tick). A routine panicking or erroring
// internally is caught and logged by the routine itself; run never stops the
// loop on a single routine's failure.
func (s *Scheduler) run(ctx context.Context, now time.Time) {
	for _, r := range dueRoutines(now) {
		switch r {
		case routineWeekly:
			metrics.SchedulerRuns.WithLabelValues("weekly").Inc()
			s.runWeekly(ctx)
		case routineDaily:
			metrics.SchedulerRuns.WithLabelValues("daily").Inc()
			s.runDaily(ctx)
		case routineHourly:
			metrics.SchedulerRuns.WithLabelValues("hourly").Inc()
			s.runHourly(ctx)
		case routineAlert:
			metrics.SchedulerRuns.WithLabelValues("alert").Inc()
			s.runAlert(ctx)
		}
	}
}

// Serve implements suture.Service: tick once a minute (or cfg.TickInterval,
// for tests) and run whatever routines are due. A single-runner invariant
// for collection work is already held by Task Manager; on any uncaught
// routine error an alert-worthy log line is emitted and the loop continues
// (spec's Scheduler narrative: "on any uncaught error, an alert is emitted;
// the scheduler continues").
func (s *Scheduler) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						logging.Ctx(ctx).Error().Interface("panic", r).Msg("scheduler: routine panicked")
					}
				}()
				s.run(ctx, now)
			}()
		}
	}
}

// String implements fmt.Stringer for suture's log output.
func (s *Scheduler) String() string { return "scheduler" }
