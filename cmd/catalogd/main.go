// Command catalogd runs catalogcore as a standalone daemon: it opens the
// DuckDB catalog and Badger KV store, wires every domain component named in
// the specification together, and serves them under a suture supervisor
// tree until SIGINT/SIGTERM requests a graceful shutdown.
//
// Initialization order, grounded on the teacher's cmd/server/main.go:
//
//  1. Config (environment + optional YAML file)
//  2. Storage (DuckDB catalog, Badger KV)
//  3. Domain components (classify, health, task, collector, hits, rating,
//     aggregate, recommend, search)
//  4. Supervisor tree (Collection Engine dispatcher + Scheduler as workers,
//     HTTP server as the api layer)
//  5. Signal handling and graceful shutdown
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/videocatalog/catalogcore/internal/aggregate"
	"github.com/videocatalog/catalogcore/internal/api"
	"github.com/videocatalog/catalogcore/internal/catalogstore"
	"github.com/videocatalog/catalogcore/internal/classify"
	"github.com/videocatalog/catalogcore/internal/collector"
	"github.com/videocatalog/catalogcore/internal/config"
	"github.com/videocatalog/catalogcore/internal/events"
	"github.com/videocatalog/catalogcore/internal/health"
	"github.com/videocatalog/catalogcore/internal/hits"
	"github.com/videocatalog/catalogcore/internal/logging"
	"github.com/videocatalog/catalogcore/internal/rating"
	"github.com/videocatalog/catalogcore/internal/recommend"
	"github.com/videocatalog/catalogcore/internal/scheduler"
	"github.com/videocatalog/catalogcore/internal/search"
	"github.com/videocatalog/catalogcore/internal/store"
	"github.com/videocatalog/catalogcore/internal/supervisor"
	"github.com/videocatalog/catalogcore/internal/supervisor/services"
	"github.com/videocatalog/catalogcore/internal/task"
	"github.com/videocatalog/catalogcore/internal/upstream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Error().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}

	logging.Configure(cfg.Logging.Level, cfg.Logging.Pretty)
	logging.Info().
		Str("addr", cfg.Server.Addr).
		Str("rating_api_key", config.MaskCredential(cfg.Rating.APIKey)).
		Msg("starting catalogd")

	db, err := store.Open(cfg.Storage)
	if err != nil {
		logging.Error().Err(err).Msg("failed to open catalog store")
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing catalog store")
		}
	}()

	kv, err := store.OpenKV(cfg.Storage)
	if err != nil {
		logging.Error().Err(err).Msg("failed to open kv store")
		os.Exit(1)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing kv store")
		}
	}()

	catalog := catalogstore.New(db)
	client := upstream.New(upstream.Config{})

	classifier := classify.NewEngine(catalog, kv)
	healthTracker := health.NewTracker(catalog, client, cfg.Health)
	tasks := task.NewManager(db)
	hitTracker := hits.New(kv, db, cfg.Hits)
	ratingFetcher := rating.New(client, catalog, kv, db, cfg.Rating)
	searcher := search.New(catalog)
	recommender := recommend.New(catalog)
	aggregator := aggregate.New(catalog, catalog, client, cfg.Aggregate)

	eventBus, err := events.NewBus()
	if err != nil {
		logging.Error().Err(err).Msg("failed to build event bus")
		os.Exit(1)
	}
	eventBus.Subscribe("task-audit-log", events.TopicTaskCompleted, func(ctx context.Context, payload []byte) error {
		var ev events.TaskCompleted
		if err := json.Unmarshal(payload, &ev); err != nil {
			return err
		}
		logging.Ctx(ctx).Info().Str("task_id", ev.TaskID).Msg("events: task completed")
		return nil
	})

	collectEngine := collector.NewEngine(tasks, catalog, catalog, healthTracker, classifier, client, cfg.Collect, searcher, eventBus)
	dispatcher := collector.NewDispatcher(collectEngine, 0)

	sched := scheduler.New(
		hitTracker,
		searcher,
		recommender,
		recommender,
		tasks,
		healthTracker,
		catalog,
		client,
		client,
		ratingFetcher,
		cfg.Scheduler,
	)

	ctx := context.Background()
	if err := searcher.Rebuild(ctx); err != nil {
		logging.Error().Err(err).Msg("initial search index build failed; serving with an empty index until the scheduler rebuilds it")
	}

	handler := api.New(aggregator, catalog, searcher, recommender, hitTracker)
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(handler, cfg.Server.RateLimitRequests, cfg.Server.RateLimitWindow),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.New(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddWorker(eventBus)
	tree.AddWorker(dispatcher)
	tree.AddWorker(sched)
	tree.AddAPIService(services.NewHTTPServer(httpServer, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(runCtx)

	select {
	case <-runCtx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor tree to stop")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("services failed to stop within the shutdown timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop")
		}
	}

	logging.Info().Msg("catalogd stopped")
}
