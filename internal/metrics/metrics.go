// Package metrics registers the Prometheus collectors exported by the core's
// /metrics endpoint. Collectors are package-level (the usual Prometheus client
// idiom) so every package can import and increment them without threading a
// registry handle through every call.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CollectionPagesProcessed counts pages fetched per source by the Collection Engine.
	CollectionPagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogcore_collection_pages_processed_total",
		Help: "Pages fetched and processed by the collection engine, by source and outcome.",
	}, []string{"source", "outcome"})

	// CollectionVideosProcessed counts per-video ingest outcomes.
	CollectionVideosProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogcore_collection_videos_processed_total",
		Help: "Videos processed by the collection engine, by outcome (new/update/skip/error).",
	}, []string{"outcome"})

	// SourceHealthStatus reports the current health status as a gauge (1 = current status).
	SourceHealthStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "catalogcore_source_health_status",
		Help: "Current source health status; one time series per (source,status) is 1 when active.",
	}, []string{"source", "status"})

	// SourceHealthResponseMs is the rolling EMA response time per source.
	SourceHealthResponseMs = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "catalogcore_source_health_response_ms",
		Help: "Rolling EMA response time in milliseconds, by source.",
	}, []string{"source"})

	// CircuitBreakerState mirrors gobreaker's state (0=closed,1=half-open,2=open).
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "catalogcore_circuit_breaker_state",
		Help: "Circuit breaker state per source: 0=closed, 1=half-open, 2=open.",
	}, []string{"source"})

	// CircuitBreakerTransitions counts breaker state transitions per source.
	CircuitBreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogcore_circuit_breaker_transitions_total",
		Help: "Circuit breaker state transitions, by source, from-state, to-state.",
	}, []string{"source", "from", "to"})

	// CircuitBreakerRequests counts probe outcomes as seen by the breaker.
	CircuitBreakerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogcore_circuit_breaker_requests_total",
		Help: "Requests passed through a circuit breaker, by source and outcome (success/failure/rejected).",
	}, []string{"source", "outcome"})

	// HitsFlushed counts hit-counter flush operations.
	HitsFlushed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogcore_hits_flushed_total",
		Help: "Hit counter entries flushed to durable storage, by trigger (batch/interval/force).",
	}, []string{"trigger"})

	// TaskTransitions counts task state machine transitions.
	TaskTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogcore_task_transitions_total",
		Help: "Task Manager state transitions, by (from,to).",
	}, []string{"from", "to"})

	// AggregateRequests counts Aggregator list requests by path taken (cache/fanout).
	AggregateRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogcore_aggregate_requests_total",
		Help: "Aggregator list requests, by path (cache_hit/fanout).",
	}, []string{"path"})

	// RecommendRequests counts Recommender calls by strategy actually served.
	RecommendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogcore_recommend_requests_total",
		Help: "Recommender calls, by strategy served (after any degrade-to-trending).",
	}, []string{"strategy"})

	// SchedulerRuns counts scheduler routine executions.
	SchedulerRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogcore_scheduler_runs_total",
		Help: "Scheduler routine executions, by routine name.",
	}, []string{"routine"})

	// ClassifyMethodUsed counts which method in the priority chain won, mirroring
	// the teacher's per-detector match counter.
	ClassifyMethodUsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogcore_classify_method_total",
		Help: "Classifier decisions, by winning method in the priority chain.",
	}, []string{"method"})
)
