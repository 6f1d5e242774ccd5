package health

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/videocatalog/catalogcore/internal/config"
	"github.com/videocatalog/catalogcore/internal/logging"
	"github.com/videocatalog/catalogcore/internal/metrics"
	"github.com/videocatalog/catalogcore/internal/parser"
	"github.com/videocatalog/catalogcore/internal/upstream"
)

// Tracker implements spec §4.D: check_one, check_all, get_healthy_sources.
type Tracker struct {
	store  Store
	client *upstream.Client
	cfg    config.HealthConfig

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[[]byte]
}

// NewTracker builds a Tracker. client is the shared upstream HTTP client so
// probes share the same retry/backoff policy as the Collection Engine.
func NewTracker(store Store, client *upstream.Client, cfg config.HealthConfig) *Tracker {
	return &Tracker{
		store:    store,
		client:   client,
		cfg:      cfg,
		breakers: make(map[string]*gobreaker.CircuitBreaker[[]byte]),
	}
}

func (t *Tracker) breakerFor(sourceID string) *gobreaker.CircuitBreaker[[]byte] {
	t.mu.Lock()
	defer t.mu.Unlock()
	cb, ok := t.breakers[sourceID]
	if !ok {
		cb = newBreaker(sourceID)
		t.breakers[sourceID] = cb
	}
	return cb
}

// CheckOne probes one source, persists the updated rolling record, and returns
// it (spec §4.D check_one).
func (t *Tracker) CheckOne(ctx context.Context, src Source) (Record, error) {
	prev, _, err := t.store.GetRecord(ctx, src.ID)
	if err != nil {
		return Record{}, err
	}

	listURL := upstream.BuildListURL(src.BaseURL, 1, "", "")
	probeCtx, cancel := context.WithTimeout(ctx, t.cfg.ProbeTimeout)
	defer cancel()

	start := time.Now()
	body, _, probeErr := t.breakerFor(src.ID).Execute(func() ([]byte, error) {
		b, _, getErr := t.client.Get(probeCtx, listURL)
		return b, getErr
	})
	elapsed := time.Since(start)

	next := prev
	next.SourceID = src.ID
	next.TotalChecks++

	switch {
	case errors.Is(probeErr, gobreaker.ErrOpenState), errors.Is(probeErr, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(src.ID, "rejected").Inc()
		next.Status = StatusError
		next.ConsecutiveFailures++
		next.LastError = probeErr.Error()
		next.LastErrorAt = time.Now()
	case probeCtx.Err() != nil:
		metrics.CircuitBreakerRequests.WithLabelValues(src.ID, "failure").Inc()
		next.Status = StatusTimeout
		next.ConsecutiveFailures++
		next.LastError = "probe timed out"
		next.LastErrorAt = time.Now()
	case probeErr != nil:
		metrics.CircuitBreakerRequests.WithLabelValues(src.ID, "failure").Inc()
		next.Status = StatusError
		next.ConsecutiveFailures++
		next.LastError = probeErr.Error()
		next.LastErrorAt = time.Now()
	default:
		list, parseErr := parser.Parse(body, parser.Format(src.Format))
		if parseErr != nil {
			metrics.CircuitBreakerRequests.WithLabelValues(src.ID, "failure").Inc()
			next.Status = StatusError
			next.ConsecutiveFailures++
			next.LastError = parseErr.Error()
			next.LastErrorAt = time.Now()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(src.ID, "success").Inc()
			next.ConsecutiveFailures = 0
			next.SuccessChecks++
			next.LastVideoCount = len(list.List)
			if elapsed.Milliseconds() > t.cfg.SlowResponseMs {
				next.Status = StatusSlow
			} else {
				next.Status = StatusHealthy
			}
		}
	}

	if next.ConsecutiveFailures >= t.cfg.MaxConsecutiveFails {
		next.Status = StatusError
	}

	next.LastResponseMs = elapsed.Milliseconds()
	next.AvgResponseMs = rollingEMA(prev.AvgResponseMs, float64(next.LastResponseMs), t.cfg.EMAAlpha)
	if next.TotalChecks > 0 {
		next.SuccessRate = float64(next.SuccessChecks) / float64(next.TotalChecks)
	}
	next.UpdatedAt = time.Now()

	if err := t.store.SaveRecord(ctx, next); err != nil {
		return Record{}, err
	}

	metrics.SourceHealthStatus.WithLabelValues(src.ID, string(next.Status)).Set(1)
	metrics.SourceHealthResponseMs.WithLabelValues(src.ID).Set(next.AvgResponseMs)

	logging.Ctx(ctx).Debug().Str("source_id", src.ID).Str("status", string(next.Status)).
		Int64("response_ms", next.LastResponseMs).Msg("health: probe complete")

	return next, nil
}

// rollingEMA implements spec invariant P8: avg' = round(0.7*avg + 0.3*sample),
// generalized to the configured alpha (default 0.3). The result is rounded to
// the nearest millisecond, per P8's literal round(), not left as a raw float.
func rollingEMA(prevAvg, sample, alpha float64) float64 {
	if prevAvg == 0 {
		return math.Round(sample)
	}
	return math.Round((1-alpha)*prevAvg + alpha*sample)
}

// CheckAll probes every active source, paced by cfg.ProbePaceDelay between
// probes (spec §4.D check_all / §5 shared-resource policy).
func (t *Tracker) CheckAll(ctx context.Context) ([]Record, error) {
	sources, err := t.store.ListActiveSources(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(sources))
	for i, src := range sources {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		rec, err := t.CheckOne(ctx, src)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("source_id", src.ID).Msg("health: check_one failed")
			continue
		}
		out = append(out, rec)
		if i < len(sources)-1 {
			select {
			case <-time.After(t.cfg.ProbePaceDelay):
			case <-ctx.Done():
				return out, ctx.Err()
			}
		}
	}
	return out, nil
}

// GetHealthySources returns active sources whose recorded status is in
// {healthy, slow, unknown}, consecutive_failures below the threshold, and whose
// breaker (if any exists yet) is not open (spec §4.D get_healthy_sources).
func (t *Tracker) GetHealthySources(ctx context.Context) ([]Source, error) {
	sources, err := t.store.ListActiveSources(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Source, 0, len(sources))
	for _, src := range sources {
		rec, ok, err := t.store.GetRecord(ctx, src.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			out = append(out, src) // never probed: unknown, treated as healthy-eligible
			continue
		}
		if rec.ConsecutiveFailures >= t.cfg.MaxConsecutiveFails {
			continue
		}
		switch rec.Status {
		case StatusHealthy, StatusSlow, StatusUnknown:
		default:
			continue
		}
		if t.breakerOpen(src.ID) {
			continue
		}
		out = append(out, src)
	}
	return out, nil
}

func (t *Tracker) breakerOpen(sourceID string) bool {
	t.mu.Lock()
	cb, ok := t.breakers[sourceID]
	t.mu.Unlock()
	return ok && cb.State() == gobreaker.StateOpen
}
