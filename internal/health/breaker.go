package health

import (
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/videocatalog/catalogcore/internal/logging"
	"github.com/videocatalog/catalogcore/internal/metrics"
)

// newBreaker builds a per-source circuit breaker gating probe requests, grounded
// on the teacher's internal/sync/circuit_breaker.go Tautulli breaker: a
// majority-failure ReadyToTrip over a rolling request window, with state
// transitions mirrored into Prometheus. get_healthy_sources treats an open
// breaker as equivalent to a persisted error status, so a source flapping badly
// enough to trip stops being probed at all until the breaker's timeout elapses.
func newBreaker(sourceID string) *gobreaker.CircuitBreaker[[]byte] {
	metrics.CircuitBreakerState.WithLabelValues(sourceID).Set(stateToFloat(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        sourceID,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     5 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("source_id", name).Str("from", from.String()).Str("to", to.String()).Msg("health: circuit breaker transition")
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
