package collector

import (
	"context"
	"time"

	"github.com/videocatalog/catalogcore/internal/logging"
)

// Dispatcher adapts Engine to suture's Service interface (Serve(ctx) error),
// grounded on the teacher's Start/Stop-wrapper-to-Serve pattern
// (internal/supervisor/services/sync_service.go): rather than wrapping an
// existing Start/Stop manager, it polls task.Manager.NextPending directly
// since the Task Manager itself is stateless between calls.
type Dispatcher struct {
	engine       *Engine
	pollInterval time.Duration
}

// NewDispatcher builds a Dispatcher. A non-positive pollInterval defaults to 2s.
func NewDispatcher(engine *Engine, pollInterval time.Duration) *Dispatcher {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Dispatcher{engine: engine, pollInterval: pollInterval}
}

// Serve implements suture.Service: poll for the next pending task and run it
// to completion (or to its next pause/cancel boundary) before polling again,
// enforcing the single-running-task invariant at the dispatch layer on top of
// the Task Manager's own NextPending guard.
func (d *Dispatcher) Serve(ctx context.Context) error {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t, ok, err := d.engine.tasks.NextPending(ctx)
			if err != nil {
				logging.Ctx(ctx).Warn().Err(err).Msg("collector: next_pending failed")
				continue
			}
			if !ok {
				continue
			}
			if err := d.engine.RunTask(ctx, t.ID); err != nil {
				logging.Ctx(ctx).Error().Err(err).Str("task_id", t.ID).Msg("collector: task run ended with error")
			}
		}
	}
}

// String implements fmt.Stringer for suture's log output.
func (d *Dispatcher) String() string { return "collection-dispatcher" }
