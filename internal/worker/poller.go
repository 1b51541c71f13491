package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mfadel/brontes/internal/remote"
)

// poller pulls work item batches for one task type and hands them to the
// pool. Poll failures are contained here: they are logged, counted, and
// backed off, never surfaced past the poller.
type poller struct {
	spec       Spec
	api        remote.API
	pool       *pool
	state      *poolState
	maxBatch   int
	backoffCap time.Duration
	logger     *slog.Logger
}

// run loops until ctx is cancelled. Each cycle polls only when the pool has
// free capacity, dispatches every returned item, and loops again immediately
// while capacity remains; an empty result or a full pool sleeps the poll
// interval before the next cycle.
func (p *poller) run(ctx context.Context) {
	b := newBackoff(p.spec.PollInterval, p.backoffCap)

	for ctx.Err() == nil {
		free := p.spec.Concurrency - int(p.state.active.Load()) - int(p.state.queued.Load())
		if free <= 0 {
			if !sleepCtx(ctx, p.spec.PollInterval) {
				return
			}
			continue
		}

		n := free
		if n > p.maxBatch {
			n = p.maxBatch
		}

		items, err := p.api.Poll(ctx, p.spec.TaskType, n, p.spec.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.state.pollErrors.Add(1)
			pollsTotal.WithLabelValues(p.spec.TaskType, "error").Inc()
			delay := b.Next()
			p.logger.Warn("poll failed, backing off",
				"task_type", p.spec.TaskType,
				"consecutive_errors", p.state.pollErrors.Load(),
				"backoff", delay,
				"error", err,
			)
			if !sleepCtx(ctx, delay) {
				return
			}
			continue
		}

		b.Reset()
		p.state.pollErrors.Store(0)
		p.state.lastPollAt.Store(time.Now().UnixNano())
		pollsTotal.WithLabelValues(p.spec.TaskType, "ok").Inc()

		if len(items) == 0 {
			if !sleepCtx(ctx, p.spec.PollInterval) {
				return
			}
			continue
		}

		itemsPolledTotal.WithLabelValues(p.spec.TaskType).Add(float64(len(items)))
		for _, item := range items {
			if item.ClaimedAt.IsZero() {
				item.ClaimedAt = time.Now().UTC()
			}
			p.pool.submit(item)
		}
	}
}
