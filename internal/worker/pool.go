package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/mfadel/brontes/internal/model"
)

// pool is the fixed-size dispatcher for one task type: Concurrency slot
// goroutines drain a buffered queue, run the handler, and hand the outcome
// to the reporter. Handler panics are contained at the slot boundary.
type pool struct {
	spec     Spec
	state    *poolState
	reporter *reporter
	leases   *leaseManager
	logger   *slog.Logger

	queue chan model.WorkItem
	wg    sync.WaitGroup

	// execCtx is the handlers' execution context. It is cancelled only after
	// the shutdown grace period elapses, never mid-execution before that.
	execCtx context.Context
	cancel  context.CancelFunc
}

// newPool starts the slot goroutines immediately. queueCap must be large
// enough to absorb a full poll batch so the poller's handoff never blocks on
// handler execution.
func newPool(spec Spec, queueCap int, state *poolState, rep *reporter, leases *leaseManager, logger *slog.Logger) *pool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &pool{
		spec:     spec,
		state:    state,
		reporter: rep,
		leases:   leases,
		logger:   logger,
		queue:    make(chan model.WorkItem, queueCap),
		execCtx:  ctx,
		cancel:   cancel,
	}

	for i := 0; i < spec.Concurrency; i++ {
		p.wg.Add(1)
		go p.slot()
	}
	return p
}

// submit hands a polled item to the pool. It blocks only for the handoff
// itself; handler execution always happens on a slot goroutine.
func (p *pool) submit(item model.WorkItem) {
	p.state.queued.Add(1)
	queuedItems.WithLabelValues(p.spec.TaskType).Inc()
	p.queue <- item
}

func (p *pool) slot() {
	defer p.wg.Done()
	for item := range p.queue {
		p.state.queued.Add(-1)
		queuedItems.WithLabelValues(p.spec.TaskType).Dec()

		p.state.active.Add(1)
		activeSlots.WithLabelValues(p.spec.TaskType).Inc()
		p.runOne(item)
		p.state.active.Add(-1)
		activeSlots.WithLabelValues(p.spec.TaskType).Dec()
	}
}

// runOne claims the item, invokes the handler, and reports the outcome. An
// item still queued or finishing after the grace period is abandoned: no
// report is sent and the server-side lease is left to expire.
func (p *pool) runOne(item model.WorkItem) {
	logger := p.logger.With("task_type", item.TaskType, "item_id", item.ID)

	if p.execCtx.Err() != nil {
		logger.Warn("discarding queued work item after shutdown")
		executionsTotal.WithLabelValues(p.spec.TaskType, "abandoned").Inc()
		return
	}

	var stopLease func()
	if p.leases != nil {
		stopLease = p.leases.track(item)
	}

	start := time.Now()
	outcome := p.invoke(item)
	executionDuration.WithLabelValues(p.spec.TaskType).Observe(time.Since(start).Seconds())

	if stopLease != nil {
		stopLease()
	}

	if p.execCtx.Err() != nil {
		logger.Warn("abandoning work item finished after grace period, leaving lease to expire",
			"status", outcome.Status)
		executionsTotal.WithLabelValues(p.spec.TaskType, "abandoned").Inc()
		return
	}

	executionsTotal.WithLabelValues(p.spec.TaskType, outcomeLabel(outcome)).Inc()
	if err := p.reporter.report(p.execCtx, item, outcome); err != nil {
		logger.Warn("work item released without report", "error", err)
	}
}

// invoke runs the handler with panic containment. A panic or a returned
// error becomes a fatal failure carrying the message; the pool and process
// keep running.
func (p *pool) invoke(item model.WorkItem) (out model.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("handler panic",
				"task_type", item.TaskType,
				"item_id", item.ID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			out = model.FailedFatal(fmt.Sprintf("handler panic: %v", r))
		}
	}()

	res, err := p.spec.Handler(p.execCtx, &item)
	if err != nil {
		return model.FailedFatal(err.Error())
	}
	if res.Status == "" {
		// Handlers that only fill in Output get a completed outcome.
		return model.Completed(res.Output)
	}
	return res
}

// stop closes intake and waits up to grace for in-flight and queued work to
// drain. After the grace period remaining slots are abandoned: their
// execution context is cancelled and their reports suppressed.
func (p *pool) stop(grace time.Duration) {
	close(p.queue)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		if p.state.active.Load() > 0 || p.state.queued.Load() > 0 {
			p.logger.Warn("grace period elapsed, abandoning in-flight work",
				"task_type", p.spec.TaskType,
				"active", p.state.active.Load(),
				"queued", p.state.queued.Load(),
			)
		}
	}
	p.cancel()
}
