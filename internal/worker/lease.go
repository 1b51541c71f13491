package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mfadel/brontes/internal/model"
	"github.com/mfadel/brontes/internal/remote"
)

// leaseAtRiskThreshold is the number of consecutive renewal failures after
// which an item is marked lease_at_risk in the pool state.
const leaseAtRiskThreshold = 3

// leaseManager periodically renews the server-side claim on in-flight work
// items so they are not redistributed to another client. Renewal failures
// never interrupt the handler; at worst the final report fails and the
// reporter's classification takes over.
type leaseManager struct {
	api      remote.API
	taskType string
	interval time.Duration
	state    *poolState
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newLeaseManager(api remote.API, taskType string, interval time.Duration, state *poolState, logger *slog.Logger) *leaseManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &leaseManager{
		api:      api,
		taskType: taskType,
		interval: interval,
		state:    state,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// track starts periodic renewal for an in-flight item. The returned stop
// function must be called when execution finishes; it is safe to call more
// than once.
func (m *leaseManager) track(item model.WorkItem) (stop func()) {
	ctx, cancel := context.WithCancel(m.ctx)
	m.wg.Add(1)
	go m.renewLoop(ctx, item)
	return cancel
}

func (m *leaseManager) renewLoop(ctx context.Context, item model.WorkItem) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	failures := 0
	atRisk := false
	defer func() {
		if atRisk {
			m.state.leaseAtRisk.Add(-1)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := m.api.ExtendLease(ctx, item.ID, item.LeaseToken); err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			leaseExtensionsTotal.WithLabelValues(m.taskType, "error").Inc()
			m.logger.Warn("lease extension failed",
				"task_type", m.taskType,
				"item_id", item.ID,
				"consecutive_failures", failures,
				"error", err,
			)
			if failures >= leaseAtRiskThreshold && !atRisk {
				atRisk = true
				m.state.leaseAtRisk.Add(1)
				m.logger.Warn("lease at risk, execution continues",
					"task_type", m.taskType,
					"item_id", item.ID,
				)
			}
			continue
		}

		leaseExtensionsTotal.WithLabelValues(m.taskType, "ok").Inc()
		failures = 0
		if atRisk {
			atRisk = false
			m.state.leaseAtRisk.Add(-1)
		}
	}
}

// stop cancels all renewal loops and waits for them to exit.
func (m *leaseManager) stop() {
	m.cancel()
	m.wg.Wait()
}
