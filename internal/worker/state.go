package worker

import (
	"sync/atomic"
	"time"

	"github.com/mfadel/brontes/internal/model"
)

// poolState holds the live counters behind a model.PoolState snapshot.
// Counters are mutated only by the owning poller/dispatcher pair; the
// supervisor takes snapshots for health reporting.
type poolState struct {
	taskType    string
	active      atomic.Int32
	queued      atomic.Int32
	lastPollAt  atomic.Int64 // unix nanoseconds, 0 = never polled
	pollErrors  atomic.Int32
	leaseAtRisk atomic.Int32
}

func newPoolState(taskType string) *poolState {
	return &poolState{taskType: taskType}
}

func (s *poolState) snapshot() model.PoolState {
	st := model.PoolState{
		TaskType:              s.taskType,
		Active:                int(s.active.Load()),
		Queued:                int(s.queued.Load()),
		ConsecutivePollErrors: int(s.pollErrors.Load()),
		LeaseAtRisk:           int(s.leaseAtRisk.Load()),
	}
	if ns := s.lastPollAt.Load(); ns > 0 {
		st.LastPollAt = time.Unix(0, ns).UTC()
	}
	return st
}
