package model

import "time"

// PoolState is a point-in-time snapshot of one task type's poller/pool pair.
// Counters are mutated only by the owning poller and dispatcher; the
// supervisor reads snapshots for health reporting.
type PoolState struct {
	TaskType              string    `json:"task_type"`
	Active                int       `json:"active"`
	Queued                int       `json:"queued"`
	LastPollAt            time.Time `json:"last_poll_at"`
	ConsecutivePollErrors int       `json:"consecutive_poll_errors"`
	LeaseAtRisk           int       `json:"lease_at_risk"`
}
