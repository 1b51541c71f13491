package model

import "time"

// WorkItem is a single unit of work claimed from the orchestration server.
// From claim until report the item is owned exclusively by the dispatcher
// slot executing it; ownership transfers to the result reporter at report
// time, after which the item is discarded.
type WorkItem struct {
	ID         string         `json:"id"`
	TaskType   string         `json:"task_type"`
	Input      map[string]any `json:"input"`
	LeaseToken string         `json:"lease_token"`
	ClaimedAt  time.Time      `json:"claimed_at"`
}
