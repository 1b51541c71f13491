// Package store persists reports the worker gave up delivering. The server
// reschedules those items once their lease expires; the journal exists so an
// operator can see what was dropped and why.
package store

import (
	"context"
	"time"
)

// DroppedReport records one execution outcome that exhausted its delivery
// retries. Output holds the handler's JSON-encoded output, if any.
type DroppedReport struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	TaskType  string    `json:"task_type"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	Output    []byte    `json:"output,omitempty"`
	Attempts  int       `json:"attempts"`
	DroppedAt time.Time `json:"dropped_at"`
}

// Journal defines the persistence operations for dropped reports.
type Journal interface {
	Append(ctx context.Context, r *DroppedReport) error
	List(ctx context.Context, limit, offset int) ([]*DroppedReport, int, error)
	Close() error
}
