package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/mfadel/brontes/internal/model"
)

// API is the orchestration server capability the runtime consumes. All calls
// honor context cancellation and deadlines. Implementations must be safe for
// concurrent use by many pollers and pool slots.
type API interface {
	// Poll requests up to maxItems work items of the given task type,
	// long-polling up to timeout on the server side. An empty slice with a
	// nil error means no work is available. Failures are *PollError.
	Poll(ctx context.Context, taskType string, maxItems int, timeout time.Duration) ([]model.WorkItem, error)

	// ExtendLease renews the server-side claim on an in-flight work item.
	// Failures are *LeaseError.
	ExtendLease(ctx context.Context, itemID, leaseToken string) error

	// Report delivers the execution outcome for a work item. Failures are
	// *ReportError.
	Report(ctx context.Context, itemID string, outcome model.Outcome) error
}

// PollError wraps a network or server failure during a poll call. Pollers
// treat it as transient and back off; it never propagates further.
type PollError struct {
	TaskType string
	Err      error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("poll %s: %v", e.TaskType, e.Err)
}

func (e *PollError) Unwrap() error { return e.Err }

// LeaseError wraps a failure to extend a work item's lease. Transient:
// logged, retried on the next renewal interval, never aborts execution.
type LeaseError struct {
	ItemID string
	Err    error
}

func (e *LeaseError) Error() string {
	return fmt.Sprintf("extend lease %s: %v", e.ItemID, e.Err)
}

func (e *LeaseError) Unwrap() error { return e.Err }

// ReportError wraps a failure to deliver an execution outcome. The reporter
// retries a bounded number of times before dropping the report and relying
// on server-side lease expiry for recovery.
type ReportError struct {
	ItemID string
	Err    error
}

func (e *ReportError) Error() string {
	return fmt.Sprintf("report %s: %v", e.ItemID, e.Err)
}

func (e *ReportError) Unwrap() error { return e.Err }
