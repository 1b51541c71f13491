package model

import "time"

// Outcome status constants.
const (
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusInProgress = "in_progress"
)

// Outcome is the result of executing a work item's handler. Exactly one of
// the three statuses applies: completed with an output mapping, failed with a
// reason and a retryable flag, or in-progress asking the server to re-queue
// the item after ResumeAfter.
type Outcome struct {
	Status      string         `json:"status"`
	Output      map[string]any `json:"output,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	Retryable   bool           `json:"retryable,omitempty"`
	ResumeAfter time.Duration  `json:"-"`
}

// Completed builds a successful outcome carrying the handler's output mapping.
func Completed(output map[string]any) Outcome {
	return Outcome{Status: StatusCompleted, Output: output}
}

// FailedRetryable builds a failure outcome the server may reschedule
// according to its own retry policy.
func FailedRetryable(reason string) Outcome {
	return Outcome{Status: StatusFailed, Reason: reason, Retryable: true}
}

// FailedFatal builds a terminal failure outcome. The server makes no
// further attempts.
func FailedFatal(reason string) Outcome {
	return Outcome{Status: StatusFailed, Reason: reason}
}

// InProgress builds an outcome asking the server to re-queue the item with a
// delay rather than finalize it. Partial output is preserved.
func InProgress(partial map[string]any, resumeAfter time.Duration) Outcome {
	return Outcome{Status: StatusInProgress, Output: partial, ResumeAfter: resumeAfter}
}

// Terminal reports whether the outcome finalizes the work item on the server.
func (o Outcome) Terminal() bool {
	return o.Status != StatusInProgress
}
