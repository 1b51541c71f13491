package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mfadel/brontes/internal/model"
)

// DefaultPollTimeout is the long-poll budget used when a spec does not set one.
const DefaultPollTimeout = 30 * time.Second

// ErrInvalidSpec is wrapped by all registration-time validation failures.
var ErrInvalidSpec = errors.New("invalid executor spec")

// Handler executes one work item. It receives the item's input via the item
// and returns the execution outcome. A non-nil error, like a panic, is
// classified at the slot boundary as a fatal (non-retryable) failure carrying
// the message. The context is the pool's execution context: it is cancelled
// only once the shutdown grace period has elapsed.
type Handler func(ctx context.Context, item *model.WorkItem) (model.Outcome, error)

// Spec describes a task executor: the handler plus its execution metadata.
// TaskType uniquely identifies a spec in the registry; registering the same
// task type again replaces the prior spec entirely.
type Spec struct {
	TaskType            string
	Handler             Handler
	Concurrency         int
	PollInterval        time.Duration
	PollTimeout         time.Duration
	LeaseExtendEnabled  bool
	LeaseExtendInterval time.Duration
}

func (s Spec) validate() error {
	if s.TaskType == "" {
		return fmt.Errorf("%w: task type is required", ErrInvalidSpec)
	}
	if s.Handler == nil {
		return fmt.Errorf("%w: handler is required for task type %q", ErrInvalidSpec, s.TaskType)
	}
	if s.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1 for task type %q", ErrInvalidSpec, s.TaskType)
	}
	if s.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive for task type %q", ErrInvalidSpec, s.TaskType)
	}
	if s.PollTimeout < 0 {
		return fmt.Errorf("%w: poll timeout must not be negative for task type %q", ErrInvalidSpec, s.TaskType)
	}
	if s.LeaseExtendEnabled && s.LeaseExtendInterval <= 0 {
		return fmt.Errorf("%w: lease extend interval must be positive for task type %q", ErrInvalidSpec, s.TaskType)
	}
	return nil
}

// normalized returns a copy with defaults applied.
func (s Spec) normalized() Spec {
	if s.PollTimeout == 0 {
		s.PollTimeout = DefaultPollTimeout
	}
	return s
}
