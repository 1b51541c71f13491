package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mfadel/brontes/internal/model"
	"github.com/mfadel/brontes/internal/remote"
	"github.com/mfadel/brontes/internal/store"
)

const (
	// reportRetries bounds how many times a failed delivery is retried on
	// top of the initial attempt.
	reportRetries     = 3
	reportBackoffBase = 500 * time.Millisecond

	journalTimeout = 5 * time.Second
)

// reporter delivers execution outcomes to the server, retrying transient
// delivery failures with exponential backoff. Exhausted retries drop the
// report with a logged warning and release the item locally: the server's
// lease timeout then reschedules the item, which is the at-least-once
// recovery path. Reports are never discarded silently.
type reporter struct {
	api         remote.API
	backoffBase time.Duration
	backoffCap  time.Duration
	journal     store.Journal
	logger      *slog.Logger
}

func newReporter(api remote.API, backoffCap time.Duration, journal store.Journal, logger *slog.Logger) *reporter {
	return &reporter{
		api:         api,
		backoffBase: reportBackoffBase,
		backoffCap:  backoffCap,
		journal:     journal,
		logger:      logger,
	}
}

// report returns nil once the outcome is delivered, or the last delivery
// error after retries are exhausted or ctx is cancelled.
func (r *reporter) report(ctx context.Context, item model.WorkItem, outcome model.Outcome) error {
	b := newBackoff(r.backoffBase, r.backoffCap)

	maxAttempts := 1 + reportRetries

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := r.api.Report(ctx, item.ID, outcome)
		if err == nil {
			reportsTotal.WithLabelValues(item.TaskType, "delivered").Inc()
			return nil
		}
		lastErr = err
		r.logger.Warn("report delivery failed",
			"task_type", item.TaskType,
			"item_id", item.ID,
			"attempt", attempt,
			"error", err,
		)
		if attempt < maxAttempts {
			if !sleepCtx(ctx, b.Next()) {
				break
			}
		}
	}

	reportsTotal.WithLabelValues(item.TaskType, "dropped").Inc()
	r.logger.Error("dropping report after exhausted retries, relying on server-side lease expiry",
		"task_type", item.TaskType,
		"item_id", item.ID,
		"status", outcome.Status,
		"error", lastErr,
	)
	r.journalDrop(item, outcome, maxAttempts)
	return lastErr
}

// journalDrop persists the dropped outcome for operator inspection. Uses a
// fresh context so a shutdown-cancelled report still gets journaled.
func (r *reporter) journalDrop(item model.WorkItem, outcome model.Outcome, attempts int) {
	if r.journal == nil {
		return
	}

	var output []byte
	if outcome.Output != nil {
		output, _ = json.Marshal(outcome.Output)
	}

	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()

	err := r.journal.Append(ctx, &store.DroppedReport{
		ID:        model.NewID(),
		ItemID:    item.ID,
		TaskType:  item.TaskType,
		Status:    outcome.Status,
		Reason:    outcome.Reason,
		Output:    output,
		Attempts:  attempts,
		DroppedAt: time.Now().UTC(),
	})
	if err != nil {
		r.logger.Error("journal dropped report", "item_id", item.ID, "error", err)
	}
}
