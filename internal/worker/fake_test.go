package worker

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mfadel/brontes/internal/model"
)

// fakeAPI is a scriptable remote.API for runtime tests. The zero value
// returns empty polls and accepts every lease extension and report.
type fakeAPI struct {
	mu       sync.Mutex
	pollFn   func(taskType string, maxItems int) ([]model.WorkItem, error)
	leaseFn  func(itemID string) error
	reportFn func(itemID string, outcome model.Outcome) error

	pollCalls      int
	leaseCalls     int
	reportAttempts int
	reportCalls    []reportCall
}

type reportCall struct {
	itemID  string
	outcome model.Outcome
}

func (f *fakeAPI) Poll(_ context.Context, taskType string, maxItems int, _ time.Duration) ([]model.WorkItem, error) {
	f.mu.Lock()
	f.pollCalls++
	fn := f.pollFn
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(taskType, maxItems)
}

func (f *fakeAPI) ExtendLease(_ context.Context, itemID, _ string) error {
	f.mu.Lock()
	f.leaseCalls++
	fn := f.leaseFn
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(itemID)
}

func (f *fakeAPI) Report(_ context.Context, itemID string, outcome model.Outcome) error {
	f.mu.Lock()
	f.reportAttempts++
	fn := f.reportFn
	f.mu.Unlock()
	if fn != nil {
		if err := fn(itemID, outcome); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.reportCalls = append(f.reportCalls, reportCall{itemID: itemID, outcome: outcome})
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) setPollFn(fn func(taskType string, maxItems int) ([]model.WorkItem, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollFn = fn
}

func (f *fakeAPI) setLeaseFn(fn func(itemID string) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaseFn = fn
}

func (f *fakeAPI) setReportFn(fn func(itemID string, outcome model.Outcome) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reportFn = fn
}

func (f *fakeAPI) polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pollCalls
}

func (f *fakeAPI) attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reportAttempts
}

func (f *fakeAPI) leases() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.leaseCalls
}

// reports returns a copy of the recorded successful report calls.
func (f *fakeAPI) reports() []reportCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]reportCall, len(f.reportCalls))
	copy(out, f.reportCalls)
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// waitFor polls cond until it returns true or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

func makeItem(id, taskType string) model.WorkItem {
	return model.WorkItem{
		ID:         id,
		TaskType:   taskType,
		Input:      map[string]any{"n": 1},
		LeaseToken: "lease-" + id,
		ClaimedAt:  time.Now().UTC(),
	}
}
