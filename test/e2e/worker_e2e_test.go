// Package e2e exercises the full worker loop against a real HTTP server:
// poll over the wire, execute, extend leases, and report results. The server
// here is an in-process httptest instance implementing the orchestration REST
// surface; everything on the worker side is the production stack.
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mfadel/brontes/internal/model"
	"github.com/mfadel/brontes/internal/remote"
	"github.com/mfadel/brontes/internal/worker"
)

const (
	waitTimeout  = 5 * time.Second
	waitInterval = 10 * time.Millisecond
)

// orchestrator is an in-memory task server for end-to-end tests.
type orchestrator struct {
	mu      sync.Mutex
	pending map[string][]model.WorkItem
	results map[string]string
	leases  map[string]int
}

func newOrchestrator() *orchestrator {
	return &orchestrator{
		pending: make(map[string][]model.WorkItem),
		results: make(map[string]string),
		leases:  make(map[string]int),
	}
}

func (o *orchestrator) seed(taskType string, items ...model.WorkItem) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending[taskType] = append(o.pending[taskType], items...)
}

func (o *orchestrator) take(taskType string, count int) []model.WorkItem {
	o.mu.Lock()
	defer o.mu.Unlock()
	items := o.pending[taskType]
	if count > len(items) {
		count = len(items)
	}
	out := items[:count]
	o.pending[taskType] = items[count:]
	return out
}

func (o *orchestrator) recordResult(itemID, status string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results[itemID] = status
}

func (o *orchestrator) recordLease(itemID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.leases[itemID]++
}

func (o *orchestrator) resultCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.results)
}

func (o *orchestrator) result(itemID string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.results[itemID]
}

func (o *orchestrator) leaseCount(itemID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.leases[itemID]
}

func (o *orchestrator) handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/api/tasks/poll/batch/{taskType}", func(w http.ResponseWriter, r *http.Request) {
		count, _ := strconv.Atoi(r.URL.Query().Get("count"))
		if count <= 0 {
			count = 1
		}
		items := o.take(chi.URLParam(r, "taskType"), count)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(items)
	})

	r.Post("/api/tasks/{itemID}/lease", func(w http.ResponseWriter, r *http.Request) {
		o.recordLease(chi.URLParam(r, "itemID"))
		w.WriteHeader(http.StatusOK)
	})

	r.Post("/api/tasks/{itemID}/result", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		o.recordResult(chi.URLParam(r, "itemID"), body.Status)
		w.WriteHeader(http.StatusOK)
	})

	return r
}

func makeItems(taskType string, n int) []model.WorkItem {
	items := make([]model.WorkItem, n)
	for i := range items {
		items[i] = model.WorkItem{
			ID:         fmt.Sprintf("%s-%d", taskType, i),
			TaskType:   taskType,
			Input:      map[string]any{"seq": float64(i)},
			LeaseToken: model.NewID(),
		}
	}
	return items
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(waitInterval)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestWorkerProcessesTasksEndToEnd(t *testing.T) {
	orch := newOrchestrator()
	orch.seed("email", makeItems("email", 8)...)

	ts := httptest.NewServer(orch.handler())
	defer ts.Close()

	client := remote.NewHTTPClient(ts.URL, "", model.NewID(), testLogger())
	sup := worker.NewSupervisor(client, worker.Options{MaxPollBatch: 4}, testLogger())

	err := sup.Register(worker.Spec{
		TaskType: "email",
		Handler: func(_ context.Context, item *model.WorkItem) (model.Outcome, error) {
			return model.Completed(map[string]any{"sent": true}), nil
		},
		Concurrency:  2,
		PollInterval: 20 * time.Millisecond,
		PollTimeout:  100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := sup.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sup.Stop(time.Second)

	waitFor(t, func() bool { return orch.resultCount() == 8 }, "all 8 results")

	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("email-%d", i)
		if got := orch.result(id); got != model.StatusCompleted {
			t.Errorf("result[%s] = %q, want %q", id, got, model.StatusCompleted)
		}
	}
}

func TestWorkerReportsFailureOverTheWire(t *testing.T) {
	orch := newOrchestrator()
	orch.seed("email", makeItems("email", 1)...)

	ts := httptest.NewServer(orch.handler())
	defer ts.Close()

	client := remote.NewHTTPClient(ts.URL, "", model.NewID(), testLogger())
	sup := worker.NewSupervisor(client, worker.Options{}, testLogger())

	err := sup.Register(worker.Spec{
		TaskType: "email",
		Handler: func(context.Context, *model.WorkItem) (model.Outcome, error) {
			panic("smtp client not initialized")
		},
		Concurrency:  1,
		PollInterval: 20 * time.Millisecond,
		PollTimeout:  100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := sup.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sup.Stop(time.Second)

	waitFor(t, func() bool { return orch.resultCount() == 1 }, "panic outcome reported")

	if got := orch.result("email-0"); got != model.StatusFailed {
		t.Errorf("result = %q, want %q", got, model.StatusFailed)
	}
}

func TestWorkerExtendsLeaseDuringLongExecution(t *testing.T) {
	orch := newOrchestrator()
	orch.seed("transcode", makeItems("transcode", 1)...)

	ts := httptest.NewServer(orch.handler())
	defer ts.Close()

	client := remote.NewHTTPClient(ts.URL, "", model.NewID(), testLogger())
	sup := worker.NewSupervisor(client, worker.Options{}, testLogger())

	release := make(chan struct{})
	err := sup.Register(worker.Spec{
		TaskType: "transcode",
		Handler: func(ctx context.Context, _ *model.WorkItem) (model.Outcome, error) {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return model.Completed(nil), nil
		},
		Concurrency:         1,
		PollInterval:        20 * time.Millisecond,
		PollTimeout:         100 * time.Millisecond,
		LeaseExtendEnabled:  true,
		LeaseExtendInterval: 25 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := sup.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sup.Stop(time.Second)

	waitFor(t, func() bool { return orch.leaseCount("transcode-0") >= 2 }, "lease renewals")
	close(release)
	waitFor(t, func() bool { return orch.resultCount() == 1 }, "result after release")
}
