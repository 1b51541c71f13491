// brontes-testserver runs a minimal in-memory orchestration server for
// exercising the worker end to end. It seeds a batch of echo and sleep tasks,
// hands them out over the poll endpoint, and logs lease renewals and results.
// Usage: go run ./cmd/brontes-testserver
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mfadel/brontes/internal/model"
)

// taskQueue hands out seeded work items per task type and records reported
// results. Leases are accepted but never expired; this server exists to
// exercise the worker, not to enforce orchestration semantics.
type taskQueue struct {
	mu      sync.Mutex
	pending map[string][]model.WorkItem
	results map[string]reportBody
	logger  *slog.Logger
}

func newTaskQueue(logger *slog.Logger) *taskQueue {
	return &taskQueue{
		pending: make(map[string][]model.WorkItem),
		results: make(map[string]reportBody),
		logger:  logger,
	}
}

func (q *taskQueue) seed(taskType string, n int, input map[string]any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := 0; i < n; i++ {
		q.pending[taskType] = append(q.pending[taskType], model.WorkItem{
			ID:         model.NewID(),
			TaskType:   taskType,
			Input:      input,
			LeaseToken: model.NewID(),
		})
	}
}

func (q *taskQueue) take(taskType string, count int) []model.WorkItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.pending[taskType]
	if count > len(items) {
		count = len(items)
	}
	out := items[:count]
	q.pending[taskType] = items[count:]
	return out
}

func (q *taskQueue) record(itemID string, res reportBody) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.results[itemID] = res
	q.logger.Info("result recorded",
		"item_id", itemID,
		"status", res.Status,
		"worker_id", res.WorkerID,
		"total_results", len(q.results),
	)
}

// reportBody matches the worker's result wire format.
type reportBody struct {
	Status    string         `json:"status"`
	Output    map[string]any `json:"output"`
	Reason    string         `json:"reason"`
	Retryable bool           `json:"retryable"`
	WorkerID  string         `json:"worker_id"`
}

func main() {
	addr := ":8089"
	if v := os.Getenv("BRONTES_TESTSERVER_ADDR"); v != "" {
		addr = v
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	queue := newTaskQueue(logger)
	queue.seed("echo", 20, map[string]any{"message": "hello"})
	queue.seed("sleep", 5, map[string]any{"duration_ms": float64(2000)})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/api/tasks/poll/batch/{taskType}", func(w http.ResponseWriter, r *http.Request) {
		taskType := chi.URLParam(r, "taskType")
		count := 1
		if v := r.URL.Query().Get("count"); v != "" {
			fmt.Sscanf(v, "%d", &count)
		}
		items := queue.take(taskType, count)
		if len(items) > 0 {
			logger.Info("handing out items", "task_type", taskType, "count", len(items))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(items)
	})

	r.Post("/api/tasks/{itemID}/lease", func(w http.ResponseWriter, r *http.Request) {
		logger.Info("lease extended", "item_id", chi.URLParam(r, "itemID"))
		w.WriteHeader(http.StatusOK)
	})

	r.Post("/api/tasks/{itemID}/result", func(w http.ResponseWriter, r *http.Request) {
		var res reportBody
		if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		queue.record(chi.URLParam(r, "itemID"), res)
		w.WriteHeader(http.StatusOK)
	})

	logger.Info("testserver: starting", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
