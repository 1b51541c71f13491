package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mfadel/brontes/internal/model"
	"github.com/mfadel/brontes/internal/worker"
)

// stubAPI is a no-op remote.API so tests can build a real supervisor without
// a server.
type stubAPI struct{}

func (stubAPI) Poll(context.Context, string, int, time.Duration) ([]model.WorkItem, error) {
	return nil, nil
}
func (stubAPI) ExtendLease(context.Context, string, string) error   { return nil }
func (stubAPI) Report(context.Context, string, model.Outcome) error { return nil }

func newTestServer(t *testing.T) (*Server, *worker.Supervisor) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	sup := worker.NewSupervisor(stubAPI{}, worker.Options{}, logger)
	return NewServer(":0", sup, nil, logger), sup
}

func TestPanicRecovery(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.Router().Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/panic")
	if err != nil {
		t.Fatalf("GET /panic: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestCORSHeaders(t *testing.T) {
	srv, _ := newTestServer(t)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	req, _ := http.NewRequest("OPTIONS", ts.URL+"/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS /healthz: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
