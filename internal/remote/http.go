package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mfadel/brontes/internal/model"
)

const (
	// pollSlack is added on top of the server-side long-poll budget so the
	// HTTP request does not race the server's own timeout.
	pollSlack = 5 * time.Second

	callTimeout = 10 * time.Second

	headerWorkerID = "X-Worker-Id"
)

// HTTPClient implements API against the orchestration server's REST surface.
type HTTPClient struct {
	baseURL  string
	token    string
	workerID string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPClient creates a REST client for the server at baseURL. token may be
// empty for unauthenticated servers; workerID identifies this process in
// server-side claim records.
func NewHTTPClient(baseURL, token, workerID string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:  baseURL,
		token:    token,
		workerID: workerID,
		client:   &http.Client{},
		logger:   logger,
	}
}

// Poll implements API.Poll via GET /api/tasks/poll/batch/{taskType}.
func (c *HTTPClient) Poll(ctx context.Context, taskType string, maxItems int, timeout time.Duration) ([]model.WorkItem, error) {
	q := url.Values{}
	q.Set("count", fmt.Sprintf("%d", maxItems))
	q.Set("timeout", fmt.Sprintf("%d", timeout.Milliseconds()))
	endpoint := fmt.Sprintf("%s/api/tasks/poll/batch/%s?%s", c.baseURL, url.PathEscape(taskType), q.Encode())

	ctx, cancel := context.WithTimeout(ctx, timeout+pollSlack)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &PollError{TaskType: taskType, Err: err}
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &PollError{TaskType: taskType, Err: err}
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &PollError{TaskType: taskType, Err: fmt.Errorf("server returned %s", resp.Status)}
	}

	var items []model.WorkItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, &PollError{TaskType: taskType, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(items) > 0 {
		c.logger.Debug("polled work items", "task_type", taskType, "count", len(items))
	}
	return items, nil
}

type extendLeaseRequest struct {
	LeaseToken string `json:"lease_token"`
}

// ExtendLease implements API.ExtendLease via POST /api/tasks/{id}/lease.
func (c *HTTPClient) ExtendLease(ctx context.Context, itemID, leaseToken string) error {
	endpoint := fmt.Sprintf("%s/api/tasks/%s/lease", c.baseURL, url.PathEscape(itemID))

	if err := c.post(ctx, endpoint, extendLeaseRequest{LeaseToken: leaseToken}); err != nil {
		return &LeaseError{ItemID: itemID, Err: err}
	}
	return nil
}

// reportRequest is the wire form of an execution outcome.
type reportRequest struct {
	Status        string         `json:"status"`
	Output        map[string]any `json:"output,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Retryable     bool           `json:"retryable,omitempty"`
	ResumeAfterMS int64          `json:"resume_after_ms,omitempty"`
	WorkerID      string         `json:"worker_id"`
}

// Report implements API.Report via POST /api/tasks/{id}/result.
func (c *HTTPClient) Report(ctx context.Context, itemID string, outcome model.Outcome) error {
	endpoint := fmt.Sprintf("%s/api/tasks/%s/result", c.baseURL, url.PathEscape(itemID))

	body := reportRequest{
		Status:        outcome.Status,
		Output:        outcome.Output,
		Reason:        outcome.Reason,
		Retryable:     outcome.Retryable,
		ResumeAfterMS: outcome.ResumeAfter.Milliseconds(),
		WorkerID:      c.workerID,
	}
	if err := c.post(ctx, endpoint, body); err != nil {
		return &ReportError{ItemID: itemID, Err: err}
	}
	return nil
}

// post sends a JSON body and treats any non-2xx response as an error.
func (c *HTTPClient) post(ctx context.Context, endpoint string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set(headerWorkerID, c.workerID)
}

// drainAndClose consumes the remaining body so the connection can be reused.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
