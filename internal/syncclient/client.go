// Package syncclient is the C6 Remote Client: a stateless transporter of
// batch requests to the sync server. Errors are transport or
// protocol-level; semantic per-item outcomes are carried inside the
// decoded BatchResponse.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tasksync/tasksync/internal/sync"
)

// Client is an HTTP transport for the task-sync server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a transport pointed at baseURL (§6, API_BASE_URL).
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{},
	}
}

// CheckConnectivity probes GET /sync/health with a 5-second deadline; any
// 2xx response counts as reachable (§6).
func (c *Client) CheckConnectivity(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/sync/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// PostBatch transmits a batch with a 30-second deadline (§4.4 step 5,
// §5 cancellation). Each request carries a fresh idempotency key so a
// server replaying a timed-out request can recognize a retransmit.
func (c *Client) PostBatch(ctx context.Context, req *sync.BatchRequest) (*sync.BatchResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal batch request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/sync/batch", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create batch request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read batch response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("batch request: HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var batchResp sync.BatchResponse
	if err := json.Unmarshal(respBody, &batchResp); err != nil {
		return nil, fmt.Errorf("unmarshal batch response: %w", err)
	}
	return &batchResp, nil
}
