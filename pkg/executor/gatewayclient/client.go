// Package gatewayclient is the executor's HTTP client for the gateway
// API (spec.md §4.5): fetch pipeline, post heartbeat, post result.
// Built directly on net/http with a bearer token, the same choice and
// for the same reason as pkg/mediator/auth.HTTPAuthenticator: none of
// the example repos reach for an HTTP client library for a handful of
// plain JSON/bytes calls over a single outbound endpoint.
package gatewayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/netunicorn/netunicorn/pkg/domain"
)

// ErrNotFound is returned by GetPipeline when the gateway answers 404:
// spec.md §4.6 step 1 treats this, after the retry ceiling, as a
// terminal transport error.
var ErrNotFound = fmt.Errorf("gateway: executor or pipeline not found")

type Client struct {
	Endpoint   string
	ExecutorID string
	Token      string
	HTTP       *http.Client
}

func New(endpoint, executorID, token string) *Client {
	return &Client{Endpoint: endpoint, ExecutorID: executorID, Token: token, HTTP: http.DefaultClient}
}

func (c *Client) client() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.Token)
	return c.client().Do(req)
}

// GetPipeline fetches the serialized pipeline for this executor. A 404
// response is reported as ErrNotFound; any other non-2xx status is a
// plain transport error, both retried by the caller per spec.md §4.6.
func (c *Client) GetPipeline(ctx context.Context) (domain.Pipeline, error) {
	url := fmt.Sprintf("%s/pipeline/%s", c.Endpoint, c.ExecutorID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Pipeline{}, err
	}

	resp, err := c.do(req)
	if err != nil {
		return domain.Pipeline{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Pipeline{}, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Pipeline{}, fmt.Errorf("gateway: pipeline fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Pipeline{}, err
	}

	var p domain.Pipeline
	if err := json.Unmarshal(body, &p); err != nil {
		return domain.Pipeline{}, fmt.Errorf("gateway: decoding pipeline: %w", err)
	}
	return p, nil
}

// Heartbeat posts the executor's current state. Failures are the
// caller's to log and ignore (spec.md §4.6 step 2: the processor, not
// the executor, is authoritative on liveness).
func (c *Client) Heartbeat(ctx context.Context, state domain.ExecutorState) error {
	url := fmt.Sprintf("%s/heartbeat/%s", c.Endpoint, c.ExecutorID)
	body, err := json.Marshal(struct {
		State string `json:"state"`
	}{State: string(state)})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("gateway: heartbeat returned status %d", resp.StatusCode)
	}
	return nil
}

// PostResult submits the final serialized result bundle. Idempotent on
// the gateway side (the first submission wins), which lets the executor
// retry it after a failed attempt.
func (c *Client) PostResult(ctx context.Context, body []byte) error {
	url := fmt.Sprintf("%s/result/%s", c.Endpoint, c.ExecutorID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("gateway: result submission returned status %d", resp.StatusCode)
	}
	return nil
}
