// Package client is the dagnet SDK: a thin HTTP wrapper over the compile
// service with retry on transient failures.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gjbm2/dagnet-sub000/pkg/api"
	"github.com/gjbm2/dagnet-sub000/pkg/funnel"
	"github.com/gjbm2/dagnet-sub000/pkg/graph"
	"github.com/gjbm2/dagnet-sub000/pkg/store"
)

// Client is the dagnet SDK client.
type Client struct {
	endpoint string
	http     *http.Client
	backoff  BackoffStrategy
	retries  int
}

// NewClient creates a new dagnet client.
// endpoint defaults to "http://127.0.0.1:8090" if empty.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = "http://127.0.0.1:8090"
	}
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		backoff: DefaultBackoff(),
		retries: 3,
	}
}

// Compile asks the daemon to compile one anchor edge. Compilation is
// pure, so transient failures are retried.
func (c *Client) Compile(ctx context.Context, req api.CompileRequest) (*funnel.CompileResult, error) {
	if req.From == "" || req.To == "" {
		return nil, fmt.Errorf("invalid request: missing from/to")
	}
	if req.Graph == "" && req.GraphInline == nil {
		return nil, fmt.Errorf("invalid request: missing graph")
	}

	var result funnel.CompileResult
	if err := c.postJSON(ctx, "/v1/compile", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PutGraph stores a new version of a named graph.
func (c *Client) PutGraph(ctx context.Context, name string, g *graph.Graph) (int, error) {
	if name == "" || g == nil {
		return 0, fmt.Errorf("invalid request: missing name or graph")
	}
	var resp api.PutGraphResponse
	if err := c.postJSON(ctx, "/v1/graphs", api.PutGraphRequest{Name: name, Graph: g}, &resp); err != nil {
		return 0, err
	}
	return resp.Version, nil
}

// DeleteGraph removes every stored version of a named graph.
func (c *Client) DeleteGraph(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("invalid request: missing name")
	}
	var resp map[string]any
	return c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint+"/v1/graphs/"+name, nil)
	}, &resp)
}

// ListGraphs returns the catalog listing.
func (c *Client) ListGraphs(ctx context.Context) ([]store.GraphInfo, error) {
	var infos []store.GraphInfo
	if err := c.getJSON(ctx, "/v1/graphs", &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// ListCompilations returns audit rows, newest first.
func (c *Client) ListCompilations(ctx context.Context, graphName string, limit int) ([]store.CompilationEvent, error) {
	path := "/v1/compilations"
	sep := "?"
	if graphName != "" {
		path += sep + "graph=" + graphName
		sep = "&"
	}
	if limit > 0 {
		path += fmt.Sprintf("%slimit=%d", sep, limit)
	}
	var events []store.CompilationEvent
	if err := c.getJSON(ctx, path, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Ping checks the health of the daemon.
func (c *Client) Ping(ctx context.Context) (Status, error) {
	var status Status
	if err := c.getJSON(ctx, "/v1/health", &status); err != nil {
		return Status{}, err
	}
	return status, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	}, out)
}

// do issues the request, retrying network errors and 5xx responses with
// the configured backoff. 4xx responses surface immediately.
func (c *Client) do(ctx context.Context, build func() (*http.Request, error), out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff.Next(attempt - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := build()
		if err != nil {
			return err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("upstream error: status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			var apiErr struct {
				Error string `json:"error"`
			}
			_ = json.NewDecoder(resp.Body).Decode(&apiErr)
			resp.Body.Close()
			if apiErr.Error != "" {
				return fmt.Errorf("request failed: %s (status %d)", apiErr.Error, resp.StatusCode)
			}
			return fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}
	return lastErr
}
