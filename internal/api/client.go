package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/banshee-data/pathing/internal/httputil"
	"github.com/banshee-data/pathing/internal/optimizer"
	"github.com/banshee-data/pathing/internal/plan"
	"github.com/banshee-data/pathing/internal/store"
)

// Client talks to a running pathing server.
type Client struct {
	base string
	http httputil.HTTPClient
}

// NewClient returns a client for baseURL, e.g. "http://localhost:8080".
// A nil c uses http.DefaultClient.
func NewClient(baseURL string, c httputil.HTTPClient) *Client {
	if c == nil {
		c = httputil.NewStandardClient(nil)
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: c}
}

// StatusError is a non-2xx reply.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		serr := &StatusError{StatusCode: resp.StatusCode, Message: e.Error}
		if resp.StatusCode == http.StatusNotFound && strings.HasPrefix(path, "/api/runs/") {
			return fmt.Errorf("%w: %w", store.ErrRunNotFound, serr)
		}
		return serr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s reply: %w", path, err)
	}
	return nil
}

// StartOptimize starts a run on the server. cfg may be nil to use the
// server defaults; replace abandons a run already in progress.
func (c *Client) StartOptimize(ctx context.Context, project plan.Project, cfg *optimizer.Config, replace bool) (string, error) {
	p, err := json.Marshal(project)
	if err != nil {
		return "", err
	}
	req := OptimizeRequest{Project: p}
	if cfg != nil {
		if req.Config, err = json.Marshal(cfg); err != nil {
			return "", err
		}
	}
	path := "/api/optimize"
	if replace {
		path += "?replace=true"
	}
	var out OptimizeStarted
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return "", err
	}
	return out.RunID, nil
}

// OptimizeState returns the server's optimizer state.
func (c *Client) OptimizeState(ctx context.Context) (optimizer.State, error) {
	var st optimizer.State
	err := c.do(ctx, http.MethodGet, "/api/optimize", nil, &st)
	return st, err
}

// StopOptimize cancels the current run.
func (c *Client) StopOptimize(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/optimize/stop", nil, nil)
}

// ListRuns returns stored runs, newest first. limit <= 0 uses the server
// default.
func (c *Client) ListRuns(ctx context.Context, limit int) ([]store.RunRecord, error) {
	path := "/api/runs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var runs []store.RunRecord
	err := c.do(ctx, http.MethodGet, path, nil, &runs)
	return runs, err
}

// GetRun returns one stored run. Unknown IDs wrap store.ErrRunNotFound.
func (c *Client) GetRun(ctx context.Context, runID string) (store.RunRecord, error) {
	var run store.RunRecord
	err := c.do(ctx, http.MethodGet, "/api/runs/"+url.PathEscape(runID), nil, &run)
	return run, err
}
