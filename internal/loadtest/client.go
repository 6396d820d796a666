package loadtest

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
	"time"

	"github.com/okian/scool/internal/domain/types"
)

const maxErrorBody = 512

// Client talks to the SCool HTTP API.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for baseURL with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// SubmitResult is the body of a successful POST /api/score.
type SubmitResult struct {
	Success bool  `json:"success"`
	Rank    int   `json:"rank"`
	Score   int64 `json:"score"`
}

// Submit posts one score.
func (c *Client) Submit(ctx context.Context, username, name string, score int64) (SubmitResult, error) {
	body, err := json.Marshal(map[string]any{"username": username, "name": name, "score": score})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("marshal submission: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/score", bytes.NewReader(body))
	if err != nil {
		return SubmitResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out SubmitResult
	if err := c.do(req, &out); err != nil {
		return SubmitResult{}, err
	}
	return out, nil
}

// Standings fetches up to limit entries.
func (c *Client) Standings(ctx context.Context, limit int) ([]types.Entry, error) {
	u := c.base + "/api/leaderboard"
	if limit > 0 {
		u += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	var out []types.Entry
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health fetches /health.
func (c *Client) Health(ctx context.Context) (types.Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/health", http.NoBody)
	if err != nil {
		return types.Health{}, fmt.Errorf("create request: %w", err)
	}
	var out types.Health
	if err := c.do(req, &out); err != nil {
		return types.Health{}, err
	}
	return out, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}
