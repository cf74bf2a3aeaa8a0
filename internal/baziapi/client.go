// Package baziapi implements the HTTP client for the Bazi calculation
// service. All methods are context-aware and share one rate limiter. Calls
// are made exactly once: there are no retries and failures come back as
// *CallError tagged transport, server or decode.
package baziapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/derickschaefer/bazi/internal/model"
)

const (
	PathCalculate = "/api/v1/bazi/calculate"
	PathHealth    = "/health"
	PathTimezones = "/api/v1/timezones"
)

// Endpoint locates the calculation service. It is passed to every call
// instead of living in the client so that a front end can repoint
// subsequent requests without rebuilding anything.
type Endpoint struct {
	BaseURL string // already normalized: no trailing slash
}

func (e Endpoint) url(path string, params url.Values) string {
	u := e.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// Client is the calculation API HTTP client.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	debug      bool
}

// NewClient creates a Client. A zero timeout leaves request lifetime to
// the caller's context.
func NewClient(timeout time.Duration, ratePerSec float64, debug bool) *Client {
	burst := int(ratePerSec)
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(ratePerSec)
	if ratePerSec <= 0 {
		limit = rate.Inf
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(limit, burst),
		debug:   debug,
	}
}

// ─── Calculation ──────────────────────────────────────────────────────────────

// Calculate posts a birth moment and returns the reading.
func (c *Client) Calculate(ctx context.Context, ep Endpoint, req model.Request) (*model.Reading, error) {
	var out model.Reading
	if err := c.do(ctx, http.MethodPost, ep, PathCalculate, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ─── Health ───────────────────────────────────────────────────────────────────

// Health probes GET /health. Any 2xx is healthy; the body is decoded on a
// best-effort basis and never fails the probe.
func (c *Client) Health(ctx context.Context, ep Endpoint) (*model.Health, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, ep, PathHealth, nil, nil, &raw); err != nil {
		if ce, ok := AsCallError(err); ok && ce.Kind == KindDecode {
			return &model.Health{}, nil
		}
		return nil, err
	}
	var h model.Health
	_ = json.Unmarshal(raw, &h)
	return &h, nil
}

// ─── Records ──────────────────────────────────────────────────────────────────

// GetRecord fetches one stored calculation.
func (c *Client) GetRecord(ctx context.Context, ep Endpoint, id int) (*model.Record, error) {
	var out model.Record
	if err := c.do(ctx, http.MethodGet, ep, "/api/v1/bazi/record/"+strconv.Itoa(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUserRecords lists stored calculations for one user id.
func (c *Client) ListUserRecords(ctx context.Context, ep Endpoint, userID string, skip, limit int) ([]model.Record, error) {
	var out []model.Record
	path := "/api/v1/bazi/user/" + url.PathEscape(userID)
	if err := c.do(ctx, http.MethodGet, ep, path, pageParams(skip, limit), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRecords lists all stored calculations.
func (c *Client) ListRecords(ctx context.Context, ep Endpoint, skip, limit int) ([]model.Record, error) {
	var out []model.Record
	if err := c.do(ctx, http.MethodGet, ep, "/api/v1/bazi/records", pageParams(skip, limit), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteRecord removes a stored calculation and returns the server message.
func (c *Client) DeleteRecord(ctx context.Context, ep Endpoint, id int) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodDelete, ep, "/api/v1/bazi/record/"+strconv.Itoa(id), nil, nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Timezones fetches the service's supported timezone catalog.
func (c *Client) Timezones(ctx context.Context, ep Endpoint) (*model.TimezoneCatalog, error) {
	var out model.TimezoneCatalog
	if err := c.do(ctx, http.MethodGet, ep, PathTimezones, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func pageParams(skip, limit int) url.Values {
	params := url.Values{}
	if skip > 0 {
		params.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	return params
}

// ─── Low-level HTTP ───────────────────────────────────────────────────────────

// do performs a single request. in, when non-nil, is sent as a JSON body.
func (c *Client) do(ctx context.Context, method string, ep Endpoint, path string, params url.Values, in, out interface{}) error {
	op := method + " " + path
	if err := c.limiter.Wait(ctx); err != nil {
		return &CallError{Kind: KindTransport, Op: op, Err: err}
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &CallError{Kind: KindTransport, Op: op, Err: fmt.Errorf("encoding request: %w", err)}
		}
		body = bytes.NewReader(b)
	}

	reqURL := ep.url(path, params)
	if c.debug {
		slog.Debug("bazi request", "method", method, "url", reqURL)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return &CallError{Kind: KindTransport, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "bazi-cli/1.0")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &CallError{Kind: KindTransport, Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &CallError{Kind: KindTransport, Op: op, Err: fmt.Errorf("reading body: %w", err)}
	}

	if c.debug {
		slog.Debug("bazi response", "status", resp.StatusCode, "bytes", len(raw), "elapsed", time.Since(start))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &CallError{
			Kind:   KindServer,
			Op:     op,
			Status: resp.StatusCode,
			Detail: extractDetail(raw),
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &CallError{Kind: KindDecode, Op: op, Err: err}
	}
	return nil
}
