package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"concierge/internal/api"
)

const defaultTimeout = 10 * time.Second

// Client talks to the concierge daemon's HTTP control surface.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for unary requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// New returns a client for the daemon at baseURL, for example
// "http://127.0.0.1:7487".
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("api url %q must use http or https", baseURL)
	}
	c := &Client{
		baseURL: parsed.String(),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// APIError is a non-2xx reply from the daemon.
type APIError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.StatusCode, e.Kind)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the daemon.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsUnavailable reports whether err means no daemon is listening.
func IsUnavailable(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENOENT)
}

// Status returns the daemon status.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var resp api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp)
	return resp, err
}

// StartQueue creates a queue over explicit guest ids.
func (c *Client) StartQueue(ctx context.Context, req api.StartRequest) (api.StartResponse, error) {
	var resp api.StartResponse
	err := c.do(ctx, http.MethodPost, "/queue/start", req, &resp)
	return resp, err
}

// StartPending creates a queue over every guest lacking a result.
func (c *Client) StartPending(ctx context.Context, req api.StartPendingRequest) (api.StartResponse, error) {
	var resp api.StartResponse
	err := c.do(ctx, http.MethodPost, "/queue/start-pending", req, &resp)
	return resp, err
}

// Active returns the active queue, if any.
func (c *Client) Active(ctx context.Context) (api.ActiveResponse, error) {
	var resp api.ActiveResponse
	err := c.do(ctx, http.MethodGet, "/queue/active", nil, &resp)
	return resp, err
}

// Queue returns the live state of one queue.
func (c *Client) Queue(ctx context.Context, id string) (api.QueueState, error) {
	var resp api.QueueState
	err := c.do(ctx, http.MethodGet, "/queue/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// Control applies pause, resume, stop or skip to a queue.
func (c *Client) Control(ctx context.Context, id string, action api.Action) (api.ControlResponse, error) {
	var resp api.ControlResponse
	path := "/queue/" + url.PathEscape(id) + "/" + string(action)
	err := c.do(ctx, http.MethodPost, path, nil, &resp)
	return resp, err
}

// ListQueues returns recent queue checkpoints, most recent first.
func (c *Client) ListQueues(ctx context.Context, limit int) (api.QueueListResponse, error) {
	var resp api.QueueListResponse
	path := "/queues"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp, err
}

// PruneQueues deletes stopped and completed queues older than the given
// number of days.
func (c *Client) PruneQueues(ctx context.Context, olderThanDays int) (api.PruneResponse, error) {
	var resp api.PruneResponse
	err := c.do(ctx, http.MethodPost, "/queues/prune", api.PruneRequest{OlderThanDays: olderThanDays}, &resp)
	return resp, err
}

// ClearResult removes a guest's result so a later run researches it again.
func (c *Client) ClearResult(ctx context.Context, guestID int64) (api.ClearResultResponse, error) {
	var resp api.ClearResultResponse
	err := c.do(ctx, http.MethodDelete, "/results/"+strconv.FormatInt(guestID, 10), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := c.newRequest(ctx, method, c.baseURL+path, reader)
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
	if err := checkResponse(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload api.ErrorResponse
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		apiErr.Kind = payload.Kind
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}
