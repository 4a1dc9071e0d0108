package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"concierge/internal/api"
)

// ErrStopWatching may be returned by a watch callback to end the watch early
// without an error.
var ErrStopWatching = errors.New("stop watching")

// Watch follows a queue over the websocket route and calls fn for every
// pushed state. It returns nil once the daemon closes the stream after the
// queue completes.
func (c *Client) Watch(ctx context.Context, id string, fn func(api.QueueState) error) error {
	target, err := url.Parse(c.baseURL + "/queue/" + url.PathEscape(id) + "/ws")
	if err != nil {
		return fmt.Errorf("build websocket url: %w", err)
	}
	switch target.Scheme {
	case "https":
		target.Scheme = "wss"
	default:
		target.Scheme = "ws"
	}
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target.String(), header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			if apiErr := checkResponse(resp); apiErr != nil {
				return apiErr
			}
		}
		return fmt.Errorf("dial websocket: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var state api.QueueState
		if err := conn.ReadJSON(&state); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read websocket: %w", err)
		}
		if err := fn(state); err != nil {
			if errors.Is(err, ErrStopWatching) {
				return nil
			}
			return err
		}
	}
}

// Stream follows a queue over Server-Sent Events. It behaves like Watch and
// suits proxies that do not pass websocket upgrades.
func (c *Client) Stream(ctx context.Context, id string, fn func(api.QueueState) error) error {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/queue/"+url.PathEscape(id)+"/stream", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// The unary client timeout would cut the stream short.
	streamClient := &http.Client{Transport: c.http.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()
	if err := checkResponse(resp); err != nil {
		return err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var state api.QueueState
		if err := json.Unmarshal([]byte(data), &state); err != nil {
			return fmt.Errorf("decode stream event: %w", err)
		}
		if err := fn(state); err != nil {
			if errors.Is(err, ErrStopWatching) {
				return nil
			}
			return err
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return ctx.Err()
}
