package client_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concierge/internal/api"
	"concierge/internal/client"
)

func progressStates(id string) []api.QueueState {
	return []api.QueueState{
		{QueueID: id, Status: "running", Total: 2, Completed: 0, Progress: 0},
		{QueueID: id, Status: "running", Total: 2, Completed: 1, Progress: 50},
		{QueueID: id, Status: "completed", Total: 2, Completed: 2, Progress: 100},
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /queue/start", func(w http.ResponseWriter, r *http.Request) {
		var req api.StartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.GuestIDs) == 0 {
			writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "guestIds is required", Kind: "ValidationError"})
			return
		}
		writeJSON(w, http.StatusOK, api.StartResponse{QueueID: "q-1", Total: len(req.GuestIDs), Concurrency: 3})
	})
	mux.HandleFunc("GET /queue/active", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized", Kind: "Unauthorized"})
			return
		}
		state := api.QueueState{QueueID: "q-1", Status: "paused", Total: 4, Completed: 1, Progress: 25}
		writeJSON(w, http.StatusOK, api.ActiveResponse{Active: true, QueueState: &state})
	})
	mux.HandleFunc("GET /queue/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "queue not found", Kind: "QueueNotFound"})
	})
	mux.HandleFunc("POST /queue/{id}/{action}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.ControlResponse{Success: true, Status: r.PathValue("action") + "d"})
	})
	mux.HandleFunc("GET /queues", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.QueueListResponse{Queues: []api.QueueSummary{{QueueID: r.URL.Query().Get("limit")}}})
	})
	mux.HandleFunc("DELETE /results/{guestId}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.ClearResultResponse{GuestID: 42, Cleared: r.PathValue("guestId") == "42"})
	})
	mux.HandleFunc("GET /queue/{id}/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, state := range progressStates(r.PathValue("id")) {
			data, _ := json.Marshal(state)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	})
	upgrader := websocket.Upgrader{}
	mux.HandleFunc("GET /queue/{id}/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, state := range progressStates(r.PathValue("id")) {
			if err := conn.WriteJSON(state); err != nil {
				return
			}
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "queue completed"),
			time.Now().Add(time.Second))
		// Wait for the client's close reply.
		_, _, _ = conn.ReadMessage()
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewRejectsNonHTTPURL(t *testing.T) {
	_, err := client.New("unix:///tmp/concierge.sock")
	require.Error(t, err)
}

func TestStartQueue(t *testing.T) {
	srv := newServer(t)
	c, err := client.New(srv.URL + "/")
	require.NoError(t, err)

	resp, err := c.StartQueue(context.Background(), api.StartRequest{GuestIDs: []int64{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, api.StartResponse{QueueID: "q-1", Total: 2, Concurrency: 3}, resp)

	_, err = c.StartQueue(context.Background(), api.StartRequest{})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "ValidationError", apiErr.Kind)
	assert.Equal(t, "guestIds is required", apiErr.Message)
}

func TestActiveSendsToken(t *testing.T) {
	srv := newServer(t)

	anon, err := client.New(srv.URL)
	require.NoError(t, err)
	_, err = anon.Active(context.Background())
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	authed, err := client.New(srv.URL, client.WithToken("secret"))
	require.NoError(t, err)
	active, err := authed.Active(context.Background())
	require.NoError(t, err)
	require.True(t, active.Active)
	require.NotNil(t, active.QueueState)
	assert.Equal(t, "paused", active.Status)
	assert.Equal(t, 25, active.Progress)
}

func TestQueueNotFound(t *testing.T) {
	srv := newServer(t)
	c, err := client.New(srv.URL)
	require.NoError(t, err)

	_, err = c.Queue(context.Background(), "missing")
	assert.True(t, client.IsNotFound(err))
}

func TestControlListAndClear(t *testing.T) {
	srv := newServer(t)
	c, err := client.New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	ctl, err := c.Control(ctx, "q-1", api.ActionPause)
	require.NoError(t, err)
	assert.Equal(t, api.ControlResponse{Success: true, Status: "paused"}, ctl)

	list, err := c.ListQueues(ctx, 7)
	require.NoError(t, err)
	require.Len(t, list.Queues, 1)
	assert.Equal(t, "7", list.Queues[0].QueueID)

	cleared, err := c.ClearResult(ctx, 42)
	require.NoError(t, err)
	assert.True(t, cleared.Cleared)
}

func TestWatchFollowsWebsocketUntilClose(t *testing.T) {
	srv := newServer(t)
	c, err := client.New(srv.URL)
	require.NoError(t, err)

	var seen []int
	err = c.Watch(context.Background(), "q-1", func(state api.QueueState) error {
		seen = append(seen, state.Progress)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 50, 100}, seen)
}

func TestWatchStopsEarly(t *testing.T) {
	srv := newServer(t)
	c, err := client.New(srv.URL)
	require.NoError(t, err)

	calls := 0
	err = c.Watch(context.Background(), "q-1", func(api.QueueState) error {
		calls++
		return client.ErrStopWatching
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestStreamFollowsServerSentEvents(t *testing.T) {
	srv := newServer(t)
	c, err := client.New(srv.URL)
	require.NoError(t, err)

	var last api.QueueState
	count := 0
	err = c.Stream(context.Background(), "q-1", func(state api.QueueState) error {
		last = state
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, "completed", last.Status)
}

func TestUnavailableDaemon(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c, err := client.New(addr)
	require.NoError(t, err)
	_, err = c.Status(context.Background())
	require.Error(t, err)
	assert.True(t, client.IsUnavailable(err))
}
