package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"concierge/internal/api"
	"concierge/internal/logging"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleStream pushes the queue state as Server-Sent Events until the queue
// completes or the client disconnects.
func (s *apiServer) handleStream(w http.ResponseWriter, r *http.Request) {
	updates, err := s.daemon.workflow.Watch(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported", "InternalError")
		return
	}
	// The server-wide write timeout would cut long streams short.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for snap := range updates {
		data, err := json.Marshal(api.FromSnapshot(snap))
		if err != nil {
			s.logger.Error("failed to marshal stream event", logging.Error(err))
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return
		}
		flusher.Flush()
	}
}

// handleWebsocket pushes the same payloads as handleStream over a websocket
// and closes normally once the queue completes.
func (s *apiServer) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, err := s.daemon.workflow.Watch(ctx, r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	// Reads only detect the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debug("websocket client error", logging.Error(err))
				}
				return
			}
		}
	}()

	for snap := range updates {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(api.FromSnapshot(snap)); err != nil {
			return
		}
	}
	if ctx.Err() != nil {
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "queue completed"),
		time.Now().Add(time.Second),
	)
}
