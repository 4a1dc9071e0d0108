package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"concierge/internal/api"
	"concierge/internal/config"
	"concierge/internal/logging"
	"concierge/internal/services"
	"concierge/internal/workflow"
)

const maxRequestBody = 1 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	queues *api.QueueService

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, errors.New("api server requires config and daemon")
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("paths.api_bind is required")
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
		queues: d.queues,
	}
	srv.server = &http.Server{
		Handler:           requestIDMiddleware(authMiddleware(cfg.Paths.APIToken, srv.routes())),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /queue/start", s.handleStart)
	mux.HandleFunc("POST /queue/start-pending", s.handleStartPending)
	mux.HandleFunc("GET /queue/active", s.handleActive)
	mux.HandleFunc("GET /queue/{id}", s.handleQueue)
	mux.HandleFunc("GET /queue/{id}/stream", s.handleStream)
	mux.HandleFunc("GET /queue/{id}/ws", s.handleWebsocket)
	mux.HandleFunc("POST /queue/{id}/{action}", s.handleControl)
	mux.HandleFunc("GET /queues", s.handleList)
	mux.HandleFunc("POST /queues/prune", s.handlePrune)
	mux.HandleFunc("DELETE /results/{guestId}", s.handleClearResult)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStart(w http.ResponseWriter, r *http.Request) {
	var req api.StartRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	resp, err := s.queues.Start(r.Context(), req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleStartPending(w http.ResponseWriter, r *http.Request) {
	var req api.StartPendingRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	resp, err := s.queues.StartPending(r.Context(), req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleActive(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.queues.Active())
}

func (s *apiServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	state, err := s.queues.Describe(r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *apiServer) handleControl(w http.ResponseWriter, r *http.Request) {
	action, ok := api.ParseAction(r.PathValue("action"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown queue action", "NotFound")
		return
	}
	resp, err := s.queues.Control(r.Context(), r.PathValue("id"), action)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if value := strings.TrimSpace(r.URL.Query().Get("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			s.writeFailure(w, r, fmt.Errorf("%w: limit must be an integer", services.ErrValidation))
			return
		}
		limit = parsed
	}
	resp, err := s.queues.List(r.Context(), limit)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handlePrune(w http.ResponseWriter, r *http.Request) {
	var req api.PruneRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if err := api.Validate(req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	removed, err := s.queues.Prune(r.Context(), time.Duration(req.OlderThanDays)*24*time.Hour)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	logging.WithContext(r.Context(), s.logger).Info("queue checkpoints pruned",
		logging.String(logging.FieldEventType, "queues_pruned"),
		logging.Int("older_than_days", req.OlderThanDays),
		logging.Int64("removed", removed),
	)
	s.writeJSON(w, http.StatusOK, api.PruneResponse{Removed: removed})
}

func (s *apiServer) handleClearResult(w http.ResponseWriter, r *http.Request) {
	guestID, err := strconv.ParseInt(r.PathValue("guestId"), 10, 64)
	if err != nil {
		s.writeFailure(w, r, fmt.Errorf("%w: invalid guest id", services.ErrValidation))
		return
	}
	resp, err := s.queues.ClearResult(r.Context(), guestID)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	logging.WithContext(r.Context(), s.logger).Info("guest result cleared",
		logging.String(logging.FieldEventType, "result_cleared"),
		logging.Int64(logging.FieldGuestID, guestID),
		logging.Bool("cleared", resp.Cleared),
	)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		Provider:     status.Provider,
		Schedule:     status.Schedule,
		Results:      api.FromResultSummary(status.Results),
		Preflight:    make([]api.PreflightCheck, 0, len(status.Preflight)),
	}
	if status.Active != nil {
		state := api.FromSnapshot(*status.Active)
		payload.Active = &state
	}
	for _, check := range status.Preflight {
		payload.Preflight = append(payload.Preflight, api.PreflightCheck{
			Name:   check.Name,
			Passed: check.Passed,
			Detail: check.Detail,
		})
	}
	s.writeJSON(w, http.StatusOK, payload)
}

// decodeBody reads a JSON request body. An empty body is accepted only when
// allowEmpty is set.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF) && allowEmpty:
		return nil
	case errors.Is(err, io.EOF):
		return fmt.Errorf("%w: request body is required", services.ErrValidation)
	default:
		return fmt.Errorf("%w: malformed JSON body: %v", services.ErrValidation, err)
	}
}

// statusFor maps an error to its HTTP status and machine-readable kind.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, workflow.ErrQueueNotFound):
		return http.StatusNotFound, "QueueNotFound"
	case errors.Is(err, workflow.ErrInvalidTransition):
		return http.StatusConflict, "InvalidTransition"
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, "ValidationError"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.Is(err, workflow.ErrNotRunning):
		return http.StatusServiceUnavailable, "Unavailable"
	default:
		return http.StatusInternalServerError, "InternalError"
	}
}

func (s *apiServer) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := statusFor(err)
	logger := logging.WithContext(r.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logger, "api request failed", "api_request_failed",
			append(logging.ErrorDetails(err),
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
			)...,
		)
	} else {
		logger.Debug("api request rejected",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Error(err),
		)
	}
	s.writeError(w, status, err.Error(), kind)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message, kind string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message, Kind: kind})
}
