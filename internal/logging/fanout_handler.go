package logging

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
)

type fanoutHandler struct {
	handlers []slog.Handler
}

func newFanoutHandler(handlers ...slog.Handler) slog.Handler {
	live := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			live = append(live, h)
		}
	}
	switch len(live) {
	case 0:
		return NoopHandler{}
	case 1:
		return live[0]
	}
	return &fanoutHandler{handlers: live}
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}

// TeeLogger duplicates log output from base into the provided handlers.
func TeeLogger(base *slog.Logger, handlers ...slog.Handler) *slog.Logger {
	if base == nil {
		return slog.New(newFanoutHandler(handlers...))
	}
	return slog.New(newFanoutHandler(append([]slog.Handler{base.Handler()}, handlers...)...))
}

// QueueLogPath returns the per-queue JSON log location under logDir.
func QueueLogPath(logDir, queueID string) string {
	return filepath.Join(logDir, "queues", queueID+".log")
}

// OpenQueueLog tees base into a JSON log file dedicated to one queue run. The
// returned close func releases the file; it is safe to call when logDir is
// empty, in which case base is returned unchanged.
func OpenQueueLog(base *slog.Logger, logDir, queueID string) (*slog.Logger, func() error, error) {
	if logDir == "" || queueID == "" {
		return base, func() error { return nil }, nil
	}
	file, err := openLogFile(QueueLogPath(logDir, queueID))
	if err != nil {
		return base, func() error { return nil }, fmt.Errorf("open queue log: %w", err)
	}
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelDebug)
	logger := TeeLogger(base, newJSONHandler(file, lvl, false))
	return logger, file.Close, nil
}
