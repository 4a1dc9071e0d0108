package daemon

import (
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"concierge/internal/api"
	"concierge/internal/logging"
)

// pendingScheduler fires start-pending runs on a cron schedule. A nil
// scheduler (no schedule configured) is valid and does nothing.
type pendingScheduler struct {
	cron   *cron.Cron
	spec   string
	logger *slog.Logger
}

func newPendingScheduler(spec string, logger *slog.Logger, job func()) (*pendingScheduler, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	logger = logging.NewComponentLogger(logger, "scheduler")
	cronLog := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	if _, err := c.AddFunc(spec, job); err != nil {
		return nil, err
	}
	return &pendingScheduler{cron: c, spec: spec, logger: logger}, nil
}

func (s *pendingScheduler) start() {
	if s == nil {
		return
	}
	s.cron.Start()
	entries := s.cron.Entries()
	if len(entries) > 0 {
		s.logger.Info("pending schedule armed",
			logging.String(logging.FieldEventType, "schedule_armed"),
			logging.String("cron", s.spec),
			logging.String("next_run", entries[0].Next.Format(time.RFC3339)),
		)
	}
}

func (s *pendingScheduler) stop() {
	if s == nil {
		return
	}
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.logger.Warn("scheduled run still active at shutdown")
	}
}

// cronLogger adapts slog to cron's logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{logging.Error(err)}, keysAndValues...)...)
}

// runScheduledPending starts a queue over every pending guest unless a queue
// is already running or paused.
func (d *Daemon) runScheduledPending() {
	ctx := d.ctx
	if ctx == nil || ctx.Err() != nil {
		return
	}
	logger := d.logger.With(logging.String(logging.FieldComponent, "scheduler"))
	if d.workflow.HasActive() {
		logger.Info("scheduled run skipped; a queue is already active",
			logging.String(logging.FieldEventType, "schedule_skipped"),
		)
		return
	}

	concurrency := d.cfg.Schedule.PendingConcurrency
	resp, err := d.queues.StartPending(ctx, api.StartPendingRequest{
		Concurrency: &concurrency,
		BatchID:     "scheduled-" + time.Now().UTC().Format("20060102T1504"),
	})
	if err != nil {
		logging.ErrorWithContext(logger, "scheduled run failed", "schedule_failed",
			logging.ErrorDetails(err)...,
		)
		return
	}
	if resp.QueueID == "" {
		logger.Info("scheduled run found no pending guests",
			logging.String(logging.FieldEventType, "schedule_idle"),
		)
		return
	}
	logger.Info("scheduled run started",
		logging.String(logging.FieldEventType, "schedule_started"),
		logging.String(logging.FieldQueueID, resp.QueueID),
		logging.Int("total", resp.Total),
		logging.Int("concurrency", resp.Concurrency),
	)
}
