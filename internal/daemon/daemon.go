package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"concierge/internal/api"
	"concierge/internal/config"
	"concierge/internal/logging"
	"concierge/internal/preflight"
	"concierge/internal/queue"
	"concierge/internal/workflow"
)

// Daemon coordinates the queue registry, the HTTP control surface and the
// pending-guest schedule, and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	queues   *api.QueueService

	lockPath string
	lock     *flock.Flock

	api       *apiServer
	scheduler *pendingScheduler

	mu     sync.RWMutex
	checks []preflight.Result

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	Provider     string
	Schedule     string
	Active       *workflow.Snapshot
	Results      queue.ResultSummary
	Preflight    []preflight.Result
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		queues:   api.NewQueueService(wf, store, cfg.Queue),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = srv

	sched, err := newPendingScheduler(cfg.Schedule.PendingCron, logger, d.runScheduledPending)
	if err != nil {
		return nil, err
	}
	d.scheduler = sched
	return d, nil
}

// Start acquires the daemon lock, recovers interrupted queues and begins
// serving the control surface.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another concierge daemon instance is already running")
	}

	d.runPreflight()

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.workflow.Start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.workflow.Shutdown()
		d.abortStart()
		return err
	}
	d.scheduler.start()

	d.running.Store(true)
	d.logger.Info("concierge daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
	)
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
}

// Stop stops background processing and releases the daemon lock. Queues
// keep their persisted status and resume on the next start.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.scheduler.stop()
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Shutdown()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove the lock file if no daemon is running"),
		)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("concierge daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddress returns the address the control surface listens on, or an
// empty string before Start.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		Provider:     d.cfg.Research.Provider,
		Schedule:     d.cfg.Schedule.PendingCron,
	}
	if snap, ok := d.workflow.FindActive(); ok {
		status.Active = &snap
	}
	if summary, err := d.store.ResultStats(ctx); err == nil {
		status.Results = summary
	} else {
		d.logger.Debug("result stats unavailable", logging.Error(err))
	}
	d.mu.RLock()
	status.Preflight = append([]preflight.Result(nil), d.checks...)
	d.mu.RUnlock()
	return status
}

func (d *Daemon) runPreflight() {
	results := preflight.RunAll(d.cfg)
	d.mu.Lock()
	d.checks = results
	d.mu.Unlock()
	for _, check := range preflight.Failed(results) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail),
			logging.String(logging.FieldErrorHint, "fix the configuration and restart the daemon"),
			logging.String(logging.FieldImpact, "queues may record errors for every guest"),
		)
	}
}
