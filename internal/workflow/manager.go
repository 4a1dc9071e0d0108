package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"concierge/internal/config"
	"concierge/internal/logging"
	"concierge/internal/notifications"
	"concierge/internal/queue"
	"concierge/internal/research"
)

const checkpointWriteTimeout = 10 * time.Second

// Manager is the queue registry. It owns every known queue run and the
// executor goroutines consuming them.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	provider research.Provider
	logger   *slog.Logger
	notifier notifications.Service
	now      func() time.Time

	mu      sync.RWMutex
	runs    map[string]*run
	order   []string
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	checkpointHook func(queue.Checkpoint)
}

// NewManager constructs a manager that notifies through ntfy when configured.
func NewManager(cfg *config.Config, store *queue.Store, provider research.Provider, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, provider, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a manager with a custom notifier.
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, provider research.Provider, logger *slog.Logger, notifier notifications.Service) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	return &Manager{
		cfg:      cfg,
		store:    store,
		provider: provider,
		logger:   logger.With(logging.String(logging.FieldComponent, "workflow-manager")),
		notifier: notifier,
		now:      time.Now,
		runs:     make(map[string]*run),
	}
}

// Start recovers queues left running or paused by a previous process and
// relaunches executors for the running ones. Paused queues wait for resume.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.ctx = runCtx
	m.cancel = cancel
	m.running = true
	m.mu.Unlock()

	checkpoints, err := m.store.ResumableCheckpoints(ctx)
	if err != nil {
		m.Shutdown()
		return err
	}
	for _, cp := range checkpoints {
		r := newRun(cp)
		m.register(r)
		r.logger.Info("recovered enrichment queue",
			logging.String(logging.FieldEventType, "queue_recovered"),
			logging.String("status", string(r.status)),
			logging.Int("next_index", r.nextIndex),
			logging.Int("completed", r.completed),
			logging.Int("total", r.total()),
		)
		if r.status == queue.StatusRunning {
			m.launch(r)
		}
	}
	return nil
}

// Shutdown cancels in-flight jobs and waits for executors to return. Queues
// keep their persisted status so the next Start resumes them.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.mu.Unlock()

	cancel()
	m.wg.Wait()

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		r := m.runs[id]
		if r.closeLog != nil {
			if err := r.closeLog(); err != nil {
				m.logger.Debug("close queue log failed", logging.Error(err))
			}
		}
	}
}

func (m *Manager) register(r *run) {
	logger := m.logger.With(logging.String(logging.FieldQueueID, r.id))
	if r.batchID != "" {
		logger = logger.With(logging.String(logging.FieldBatchID, r.batchID))
	}
	queueLogger, closeLog, err := logging.OpenQueueLog(logger, m.cfg.Paths.LogDir, r.id)
	if err != nil {
		logging.WarnWithContext(logger, "queue log unavailable", "queue_log_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check log_dir permissions"),
			logging.String(logging.FieldImpact, "queue events only reach the daemon log"),
		)
	}
	r.logger = queueLogger
	r.closeLog = closeLog

	m.mu.Lock()
	m.runs[r.id] = r
	m.order = append(m.order, r.id)
	m.mu.Unlock()
}

func (m *Manager) lookup(id string) (*run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, ErrQueueNotFound
	}
	return r, nil
}

func (m *Manager) runContext() (context.Context, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.running {
		return nil, ErrNotRunning
	}
	return m.ctx, nil
}

// launch starts an executor goroutine for r at its resume cursor.
func (m *Manager) launch(r *run) {
	ctx, err := m.runContext()
	if err != nil {
		r.releaseExecutor()
		return
	}
	r.mu.Lock()
	r.executorActive = true
	// Jobs past the cursor that were counted before a crash, stop or pause
	// keep their count; resolve only raises it.
	r.completed = max(r.completed, r.nextIndex)
	r.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if r.concurrency > 1 {
			m.runParallel(ctx, r)
		} else {
			m.runSequential(ctx, r)
		}
	}()
}

// saveCheckpoint persists r's current state. Failures are logged as
// persistence errors and never returned.
func (m *Manager) saveCheckpoint(r *run) {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	cp := r.checkpoint()
	base := context.Background()
	if ctx, err := m.runContext(); err == nil {
		base = ctx
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(base), checkpointWriteTimeout)
	defer cancel()

	if err := m.store.SaveCheckpoint(ctx, cp); err != nil {
		attrs := append(logging.ErrorDetails(persistenceError("save checkpoint", err)),
			logging.String(logging.FieldImpact, "progress may be lost if the daemon restarts"),
		)
		logging.ErrorWithContext(r.logger, "checkpoint write failed", "checkpoint_failed", attrs...)
		return
	}
	if m.checkpointHook != nil {
		m.checkpointHook(*cp)
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
