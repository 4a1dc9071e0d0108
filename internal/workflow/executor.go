package workflow

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"concierge/internal/logging"
	"concierge/internal/queue"
)

// runSequential processes one guest at a time from the resume cursor.
func (m *Manager) runSequential(ctx context.Context, r *run) {
	r.mu.Lock()
	start := r.nextIndex
	r.mu.Unlock()

	r.logger.Info("sequential executor started",
		logging.String(logging.FieldEventType, "executor_started"),
		logging.Int("start_index", start),
		logging.Int("total", r.total()),
	)

	for i := start; i < r.total(); i++ {
		r.setNextIndex(i)
		m.saveCheckpoint(r)
		if r.exitIfStopped() {
			m.logExecutorExit(r, "stopped")
			return
		}
		if !m.waitWhilePaused(ctx, r) {
			r.releaseExecutor()
			return
		}
		if r.exitIfStopped() {
			m.logExecutorExit(r, "stopped")
			return
		}

		outcome := m.processGuest(ctx, r, i)
		switch outcome.kind {
		case outcomeShutdown:
			r.releaseExecutor()
			m.logExecutorExit(r, "shutdown")
			return
		case outcomeNotStarted:
			// Stopped before the lookup began; revisit the same index so
			// the stop check exits with the cursor on it.
			i--
			continue
		}
		r.resolve(i+1, outcome.jobErr)
		r.setNextIndex(i + 1)
		m.saveCheckpoint(r)

		if outcome.kind == outcomeSucceeded {
			if !m.sleep(ctx, m.cfg.Queue.InterJobDelay()) {
				r.releaseExecutor()
				m.logExecutorExit(r, "shutdown")
				return
			}
		}
	}
	m.complete(ctx, r)
}

// runParallel processes consecutive batches of size concurrency. Each batch
// finishes completely before the next starts, and the cursor only moves at
// batch boundaries. Pause and stop are honoured before a batch launches; a
// pause that lands mid-batch lets the jobs in flight finish.
func (m *Manager) runParallel(ctx context.Context, r *run) {
	r.mu.Lock()
	start := r.nextIndex
	size := r.concurrency
	r.mu.Unlock()
	total := r.total()

	r.logger.Info("parallel executor started",
		logging.String(logging.FieldEventType, "executor_started"),
		logging.Int("start_index", start),
		logging.Int("total", total),
		logging.Int("concurrency", size),
	)

	batchStart := start
	for batchStart < total {
		if r.exitIfStopped() {
			m.logExecutorExit(r, "stopped")
			return
		}
		if !m.waitWhilePaused(ctx, r) {
			r.releaseExecutor()
			m.logExecutorExit(r, "shutdown")
			return
		}
		if r.exitIfStopped() {
			m.logExecutorExit(r, "stopped")
			return
		}
		batchEnd := min(batchStart+size, total)

		var resolved, notStarted atomic.Int64
		group, groupCtx := errgroup.WithContext(ctx)
		for i := batchStart; i < batchEnd; i++ {
			group.Go(func() error {
				outcome := m.processGuest(groupCtx, r, i)
				switch outcome.kind {
				case outcomeShutdown:
					return errShutdown
				case outcomeNotStarted:
					notStarted.Add(1)
					return nil
				}
				r.resolve(batchStart+int(resolved.Add(1)), outcome.jobErr)
				return nil
			})
		}
		if err := group.Wait(); err != nil || ctx.Err() != nil {
			r.releaseExecutor()
			m.logExecutorExit(r, "shutdown")
			return
		}

		if notStarted.Load() > 0 {
			// A stop landed before some lookups began. The cursor stays on
			// the batch so a resume looks those guests up.
			m.saveCheckpoint(r)
			continue
		}

		r.setNextIndex(batchEnd)
		m.saveCheckpoint(r)
		batchStart = batchEnd

		if batchEnd < total {
			if !m.sleep(ctx, m.cfg.Queue.InterBatchDelay()) {
				r.releaseExecutor()
				m.logExecutorExit(r, "shutdown")
				return
			}
		}
	}
	m.complete(ctx, r)
}

var errShutdown = errors.New("executor shutting down")

// waitWhilePaused blocks while the queue is paused, checkpointing once when
// the pause is observed and once when it clears. It returns false only when
// ctx ends.
func (m *Manager) waitWhilePaused(ctx context.Context, r *run) bool {
	if r.currentStatus() != queue.StatusPaused {
		return ctx.Err() == nil
	}
	m.saveCheckpoint(r)
	r.logger.Debug("executor paused", logging.String(logging.FieldEventType, "executor_paused"))

	ticker := m.newTicker(m.cfg.Queue.PausePoll())
	defer ticker.Stop()
	for {
		changed := r.waitChan()
		if r.currentStatus() != queue.StatusPaused {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		case <-changed:
		}
	}
	m.saveCheckpoint(r)
	r.logger.Debug("executor pause cleared",
		logging.String(logging.FieldEventType, "executor_unpaused"),
		logging.String("status", string(r.currentStatus())),
	)
	return true
}

func (m *Manager) complete(ctx context.Context, r *run) {
	if !r.finish(m.now()) {
		m.logExecutorExit(r, "stopped")
		return
	}
	m.saveCheckpoint(r)
	snap := r.snapshot()
	r.logger.Info("enrichment queue completed",
		logging.String(logging.FieldEventType, "queue_completed"),
		logging.Int("completed", snap.Completed),
		logging.Int("errors", len(snap.Errors)),
	)
	m.notifyQueueCompleted(ctx, snap)
}

func (m *Manager) logExecutorExit(r *run, reason string) {
	r.mu.Lock()
	nextIndex := r.nextIndex
	completed := r.completed
	r.mu.Unlock()
	r.logger.Info("executor exited",
		logging.String(logging.FieldEventType, "executor_exited"),
		logging.String("reason", reason),
		logging.Int("next_index", nextIndex),
		logging.Int("completed", completed),
	)
}
