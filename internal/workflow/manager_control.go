package workflow

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"concierge/internal/logging"
	"concierge/internal/queue"
)

// CreateRequest describes a new queue run.
type CreateRequest struct {
	// ID is generated when empty.
	ID          string
	GuestIDs    []int64
	Concurrency int
	BatchID     string
}

// Create registers a running queue, checkpoints it, and launches its
// executor. Concurrency is clamped to [1, max_concurrency].
func (m *Manager) Create(ctx context.Context, req CreateRequest) (Snapshot, error) {
	if _, err := m.runContext(); err != nil {
		return Snapshot{}, err
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}
	if _, err := m.lookup(id); err == nil {
		return Snapshot{}, fmt.Errorf("%w: queue %s already exists", ErrInvalidTransition, id)
	}

	now := m.now().UTC()
	r := newRun(&queue.Checkpoint{
		ID:          id,
		GuestIDs:    slices.Clone(req.GuestIDs),
		Status:      queue.StatusRunning,
		Concurrency: m.cfg.Queue.ClampConcurrency(req.Concurrency, true),
		BatchID:     strings.TrimSpace(req.BatchID),
		StartedAt:   now,
		UpdatedAt:   now,
	})
	m.register(r)
	m.saveCheckpoint(r)

	logger := logging.WithContext(ctx, r.logger)
	logger.Info("enrichment queue created",
		logging.String(logging.FieldEventType, "queue_created"),
		logging.Int("total", r.total()),
		logging.Int("concurrency", r.concurrency),
	)
	m.notifyQueueStarted(ctx, r)
	m.launch(r)
	return r.snapshot(), nil
}

// Pause asks the executor to stop taking new jobs. Only running queues can
// be paused.
func (m *Manager) Pause(id string) (queue.Status, error) {
	r, err := m.lookup(id)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	if r.status != queue.StatusRunning {
		status := r.status
		r.mu.Unlock()
		return status, fmt.Errorf("%w: cannot pause %s queue", ErrInvalidTransition, status)
	}
	r.status = queue.StatusPaused
	r.signalLocked()
	r.mu.Unlock()

	m.saveCheckpoint(r)
	r.logger.Info("enrichment queue paused", logging.String(logging.FieldEventType, "queue_paused"))
	return queue.StatusPaused, nil
}

// Resume continues a paused queue, or relaunches a stopped queue at its
// resume cursor. Resuming a running queue is a no-op.
func (m *Manager) Resume(id string) (queue.Status, error) {
	r, err := m.lookup(id)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	previous := r.status
	switch previous {
	case queue.StatusRunning:
		r.mu.Unlock()
		return queue.StatusRunning, nil
	case queue.StatusCompleted:
		r.mu.Unlock()
		return previous, fmt.Errorf("%w: queue already completed", ErrInvalidTransition)
	}
	r.status = queue.StatusRunning
	needsExecutor := !r.executorActive
	if needsExecutor {
		r.executorActive = true
	}
	r.signalLocked()
	r.mu.Unlock()

	m.saveCheckpoint(r)
	r.logger.Info("enrichment queue resumed",
		logging.String(logging.FieldEventType, "queue_resumed"),
		logging.String("previous_status", string(previous)),
		logging.Bool("relaunched", needsExecutor),
	)
	if needsExecutor {
		m.launch(r)
	}
	return queue.StatusRunning, nil
}

// Stop ends the run after the in-flight job is abandoned. A stopped queue
// keeps its cursor and can be resumed later.
func (m *Manager) Stop(ctx context.Context, id string) (queue.Status, error) {
	r, err := m.lookup(id)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	switch r.status {
	case queue.StatusStopped:
		r.mu.Unlock()
		return queue.StatusStopped, nil
	case queue.StatusCompleted:
		r.mu.Unlock()
		return queue.StatusCompleted, fmt.Errorf("%w: queue already completed", ErrInvalidTransition)
	}
	r.status = queue.StatusStopped
	r.signalLocked()
	r.mu.Unlock()

	m.saveCheckpoint(r)
	r.logger.Info("enrichment queue stopped", logging.String(logging.FieldEventType, "queue_stopped"))
	m.notifyQueueStopped(ctx, r)
	return queue.StatusStopped, nil
}

// Skip abandons the job or jobs currently in flight. They count as
// completed and write no result. Status is unchanged.
func (m *Manager) Skip(id string) (queue.Status, error) {
	r, err := m.lookup(id)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	status := r.status
	if status == queue.StatusCompleted {
		r.mu.Unlock()
		return status, fmt.Errorf("%w: queue already completed", ErrInvalidTransition)
	}
	r.skipGen++
	inFlight := len(r.processing)
	r.signalLocked()
	r.mu.Unlock()

	r.logger.Info("skip requested",
		logging.String(logging.FieldEventType, "queue_skip"),
		logging.Int("in_flight", inFlight),
	)
	return status, nil
}

// Get returns the current state of a queue.
func (m *Manager) Get(id string) (Snapshot, error) {
	r, err := m.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	return r.snapshot(), nil
}

// FindActive returns the first running queue, else the first paused one,
// else a queue that completed within the grace window.
func (m *Manager) FindActive() (Snapshot, bool) {
	m.mu.RLock()
	runs := make([]*run, 0, len(m.order))
	for _, id := range m.order {
		runs = append(runs, m.runs[id])
	}
	m.mu.RUnlock()

	snaps := make([]Snapshot, 0, len(runs))
	for _, r := range runs {
		snaps = append(snaps, r.snapshot())
	}
	for _, want := range []queue.Status{queue.StatusRunning, queue.StatusPaused} {
		for _, snap := range snaps {
			if snap.Status == want {
				return snap, true
			}
		}
	}

	cutoff := m.now().Add(-m.cfg.Queue.CompletedGrace())
	var (
		latest Snapshot
		found  bool
	)
	for _, snap := range snaps {
		if snap.Status != queue.StatusCompleted || snap.CompletedAt == nil || snap.CompletedAt.Before(cutoff) {
			continue
		}
		if !found || snap.CompletedAt.After(*latest.CompletedAt) {
			latest = snap
			found = true
		}
	}
	return latest, found
}

// HasActive reports whether any queue is running or paused.
func (m *Manager) HasActive() bool {
	snap, ok := m.FindActive()
	return ok && snap.Status != queue.StatusCompleted
}
