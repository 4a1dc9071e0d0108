package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"concierge/internal/config"
	"concierge/internal/queue"
	"concierge/internal/services"
	"concierge/internal/workflow"
)

// QueueController is the subset of the workflow manager the API drives.
type QueueController interface {
	Create(ctx context.Context, req workflow.CreateRequest) (workflow.Snapshot, error)
	Get(id string) (workflow.Snapshot, error)
	FindActive() (workflow.Snapshot, bool)
	Pause(id string) (queue.Status, error)
	Resume(id string) (queue.Status, error)
	Stop(ctx context.Context, id string) (queue.Status, error)
	Skip(id string) (queue.Status, error)
}

// QueueReader abstracts the persistence reads and maintenance the API needs.
type QueueReader interface {
	PendingGuestIDs(ctx context.Context) ([]int64, error)
	ListCheckpoints(ctx context.Context, limit int) ([]*queue.Checkpoint, error)
	PruneCheckpoints(ctx context.Context, cutoff time.Time) (int64, error)
	ClearResult(ctx context.Context, guestID int64) (bool, error)
}

// Action names a queue control operation.
type Action string

const (
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionStop   Action = "stop"
	ActionSkip   Action = "skip"
)

// ParseAction validates a control route segment.
func ParseAction(value string) (Action, bool) {
	switch action := Action(strings.ToLower(strings.TrimSpace(value))); action {
	case ActionPause, ActionResume, ActionStop, ActionSkip:
		return action, true
	default:
		return "", false
	}
}

// QueueService translates API requests into workflow operations and DTOs.
type QueueService struct {
	queues QueueController
	store  QueueReader
	cfg    config.Queue
}

// NewQueueService constructs a QueueService.
func NewQueueService(queues QueueController, store QueueReader, cfg config.Queue) *QueueService {
	return &QueueService{queues: queues, store: store, cfg: cfg}
}

// Start validates req and creates a queue over its guest ids.
func (s *QueueService) Start(ctx context.Context, req StartRequest) (StartResponse, error) {
	if err := Validate(req); err != nil {
		return StartResponse{}, err
	}
	snap, err := s.queues.Create(ctx, workflow.CreateRequest{
		GuestIDs:    req.GuestIDs,
		Concurrency: s.concurrency(req.Concurrency),
		BatchID:     req.BatchID,
	})
	if err != nil {
		return StartResponse{}, err
	}
	return StartResponse{QueueID: snap.ID, Total: snap.Total, Concurrency: snap.Concurrency}, nil
}

// StartPending creates a queue over every guest without a result or
// sentinel. When none are pending no queue is created and the response
// carries total 0.
func (s *QueueService) StartPending(ctx context.Context, req StartPendingRequest) (StartResponse, error) {
	if err := Validate(req); err != nil {
		return StartResponse{}, err
	}
	concurrency := s.concurrency(req.Concurrency)
	ids, err := s.store.PendingGuestIDs(ctx)
	if err != nil {
		return StartResponse{}, fmt.Errorf("list pending guests: %w", err)
	}
	if len(ids) == 0 {
		return StartResponse{Total: 0, Concurrency: concurrency}, nil
	}
	snap, err := s.queues.Create(ctx, workflow.CreateRequest{
		GuestIDs:    ids,
		Concurrency: concurrency,
		BatchID:     req.BatchID,
	})
	if err != nil {
		return StartResponse{}, err
	}
	return StartResponse{QueueID: snap.ID, Total: snap.Total, Concurrency: snap.Concurrency}, nil
}

// Active reports the queue a dashboard should show, if any.
func (s *QueueService) Active() ActiveResponse {
	snap, ok := s.queues.FindActive()
	if !ok {
		return ActiveResponse{Active: false}
	}
	state := FromSnapshot(snap)
	return ActiveResponse{Active: true, QueueState: &state}
}

// Describe returns the live state of one queue.
func (s *QueueService) Describe(id string) (QueueState, error) {
	snap, err := s.queues.Get(id)
	if err != nil {
		return QueueState{}, err
	}
	return FromSnapshot(snap), nil
}

// Control applies a pause, resume, stop or skip.
func (s *QueueService) Control(ctx context.Context, id string, action Action) (ControlResponse, error) {
	var (
		status queue.Status
		err    error
	)
	switch action {
	case ActionPause:
		status, err = s.queues.Pause(id)
	case ActionResume:
		status, err = s.queues.Resume(id)
	case ActionStop:
		status, err = s.queues.Stop(ctx, id)
	case ActionSkip:
		status, err = s.queues.Skip(id)
	default:
		return ControlResponse{}, fmt.Errorf("%w: unknown action %q", services.ErrValidation, action)
	}
	if err != nil {
		return ControlResponse{}, err
	}
	return ControlResponse{Success: true, Status: string(status)}, nil
}

// List returns the most recently updated persisted queues.
func (s *QueueService) List(ctx context.Context, limit int) (QueueListResponse, error) {
	cps, err := s.store.ListCheckpoints(ctx, limit)
	if err != nil {
		return QueueListResponse{}, fmt.Errorf("list checkpoints: %w", err)
	}
	return QueueListResponse{Queues: FromCheckpoints(cps)}, nil
}

// Prune deletes stopped and completed checkpoints last updated before cutoff.
func (s *QueueService) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("%w: prune age must be positive", services.ErrValidation)
	}
	return s.store.PruneCheckpoints(ctx, time.Now().Add(-olderThan))
}

// ClearResult removes a guest's result or sentinel so a later run retries it.
func (s *QueueService) ClearResult(ctx context.Context, guestID int64) (ClearResultResponse, error) {
	if guestID <= 0 {
		return ClearResultResponse{}, fmt.Errorf("%w: guest id must be positive", services.ErrValidation)
	}
	cleared, err := s.store.ClearResult(ctx, guestID)
	if err != nil {
		return ClearResultResponse{}, fmt.Errorf("clear result: %w", err)
	}
	return ClearResultResponse{GuestID: guestID, Cleared: cleared}, nil
}

func (s *QueueService) concurrency(requested *int) int {
	if requested == nil || *requested < 1 {
		return s.cfg.ClampConcurrency(0, false)
	}
	return s.cfg.ClampConcurrency(*requested, true)
}
