package workflow

import (
	"context"
	"errors"
	"fmt"

	"concierge/internal/logging"
	"concierge/internal/notifications"
	"concierge/internal/queue"
)

func (m *Manager) publish(ctx context.Context, r *run, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			r.logger.Debug("daemon shutting down, could not send notification", logging.String("event", string(event)))
			return
		}
		r.logger.Debug("notification failed",
			logging.String("event", string(event)),
			logging.Error(err),
		)
	}
}

func (m *Manager) notifyQueueStarted(ctx context.Context, r *run) {
	m.publish(ctx, r, notifications.EventQueueStarted, notifications.Payload{
		"queueId":     r.id,
		"total":       r.total(),
		"concurrency": r.concurrency,
	})
}

func (m *Manager) notifyQueueStopped(ctx context.Context, r *run) {
	snap := r.snapshot()
	m.publish(ctx, r, notifications.EventQueueStopped, notifications.Payload{
		"queueId":   snap.ID,
		"completed": snap.Completed,
		"total":     snap.Total,
	})
}

func (m *Manager) notifyQueueCompleted(ctx context.Context, snap Snapshot) {
	m.mu.RLock()
	r := m.runs[snap.ID]
	m.mu.RUnlock()
	if r == nil {
		return
	}
	duration := m.now().Sub(snap.StartedAt)
	if snap.CompletedAt != nil {
		duration = snap.CompletedAt.Sub(snap.StartedAt)
	}
	m.publish(ctx, r, notifications.EventQueueCompleted, notifications.Payload{
		"queueId":   snap.ID,
		"completed": snap.Completed,
		"failed":    len(snap.Errors),
		"duration":  duration,
	})
}

func (m *Manager) notifyJobError(ctx context.Context, r *run, guest queue.Guest, jobErr error) {
	m.publish(ctx, r, notifications.EventError, notifications.Payload{
		"context": fmt.Sprintf("guest %d (%s)", guest.ID, guest.Name),
		"error":   jobErr,
	})
}
