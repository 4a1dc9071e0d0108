package workflow

import (
	"context"

	"concierge/internal/queue"
)

// Watch pushes a snapshot of the queue immediately and then every
// stream_interval until the queue completes or ctx ends. The channel is
// closed after the completed snapshot is delivered.
func (m *Manager) Watch(ctx context.Context, id string) (<-chan Snapshot, error) {
	r, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	out := make(chan Snapshot, 1)
	go func() {
		defer close(out)
		ticker := m.newTicker(m.cfg.Queue.StreamInterval())
		defer ticker.Stop()
		for {
			snap := r.snapshot()
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
			if snap.Status == queue.StatusCompleted {
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
