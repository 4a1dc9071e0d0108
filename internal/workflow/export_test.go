package workflow

import (
	"time"

	"concierge/internal/queue"
)

// SetCheckpointHook observes every checkpoint written successfully.
func SetCheckpointHook(m *Manager, fn func(queue.Checkpoint)) {
	m.checkpointHook = fn
}

// SetClock replaces the manager's time source.
func SetClock(m *Manager, now func() time.Time) {
	m.now = now
}
