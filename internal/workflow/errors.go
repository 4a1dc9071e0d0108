package workflow

import (
	"errors"
	"fmt"

	"concierge/internal/services"
)

var (
	// ErrQueueNotFound reports a control operation on an unknown queue id.
	ErrQueueNotFound = fmt.Errorf("queue %w", services.ErrNotFound)
	// ErrInvalidTransition reports a control operation the queue's current
	// status does not allow, such as pausing a stopped queue.
	ErrInvalidTransition = fmt.Errorf("invalid queue transition: %w", services.ErrValidation)
	// ErrGuestNotFound is recorded against a job whose guest id has no record.
	ErrGuestNotFound = fmt.Errorf("guest %w", services.ErrNotFound)
	// ErrNotRunning reports that the manager has not been started or has shut down.
	ErrNotRunning = errors.New("workflow manager not running")
)

func persistenceError(op string, err error) error {
	return services.Wrap(services.ErrPersistence, "workflow", op, "", err)
}
