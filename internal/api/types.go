package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// JobError is a guest that failed to enrich during a queue run.
type JobError struct {
	GuestID int64  `json:"guestId"`
	Name    string `json:"name"`
	Error   string `json:"error"`
}

// QueueState describes a live queue run in a transport-friendly format.
type QueueState struct {
	QueueID           string     `json:"queueId"`
	Status            string     `json:"status"`
	Total             int        `json:"total"`
	Completed         int        `json:"completed"`
	NextIndex         int        `json:"nextIndex"`
	Concurrency       int        `json:"concurrency"`
	BatchID           string     `json:"batchId,omitempty"`
	Current           string     `json:"current,omitempty"`
	CurrentProcessing []string   `json:"currentProcessing"`
	Errors            []JobError `json:"errors"`
	Progress          int        `json:"progress"`
	StartedAt         string     `json:"startedAt,omitempty"`
	UpdatedAt         string     `json:"updatedAt,omitempty"`
	CompletedAt       string     `json:"completedAt,omitempty"`
}

// ActiveResponse answers GET /queue/active. The queue fields are inlined
// when a queue is active.
type ActiveResponse struct {
	Active bool `json:"active"`
	*QueueState
}

// QueueSummary is a persisted checkpoint as listed by GET /queues.
type QueueSummary struct {
	QueueID     string `json:"queueId"`
	Status      string `json:"status"`
	Total       int    `json:"total"`
	Completed   int    `json:"completed"`
	NextIndex   int    `json:"nextIndex"`
	Concurrency int    `json:"concurrency"`
	BatchID     string `json:"batchId,omitempty"`
	ErrorCount  int    `json:"errorCount"`
	Progress    int    `json:"progress"`
	StartedAt   string `json:"startedAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
	CompletedAt string `json:"completedAt,omitempty"`
}

// QueueListResponse wraps a collection of queue summaries.
type QueueListResponse struct {
	Queues []QueueSummary `json:"queues"`
}

// StartRequest is the body of POST /queue/start. A missing, non-integer or
// non-positive concurrency selects the configured default.
type StartRequest struct {
	GuestIDs    []int64 `json:"guestIds" validate:"required,min=1,dive,gt=0"`
	BatchID     string  `json:"batchId,omitempty" validate:"omitempty,max=128"`
	Concurrency *int    `json:"concurrency,omitempty"`
}

// StartPendingRequest is the body of POST /queue/start-pending.
type StartPendingRequest struct {
	Concurrency *int   `json:"concurrency,omitempty"`
	BatchID     string `json:"batchId,omitempty" validate:"omitempty,max=128"`
}

// StartResponse reports a created queue. QueueID is empty when there was
// nothing to enqueue.
type StartResponse struct {
	QueueID     string `json:"queueId,omitempty"`
	Total       int    `json:"total"`
	Concurrency int    `json:"concurrency"`
}

// ControlResponse answers the pause, resume, stop and skip routes.
type ControlResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

// ClearResultResponse answers DELETE /results/{guestId}.
type ClearResultResponse struct {
	GuestID int64 `json:"guestId"`
	Cleared bool  `json:"cleared"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// PreflightCheck mirrors one daemon readiness check.
type PreflightCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// ResultCoverage summarizes how many guests have been enriched.
type ResultCoverage struct {
	Guests   int `json:"guests"`
	Found    int `json:"found"`
	NoResult int `json:"noResult"`
	Pending  int `json:"pending"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool             `json:"running"`
	PID          int              `json:"pid"`
	DatabasePath string           `json:"databasePath"`
	LockFilePath string           `json:"lockFilePath"`
	Provider     string           `json:"provider"`
	Schedule     string           `json:"schedule,omitempty"`
	Active       *QueueState      `json:"active,omitempty"`
	Results      ResultCoverage   `json:"results"`
	Preflight    []PreflightCheck `json:"preflight"`
}

// PruneRequest is the body of POST /queues/prune.
type PruneRequest struct {
	OlderThanDays int `json:"olderThanDays" validate:"gte=1"`
}

// PruneResponse reports how many terminal checkpoints were deleted.
type PruneResponse struct {
	Removed int64 `json:"removed"`
}
