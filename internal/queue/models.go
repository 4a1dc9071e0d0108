package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an enrichment queue run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusStopped   Status = "stopped"
	StatusCompleted Status = "completed"
)

var allStatuses = []Status{
	StatusRunning,
	StatusPaused,
	StatusStopped,
	StatusCompleted,
}

// ParseStatus converts a string into a Status if recognized.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// AllStatuses returns the known statuses in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// IsTerminal reports whether no executor may run against the queue without an
// explicit resume.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// JobError records a guest that failed to enrich during a queue run.
type JobError struct {
	GuestID int64
	Name    string
	Error   string
}

// Checkpoint is the durable snapshot of a queue run.
type Checkpoint struct {
	ID          string
	GuestIDs    []int64
	Status      Status
	Completed   int
	NextIndex   int
	Concurrency int
	BatchID     string
	Errors      []JobError
	StartedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// Total returns the number of guests in the run.
func (c *Checkpoint) Total() int {
	if c == nil {
		return 0
	}
	return len(c.GuestIDs)
}

// Guest is the CRM record an enrichment job reads and annotates.
type Guest struct {
	ID                int64
	Name              string
	Email             string
	Company           string
	City              string
	Country           string
	VIPScore          int
	InfluenceTier     string
	EnrichmentSummary string
	EnrichedAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ResultStatus distinguishes usable findings from the "no result" sentinel.
type ResultStatus string

const (
	ResultFound    ResultStatus = "found"
	ResultNoResult ResultStatus = "no_result"
)

// Source is a public page the research provider cited.
type Source struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url"`
}

// Result is the persisted outcome of enriching one guest.
type Result struct {
	GuestID       int64
	Status        ResultStatus
	VIPScore      int
	InfluenceTier string
	Summary       string
	Occupation    string
	Company       string
	Location      string
	Followers     int64
	Sources       []Source
	Provider      string
	Model         string
	Reason        string
	CreatedAt     time.Time
}

// CheckpointSummary aggregates checkpoint counts by status.
type CheckpointSummary struct {
	Total     int
	Running   int
	Paused    int
	Stopped   int
	Completed int
}

// ResultSummary aggregates guest enrichment coverage.
type ResultSummary struct {
	Guests   int
	Found    int
	NoResult int
	Pending  int
}
