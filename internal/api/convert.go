package api

import (
	"time"

	"concierge/internal/queue"
	"concierge/internal/workflow"
)

// FromSnapshot converts a live queue snapshot to its API representation.
// List fields are never nil so clients can iterate without null checks.
func FromSnapshot(snap workflow.Snapshot) QueueState {
	dto := QueueState{
		QueueID:           snap.ID,
		Status:            string(snap.Status),
		Total:             snap.Total,
		Completed:         snap.Completed,
		NextIndex:         snap.NextIndex,
		Concurrency:       snap.Concurrency,
		BatchID:           snap.BatchID,
		Current:           snap.Current,
		CurrentProcessing: append([]string{}, snap.CurrentProcessing...),
		Errors:            fromJobErrors(snap.Errors),
		Progress:          snap.Progress(),
		StartedAt:         formatTime(snap.StartedAt),
		UpdatedAt:         formatTime(snap.UpdatedAt),
	}
	if snap.CompletedAt != nil {
		dto.CompletedAt = formatTime(*snap.CompletedAt)
	}
	return dto
}

// FromCheckpoint converts a persisted checkpoint to a list entry.
func FromCheckpoint(cp *queue.Checkpoint) QueueSummary {
	if cp == nil {
		return QueueSummary{}
	}
	dto := QueueSummary{
		QueueID:     cp.ID,
		Status:      string(cp.Status),
		Total:       cp.Total(),
		Completed:   cp.Completed,
		NextIndex:   cp.NextIndex,
		Concurrency: cp.Concurrency,
		BatchID:     cp.BatchID,
		ErrorCount:  len(cp.Errors),
		Progress:    workflow.Progress(cp.Completed, cp.Total()),
		StartedAt:   formatTime(cp.StartedAt),
		UpdatedAt:   formatTime(cp.UpdatedAt),
	}
	if cp.CompletedAt != nil {
		dto.CompletedAt = formatTime(*cp.CompletedAt)
	}
	return dto
}

// FromCheckpoints converts a slice of checkpoints, preserving order.
func FromCheckpoints(cps []*queue.Checkpoint) []QueueSummary {
	out := make([]QueueSummary, 0, len(cps))
	for _, cp := range cps {
		if cp == nil {
			continue
		}
		out = append(out, FromCheckpoint(cp))
	}
	return out
}

// FromResultSummary converts store coverage counts.
func FromResultSummary(summary queue.ResultSummary) ResultCoverage {
	return ResultCoverage{
		Guests:   summary.Guests,
		Found:    summary.Found,
		NoResult: summary.NoResult,
		Pending:  summary.Pending,
	}
}

func fromJobErrors(errs []queue.JobError) []JobError {
	out := make([]JobError, 0, len(errs))
	for _, e := range errs {
		out = append(out, JobError{GuestID: e.GuestID, Name: e.Name, Error: e.Error})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseTime parses an API timestamp; it returns the zero time for empty or
// malformed values.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}
