package api

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"concierge/internal/queue"
	"concierge/internal/workflow"
)

func TestFromSnapshot(t *testing.T) {
	started := time.Date(2026, 5, 4, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	done := started.Add(time.Minute)
	dto := FromSnapshot(workflow.Snapshot{
		ID:          "q-1",
		Status:      queue.StatusCompleted,
		Total:       3,
		Completed:   3,
		NextIndex:   3,
		Concurrency: 2,
		Errors:      []queue.JobError{{GuestID: 9, Name: "Ana", Error: "guest not found"}},
		StartedAt:   started,
		CompletedAt: &done,
	})

	if dto.Progress != 100 {
		t.Fatalf("progress = %d", dto.Progress)
	}
	if dto.StartedAt != "2026-05-04T11:00:00.000Z" {
		t.Fatalf("startedAt = %q", dto.StartedAt)
	}
	if dto.CompletedAt != "2026-05-04T11:01:00.000Z" {
		t.Fatalf("completedAt = %q", dto.CompletedAt)
	}
	if dto.UpdatedAt != "" {
		t.Fatalf("zero updatedAt should be omitted, got %q", dto.UpdatedAt)
	}
	if len(dto.Errors) != 1 || dto.Errors[0].GuestID != 9 {
		t.Fatalf("errors = %+v", dto.Errors)
	}
	if dto.CurrentProcessing == nil {
		t.Fatal("currentProcessing must be an empty list, not nil")
	}
}

func TestActiveResponseInlinesQueueFields(t *testing.T) {
	state := FromSnapshot(workflow.Snapshot{ID: "q-2", Status: queue.StatusRunning, Total: 2, Completed: 1})
	payload, err := json.Marshal(ActiveResponse{Active: true, QueueState: &state})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	text := string(payload)
	for _, want := range []string{`"active":true`, `"queueId":"q-2"`, `"progress":50`, `"currentProcessing":[]`, `"errors":[]`} {
		if !strings.Contains(text, want) {
			t.Fatalf("payload %s missing %s", text, want)
		}
	}

	payload, err = json.Marshal(ActiveResponse{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{"active":false}` {
		t.Fatalf("inactive payload = %s", payload)
	}
}

func TestFromCheckpointsSkipsNil(t *testing.T) {
	out := FromCheckpoints([]*queue.Checkpoint{nil, {ID: "q-3", GuestIDs: []int64{1}, Status: queue.StatusRunning}})
	if len(out) != 1 || out[0].QueueID != "q-3" || out[0].Total != 1 {
		t.Fatalf("unexpected summaries %+v", out)
	}
	if FromCheckpoints(nil) == nil {
		t.Fatal("expected empty slice for nil input")
	}
}

func TestParseTime(t *testing.T) {
	if !ParseTime("").IsZero() || !ParseTime("yesterday").IsZero() {
		t.Fatal("expected zero time for empty or malformed input")
	}
	got := ParseTime("2026-05-04T11:00:00.000Z")
	if got.IsZero() || got.Hour() != 11 {
		t.Fatalf("ParseTime = %v", got)
	}
}
