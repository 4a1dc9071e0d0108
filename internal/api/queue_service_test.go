package api

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"concierge/internal/config"
	"concierge/internal/queue"
	"concierge/internal/services"
	"concierge/internal/workflow"
)

type stubController struct {
	created []workflow.CreateRequest
	snaps   map[string]workflow.Snapshot
	active  *workflow.Snapshot
	calls   []string
}

func (c *stubController) Create(_ context.Context, req workflow.CreateRequest) (workflow.Snapshot, error) {
	c.created = append(c.created, req)
	return workflow.Snapshot{
		ID:          "q-1",
		Status:      queue.StatusRunning,
		Total:       len(req.GuestIDs),
		Concurrency: req.Concurrency,
		BatchID:     req.BatchID,
	}, nil
}

func (c *stubController) Get(id string) (workflow.Snapshot, error) {
	snap, ok := c.snaps[id]
	if !ok {
		return workflow.Snapshot{}, workflow.ErrQueueNotFound
	}
	return snap, nil
}

func (c *stubController) FindActive() (workflow.Snapshot, bool) {
	if c.active == nil {
		return workflow.Snapshot{}, false
	}
	return *c.active, true
}

func (c *stubController) record(action, id string) (queue.Status, error) {
	c.calls = append(c.calls, action+":"+id)
	if _, ok := c.snaps[id]; !ok {
		return "", workflow.ErrQueueNotFound
	}
	switch action {
	case "pause":
		return queue.StatusPaused, nil
	case "stop":
		return queue.StatusStopped, nil
	default:
		return queue.StatusRunning, nil
	}
}

func (c *stubController) Pause(id string) (queue.Status, error)  { return c.record("pause", id) }
func (c *stubController) Resume(id string) (queue.Status, error) { return c.record("resume", id) }
func (c *stubController) Skip(id string) (queue.Status, error)   { return c.record("skip", id) }
func (c *stubController) Stop(_ context.Context, id string) (queue.Status, error) {
	return c.record("stop", id)
}

type stubReader struct {
	pending   []int64
	cps       []*queue.Checkpoint
	cleared   map[int64]bool
	limit     int
	pruneFrom time.Time
}

func (r *stubReader) PendingGuestIDs(context.Context) ([]int64, error) { return r.pending, nil }

func (r *stubReader) ListCheckpoints(_ context.Context, limit int) ([]*queue.Checkpoint, error) {
	r.limit = limit
	return r.cps, nil
}

func (r *stubReader) PruneCheckpoints(_ context.Context, cutoff time.Time) (int64, error) {
	r.pruneFrom = cutoff
	return 2, nil
}

func (r *stubReader) ClearResult(_ context.Context, guestID int64) (bool, error) {
	return r.cleared[guestID], nil
}

func newTestService(ctrl *stubController, reader *stubReader) *QueueService {
	return NewQueueService(ctrl, reader, config.Default().Queue)
}

func intPtr(v int) *int { return &v }

func TestStartResolvesConcurrency(t *testing.T) {
	cases := []struct {
		name      string
		requested *int
		want      int
	}{
		{name: "omitted", requested: nil, want: 3},
		{name: "zero", requested: intPtr(0), want: 3},
		{name: "negative", requested: intPtr(-2), want: 3},
		{name: "explicit", requested: intPtr(2), want: 2},
		{name: "too large", requested: intPtr(42), want: 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := &stubController{}
			svc := newTestService(ctrl, &stubReader{})
			resp, err := svc.Start(context.Background(), StartRequest{GuestIDs: []int64{1, 2}, Concurrency: tc.requested})
			if err != nil {
				t.Fatalf("Start: %v", err)
			}
			if resp.Concurrency != tc.want {
				t.Fatalf("concurrency = %d, want %d", resp.Concurrency, tc.want)
			}
			if resp.QueueID != "q-1" || resp.Total != 2 {
				t.Fatalf("unexpected response %+v", resp)
			}
		})
	}
}

func TestStartRejectsInvalidBodies(t *testing.T) {
	svc := newTestService(&stubController{}, &stubReader{})
	cases := []struct {
		name string
		req  StartRequest
		want string
	}{
		{name: "missing ids", req: StartRequest{}, want: "guestIds is required"},
		{name: "empty ids", req: StartRequest{GuestIDs: []int64{}}, want: "guestIds"},
		{name: "zero id", req: StartRequest{GuestIDs: []int64{4, 0}}, want: "guestIds[1] must be greater than 0"},
		{name: "long batch", req: StartRequest{GuestIDs: []int64{1}, BatchID: strings.Repeat("b", 129)}, want: "batchId"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Start(context.Background(), tc.req)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestStartPending(t *testing.T) {
	ctrl := &stubController{}
	svc := newTestService(ctrl, &stubReader{})

	resp, err := svc.StartPending(context.Background(), StartPendingRequest{})
	if err != nil {
		t.Fatalf("StartPending: %v", err)
	}
	if resp.QueueID != "" || resp.Total != 0 || len(ctrl.created) != 0 {
		t.Fatalf("expected no queue for empty pending set, got %+v", resp)
	}

	svc = newTestService(ctrl, &stubReader{pending: []int64{7, 8, 9}})
	resp, err = svc.StartPending(context.Background(), StartPendingRequest{Concurrency: intPtr(1), BatchID: "nightly"})
	if err != nil {
		t.Fatalf("StartPending: %v", err)
	}
	if resp.Total != 3 || resp.Concurrency != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if got := ctrl.created[0]; got.BatchID != "nightly" || len(got.GuestIDs) != 3 {
		t.Fatalf("unexpected create request %+v", got)
	}
}

func TestActive(t *testing.T) {
	ctrl := &stubController{}
	svc := newTestService(ctrl, &stubReader{})
	if got := svc.Active(); got.Active || got.QueueState != nil {
		t.Fatalf("expected inactive response, got %+v", got)
	}

	ctrl.active = &workflow.Snapshot{ID: "q-9", Status: queue.StatusPaused, Total: 4, Completed: 1}
	got := svc.Active()
	if !got.Active || got.QueueState == nil {
		t.Fatalf("expected active response, got %+v", got)
	}
	if got.QueueID != "q-9" || got.Progress != 25 || got.Status != "paused" {
		t.Fatalf("unexpected active state %+v", got.QueueState)
	}
}

func TestControlDispatchesActions(t *testing.T) {
	ctrl := &stubController{snaps: map[string]workflow.Snapshot{"q-1": {ID: "q-1"}}}
	svc := newTestService(ctrl, &stubReader{})

	for _, action := range []Action{ActionPause, ActionResume, ActionSkip, ActionStop} {
		resp, err := svc.Control(context.Background(), "q-1", action)
		if err != nil {
			t.Fatalf("%s: %v", action, err)
		}
		if !resp.Success || resp.Status == "" {
			t.Fatalf("%s: unexpected response %+v", action, resp)
		}
	}
	want := []string{"pause:q-1", "resume:q-1", "skip:q-1", "stop:q-1"}
	if strings.Join(ctrl.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", ctrl.calls, want)
	}

	if _, err := svc.Control(context.Background(), "nope", ActionPause); !errors.Is(err, workflow.ErrQueueNotFound) {
		t.Fatalf("expected ErrQueueNotFound, got %v", err)
	}
	if _, err := svc.Control(context.Background(), "q-1", Action("explode")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseAction(t *testing.T) {
	if action, ok := ParseAction(" Pause "); !ok || action != ActionPause {
		t.Fatalf("ParseAction(Pause) = %q, %v", action, ok)
	}
	if _, ok := ParseAction("restart"); ok {
		t.Fatal("expected restart to be rejected")
	}
}

func TestListClearAndPrune(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	reader := &stubReader{
		cps: []*queue.Checkpoint{{
			ID:          "q-1",
			GuestIDs:    []int64{1, 2, 3},
			Status:      queue.StatusStopped,
			Completed:   2,
			NextIndex:   2,
			Concurrency: 1,
			Errors:      []queue.JobError{{GuestID: 2, Name: "Guest 2", Error: "timeout"}},
			StartedAt:   started,
			UpdatedAt:   started,
		}},
		cleared: map[int64]bool{5: true},
	}
	svc := newTestService(&stubController{}, reader)

	list, err := svc.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if reader.limit != 10 || len(list.Queues) != 1 {
		t.Fatalf("unexpected list %+v (limit %d)", list, reader.limit)
	}
	entry := list.Queues[0]
	if entry.Progress != 67 || entry.ErrorCount != 1 || entry.StartedAt != "2026-03-01T09:30:00.000Z" {
		t.Fatalf("unexpected summary %+v", entry)
	}

	resp, err := svc.ClearResult(context.Background(), 5)
	if err != nil || !resp.Cleared {
		t.Fatalf("ClearResult(5) = %+v, %v", resp, err)
	}
	resp, err = svc.ClearResult(context.Background(), 6)
	if err != nil || resp.Cleared {
		t.Fatalf("ClearResult(6) = %+v, %v", resp, err)
	}
	if _, err := svc.ClearResult(context.Background(), 0); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	removed, err := svc.Prune(context.Background(), 24*time.Hour)
	if err != nil || removed != 2 {
		t.Fatalf("Prune = %d, %v", removed, err)
	}
	if time.Since(reader.pruneFrom) < 23*time.Hour {
		t.Fatalf("unexpected prune cutoff %v", reader.pruneFrom)
	}
	if _, err := svc.Prune(context.Background(), 0); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for zero age, got %v", err)
	}
}
