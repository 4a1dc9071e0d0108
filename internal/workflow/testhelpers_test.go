package workflow_test

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"concierge/internal/config"
	"concierge/internal/logging"
	"concierge/internal/notifications"
	"concierge/internal/queue"
	"concierge/internal/research"
	"concierge/internal/testsupport"
	"concierge/internal/workflow"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const waitTimeout = 5 * time.Second

type lookupFunc func(ctx context.Context, guest queue.Guest) (research.Finding, error)

// fakeProvider counts lookups per guest and delegates to an optional
// behavior. Without one it returns a small finding immediately.
type fakeProvider struct {
	mu       sync.Mutex
	calls    map[int64]int
	order    []int64
	behavior lookupFunc
}

func newFakeProvider(behavior lookupFunc) *fakeProvider {
	return &fakeProvider{calls: make(map[int64]int), behavior: behavior}
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Lookup(ctx context.Context, guest queue.Guest) (research.Finding, error) {
	p.mu.Lock()
	p.calls[guest.ID]++
	p.order = append(p.order, guest.ID)
	behavior := p.behavior
	p.mu.Unlock()
	if behavior != nil {
		return behavior(ctx, guest)
	}
	return defaultFinding(guest), nil
}

func (p *fakeProvider) Calls(guestID int64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[guestID]
}

func (p *fakeProvider) TotalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}

func (p *fakeProvider) Order() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.order)
}

func defaultFinding(guest queue.Guest) research.Finding {
	return research.Finding{
		Summary:    "Public profile of " + guest.Name,
		Occupation: "Hotelier",
		Followers:  25_000,
		Provider:   "fake",
		Model:      "fake-1",
	}
}

func blockUntilDone(ctx context.Context, _ queue.Guest) (research.Finding, error) {
	<-ctx.Done()
	return research.Finding{}, ctx.Err()
}

type recordedEvent struct {
	event   notifications.Event
	payload notifications.Payload
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{event: event, payload: payload})
	return nil
}

func (n *recordingNotifier) Events() []notifications.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notifications.Event, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.event)
	}
	return out
}

type harness struct {
	cfg      *config.Config
	store    *queue.Store
	provider *fakeProvider
	notifier *recordingNotifier
	manager  *workflow.Manager
	guestIDs []int64
}

// newHarness seeds guests and builds a manager that has not been started.
func newHarness(t *testing.T, guests int, provider *fakeProvider, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	if provider == nil {
		provider = newFakeProvider(nil)
	}
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	ids := testsupport.SeedGuests(t, store, guests)
	notifier := &recordingNotifier{}
	return &harness{
		cfg:      cfg,
		store:    store,
		provider: provider,
		notifier: notifier,
		manager:  workflow.NewManagerWithNotifier(cfg, store, provider, logging.NewNop(), notifier),
		guestIDs: ids,
	}
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.manager.Start(context.Background()))
	t.Cleanup(h.manager.Shutdown)
}

func (h *harness) create(t *testing.T, concurrency int) workflow.Snapshot {
	t.Helper()
	snap, err := h.manager.Create(context.Background(), workflow.CreateRequest{
		GuestIDs:    h.guestIDs,
		Concurrency: concurrency,
	})
	require.NoError(t, err)
	return snap
}

func waitForStatus(t *testing.T, m *workflow.Manager, id string, want queue.Status) workflow.Snapshot {
	t.Helper()
	var snap workflow.Snapshot
	require.Eventually(t, func() bool {
		var err error
		snap, err = m.Get(id)
		return err == nil && snap.Status == want
	}, waitTimeout, 5*time.Millisecond, "queue %s never reached %s", id, want)
	return snap
}

func waitForCompleted(t *testing.T, m *workflow.Manager, id string, completed int) {
	t.Helper()
	require.Eventually(t, func() bool {
		snap, err := m.Get(id)
		return err == nil && snap.Completed >= completed
	}, waitTimeout, 5*time.Millisecond, "queue %s never reached completed=%d", id, completed)
}

func waitForCalls(t *testing.T, p *fakeProvider, guestID int64, calls int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return p.Calls(guestID) >= calls
	}, waitTimeout, 5*time.Millisecond, "guest %d never looked up", guestID)
}
