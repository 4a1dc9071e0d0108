package daemon

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concierge/internal/api"
	"concierge/internal/logging"
)

func TestNewPendingSchedulerDisabledWhenEmpty(t *testing.T) {
	sched, err := newPendingScheduler("  ", logging.NewNop(), func() {})
	require.NoError(t, err)
	assert.Nil(t, sched)

	// nil schedulers are inert
	sched.start()
	sched.stop()
}

func TestNewPendingSchedulerRejectsBadSpec(t *testing.T) {
	_, err := newPendingScheduler("every tuesday", logging.NewNop(), func() {})
	require.Error(t, err)
}

func TestScheduledPendingStartsQueueWhenIdle(t *testing.T) {
	td := startTestDaemon(t, nil)
	td.daemon.cfg.Schedule.PendingConcurrency = 2

	td.daemon.runScheduledPending()

	snap, ok := td.daemon.workflow.FindActive()
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(snap.BatchID, "scheduled-"), snap.BatchID)
	assert.Equal(t, 2, snap.Concurrency)
	assert.Equal(t, 3, snap.Total)
	td.waitStatus(t, snap.ID, "completed")

	// Nothing left to enrich.
	td.daemon.runScheduledPending()
	cps, err := td.store.ListCheckpoints(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, cps, 1)
}

func TestScheduledPendingSkipsWhileQueueActive(t *testing.T) {
	td := startTestDaemon(t, stubProvider{lookup: blockingLookup})
	resp := td.start(t, api.StartRequest{GuestIDs: td.guestIDs[:1]})

	td.daemon.runScheduledPending()

	cps, err := td.store.ListCheckpoints(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, cps, 1)
	assert.Equal(t, resp.QueueID, cps[0].ID)
}

func TestScheduledPendingFiresFromCron(t *testing.T) {
	fired := make(chan struct{}, 1)
	sched, err := newPendingScheduler("@every 1s", logging.NewNop(), func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	sched.start()
	defer sched.stop()

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled job never fired")
	}
}
