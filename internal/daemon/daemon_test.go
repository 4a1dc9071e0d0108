package daemon

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concierge/internal/api"
	"concierge/internal/logging"
	"concierge/internal/queue"
	"concierge/internal/testsupport"
	"concierge/internal/workflow"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	wf := workflow.NewManager(cfg, store, stubProvider{}, logging.NewNop())
	d, err := New(cfg, store, logging.NewNop(), wf)
	require.NoError(t, err)
	t.Cleanup(d.Stop)

	ctx := context.Background()
	require.NoError(t, d.Start(ctx))
	assert.True(t, d.Status(ctx).Running)
	assert.NotEmpty(t, d.APIAddress())

	// Second start should fail
	require.Error(t, d.Start(ctx))

	d.Stop()
	status := d.Status(ctx)
	assert.False(t, status.Running)
	assert.Equal(t, os.Getpid(), status.PID)
	assert.Empty(t, d.APIAddress())
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	first, err := New(cfg, store, logging.NewNop(), workflow.NewManager(cfg, store, stubProvider{}, logging.NewNop()))
	require.NoError(t, err)
	require.NoError(t, first.Start(context.Background()))
	t.Cleanup(first.Stop)

	second, err := New(cfg, store, logging.NewNop(), workflow.NewManager(cfg, store, stubProvider{}, logging.NewNop()))
	require.NoError(t, err)
	err = second.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
	assert.False(t, second.Status(context.Background()).Running)

	first.Stop()
	require.NoError(t, second.Start(context.Background()))
	second.Stop()
}

func TestDaemonRecoversInterruptedQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ids := testsupport.SeedGuests(t, store, 3)

	blocked := workflow.NewManager(cfg, store, stubProvider{lookup: blockingLookup}, logging.NewNop())
	first, err := New(cfg, store, logging.NewNop(), blocked)
	require.NoError(t, err)
	require.NoError(t, first.Start(context.Background()))
	resp, err := first.queues.Start(context.Background(), api.StartRequest{GuestIDs: ids})
	require.NoError(t, err)
	first.Stop()

	second, err := New(cfg, store, logging.NewNop(), workflow.NewManager(cfg, store, stubProvider{}, logging.NewNop()))
	require.NoError(t, err)
	require.NoError(t, second.Start(context.Background()))
	t.Cleanup(second.Stop)

	require.Eventually(t, func() bool {
		snap, err := second.workflow.Get(resp.QueueID)
		return err == nil && snap.Status == queue.StatusCompleted
	}, waitTimeout, 10*time.Millisecond)
}
