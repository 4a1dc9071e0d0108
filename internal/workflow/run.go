package workflow

import (
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"concierge/internal/queue"
)

// Snapshot is a point-in-time view of a queue run.
type Snapshot struct {
	ID                string
	Status            queue.Status
	Total             int
	Completed         int
	NextIndex         int
	Concurrency       int
	BatchID           string
	Current           string
	CurrentProcessing []string
	Errors            []queue.JobError
	StartedAt         time.Time
	UpdatedAt         time.Time
	CompletedAt       *time.Time
}

// Progress returns the completion percentage of the snapshot.
func (s Snapshot) Progress() int {
	return Progress(s.Completed, s.Total)
}

// Progress returns round(completed/total*100), clamped to [0, 100], or 0 for
// an empty queue.
func Progress(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	pct := int(math.Round(float64(completed) / float64(total) * 100))
	return min(pct, 100)
}

type inFlight struct {
	index int
	name  string
}

// run is the registry entry for one queue. mu guards every mutable field;
// saveMu orders checkpoint writes so a stale snapshot never lands after a
// newer one.
type run struct {
	id          string
	guestIDs    []int64
	concurrency int
	batchID     string
	startedAt   time.Time

	logger   *slog.Logger
	closeLog func() error

	mu             sync.Mutex
	status         queue.Status
	completed      int
	nextIndex      int
	errors         []queue.JobError
	current        string
	processing     []inFlight
	skipGen        uint64
	updatedAt      time.Time
	completedAt    *time.Time
	executorActive bool
	changed        chan struct{}

	saveMu sync.Mutex
}

func newRun(cp *queue.Checkpoint) *run {
	r := &run{
		id:          cp.ID,
		guestIDs:    slices.Clone(cp.GuestIDs),
		concurrency: cp.Concurrency,
		batchID:     cp.BatchID,
		startedAt:   cp.StartedAt,
		status:      cp.Status,
		completed:   cp.Completed,
		nextIndex:   cp.NextIndex,
		errors:      slices.Clone(cp.Errors),
		updatedAt:   cp.UpdatedAt,
		changed:     make(chan struct{}),
	}
	if cp.CompletedAt != nil {
		at := *cp.CompletedAt
		r.completedAt = &at
	}
	total := len(r.guestIDs)
	r.nextIndex = min(max(r.nextIndex, 0), total)
	r.completed = min(max(r.completed, 0), total)
	return r
}

func (r *run) total() int {
	return len(r.guestIDs)
}

// signalLocked wakes every goroutine waiting on the previous changed channel.
func (r *run) signalLocked() {
	close(r.changed)
	r.changed = make(chan struct{})
	r.updatedAt = time.Now().UTC()
}

func (r *run) waitChan() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changed
}

func (r *run) currentStatus() queue.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *run) snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := Snapshot{
		ID:          r.id,
		Status:      r.status,
		Total:       r.total(),
		Completed:   r.completed,
		NextIndex:   r.nextIndex,
		Concurrency: r.concurrency,
		BatchID:     r.batchID,
		Current:     r.current,
		Errors:      slices.Clone(r.errors),
		StartedAt:   r.startedAt,
		UpdatedAt:   r.updatedAt,
	}
	if len(r.processing) > 0 {
		snap.CurrentProcessing = make([]string, 0, len(r.processing))
		for _, job := range r.processing {
			snap.CurrentProcessing = append(snap.CurrentProcessing, job.name)
		}
	}
	if r.completedAt != nil {
		at := *r.completedAt
		snap.CompletedAt = &at
	}
	return snap
}

func (r *run) checkpoint() *queue.Checkpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := &queue.Checkpoint{
		ID:          r.id,
		GuestIDs:    r.guestIDs,
		Status:      r.status,
		Completed:   r.completed,
		NextIndex:   r.nextIndex,
		Concurrency: r.concurrency,
		BatchID:     r.batchID,
		Errors:      slices.Clone(r.errors),
		StartedAt:   r.startedAt,
		UpdatedAt:   r.updatedAt,
	}
	if r.completedAt != nil {
		at := *r.completedAt
		cp.CompletedAt = &at
	}
	return cp
}

// beginJob registers a job as in flight and returns the skip generation it
// must watch. Skips requested before this point do not affect the job.
func (r *run) beginJob(index int, name string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processing = append(r.processing, inFlight{index: index, name: name})
	if r.concurrency == 1 {
		r.current = name
	}
	r.signalLocked()
	return r.skipGen
}

func (r *run) endJob(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processing = slices.DeleteFunc(r.processing, func(job inFlight) bool {
		return job.index == index
	})
	if r.concurrency == 1 {
		r.current = ""
	}
}

// abandoned reports whether a job started at gen has been skipped or its
// queue stopped.
func (r *run) abandoned(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.skipGen != gen || r.status == queue.StatusStopped
}

// resolve records one finished job. The executor passes the completed count
// the job brings the queue to; a value already reached before a relaunch
// leaves the count unchanged, so recounted batch members are not counted
// twice.
func (r *run) resolve(atLeast int, jobErr *queue.JobError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = min(max(r.completed, atLeast), r.total())
	if jobErr != nil {
		r.errors = append(r.errors, *jobErr)
	}
	r.signalLocked()
}

func (r *run) setNextIndex(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextIndex = min(max(index, 0), r.total())
	r.signalLocked()
}

// exitIfStopped clears executorActive when the queue is stopped. Both happen
// under one lock so a concurrent resume either sees the executor still
// active or launches a new one, never neither.
func (r *run) exitIfStopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != queue.StatusStopped {
		return false
	}
	r.executorActive = false
	return true
}

// finish marks the queue completed unless it was stopped, and releases the
// executor slot. It reports whether the queue completed.
func (r *run) finish(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executorActive = false
	r.current = ""
	r.processing = nil
	if r.status == queue.StatusStopped {
		return false
	}
	r.status = queue.StatusCompleted
	r.nextIndex = r.total()
	r.completed = r.total()
	at := now.UTC()
	r.completedAt = &at
	r.signalLocked()
	return true
}

// releaseExecutor clears the executor slot without changing status, used
// when the daemon shuts down mid-run.
func (r *run) releaseExecutor() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executorActive = false
}
