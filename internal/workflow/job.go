package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"concierge/internal/logging"
	"concierge/internal/queue"
	"concierge/internal/research"
	"concierge/internal/scoring"
	"concierge/internal/services"
)

type outcomeKind int

const (
	outcomeSucceeded outcomeKind = iota
	outcomeAlreadyDone
	outcomeFailed
	outcomeNoData
	outcomeAbandoned
	outcomeNotStarted
	outcomeShutdown
)

func (k outcomeKind) String() string {
	switch k {
	case outcomeSucceeded:
		return "succeeded"
	case outcomeAlreadyDone:
		return "already_done"
	case outcomeFailed:
		return "failed"
	case outcomeNoData:
		return "no_data"
	case outcomeAbandoned:
		return "abandoned"
	case outcomeNotStarted:
		return "not_started"
	case outcomeShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

type jobOutcome struct {
	kind   outcomeKind
	jobErr *queue.JobError
}

type lookupResult struct {
	finding research.Finding
	err     error
}

type raceResult struct {
	kind    outcomeKind
	finding research.Finding
	err     error
}

// processGuest runs the single-job protocol for guestIDs[index]. Every
// outcome except shutdown and not-started counts toward completed.
func (m *Manager) processGuest(ctx context.Context, r *run, index int) jobOutcome {
	guestID := r.guestIDs[index]
	ctx = services.WithQueueID(ctx, r.id)
	ctx = services.WithGuestID(ctx, guestID)
	logger := logging.WithContext(ctx, r.logger)

	guest, err := m.store.GetGuest(ctx, guestID)
	if err != nil {
		if ctx.Err() != nil {
			return jobOutcome{kind: outcomeShutdown}
		}
		logging.ErrorWithContext(logger, "guest lookup failed", "guest_load_failed", logging.ErrorDetails(err)...)
		return m.failed(guestID, "", fmt.Errorf("load guest: %w", err))
	}
	if guest == nil {
		logging.WarnWithContext(logger, "guest not found", "guest_not_found",
			logging.String(logging.FieldErrorHint, "verify the guest id exists"),
			logging.String(logging.FieldImpact, "guest recorded as an error and skipped"),
		)
		return m.failed(guestID, "", ErrGuestNotFound)
	}

	gen := r.beginJob(index, guest.Name)
	defer r.endJob(index)

	done, err := m.store.HasResult(ctx, guestID)
	if err != nil {
		if ctx.Err() != nil {
			return jobOutcome{kind: outcomeShutdown}
		}
		logging.ErrorWithContext(logger, "result lookup failed", "result_check_failed", logging.ErrorDetails(err)...)
		return m.failed(guestID, guest.Name, fmt.Errorf("check result: %w", err))
	}
	if done {
		logger.Debug("guest already enriched", logging.String(logging.FieldEventType, "job_already_done"))
		return jobOutcome{kind: outcomeAlreadyDone}
	}

	started := time.Now()
	raced := m.race(ctx, r, *guest, gen)
	err = raced.err
	logger = logger.With(logging.Duration("elapsed", time.Since(started)))
	switch raced.kind {
	case outcomeShutdown:
		logger.Debug("job interrupted by shutdown", logging.String(logging.FieldEventType, "job_interrupted"))
		return jobOutcome{kind: outcomeShutdown}
	case outcomeAbandoned:
		logger.Info("job abandoned", logging.String(logging.FieldEventType, "job_abandoned"))
		return jobOutcome{kind: outcomeAbandoned}
	case outcomeNotStarted:
		logger.Debug("queue stopped before lookup", logging.String(logging.FieldEventType, "job_not_started"))
		return jobOutcome{kind: outcomeNotStarted}
	case outcomeNoData:
		m.saveNoResult(ctx, logger, guestID, err)
		logger.Info("no public data found", logging.String(logging.FieldEventType, "job_no_data"))
		return jobOutcome{kind: outcomeNoData}
	case outcomeFailed:
		m.saveNoResult(ctx, logger, guestID, err)
		logging.WarnWithContext(logger, "research lookup failed", "job_failed",
			append(logging.ErrorDetails(err),
				logging.String(logging.FieldImpact, "guest marked no_result; clear it to retry"),
			)...,
		)
		if errors.Is(err, services.ErrProvider) {
			m.notifyJobError(ctx, r, *guest, err)
		}
		return m.failed(guestID, guest.Name, err)
	}

	result := scoring.Result(guestID, raced.finding)
	if err := m.store.SaveResult(ctx, result); err != nil {
		if ctx.Err() != nil {
			return jobOutcome{kind: outcomeShutdown}
		}
		logging.ErrorWithContext(logger, "result write failed", "result_save_failed",
			logging.ErrorDetails(persistenceError("save result", err))...,
		)
		return m.failed(guestID, guest.Name, fmt.Errorf("save result: %w", err))
	}
	logger.Info("guest enriched",
		logging.String(logging.FieldEventType, "job_succeeded"),
		logging.Int("vip_score", result.VIPScore),
		logging.String("influence_tier", result.InfluenceTier),
		logging.Int("sources", len(result.Sources)),
	)
	return jobOutcome{kind: outcomeSucceeded}
}

// race runs the provider lookup against the job timeout and the queue's
// skip/stop controls. The first signal wins; a lookup that finishes later is
// discarded through the buffered channel. A queue already stopped never
// reaches the provider.
func (m *Manager) race(ctx context.Context, r *run, guest queue.Guest, gen uint64) raceResult {
	if r.currentStatus() == queue.StatusStopped {
		return raceResult{kind: outcomeNotStarted}
	}
	timeout := m.cfg.Queue.JobTimeout()
	lookupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make(chan lookupResult, 1)
	go func() {
		finding, err := m.provider.Lookup(lookupCtx, guest)
		results <- lookupResult{finding: finding, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	ticker := m.newTicker(m.cfg.Queue.CancelPoll())
	defer ticker.Stop()

	for {
		changed := r.waitChan()
		if r.abandoned(gen) {
			return raceResult{kind: outcomeAbandoned}
		}
		select {
		case res := <-results:
			if ctx.Err() != nil {
				return raceResult{kind: outcomeShutdown, err: ctx.Err()}
			}
			switch {
			case res.err == nil:
				return raceResult{kind: outcomeSucceeded, finding: res.finding}
			case errors.Is(res.err, research.ErrNoData):
				return raceResult{kind: outcomeNoData, err: res.err}
			case errors.Is(res.err, context.DeadlineExceeded):
				return raceResult{kind: outcomeFailed, err: timeoutError(timeout)}
			default:
				return raceResult{kind: outcomeFailed, err: res.err}
			}
		case <-timer.C:
			return raceResult{kind: outcomeFailed, err: timeoutError(timeout)}
		case <-ctx.Done():
			return raceResult{kind: outcomeShutdown, err: ctx.Err()}
		case <-ticker.C:
		case <-changed:
		}
	}
}

func timeoutError(timeout time.Duration) error {
	return fmt.Errorf("after %s: %w", timeout, research.ErrProviderTimeout)
}

// saveNoResult writes the no_result sentinel so later runs skip the guest.
// Timeouts and genuine no-data answers share the sentinel.
func (m *Manager) saveNoResult(ctx context.Context, logger *slog.Logger, guestID int64, cause error) {
	reason := "no public data found"
	if cause != nil {
		reason = cause.Error()
	}
	if err := m.store.SaveNoResult(ctx, guestID, m.provider.Name(), reason); err != nil {
		logging.ErrorWithContext(logger, "no_result write failed", "result_save_failed",
			logging.ErrorDetails(persistenceError("save no_result", err))...,
		)
	}
}

func (m *Manager) failed(guestID int64, name string, err error) jobOutcome {
	return jobOutcome{
		kind: outcomeFailed,
		jobErr: &queue.JobError{
			GuestID: guestID,
			Name:    name,
			Error:   err.Error(),
		},
	}
}

func (m *Manager) newTicker(d time.Duration) *time.Ticker {
	if d <= 0 {
		d = 500 * time.Millisecond
	}
	return time.NewTicker(d)
}
