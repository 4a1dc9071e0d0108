package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SaveCheckpoint upserts the queue row and appends any guest ids or errors
// not yet persisted. Guest ids are immutable once written and errors only
// grow, so both child tables are append-only.
func (s *Store) SaveCheckpoint(ctx context.Context, cp *Checkpoint) error {
	if cp == nil || strings.TrimSpace(cp.ID) == "" {
		return errors.New("checkpoint id is required")
	}
	now := time.Now().UTC()
	startedAt := cp.StartedAt
	if startedAt.IsZero() {
		startedAt = now
	}
	updatedAt := cp.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO enrichment_queues
			(id, status, completed, next_index, concurrency, total, batch_id, started_at, updated_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				status = excluded.status,
				completed = excluded.completed,
				next_index = excluded.next_index,
				updated_at = excluded.updated_at,
				completed_at = excluded.completed_at`,
			cp.ID,
			string(cp.Status),
			cp.Completed,
			cp.NextIndex,
			cp.Concurrency,
			len(cp.GuestIDs),
			nullableString(cp.BatchID),
			formatTime(startedAt),
			formatTime(updatedAt),
			nullableTime(cp.CompletedAt),
		); err != nil {
			return fmt.Errorf("upsert queue: %w", err)
		}

		var storedGuests int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM enrichment_queue_guests WHERE queue_id = ?`, cp.ID,
		).Scan(&storedGuests); err != nil {
			return fmt.Errorf("count queue guests: %w", err)
		}
		if storedGuests < len(cp.GuestIDs) {
			stmt, err := tx.PrepareContext(ctx,
				`INSERT INTO enrichment_queue_guests (queue_id, position, guest_id) VALUES (?, ?, ?)`)
			if err != nil {
				return fmt.Errorf("prepare queue guests: %w", err)
			}
			defer stmt.Close()
			for pos := storedGuests; pos < len(cp.GuestIDs); pos++ {
				if _, err := stmt.ExecContext(ctx, cp.ID, pos, cp.GuestIDs[pos]); err != nil {
					return fmt.Errorf("insert queue guest: %w", err)
				}
			}
		}

		var storedErrors int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM enrichment_queue_errors WHERE queue_id = ?`, cp.ID,
		).Scan(&storedErrors); err != nil {
			return fmt.Errorf("count queue errors: %w", err)
		}
		for seq := storedErrors; seq < len(cp.Errors); seq++ {
			e := cp.Errors[seq]
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO enrichment_queue_errors (queue_id, seq, guest_id, name, error) VALUES (?, ?, ?, ?, ?)`,
				cp.ID, seq, e.GuestID, nullableString(e.Name), e.Error,
			); err != nil {
				return fmt.Errorf("insert queue error: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", cp.ID, err)
	}
	return nil
}

// LoadCheckpoint returns the persisted queue or nil when it does not exist.
func (s *Store) LoadCheckpoint(ctx context.Context, id string) (*Checkpoint, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+checkpointColumns+` FROM enrichment_queues WHERE id = ?`, id)
	cp, err := scanCheckpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if err := s.loadCheckpointChildren(ctx, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// ResumableCheckpoints returns every queue left running or paused, oldest first.
func (s *Store) ResumableCheckpoints(ctx context.Context) ([]*Checkpoint, error) {
	return s.queryCheckpoints(ctx,
		`SELECT `+checkpointColumns+` FROM enrichment_queues WHERE status IN (?, ?) ORDER BY started_at, id`,
		string(StatusRunning), string(StatusPaused),
	)
}

// ListCheckpoints returns the most recently updated queues. A limit <= 0
// returns all of them.
func (s *Store) ListCheckpoints(ctx context.Context, limit int) ([]*Checkpoint, error) {
	query := `SELECT ` + checkpointColumns + ` FROM enrichment_queues ORDER BY updated_at DESC, id`
	if limit > 0 {
		return s.queryCheckpoints(ctx, query+` LIMIT ?`, limit)
	}
	return s.queryCheckpoints(ctx, query)
}

// PruneCheckpoints deletes stopped and completed queues last updated before cutoff.
func (s *Store) PruneCheckpoints(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM enrichment_queues WHERE status IN (?, ?) AND updated_at < ?`,
		string(StatusStopped), string(StatusCompleted), formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("prune checkpoints: %w", err)
	}
	return res.RowsAffected()
}

// CheckpointStats counts persisted queues by status.
func (s *Store) CheckpointStats(ctx context.Context) (CheckpointSummary, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM enrichment_queues GROUP BY status`)
	if err != nil {
		return CheckpointSummary{}, fmt.Errorf("checkpoint stats: %w", err)
	}
	defer rows.Close()

	var summary CheckpointSummary
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return CheckpointSummary{}, err
		}
		summary.Total += count
		switch Status(status) {
		case StatusRunning:
			summary.Running = count
		case StatusPaused:
			summary.Paused = count
		case StatusStopped:
			summary.Stopped = count
		case StatusCompleted:
			summary.Completed = count
		}
	}
	return summary, rows.Err()
}

func (s *Store) queryCheckpoints(ctx context.Context, query string, args ...any) ([]*Checkpoint, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}
	var checkpoints []*Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		checkpoints = append(checkpoints, cp)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	for _, cp := range checkpoints {
		if err := s.loadCheckpointChildren(ctx, cp); err != nil {
			return nil, err
		}
	}
	return checkpoints, nil
}

func (s *Store) loadCheckpointChildren(ctx context.Context, cp *Checkpoint) error {
	guestRows, err := s.db.QueryContext(ctx,
		`SELECT guest_id FROM enrichment_queue_guests WHERE queue_id = ? ORDER BY position`, cp.ID)
	if err != nil {
		return fmt.Errorf("load queue guests: %w", err)
	}
	for guestRows.Next() {
		var id int64
		if err := guestRows.Scan(&id); err != nil {
			guestRows.Close()
			return fmt.Errorf("scan queue guest: %w", err)
		}
		cp.GuestIDs = append(cp.GuestIDs, id)
	}
	err = guestRows.Err()
	guestRows.Close()
	if err != nil {
		return err
	}

	errorRows, err := s.db.QueryContext(ctx,
		`SELECT guest_id, name, error FROM enrichment_queue_errors WHERE queue_id = ? ORDER BY seq`, cp.ID)
	if err != nil {
		return fmt.Errorf("load queue errors: %w", err)
	}
	defer errorRows.Close()
	for errorRows.Next() {
		var (
			e    JobError
			name sql.NullString
		)
		if err := errorRows.Scan(&e.GuestID, &name, &e.Error); err != nil {
			return fmt.Errorf("scan queue error: %w", err)
		}
		e.Name = name.String
		cp.Errors = append(cp.Errors, e)
	}
	return errorRows.Err()
}
