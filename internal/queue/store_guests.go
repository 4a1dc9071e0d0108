package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// AddGuest inserts a guest record and returns its id.
func (s *Store) AddGuest(ctx context.Context, guest Guest) (int64, error) {
	name := strings.TrimSpace(guest.Name)
	if name == "" {
		return 0, errors.New("guest name is required")
	}
	now := formatTime(time.Now())
	res, err := s.execWithRetry(ctx,
		`INSERT INTO guests (name, email, company, city, country, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		name,
		nullableString(strings.TrimSpace(guest.Email)),
		nullableString(strings.TrimSpace(guest.Company)),
		nullableString(strings.TrimSpace(guest.City)),
		nullableString(strings.TrimSpace(guest.Country)),
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert guest: %w", err)
	}
	return res.LastInsertId()
}

// GetGuest returns the guest or nil when it does not exist.
func (s *Store) GetGuest(ctx context.Context, id int64) (*Guest, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+guestColumns+` FROM guests WHERE id = ?`, id)
	guest, err := scanGuest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get guest: %w", err)
	}
	return guest, nil
}

// PendingGuestIDs lists guests without any result or sentinel, in id order.
func (s *Store) PendingGuestIDs(ctx context.Context) ([]int64, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT g.id FROM guests g
		LEFT JOIN enrichment_results r ON r.guest_id = g.id
		WHERE r.guest_id IS NULL
		ORDER BY g.id`)
	if err != nil {
		return nil, fmt.Errorf("pending guests: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ResultStats reports how many guests have results, sentinels, or nothing yet.
func (s *Store) ResultStats(ctx context.Context) (ResultSummary, error) {
	ctx = ensureContext(ctx)
	var summary ResultSummary
	err := s.db.QueryRowContext(ctx, `SELECT
			COUNT(1),
			COALESCE(SUM(CASE WHEN r.status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN r.status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN r.guest_id IS NULL THEN 1 ELSE 0 END), 0)
		FROM guests g LEFT JOIN enrichment_results r ON r.guest_id = g.id`,
		string(ResultFound), string(ResultNoResult),
	).Scan(&summary.Guests, &summary.Found, &summary.NoResult, &summary.Pending)
	if err != nil {
		return ResultSummary{}, fmt.Errorf("result stats: %w", err)
	}
	return summary, nil
}
