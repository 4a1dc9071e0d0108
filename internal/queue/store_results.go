package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// HasResult reports whether the guest already has a result or sentinel.
func (s *Store) HasResult(ctx context.Context, guestID int64) (bool, error) {
	ctx = ensureContext(ctx)
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM enrichment_results WHERE guest_id = ?)`, guestID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check result: %w", err)
	}
	return exists == 1, nil
}

// GetResult returns the guest's result or nil when none exists.
func (s *Store) GetResult(ctx context.Context, guestID int64) (*Result, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+resultColumns+` FROM enrichment_results WHERE guest_id = ?`, guestID)
	result, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	return result, nil
}

// SaveResult persists a found result and copies its summary onto the guest
// row in the same transaction. It replaces any earlier result or sentinel.
func (s *Store) SaveResult(ctx context.Context, result Result) error {
	if result.GuestID <= 0 {
		return errors.New("result guest id is required")
	}
	sources, err := json.Marshal(result.Sources)
	if err != nil {
		return fmt.Errorf("encode sources: %w", err)
	}
	created := result.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO enrichment_results
			(`+resultColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(guest_id) DO UPDATE SET
				status = excluded.status,
				vip_score = excluded.vip_score,
				influence_tier = excluded.influence_tier,
				summary = excluded.summary,
				occupation = excluded.occupation,
				company = excluded.company,
				location = excluded.location,
				followers = excluded.followers,
				sources_json = excluded.sources_json,
				provider = excluded.provider,
				model = excluded.model,
				reason = NULL,
				created_at = excluded.created_at`,
			result.GuestID,
			string(ResultFound),
			result.VIPScore,
			nullableString(result.InfluenceTier),
			nullableString(strings.TrimSpace(result.Summary)),
			nullableString(result.Occupation),
			nullableString(result.Company),
			nullableString(result.Location),
			result.Followers,
			string(sources),
			nullableString(result.Provider),
			nullableString(result.Model),
			nil,
			formatTime(created),
		); err != nil {
			return fmt.Errorf("upsert result: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE guests SET
				vip_score = ?, influence_tier = ?, enrichment_summary = ?, enriched_at = ?, updated_at = ?
			WHERE id = ?`,
			result.VIPScore,
			nullableString(result.InfluenceTier),
			nullableString(strings.TrimSpace(result.Summary)),
			formatTime(created),
			formatTime(time.Now()),
			result.GuestID,
		); err != nil {
			return fmt.Errorf("update guest summary: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save result for guest %d: %w", result.GuestID, err)
	}
	return nil
}

// SaveNoResult writes the "no result" sentinel so later runs treat the guest
// as already processed. A failed lookup and a lookup that found nothing share
// this marker. An existing result is never overwritten.
func (s *Store) SaveNoResult(ctx context.Context, guestID int64, provider, reason string) error {
	_, err := s.execWithRetry(ctx, `INSERT INTO enrichment_results
		(guest_id, status, provider, reason, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guest_id) DO NOTHING`,
		guestID,
		string(ResultNoResult),
		nullableString(provider),
		nullableString(strings.TrimSpace(reason)),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save no-result for guest %d: %w", guestID, err)
	}
	return nil
}

// ClearResult removes the guest's result or sentinel so a later run looks
// the guest up again. It reports whether a row was removed.
func (s *Store) ClearResult(ctx context.Context, guestID int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM enrichment_results WHERE guest_id = ?`, guestID)
	if err != nil {
		return false, fmt.Errorf("clear result for guest %d: %w", guestID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ClearNoResults removes every sentinel row, returning the guests to the
// pending set.
func (s *Store) ClearNoResults(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM enrichment_results WHERE status = ?`, string(ResultNoResult))
	if err != nil {
		return 0, fmt.Errorf("clear no-result sentinels: %w", err)
	}
	return res.RowsAffected()
}
