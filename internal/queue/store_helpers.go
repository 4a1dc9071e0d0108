package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

const (
	checkpointColumns = "id, status, completed, next_index, concurrency, batch_id, started_at, updated_at, completed_at"
	guestColumns      = "id, name, email, company, city, country, vip_score, influence_tier, enrichment_summary, enriched_at, created_at, updated_at"
	resultColumns     = "guest_id, status, vip_score, influence_tier, summary, occupation, company, location, followers, sources_json, provider, model, reason, created_at"
)

type rowScanner interface{ Scan(dest ...any) error }

func scanCheckpoint(scanner rowScanner) (*Checkpoint, error) {
	var (
		cp           Checkpoint
		statusStr    string
		batchID      sql.NullString
		startedRaw   string
		updatedRaw   string
		completedRaw sql.NullString
	)
	if err := scanner.Scan(
		&cp.ID,
		&statusStr,
		&cp.Completed,
		&cp.NextIndex,
		&cp.Concurrency,
		&batchID,
		&startedRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}
	cp.Status = Status(statusStr)
	cp.BatchID = batchID.String
	if t, err := parseTimeString(startedRaw); err == nil {
		cp.StartedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		cp.UpdatedAt = t
	}
	if completedRaw.Valid {
		if t, err := parseTimeString(completedRaw.String); err == nil {
			cp.CompletedAt = &t
		}
	}
	return &cp, nil
}

func scanGuest(scanner rowScanner) (*Guest, error) {
	var (
		g          Guest
		email      sql.NullString
		company    sql.NullString
		city       sql.NullString
		country    sql.NullString
		vipScore   sql.NullInt64
		tier       sql.NullString
		summary    sql.NullString
		enrichedAt sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&g.ID,
		&g.Name,
		&email,
		&company,
		&city,
		&country,
		&vipScore,
		&tier,
		&summary,
		&enrichedAt,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	g.Email = email.String
	g.Company = company.String
	g.City = city.String
	g.Country = country.String
	g.VIPScore = int(vipScore.Int64)
	g.InfluenceTier = tier.String
	g.EnrichmentSummary = summary.String
	if enrichedAt.Valid {
		if t, err := parseTimeString(enrichedAt.String); err == nil {
			g.EnrichedAt = &t
		}
	}
	if t, err := parseTimeString(createdRaw); err == nil {
		g.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		g.UpdatedAt = t
	}
	return &g, nil
}

func scanResult(scanner rowScanner) (*Result, error) {
	var (
		r          Result
		statusStr  string
		vipScore   sql.NullInt64
		tier       sql.NullString
		summary    sql.NullString
		occupation sql.NullString
		company    sql.NullString
		location   sql.NullString
		followers  sql.NullInt64
		sources    sql.NullString
		provider   sql.NullString
		model      sql.NullString
		reason     sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(
		&r.GuestID,
		&statusStr,
		&vipScore,
		&tier,
		&summary,
		&occupation,
		&company,
		&location,
		&followers,
		&sources,
		&provider,
		&model,
		&reason,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	r.Status = ResultStatus(statusStr)
	r.VIPScore = int(vipScore.Int64)
	r.InfluenceTier = tier.String
	r.Summary = summary.String
	r.Occupation = occupation.String
	r.Company = company.String
	r.Location = location.String
	r.Followers = followers.Int64
	r.Provider = provider.String
	r.Model = model.String
	r.Reason = reason.String
	if sources.Valid && sources.String != "" {
		if err := json.Unmarshal([]byte(sources.String), &r.Sources); err != nil {
			return nil, err
		}
	}
	if t, err := parseTimeString(createdRaw); err == nil {
		r.CreatedAt = t
	}
	return &r, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
