package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blackwell-systems/pulse/internal/behavior"
)

// AppendEvent inserts a behavior event and returns its ID. Events without an
// ID get a fresh UUID; a missing domain is derived from the action key.
func (db *DB) AppendEvent(e behavior.Event) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Domain == "" {
		e.Domain = behavior.DomainForKey(e.ActionKey)
	}
	if e.Surface == "" {
		e.Surface = behavior.SurfaceSystem
	}

	var meta sql.NullString
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return "", fmt.Errorf("encoding event metadata: %w", err)
		}
		meta = sql.NullString{String: string(b), Valid: true}
	}

	_, err := db.conn.Exec(
		`INSERT INTO behavior_events
		(id, action_key, domain, surface, outcome, occurred_at, related_entity_id, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ActionKey, string(e.Domain), string(e.Surface), string(e.Outcome),
		formatTime(e.OccurredAt), nullString(e.RelatedEntityID), meta,
	)
	if err != nil {
		return "", err
	}
	db.logger.Debug("event appended",
		zap.String("id", e.ID),
		zap.String("action_key", e.ActionKey),
		zap.String("outcome", string(e.Outcome)),
	)
	return e.ID, nil
}

const eventColumns = "id, action_key, domain, surface, outcome, occurred_at, related_entity_id, metadata"

// EventsSince returns events that occurred at or after since, oldest first.
func (db *DB) EventsSince(since time.Time) ([]behavior.Event, error) {
	return db.queryEvents(
		"SELECT "+eventColumns+" FROM behavior_events WHERE occurred_at >= ? ORDER BY occurred_at, id",
		formatTime(since),
	)
}

// EventsBetween returns events with from <= occurred_at <= to, oldest first.
func (db *DB) EventsBetween(from, to time.Time) ([]behavior.Event, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid event range: %s is before %s", to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	return db.queryEvents(
		"SELECT "+eventColumns+" FROM behavior_events WHERE occurred_at >= ? AND occurred_at <= ? ORDER BY occurred_at, id",
		formatTime(from), formatTime(to),
	)
}

func (db *DB) queryEvents(query string, args ...any) ([]behavior.Event, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []behavior.Event
	for rows.Next() {
		var (
			e                        behavior.Event
			domain, surface, outcome string
			occurredAt               string
			related, meta            sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.ActionKey, &domain, &surface, &outcome, &occurredAt, &related, &meta); err != nil {
			return nil, err
		}
		e.Domain = behavior.Domain(domain)
		e.Surface = behavior.Surface(surface)
		e.Outcome = behavior.Outcome(outcome)
		e.OccurredAt = db.parseTime(occurredAt)
		e.RelatedEntityID = related.String
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &e.Metadata); err != nil {
				return nil, fmt.Errorf("decoding metadata for event %s: %w", e.ID, err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
