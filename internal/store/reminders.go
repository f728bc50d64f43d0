package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/pulse/internal/behavior"
	"github.com/blackwell-systems/pulse/internal/patterns"
)

// ErrReminderNotFound is returned for an unknown reminder ID.
var ErrReminderNotFound = errors.New("reminder not found")

// AddReminder creates an active reminder scheduled daily at hour:minute.
func (db *DB) AddReminder(title string, hour, minute int, now time.Time) (Reminder, error) {
	if title == "" {
		return Reminder{}, errors.New("reminder title is required")
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Reminder{}, fmt.Errorf("invalid reminder time %02d:%02d", hour, minute)
	}
	r := Reminder{
		ID:        uuid.NewString(),
		Title:     title,
		Hour:      hour,
		Minute:    minute,
		Active:    true,
		CreatedAt: now.In(db.loc),
	}
	_, err := db.conn.Exec(
		"INSERT INTO reminders (id, title, hour, minute, active, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		r.ID, r.Title, r.Hour, r.Minute, r.Active, formatTime(now),
	)
	if err != nil {
		return Reminder{}, err
	}
	return r, nil
}

// GetReminder returns a reminder by ID.
func (db *DB) GetReminder(id string) (Reminder, error) {
	row := db.conn.QueryRow(
		"SELECT id, title, hour, minute, active, created_at FROM reminders WHERE id = ?", id,
	)
	var r Reminder
	var created string
	err := row.Scan(&r.ID, &r.Title, &r.Hour, &r.Minute, &r.Active, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Reminder{}, ErrReminderNotFound
	}
	if err != nil {
		return Reminder{}, err
	}
	r.CreatedAt = db.parseTime(created)
	return r, nil
}

// ListReminders returns reminders ordered by scheduled time.
func (db *DB) ListReminders(activeOnly bool) ([]Reminder, error) {
	query := "SELECT id, title, hour, minute, active, created_at FROM reminders"
	if activeOnly {
		query += " WHERE active = true"
	}
	query += " ORDER BY hour, minute, title, id"

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Reminder
	for rows.Next() {
		var r Reminder
		var created string
		if err := rows.Scan(&r.ID, &r.Title, &r.Hour, &r.Minute, &r.Active, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = db.parseTime(created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeactivateReminder stops a reminder from being offered.
func (db *DB) DeactivateReminder(id string) error {
	res, err := db.conn.Exec("UPDATE reminders SET active = false WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrReminderNotFound
	}
	return nil
}

// CompleteReminder records a completion, marking it on time when it falls
// within 30 minutes of the scheduled time.
func (db *DB) CompleteReminder(id string, at time.Time) (patterns.ReminderCompletion, error) {
	r, err := db.GetReminder(id)
	if err != nil {
		return patterns.ReminderCompletion{}, err
	}
	c := patterns.NewCompletion(r.Candidate(), at.In(db.loc))
	if _, err := db.conn.Exec(
		"INSERT INTO reminder_completions (reminder_id, completed_at, was_on_time) VALUES (?, ?, ?)",
		c.ReminderID, formatTime(c.CompletedAt), c.WasOnTime,
	); err != nil {
		return patterns.ReminderCompletion{}, err
	}
	return c, nil
}

// CompletionsSince returns completions at or after since, newest first.
func (db *DB) CompletionsSince(since time.Time) ([]patterns.ReminderCompletion, error) {
	rows, err := db.conn.Query(
		`SELECT reminder_id, completed_at, was_on_time FROM reminder_completions
		 WHERE completed_at >= ? ORDER BY completed_at DESC`,
		formatTime(since),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []patterns.ReminderCompletion
	for rows.Next() {
		var c patterns.ReminderCompletion
		var completed string
		if err := rows.Scan(&c.ReminderID, &completed, &c.WasOnTime); err != nil {
			return nil, err
		}
		c.CompletedAt = db.parseTime(completed)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ReminderStatuses reports, for every active reminder, whether it was
// completed today and whether its time has passed without completion.
func (db *DB) ReminderStatuses(now time.Time) ([]ReminderStatus, error) {
	reminders, err := db.ListReminders(true)
	if err != nil {
		return nil, fmt.Errorf("listing reminders: %w", err)
	}
	local := now.In(db.loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, db.loc)
	completions, err := db.CompletionsSince(midnight)
	if err != nil {
		return nil, fmt.Errorf("loading completions: %w", err)
	}

	done := make(map[string]bool)
	for _, c := range completions {
		if !c.CompletedAt.After(now) && behavior.CalendarDaysBetween(c.CompletedAt, local) == 0 {
			done[c.ReminderID] = true
		}
	}

	nowMinute := local.Hour()*60 + local.Minute()
	statuses := make([]ReminderStatus, 0, len(reminders))
	for _, r := range reminders {
		s := ReminderStatus{Reminder: r, CompletedToday: done[r.ID]}
		s.Missed = !s.CompletedToday && r.Candidate().MinuteOfDay() < nowMinute
		statuses = append(statuses, s)
	}
	return statuses, nil
}

// PendingReminders returns active reminders not yet completed today, along
// with the number whose time has already passed.
func (db *DB) PendingReminders(now time.Time) ([]patterns.ReminderCandidate, int, error) {
	statuses, err := db.ReminderStatuses(now)
	if err != nil {
		return nil, 0, err
	}
	pending := make([]patterns.ReminderCandidate, 0, len(statuses))
	missed := 0
	for _, s := range statuses {
		if s.CompletedToday {
			continue
		}
		pending = append(pending, s.Candidate())
		if s.Missed {
			missed++
		}
	}
	return pending, missed, nil
}
