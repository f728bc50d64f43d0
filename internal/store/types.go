// Package store provides SQLite persistence for behavior events, nutrition,
// workout, and weight logs, reminders, and policy cooldowns.
package store

import (
	"time"

	"github.com/blackwell-systems/pulse/internal/patterns"
)

// Reminder is a custom reminder definition.
type Reminder struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Hour      int       `json:"hour"`
	Minute    int       `json:"minute"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Candidate converts the definition into a pending reminder candidate.
func (r Reminder) Candidate() patterns.ReminderCandidate {
	return patterns.NewReminderCandidate(r.ID, r.Title, r.Hour, r.Minute)
}

// Workout is a stored workout session.
type Workout struct {
	ID string `json:"id"`
	patterns.WorkoutEntry
}

// ReminderStatus describes a reminder's state for one day.
type ReminderStatus struct {
	Reminder
	CompletedToday bool `json:"completed_today"`
	Missed         bool `json:"missed"`
}
