package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/pulse/internal/patterns"
)

// ErrNoActiveWorkout is returned when finishing a workout that was never started.
var ErrNoActiveWorkout = errors.New("no active workout")

// InsertNutrition records a food log entry.
func (db *DB) InsertNutrition(n patterns.NutritionEntry, note string) error {
	_, err := db.conn.Exec(
		"INSERT INTO nutrition_logs (logged_at, calories, protein_g, note) VALUES (?, ?, ?, ?)",
		formatTime(n.LoggedAt), n.Calories, n.ProteinG, nullString(note),
	)
	return err
}

// InsertWeight records a weigh-in.
func (db *DB) InsertWeight(w patterns.WeightEntry) error {
	_, err := db.conn.Exec(
		"INSERT INTO weight_logs (logged_at, weight_kg) VALUES (?, ?)",
		formatTime(w.LoggedAt), w.WeightKg,
	)
	return err
}

// InsertWorkout records a workout session and returns its ID. A zero EndedAt
// leaves the workout active.
func (db *DB) InsertWorkout(w patterns.WorkoutEntry) (string, error) {
	id := uuid.NewString()
	var ended sql.NullString
	if !w.EndedAt.IsZero() {
		ended = sql.NullString{String: formatTime(w.EndedAt), Valid: true}
	}
	_, err := db.conn.Exec(
		"INSERT INTO workouts (id, name, started_at, ended_at, minutes) VALUES (?, ?, ?, ?, ?)",
		id, w.Name, formatTime(w.StartedAt), ended, w.Minutes,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// FinishActiveWorkout ends the most recently started active workout.
func (db *DB) FinishActiveWorkout(endedAt time.Time) (*Workout, error) {
	row := db.conn.QueryRow(
		`SELECT id, name, started_at FROM workouts
		 WHERE ended_at IS NULL ORDER BY started_at DESC LIMIT 1`,
	)
	var (
		w       Workout
		started string
	)
	if err := row.Scan(&w.ID, &w.Name, &started); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveWorkout
		}
		return nil, err
	}
	w.StartedAt = db.parseTime(started)
	w.EndedAt = endedAt.In(db.loc)
	w.Minutes = int(endedAt.Sub(w.StartedAt).Minutes())

	if _, err := db.conn.Exec(
		"UPDATE workouts SET ended_at = ?, minutes = ? WHERE id = ?",
		formatTime(endedAt), w.Minutes, w.ID,
	); err != nil {
		return nil, fmt.Errorf("finishing workout %s: %w", w.ID, err)
	}
	return &w, nil
}

// LoadInputs returns all nutrition, workout, and weight logs since the given
// time. Active workouts are always included.
func (db *DB) LoadInputs(since time.Time) (patterns.Inputs, error) {
	var in patterns.Inputs
	var err error
	if in.Nutrition, err = db.nutritionSince(since); err != nil {
		return in, fmt.Errorf("loading nutrition logs: %w", err)
	}
	if in.Workouts, err = db.workoutsSince(since); err != nil {
		return in, fmt.Errorf("loading workouts: %w", err)
	}
	if in.Weights, err = db.weightsSince(since); err != nil {
		return in, fmt.Errorf("loading weight logs: %w", err)
	}
	return in, nil
}

func (db *DB) nutritionSince(since time.Time) ([]patterns.NutritionEntry, error) {
	rows, err := db.conn.Query(
		"SELECT logged_at, calories, protein_g FROM nutrition_logs WHERE logged_at >= ? ORDER BY logged_at",
		formatTime(since),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []patterns.NutritionEntry
	for rows.Next() {
		var n patterns.NutritionEntry
		var loggedAt string
		if err := rows.Scan(&loggedAt, &n.Calories, &n.ProteinG); err != nil {
			return nil, err
		}
		n.LoggedAt = db.parseTime(loggedAt)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (db *DB) workoutsSince(since time.Time) ([]patterns.WorkoutEntry, error) {
	rows, err := db.conn.Query(
		`SELECT name, started_at, ended_at, minutes FROM workouts
		 WHERE started_at >= ? OR ended_at IS NULL ORDER BY started_at`,
		formatTime(since),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []patterns.WorkoutEntry
	for rows.Next() {
		var w patterns.WorkoutEntry
		var started string
		var ended sql.NullString
		if err := rows.Scan(&w.Name, &started, &ended, &w.Minutes); err != nil {
			return nil, err
		}
		w.StartedAt = db.parseTime(started)
		if ended.Valid {
			w.EndedAt = db.parseTime(ended.String)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (db *DB) weightsSince(since time.Time) ([]patterns.WeightEntry, error) {
	rows, err := db.conn.Query(
		"SELECT logged_at, weight_kg FROM weight_logs WHERE logged_at >= ? ORDER BY logged_at",
		formatTime(since),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []patterns.WeightEntry
	for rows.Next() {
		var w patterns.WeightEntry
		var loggedAt string
		if err := rows.Scan(&loggedAt, &w.WeightKg); err != nil {
			return nil, err
		}
		w.LoggedAt = db.parseTime(loggedAt)
		out = append(out, w)
	}
	return out, rows.Err()
}

// LatestWeight returns the most recent weigh-in, or nil if there is none.
func (db *DB) LatestWeight() (*patterns.WeightEntry, error) {
	row := db.conn.QueryRow("SELECT logged_at, weight_kg FROM weight_logs ORDER BY logged_at DESC LIMIT 1")
	var w patterns.WeightEntry
	var loggedAt string
	err := row.Scan(&loggedAt, &w.WeightKg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	w.LoggedAt = db.parseTime(loggedAt)
	return &w, nil
}
