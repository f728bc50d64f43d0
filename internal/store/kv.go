package store

import (
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"
)

// planUpdatedKey stores when the user's plan last changed.
const planUpdatedKey = "plan.updated_at"

// Get returns the value stored under key.
func (db *DB) Get(key string) (string, bool, error) {
	var value string
	err := db.conn.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (db *DB) Set(key, value string) error {
	_, err := db.conn.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, formatTime(time.Now()),
	)
	return err
}

// LastShown returns the last time content gated by key was shown.
func (db *DB) LastShown(key string) (time.Time, bool, error) {
	v, ok, err := db.Get(key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return db.parseTime(v), true, nil
}

// MarkShown records that content gated by key was shown at t.
func (db *DB) MarkShown(key string, t time.Time) error {
	db.logger.Debug("cooldown marked", zap.String("key", key), zap.Time("at", t))
	return db.Set(key, formatTime(t))
}

// PlanUpdatedAt returns when the plan was last changed, or the zero time.
func (db *DB) PlanUpdatedAt() (time.Time, error) {
	t, _, err := db.LastShown(planUpdatedKey)
	return t, err
}

// SetPlanUpdatedAt records a plan change.
func (db *DB) SetPlanUpdatedAt(t time.Time) error {
	return db.MarkShown(planUpdatedKey, t)
}
