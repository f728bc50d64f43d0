package store

import "fmt"

// currentSchemaVersion is the latest schema version.
const currentSchemaVersion = 1

// Migrate runs forward migrations to bring the database schema up to date.
func (db *DB) Migrate() error {
	if _, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	version := 0
	row := db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1")
	if err := row.Scan(&version); err != nil {
		// No rows means version 0 (fresh database).
		version = 0
	}

	if version < 1 {
		if err := db.migrateV1(); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}

	return nil
}

// migrateV1 creates all initial tables and indexes.
func (db *DB) migrateV1() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS behavior_events (
			id                TEXT PRIMARY KEY,
			action_key        TEXT NOT NULL,
			domain            TEXT NOT NULL,
			surface           TEXT NOT NULL,
			outcome           TEXT NOT NULL,
			occurred_at       TEXT NOT NULL,
			related_entity_id TEXT,
			metadata          TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS nutrition_logs (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			logged_at TEXT NOT NULL,
			calories  REAL NOT NULL,
			protein_g REAL NOT NULL DEFAULT 0,
			note      TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS workouts (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at   TEXT,
			minutes    INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS weight_logs (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			logged_at TEXT NOT NULL,
			weight_kg REAL NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS reminders (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			hour       INTEGER NOT NULL,
			minute     INTEGER NOT NULL,
			active     BOOLEAN NOT NULL DEFAULT true,
			created_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS reminder_completions (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			reminder_id  TEXT NOT NULL REFERENCES reminders(id),
			completed_at TEXT NOT NULL,
			was_on_time  BOOLEAN NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,

		// Indexes.
		`CREATE INDEX IF NOT EXISTS idx_events_occurred ON behavior_events(occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_key ON behavior_events(action_key)`,
		`CREATE INDEX IF NOT EXISTS idx_nutrition_logged ON nutrition_logs(logged_at)`,
		`CREATE INDEX IF NOT EXISTS idx_workouts_started ON workouts(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_weight_logged ON weight_logs(logged_at)`,
		`CREATE INDEX IF NOT EXISTS idx_completions_reminder ON reminder_completions(reminder_id)`,
		`CREATE INDEX IF NOT EXISTS idx_completions_at ON reminder_completions(completed_at)`,
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt[:40], err)
		}
	}

	// Set schema version.
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion); err != nil {
		return err
	}

	return tx.Commit()
}
