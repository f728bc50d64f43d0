package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// timeLayout is how timestamps are stored: UTC, sortable as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB wraps a sql.DB connection to the pulse SQLite database.
type DB struct {
	conn   *sql.DB
	loc    *time.Location
	logger *zap.Logger
}

// Open opens or creates the pulse database at dbPath, creating the parent
// directory and applying pending migrations.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// WAL lets the watch loop read while a log command writes.
	return setup(conn, "PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", "PRAGMA foreign_keys=ON")
}

// OpenInMemory opens a private in-memory database for tests. The pool is
// pinned to one connection so every query sees the same database.
func OpenInMemory() (*DB, error) {
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)
	return setup(conn, "PRAGMA foreign_keys=ON")
}

func setup(conn *sql.DB, pragmas ...string) (*DB, error) {
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("applying %q: %w", p, err)
		}
	}
	db := &DB{conn: conn, loc: time.Local, logger: zap.NewNop()}
	if err := db.Migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return db, nil
}

// SetLocation sets the zone timestamps are returned in. Hour-of-day
// statistics are computed in this zone.
func (db *DB) SetLocation(loc *time.Location) {
	if loc != nil {
		db.loc = loc
	}
}

// SetLogger sets the logger used for write diagnostics.
func (db *DB) SetLogger(logger *zap.Logger) {
	if logger != nil {
		db.logger = logger
	}
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn exposes the underlying connection pool.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func (db *DB) parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.In(db.loc)
}
