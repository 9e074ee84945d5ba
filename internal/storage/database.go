package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
	// ErrStorageUnavailable is returned when the backing database cannot be
	// opened or reached.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrSchemaMismatch is returned when the database does not have the
	// expected tables or columns.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrSyncStateCorrupt is returned when a persisted watermark cannot be
	// parsed. Callers treat it as "never synced" and re-run a full catch-up.
	ErrSyncStateCorrupt = errors.New("sync state corrupt")
)

// timeFormat is the fixed-precision storage layout for timestamps. It is
// lexicographically sortable, so SQL comparisons on the raw column match
// chronological order.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		// Older rows may carry plain RFC3339 values.
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
		}
	}
	return t, nil
}

// New opens a SQLite database connection at the given path.
// It enables foreign keys and sets connection pool settings.
func New(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	// Enable foreign keys (disabled by default in SQLite)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	return db, nil
}

// Migrate runs database migrations to create the required tables.
// It is idempotent and can be run multiple times safely.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS diary_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			content TEXT NOT NULL,
			tags TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_diary_entries_user_created
			ON diary_entries (user_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS deleted_entries (
			entry_id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL,
			deleted_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sync_state (
			user_id INTEGER PRIMARY KEY,
			last_synced_at TEXT NOT NULL DEFAULT '',
			last_entry_id INTEGER NOT NULL DEFAULT 0,
			entries_indexed INTEGER NOT NULL DEFAULT 0,
			vector_documents INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// CheckSchema verifies that the expected tables and columns exist.
// Returns ErrSchemaMismatch when the store has an unexpected shape.
func CheckSchema(db *sql.DB) error {
	expected := map[string][]string{
		"diary_entries":   {"id", "user_id", "content", "tags", "date", "created_at", "updated_at"},
		"deleted_entries": {"entry_id", "user_id", "deleted_at"},
		"sync_state":      {"user_id", "last_synced_at", "last_entry_id", "entries_indexed", "vector_documents", "updated_at"},
	}

	for table, cols := range expected {
		rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}

		present := make(map[string]bool)
		for rows.Next() {
			var cid int
			var name, colType string
			var notNull, pk int
			var dflt sql.NullString
			if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
				_ = rows.Close()
				return fmt.Errorf("failed to scan table info: %w", err)
			}
			present[name] = true
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return fmt.Errorf("row iteration error: %w", err)
		}
		_ = rows.Close()

		if len(present) == 0 {
			return fmt.Errorf("%w: table %s is missing", ErrSchemaMismatch, table)
		}
		for _, col := range cols {
			if !present[col] {
				return fmt.Errorf("%w: table %s is missing column %s", ErrSchemaMismatch, table, col)
			}
		}
	}

	return nil
}
