package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_entry_store.go -package=mocks diary-rag/internal/storage EntryStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// EntryStore defines the interface for diary entry storage operations.
// The indexing core only reads; create/edit/delete are driven by the API
// layer, with deletes leaving tombstones for the next indexing run.
type EntryStore interface {
	// ListByUser returns a user's entries ordered by created_at ascending.
	// since filters to entries whose created_at or updated_at is strictly
	// after it; until excludes entries created at or after it. Either bound
	// may be nil. The read is pure and restartable.
	ListByUser(ctx context.Context, userID int64, since, until *time.Time) ([]*Entry, error)
	// GetByID gets an entry by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id int64) (*Entry, error)
	// Insert creates a new entry and fills in its ID and timestamps.
	Insert(ctx context.Context, entry *Entry) error
	// Update rewrites content/tags/date of an existing entry and bumps
	// updated_at, producing a new version for sync comparison.
	Update(ctx context.Context, entry *Entry) error
	// Delete removes an entry and records a tombstone in one transaction.
	Delete(ctx context.Context, id int64) error
	// CountByUser returns the number of entries a user has.
	CountByUser(ctx context.Context, userID int64) (int, error)
	// ListTombstones returns deletions not yet propagated to the index.
	ListTombstones(ctx context.Context, userID int64) ([]Tombstone, error)
	// ClearTombstones removes tombstones once their vectors are gone.
	ClearTombstones(ctx context.Context, userID int64, entryIDs []int64) error
}

// EntryRepo provides methods for diary entry operations.
// It implements the EntryStore interface.
type EntryRepo struct {
	db *sql.DB
}

// NewEntryRepo creates a new EntryRepo.
func NewEntryRepo(db *sql.DB) *EntryRepo {
	return &EntryRepo{db: db}
}

// DB exposes the underlying database handle for read-only statistics queries.
func (r *EntryRepo) DB() *sql.DB {
	return r.db
}

const entryCols = "id, user_id, content, tags, date, created_at, updated_at"

func scanEntry(scan func(dest ...any) error) (*Entry, error) {
	var e Entry
	var createdAt, updatedAt string
	if err := scan(&e.ID, &e.UserID, &e.Content, &e.Tags, &e.Date, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByUser returns a user's entries ordered by last modification (the
// newer of created_at and updated_at) ascending. The order matches the
// since filter, so a watermark advanced batch by batch over the result can
// never pass an entry that has not been returned yet, even when an old
// entry was recently edited.
func (r *EntryRepo) ListByUser(ctx context.Context, userID int64, since, until *time.Time) ([]*Entry, error) {
	query := "SELECT " + entryCols + " FROM diary_entries WHERE user_id = ?"
	args := []any{userID}

	if since != nil {
		s := formatTime(*since)
		query += " AND (created_at > ? OR updated_at > ?)"
		args = append(args, s, s)
	}
	if until != nil {
		query += " AND created_at < ?"
		args = append(args, formatTime(*until))
	}
	// Scalar MAX compares the stored strings, which sort chronologically.
	query += " ORDER BY MAX(created_at, updated_at) ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// GetByID gets an entry by its ID. Returns ErrNotFound if not found.
func (r *EntryRepo) GetByID(ctx context.Context, id int64) (*Entry, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+entryCols+" FROM diary_entries WHERE id = ?", id)

	entry, err := scanEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query entry: %w", err)
	}
	return entry, nil
}

// Insert creates a new entry and fills in its ID and timestamps.
func (r *EntryRepo) Insert(ctx context.Context, entry *Entry) error {
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	if entry.Date == "" {
		entry.Date = now.Format("2006-01-02")
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO diary_entries (user_id, content, tags, date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.UserID, entry.Content, entry.Tags, entry.Date,
		formatTime(entry.CreatedAt), formatTime(entry.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read entry id: %w", err)
	}
	return nil
}

// Update rewrites content/tags/date of an existing entry and bumps updated_at.
func (r *EntryRepo) Update(ctx context.Context, entry *Entry) error {
	entry.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE diary_entries SET content = ?, tags = ?, date = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		entry.Content, entry.Tags, entry.Date, formatTime(entry.UpdatedAt),
		entry.ID, entry.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an entry and records a tombstone in one transaction, so a
// later indexing run observes the deletion and drops the entry's vectors.
func (r *EntryRepo) Delete(ctx context.Context, id int64) error {
	entry, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM diary_entries WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO deleted_entries (entry_id, user_id, deleted_at) VALUES (?, ?, ?)
		 ON CONFLICT (entry_id) DO UPDATE SET deleted_at = excluded.deleted_at`,
		id, entry.UserID, formatTime(time.Now().UTC()),
	); err != nil {
		return fmt.Errorf("failed to record tombstone: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// CountByUser returns the number of entries a user has.
func (r *EntryRepo) CountByUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM diary_entries WHERE user_id = ?", userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// ListTombstones returns deletions not yet propagated to the vector index.
func (r *EntryRepo) ListTombstones(ctx context.Context, userID int64) ([]Tombstone, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT entry_id, user_id, deleted_at FROM deleted_entries WHERE user_id = ? ORDER BY deleted_at ASC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tombstones: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var tombstones []Tombstone
	for rows.Next() {
		var t Tombstone
		var deletedAt string
		if err := rows.Scan(&t.EntryID, &t.UserID, &deletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tombstone: %w", err)
		}
		if t.DeletedAt, err = parseTime(deletedAt); err != nil {
			return nil, err
		}
		tombstones = append(tombstones, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tombstones, nil
}

// ClearTombstones removes tombstones once their vectors are gone from the index.
func (r *EntryRepo) ClearTombstones(ctx context.Context, userID int64, entryIDs []int64) error {
	for _, id := range entryIDs {
		if _, err := r.db.ExecContext(ctx,
			"DELETE FROM deleted_entries WHERE user_id = ? AND entry_id = ?",
			userID, id,
		); err != nil {
			return fmt.Errorf("failed to clear tombstone: %w", err)
		}
	}
	return nil
}
