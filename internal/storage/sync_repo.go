package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_sync_store.go -package=mocks diary-rag/internal/storage SyncStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"diary-rag/internal/contextutil"
)

// SyncStore defines the interface for per-user sync watermark operations.
type SyncStore interface {
	// Get returns the user's sync state, or a zero-value ("never synced")
	// state when none exists. A state that cannot be parsed is treated the
	// same way, so a corrupt watermark forces a full catch-up rather than
	// silently skipping entries.
	Get(ctx context.Context, userID int64) (SyncState, error)
	// Advance atomically replaces the user's sync state. Callers must only
	// advance after the corresponding vectors are durably stored.
	Advance(ctx context.Context, userID int64, state SyncState) error
}

// SyncRepo persists per-user sync state in SQLite.
// It implements the SyncStore interface.
type SyncRepo struct {
	db *sql.DB
}

// NewSyncRepo creates a new SyncRepo.
func NewSyncRepo(db *sql.DB) *SyncRepo {
	return &SyncRepo{db: db}
}

// Get returns the user's sync state, or a zero-value state when none exists.
func (r *SyncRepo) Get(ctx context.Context, userID int64) (SyncState, error) {
	logger := contextutil.LoggerFromContext(ctx)

	var state SyncState
	var lastSyncedAt, updatedAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, last_synced_at, last_entry_id, entries_indexed, vector_documents, updated_at
		 FROM sync_state WHERE user_id = ?`, userID,
	).Scan(&state.UserID, &lastSyncedAt, &state.LastEntryID,
		&state.EntriesIndexed, &state.VectorDocuments, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return SyncState{UserID: userID}, nil
	}
	if err != nil {
		return SyncState{}, fmt.Errorf("failed to query sync state: %w", err)
	}

	if lastSyncedAt != "" {
		state.LastSyncedAt, err = parseTime(lastSyncedAt)
		if err != nil {
			// Conservative fallback: an unreadable watermark means the next
			// incremental run reprocesses everything. Upsert idempotence
			// makes the catch-up safe.
			logger.WarnContext(ctx, "sync watermark unreadable, treating as never synced",
				"user_id", userID, "error", fmt.Errorf("%w: %v", ErrSyncStateCorrupt, err))
			return SyncState{UserID: userID}, nil
		}
	}
	if updatedAt != "" {
		if t, err := parseTime(updatedAt); err == nil {
			state.UpdatedAt = t
		}
	}

	return state, nil
}

// Advance atomically replaces the user's sync state.
func (r *SyncRepo) Advance(ctx context.Context, userID int64, state SyncState) error {
	lastSyncedAt := ""
	if !state.LastSyncedAt.IsZero() {
		lastSyncedAt = formatTime(state.LastSyncedAt)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_state (user_id, last_synced_at, last_entry_id, entries_indexed, vector_documents, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		 last_synced_at = excluded.last_synced_at,
		 last_entry_id = excluded.last_entry_id,
		 entries_indexed = excluded.entries_indexed,
		 vector_documents = excluded.vector_documents,
		 updated_at = excluded.updated_at`,
		userID, lastSyncedAt, state.LastEntryID,
		state.EntriesIndexed, state.VectorDocuments, formatTime(time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("failed to advance sync state: %w", err)
	}
	return nil
}
