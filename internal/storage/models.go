package storage

import "time"

// Entry represents one user-authored diary entry.
// An entry is immutable once handed to the indexing pipeline for a given
// version; edits bump UpdatedAt, which the sync tracker compares against
// the watermark.
type Entry struct {
	ID        int64
	UserID    int64
	Content   string
	Tags      string // free-form, space or comma separated
	Date      string // ISO date (YYYY-MM-DD) the entry is about
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Tombstone records an entry deleted at the source so that the next
// indexing run can remove its vectors from the index.
type Tombstone struct {
	EntryID   int64
	UserID    int64
	DeletedAt time.Time
}

// SyncState is the per-user watermark of the last successfully indexed
// entry, plus counts for observability.
type SyncState struct {
	UserID          int64
	LastSyncedAt    time.Time // zero when never synced
	LastEntryID     int64
	EntriesIndexed  int
	VectorDocuments int
	UpdatedAt       time.Time
}

// Synced reports whether this state has a usable watermark.
func (s SyncState) Synced() bool {
	return !s.LastSyncedAt.IsZero()
}
