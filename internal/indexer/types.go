package indexer

import (
	"fmt"

	"github.com/google/uuid"
)

// chunkIDNamespace is the fixed UUIDv5 namespace for chunk IDs. Changing it
// would orphan every stored vector, so it never changes.
var chunkIDNamespace = uuid.MustParse("5f2fbe8a-9c13-4a57-9f6e-1d4c8b2a7e01")

// ChunkID derives the stable vector point ID for one chunk of one entry.
// The same user, entry and index always produce the same ID, which is what
// makes re-indexing idempotent: upserting an edited entry overwrites its
// prior chunks instead of duplicating them.
func ChunkID(userID, entryID int64, chunkIndex int) string {
	name := fmt.Sprintf("user:%d:entry:%d:chunk:%d", userID, entryID, chunkIndex)
	return uuid.NewSHA1(chunkIDNamespace, []byte(name)).String()
}

// Chunk is one retrieval unit derived from a diary entry.
type Chunk struct {
	ID      string
	Index   int    // position within the entry, starts at 0
	Text    string
	Overlap int // runes shared with the previous chunk of the same entry
	Meta    Metadata
}

// Metadata is the statically-keyed, scalar-only metadata attached to a
// chunk. Multi-valued fields (tags, people) are stored as ", "-delimited
// strings with count fields, because the vector index payload only accepts
// scalars.
type Metadata struct {
	UserID        int64
	EntryID       int64
	ChunkID       string
	ChunkIndex    int
	TotalChunks   int
	Date          string // ISO date of the entry
	DayOfWeek     string
	CreatedAt     string // RFC 3339
	Tags          string
	TagsCount     int
	People        string
	PeopleCount   int
	Location      string
	WordCount     int
	ContentLength int
}

// ListDelimiter joins multi-valued metadata fields into a single string.
const ListDelimiter = ", "

// Payload flattens the metadata into the scalar-only map stored alongside
// the vector. Optional fields are omitted when empty so that substring
// filters do not match blank values.
func (m Metadata) Payload() map[string]any {
	payload := map[string]any{
		"user_id":        m.UserID,
		"entry_id":       m.EntryID,
		"chunk_id":       m.ChunkID,
		"chunk_index":    m.ChunkIndex,
		"total_chunks":   m.TotalChunks,
		"date":           m.Date,
		"day_of_week":    m.DayOfWeek,
		"created_at":     m.CreatedAt,
		"word_count":     m.WordCount,
		"content_length": m.ContentLength,
	}
	if m.Tags != "" {
		payload["tags"] = m.Tags
		payload["tags_count"] = m.TagsCount
	}
	if m.People != "" {
		payload["people"] = m.People
		payload["people_count"] = m.PeopleCount
	}
	if m.Location != "" {
		payload["location"] = m.Location
	}
	return payload
}
