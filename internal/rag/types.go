package rag

import "errors"

const (
	// DefaultTopK is used when a caller passes k <= 0.
	DefaultTopK = 5
	// MaxTopK caps the number of results regardless of what the caller asks for.
	MaxTopK = 20
)

// ErrEmptyQuery is returned when the query text is blank after trimming.
var ErrEmptyQuery = errors.New("query is empty")

// Filters narrows retrieval to chunks whose metadata matches. Zero values
// are ignored. The user scope is not a filter: it is enforced by collection
// choice and cannot be widened from here.
type Filters struct {
	EntryID   int64  `json:"entry_id,omitempty"`
	Date      string `json:"date,omitempty"`
	DayOfWeek string `json:"day_of_week,omitempty"`
	Tag       string `json:"tag,omitempty"`
	Location  string `json:"location,omitempty"`
	Person    string `json:"person,omitempty"`
}

// Result is one retrieved chunk with its similarity score and the metadata
// stored alongside it at indexing time.
type Result struct {
	ChunkID  string         `json:"chunk_id"`
	Score    float64        `json:"score"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
