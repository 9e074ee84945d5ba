package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks diary-rag/internal/vectorstore VectorStore

import (
	"context"
	"errors"
)

// ErrVectorIndex is returned when an upsert, delete or search against the
// vector index fails.
var ErrVectorIndex = errors.New("vector index error")

// Point represents a vector point with its chunk text and metadata payload.
// Payload values must be scalars; multi-valued fields are serialized as
// delimited strings before they reach this layer.
type Point struct {
	ID   string
	Vec  []float32
	Text string
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Text    string
	Meta    map[string]any
}

// Filters restricts a search to chunks matching the given metadata.
// Zero values are ignored. UserID is always set by callers: the index is
// never queried without a user scope.
type Filters struct {
	UserID    int64
	EntryID   int64
	Date      string // exact ISO date match
	DayOfWeek string // exact match, e.g. "Monday"
	Tag       string // substring match on the delimited tags field
	Location  string // substring match
	Person    string // substring match on the delimited people field
}

// VectorStore defines the interface for vector storage operations.
// Every call is scoped to exactly one user's collection.
type VectorStore interface {
	// EnsureCollection creates the collection with cosine distance if it
	// does not exist, and validates the vector size if it does.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// Upsert stores or replaces points by ID. Re-indexing an edited entry
	// overwrites its prior chunks because chunk IDs are stable.
	Upsert(ctx context.Context, collection string, points []Point) error

	// DeleteByEntry removes all chunks belonging to an entry.
	DeleteByEntry(ctx context.Context, collection string, entryID int64) error

	// Search performs cosine nearest-neighbor search restricted to the
	// filters, returning at most k results by descending similarity.
	Search(ctx context.Context, collection string, query []float32, k int, filters Filters) ([]SearchResult, error)

	// Count returns the number of stored points in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// DropCollection removes the collection and all its points.
	DropCollection(ctx context.Context, collection string) error
}
