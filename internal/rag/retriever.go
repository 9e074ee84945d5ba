package rag

import (
	"context"
	"fmt"
	"strings"

	"diary-rag/internal/config"
	"diary-rag/internal/contextutil"
	"diary-rag/internal/llm"
	"diary-rag/internal/vectorstore"
)

// Retriever embeds a query and searches the caller's collection for the
// most similar chunks. Results below the similarity threshold are dropped.
type Retriever struct {
	embedder  llm.Embedder
	vectors   vectorstore.VectorStore
	threshold float64
}

// NewRetriever creates a retriever. threshold is the minimum cosine
// similarity a result must reach to be returned; 0 keeps everything.
func NewRetriever(embedder llm.Embedder, vectors vectorstore.VectorStore, threshold float64) *Retriever {
	return &Retriever{
		embedder:  embedder,
		vectors:   vectors,
		threshold: threshold,
	}
}

// Retrieve returns up to k chunks from the user's collection ranked by
// similarity to query, most similar first. k <= 0 falls back to
// DefaultTopK and values above MaxTopK are clamped. A user with no indexed
// entries gets an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, userID int64, query string, k int, filters Filters) ([]Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = DefaultTopK
	}
	if k > MaxTopK {
		k = MaxTopK
	}

	vecs, err := r.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(vecs))
	}

	collection := config.CollectionForUser(userID)
	hits, err := r.vectors.Search(ctx, collection, vecs[0], k, vectorstore.Filters{
		UserID:    userID,
		EntryID:   filters.EntryID,
		Date:      filters.Date,
		DayOfWeek: filters.DayOfWeek,
		Tag:       filters.Tag,
		Location:  filters.Location,
		Person:    filters.Person,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %s: %w", collection, err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		score := float64(hit.Score)
		if score < r.threshold {
			continue
		}
		results = append(results, Result{
			ChunkID:  hit.PointID,
			Score:    score,
			Text:     hit.Text,
			Metadata: hit.Meta,
		})
	}

	logger.InfoContext(ctx, "retrieval complete",
		"user_id", userID, "k", k, "hits", len(hits), "returned", len(results))
	return results, nil
}
