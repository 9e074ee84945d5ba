package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"diary-rag/internal/contextutil"
	"diary-rag/internal/indexer"
	"diary-rag/internal/llm"
	"diary-rag/internal/rag"
	"diary-rag/internal/storage"
	"diary-rag/internal/vectorstore"
)

// ErrorResponse is the JSON body for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, statusCode int, message string) {
	writeJSON(ctx, w, statusCode, ErrorResponse{Error: message})
}

// writeServiceError maps known sentinel errors to HTTP status codes.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "request failed", "error", err)

	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(ctx, w, http.StatusNotFound, "Entry not found")
	case errors.Is(err, rag.ErrEmptyQuery):
		writeError(ctx, w, http.StatusBadRequest, "Query is required")
	case errors.Is(err, indexer.ErrRunInProgress):
		writeError(ctx, w, http.StatusConflict, "Indexing run already in progress")
	case errors.Is(err, llm.ErrEmbeddingService):
		writeError(ctx, w, http.StatusBadGateway, "Embedding service error")
	case errors.Is(err, vectorstore.ErrVectorIndex):
		writeError(ctx, w, http.StatusServiceUnavailable, "Vector index unavailable")
	case errors.Is(err, storage.ErrStorageUnavailable):
		writeError(ctx, w, http.StatusServiceUnavailable, "Storage unavailable")
	default:
		writeError(ctx, w, http.StatusInternalServerError, defaultMsg)
	}
}
