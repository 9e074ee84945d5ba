package handlers

import (
	"encoding/json"
	"net/http"

	"diary-rag/internal/contextutil"
	"diary-rag/internal/rag"
)

// RetrieveHandler handles HTTP requests for similarity retrieval.
type RetrieveHandler struct {
	retriever *rag.Retriever
}

// NewRetrieveHandler creates a new RetrieveHandler.
func NewRetrieveHandler(retriever *rag.Retriever) *RetrieveHandler {
	return &RetrieveHandler{retriever: retriever}
}

// RetrieveRequest is the request payload for retrieval queries.
type RetrieveRequest struct {
	UserID  int64       `json:"user_id"`
	Query   string      `json:"query"`
	K       int         `json:"k,omitempty"`
	Filters rag.Filters `json:"filters,omitempty"`
}

// RetrieveResponse is the response payload for retrieval queries.
type RetrieveResponse struct {
	Results []rag.Result `json:"results"`
}

// Retrieve handles POST /api/retrieve.
func (h *RetrieveHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID <= 0 {
		writeError(ctx, w, http.StatusBadRequest, "user_id is required")
		return
	}

	results, err := h.retriever.Retrieve(ctx, req.UserID, req.Query, req.K, req.Filters)
	if err != nil {
		writeServiceError(ctx, w, err, "Failed to retrieve")
		return
	}

	writeJSON(ctx, w, http.StatusOK, RetrieveResponse{Results: results})
}
