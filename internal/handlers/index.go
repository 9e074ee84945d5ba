package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"diary-rag/internal/contextutil"
	"diary-rag/internal/indexer"
)

// OrchestratorFactory builds an indexing orchestrator scoped to one user.
type OrchestratorFactory func(userID int64) *indexer.Orchestrator

// IndexHandler handles HTTP requests that trigger or inspect indexing runs.
type IndexHandler struct {
	orchestrator OrchestratorFactory
}

// NewIndexHandler creates a new IndexHandler.
func NewIndexHandler(orchestrator OrchestratorFactory) *IndexHandler {
	return &IndexHandler{orchestrator: orchestrator}
}

// IndexRequest is the request payload for triggering an indexing run.
type IndexRequest struct {
	UserID int64 `json:"user_id"`
	// Mode is "incremental" (default) or "full".
	Mode string `json:"mode,omitempty"`
	// ClearExisting drops the user's collection first. Full mode only.
	ClearExisting bool `json:"clear_existing,omitempty"`
}

// Run handles POST /api/index. The run executes synchronously; the
// response carries the full run statistics including the terminal status.
func (h *IndexHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID <= 0 {
		writeError(ctx, w, http.StatusBadRequest, "user_id is required")
		return
	}

	orch := h.orchestrator(req.UserID)

	var (
		stats *indexer.IndexingStats
		err   error
	)
	switch req.Mode {
	case "", "incremental":
		if req.ClearExisting {
			writeError(ctx, w, http.StatusBadRequest, "clear_existing requires full mode")
			return
		}
		stats, err = orch.RunIncremental(ctx)
	case "full":
		stats, err = orch.RunFull(ctx, req.ClearExisting)
	default:
		writeError(ctx, w, http.StatusBadRequest, "mode must be full or incremental")
		return
	}
	if err != nil {
		writeServiceError(ctx, w, err, "Indexing run failed")
		return
	}

	writeJSON(ctx, w, http.StatusOK, stats)
}

// Stats handles GET /api/index/stats.
func (h *IndexHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(ctx, w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	stats, err := h.orchestrator(userID).Stats(ctx)
	if err != nil {
		writeServiceError(ctx, w, err, "Failed to read indexing stats")
		return
	}

	writeJSON(ctx, w, http.StatusOK, stats)
}
