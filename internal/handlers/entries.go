package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"diary-rag/internal/contextutil"
	"diary-rag/internal/storage"
)

// EntryHandler handles CRUD requests for diary entries.
type EntryHandler struct {
	entries storage.EntryStore
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(entries storage.EntryStore) *EntryHandler {
	return &EntryHandler{entries: entries}
}

// EntryRequest is the request payload for creating or updating an entry.
type EntryRequest struct {
	UserID  int64  `json:"user_id"`
	Content string `json:"content"`
	Tags    string `json:"tags,omitempty"`
	Date    string `json:"date,omitempty"`
}

// EntryResponse is one diary entry in API responses.
type EntryResponse struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	Content   string `json:"content"`
	Tags      string `json:"tags,omitempty"`
	Date      string `json:"date"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func entryResponse(e *storage.Entry) EntryResponse {
	return EntryResponse{
		ID:        e.ID,
		UserID:    e.UserID,
		Content:   e.Content,
		Tags:      e.Tags,
		Date:      e.Date,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: e.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Create handles POST /api/entries.
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID <= 0 {
		writeError(ctx, w, http.StatusBadRequest, "user_id is required")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}
	if req.Date != "" {
		if _, err := time.Parse("2006-01-02", req.Date); err != nil {
			writeError(ctx, w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}

	entry := &storage.Entry{
		UserID:  req.UserID,
		Content: req.Content,
		Tags:    req.Tags,
		Date:    req.Date,
	}
	if err := h.entries.Insert(ctx, entry); err != nil {
		writeServiceError(ctx, w, err, "Failed to create entry")
		return
	}

	logger.InfoContext(ctx, "entry created", "entry_id", entry.ID, "user_id", entry.UserID)
	writeJSON(ctx, w, http.StatusCreated, entryResponse(entry))
}

// List handles GET /api/entries. Requires user_id; since and until are
// optional RFC 3339 bounds on entry modification time.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(ctx, w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	var since, until *time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(ctx, w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		since = &t
	}
	if raw := r.URL.Query().Get("until"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(ctx, w, http.StatusBadRequest, "until must be RFC 3339")
			return
		}
		until = &t
	}

	entries, err := h.entries.ListByUser(ctx, userID, since, until)
	if err != nil {
		writeServiceError(ctx, w, err, "Failed to list entries")
		return
	}

	resp := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, entryResponse(e))
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

// Update handles PUT /api/entries/{id}.
func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(ctx, w, http.StatusBadRequest, "invalid entry id")
		return
	}

	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}

	entry, err := h.entries.GetByID(ctx, id)
	if err != nil {
		writeServiceError(ctx, w, err, "Failed to load entry")
		return
	}
	if req.UserID > 0 && req.UserID != entry.UserID {
		writeError(ctx, w, http.StatusForbidden, "entry belongs to another user")
		return
	}

	entry.Content = req.Content
	entry.Tags = req.Tags
	if req.Date != "" {
		if _, err := time.Parse("2006-01-02", req.Date); err != nil {
			writeError(ctx, w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		entry.Date = req.Date
	}

	if err := h.entries.Update(ctx, entry); err != nil {
		writeServiceError(ctx, w, err, "Failed to update entry")
		return
	}

	logger.InfoContext(ctx, "entry updated", "entry_id", entry.ID, "user_id", entry.UserID)
	writeJSON(ctx, w, http.StatusOK, entryResponse(entry))
}

// Delete handles DELETE /api/entries/{id}. The entry is removed from the
// source of truth and tombstoned; its vectors are removed on the next
// incremental indexing run.
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(ctx, w, http.StatusBadRequest, "invalid entry id")
		return
	}

	if err := h.entries.Delete(ctx, id); err != nil {
		writeServiceError(ctx, w, err, "Failed to delete entry")
		return
	}

	logger.InfoContext(ctx, "entry deleted", "entry_id", id)
	w.WriteHeader(http.StatusNoContent)
}
