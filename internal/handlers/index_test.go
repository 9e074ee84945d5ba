package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"diary-rag/internal/indexer"
)

func TestIndexHandler_RunValidation(t *testing.T) {
	handler := NewIndexHandler(func(int64) *indexer.Orchestrator { return nil })

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{{`},
		{"missing user", `{"mode": "full"}`},
		{"unknown mode", `{"user_id": 7, "mode": "sideways"}`},
		{"clear without full", `{"user_id": 7, "mode": "incremental", "clear_existing": true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/index", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			handler.Run(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestIndexHandler_StatsRequiresUserID(t *testing.T) {
	handler := NewIndexHandler(func(int64) *indexer.Orchestrator { return nil })

	req := httptest.NewRequest(http.MethodGet, "/api/index/stats", nil)
	w := httptest.NewRecorder()
	handler.Stats(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
