package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	llm_mocks "diary-rag/internal/llm/mocks"
	"diary-rag/internal/rag"
	"diary-rag/internal/vectorstore"
	vectorstore_mocks "diary-rag/internal/vectorstore/mocks"
)

func TestRetrieveHandler_Retrieve(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEmbedder := llm_mocks.NewMockEmbedder(ctrl)
	mockVectors := vectorstore_mocks.NewMockVectorStore(ctrl)

	mockEmbedder.EXPECT().EmbedBatch(gomock.Any(), []string{"gym days"}).
		DoAndReturn(func(_ context.Context, texts []string) ([][]float32, error) {
			return [][]float32{{0.1, 0.2}}, nil
		})
	mockVectors.EXPECT().
		Search(gomock.Any(), "user_7_diary", gomock.Any(), 3, vectorstore.Filters{UserID: 7, Tag: "gym"}).
		Return([]vectorstore.SearchResult{
			{PointID: "a", Score: 0.8, Text: "leg day", Meta: map[string]any{"date": "2024-01-15"}},
		}, nil)

	handler := NewRetrieveHandler(rag.NewRetriever(mockEmbedder, mockVectors, 0.3))

	body := `{"user_id": 7, "query": "gym days", "k": 3, "filters": {"tag": "gym"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/retrieve", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.Retrieve(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp RetrieveResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Text != "leg day" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestRetrieveHandler_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	handler := NewRetrieveHandler(rag.NewRetriever(
		llm_mocks.NewMockEmbedder(ctrl), vectorstore_mocks.NewMockVectorStore(ctrl), 0))

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `not json`},
		{"missing user", `{"query": "something"}`},
		{"empty query", `{"user_id": 7, "query": "  "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/retrieve", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			handler.Retrieve(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}
