package vectorstore

import (
	"testing"
)

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name        string
		filters     Filters
		wantNil     bool
		wantClauses int
	}{
		{
			name:    "no filters",
			filters: Filters{},
			wantNil: true,
		},
		{
			name:        "user scope only",
			filters:     Filters{UserID: 7},
			wantClauses: 1,
		},
		{
			name: "all fields set",
			filters: Filters{
				UserID:    7,
				EntryID:   42,
				Date:      "2024-01-15",
				DayOfWeek: "Monday",
				Tag:       "gym",
				Location:  "Central Park",
				Person:    "Sarah",
			},
			wantClauses: 7,
		},
		{
			name:        "zero values ignored",
			filters:     Filters{UserID: 7, Tag: "gym"},
			wantClauses: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := buildFilter(tt.filters)

			if tt.wantNil {
				if filter != nil {
					t.Errorf("buildFilter() = %v, want nil", filter)
				}
				return
			}
			if filter == nil {
				t.Fatal("buildFilter() returned nil")
			}
			if len(filter.Must) != tt.wantClauses {
				t.Errorf("got %d must clauses, want %d", len(filter.Must), tt.wantClauses)
			}
		})
	}
}

func TestNewQdrantStoreURLParsing(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"http url", "http://localhost:6333", false},
		{"host without port", "http://qdrant.internal", false},
		{"scheme-less host", "qdrant.internal:6333", true},
		{"empty host", "http://", true},
		{"garbage", "://nope", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewQdrantStore(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewQdrantStore(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}
