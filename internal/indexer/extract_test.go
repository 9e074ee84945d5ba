package indexer

import (
	"strings"
	"testing"
	"time"

	"diary-rag/internal/storage"
)

func TestExtractMetadata(t *testing.T) {
	entry := &storage.Entry{
		ID:        42,
		UserID:    7,
		Content:   "Morning run at Central Park with Sarah and Mike. #gym #happy",
		Tags:      "health, outdoors",
		Date:      "2024-01-15",
		CreatedAt: time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC),
	}
	cleaned := entry.Content

	meta := ExtractMetadata(entry, cleaned)

	if meta.UserID != 7 || meta.EntryID != 42 {
		t.Errorf("identity fields wrong: user=%d entry=%d", meta.UserID, meta.EntryID)
	}
	if meta.Date != "2024-01-15" {
		t.Errorf("Date = %q", meta.Date)
	}
	if meta.DayOfWeek != "Monday" {
		t.Errorf("DayOfWeek = %q, want Monday", meta.DayOfWeek)
	}
	if meta.CreatedAt != "2024-01-15T08:30:00Z" {
		t.Errorf("CreatedAt = %q", meta.CreatedAt)
	}
	if meta.Tags != "gym, happy, health, outdoors" {
		t.Errorf("Tags = %q", meta.Tags)
	}
	if meta.TagsCount != 4 {
		t.Errorf("TagsCount = %d, want 4", meta.TagsCount)
	}
	if meta.People != "Sarah, Mike" {
		t.Errorf("People = %q", meta.People)
	}
	if meta.PeopleCount != 2 {
		t.Errorf("PeopleCount = %d, want 2", meta.PeopleCount)
	}
	if !strings.Contains(meta.Location, "Central Park") {
		t.Errorf("Location = %q, want it to contain Central Park", meta.Location)
	}
	if meta.WordCount != len(strings.Fields(cleaned)) {
		t.Errorf("WordCount = %d", meta.WordCount)
	}
}

func TestExtractTags(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		entryTags string
		want      []string
	}{
		{
			name:    "hashtags from content",
			content: "Great session today #Gym #happy",
			want:    []string{"gym", "happy"},
		},
		{
			name:      "entry tags merged and deduplicated",
			content:   "#gym again",
			entryTags: "gym, health",
			want:      []string{"gym", "health"},
		},
		{
			name:      "space separated entry tags",
			entryTags: "work personal",
			want:      []string{"work", "personal"},
		},
		{
			name:    "no tags",
			content: "Nothing tagged here.",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractTags(tt.content, tt.entryTags)
			if len(got) != len(tt.want) {
				t.Fatalf("extractTags() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("tag %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestExtractPeople(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "with clause",
			text: "Had lunch with Sarah today.",
			want: []string{"Sarah"},
		},
		{
			name: "with clause listing two names",
			text: "Went hiking with Anna and Tom.",
			want: []string{"Anna", "Tom"},
		},
		{
			name: "bare pair",
			text: "Maria and Carlos stopped by.",
			want: []string{"Maria", "Carlos"},
		},
		{
			name: "lowercase names ignored",
			text: "walked with the dog and the cat",
			want: nil,
		},
		{
			name: "deduplicated across patterns",
			text: "Dinner with Anna. Anna and Tom left early.",
			want: []string{"Anna", "Tom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractPeople(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("extractPeople(%q) = %v, want %v", tt.text, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("person %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestExtractLocations(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "preposition followed by place",
			text: "Spent the afternoon at Central Park reading.",
			want: []string{"Central Park"},
		},
		{
			name: "venue suffix",
			text: "The new exhibit opened. Silver Lake was beautiful.",
			want: []string{"Silver Lake"},
		},
		{
			name: "too many words discarded",
			text: "at One Two Three Four",
			want: nil,
		},
		{
			name: "no locations",
			text: "stayed home all day doing nothing",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractLocations(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("extractLocations(%q) = %v, want %v", tt.text, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("location %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDayOfWeek(t *testing.T) {
	if got := dayOfWeek("2024-01-15"); got != "Monday" {
		t.Errorf("dayOfWeek(2024-01-15) = %q, want Monday", got)
	}
	if got := dayOfWeek("not-a-date"); got != "" {
		t.Errorf("dayOfWeek(not-a-date) = %q, want empty", got)
	}
	if got := dayOfWeek(""); got != "" {
		t.Errorf("dayOfWeek(empty) = %q, want empty", got)
	}
}

func TestMetadataPayload(t *testing.T) {
	meta := Metadata{
		UserID:        7,
		EntryID:       42,
		ChunkID:       "abc",
		ChunkIndex:    1,
		TotalChunks:   3,
		Date:          "2024-01-15",
		DayOfWeek:     "Monday",
		CreatedAt:     "2024-01-15T08:30:00Z",
		Tags:          "gym, happy",
		TagsCount:     2,
		WordCount:     12,
		ContentLength: 80,
	}

	payload := meta.Payload()

	for _, key := range []string{"user_id", "entry_id", "chunk_id", "chunk_index", "total_chunks", "date", "day_of_week", "created_at", "word_count", "content_length"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("payload missing required key %q", key)
		}
	}
	if payload["tags"] != "gym, happy" || payload["tags_count"] != 2 {
		t.Errorf("tags payload wrong: %v / %v", payload["tags"], payload["tags_count"])
	}
	// Empty optional fields are omitted entirely.
	if _, ok := payload["people"]; ok {
		t.Error("payload should omit empty people")
	}
	if _, ok := payload["location"]; ok {
		t.Error("payload should omit empty location")
	}
}
