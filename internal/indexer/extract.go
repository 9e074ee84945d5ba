package indexer

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"diary-rag/internal/storage"
)

// Extraction is best-effort pattern matching over arbitrary user text. It
// must be total: a field that cannot be derived is omitted, never an error.

var (
	tagPattern = regexp.MustCompile(`#(\w+)`)

	locationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:at|in|to|from)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)\b`),
		regexp.MustCompile(`\b([A-Z][a-z]+\s+(?:Lake|Park|Beach|Mall|Center|Station))\b`),
	}

	peopleWithPattern = regexp.MustCompile(`\bwith\s+([A-Z][a-z]+(?:\s+and\s+[A-Z][a-z]+)*)\b`)
	peoplePairPattern = regexp.MustCompile(`\b([A-Z][a-z]+)\s+and\s+([A-Z][a-z]+)\b`)
)

// ExtractMetadata derives the entry-level metadata fields from an entry and
// its cleaned text. Chunk-local fields (chunk id/index, per-chunk counts)
// are filled in by the chunker.
func ExtractMetadata(entry *storage.Entry, cleaned string) Metadata {
	meta := Metadata{
		UserID:        entry.UserID,
		EntryID:       entry.ID,
		Date:          entry.Date,
		DayOfWeek:     dayOfWeek(entry.Date),
		CreatedAt:     entry.CreatedAt.UTC().Format(time.RFC3339),
		WordCount:     len(strings.Fields(cleaned)),
		ContentLength: utf8.RuneCountInString(cleaned),
	}

	tags := extractTags(entry.Content, entry.Tags)
	meta.Tags = strings.Join(tags, ListDelimiter)
	meta.TagsCount = len(tags)

	people := extractPeople(cleaned)
	meta.People = strings.Join(people, ListDelimiter)
	meta.PeopleCount = len(people)

	if locations := extractLocations(cleaned); len(locations) > 0 {
		meta.Location = strings.Join(locations, ListDelimiter)
	}

	return meta
}

// extractTags collects #word tokens from the entry content plus any
// free-form tags stored on the entry itself. Tags are lowercased,
// deduplicated, and kept in order of first appearance.
func extractTags(content, entryTags string) []string {
	var tags []string
	seen := make(map[string]bool)

	add := func(tag string) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	for _, match := range tagPattern.FindAllStringSubmatch(content, -1) {
		add(match[1])
	}
	for _, raw := range strings.FieldsFunc(entryTags, func(r rune) bool {
		return r == ',' || r == ' '
	}) {
		add(strings.TrimPrefix(raw, "#"))
	}

	return tags
}

// extractPeople finds capitalized names in "with X", "with X and Y" and
// "X and Y" constructions. Order of first appearance is preserved.
func extractPeople(text string) []string {
	var people []string
	seen := make(map[string]bool)

	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || len(name) > 20 || seen[name] {
			return
		}
		seen[name] = true
		people = append(people, name)
	}

	for _, match := range peopleWithPattern.FindAllStringSubmatch(text, -1) {
		for _, name := range strings.Split(match[1], " and ") {
			add(name)
		}
	}
	for _, match := range peoplePairPattern.FindAllStringSubmatch(text, -1) {
		add(match[1])
		add(match[2])
	}

	return people
}

// extractLocations finds place names following prepositions or ending in a
// venue word. Multi-word candidates longer than three words are discarded.
func extractLocations(text string) []string {
	var locations []string
	seen := make(map[string]bool)

	for _, pattern := range locationPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			location := strings.TrimSpace(match[1])
			if location == "" || len(strings.Fields(location)) > 3 || seen[location] {
				continue
			}
			seen[location] = true
			locations = append(locations, location)
		}
	}

	return locations
}

// dayOfWeek computes the weekday name from an ISO date, or "" when the date
// does not parse.
func dayOfWeek(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ""
	}
	return t.Weekday().String()
}
