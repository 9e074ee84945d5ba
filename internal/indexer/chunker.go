package indexer

import (
	"strings"
	"unicode/utf8"

	"diary-rag/internal/storage"
)

// Chunker splits cleaned entry text into retrieval units. Short entries
// stay whole, so one memory remains one retrieval unit, and long entries are
// split on paragraph boundaries first, falling back to sentence, word, and
// finally raw rune boundaries, with a sliding overlap between consecutive
// chunks.
//
// Splitting is deterministic: the same text and config always produce the
// same boundaries and therefore the same chunk IDs.
type Chunker struct {
	chunkSize int // max runes per chunk
	overlap   int // runes shared between consecutive chunks
}

// NewChunker creates a chunker with the given size and overlap (in runes).
func NewChunker(chunkSize, overlap int) *Chunker {
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// boundary separators, tried in order from coarsest to finest. The
// separator itself stays with the left chunk.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " "}

// Split turns one entry's cleaned text into chunks carrying full metadata.
// The entry-level metadata is cloned into every chunk with chunk-local
// fields (id, index, counts) filled in.
func (c *Chunker) Split(entry *storage.Entry, cleaned string, meta Metadata) []Chunk {
	if cleaned == "" {
		return nil
	}

	pieces := c.splitText(cleaned)
	chunks := make([]Chunk, 0, len(pieces))

	for i, piece := range pieces {
		chunkMeta := meta
		chunkMeta.ChunkID = ChunkID(entry.UserID, entry.ID, i)
		chunkMeta.ChunkIndex = i
		chunkMeta.TotalChunks = len(pieces)
		chunkMeta.WordCount = len(strings.Fields(piece.text))
		chunkMeta.ContentLength = utf8.RuneCountInString(piece.text)

		chunks = append(chunks, Chunk{
			ID:      chunkMeta.ChunkID,
			Index:   i,
			Text:    piece.text,
			Overlap: piece.overlap,
			Meta:    chunkMeta,
		})
	}

	return chunks
}

type piece struct {
	text    string
	overlap int // runes shared with the previous piece
}

// splitText produces overlapping windows of at most chunkSize runes.
// A text that fits in one chunk is returned whole.
func (c *Chunker) splitText(text string) []piece {
	runes := []rune(text)
	if len(runes) <= c.chunkSize {
		return []piece{{text: text}}
	}

	var pieces []piece
	start := 0
	overlap := 0

	for start < len(runes) {
		end := start + c.chunkSize
		if end >= len(runes) {
			pieces = append(pieces, piece{text: string(runes[start:]), overlap: overlap})
			break
		}

		splitPoint := c.findSplitPoint(runes, start, end)
		pieces = append(pieces, piece{text: string(runes[start:splitPoint]), overlap: overlap})

		next := splitPoint - c.overlap
		if next <= start {
			// Overlap would prevent forward progress on a tiny chunk.
			next = splitPoint
		}
		overlap = splitPoint - next
		start = next
	}

	return pieces
}

// findSplitPoint picks the best boundary in runes[start:end], preferring
// paragraph breaks, then line breaks, then sentence punctuation, then word
// boundaries. When nothing matches it hard-cuts at end.
func (c *Chunker) findSplitPoint(runes []rune, start, end int) int {
	window := string(runes[start:end])

	for _, sep := range separators {
		if idx := strings.LastIndex(window, sep); idx > 0 {
			// Rune offset of the byte index within the window.
			offset := utf8.RuneCountInString(window[:idx]) + utf8.RuneCountInString(sep)
			return start + offset
		}
	}
	return end
}
