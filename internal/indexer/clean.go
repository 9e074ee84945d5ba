package indexer

import (
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	// minContentRunes drops entries too short to be worth indexing.
	minContentRunes = 3
	// maxContentRunes truncates pathological entries before chunking.
	maxContentRunes = 10000
)

// Cleaner normalizes raw entry content into the plain text the chunker and
// metadata extractor operate on. Entries written with markdown formatting
// are flattened to their visible text.
type Cleaner struct {
	parser goldmark.Markdown
}

// NewCleaner creates a new content cleaner.
func NewCleaner() *Cleaner {
	return &Cleaner{parser: goldmark.New()}
}

// Clean returns the normalized plain text for an entry, or "" when the
// entry has no indexable content. Clean never fails: unparseable input
// degrades to whitespace normalization of the raw text.
func (c *Cleaner) Clean(content string) string {
	if content == "" {
		return ""
	}

	plain := c.flattenMarkdown(content)
	if plain == "" {
		plain = content
	}

	cleaned := normalizeWhitespace(plain)

	if utf8.RuneCountInString(cleaned) < minContentRunes {
		return ""
	}
	if utf8.RuneCountInString(cleaned) > maxContentRunes {
		runes := []rune(cleaned)
		cleaned = strings.TrimSpace(string(runes[:maxContentRunes]))
	}
	return cleaned
}

// flattenMarkdown walks the markdown AST and collects visible text,
// separating block-level nodes with blank lines so paragraph boundaries
// survive for the chunker.
func (c *Cleaner) flattenMarkdown(content string) string {
	source := []byte(content)
	doc := c.parser.Parser().Parse(text.NewReader(source))

	var b strings.Builder

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Paragraph, *ast.Heading, *ast.ListItem:
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n\n") {
				b.WriteString("\n\n")
			}
		case *ast.Text:
			b.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteString(" ")
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.CodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				b.Write(line.Value(source))
			}
		case *ast.FencedCodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				b.Write(line.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})

	return b.String()
}

// normalizeWhitespace collapses horizontal whitespace runs, trims line
// edges, converts CRLF, and squeezes blank-line runs down to one blank line.
func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	// Drop a trailing blank line.
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}

	return strings.Join(out, "\n")
}
