package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks diary-rag/internal/llm Embedder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"diary-rag/internal/contextutil"
)

// ErrEmbeddingService is returned when the external embedding call fails
// after retries.
var ErrEmbeddingService = errors.New("embedding service error")

// Embedder converts chunk texts into fixed-dimension vectors, preserving
// input order.
type Embedder interface {
	// EmbedBatch embeds the given texts and returns one vector per text,
	// in input order. All vectors have the configured dimension.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension returns the vector size this embedder produces.
	Dimension() int
}

const (
	// maxRequestTexts is the embedding API's per-request batch limit.
	maxRequestTexts = 100

	maxRetries      = 3
	initialInterval = 500 * time.Millisecond
	maxInterval     = 10 * time.Second
	callTimeout     = 30 * time.Second
)

// GoogleEmbedder produces embeddings via the Google Generative AI API.
type GoogleEmbedder struct {
	client *genai.Client
	model  string
	dim    int
}

// NewGoogleEmbedder creates a new embedder for the given model and output
// dimension.
func NewGoogleEmbedder(ctx context.Context, apiKey, model string, dim int) (*GoogleEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: api key is required", ErrEmbeddingService)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create client: %v", ErrEmbeddingService, err)
	}
	return &GoogleEmbedder{client: client, model: model, dim: dim}, nil
}

// Dimension returns the vector size this embedder produces.
func (e *GoogleEmbedder) Dimension() int {
	return e.dim
}

// EmbedBatch embeds the given texts, splitting at the API's batch limit and
// retrying transient failures with exponential backoff. Authentication and
// malformed-input errors are not retried.
func (e *GoogleEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrEmbeddingService)
	}

	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxRequestTexts {
		end := start + maxRequestTexts
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := e.embedRequest(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		result = append(result, vectors...)
	}
	return result, nil
}

func (e *GoogleEmbedder) embedRequest(ctx context.Context, texts []string) ([][]float32, error) {
	logger := contextutil.LoggerFromContext(ctx)

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	dim := int32(e.dim)
	config := &genai.EmbedContentConfig{OutputDimensionality: &dim}

	var lastErr error
	delay := initialInterval

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			logger.WarnContext(ctx, "retrying embedding request",
				"attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrEmbeddingService, ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
			if delay > maxInterval {
				delay = maxInterval
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		resp, err := e.client.Models.EmbedContent(callCtx, e.model, contents, config)
		cancel()

		if err == nil {
			return e.extractVectors(resp, len(texts))
		}

		lastErr = err
		if !retryableError(err) {
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingService, err)
		}
	}

	return nil, fmt.Errorf("%w: exhausted %d retries: %v", ErrEmbeddingService, maxRetries, lastErr)
}

func (e *GoogleEmbedder) extractVectors(resp *genai.EmbedContentResponse, want int) ([][]float32, error) {
	if resp == nil || len(resp.Embeddings) != want {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbeddingService, want, got)
	}

	vectors := make([][]float32, want)
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) != e.dim {
			got := 0
			if emb != nil {
				got = len(emb.Values)
			}
			return nil, fmt.Errorf("%w: embedding %d has size %d, expected %d", ErrEmbeddingService, i, got, e.dim)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

// retryablePatterns groups error substrings by category, matched
// case-insensitively. The embedding SDK does not expose typed errors for
// transient failures, so string matching is the only option here.
var retryablePatterns = []string{
	"rate limit", "quota exceeded", "429",
	"500", "502", "503", "504", "unavailable",
	"connection reset", "timeout", "temporary",
	"deadline exceeded",
}

// retryableError reports whether err is transient and should trigger a retry.
func retryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
