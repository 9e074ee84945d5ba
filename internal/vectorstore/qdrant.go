package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"diary-rag/internal/contextutil"
)

// QdrantStore implements VectorStore using Qdrant.
type QdrantStore struct {
	client *qdrant.Client
}

// NewQdrantStore creates a new Qdrant vector store client.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
func NewQdrantStore(urlStr string) (*QdrantStore, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	// A scheme-less value like "qdrant.internal:6333" parses as an opaque
	// URL with no host; failing loudly beats quietly dialing localhost.
	host := parsedURL.Hostname()
	if host == "" {
		return nil, fmt.Errorf("invalid Qdrant URL %q: missing host, expected http://host:port", urlStr)
	}

	// Default gRPC port; when an HTTP port is given, gRPC is port+1.
	port := 6334
	if parsedURL.Port() != "" {
		if httpPort, err := strconv.Atoi(parsedURL.Port()); err == nil {
			port = httpPort + 1
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{client: client}, nil
}

// EnsureCollection creates the collection if missing and validates the
// vector size otherwise.
func (s *QdrantStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("%w: failed to check collection existence: %v", ErrVectorIndex, err)
	}

	if !exists {
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("%w: failed to create collection: %v", ErrVectorIndex, err)
		}
		logger.InfoContext(ctx, "collection created", "collection", collection, "vector_size", vectorSize)
		return nil
	}

	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return fmt.Errorf("%w: failed to get collection info: %v", ErrVectorIndex, err)
	}

	config := info.Config
	if config == nil || config.Params == nil {
		return fmt.Errorf("%w: collection config is invalid", ErrVectorIndex)
	}
	vectorsConfig := config.Params.GetVectorsConfig()
	if vectorsConfig == nil {
		return fmt.Errorf("%w: collection vectors config is invalid", ErrVectorIndex)
	}
	params := vectorsConfig.GetParams()
	if params == nil || params.Size == 0 {
		return fmt.Errorf("%w: could not determine collection vector size", ErrVectorIndex)
	}
	if int(params.Size) != vectorSize {
		return fmt.Errorf("%w: collection vector size mismatch: expected %d, got %d",
			ErrVectorIndex, vectorSize, params.Size)
	}

	return nil
}

// Upsert inserts or updates points in the collection.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, points []Point) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, point := range points {
		meta := make(map[string]any, len(point.Meta)+1)
		for k, v := range point.Meta {
			meta[k] = v
		}
		meta["text"] = point.Text

		qdrantPoints = append(qdrantPoints, &qdrant.PointStruct{
			Id:      qdrant.NewID(point.ID),
			Vectors: qdrant.NewVectors(point.Vec...),
			Payload: qdrant.NewValueMap(meta),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         qdrantPoints,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "collection", collection, "count", len(points), "error", err)
		return fmt.Errorf("%w: failed to upsert points: %v", ErrVectorIndex, err)
	}

	logger.DebugContext(ctx, "upserted points", "collection", collection, "count", len(points))
	return nil
}

// DeleteByEntry removes all chunks belonging to an entry.
func (s *QdrantStore) DeleteByEntry(ctx context.Context, collection string, entryID int64) error {
	logger := contextutil.LoggerFromContext(ctx)

	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatchInt("entry_id", entryID),
		},
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelectorFilter(filter),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete entry points", "collection", collection, "entry_id", entryID, "error", err)
		return fmt.Errorf("%w: failed to delete points for entry %d: %v", ErrVectorIndex, entryID, err)
	}

	logger.InfoContext(ctx, "deleted entry points", "collection", collection, "entry_id", entryID)
	return nil
}

// Search performs a cosine similarity search with metadata filters.
func (s *QdrantStore) Search(ctx context.Context, collection string, query []float32, k int, filters Filters) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be greater than 0", ErrVectorIndex)
	}

	qdrantFilter := buildFilter(filters)

	limit := uint64(k)
	queryReq := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if qdrantFilter != nil {
		queryReq.Filter = qdrantFilter
	}

	scoredPoints, err := s.client.Query(ctx, queryReq)
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", collection, "k", k, "error", err)
		return nil, fmt.Errorf("%w: failed to search points: %v", ErrVectorIndex, err)
	}

	results := make([]SearchResult, 0, len(scoredPoints))
	for _, result := range scoredPoints {
		pointID := ""
		if result.Id != nil {
			pointID = result.Id.GetUuid()
		}

		meta := make(map[string]any)
		if result.Payload != nil {
			meta = convertPayloadToMap(result.Payload)
		}

		text := ""
		if v, ok := meta["text"].(string); ok {
			text = v
			delete(meta, "text")
		}

		results = append(results, SearchResult{
			PointID: pointID,
			Score:   result.Score,
			Text:    text,
			Meta:    meta,
		})
	}

	logger.DebugContext(ctx, "search completed", "collection", collection, "k", k, "results", len(results))
	return results, nil
}

// Count returns the number of stored points in the collection.
func (s *QdrantStore) Count(ctx context.Context, collection string) (int, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to check collection existence: %v", ErrVectorIndex, err)
	}
	if !exists {
		return 0, nil
	}

	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get collection info: %v", ErrVectorIndex, err)
	}
	if info.PointsCount == nil {
		return 0, nil
	}
	return int(*info.PointsCount), nil
}

// DropCollection removes the collection and all its points.
func (s *QdrantStore) DropCollection(ctx context.Context, collection string) error {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("%w: failed to check collection existence: %v", ErrVectorIndex, err)
	}
	if !exists {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("%w: failed to drop collection: %v", ErrVectorIndex, err)
	}
	return nil
}

// buildFilter converts typed Filters into Qdrant match conditions.
func buildFilter(filters Filters) *qdrant.Filter {
	var must []*qdrant.Condition

	if filters.UserID != 0 {
		must = append(must, qdrant.NewMatchInt("user_id", filters.UserID))
	}
	if filters.EntryID != 0 {
		must = append(must, qdrant.NewMatchInt("entry_id", filters.EntryID))
	}
	if filters.Date != "" {
		must = append(must, qdrant.NewMatch("date", filters.Date))
	}
	if filters.DayOfWeek != "" {
		must = append(must, qdrant.NewMatch("day_of_week", filters.DayOfWeek))
	}
	if filters.Tag != "" {
		must = append(must, qdrant.NewMatchText("tags", filters.Tag))
	}
	if filters.Location != "" {
		must = append(must, qdrant.NewMatchText("location", filters.Location))
	}
	if filters.Person != "" {
		must = append(must, qdrant.NewMatchText("people", filters.Person))
	}

	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

// convertPayloadToMap converts Qdrant payload to map[string]any.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		result[k] = convertValue(v)
	}
	return result
}

// convertValue converts a Qdrant Value to a Go any type.
func convertValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(val.StructValue.Fields)
	default:
		return nil
	}
}
