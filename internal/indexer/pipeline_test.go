package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"diary-rag/internal/config"
	llm_mocks "diary-rag/internal/llm/mocks"
	"diary-rag/internal/storage"
	storage_mocks "diary-rag/internal/storage/mocks"
	vectorstore_mocks "diary-rag/internal/vectorstore/mocks"
)

func testIndexingConfig(t *testing.T) config.IndexingConfig {
	t.Helper()
	return config.IndexingConfig{
		UserID:         7,
		EmbeddingModel: "text-embedding-004",
		EmbeddingDim:   4,
		ChunkSize:      300,
		ChunkOverlap:   50,
		BatchSize:      2,
		Collection:     config.CollectionForUser(7),
		LockPath:       filepath.Join(t.TempDir(), "index.lock"),
	}
}

func testEntries(n int) []*storage.Entry {
	base := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	entries := make([]*storage.Entry, n)
	for i := range entries {
		ts := base.Add(time.Duration(i) * time.Hour)
		entries[i] = &storage.Entry{
			ID:        int64(i + 1),
			UserID:    7,
			Content:   fmt.Sprintf("Entry number %d. Went to the gym and felt great.", i+1),
			Date:      "2024-01-15",
			CreatedAt: ts,
			UpdatedAt: ts,
		}
	}
	return entries
}

func embedTexts(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i := range vecs {
		vecs[i] = []float32{0.1, 0.2, 0.3, 0.4}
	}
	return vecs, nil
}

func TestOrchestrator_RunFull(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testIndexingConfig(t)
	mockEntries := storage_mocks.NewMockEntryStore(ctrl)
	mockSyncs := storage_mocks.NewMockSyncStore(ctrl)
	mockEmbedder := llm_mocks.NewMockEmbedder(ctrl)
	mockVectors := vectorstore_mocks.NewMockVectorStore(ctrl)

	entries := testEntries(3)
	var lastAdvanced storage.SyncState

	mockVectors.EXPECT().EnsureCollection(gomock.Any(), cfg.Collection, 4).Return(nil)
	mockEntries.EXPECT().ListTombstones(gomock.Any(), int64(7)).Return(nil, nil)
	mockEntries.EXPECT().ListByUser(gomock.Any(), int64(7), gomock.Nil(), gomock.Nil()).Return(entries, nil)
	mockEmbedder.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).DoAndReturn(embedTexts).Times(2)
	mockVectors.EXPECT().Upsert(gomock.Any(), cfg.Collection, gomock.Any()).Return(nil).Times(2)
	mockSyncs.EXPECT().Advance(gomock.Any(), int64(7), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, state storage.SyncState) error {
			lastAdvanced = state
			return nil
		}).Times(2)
	mockEntries.EXPECT().CountByUser(gomock.Any(), int64(7)).Return(3, nil)
	mockVectors.EXPECT().Count(gomock.Any(), cfg.Collection).Return(3, nil)
	mockSyncs.EXPECT().Get(gomock.Any(), int64(7)).
		DoAndReturn(func(context.Context, int64) (storage.SyncState, error) {
			return lastAdvanced, nil
		})

	orch := NewOrchestrator(cfg, mockEntries, mockSyncs, mockEmbedder, mockVectors)
	stats, err := orch.RunFull(context.Background(), false)
	if err != nil {
		t.Fatalf("RunFull() error = %v", err)
	}

	if stats.Status != StatusCompleted {
		t.Errorf("Status = %s, want %s", stats.Status, StatusCompleted)
	}
	if stats.EntriesLoaded != 3 || stats.ChunksStored != 3 {
		t.Errorf("EntriesLoaded=%d ChunksStored=%d, want 3/3", stats.EntriesLoaded, stats.ChunksStored)
	}
	if stats.BatchesFailed != 0 {
		t.Errorf("BatchesFailed = %d, want 0", stats.BatchesFailed)
	}
	if !lastAdvanced.LastSyncedAt.Equal(entries[2].CreatedAt) {
		t.Errorf("watermark = %v, want %v", lastAdvanced.LastSyncedAt, entries[2].CreatedAt)
	}
	if lastAdvanced.EntriesIndexed != 3 {
		t.Errorf("EntriesIndexed = %d, want 3", lastAdvanced.EntriesIndexed)
	}
}

func TestOrchestrator_RunFullClearsCollection(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testIndexingConfig(t)
	mockEntries := storage_mocks.NewMockEntryStore(ctrl)
	mockSyncs := storage_mocks.NewMockSyncStore(ctrl)
	mockEmbedder := llm_mocks.NewMockEmbedder(ctrl)
	mockVectors := vectorstore_mocks.NewMockVectorStore(ctrl)

	gomock.InOrder(
		mockVectors.EXPECT().DropCollection(gomock.Any(), cfg.Collection).Return(nil),
		mockVectors.EXPECT().EnsureCollection(gomock.Any(), cfg.Collection, 4).Return(nil),
	)
	// The drop already removed every vector, so the pending tombstone is
	// cleared without a per-entry delete.
	mockEntries.EXPECT().ListTombstones(gomock.Any(), int64(7)).
		Return([]storage.Tombstone{{EntryID: 42, UserID: 7}}, nil)
	mockEntries.EXPECT().ClearTombstones(gomock.Any(), int64(7), []int64{42}).Return(nil)
	mockEntries.EXPECT().ListByUser(gomock.Any(), int64(7), gomock.Nil(), gomock.Nil()).Return(nil, nil)
	mockEntries.EXPECT().CountByUser(gomock.Any(), int64(7)).Return(0, nil)
	mockVectors.EXPECT().Count(gomock.Any(), cfg.Collection).Return(0, nil)
	mockSyncs.EXPECT().Get(gomock.Any(), int64(7)).Return(storage.SyncState{UserID: 7}, nil)

	orch := NewOrchestrator(cfg, mockEntries, mockSyncs, mockEmbedder, mockVectors)
	stats, err := orch.RunFull(context.Background(), true)
	if err != nil {
		t.Fatalf("RunFull() error = %v", err)
	}
	if stats.Status != StatusCompleted {
		t.Errorf("Status = %s, want %s", stats.Status, StatusCompleted)
	}
}

func TestOrchestrator_RunIncrementalUsesWatermark(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testIndexingConfig(t)
	mockEntries := storage_mocks.NewMockEntryStore(ctrl)
	mockSyncs := storage_mocks.NewMockSyncStore(ctrl)
	mockEmbedder := llm_mocks.NewMockEmbedder(ctrl)
	mockVectors := vectorstore_mocks.NewMockVectorStore(ctrl)

	watermark := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	prior := storage.SyncState{
		UserID:          7,
		LastSyncedAt:    watermark,
		LastEntryID:     5,
		EntriesIndexed:  5,
		VectorDocuments: 5,
	}
	entries := testEntries(1)
	var advanced storage.SyncState

	mockVectors.EXPECT().EnsureCollection(gomock.Any(), cfg.Collection, 4).Return(nil)
	mockSyncs.EXPECT().Get(gomock.Any(), int64(7)).Return(prior, nil)
	mockEntries.EXPECT().ListTombstones(gomock.Any(), int64(7)).Return(nil, nil)
	mockEntries.EXPECT().ListByUser(gomock.Any(), int64(7), gomock.Any(), gomock.Nil()).
		DoAndReturn(func(_ context.Context, _ int64, since, _ *time.Time) ([]*storage.Entry, error) {
			if since == nil || !since.Equal(watermark) {
				t.Errorf("since = %v, want %v", since, watermark)
			}
			return entries, nil
		})
	mockEmbedder.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).DoAndReturn(embedTexts)
	mockVectors.EXPECT().Upsert(gomock.Any(), cfg.Collection, gomock.Any()).Return(nil)
	mockSyncs.EXPECT().Advance(gomock.Any(), int64(7), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, state storage.SyncState) error {
			advanced = state
			return nil
		})
	mockEntries.EXPECT().CountByUser(gomock.Any(), int64(7)).Return(6, nil)
	mockVectors.EXPECT().Count(gomock.Any(), cfg.Collection).Return(6, nil)
	mockSyncs.EXPECT().Get(gomock.Any(), int64(7)).
		DoAndReturn(func(context.Context, int64) (storage.SyncState, error) {
			return advanced, nil
		})

	orch := NewOrchestrator(cfg, mockEntries, mockSyncs, mockEmbedder, mockVectors)
	stats, err := orch.RunIncremental(context.Background())
	if err != nil {
		t.Fatalf("RunIncremental() error = %v", err)
	}

	if stats.Status != StatusCompleted {
		t.Errorf("Status = %s, want %s", stats.Status, StatusCompleted)
	}
	if advanced.EntriesIndexed != 6 {
		t.Errorf("EntriesIndexed = %d, want 6", advanced.EntriesIndexed)
	}
	if !advanced.LastSyncedAt.Equal(entries[0].CreatedAt) {
		t.Errorf("watermark = %v, want %v", advanced.LastSyncedAt, entries[0].CreatedAt)
	}
}

func TestOrchestrator_FailedBatchBlocksWatermark(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testIndexingConfig(t)
	mockEntries := storage_mocks.NewMockEntryStore(ctrl)
	mockSyncs := storage_mocks.NewMockSyncStore(ctrl)
	mockEmbedder := llm_mocks.NewMockEmbedder(ctrl)
	mockVectors := vectorstore_mocks.NewMockVectorStore(ctrl)

	entries := testEntries(4)

	mockVectors.EXPECT().EnsureCollection(gomock.Any(), cfg.Collection, 4).Return(nil)
	mockEntries.EXPECT().ListTombstones(gomock.Any(), int64(7)).Return(nil, nil)
	mockEntries.EXPECT().ListByUser(gomock.Any(), int64(7), gomock.Nil(), gomock.Nil()).Return(entries, nil)
	gomock.InOrder(
		mockEmbedder.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).
			Return(nil, errors.New("embedding service down")),
		mockEmbedder.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).DoAndReturn(embedTexts),
	)
	// Only the second batch reaches storage, and the watermark never moves
	// because the first batch failed.
	mockVectors.EXPECT().Upsert(gomock.Any(), cfg.Collection, gomock.Any()).Return(nil)
	mockEntries.EXPECT().CountByUser(gomock.Any(), int64(7)).Return(4, nil)
	mockVectors.EXPECT().Count(gomock.Any(), cfg.Collection).Return(2, nil)
	mockSyncs.EXPECT().Get(gomock.Any(), int64(7)).Return(storage.SyncState{UserID: 7}, nil)

	orch := NewOrchestrator(cfg, mockEntries, mockSyncs, mockEmbedder, mockVectors)
	stats, err := orch.RunFull(context.Background(), false)
	if err != nil {
		t.Fatalf("RunFull() error = %v", err)
	}

	if stats.Status != StatusCompletedWithErrors {
		t.Errorf("Status = %s, want %s", stats.Status, StatusCompletedWithErrors)
	}
	if stats.BatchesFailed != 1 {
		t.Errorf("BatchesFailed = %d, want 1", stats.BatchesFailed)
	}
	if stats.ChunksStored != 2 {
		t.Errorf("ChunksStored = %d, want 2", stats.ChunksStored)
	}
	if len(stats.Errors) == 0 {
		t.Error("expected batch error to be recorded")
	}
}

func TestOrchestrator_WatermarkFollowsModificationOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testIndexingConfig(t)
	cfg.BatchSize = 1
	mockEntries := storage_mocks.NewMockEntryStore(ctrl)
	mockSyncs := storage_mocks.NewMockSyncStore(ctrl)
	mockEmbedder := llm_mocks.NewMockEmbedder(ctrl)
	mockVectors := vectorstore_mocks.NewMockVectorStore(ctrl)

	watermark := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	prior := storage.SyncState{UserID: 7, LastSyncedAt: watermark}

	// An old entry edited in June sorts after a March entry because the
	// store orders by last modification, not creation.
	edited := &storage.Entry{
		ID: 1, UserID: 7, Content: "An old entry, edited much later.", Date: "2024-01-01",
		CreatedAt: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC),
	}
	march := &storage.Entry{
		ID: 2, UserID: 7, Content: "A March entry, never edited.", Date: "2024-03-05",
		CreatedAt: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC),
	}
	entries := []*storage.Entry{march, edited}
	var advanced storage.SyncState

	mockVectors.EXPECT().EnsureCollection(gomock.Any(), cfg.Collection, 4).Return(nil)
	mockSyncs.EXPECT().Get(gomock.Any(), int64(7)).Return(prior, nil).Times(2)
	mockEntries.EXPECT().ListTombstones(gomock.Any(), int64(7)).Return(nil, nil)
	mockEntries.EXPECT().ListByUser(gomock.Any(), int64(7), gomock.Any(), gomock.Nil()).Return(entries, nil)
	gomock.InOrder(
		mockEmbedder.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).DoAndReturn(embedTexts),
		mockEmbedder.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).
			Return(nil, errors.New("embedding service down")),
	)
	mockVectors.EXPECT().Upsert(gomock.Any(), cfg.Collection, gomock.Any()).Return(nil)
	mockSyncs.EXPECT().Advance(gomock.Any(), int64(7), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, state storage.SyncState) error {
			advanced = state
			return nil
		})
	mockEntries.EXPECT().CountByUser(gomock.Any(), int64(7)).Return(2, nil)
	mockVectors.EXPECT().Count(gomock.Any(), cfg.Collection).Return(1, nil)

	orch := NewOrchestrator(cfg, mockEntries, mockSyncs, mockEmbedder, mockVectors)
	stats, err := orch.RunIncremental(context.Background())
	if err != nil {
		t.Fatalf("RunIncremental() error = %v", err)
	}

	if stats.Status != StatusCompletedWithErrors {
		t.Errorf("Status = %s, want %s", stats.Status, StatusCompletedWithErrors)
	}
	if !advanced.LastSyncedAt.Equal(march.UpdatedAt) {
		t.Errorf("watermark = %v, want %v", advanced.LastSyncedAt, march.UpdatedAt)
	}
	// The failed entry stays ahead of the watermark, so the since filter
	// picks it up again on the next run.
	if !edited.UpdatedAt.After(advanced.LastSyncedAt) {
		t.Errorf("watermark %v passed unindexed entry updated at %v", advanced.LastSyncedAt, edited.UpdatedAt)
	}
}

func TestOrchestrator_RunFullPropagatesDeletions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testIndexingConfig(t)
	mockEntries := storage_mocks.NewMockEntryStore(ctrl)
	mockSyncs := storage_mocks.NewMockSyncStore(ctrl)
	mockEmbedder := llm_mocks.NewMockEmbedder(ctrl)
	mockVectors := vectorstore_mocks.NewMockVectorStore(ctrl)

	mockVectors.EXPECT().EnsureCollection(gomock.Any(), cfg.Collection, 4).Return(nil)
	mockEntries.EXPECT().ListTombstones(gomock.Any(), int64(7)).
		Return([]storage.Tombstone{{EntryID: 99, UserID: 7}}, nil)
	mockVectors.EXPECT().DeleteByEntry(gomock.Any(), cfg.Collection, int64(99)).Return(nil)
	mockEntries.EXPECT().ClearTombstones(gomock.Any(), int64(7), []int64{99}).Return(nil)
	mockEntries.EXPECT().ListByUser(gomock.Any(), int64(7), gomock.Nil(), gomock.Nil()).Return(nil, nil)
	mockEntries.EXPECT().CountByUser(gomock.Any(), int64(7)).Return(0, nil)
	mockVectors.EXPECT().Count(gomock.Any(), cfg.Collection).Return(0, nil)
	mockSyncs.EXPECT().Get(gomock.Any(), int64(7)).Return(storage.SyncState{UserID: 7}, nil)

	orch := NewOrchestrator(cfg, mockEntries, mockSyncs, mockEmbedder, mockVectors)
	stats, err := orch.RunFull(context.Background(), false)
	if err != nil {
		t.Fatalf("RunFull() error = %v", err)
	}

	if stats.EntriesDeleted != 1 {
		t.Errorf("EntriesDeleted = %d, want 1", stats.EntriesDeleted)
	}
	if stats.Status != StatusCompleted {
		t.Errorf("Status = %s, want %s", stats.Status, StatusCompleted)
	}
}

func TestOrchestrator_PropagatesDeletions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testIndexingConfig(t)
	mockEntries := storage_mocks.NewMockEntryStore(ctrl)
	mockSyncs := storage_mocks.NewMockSyncStore(ctrl)
	mockEmbedder := llm_mocks.NewMockEmbedder(ctrl)
	mockVectors := vectorstore_mocks.NewMockVectorStore(ctrl)

	mockVectors.EXPECT().EnsureCollection(gomock.Any(), cfg.Collection, 4).Return(nil)
	mockSyncs.EXPECT().Get(gomock.Any(), int64(7)).Return(storage.SyncState{UserID: 7}, nil).Times(2)
	mockEntries.EXPECT().ListTombstones(gomock.Any(), int64(7)).
		Return([]storage.Tombstone{{EntryID: 99, UserID: 7}}, nil)
	mockVectors.EXPECT().DeleteByEntry(gomock.Any(), cfg.Collection, int64(99)).Return(nil)
	mockEntries.EXPECT().ClearTombstones(gomock.Any(), int64(7), []int64{99}).Return(nil)
	mockEntries.EXPECT().ListByUser(gomock.Any(), int64(7), gomock.Nil(), gomock.Nil()).Return(nil, nil)
	mockEntries.EXPECT().CountByUser(gomock.Any(), int64(7)).Return(0, nil)
	mockVectors.EXPECT().Count(gomock.Any(), cfg.Collection).Return(0, nil)

	orch := NewOrchestrator(cfg, mockEntries, mockSyncs, mockEmbedder, mockVectors)
	stats, err := orch.RunIncremental(context.Background())
	if err != nil {
		t.Fatalf("RunIncremental() error = %v", err)
	}

	if stats.EntriesDeleted != 1 {
		t.Errorf("EntriesDeleted = %d, want 1", stats.EntriesDeleted)
	}
	if stats.Status != StatusCompleted {
		t.Errorf("Status = %s, want %s", stats.Status, StatusCompleted)
	}
}

func TestOrchestrator_ConcurrentRunRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testIndexingConfig(t)
	mockEntries := storage_mocks.NewMockEntryStore(ctrl)
	mockSyncs := storage_mocks.NewMockSyncStore(ctrl)
	mockEmbedder := llm_mocks.NewMockEmbedder(ctrl)
	mockVectors := vectorstore_mocks.NewMockVectorStore(ctrl)

	held, err := acquireRunLock(cfg.LockPath)
	if err != nil {
		t.Fatalf("acquireRunLock() error = %v", err)
	}
	defer held.release()

	orch := NewOrchestrator(cfg, mockEntries, mockSyncs, mockEmbedder, mockVectors)
	stats, err := orch.RunFull(context.Background(), false)

	if !errors.Is(err, ErrRunInProgress) {
		t.Errorf("error = %v, want ErrRunInProgress", err)
	}
	if stats.Status != StatusFailed {
		t.Errorf("Status = %s, want %s", stats.Status, StatusFailed)
	}
}
