package indexer

import (
	"context"
	"fmt"
	"time"

	"diary-rag/internal/config"
	"diary-rag/internal/contextutil"
	"diary-rag/internal/llm"
	"diary-rag/internal/storage"
	"diary-rag/internal/vectorstore"
)

// storeTimeout bounds each vector index write so a run never hangs.
const storeTimeout = 30 * time.Second

// Orchestrator coordinates the entry store, chunker, embedder, vector index
// and sync tracker into full and incremental indexing runs. It is the sole
// writer of a user's vector collection and sync state.
//
// Runs for one user never interleave (per-user run lock); runs for
// different users are independent.
type Orchestrator struct {
	cfg      config.IndexingConfig
	entries  storage.EntryStore
	syncs    storage.SyncStore
	embedder llm.Embedder
	vectors  vectorstore.VectorStore
	cleaner  *Cleaner
	chunker  *Chunker
}

// NewOrchestrator creates an orchestrator for one user's indexing runs.
func NewOrchestrator(
	cfg config.IndexingConfig,
	entries storage.EntryStore,
	syncs storage.SyncStore,
	embedder llm.Embedder,
	vectors vectorstore.VectorStore,
) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		entries:  entries,
		syncs:    syncs,
		embedder: embedder,
		vectors:  vectors,
		cleaner:  NewCleaner(),
		chunker:  NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
	}
}

func (o *Orchestrator) newStats() *IndexingStats {
	return &IndexingStats{
		UserID:    o.cfg.UserID,
		State:     StateIdle,
		StartedAt: time.Now().UTC(),
	}
}

// RunFull indexes every entry the user has, ignoring the watermark, after
// propagating source deletions so the index converges to the source even
// for entries that no longer exist. When clearExisting is set the user's
// collection is dropped first and pending tombstones are discarded, their
// vectors being gone with the collection. The watermark is set to the
// latest indexed entry timestamp, and never advanced past a failed batch.
func (o *Orchestrator) RunFull(ctx context.Context, clearExisting bool) (*IndexingStats, error) {
	logger := contextutil.LoggerFromContext(ctx).With("user_id", o.cfg.UserID, "mode", "full")
	stats := o.newStats()

	if err := o.cfg.Validate(); err != nil {
		return stats.fail(err), err
	}
	lock, err := acquireRunLock(o.cfg.LockPath)
	if err != nil {
		return stats.fail(err), err
	}
	defer lock.release()

	if clearExisting {
		if err := o.vectors.DropCollection(ctx, o.cfg.Collection); err != nil {
			return stats.fail(err), err
		}
		logger.InfoContext(ctx, "cleared existing collection", "collection", o.cfg.Collection)
	}
	if err := o.vectors.EnsureCollection(ctx, o.cfg.Collection, o.cfg.EmbeddingDim); err != nil {
		return stats.fail(err), err
	}

	if clearExisting {
		o.discardTombstones(ctx, stats)
	} else {
		o.propagateDeletions(ctx, stats)
	}

	stats.State = StateLoading
	entries, err := o.entries.ListByUser(ctx, o.cfg.UserID, nil, nil)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load entries", "error", err)
		return stats.fail(err), err
	}
	stats.EntriesLoaded = len(entries)
	logger.InfoContext(ctx, "starting full indexing", "entries", len(entries))

	base := storage.SyncState{UserID: o.cfg.UserID}
	o.processBatches(ctx, entries, base, stats)

	o.finalizeCounts(ctx, stats)
	logger.InfoContext(ctx, "full indexing finished",
		"status", stats.finish().Status, "chunks_stored", stats.ChunksStored, "batches_failed", stats.BatchesFailed)
	return stats, nil
}

// RunIncremental indexes only entries newer than the watermark, after
// propagating source deletions to the vector index. The watermark advances
// batch by batch, only after each batch's vectors are durably stored, and
// never past a failed batch. A crash or skipped batch just means the same
// delta is reprocessed on the next run, which upsert idempotence makes safe.
func (o *Orchestrator) RunIncremental(ctx context.Context) (*IndexingStats, error) {
	logger := contextutil.LoggerFromContext(ctx).With("user_id", o.cfg.UserID, "mode", "incremental")
	stats := o.newStats()

	if err := o.cfg.Validate(); err != nil {
		return stats.fail(err), err
	}
	lock, err := acquireRunLock(o.cfg.LockPath)
	if err != nil {
		return stats.fail(err), err
	}
	defer lock.release()

	if err := o.vectors.EnsureCollection(ctx, o.cfg.Collection, o.cfg.EmbeddingDim); err != nil {
		return stats.fail(err), err
	}

	state, err := o.syncs.Get(ctx, o.cfg.UserID)
	if err != nil {
		return stats.fail(err), err
	}

	o.propagateDeletions(ctx, stats)

	stats.State = StateLoading
	var since *time.Time
	if state.Synced() {
		t := state.LastSyncedAt
		since = &t
		logger.InfoContext(ctx, "loading entries since watermark", "since", t)
	} else {
		logger.InfoContext(ctx, "no previous sync, loading all entries")
	}

	entries, err := o.entries.ListByUser(ctx, o.cfg.UserID, since, nil)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load entries", "error", err)
		return stats.fail(err), err
	}
	stats.EntriesLoaded = len(entries)
	logger.InfoContext(ctx, "starting incremental indexing", "entries", len(entries))

	o.processBatches(ctx, entries, state, stats)

	o.finalizeCounts(ctx, stats)
	logger.InfoContext(ctx, "incremental indexing finished",
		"status", stats.finish().Status, "chunks_stored", stats.ChunksStored, "batches_failed", stats.BatchesFailed)
	return stats, nil
}

// Stats reports current counts from the entry store, vector index and sync
// tracker without mutating anything.
func (o *Orchestrator) Stats(ctx context.Context) (*IndexingStats, error) {
	stats := o.newStats()

	dbCount, err := o.entries.CountByUser(ctx, o.cfg.UserID)
	if err != nil {
		return stats.fail(err), err
	}
	vecCount, err := o.vectors.Count(ctx, o.cfg.Collection)
	if err != nil {
		return stats.fail(err), err
	}
	state, err := o.syncs.Get(ctx, o.cfg.UserID)
	if err != nil {
		return stats.fail(err), err
	}

	stats.DatabaseEntries = dbCount
	stats.VectorDocuments = vecCount
	if state.Synced() {
		t := state.LastSyncedAt
		stats.LastSyncedAt = &t
	}
	stats.State = StateCompleted
	stats.Status = StatusCompleted
	stats.FinishedAt = time.Now().UTC()
	return stats, nil
}

// propagateDeletions removes vectors for entries deleted at the source.
// A failed deletion keeps its tombstone so the next run retries it.
func (o *Orchestrator) propagateDeletions(ctx context.Context, stats *IndexingStats) {
	logger := contextutil.LoggerFromContext(ctx).With("user_id", o.cfg.UserID)

	tombstones, err := o.entries.ListTombstones(ctx, o.cfg.UserID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list tombstones", "error", err)
		stats.Errors = append(stats.Errors, fmt.Sprintf("list tombstones: %v", err))
		return
	}
	if len(tombstones) == 0 {
		return
	}

	var cleared []int64
	for _, tomb := range tombstones {
		if err := o.vectors.DeleteByEntry(ctx, o.cfg.Collection, tomb.EntryID); err != nil {
			logger.ErrorContext(ctx, "failed to delete entry vectors", "entry_id", tomb.EntryID, "error", err)
			stats.Errors = append(stats.Errors, fmt.Sprintf("delete entry %d: %v", tomb.EntryID, err))
			continue
		}
		cleared = append(cleared, tomb.EntryID)
	}

	if len(cleared) > 0 {
		if err := o.entries.ClearTombstones(ctx, o.cfg.UserID, cleared); err != nil {
			logger.ErrorContext(ctx, "failed to clear tombstones", "error", err)
			stats.Errors = append(stats.Errors, fmt.Sprintf("clear tombstones: %v", err))
		}
	}
	stats.EntriesDeleted = len(cleared)
	logger.InfoContext(ctx, "propagated deletions", "deleted", len(cleared), "failed", len(tombstones)-len(cleared))
}

// discardTombstones clears pending tombstones without touching the vector
// index, for runs that already dropped the whole collection.
func (o *Orchestrator) discardTombstones(ctx context.Context, stats *IndexingStats) {
	logger := contextutil.LoggerFromContext(ctx).With("user_id", o.cfg.UserID)

	tombstones, err := o.entries.ListTombstones(ctx, o.cfg.UserID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list tombstones", "error", err)
		stats.Errors = append(stats.Errors, fmt.Sprintf("list tombstones: %v", err))
		return
	}
	if len(tombstones) == 0 {
		return
	}

	ids := make([]int64, len(tombstones))
	for i, tomb := range tombstones {
		ids[i] = tomb.EntryID
	}
	if err := o.entries.ClearTombstones(ctx, o.cfg.UserID, ids); err != nil {
		logger.ErrorContext(ctx, "failed to clear tombstones", "error", err)
		stats.Errors = append(stats.Errors, fmt.Sprintf("clear tombstones: %v", err))
		return
	}
	stats.EntriesDeleted = len(ids)
	logger.InfoContext(ctx, "discarded tombstones with dropped collection", "deleted", len(ids))
}

// processBatches runs the preprocess → chunk → embed → store steps over
// entries in groups of BatchSize. A failing batch is skipped and counted;
// later batches still run, but the watermark stops at the last batch of the
// unbroken successful prefix. Entries must be ordered by last modification,
// as ListByUser returns them, so no batch's timestamp maximum can exceed
// that of a batch still waiting.
func (o *Orchestrator) processBatches(ctx context.Context, entries []*storage.Entry, base storage.SyncState, stats *IndexingStats) {
	logger := contextutil.LoggerFromContext(ctx).With("user_id", o.cfg.UserID)

	entriesIndexed := base.EntriesIndexed
	watermarkBlocked := false

	for start := 0; start < len(entries); start += o.cfg.BatchSize {
		end := start + o.cfg.BatchSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[start:end]
		batchNum := start/o.cfg.BatchSize + 1

		stored, err := o.processBatch(ctx, batch, stats)
		if err != nil {
			stats.BatchesFailed++
			stats.Errors = append(stats.Errors, fmt.Sprintf("batch %d: %v", batchNum, err))
			watermarkBlocked = true
			logger.ErrorContext(ctx, "batch failed, skipping", "batch", batchNum, "entries", len(batch), "error", err)
			continue
		}

		entriesIndexed += len(batch)
		logger.InfoContext(ctx, "batch stored", "batch", batchNum, "entries", len(batch), "chunks", stored)

		if watermarkBlocked {
			continue
		}

		// Advance the watermark only now that this batch's vectors are
		// durably stored. A failure here leaves the watermark behind,
		// which is safe: the delta is simply reprocessed next run.
		next := storage.SyncState{
			UserID:          o.cfg.UserID,
			LastSyncedAt:    latestTimestamp(batch, base.LastSyncedAt),
			LastEntryID:     batch[len(batch)-1].ID,
			EntriesIndexed:  entriesIndexed,
			VectorDocuments: base.VectorDocuments + stats.ChunksStored,
		}
		if err := o.syncs.Advance(ctx, o.cfg.UserID, next); err != nil {
			logger.ErrorContext(ctx, "failed to advance watermark", "error", err)
			stats.Errors = append(stats.Errors, fmt.Sprintf("advance watermark: %v", err))
			watermarkBlocked = true
			continue
		}
		base.LastSyncedAt = next.LastSyncedAt
	}
}

// processBatch pushes one group of entries through cleaning, metadata
// extraction, chunking, embedding and storage. Entries that clean to
// nothing are dropped; extraction never fails. An embedding or storage
// error fails the whole batch.
func (o *Orchestrator) processBatch(ctx context.Context, batch []*storage.Entry, stats *IndexingStats) (int, error) {
	stats.State = StatePreprocessing

	var chunks []Chunk
	for _, entry := range batch {
		cleaned := o.cleaner.Clean(entry.Content)
		if cleaned == "" {
			continue
		}
		stats.EntriesPreprocessed++

		stats.State = StateChunking
		meta := ExtractMetadata(entry, cleaned)
		entryChunks := o.chunker.Split(entry, cleaned, meta)
		stats.ChunksCreated += len(entryChunks)
		chunks = append(chunks, entryChunks...)
	}

	if len(chunks) == 0 {
		return 0, nil
	}

	stats.State = StateEmbedding
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := o.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(vectors))
	}
	stats.ChunksEmbedded += len(chunks)

	stats.State = StateStoring
	points := make([]vectorstore.Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = vectorstore.Point{
			ID:   chunk.ID,
			Vec:  vectors[i],
			Text: chunk.Text,
			Meta: chunk.Meta.Payload(),
		}
	}

	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := o.vectors.Upsert(storeCtx, o.cfg.Collection, points); err != nil {
		return 0, err
	}

	stats.ChunksStored += len(points)
	return len(points), nil
}

// finalizeCounts fills observability counts from the live stores.
// Best-effort: a failure here does not change the run outcome.
func (o *Orchestrator) finalizeCounts(ctx context.Context, stats *IndexingStats) {
	if count, err := o.entries.CountByUser(ctx, o.cfg.UserID); err == nil {
		stats.DatabaseEntries = count
	}
	if count, err := o.vectors.Count(ctx, o.cfg.Collection); err == nil {
		stats.VectorDocuments = count
	}
	if state, err := o.syncs.Get(ctx, o.cfg.UserID); err == nil && state.Synced() {
		t := state.LastSyncedAt
		stats.LastSyncedAt = &t
	}
}

// latestTimestamp returns the newest created_at/updated_at in the batch,
// never going backwards from the current watermark.
func latestTimestamp(batch []*storage.Entry, current time.Time) time.Time {
	latest := current
	for _, entry := range batch {
		if entry.CreatedAt.After(latest) {
			latest = entry.CreatedAt
		}
		if entry.UpdatedAt.After(latest) {
			latest = entry.UpdatedAt
		}
	}
	return latest
}
