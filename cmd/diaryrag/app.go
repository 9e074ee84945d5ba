package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"diary-rag/internal/config"
	"diary-rag/internal/indexer"
	"diary-rag/internal/llm"
	"diary-rag/internal/rag"
	"diary-rag/internal/storage"
	"diary-rag/internal/vectorstore"
)

// app wires the shared dependencies every command needs.
type app struct {
	cfg      *config.Config
	db       *sql.DB
	entries  *storage.EntryRepo
	syncs    *storage.SyncRepo
	embedder *llm.GoogleEmbedder
	vectors  *vectorstore.QdrantStore
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	setupLogger(cfg)

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	if err := storage.CheckSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	vectors, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to vector store: %w", err)
	}

	embedder, err := llm.NewGoogleEmbedder(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDim)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &app{
		cfg:      cfg,
		db:       db,
		entries:  storage.NewEntryRepo(db),
		syncs:    storage.NewSyncRepo(db),
		embedder: embedder,
		vectors:  vectors,
	}, nil
}

func (a *app) close() {
	a.db.Close()
}

func (a *app) orchestrator(userID int64) *indexer.Orchestrator {
	return indexer.NewOrchestrator(a.cfg.Indexing(userID), a.entries, a.syncs, a.embedder, a.vectors)
}

func (a *app) retriever() *rag.Retriever {
	return rag.NewRetriever(a.embedder, a.vectors, a.cfg.SimilarityThreshold)
}

func setupLogger(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
