package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ErrConfiguration is returned when a required configuration value is missing
// or invalid. Callers are expected to fail fast on it.
var ErrConfiguration = errors.New("invalid configuration")

// Config holds all configuration for the application.
type Config struct {
	DBPath              string
	DataDir             string
	QdrantURL           string
	GoogleAPIKey        string
	EmbeddingModel      string
	EmbeddingDim        int
	ChunkSize           int
	ChunkOverlap        int
	BatchSize           int
	SimilarityThreshold float64
	APIPort             string
	LogLevel            slog.Level
	LogFormat           string
}

// Load reads configuration from environment variables and returns a Config.
// A .env file in the current directory or project root is loaded first;
// environment variables already set take precedence over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	// Walk up from the working directory looking for a .env next to go.mod.
	if wd, err := os.Getwd(); err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		DBPath:         getEnv("DB_PATH", "./data/diary.db"),
		DataDir:        getEnv("DATA_DIR", "./data"),
		QdrantURL:      getEnv("QDRANT_URL", "http://localhost:6333"),
		GoogleAPIKey:   getEnv("GOOGLE_API_KEY", ""),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		APIPort:        getEnv("API_PORT", "9000"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
	}

	if cfg.GoogleAPIKey == "" {
		return nil, fmt.Errorf("%w: GOOGLE_API_KEY is required", ErrConfiguration)
	}

	var err error
	if cfg.EmbeddingDim, err = getEnvInt("EMBEDDING_DIM", 768); err != nil {
		return nil, err
	}
	if cfg.EmbeddingDim <= 0 {
		return nil, fmt.Errorf("%w: EMBEDDING_DIM must be greater than 0", ErrConfiguration)
	}
	if cfg.ChunkSize, err = getEnvInt("CHUNK_SIZE", 300); err != nil {
		return nil, err
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: CHUNK_SIZE must be greater than 0", ErrConfiguration)
	}
	if cfg.ChunkOverlap, err = getEnvInt("CHUNK_OVERLAP", 50); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("%w: CHUNK_OVERLAP must be in [0, CHUNK_SIZE)", ErrConfiguration)
	}
	if cfg.BatchSize, err = getEnvInt("BATCH_SIZE", 50); err != nil {
		return nil, err
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: BATCH_SIZE must be greater than 0", ErrConfiguration)
	}

	thresholdStr := getEnv("SIMILARITY_THRESHOLD", "0.3")
	cfg.SimilarityThreshold, err = strconv.ParseFloat(thresholdStr, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: SIMILARITY_THRESHOLD must be a valid float: %v", ErrConfiguration, err)
	}
	if cfg.SimilarityThreshold < 0 || cfg.SimilarityThreshold > 1 {
		return nil, fmt.Errorf("%w: SIMILARITY_THRESHOLD must be in [0, 1]", ErrConfiguration)
	}

	cfg.LogLevel, err = parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create data directory: %v", ErrConfiguration, err)
	}
	if dbDir := filepath.Dir(cfg.DBPath); dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: failed to create database directory: %v", ErrConfiguration, err)
		}
	}

	return cfg, nil
}

// Indexing derives the per-user indexing configuration for one run.
// One IndexingConfig per user per run; never shared across users.
func (c *Config) Indexing(userID int64) IndexingConfig {
	return IndexingConfig{
		UserID:         userID,
		EmbeddingModel: c.EmbeddingModel,
		EmbeddingDim:   c.EmbeddingDim,
		ChunkSize:      c.ChunkSize,
		ChunkOverlap:   c.ChunkOverlap,
		BatchSize:      c.BatchSize,
		Collection:     CollectionForUser(userID),
		LockPath:       filepath.Join(c.DataDir, fmt.Sprintf("index_user_%d.lock", userID)),
	}
}

// IndexingConfig is the immutable configuration for one indexing run.
type IndexingConfig struct {
	UserID         int64
	EmbeddingModel string
	EmbeddingDim   int
	ChunkSize      int
	ChunkOverlap   int
	BatchSize      int
	Collection     string
	LockPath       string
}

// Validate checks the run parameters a trigger must supply.
func (c IndexingConfig) Validate() error {
	if c.UserID <= 0 {
		return fmt.Errorf("%w: user id must be positive", ErrConfiguration)
	}
	if c.ChunkSize <= 0 || c.BatchSize <= 0 {
		return fmt.Errorf("%w: chunk size and batch size must be positive", ErrConfiguration)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk overlap must be in [0, chunk size)", ErrConfiguration)
	}
	if c.Collection == "" {
		return fmt.Errorf("%w: collection name is required", ErrConfiguration)
	}
	return nil
}

// CollectionForUser returns the deterministic vector collection name for a user.
// Every user gets exactly one collection; no cross-user query is ever issued.
func CollectionForUser(userID int64) string {
	return fmt.Sprintf("user_%d_diary", userID)
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a valid integer: %v", ErrConfiguration, key, err)
	}
	return v, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: unknown LOG_LEVEL %q", ErrConfiguration, raw)
	}
}
