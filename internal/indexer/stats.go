package indexer

import "time"

// RunState is the phase an indexing run is in. A run moves through the
// states in order and terminates in Completed or Failed.
type RunState string

const (
	StateIdle          RunState = "idle"
	StateLoading       RunState = "loading"
	StatePreprocessing RunState = "preprocessing"
	StateChunking      RunState = "chunking"
	StateEmbedding     RunState = "embedding"
	StateStoring       RunState = "storing"
	StateCompleted     RunState = "completed"
	StateFailed        RunState = "failed"
)

// Status is the terminal outcome of a run.
type Status string

const (
	StatusCompleted           Status = "completed_successfully"
	StatusCompletedWithErrors Status = "completed_with_errors"
	StatusFailed              Status = "failed"
)

// IndexingStats is the result of one orchestrator run, or a read-only
// snapshot when produced by Stats.
type IndexingStats struct {
	UserID              int64      `json:"user_id"`
	State               RunState   `json:"state"`
	Status              Status     `json:"status"`
	EntriesLoaded       int        `json:"entries_loaded"`
	EntriesPreprocessed int        `json:"entries_preprocessed"`
	ChunksCreated       int        `json:"chunks_created"`
	ChunksEmbedded      int        `json:"chunks_embedded"`
	ChunksStored        int        `json:"chunks_stored"`
	EntriesDeleted      int        `json:"entries_deleted"`
	BatchesFailed       int        `json:"batches_failed"`
	DatabaseEntries     int        `json:"database_entries"`
	VectorDocuments     int        `json:"vector_documents"`
	LastSyncedAt        *time.Time `json:"last_synced_at,omitempty"`
	StartedAt           time.Time  `json:"started_at"`
	FinishedAt          time.Time  `json:"finished_at"`
	Errors              []string   `json:"errors,omitempty"`
}

func (s *IndexingStats) fail(err error) *IndexingStats {
	s.State = StateFailed
	s.Status = StatusFailed
	s.Errors = append(s.Errors, err.Error())
	s.FinishedAt = time.Now().UTC()
	return s
}

func (s *IndexingStats) finish() *IndexingStats {
	s.State = StateCompleted
	if s.BatchesFailed > 0 || len(s.Errors) > 0 {
		s.Status = StatusCompletedWithErrors
	} else {
		s.Status = StatusCompleted
	}
	s.FinishedAt = time.Now().UTC()
	return s
}
