package indexer

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrRunInProgress is returned when another indexing run already holds the
// user's run lock. The watermark read-then-advance sequence is not safe
// under concurrent execution for one user, so runs never interleave.
var ErrRunInProgress = errors.New("indexing run already in progress for user")

type runLock struct {
	fl *flock.Flock
}

// acquireRunLock takes the per-user run lock file without blocking.
func acquireRunLock(path string) (*runLock, error) {
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock %s: %w", path, err)
	}
	if !locked {
		return nil, ErrRunInProgress
	}
	return &runLock{fl: fl}, nil
}

func (l *runLock) release() {
	_ = l.fl.Unlock()
}
