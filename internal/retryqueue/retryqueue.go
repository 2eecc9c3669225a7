// Package retryqueue holds retry-eligible signing operations for a
// background collaborator. The queue owns capacity and handoff only;
// the consumer owns its backoff schedule.
package retryqueue

import (
	"go.uber.org/zap"

	"github.com/votis/walletd/internal/executor"
	walleterr "github.com/votis/walletd/pkg/errors"
)

// DefaultCapacity bounds the in-memory queue. A full queue rejects new
// jobs rather than blocking the request path.
const DefaultCapacity = 256

// Memory is a bounded in-memory job queue. Jobs do not survive a
// process restart, matching the no-durable-state rule for credentials
// and stamped bodies.
type Memory struct {
	logger *zap.Logger
	jobs   chan executor.Job
}

// NewMemory creates a queue with the given capacity, or
// DefaultCapacity when non-positive.
func NewMemory(logger *zap.Logger, capacity int) *Memory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{
		logger: logger,
		jobs:   make(chan executor.Job, capacity),
	}
}

// Enqueue adds a job without blocking. A full queue is an internal
// error; the caller surfaces the original failure instead.
func (m *Memory) Enqueue(job executor.Job) error {
	select {
	case m.jobs <- job:
		m.logger.Debug("job queued",
			zap.String("operation_type", job.OperationType),
			zap.Int("depth", len(m.jobs)))
		return nil
	default:
		return walleterr.Wrap(walleterr.ErrInternal, "retry queue full")
	}
}

// Jobs exposes the queued work to the consuming collaborator.
func (m *Memory) Jobs() <-chan executor.Job {
	return m.jobs
}

// Len returns the current queue depth.
func (m *Memory) Len() int {
	return len(m.jobs)
}
