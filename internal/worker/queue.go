// Package worker delivers queued job ids to the orchestrator: an in-process
// channel queue, a retry/backoff runner, and a pool of consumers.
package worker

import (
	"context"
	"fmt"
)

// MemoryQueue is an in-process job id queue with a bounded buffer. Delivery
// is at-least-once from the consumer's perspective: the runner may process
// an id more than once, and the orchestrator's claim step absorbs that.
type MemoryQueue struct {
	ch chan string
}

func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 64
	}
	return &MemoryQueue{ch: make(chan string, size)}
}

// Enqueue hands a job id to the consumers, blocking while the buffer is
// full.
func (q *MemoryQueue) Enqueue(ctx context.Context, jobID string) error {
	select {
	case q.ch <- jobID:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue %s: %w", jobID, ctx.Err())
	}
}

// Jobs exposes the delivery channel to the consumer pool.
func (q *MemoryQueue) Jobs() <-chan string { return q.ch }
