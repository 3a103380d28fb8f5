package worker

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Pool runs a fixed number of consumers over the queue, each driving
// delivered job ids through the runner. Jobs are independent, so consumers
// never coordinate beyond the claim step inside the orchestrator.
type Pool struct {
	queue  *MemoryQueue
	runner *Runner
	size   int
	logger *zap.Logger
}

func NewPool(queue *MemoryQueue, runner *Runner, size int, logger *zap.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		queue:  queue,
		runner: runner,
		size:   size,
		logger: logger.With(zap.String("component", "worker-pool")),
	}
}

// Run blocks until the context is cancelled. Per-job failures are logged,
// not returned; they must not bring the pool down.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.size; i++ {
		worker := i
		g.Go(func() error {
			return p.consume(ctx, worker)
		})
	}
	p.logger.Info("worker pool started", zap.Int("size", p.size))
	return g.Wait()
}

func (p *Pool) consume(ctx context.Context, worker int) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case jobID := <-p.queue.Jobs():
			res, err := p.runner.Handle(ctx, jobID)
			if err != nil {
				p.logger.Error("job failed",
					zap.Int("worker", worker),
					zap.String("job_id", res.JobID),
					zap.Error(err))
				continue
			}
			p.logger.Info("job handled",
				zap.Int("worker", worker),
				zap.String("job_id", res.JobID),
				zap.String("status", string(res.Status)))
		}
	}
}
