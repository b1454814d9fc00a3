package service

import (
	"context"
	"fmt"

	"github.com/okian/churnlens/internal/adapters/mq/queue"
	"github.com/okian/churnlens/internal/adapters/mq/worker"
	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/pkg/logger"
)

// classifyParallel fans records out over a bounded queue and a worker pool.
// Results land in per-sequence slots, so the output keeps input order.
func (s *Service) classifyParallel(ctx context.Context, records []model.AccountRecord) ([]model.ClassifiedAccount, error) {
	passCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	q := queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	results := worker.NewResults(len(records))
	pool := worker.NewPool(s.workerCount, q, s.engine, results)
	pool.Start(passCtx)

	for i := range records {
		if err := q.EnqueueWait(passCtx, queue.Job{Seq: i, Record: records[i]}); err != nil {
			cancel()
			_ = pool.Shutdown(ctx)
			return nil, fmt.Errorf("enqueue record %d: %w", i, err)
		}
	}
	if err := q.Close(); err != nil {
		return nil, fmt.Errorf("close queue: %w", err)
	}
	if err := pool.Wait(passCtx); err != nil {
		return nil, fmt.Errorf("wait for workers: %w", err)
	}

	s.log().Debug(ctx, "parallel pass finished",
		logger.Int("workers", pool.Size()),
		logger.Int("records", len(records)),
	)
	return results.Accounts()
}
