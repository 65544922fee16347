package worker

import (
	"context"
	"errors"
	"time"

	"github.com/jmehdipour/fax-gateway/internal/logger"
	"github.com/jmehdipour/fax-gateway/internal/metrics"
	"github.com/jmehdipour/fax-gateway/internal/model"
	"go.uber.org/zap"
)

// JobHandler executes one job attempt. Exhausted is invoked once after
// the final failed attempt.
type JobHandler interface {
	Handle(ctx context.Context, job *model.Job) error
	Exhausted(ctx context.Context, job *model.Job)
}

// JobSource feeds ready jobs and parks failed ones for retry.
type JobSource interface {
	Dequeue(ctx context.Context) (*model.Job, error)
	Defer(ctx context.Context, job *model.Job) error
}

// BridgeWorker:
// - fetches job envelopes from the queue,
// - fans them out to processor goroutines,
// - re-schedules failures until attempts run out.
type BridgeWorker struct {
	Source  JobSource
	Handler JobHandler
	Workers int
}

func NewBridgeWorker(source JobSource, handler JobHandler) *BridgeWorker {
	return &BridgeWorker{
		Source:  source,
		Handler: handler,
		Workers: 8,
	}
}

// Run starts the worker and blocks until ctx is cancelled.
func (w *BridgeWorker) Run(ctx context.Context) error {
	if w.Workers <= 0 {
		w.Workers = 8
	}

	jobCh := make(chan *model.Job, w.Workers*2)

	// Fetcher goroutine
	go func() {
		defer close(jobCh)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				job, err := w.Source.Dequeue(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					logger.Log.Warn("job dequeue failed", zap.Error(err))
					time.Sleep(200 * time.Millisecond)
					continue
				}
				jobCh <- job
			}
		}
	}()

	// Processors
	done := make(chan struct{})
	for i := 0; i < w.Workers; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for job := range jobCh {
				w.processOne(ctx, job)
			}
		}()
	}

	<-ctx.Done()
	for i := 0; i < w.Workers; i++ {
		<-done
	}
	return nil
}

func (w *BridgeWorker) processOne(ctx context.Context, job *model.Job) {
	attempt := job.Attempt + 1

	err := w.Handler.Handle(ctx, job)
	if err == nil {
		metrics.JobsTotal.WithLabelValues(job.Kind.String(), "done").Inc()
		logger.Log.Debug("job done",
			zap.String("id", job.ID), zap.String("kind", job.Kind.String()),
			zap.Int("attempt", attempt))
		return
	}

	if errors.Is(err, context.Canceled) {
		// Shutdown raced the attempt; the job is lost unless the queue
		// re-delivers it, which at-least-once semantics allow.
		return
	}

	if attempt >= job.MaxAttempts {
		metrics.JobsTotal.WithLabelValues(job.Kind.String(), "exhausted").Inc()
		logger.Log.Error("job exhausted",
			zap.String("id", job.ID), zap.String("kind", job.Kind.String()),
			zap.Int("attempts", attempt), zap.Error(err))
		w.Handler.Exhausted(ctx, job)
		return
	}

	job.Attempt = attempt
	if derr := w.Source.Defer(ctx, job); derr != nil {
		logger.Log.Error("job defer failed",
			zap.String("id", job.ID), zap.Error(derr))
		return
	}

	logger.Log.Warn("job failed, will retry",
		zap.String("id", job.ID), zap.String("kind", job.Kind.String()),
		zap.Int("attempt", attempt), zap.Int("max_attempts", job.MaxAttempts),
		zap.Error(err))
}
