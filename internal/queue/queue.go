package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/fax-gateway/internal/logger"
	"github.com/jmehdipour/fax-gateway/internal/metrics"
	"github.com/jmehdipour/fax-gateway/internal/model"
	"github.com/jmehdipour/fax-gateway/internal/util"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Enqueuer is the write side handed to webhook handlers and job bodies.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind model.JobKind, payload any) (string, error)
}

// Queue is a redis-backed job queue. Ready jobs sit in a list
// (LPUSH/BRPop of JSON envelopes); retries wait in a sorted set scored
// by their ready-time until the promoter moves them back to the list.
type Queue struct {
	rdb         *redis.Client
	listKey     string
	retryKey    string
	maxAttempts int
	retryDelay  time.Duration
}

func New(rdb *redis.Client, prefix string, maxAttempts int, retryDelay time.Duration) *Queue {
	if prefix == "" {
		prefix = "faxgw:"
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if retryDelay <= 0 {
		retryDelay = 5 * time.Minute
	}
	return &Queue{
		rdb:         rdb,
		listKey:     prefix + "jobs",
		retryKey:    prefix + "jobs:retry",
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
	}
}

// Enqueue pushes a new job and returns its id. Purge jobs run once;
// failure there is swallowed by the handler, so retrying buys nothing.
func (q *Queue) Enqueue(ctx context.Context, kind model.JobKind, payload any) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("enqueue: unknown job kind %q", kind)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: marshal payload: %w", kind, err)
	}

	maxAttempts := q.maxAttempts
	if kind == model.JobPurgeBlob {
		maxAttempts = 1
	}

	job := model.Job{
		ID:          util.NewID(),
		Kind:        kind,
		Payload:     raw,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		CreatedAt:   time.Now().Unix(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: marshal job: %w", kind, err)
	}

	if err := q.rdb.LPush(ctx, q.listKey, data).Err(); err != nil {
		return "", fmt.Errorf("enqueue %s: %w", kind, err)
	}

	metrics.JobsTotal.WithLabelValues(kind.String(), "queued").Inc()

	return job.ID, nil
}

// Dequeue blocks on BRPop until a job is ready or ctx is cancelled.
func (q *Queue) Dequeue(ctx context.Context) (*model.Job, error) {
	res, err := q.rdb.BRPop(ctx, 0, q.listKey).Result()
	if err != nil {
		return nil, err
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("dequeue: unexpected BRPop result len=%d", len(res))
	}

	var job model.Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("dequeue: bad envelope: %w", err)
	}
	return &job, nil
}

// Defer parks a failed job in the retry set; the promoter re-lists it
// after the backoff delay. The caller has already bumped job.Attempt.
func (q *Queue) Defer(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("defer %s: %w", job.Kind, err)
	}

	readyAt := float64(time.Now().Add(q.retryDelay).Unix())
	if err := q.rdb.ZAdd(ctx, q.retryKey, redis.Z{Score: readyAt, Member: data}).Err(); err != nil {
		return fmt.Errorf("defer %s: %w", job.Kind, err)
	}

	metrics.JobsTotal.WithLabelValues(job.Kind.String(), "retried").Inc()

	return nil
}

// PromoteDue moves jobs whose backoff has elapsed from the retry set to
// the ready list. Returns how many were promoted.
func (q *Queue) PromoteDue(ctx context.Context) (int, error) {
	now := fmt.Sprintf("%d", time.Now().Unix())
	members, err := q.rdb.ZRangeByScore(ctx, q.retryKey, &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil {
		return 0, err
	}
	if len(members) == 0 {
		return 0, nil
	}

	pipe := q.rdb.TxPipeline()
	for _, m := range members {
		pipe.LPush(ctx, q.listKey, m)
		pipe.ZRem(ctx, q.retryKey, m)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	return len(members), nil
}

// RunPromoter ticks PromoteDue until ctx is cancelled.
func (q *Queue) RunPromoter(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			n, err := q.PromoteDue(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Log.Warn("retry promotion failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Log.Debug("promoted retries", zap.Int("count", n))
			}
		}
	}
}
