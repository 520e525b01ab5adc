package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	jobList        = "sentimeter:jobs"
	processingList = "sentimeter:jobs:processing"
	retryZSet      = "sentimeter:jobs:retry"
	deadList       = "sentimeter:jobs:dead"
	popTimeout     = 2 * time.Second
)

// Job is one unit of deferred work. Payload is job-type specific JSON.
type Job struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// NewClient opens a Redis connection from a URL and verifies it with a ping.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// Queue is the producer side of the deferred job runner. The create-entry path
// uses it fire-and-forget: once the job message is durably in Redis the HTTP
// request returns.
type Queue struct {
	rdb *redis.Client
}

func NewQueue(rdb *redis.Client) *Queue { return &Queue{rdb: rdb} }

// Enqueue pushes a job for immediate consumption and returns its id.
func (q *Queue) Enqueue(ctx context.Context, jobType string, payload any) (uuid.UUID, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:         uuid.New(),
		Type:       jobType,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(job)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal job: %w", err)
	}
	if err := q.rdb.LPush(ctx, jobList, data).Err(); err != nil {
		return uuid.Nil, fmt.Errorf("enqueue job: %w", err)
	}
	return job.ID, nil
}

// scheduleRetry parks a failed job in the retry set until its backoff elapses.
func (q *Queue) scheduleRetry(ctx context.Context, job Job, readyAt time.Time) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.rdb.ZAdd(ctx, retryZSet, redis.Z{
		Score:  float64(readyAt.Unix()),
		Member: data,
	}).Err()
}

// promoteDue moves jobs whose backoff has elapsed back onto the main list.
func (q *Queue) promoteDue(ctx context.Context, now time.Time) (int, error) {
	members, err := q.rdb.ZRangeByScore(ctx, retryZSet, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now.Unix()),
	}).Result()
	if err != nil {
		return 0, err
	}
	promoted := 0
	for _, m := range members {
		// Remove first so a concurrent promoter cannot double-deliver the
		// same retry record.
		removed, err := q.rdb.ZRem(ctx, retryZSet, m).Result()
		if err != nil || removed == 0 {
			continue
		}
		if err := q.rdb.LPush(ctx, jobList, m).Err(); err != nil {
			return promoted, err
		}
		promoted++
	}
	return promoted, nil
}

// requeueOrphans moves jobs stranded on the processing list by a crashed
// worker back onto the main list. Jobs a live worker still holds get
// redelivered too; handlers already tolerate re-delivery.
func (q *Queue) requeueOrphans(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.rdb.LMove(ctx, processingList, jobList, "RIGHT", "LEFT").Err()
		if err == redis.Nil {
			return moved, nil
		}
		if err != nil {
			return moved, err
		}
		moved++
	}
}

// deadLetter parks a job that exhausted its retries for operator inspection.
func (q *Queue) deadLetter(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, deadList, data).Err()
}

// backoff returns the wait before the next attempt: 30s doubling per attempt,
// capped at 15 minutes.
func backoff(attempts int) time.Duration {
	d := 30 * time.Second << (attempts - 1)
	if d > 15*time.Minute || d <= 0 {
		return 15 * time.Minute
	}
	return d
}
