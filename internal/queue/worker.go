package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Handler processes one job payload. Returning an error makes the runner
// retry the job later with backoff; delivery is at-least-once, so handlers
// must tolerate re-delivery of work that already succeeded.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Worker is the consumer side of the deferred job runner.
type Worker struct {
	rdb        *redis.Client
	queue      *Queue
	logger     *zap.Logger
	handlers   map[string]Handler
	conc       int
	maxRetries int
	jobTimeout time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func NewWorker(rdb *redis.Client, logger *zap.Logger, concurrency, maxRetries int, jobTimeout time.Duration) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		rdb:        rdb,
		queue:      NewQueue(rdb),
		logger:     logger,
		handlers:   make(map[string]Handler),
		conc:       concurrency,
		maxRetries: maxRetries,
		jobTimeout: jobTimeout,
	}
}

// Register binds a handler to a job type. Must be called before Start.
func (w *Worker) Register(jobType string, h Handler) {
	w.handlers[jobType] = h
	w.logger.Info("registered job handler", zap.String("type", jobType))
}

// Start launches the consumer goroutines and the retry promoter.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	// Jobs a previous worker took but never finished are still on the
	// processing list; put them back before consuming.
	if moved, err := w.queue.requeueOrphans(ctx); err != nil {
		w.logger.Warn("orphan requeue failed", zap.Error(err))
	} else if moved > 0 {
		w.logger.Info("requeued orphaned jobs", zap.Int("count", moved))
	}

	for i := 0; i < w.conc; i++ {
		w.wg.Add(1)
		go w.consume(ctx)
	}
	w.wg.Add(1)
	go w.promote(ctx)

	w.logger.Info("worker started", zap.Int("concurrency", w.conc))
}

// Stop cancels in-flight jobs and waits for the consumers to drain.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.cancel()
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info("worker stopped")
}

func (w *Worker) consume(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// The job stays on the processing list while its handler runs, so a
		// crash mid-handler leaves it recoverable by requeueOrphans.
		raw, err := w.rdb.BLMove(ctx, jobList, processingList, "RIGHT", "LEFT", popTimeout).Result()
		if err == redis.Nil || ctx.Err() != nil {
			continue
		}
		if err != nil {
			w.logger.Warn("queue pop failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			w.logger.Error("discarding malformed job", zap.Error(err))
			w.rdb.LRem(context.WithoutCancel(ctx), processingList, 1, raw)
			continue
		}
		w.run(ctx, job)
		// run has recorded the job's outcome (done, retry set, or dead
		// letter), so its processing copy can go.
		if err := w.rdb.LRem(context.WithoutCancel(ctx), processingList, 1, raw).Err(); err != nil {
			w.logger.Warn("processing cleanup failed", zap.Error(err))
		}
	}
}

func (w *Worker) run(ctx context.Context, job Job) {
	log := w.logger.With(
		zap.String("job_id", job.ID.String()),
		zap.String("type", job.Type),
		zap.Int("attempt", job.Attempts+1),
	)

	h, ok := w.handlers[job.Type]
	if !ok {
		log.Error("no handler for job type")
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	start := time.Now()
	err := h(jobCtx, job.Payload)
	if err == nil {
		log.Info("job completed", zap.Duration("duration", time.Since(start)))
		return
	}

	job.Attempts++
	if job.Attempts >= w.maxRetries {
		log.Error("job exhausted retries", zap.Error(err))
		if dlErr := w.queue.deadLetter(context.WithoutCancel(ctx), job); dlErr != nil {
			log.Error("dead-letter failed", zap.Error(dlErr))
		}
		return
	}

	wait := backoff(job.Attempts)
	log.Warn("job failed, scheduling retry",
		zap.Error(err),
		zap.Duration("backoff", wait),
	)
	if rErr := w.queue.scheduleRetry(context.WithoutCancel(ctx), job, time.Now().Add(wait)); rErr != nil {
		log.Error("retry scheduling failed", zap.Error(rErr))
	}
}

// promote periodically moves due retries back onto the main list.
func (w *Worker) promote(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := w.queue.promoteDue(ctx, now); err != nil && ctx.Err() == nil {
				w.logger.Warn("retry promotion failed", zap.Error(err))
			}
		}
	}
}
