package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/muaviaUsmani/bullmq-core-go/internal/atomicqueue"
	"github.com/muaviaUsmani/bullmq-core-go/internal/config"
	"github.com/muaviaUsmani/bullmq-core-go/internal/errors"
	"github.com/muaviaUsmani/bullmq-core-go/internal/job"
	"github.com/muaviaUsmani/bullmq-core-go/internal/logger"
	"github.com/muaviaUsmani/bullmq-core-go/internal/metrics"
)

// QueueLeaser is the subset of AtomicQueue's API a Pool needs to lease and,
// when a job doesn't pass a worker's local filter, hand it back.
type QueueLeaser interface {
	MoveToActive(ctx context.Context, token string, lockDuration time.Duration, limiterMax int64) (*atomicqueue.Lease, error)
	Retry(ctx context.Context, jobID, token string, order job.Order, failedReason string) error
}

// Pool manages a pool of workers that lease and process jobs from one
// queue.
type Pool struct {
	executor          *Executor
	queue             QueueLeaser
	workerConfig      *config.WorkerConfig
	jobTimeout        time.Duration
	limiterMax        int64
	wg                sync.WaitGroup
	stopChan          chan struct{}
	activeWorkers     atomic.Int64
	redisRetryBackoff time.Duration
	maxRetryBackoff   time.Duration
}

// NewPool creates a new worker pool bound to an AtomicQueue lease source.
func NewPool(executor *Executor, queue QueueLeaser, workerConfig *config.WorkerConfig, jobTimeout time.Duration) *Pool {
	return &Pool{
		executor:          executor,
		queue:             queue,
		workerConfig:      workerConfig,
		jobTimeout:        jobTimeout,
		redisRetryBackoff: time.Second,
		maxRetryBackoff:   30 * time.Second,
		stopChan:          make(chan struct{}),
	}
}

// SetLimiterMax sets the per-lease rate limit passed to MoveToActive. 0
// disables rate limiting.
func (p *Pool) SetLimiterMax(max int64) {
	p.limiterMax = max
}

// Start begins processing jobs from the queue with the configured
// concurrency.
func (p *Pool) Start(ctx context.Context) {
	logger.Info("Starting worker pool", "workers", p.workerConfig.Concurrency)
	logger.Info("Worker configuration", "config", p.workerConfig.String())

	for i := 0; i < p.workerConfig.Concurrency; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i+1)
	}

	logger.Info("Worker pool started successfully")
}

// Stop gracefully shuts down the worker pool with a 30-second timeout.
func (p *Pool) Stop() {
	logger.Info("Stopping worker pool")
	close(p.stopChan)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Worker pool stopped gracefully")
	case <-time.After(30 * time.Second):
		logger.Warn("Worker pool shutdown timed out", "timeout", "30s")
	}
}

// worker is the main loop for each worker goroutine.
func (p *Pool) worker(ctx context.Context, workerID int) {
	defer p.wg.Done()
	defer func() {
		if err := errors.RecoverPanic(); err != nil {
			panicErr := err.(*errors.PanicError)
			logger.Error("Worker recovered from panic - worker will be terminated",
				"worker_id", workerID,
				"panic_value", panicErr.Value,
				"stack_trace", panicErr.Stacktrace)
		}
	}()

	workerCtx := context.WithValue(ctx, "worker_id", fmt.Sprintf("worker-%d", workerID))

	logger.Info("Worker started", "worker_id", workerID)

	consecutiveFailures := 0
	currentBackoff := time.Second

	for {
		select {
		case <-p.stopChan:
			logger.Info("Worker stopping", "worker_id", workerID)
			return
		case <-workerCtx.Done():
			logger.Info("Worker stopping due to context cancellation", "worker_id", workerID)
			return
		default:
			token := atomicqueue.NewToken()
			lease, err := p.queue.MoveToActive(workerCtx, token, p.jobTimeout, p.limiterMax)
			if err != nil {
				if workerCtx.Err() != nil {
					logger.Info("Worker stopping due to context cancellation", "worker_id", workerID)
					return
				}

				consecutiveFailures++
				currentBackoff = time.Duration(1<<uint(consecutiveFailures-1)) * time.Second
				if currentBackoff > p.maxRetryBackoff {
					currentBackoff = p.maxRetryBackoff
				}

				if consecutiveFailures <= 3 {
					logger.Warn("Redis connection error - retrying with backoff",
						"worker_id", workerID,
						"error", err,
						"consecutive_failures", consecutiveFailures,
						"backoff", currentBackoff)
				} else if consecutiveFailures%10 == 0 {
					logger.Error("Persistent Redis connection errors",
						"worker_id", workerID,
						"error", err,
						"consecutive_failures", consecutiveFailures,
						"backoff", currentBackoff)
				}

				time.Sleep(currentBackoff)
				continue
			}

			if consecutiveFailures > 0 {
				logger.Info("Redis connection recovered", "worker_id", workerID, "after_failures", consecutiveFailures)
				consecutiveFailures = 0
				currentBackoff = time.Second
			}

			if lease.Job == nil {
				if lease.RateLimitExpireMs > 0 {
					time.Sleep(time.Duration(lease.RateLimitExpireMs) * time.Millisecond)
				} else {
					time.Sleep(p.workerConfig.PollInterval)
				}
				continue
			}

			j := lease.Job

			if !p.workerConfig.ShouldProcessJob(j) {
				logger.Debug("Handing job back due to job-type filter",
					"worker_id", workerID,
					"job_id", j.ID,
					"job_name", j.Name,
					"allowed_types", p.workerConfig.JobTypes)
				if err := p.queue.Retry(workerCtx, j.ID, token, j.Opts.Order, ""); err != nil {
					logger.Error("Failed to hand back filtered job",
						"worker_id", workerID, "job_id", j.ID, "error", err)
				}
				continue
			}

			p.executeWithTimeout(workerCtx, workerID, token, j)
		}
	}
}

// executeWithTimeout executes a job with the configured timeout.
func (p *Pool) executeWithTimeout(ctx context.Context, workerID int, token string, j *job.Job) {
	active := p.activeWorkers.Add(1)
	defer func() {
		active = p.activeWorkers.Add(-1)
		metrics.Default().RecordWorkerActivity(active, int64(p.workerConfig.Concurrency))
	}()

	metrics.Default().RecordWorkerActivity(active, int64(p.workerConfig.Concurrency))

	jobCtx := context.WithValue(ctx, "job_id", j.ID)
	jobCtx, cancel := context.WithTimeout(jobCtx, p.jobTimeout)
	defer cancel()

	jobLogger := logger.Default().WithSource(logger.LogSourceJob)

	defer func() {
		if recoveredErr := errors.RecoverPanic(); recoveredErr != nil {
			panicErr := recoveredErr.(*errors.PanicError)
			panicErr.Stacktrace = errors.TruncateStacktrace(panicErr.Stacktrace, j.Opts.StackTraceLimit)
			panicMsg := errors.FormatPanicForLog(panicErr)

			jobLogger.ErrorContext(jobCtx, "Job panicked - marking as failed",
				"worker_id", workerID,
				"job_id", j.ID,
				"job_name", j.Name,
				"panic_value", panicErr.Value,
				"stack_trace", panicErr.Stacktrace)

			if err := p.executor.queue.Fail(ctx, j.ID, token, panicMsg, p.executor.keepFailed, p.executor.maxAttempts(j)); err != nil {
				logger.Error("Failed to mark panicked job as failed",
					"worker_id", workerID,
					"job_id", j.ID,
					"error", err)
			}

			metrics.Default().RecordJobFailed(0)
		}
	}()

	jobLogger.InfoContext(jobCtx, "Processing job", "worker_id", workerID, "job_id", j.ID, "job_name", j.Name, "priority", j.Opts.Priority)

	if err := p.executor.ExecuteJob(jobCtx, token, j); err != nil {
		jobLogger.ErrorContext(jobCtx, "Job failed", "worker_id", workerID, "job_id", j.ID, "error", err)
	} else {
		jobLogger.InfoContext(jobCtx, "Job completed", "worker_id", workerID, "job_id", j.ID)
	}
}
