package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/muaviaUsmani/bullmq-core-go/internal/job"
	"github.com/muaviaUsmani/bullmq-core-go/internal/metrics"
	"github.com/muaviaUsmani/bullmq-core-go/internal/result"
)

// Queue is the subset of AtomicQueue's API an Executor needs to resolve a
// leased job's outcome.
type Queue interface {
	Complete(ctx context.Context, jobID, token string, returnValue []byte, keep *job.KeepPolicy) error
	Fail(ctx context.Context, jobID, token, reason string, keep *job.KeepPolicy, maxAttempts int64) error
}

// Executor manages job execution against a leased job's handler.
type Executor struct {
	registry        *Registry
	queue           Queue
	resultBackend   result.Backend
	concurrency     int
	defaultAttempts int64
	keepCompleted   *job.KeepPolicy
	keepFailed      *job.KeepPolicy
}

// NewExecutor creates a new job executor bound to an AtomicQueue.
func NewExecutor(registry *Registry, queue Queue, concurrency int) *Executor {
	return &Executor{
		registry:        registry,
		queue:           queue,
		concurrency:     concurrency,
		defaultAttempts: 3,
	}
}

// SetResultBackend sets the result backend for storing job results. This
// is optional - if not set, results won't be stored.
func (e *Executor) SetResultBackend(backend result.Backend) {
	e.resultBackend = backend
}

// SetDefaultAttempts sets the attempt ceiling used for jobs that don't
// specify their own Opts.Attempts.
func (e *Executor) SetDefaultAttempts(attempts int64) {
	e.defaultAttempts = attempts
}

// SetRetentionPolicies sets the keep policy applied to the completed and
// failed sets respectively. A nil policy retains entries indefinitely.
func (e *Executor) SetRetentionPolicies(completed, failed *job.KeepPolicy) {
	e.keepCompleted = completed
	e.keepFailed = failed
}

// ExecuteJob runs the handler registered for j under the lease identified
// by token, then resolves the job via Complete or Fail.
func (e *Executor) ExecuteJob(ctx context.Context, token string, j *job.Job) error {
	handler, exists := e.registry.Get(j.Name)
	if !exists {
		err := fmt.Errorf("no handler registered for job: %s", j.Name)
		if queueErr := e.queue.Fail(ctx, j.ID, token, err.Error(), e.keepFailed, e.maxAttempts(j)); queueErr != nil {
			log.Printf("Failed to mark job %s as failed in queue: %v", j.ID, queueErr)
		}
		return err
	}

	log.Printf("Executing job %s (name: %s, priority: %d)", j.ID, j.Name, j.Opts.Priority)
	metrics.Default().RecordJobStarted(j.Name)

	startTime := time.Now()
	err := handler(ctx, j)
	duration := time.Since(startTime)

	if err != nil {
		errMsg := err.Error()
		if ctx.Err() != nil {
			log.Printf("Job %s cancelled: %v", j.ID, ctx.Err())
			errMsg = fmt.Sprintf("context cancelled: %v", ctx.Err())
		} else {
			log.Printf("Job %s failed after %v: %v", j.ID, duration, err)
		}

		metrics.Default().RecordJobFailed(duration)
		e.storeResult(ctx, j.ID, job.StatusFailed, nil, errMsg, duration)

		if queueErr := e.queue.Fail(ctx, j.ID, token, errMsg, e.keepFailed, e.maxAttempts(j)); queueErr != nil {
			log.Printf("Failed to update job %s in queue after failure: %v", j.ID, queueErr)
		}

		if ctx.Err() != nil {
			return fmt.Errorf("job cancelled: %w", ctx.Err())
		}
		return err
	}

	log.Printf("Job %s completed successfully in %v", j.ID, duration)
	metrics.Default().RecordJobCompleted(duration)
	e.storeResult(ctx, j.ID, job.StatusCompleted, nil, "", duration)

	if err := e.queue.Complete(ctx, j.ID, token, nil, e.keepCompleted); err != nil {
		log.Printf("Failed to mark job %s as completed in queue: %v", j.ID, err)
		return fmt.Errorf("job succeeded but failed to update queue: %w", err)
	}

	return nil
}

func (e *Executor) maxAttempts(j *job.Job) int64 {
	if j.Opts.Attempts > 0 {
		return int64(j.Opts.Attempts)
	}
	return e.defaultAttempts
}

// storeResult stores the job result in the backend if configured. This is
// a best-effort operation - failures are logged but don't fail the job.
func (e *Executor) storeResult(ctx context.Context, jobID string, status job.Status, resultData []byte, errorMsg string, duration time.Duration) {
	if e.resultBackend == nil {
		return
	}

	res := &job.JobResult{
		JobID:       jobID,
		Status:      status,
		Result:      json.RawMessage(resultData),
		Error:       errorMsg,
		CompletedAt: time.Now(),
		Duration:    duration,
	}

	if err := e.resultBackend.StoreResult(ctx, res); err != nil {
		log.Printf("Failed to store result for job %s: %v", jobID, err)
	}
}
