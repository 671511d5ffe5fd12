// Package client provides a simple API for submitting and managing jobs
// against a queue without pulling in the worker-side execution machinery.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/muaviaUsmani/bullmq-core-go/internal/atomicqueue"
	"github.com/muaviaUsmani/bullmq-core-go/internal/job"
	"github.com/muaviaUsmani/bullmq-core-go/internal/keys"
	"github.com/muaviaUsmani/bullmq-core-go/internal/result"
	"github.com/muaviaUsmani/bullmq-core-go/internal/scriptregistry"
	"github.com/redis/go-redis/v9"
)

// Client provides a simple API for submitting and managing jobs.
type Client struct {
	queue         *atomicqueue.AtomicQueue
	redisClient   *redis.Client
	resultBackend result.Backend
	ctx           context.Context
}

// NewClient creates a new job client connected to Redis, operating on
// queueName under prefix. The result backend is enabled by default with
// standard TTLs (1h success, 24h failure).
func NewClient(redisURL, prefix, queueName string) (*Client, error) {
	return NewClientWithConfig(redisURL, prefix, queueName, time.Hour, 24*time.Hour)
}

// NewClientWithConfig creates a new job client with custom result backend
// TTLs.
func NewClientWithConfig(redisURL, prefix, queueName string, successTTL, failureTTL time.Duration) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisClient := redis.NewClient(opts)

	registry := scriptregistry.New(redisClient)
	ctx := context.Background()
	if err := registry.LoadAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to load scripts: %w", err)
	}

	keyModel := keys.NewModel(prefix, queueName)
	q := atomicqueue.New(registry, redisClient, keyModel)
	resultBackend := result.NewRedisBackend(redisClient, successTTL, failureTTL)

	return &Client{
		queue:         q,
		redisClient:   redisClient,
		resultBackend: resultBackend,
		ctx:           ctx,
	}, nil
}

// SubmitJob creates and submits a new job with the given payload and
// options. The payload is marshaled to JSON automatically. Returns the
// job ID on success.
func (c *Client) SubmitJob(name string, payload interface{}, opts job.Options) (string, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	j := job.New(name, payloadBytes, opts)

	id, err := c.queue.Add(c.ctx, j)
	if err != nil {
		return "", fmt.Errorf("failed to add job: %w", err)
	}

	return id, nil
}

// SubmitJobScheduled creates and submits a new job delayed until
// scheduledFor. The payload is marshaled to JSON automatically. Returns
// the job ID on success.
func (c *Client) SubmitJobScheduled(name string, payload interface{}, opts job.Options, scheduledFor time.Time) (string, error) {
	delay := time.Until(scheduledFor)
	if delay < 0 {
		delay = 0
	}
	opts.Delay = delay

	return c.SubmitJob(name, payload, opts)
}

// GetCounts returns the number of jobs in each of the given states (e.g.
// "wait", "active", "completed", "failed", "delayed", "paused").
func (c *Client) GetCounts(states ...string) (map[string]int64, error) {
	counts, err := c.queue.GetCounts(c.ctx, states...)
	if err != nil {
		return nil, fmt.Errorf("failed to get counts: %w", err)
	}
	return counts, nil
}

// Pause stops this queue's workers from leasing new jobs.
func (c *Client) Pause() error {
	if err := c.queue.Pause(c.ctx); err != nil {
		return fmt.Errorf("failed to pause queue: %w", err)
	}
	return nil
}

// Resume re-enables leasing on a paused queue.
func (c *Client) Resume() error {
	if err := c.queue.Resume(c.ctx); err != nil {
		return fmt.Errorf("failed to resume queue: %w", err)
	}
	return nil
}

// GetResult retrieves the result of a completed job by its ID. Returns
// nil if the job hasn't completed yet or if the result has expired.
func (c *Client) GetResult(ctx context.Context, jobID string) (*job.JobResult, error) {
	result, err := c.resultBackend.GetResult(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	return result, nil
}

// SubmitAndWait submits a job and blocks until its result is available
// or the timeout is reached. Convenience wrapper for RPC-style task
// execution.
func (c *Client) SubmitAndWait(ctx context.Context, name string, payload interface{}, opts job.Options, timeout time.Duration) (*job.JobResult, error) {
	jobID, err := c.SubmitJob(name, payload, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to submit job: %w", err)
	}

	result, err := c.resultBackend.WaitForResult(ctx, jobID, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for result: %w", err)
	}

	if result == nil {
		return nil, fmt.Errorf("job did not complete within timeout of %v", timeout)
	}

	return result, nil
}

// Close closes the Redis connections.
func (c *Client) Close() error {
	var resultErr, redisErr error

	if c.resultBackend != nil {
		resultErr = c.resultBackend.Close()
	}

	if c.redisClient != nil {
		redisErr = c.redisClient.Close()
	}

	if resultErr != nil {
		return resultErr
	}
	return redisErr
}
