// Package atomicqueue is the client facade over the embedded Lua command
// catalog: every state transition a job goes through (add, lease,
// complete, fail, retry) is a single round trip to Redis, so two workers
// racing for the same job can never observe a half-applied move.
package atomicqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/muaviaUsmani/bullmq-core-go/internal/codec"
	"github.com/muaviaUsmani/bullmq-core-go/internal/errors"
	"github.com/muaviaUsmani/bullmq-core-go/internal/job"
	"github.com/muaviaUsmani/bullmq-core-go/internal/keys"
	"github.com/muaviaUsmani/bullmq-core-go/internal/scriptregistry"
	"github.com/redis/go-redis/v9"
)

// AtomicQueue drives one queue's state machine through its key Model and
// its registry of loaded scripts. Admin operations that don't need
// atomicity (pause, resume, concurrency) go straight through client.
type AtomicQueue struct {
	registry *scriptregistry.Registry
	client   redis.Cmdable
	keys     *keys.Model
}

// New builds an AtomicQueue over an already-constructed script registry,
// key Model, and the same client the registry was built with. Call
// registry.LoadAll before issuing any operation.
func New(registry *scriptregistry.Registry, client redis.Cmdable, keyModel *keys.Model) *AtomicQueue {
	return &AtomicQueue{registry: registry, client: client, keys: keyModel}
}

// NewToken generates a lock token for a lease. Exposed so a worker can
// pre-generate the token it will hand to MoveToActive and reuse it for the
// matching Complete/Fail/Retry call.
func NewToken() string {
	return uuid.New().String()
}

// Lease is what MoveToActive (or a fetch-next completion call) hands back:
// either a job ready to run, or a reason none was available.
type Lease struct {
	Job *job.Job
	// RateLimitExpireMs is nonzero when the lease was refused by the
	// queue's rate limiter; the caller should wait this long and retry.
	RateLimitExpireMs int64
	// NextDelayedTimestamp is the timestamp (ms) of the next delayed job
	// due to become ready, or 0 if none is pending. Only meaningful when
	// Job is nil and RateLimitExpireMs is 0.
	NextDelayedTimestamp int64
}

// Add enqueues j, allocating its id server-side unless j.Opts.JobID was
// set. Returns the job's id, or the id of the existing job it was folded
// into when Opts.Dedup caused a debounce.
func (q *AtomicQueue) Add(ctx context.Context, j *job.Job) (string, error) {
	packed, err := codec.PackOptions(scriptOptionsFor(j.Opts))
	if err != nil {
		return "", fmt.Errorf("atomicqueue: pack options: %w", err)
	}

	keyList := []string{
		q.keys.Wait(), q.keys.Paused(), q.keys.Active(), q.keys.Prioritized(),
		q.keys.Delayed(), q.keys.Events(), q.keys.Meta(), q.keys.ID(),
		q.keys.PC(), q.keys.Marker(),
	}

	result, err := q.registry.Eval(ctx, "addJob", keyList,
		q.keys.Base(), j.Opts.JobID, j.Name, nowMillis(), j.Data, packed)
	if err != nil {
		return "", err
	}

	if _, ok := result.(int64); ok {
		return "", fmt.Errorf("atomicqueue: add rejected: custom id %q already in use", j.Opts.JobID)
	}

	id, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("atomicqueue: add: unexpected reply %T", result)
	}
	return id, nil
}

// MoveToActive leases the next ready job under token, held for
// lockDuration. limiterMax of 0 disables rate limiting for this queue.
func (q *AtomicQueue) MoveToActive(ctx context.Context, token string, lockDuration time.Duration, limiterMax int64) (*Lease, error) {
	keyList := []string{
		q.keys.Wait(), q.keys.Paused(), q.keys.Active(), q.keys.Prioritized(),
		q.keys.Delayed(), q.keys.Events(), q.keys.Meta(), q.keys.Marker(),
		q.keys.Limiter(), q.keys.PC(),
	}

	result, err := q.registry.Eval(ctx, "moveToActive", keyList,
		q.keys.Base(), nowMillis(), token, lockDuration.Milliseconds(), limiterMax)
	if err != nil {
		return nil, err
	}
	return decodeLease(result)
}

// Complete marks jobID finished successfully, releasing its lock and
// storing returnValue. keep nil retains the completed entry indefinitely.
func (q *AtomicQueue) Complete(ctx context.Context, jobID, token string, returnValue []byte, keep *job.KeepPolicy) error {
	_, err := q.moveToFinished(ctx, finishArgs{
		targetKey:   q.keys.Completed(),
		jobID:       jobID,
		token:       token,
		property:    "returnvalue",
		payload:     returnValue,
		keep:        keep,
		maxAttempts: 0,
	})
	return err
}

// Fail marks jobID finished unsuccessfully, recording reason. maxAttempts
// is the job's configured attempt ceiling, used to emit a
// retries-exhausted event when the job has no attempts left.
func (q *AtomicQueue) Fail(ctx context.Context, jobID, token, reason string, keep *job.KeepPolicy, maxAttempts int64) error {
	_, err := q.moveToFinished(ctx, finishArgs{
		targetKey:   q.keys.Failed(),
		jobID:       jobID,
		token:       token,
		property:    "failedReason",
		payload:     []byte(reason),
		keep:        keep,
		maxAttempts: maxAttempts,
	})
	return err
}

// CompleteAndLeaseNext completes jobID and, in the same round trip, leases
// the next ready job under nextToken.
func (q *AtomicQueue) CompleteAndLeaseNext(ctx context.Context, jobID, token string, returnValue []byte, keep *job.KeepPolicy, nextToken string, lockDuration time.Duration, limiterMax int64) (*Lease, error) {
	return q.moveToFinished(ctx, finishArgs{
		targetKey:    q.keys.Completed(),
		jobID:        jobID,
		token:        token,
		property:     "returnvalue",
		payload:      returnValue,
		keep:         keep,
		fetchNext:    true,
		nextToken:    nextToken,
		lockDuration: lockDuration,
		limiterMax:   limiterMax,
	})
}

// FailAndLeaseNext fails jobID and, in the same round trip, leases the
// next ready job under nextToken.
func (q *AtomicQueue) FailAndLeaseNext(ctx context.Context, jobID, token, reason string, keep *job.KeepPolicy, maxAttempts int64, nextToken string, lockDuration time.Duration, limiterMax int64) (*Lease, error) {
	return q.moveToFinished(ctx, finishArgs{
		targetKey:    q.keys.Failed(),
		jobID:        jobID,
		token:        token,
		property:     "failedReason",
		payload:      []byte(reason),
		keep:         keep,
		maxAttempts:  maxAttempts,
		fetchNext:    true,
		nextToken:    nextToken,
		lockDuration: lockDuration,
		limiterMax:   limiterMax,
	})
}

type finishArgs struct {
	targetKey    string
	jobID        string
	token        string
	property     string
	payload      []byte
	keep         *job.KeepPolicy
	maxAttempts  int64
	fetchNext    bool
	nextToken    string
	lockDuration time.Duration
	limiterMax   int64
}

func (q *AtomicQueue) moveToFinished(ctx context.Context, a finishArgs) (*Lease, error) {
	packedKeep, err := codec.PackKeepPolicy(keepPolicyFor(a.keep))
	if err != nil {
		return nil, fmt.Errorf("atomicqueue: pack keep policy: %w", err)
	}

	keyList := []string{
		q.keys.Active(), a.targetKey, q.keys.Wait(), q.keys.Paused(),
		q.keys.Prioritized(), q.keys.Delayed(), q.keys.Events(), q.keys.Meta(),
		q.keys.Marker(), q.keys.PC(), q.keys.Limiter(),
	}

	fetchFlag := "0"
	if a.fetchNext {
		fetchFlag = "1"
	}

	result, err := q.registry.Eval(ctx, "moveToFinished", keyList,
		q.keys.Base(), a.jobID, a.token, a.property, a.payload, nowMillis(),
		packedKeep, a.maxAttempts, fetchFlag, a.nextToken, a.lockDuration.Milliseconds(), a.limiterMax)
	if err != nil {
		return nil, err
	}

	if code, ok := result.(int64); ok {
		if !a.fetchNext && code == 0 {
			return nil, nil
		}
		if err := errors.NewQueueError(code, a.jobID, "moveToFinished", "active"); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return decodeLease(result)
}

// Retry returns a failed-but-retryable job from active back to the ready
// state, bumping its attempt counter.
func (q *AtomicQueue) Retry(ctx context.Context, jobID, token string, order job.Order, failedReason string) error {
	keyList := []string{
		q.keys.Active(), q.keys.Wait(), q.keys.Paused(), q.keys.Delayed(),
		q.keys.Prioritized(), q.keys.PC(), q.keys.Events(), q.keys.Meta(),
		q.keys.Marker(),
	}

	orderStr := string(order)
	if orderStr == "" {
		orderStr = string(job.OrderFIFO)
	}

	result, err := q.registry.Eval(ctx, "retryJob", keyList,
		q.keys.Base(), jobID, token, nowMillis(), orderStr, failedReason)
	if err != nil {
		return err
	}

	code, ok := result.(int64)
	if !ok {
		return fmt.Errorf("atomicqueue: retry: unexpected reply %T", result)
	}
	return errors.NewQueueError(code, jobID, "retryJob", "active")
}

// GetCounts returns the cardinality of each requested state.
func (q *AtomicQueue) GetCounts(ctx context.Context, states ...string) (map[string]int64, error) {
	keyList := make([]string, 0, len(states))
	args := make([]interface{}, 0, len(states))
	for _, state := range states {
		k, ok := q.keys.StateKey(state)
		if !ok {
			return nil, fmt.Errorf("atomicqueue: unknown state %q", state)
		}
		keyList = append(keyList, k)
		args = append(args, state)
	}

	result, err := q.registry.Eval(ctx, "getCounts", keyList, args...)
	if err != nil {
		return nil, err
	}

	arr, ok := result.([]interface{})
	if !ok || len(arr) != len(states) {
		return nil, fmt.Errorf("atomicqueue: getCounts: unexpected reply %T", result)
	}

	counts := make(map[string]int64, len(states))
	for i, state := range states {
		counts[state] = toInt64(arr[i])
	}
	return counts, nil
}
