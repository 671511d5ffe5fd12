// Package job models the unit of work the queue moves through its state
// machine: the Job struct mirrored by a Redis hash, the Options a caller
// attaches when adding one, and the JobResult a completed/failed job
// produces for the optional result backend.
package job

import "time"

// Status reports which part of the queue's state machine a job currently
// occupies. Unlike a conventional job-status column, this is derived from
// which list/set a job's id lives in rather than stored as its own field:
// a job's location IS its status.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusDelayed   Status = "delayed"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Order controls insertion order for non-prioritized jobs landing in the
// wait list.
type Order string

const (
	OrderFIFO Order = "fifo"
	OrderLIFO Order = "lifo"
)

// DedupOptions requests deduplication against jobs sharing the same id.
// A later Add either debounces into the still-pending job (Replace false,
// the default) or cancels and replaces it (Replace true), optionally
// extending the ownership TTL in either case.
type DedupOptions struct {
	ID      string
	TTL     time.Duration
	Replace bool
	Extend  bool
}

// KeepPolicy bounds how many finished jobs (and for how long) a queue
// retains before trimming their bodies. A nil policy means unbounded; a
// policy with Count == 0 removes the job immediately on completion.
type KeepPolicy struct {
	Count int64
	Age   time.Duration
}

// Options configures how Add routes and retains a job. The zero value
// adds an unprioritized, non-delayed, FIFO job with no deduplication.
type Options struct {
	// JobID is a caller-supplied id; left empty, the queue allocates one.
	JobID string

	Delay    time.Duration
	Priority int64
	Order    Order
	Attempts int

	// StackTraceLimit caps how many lines of a panic's stack trace the
	// worker pool keeps when failing this job. Zero keeps the full trace.
	StackTraceLimit int

	// RepeatJobKey is a pass-through field for an external repeat-job
	// scheduler; CORE never interprets it.
	RepeatJobKey string

	Dedup            *DedupOptions
	RemoveOnComplete *KeepPolicy
	RemoveOnFail     *KeepPolicy

	// MaxLenEvents is packed into the job's stored options; no script reads
	// it. The event stream's bound comes from the queue meta field that
	// AtomicQueue.SetMaxLenEvents sets.
	MaxLenEvents int64
}

// Job is a unit of work as stored in the queue's per-job hash. ID is
// populated by the queue once the job has been added (for an
// auto-allocated id, it is empty beforehand).
type Job struct {
	ID           string
	Name         string
	Data         []byte // codec-tagged payload, see internal/codec
	Opts         Options
	Timestamp    time.Time
	AttemptsMade int64
	ReturnValue  []byte
	FailedReason string
	FinishedOn   time.Time
}

// New builds a Job ready to hand to AtomicQueue.Add, which routes it as a
// standard or delayed job according to opts.Delay.
func New(name string, data []byte, opts Options) *Job {
	return &Job{
		ID:        opts.JobID,
		Name:      name,
		Data:      data,
		Opts:      opts,
		Timestamp: time.Now(),
	}
}
