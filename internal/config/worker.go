package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/muaviaUsmani/bullmq-core-go/internal/job"
)

// WorkerConfig holds worker-specific configuration.
type WorkerConfig struct {
	// Concurrency is the number of concurrent worker goroutines leasing
	// and processing jobs from the same queue.
	Concurrency int

	// LockDuration is how long a leased job's lock is held before it is
	// considered stalled. Must be long enough to cover the slowest
	// handler invocation.
	LockDuration time.Duration

	// PollInterval is how long a worker backs off between empty
	// MoveToActive polls when the wait list is drained.
	PollInterval time.Duration

	// JobTypes restricts this worker to handling only jobs with a name
	// in this set. An empty slice means all job types are handled.
	JobTypes []string

	// LimiterMax is the per-lease rate-limit budget passed to MoveToActive.
	// Zero disables rate limiting.
	LimiterMax int64
}

// LoadWorkerConfig loads worker configuration from environment variables.
func LoadWorkerConfig() (*WorkerConfig, error) {
	cfg := &WorkerConfig{
		Concurrency:  getEnvAsInt("WORKER_CONCURRENCY", 10),
		LockDuration: getEnvAsDuration("WORKER_LOCK_DURATION", 30*time.Second),
		PollInterval: getEnvAsDuration("WORKER_POLL_INTERVAL", 500*time.Millisecond),
		JobTypes:     parseJobTypes(getEnv("WORKER_JOB_TYPES", "")),
		LimiterMax:   int64(getEnvAsInt("WORKER_LIMITER_MAX", 0)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the worker configuration is valid.
func (c *WorkerConfig) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("worker concurrency must be at least 1 (got %d)", c.Concurrency)
	}
	if c.Concurrency > 1000 {
		return fmt.Errorf("worker concurrency too high: %d (maximum 1000)", c.Concurrency)
	}
	if c.LockDuration < 1*time.Second {
		return fmt.Errorf("lock duration too short: %v (minimum 1s)", c.LockDuration)
	}
	if c.PollInterval < 10*time.Millisecond {
		return fmt.Errorf("poll interval too short: %v (minimum 10ms)", c.PollInterval)
	}

	for _, jt := range c.JobTypes {
		if strings.TrimSpace(jt) == "" {
			return fmt.Errorf("job type cannot be empty")
		}
	}

	return nil
}

// ShouldProcessJob reports whether this worker should handle j, based on
// its job type filter.
func (c *WorkerConfig) ShouldProcessJob(j *job.Job) bool {
	if len(c.JobTypes) == 0 {
		return true
	}
	for _, jt := range c.JobTypes {
		if j.Name == jt {
			return true
		}
	}
	return false
}

// String returns a human-readable description of the worker config.
func (c *WorkerConfig) String() string {
	jobTypes := "all"
	if len(c.JobTypes) > 0 {
		if len(c.JobTypes) <= 3 {
			jobTypes = strings.Join(c.JobTypes, ",")
		} else {
			jobTypes = fmt.Sprintf("%s... (%d types)", strings.Join(c.JobTypes[:3], ","), len(c.JobTypes))
		}
	}

	return fmt.Sprintf(
		"WorkerConfig{concurrency=%d, lockDuration=%v, pollInterval=%v, jobTypes=%s, limiterMax=%d}",
		c.Concurrency, c.LockDuration, c.PollInterval, jobTypes, c.LimiterMax,
	)
}

// parseJobTypes parses a comma-separated string of job types. An empty
// string returns nil (all job types).
func parseJobTypes(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	jobTypes := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			jobTypes = append(jobTypes, trimmed)
		}
	}

	if len(jobTypes) == 0 {
		return nil
	}

	return jobTypes
}
