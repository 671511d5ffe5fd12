// Package metrics tracks in-process counters for jobs processed/completed/
// failed and queue depth, consulted by the worker pool's periodic status
// log and exposed for tests.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/muaviaUsmani/bullmq-core-go/internal/job"
)

var (
	globalCollector *Collector
	once            sync.Once
)

// Collector tracks system-wide metrics in memory, keyed by job name and
// queue state rather than the teacher's three-valued priority bucket,
// since CORE's priority is an open-ended integer.
type Collector struct {
	totalJobsProcessed atomic.Int64
	totalJobsCompleted atomic.Int64
	totalJobsFailed    atomic.Int64

	mu             sync.RWMutex
	jobsByStatus   map[job.Status]int64
	jobsByName     map[string]int64
	queueDepths    map[job.Status]int64
	totalDuration  time.Duration
	startTime      time.Time
	activeWorkers  int64
	totalWorkers   int64
	errorCount     int64
	operationCount int64
}

// Metrics is a snapshot of current system metrics.
type Metrics struct {
	TotalJobsProcessed int64                `json:"total_jobs_processed"`
	TotalJobsCompleted int64                `json:"total_jobs_completed"`
	TotalJobsFailed    int64                `json:"total_jobs_failed"`
	JobsByStatus       map[job.Status]int64 `json:"jobs_by_status"`
	JobsByName         map[string]int64     `json:"jobs_by_name"`
	QueueDepths        map[job.Status]int64 `json:"queue_depths"`
	AvgJobDuration     time.Duration        `json:"avg_job_duration"`
	WorkerUtilization  float64              `json:"worker_utilization"`
	ErrorRate          float64              `json:"error_rate"`
	Uptime             time.Duration        `json:"uptime"`
}

// Default returns the global metrics collector instance.
func Default() *Collector {
	once.Do(func() {
		globalCollector = NewCollector()
	})
	return globalCollector
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		jobsByStatus: make(map[job.Status]int64),
		jobsByName:   make(map[string]int64),
		queueDepths:  make(map[job.Status]int64),
		startTime:    time.Now(),
	}
}

// RecordJobStarted increments the jobs-processed counter for a leased job.
func (c *Collector) RecordJobStarted(name string) {
	c.totalJobsProcessed.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobsByName[name]++
	c.jobsByStatus[job.StatusActive]++
}

// RecordJobCompleted records a successfully completed job.
func (c *Collector) RecordJobCompleted(duration time.Duration) {
	c.totalJobsCompleted.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobsByStatus[job.StatusActive]--
	c.jobsByStatus[job.StatusCompleted]++
	c.totalDuration += duration
	c.operationCount++
}

// RecordJobFailed records a failed job.
func (c *Collector) RecordJobFailed(duration time.Duration) {
	c.totalJobsFailed.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobsByStatus[job.StatusActive]--
	c.jobsByStatus[job.StatusFailed]++
	c.totalDuration += duration
	c.operationCount++
	c.errorCount++
}

// RecordQueueDepth updates the current count for a queue state, typically
// read back from AtomicQueue.GetCounts.
func (c *Collector) RecordQueueDepth(state job.Status, depth int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queueDepths[state] = depth
}

// RecordWorkerActivity updates worker utilization metrics.
func (c *Collector) RecordWorkerActivity(active, total int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeWorkers = active
	c.totalWorkers = total
}

// GetMetrics returns a snapshot of current metrics.
func (c *Collector) GetMetrics() Metrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	jobsByStatus := make(map[job.Status]int64, len(c.jobsByStatus))
	for k, v := range c.jobsByStatus {
		jobsByStatus[k] = v
	}

	jobsByName := make(map[string]int64, len(c.jobsByName))
	for k, v := range c.jobsByName {
		jobsByName[k] = v
	}

	queueDepths := make(map[job.Status]int64, len(c.queueDepths))
	for k, v := range c.queueDepths {
		queueDepths[k] = v
	}

	var avgDuration time.Duration
	if c.operationCount > 0 {
		avgDuration = c.totalDuration / time.Duration(c.operationCount)
	}

	var utilization float64
	if c.totalWorkers > 0 {
		utilization = float64(c.activeWorkers) / float64(c.totalWorkers) * 100
	}

	var errorRate float64
	if c.operationCount > 0 {
		errorRate = float64(c.errorCount) / float64(c.operationCount) * 100
	}

	return Metrics{
		TotalJobsProcessed: c.totalJobsProcessed.Load(),
		TotalJobsCompleted: c.totalJobsCompleted.Load(),
		TotalJobsFailed:    c.totalJobsFailed.Load(),
		JobsByStatus:       jobsByStatus,
		JobsByName:         jobsByName,
		QueueDepths:        queueDepths,
		AvgJobDuration:     avgDuration,
		WorkerUtilization:  utilization,
		ErrorRate:          errorRate,
		Uptime:             time.Since(c.startTime),
	}
}

// Reset clears all metrics. Useful for tests.
func (c *Collector) Reset() {
	c.totalJobsProcessed.Store(0)
	c.totalJobsCompleted.Store(0)
	c.totalJobsFailed.Store(0)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobsByStatus = make(map[job.Status]int64)
	c.jobsByName = make(map[string]int64)
	c.queueDepths = make(map[job.Status]int64)
	c.totalDuration = 0
	c.startTime = time.Now()
	c.activeWorkers = 0
	c.totalWorkers = 0
	c.errorCount = 0
	c.operationCount = 0
}

// GetMetrics returns metrics from the global collector.
func GetMetrics() Metrics {
	return Default().GetMetrics()
}

// ResetMetrics resets the global collector.
func ResetMetrics() {
	Default().Reset()
}
