// Package keys builds the deterministic Redis key names for a queue's
// namespace. Every other package that touches Redis goes through a Model
// rather than formatting key strings itself, so the key shapes in this file
// are the only ones that exist anywhere in the queue.
package keys

import "strings"

// Model maps a (prefix, queueName) pair to the closed set of Redis keys
// that make up a queue's state.
type Model struct {
	prefix    string
	queueName string
	base      string // "<prefix>:<queueName>:" — also the job-hash prefix
}

// NewModel builds a key Model for a queue under the given namespace prefix.
func NewModel(prefix, queueName string) *Model {
	return &Model{
		prefix:    prefix,
		queueName: queueName,
		base:      prefix + ":" + queueName + ":",
	}
}

// Prefix returns the namespace root the Model was built with.
func (m *Model) Prefix() string { return m.prefix }

// QueueName returns the queue name the Model was built with.
func (m *Model) QueueName() string { return m.queueName }

// key builds "<prefix>:<queueName>:<suffix>". An empty suffix yields the
// job-hash prefix itself.
func (m *Model) key(suffix string) string {
	if suffix == "" {
		return m.base
	}
	return m.base + suffix
}

// Base returns the bare "<prefix>:<queueName>:" job-hash prefix, to which a
// jobId is appended by callers that build compound keys (e.g. job logs).
func (m *Model) Base() string { return m.base }

func (m *Model) Wait() string        { return m.key("wait") }
func (m *Model) Paused() string      { return m.key("paused") }
func (m *Model) Active() string      { return m.key("active") }
func (m *Model) Prioritized() string { return m.key("prioritized") }
func (m *Model) Delayed() string     { return m.key("delayed") }
func (m *Model) Completed() string   { return m.key("completed") }
func (m *Model) Failed() string      { return m.key("failed") }
func (m *Model) Stalled() string     { return m.key("stalled") }
func (m *Model) Marker() string      { return m.key("marker") }
func (m *Model) Meta() string        { return m.key("meta") }
func (m *Model) ID() string          { return m.key("id") }
func (m *Model) PC() string          { return m.key("pc") }
func (m *Model) Limiter() string     { return m.key("limiter") }
func (m *Model) Events() string      { return m.key("events") }
func (m *Model) Metrics() string     { return m.key("metrics") }

// Job returns the body-hash key for a jobId.
func (m *Model) Job(jobID string) string { return m.base + jobID }

// JobLogs returns the per-job log list key.
func (m *Model) JobLogs(jobID string) string { return m.base + jobID + ":logs" }

// JobDependencies returns the per-job dependency set key.
func (m *Model) JobDependencies(jobID string) string { return m.base + jobID + ":dependencies" }

// JobProcessed returns the per-job processed-children hash key.
func (m *Model) JobProcessed(jobID string) string { return m.base + jobID + ":processed" }

// JobFailed returns the per-job failed-children set key.
func (m *Model) JobFailed(jobID string) string { return m.base + jobID + ":failed" }

// JobUnsuccessful returns the per-job unsuccessful-children set key.
func (m *Model) JobUnsuccessful(jobID string) string { return m.base + jobID + ":unsuccessful" }

// JobAuxKeys returns every auxiliary per-job key that must be removed
// alongside the body hash when a job is deleted.
func (m *Model) JobAuxKeys(jobID string) []string {
	return []string{
		m.JobLogs(jobID),
		m.JobDependencies(jobID),
		m.JobProcessed(jobID),
		m.JobFailed(jobID),
		m.JobUnsuccessful(jobID),
	}
}

// Dedup returns the key that owns a caller-supplied deduplication id.
func (m *Model) Dedup(id string) string { return m.key("de:" + id) }

// IsListBacked reports whether a state name is a Redis list (LLEN) rather
// than a sorted set (ZCARD), used by GetCounts to pick the right cardinality
// call per requested type.
func IsListBacked(state string) bool {
	switch state {
	case "wait", "paused", "active":
		return true
	default:
		return false
	}
}

// StateKey resolves one of the closed set of count-able state names to its
// Redis key. Returns ("", false) for an unrecognized name.
func (m *Model) StateKey(state string) (string, bool) {
	switch state {
	case "wait":
		return m.Wait(), true
	case "paused":
		return m.Paused(), true
	case "active":
		return m.Active(), true
	case "delayed":
		return m.Delayed(), true
	case "prioritized":
		return m.Prioritized(), true
	case "completed":
		return m.Completed(), true
	case "failed":
		return m.Failed(), true
	default:
		return "", false
	}
}

// TrimPrefix strips the queue's job-hash prefix from a full key, returning
// the bare jobId. Used when decoding members read back from Redis.
func TrimPrefix(base, fullKey string) string {
	return strings.TrimPrefix(fullKey, base)
}
