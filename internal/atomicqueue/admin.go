package atomicqueue

import "context"

// Pause stops MoveToActive from leasing new jobs: getTargetQueueList
// routes newly-added jobs into the paused list instead of wait, and
// MoveToActive refuses to lease from it. Jobs already active are
// unaffected.
func (q *AtomicQueue) Pause(ctx context.Context) error {
	return q.client.HSet(ctx, q.keys.Meta(), "paused", "1").Err()
}

// Resume reverses Pause. It does not move jobs already sitting in the
// paused list back to wait, and MoveToActive leases only from wait and
// prioritized, so those jobs stay in paused after Resume.
func (q *AtomicQueue) Resume(ctx context.Context) error {
	return q.client.HSet(ctx, q.keys.Meta(), "paused", "0").Err()
}

// SetConcurrency caps how many jobs may be active at once; MoveToActive
// treats the queue as maxed out once len(active) reaches limit. A limit
// of 0 removes the cap.
func (q *AtomicQueue) SetConcurrency(ctx context.Context, limit int64) error {
	if limit <= 0 {
		return q.client.HDel(ctx, q.keys.Meta(), "concurrency").Err()
	}
	return q.client.HSet(ctx, q.keys.Meta(), "concurrency", limit).Err()
}

// SetMaxLenEvents caps the approximate length of the queue's event stream;
// addJobEvent reads this back on every emission. A size of 0 restores the
// script's hard-coded default of 10000.
func (q *AtomicQueue) SetMaxLenEvents(ctx context.Context, size int64) error {
	if size <= 0 {
		return q.client.HDel(ctx, q.keys.Meta(), "opts.maxLenEvents").Err()
	}
	return q.client.HSet(ctx, q.keys.Meta(), "opts.maxLenEvents", size).Err()
}

// SetMaxMetricsSize enables metrics sampling on moveToFinished, trimming
// the metrics stream to approximately this many data points in total
// (completed and failed samples share the one stream). A size of 0
// disables sampling entirely.
func (q *AtomicQueue) SetMaxMetricsSize(ctx context.Context, size int64) error {
	if size <= 0 {
		return q.client.HDel(ctx, q.keys.Meta(), "opts.maxMetricsSize").Err()
	}
	return q.client.HSet(ctx, q.keys.Meta(), "opts.maxMetricsSize", size).Err()
}
