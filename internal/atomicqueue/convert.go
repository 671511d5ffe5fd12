package atomicqueue

import (
	"fmt"
	"strconv"
	"time"

	"github.com/muaviaUsmani/bullmq-core-go/internal/codec"
	"github.com/muaviaUsmani/bullmq-core-go/internal/job"
)

// nowMillis is the wall-clock timestamp every script call stamps its
// operation with, in milliseconds, matching the unit the Lua side expects.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func scriptOptionsFor(opts job.Options) codec.ScriptOptions {
	so := codec.ScriptOptions{
		Delay:        opts.Delay.Milliseconds(),
		Priority:     opts.Priority,
		Order:        string(opts.Order),
		MaxLenEvents: opts.MaxLenEvents,
		RepeatJobKey: opts.RepeatJobKey,
		Rc:           keepPolicyFor(opts.RemoveOnComplete),
		Rf:           keepPolicyFor(opts.RemoveOnFail),
	}
	if opts.Dedup != nil {
		so.De = &codec.DedupOptions{
			ID:      opts.Dedup.ID,
			TTL:     opts.Dedup.TTL.Milliseconds(),
			Replace: opts.Dedup.Replace,
			Extend:  opts.Dedup.Extend,
		}
	}
	return so
}

func keepPolicyFor(keep *job.KeepPolicy) *codec.KeepPolicy {
	if keep == nil {
		return nil
	}
	return &codec.KeepPolicy{
		Count: keep.Count,
		Age:   keep.Age.Milliseconds(),
	}
}

func jobKeepPolicyFor(keep *codec.KeepPolicy) *job.KeepPolicy {
	if keep == nil {
		return nil
	}
	return &job.KeepPolicy{
		Count: keep.Count,
		Age:   time.Duration(keep.Age) * time.Millisecond,
	}
}

// decodeLease interprets the {jobId, body, rateLimitExpireMs,
// nextDelayedTimestamp} reply shared by moveToActive and moveToFinished's
// fetch-next path.
func decodeLease(result interface{}) (*Lease, error) {
	arr, ok := result.([]interface{})
	if !ok || len(arr) != 4 {
		return nil, fmt.Errorf("atomicqueue: lease: unexpected reply %T", result)
	}

	rateLimitExpireMs := toInt64(arr[2])
	nextDelayedTimestamp := toInt64(arr[3])

	jobID, ok := arr[0].(string)
	if !ok {
		// No job was available: arr[0] is the integer 0.
		return &Lease{RateLimitExpireMs: rateLimitExpireMs, NextDelayedTimestamp: nextDelayedTimestamp}, nil
	}

	body, ok := arr[1].([]interface{})
	if !ok || len(body) != 7 {
		return nil, fmt.Errorf("atomicqueue: lease: unexpected body reply %T", arr[1])
	}

	j, err := jobFromBody(jobID, body)
	if err != nil {
		return nil, err
	}

	return &Lease{Job: j, RateLimitExpireMs: rateLimitExpireMs, NextDelayedTimestamp: nextDelayedTimestamp}, nil
}

// jobFromBody rebuilds a Job from the HMGET reply of
// {name, data, opts, priority, atm, timestamp, delay}.
func jobFromBody(jobID string, body []interface{}) (*job.Job, error) {
	name := toString(body[0])
	data := []byte(toString(body[1]))

	opts, err := codec.UnpackOptions([]byte(toString(body[2])))
	if err != nil {
		return nil, fmt.Errorf("atomicqueue: unpack job opts: %w", err)
	}

	priority := toInt64(body[3])
	atm := toInt64(body[4])
	timestampMs := toInt64(body[5])
	delayMs := toInt64(body[6])

	jobOpts := job.Options{
		JobID:            jobID,
		Delay:            time.Duration(delayMs) * time.Millisecond,
		Priority:         priority,
		Order:            job.Order(opts.Order),
		RepeatJobKey:     opts.RepeatJobKey,
		MaxLenEvents:     opts.MaxLenEvents,
		RemoveOnComplete: jobKeepPolicyFor(opts.Rc),
		RemoveOnFail:     jobKeepPolicyFor(opts.Rf),
	}
	if opts.De != nil {
		jobOpts.Dedup = &job.DedupOptions{
			ID:      opts.De.ID,
			TTL:     time.Duration(opts.De.TTL) * time.Millisecond,
			Replace: opts.De.Replace,
			Extend:  opts.De.Extend,
		}
	}

	return &job.Job{
		ID:           jobID,
		Name:         name,
		Data:         data,
		Opts:         jobOpts,
		Timestamp:    time.UnixMilli(timestampMs),
		AttemptsMade: atm,
	}, nil
}

// toInt64 normalizes a go-redis reply element into an int64, accepting the
// int64/string shapes Redis replies take depending on client and transport.
func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	case nil:
		return 0
	default:
		return 0
	}
}

// toString normalizes a go-redis reply element into a string, treating a
// missing HMGET field (nil) as empty.
func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
