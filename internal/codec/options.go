package codec

import "github.com/vmihailenco/msgpack/v5"

// DedupOptions mirrors the `de` sub-table of a job's packed options: a
// deduplication id, an optional TTL, and whether a later job with the same
// id replaces the still-pending one (Replace) or is folded into it
// (debounce), optionally extending its TTL.
type DedupOptions struct {
	ID      string `msgpack:"id,omitempty"`
	TTL     int64  `msgpack:"ttl,omitempty"`
	Replace bool   `msgpack:"replace,omitempty"`
	Extend  bool   `msgpack:"extend,omitempty"`
}

// ScriptOptions is the msgpack-packed shape the addJob script unpacks with
// cmsgpack.unpack. Field names match the Lua side's table keys exactly
// (opts.delay, opts.priority, opts.de.id, ...).
type ScriptOptions struct {
	Delay        int64         `msgpack:"delay,omitempty"`
	Priority     int64         `msgpack:"priority,omitempty"`
	Order        string        `msgpack:"order,omitempty"`
	MaxLenEvents int64         `msgpack:"maxLenEvents,omitempty"`
	RepeatJobKey string        `msgpack:"repeatJobKey,omitempty"`
	De           *DedupOptions `msgpack:"de,omitempty"`
	// Rc and Rf are this job's own retention overrides, read by
	// moveToFinished in place of the queue-wide policy when set.
	Rc *KeepPolicy `msgpack:"rc,omitempty"`
	Rf *KeepPolicy `msgpack:"rf,omitempty"`
}

// PackOptions msgpack-encodes opts for the addJob script's ARGV. The
// encoding is also stored verbatim in the job hash's "opts" field, so a
// later read can recover the exact options a job was added with.
func PackOptions(opts ScriptOptions) ([]byte, error) {
	return msgpack.Marshal(opts)
}

// UnpackOptions decodes a job hash's "opts" field back into ScriptOptions.
func UnpackOptions(data []byte) (ScriptOptions, error) {
	var opts ScriptOptions
	err := msgpack.Unmarshal(data, &opts)
	return opts, err
}

// KeepPolicy mirrors the {count, age} retention table the moveToFinished
// script unpacks to trim a completed/failed ZSET. Count == -1 means no
// count-based trim; Age == 0 means no age-based trim.
type KeepPolicy struct {
	Count int64 `msgpack:"count"`
	Age   int64 `msgpack:"age"`
}

// PackKeepPolicy msgpack-encodes a retention policy for moveToFinished's
// ARGV. A nil policy packs as msgpack nil, which the script reads as
// "retain everything" (neither the count == 0 delete-immediately path nor
// any trim runs).
func PackKeepPolicy(policy *KeepPolicy) ([]byte, error) {
	return msgpack.Marshal(policy)
}
