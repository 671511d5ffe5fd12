package errors

import "fmt"

// Code is one of the closed set of negative return codes an atomic script
// can produce. Positive and zero results are success values interpreted by
// the caller; only negative codes carry this taxonomy.
type Code int

const (
	// CodeMissingKey means the job hash is absent.
	CodeMissingKey Code = -1
	// CodeMissingLock means no lock was recorded for the job.
	CodeMissingLock Code = -2
	// CodeNotInExpectedSet means the job was not found in the set the
	// operation expected it to be in (usually "active").
	CodeNotInExpectedSet Code = -3
	// CodeLockMismatch means the lock is held, but not by the caller's
	// token.
	CodeLockMismatch Code = -6
)

func (c Code) String() string {
	switch c {
	case CodeMissingKey:
		return "missing key"
	case CodeMissingLock:
		return "missing lock"
	case CodeNotInExpectedSet:
		return "not in expected set"
	case CodeLockMismatch:
		return "lock not owned by caller"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// QueueError is the typed error the client facade returns for a script's
// negative return code.
type QueueError struct {
	Code      Code
	JobID     string
	Operation string
	State     string
}

func (e *QueueError) Error() string {
	return fmt.Sprintf("%s: job %s: %s (state=%s)", e.Operation, e.JobID, e.Code, e.State)
}

// NewQueueError constructs a QueueError from a script's raw integer return
// code. Returns nil for non-negative codes (the caller did not fail).
func NewQueueError(code int64, jobID, operation, state string) error {
	if code >= 0 {
		return nil
	}
	return &QueueError{Code: Code(code), JobID: jobID, Operation: operation, State: state}
}

// CycleError describes an include graph that contains a cycle. The script
// preprocessor reports cycles with its own error type (see scripts.Cycle)
// and does not return this one.
type CycleError struct {
	Reference string   // the include reference that closed the cycle
	Stack     []string // canonical path stack from the root command to Reference
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic include %q: %v", e.Reference, e.Stack)
}

// IncludeNotFoundError describes an @include directive that cannot be
// resolved. The script preprocessor reports this with its own error type
// (see scripts.IncludeNotFound) and does not return this one.
type IncludeNotFoundError struct {
	Reference string
	InFile    string
	Line      int
	Column    int
}

func (e *IncludeNotFoundError) Error() string {
	return fmt.Sprintf("%s:%d:%d: include not found: %q", e.InFile, e.Line, e.Column, e.Reference)
}

// ScriptLoadError is raised by the script registry when a script remains
// unloaded after one reload-and-retry following NOSCRIPT.
type ScriptLoadError struct {
	SHA string
	Err error
}

func (e *ScriptLoadError) Error() string {
	return fmt.Sprintf("failed to load script %s: %v", e.SHA, e.Err)
}

func (e *ScriptLoadError) Unwrap() error { return e.Err }
