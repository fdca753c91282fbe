// Package domain implements the tempo workflows: repository indexing,
// pattern detection, report building, sandboxed profiling and snapshot/undo.
package domain

import "errors"

// Sentinel error kinds. Callers classify failures with errors.Is; the
// wrapped message carries the human-readable detail.
var (
	// ErrNotFound marks a missing repository, script or snapshot run.
	ErrNotFound = errors.New("not found")
	// ErrPermission marks an unreadable or unwritable path.
	ErrPermission = errors.New("permission denied")
	// ErrParseFailure marks a single file the syntax-tree engine rejected.
	// It is recovered locally by falling back or skipping the file.
	ErrParseFailure = errors.New("parse failure")
	// ErrIsolationFailure marks an incomplete sandbox copy. Fatal to the
	// profiling path only.
	ErrIsolationFailure = errors.New("isolation failure")
	// ErrSubprocessFailure marks a child that exited non-zero without the
	// capped signal.
	ErrSubprocessFailure = errors.New("subprocess failure")
	// ErrTimeout marks a child terminated by the wall-clock deadline.
	ErrTimeout = errors.New("timeout")
	// ErrDivergedState marks an undo target that changed since its snapshot.
	ErrDivergedState = errors.New("diverged state")
	// ErrCorruptSnapshot marks an unreadable manifest or a backup whose
	// bytes no longer match their recorded hash.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)
