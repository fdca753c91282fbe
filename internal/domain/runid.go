package domain

import (
	"fmt"
	"sync"
	"time"
)

// Run identifiers are timestamp-derived and must stay unique within a
// process even when two runs start inside the same millisecond.
var runIDMu sync.Mutex
var lastRunID string
var runIDSeq int

// NewRunID returns a fresh run identifier of the form
// 20260830-142355.017, with a numeric suffix appended on collision so ids
// remain monotonic within the process.
func NewRunID(now time.Time) string {
	runIDMu.Lock()
	defer runIDMu.Unlock()

	id := now.UTC().Format("20060102-150405.000")
	if id == lastRunID {
		runIDSeq++
		return fmt.Sprintf("%s-%d", id, runIDSeq)
	}

	lastRunID = id
	runIDSeq = 0

	return id
}
