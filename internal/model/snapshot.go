package model

import "time"

// ManifestEntry records one backed-up file inside a snapshot.
type ManifestEntry struct {
	RelPath string `json:"rel_path"`
	Size    int64  `json:"size"`
	SHA256  string `json:"sha256"`
}

// Manifest is the persisted path→hash mapping of a snapshot. Written once,
// after every backup byte is on disk, so a readable manifest implies a
// complete snapshot.
type Manifest struct {
	RunID     string          `json:"run_id"`
	CreatedAt time.Time       `json:"created_at"`
	Command   string          `json:"command"`
	Entries   []ManifestEntry `json:"entries"` // lexical by RelPath
	Skipped   []string        `json:"skipped"` // too large, binary, unreadable

	// Post-agent state, recorded by Finalize once the agent is done. Undo
	// uses After to tell agent edits from later manual edits, and Added to
	// remove files the agent created.
	Finalized bool            `json:"finalized,omitempty"`
	After     []ManifestEntry `json:"after,omitempty"` // lexical by RelPath
	Added     []string        `json:"added,omitempty"` // present after, absent before
}

// SnapshotInfo is the listing form of a snapshot.
type SnapshotInfo struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	FileCount int       `json:"file_count"`
}

// UndoStatus is the per-file result of an undo operation.
type UndoStatus string

const (
	// UndoRestored means the backup was copied back over changed content.
	UndoRestored UndoStatus = "restored"
	// UndoSkippedUnchanged means the file already matches the backup.
	UndoSkippedUnchanged UndoStatus = "skipped-unchanged-already"
	// UndoSkippedDiverged means the file changed since the snapshot and was
	// left alone because force was not set.
	UndoSkippedDiverged UndoStatus = "skipped-diverged"
	// UndoRestoredForced means a diverged file was overwritten under force.
	UndoRestoredForced UndoStatus = "restored-forced"
	// UndoRemoved means the agent created the file and undo deleted it.
	UndoRemoved UndoStatus = "removed-added"
	// UndoCorrupt means the backup itself failed its hash check; the file
	// was left unrestored.
	UndoCorrupt UndoStatus = "corrupt-backup"
)

// UndoFileOutcome pairs a backed-up path with what undo did to it.
type UndoFileOutcome struct {
	RelPath string     `json:"rel_path"`
	Status  UndoStatus `json:"status"`
	Diff    string     `json:"diff,omitempty"` // unified diff for diverged files
}

// UndoReport is the file-granular result of restoring a snapshot.
type UndoReport struct {
	RunID    string            `json:"run_id"`
	Outcomes []UndoFileOutcome `json:"outcomes"`
}

// Count returns how many outcomes carry the given status.
func (r UndoReport) Count(status UndoStatus) int {
	n := 0

	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}

	return n
}
