// Package controller renders tempo results for the terminal.
package controller

import (
	m "github.com/tempo-ml/tempo/internal/model"
)

// UI is the output port the commands talk to. There is one console
// implementation; tests substitute their own to capture output.
type UI interface {
	ShowIndex(index m.RepoIndex)
	ShowText(text string)
	ShowRun(artifact m.RunArtifact)
	ShowUndo(report m.UndoReport, showDiffs bool)
	ShowSnapshots(infos []m.SnapshotInfo)
	ShowOptimize(report m.OptimizeReport)
	ShowCheck(report m.CheckReport)
	ShowWarnings(warnings []m.ScanWarning)
}
