package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tempo-ml/tempo/internal/domain"
	m "github.com/tempo-ml/tempo/internal/model"
)

func TestHistoryCmd_EmptyRepo(t *testing.T) {
	output, err := runCommand(t, "history", t.TempDir())
	require.NoError(t, err)
	require.Contains(t, output, "No snapshots recorded.")
}

func TestHistoryCmd_ListsSnapshots(t *testing.T) {
	root := t.TempDir()
	writeTestRepoFile(t, root, "train.py", "print('v1')\n")

	ledger := domain.NewSnapshotLedger(fsAdapter, reportStore, excludePolicy())
	runCtx := m.RunContext{RunID: domain.NewRunID(time.Now()), RepoRoot: m.Path(root)}

	_, err := ledger.Snapshot(runCtx, "test")
	require.NoError(t, err)

	output, err := runCommand(t, "history", root)
	require.NoError(t, err)
	require.Contains(t, output, runCtx.RunID)
}
