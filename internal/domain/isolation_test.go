package domain

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tempo-ml/tempo/internal/adapter"
	m "github.com/tempo-ml/tempo/internal/model"
)

func newTestIsolation() IsolationManager {
	return NewIsolationManager(adapter.NewLocalSourceFSAdapter(), adapter.DefaultExcludePolicy())
}

func TestIsolationManager_PrepareCopiesSources(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "train.py", "print('hi')\n")
	writeRepoFile(t, root, filepath.Join("data", "set.csv"), "a,b\n")
	writeRepoFile(t, root, filepath.Join(".tempo", "logs", "old.log"), "noise\n")

	runCtx := m.RunContext{RunID: NewRunID(time.Now()), RepoRoot: m.Path(root)}

	sandbox, err := newTestIsolation().Prepare(runCtx)
	require.NoError(t, err)

	require.Equal(t,
		m.Path(filepath.Join(root, ".tempo", "runs", runCtx.RunID, "repo")),
		sandbox)

	require.FileExists(t, filepath.Join(string(sandbox), "train.py"))
	require.FileExists(t, filepath.Join(string(sandbox), "data", "set.csv"))
	require.NoDirExists(t, filepath.Join(string(sandbox), ".tempo"), "artifacts must never recurse into the sandbox")
	require.NoDirExists(t, string(sandbox)+".partial")
}

func TestIsolationManager_SandboxChangesDoNotTouchOriginal(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "train.py", "print('v1')\n")

	runCtx := m.RunContext{RunID: NewRunID(time.Now()), RepoRoot: m.Path(root)}

	sandbox, err := newTestIsolation().Prepare(runCtx)
	require.NoError(t, err)

	// A destructive "run" inside the sandbox.
	require.NoError(t, os.Remove(filepath.Join(string(sandbox), "train.py")))
	require.NoError(t, os.WriteFile(filepath.Join(string(sandbox), "junk.txt"), []byte("x"), 0o600))

	original, err := os.ReadFile(filepath.Join(root, "train.py"))
	require.NoError(t, err)
	require.Equal(t, "print('v1')\n", string(original))
	require.NoFileExists(t, filepath.Join(root, "junk.txt"))
}

func TestIsolationManager_Cleanup(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "train.py", "pass\n")

	manager := newTestIsolation()
	runCtx := m.RunContext{RunID: NewRunID(time.Now()), RepoRoot: m.Path(root)}

	sandbox, err := manager.Prepare(runCtx)
	require.NoError(t, err)
	require.DirExists(t, string(sandbox))

	require.NoError(t, manager.Cleanup(runCtx))
	require.NoDirExists(t, filepath.Join(root, ".tempo", "runs", runCtx.RunID))
}

func TestEnsureArtifactDirs(t *testing.T) {
	root := t.TempDir()

	require.NoError(t, EnsureArtifactDirs(adapter.NewLocalSourceFSAdapter(), m.Path(root)))

	for _, name := range []string{"logs", "runs", "history", "optimize"} {
		require.DirExists(t, filepath.Join(root, ".tempo", name))
	}
}
