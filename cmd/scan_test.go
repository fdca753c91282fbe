package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	m "github.com/tempo-ml/tempo/internal/model"
)

func writeTestRepoFile(t *testing.T, root, rel, content string) {
	t.Helper()

	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := baseRootCmd()
	configureRootFlags(cmd)
	cmd.AddCommand(newScanCmd(), newAnalyzeCmd(), newProfileCmd(), newOptimizeCmd(), newHistoryCmd(), newUndoCmd(), newCheckCmd())

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func TestScanCmd_RanksTrainingScript(t *testing.T) {
	root := t.TempDir()
	writeTestRepoFile(t, root, "train.py", "x = 1\n")
	writeTestRepoFile(t, root, "helper.py", "y = 2\n")

	output, err := runCommand(t, "scan", root)
	require.NoError(t, err)

	require.Contains(t, output, "python files:  2")
	require.Contains(t, output, "train.py")
}

func TestScanCmd_JSONOutput(t *testing.T) {
	root := t.TempDir()
	writeTestRepoFile(t, root, "train.py", "x = 1\n")

	output, err := runCommand(t, "scan", root, "--json")
	require.NoError(t, err)

	var index m.RepoIndex
	require.NoError(t, json.Unmarshal([]byte(output), &index))
	require.Equal(t, 1, index.PythonFiles)
	require.Len(t, index.Candidates, 1)
}

func TestScanCmd_MissingRepoFails(t *testing.T) {
	_, err := runCommand(t, "scan", filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}
