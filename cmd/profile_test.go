package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	m "github.com/tempo-ml/tempo/internal/model"
)

// withShellInterpreter points profiling at sh so the "training scripts" in
// these tests can be shell scripts.
func withShellInterpreter(t *testing.T) {
	t.Helper()

	original := viper.GetString(pythonConfigKey)
	viper.Set(pythonConfigKey, "sh")
	t.Cleanup(func() { viper.Set(pythonConfigKey, original) })
}

func TestProfileCmd_RunsBestCandidateIsolated(t *testing.T) {
	withShellInterpreter(t)

	root := t.TempDir()
	writeTestRepoFile(t, root, "train.py", "echo '[tempo-metric] loss=0.5'\ntouch model.ckpt\n")

	output, err := runCommand(t, "profile", root, "--json")
	require.NoError(t, err)

	var artifact m.RunArtifact
	require.NoError(t, json.Unmarshal([]byte(output), &artifact))
	require.True(t, artifact.Succeeded())
	require.InDelta(t, 0.5, artifact.Metrics["loss"], 1e-9)

	// The checkpoint stayed inside the sandbox.
	require.NoFileExists(t, filepath.Join(root, "model.ckpt"))
	require.FileExists(t, filepath.Join(string(artifact.WorkDir), "model.ckpt"))
}

func TestProfileCmd_PassesScriptArgsAfterDash(t *testing.T) {
	withShellInterpreter(t)

	root := t.TempDir()
	writeTestRepoFile(t, root, "train.py", "echo \"args: $@\"\n")

	output, err := runCommand(t, "profile", root, "--json", "--", "--epochs", "1")
	require.NoError(t, err)

	var artifact m.RunArtifact
	require.NoError(t, json.Unmarshal([]byte(output), &artifact))

	log, readErr := os.ReadFile(string(artifact.LogPath))
	require.NoError(t, readErr)
	require.Contains(t, string(log), "args: --epochs 1")
}

func TestProfileCmd_ReportsCappedRun(t *testing.T) {
	withShellInterpreter(t)

	root := t.TempDir()
	writeTestRepoFile(t, root, "train.py", "echo '[tempo-safe-profile] step_cap_reached max_steps=50'\nexit 97\n")

	output, err := runCommand(t, "profile", root)
	require.NoError(t, err)

	require.Contains(t, output, "Profiling run ")
	require.Contains(t, output, "capped (step limit reached)")
	require.Contains(t, output, "max_steps = 50")
}

func TestProfileCmd_MissingScriptFails(t *testing.T) {
	withShellInterpreter(t)

	root := t.TempDir()
	writeTestRepoFile(t, root, "train.py", "echo hi\n")

	_, err := runCommand(t, "profile", root, "--script", "absent.py")
	require.Error(t, err)
}
