package domain

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tempo-ml/tempo/internal/adapter"
	m "github.com/tempo-ml/tempo/internal/model"
)

func checkItem(t *testing.T, report m.CheckReport, name string) m.CheckItem {
	t.Helper()

	for _, item := range report.Items {
		if item.Name == name {
			return item
		}
	}

	t.Fatalf("no %q item in %+v", name, report.Items)

	return m.CheckItem{}
}

func TestRunCheck_HealthyEnvironment(t *testing.T) {
	fs := adapter.NewLocalSourceFSAdapter()
	root := t.TempDir()

	// The shell stands in for the interpreter so the probe resolves on any
	// test machine.
	report := RunCheck(fs, adapter.NewCommandAgentRunner(""), "sh", m.Path(root))

	require.True(t, report.OK())
	require.True(t, checkItem(t, report, "Python interpreter").OK)
	require.True(t, checkItem(t, report, "Artifacts write access").OK)

	agent := checkItem(t, report, "Optimization agent")
	require.True(t, agent.OK, "a missing agent is not a failure")
	require.Contains(t, agent.Detail, "not configured")
}

func TestRunCheck_MissingInterpreter(t *testing.T) {
	fs := adapter.NewLocalSourceFSAdapter()

	report := RunCheck(fs, adapter.NewCommandAgentRunner(""), "tempo-no-such-python", m.Path(t.TempDir()))

	require.False(t, report.OK())
	require.False(t, checkItem(t, report, "Python interpreter").OK)
}

func TestRunCheck_MissingRepo(t *testing.T) {
	fs := adapter.NewLocalSourceFSAdapter()

	report := RunCheck(fs, adapter.NewCommandAgentRunner(""), "sh", m.Path(filepath.Join(t.TempDir(), "absent")))

	require.False(t, report.OK())
	require.False(t, checkItem(t, report, "Repository").OK)
}
