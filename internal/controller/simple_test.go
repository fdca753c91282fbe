package controller

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	m "github.com/tempo-ml/tempo/internal/model"
)

func newCaptureUI() (*SimpleUI, *bytes.Buffer) {
	out := &bytes.Buffer{}

	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(out)

	return NewSimpleUI(cmd), out
}

func TestSimpleUI_ShowIndex(t *testing.T) {
	ui, out := newCaptureUI()

	ui.ShowIndex(m.RepoIndex{
		Repo:        m.Repository{Root: "/repo"},
		PythonFiles: 3,
		TotalLines:  120,
		Candidates: []m.CandidateScript{
			{Path: "train.py", Score: 7, Lines: 80},
			{Path: "run_eval.py", Score: 3, Lines: 40},
		},
	})

	output := out.String()
	require.Contains(t, output, "python files:  3")
	require.Contains(t, output, "train.py")
	require.Contains(t, output, "run_eval.py")
}

func TestSimpleUI_ShowIndexWithoutCandidates(t *testing.T) {
	ui, out := newCaptureUI()

	ui.ShowIndex(m.RepoIndex{Repo: m.Repository{Root: "/repo"}})

	require.Contains(t, out.String(), "No training entrypoint candidates detected.")
}

func TestSimpleUI_ShowRunOutcomes(t *testing.T) {
	base := m.RunArtifact{
		RunID:     "20260830-120000.000",
		WorkDir:   "/repo/.tempo/runs/x/repo",
		LogPath:   "/repo/.tempo/logs/train.log",
		StartTime: time.Unix(0, 0),
		EndTime:   time.Unix(1, 0),
	}

	cases := []struct {
		name     string
		mutate   func(*m.RunArtifact)
		expected string
	}{
		{"completed", func(*m.RunArtifact) {}, "completed"},
		{"capped", func(a *m.RunArtifact) { a.Capped = true; a.ExitStatus = 97 }, "capped"},
		{"failed", func(a *m.RunArtifact) { a.ExitStatus = 2 }, "failed (exit 2)"},
		{"timed out", func(a *m.RunArtifact) { a.TimedOut = true }, "timed out"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ui, out := newCaptureUI()

			artifact := base
			tc.mutate(&artifact)
			ui.ShowRun(artifact)

			require.Contains(t, out.String(), tc.expected)
		})
	}
}

func TestSimpleUI_ShowRunMetricsSorted(t *testing.T) {
	ui, out := newCaptureUI()

	ui.ShowRun(m.RunArtifact{
		RunID:   "x",
		Metrics: map[string]float64{"loss": 0.5, "accuracy": 0.9},
	})

	output := out.String()
	require.Less(t,
		bytes.Index([]byte(output), []byte("accuracy")),
		bytes.Index([]byte(output), []byte("loss")),
	)
}

func TestSimpleUI_ShowUndo(t *testing.T) {
	ui, out := newCaptureUI()

	ui.ShowUndo(m.UndoReport{
		RunID: "20260830-120000.000",
		Outcomes: []m.UndoFileOutcome{
			{RelPath: "train.py", Status: m.UndoRestored},
			{RelPath: "helpers.py", Status: m.UndoRemoved},
			{RelPath: "config.yaml", Status: m.UndoSkippedDiverged, Diff: "-old\n+new\n"},
		},
	}, true)

	output := out.String()
	require.Contains(t, output, "train.py")
	require.Contains(t, output, "helpers.py")
	require.Contains(t, output, "removed-added")
	require.Contains(t, output, "config.yaml")
	require.Contains(t, output, "+new")
	require.Contains(t, output, "--force")
}

func TestSimpleUI_ShowSnapshots(t *testing.T) {
	ui, out := newCaptureUI()

	ui.ShowSnapshots(nil)
	require.Contains(t, out.String(), "No snapshots recorded.")

	out.Reset()
	ui.ShowSnapshots([]m.SnapshotInfo{
		{RunID: "20260830-120000.000", CreatedAt: time.Unix(0, 0), FileCount: 4},
	})
	require.Contains(t, out.String(), "20260830-120000.000")
}

func TestSimpleUI_ShowCheck(t *testing.T) {
	ui, out := newCaptureUI()

	ui.ShowCheck(m.CheckReport{Items: []m.CheckItem{
		{Name: "Python interpreter", OK: true, Detail: "python3 at /usr/bin/python3"},
	}})
	require.Contains(t, out.String(), "Status: healthy")

	out.Reset()
	ui.ShowCheck(m.CheckReport{Items: []m.CheckItem{
		{Name: "Python interpreter", OK: false, Detail: "not found"},
	}})
	require.Contains(t, out.String(), "needs attention")
}
