package controller

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "github.com/tempo-ml/tempo/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

// SimpleUI renders to a cobra command's output stream.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a SimpleUI bound to cmd's out/err writers.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// ShowIndex prints the repository summary and the ranked candidate table.
func (ui *SimpleUI) ShowIndex(index m.RepoIndex) {
	ui.cmd.Println(headerStyle.Render("Repository summary"))
	ui.cmd.Printf("  root:          %s\n", index.Repo.Root)
	ui.cmd.Printf("  python files:  %d\n", index.PythonFiles)
	ui.cmd.Printf("  python lines:  %d\n", index.TotalLines)

	if len(index.Candidates) == 0 {
		ui.cmd.Println("\nNo training entrypoint candidates detected.")
		return
	}

	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Rank", "Script", "Score", "Lines"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})

	for i, c := range index.Candidates {
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			string(c.Path),
			fmt.Sprintf("%d", c.Score),
			fmt.Sprintf("%d", c.Lines),
		})
	}

	table.Render()

	ui.cmd.Println("\n" + headerStyle.Render("Training entrypoint candidates"))
	ui.cmd.Print(buf.String())
}

// ShowText prints a pre-rendered report body verbatim.
func (ui *SimpleUI) ShowText(text string) {
	ui.cmd.Print(text)
}

// ShowRun prints one run artifact.
func (ui *SimpleUI) ShowRun(artifact m.RunArtifact) {
	ui.cmd.Println(headerStyle.Render("Profiling run " + artifact.RunID))
	ui.cmd.Printf("  working dir:  %s\n", artifact.WorkDir)
	ui.cmd.Printf("  log:          %s\n", artifact.LogPath)
	ui.cmd.Printf("  duration:     %s\n", artifact.Duration().Round(time.Millisecond))

	switch {
	case artifact.TimedOut:
		ui.cmd.Printf("  outcome:      %s\n", failStyle.Render("timed out"))
	case artifact.Capped:
		ui.cmd.Printf("  outcome:      %s\n", okStyle.Render("capped (step limit reached)"))
	case artifact.ExitStatus == 0:
		ui.cmd.Printf("  outcome:      %s\n", okStyle.Render("completed"))
	default:
		ui.cmd.Printf("  outcome:      %s\n", failStyle.Render(fmt.Sprintf("failed (exit %d)", artifact.ExitStatus)))
	}

	if len(artifact.Metrics) > 0 {
		ui.cmd.Println("  metrics:")

		for _, kv := range sortedMetrics(artifact.Metrics) {
			ui.cmd.Printf("    %s = %g\n", kv.key, kv.value)
		}
	}
}

// ShowUndo prints per-file undo outcomes and, when asked, diffs for
// diverged files.
func (ui *SimpleUI) ShowUndo(report m.UndoReport, showDiffs bool) {
	ui.cmd.Println(headerStyle.Render("Undo " + report.RunID))

	for _, outcome := range report.Outcomes {
		style := okStyle

		switch outcome.Status {
		case m.UndoSkippedDiverged, m.UndoCorrupt:
			style = failStyle
		case m.UndoSkippedUnchanged:
			style = dimStyle
		}

		ui.cmd.Printf("  %-28s %s\n", style.Render(string(outcome.Status)), outcome.RelPath)

		if showDiffs && outcome.Status == m.UndoSkippedDiverged && outcome.Diff != "" {
			ui.cmd.Print(dimStyle.Render(outcome.Diff))
		}
	}

	if n := report.Count(m.UndoSkippedDiverged); n > 0 {
		ui.cmd.Printf("\n%s\n", warnStyle.Render(
			fmt.Sprintf("%d file(s) changed since the snapshot and were left alone. Re-run with --force to overwrite.", n)))
	}
}

// ShowSnapshots prints the snapshot listing.
func (ui *SimpleUI) ShowSnapshots(infos []m.SnapshotInfo) {
	if len(infos) == 0 {
		ui.cmd.Println("No snapshots recorded.")
		return
	}

	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Run ID", "Created", "Files"})
	table.SetBorder(false)
	table.SetCenterSeparator("")

	for _, info := range infos {
		table.Append([]string{
			info.RunID,
			info.CreatedAt.UTC().Format(time.RFC3339),
			fmt.Sprintf("%d", info.FileCount),
		})
	}

	table.Render()
	ui.cmd.Print(buf.String())
}

// ShowOptimize prints the optimize outcome with before/after deltas.
func (ui *SimpleUI) ShowOptimize(report m.OptimizeReport) {
	ui.cmd.Println(headerStyle.Render("Optimize (" + string(report.Mode) + ")"))
	ui.ShowRun(report.Before)

	if report.AnalysisPath != "" {
		ui.cmd.Printf("\n  analysis:     %s\n", report.AnalysisPath)
	}

	if report.SnapshotRunID != "" {
		ui.cmd.Printf("  snapshot:     %s\n", report.SnapshotRunID)
	}

	if report.After == nil {
		return
	}

	ui.cmd.Println("")
	ui.ShowRun(*report.After)

	if len(report.Deltas) > 0 {
		ui.cmd.Println("\n" + headerStyle.Render("Before/after deltas"))

		for _, key := range sortedDeltaKeys(report.Deltas) {
			d := report.Deltas[key]
			ui.cmd.Printf("  %-20s %g -> %g (%+g)\n", key, d.Before, d.After, d.Delta)
		}
	}
}

// ShowCheck prints the prerequisite report.
func (ui *SimpleUI) ShowCheck(report m.CheckReport) {
	ui.cmd.Println(headerStyle.Render("tempo check"))

	for _, item := range report.Items {
		mark := okStyle.Render("ok")
		if !item.OK {
			mark = failStyle.Render("FAIL")
		}

		ui.cmd.Printf("  %-4s %s: %s\n", mark, item.Name, item.Detail)
	}

	if report.OK() {
		ui.cmd.Println("\nStatus: healthy")
	} else {
		ui.cmd.Println("\nStatus: " + warnStyle.Render("needs attention"))
	}
}

// ShowWarnings prints per-file scan warnings.
func (ui *SimpleUI) ShowWarnings(warnings []m.ScanWarning) {
	if len(warnings) == 0 {
		return
	}

	ui.cmd.Println(warnStyle.Render(fmt.Sprintf("%d file(s) skipped with warnings:", len(warnings))))

	for _, w := range warnings {
		ui.cmd.Printf("  %s: %s\n", w.Path, w.Reason)
	}
}

type metricKV struct {
	key   string
	value float64
}

func sortedMetrics(metrics map[string]float64) []metricKV {
	out := make([]metricKV, 0, len(metrics))
	for k, v := range metrics {
		out = append(out, metricKV{key: k, value: v})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })

	return out
}

func sortedDeltaKeys(deltas map[string]m.MetricDelta) []string {
	keys := make([]string, 0, len(deltas))
	for k := range deltas {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
