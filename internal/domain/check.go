package domain

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/tempo-ml/tempo/internal/adapter"
	m "github.com/tempo-ml/tempo/internal/model"
)

// RunCheck probes the prerequisites for profiling a repository: a Python
// interpreter, an existing repo and write access for the artifacts
// directory. The agent probe never fails the check; the agent is optional.
func RunCheck(fs adapter.SourceFSAdapter, agent adapter.AgentRunner, interpreter string, repo m.Path) m.CheckReport {
	if interpreter == "" {
		interpreter = DefaultInterpreter
	}

	var report m.CheckReport

	if path, err := exec.LookPath(interpreter); err == nil {
		report.Items = append(report.Items, m.CheckItem{
			Name: "Python interpreter", OK: true, Detail: fmt.Sprintf("%s at %s", interpreter, path),
		})
	} else {
		report.Items = append(report.Items, m.CheckItem{
			Name: "Python interpreter", OK: false, Detail: fmt.Sprintf("%s not found in PATH", interpreter),
		})
	}

	if agent.Available() {
		report.Items = append(report.Items, m.CheckItem{
			Name: "Optimization agent", OK: true, Detail: "configured and resolvable",
		})
	} else {
		report.Items = append(report.Items, m.CheckItem{
			Name: "Optimization agent", OK: true,
			Detail: "not configured (only needed for `tempo optimize --apply`)",
		})
	}

	if repo == "" {
		return report
	}

	info, err := fs.FileInfo(repo)
	if err != nil || !info.IsDir() {
		report.Items = append(report.Items, m.CheckItem{
			Name: "Repository", OK: false, Detail: fmt.Sprintf("not a readable directory: %s", repo),
		})

		return report
	}

	report.Items = append(report.Items, m.CheckItem{Name: "Repository", OK: true, Detail: string(repo)})

	probeDir := fs.JoinPath(string(repo), ArtifactsDirName)
	probe := fs.JoinPath(string(probeDir), ".write_probe")

	if err := fs.WriteFile(probe, []byte("ok"), 0o640); err != nil {
		report.Items = append(report.Items, m.CheckItem{
			Name: "Artifacts write access", OK: false, Detail: fmt.Sprintf("cannot write %s: %v", probeDir, err),
		})

		return report
	}

	_ = os.Remove(string(probe))
	report.Items = append(report.Items, m.CheckItem{
		Name: "Artifacts write access", OK: true, Detail: fmt.Sprintf("can write to %s", probeDir),
	})

	return report
}
