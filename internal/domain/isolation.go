package domain

import (
	"fmt"
	"os"

	"github.com/tempo-ml/tempo/internal/adapter"
	m "github.com/tempo-ml/tempo/internal/model"
)

// Layout of the artifacts directory kept inside the target repository.
const (
	ArtifactsDirName = ".tempo"
	LogsDirName      = "logs"
	RunsDirName      = "runs"
	HistoryDirName   = "history"
	OptimizeDirName  = "optimize"
	sandboxDirName   = "repo"
)

// IsolationManager materializes the sandboxed copy of a repository a
// profiling run executes in.
type IsolationManager interface {
	// Prepare copies the repository into the run-scoped sandbox directory
	// and returns its path. The copy is all-or-nothing: on any failure the
	// partial copy is removed and ErrIsolationFailure is returned.
	Prepare(runCtx m.RunContext) (m.Path, error)

	// Cleanup removes the run's sandbox directory.
	Cleanup(runCtx m.RunContext) error
}

type isolationManager struct {
	fs     adapter.SourceFSAdapter
	policy adapter.ExcludePolicy
}

// NewIsolationManager constructs an IsolationManager. The exclusion policy
// is the scan policy extended to skip the artifacts directory itself, so
// sandboxes never recursively swallow prior runs.
func NewIsolationManager(fs adapter.SourceFSAdapter, policy adapter.ExcludePolicy) IsolationManager {
	policy.Extra = append(policy.Extra, ArtifactsDirName)

	return &isolationManager{fs: fs, policy: policy}
}

func (im *isolationManager) Prepare(runCtx m.RunContext) (m.Path, error) {
	runDir := im.fs.JoinPath(string(runCtx.RepoRoot), ArtifactsDirName, RunsDirName, runCtx.RunID)
	sandbox := im.fs.JoinPath(string(runDir), sandboxDirName)
	partial := sandbox + ".partial"

	if err := im.fs.MkdirAll(runDir, 0o750); err != nil {
		return "", fmt.Errorf("%w: create run dir: %v", ErrIsolationFailure, err)
	}

	// Copy into a staging directory and rename into place, so a sandbox
	// path that exists is always a complete copy.
	if err := im.fs.CopyTree(runCtx.RepoRoot, partial, im.policy); err != nil {
		_ = im.fs.RemoveAll(partial)
		return "", fmt.Errorf("%w: copy repository: %v", ErrIsolationFailure, err)
	}

	if err := im.fs.Rename(partial, sandbox); err != nil {
		_ = im.fs.RemoveAll(partial)
		return "", fmt.Errorf("%w: finalize sandbox: %v", ErrIsolationFailure, err)
	}

	return sandbox, nil
}

func (im *isolationManager) Cleanup(runCtx m.RunContext) error {
	runDir := im.fs.JoinPath(string(runCtx.RepoRoot), ArtifactsDirName, RunsDirName, runCtx.RunID)
	return im.fs.RemoveAll(runDir)
}

// EnsureArtifactDirs creates the persisted layout under the original
// repository: logs, runs, optimize outputs and history.
func EnsureArtifactDirs(fs adapter.SourceFSAdapter, repoRoot m.Path) error {
	for _, name := range []string{LogsDirName, RunsDirName, HistoryDirName, OptimizeDirName} {
		dir := fs.JoinPath(string(repoRoot), ArtifactsDirName, name)
		if err := fs.MkdirAll(dir, 0o750); err != nil {
			if os.IsPermission(err) {
				return fmt.Errorf("%w: %s", ErrPermission, dir)
			}

			return err
		}
	}

	return nil
}
