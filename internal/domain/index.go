package domain

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tempo-ml/tempo/internal/adapter"
	m "github.com/tempo-ml/tempo/internal/model"
)

// filenameTokens are entrypoint-suggesting tokens looked up in the basename.
var filenameTokens = []string{"train", "finetune", "fine_tune", "fit", "downstream", "main", "run"}

const (
	scoreFilenameToken = 3
	scoreTrainingLoop  = 4
)

// SourceIndex walks a repository, classifies files and ranks candidate
// training entrypoints. It is read-only.
type SourceIndex interface {
	Scan(root m.Path) (m.RepoIndex, error)
}

type sourceIndex struct {
	fs     adapter.SourceFSAdapter
	python adapter.PythonFileAdapter
	policy adapter.ExcludePolicy
}

// NewSourceIndex constructs a SourceIndex over the given adapters.
func NewSourceIndex(fs adapter.SourceFSAdapter, python adapter.PythonFileAdapter, policy adapter.ExcludePolicy) SourceIndex {
	return &sourceIndex{fs: fs, python: python, policy: policy}
}

// Scan builds the repository view and the ranked candidate list. Per-file
// read or parse problems become warnings; only a missing or unreadable root
// fails the whole scan.
func (ix *sourceIndex) Scan(root m.Path) (m.RepoIndex, error) {
	info, err := ix.fs.FileInfo(root)
	if err != nil {
		if os.IsNotExist(err) {
			return m.RepoIndex{}, fmt.Errorf("%w: repository root %s", ErrNotFound, root)
		}

		return m.RepoIndex{}, fmt.Errorf("%w: repository root %s: %v", ErrPermission, root, err)
	}

	if !info.IsDir() {
		return m.RepoIndex{}, fmt.Errorf("%w: %s is not a directory", ErrNotFound, root)
	}

	index := m.RepoIndex{Repo: m.Repository{Root: root}}

	err = ix.fs.Walk(root, ix.policy, func(path string, _ os.FileInfo, walkErr error) error {
		rel, relErr := ix.fs.RelPath(root, m.Path(path))
		if relErr != nil {
			rel = m.Path(path)
		}

		if walkErr != nil {
			index.Warnings = append(index.Warnings, m.ScanWarning{Path: rel, Reason: walkErr.Error()})
			return nil
		}

		index.Repo.Files = append(index.Repo.Files, rel)

		if !isPythonFile(path) {
			return nil
		}

		index.PythonFiles++

		src, readErr := ix.fs.ReadFile(m.Path(path))
		if readErr != nil {
			index.Warnings = append(index.Warnings, m.ScanWarning{Path: rel, Reason: readErr.Error()})
			return nil
		}

		lines := countLines(src)
		index.TotalLines += lines

		score := ix.scoreFile(rel, src, &index)
		if score > 0 {
			index.Candidates = append(index.Candidates, m.CandidateScript{Path: rel, Score: score, Lines: lines})
		}

		return nil
	})
	if err != nil {
		return m.RepoIndex{}, fmt.Errorf("walk %s: %w", root, err)
	}

	sortCandidates(index.Candidates)

	slog.Debug("repository scanned",
		"root", root,
		"python_files", index.PythonFiles,
		"candidates", len(index.Candidates),
		"warnings", len(index.Warnings),
	)

	return index, nil
}

// scoreFile computes the heuristic entrypoint score for one Python file.
func (ix *sourceIndex) scoreFile(rel m.Path, src []byte, index *m.RepoIndex) int {
	score := 0

	base := strings.ToLower(filepath.Base(string(rel)))
	for _, token := range filenameTokens {
		if strings.Contains(base, token) {
			score += scoreFilenameToken
			break
		}
	}

	mod, parseErr := ix.python.Parse(rel, src)
	if parseErr != nil {
		index.Warnings = append(index.Warnings, m.ScanWarning{Path: rel, Reason: parseErr.Error()})
		return score
	}

	if hasTrainingLoop(mod) {
		score += scoreTrainingLoop
	}

	return score
}

// hasTrainingLoop reports whether any loop body contains both a
// forward-style call (.forward()/.backward()) and an optimizer-style step
// call (.step()).
func hasTrainingLoop(mod *adapter.PyModule) bool {
	for _, loop := range mod.Loops {
		var hasForward, hasStep bool

		for _, call := range loop.Calls {
			switch lastSegment(call.Chain) {
			case "step":
				hasStep = true
			case "forward", "backward":
				hasForward = true
			}
		}

		if hasForward && hasStep {
			return true
		}
	}

	return false
}

func lastSegment(chain []string) string {
	if len(chain) == 0 {
		return ""
	}

	return chain[len(chain)-1]
}

func isPythonFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".py" || ext == ".pyw"
}

func countLines(src []byte) int {
	if len(src) == 0 {
		return 0
	}

	n := bytes.Count(src, []byte{'\n'})
	if src[len(src)-1] != '\n' {
		n++
	}

	return n
}

// sortCandidates orders by descending score, then shallowest path, then
// lexical path, so ranking is deterministic for a given repository.
func sortCandidates(candidates []m.CandidateScript) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}

		di := strings.Count(string(candidates[i].Path), string(filepath.Separator))
		dj := strings.Count(string(candidates[j].Path), string(filepath.Separator))
		if di != dj {
			return di < dj
		}

		return candidates[i].Path < candidates[j].Path
	})
}
