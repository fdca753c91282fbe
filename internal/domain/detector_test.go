package domain

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tempo-ml/tempo/internal/adapter"
	"github.com/tempo-ml/tempo/internal/domain/rules"
	m "github.com/tempo-ml/tempo/internal/model"
)

// stubPython serves canned parse results keyed by relative path so detector
// and index behavior can be pinned without a real parser.
type stubPython struct {
	modules map[string]*adapter.PyModule
	errs    map[string]error
}

func (s *stubPython) Parse(path m.Path, _ []byte) (*adapter.PyModule, error) {
	if err, ok := s.errs[string(path)]; ok {
		return nil, err
	}

	if mod, ok := s.modules[string(path)]; ok {
		return mod, nil
	}

	return &adapter.PyModule{}, nil
}

func writeRepoFile(t *testing.T, root, rel, content string) {
	t.Helper()

	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestPatternDetector_ResolvedCallProducesFinding(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "train.py", "import torch\nwith torch.autocast(\"cuda\"):\n    pass\n")

	python := &stubPython{modules: map[string]*adapter.PyModule{
		"train.py": {
			Imports: []adapter.PyImport{{Line: 1, Binding: "torch", Target: "torch"}},
			Calls:   []adapter.PyCall{{Line: 2, Chain: []string{"torch", "autocast"}}},
		},
	}}

	detector := NewPatternDetector(adapter.NewLocalSourceFSAdapter(), python)

	index := m.RepoIndex{
		Repo:       m.Repository{Root: m.Path(root), Files: []m.Path{"train.py"}},
		Candidates: []m.CandidateScript{{Path: "train.py", Score: 7}},
	}

	findings := detector.DetectRepo(index, DetectOptions{Engine: EngineAST})
	require.Len(t, findings, 1)

	f := findings[0]
	require.Equal(t, m.CategoryMixedPrecision, f.Category)
	require.Equal(t, rules.SubKindAutocastContext, f.SubKind)
	require.Equal(t, m.ConfidenceSyntactic, f.Confidence)
	require.Equal(t, 2, f.Line)
	require.Equal(t, `with torch.autocast("cuda"):`, f.Snippet)
}

func TestPatternDetector_UnresolvableCallProducesNothing(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "train.py", "autocast = object()\nautocast()\n")

	// `autocast` was never bound by an import, so the identical-looking
	// call must not match.
	python := &stubPython{modules: map[string]*adapter.PyModule{
		"train.py": {
			Calls: []adapter.PyCall{{Line: 2, Chain: []string{"autocast"}}},
		},
	}}

	detector := NewPatternDetector(adapter.NewLocalSourceFSAdapter(), python)

	index := m.RepoIndex{
		Repo:       m.Repository{Root: m.Path(root), Files: []m.Path{"train.py"}},
		Candidates: []m.CandidateScript{{Path: "train.py", Score: 3}},
	}

	require.Empty(t, detector.DetectRepo(index, DetectOptions{Engine: EngineAST}))
}

func TestPatternDetector_ParseFailureFallsBackToText(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "train.py", "scaler = GradScaler()\n")

	python := &stubPython{errs: map[string]error{
		"train.py": errors.New("syntax error"),
	}}

	detector := NewPatternDetector(adapter.NewLocalSourceFSAdapter(), python)

	index := m.RepoIndex{
		Repo:       m.Repository{Root: m.Path(root), Files: []m.Path{"train.py"}},
		Candidates: []m.CandidateScript{{Path: "train.py", Score: 3}},
	}

	findings := detector.DetectRepo(index, DetectOptions{Engine: EngineAST})
	require.Len(t, findings, 1)
	require.Equal(t, rules.SubKindGradScaler, findings[0].SubKind)
	require.Equal(t, m.ConfidenceHeuristic, findings[0].Confidence)
}

func TestPatternDetector_StringEngineSkipsComments(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "train.py", "# autocast( disabled here\nwith autocast():\n    pass\n")

	detector := NewPatternDetector(adapter.NewLocalSourceFSAdapter(), &stubPython{})

	index := m.RepoIndex{
		Repo:       m.Repository{Root: m.Path(root), Files: []m.Path{"train.py"}},
		Candidates: []m.CandidateScript{{Path: "train.py", Score: 3}},
	}

	findings := detector.DetectRepo(index, DetectOptions{Engine: EngineString})
	require.Len(t, findings, 1)
	require.Equal(t, 2, findings[0].Line)
}

func TestPatternDetector_DeduplicatesByFileLineKind(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "train.py", "import torch\ntorch.autocast()\n")

	// Two rule hits on the same line with the same sub-kind collapse into
	// one finding.
	python := &stubPython{modules: map[string]*adapter.PyModule{
		"train.py": {
			Imports: []adapter.PyImport{{Line: 1, Binding: "torch", Target: "torch"}},
			Calls: []adapter.PyCall{
				{Line: 2, Chain: []string{"torch", "autocast"}},
				{Line: 2, Chain: []string{"torch", "autocast"}},
			},
		},
	}}

	detector := NewPatternDetector(adapter.NewLocalSourceFSAdapter(), python)

	index := m.RepoIndex{
		Repo:       m.Repository{Root: m.Path(root), Files: []m.Path{"train.py"}},
		Candidates: []m.CandidateScript{{Path: "train.py", Score: 3}},
	}

	require.Len(t, detector.DetectRepo(index, DetectOptions{Engine: EngineAST}), 1)
}

func TestPatternDetector_KeywordSetting(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "train.py", "import lightning as L\ntrainer = L.Trainer(precision=\"bf16-mixed\", strategy=\"fsdp\")\n")

	python := &stubPython{modules: map[string]*adapter.PyModule{
		"train.py": {
			Imports: []adapter.PyImport{{Line: 1, Binding: "L", Target: "lightning"}},
			Calls: []adapter.PyCall{{
				Line:  2,
				Chain: []string{"L", "Trainer"},
				Keywords: []adapter.PyKeyword{
					{Name: "precision", Value: "bf16-mixed"},
					{Name: "strategy", Value: "fsdp"},
				},
			}},
		},
	}}

	detector := NewPatternDetector(adapter.NewLocalSourceFSAdapter(), python)

	index := m.RepoIndex{
		Repo:       m.Repository{Root: m.Path(root), Files: []m.Path{"train.py"}},
		Candidates: []m.CandidateScript{{Path: "train.py", Score: 3}},
	}

	findings := detector.DetectRepo(index, DetectOptions{Engine: EngineAST})
	require.Len(t, findings, 2)

	categories := map[m.Category]bool{}
	for _, f := range findings {
		categories[f.Category] = true
	}

	require.True(t, categories[m.CategoryMixedPrecision])
	require.True(t, categories[m.CategorySharding])
}

func TestPatternDetector_ConfigFilesAlwaysScanned(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "configs/trainer.yaml", "precision: 16-mixed\n")
	writeRepoFile(t, root, "ds_config.json", `{"zero_optimization": {"stage": 3}}`)

	detector := NewPatternDetector(adapter.NewLocalSourceFSAdapter(), &stubPython{})

	index := m.RepoIndex{
		Repo: m.Repository{Root: m.Path(root), Files: []m.Path{
			m.Path(filepath.Join("configs", "trainer.yaml")),
			"ds_config.json",
		}},
	}

	findings := detector.DetectRepo(index, DetectOptions{Engine: EngineAST})
	require.Len(t, findings, 2)
}

func TestPatternDetector_ScanAllCoversNonCandidates(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "util.py", "with autocast():\n    pass\n")

	detector := NewPatternDetector(adapter.NewLocalSourceFSAdapter(), &stubPython{})

	index := m.RepoIndex{
		Repo: m.Repository{Root: m.Path(root), Files: []m.Path{"util.py"}},
	}

	require.Empty(t, detector.DetectRepo(index, DetectOptions{Engine: EngineString}))
	require.Len(t, detector.DetectRepo(index, DetectOptions{Engine: EngineString, ScanAll: true}), 1)
}
