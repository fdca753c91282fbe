package domain

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tempo-ml/tempo/internal/adapter"
	m "github.com/tempo-ml/tempo/internal/model"
)

// ProfileArgs configures one profiling operation.
type ProfileArgs struct {
	Script      m.Path // relative to the repository root; empty auto-detects
	ScriptArgs  []string
	Interpreter string
	MaxSteps    int
	Isolated    bool
	KeepSaving  bool
	Timeout     time.Duration
}

// OptimizeArgs configures one optimize operation.
type OptimizeArgs struct {
	Profile ProfileArgs
	Mode    m.OptimizeMode
}

// Workflow wires the analysis path (index → detect → report) and the
// profiling path (isolate → inject → record) behind one facade the CLI
// commands call.
type Workflow interface {
	Scan(root m.Path) (m.RepoIndex, error)
	Analyze(root m.Path, opts DetectOptions) (m.AnalysisReport, error)
	Profile(ctx context.Context, root m.Path, args ProfileArgs) (m.RunArtifact, error)
	Optimize(ctx context.Context, root m.Path, args OptimizeArgs) (m.OptimizeReport, error)
}

type workflow struct {
	fs        adapter.SourceFSAdapter
	store     adapter.ReportStore
	agent     adapter.AgentRunner
	index     SourceIndex
	detector  PatternDetector
	isolation IsolationManager
	safety    SafetyInjector
	recorder  RunRecorder
	ledger    SnapshotLedger
	now       func() time.Time
}

// NewWorkflow constructs the production workflow.
func NewWorkflow(
	fs adapter.SourceFSAdapter,
	store adapter.ReportStore,
	agent adapter.AgentRunner,
	index SourceIndex,
	detector PatternDetector,
	isolation IsolationManager,
	safety SafetyInjector,
	recorder RunRecorder,
	ledger SnapshotLedger,
) Workflow {
	return &workflow{
		fs:        fs,
		store:     store,
		agent:     agent,
		index:     index,
		detector:  detector,
		isolation: isolation,
		safety:    safety,
		recorder:  recorder,
		ledger:    ledger,
		now:       time.Now,
	}
}

func (w *workflow) Scan(root m.Path) (m.RepoIndex, error) {
	return w.index.Scan(root)
}

func (w *workflow) Analyze(root m.Path, opts DetectOptions) (m.AnalysisReport, error) {
	index, err := w.index.Scan(root)
	if err != nil {
		return m.AnalysisReport{}, err
	}

	findings := w.detector.DetectRepo(index, opts)

	return BuildReport(root, findings, w.now()), nil
}

func (w *workflow) Profile(ctx context.Context, root m.Path, args ProfileArgs) (m.RunArtifact, error) {
	runCtx, script, err := w.prepareRun(root, args)
	if err != nil {
		return m.RunArtifact{}, err
	}

	return w.recorder.Record(ctx, runCtx, RecordArgs{
		Script:      script,
		ScriptArgs:  args.ScriptArgs,
		Interpreter: args.Interpreter,
		Safety: m.SafetyConfig{
			Enabled:       true,
			MaxSteps:      args.MaxSteps,
			DisableSaving: !args.KeepSaving,
		},
		Timeout: args.Timeout,
	})
}

// prepareRun resolves the target script, materializes the sandbox when
// isolation is on, and injects the runtime hook into the chosen working
// directory.
func (w *workflow) prepareRun(root m.Path, args ProfileArgs) (m.RunContext, m.Path, error) {
	if err := EnsureArtifactDirs(w.fs, root); err != nil {
		return m.RunContext{}, "", err
	}

	script := args.Script
	if script == "" {
		index, err := w.index.Scan(root)
		if err != nil {
			return m.RunContext{}, "", err
		}

		script = index.BestCandidate()
		if script == "" {
			return m.RunContext{}, "", fmt.Errorf("%w: no training entrypoint detected in %s", ErrNotFound, root)
		}

		slog.Info("auto-detected training entrypoint", "script", script)
	}

	runCtx := m.RunContext{
		RunID:    NewRunID(w.now()),
		RepoRoot: root,
		WorkDir:  root,
		LogsDir:  w.fs.JoinPath(string(root), ArtifactsDirName, LogsDirName),
	}

	if args.Isolated {
		sandbox, err := w.isolation.Prepare(runCtx)
		if err != nil {
			return m.RunContext{}, "", err
		}

		runCtx.WorkDir = sandbox
	}

	scriptPath := w.fs.JoinPath(string(runCtx.WorkDir), string(script))
	if _, err := w.fs.FileInfo(scriptPath); err != nil {
		if os.IsNotExist(err) {
			return m.RunContext{}, "", fmt.Errorf("%w: training script %s", ErrNotFound, script)
		}

		return m.RunContext{}, "", err
	}

	if err := w.safety.Inject(runCtx.WorkDir); err != nil {
		return m.RunContext{}, "", err
	}

	return runCtx, script, nil
}

func (w *workflow) Optimize(ctx context.Context, root m.Path, args OptimizeArgs) (m.OptimizeReport, error) {
	report := m.OptimizeReport{Repo: root, Mode: args.Mode}

	before, err := w.Profile(ctx, root, args.Profile)
	report.Before = before

	if err != nil {
		return report, err
	}

	if args.Mode == m.ModeDryRun {
		return report, nil
	}

	analysisPath, err := w.writeAnalysis(root)
	if err != nil {
		return report, err
	}

	report.AnalysisPath = analysisPath

	if args.Mode == m.ModePlan {
		return report, nil
	}

	if !w.agent.Available() {
		return report, fmt.Errorf("%w: no optimization agent configured (set optimize.agent_command)", ErrNotFound)
	}

	// Apply: snapshot strictly before the agent may touch anything.
	snapCtx := m.RunContext{RunID: NewRunID(w.now()), RepoRoot: root}
	if _, err := w.ledger.Snapshot(snapCtx, "tempo optimize --apply"); err != nil {
		return report, err
	}

	report.SnapshotRunID = snapCtx.RunID

	agentOut, agentErr := w.agent.Run(ctx, root, analysisPath)

	agentOutPath := w.fs.JoinPath(string(root), ArtifactsDirName, OptimizeDirName, "agent-"+snapCtx.RunID+".txt")
	if writeErr := w.fs.WriteFile(agentOutPath, []byte(agentOut), 0o640); writeErr == nil {
		report.AgentOutPath = agentOutPath
	}

	// Seal the post-agent state even when the agent failed, so undo can
	// restore whatever it managed to write.
	if _, err := w.ledger.Finalize(snapCtx); err != nil {
		return report, err
	}

	if agentErr != nil {
		return report, fmt.Errorf("optimization agent: %w (undo with: tempo undo %s %s)", agentErr, root, snapCtx.RunID)
	}

	after, err := w.Profile(ctx, root, args.Profile)
	if err != nil {
		return report, err
	}

	report.After = &after
	report.Deltas = metricDeltas(before, after)

	return report, nil
}

// writeAnalysis runs the analysis path and persists both forms under the
// optimize outputs directory, returning the text path handed to the agent.
func (w *workflow) writeAnalysis(root m.Path) (m.Path, error) {
	analysis, err := w.Analyze(root, DetectOptions{Engine: EngineAST, ScanAll: true})
	if err != nil {
		return "", err
	}

	outDir := w.fs.JoinPath(string(root), ArtifactsDirName, OptimizeDirName)

	jsonPath := w.fs.JoinPath(string(outDir), "analysis.json")
	if err := w.store.SaveReport(jsonPath, analysis); err != nil {
		return "", err
	}

	textPath := w.fs.JoinPath(string(outDir), "analysis.txt")
	if err := w.fs.WriteFile(textPath, []byte(FormatReportText(analysis)), 0o640); err != nil {
		return "", err
	}

	return textPath, nil
}

// metricDeltas compares run duration and every metric present in either
// run.
func metricDeltas(before, after m.RunArtifact) map[string]m.MetricDelta {
	deltas := map[string]m.MetricDelta{
		"duration_s": {
			Before: before.Duration().Seconds(),
			After:  after.Duration().Seconds(),
			Delta:  after.Duration().Seconds() - before.Duration().Seconds(),
		},
	}

	keys := make(map[string]struct{})
	for k := range before.Metrics {
		keys[k] = struct{}{}
	}

	for k := range after.Metrics {
		keys[k] = struct{}{}
	}

	for k := range keys {
		deltas[k] = m.MetricDelta{
			Before: before.Metrics[k],
			After:  after.Metrics[k],
			Delta:  after.Metrics[k] - before.Metrics[k],
		}
	}

	return deltas
}
