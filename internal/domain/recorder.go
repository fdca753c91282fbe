package domain

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tempo-ml/tempo/internal/adapter"
	m "github.com/tempo-ml/tempo/internal/model"
)

// MetricMarker prefixes generic key=value metric lines the recorder promotes
// from the log into the run artifact.
const MetricMarker = "[tempo-metric]"

// DefaultInterpreter runs the target script when no override is configured.
const DefaultInterpreter = "python3"

// RecordArgs describes one profiling execution.
type RecordArgs struct {
	Script      m.Path // relative to the working directory
	Interpreter string // empty means DefaultInterpreter
	ScriptArgs  []string
	Safety      m.SafetyConfig
	Timeout     time.Duration // zero means no deadline
}

// RunRecorder executes the target script as a child process and seals the
// outcome into a RunArtifact.
type RunRecorder interface {
	// Record runs the script inside runCtx.WorkDir, streaming output to a
	// log under the original repository. The artifact is always returned,
	// sealed, even when err is non-nil; the log is never deleted on
	// failure. err wraps ErrTimeout or ErrSubprocessFailure for failed
	// runs; a capped stop is a success.
	Record(ctx context.Context, runCtx m.RunContext, args RecordArgs) (m.RunArtifact, error)
}

type runRecorder struct {
	fs     adapter.SourceFSAdapter
	runner adapter.ProcessRunner
	safety SafetyInjector
}

// NewRunRecorder constructs a RunRecorder.
func NewRunRecorder(fs adapter.SourceFSAdapter, runner adapter.ProcessRunner, safety SafetyInjector) RunRecorder {
	return &runRecorder{fs: fs, runner: runner, safety: safety}
}

func (rr *runRecorder) Record(ctx context.Context, runCtx m.RunContext, args RecordArgs) (m.RunArtifact, error) {
	interpreter := args.Interpreter
	if interpreter == "" {
		interpreter = DefaultInterpreter
	}

	logPath := rr.fs.JoinPath(string(runCtx.LogsDir), logFileName(args.Script, runCtx.RunID))

	artifact := m.RunArtifact{
		RunID:   runCtx.RunID,
		WorkDir: runCtx.WorkDir,
		LogPath: logPath,
		Metrics: map[string]float64{},
	}

	runCtx2 := ctx

	var cancel context.CancelFunc
	if args.Timeout > 0 {
		runCtx2, cancel = context.WithTimeout(ctx, args.Timeout)
		defer cancel()
	}

	argv := append([]string{interpreter, string(args.Script)}, args.ScriptArgs...)
	env := append(childEnv(runCtx.WorkDir), rr.safety.Environ(args.Safety)...)

	slog.Info("starting profiling run",
		"run_id", runCtx.RunID,
		"work_dir", runCtx.WorkDir,
		"script", args.Script,
		"safety", args.Safety.Enabled,
	)

	result, err := rr.runner.Run(runCtx2, runCtx.WorkDir, argv, env, logPath)

	artifact.StartTime = result.StartTime
	artifact.EndTime = result.EndTime
	artifact.ExitStatus = result.ExitCode
	artifact.TimedOut = result.TimedOut
	artifact.Capped = result.ExitCode == CappedExitCode

	rr.extractMetrics(&artifact)

	switch {
	case err != nil:
		return artifact, fmt.Errorf("launch %s: %w", args.Script, err)
	case result.TimedOut:
		return artifact, fmt.Errorf("%w: run %s exceeded %s (log: %s)", ErrTimeout, runCtx.RunID, args.Timeout, logPath)
	case result.ExitCode != 0 && !artifact.Capped:
		return artifact, fmt.Errorf("%w: exit status %d (log: %s)", ErrSubprocessFailure, result.ExitCode, logPath)
	}

	return artifact, nil
}

// extractMetrics scans the captured log for recognized marker lines.
// Unrecognized lines stay in the log and are not promoted.
func (rr *runRecorder) extractMetrics(artifact *m.RunArtifact) {
	data, err := rr.fs.ReadFile(artifact.LogPath)
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		switch {
		case strings.Contains(line, SafetyMarker):
			parseSafetyMarker(line, artifact.Metrics)
		case strings.Contains(line, MetricMarker):
			parseMetricLine(line, artifact.Metrics)
		}
	}
}

func parseSafetyMarker(line string, metrics map[string]float64) {
	if idx := strings.Index(line, "max_steps="); idx >= 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(numericPrefix(line[idx+len("max_steps="):]))); err == nil {
			metrics["max_steps"] = float64(n)
			metrics["step_cap_reached"] = 1
		}
	}

	if strings.Contains(line, "save disabled") {
		metrics["saving_disabled"] = 1
	}
}

// parseMetricLine handles `[tempo-metric] name=1.23` lines.
func parseMetricLine(line string, metrics map[string]float64) {
	rest := line[strings.Index(line, MetricMarker)+len(MetricMarker):]

	for _, field := range strings.Fields(rest) {
		key, value, ok := strings.Cut(field, "=")
		if !ok || key == "" {
			continue
		}

		if v, err := strconv.ParseFloat(value, 64); err == nil {
			metrics[key] = v
		}
	}
}

func numericPrefix(s string) string {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}

	return s[:end]
}

// childEnv augments the parent environment so Python picks up the injected
// sitecustomize module from the working directory.
func childEnv(workDir m.Path) []string {
	pythonPath := string(workDir)
	if existing := os.Getenv("PYTHONPATH"); existing != "" {
		pythonPath += string(os.PathListSeparator) + existing
	}

	return []string{"PYTHONPATH=" + pythonPath}
}

func logFileName(script m.Path, runID string) string {
	base := strings.TrimSuffix(filepath.Base(string(script)), filepath.Ext(string(script)))
	if base == "" || base == "." {
		// filepath.Base("") is "." rather than empty.
		base = "run"
	}

	return base + "-" + runID + ".log"
}
