package model

import (
	"time"
)

// RunContext carries the identity and directories of one profiling or
// optimize invocation. It is created once per operation and passed
// explicitly through every component instead of living in package state, so
// repeated invocations inside one process do not contaminate each other.
type RunContext struct {
	RunID    string
	RepoRoot Path // original repository root
	WorkDir  Path // execution working directory (sandbox copy or RepoRoot)
	LogsDir  Path // always under the original repository
}

// SafetyConfig is the environment contract consumed by the injected runtime
// hook. Zero value means the hook stays inert.
type SafetyConfig struct {
	Enabled       bool
	MaxSteps      int
	DisableSaving bool
}

// RunArtifact describes one completed profiling run. It is created at run
// start and sealed when the child process exits.
type RunArtifact struct {
	RunID      string             `json:"run_id"`
	WorkDir    Path               `json:"working_directory"`
	LogPath    Path               `json:"log_path"`
	StartTime  time.Time          `json:"start_time"`
	EndTime    time.Time          `json:"end_time"`
	ExitStatus int                `json:"exit_status"`
	Capped     bool               `json:"capped"`
	TimedOut   bool               `json:"timed_out"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Duration is the wall-clock time the child process ran.
func (a RunArtifact) Duration() time.Duration {
	return a.EndTime.Sub(a.StartTime)
}

// Succeeded reports whether the run is usable for analysis: either a clean
// exit or the distinguished capped stop.
func (a RunArtifact) Succeeded() bool {
	return !a.TimedOut && (a.ExitStatus == 0 || a.Capped)
}
