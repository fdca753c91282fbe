package model

// OptimizeMode selects how far an optimize operation goes.
type OptimizeMode string

const (
	// ModeDryRun profiles the repository and stops. No analysis artifacts,
	// no mutation.
	ModeDryRun OptimizeMode = "dry-run"
	// ModePlan profiles and writes the analysis report for the agent, but
	// never lets the agent edit anything.
	ModePlan OptimizeMode = "plan"
	// ModeApply additionally runs the external agent between a snapshot and
	// a re-profile.
	ModeApply OptimizeMode = "apply"
)

// MetricDelta compares one metric across the before and after runs.
type MetricDelta struct {
	Before float64 `json:"before"`
	After  float64 `json:"after"`
	Delta  float64 `json:"delta"`
}

// OptimizeReport is the outcome of one optimize operation.
type OptimizeReport struct {
	Repo          Path                   `json:"repo"`
	Mode          OptimizeMode           `json:"mode"`
	Before        RunArtifact            `json:"before"`
	After         *RunArtifact           `json:"after,omitempty"`
	Deltas        map[string]MetricDelta `json:"deltas,omitempty"`
	AnalysisPath  Path                   `json:"analysis_path,omitempty"`
	AgentOutPath  Path                   `json:"agent_output_path,omitempty"`
	SnapshotRunID string                 `json:"snapshot_run_id,omitempty"`
}
