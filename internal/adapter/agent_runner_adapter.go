package adapter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	m "github.com/tempo-ml/tempo/internal/model"
)

// AgentRunner is the seam to the external analysis/optimization agent. The
// agent is an opaque collaborator: it consumes a report path, may rewrite
// repository files, and returns text output. Everything about what it does
// inside the repository is out of tempo's hands — which is exactly why the
// snapshot ledger brackets every call made through this interface.
type AgentRunner interface {
	// Available reports whether an agent command is configured and on PATH.
	Available() bool

	// Run executes the agent inside repo with the report path appended to
	// its argument list, returning combined output.
	Run(ctx context.Context, repo m.Path, reportPath m.Path) (string, error)
}

// CommandAgentRunner runs a user-configured shell command as the agent.
type CommandAgentRunner struct {
	command []string
}

// NewCommandAgentRunner constructs a runner for the given command line.
// An empty command means no agent is configured.
func NewCommandAgentRunner(command string) *CommandAgentRunner {
	return &CommandAgentRunner{command: strings.Fields(command)}
}

// Available reports whether the configured executable can be found.
func (r *CommandAgentRunner) Available() bool {
	if len(r.command) == 0 {
		return false
	}

	_, err := exec.LookPath(r.command[0])

	return err == nil
}

// Run executes the agent command rooted at the repository.
func (r *CommandAgentRunner) Run(ctx context.Context, repo m.Path, reportPath m.Path) (string, error) {
	if len(r.command) == 0 {
		return "", fmt.Errorf("no agent command configured")
	}

	args := append(append([]string{}, r.command[1:]...), string(reportPath))
	cmd := exec.CommandContext(ctx, r.command[0], args...) // #nosec G204 - command comes from user config
	cmd.Dir = string(repo)

	var out bytes.Buffer

	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()

	return out.String(), err
}
