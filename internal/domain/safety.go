package domain

import (
	"fmt"
	"strconv"

	"github.com/tempo-ml/tempo/internal/adapter"
	m "github.com/tempo-ml/tempo/internal/model"
)

// Environment contract between the recorder and the injected hook.
const (
	EnvSafeProfile   = "TEMPO_SAFE_PROFILE"
	EnvMaxSteps      = "TEMPO_MAX_STEPS"
	EnvDisableSaving = "TEMPO_DISABLE_SAVING"

	// CappedExitCode is the distinguished exit status the hook raises when
	// the step cap is reached. The recorder reports it as a successful
	// capped run, not a failure.
	CappedExitCode = 97

	// SafetyMarker prefixes every line the hook writes to stderr. The
	// recorder promotes marker lines to run metrics.
	SafetyMarker = "[tempo-safe-profile]"

	hookFileName = "sitecustomize.py"
)

// hookSource is the runtime hook written into the execution working
// directory. Python imports sitecustomize automatically when its directory
// is on sys.path, before the target script's own code runs.
//
// The patch surface is deliberately narrow and enumerated:
//   - torch.optim.Optimizer.step   (step cap)
//   - torch.save                   (checkpoint writes, best-effort)
//   - torch.jit.save               (checkpoint writes, best-effort)
//
// Training loops that never call these entry points are not capped; the
// recorder surfaces that instead of assuming the cap worked. With
// TEMPO_SAFE_PROFILE unset the module does nothing at all, so its presence
// never changes default behavior.
const hookSource = `import os
import sys


def _truthy(value):
    if value is None:
        return False
    return value.strip().lower() in {"1", "true", "yes", "y", "on"}


_ENABLED = _truthy(os.environ.get("TEMPO_SAFE_PROFILE"))

try:
    _MAX_STEPS = int(os.environ.get("TEMPO_MAX_STEPS", "100"))
except ValueError:
    _MAX_STEPS = 100

_DISABLE_SAVING = _truthy(os.environ.get("TEMPO_DISABLE_SAVING"))
_CAPPED_EXIT_CODE = 97


def _mark(message):
    print("[tempo-safe-profile] " + message, file=sys.stderr, flush=True)


def _patch_torch():
    try:
        import torch
        import torch.optim
    except Exception:
        return

    optimizer = getattr(torch.optim, "Optimizer", None)
    if optimizer is not None and not hasattr(optimizer, "_tempo_step_patched"):
        original_step = optimizer.step
        counter = {"steps": 0}

        def step(self, *args, **kwargs):
            out = original_step(self, *args, **kwargs)
            counter["steps"] += 1
            if counter["steps"] >= _MAX_STEPS:
                _mark("step_cap_reached max_steps=%d" % _MAX_STEPS)
                raise SystemExit(_CAPPED_EXIT_CODE)
            return out

        optimizer.step = step
        optimizer._tempo_step_patched = True

    if _DISABLE_SAVING and hasattr(torch, "save"):
        if not getattr(torch.save, "_tempo_disabled", False):
            def save(*args, **kwargs):
                _mark("torch.save disabled")
                return None

            save._tempo_disabled = True
            torch._tempo_original_save = torch.save
            torch.save = save

    jit = getattr(torch, "jit", None)
    if _DISABLE_SAVING and jit is not None and hasattr(jit, "save"):
        def jit_save(*args, **kwargs):
            _mark("torch.jit.save disabled")
            return None

        jit._tempo_original_save = jit.save
        jit.save = jit_save


if _ENABLED:
    _patch_torch()
`

// SafetyInjector writes the runtime hook into an execution working
// directory and produces the environment that activates it.
type SafetyInjector interface {
	// Inject writes the hook module next to the target script's import
	// path. The hook is inert until activated through the environment.
	Inject(workDir m.Path) error

	// Environ renders the activation variables for a child process.
	Environ(cfg m.SafetyConfig) []string
}

type safetyInjector struct {
	fs adapter.SourceFSAdapter
}

// NewSafetyInjector constructs a SafetyInjector.
func NewSafetyInjector(fs adapter.SourceFSAdapter) SafetyInjector {
	return &safetyInjector{fs: fs}
}

func (si *safetyInjector) Inject(workDir m.Path) error {
	hookPath := si.fs.JoinPath(string(workDir), hookFileName)

	if err := si.fs.WriteFile(hookPath, []byte(hookSource), 0o640); err != nil {
		return fmt.Errorf("write runtime hook: %w", err)
	}

	return nil
}

func (si *safetyInjector) Environ(cfg m.SafetyConfig) []string {
	if !cfg.Enabled {
		return nil
	}

	env := []string{
		EnvSafeProfile + "=1",
		EnvMaxSteps + "=" + strconv.Itoa(cfg.MaxSteps),
	}

	if cfg.DisableSaving {
		env = append(env, EnvDisableSaving+"=1")
	}

	return env
}
