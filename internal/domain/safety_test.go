package domain

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tempo-ml/tempo/internal/adapter"
	m "github.com/tempo-ml/tempo/internal/model"
)

func TestSafetyInjector_WritesHookModule(t *testing.T) {
	workDir := t.TempDir()

	injector := NewSafetyInjector(adapter.NewLocalSourceFSAdapter())
	require.NoError(t, injector.Inject(m.Path(workDir)))

	data, err := os.ReadFile(filepath.Join(workDir, "sitecustomize.py"))
	require.NoError(t, err)

	hook := string(data)
	require.Contains(t, hook, SafetyMarker)
	require.Contains(t, hook, EnvSafeProfile)
	require.Contains(t, hook, EnvMaxSteps)
	require.Contains(t, hook, EnvDisableSaving)
	require.Contains(t, hook, "SystemExit(_CAPPED_EXIT_CODE)")
}

func TestSafetyInjector_HookIsInertWithoutGate(t *testing.T) {
	// The gate check must wrap the patching, so an unset TEMPO_SAFE_PROFILE
	// leaves the interpreter untouched.
	require.True(t, strings.HasSuffix(hookSource, "if _ENABLED:\n    _patch_torch()\n"))
}

func TestSafetyInjector_Environ(t *testing.T) {
	injector := NewSafetyInjector(adapter.NewLocalSourceFSAdapter())

	t.Run("disabled profile injects nothing", func(t *testing.T) {
		require.Empty(t, injector.Environ(m.SafetyConfig{Enabled: false, MaxSteps: 50}))
	})

	t.Run("enabled profile sets gate and cap", func(t *testing.T) {
		env := injector.Environ(m.SafetyConfig{Enabled: true, MaxSteps: 25, DisableSaving: true})
		require.Equal(t, []string{
			"TEMPO_SAFE_PROFILE=1",
			"TEMPO_MAX_STEPS=25",
			"TEMPO_DISABLE_SAVING=1",
		}, env)
	})

	t.Run("saving stays enabled when requested", func(t *testing.T) {
		env := injector.Environ(m.SafetyConfig{Enabled: true, MaxSteps: 25})
		require.NotContains(t, env, "TEMPO_DISABLE_SAVING=1")
	})
}
