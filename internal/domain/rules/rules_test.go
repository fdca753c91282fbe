package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tempo-ml/tempo/internal/adapter"
	m "github.com/tempo-ml/tempo/internal/model"
)

func TestResolveCall(t *testing.T) {
	aliases := map[string]string{
		"torch": "torch",
		"a":     "torch.cuda.amp",
	}

	t.Run("resolves through alias", func(t *testing.T) {
		target, ok := ResolveCall(adapter.PyCall{Chain: []string{"a", "autocast"}}, aliases)
		require.True(t, ok)
		require.Equal(t, "torch.cuda.amp.autocast", target)
	})

	t.Run("resolves plain module chain", func(t *testing.T) {
		target, ok := ResolveCall(adapter.PyCall{Chain: []string{"torch", "autocast"}}, aliases)
		require.True(t, ok)
		require.Equal(t, "torch.autocast", target)
	})

	t.Run("unbound base resolves to nothing", func(t *testing.T) {
		_, ok := ResolveCall(adapter.PyCall{Chain: []string{"autocast"}}, aliases)
		require.False(t, ok)
	})

	t.Run("empty chain resolves to nothing", func(t *testing.T) {
		_, ok := ResolveCall(adapter.PyCall{}, aliases)
		require.False(t, ok)
	})
}

func TestAliasBindings_LaterImportShadows(t *testing.T) {
	mod := &adapter.PyModule{
		Imports: []adapter.PyImport{
			{Binding: "amp", Target: "torch.cuda.amp"},
			{Binding: "amp", Target: "apex.amp"},
		},
	}

	aliases := AliasBindings(mod)
	require.Equal(t, "apex.amp", aliases["amp"])
}

func TestIsPrecisionValue(t *testing.T) {
	for _, value := range []string{"16", "fp16", "bf16", "16-mixed", "bf16-mixed", "bf16_mixed", "MIXED"} {
		require.True(t, IsPrecisionValue(value), value)
	}

	for _, value := range []string{"32", "64", "full", "", "fp32"} {
		require.False(t, IsPrecisionValue(value), value)
	}
}

func TestClassifyStrategyValue(t *testing.T) {
	cases := []struct {
		value    string
		category m.Category
		ok       bool
	}{
		{"ddp", m.CategoryDistributed, true},
		{"ddp_find_unused_parameters_true", m.CategoryDistributed, true},
		{"horovod", m.CategoryDistributed, true},
		{"fsdp", m.CategorySharding, true},
		{"deepspeed_stage_2", m.CategorySharding, true},
		{"zero2", m.CategorySharding, true},
		{"single_device", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		category, _, ok := ClassifyStrategyValue(tc.value)
		require.Equal(t, tc.ok, ok, tc.value)

		if tc.ok {
			require.Equal(t, tc.category, category, tc.value)
		}
	}
}

func TestSnippet(t *testing.T) {
	src := []byte("first\n   second line   \nthird")

	require.Equal(t, "first", Snippet(src, 1))
	require.Equal(t, "second line", Snippet(src, 2))
	require.Equal(t, "third", Snippet(src, 3))
	require.Equal(t, "", Snippet(src, 9))
}

func TestSnippet_TruncatesLongLines(t *testing.T) {
	long := strings.Repeat("x", 400)

	got := Snippet([]byte(long), 1)
	require.Len(t, got, maxSnippetLen)
}

func TestMatchYAMLConfig(t *testing.T) {
	src := []byte(`trainer:
  precision: bf16-mixed
  strategy: deepspeed_stage_2
  devices: 8
`)

	findings := MatchYAMLConfig("configs/train.yaml", src)
	require.Len(t, findings, 2)

	require.Equal(t, m.CategoryMixedPrecision, findings[0].Category)
	require.Equal(t, SubKindPrecisionSetting, findings[0].SubKind)
	require.Equal(t, 2, findings[0].Line)

	require.Equal(t, m.CategorySharding, findings[1].Category)
	require.Equal(t, SubKindStrategySetting, findings[1].SubKind)
	require.Equal(t, 3, findings[1].Line)
}

func TestMatchYAMLConfig_FullPrecisionIsQuiet(t *testing.T) {
	src := []byte("trainer:\n  precision: 32\n  strategy: single_device\n")

	require.Empty(t, MatchYAMLConfig("train.yaml", src))
}

func TestMatchYAMLConfig_InvalidYAMLIsQuiet(t *testing.T) {
	require.Empty(t, MatchYAMLConfig("broken.yaml", []byte(": : :\n\t-")))
}

func TestMatchJSONConfig(t *testing.T) {
	src := []byte(`{
  "train_batch_size": 32,
  "zero_optimization": {"stage": 2},
  "fp16": {"enabled": true},
  "bf16": {"enabled": false}
}`)

	findings := MatchJSONConfig("ds_config.json", src)

	kinds := map[string]bool{}
	for _, f := range findings {
		kinds[f.SubKind] = true
	}

	require.True(t, kinds[SubKindZeroConfig])
	require.True(t, kinds[SubKindDSFloat16Conf])
	require.False(t, kinds[SubKindDSBFloat16Conf], "disabled bf16 block must not match")
}

func TestMatchJSONConfig_PlainJSONIsQuiet(t *testing.T) {
	require.Empty(t, MatchJSONConfig("package.json", []byte(`{"name": "web"}`)))
	require.Empty(t, MatchJSONConfig("broken.json", []byte("{")))
}
