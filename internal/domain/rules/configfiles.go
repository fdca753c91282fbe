package rules

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"

	m "github.com/tempo-ml/tempo/internal/model"
)

// MatchYAMLConfig evaluates framework config-file structure rules against a
// YAML document: `precision:` values naming reduced-bit modes and
// `strategy:` values naming distributed or sharded execution. Files that are
// not valid YAML yield no findings.
func MatchYAMLConfig(file m.Path, src []byte) []m.Finding {
	var root yaml.Node
	if err := yaml.Unmarshal(src, &root); err != nil {
		return nil
	}

	var findings []m.Finding

	walkYAMLMappings(&root, func(key, value *yaml.Node) {
		if value.Kind != yaml.ScalarNode {
			return
		}

		switch key.Value {
		case "precision":
			if IsPrecisionValue(value.Value) {
				findings = append(findings, m.Finding{
					Category:   m.CategoryMixedPrecision,
					File:       file,
					Line:       key.Line,
					Snippet:    Snippet(src, key.Line),
					SubKind:    SubKindPrecisionSetting,
					Confidence: m.ConfidenceSyntactic,
				})
			}
		case "strategy", "distributed_backend":
			if category, subKind, ok := ClassifyStrategyValue(value.Value); ok {
				findings = append(findings, m.Finding{
					Category:   category,
					File:       file,
					Line:       key.Line,
					Snippet:    Snippet(src, key.Line),
					SubKind:    subKind,
					Confidence: m.ConfidenceSyntactic,
				})
			}
		}
	})

	return findings
}

func walkYAMLMappings(node *yaml.Node, visit func(key, value *yaml.Node)) {
	if node == nil {
		return
	}

	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			visit(node.Content[i], node.Content[i+1])
		}
	}

	for _, child := range node.Content {
		walkYAMLMappings(child, visit)
	}
}

// deepspeedConfig is the subset of a DeepSpeed JSON config the sharding
// rules care about.
type deepspeedConfig struct {
	ZeroOptimization json.RawMessage `json:"zero_optimization"`
	FP16             *dsToggle       `json:"fp16"`
	BF16             *dsToggle       `json:"bf16"`
}

type dsToggle struct {
	Enabled bool `json:"enabled"`
}

// MatchJSONConfig evaluates DeepSpeed-style JSON config structure. Files
// that are not valid JSON objects yield no findings.
func MatchJSONConfig(file m.Path, src []byte) []m.Finding {
	var cfg deepspeedConfig
	if err := json.Unmarshal(src, &cfg); err != nil {
		return nil
	}

	var findings []m.Finding

	add := func(category m.Category, subKind, keyName string) {
		line := lineOfKey(src, keyName)
		findings = append(findings, m.Finding{
			Category:   category,
			File:       file,
			Line:       line,
			Snippet:    Snippet(src, line),
			SubKind:    subKind,
			Confidence: m.ConfidenceSyntactic,
		})
	}

	if len(cfg.ZeroOptimization) > 0 && string(cfg.ZeroOptimization) != "null" {
		add(m.CategorySharding, SubKindZeroConfig, "zero_optimization")
	}

	if cfg.FP16 != nil && cfg.FP16.Enabled {
		add(m.CategoryMixedPrecision, SubKindDSFloat16Conf, "fp16")
	}

	if cfg.BF16 != nil && cfg.BF16.Enabled {
		add(m.CategoryMixedPrecision, SubKindDSBFloat16Conf, "bf16")
	}

	return findings
}

// lineOfKey locates the 1-based line of a quoted JSON key. encoding/json
// does not expose positions, so this is a best-effort text search; the key
// was already confirmed present by decoding.
func lineOfKey(src []byte, key string) int {
	idx := bytes.Index(src, []byte(`"`+key+`"`))
	if idx < 0 {
		return 1
	}

	return bytes.Count(src[:idx], []byte{'\n'}) + 1
}
