// Package rules holds the fixed taxonomy of training-efficiency patterns
// the detector evaluates: one file per technique family plus the shared
// matching machinery. Rules never execute target code; they match resolved
// call targets, keyword settings, raw text and config file structure.
package rules

import (
	"strings"

	"github.com/tempo-ml/tempo/internal/adapter"
	m "github.com/tempo-ml/tempo/internal/model"
)

const maxSnippetLen = 160

// CallRule matches a call whose alias-resolved dotted target equals Target.
type CallRule struct {
	Target   string
	Category m.Category
	SubKind  string
}

// KeywordRule matches a keyword argument by name with a recognized literal
// value. The category may depend on the value, so Classify returns it.
type KeywordRule struct {
	Name     string
	Classify func(value string) (m.Category, string, bool)
}

// TextRule is a lower-confidence raw-substring rule used by the fallback
// engine.
type TextRule struct {
	Needle   string
	Category m.Category
	SubKind  string
}

// CallRules returns every call-target rule in the taxonomy.
func CallRules() []CallRule {
	var out []CallRule

	out = append(out, mixedPrecisionCallRules()...)
	out = append(out, distributedCallRules()...)
	out = append(out, shardingCallRules()...)

	return out
}

// KeywordRules returns every keyword-setting rule in the taxonomy.
func KeywordRules() []KeywordRule {
	return []KeywordRule{precisionKeywordRule(), strategyKeywordRule()}
}

// TextRules returns every fallback substring rule in the taxonomy.
func TextRules() []TextRule {
	var out []TextRule

	out = append(out, mixedPrecisionTextRules()...)
	out = append(out, distributedTextRules()...)
	out = append(out, shardingTextRules()...)

	return out
}

// ResolveCall maps a call's name chain to its canonical dotted path using
// the single-file alias bindings. A chain whose base name was never bound by
// an import is unresolvable; no finding may be produced for it.
func ResolveCall(call adapter.PyCall, aliases map[string]string) (string, bool) {
	if len(call.Chain) == 0 {
		return "", false
	}

	target, ok := aliases[call.Chain[0]]
	if !ok {
		return "", false
	}

	if len(call.Chain) > 1 {
		target += "." + strings.Join(call.Chain[1:], ".")
	}

	return target, true
}

// AliasBindings folds a module's imports into a binding→target map. A later
// import of the same name shadows an earlier one, matching Python.
func AliasBindings(mod *adapter.PyModule) map[string]string {
	aliases := make(map[string]string, len(mod.Imports))

	for _, imp := range mod.Imports {
		aliases[imp.Binding] = imp.Target
	}

	return aliases
}

// Snippet extracts the 1-based line from src, trimmed and truncated.
func Snippet(src []byte, line int) string {
	text := string(src)

	start := 0
	current := 1

	for current < line {
		next := strings.IndexByte(text[start:], '\n')
		if next < 0 {
			return ""
		}

		start += next + 1
		current++
	}

	end := strings.IndexByte(text[start:], '\n')
	if end < 0 {
		end = len(text) - start
	}

	snippet := strings.TrimSpace(text[start : start+end])
	if len(snippet) > maxSnippetLen {
		snippet = snippet[:maxSnippetLen]
	}

	return snippet
}
