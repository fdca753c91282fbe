package domain

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/tempo-ml/tempo/internal/adapter"
	"github.com/tempo-ml/tempo/internal/domain/rules"
	m "github.com/tempo-ml/tempo/internal/model"
)

// Engine selects how Python sources are matched.
type Engine string

const (
	// EngineAST parses files into syntax trees and resolves call targets
	// through import aliases. Files the parser rejects fall back to the
	// string engine.
	EngineAST Engine = "ast"
	// EngineString skips parsing entirely and uses raw substring matching.
	// Findings carry heuristic confidence.
	EngineString Engine = "string"
)

// DetectOptions controls a repository detection pass.
type DetectOptions struct {
	Engine  Engine
	ScanAll bool // scan every Python file, not only ranked candidates
}

// PatternDetector produces findings from source files without executing
// them.
type PatternDetector interface {
	// DetectRepo evaluates the rule set against an indexed repository.
	// Findings come back deduplicated, in file order then line order per
	// file. One unparsable or unreadable file never aborts the scan.
	DetectRepo(index m.RepoIndex, opts DetectOptions) []m.Finding
}

type patternDetector struct {
	fs     adapter.SourceFSAdapter
	python adapter.PythonFileAdapter
}

// NewPatternDetector constructs a PatternDetector over the given adapters.
func NewPatternDetector(fs adapter.SourceFSAdapter, python adapter.PythonFileAdapter) PatternDetector {
	return &patternDetector{fs: fs, python: python}
}

func (d *patternDetector) DetectRepo(index m.RepoIndex, opts DetectOptions) []m.Finding {
	var findings []m.Finding

	seen := make(map[string]struct{})

	appendNew := func(batch []m.Finding) {
		for _, f := range batch {
			if _, dup := seen[f.Key()]; dup {
				continue
			}

			seen[f.Key()] = struct{}{}
			findings = append(findings, f)
		}
	}

	for _, rel := range d.targetFiles(index, opts) {
		full := d.fs.JoinPath(string(index.Repo.Root), string(rel))

		src, err := d.fs.ReadFile(full)
		if err != nil {
			slog.Warn("skipping unreadable file", "path", rel, "error", err)
			continue
		}

		appendNew(d.detectFile(rel, src, opts.Engine))
	}

	for _, rel := range configFiles(index.Repo) {
		full := d.fs.JoinPath(string(index.Repo.Root), string(rel))

		src, err := d.fs.ReadFile(full)
		if err != nil {
			continue
		}

		appendNew(detectConfigFile(rel, src))
	}

	return findings
}

// targetFiles picks the Python files to scan: all of them under ScanAll,
// otherwise the ranked entrypoint candidates.
func (d *patternDetector) targetFiles(index m.RepoIndex, opts DetectOptions) []m.Path {
	if opts.ScanAll {
		var out []m.Path

		for _, rel := range index.Repo.Files {
			if isPythonFile(string(rel)) {
				out = append(out, rel)
			}
		}

		return out
	}

	out := make([]m.Path, 0, len(index.Candidates))
	for _, c := range index.Candidates {
		out = append(out, c.Path)
	}

	return out
}

// detectFile runs the selected engine over one Python source file.
func (d *patternDetector) detectFile(rel m.Path, src []byte, engine Engine) []m.Finding {
	if engine == EngineString {
		return matchText(rel, src)
	}

	mod, err := d.python.Parse(rel, src)
	if err != nil {
		// Recover locally: the tree engine skips this file and the string
		// engine covers it at lower confidence.
		slog.Debug("primary engine rejected file, falling back", "path", rel, "error", err)
		return matchText(rel, src)
	}

	return matchTree(rel, src, mod)
}

// matchTree evaluates call-target and keyword rules against a parsed module.
func matchTree(rel m.Path, src []byte, mod *adapter.PyModule) []m.Finding {
	aliases := rules.AliasBindings(mod)
	callRules := rules.CallRules()
	keywordRules := rules.KeywordRules()

	var findings []m.Finding

	for _, call := range mod.Calls {
		if target, ok := rules.ResolveCall(call, aliases); ok {
			for _, rule := range callRules {
				if rule.Target != target {
					continue
				}

				findings = append(findings, m.Finding{
					Category:   rule.Category,
					File:       rel,
					Line:       call.Line,
					Snippet:    rules.Snippet(src, call.Line),
					SubKind:    rule.SubKind,
					Confidence: m.ConfidenceSyntactic,
				})
			}
		}

		for _, kw := range call.Keywords {
			for _, rule := range keywordRules {
				if rule.Name != kw.Name {
					continue
				}

				category, subKind, ok := rule.Classify(kw.Value)
				if !ok {
					continue
				}

				findings = append(findings, m.Finding{
					Category:   category,
					File:       rel,
					Line:       call.Line,
					Snippet:    rules.Snippet(src, call.Line),
					SubKind:    subKind,
					Confidence: m.ConfidenceSyntactic,
				})
			}
		}
	}

	return findings
}

// matchText is the secondary engine: raw substring matching, line by line.
func matchText(rel m.Path, src []byte) []m.Finding {
	var findings []m.Finding

	textRules := rules.TextRules()

	for i, line := range strings.Split(string(src), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			continue
		}

		for _, rule := range textRules {
			if !strings.Contains(line, rule.Needle) {
				continue
			}

			findings = append(findings, m.Finding{
				Category:   rule.Category,
				File:       rel,
				Line:       i + 1,
				Snippet:    rules.Snippet(src, i+1),
				SubKind:    rule.SubKind,
				Confidence: m.ConfidenceHeuristic,
			})
		}
	}

	return findings
}

// configFiles selects YAML/JSON files worth structural config matching.
func configFiles(repo m.Repository) []m.Path {
	var out []m.Path

	for _, rel := range repo.Files {
		switch filepath.Ext(string(rel)) {
		case ".yaml", ".yml", ".json":
			out = append(out, rel)
		}
	}

	return out
}

func detectConfigFile(rel m.Path, src []byte) []m.Finding {
	switch filepath.Ext(string(rel)) {
	case ".yaml", ".yml":
		return rules.MatchYAMLConfig(rel, src)
	case ".json":
		return rules.MatchJSONConfig(rel, src)
	}

	return nil
}
