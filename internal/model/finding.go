package model

import "strconv"

// Category is the technique taxonomy a finding belongs to.
type Category string

const (
	// CategoryMixedPrecision covers reduced-bit numerics: autocast contexts,
	// gradient scalers and framework precision settings.
	CategoryMixedPrecision Category = "mixed_precision"
	// CategoryDistributed covers data-parallel replication wrappers and
	// distributed strategy settings.
	CategoryDistributed Category = "distributed"
	// CategorySharding covers parameter/optimizer-state partitioning: FSDP
	// wrappers, ZeRO optimizers and sharding config files.
	CategorySharding Category = "sharding"
)

// Categories lists all technique categories in report order.
func Categories() []Category {
	return []Category{CategoryMixedPrecision, CategoryDistributed, CategorySharding}
}

// Confidence tags how a finding was produced.
type Confidence string

const (
	// ConfidenceSyntactic means the finding came from a resolved syntax-tree
	// match.
	ConfidenceSyntactic Confidence = "syntactic"
	// ConfidenceHeuristic means the finding came from raw substring/regex
	// matching and may be a false positive.
	ConfidenceHeuristic Confidence = "heuristic"
)

// Finding is one detected training-efficiency construct. Findings are
// immutable once produced and deduplicated by (File, Line, SubKind).
type Finding struct {
	Category   Category   `json:"category"`
	File       Path       `json:"file"` // relative to the repository root
	Line       int        `json:"line"`
	Snippet    string     `json:"snippet"`
	SubKind    string     `json:"sub_kind"` // e.g. "autocast_context", "ddp_wrap"
	Confidence Confidence `json:"confidence"`
}

// Key identifies a finding for deduplication purposes.
func (f Finding) Key() string {
	return string(f.File) + ":" + strconv.Itoa(f.Line) + ":" + f.SubKind
}

// CategoryFindings groups the findings of one category in first-seen order.
type CategoryFindings struct {
	Category Category  `json:"category"`
	Count    int       `json:"count"`
	Findings []Finding `json:"findings"`
}

// AnalysisReport is the canonical, serializable result of a repository
// analysis. Categories appear in the fixed enum order so that two reports
// built from the same findings are byte-identical; GeneratedAt is the only
// non-deterministic field.
type AnalysisReport struct {
	Root        Path               `json:"root"`
	GeneratedAt string             `json:"generated_at"` // RFC 3339 UTC
	Categories  []CategoryFindings `json:"categories"`
	Total       int                `json:"total_findings"`
}
