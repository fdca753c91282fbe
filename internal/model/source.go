// Package model defines the data structures shared by the tempo domain,
// adapter and controller layers.
package model

// Path represents a file system path.
type Path string

// Repository is an immutable view of a target training repository taken at
// the start of an analysis invocation. Files holds repository-relative paths
// of regular files that survived the exclusion policy, in lexical order.
type Repository struct {
	Root  Path
	Files []Path
}

// CandidateScript is a Python file ranked as a potential training
// entrypoint. Score is a heuristic: filename tokens plus structural signal.
type CandidateScript struct {
	Path  Path // relative to the repository root
	Score int
	Lines int
}

// ScanWarning records a per-file problem encountered while indexing. The
// scan itself carries on.
type ScanWarning struct {
	Path   Path
	Reason string
}

// RepoIndex is the result of walking a repository: classified files, ranked
// entrypoint candidates and any per-file warnings.
type RepoIndex struct {
	Repo        Repository
	PythonFiles int
	TotalLines  int
	Candidates  []CandidateScript // descending score, shallowest then lexical
	Warnings    []ScanWarning
}

// BestCandidate returns the top-ranked training entrypoint, or "" when the
// repository has no candidates at all.
func (ix RepoIndex) BestCandidate() Path {
	if len(ix.Candidates) == 0 {
		return ""
	}

	return ix.Candidates[0].Path
}
