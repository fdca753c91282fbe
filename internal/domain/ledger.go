package domain

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/tempo-ml/tempo/internal/adapter"
	m "github.com/tempo-ml/tempo/internal/model"
)

const (
	manifestFileName = "manifest.json"
	backupDirName    = "before"
	maxBackupBytes   = 5 * 1024 * 1024
	binarySniffBytes = 4096
)

// backupExtensions are the code/text files eligible for snapshotting. The
// agent edits source and config; binaries and checkpoints are excluded from
// the undo contract.
var backupExtensions = map[string]struct{}{
	".py": {}, ".pyw": {}, ".sh": {}, ".md": {}, ".txt": {},
	".toml": {}, ".cfg": {}, ".ini": {}, ".yaml": {}, ".yml": {}, ".json": {},
}

// SnapshotLedger captures content-addressed backups before an external agent
// mutates the repository, and restores them with divergence checks.
type SnapshotLedger interface {
	// Snapshot backs up every eligible file and writes the manifest. The
	// manifest is written only after all backup bytes are on disk, so its
	// presence implies a complete snapshot. Must complete before the agent
	// gets control.
	Snapshot(runCtx m.RunContext, command string) (m.Manifest, error)

	// Finalize records the repository state once the agent is done: the
	// post-run hash of every eligible file plus the files the agent added.
	// Undo needs this to restore agent edits without force while still
	// guarding edits made after the run.
	Finalize(runCtx m.RunContext) (m.Manifest, error)

	// Undo restores the snapshot identified by runID, file-granular: one
	// diverged file never blocks the others. Files the agent added are
	// removed. Without a finalized manifest every change since the
	// snapshot counts as divergence.
	Undo(repoRoot m.Path, runID string, force bool) (m.UndoReport, error)

	// List enumerates snapshots for a repository, newest first.
	List(repoRoot m.Path) ([]m.SnapshotInfo, error)

	// LatestRunID returns the most recent snapshot's run id.
	LatestRunID(repoRoot m.Path) (string, error)
}

type snapshotLedger struct {
	fs     adapter.SourceFSAdapter
	store  adapter.ReportStore
	policy adapter.ExcludePolicy
}

// NewSnapshotLedger constructs a SnapshotLedger.
func NewSnapshotLedger(fs adapter.SourceFSAdapter, store adapter.ReportStore, policy adapter.ExcludePolicy) SnapshotLedger {
	return &snapshotLedger{fs: fs, store: store, policy: policy}
}

func (sl *snapshotLedger) Snapshot(runCtx m.RunContext, command string) (m.Manifest, error) {
	manifest := m.Manifest{
		RunID:     runCtx.RunID,
		CreatedAt: time.Now().UTC(),
		Command:   command,
	}

	snapDir := sl.snapshotDir(runCtx.RepoRoot, runCtx.RunID)
	backupRoot := sl.fs.JoinPath(string(snapDir), backupDirName)

	err := sl.fs.Walk(runCtx.RepoRoot, sl.policy, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil
		}

		rel, relErr := sl.fs.RelPath(runCtx.RepoRoot, m.Path(path))
		if relErr != nil {
			return nil
		}

		if _, ok := backupExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}

		if info.Size() > maxBackupBytes {
			manifest.Skipped = append(manifest.Skipped, string(rel))
			return nil
		}

		data, readErr := sl.fs.ReadFile(m.Path(path))
		if readErr != nil || looksBinary(data) {
			manifest.Skipped = append(manifest.Skipped, string(rel))
			return nil
		}

		dest := sl.fs.JoinPath(string(backupRoot), string(rel))
		if writeErr := sl.fs.WriteFile(dest, data, 0o640); writeErr != nil {
			return fmt.Errorf("back up %s: %w", rel, writeErr)
		}

		manifest.Entries = append(manifest.Entries, m.ManifestEntry{
			RelPath: string(rel),
			Size:    info.Size(),
			SHA256:  hashBytes(data),
		})

		return nil
	})
	if err != nil {
		// All-or-nothing: a half-written snapshot must not look restorable.
		_ = sl.fs.RemoveAll(snapDir)
		return m.Manifest{}, err
	}

	sort.Slice(manifest.Entries, func(i, j int) bool {
		return manifest.Entries[i].RelPath < manifest.Entries[j].RelPath
	})
	sort.Strings(manifest.Skipped)

	manifestPath := sl.fs.JoinPath(string(snapDir), manifestFileName)
	if err := sl.store.SaveManifest(manifestPath, manifest); err != nil {
		_ = sl.fs.RemoveAll(snapDir)
		return m.Manifest{}, fmt.Errorf("write manifest: %w", err)
	}

	slog.Info("snapshot captured",
		"run_id", runCtx.RunID,
		"files", len(manifest.Entries),
		"skipped", len(manifest.Skipped),
	)

	return manifest, nil
}

func (sl *snapshotLedger) Finalize(runCtx m.RunContext) (m.Manifest, error) {
	manifestPath := sl.fs.JoinPath(string(sl.snapshotDir(runCtx.RepoRoot, runCtx.RunID)), manifestFileName)

	manifest, err := sl.store.LoadManifest(manifestPath)
	if err != nil {
		return m.Manifest{}, fmt.Errorf("%w: snapshot %s: %v", ErrCorruptSnapshot, runCtx.RunID, err)
	}

	before := map[string]struct{}{}
	for _, entry := range manifest.Entries {
		before[entry.RelPath] = struct{}{}
	}

	manifest.After = nil
	manifest.Added = nil

	err = sl.fs.Walk(runCtx.RepoRoot, sl.policy, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil
		}

		rel, relErr := sl.fs.RelPath(runCtx.RepoRoot, m.Path(path))
		if relErr != nil {
			return nil
		}

		if _, ok := backupExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}

		if info.Size() > maxBackupBytes {
			return nil
		}

		data, readErr := sl.fs.ReadFile(m.Path(path))
		if readErr != nil || looksBinary(data) {
			return nil
		}

		manifest.After = append(manifest.After, m.ManifestEntry{
			RelPath: string(rel),
			Size:    info.Size(),
			SHA256:  hashBytes(data),
		})

		if _, ok := before[string(rel)]; !ok {
			manifest.Added = append(manifest.Added, string(rel))
		}

		return nil
	})
	if err != nil {
		return m.Manifest{}, err
	}

	sort.Slice(manifest.After, func(i, j int) bool {
		return manifest.After[i].RelPath < manifest.After[j].RelPath
	})
	sort.Strings(manifest.Added)
	manifest.Finalized = true

	if err := sl.store.SaveManifest(manifestPath, manifest); err != nil {
		return m.Manifest{}, fmt.Errorf("finalize manifest: %w", err)
	}

	slog.Info("snapshot finalized",
		"run_id", runCtx.RunID,
		"files", len(manifest.After),
		"added", len(manifest.Added),
	)

	return manifest, nil
}

func (sl *snapshotLedger) Undo(repoRoot m.Path, runID string, force bool) (m.UndoReport, error) {
	snapDir := sl.snapshotDir(repoRoot, runID)
	manifestPath := sl.fs.JoinPath(string(snapDir), manifestFileName)

	if _, err := sl.fs.FileInfo(manifestPath); err != nil {
		if os.IsNotExist(err) {
			return m.UndoReport{}, fmt.Errorf("%w: snapshot %s", ErrNotFound, runID)
		}

		return m.UndoReport{}, fmt.Errorf("%w: snapshot %s: %v", ErrCorruptSnapshot, runID, err)
	}

	manifest, err := sl.store.LoadManifest(manifestPath)
	if err != nil {
		return m.UndoReport{}, fmt.Errorf("%w: snapshot %s: %v", ErrCorruptSnapshot, runID, err)
	}

	report := m.UndoReport{RunID: runID}
	backupRoot := sl.fs.JoinPath(string(snapDir), backupDirName)

	afterHash := map[string]string{}
	for _, entry := range manifest.After {
		afterHash[entry.RelPath] = entry.SHA256
	}

	for _, rel := range manifest.Added {
		outcome := sl.removeAdded(repoRoot, rel, afterHash[rel], force)
		report.Outcomes = append(report.Outcomes, outcome)
	}

	for _, entry := range manifest.Entries {
		outcome := sl.undoFile(repoRoot, backupRoot, entry, afterHash, manifest.Finalized, force)
		report.Outcomes = append(report.Outcomes, outcome)
	}

	return report, nil
}

// removeAdded deletes a file the agent created. A file edited since the run
// no longer matches its finalized hash and is kept unless forced.
func (sl *snapshotLedger) removeAdded(repoRoot m.Path, rel, afterHash string, force bool) m.UndoFileOutcome {
	outcome := m.UndoFileOutcome{RelPath: rel}
	target := sl.fs.JoinPath(string(repoRoot), rel)

	current, err := sl.fs.ReadFile(target)
	if err != nil {
		// Already gone.
		outcome.Status = m.UndoSkippedUnchanged
		return outcome
	}

	if hashBytes(current) != afterHash && !force {
		outcome.Status = m.UndoSkippedDiverged
		return outcome
	}

	if removeErr := sl.fs.RemoveAll(target); removeErr != nil {
		outcome.Status = m.UndoSkippedDiverged
		return outcome
	}

	outcome.Status = m.UndoRemoved

	return outcome
}

// undoFile restores one manifest entry, classifying the result. The backup
// itself is verified against its recorded hash before it is allowed to
// overwrite anything. With a finalized manifest, content matching the
// post-run state restores without force; only edits made after the run
// count as divergence.
func (sl *snapshotLedger) undoFile(repoRoot, backupRoot m.Path, entry m.ManifestEntry, afterHash map[string]string, finalized, force bool) m.UndoFileOutcome {
	outcome := m.UndoFileOutcome{RelPath: entry.RelPath}

	backup, err := sl.fs.ReadFile(sl.fs.JoinPath(string(backupRoot), entry.RelPath))
	if err != nil || hashBytes(backup) != entry.SHA256 {
		outcome.Status = m.UndoCorrupt
		return outcome
	}

	target := sl.fs.JoinPath(string(repoRoot), entry.RelPath)

	current, err := sl.fs.ReadFile(target)
	switch {
	case err == nil && hashBytes(current) == entry.SHA256:
		outcome.Status = m.UndoSkippedUnchanged
		return outcome
	case err != nil && !os.IsNotExist(err):
		outcome.Status = m.UndoSkippedDiverged
		return outcome
	}

	diverged := false

	if err == nil { // readable but different from the backup
		after, recorded := afterHash[entry.RelPath]
		diverged = !finalized || !recorded || hashBytes(current) != after

		if diverged {
			outcome.Diff = unifiedDiff(entry.RelPath, backup, current)
		}
	}

	if diverged && !force {
		// Never silently overwrite content that changed since the run.
		outcome.Status = m.UndoSkippedDiverged
		return outcome
	}

	if writeErr := sl.fs.WriteFile(target, backup, 0o640); writeErr != nil {
		outcome.Status = m.UndoSkippedDiverged
		return outcome
	}

	if diverged {
		outcome.Status = m.UndoRestoredForced
	} else {
		outcome.Status = m.UndoRestored
	}

	return outcome
}

func (sl *snapshotLedger) List(repoRoot m.Path) ([]m.SnapshotInfo, error) {
	historyDir := sl.fs.JoinPath(string(repoRoot), ArtifactsDirName, HistoryDirName)

	entries, err := os.ReadDir(string(historyDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	var infos []m.SnapshotInfo

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		manifestPath := sl.fs.JoinPath(string(historyDir), entry.Name(), manifestFileName)

		manifest, loadErr := sl.store.LoadManifest(manifestPath)
		if loadErr != nil {
			continue // incomplete or corrupt snapshot; listing stays usable
		}

		infos = append(infos, m.SnapshotInfo{
			RunID:     manifest.RunID,
			CreatedAt: manifest.CreatedAt,
			FileCount: len(manifest.Entries),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].RunID > infos[j].RunID })

	return infos, nil
}

func (sl *snapshotLedger) LatestRunID(repoRoot m.Path) (string, error) {
	infos, err := sl.List(repoRoot)
	if err != nil {
		return "", err
	}

	if len(infos) == 0 {
		return "", fmt.Errorf("%w: no snapshots", ErrNotFound)
	}

	return infos[0].RunID, nil
}

func (sl *snapshotLedger) snapshotDir(repoRoot m.Path, runID string) m.Path {
	return sl.fs.JoinPath(string(repoRoot), ArtifactsDirName, HistoryDirName, runID)
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}

func looksBinary(data []byte) bool {
	if len(data) > binarySniffBytes {
		data = data[:binarySniffBytes]
	}

	return bytes.IndexByte(data, 0) >= 0
}

func unifiedDiff(relPath string, snapshot, current []byte) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(snapshot)),
		B:        difflib.SplitLines(string(current)),
		FromFile: "snapshot/" + relPath,
		ToFile:   "current/" + relPath,
		Context:  3,
	})
	if err != nil {
		return ""
	}

	return diff
}
