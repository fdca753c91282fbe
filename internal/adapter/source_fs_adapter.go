// Package adapter contains infrastructure adapters for the tempo CLI:
// filesystem access, Python parsing, subprocess execution and report
// persistence. Interfaces here keep the domain layer testable without
// touching the real disk or spawning processes.
package adapter

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"

	m "github.com/tempo-ml/tempo/internal/model"
)

// ExcludePolicy decides which directories and files a repository walk (and a
// sandbox copy) leaves out.
type ExcludePolicy struct {
	DirNames   map[string]struct{}
	Extensions map[string]struct{} // lowercase, with leading dot
	Extra      []string            // additional directory names, e.g. prior run artifacts
}

// DefaultExcludePolicy returns the denylist shared by indexing, copying and
// snapshotting: version control, caches, virtualenvs and binary media.
func DefaultExcludePolicy() ExcludePolicy {
	return ExcludePolicy{
		DirNames: map[string]struct{}{
			".git":          {},
			".hg":           {},
			".svn":          {},
			".venv":         {},
			"venv":          {},
			"__pycache__":   {},
			"node_modules":  {},
			"build":         {},
			"dist":          {},
			".pytest_cache": {},
			".ruff_cache":   {},
			".mypy_cache":   {},
			".tempo":        {},
		},
		Extensions: map[string]struct{}{
			".pyc": {}, ".pyo": {}, ".so": {}, ".o": {}, ".a": {},
			".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".mp4": {},
			".pt": {}, ".pth": {}, ".ckpt": {}, ".safetensors": {},
			".npz": {}, ".npy": {}, ".onnx": {}, ".bin": {},
			".tar": {}, ".gz": {}, ".zip": {},
		},
	}
}

// SkipDir reports whether a directory name is excluded.
func (p ExcludePolicy) SkipDir(name string) bool {
	if _, ok := p.DirNames[name]; ok {
		return true
	}

	for _, extra := range p.Extra {
		if name == extra {
			return true
		}
	}

	return false
}

// SkipFile reports whether a file is excluded by extension.
func (p ExcludePolicy) SkipFile(name string) bool {
	_, ok := p.Extensions[filepath.Ext(name)]
	return ok
}

// FilepathWalkFunc mirrors the callback shape used by filepath.Walk so the
// domain layer does not import the standard library type directly.
type FilepathWalkFunc func(path string, info os.FileInfo, err error) error

// SourceFSAdapter abstracts the filesystem operations the domain relies on
// when scanning, sandboxing and snapshotting user repositories.
type SourceFSAdapter interface {
	// Walk traverses root applying the exclusion policy. fn sees files only,
	// in lexical order within each directory.
	Walk(root m.Path, policy ExcludePolicy, fn FilepathWalkFunc) error

	// ReadFile loads a file from disk and returns its contents.
	ReadFile(path m.Path) ([]byte, error)

	// WriteFile writes content to a file with the given permissions,
	// creating parent directories as needed.
	WriteFile(path m.Path, content []byte, perm os.FileMode) error

	// HashFile returns the hex SHA-256 fingerprint of the file at path.
	HashFile(path m.Path) (string, error)

	// FileInfo returns metadata for a path.
	FileInfo(path m.Path) (os.FileInfo, error)

	// CopyTree recursively copies src into dst applying the exclusion
	// policy. dst must not exist yet.
	CopyTree(src, dst m.Path, policy ExcludePolicy) error

	// Rename atomically moves a file or directory within one filesystem.
	Rename(src, dst m.Path) error

	// RemoveAll removes a directory and all its contents.
	RemoveAll(path m.Path) error

	// MkdirAll creates a directory and any missing parents.
	MkdirAll(path m.Path, perm os.FileMode) error

	// RelPath returns the relative path from base to target.
	RelPath(base, target m.Path) (m.Path, error)

	// JoinPath joins path elements into a single path.
	JoinPath(elem ...string) m.Path
}

// LocalSourceFSAdapter backs SourceFSAdapter with the os package.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

// Walk iterates over regular files under root, pruning excluded directories.
func (a *LocalSourceFSAdapter) Walk(root m.Path, policy ExcludePolicy, fn FilepathWalkFunc) error {
	rootStr := string(root)

	return filepath.Walk(rootStr, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fn(path, info, err)
		}

		if info.IsDir() {
			if path != rootStr && policy.SkipDir(filepath.Base(path)) {
				return filepath.SkipDir
			}

			return nil
		}

		if !info.Mode().IsRegular() || policy.SkipFile(filepath.Base(path)) {
			return nil
		}

		return fn(path, info, nil)
	})
}

// ReadFile loads file contents from disk.
func (a *LocalSourceFSAdapter) ReadFile(path m.Path) ([]byte, error) {
	return os.ReadFile(string(path))
}

// WriteFile writes content to a file, creating parent directories first.
func (a *LocalSourceFSAdapter) WriteFile(path m.Path, content []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return err
	}

	return os.WriteFile(string(path), content, perm)
}

// HashFile returns the SHA-256 hash of the file at the provided path.
func (a *LocalSourceFSAdapter) HashFile(path m.Path) (string, error) {
	f, err := os.Open(string(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// FileInfo returns os.FileInfo metadata for the given path.
func (a *LocalSourceFSAdapter) FileInfo(path m.Path) (os.FileInfo, error) {
	return os.Stat(string(path))
}

// CopyTree recursively copies src into dst, skipping excluded entries.
func (a *LocalSourceFSAdapter) CopyTree(src, dst m.Path, policy ExcludePolicy) error {
	srcStr := string(src)

	return filepath.Walk(srcStr, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(srcStr, path)
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != srcStr && policy.SkipDir(filepath.Base(path)) {
				return filepath.SkipDir
			}

			return os.MkdirAll(filepath.Join(string(dst), relPath), 0o750)
		}

		if !info.Mode().IsRegular() || policy.SkipFile(filepath.Base(path)) {
			return nil
		}

		return a.copyFile(path, filepath.Join(string(dst), relPath), info.Mode())
	})
}

// copyFile copies a single file.
func (a *LocalSourceFSAdapter) copyFile(src, dst string, mode os.FileMode) error {
	// #nosec G304 - src is an internal project file path, not user input
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}

	defer func() { _ = sourceFile.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}

	// #nosec G304 - dst is an internal destination path, not user input
	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	defer func() { _ = destFile.Close() }()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return os.Chmod(dst, mode)
}

// Rename moves src to dst.
func (a *LocalSourceFSAdapter) Rename(src, dst m.Path) error {
	return os.Rename(string(src), string(dst))
}

// RemoveAll removes a directory and all its contents.
func (a *LocalSourceFSAdapter) RemoveAll(path m.Path) error {
	return os.RemoveAll(string(path))
}

// MkdirAll creates a directory and any missing parents.
func (a *LocalSourceFSAdapter) MkdirAll(path m.Path, perm os.FileMode) error {
	return os.MkdirAll(string(path), perm)
}

// RelPath returns the relative path from base to target.
func (a *LocalSourceFSAdapter) RelPath(base, target m.Path) (m.Path, error) {
	rel, err := filepath.Rel(string(base), string(target))
	if err != nil {
		return "", err
	}

	return m.Path(rel), nil
}

// JoinPath joins path elements into a single path.
func (a *LocalSourceFSAdapter) JoinPath(elem ...string) m.Path {
	return m.Path(filepath.Join(elem...))
}
