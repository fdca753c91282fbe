package adapter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	m "github.com/tempo-ml/tempo/internal/model"
)

// ReportStore persists analysis reports and snapshot manifests. The JSON
// form is the canonical representation.
type ReportStore interface {
	SaveReport(path m.Path, report m.AnalysisReport) error
	LoadReport(path m.Path) (m.AnalysisReport, error)
	SaveManifest(path m.Path, manifest m.Manifest) error
	LoadManifest(path m.Path) (m.Manifest, error)
}

// FileReportStore is the disk-backed ReportStore.
type FileReportStore struct{}

// NewFileReportStore constructs a FileReportStore.
func NewFileReportStore() *FileReportStore {
	return &FileReportStore{}
}

// SaveReport writes the canonical JSON form of a report.
func (s *FileReportStore) SaveReport(path m.Path, report m.AnalysisReport) error {
	return writeJSON(path, report)
}

// LoadReport reads a report back from its canonical JSON form.
func (s *FileReportStore) LoadReport(path m.Path) (m.AnalysisReport, error) {
	var report m.AnalysisReport

	data, err := os.ReadFile(string(path))
	if err != nil {
		return report, err
	}

	if err := json.Unmarshal(data, &report); err != nil {
		return report, fmt.Errorf("decode report %s: %w", path, err)
	}

	return report, nil
}

// SaveManifest writes a snapshot manifest.
func (s *FileReportStore) SaveManifest(path m.Path, manifest m.Manifest) error {
	return writeJSON(path, manifest)
}

// LoadManifest reads a snapshot manifest.
func (s *FileReportStore) LoadManifest(path m.Path) (m.Manifest, error) {
	var manifest m.Manifest

	data, err := os.ReadFile(string(path))
	if err != nil {
		return manifest, err
	}

	if err := json.Unmarshal(data, &manifest); err != nil {
		return manifest, fmt.Errorf("decode manifest %s: %w", path, err)
	}

	return manifest, nil
}

func writeJSON(path m.Path, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return err
	}

	return os.WriteFile(string(path), append(data, '\n'), 0o640)
}
