package domain

import (
	"fmt"
	"strings"
	"time"

	m "github.com/tempo-ml/tempo/internal/model"
)

// BuildReport aggregates findings into the canonical report form.
// Categories appear in fixed enum order, findings keep first-seen order
// within their category, so the same findings always produce the same
// report apart from generatedAt.
func BuildReport(root m.Path, findings []m.Finding, generatedAt time.Time) m.AnalysisReport {
	byCategory := make(map[m.Category][]m.Finding)
	for _, f := range findings {
		byCategory[f.Category] = append(byCategory[f.Category], f)
	}

	report := m.AnalysisReport{
		Root:        root,
		GeneratedAt: generatedAt.UTC().Format(time.RFC3339),
	}

	for _, category := range m.Categories() {
		group := byCategory[category]
		report.Categories = append(report.Categories, m.CategoryFindings{
			Category: category,
			Count:    len(group),
			Findings: group,
		})
		report.Total += len(group)
	}

	return report
}

// categoryTitles maps enum names to report headings.
var categoryTitles = map[m.Category]string{
	m.CategoryMixedPrecision: "Mixed precision",
	m.CategoryDistributed:    "Distributed data parallel",
	m.CategorySharding:       "Sharding / optimizer state partitioning",
}

// FormatReportText renders the human-oriented form. It carries the same
// information as the JSON form and is byte-reproducible for the same report
// value.
func FormatReportText(report m.AnalysisReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Training efficiency report for %s\n", report.Root)
	fmt.Fprintf(&b, "Generated at %s\n\n", report.GeneratedAt)

	for _, group := range report.Categories {
		title := categoryTitles[group.Category]
		if title == "" {
			title = string(group.Category)
		}

		fmt.Fprintf(&b, "%s (%d)\n", title, group.Count)

		if len(group.Findings) == 0 {
			b.WriteString("  (none detected)\n\n")
			continue
		}

		for _, f := range group.Findings {
			fmt.Fprintf(&b, "  %s:%d  [%s, %s]\n", f.File, f.Line, f.SubKind, f.Confidence)

			if f.Snippet != "" {
				fmt.Fprintf(&b, "      %s\n", f.Snippet)
			}
		}

		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Total findings: %d\n", report.Total)

	return b.String()
}
