// Package render turns a Report into its output representations. Every
// renderer is a pure function of the Report; rendering the same report twice
// yields identical bytes.
package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/specverify/internal/schema"
)

// JSON renders the canonical machine-readable report.
func JSON(r *schema.Report) ([]byte, error) {
	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return append(out, '\n'), nil
}

// Markdown renders the report as a document suitable for commit comments and
// review threads.
func Markdown(r *schema.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Verification Report\n\n")
	fmt.Fprintf(&b, "**Status:** %s  \n", r.Status)
	fmt.Fprintf(&b, "**Mode:** %s  \n", r.Input.Mode)
	fmt.Fprintf(&b, "**Spec:** %s  \n", r.Input.SpecSource)
	fmt.Fprintf(&b, "**Code:** %s  \n", r.Input.CodeRoot)
	fmt.Fprintf(&b, "**Threat score:** %d\n\n", r.ThreatScore)

	b.WriteString("## Specification\n\n")
	if r.Validation.Valid {
		b.WriteString("Specification is valid.\n")
	} else {
		b.WriteString("Specification is invalid:\n")
		for _, e := range r.Validation.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}
	for _, w := range r.Validation.Warnings {
		fmt.Fprintf(&b, "- warning: %s\n", w)
	}
	b.WriteString("\n")

	writeFindingSection(&b, "Conformance", r.ConformanceFindings)
	writeFindingSection(&b, "Security", r.SecurityFindings)

	if len(r.PerformanceProfile) > 0 {
		b.WriteString("## Performance\n\n")
		b.WriteString("| Function | Complexity | Risk |\n|---|---|---|\n")
		for _, e := range r.PerformanceProfile {
			fmt.Fprintf(&b, "| `%s` | %s | %s |\n", e.QualifiedName, e.ComplexityClass, e.RiskLevel)
		}
		b.WriteString("\n")
	}
	writeFindingSection(&b, "Performance Findings", r.PerformanceFindings)
	writeFindingSection(&b, "Standards", r.StandardsFindings)

	fmt.Fprintf(&b, "---\n%s %s, run %s, %d files (%d failed)\n",
		r.Meta.Tool, r.Meta.Version, r.Meta.RunID, r.Meta.FilesSeen, r.Meta.FilesError)
	return b.String()
}

func writeFindingSection(b *strings.Builder, title string, fs []schema.Finding) {
	if len(fs) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, f := range fs {
		loc := f.File
		if f.Line > 0 {
			loc = fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		fmt.Fprintf(b, "- **%s** `%s` %s\n", f.Severity, loc, f.Title)
		fmt.Fprintf(b, "  %s\n", f.Description)
		if f.Recommendation != "" {
			fmt.Fprintf(b, "  _Recommendation: %s_\n", f.Recommendation)
		}
	}
	b.WriteString("\n")
}

var (
	passStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	headStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle  = lipgloss.NewStyle().Faint(true)

	severityStyles = map[schema.Severity]lipgloss.Style{
		schema.SeverityCritical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		schema.SeverityHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		schema.SeverityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		schema.SeverityLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
		schema.SeverityInfo:     lipgloss.NewStyle().Faint(true),
	}
)

// Text renders the report for terminal display.
func Text(r *schema.Report) string {
	var b strings.Builder

	status := passStyle.Render(string(r.Status))
	if r.Status != schema.StatusPassed {
		status = failStyle.Render(string(r.Status))
	}
	fmt.Fprintf(&b, "%s  %s against %s (%s mode)\n",
		status, r.Input.SpecSource, r.Input.CodeRoot, r.Input.Mode)
	fmt.Fprintf(&b, "threat score %d, %d files analyzed, %d failed\n\n",
		r.ThreatScore, r.Meta.FilesSeen, r.Meta.FilesError)

	if !r.Validation.Valid {
		b.WriteString(headStyle.Render("Specification errors") + "\n")
		for _, e := range r.Validation.Errors {
			fmt.Fprintf(&b, "  %s\n", e)
		}
		b.WriteString("\n")
	}
	for _, w := range r.Validation.Warnings {
		fmt.Fprintf(&b, "%s\n", dimStyle.Render("warning: "+w))
	}

	writeTextSection(&b, "Conformance", r.ConformanceFindings)
	writeTextSection(&b, "Security", r.SecurityFindings)
	writeTextSection(&b, "Performance", r.PerformanceFindings)
	writeTextSection(&b, "Standards", r.StandardsFindings)

	if len(r.PerformanceProfile) > 0 {
		b.WriteString(headStyle.Render("Complexity profile") + "\n")
		for _, e := range r.PerformanceProfile {
			fmt.Fprintf(&b, "  %-10s %-7s %s\n", e.ComplexityClass, e.RiskLevel, e.QualifiedName)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%s\n", dimStyle.Render(fmt.Sprintf("%s %s run %s",
		r.Meta.Tool, r.Meta.Version, r.Meta.RunID)))
	return b.String()
}

func writeTextSection(b *strings.Builder, title string, fs []schema.Finding) {
	if len(fs) == 0 {
		return
	}
	b.WriteString(headStyle.Render(title) + "\n")
	for _, f := range fs {
		loc := f.File
		if f.Line > 0 {
			loc = fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		sev := severityStyles[f.Severity].Render(string(f.Severity))
		fmt.Fprintf(b, "  %s %s %s\n", sev, loc, f.Title)
		if f.Recommendation != "" {
			fmt.Fprintf(b, "      %s\n", f.Recommendation)
		}
	}
	b.WriteString("\n")
}
