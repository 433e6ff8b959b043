// Package schema defines all canonical data types for the specverify output format.
package schema

import "time"

// Status represents the overall outcome of a verification run.
type Status string

const (
	StatusPassed Status = "PASSED"
	StatusFailed Status = "FAILED"
)

// Severity represents the severity level of a finding.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// SeverityOrdinal returns the numeric ordinal for a severity, used for
// comparison and weighting. INFO=0 through CRITICAL=4; unknown values
// return -1.
func SeverityOrdinal(s Severity) int {
	switch s {
	case SeverityInfo:
		return 0
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return -1
	}
}

// Analyzer identifies which analyzer emitted a finding.
type Analyzer string

const (
	AnalyzerConformance Analyzer = "conformance"
	AnalyzerSecurity    Analyzer = "security"
	AnalyzerPerformance Analyzer = "performance"
	AnalyzerStandards   Analyzer = "standards"
)

// Mode selects which analyzers a run executes.
type Mode string

const (
	// ModeFull runs conformance, security, performance, and standards.
	ModeFull Mode = "full"
	// ModeQuick runs security only; intended for fast iterative feedback.
	ModeQuick Mode = "quick"
)

// Finding is the uniform result unit emitted by every analyzer.
// Findings are immutable once emitted.
type Finding struct {
	Analyzer       Analyzer `json:"analyzer"`
	Severity       Severity `json:"severity"`
	File           string   `json:"file"`
	Line           int      `json:"line,omitempty"` // 0 means no line attribution
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation,omitempty"`
	RuleID         string   `json:"rule_id,omitempty"`
}

// ValidationVerdict is the validator's judgment of a Specification.
// Produced once per Specification and not mutated thereafter. Warnings are
// soft notes (free-text constraints, duplicate requirements, parser skips)
// and never affect Valid.
type ValidationVerdict struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// ComplexityEntry records the estimated complexity of one function.
// QualifiedName is "path:func" or "path:Class.method".
type ComplexityEntry struct {
	QualifiedName   string `json:"qualified_name"`
	ComplexityClass string `json:"complexity_class"`
	RiskLevel       string `json:"risk_level"`
}

// SeverityTally counts findings at each severity level for one analyzer.
type SeverityTally struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
}

// Add increments the tally slot for s. Unknown severities are ignored.
func (t *SeverityTally) Add(s Severity) {
	switch s {
	case SeverityCritical:
		t.Critical++
	case SeverityHigh:
		t.High++
	case SeverityMedium:
		t.Medium++
	case SeverityLow:
		t.Low++
	case SeverityInfo:
		t.Info++
	}
}

// Total returns the number of findings counted at any severity.
func (t SeverityTally) Total() int {
	return t.Critical + t.High + t.Medium + t.Low + t.Info
}

// Tally counts the findings in fs by severity.
func Tally(fs []Finding) SeverityTally {
	var t SeverityTally
	for _, f := range fs {
		t.Add(f.Severity)
	}
	return t
}

// Counts holds the per-severity tally for each analyzer.
type Counts struct {
	Conformance SeverityTally `json:"conformance"`
	Security    SeverityTally `json:"security"`
	Performance SeverityTally `json:"performance"`
	Standards   SeverityTally `json:"standards"`
}

// Input records the parameters used for this run.
type Input struct {
	SpecSource string `json:"spec_source"`
	CodeRoot   string `json:"code_root"`
	Mode       Mode   `json:"mode"`
}

// Meta records observability metadata for a run. Meta is excluded from all
// determinism comparisons; two runs over identical inputs differ only here.
type Meta struct {
	Tool       string        `json:"tool"`
	Version    string        `json:"version"`
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns"`
	FilesSeen  int           `json:"files_seen"`
	FilesError int           `json:"files_error"`
}

// Report is the top-level output document. It is constructed once per run by
// the engine and never mutated after construction; a re-run produces a new
// Report.
type Report struct {
	Status              Status            `json:"overall_status"`
	Input               Input             `json:"input"`
	Validation          ValidationVerdict `json:"validation"`
	ConformanceFindings []Finding         `json:"conformance_findings"`
	SecurityFindings    []Finding         `json:"security_findings"`
	ThreatScore         int               `json:"threat_score"`
	PerformanceProfile  []ComplexityEntry `json:"performance_profile"`
	PerformanceFindings []Finding         `json:"performance_findings"`
	StandardsFindings   []Finding         `json:"standards_findings"`
	Counts              Counts            `json:"counts"`
	Meta                Meta              `json:"meta"`
}

// AllFindings returns every finding in the report in analyzer order.
// The returned slice is freshly allocated; mutating it does not affect r.
func (r *Report) AllFindings() []Finding {
	out := make([]Finding, 0, len(r.ConformanceFindings)+len(r.SecurityFindings)+
		len(r.PerformanceFindings)+len(r.StandardsFindings))
	out = append(out, r.ConformanceFindings...)
	out = append(out, r.SecurityFindings...)
	out = append(out, r.PerformanceFindings...)
	out = append(out, r.StandardsFindings...)
	return out
}
