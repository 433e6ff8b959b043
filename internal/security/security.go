// Package security scans extracted source facts against a vulnerability
// pattern catalog and computes a weighted threat score.
//
// The catalog is a data table: each entry names a target stream (call sites,
// string literals, or raw source lines), the patterns to match, and the
// finding to emit. New checks are catalog additions, not code changes. Every
// check is independently pure; a threat score of zero means "no threats
// found", never "no threats possible".
package security

import (
	"fmt"
	"regexp"

	"github.com/dshills/specverify/internal/facts"
	"github.com/dshills/specverify/internal/schema"
)

// Target selects which fact stream a pattern inspects.
type Target string

const (
	// TargetCall matches call sites: Callee against the callee expression,
	// Args (optional) against the argument text.
	TargetCall Target = "call"
	// TargetLiteral matches Text against each string literal's value.
	TargetLiteral Target = "literal"
	// TargetLine matches Text against each raw source line.
	TargetLine Target = "line"
)

// Pattern is one catalog entry.
type Pattern struct {
	ID             string
	Target         Target
	Callee         *regexp.Regexp // TargetCall only
	Args           *regexp.Regexp // TargetCall only; nil matches any args
	Text           *regexp.Regexp // TargetLiteral / TargetLine
	Severity       schema.Severity
	Title          string
	Description    string
	Recommendation string
}

// Catalog returns the built-in pattern table. The returned slice is freshly
// allocated; callers may append their own entries without affecting the
// defaults.
func Catalog() []Pattern {
	return append([]Pattern(nil), builtinCatalog...)
}

var builtinCatalog = []Pattern{
	{
		ID:             "dynamic-eval",
		Target:         TargetCall,
		Callee:         regexp.MustCompile(`^(eval|exec)$`),
		Severity:       schema.SeverityCritical,
		Title:          "dynamic code evaluation",
		Description:    "call to a dynamic evaluation function allows arbitrary code execution",
		Recommendation: "remove the dynamic evaluation; for literal data use a safe parser such as ast.literal_eval or JSON",
	},
	{
		ID:             "dynamic-import",
		Target:         TargetCall,
		Callee:         regexp.MustCompile(`^(__import__|compile)$`),
		Severity:       schema.SeverityMedium,
		Title:          "dynamic code loading",
		Description:    "dynamic compilation or import can load attacker-controlled code",
		Recommendation: "import modules statically; avoid compiling source at runtime",
	},
	{
		ID:             "hardcoded-secret",
		Target:         TargetLine,
		Text:           regexp.MustCompile(`(?i)(password|passwd|secret[_-]?key|api[_-]?key|auth[_-]?token|aws[_-]?secret)\s*[:=]\s*["'][^"']{4,}["']`),
		Severity:       schema.SeverityHigh,
		Title:          "hardcoded credential",
		Description:    "a credential-shaped value is embedded in source",
		Recommendation: "move secrets to environment variables or a secret store; never commit credential values",
	},
	{
		ID:             "private-key-material",
		Target:         TargetLiteral,
		Text:           regexp.MustCompile(`-----BEGIN (RSA |EC |OPENSSH )?PRIVATE KEY-----|^AKIA[0-9A-Z]{16}$`),
		Severity:       schema.SeverityHigh,
		Title:          "embedded key material",
		Description:    "a private key or cloud access key is embedded in source",
		Recommendation: "revoke the key and load replacements from a secret store",
	},
	{
		ID:             "sql-injection-fstring",
		Target:         TargetCall,
		Callee:         regexp.MustCompile(`(^|\.)(execute|executemany|query|raw)$`),
		Args:           regexp.MustCompile(`(?i)f["'][^"']*\b(select|insert|update|delete)\b`),
		Severity:       schema.SeverityHigh,
		Title:          "SQL built with string interpolation",
		Description:    "a SQL command is constructed by interpolating values into the query text",
		Recommendation: "use parameterized queries with placeholders instead of interpolation",
	},
	{
		ID:             "sql-injection-concat",
		Target:         TargetCall,
		Callee:         regexp.MustCompile(`(^|\.)(execute|executemany|query|raw)$`),
		Args:           regexp.MustCompile(`(?i)["'][^"']*\b(select|insert|update|delete)\b[^"']*["']\s*[+%]|\b(select|insert|update|delete)\b[^,]*\.format\(`),
		Severity:       schema.SeverityHigh,
		Title:          "SQL built with string concatenation",
		Description:    "a SQL command is constructed by concatenating or formatting values into the query text",
		Recommendation: "use parameterized queries with placeholders instead of concatenation",
	},
	{
		ID:             "path-from-input",
		Target:         TargetCall,
		Callee:         regexp.MustCompile(`^(open|io\.open|os\.open|os\.path\.join)$`),
		Args:           regexp.MustCompile(`(?i)(request\.|params\[|form\[|argv|input\(|\+)`),
		Severity:       schema.SeverityMedium,
		Title:          "path built from external input",
		Description:    "a filesystem path appears to be constructed from unsanitized external input",
		Recommendation: "resolve and validate paths against an allowed base directory before use",
	},
	{
		ID:             "open-redirect",
		Target:         TargetCall,
		Callee:         regexp.MustCompile(`(?i)(^|\.)redirect$`),
		Args:           regexp.MustCompile(`(?i)(request\.|params\[|form\[|input\(|\+|%)`),
		Severity:       schema.SeverityMedium,
		Title:          "redirect target from external input",
		Description:    "a redirect or forward target appears to be built from unvalidated external input",
		Recommendation: "validate redirect targets against an allow-list of destinations",
	},
	{
		ID:             "shell-command",
		Target:         TargetCall,
		Callee:         regexp.MustCompile(`^(os\.system|os\.popen)$`),
		Severity:       schema.SeverityHigh,
		Title:          "shell command execution",
		Description:    "executing a shell command string is vulnerable to injection when any input reaches it",
		Recommendation: "use subprocess with an argument list and shell disabled",
	},
	{
		ID:             "shell-true",
		Target:         TargetCall,
		Callee:         regexp.MustCompile(`^subprocess\.(call|run|Popen|check_output)$`),
		Args:           regexp.MustCompile(`shell\s*=\s*True`),
		Severity:       schema.SeverityHigh,
		Title:          "subprocess with shell enabled",
		Description:    "subprocess invoked with shell=True is vulnerable to command injection",
		Recommendation: "pass the command as an argument list with shell=False",
	},
	{
		ID:             "unsafe-deserialization",
		Target:         TargetCall,
		Callee:         regexp.MustCompile(`^(pickle|cPickle|marshal)\.(load|loads)$|^yaml\.load$`),
		Severity:       schema.SeverityHigh,
		Title:          "unsafe deserialization",
		Description:    "deserializing untrusted data with this API can execute arbitrary code",
		Recommendation: "use a safe format (JSON) or a safe loader, and verify the data source",
	},
	{
		ID:             "weak-hash",
		Target:         TargetCall,
		Callee:         regexp.MustCompile(`^hashlib\.(md5|sha1)$`),
		Severity:       schema.SeverityMedium,
		Title:          "weak hash algorithm",
		Description:    "MD5 and SHA-1 are cryptographically broken",
		Recommendation: "use SHA-256 or stronger for anything security relevant",
	},
}

// Scan runs every catalog pattern against every fact set and returns the
// findings in encounter order (file order is the caller's ordering).
func Scan(all []*facts.SourceFacts, catalog []Pattern) []schema.Finding {
	var out []schema.Finding
	for _, f := range all {
		for i := range catalog {
			out = append(out, scanFile(f, &catalog[i])...)
		}
	}
	return out
}

// scanFile applies one pattern to one file's fact streams.
func scanFile(f *facts.SourceFacts, p *Pattern) []schema.Finding {
	var out []schema.Finding
	emit := func(line int, detail string) {
		out = append(out, schema.Finding{
			Analyzer:       schema.AnalyzerSecurity,
			Severity:       p.Severity,
			File:           f.FilePath,
			Line:           line,
			Title:          p.Title,
			Description:    fmt.Sprintf("%s (%s)", p.Description, detail),
			Recommendation: p.Recommendation,
			RuleID:         p.ID,
		})
	}

	switch p.Target {
	case TargetCall:
		for _, c := range f.CallSites {
			if !p.Callee.MatchString(c.Callee) {
				continue
			}
			if p.Args != nil && !p.Args.MatchString(c.ArgsText) {
				continue
			}
			emit(c.Line, "call to "+c.Callee)
		}
	case TargetLiteral:
		for _, lit := range f.StringLiterals {
			if p.Text.MatchString(lit.Value) {
				emit(lit.Line, "string literal")
			}
		}
	case TargetLine:
		for i, text := range f.Lines {
			if p.Text.MatchString(text) {
				emit(i+1, "source line")
			}
		}
	}
	return out
}

// severityWeights drives the threat score: CRITICAL=10, HIGH=5, MEDIUM=2,
// LOW=1, INFO=0.
var severityWeights = map[schema.Severity]int{
	schema.SeverityCritical: 10,
	schema.SeverityHigh:     5,
	schema.SeverityMedium:   2,
	schema.SeverityLow:      1,
	schema.SeverityInfo:     0,
}

// ThreatScore sums the severity weights of the given findings.
func ThreatScore(findings []schema.Finding) int {
	score := 0
	for _, f := range findings {
		score += severityWeights[f.Severity]
	}
	return score
}
