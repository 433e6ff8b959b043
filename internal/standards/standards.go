// Package standards checks source facts against a configurable rule set of
// coding conventions.
//
// Rules come in two shapes: pattern rules, which run a regular expression
// over raw source lines, and structural rules, which inspect extracted
// function facts against a numeric threshold. Both are identified by rule ID,
// and a loaded rule file overrides built-ins by ID, last write wins.
package standards

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/dshills/specverify/internal/facts"
	"github.com/dshills/specverify/internal/schema"
)

// Rule is one convention check. A non-empty Pattern makes it a pattern rule;
// otherwise the ID selects a structural check and Max is its threshold.
type Rule struct {
	ID         string          `yaml:"id"`
	Pattern    string          `yaml:"pattern,omitempty"`
	Severity   schema.Severity `yaml:"severity"`
	Title      string          `yaml:"title"`
	Suggestion string          `yaml:"suggestion"`
	Max        int             `yaml:"max,omitempty"`
	Disabled   bool            `yaml:"disabled,omitempty"`

	re *regexp.Regexp
}

// Structural rule IDs understood by the evaluator.
const (
	RuleLineLength       = "line-length"
	RuleTodoComment      = "todo-comment"
	RuleMissingDocstring = "missing-docstring"
	RuleLongFunction     = "long-function"
	RuleTooManyParams    = "too-many-params"
	RuleDeepNesting      = "deep-nesting"
)

// Builtin returns the default rule set.
func Builtin() []Rule {
	return []Rule{
		{
			ID:         RuleLineLength,
			Severity:   schema.SeverityLow,
			Title:      "line exceeds maximum length",
			Suggestion: "wrap or restructure the line",
			Max:        120,
		},
		{
			ID:         RuleTodoComment,
			Pattern:    `(?i)\b(TODO|FIXME|XXX|HACK)\b`,
			Severity:   schema.SeverityInfo,
			Title:      "unresolved marker comment",
			Suggestion: "resolve the marker or track it in an issue",
		},
		{
			ID:         RuleMissingDocstring,
			Severity:   schema.SeverityLow,
			Title:      "function has no documentation",
			Suggestion: "add a short doc comment stating what the function does",
		},
		{
			ID:         RuleLongFunction,
			Severity:   schema.SeverityMedium,
			Title:      "function body is too long",
			Suggestion: "split the function into smaller pieces",
			Max:        50,
		},
		{
			ID:         RuleTooManyParams,
			Severity:   schema.SeverityMedium,
			Title:      "function takes too many parameters",
			Suggestion: "group related parameters into a struct or object",
			Max:        5,
		},
		{
			ID:         RuleDeepNesting,
			Severity:   schema.SeverityMedium,
			Title:      "function nests too deeply",
			Suggestion: "flatten with early returns or extract helpers",
			Max:        4,
		},
	}
}

// ruleFile is the on-disk rule configuration shape.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadFile reads a YAML rule file. Entries are merged over the given base by
// ID, later entries winning; empty fields in an override inherit the base
// rule's values, so a file can adjust one threshold without restating the
// whole rule.
func LoadFile(path string, base []Rule) ([]Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("standards: %w", err)
	}
	var rf ruleFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return nil, fmt.Errorf("standards: parse %s: %w", path, err)
	}
	for i, r := range rf.Rules {
		if r.ID == "" {
			return nil, fmt.Errorf("standards: %s: rule %d has no id", path, i+1)
		}
	}
	return Merge(base, rf.Rules), nil
}

// Merge layers overrides onto base by rule ID, last write wins. The result is
// sorted by ID so evaluation order never depends on file order.
func Merge(base, overrides []Rule) []Rule {
	byID := map[string]Rule{}
	order := []string{}
	for _, r := range base {
		if _, seen := byID[r.ID]; !seen {
			order = append(order, r.ID)
		}
		byID[r.ID] = r
	}
	for _, r := range overrides {
		prev, seen := byID[r.ID]
		if !seen {
			order = append(order, r.ID)
			byID[r.ID] = r
			continue
		}
		byID[r.ID] = inherit(r, prev)
	}
	sort.Strings(order)
	out := make([]Rule, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

// inherit fills empty override fields from the rule being replaced.
func inherit(override, prev Rule) Rule {
	if override.Pattern == "" {
		override.Pattern = prev.Pattern
	}
	if override.Severity == "" {
		override.Severity = prev.Severity
	}
	if override.Title == "" {
		override.Title = prev.Title
	}
	if override.Suggestion == "" {
		override.Suggestion = prev.Suggestion
	}
	if override.Max == 0 {
		override.Max = prev.Max
	}
	return override
}

// Apply evaluates every enabled rule against every fact set. Rules are
// evaluated in slice order; Merge keeps that order sorted by ID.
func Apply(rules []Rule, all []*facts.SourceFacts) ([]schema.Finding, error) {
	compiled := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Disabled {
			continue
		}
		if r.Pattern != "" {
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("standards: rule %s: %w", r.ID, err)
			}
			r.re = re
		}
		compiled = append(compiled, r)
	}

	var out []schema.Finding
	for _, f := range all {
		for i := range compiled {
			out = append(out, applyOne(&compiled[i], f)...)
		}
	}
	return out, nil
}

func applyOne(r *Rule, f *facts.SourceFacts) []schema.Finding {
	var out []schema.Finding
	emit := func(line int, desc string) {
		out = append(out, schema.Finding{
			Analyzer:       schema.AnalyzerStandards,
			Severity:       r.Severity,
			File:           f.FilePath,
			Line:           line,
			Title:          r.Title,
			Description:    desc,
			Recommendation: r.Suggestion,
			RuleID:         r.ID,
		})
	}

	if r.re != nil {
		for i, text := range f.Lines {
			if r.re.MatchString(text) {
				emit(i+1, fmt.Sprintf("line matches pattern %q", r.Pattern))
			}
		}
		return out
	}

	switch r.ID {
	case RuleLineLength:
		for i, text := range f.Lines {
			if len(text) > r.Max {
				emit(i+1, fmt.Sprintf("line is %d characters, limit is %d", len(text), r.Max))
			}
		}
	case RuleMissingDocstring:
		for _, fn := range f.Functions {
			if !fn.HasDocstring {
				emit(fn.Line, fmt.Sprintf("%s has no documentation", fn.QualifiedName()))
			}
		}
	case RuleLongFunction:
		for _, fn := range f.Functions {
			if fn.BodyLineCount > r.Max {
				emit(fn.Line, fmt.Sprintf("%s spans %d lines, limit is %d", fn.QualifiedName(), fn.BodyLineCount, r.Max))
			}
		}
	case RuleTooManyParams:
		for _, fn := range f.Functions {
			if len(fn.Params) > r.Max {
				emit(fn.Line, fmt.Sprintf("%s takes %d parameters, limit is %d", fn.QualifiedName(), len(fn.Params), r.Max))
			}
		}
	case RuleDeepNesting:
		for _, fn := range f.Functions {
			if fn.MaxNestingDepth > r.Max {
				emit(fn.Line, fmt.Sprintf("%s nests %d levels deep, limit is %d", fn.QualifiedName(), fn.MaxNestingDepth, r.Max))
			}
		}
	}
	return out
}
