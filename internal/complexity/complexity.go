// Package complexity estimates an asymptotic complexity class for every
// extracted function.
//
// The estimate is deliberately coarse: loop nesting depth k maps to O(n^k),
// and recursion without an obvious memoization signal maps to O(2^n). It is
// a screening heuristic for review prioritization, not an analysis of actual
// runtime behavior, and the findings it emits say so.
package complexity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/specverify/internal/facts"
	"github.com/dshills/specverify/internal/schema"
)

// Profile computes a complexity entry for every function in every fact set.
// Entries are sorted by qualified name within file order, so identical input
// always yields an identical profile. Functions classified O(2^n) also yield
// a MEDIUM performance finding.
func Profile(all []*facts.SourceFacts) ([]schema.ComplexityEntry, []schema.Finding) {
	var entries []schema.ComplexityEntry
	var findings []schema.Finding

	for _, f := range all {
		fns := append([]facts.FunctionFact(nil), f.Functions...)
		sort.Slice(fns, func(i, j int) bool { return fns[i].QualifiedName() < fns[j].QualifiedName() })

		for _, fn := range fns {
			class := classify(fn)
			entries = append(entries, schema.ComplexityEntry{
				QualifiedName:   f.FilePath + ":" + fn.QualifiedName(),
				ComplexityClass: class,
				RiskLevel:       risk(class),
			})
			if class == "O(2^n)" {
				findings = append(findings, schema.Finding{
					Analyzer: schema.AnalyzerPerformance,
					Severity: schema.SeverityMedium,
					File:     f.FilePath,
					Line:     fn.Line,
					Title:    fmt.Sprintf("%s appears exponentially recursive", fn.QualifiedName()),
					Description: fmt.Sprintf(
						"%s calls itself with no memoization signal, which suggests exponential "+
							"growth. This is a low-confidence structural estimate; measure before acting.",
						fn.QualifiedName()),
					Recommendation: "memoize the recursion or rewrite it iteratively",
					RuleID:         "exponential-recursion",
				})
			}
		}
	}
	return entries, findings
}

// classify maps one function's structure to a complexity class. Recursion
// dominates loop depth: a recursive function with no memoization signal is
// O(2^n) regardless of its loops.
func classify(fn facts.FunctionFact) string {
	if fn.HasRecursion && !memoized(fn) {
		return "O(2^n)"
	}
	switch d := fn.MaxLoopDepth; {
	case d <= 0:
		return "O(1)"
	case d == 1:
		return "O(n)"
	default:
		return fmt.Sprintf("O(n^%d)", d)
	}
}

// memoized reports whether a recursive function shows a memoization signal:
// a cache-shaped call site or decorator found during extraction, or a memo
// table threaded through its parameters.
func memoized(fn facts.FunctionFact) bool {
	if fn.HasMemoization {
		return true
	}
	for _, p := range fn.Params {
		name := strings.ToLower(p.Name)
		if strings.Contains(name, "memo") || strings.Contains(name, "cache") {
			return true
		}
	}
	return false
}

// risk coarsens a class into the profile's risk vocabulary: "O(n)" for
// linear or better, "O(n^2)" for quadratic or deeper polynomial nesting,
// "O(2^n)" for the exponential recursion flag, "unknown" otherwise.
func risk(class string) string {
	switch {
	case class == "O(1)" || class == "O(n)":
		return "O(n)"
	case class == "O(2^n)":
		return "O(2^n)"
	case strings.HasPrefix(class, "O(n^"):
		return "O(n^2)"
	default:
		return "unknown"
	}
}
