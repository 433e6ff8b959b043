// Package validate checks a Specification for completeness and consistency.
// Validation is a pure function: identical input always yields an identical
// verdict, and nothing is mutated.
package validate

import (
	"fmt"
	"strings"

	"github.com/dshills/specverify/internal/schema"
	"github.com/dshills/specverify/internal/spec"
)

// Check produces the ValidationVerdict for s.
//
// Errors make the specification invalid; warnings are surfaced in the
// report but never affect validity. Free-text constraints and duplicate
// requirements are warnings by design — they are soft issues, not gaps.
func Check(s *spec.Specification) schema.ValidationVerdict {
	var errs, warns []string

	reqs := s.Requirements()
	if len(reqs) == 0 {
		errs = append(errs, "specification has no requirements")
	}
	seen := map[string]int{}
	for _, r := range reqs {
		seen[strings.ToLower(strings.TrimSpace(r))]++
	}
	for _, r := range reqs {
		key := strings.ToLower(strings.TrimSpace(r))
		if seen[key] > 1 {
			warns = append(warns, fmt.Sprintf("requirement %q appears %d times", r, seen[key]))
			seen[key] = 1 // warn once per distinct text
		}
	}

	for _, c := range s.Constraints() {
		if c.Threshold == nil {
			warns = append(warns, fmt.Sprintf("constraint %q is not a numeric threshold; kept as free text", c.Text))
		}
	}

	for _, e := range s.Entities() {
		if strings.TrimSpace(e.Type) == "" {
			errs = append(errs, fmt.Sprintf("data model entry %q has an empty type name", e.Name))
		}
	}

	for _, r := range s.Routes() {
		// The parser already enforces METHOD /path shape; re-check here so a
		// Specification built by other means gets the same scrutiny.
		if r.Method == "" || !strings.HasPrefix(r.Path, "/") {
			errs = append(errs, fmt.Sprintf("api entry %q does not match METHOD /path", r.Key()))
		}
	}

	// Parser warnings ride along so callers see best-effort omissions.
	warns = append(warns, s.Warnings()...)

	return schema.ValidationVerdict{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: warns,
	}
}
