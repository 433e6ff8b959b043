// Package conformance checks extracted source facts against a
// Specification's obligations.
//
// This is a heuristic verifier by design: it looks for structural signals
// (route literals, handler-shaped names, matching type names) that suggest a
// declared operation or entity exists. It approximates compliance, it does
// not prove it — every finding says so, and the absence of findings is not a
// proof of conformance.
package conformance

import (
	"fmt"
	"strings"

	"github.com/dshills/specverify/internal/facts"
	"github.com/dshills/specverify/internal/schema"
	"github.com/dshills/specverify/internal/spec"
)

// Verify checks every api_spec route and data_model entity in s against the
// fact sets. Routes without a structural signal yield HIGH findings (missing
// required functionality); entities without a matching class or function
// name yield MEDIUM findings.
func Verify(s *spec.Specification, all []*facts.SourceFacts) []schema.Finding {
	var out []schema.Finding

	for _, route := range s.Routes() {
		if routeImplemented(route, all) {
			continue
		}
		out = append(out, schema.Finding{
			Analyzer: schema.AnalyzerConformance,
			Severity: schema.SeverityHigh,
			Title:    fmt.Sprintf("no handler found for %s", route.Key()),
			Description: fmt.Sprintf(
				"no structural signal (route literal, handler-shaped function name, or "+
					"registration call) for %s was found in the source tree. This is a "+
					"heuristic structural match, not a proof of absence.", route.Key()),
			Recommendation: fmt.Sprintf("implement a handler for %s or remove it from the specification", route.Key()),
			RuleID:         "api-route-missing",
		})
	}

	for _, ent := range s.Entities() {
		if entityImplemented(ent, all) {
			continue
		}
		out = append(out, schema.Finding{
			Analyzer: schema.AnalyzerConformance,
			Severity: schema.SeverityMedium,
			Title:    fmt.Sprintf("no definition found for entity %q", ent.Name),
			Description: fmt.Sprintf(
				"no class or function name matches data model entity %q (case-insensitive). "+
					"This is a heuristic structural match, not a proof of absence.", ent.Name),
			Recommendation: fmt.Sprintf("define %s (%s) or remove it from the data model", ent.Name, ent.Type),
			RuleID:         "entity-missing",
		})
	}

	return out
}

// routeImplemented looks for any structural signal that the route exists:
// the path appearing as a string literal (route registration or decorator),
// or a function named after the route's last path segment, optionally
// prefixed with the HTTP verb ("login", "post_login", "postLogin",
// "handle_login").
func routeImplemented(route spec.Route, all []*facts.SourceFacts) bool {
	segment := lastSegment(route.Path)
	verb := strings.ToLower(route.Method)

	candidates := map[string]bool{}
	if segment != "" {
		for _, name := range []string{
			segment,
			verb + segment,
			"handle" + segment,
			"create" + segment,
			"get" + segment,
		} {
			candidates[name] = true
		}
	}

	for _, f := range all {
		for _, lit := range f.StringLiterals {
			if lit.Value == route.Path {
				return true
			}
		}
		for _, fn := range f.Functions {
			if candidates[normalizeName(fn.Name)] {
				return true
			}
		}
		for _, c := range f.CallSites {
			// Registration-shaped call: router.post("/login", ...) etc.
			if strings.Contains(c.ArgsText, `"`+route.Path+`"`) ||
				strings.Contains(c.ArgsText, `'`+route.Path+`'`) {
				return true
			}
		}
	}
	return false
}

// entityImplemented reports whether any class or function name matches the
// entity name case-insensitively.
func entityImplemented(ent spec.Entity, all []*facts.SourceFacts) bool {
	want := strings.ToLower(ent.Name)
	for _, f := range all {
		for _, c := range f.Classes {
			if strings.ToLower(c.Name) == want {
				return true
			}
		}
		for _, fn := range f.Functions {
			if strings.ToLower(fn.Name) == want {
				return true
			}
		}
	}
	return false
}

// lastSegment returns the final non-parameter path segment, normalized for
// name comparison. "/users/{id}" → "users"; "/" → "".
func lastSegment(path string) string {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	for i := len(segs) - 1; i >= 0; i-- {
		s := segs[i]
		if s == "" || strings.HasPrefix(s, "{") || strings.HasPrefix(s, ":") {
			continue
		}
		return normalizeName(s)
	}
	return ""
}

// normalizeName lowercases and strips separators so "post_login",
// "postLogin", and "post-login" compare equal.
func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
