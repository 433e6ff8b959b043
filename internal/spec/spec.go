// Package spec parses semi-structured requirements documents into a
// normalized, immutable Specification.
//
// The input format is a plain-text document with section headers
// ("Requirements", "Constraints", "Data Model", "API Specification") written
// either as ATX headings ("## Requirements") or as bare lines ending in a
// colon ("Requirements:"). List or key:value lines under each header populate
// the model. Unknown top-level sections are ignored for forward
// compatibility. Parsing never fails on structurally odd input; it degrades
// to best effort and records omissions as warnings for the validator to
// surface. The only fatal condition is a document that is empty or has no
// recognizable headers at all.
package spec

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseError indicates a document-level structural failure: an empty
// document or one with no section headers. It is fatal to a run.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("spec: parse: %s", e.Msg)
}

// Entity is one declared data-model entry: an entity name and its type name.
type Entity struct {
	Name string
	Type string
}

// Route is one declared API operation.
type Route struct {
	Method  string
	Path    string
	Options map[string]string // may be empty, never nil
}

// Key returns the canonical "METHOD PATH" key for the route.
func (r Route) Key() string {
	return r.Method + " " + r.Path
}

// Specification is the normalized, immutable representation of a
// requirements document. Once constructed it is never mutated; accessors
// return copies so callers cannot alter the underlying state.
type Specification struct {
	requirements []string
	constraints  []Constraint
	entities     []Entity // insertion order preserved for report stability
	routes       []Route  // insertion order preserved
	warnings     []string // parser warnings (duplicates, skipped lines)
}

// Requirements returns the ordered requirement strings.
func (s *Specification) Requirements() []string {
	return append([]string(nil), s.requirements...)
}

// Constraints returns the ordered constraints.
func (s *Specification) Constraints() []Constraint {
	return append([]Constraint(nil), s.constraints...)
}

// Entities returns the data-model entries in declaration order.
func (s *Specification) Entities() []Entity {
	return append([]Entity(nil), s.entities...)
}

// Routes returns the API operations in declaration order.
func (s *Specification) Routes() []Route {
	out := make([]Route, len(s.routes))
	for i, r := range s.routes {
		opts := make(map[string]string, len(r.Options))
		for k, v := range r.Options {
			opts[k] = v
		}
		out[i] = Route{Method: r.Method, Path: r.Path, Options: opts}
	}
	return out
}

// Warnings returns parser warnings collected while building the
// specification. Warnings never make a document unparsable.
func (s *Specification) Warnings() []string {
	return append([]string(nil), s.warnings...)
}

// section identifiers, matched case-insensitively after stripping heading
// markers and trailing colons.
const (
	secNone         = ""
	secRequirements = "requirements"
	secConstraints  = "constraints"
	secDataModel    = "data model"
	secAPI          = "api specification"
	secUnknown      = "unknown"
)

// ParseFile reads the file at path and parses it.
func ParseFile(path string) (*Specification, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("spec: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// ParseText parses a requirements document held in memory.
func ParseText(text string) (*Specification, error) {
	return Parse(strings.NewReader(text))
}

// Parse reads a requirements document from r and builds a Specification.
// Returns *ParseError when the document is empty or contains no headers.
func Parse(r io.Reader) (*Specification, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	// Allow long lines (e.g., pasted API descriptions); 64KB initial, 1MB max.
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("spec: scan: %w", err)
	}

	s := &Specification{}
	seenHeader := false
	cur := secNone

	// Duplicate tracking for keyed sections. First occurrence wins; later
	// ones are recorded as warnings, not errors.
	entityIdx := map[string]bool{}
	routeIdx := map[string]bool{}

	for i, raw := range lines {
		lineNum := i + 1
		line := strings.TrimRight(raw, " \t")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if name, ok := headerName(line); ok {
			seenHeader = true
			switch name {
			case secRequirements, secConstraints, secDataModel, secAPI:
				cur = name
			default:
				// Unknown top-level section: ignore its content.
				cur = secUnknown
			}
			continue
		}

		item := stripListPrefix(line)
		switch cur {
		case secRequirements:
			s.requirements = append(s.requirements, item)
		case secConstraints:
			s.constraints = append(s.constraints, parseConstraint(item))
		case secDataModel:
			name, typ, ok := splitKeyValue(item)
			if !ok {
				s.warn("line %d: data model entry %q is not Name: Type; skipped", lineNum, item)
				continue
			}
			if entityIdx[strings.ToLower(name)] {
				s.warn("line %d: duplicate data model entry %q; first occurrence wins", lineNum, name)
				continue
			}
			entityIdx[strings.ToLower(name)] = true
			s.entities = append(s.entities, Entity{Name: name, Type: typ})
		case secAPI:
			route, ok := parseRoute(item)
			if !ok {
				s.warn("line %d: API entry %q does not match METHOD /path; skipped", lineNum, item)
				continue
			}
			if routeIdx[route.Key()] {
				s.warn("line %d: duplicate API entry %q; first occurrence wins", lineNum, route.Key())
				continue
			}
			routeIdx[route.Key()] = true
			s.routes = append(s.routes, route)
		case secNone, secUnknown:
			// Text before the first header or under an unknown section.
		}
	}

	if !seenHeader {
		if len(lines) == 0 {
			return nil, &ParseError{Msg: "document is empty"}
		}
		return nil, &ParseError{Msg: "document has no section headers"}
	}
	return s, nil
}

func (s *Specification) warn(format string, args ...any) {
	s.warnings = append(s.warnings, fmt.Sprintf(format, args...))
}

// headerName reports whether line is a section header and returns its
// normalized name. Accepted forms: ATX headings ("# Name", up to ######) and
// bare lines ending with a colon ("Name:"). A key:value line ("User: model")
// is not a header because text follows the colon.
func headerName(line string) (string, bool) {
	t := strings.TrimSpace(line)
	if strings.HasPrefix(t, "#") {
		hashes := 0
		for hashes < len(t) && t[hashes] == '#' {
			hashes++
		}
		if hashes > 6 || hashes == len(t) || t[hashes] != ' ' {
			return "", false
		}
		name := strings.TrimSpace(t[hashes:])
		name = strings.TrimSuffix(name, ":")
		return strings.ToLower(strings.TrimSpace(name)), name != ""
	}
	if strings.HasSuffix(t, ":") {
		name := strings.TrimSpace(strings.TrimSuffix(t, ":"))
		// Reject list items and lines that still contain a colon (key:value).
		if name == "" || isListLine(line) || strings.Contains(name, ":") {
			return "", false
		}
		return strings.ToLower(name), true
	}
	return "", false
}

// isListLine reports whether line begins with a bullet or numbered prefix.
func isListLine(line string) bool {
	t := strings.TrimSpace(line)
	for _, pfx := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(t, pfx) {
			return true
		}
	}
	return isNumberedItem(t)
}

// isNumberedItem returns true for lines starting with "N. " or "N) " where N
// is one or more decimal digits.
func isNumberedItem(t string) bool {
	b := []byte(t)
	for j := 0; j < len(b); j++ {
		ch := b[j]
		if ch >= '0' && ch <= '9' {
			continue
		}
		if (ch == '.' || ch == ')') && j > 0 {
			return j+1 < len(b) && b[j+1] == ' '
		}
		break
	}
	return false
}

// stripListPrefix removes "N. ", "N) ", "- ", "* ", or "• " from the start
// of a line. Returns the trimmed text unchanged if no known prefix is found.
func stripListPrefix(line string) string {
	t := strings.TrimSpace(line)
	b := []byte(t)
	for j := 0; j < len(b); j++ {
		ch := b[j]
		if ch >= '0' && ch <= '9' {
			continue
		}
		if (ch == '.' || ch == ')') && j > 0 && j+1 < len(b) && b[j+1] == ' ' {
			return strings.TrimSpace(string(b[j+1:]))
		}
		break
	}
	for _, pfx := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(t, pfx) {
			return strings.TrimSpace(t[len(pfx):])
		}
	}
	return t
}

// splitKeyValue splits "Name: Type" into its parts. Only the first colon
// separates; the type may itself contain colons.
func splitKeyValue(item string) (name, typ string, ok bool) {
	idx := strings.Index(item, ":")
	if idx <= 0 {
		return "", "", false
	}
	name = strings.TrimSpace(item[:idx])
	typ = strings.TrimSpace(item[idx+1:])
	if name == "" {
		return "", "", false
	}
	return name, typ, true
}

// httpMethods is the set of verbs accepted in API Specification entries.
var httpMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "HEAD": true, "OPTIONS": true,
}

// parseRoute parses "METHOD /path" with an optional trailing annotation.
// The annotation is either comma-separated key=value pairs ("auth=none,
// rate=10s") or free text stored under "description".
func parseRoute(item string) (Route, bool) {
	fields := strings.Fields(item)
	if len(fields) < 2 {
		return Route{}, false
	}
	method := strings.ToUpper(fields[0])
	if !httpMethods[method] || !strings.HasPrefix(fields[1], "/") {
		return Route{}, false
	}
	route := Route{Method: method, Path: fields[1], Options: map[string]string{}}
	if len(fields) > 2 {
		rest := strings.Join(fields[2:], " ")
		if !parseOptionPairs(rest, route.Options) {
			route.Options["description"] = rest
		}
	}
	return route, true
}

// parseOptionPairs parses "k=v, k2=v2" into opts. Returns false (leaving
// opts untouched) when any segment is not a key=value pair.
func parseOptionPairs(rest string, opts map[string]string) bool {
	parsed := map[string]string{}
	for _, seg := range strings.Split(rest, ",") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		eq := strings.Index(seg, "=")
		if eq <= 0 {
			return false
		}
		parsed[strings.TrimSpace(seg[:eq])] = strings.TrimSpace(seg[eq+1:])
	}
	for k, v := range parsed {
		opts[k] = v
	}
	return len(parsed) > 0
}
