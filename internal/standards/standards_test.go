package standards

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/specverify/internal/facts"
	"github.com/dshills/specverify/internal/schema"
)

func applyOrFail(t *testing.T, rules []Rule, f *facts.SourceFacts) []schema.Finding {
	t.Helper()
	got, err := Apply(rules, []*facts.SourceFacts{f})
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	return got
}

func findingsFor(findings []schema.Finding, id string) []schema.Finding {
	var out []schema.Finding
	for _, f := range findings {
		if f.RuleID == id {
			out = append(out, f)
		}
	}
	return out
}

func TestApplyStructuralRules(t *testing.T) {
	f := &facts.SourceFacts{
		FilePath: "app.py",
		Functions: []facts.FunctionFact{
			{Name: "documented", Line: 1, HasDocstring: true, BodyLineCount: 3},
			{Name: "bare", Line: 10, BodyLineCount: 80, MaxNestingDepth: 6,
				Params: []facts.Param{{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"}, {Name: "e"}, {Name: "f"}}},
		},
		Lines: []string{"x = 1", "# TODO tighten this"},
	}
	got := applyOrFail(t, Builtin(), f)

	if n := len(findingsFor(got, RuleMissingDocstring)); n != 1 {
		t.Errorf("missing-docstring findings = %d, want 1", n)
	}
	if n := len(findingsFor(got, RuleLongFunction)); n != 1 {
		t.Errorf("long-function findings = %d, want 1", n)
	}
	if n := len(findingsFor(got, RuleTooManyParams)); n != 1 {
		t.Errorf("too-many-params findings = %d, want 1", n)
	}
	if n := len(findingsFor(got, RuleDeepNesting)); n != 1 {
		t.Errorf("deep-nesting findings = %d, want 1", n)
	}
	todos := findingsFor(got, RuleTodoComment)
	if len(todos) != 1 || todos[0].Line != 2 {
		t.Errorf("todo findings = %+v, want one at line 2", todos)
	}
}

func TestApplyLineLength(t *testing.T) {
	long := make([]byte, 130)
	for i := range long {
		long[i] = 'x'
	}
	f := &facts.SourceFacts{FilePath: "app.py", Lines: []string{"short", string(long)}}
	got := applyOrFail(t, Builtin(), f)
	ll := findingsFor(got, RuleLineLength)
	if len(ll) != 1 || ll[0].Line != 2 {
		t.Errorf("line-length findings = %+v, want one at line 2", ll)
	}
}

func TestMergeOverrideWins(t *testing.T) {
	merged := Merge(Builtin(), []Rule{{ID: RuleLineLength, Max: 10, Severity: schema.SeverityHigh}})

	var ll Rule
	seen := 0
	for _, r := range merged {
		if r.ID == RuleLineLength {
			ll = r
			seen++
		}
	}
	if seen != 1 {
		t.Fatalf("line-length appears %d times after merge, want 1", seen)
	}
	if ll.Max != 10 || ll.Severity != schema.SeverityHigh {
		t.Errorf("merged rule = %+v, want max 10 HIGH", ll)
	}
	if ll.Title == "" {
		t.Error("override with empty title must inherit the base title")
	}

	f := &facts.SourceFacts{FilePath: "app.py", Lines: []string{"a line over ten chars"}}
	got := applyOrFail(t, merged, f)
	lf := findingsFor(got, RuleLineLength)
	if len(lf) != 1 || lf[0].Severity != schema.SeverityHigh {
		t.Errorf("findings = %+v, want one HIGH under the tightened limit", lf)
	}
}

func TestMergeDisable(t *testing.T) {
	merged := Merge(Builtin(), []Rule{{ID: RuleMissingDocstring, Disabled: true}})
	f := &facts.SourceFacts{
		FilePath:  "app.py",
		Functions: []facts.FunctionFact{{Name: "bare", Line: 1}},
	}
	got := applyOrFail(t, merged, f)
	if n := len(findingsFor(got, RuleMissingDocstring)); n != 0 {
		t.Errorf("disabled rule produced %d findings", n)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	doc := `rules:
  - id: line-length
    max: 100
  - id: no-print
    pattern: '\bprint\('
    severity: LOW
    title: print statement in committed code
    suggestion: use the logger
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	rules, err := LoadFile(path, Builtin())
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}

	f := &facts.SourceFacts{FilePath: "app.py", Lines: []string{`print("hi")`}}
	got, err := Apply(rules, []*facts.SourceFacts{f})
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	np := findingsFor(got, "no-print")
	if len(np) != 1 || np[0].Severity != schema.SeverityLow {
		t.Errorf("no-print findings = %+v, want one LOW", np)
	}
}

func TestLoadFileRejectsMissingID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte("rules:\n  - pattern: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path, Builtin()); err == nil {
		t.Error("rule without id must be rejected")
	}
}

func TestApplyRejectsBadPattern(t *testing.T) {
	_, err := Apply([]Rule{{ID: "bad", Pattern: "("}}, nil)
	if err == nil {
		t.Error("invalid pattern must be rejected")
	}
}
