package engine

import (
	"context"
	"reflect"
	"testing"

	"go.uber.org/goleak"

	"github.com/dshills/specverify/internal/cache"
	"github.com/dshills/specverify/internal/schema"
	"github.com/dshills/specverify/internal/source"
	"github.com/dshills/specverify/internal/spec"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const loginSpec = `Requirements:
- The system accepts user logins.

Data Model:
- User: model

API Specification:
- POST /login
`

const cleanApp = `class User:
    """One account."""

    def __init__(self, name):
        self.name = name


def login(request):
    """Handle POST /login."""
    return route("/login", request)
`

func mustSpec(t *testing.T, doc string) *spec.Specification {
	t.Helper()
	s, err := spec.ParseText(doc)
	if err != nil {
		t.Fatalf("ParseText error: %v", err)
	}
	return s
}

func input(mode schema.Mode) schema.Input {
	return schema.Input{SpecSource: "spec.md", CodeRoot: ".", Mode: mode}
}

func TestFullCleanTreePasses(t *testing.T) {
	e := New(Options{})
	tree := source.NewMemTree(map[string]string{"app.py": cleanApp})
	r, err := e.Full(context.Background(), mustSpec(t, loginSpec), input(""), tree)
	if err != nil {
		t.Fatalf("Full error: %v", err)
	}
	if r.Status != schema.StatusPassed {
		t.Errorf("Status = %q, want PASSED; findings: %+v", r.Status, r.AllFindings())
	}
	if r.Input.Mode != schema.ModeFull {
		t.Errorf("Mode = %q, want full", r.Input.Mode)
	}
	if !r.Validation.Valid {
		t.Errorf("Validation = %+v, want valid", r.Validation)
	}
	if r.ThreatScore != 0 {
		t.Errorf("ThreatScore = %d, want 0", r.ThreatScore)
	}
	if len(r.PerformanceProfile) == 0 {
		t.Error("full run should profile every function")
	}
	if r.Meta.RunID == "" || r.Meta.FilesSeen != 1 {
		t.Errorf("Meta = %+v, want run id and one file seen", r.Meta)
	}
}

func TestFullMissingRouteFails(t *testing.T) {
	e := New(Options{})
	tree := source.NewMemTree(map[string]string{"app.py": `class User:
    """One account."""


def unrelated():
    """Does something else."""
    return 1
`})
	r, err := e.Full(context.Background(), mustSpec(t, loginSpec), input(""), tree)
	if err != nil {
		t.Fatalf("Full error: %v", err)
	}
	if r.Status != schema.StatusFailed {
		t.Errorf("Status = %q, want FAILED when a declared route is unimplemented", r.Status)
	}
	if r.Counts.Conformance.High != 1 {
		t.Errorf("conformance tally = %+v, want one HIGH", r.Counts.Conformance)
	}
}

func TestQuickRunsSecurityOnly(t *testing.T) {
	e := New(Options{})
	tree := source.NewMemTree(map[string]string{"app.py": `def handler(user_input):
    """Run it."""
    return eval(user_input)
`})
	r, err := e.Quick(context.Background(), mustSpec(t, loginSpec), input(""), tree)
	if err != nil {
		t.Fatalf("Quick error: %v", err)
	}
	if r.Input.Mode != schema.ModeQuick {
		t.Errorf("Mode = %q, want quick", r.Input.Mode)
	}
	if len(r.ConformanceFindings) != 0 || len(r.PerformanceProfile) != 0 || len(r.StandardsFindings) != 0 {
		t.Errorf("quick run produced non-security results: %+v", r)
	}
	if r.Counts.Security.Critical != 1 {
		t.Errorf("security tally = %+v, want one CRITICAL", r.Counts.Security)
	}
	if r.Status != schema.StatusFailed {
		t.Errorf("Status = %q, want FAILED on a CRITICAL finding", r.Status)
	}
	if r.ThreatScore < 10 {
		t.Errorf("ThreatScore = %d, want >= 10", r.ThreatScore)
	}
}

func TestFullDeterministic(t *testing.T) {
	e := New(Options{Workers: 3})
	tree := source.NewMemTree(map[string]string{
		"a.py": "def a():\n    eval(x)\n",
		"b.py": "def b():\n    eval(x)\n",
		"c.py": cleanApp,
	})
	s := mustSpec(t, loginSpec)

	run := func() *schema.Report {
		r, err := e.Full(context.Background(), s, input(""), tree)
		if err != nil {
			t.Fatalf("Full error: %v", err)
		}
		r.Meta = schema.Meta{}
		return r
	}
	if a, b := run(), run(); !reflect.DeepEqual(a, b) {
		t.Errorf("reports differ across identical runs:\n%+v\n%+v", a, b)
	}
}

func TestParseFailureSurfacesAsCritical(t *testing.T) {
	e := New(Options{})
	tree := source.NewMemTree(map[string]string{
		"app.py":    cleanApp,
		"broken.py": "def f(:\n",
	})
	r, err := e.Full(context.Background(), mustSpec(t, loginSpec), input(""), tree)
	if err != nil {
		t.Fatalf("Full error: %v", err)
	}
	if r.Status != schema.StatusFailed {
		t.Errorf("Status = %q, want FAILED on parse failure", r.Status)
	}
	if r.Meta.FilesError != 1 || r.Meta.FilesSeen != 2 {
		t.Errorf("Meta = %+v, want 2 seen, 1 error", r.Meta)
	}
	found := false
	for _, f := range r.StandardsFindings {
		if f.RuleID == "parse-failure" && f.File == "broken.py" && f.Severity == schema.SeverityCritical {
			found = true
		}
	}
	if !found {
		t.Errorf("StandardsFindings = %+v, want CRITICAL parse-failure for broken.py", r.StandardsFindings)
	}
}

func TestCancelledContext(t *testing.T) {
	e := New(Options{})
	tree := source.NewMemTree(map[string]string{"app.py": cleanApp})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Full(ctx, mustSpec(t, loginSpec), input(""), tree)
	if err == nil {
		t.Fatal("cancelled run must not produce a report")
	}
}

func TestCacheReused(t *testing.T) {
	store := cache.New()
	e := New(Options{Cache: store})
	tree := source.NewMemTree(map[string]string{"app.py": cleanApp})
	s := mustSpec(t, loginSpec)

	if _, err := e.Full(context.Background(), s, input(""), tree); err != nil {
		t.Fatalf("Full error: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("cache Len = %d after first run, want 1", store.Len())
	}
	r, err := e.Full(context.Background(), s, input(""), tree)
	if err != nil {
		t.Fatalf("Full error: %v", err)
	}
	if r.Status != schema.StatusPassed {
		t.Errorf("cached run Status = %q, want PASSED", r.Status)
	}
	if store.Len() != 1 {
		t.Errorf("cache Len = %d after second run, want still 1", store.Len())
	}
}
