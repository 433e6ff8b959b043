package security

import (
	"testing"

	"github.com/dshills/specverify/internal/facts"
	"github.com/dshills/specverify/internal/schema"
)

func scanOne(f *facts.SourceFacts) []schema.Finding {
	return Scan([]*facts.SourceFacts{f}, Catalog())
}

func countSeverity(findings []schema.Finding, sev schema.Severity) int {
	n := 0
	for _, f := range findings {
		if f.Severity == sev {
			n++
		}
	}
	return n
}

func TestScanDynamicEvaluation(t *testing.T) {
	f := &facts.SourceFacts{
		FilePath: "app.py",
		CallSites: []facts.CallSite{
			{Callee: "eval", ArgsText: "(user_input)", Line: 12},
			{Callee: "print", ArgsText: "(user_input)", Line: 13},
		},
	}
	got := scanOne(f)
	if n := countSeverity(got, schema.SeverityCritical); n != 1 {
		t.Fatalf("critical findings = %d, want exactly 1: %+v", n, got)
	}
	var crit schema.Finding
	for _, fd := range got {
		if fd.Severity == schema.SeverityCritical {
			crit = fd
		}
	}
	if crit.Title != "dynamic code evaluation" {
		t.Errorf("Title = %q, want dynamic code evaluation", crit.Title)
	}
	if crit.File != "app.py" || crit.Line != 12 {
		t.Errorf("location = %s:%d, want app.py:12", crit.File, crit.Line)
	}
	if crit.RuleID != "dynamic-eval" {
		t.Errorf("RuleID = %q", crit.RuleID)
	}
	if score := ThreatScore(got); score < 10 {
		t.Errorf("ThreatScore = %d, want >= 10", score)
	}
}

func TestScanHardcodedSecretLine(t *testing.T) {
	f := &facts.SourceFacts{
		FilePath: "config.py",
		Lines: []string{
			`DEBUG = True`,
			`API_KEY = "sk-abcdef0123456789"`,
		},
	}
	got := scanOne(f)
	if len(got) != 1 {
		t.Fatalf("findings = %+v, want one", got)
	}
	if got[0].Severity != schema.SeverityHigh || got[0].RuleID != "hardcoded-secret" {
		t.Errorf("finding = %+v, want HIGH hardcoded-secret", got[0])
	}
	if got[0].Line != 2 {
		t.Errorf("Line = %d, want 2", got[0].Line)
	}
}

func TestScanSQLInterpolation(t *testing.T) {
	f := &facts.SourceFacts{
		FilePath: "db.py",
		CallSites: []facts.CallSite{
			{Callee: "cursor.execute", ArgsText: `(f"SELECT * FROM users WHERE id = {uid}")`, Line: 7},
			{Callee: "cursor.execute", ArgsText: `("SELECT * FROM users WHERE id = %s", (uid,))`, Line: 9},
		},
	}
	got := scanOne(f)
	if len(got) != 1 {
		t.Fatalf("findings = %+v, want the interpolated query only", got)
	}
	if got[0].RuleID != "sql-injection-fstring" || got[0].Line != 7 {
		t.Errorf("finding = %+v, want sql-injection-fstring at line 7", got[0])
	}
}

func TestScanSQLConcatenation(t *testing.T) {
	f := &facts.SourceFacts{
		FilePath: "db.py",
		CallSites: []facts.CallSite{
			{Callee: "cursor.execute", ArgsText: `("SELECT * FROM users WHERE id = " + uid)`, Line: 4},
		},
	}
	got := scanOne(f)
	if len(got) != 1 || got[0].RuleID != "sql-injection-concat" {
		t.Errorf("findings = %+v, want sql-injection-concat", got)
	}
}

func TestScanShellPatterns(t *testing.T) {
	f := &facts.SourceFacts{
		FilePath: "tasks.py",
		CallSites: []facts.CallSite{
			{Callee: "os.system", ArgsText: `("rm -rf " + path)`, Line: 3},
			{Callee: "subprocess.run", ArgsText: `(cmd, shell=True)`, Line: 5},
			{Callee: "subprocess.run", ArgsText: `(["ls", "-l"])`, Line: 6},
		},
	}
	got := scanOne(f)
	ids := map[string]int{}
	for _, fd := range got {
		ids[fd.RuleID]++
	}
	if ids["shell-command"] != 1 || ids["shell-true"] != 1 {
		t.Errorf("rule ids = %v, want shell-command and shell-true once each", ids)
	}
	if len(got) != 2 {
		t.Errorf("findings = %+v, want the list-args run left alone", got)
	}
}

func TestScanDeserializationAndHashing(t *testing.T) {
	f := &facts.SourceFacts{
		FilePath: "session.py",
		CallSites: []facts.CallSite{
			{Callee: "pickle.loads", ArgsText: "(blob)", Line: 2},
			{Callee: "hashlib.md5", ArgsText: "(pw.encode())", Line: 8},
			{Callee: "hashlib.sha256", ArgsText: "(pw.encode())", Line: 9},
		},
	}
	got := scanOne(f)
	ids := map[string]schema.Severity{}
	for _, fd := range got {
		ids[fd.RuleID] = fd.Severity
	}
	if ids["unsafe-deserialization"] != schema.SeverityHigh {
		t.Errorf("unsafe-deserialization = %q, want HIGH", ids["unsafe-deserialization"])
	}
	if ids["weak-hash"] != schema.SeverityMedium {
		t.Errorf("weak-hash = %q, want MEDIUM", ids["weak-hash"])
	}
	if len(got) != 2 {
		t.Errorf("findings = %+v, want sha256 left alone", got)
	}
}

func TestScanCleanFileScoresZero(t *testing.T) {
	f := &facts.SourceFacts{
		FilePath: "util.py",
		CallSites: []facts.CallSite{
			{Callee: "len", ArgsText: "(items)", Line: 1},
		},
		Lines: []string{"def size(items):", "    return len(items)"},
	}
	got := scanOne(f)
	if len(got) != 0 {
		t.Fatalf("findings = %+v, want none", got)
	}
	if ThreatScore(got) != 0 {
		t.Error("empty findings must score 0")
	}
}

func TestThreatScoreWeights(t *testing.T) {
	findings := []schema.Finding{
		{Severity: schema.SeverityCritical},
		{Severity: schema.SeverityHigh},
		{Severity: schema.SeverityMedium},
		{Severity: schema.SeverityLow},
		{Severity: schema.SeverityInfo},
	}
	if got := ThreatScore(findings); got != 18 {
		t.Errorf("ThreatScore = %d, want 18 (10+5+2+1+0)", got)
	}
}
