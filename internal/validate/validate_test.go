package validate

import (
	"reflect"
	"strings"
	"testing"

	"github.com/dshills/specverify/internal/spec"
)

func mustParse(t *testing.T, doc string) *spec.Specification {
	t.Helper()
	s, err := spec.ParseText(doc)
	if err != nil {
		t.Fatalf("ParseText error: %v", err)
	}
	return s
}

func TestCheckValidSpec(t *testing.T) {
	s := mustParse(t, `Requirements:
- must store users

Constraints:
- latency < 100ms

Data Model:
- User: model

API Specification:
- GET /users
`)
	v := Check(s)
	if !v.Valid {
		t.Fatalf("Valid = false, errors = %v", v.Errors)
	}
	if len(v.Errors) != 0 {
		t.Errorf("Errors = %v, want none", v.Errors)
	}
}

func TestCheckEmptyRequirements(t *testing.T) {
	// A Requirements header with zero list items yields exactly one error
	// mentioning "requirements".
	s := mustParse(t, "Requirements:\n\nData Model:\n- User: model\n")
	v := Check(s)
	if v.Valid {
		t.Fatal("Valid = true for spec without requirements")
	}
	if len(v.Errors) != 1 {
		t.Fatalf("Errors = %v, want exactly one", v.Errors)
	}
	if !strings.Contains(strings.ToLower(v.Errors[0]), "requirements") {
		t.Errorf("error %q should mention requirements", v.Errors[0])
	}
}

func TestCheckFreeTextConstraintWarns(t *testing.T) {
	s := mustParse(t, "Requirements:\n- r1\n\nConstraints:\n- should be nice to read\n")
	v := Check(s)
	if !v.Valid {
		t.Fatalf("free-text constraint must not invalidate: %v", v.Errors)
	}
	found := false
	for _, w := range v.Warnings {
		if strings.Contains(w, "free text") {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings = %v, want free-text constraint note", v.Warnings)
	}
}

func TestCheckDuplicateRequirementWarnsOnce(t *testing.T) {
	s := mustParse(t, "Requirements:\n- same thing\n- same thing\n")
	v := Check(s)
	if !v.Valid {
		t.Fatalf("duplicates must not invalidate: %v", v.Errors)
	}
	n := 0
	for _, w := range v.Warnings {
		if strings.Contains(w, "appears 2 times") {
			n++
		}
	}
	if n != 1 {
		t.Errorf("duplicate warning count = %d, want 1 (warnings %v)", n, v.Warnings)
	}
}

func TestCheckEmptyTypeName(t *testing.T) {
	s := mustParse(t, "Requirements:\n- r1\n\nData Model:\n- User:\n")
	v := Check(s)
	if v.Valid {
		t.Fatal("empty type name must invalidate")
	}
}

func TestCheckDeterministic(t *testing.T) {
	// Re-validating the same Specification twice yields identical verdicts.
	s := mustParse(t, "Requirements:\n- r1\n- r1\n\nConstraints:\n- opaque constraint\n")
	v1 := Check(s)
	v2 := Check(s)
	if !reflect.DeepEqual(v1, v2) {
		t.Errorf("verdicts differ:\n%+v\n%+v", v1, v2)
	}
}
