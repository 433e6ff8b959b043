package cache

import (
	"sync"
	"testing"

	"github.com/dshills/specverify/internal/facts"
)

func TestKeyDistinguishesInputs(t *testing.T) {
	base := Key("a.py", "python", "x = 1\n")
	if Key("b.py", "python", "x = 1\n") == base {
		t.Error("path must affect the key")
	}
	if Key("a.py", "javascript", "x = 1\n") == base {
		t.Error("language must affect the key")
	}
	if Key("a.py", "python", "x = 2\n") == base {
		t.Error("content must affect the key")
	}
	if Key("a.py", "python", "x = 1\n") != base {
		t.Error("identical inputs must yield identical keys")
	}
}

func TestStoreFirstWriteWins(t *testing.T) {
	s := New()
	k := Key("a.py", "python", "x = 1\n")

	if _, ok := s.Get(k); ok {
		t.Fatal("empty store reported a hit")
	}

	first := &facts.SourceFacts{FilePath: "a.py"}
	s.Put(k, first)
	s.Put(k, &facts.SourceFacts{FilePath: "other.py"})

	got, ok := s.Get(k)
	if !ok || got != first {
		t.Errorf("Get = %+v, want the first write preserved", got)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestStoreConcurrent(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k := Key("a.py", "python", "x = 1\n")
			s.Put(k, &facts.SourceFacts{FilePath: "a.py"})
			s.Get(k)
		}()
	}
	wg.Wait()
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}
