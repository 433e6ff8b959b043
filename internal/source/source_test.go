package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestClassifyLanguage(t *testing.T) {
	cases := []struct {
		ext  string
		want string
	}{
		{".py", LangPython},
		{".pyw", LangPython},
		{".go", LangGo},
		{".js", LangJavaScript},
		{".mjs", LangJavaScript},
		{".rb", LangUnknown},
		{"", LangUnknown},
	}
	for _, c := range cases {
		if got := ClassifyLanguage(c.ext); got != c.want {
			t.Errorf("ClassifyLanguage(%q) = %q, want %q", c.ext, got, c.want)
		}
	}
}

func TestDirTreeWalkAndIgnore(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		t.Helper()
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("app/main.py", "print('hi')\n")
	write("app/util.js", "function f() {}\n")
	write("node_modules/dep/index.js", "ignored\n")
	write("generated/out.py", "ignored\n")
	write("README.md", "not source\n")

	tree, err := NewDirTree(root, []string{"generated"})
	if err != nil {
		t.Fatalf("NewDirTree error: %v", err)
	}

	files := tree.Files()
	if len(files) != 2 {
		t.Fatalf("Files() = %+v, want app/main.py and app/util.js", files)
	}
	if files[0].Path != "app/main.py" || files[0].Language != LangPython {
		t.Errorf("files[0] = %+v", files[0])
	}
	if files[1].Path != "app/util.js" || files[1].Language != LangJavaScript {
		t.Errorf("files[1] = %+v", files[1])
	}

	text, err := tree.Read("app/main.py")
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if text != "print('hi')\n" {
		t.Errorf("Read = %q", text)
	}
}

func TestMemTreeSortedAndMissing(t *testing.T) {
	tree := NewMemTree(map[string]string{
		"b.py": "pass\n",
		"a.py": "pass\n",
	})
	files := tree.Files()
	if len(files) != 2 || files[0].Path != "a.py" || files[1].Path != "b.py" {
		t.Errorf("Files() = %+v, want sorted a.py then b.py", files)
	}
	if _, err := tree.Read("missing.py"); err == nil {
		t.Error("Read(missing) should fail")
	}
}
