// Package source provides the source-tree accessor boundary: a capability
// that enumerates files under a root and returns each file's text with a
// declared-language tag. The verification core never walks the filesystem
// itself beyond calling this interface.
package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Language tags understood by the fact extractor. Files in other languages
// are enumerated but skipped by extraction.
const (
	LangPython     = "python"
	LangGo         = "go"
	LangJavaScript = "javascript"
	LangUnknown    = "unknown"
)

// File is one enumerated source file.
type File struct {
	Path     string // relative to the tree root, slash-separated
	Language string
}

// Tree enumerates source files and serves their content.
type Tree interface {
	// Files returns the enumerated files sorted by path.
	Files() []File
	// Read returns the text of the file at the given relative path.
	Read(path string) (string, error)
}

// maxFileSize is the largest file the directory tree will serve; bigger
// files are skipped during enumeration.
const maxFileSize = 1 << 20 // 1 MB

// defaultIgnore is the default set of directory names to skip. Matching is
// against directory base names only, not full paths.
var defaultIgnore = map[string]bool{
	".git":         true,
	"vendor":       true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	"dist":         true,
	"build":        true,
}

// ClassifyLanguage returns the language tag for a file extension.
func ClassifyLanguage(ext string) string {
	switch ext {
	case ".py", ".pyw":
		return LangPython
	case ".go":
		return LangGo
	case ".js", ".jsx", ".mjs":
		return LangJavaScript
	default:
		return LangUnknown
	}
}

// DirTree is a Tree backed by a directory on disk. Enumeration happens once
// at construction; Read serves file content on demand.
type DirTree struct {
	root  string
	files []File
}

// NewDirTree walks root and enumerates analyzable files. ignorePatterns
// supplements the default ignore list; entries are matched against directory
// base names.
func NewDirTree(root string, ignorePatterns []string) (*DirTree, error) {
	extra := make(map[string]bool, len(ignorePatterns))
	for _, p := range ignorePatterns {
		extra[p] = true
	}

	var files []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if (defaultIgnore[d.Name()] || extra[d.Name()]) && path != root {
				return fs.SkipDir
			}
			return nil
		}
		lang := ClassifyLanguage(filepath.Ext(d.Name()))
		if lang == LangUnknown {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil || info.Size() > maxFileSize {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		files = append(files, File{Path: filepath.ToSlash(rel), Language: lang})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("source: walk %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return &DirTree{root: root, files: files}, nil
}

// Files returns the enumerated files sorted by path.
func (t *DirTree) Files() []File {
	return append([]File(nil), t.files...)
}

// Read returns the text of the file at the given relative path.
func (t *DirTree) Read(path string) (string, error) {
	data, err := os.ReadFile(filepath.Join(t.root, filepath.FromSlash(path)))
	if err != nil {
		return "", fmt.Errorf("source: read %s: %w", path, err)
	}
	return string(data), nil
}

// MemTree is an in-memory Tree keyed by relative path. It exists for tests
// and for callers that already hold file content (e.g., editor buffers).
type MemTree struct {
	content map[string]string
}

// NewMemTree builds a MemTree from a path → content map. Languages are
// classified from path extensions.
func NewMemTree(content map[string]string) *MemTree {
	copied := make(map[string]string, len(content))
	for k, v := range content {
		copied[k] = v
	}
	return &MemTree{content: copied}
}

// Files returns the enumerated files sorted by path.
func (t *MemTree) Files() []File {
	out := make([]File, 0, len(t.content))
	for path := range t.content {
		out = append(out, File{Path: path, Language: ClassifyLanguage(filepath.Ext(path))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Read returns the text of the file at the given relative path.
func (t *MemTree) Read(path string) (string, error) {
	text, ok := t.content[path]
	if !ok {
		return "", fmt.Errorf("source: read %s: %w", path, fs.ErrNotExist)
	}
	return text, nil
}

// Describe returns a short human-readable summary of a tree, used in logs.
func Describe(t Tree) string {
	files := t.Files()
	byLang := map[string]int{}
	for _, f := range files {
		byLang[f.Language]++
	}
	langs := make([]string, 0, len(byLang))
	for l := range byLang {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d files", len(files))
	for _, l := range langs {
		fmt.Fprintf(&sb, ", %s=%d", l, byLang[l])
	}
	return sb.String()
}
