// Package facts extracts a language-agnostic structural snapshot from a
// source file: functions, classes, imports, string literals, call sites, and
// control-flow shape. Every analyzer consumes the same SourceFacts by
// read-only reference; nothing here is mutated after extraction.
package facts

import "fmt"

// Param is one function parameter.
type Param struct {
	Name     string `json:"name"`
	TypeHint string `json:"type_hint,omitempty"`
}

// FunctionFact is the structural snapshot of one function or method.
type FunctionFact struct {
	Name            string  `json:"name"`
	Class           string  `json:"class,omitempty"` // enclosing class, "" for top-level
	Line            int     `json:"line"`
	Params          []Param `json:"params"`
	ReturnType      string  `json:"return_type,omitempty"`
	HasDocstring    bool    `json:"has_docstring"`
	MaxNestingDepth int     `json:"max_nesting_depth"` // loops + conditionals + exception blocks
	MaxLoopDepth    int     `json:"max_loop_depth"`    // loop-only nesting, drives complexity estimation
	HasRecursion    bool    `json:"has_recursion"`
	// HasMemoization is true when the body calls a cache-shaped callee or the
	// definition carries a cache-shaped decorator (e.g. lru_cache).
	HasMemoization bool `json:"has_memoization"`
	LoopCount       int     `json:"loop_count"`
	BodyLineCount   int     `json:"body_line_count"`
}

// QualifiedName returns "Class.Name" for methods and "Name" otherwise.
func (f FunctionFact) QualifiedName() string {
	if f.Class != "" {
		return f.Class + "." + f.Name
	}
	return f.Name
}

// ClassFact is the structural snapshot of one class (or named type).
type ClassFact struct {
	Name         string   `json:"name"`
	Line         int      `json:"line"`
	Methods      []string `json:"methods,omitempty"`
	HasDocstring bool     `json:"has_docstring"`
}

// StringLiteral is one string literal with its quote characters stripped.
type StringLiteral struct {
	Value string `json:"value"`
	Line  int    `json:"line"`
}

// CallSite is one call expression. Callee is the full callee text
// ("eval", "os.system", "db.execute"); ArgsText is the argument list text
// including parentheses content.
type CallSite struct {
	Callee   string `json:"callee_name"`
	ArgsText string `json:"args_text"`
	Line     int    `json:"line"`
}

// SourceFacts is the per-file immutable snapshot. It is owned by the
// extraction step that created it and passed by read-only reference to every
// analyzer; no analyzer may mutate it.
type SourceFacts struct {
	FilePath       string          `json:"file_path"`
	Language       string          `json:"language"`
	Functions      []FunctionFact  `json:"functions"`
	Classes        []ClassFact     `json:"classes"`
	Imports        []string        `json:"imports"` // sorted, deduplicated
	StringLiterals []StringLiteral `json:"string_literals"`
	CallSites      []CallSite      `json:"call_sites"`
	// Lines holds the raw source split by newline so analyzers can run
	// textual patterns against raw source without re-reading the file.
	Lines []string `json:"-"`
}

// UnparsableSourceError indicates one file's structural parse failed. The
// engine downgrades it to a CRITICAL standards finding and continues with
// the remaining files.
type UnparsableSourceError struct {
	Path   string
	Reason string
}

func (e *UnparsableSourceError) Error() string {
	return fmt.Sprintf("facts: %s: %s", e.Path, e.Reason)
}
