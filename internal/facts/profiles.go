package facts

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/dshills/specverify/internal/source"
)

// stringSet is a membership set of tree-sitter node type names.
type stringSet map[string]bool

// langProfile maps a language's tree-sitter grammar onto the node categories
// the extractor cares about. Adding a language means adding a profile, not
// changing the walker.
type langProfile struct {
	language *sitter.Language
	function stringSet // nodes that define a function or method
	class    stringSet // nodes that define a class or named type
	call     stringSet // call expressions
	str      stringSet // string literals
	loop     stringSet // loop statements
	branch   stringSet // non-loop nesting blocks (conditional/exception)
	importN  stringSet // import statements
	// hasDocstrings is true for languages where the first statement of a
	// body can be a documentation string (Python). Elsewhere a doc comment
	// preceding the definition counts.
	hasDocstrings bool
}

var profiles = map[string]*langProfile{
	source.LangPython: {
		language: python.GetLanguage(),
		function: stringSet{"function_definition": true},
		class:    stringSet{"class_definition": true},
		call:     stringSet{"call": true},
		str:      stringSet{"string": true},
		loop:     stringSet{"for_statement": true, "while_statement": true},
		branch: stringSet{
			"if_statement":    true,
			"try_statement":   true,
			"with_statement":  true,
			"match_statement": true,
		},
		importN:       stringSet{"import_statement": true, "import_from_statement": true},
		hasDocstrings: true,
	},
	source.LangGo: {
		language: golang.GetLanguage(),
		function: stringSet{"function_declaration": true, "method_declaration": true},
		class:    stringSet{"type_spec": true},
		call:     stringSet{"call_expression": true},
		str:      stringSet{"interpreted_string_literal": true, "raw_string_literal": true},
		loop:     stringSet{"for_statement": true},
		branch: stringSet{
			"if_statement":                true,
			"expression_switch_statement": true,
			"type_switch_statement":       true,
			"select_statement":            true,
		},
		importN: stringSet{"import_spec": true},
	},
	source.LangJavaScript: {
		language: javascript.GetLanguage(),
		function: stringSet{
			"function_declaration":           true,
			"generator_function_declaration": true,
			"method_definition":              true,
		},
		class: stringSet{"class_declaration": true},
		call:  stringSet{"call_expression": true},
		str:   stringSet{"string": true, "template_string": true},
		loop: stringSet{
			"for_statement":    true,
			"for_in_statement": true,
			"while_statement":  true,
			"do_statement":     true,
		},
		branch: stringSet{
			"if_statement":     true,
			"try_statement":    true,
			"switch_statement": true,
		},
		importN: stringSet{"import_statement": true},
	},
}

// SupportedLanguage reports whether lang has an extraction profile.
func SupportedLanguage(lang string) bool {
	_, ok := profiles[lang]
	return ok
}
