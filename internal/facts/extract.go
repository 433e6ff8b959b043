package facts

import (
	"context"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Extract parses one source file and walks its tree to build SourceFacts.
// lang is a source.Lang* tag; unsupported languages and files that fail to
// parse structurally return *UnparsableSourceError.
//
// Extraction is deterministic: the same text always yields an identical
// snapshot. Each call uses its own parser, so Extract is safe to run
// concurrently across files.
func Extract(ctx context.Context, path, lang, text string) (*SourceFacts, error) {
	prof, ok := profiles[lang]
	if !ok {
		return nil, &UnparsableSourceError{Path: path, Reason: "unsupported language " + lang}
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(prof.language)

	src := []byte(text)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, &UnparsableSourceError{Path: path, Reason: err.Error()}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, &UnparsableSourceError{Path: path, Reason: "syntax error at line " + firstErrorLine(root)}
	}

	e := &extractor{prof: prof, src: src}
	e.collect(root)
	e.definitions(root, "")

	imports := make([]string, 0, len(e.imports))
	for imp := range e.imports {
		imports = append(imports, imp)
	}
	sort.Strings(imports)

	return &SourceFacts{
		FilePath:       path,
		Language:       lang,
		Functions:      e.functions,
		Classes:        e.classes,
		Imports:        imports,
		StringLiterals: e.literals,
		CallSites:      e.calls,
		Lines:          strings.Split(text, "\n"),
	}, nil
}

// firstErrorLine locates the first ERROR or missing node for diagnostics.
func firstErrorLine(n *sitter.Node) string {
	if n.Type() == "ERROR" || n.IsMissing() {
		return itoa(int(n.StartPoint().Row) + 1)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.HasError() {
			return firstErrorLine(c)
		}
	}
	return itoa(int(n.StartPoint().Row) + 1)
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	var b [20]byte
	i := len(b)
	for v > 0 {
		i--
		b[i] = byte('0' + v%10)
		v /= 10
	}
	return string(b[i:])
}

type extractor struct {
	prof *langProfile
	src  []byte

	imports   map[string]bool
	literals  []StringLiteral
	calls     []CallSite
	functions []FunctionFact
	classes   []ClassFact
}

func (e *extractor) text(n *sitter.Node) string {
	return n.Content(e.src)
}

func line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// collect gathers the file-wide fact streams: imports, string literals, and
// call sites. Literal subtrees are not re-entered (a template string's inner
// fragments are part of one literal); call argument subtrees are, so nested
// calls and literals inside arguments are still seen.
func (e *extractor) collect(n *sitter.Node) {
	if e.imports == nil {
		e.imports = map[string]bool{}
	}
	t := n.Type()
	switch {
	case e.prof.importN[t]:
		e.recordImport(n)
		return
	case e.prof.str[t]:
		e.literals = append(e.literals, StringLiteral{
			Value: trimQuotes(e.text(n)),
			Line:  line(n),
		})
		return
	case e.prof.call[t]:
		callee := n.ChildByFieldName("function")
		args := n.ChildByFieldName("arguments")
		cs := CallSite{Line: line(n)}
		if callee != nil {
			cs.Callee = e.text(callee)
		}
		if args != nil {
			// Strip only the argument list's own parentheses; a cutset trim
			// would also eat the closing paren of a trailing nested call.
			t := strings.TrimPrefix(e.text(args), "(")
			cs.ArgsText = strings.TrimSuffix(t, ")")
		}
		if cs.Callee != "" {
			e.calls = append(e.calls, cs)
		}
		// Fall through into children: arguments may hold nested calls
		// and literals.
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		e.collect(n.NamedChild(i))
	}
}

// recordImport normalizes an import statement into one or more module names.
func (e *extractor) recordImport(n *sitter.Node) {
	switch n.Type() {
	case "import_from_statement":
		// Python "from X import ..." — only the module name is an import.
		if mod := n.ChildByFieldName("module_name"); mod != nil {
			e.imports[e.text(mod)] = true
		}
	case "import_statement":
		// JS import_statement has a "source" field; Python lists dotted
		// names and aliases as children.
		if src := n.ChildByFieldName("source"); src != nil {
			e.imports[trimQuotes(e.text(src))] = true
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			switch c.Type() {
			case "dotted_name", "relative_import":
				e.imports[e.text(c)] = true
			case "aliased_import":
				if name := c.ChildByFieldName("name"); name != nil {
					e.imports[e.text(name)] = true
				}
			}
		}
	case "import_spec":
		// Go: the path is a quoted string literal.
		if p := n.ChildByFieldName("path"); p != nil {
			e.imports[trimQuotes(e.text(p))] = true
		} else {
			e.imports[trimQuotes(e.text(n))] = true
		}
	default:
		e.imports[e.text(n)] = true
	}
}

// definitions walks the tree extracting function and class facts. class is
// the name of the nearest enclosing class ("" at top level).
func (e *extractor) definitions(n *sitter.Node, class string) {
	t := n.Type()
	switch {
	case e.prof.class[t]:
		name := e.className(n)
		if name != "" {
			cf := ClassFact{
				Name:         name,
				Line:         line(n),
				HasDocstring: e.hasDocstring(n),
			}
			// Collect method names one definition level down, then recurse
			// with the class as context.
			body := n.ChildByFieldName("body")
			if body != nil {
				for i := 0; i < int(body.NamedChildCount()); i++ {
					c := body.NamedChild(i)
					if c.Type() == "decorated_definition" {
						if def := c.ChildByFieldName("definition"); def != nil {
							c = def
						}
					}
					if e.prof.function[c.Type()] {
						if fn := c.ChildByFieldName("name"); fn != nil {
							cf.Methods = append(cf.Methods, e.text(fn))
						}
					}
				}
			}
			e.classes = append(e.classes, cf)
			if body != nil {
				for i := 0; i < int(body.NamedChildCount()); i++ {
					e.definitions(body.NamedChild(i), name)
				}
			}
			return
		}
	case e.prof.function[t]:
		e.functions = append(e.functions, e.functionFact(n, class))
		// Nested definitions are reported as their own facts.
		if body := n.ChildByFieldName("body"); body != nil {
			for i := 0; i < int(body.NamedChildCount()); i++ {
				e.definitions(body.NamedChild(i), class)
			}
		}
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		e.definitions(n.NamedChild(i), class)
	}
}

// className extracts the declared name of a class-ish node.
func (e *extractor) className(n *sitter.Node) string {
	if f := n.ChildByFieldName("name"); f != nil {
		return e.text(f)
	}
	return ""
}

// functionFact builds the FunctionFact for one function definition node.
func (e *extractor) functionFact(n *sitter.Node, class string) FunctionFact {
	f := FunctionFact{Class: class, Line: line(n)}
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		f.Name = e.text(nameNode)
	}
	// Go methods carry their receiver type as the "class".
	if n.Type() == "method_declaration" {
		if recv := goReceiverType(e, n); recv != "" {
			f.Class = recv
		}
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		f.Params = e.params(params)
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		f.ReturnType = e.text(ret)
	} else if ret := n.ChildByFieldName("result"); ret != nil {
		f.ReturnType = e.text(ret)
	}
	f.HasDocstring = e.hasDocstring(n)

	if body := n.ChildByFieldName("body"); body != nil {
		f.BodyLineCount = int(body.EndPoint().Row) - int(body.StartPoint().Row) + 1
		m := bodyMetrics{prof: e.prof, src: e.src, selfName: f.Name}
		m.walk(body, 0, 0)
		f.MaxNestingDepth = m.maxDepth
		f.MaxLoopDepth = m.maxLoopDepth
		f.LoopCount = m.loopCount
		f.HasRecursion = m.recursive
		f.HasMemoization = m.memoized
	}
	if !f.HasMemoization && e.memoDecorated(n) {
		f.HasMemoization = true
	}
	return f
}

// memoDecorated reports whether a definition is wrapped in a cache-shaped
// decorator such as functools.lru_cache or functools.cache.
func (e *extractor) memoDecorated(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil || parent.Type() != "decorated_definition" {
		return false
	}
	for i := 0; i < int(parent.NamedChildCount()); i++ {
		c := parent.NamedChild(i)
		if c.Type() != "decorator" {
			continue
		}
		t := strings.ToLower(e.text(c))
		if strings.Contains(t, "cache") || strings.Contains(t, "memo") {
			return true
		}
	}
	return false
}

// goReceiverType returns the receiver's base type name for a Go method
// declaration, stripping pointers and parentheses.
func goReceiverType(e *extractor, n *sitter.Node) string {
	recv := n.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	t := strings.Trim(e.text(recv), "()")
	fields := strings.Fields(t)
	if len(fields) == 0 {
		return ""
	}
	typ := fields[len(fields)-1]
	typ = strings.TrimPrefix(typ, "*")
	// Drop generic type arguments: "List[T]" → "List".
	if idx := strings.IndexByte(typ, '['); idx > 0 {
		typ = typ[:idx]
	}
	return typ
}

// params extracts parameter facts from a parameter-list node. The shape
// varies by grammar; the fallbacks keep this language-neutral.
func (e *extractor) params(paramsNode *sitter.Node) []Param {
	var out []Param
	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		c := paramsNode.NamedChild(i)
		switch c.Type() {
		case "identifier":
			out = append(out, Param{Name: e.text(c)})
		case "comment":
			continue
		default:
			p := Param{}
			if nf := c.ChildByFieldName("name"); nf != nil {
				p.Name = e.text(nf)
			} else if c.NamedChildCount() > 0 && c.NamedChild(0).Type() == "identifier" {
				p.Name = e.text(c.NamedChild(0))
			} else {
				p.Name = e.text(c)
			}
			if tf := c.ChildByFieldName("type"); tf != nil {
				p.TypeHint = e.text(tf)
			}
			out = append(out, p)
		}
	}
	return out
}

// hasDocstring reports whether a definition node carries documentation: for
// Python, a leading string expression in the body; elsewhere, a comment node
// ending on the line directly above the definition.
func (e *extractor) hasDocstring(n *sitter.Node) bool {
	if e.prof.hasDocstrings {
		body := n.ChildByFieldName("body")
		if body == nil || body.NamedChildCount() == 0 {
			return false
		}
		first := body.NamedChild(0)
		if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
			return false
		}
		return first.NamedChild(0).Type() == "string"
	}
	prev := n.PrevNamedSibling()
	if prev == nil || prev.Type() != "comment" {
		return false
	}
	return int(prev.EndPoint().Row)+1 == int(n.StartPoint().Row)
}

// bodyMetrics accumulates control-flow shape for one function body. Nested
// function and class definitions are skipped; they produce their own facts.
type bodyMetrics struct {
	prof     *langProfile
	src      []byte
	selfName string

	maxDepth     int
	maxLoopDepth int
	loopCount    int
	recursive    bool
	memoized     bool
}

func (m *bodyMetrics) walk(n *sitter.Node, depth, loopDepth int) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		t := c.Type()
		if m.prof.function[t] || m.prof.class[t] {
			continue
		}
		childDepth, childLoopDepth := depth, loopDepth
		switch {
		case m.prof.loop[t]:
			m.loopCount++
			childDepth++
			childLoopDepth++
		case m.prof.branch[t]:
			childDepth++
		case m.prof.call[t]:
			if callee := c.ChildByFieldName("function"); callee != nil {
				name := m.calleeText(callee)
				if name == m.selfName || strings.HasSuffix(name, "."+m.selfName) {
					m.recursive = true
				}
				lower := strings.ToLower(name)
				if strings.Contains(lower, "cache") || strings.Contains(lower, "memo") {
					m.memoized = true
				}
			}
		}
		if childDepth > m.maxDepth {
			m.maxDepth = childDepth
		}
		if childLoopDepth > m.maxLoopDepth {
			m.maxLoopDepth = childLoopDepth
		}
		m.walk(c, childDepth, childLoopDepth)
	}
}

func (m *bodyMetrics) calleeText(n *sitter.Node) string {
	return n.Content(m.src)
}

// trimQuotes strips string-literal prefixes (r, b, u, f in any combination)
// and the surrounding quote characters, handling triple quotes, single and
// double quotes, backticks, and Go raw strings.
func trimQuotes(s string) string {
	// Strip Python literal prefixes before the opening quote.
	i := 0
	for i < len(s) && i < 3 {
		switch s[i] {
		case 'r', 'R', 'b', 'B', 'u', 'U', 'f', 'F':
			i++
			continue
		}
		break
	}
	if i > 0 && i < len(s) && (s[i] == '"' || s[i] == '\'') {
		s = s[i:]
	}
	for _, q := range []string{`"""`, "'''"} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'' || first == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
