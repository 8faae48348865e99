//go:build cgo

package pyscan

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"vulnmap/internal/rules"
)

// Scanner parses Python sources with tree-sitter and extracts imports,
// rule matches, and route declarations.
type Scanner struct {
	rules *rules.RuleSet
}

// NewScanner creates a scanner over the given rule set.
func NewScanner(rs *rules.RuleSet) *Scanner {
	return &Scanner{rules: rs}
}

// ScanFile parses one file. A file that does not parse produces a
// ScanFailure instead of a record.
func (s *Scanner) ScanFile(ctx context.Context, path string, text []byte) (*FileRecord, *ScanFailure) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, text)
	if err != nil {
		return nil, &ScanFailure{Path: path, Reason: err.Error()}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, &ScanFailure{Path: path, Reason: "syntax error"}
	}

	record := &FileRecord{
		ModuleID: ModuleIDFromPath(path),
		Path:     path,
		Lines:    countLines(text),
	}

	w := &walker{rules: s.rules, source: text, lines: strings.Split(string(text), "\n"), record: record}
	w.walk(root)

	return record, nil
}

type walker struct {
	rules  *rules.RuleSet
	source []byte
	lines  []string
	record *FileRecord
}

func (w *walker) lineAt(node *sitter.Node) (int, string) {
	row := int(node.StartPoint().Row)
	line := row + 1
	if row >= 0 && row < len(w.lines) {
		return line, snippetOf(w.lines[row])
	}
	return line, ""
}

func (w *walker) walk(node *sitter.Node) {
	switch node.Type() {
	case "import_statement":
		w.visitImport(node)
		return
	case "import_from_statement":
		w.visitImportFrom(node)
		return
	case "call":
		w.visitCall(node)
	case "decorated_definition":
		w.visitDecorated(node)
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		w.walk(node.NamedChild(i))
	}
}

// visitImport handles "import a.b as c, d" statements.
func (w *walker) visitImport(node *sitter.Node) {
	line, snippet := w.lineAt(node)
	raw := node.Content(w.source)

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		var module, alias string
		switch child.Type() {
		case "dotted_name":
			module = child.Content(w.source)
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				module = name.Content(w.source)
			}
			if al := child.ChildByFieldName("alias"); al != nil {
				alias = al.Content(w.source)
			}
		default:
			continue
		}

		w.record.Imports = append(w.record.Imports, ImportDecl{
			Raw:    raw,
			Module: module,
			Alias:  alias,
			Line:   line,
		})
		if match := matchImportModule(w.rules, module, line, snippet); match != nil {
			w.record.Matches = append(w.record.Matches, *match)
		}
	}
}

// visitImportFrom handles "from .pkg import a, b as c" statements.
func (w *walker) visitImportFrom(node *sitter.Node) {
	line, snippet := w.lineAt(node)
	raw := node.Content(w.source)

	var module string
	var dots int
	var moduleStart uint32
	if mod := node.ChildByFieldName("module_name"); mod != nil {
		moduleStart = mod.StartByte()
		target := mod.Content(w.source)
		for dots < len(target) && target[dots] == '.' {
			dots++
		}
		module = target[dots:]
	}

	var names []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.StartByte() == moduleStart {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			names = append(names, child.Content(w.source))
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				names = append(names, name.Content(w.source))
			}
		case "wildcard_import":
			names = append(names, "*")
		}
	}

	w.record.Imports = append(w.record.Imports, ImportDecl{
		Raw:    raw,
		Module: module,
		Names:  names,
		Dots:   dots,
		Line:   line,
	})
	if dots == 0 && module != "" {
		if match := matchImportModule(w.rules, module, line, snippet); match != nil {
			w.record.Matches = append(w.record.Matches, *match)
		}
	}
}

// visitCall applies the call, SQL, and subprocess rule tables to one
// call expression.
func (w *walker) visitCall(node *sitter.Node) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return
	}
	callee := dottedName(fn, w.source)
	if callee == "" {
		return
	}

	line, snippet := w.lineAt(node)
	templated := false
	shellEnabled := false

	if args := node.ChildByFieldName("arguments"); args != nil {
		for i := 0; i < int(args.NamedChildCount()); i++ {
			arg := args.NamedChild(i)
			if arg.Type() == "keyword_argument" {
				name := arg.ChildByFieldName("name")
				value := arg.ChildByFieldName("value")
				if name != nil && value != nil && name.Content(w.source) == "shell" && value.Content(w.source) == "True" {
					shellEnabled = true
				}
				continue
			}
			if i == 0 && isTemplatedString(arg, w.source) {
				templated = true
			}
		}
	}

	w.record.Matches = append(w.record.Matches,
		matchCallee(w.rules, callee, templated, shellEnabled, line, snippet)...)
}

// visitDecorated inspects the decorators of a function or class
// definition for route registrations.
func (w *walker) visitDecorated(node *sitter.Node) {
	function := ""
	if def := node.ChildByFieldName("definition"); def != nil {
		if name := def.ChildByFieldName("name"); name != nil {
			function = name.Content(w.source)
		}
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "decorator" {
			continue
		}
		w.visitDecorator(child, function)
	}
}

func (w *walker) visitDecorator(node *sitter.Node, function string) {
	expr := node.NamedChild(0)
	if expr == nil {
		return
	}

	var nameNode, argsNode *sitter.Node
	if expr.Type() == "call" {
		nameNode = expr.ChildByFieldName("function")
		argsNode = expr.ChildByFieldName("arguments")
	} else {
		nameNode = expr
	}
	if nameNode == nil {
		return
	}

	decorator := dottedName(nameNode, w.source)
	fw := w.rules.MatchRouteDecorator(decorator)
	if fw == nil {
		return
	}

	route := ""
	var explicit []string
	if argsNode != nil {
		for i := 0; i < int(argsNode.NamedChildCount()); i++ {
			arg := argsNode.NamedChild(i)
			switch arg.Type() {
			case "string":
				if route == "" {
					route = stripQuotes(arg.Content(w.source))
				}
			case "keyword_argument":
				name := arg.ChildByFieldName("name")
				value := arg.ChildByFieldName("value")
				if name != nil && value != nil && name.Content(w.source) == "methods" {
					explicit = stringListItems(value, w.source)
				}
			}
		}
	}

	line, _ := w.lineAt(node)
	w.record.EntryPoints = append(w.record.EntryPoints, EntryPointDecl{
		Framework: fw.Name,
		Route:     route,
		Methods:   routeMethods(fw, decorator, explicit),
		Function:  function,
		Line:      line,
	})
}

// dottedName flattens an identifier or attribute chain into dotted
// form. Non-name segments (calls, subscripts) are dropped so
// cursor().execute still yields "execute".
func dottedName(node *sitter.Node, source []byte) string {
	switch node.Type() {
	case "identifier":
		return node.Content(source)
	case "attribute":
		attr := node.ChildByFieldName("attribute")
		if attr == nil {
			return ""
		}
		obj := node.ChildByFieldName("object")
		if obj != nil {
			if prefix := dottedName(obj, source); prefix != "" {
				return prefix + "." + attr.Content(source)
			}
		}
		return attr.Content(source)
	default:
		return ""
	}
}

// isTemplatedString reports whether an expression builds a string by
// interpolation: an f-string, percent or plus composition over a
// string, or a str.format call.
func isTemplatedString(node *sitter.Node, source []byte) bool {
	switch node.Type() {
	case "string":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if node.NamedChild(i).Type() == "interpolation" {
				return true
			}
		}
		return false
	case "binary_operator":
		op := node.ChildByFieldName("operator")
		if op == nil {
			return false
		}
		if t := op.Content(source); t != "+" && t != "%" {
			return false
		}
		left := node.ChildByFieldName("left")
		right := node.ChildByFieldName("right")
		return (left != nil && containsString(left, source)) || (right != nil && containsString(right, source))
	case "call":
		fn := node.ChildByFieldName("function")
		if fn == nil || fn.Type() != "attribute" {
			return false
		}
		attr := fn.ChildByFieldName("attribute")
		return attr != nil && attr.Content(source) == "format"
	case "concatenated_string":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if isTemplatedString(node.NamedChild(i), source) {
				return true
			}
		}
		return false
	}
	return false
}

func containsString(node *sitter.Node, source []byte) bool {
	if node.Type() == "string" || node.Type() == "concatenated_string" {
		return true
	}
	if node.Type() == "binary_operator" {
		left := node.ChildByFieldName("left")
		right := node.ChildByFieldName("right")
		return (left != nil && containsString(left, source)) || (right != nil && containsString(right, source))
	}
	return false
}

func stripQuotes(s string) string {
	s = strings.TrimLeft(s, "rbfuRBFU")
	s = strings.Trim(s, `"'`)
	return s
}

// stringListItems extracts string literals from a list expression, for
// methods=["GET", "POST"] style arguments.
func stringListItems(node *sitter.Node, source []byte) []string {
	if node.Type() != "list" && node.Type() != "tuple" {
		return nil
	}
	var items []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "string" {
			items = append(items, stripQuotes(child.Content(source)))
		}
	}
	return items
}
