// Package pyscan turns Python source files into structural records:
// declared imports, dangerous-pattern matches, and route declarations.
package pyscan

import (
	"sort"
	"strings"

	"vulnmap/internal/rules"
)

// ImportDecl is one imported target from an import or from-import
// statement, with the syntactic hints import resolution needs.
type ImportDecl struct {
	Raw    string   `json:"raw"`
	Module string   `json:"module"`
	Names  []string `json:"names,omitempty"`
	Dots   int      `json:"dots,omitempty"`
	Alias  string   `json:"alias,omitempty"`
	Line   int      `json:"line"`
}

// PatternMatch is a single rule hit inside a file.
type PatternMatch struct {
	Rule     string         `json:"rule"`
	Kind     string         `json:"kind"`
	Severity rules.Severity `json:"severity"`
	Callee   string         `json:"callee,omitempty"`
	Line     int            `json:"line"`
	Snippet  string         `json:"snippet"`
}

// EntryPointDecl is a route registration found on a function.
type EntryPointDecl struct {
	Framework string   `json:"framework"`
	Route     string   `json:"route"`
	Methods   []string `json:"methods"`
	Function  string   `json:"function"`
	Line      int      `json:"line"`
}

// FileRecord is the scan output for one successfully parsed file.
type FileRecord struct {
	ModuleID    string           `json:"moduleId"`
	Path        string           `json:"path"`
	Lines       int              `json:"lines"`
	Imports     []ImportDecl     `json:"imports"`
	Matches     []PatternMatch   `json:"matches"`
	EntryPoints []EntryPointDecl `json:"entryPoints"`
}

// IsEntryPoint reports whether the file declares at least one route.
func (r *FileRecord) IsEntryPoint() bool {
	return len(r.EntryPoints) > 0
}

// ScanFailure records a file the scanner could not parse. Non-fatal;
// the file is excluded from the graph but the run continues.
type ScanFailure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ModuleIDFromPath derives the dotted module identifier from a
// project-relative file path. Package initializers resolve to their
// directory's module.
func ModuleIDFromPath(path string) string {
	id := strings.TrimSuffix(strings.ReplaceAll(path, "/", "."), ".py")
	id = strings.TrimSuffix(id, ".__init__")
	return id
}

// SortRecords orders scan records by module identifier so downstream
// stages behave identically regardless of scan completion order.
func SortRecords(records []*FileRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].ModuleID < records[j].ModuleID
	})
}

func countLines(text []byte) int {
	if len(text) == 0 {
		return 0
	}
	n := strings.Count(string(text), "\n")
	if text[len(text)-1] != '\n' {
		n++
	}
	return n
}

func snippetOf(line string) string {
	s := strings.TrimSpace(line)
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}

// matchCallee applies the call, SQL, and subprocess rule tables to a
// single call site. templated marks SQL arguments built by string
// interpolation; shellEnabled marks subprocess calls with shell=True.
func matchCallee(rs *rules.RuleSet, callee string, templated, shellEnabled bool, line int, snippet string) []PatternMatch {
	var matches []PatternMatch

	if rule := rs.MatchCall(callee); rule != nil {
		matches = append(matches, PatternMatch{
			Rule:     rule.Name,
			Kind:     "call",
			Severity: rule.Severity,
			Callee:   callee,
			Line:     line,
			Snippet:  snippet,
		})
	}

	if templated {
		if rule := rs.MatchSQL(callee); rule != nil {
			matches = append(matches, PatternMatch{
				Rule:     rule.Name,
				Kind:     "sql",
				Severity: rule.Severity,
				Callee:   callee,
				Line:     line,
				Snippet:  snippet,
			})
		}
	}

	if rule := rs.MatchSubprocess(callee); rule != nil {
		severity := rule.Severity
		if shellEnabled {
			severity = rule.ShellSeverity
		}
		matches = append(matches, PatternMatch{
			Rule:     rule.Name,
			Kind:     "subprocess",
			Severity: severity,
			Callee:   callee,
			Line:     line,
			Snippet:  snippet,
		})
	}

	return matches
}

func matchImportModule(rs *rules.RuleSet, module string, line int, snippet string) *PatternMatch {
	rule := rs.MatchImport(module)
	if rule == nil {
		return nil
	}
	return &PatternMatch{
		Rule:     rule.Name,
		Kind:     "import",
		Severity: rule.Severity,
		Callee:   module,
		Line:     line,
		Snippet:  snippet,
	}
}

// routeMethods picks the HTTP verbs for a route declaration: explicit
// methods from the decorator arguments win, then the verb implied by
// the decorator name, then GET.
func routeMethods(fw *rules.Framework, decorator string, explicit []string) []string {
	if len(explicit) > 0 {
		upper := make([]string, len(explicit))
		for i, m := range explicit {
			upper[i] = strings.ToUpper(m)
		}
		return upper
	}
	last := decorator
	if idx := strings.LastIndex(decorator, "."); idx >= 0 {
		last = decorator[idx+1:]
	}
	if implied, ok := fw.ImpliedMethods[strings.ToLower(last)]; ok {
		return []string{implied}
	}
	return []string{"GET"}
}
