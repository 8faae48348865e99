//go:build !cgo

package pyscan

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"vulnmap/internal/rules"
)

// Scanner extracts imports, rule matches, and route declarations with
// line-oriented regular expressions. Used when CGO is not available;
// the tree-sitter scanner in treesitter.go is the primary path.
type Scanner struct {
	rules *rules.RuleSet
}

// NewScanner creates a scanner over the given rule set.
func NewScanner(rs *rules.RuleSet) *Scanner {
	return &Scanner{rules: rs}
}

var (
	importLineRe  = regexp.MustCompile(`^\s*import\s+(.+?)\s*$`)
	importPartRe  = regexp.MustCompile(`^([\w.]+)(?:\s+as\s+(\w+))?$`)
	fromImportRe  = regexp.MustCompile(`^\s*from\s+([.\w]+)\s+import\s+(.+?)\s*$`)
	callSiteRe    = regexp.MustCompile(`([\w.]+)\s*\(`)
	decoratorRe   = regexp.MustCompile(`^\s*@([\w.]+)\s*(?:\((.*)\))?\s*$`)
	defRe         = regexp.MustCompile(`^\s*(?:async\s+)?def\s+(\w+)`)
	shellTrueRe   = regexp.MustCompile(`shell\s*=\s*True`)
	templatedRe   = regexp.MustCompile(`\(\s*[a-zA-Z]*f["']|%\s*[\w(]|\.format\(|["']\s*\+|\+\s*["']`)
	routeStringRe = regexp.MustCompile(`["']([^"']*)["']`)
	methodsArgRe  = regexp.MustCompile(`methods\s*=\s*[\[(]([^\])]*)[\])]`)
)

type pendingRoute struct {
	framework *rules.Framework
	decorator string
	route     string
	methods   []string
	line      int
}

// ScanFile scans one file line by line. Only files that are not valid
// text fail; this scanner cannot detect Python syntax errors.
func (s *Scanner) ScanFile(ctx context.Context, path string, text []byte) (*FileRecord, *ScanFailure) {
	select {
	case <-ctx.Done():
		return nil, &ScanFailure{Path: path, Reason: ctx.Err().Error()}
	default:
	}

	if bytes.IndexByte(text, 0) >= 0 || !utf8.Valid(text) {
		return nil, &ScanFailure{Path: path, Reason: "not valid UTF-8 text"}
	}

	record := &FileRecord{
		ModuleID: ModuleIDFromPath(path),
		Path:     path,
		Lines:    countLines(text),
	}

	var pending []pendingRoute

	for i, line := range strings.Split(string(text), "\n") {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if m := decoratorRe.FindStringSubmatch(line); m != nil {
			if fw := s.rules.MatchRouteDecorator(m[1]); fw != nil {
				pending = append(pending, parseRoute(fw, m[1], m[2], lineNo))
			}
			continue
		}

		if m := defRe.FindStringSubmatch(line); m != nil {
			for _, p := range pending {
				record.EntryPoints = append(record.EntryPoints, EntryPointDecl{
					Framework: p.framework.Name,
					Route:     p.route,
					Methods:   routeMethods(p.framework, p.decorator, p.methods),
					Function:  m[1],
					Line:      p.line,
				})
			}
			pending = pending[:0]
			continue
		}
		pending = pending[:0]

		if m := importLineRe.FindStringSubmatch(line); m != nil {
			s.scanImport(record, m[1], line, lineNo)
			continue
		}

		if m := fromImportRe.FindStringSubmatch(line); m != nil {
			s.scanFromImport(record, m[1], m[2], line, lineNo)
			continue
		}

		s.scanCalls(record, line, lineNo)
	}

	return record, nil
}

func (s *Scanner) scanImport(record *FileRecord, targets, raw string, line int) {
	snippet := snippetOf(raw)
	for _, part := range strings.Split(targets, ",") {
		m := importPartRe.FindStringSubmatch(strings.TrimSpace(part))
		if m == nil {
			continue
		}
		record.Imports = append(record.Imports, ImportDecl{
			Raw:    strings.TrimSpace(raw),
			Module: m[1],
			Alias:  m[2],
			Line:   line,
		})
		if match := matchImportModule(s.rules, m[1], line, snippet); match != nil {
			record.Matches = append(record.Matches, *match)
		}
	}
}

func (s *Scanner) scanFromImport(record *FileRecord, target, nameList, raw string, line int) {
	dots := 0
	for dots < len(target) && target[dots] == '.' {
		dots++
	}
	module := target[dots:]

	var names []string
	nameList = strings.Trim(nameList, "()")
	for _, part := range strings.Split(nameList, ",") {
		name := strings.TrimSpace(part)
		if idx := strings.Index(name, " as "); idx >= 0 {
			name = strings.TrimSpace(name[:idx])
		}
		if name != "" {
			names = append(names, name)
		}
	}

	record.Imports = append(record.Imports, ImportDecl{
		Raw:    strings.TrimSpace(raw),
		Module: module,
		Names:  names,
		Dots:   dots,
		Line:   line,
	})
	if dots == 0 && module != "" {
		if match := matchImportModule(s.rules, module, line, snippetOf(raw)); match != nil {
			record.Matches = append(record.Matches, *match)
		}
	}
}

// scanCalls applies the rule tables to every call site on a line. The
// templated and shell flags are line-scoped; without an AST that is
// the available granularity.
func (s *Scanner) scanCalls(record *FileRecord, line string, lineNo int) {
	matches := callSiteRe.FindAllStringSubmatch(line, -1)
	if matches == nil {
		return
	}

	snippet := snippetOf(line)
	templated := templatedRe.MatchString(line)
	shellEnabled := shellTrueRe.MatchString(line)

	for _, m := range matches {
		record.Matches = append(record.Matches,
			matchCallee(s.rules, m[1], templated, shellEnabled, lineNo, snippet)...)
	}
}

func parseRoute(fw *rules.Framework, decorator, args string, line int) pendingRoute {
	p := pendingRoute{framework: fw, decorator: decorator, line: line}
	if m := routeStringRe.FindStringSubmatch(args); m != nil {
		p.route = m[1]
	}
	if m := methodsArgRe.FindStringSubmatch(args); m != nil {
		for _, item := range strings.Split(m[1], ",") {
			if method := strings.Trim(strings.TrimSpace(item), `"'`); method != "" {
				p.methods = append(p.methods, method)
			}
		}
	}
	return p
}
