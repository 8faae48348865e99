// Package rules defines the vulnerability-pattern rule table and the
// entry-point framework signatures. Rules are data: an embedded TOML table
// decoded at startup, optionally overridden from .vulnmap/rules.toml.
package rules

import (
	_ "embed"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed default_rules.toml
var embeddedRules []byte

// Severity indicates the risk level of a detection rule.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

// Weight returns a numeric weight for sorting.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return s.Weight() > 0
}

// CallRule flags a call to a dangerous function by its dotted callee name.
type CallRule struct {
	Name        string   `toml:"name"`
	Callees     []string `toml:"callees"`
	Severity    Severity `toml:"severity"`
	Description string   `toml:"description"`
}

// ImportRule flags an import of an inherently dangerous module.
type ImportRule struct {
	Name        string   `toml:"name"`
	Modules     []string `toml:"modules"`
	Severity    Severity `toml:"severity"`
	Description string   `toml:"description"`
}

// SQLRule flags query-execution calls whose argument is built with string
// templating (f-string, %-format, .format()).
type SQLRule struct {
	Name        string   `toml:"name"`
	Functions   []string `toml:"functions"` // matched on the last name segment
	Severity    Severity `toml:"severity"`
	Description string   `toml:"description"`
}

// SubprocessRule flags process-spawn calls. Severity escalates to
// ShellSeverity when the call passes shell=True.
type SubprocessRule struct {
	Name          string   `toml:"name"`
	Callees       []string `toml:"callees"`
	Severity      Severity `toml:"severity"`
	ShellSeverity Severity `toml:"shell_severity"`
	Description   string   `toml:"description"`
}

// Framework describes route-registration idioms of a web framework.
type Framework struct {
	Name string `toml:"name"`
	// Decorators are decorator attribute names (the part after the last
	// dot, or the bare decorator name) that register a route.
	Decorators []string `toml:"decorators"`
	// ImpliedMethods maps a decorator name to the HTTP verb it implies
	// when no methods keyword is present (FastAPI style).
	ImpliedMethods map[string]string `toml:"implied_methods"`
}

// RuleSet is the full detection configuration for one analysis run.
// It is immutable after Compile.
type RuleSet struct {
	Calls      []CallRule       `toml:"call"`
	Imports    []ImportRule     `toml:"import"`
	SQL        []SQLRule        `toml:"sql"`
	Subprocess []SubprocessRule `toml:"subprocess"`
	Frameworks []Framework      `toml:"framework"`

	// Lookup indexes built by Compile.
	calleeIndex     map[string]*CallRule
	importIndex     map[string]*ImportRule
	sqlIndex        map[string]*SQLRule
	subprocessIndex map[string]*SubprocessRule
	decoratorIndex  map[string]*Framework
}

// Default returns the embedded rule set, compiled.
func Default() (*RuleSet, error) {
	var rs RuleSet
	if err := toml.Unmarshal(embeddedRules, &rs); err != nil {
		return nil, err
	}
	rs.Compile()
	return &rs, nil
}

// LoadFromFile reads a rule set from a TOML file, compiled.
func LoadFromFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rs RuleSet
	if err := toml.Unmarshal(data, &rs); err != nil {
		return nil, err
	}
	rs.Compile()
	return &rs, nil
}

// Load returns the rule set for a project root: .vulnmap/rules.toml when
// present, the embedded defaults otherwise.
func Load(root string) (*RuleSet, error) {
	override := root + "/.vulnmap/rules.toml"
	if _, err := os.Stat(override); err == nil {
		return LoadFromFile(override)
	}
	return Default()
}

// Compile builds the lookup indexes. Safe to call more than once.
func (rs *RuleSet) Compile() {
	rs.calleeIndex = make(map[string]*CallRule)
	for i := range rs.Calls {
		for _, callee := range rs.Calls[i].Callees {
			rs.calleeIndex[callee] = &rs.Calls[i]
		}
	}

	rs.importIndex = make(map[string]*ImportRule)
	for i := range rs.Imports {
		for _, mod := range rs.Imports[i].Modules {
			rs.importIndex[mod] = &rs.Imports[i]
		}
	}

	rs.sqlIndex = make(map[string]*SQLRule)
	for i := range rs.SQL {
		for _, fn := range rs.SQL[i].Functions {
			rs.sqlIndex[fn] = &rs.SQL[i]
		}
	}

	rs.subprocessIndex = make(map[string]*SubprocessRule)
	for i := range rs.Subprocess {
		for _, callee := range rs.Subprocess[i].Callees {
			rs.subprocessIndex[callee] = &rs.Subprocess[i]
		}
	}

	rs.decoratorIndex = make(map[string]*Framework)
	for i := range rs.Frameworks {
		for _, dec := range rs.Frameworks[i].Decorators {
			rs.decoratorIndex[dec] = &rs.Frameworks[i]
		}
	}
}

// MatchCall returns the call rule for a dotted callee name, if any.
func (rs *RuleSet) MatchCall(callee string) *CallRule {
	return rs.calleeIndex[callee]
}

// MatchImport returns the import rule for a module name. Dotted imports
// match on their first segment ("pickle.tools" matches "pickle").
func (rs *RuleSet) MatchImport(module string) *ImportRule {
	if r, ok := rs.importIndex[module]; ok {
		return r
	}
	if i := strings.IndexByte(module, '.'); i > 0 {
		return rs.importIndex[module[:i]]
	}
	return nil
}

// MatchSQL returns the SQL rule for a callee, matching the last name
// segment ("cursor.execute" matches "execute").
func (rs *RuleSet) MatchSQL(callee string) *SQLRule {
	last := callee
	if i := strings.LastIndexByte(callee, '.'); i >= 0 {
		last = callee[i+1:]
	}
	return rs.sqlIndex[last]
}

// MatchSubprocess returns the subprocess rule for a dotted callee name.
func (rs *RuleSet) MatchSubprocess(callee string) *SubprocessRule {
	return rs.subprocessIndex[callee]
}

// MatchRouteDecorator returns the framework whose route idiom matches a
// decorator name. The name is matched on its last dotted segment, so both
// "@route" and "@app.route" resolve the same way.
func (rs *RuleSet) MatchRouteDecorator(decorator string) *Framework {
	last := decorator
	if i := strings.LastIndexByte(decorator, '.'); i >= 0 {
		last = decorator[i+1:]
	}
	return rs.decoratorIndex[strings.ToLower(last)]
}

// Validate checks that every rule carries a known severity.
func (rs *RuleSet) Validate() error {
	for _, r := range rs.Calls {
		if !r.Severity.Valid() {
			return &RuleError{Rule: r.Name, Message: "unknown severity " + string(r.Severity)}
		}
	}
	for _, r := range rs.Imports {
		if !r.Severity.Valid() {
			return &RuleError{Rule: r.Name, Message: "unknown severity " + string(r.Severity)}
		}
	}
	for _, r := range rs.SQL {
		if !r.Severity.Valid() {
			return &RuleError{Rule: r.Name, Message: "unknown severity " + string(r.Severity)}
		}
	}
	for _, r := range rs.Subprocess {
		if !r.Severity.Valid() || !r.ShellSeverity.Valid() {
			return &RuleError{Rule: r.Name, Message: "unknown severity"}
		}
	}
	return nil
}

// RuleError reports an invalid rule definition.
type RuleError struct {
	Rule    string
	Message string
}

func (e *RuleError) Error() string {
	return "invalid rule '" + e.Rule + "': " + e.Message
}
