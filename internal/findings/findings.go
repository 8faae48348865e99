// Package findings classifies scanner pattern matches into
// severity-tagged security findings per module.
package findings

import (
	"sort"

	"vulnmap/internal/pyscan"
	"vulnmap/internal/rules"
)

// Finding is one security-relevant pattern occurrence in a module.
type Finding struct {
	Module   string         `json:"module"`
	Rule     string         `json:"rule"`
	Kind     string         `json:"kind"`
	Severity rules.Severity `json:"severity"`
	Line     int            `json:"line"`
	Snippet  string         `json:"snippet"`
}

// Report holds all findings of a run, sorted by module, line, and rule.
type Report struct {
	Findings []Finding `json:"findings"`

	byModule map[string][]Finding
	counts   map[rules.Severity]int
}

// Collect turns the pattern matches of all scan records into findings.
func Collect(records []*pyscan.FileRecord) *Report {
	report := &Report{
		byModule: make(map[string][]Finding),
		counts:   make(map[rules.Severity]int),
	}

	for _, r := range records {
		for _, m := range r.Matches {
			f := Finding{
				Module:   r.ModuleID,
				Rule:     m.Rule,
				Kind:     m.Kind,
				Severity: m.Severity,
				Line:     m.Line,
				Snippet:  m.Snippet,
			}
			report.Findings = append(report.Findings, f)
			report.byModule[r.ModuleID] = append(report.byModule[r.ModuleID], f)
			report.counts[m.Severity]++
		}
	}

	sort.Slice(report.Findings, func(i, j int) bool {
		a, b := report.Findings[i], report.Findings[j]
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Rule < b.Rule
	})

	return report
}

// ForModule returns the findings in one module.
func (r *Report) ForModule(id string) []Finding {
	return r.byModule[id]
}

// WorstSeverity returns the highest-weight severity among a module's
// findings. The second return is false when the module has none.
func (r *Report) WorstSeverity(id string) (rules.Severity, bool) {
	fs := r.byModule[id]
	if len(fs) == 0 {
		return "", false
	}
	worst := fs[0].Severity
	for _, f := range fs[1:] {
		if f.Severity.Weight() > worst.Weight() {
			worst = f.Severity
		}
	}
	return worst, true
}

// CountBySeverity returns how many findings carry the given severity.
func (r *Report) CountBySeverity(s rules.Severity) int {
	return r.counts[s]
}

// Total returns the overall finding count.
func (r *Report) Total() int {
	return len(r.Findings)
}

// Modules returns the identifiers of all modules with findings, sorted.
func (r *Report) Modules() []string {
	ids := make([]string, 0, len(r.byModule))
	for id := range r.byModule {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
