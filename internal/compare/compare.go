// Package compare diffs two analysis runs to show whether a project's
// security posture moved.
package compare

import (
	"sort"

	"vulnmap/internal/analyzer"
)

// Trend classifies the direction of a metric change.
type Trend string

const (
	TrendImprovement Trend = "improvement"
	TrendRegression  Trend = "regression"
	TrendStable      Trend = "stable"
	TrendChanged     Trend = "changed"
)

// MetricDelta is one summary metric before and after.
type MetricDelta struct {
	Name   string `json:"name"`
	Before int    `json:"before"`
	After  int    `json:"after"`
	Delta  int    `json:"delta"`
	Trend  Trend  `json:"trend"`
}

// Diff is the comparison between two runs.
type Diff struct {
	Metrics        []MetricDelta `json:"metrics"`
	AddedModules   []string      `json:"addedModules"`
	RemovedModules []string      `json:"removedModules"`
}

// Regressions returns the metrics that moved the wrong way.
func (d *Diff) Regressions() []MetricDelta {
	var out []MetricDelta
	for _, m := range d.Metrics {
		if m.Trend == TrendRegression {
			out = append(out, m)
		}
	}
	return out
}

// Runs compares two analysis results. Risk metrics are judged (fewer
// findings is an improvement); structural metrics only report change.
func Runs(before, after *analyzer.Result) *Diff {
	b, a := before.Summary, after.Summary

	diff := &Diff{
		Metrics: []MetricDelta{
			judged("criticalFindings", b.CriticalCount, a.CriticalCount),
			judged("highFindings", b.HighCount, a.HighCount),
			judged("mediumFindings", b.MediumCount, a.MediumCount),
			judged("totalFindings", b.TotalFindings, a.TotalFindings),
			judged("attackPaths", b.AttackPaths, a.AttackPaths),
			judged("cycles", b.Cycles, a.Cycles),
			neutral("modules", b.Modules, a.Modules),
			neutral("edges", b.Edges, a.Edges),
			neutral("externals", b.Externals, a.Externals),
			neutral("entryPoints", b.EntryPoints, a.EntryPoints),
		},
	}

	diff.AddedModules, diff.RemovedModules = moduleDiff(before, after)
	return diff
}

func judged(name string, before, after int) MetricDelta {
	trend := TrendStable
	switch {
	case after < before:
		trend = TrendImprovement
	case after > before:
		trend = TrendRegression
	}
	return MetricDelta{Name: name, Before: before, After: after, Delta: after - before, Trend: trend}
}

func neutral(name string, before, after int) MetricDelta {
	trend := TrendStable
	if after != before {
		trend = TrendChanged
	}
	return MetricDelta{Name: name, Before: before, After: after, Delta: after - before, Trend: trend}
}

func moduleDiff(before, after *analyzer.Result) (added, removed []string) {
	beforeSet := make(map[string]bool)
	for _, m := range before.Graph.Modules {
		beforeSet[m.ID] = true
	}
	afterSet := make(map[string]bool)
	for _, m := range after.Graph.Modules {
		afterSet[m.ID] = true
	}

	for id := range afterSet {
		if !beforeSet[id] {
			added = append(added, id)
		}
	}
	for id := range beforeSet {
		if !afterSet[id] {
			removed = append(removed, id)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}
