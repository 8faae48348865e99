// Package attack maps the attack surface: reachability in import hops
// from entry points to modules with findings, and the combined risk.
package attack

import (
	"sort"

	"vulnmap/internal/depgraph"
	"vulnmap/internal/findings"
	"vulnmap/internal/pyscan"
	"vulnmap/internal/rules"
)

// RiskLevel is the combined severity-by-distance risk classification.
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskLow      RiskLevel = "low"
	RiskUnscored RiskLevel = "unscored"
)

// Weight orders risk levels for sorting. Higher is riskier.
func (r RiskLevel) Weight() int {
	switch r {
	case RiskCritical:
		return 4
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

// EntryPoint is an externally triggerable location: a route handler in
// a module.
type EntryPoint struct {
	Module    string   `json:"module"`
	Framework string   `json:"framework"`
	Route     string   `json:"route"`
	Methods   []string `json:"methods"`
	Function  string   `json:"function"`
	Line      int      `json:"line"`
}

// Path is one (entry point, vulnerable module) pair. Each route
// declaration produces its own rows, so a module with two routes yields
// two paths to the same target. Distance is the minimum hop count over
// import edges; -1 marks a module with findings that no entry point
// reaches.
type Path struct {
	Entry    string         `json:"entry"`
	Route    string         `json:"route,omitempty"`
	Function string         `json:"function,omitempty"`
	Module   string         `json:"module"`
	Distance int            `json:"distance"`
	Severity rules.Severity `json:"severity"`
	Risk     RiskLevel      `json:"risk"`
}

// Surface is the attack surface mapper output, recomputed fully on
// every run.
type Surface struct {
	EntryPoints []EntryPoint `json:"entryPoints"`
	Paths       []Path       `json:"paths"`
}

// EntryPointsFromRecords collects all route declarations from the scan
// records, ordered by module and declaration line.
func EntryPointsFromRecords(records []*pyscan.FileRecord) []EntryPoint {
	var entries []EntryPoint
	for _, r := range records {
		for _, ep := range r.EntryPoints {
			entries = append(entries, EntryPoint{
				Module:    r.ModuleID,
				Framework: ep.Framework,
				Route:     ep.Route,
				Methods:   ep.Methods,
				Function:  ep.Function,
				Line:      ep.Line,
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Module != entries[j].Module {
			return entries[i].Module < entries[j].Module
		}
		return entries[i].Line < entries[j].Line
	})
	return entries
}

// Map computes the attack surface. Modules without findings produce no
// paths; modules with findings that no entry reaches are scored in the
// unreachable column rather than dropped. maxDistance bounds the BFS;
// zero means unbounded.
func Map(g *depgraph.Graph, entries []EntryPoint, report *findings.Report, maxDistance int) *Surface {
	surface := &Surface{EntryPoints: entries}

	// One BFS per distinct entry module; every route in that module
	// shares its distances.
	distByModule := make(map[string]map[string]int)
	for _, ep := range entries {
		if _, done := distByModule[ep.Module]; done || g.Module(ep.Module) == nil {
			continue
		}
		distByModule[ep.Module] = bfs(g, ep.Module, maxDistance)
	}

	vulnerable := report.Modules()
	reached := make(map[string]bool)

	for _, ep := range entries {
		dist, ok := distByModule[ep.Module]
		if !ok {
			continue
		}
		for _, target := range vulnerable {
			d, ok := dist[target]
			if !ok {
				continue
			}
			severity, _ := report.WorstSeverity(target)
			reached[target] = true
			surface.Paths = append(surface.Paths, Path{
				Entry:    ep.Module,
				Route:    ep.Route,
				Function: ep.Function,
				Module:   target,
				Distance: d,
				Severity: severity,
				Risk:     riskFor(severity, d),
			})
		}
	}

	for _, target := range vulnerable {
		if reached[target] || g.Module(target) == nil {
			continue
		}
		severity, _ := report.WorstSeverity(target)
		surface.Paths = append(surface.Paths, Path{
			Entry:    "",
			Module:   target,
			Distance: -1,
			Severity: severity,
			Risk:     riskFor(severity, -1),
		})
	}

	sort.Slice(surface.Paths, func(i, j int) bool {
		a, b := surface.Paths[i], surface.Paths[j]
		if a.Risk.Weight() != b.Risk.Weight() {
			return a.Risk.Weight() > b.Risk.Weight()
		}
		if a.Distance != b.Distance {
			return hops(a.Distance) < hops(b.Distance)
		}
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		if a.Entry != b.Entry {
			return a.Entry < b.Entry
		}
		return a.Route < b.Route
	})

	return surface
}

// hops maps the unreachable marker past every finite distance.
func hops(d int) int {
	if d < 0 {
		return int(^uint(0) >> 1)
	}
	return d
}

// bfs returns minimum hop distances over forward import edges from
// start. start itself is at distance 0.
func bfs(g *depgraph.Graph, start string, maxDistance int) map[string]int {
	dist := map[string]int{start: 0}
	queue := []string{start}

	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		if maxDistance > 0 && dist[v] >= maxDistance {
			continue
		}
		for _, w := range g.OutNeighbors(v) {
			if _, seen := dist[w]; !seen {
				dist[w] = dist[v] + 1
				queue = append(queue, w)
			}
		}
	}

	return dist
}

// riskFor combines worst finding severity with entry distance using a
// fixed precedence table. Distances of 4 or more score the same as
// unreachable.
func riskFor(severity rules.Severity, distance int) RiskLevel {
	near := distance >= 0 && distance <= 1
	mid := distance >= 2 && distance <= 3

	switch severity {
	case rules.SeverityCritical:
		switch {
		case near:
			return RiskCritical
		case mid:
			return RiskHigh
		default:
			return RiskMedium
		}
	case rules.SeverityHigh:
		switch {
		case near:
			return RiskHigh
		case mid:
			return RiskMedium
		default:
			return RiskLow
		}
	case rules.SeverityMedium:
		switch {
		case near:
			return RiskMedium
		default:
			return RiskLow
		}
	default:
		return RiskUnscored
	}
}
