// Package metrics computes structural graph metrics that expose
// architectural risk: hub centrality, bridge betweenness, and import
// cycles.
package metrics

import (
	"sort"

	"vulnmap/internal/depgraph"
)

// ModuleMetrics holds the per-node metric values.
type ModuleMetrics struct {
	ID               string  `json:"id"`
	InDegree         int     `json:"inDegree"`
	OutDegree        int     `json:"outDegree"`
	DegreeCentrality float64 `json:"degreeCentrality"`
	Betweenness      float64 `json:"betweenness"`
}

// Report is the metrics stage output. Modules are sorted by identifier.
type Report struct {
	Modules       []ModuleMetrics `json:"modules"`
	Cycles        [][]string      `json:"cycles"`
	CycleBoundHit bool            `json:"cycleBoundHit"`
	IsDAG         bool            `json:"isDag"`
}

// Compute derives all metrics from the graph. maxCycles bounds cycle
// enumeration; hitting the bound sets CycleBoundHit instead of failing.
func Compute(g *depgraph.Graph, maxCycles int) *Report {
	ids := g.ModuleIDs()
	n := len(ids)

	betweenness := brandes(g, ids)

	report := &Report{}
	for _, id := range ids {
		in := len(g.InNeighbors(id))
		out := len(g.OutNeighbors(id))

		centrality := 0.0
		if n > 1 {
			centrality = float64(in+out) / float64(n-1)
		}

		report.Modules = append(report.Modules, ModuleMetrics{
			ID:               id,
			InDegree:         in,
			OutDegree:        out,
			DegreeCentrality: centrality,
			Betweenness:      betweenness[id],
		})
	}

	report.Cycles, report.CycleBoundHit = findCycles(g, ids, maxCycles)
	report.IsDAG = len(report.Cycles) == 0 && !report.CycleBoundHit

	return report
}

// brandes computes betweenness centrality for every node, normalized
// by (N-1)(N-2) for directed graphs.
func brandes(g *depgraph.Graph, ids []string) map[string]float64 {
	centrality := make(map[string]float64, len(ids))
	for _, id := range ids {
		centrality[id] = 0
	}

	for _, s := range ids {
		var stack []string
		preds := make(map[string][]string)
		sigma := map[string]float64{s: 1}
		dist := map[string]int{s: 0}

		queue := []string{s}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)

			for _, w := range g.OutNeighbors(v) {
				if _, seen := dist[w]; !seen {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		delta := make(map[string]float64)
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range preds[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != s {
				centrality[w] += delta[w]
			}
		}
	}

	n := len(ids)
	if n > 2 {
		scale := 1.0 / float64((n-1)*(n-2))
		for id := range centrality {
			centrality[id] *= scale
		}
	}

	return centrality
}

// findCycles enumerates import cycles by DFS back-edge extraction, up
// to the bound. Cycles are normalized to start at their smallest
// module identifier so each cycle is reported once.
func findCycles(g *depgraph.Graph, ids []string, maxCycles int) ([][]string, bool) {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int, len(ids))
	onPath := make(map[string]int)
	var path []string
	var cycles [][]string
	seen := make(map[string]bool)
	boundHit := false

	var visit func(string)
	visit = func(v string) {
		if boundHit {
			return
		}
		color[v] = gray
		onPath[v] = len(path)
		path = append(path, v)

		for _, w := range g.OutNeighbors(v) {
			if boundHit {
				break
			}
			switch color[w] {
			case white:
				visit(w)
			case gray:
				cycle := normalizeCycle(path[onPath[w]:])
				sig := signature(cycle)
				if !seen[sig] {
					seen[sig] = true
					cycles = append(cycles, cycle)
					if maxCycles > 0 && len(cycles) >= maxCycles {
						boundHit = true
					}
				}
			}
		}

		path = path[:len(path)-1]
		delete(onPath, v)
		color[v] = black
	}

	for _, id := range ids {
		if color[id] == white {
			visit(id)
		}
		if boundHit {
			break
		}
	}

	return cycles, boundHit
}

// normalizeCycle rotates a cycle so it starts at its lexicographically
// smallest member, keeping the traversal order.
func normalizeCycle(path []string) []string {
	min := 0
	for i := 1; i < len(path); i++ {
		if path[i] < path[min] {
			min = i
		}
	}
	cycle := make([]string, 0, len(path))
	cycle = append(cycle, path[min:]...)
	cycle = append(cycle, path[:min]...)
	return cycle
}

func signature(cycle []string) string {
	sig := ""
	for _, id := range cycle {
		sig += id + "\x00"
	}
	return sig
}

// SortByCentrality returns the metric rows ordered by degree
// centrality descending, identifier ascending on ties.
func SortByCentrality(modules []ModuleMetrics) []ModuleMetrics {
	sorted := make([]ModuleMetrics, len(modules))
	copy(sorted, modules)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].DegreeCentrality != sorted[j].DegreeCentrality {
			return sorted[i].DegreeCentrality > sorted[j].DegreeCentrality
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}
