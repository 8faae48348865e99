// Package depgraph builds the module dependency graph from file scan
// records, resolving intra-project imports and tallying external ones.
package depgraph

import (
	"sort"
	"strings"

	"vulnmap/internal/pyscan"
)

// EdgeKind tags how the importing statement referenced the target.
type EdgeKind string

const (
	EdgeAbsolute EdgeKind = "absolute"
	EdgeRelative EdgeKind = "relative"
	EdgeAliased  EdgeKind = "aliased"
)

// Module is a graph node: one analyzable source file.
type Module struct {
	ID           string `json:"id"`
	Path         string `json:"path"`
	Lines        int    `json:"lines"`
	IsEntryPoint bool   `json:"isEntryPoint"`
}

// Edge is a resolved import between two project modules. At most one
// edge exists per ordered pair.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind EdgeKind `json:"kind"`
}

// Graph is the directed module dependency graph. Modules and Edges are
// sorted so identical inputs yield identical graphs.
type Graph struct {
	Modules []*Module `json:"modules"`
	Edges   []Edge    `json:"edges"`

	index map[string]*Module
	out   map[string][]string
	in    map[string][]string
}

// Result is the graph builder output: the graph, the deduplicated
// external dependency tally, and the count of import resolutions that
// needed the deterministic tie-break.
type Result struct {
	Graph       *Graph   `json:"graph"`
	Externals   []string `json:"externals"`
	Ambiguities int      `json:"ambiguities"`
}

// NodeCount returns the number of modules.
func (g *Graph) NodeCount() int { return len(g.Modules) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.Edges) }

// Module looks up a node by identifier.
func (g *Graph) Module(id string) *Module { return g.index[id] }

// OutNeighbors returns the modules id imports, sorted.
func (g *Graph) OutNeighbors(id string) []string { return g.out[id] }

// InNeighbors returns the modules importing id, sorted.
func (g *Graph) InNeighbors(id string) []string { return g.in[id] }

// ModuleIDs returns all node identifiers in sorted order.
func (g *Graph) ModuleIDs() []string {
	ids := make([]string, len(g.Modules))
	for i, m := range g.Modules {
		ids[i] = m.ID
	}
	return ids
}

// Build constructs the dependency graph from scan records. Records are
// expected sorted by module identifier; Build sorts its own outputs so
// the result is deterministic either way.
func Build(records []*pyscan.FileRecord) *Result {
	index := make(map[string]*Module, len(records))
	var modules []*Module
	for _, r := range records {
		m := &Module{
			ID:           r.ModuleID,
			Path:         r.Path,
			Lines:        r.Lines,
			IsEntryPoint: r.IsEntryPoint(),
		}
		index[m.ID] = m
		modules = append(modules, m)
	}
	sort.Slice(modules, func(i, j int) bool { return modules[i].ID < modules[j].ID })

	res := &resolver{index: index}
	edgeSet := make(map[[2]string]EdgeKind)
	externals := make(map[string]bool)
	ambiguities := 0

	for _, r := range records {
		for _, imp := range r.Imports {
			target, ambiguous, external := res.resolve(r.ModuleID, imp)
			if ambiguous {
				ambiguities++
			}
			if target == "" {
				if external != "" {
					externals[external] = true
				}
				continue
			}
			if target == r.ModuleID {
				continue
			}
			key := [2]string{r.ModuleID, target}
			if _, seen := edgeSet[key]; !seen {
				edgeSet[key] = edgeKind(imp)
			}
		}
	}

	edges := make([]Edge, 0, len(edgeSet))
	for key, kind := range edgeSet {
		edges = append(edges, Edge{From: key[0], To: key[1], Kind: kind})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})

	graph := &Graph{Modules: modules, Edges: edges, index: index}
	graph.out = make(map[string][]string)
	graph.in = make(map[string][]string)
	for _, e := range edges {
		graph.out[e.From] = append(graph.out[e.From], e.To)
		graph.in[e.To] = append(graph.in[e.To], e.From)
	}

	extList := make([]string, 0, len(externals))
	for ext := range externals {
		extList = append(extList, ext)
	}
	sort.Strings(extList)

	return &Result{Graph: graph, Externals: extList, Ambiguities: ambiguities}
}

func edgeKind(imp pyscan.ImportDecl) EdgeKind {
	switch {
	case imp.Dots > 0:
		return EdgeRelative
	case imp.Alias != "":
		return EdgeAliased
	default:
		return EdgeAbsolute
	}
}

type resolver struct {
	index map[string]*Module
}

// resolve maps one import declaration to a project module identifier.
// It returns the chosen module (empty if none), whether more than one
// candidate matched, and the external identifier to tally when the
// import does not resolve inside the project.
func (r *resolver) resolve(importer string, imp pyscan.ImportDecl) (string, bool, string) {
	if imp.Dots > 0 {
		return r.resolveRelative(importer, imp)
	}
	return r.resolveAbsolute(imp)
}

func (r *resolver) resolveAbsolute(imp pyscan.ImportDecl) (string, bool, string) {
	var candidates []string

	// Most specific first: the module plus an imported name, then the
	// module itself, then its first dotted segment (package match).
	for _, name := range imp.Names {
		if name == "*" {
			continue
		}
		full := imp.Module + "." + name
		if imp.Module == "" {
			full = name
		}
		if _, ok := r.index[full]; ok {
			candidates = append(candidates, full)
		}
	}
	if imp.Module != "" {
		if _, ok := r.index[imp.Module]; ok {
			candidates = append(candidates, imp.Module)
		}
		first := imp.Module
		if idx := strings.Index(first, "."); idx >= 0 {
			first = first[:idx]
		}
		if _, ok := r.index[first]; ok && first != imp.Module {
			candidates = append(candidates, first)
		}
	}

	if len(candidates) == 0 {
		if imp.Module == "" {
			return "", false, ""
		}
		external := imp.Module
		if idx := strings.Index(external, "."); idx >= 0 {
			external = external[:idx]
		}
		return "", false, external
	}

	return pick(candidates)
}

func (r *resolver) resolveRelative(importer string, imp pyscan.ImportDecl) (string, bool, string) {
	// One dot is the importer's own package; each extra dot climbs one
	// package level.
	parts := strings.Split(importer, ".")
	if len(parts) < imp.Dots {
		return "", false, ""
	}
	base := strings.Join(parts[:len(parts)-imp.Dots], ".")

	prefix := base
	if imp.Module != "" {
		if prefix != "" {
			prefix += "."
		}
		prefix += imp.Module
	}

	var candidates []string
	for _, name := range imp.Names {
		if name == "*" {
			continue
		}
		full := name
		if prefix != "" {
			full = prefix + "." + name
		}
		if _, ok := r.index[full]; ok {
			candidates = append(candidates, full)
		}
	}
	if prefix != "" {
		if _, ok := r.index[prefix]; ok {
			candidates = append(candidates, prefix)
		}
	}

	if len(candidates) == 0 {
		// Relative imports never leave the project; an unresolved one is
		// dropped rather than tallied as external.
		return "", false, ""
	}

	return pick(candidates)
}

// pick applies the deterministic precedence: longest identifier first,
// lexicographic order on ties. Reports whether a choice was needed.
func pick(candidates []string) (string, bool, string) {
	if len(candidates) == 1 {
		return candidates[0], false, ""
	}

	best := candidates[0]
	distinct := false
	for _, c := range candidates[1:] {
		if c != best {
			distinct = true
		}
		if len(c) > len(best) || (len(c) == len(best) && c < best) {
			best = c
		}
	}
	return best, distinct, ""
}
